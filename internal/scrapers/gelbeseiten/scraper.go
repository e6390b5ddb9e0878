package gelbeseiten

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"gelbeseiten-scraper/internal/components/assert"
	"gelbeseiten-scraper/internal/components/chrono"
	"gelbeseiten-scraper/internal/components/telemetry"

	"go.opentelemetry.io/otel/attribute"
)

const (
	report_scraper_export = "scraper.export"
	report_scraper_fetch  = "scraper.fetch"
	report_scraper_run    = "scraper.run"
)

const (
	DefaultPageSize        = 10
	DefaultPageDelay       = time.Second
	DefaultRetryDelay      = 2 * time.Second
	DefaultMaxFailures     = 3
	DefaultCheckpointEvery = 100
)

// Fetcher is the part of Client the scraping loop depends on.
type Fetcher interface {
	Initialize(ctx context.Context) bool
	FetchPage(ctx context.Context, offset, pageSize int) (Page, bool)
}

// Sink receives the full set of accumulated listings, both for mid-run
// checkpoints and for the final export.
type Sink interface {
	Export(ctx context.Context, listings []Listing) error
}

type State int

const (
	StateInit State = iota
	StateFetching
	StateParsing
	StateAccumulating
	StateDone
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateFetching:
		return "fetching"
	case StateParsing:
		return "parsing"
	case StateAccumulating:
		return "accumulating"
	case StateDone:
		return "done"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Reason is why a run reached StateDone.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonEndOfResults
	ReasonMaxResults
	ReasonTooManyFailures
	ReasonInitFailed
	ReasonCancelled
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonEndOfResults:
		return "end of results"
	case ReasonMaxResults:
		return "max results reached"
	case ReasonTooManyFailures:
		return "too many consecutive failures"
	case ReasonInitFailed:
		return "session initialization failed"
	case ReasonCancelled:
		return "cancelled"
	}
	return fmt.Sprintf("reason(%d)", int(r))
}

// Aborted is true for every way of finishing that is not a natural end.
func (r Reason) Aborted() bool {
	return r == ReasonTooManyFailures || r == ReasonInitFailed
}

// RunParams holds everything a single scraping run needs. Zero values are
// replaced by the package defaults, except MaxResults where 0 means no cap.
type RunParams struct {
	Fetcher Fetcher
	// Sink may be nil, in which case nothing is exported.
	Sink    Sink
	Tel     telemetry.API
	Clock   chrono.API
	BaseUrl *url.URL

	MaxResults      int
	PageSize        int
	PageDelay       time.Duration
	RetryDelay      time.Duration
	MaxFailures     int
	CheckpointEvery int
}

func (p RunParams) withDefaults() RunParams {
	if p.Clock == nil {
		p.Clock = chrono.StandardImpl{}
	}
	if p.BaseUrl == nil {
		p.BaseUrl, _ = url.Parse(DefaultBaseUrl)
	}
	if p.PageSize <= 0 {
		p.PageSize = DefaultPageSize
	}
	if p.PageDelay <= 0 {
		p.PageDelay = DefaultPageDelay
	}
	if p.RetryDelay <= 0 {
		p.RetryDelay = DefaultRetryDelay
	}
	if p.MaxFailures <= 0 {
		p.MaxFailures = DefaultMaxFailures
	}
	if p.CheckpointEvery <= 0 {
		p.CheckpointEvery = DefaultCheckpointEvery
	}
	return p
}

type Result struct {
	Listings []Listing
	State    State
	Reason   Reason
	Pages    int
	// Exports counts every call made to the sink, checkpoints included.
	Exports int
	Stats   Stats
	// ExportErr is the error of the final export, if any.
	ExportErr error
}

type run struct {
	RunParams

	state    State
	reason   Reason
	offset   int
	failures int
	page     Page
	parsed   []Listing
	result   Result
}

// Run drives the fetch, parse, accumulate loop until the directory runs out
// of results, MaxResults is reached, MaxFailures fetches fail in a row or
// ctx is cancelled. Listings gathered before the stop are always kept and
// exported.
func Run(ctx context.Context, params RunParams) Result {
	assert.NotNil(params.Fetcher)
	assert.NotNil(params.Tel)

	ctx, span := tracer.Start(ctx, "Run")
	defer span.End()

	params = params.withDefaults()
	params.Tel = telemetry.NewScopedAPI("gelbeseiten_scraper", params.Tel)

	r := &run{RunParams: params, state: StateInit}
	for r.state != StateDone {
		r.step(ctx)
	}

	span.SetAttributes(
		attribute.String("reason", r.reason.String()),
		attribute.Int("listings", len(r.result.Listings)),
	)
	return r.result
}

func (r *run) step(ctx context.Context) {
	switch r.state {
	case StateInit:
		if !r.Fetcher.Initialize(ctx) {
			if ctx.Err() != nil {
				r.finish(ctx, ReasonCancelled)
				return
			}
			r.Tel.ReportBroken(report_scraper_run, fmt.Errorf("failed to initialize session"))
			r.finish(ctx, ReasonInitFailed)
			return
		}
		r.state = StateFetching

	case StateFetching:
		if ctx.Err() != nil {
			r.finish(ctx, ReasonCancelled)
			return
		}
		if r.MaxResults > 0 && len(r.result.Listings) >= r.MaxResults {
			r.Tel.ReportInfo("reached max results", r.MaxResults)
			r.finish(ctx, ReasonMaxResults)
			return
		}

		page, ok := r.Fetcher.FetchPage(ctx, r.offset, r.PageSize)
		if !ok {
			if ctx.Err() != nil {
				r.finish(ctx, ReasonCancelled)
				return
			}
			r.failures++
			r.Tel.ReportWarning(
				report_scraper_fetch,
				fmt.Errorf("no data returned (failure %d/%d)", r.failures, r.MaxFailures),
				r.offset,
			)
			if r.failures >= r.MaxFailures {
				r.Tel.ReportBroken(report_scraper_run, fmt.Errorf("too many consecutive failures"), r.offset)
				r.finish(ctx, ReasonTooManyFailures)
				return
			}
			if r.Clock.Sleep(ctx, r.RetryDelay) != nil {
				r.finish(ctx, ReasonCancelled)
			}
			return
		}

		r.failures = 0
		r.page = page
		r.state = StateParsing

	case StateParsing:
		r.parsed = Parse(ctx, r.page, r.BaseUrl, r.Tel)
		if len(r.parsed) == 0 {
			r.Tel.ReportInfo("no more results", r.offset)
			r.finish(ctx, ReasonEndOfResults)
			return
		}
		r.state = StateAccumulating

	case StateAccumulating:
		previous := len(r.result.Listings)
		r.result.Listings = append(r.result.Listings, r.parsed...)
		r.result.Pages++
		r.offset += r.PageSize
		total := len(r.result.Listings)

		if r.page.Total > 0 {
			r.Tel.ReportInfo(
				"progress",
				fmt.Sprintf("%d/%d", total, r.page.Total),
				fmt.Sprintf("%.1f%%", float64(total)/float64(r.page.Total)*100),
			)
		} else {
			r.Tel.ReportInfo("total scraped so far", total)
		}
		r.Tel.ReportCount("listings", int64(total))

		if previous/r.CheckpointEvery != total/r.CheckpointEvery {
			err := r.export(ctx)
			if err != nil {
				r.Tel.ReportWarning(report_scraper_export, fmt.Errorf("checkpoint: %w", err), total)
			}
		}

		if r.Clock.Sleep(ctx, r.PageDelay) != nil {
			r.finish(ctx, ReasonCancelled)
			return
		}
		r.state = StateFetching
	}
}

func (r *run) export(ctx context.Context) error {
	if r.Sink == nil {
		return nil
	}
	r.result.Exports++
	err := r.Sink.Export(ctx, r.result.Listings)
	if err != nil {
		return err
	}
	r.Tel.ReportInfo("progress saved", len(r.result.Listings))
	return nil
}

func (r *run) finish(ctx context.Context, reason Reason) {
	r.state = StateDone
	r.reason = reason
	r.result.State = StateDone
	r.result.Reason = reason

	if len(r.result.Listings) == 0 {
		r.Tel.ReportWarning(report_scraper_export, fmt.Errorf("no results to export"), reason.String())
	} else {
		// a cancelled run still gets to write out what it has
		err := r.export(context.WithoutCancel(ctx))
		if err != nil {
			r.Tel.ReportBroken(report_scraper_export, err, len(r.result.Listings))
			r.result.ExportErr = err
		}
	}

	r.result.Stats = ComputeStats(r.result.Listings)
	r.Tel.ReportInfo("scraping complete", reason.String(), len(r.result.Listings))
}
