package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"gelbeseiten-scraper/internal/components/telemetry"
	"gelbeseiten-scraper/internal/export"
	"gelbeseiten-scraper/internal/scrapers/gelbeseiten"
)

type scrapeOptions struct {
	SearchTerm string
	MaxResults int
	CsvPath    string
	XlsxPath   string
	DbPath     string
	DumpHttp   string
}

// errNoResults makes the process exit with 1 after a run that scraped nothing.
var errNoResults = errors.New("no results were scraped")

// buildSink opens every configured output. The returned close function
// releases the database if one was opened.
func buildSink(opts scrapeOptions) (gelbeseiten.Sink, func(), error) {
	sinks := export.MultiSink{export.CSVSink{Path: opts.CsvPath}}
	closeFn := func() {}

	if opts.XlsxPath != "" {
		sinks = append(sinks, export.XLSXSink{Path: opts.XlsxPath})
	}
	if opts.DbPath != "" {
		db, err := export.OpenDB(opts.DbPath)
		if err != nil {
			return nil, closeFn, err
		}
		sinks = append(sinks, export.NewSQLSink(db, opts.SearchTerm))
		closeFn = func() {
			err := db.Close()
			if err != nil {
				slog.Warn("failed to close db", "err", err)
			}
		}
	}

	if len(sinks) == 1 {
		return sinks[0], closeFn, nil
	}
	return sinks, closeFn, nil
}

func runScrape(ctx context.Context, cfg Config, opts scrapeOptions, tel telemetry.API) (gelbeseiten.Result, error) {
	var output telemetry.MessageOutput
	if opts.DumpHttp != "" {
		fsOutput, err := telemetry.NewFilesystemOutput(opts.DumpHttp)
		if err != nil {
			return gelbeseiten.Result{}, fmt.Errorf("prepare http dump dir: %w", err)
		}
		output = fsOutput
	}

	client, err := gelbeseiten.NewClient(cfg.ClientOptions(opts.SearchTerm, output), tel)
	if err != nil {
		return gelbeseiten.Result{}, fmt.Errorf("create client: %w", err)
	}

	sink, closeSink, err := buildSink(opts)
	if err != nil {
		return gelbeseiten.Result{}, fmt.Errorf("open outputs: %w", err)
	}
	defer closeSink()

	params := cfg.RunParams(client, sink, tel, opts.MaxResults)
	params.BaseUrl = client.BaseUrl

	slog.Info(
		"starting scraper",
		"search_term", opts.SearchTerm,
		"max_results", opts.MaxResults,
		"output", strings.Join(nonEmpty(opts.CsvPath, opts.XlsxPath, opts.DbPath), ", "),
	)
	return gelbeseiten.Run(ctx, params), nil
}

func nonEmpty(values ...string) []string {
	var out []string
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
