package gelbeseiten

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"time"

	"gelbeseiten-scraper/internal/components/assert"
	"gelbeseiten-scraper/internal/components/telemetry"
	libtelemetry "gelbeseiten-scraper/lib/telemetry"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"
)

const (
	report_client_initialize = "client.initialize"
	report_client_fetch_page = "client.fetch-page"
)

const (
	DefaultBaseUrl   = "https://www.gelbeseiten.de"
	DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/142.0.0.0 Safari/537.36"
	DefaultTimeout   = 30 * time.Second
)

type ClientOptions struct {
	BaseUrl    string
	SearchTerm string
	UserAgent  string
	Timeout    time.Duration
	// RequestsPerSecond caps the outgoing request rate, 0 disables the limit.
	RequestsPerSecond float64
	// HttpOutput receives full http exchanges when set.
	HttpOutput telemetry.MessageOutput
}

// Client is the http session with the directory. It owns the cookie jar
// filled in by Initialize and reused by every FetchPage.
type Client struct {
	BaseUrl    *url.URL
	Http       *resty.Client
	SearchTerm string

	tel telemetry.API
}

func NewClient(opts ClientOptions, tel telemetry.API) (*Client, error) {
	assert.NotNil(tel)
	assert.NotEmptyStr(opts.SearchTerm)

	tel = telemetry.NewScopedAPI("gelbeseiten_client", tel)

	if opts.BaseUrl == "" {
		opts.BaseUrl = DefaultBaseUrl
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	baseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, err
	}

	httpClient := resty.New()
	httpClient.SetBaseURL(opts.BaseUrl)
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	httpClient.SetCookieJar(jar)
	httpClient.SetTimeout(opts.Timeout)
	httpClient.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(baseUrl.Hostname()))
	httpClient.SetHeaders(map[string]string{
		"User-Agent":         opts.UserAgent,
		"Accept":             "*/*",
		"Accept-Language":    "de-DE,de;q=0.9,en-US;q=0.8,en;q=0.7",
		"Origin":             opts.BaseUrl,
		"Referer":            opts.BaseUrl + "/",
		"sec-ch-ua":          `"Chromium";v="142", "Google Chrome";v="142", "Not_A Brand";v="99"`,
		"sec-ch-ua-mobile":   "?0",
		"sec-ch-ua-platform": `"macOS"`,
		"sec-fetch-dest":     "empty",
		"sec-fetch-mode":     "cors",
		"sec-fetch-site":     "same-origin",
	})

	if opts.RequestsPerSecond > 0 {
		// burst of 1, the loop never has more than one request in flight
		rateLimiter := rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
		httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return rateLimiter.Wait(req.Context())
		})
	}

	libtelemetry.InstrumentResty(httpClient, "scrapers/gelbeseiten/http")
	telemetry.InstrumentResty(httpClient, tel, opts.HttpOutput)

	return &Client{
		BaseUrl:    baseUrl,
		Http:       httpClient,
		SearchTerm: opts.SearchTerm,
		tel:        tel,
	}, nil
}

func (c *Client) searchPath() string {
	return fmt.Sprintf("/suche/%s/bundesweit", url.PathEscape(c.SearchTerm))
}

// Initialize visits the human facing search page so that the session
// cookies the search endpoint expects are set. It reports whether the page
// answered with a success status.
func (c *Client) Initialize(ctx context.Context) bool {
	ctx, span := tracer.Start(ctx, "client:Initialize")
	defer span.End()

	c.tel.ReportInfo("initializing session", c.SearchTerm)

	res, err := c.Http.R().
		SetContext(ctx).
		Get(c.searchPath())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to make warm-up request")
		c.tel.ReportBroken(
			report_client_initialize,
			fmt.Errorf("warm-up request: %w", err),
			c.SearchTerm,
		)
		return false
	}
	if !res.IsSuccess() {
		span.SetStatus(codes.Error, "unexpected status")
		c.tel.ReportBroken(
			report_client_initialize,
			fmt.Errorf("warm-up request: unexpected status %s", res.Status()),
			c.SearchTerm,
		)
		return false
	}

	c.tel.ReportInfo("session initialized", res.StatusCode())
	return true
}

// FetchPage requests `pageSize` results starting at `offset`. It never
// returns an error, failures are reported and signaled with ok = false.
func (c *Client) FetchPage(ctx context.Context, offset, pageSize int) (page Page, ok bool) {
	ctx, span := tracer.Start(ctx, "client:FetchPage")
	defer span.End()
	span.SetAttributes(
		attribute.Int("offset", offset),
		attribute.Int("page_size", pageSize),
	)

	c.tel.ReportDebug("fetching results", offset)

	res, err := c.Http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"umkreis":    "-1",
			"verwandt":   "false",
			"WAS":        c.SearchTerm,
			"position":   strconv.Itoa(offset),
			"anzahl":     strconv.Itoa(pageSize),
			"sortierung": "relevanz",
		}).
		Post("/ajaxsuche")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch page")
		c.tel.ReportBroken(
			report_client_fetch_page,
			fmt.Errorf("request: %w", err),
			offset,
		)
		return Page{}, false
	}
	if !res.IsSuccess() {
		span.SetStatus(codes.Error, "unexpected status")
		c.tel.ReportBroken(
			report_client_fetch_page,
			fmt.Errorf("unexpected status %s", res.Status()),
			offset,
		)
		return Page{}, false
	}

	return decodePage(res.Body()), true
}

// decodePage reads the search endpoint's json envelope, falling back to
// treating the whole body as markup when it isn't json.
func decodePage(body []byte) Page {
	var envelope map[string]json.RawMessage
	err := json.Unmarshal(body, &envelope)
	if err != nil {
		return Page{HTML: string(body)}
	}

	var page Page
	if raw, ok := envelope["html"]; ok {
		var html string
		if json.Unmarshal(raw, &html) == nil {
			page.HTML = html
		}
	}
	if raw, ok := envelope["anzahlTreffer"]; ok {
		var total int
		if json.Unmarshal(raw, &total) == nil {
			page.Total = total
		}
	}
	return page
}
