package telemetry

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	report_resty_request  = "resty.request"
	report_resty_response = "resty.response"
)

// MessageOutput receives the full text of an http exchange, keyed by request id.
type MessageOutput interface {
	Write(id string, contents string)
}

// exchangeLog numbers each request and reports it once it completes.
type exchangeLog struct {
	tel    API
	output MessageOutput
	seq    atomic.Uint64
}

type exchangeKeyType int

var exchangeKey exchangeKeyType

type exchange struct {
	seq     uint64
	started time.Time
}

// InstrumentResty reports every request made through client to tel.
// output may be nil, then the full exchanges are not kept.
func InstrumentResty(client *resty.Client, tel API, output MessageOutput) {
	log := &exchangeLog{tel: tel, output: output}
	client.OnBeforeRequest(log.begin)
	client.OnAfterResponse(log.complete)
	client.OnError(log.fail)
}

func (l *exchangeLog) begin(_ *resty.Client, req *resty.Request) error {
	ex := exchange{seq: l.seq.Add(1), started: time.Now()}
	l.tel.ReportDebug(report_resty_request, ex.seq, req.Method, req.URL)
	req.SetContext(context.WithValue(req.Context(), exchangeKey, ex))
	return nil
}

func exchangeOf(req *resty.Request) (exchange, bool) {
	ex, ok := req.Context().Value(exchangeKey).(exchange)
	return ex, ok
}

func (l *exchangeLog) complete(_ *resty.Client, res *resty.Response) error {
	ex, ok := exchangeOf(res.Request)
	if !ok {
		return nil
	}
	l.tel.ReportDebug(report_resty_response, ex.seq, time.Since(ex.started).String(), res.Status())
	if l.output != nil {
		l.output.Write(strconv.FormatUint(ex.seq, 10), dumpExchange(res))
	}
	return nil
}

func (l *exchangeLog) fail(req *resty.Request, err error) {
	ex, ok := exchangeOf(req)
	if !ok {
		// an earlier middleware (the rate limiter) rejected the request
		l.tel.ReportBroken(report_resty_response, err, req.Method, req.URL)
		return
	}
	l.tel.ReportBroken(report_resty_response, err, req.Method, req.URL, time.Since(ex.started))
}

// dumpExchange renders a request and its response as plain text with
// headers in sorted order.
func dumpExchange(res *resty.Response) string {
	var b strings.Builder

	b.WriteString("---- REQUEST ----\n\n")
	fmt.Fprintf(&b, "%s %s\n\n", res.Request.Method, res.Request.URL)
	if raw := res.Request.RawRequest; raw != nil {
		writeHeaders(&b, raw.Header)
		writeRequestBody(&b, raw)
	}

	b.WriteString("\n---- RESPONSE ----\n\n")
	fmt.Fprintf(&b, "%d %s\n\n", res.StatusCode(), res.Request.URL)
	writeHeaders(&b, res.Header())
	b.WriteString(res.String())

	return b.String()
}

func writeHeaders(b *strings.Builder, headers http.Header) {
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		for _, v := range headers[k] {
			fmt.Fprintf(b, "%s: %s\n", k, v)
		}
	}
	b.WriteString("\n")
}

func writeRequestBody(b *strings.Builder, req *http.Request) {
	if req.GetBody == nil {
		b.WriteString("<no body>\n")
		return
	}
	body, err := req.GetBody()
	if err != nil {
		fmt.Fprintf(b, "failed to get request body: %s\n", err)
		return
	}
	if body == nil {
		b.WriteString("<no body>\n")
		return
	}
	defer body.Close()
	data, err := io.ReadAll(body)
	if err != nil {
		fmt.Fprintf(b, "failed to read request body: %s\n", err)
		return
	}
	b.Write(data)
	b.WriteString("\n")
}
