package telemetry

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/semconv/v1.13.0/httpconv"
	"go.opentelemetry.io/otel/trace"
)

// result pages are large html fragments, spans only keep the head.
const maxBodyAttribute = 4096

type spanCtxKeyType int

var spanCtxKey spanCtxKeyType

// InstrumentResty wraps every request made by client in a span.
func InstrumentResty(client *resty.Client, tracerName string) {
	instrumentResty(client, otel.Tracer(tracerName))
}

func instrumentResty(client *resty.Client, tracer trace.Tracer) {
	client.OnBeforeRequest(onBeforeRequest(tracer))
	client.OnAfterResponse(onAfterResponse)
	client.OnError(onError)
}

func onBeforeRequest(tracer trace.Tracer) resty.RequestMiddleware {
	return func(cli *resty.Client, req *resty.Request) error {
		ctx, span := tracer.Start(req.Context(), req.Method)
		req.SetContext(context.WithValue(ctx, spanCtxKey, span))
		return nil
	}
}

// requestSpan returns the span started by onBeforeRequest, false when an
// earlier middleware failed before it could run.
func requestSpan(req *resty.Request) (trace.Span, bool) {
	span, ok := req.Context().Value(spanCtxKey).(trace.Span)
	return span, ok
}

func headerAttributes(prefix string, headers http.Header) []attribute.KeyValue {
	var out []attribute.KeyValue
	for header, values := range headers {
		if len(values) == 1 {
			out = append(out, attribute.String(fmt.Sprintf("%s/header: %s", prefix, header), values[0]))
			continue
		}
		for i, v := range values {
			out = append(out, attribute.String(fmt.Sprintf("%s/header: %s (%d)", prefix, header, i), v))
		}
	}
	return out
}

// truncate cuts body to maxBodyAttribute bytes on a rune boundary.
func truncate(body string) string {
	if len(body) <= maxBodyAttribute {
		return body
	}
	cut := maxBodyAttribute
	for cut > 0 && !utf8.RuneStart(body[cut]) {
		cut--
	}
	return fmt.Sprintf("%s... (%d bytes)", body[:cut], len(body))
}

func requestBodyAttribute(req *http.Request) attribute.KeyValue {
	if req.GetBody == nil {
		return attribute.String("request/body", "")
	}
	reader, err := req.GetBody()
	if err != nil {
		return attribute.String("request/body", fmt.Sprintf("failed to get request body: %s", err.Error()))
	}
	if reader == nil {
		return attribute.String("request/body", "")
	}
	defer reader.Close()
	body, err := io.ReadAll(reader)
	if err != nil {
		return attribute.String("request/body", fmt.Sprintf("failed to read request body: %s", err.Error()))
	}
	return attribute.String("request/body", truncate(string(body)))
}

func onAfterResponse(_ *resty.Client, res *resty.Response) error {
	span, ok := requestSpan(res.Request)
	if !ok {
		return nil
	}
	defer span.End()

	span.SetName(fmt.Sprintf("http %s", res.Request.Method))
	span.SetAttributes(httpconv.ClientResponse(res.RawResponse)...)

	// RawRequest is still nil in onBeforeRequest
	if res.Request.RawRequest != nil {
		span.SetAttributes(httpconv.ClientRequest(res.Request.RawRequest)...)
		span.SetAttributes(requestBodyAttribute(res.Request.RawRequest))
	}
	span.SetAttributes(headerAttributes("request", res.Request.Header)...)
	span.SetAttributes(headerAttributes("response", res.Header())...)
	span.SetAttributes(attribute.String("response/body", truncate(res.String())))

	if res.IsError() {
		span.SetStatus(codes.Error, res.Status())
	}
	return nil
}

func onError(req *resty.Request, err error) {
	span, ok := requestSpan(req)
	if !ok {
		return
	}
	defer span.End()

	span.SetName(fmt.Sprintf("http %s", req.Method))
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(headerAttributes("request", req.Header)...)

	if req.RawRequest == nil {
		return
	}
	span.SetAttributes(httpconv.ClientRequest(req.RawRequest)...)
	span.SetAttributes(requestBodyAttribute(req.RawRequest))
}
