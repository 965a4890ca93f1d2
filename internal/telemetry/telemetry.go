// Package telemetry emits one OpenTelemetry client span per executed request.
package telemetry

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/luminahq/lumina/internal/model"
)

const tracerName = "github.com/luminahq/lumina/internal/telemetry"

const (
	attrRequestName = attribute.Key("lumina.request.name")
	attrRequestID   = attribute.Key("lumina.request.id")
	attrBodyKind    = attribute.Key("lumina.request.body_kind")
	attrAuthKind    = attribute.Key("lumina.request.auth_kind")
	attrProjectID   = attribute.Key("lumina.project.id")
	attrRespSize    = attribute.Key("lumina.response.size")
	attrRespElapsed = attribute.Key("lumina.response.elapsed_ms")
	attrHTTPHost    = attribute.Key("http.host")
)

type Instrumenter interface {
	Start(ctx context.Context, info RequestStart) (context.Context, RequestSpan)
	Shutdown(ctx context.Context) error
}

// RequestStart describes an outgoing call. Request is the resolved copy,
// HTTPRequest the wire request built from it.
type RequestStart struct {
	Request     *model.Request
	HTTPRequest *http.Request
	ProjectID   string
}

type RequestResult struct {
	Err        error
	StatusCode int
	Size       int
	Elapsed    time.Duration
}

type RequestSpan interface {
	End(result RequestResult)
}

type setup struct {
	exporter   sdktrace.SpanExporter
	processors []sdktrace.SpanProcessor
}

type Option func(*setup)

// WithSpanProcessor adds a processor, typically a recorder in tests.
func WithSpanProcessor(proc sdktrace.SpanProcessor) Option {
	return func(s *setup) {
		if proc != nil {
			s.processors = append(s.processors, proc)
		}
	}
}

// WithExporter replaces the OTLP exporter built from Config.
func WithExporter(exp sdktrace.SpanExporter) Option {
	return func(s *setup) {
		if exp != nil {
			s.exporter = exp
		}
	}
}

type otelInstrumenter struct {
	tp     *sdktrace.TracerProvider
	tracer trace.Tracer

	once    sync.Once
	stopErr error
}

// New returns the no-op instrumenter unless an endpoint, exporter or span
// processor is configured.
func New(cfg Config, opts ...Option) (Instrumenter, error) {
	var s setup
	for _, opt := range opts {
		opt(&s)
	}
	if !cfg.Enabled() && s.exporter == nil && len(s.processors) == 0 {
		return Noop(), nil
	}

	res, err := newResource(cfg)
	if err != nil {
		return nil, err
	}
	if s.exporter == nil && cfg.Enabled() {
		if s.exporter, err = dialExporter(cfg); err != nil {
			return nil, err
		}
	}

	tpOpts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	if s.exporter != nil {
		tpOpts = append(tpOpts, sdktrace.WithBatcher(s.exporter))
	}
	for _, proc := range s.processors {
		tpOpts = append(tpOpts, sdktrace.WithSpanProcessor(proc))
	}
	tp := sdktrace.NewTracerProvider(tpOpts...)
	return &otelInstrumenter{tp: tp, tracer: tp.Tracer(tracerName)}, nil
}

func (o *otelInstrumenter) Start(ctx context.Context, info RequestStart) (context.Context, RequestSpan) {
	if info.HTTPRequest == nil {
		return ctx, noopSpan{}
	}
	ctx, span := o.tracer.Start(ctx, spanName(info),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(startAttributes(info)...),
	)
	return ctx, clientSpan{span: span}
}

// Shutdown flushes pending spans once; later calls return the first result.
func (o *otelInstrumenter) Shutdown(ctx context.Context) error {
	o.once.Do(func() {
		o.stopErr = o.tp.Shutdown(ctx)
	})
	return o.stopErr
}

type clientSpan struct {
	span trace.Span
}

func (c clientSpan) End(result RequestResult) {
	c.span.SetAttributes(resultAttributes(result)...)
	code, desc := resultStatus(result)
	if result.Err != nil {
		c.span.RecordError(result.Err)
	}
	c.span.SetStatus(code, desc)
	c.span.End()
}

func resultAttributes(result RequestResult) []attribute.KeyValue {
	var attrs []attribute.KeyValue
	if result.StatusCode > 0 {
		attrs = append(attrs, semconv.HTTPStatusCodeKey.Int(result.StatusCode))
	}
	if result.Size > 0 {
		attrs = append(attrs, attrRespSize.Int(result.Size))
	}
	if result.Elapsed > 0 {
		attrs = append(attrs, attrRespElapsed.Int64(result.Elapsed.Milliseconds()))
	}
	return attrs
}

// resultStatus marks transport failures and 4xx/5xx answers as errors.
func resultStatus(result RequestResult) (codes.Code, string) {
	switch {
	case result.Err != nil:
		return codes.Error, result.Err.Error()
	case result.StatusCode >= 400:
		return codes.Error, fmt.Sprintf("HTTP %d", result.StatusCode)
	default:
		return codes.Ok, "OK"
	}
}

func startAttributes(info RequestStart) []attribute.KeyValue {
	req := info.HTTPRequest
	attrs := make([]attribute.KeyValue, 0, 10)
	if req.Method != "" {
		attrs = append(attrs, semconv.HTTPMethodKey.String(req.Method))
	}
	if u := req.URL; u != nil {
		if u.Scheme != "" {
			attrs = append(attrs, semconv.HTTPSchemeKey.String(u.Scheme))
		}
		if u.Host != "" {
			attrs = append(attrs, attrHTTPHost.String(u.Host))
		}
		if target := u.RequestURI(); target != "" {
			attrs = append(attrs, semconv.HTTPTargetKey.String(target))
		}
	}
	if r := info.Request; r != nil {
		if name := strings.TrimSpace(r.Name); name != "" {
			attrs = append(attrs, attrRequestName.String(name))
		}
		if r.ID != "" {
			attrs = append(attrs, attrRequestID.String(r.ID))
		}
		attrs = append(attrs,
			attrBodyKind.String(string(r.BodyKind())),
			attrAuthKind.String(string(r.AuthKind())),
		)
	}
	if info.ProjectID != "" {
		attrs = append(attrs, attrProjectID.String(info.ProjectID))
	}
	return attrs
}

// spanName is the request name, else "METHOD host".
func spanName(info RequestStart) string {
	if r := info.Request; r != nil && strings.TrimSpace(r.Name) != "" {
		return strings.TrimSpace(r.Name)
	}
	req := info.HTTPRequest
	switch {
	case req.Method == "":
		return "http.request"
	case req.URL != nil && req.URL.Host != "":
		return req.Method + " " + req.URL.Host
	default:
		return req.Method
	}
}

func Noop() Instrumenter {
	return noopInstrumenter{}
}

type noopInstrumenter struct{}

type noopSpan struct{}

func (noopInstrumenter) Start(ctx context.Context, _ RequestStart) (context.Context, RequestSpan) {
	return ctx, noopSpan{}
}

func (noopInstrumenter) Shutdown(context.Context) error { return nil }

func (noopSpan) End(RequestResult) {}
