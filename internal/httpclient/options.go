package httpclient

import (
	"net/http"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

type options struct {
	name            string
	baseURL         string
	timeout         time.Duration
	headers         http.Header
	transport       http.RoundTripper
	maxConnsPerHost int
	meterProvider   metric.MeterProvider
	tracer          trace.Tracer
	bodyEvents      bool
}

func defaultOptions() options {
	return options{
		name:            "default",
		timeout:         10 * time.Second,
		headers:         http.Header{},
		maxConnsPerHost: 5,
	}
}

// Option configures a Client.
type Option func(*options)

// WithName labels spans and metrics with the remote service name.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithBaseURL resolves relative call paths against url.
func WithBaseURL(url string) Option {
	return func(o *options) {
		o.baseURL = url
	}
}

// WithTimeout bounds each request, including reading the body.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithHeader sets a header on every request.
func WithHeader(key, value string) Option {
	return func(o *options) {
		o.headers.Set(key, value)
	}
}

// WithTransport replaces the default pooled transport. It is still wrapped
// by otelhttp.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) {
		o.transport = rt
	}
}

func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) {
		o.meterProvider = mp
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(o *options) {
		o.tracer = t
	}
}

// WithResponseBodyEvents attaches response bodies to spans as events.
func WithResponseBodyEvents() Option {
	return func(o *options) {
		o.bodyEvents = true
	}
}
