// Package httpclient is a JSON-over-HTTP client with otel tracing and a
// request counter.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptrace"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/httptrace/otelhttptrace"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	instrumentationName = "github.com/fd1az/graph-arbitrage/internal/httpclient"

	metricRequestCounter = "http_client_requests_total"
)

// Signer adds authentication headers once the final URL and encoded body
// are known.
type Signer func(req *http.Request, body []byte) error

// StatusCheck maps a response to an error. Returning nil accepts it.
type StatusCheck func(status int, body []byte) error

// Call describes one request.
type Call struct {
	Method string
	Path   string
	Query  url.Values
	// Body is JSON encoded unless it is already []byte.
	Body any
	// Result receives the decoded JSON body when the call succeeds.
	Result any
	Sign   Signer
	Check  StatusCheck
	// Endpoint labels the request counter. Defaults to Method.
	Endpoint string
}

// Response is a fully read response.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Client sends Calls relative to a base URL.
type Client struct {
	hc         *http.Client
	name       string
	baseURL    string
	headers    http.Header
	tracer     trace.Tracer
	requests   metric.Int64Counter
	bodyEvents bool
}

// New builds a client. The transport is wrapped with otelhttp so each
// request carries trace context and client trace events.
func New(opts ...Option) (*Client, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	transport := o.transport
	if transport == nil {
		transport = &http.Transport{
			DialContext:           (&net.Dialer{KeepAlive: 10 * time.Second}).DialContext,
			MaxConnsPerHost:       o.maxConnsPerHost,
			IdleConnTimeout:       2 * time.Minute,
			ExpectContinueTimeout: 100 * time.Millisecond,
		}
	}

	meterProvider := o.meterProvider
	if meterProvider == nil {
		meterProvider = otel.GetMeterProvider()
	}
	requests, err := meterProvider.Meter(instrumentationName).Int64Counter(
		metricRequestCounter,
		metric.WithDescription("Total number of HTTP requests"),
	)
	if err != nil {
		return nil, fmt.Errorf("create request counter: %w", err)
	}

	tracer := o.tracer
	if tracer == nil {
		tracer = otel.Tracer(instrumentationName)
	}

	return &Client{
		hc: &http.Client{
			Timeout: o.timeout,
			Transport: otelhttp.NewTransport(transport,
				otelhttp.WithClientTrace(func(ctx context.Context) *httptrace.ClientTrace {
					return otelhttptrace.NewClientTrace(ctx)
				}),
			),
		},
		name:       o.name,
		baseURL:    strings.TrimSuffix(o.baseURL, "/"),
		headers:    o.headers,
		tracer:     tracer,
		requests:   requests,
		bodyEvents: o.bodyEvents,
	}, nil
}

// Do sends call. A non-nil Response comes back whenever the server
// answered, including when Check rejects it.
func (c *Client) Do(ctx context.Context, call Call) (*Response, error) {
	target := c.url(call.Path, call.Query)

	ctx, span := c.tracer.Start(ctx, "http.request",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", call.Method),
			attribute.String("http.url", target),
			attribute.String("provider", c.name),
		))
	defer span.End()

	resp, err := c.send(ctx, span, target, call)
	c.count(ctx, call, err == nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if errors.Is(err, context.DeadlineExceeded) {
			span.SetAttributes(attribute.Bool("request.timeout", true))
		}
	}
	return resp, err
}

func (c *Client) send(ctx context.Context, span trace.Span, target string, call Call) (*Response, error) {
	body, err := encode(call.Body)
	if err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, call.Method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, v := range c.headers {
		req.Header[k] = v
	}
	if body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if call.Sign != nil {
		if err := call.Sign(req, body); err != nil {
			return nil, fmt.Errorf("sign request: %w", err)
		}
	}

	httpResp, err := c.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	span.SetAttributes(attribute.Int("http.status_code", httpResp.StatusCode))
	if c.bodyEvents {
		span.AddEvent("response.body", trace.WithAttributes(attribute.String("http.response_body", string(data))))
	}

	resp := &Response{Status: httpResp.StatusCode, Header: httpResp.Header, Body: data}

	if call.Check != nil {
		if err := call.Check(resp.Status, data); err != nil {
			return resp, err
		}
	} else if resp.Status >= http.StatusBadRequest {
		return resp, fmt.Errorf("%s %s: HTTP %d", call.Method, call.Path, resp.Status)
	}

	if call.Result != nil && len(data) > 0 {
		if err := json.Unmarshal(data, call.Result); err != nil {
			return resp, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp, nil
}

func (c *Client) url(path string, query url.Values) string {
	target := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		target = c.baseURL + "/" + strings.TrimPrefix(path, "/")
	}
	if len(query) > 0 {
		// Encode sorts by key, which keeps signatures reproducible.
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		target += sep + query.Encode()
	}
	return target
}

func (c *Client) count(ctx context.Context, call Call, ok bool) {
	endpoint := call.Endpoint
	if endpoint == "" {
		endpoint = call.Method
	}
	c.requests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", c.name),
		attribute.String("endpoint", endpoint),
		attribute.Bool("success", ok),
	))
}

func encode(body any) ([]byte, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return b, nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("encode body: %w", err)
		}
		return data, nil
	}
}
