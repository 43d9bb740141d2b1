package coinbase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/graph-arbitrage/business/exchange/domain"
	"github.com/fd1az/graph-arbitrage/internal/apperror"
	"github.com/fd1az/graph-arbitrage/internal/circuitbreaker"
	"github.com/fd1az/graph-arbitrage/internal/httpclient"
	"github.com/fd1az/graph-arbitrage/internal/logger"
	"github.com/fd1az/graph-arbitrage/internal/ratelimit"
	"github.com/fd1az/graph-arbitrage/internal/retry"
)

const (
	tracerName = "coinbase"

	// Coinbase Exchange REST endpoints
	BaseAPIURL    = "https://api.exchange.coinbase.com"
	SandboxAPIURL = "https://api-public.sandbox.exchange.coinbase.com"

	accountsEndpoint = "/accounts"
	ordersEndpoint   = "/orders"

	httpTimeout = 10 * time.Second
)

// HTTPClientConfig holds configuration for the REST client.
type HTTPClientConfig struct {
	BaseURL           string
	Credentials       Credentials
	RequestsPerSecond float64
	MaxRetries        uint
	RetryDelay        time.Duration
	Timeout           time.Duration
	PostOnly          bool
}

// DefaultHTTPClientConfig paces calls at the exchange's public limit of
// three requests per second.
func DefaultHTTPClientConfig(creds Credentials) HTTPClientConfig {
	return HTTPClientConfig{
		BaseURL:           BaseAPIURL,
		Credentials:       creds,
		RequestsPerSecond: 3,
		MaxRetries:        5,
		RetryDelay:        500 * time.Millisecond,
		Timeout:           httpTimeout,
	}
}

// HTTPClient is the authenticated REST client. It implements every Provider
// operation; tickers may be served by the feed instead, see Provider.
type HTTPClient struct {
	client  *httpclient.Client
	config  HTTPClientConfig
	signer  httpclient.Signer
	limiter *ratelimit.Limiter
	breaker *circuitbreaker.CircuitBreaker[*httpclient.Response]
	policy  retry.Policy
	logger  logger.LoggerInterface
	tracer  trace.Tracer
}

// NewHTTPClient creates the REST client.
func NewHTTPClient(cfg HTTPClientConfig, log logger.LoggerInterface) (*HTTPClient, error) {
	if !cfg.Credentials.Valid() {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("coinbase key, secret and passphrase are required"))
	}
	signer, err := newSigner(cfg.Credentials, time.Now)
	if err != nil {
		return nil, err
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = BaseAPIURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = httpTimeout
	}

	tracer := otel.Tracer(tracerName)

	client, err := httpclient.New(
		httpclient.WithName("coinbase"),
		httpclient.WithBaseURL(cfg.BaseURL),
		httpclient.WithTimeout(cfg.Timeout),
		httpclient.WithTracer(tracer),
		httpclient.WithResponseBodyEvents(),
		httpclient.WithHeader("Accept", "application/json"),
		httpclient.WithHeader("User-Agent", "graph-arbitrage"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	limiter := ratelimit.Unlimited()
	if cfg.RequestsPerSecond > 0 {
		limiter = ratelimit.New(cfg.RequestsPerSecond)
	}

	c := &HTTPClient{
		client:  client,
		config:  cfg,
		signer:  signer,
		limiter: limiter,
		policy:  retry.Policy{MaxAttempts: cfg.MaxRetries, Delay: cfg.RetryDelay},
		logger:  log,
		tracer:  tracer,
	}

	cbCfg := circuitbreaker.DefaultConfig("coinbase-rest")
	cbCfg.IsSuccessful = func(err error) bool { return err == nil || !apperror.IsTransient(err) }
	cbCfg.OnStateChange = func(name string, from, to gobreaker.State) {
		log.Warn(context.Background(), "circuit breaker state changed",
			"breaker", name, "from", from.String(), "to", to.String())
	}
	c.breaker = circuitbreaker.New[*httpclient.Response](cbCfg)

	return c, nil
}

// GetAccounts lists the trading accounts.
func (c *HTTPClient) GetAccounts(ctx context.Context) ([]domain.Account, error) {
	ctx, span := c.tracer.Start(ctx, "coinbase.http.get_accounts")
	defer span.End()

	var result []accountResponse
	if _, err := c.do(ctx, http.MethodGet, accountsEndpoint, nil, &result, true, accountCodes); err != nil {
		recordSpanError(span, err)
		return nil, err
	}

	accounts := make([]domain.Account, len(result))
	for i, a := range result {
		accounts[i] = a.toDomain()
	}
	span.SetAttributes(attribute.Int("accounts", len(accounts)))
	return accounts, nil
}

// GetTicker returns the top of book for product.
func (c *HTTPClient) GetTicker(ctx context.Context, product string) (domain.Ticker, error) {
	ctx, span := c.tracer.Start(ctx, "coinbase.http.get_ticker",
		trace.WithAttributes(attribute.String("product", product)))
	defer span.End()

	var result tickerResponse
	path := "/products/" + url.PathEscape(product) + "/ticker"
	if _, err := c.do(ctx, http.MethodGet, path, nil, &result, true, tickerCodes); err != nil {
		recordSpanError(span, err)
		return domain.Ticker{}, err
	}

	c.logger.Debug(ctx, "fetched ticker via HTTP", "product", product, "bid", result.Bid, "ask", result.Ask)
	return result.toDomain(product), nil
}

// GetOrder returns the exchange's view of an order. An unknown or malformed
// order id is CodeOrderNotFound.
func (c *HTTPClient) GetOrder(ctx context.Context, id string) (domain.Order, error) {
	ctx, span := c.tracer.Start(ctx, "coinbase.http.get_order",
		trace.WithAttributes(attribute.String("order_id", id)))
	defer span.End()

	var result orderResponse
	path := ordersEndpoint + "/" + url.PathEscape(id)
	if _, err := c.do(ctx, http.MethodGet, path, nil, &result, true, orderCodes); err != nil {
		recordSpanError(span, err)
		return domain.Order{}, err
	}
	if result.ID == "" && result.Message != "" {
		return domain.Order{}, apperror.New(apperror.CodeOrderNotFound,
			apperror.WithContext(id+": "+result.Message))
	}

	span.SetAttributes(attribute.String("status", result.Status))
	return result.toDomain(), nil
}

// CancelOrder requests cancellation. Cancelling an order the exchange no
// longer knows is CodeOrderNotFound.
func (c *HTTPClient) CancelOrder(ctx context.Context, id string) error {
	ctx, span := c.tracer.Start(ctx, "coinbase.http.cancel_order",
		trace.WithAttributes(attribute.String("order_id", id)))
	defer span.End()

	path := ordersEndpoint + "/" + url.PathEscape(id)
	if _, err := c.do(ctx, http.MethodDelete, path, nil, nil, true, orderCodes); err != nil {
		recordSpanError(span, err)
		return err
	}

	c.logger.Info(ctx, "order cancel requested", "order_id", id)
	return nil
}

// SubmitOrder places a limit order. It is attempted once: a retried POST
// could place the order twice.
func (c *HTTPClient) SubmitOrder(ctx context.Context, req domain.OrderRequest) domain.SubmitResult {
	ctx, span := c.tracer.Start(ctx, "coinbase.http.submit_order",
		trace.WithAttributes(
			attribute.String("product", req.Product),
			attribute.String("side", string(req.Side)),
			attribute.String("price", req.Price.String()),
			attribute.String("size", req.Size.String()),
		))
	defer span.End()

	var result orderResponse
	body := newOrderRequest(req, c.config.PostOnly)
	_, err := c.do(ctx, http.MethodPost, ordersEndpoint, body, &result, false, submitCodes)

	switch {
	case apperror.HasCode(err, apperror.CodeOrderRejected):
		span.SetAttributes(attribute.String("outcome", "rejected"))
		return domain.Rejected(rejectionReason(err))
	case err != nil:
		recordSpanError(span, err)
		return domain.Failed(err)
	case result.ID == "":
		// A 2xx without an id is the exchange refusing the order in-band.
		return domain.Rejected(result.Message)
	}

	order := result.toDomain()
	if order.Status == domain.StatusRejected {
		return domain.Rejected(order.DoneReason)
	}

	span.SetAttributes(attribute.String("order_id", order.ID))
	c.logger.Info(ctx, "order submitted",
		"order_id", order.ID,
		"client_oid", req.ClientOID,
		"product", req.Product,
		"side", req.Side,
		"price", req.Price.String(),
		"size", req.Size.String())
	return domain.Accepted(order)
}

// statusCodes are the endpoint-specific codes for 404 and 400 responses.
type statusCodes struct {
	notFound   apperror.Code
	badRequest apperror.Code
}

var (
	accountCodes = statusCodes{notFound: apperror.CodeNotFound, badRequest: apperror.CodeInvalidInput}
	tickerCodes  = statusCodes{notFound: apperror.CodeInvalidProduct, badRequest: apperror.CodeInvalidProduct}
	// The exchange answers 400 "Invalid order id" for ids it cannot parse.
	orderCodes  = statusCodes{notFound: apperror.CodeOrderNotFound, badRequest: apperror.CodeOrderNotFound}
	submitCodes = statusCodes{notFound: apperror.CodeNotFound, badRequest: apperror.CodeOrderRejected}
)

// do runs one request under the rate limiter and circuit breaker, retrying
// transient failures when retryable is set.
func (c *HTTPClient) do(ctx context.Context, method, path string, body, result any, retryable bool, sc statusCodes) (*httpclient.Response, error) {
	policy := c.policy
	if !retryable {
		policy.MaxAttempts = 1
	}
	policy.OnRetry = func(err error, wait time.Duration) {
		c.logger.Warn(ctx, "retrying exchange request", "method", method, "path", path, "wait", wait.String(), "error", err)
	}

	return retry.Do(ctx, policy, func(ctx context.Context) (*httpclient.Response, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		return c.breaker.Execute(func() (*httpclient.Response, error) {
			resp, err := c.client.Do(ctx, httpclient.Call{
				Method:   method,
				Path:     path,
				Body:     body,
				Result:   result,
				Sign:     c.signer,
				Check:    statusCheck(sc),
				Endpoint: method + " " + endpointLabel(path),
			})
			if err != nil && !apperror.IsAppError(err) {
				return resp, apperror.New(apperror.CodeExchangeUnavailable,
					apperror.WithContext(method+" "+path), apperror.WithCause(err))
			}
			return resp, err
		})
	})
}

// statusCheck maps HTTP failures to application errors.
func statusCheck(sc statusCodes) httpclient.StatusCheck {
	return func(status int, body []byte) error {
		if status < http.StatusBadRequest {
			return nil
		}

		msg := http.StatusText(status)
		var er errorResponse
		if json.Unmarshal(body, &er) == nil && er.Message != "" {
			msg = er.Message
		}

		switch {
		case status == http.StatusNotFound:
			return apperror.New(sc.notFound, apperror.WithContext(msg))
		case status == http.StatusBadRequest:
			return apperror.New(sc.badRequest, apperror.WithMessage(msg))
		case status == http.StatusUnauthorized || status == http.StatusForbidden:
			return apperror.New(apperror.CodeUnauthorized, apperror.WithContext(msg))
		case status == http.StatusTooManyRequests:
			return apperror.New(apperror.CodeRateLimitExceeded, apperror.WithContext(msg))
		}
		return apperror.New(apperror.CodeExchangeAPIError,
			apperror.WithHTTPStatus(status),
			apperror.WithContext(fmt.Sprintf("HTTP %d: %s", status, msg)))
	}
}

func rejectionReason(err error) string {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

func endpointLabel(path string) string {
	switch {
	case path == accountsEndpoint:
		return "accounts"
	case path == ordersEndpoint:
		return "orders"
	case strings.HasPrefix(path, ordersEndpoint+"/"):
		return "order"
	}
	return "ticker"
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
