package coinbase

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/graph-arbitrage/business/exchange/app"
	"github.com/fd1az/graph-arbitrage/business/exchange/domain"
	"github.com/fd1az/graph-arbitrage/internal/logger"
)

// Ensure Provider implements the exchange ports.
var (
	_ app.Provider  = (*Provider)(nil)
	_ app.Connector = (*Provider)(nil)
)

// ProviderConfig holds configuration for the Coinbase provider.
type ProviderConfig struct {
	HTTP         HTTPClientConfig
	WebSocketURL string
	Products     []string
	// UseWebSocket serves tickers from the feed while they are fresh.
	UseWebSocket bool
	StaleTimeout time.Duration
}

// DefaultProviderConfig returns sensible defaults.
func DefaultProviderConfig(creds Credentials, products []string) ProviderConfig {
	return ProviderConfig{
		HTTP:         DefaultHTTPClientConfig(creds),
		WebSocketURL: BaseWSURL,
		Products:     products,
		UseWebSocket: true,
		StaleTimeout: 5 * time.Second,
	}
}

// Provider serves tickers from the WebSocket feed while they are fresh and
// falls back to REST otherwise. Every other call goes to REST.
type Provider struct {
	*HTTPClient

	config ProviderConfig
	feed   *TickerFeed
	logger logger.LoggerInterface
	tracer trace.Tracer
}

// NewProvider creates the provider.
func NewProvider(cfg ProviderConfig, log logger.LoggerInterface) (*Provider, error) {
	httpClient, err := NewHTTPClient(cfg.HTTP, log)
	if err != nil {
		return nil, err
	}

	p := &Provider{
		HTTPClient: httpClient,
		config:     cfg,
		logger:     log,
		tracer:     otel.Tracer(tracerName),
	}

	if cfg.UseWebSocket {
		p.feed, err = NewTickerFeed(FeedConfig{URL: cfg.WebSocketURL, Products: cfg.Products}, log)
		if err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Feed returns the ticker feed, nil when streaming is disabled.
func (p *Provider) Feed() *TickerFeed {
	return p.feed
}

// OnFeedStatus registers a handler told whenever the feed connects or
// drops, and once right away with the current state. It does nothing when
// streaming is disabled.
func (p *Provider) OnFeedStatus(h func(connected bool)) {
	if p.feed == nil {
		return
	}
	p.feed.OnStatus(h)
	h(p.feed.IsConnected())
}

// Connect starts the ticker feed. A failure is logged and tickers keep
// coming from REST.
func (p *Provider) Connect(ctx context.Context) error {
	if p.feed == nil {
		return nil
	}
	if err := p.feed.Connect(ctx); err != nil {
		p.logger.Warn(ctx, "coinbase feed unavailable, using REST tickers", "error", err)
	}
	return nil
}

// Close stops the ticker feed.
func (p *Provider) Close() error {
	if p.feed == nil {
		return nil
	}
	return p.feed.Close()
}

// GetTicker returns the feed's ticker when it is fresh and has both sides,
// otherwise the REST ticker.
func (p *Provider) GetTicker(ctx context.Context, product string) (domain.Ticker, error) {
	ctx, span := p.tracer.Start(ctx, "coinbase.get_ticker",
		trace.WithAttributes(attribute.String("product", product)))
	defer span.End()

	if p.feed != nil {
		t, age, ok := p.feed.Latest(product)
		if ok && age <= p.config.StaleTimeout && t.Bid != "" && t.Ask != "" {
			span.SetAttributes(attribute.String("source", "websocket"))
			return t, nil
		}
		span.SetAttributes(attribute.Bool("stale", ok))
		p.logger.Debug(ctx, "feed ticker stale or missing, using HTTP fallback", "product", product)
	}

	span.SetAttributes(attribute.String("source", "http"))
	return p.HTTPClient.GetTicker(ctx, product)
}
