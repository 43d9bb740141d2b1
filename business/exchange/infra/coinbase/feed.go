package coinbase

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/graph-arbitrage/business/exchange/domain"
	"github.com/fd1az/graph-arbitrage/internal/apperror"
	"github.com/fd1az/graph-arbitrage/internal/logger"
	"github.com/fd1az/graph-arbitrage/internal/wsconn"
)

const (
	meterName = "coinbase"

	// Coinbase Exchange WebSocket feeds
	BaseWSURL    = "wss://ws-feed.exchange.coinbase.com"
	SandboxWSURL = "wss://ws-feed-public.sandbox.exchange.coinbase.com"
)

// FeedConfig holds configuration for the ticker feed.
type FeedConfig struct {
	URL          string
	Products     []string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type feedMetrics struct {
	messagesReceived metric.Int64Counter
	tickersReceived  metric.Int64Counter
	parseErrors      metric.Int64Counter
}

type cachedTicker struct {
	ticker   domain.Ticker
	received time.Time
}

// TickerFeed keeps the latest ticker per product from the WebSocket ticker
// channel.
type TickerFeed struct {
	config FeedConfig
	logger logger.LoggerInterface
	now    func() time.Time

	conn   *wsconn.Client
	connMu sync.RWMutex

	tickers   map[string]cachedTicker
	tickersMu sync.RWMutex

	onStatus   func(connected bool)
	handlersMu sync.RWMutex

	tracer  trace.Tracer
	metrics *feedMetrics
}

// NewTickerFeed creates a feed. It does not connect.
func NewTickerFeed(cfg FeedConfig, log logger.LoggerInterface) (*TickerFeed, error) {
	if len(cfg.Products) == 0 {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("no products configured"))
	}
	if cfg.URL == "" {
		cfg.URL = BaseWSURL
	}

	f := &TickerFeed{
		config:  cfg,
		logger:  log,
		now:     time.Now,
		tickers: make(map[string]cachedTicker),
		tracer:  otel.Tracer(tracerName),
	}
	if err := f.initMetrics(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *TickerFeed) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error
	f.metrics = &feedMetrics{}

	f.metrics.messagesReceived, err = meter.Int64Counter(
		"coinbase_feed_messages_total",
		metric.WithDescription("Total feed messages received"),
	)
	if err != nil {
		return err
	}

	f.metrics.tickersReceived, err = meter.Int64Counter(
		"coinbase_feed_tickers_total",
		metric.WithDescription("Ticker updates received"),
	)
	if err != nil {
		return err
	}

	f.metrics.parseErrors, err = meter.Int64Counter(
		"coinbase_feed_parse_errors_total",
		metric.WithDescription("Feed messages that failed to parse"),
	)
	return err
}

// OnStatus registers a handler told whenever the feed connects or drops.
func (f *TickerFeed) OnStatus(h func(connected bool)) {
	f.handlersMu.Lock()
	f.onStatus = h
	f.handlersMu.Unlock()
}

// Connect dials the feed and subscribes to the ticker channel. The
// subscription is replayed on every reconnect.
func (f *TickerFeed) Connect(ctx context.Context) error {
	ctx, span := f.tracer.Start(ctx, "coinbase.feed.connect",
		trace.WithAttributes(attribute.StringSlice("products", f.config.Products)))
	defer span.End()

	wsCfg := wsconn.DefaultConfig(f.config.URL, "coinbase")
	if f.config.ReadTimeout > 0 {
		wsCfg.ReadTimeout = f.config.ReadTimeout
	}
	if f.config.WriteTimeout > 0 {
		wsCfg.WriteTimeout = f.config.WriteTimeout
	}

	conn, err := wsconn.New(wsCfg)
	if err != nil {
		return err
	}

	conn.OnMessage(f.handleMessage)
	conn.OnStateChange(f.handleState)
	conn.OnConnect(func(ctx context.Context) error {
		return conn.SendJSON(ctx, subscribeRequest{
			Type:       msgTypeSubscribe,
			ProductIDs: f.config.Products,
			Channels:   []string{channelTicker},
		})
	})

	if err := conn.ConnectWithRetry(ctx); err != nil {
		span.RecordError(err)
		_ = conn.Close()
		return err
	}

	f.connMu.Lock()
	f.conn = conn
	f.connMu.Unlock()

	f.logger.Info(ctx, "coinbase feed connected", "url", f.config.URL, "products", f.config.Products)
	return nil
}

// Close closes the feed connection.
func (f *TickerFeed) Close() error {
	f.connMu.Lock()
	conn := f.conn
	f.conn = nil
	f.connMu.Unlock()

	if conn == nil {
		return nil
	}
	return conn.Close()
}

// IsConnected reports whether the feed is currently connected.
func (f *TickerFeed) IsConnected() bool {
	f.connMu.RLock()
	defer f.connMu.RUnlock()
	return f.conn != nil && f.conn.IsConnected()
}

// Latest returns the cached ticker for product and how old it is.
func (f *TickerFeed) Latest(product string) (domain.Ticker, time.Duration, bool) {
	f.tickersMu.RLock()
	c, ok := f.tickers[product]
	f.tickersMu.RUnlock()

	if !ok {
		return domain.Ticker{}, 0, false
	}
	return c.ticker, f.now().Sub(c.received), true
}

func (f *TickerFeed) handleMessage(ctx context.Context, data []byte) {
	f.metrics.messagesReceived.Add(ctx, 1)

	var msg feedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		f.metrics.parseErrors.Add(ctx, 1)
		f.logger.Debug(ctx, "failed to parse feed message", "error", err, "data", string(data[:min(len(data), 200)]))
		return
	}

	switch msg.Type {
	case msgTypeTicker:
		if msg.ProductID == "" {
			f.metrics.parseErrors.Add(ctx, 1)
			return
		}
		f.tickersMu.Lock()
		f.tickers[msg.ProductID] = cachedTicker{ticker: msg.ticker(), received: f.now()}
		f.tickersMu.Unlock()
		f.metrics.tickersReceived.Add(ctx, 1, metric.WithAttributes(attribute.String("product", msg.ProductID)))

	case msgTypeSubscriptions:
		f.logger.Debug(ctx, "feed subscription confirmed")

	case msgTypeError:
		f.logger.Warn(ctx, "feed error", "message", msg.Message, "reason", msg.Reason)

	case msgTypeHeartbeat:
	default:
		f.logger.Debug(ctx, "unhandled feed message", "type", msg.Type)
	}
}

func (f *TickerFeed) handleState(state wsconn.State, err error) {
	ctx := context.Background()
	if err != nil {
		f.logger.Warn(ctx, "coinbase feed state changed", "state", string(state), "error", err)
	} else {
		f.logger.Debug(ctx, "coinbase feed state changed", "state", string(state))
	}

	f.handlersMu.RLock()
	h := f.onStatus
	f.handlersMu.RUnlock()
	if h != nil {
		h(state == wsconn.StateConnected)
	}
}
