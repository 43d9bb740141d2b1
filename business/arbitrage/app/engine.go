package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/graph-arbitrage/business/arbitrage/domain"
	exapp "github.com/fd1az/graph-arbitrage/business/exchange/app"
	exdomain "github.com/fd1az/graph-arbitrage/business/exchange/domain"
	"github.com/fd1az/graph-arbitrage/internal/apperror"
	"github.com/fd1az/graph-arbitrage/internal/logger"
)

// sizePrecision is the number of decimals kept on order sizes.
const sizePrecision = 8

// EngineConfig configures the arbitrage engine.
type EngineConfig struct {
	// Reference is the currency every path must end in.
	Reference domain.Currency
	// Threshold is the spread an opportunity must strictly exceed.
	Threshold decimal.Decimal
	// Products are the pairs the graph is built from, in insertion order.
	Products []domain.CurrencyPair
	// CancelAfter is the minimum order age before a reprice cancels it.
	// Zero cancels immediately.
	CancelAfter time.Duration
}

// DefaultEngineConfig trades back to USD above a 0.2% spread.
func DefaultEngineConfig(products ...domain.CurrencyPair) EngineConfig {
	return EngineConfig{
		Reference: "USD",
		Threshold: decimal.RequireFromString("1.002"),
		Products:  products,
	}
}

func (c EngineConfig) validate() error {
	if c.Reference == "" {
		return apperror.New(apperror.CodeConfigurationError, apperror.WithContext("reference currency is empty"))
	}
	if !c.Threshold.IsPositive() {
		return apperror.New(apperror.CodeConfigurationError, apperror.WithContext("threshold must be positive"))
	}
	if len(c.Products) == 0 {
		return apperror.New(apperror.CodeConfigurationError, apperror.WithContext("no products configured"))
	}
	if c.CancelAfter < 0 {
		return apperror.New(apperror.CodeConfigurationError, apperror.WithContext("cancel_after is negative"))
	}
	return nil
}

// Engine is the graph arbitrage strategy. Each tick it rebuilds the currency
// graph, finds the best path from the held currency back to the reference
// currency and either reconciles the open order for the held currency or
// places a new one on the path's first leg.
//
// The engine holds at most one open order per held currency.
type Engine struct {
	cfg      EngineConfig
	provider exapp.Provider
	log      logger.LoggerInterface
	tracer   trace.Tracer
	metrics  *engineMetrics
	now      func() time.Time
	newOID   func() string

	mu     sync.Mutex
	held   domain.Currency
	orders map[domain.Currency]*exdomain.Order
}

// Ensure Engine implements Strategy.
var _ Strategy = (*Engine)(nil)

// NewEngine creates an engine holding the reference currency.
func NewEngine(cfg EngineConfig, provider exapp.Provider, log logger.LoggerInterface) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	m, err := newEngineMetrics()
	if err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	return &Engine{
		cfg:      cfg,
		provider: provider,
		log:      log,
		tracer:   otel.Tracer(tracerName),
		metrics:  m,
		now:      time.Now,
		newOID:   uuid.NewString,
		held:     cfg.Reference,
		orders:   make(map[domain.Currency]*exdomain.Order),
	}, nil
}

// Name implements Strategy.
func (e *Engine) Name() string {
	return "graph-arbitrage"
}

// Held returns the currency the engine currently trades from.
func (e *Engine) Held() domain.Currency {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.held
}

// OpenOrder returns the tracked order for a currency.
func (e *Engine) OpenOrder(c domain.Currency) (exdomain.Order, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	o, ok := e.orders[c]
	if !ok {
		return exdomain.Order{}, false
	}
	return *o, true
}

// Tick implements Strategy.
func (e *Engine) Tick(ctx context.Context, data CycleData) domain.Decision {
	ctx, span := e.tracer.Start(ctx, "arbitrage.tick",
		trace.WithAttributes(attribute.String("cycle_id", data.ID)),
	)
	defer span.End()

	e.mu.Lock()
	defer e.mu.Unlock()

	e.selectHeld(data.Accounts)

	d := domain.Decision{
		CycleID:  data.ID,
		Strategy: e.Name(),
		Time:     e.now(),
		Held:     e.held,
	}

	graph, err := BuildGraph(e.cfg.Products, data.Tickers)
	if err != nil {
		d.Outcome = domain.OutcomeGraphUnavailable
		d.Reason = err.Error()
		return e.finish(ctx, span, d)
	}

	start := domain.Bid(e.held)
	path, distance := graph.FindBestPath(start, domain.Ask(e.cfg.Reference))
	d.Path = path
	d.Distance = distance

	if path.StartsAt(start) {
		d.Signal, d.Product = graph.Signal(path)
	} else if len(path) > domain.MaxPathLength {
		e.log.Error(ctx, "path_reconstruction_truncated", "held", e.held, "path", path.String())
	}

	if order, ok := e.orders[e.held]; ok {
		return e.finish(ctx, span, e.reconcile(ctx, d, *order, data))
	}
	return e.finish(ctx, span, e.place(ctx, d, data))
}

// selectHeld moves to the first funded account. With none funded the
// previous currency is kept.
func (e *Engine) selectHeld(accounts []exdomain.Account) {
	for _, a := range accounts {
		if a.Funded() {
			e.held = domain.Currency(a.Currency)
			return
		}
	}
}

func (e *Engine) reconcile(ctx context.Context, d domain.Decision, tracked exdomain.Order, data CycleData) domain.Decision {
	d.OrderID = tracked.ID

	current, err := e.provider.GetOrder(ctx, tracked.ID)
	switch {
	case apperror.HasCode(err, apperror.CodeOrderNotFound):
		delete(e.orders, e.held)
		d.Outcome = domain.OutcomeOrderCleared
		d.Reason = "order no longer exists"
		return d
	case err != nil:
		d.Outcome = domain.OutcomeOrderUnchanged
		d.Reason = err.Error()
		return d
	}

	if current.Finished() {
		delete(e.orders, e.held)
		d.Outcome = domain.OutcomeOrderCleared
		d.Reason = fmt.Sprintf("status=%s done_reason=%s settled=%t", current.Status, current.DoneReason, current.Settled)
		return d
	}

	e.orders[e.held] = &current
	d.Price = current.Price
	d.Size = current.Size

	var reason string
	switch {
	case d.Signal == domain.SignalNone:
		reason = "path no longer yields a trade"
	case current.Product != d.Product.String():
		reason = fmt.Sprintf("product changed from %s to %s", current.Product, d.Product)
	default:
		price, ok := marketPrice(d.Signal, d.Product, data)
		if !ok {
			price = current.Price
		}
		d.MarketPrice = price
		if !current.Price.Equal(price) {
			reason = fmt.Sprintf("price moved from %s to %s", current.Price, price)
		}
	}

	if reason == "" {
		d.Outcome = domain.OutcomeOrderKept
		return d
	}

	if age := current.Age(e.now()); e.cfg.CancelAfter > 0 && age < e.cfg.CancelAfter {
		d.Outcome = domain.OutcomeOrderKept
		d.Reason = reason + "; order too recent to cancel"
		return d
	}

	if err := e.provider.CancelOrder(ctx, current.ID); err != nil {
		d.Outcome = domain.OutcomeCancelFailed
		d.Reason = err.Error()
		return d
	}

	// The order stays tracked until the exchange reports it finished.
	d.Outcome = domain.OutcomeOrderCancelled
	d.Reason = reason
	return d
}

func (e *Engine) place(ctx context.Context, d domain.Decision, data CycleData) domain.Decision {
	if d.Signal == domain.SignalNone {
		d.Outcome = domain.OutcomeNoSignal
		return d
	}

	price, ok := marketPrice(d.Signal, d.Product, data)
	if !ok {
		d.Outcome = domain.OutcomeNoMarketPrice
		return d
	}
	d.MarketPrice = price
	d.Spread = domain.Quo(d.Distance, price)

	if !d.Spread.GreaterThan(e.cfg.Threshold) {
		d.Outcome = domain.OutcomeBelowThreshold
		return d
	}

	req := exdomain.OrderRequest{
		Product:   d.Product.String(),
		Price:     price,
		ClientOID: e.newOID(),
	}

	// Buys spend the quote balance; sells offer the whole base balance.
	var balance decimal.Decimal
	switch d.Signal {
	case domain.SignalBuy:
		req.Side = exdomain.SideBuy
		balance, ok = data.BalanceOf(d.Product.Quote)
		req.Size = domain.Quo(balance, price).Truncate(sizePrecision)
	case domain.SignalSell:
		req.Side = exdomain.SideSell
		balance, ok = data.BalanceOf(d.Product.Base)
		req.Size = balance.Truncate(sizePrecision)
	}
	d.Price = req.Price
	d.Size = req.Size

	if !ok || !req.Size.IsPositive() {
		d.Outcome = domain.OutcomeNoBalance
		return d
	}

	res := e.provider.SubmitOrder(ctx, req)
	switch res.Kind {
	case exdomain.SubmitAccepted:
		order := res.Order
		e.orders[e.held] = &order
		d.OrderID = order.ID
		d.Outcome = domain.OutcomeOrderPlaced
	case exdomain.SubmitRejected:
		d.Outcome = domain.OutcomeOrderRejected
		d.Reason = res.Reason
	default:
		d.Outcome = domain.OutcomeProviderFailure
		if res.Err != nil {
			d.Reason = res.Err.Error()
		}
	}
	return d
}

func (e *Engine) finish(ctx context.Context, span trace.Span, d domain.Decision) domain.Decision {
	span.SetAttributes(
		attribute.String("held", string(d.Held)),
		attribute.String("outcome", string(d.Outcome)),
		attribute.String("signal", d.Signal.String()),
	)
	if d.Outcome == domain.OutcomeProviderFailure || d.Outcome == domain.OutcomeCancelFailed {
		span.SetStatus(codes.Error, d.Reason)
	}

	e.metrics.recordDecision(ctx, &d)

	args := []any{
		"outcome", d.Outcome,
		"held", d.Held,
		"signal", d.Signal.String(),
		"distance", d.Distance.String(),
	}
	if !d.Product.IsZero() {
		args = append(args, "product", d.Product.String())
	}
	if !d.Spread.IsZero() {
		args = append(args, "spread", d.Spread.String())
	}
	if d.OrderID != "" {
		args = append(args, "order_id", d.OrderID)
	}
	if d.Reason != "" {
		args = append(args, "reason", d.Reason)
	}

	switch d.Outcome {
	case domain.OutcomeGraphUnavailable, domain.OutcomeOrderUnchanged,
		domain.OutcomeProviderFailure, domain.OutcomeCancelFailed, domain.OutcomeOrderRejected:
		e.log.Warnc(ctx, 4, "strategy cycle", args...)
	case domain.OutcomeOrderPlaced, domain.OutcomeOrderCancelled, domain.OutcomeOrderCleared:
		e.log.Infoc(ctx, 4, "strategy cycle", args...)
	default:
		e.log.Debugc(ctx, 4, "strategy cycle", args...)
	}

	return d
}

// BuildGraph builds the currency graph for products from tickers. Any
// product without a usable bid and ask aborts the build.
func BuildGraph(products []domain.CurrencyPair, tickers map[string]exdomain.Ticker) (*domain.CurrencyGraph, error) {
	g := domain.NewCurrencyGraph()
	for _, p := range products {
		t, ok := tickers[p.String()]
		if !ok {
			return nil, apperror.New(apperror.CodeGraphUnavailable,
				apperror.WithContext("no ticker for "+p.String()))
		}
		bid, ask, err := t.Quote()
		if err != nil {
			return nil, apperror.New(apperror.CodeGraphUnavailable,
				apperror.WithContext(p.String()), apperror.WithCause(err))
		}
		g.AddPair(p.Base, p.Quote, bid, ask)
	}
	return g, nil
}

// marketPrice is the bid for buys and the ask for sells.
func marketPrice(signal domain.TradeSignal, product domain.CurrencyPair, data CycleData) (decimal.Decimal, bool) {
	t, ok := data.Ticker(product)
	if !ok {
		return decimal.Zero, false
	}

	var (
		price decimal.Decimal
		err   error
	)
	switch signal {
	case domain.SignalBuy:
		price, err = t.ParseBid()
	case domain.SignalSell:
		price, err = t.ParseAsk()
	default:
		return decimal.Zero, false
	}
	if err != nil {
		return decimal.Zero, false
	}
	return price, true
}
