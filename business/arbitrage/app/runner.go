package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/fd1az/graph-arbitrage/business/arbitrage/domain"
	exapp "github.com/fd1az/graph-arbitrage/business/exchange/app"
	exdomain "github.com/fd1az/graph-arbitrage/business/exchange/domain"
	"github.com/fd1az/graph-arbitrage/internal/apperror"
	"github.com/fd1az/graph-arbitrage/internal/id"
	"github.com/fd1az/graph-arbitrage/internal/logger"
)

// staleCycles is how many intervals may pass without a completed cycle
// before the runner reports itself unhealthy.
const staleCycles = 10

// RunnerConfig holds configuration for the trading loop.
type RunnerConfig struct {
	Products []domain.CurrencyPair
	Interval time.Duration
}

// RunnerOption configures optional runner collaborators.
type RunnerOption func(*Runner)

// WithStrategies sets the strategies ticked every cycle, in order.
func WithStrategies(s ...Strategy) RunnerOption {
	return func(r *Runner) { r.strategies = append(r.strategies, s...) }
}

// WithReporter sets where cycles are presented.
func WithReporter(rep Reporter) RunnerOption {
	return func(r *Runner) { r.reporter = rep }
}

// WithJournal sets where order-touching decisions are persisted.
func WithJournal(j Journal) RunnerOption {
	return func(r *Runner) { r.journal = j }
}

// Runner drives the trading loop: every interval it fetches accounts and
// tickers once and hands the snapshot to each strategy.
type Runner struct {
	cfg        RunnerConfig
	provider   exapp.Provider
	strategies []Strategy
	reporter   Reporter
	journal    Journal
	log        logger.LoggerInterface
	tracer     trace.Tracer
	metrics    *engineMetrics

	started   atomic.Int64
	lastCycle atomic.Int64

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewRunner creates a runner over provider.
func NewRunner(cfg RunnerConfig, provider exapp.Provider, log logger.LoggerInterface, opts ...RunnerOption) (*Runner, error) {
	if cfg.Interval <= 0 {
		return nil, apperror.New(apperror.CodeConfigurationError, apperror.WithContext("interval must be positive"))
	}
	if len(cfg.Products) == 0 {
		return nil, apperror.New(apperror.CodeConfigurationError, apperror.WithContext("no products configured"))
	}

	m, err := newEngineMetrics()
	if err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	r := &Runner{
		cfg:      cfg,
		provider: provider,
		log:      log,
		tracer:   otel.Tracer(tracerName),
		metrics:  m,
	}
	for _, opt := range opts {
		opt(r)
	}
	if len(r.strategies) == 0 {
		return nil, apperror.New(apperror.CodeConfigurationError, apperror.WithContext("no strategies configured"))
	}
	return r, nil
}

// Start launches the loop in the background.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancel != nil {
		return apperror.New(apperror.CodeInvalidState, apperror.WithContext("runner already started"))
	}

	if r.reporter != nil {
		if err := r.reporter.Start(ctx); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})

	go func() {
		defer close(r.done)
		r.loop(ctx)
	}()

	return nil
}

// Run executes the loop until ctx is done.
func (r *Runner) Run(ctx context.Context) error {
	if err := r.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return r.Stop()
}

// Stop waits for the current cycle to finish and stops the reporter.
func (r *Runner) Stop() error {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel = nil
	r.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done

	r.log.Info(context.Background(), "trading loop stopped")
	if r.reporter != nil {
		return r.reporter.Stop()
	}
	return nil
}

func (r *Runner) loop(ctx context.Context) {
	r.started.Store(time.Now().UnixNano())
	r.log.Info(ctx, "trading loop started",
		"interval", r.cfg.Interval.String(),
		"products", len(r.cfg.Products),
		"strategies", len(r.strategies),
	)

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		// Errors are already reported; the loop carries on regardless.
		_, _ = r.RunCycle(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunCycle runs one cycle and returns every strategy's decision. A failure
// to fetch market data skips the cycle without ticking any strategy.
func (r *Runner) RunCycle(ctx context.Context) ([]domain.Decision, error) {
	cycleID := id.New()
	start := time.Now()

	ctx, span := r.tracer.Start(ctx, "arbitrage.cycle",
		trace.WithAttributes(attribute.String("cycle_id", cycleID)),
	)
	defer span.End()

	data, err := r.fetch(ctx, cycleID)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "market data unavailable")
		r.metrics.skipped.Add(ctx, 1)
		r.log.Warn(ctx, "cycle skipped", "cycle_id", cycleID, "error", err)
		if r.reporter != nil {
			r.reporter.ReportSkip(err.Error())
		}
		return nil, err
	}

	if r.reporter != nil {
		r.reporter.ReportTickers(data.Tickers)
	}

	decisions := make([]domain.Decision, 0, len(r.strategies))
	for _, s := range r.strategies {
		d := s.Tick(ctx, data)
		decisions = append(decisions, d)

		if r.journal != nil && d.Outcome.TouchesOrder() {
			if err := r.journal.Record(ctx, &d); err != nil {
				r.log.Error(ctx, "journal write failed", "cycle_id", cycleID, "error", err)
			}
		}
		if r.reporter != nil {
			r.reporter.ReportDecision(&d)
		}
	}

	elapsed := time.Since(start)
	r.metrics.cycleTime.Record(ctx, float64(elapsed.Microseconds())/1000,
		metric.WithAttributes(attribute.Int("strategies", len(r.strategies))))
	r.lastCycle.Store(time.Now().UnixNano())

	return decisions, nil
}

// fetch reads accounts and every configured ticker. Ticker requests run
// concurrently; the first failure cancels the rest.
func (r *Runner) fetch(ctx context.Context, cycleID string) (CycleData, error) {
	accounts, err := r.provider.GetAccounts(ctx)
	if err != nil {
		return CycleData{}, fmt.Errorf("get accounts: %w", err)
	}

	tickers := make([]exdomain.Ticker, len(r.cfg.Products))
	g, gctx := errgroup.WithContext(ctx)
	for i, p := range r.cfg.Products {
		g.Go(func() error {
			t, err := r.provider.GetTicker(gctx, p.String())
			if err != nil {
				return fmt.Errorf("get ticker %s: %w", p, err)
			}
			tickers[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return CycleData{}, err
	}

	byProduct := make(map[string]exdomain.Ticker, len(tickers))
	for i, p := range r.cfg.Products {
		byProduct[p.String()] = tickers[i]
	}

	return CycleData{
		ID:        cycleID,
		FetchedAt: time.Now(),
		Accounts:  accounts,
		Tickers:   byProduct,
	}, nil
}

// HealthCheck fails when no cycle has completed in the last few intervals.
func (r *Runner) HealthCheck(ctx context.Context) error {
	started := r.started.Load()
	if started == 0 {
		return apperror.New(apperror.CodeServiceUnavailable, apperror.WithContext("trading loop not started"))
	}

	last := r.lastCycle.Load()
	if last == 0 {
		last = started
	}

	if age := time.Since(time.Unix(0, last)); age > staleCycles*r.cfg.Interval {
		return apperror.New(apperror.CodeServiceUnavailable,
			apperror.WithContext(fmt.Sprintf("no completed cycle for %s", age.Truncate(time.Millisecond))))
	}
	return nil
}
