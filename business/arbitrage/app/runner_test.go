package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/graph-arbitrage/business/arbitrage/domain"
	exdomain "github.com/fd1az/graph-arbitrage/business/exchange/domain"
	"github.com/fd1az/graph-arbitrage/internal/apperror"
	"github.com/fd1az/graph-arbitrage/internal/logger"
)

type recordingReporter struct {
	mu        sync.Mutex
	started   bool
	stopped   bool
	tickers   []map[string]exdomain.Ticker
	decisions []domain.Decision
	skips     []string
}

func (r *recordingReporter) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = true
	return nil
}

func (r *recordingReporter) ReportTickers(t map[string]exdomain.Ticker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tickers = append(r.tickers, t)
}

func (r *recordingReporter) ReportDecision(d *domain.Decision) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decisions = append(r.decisions, *d)
}

func (r *recordingReporter) ReportSkip(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.skips = append(r.skips, reason)
}

func (r *recordingReporter) UpdateConnectionStatus(string, bool, time.Duration) {}

func (r *recordingReporter) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped = true
	return nil
}

type memoryJournal struct {
	mu      sync.Mutex
	entries []domain.Decision
	err     error
}

func (j *memoryJournal) Record(ctx context.Context, d *domain.Decision) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.err != nil {
		return j.err
	}
	j.entries = append(j.entries, *d)
	return nil
}

func (j *memoryJournal) Recent(ctx context.Context, limit int) ([]JournalEntry, error) {
	return nil, nil
}

func (j *memoryJournal) Close() error { return nil }

// countingStrategy records every snapshot it receives.
type countingStrategy struct {
	mu    sync.Mutex
	seen  []CycleData
	next  domain.Outcome
	ticks int
}

func (s *countingStrategy) Name() string { return "counting" }

func (s *countingStrategy) Tick(ctx context.Context, data CycleData) domain.Decision {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ticks++
	s.seen = append(s.seen, data)
	return domain.Decision{CycleID: data.ID, Strategy: s.Name(), Outcome: s.next}
}

func (s *countingStrategy) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ticks
}

func newTestRunner(t *testing.T, p *fakeProvider, opts ...RunnerOption) *Runner {
	t.Helper()
	cfg := RunnerConfig{
		Products: domain.MustParseProducts("BTC-USD"),
		Interval: 10 * time.Millisecond,
	}
	r, err := NewRunner(cfg, p, logger.NewDiscard(), opts...)
	require.NoError(t, err)
	return r
}

func TestNewRunnerRequiresStrategies(t *testing.T) {
	cfg := RunnerConfig{Products: domain.MustParseProducts("BTC-USD"), Interval: time.Second}
	_, err := NewRunner(cfg, newFakeProvider(), logger.NewDiscard())
	assert.True(t, apperror.HasCode(err, apperror.CodeConfigurationError))

	cfg.Interval = 0
	_, err = NewRunner(cfg, newFakeProvider(), logger.NewDiscard(), WithStrategies(&countingStrategy{}))
	assert.True(t, apperror.HasCode(err, apperror.CodeConfigurationError))
}

func TestRunCycleFeedsStrategies(t *testing.T) {
	p := usdProvider("0.5", "0.5")
	first := &countingStrategy{next: domain.OutcomeNoSignal}
	second := &countingStrategy{next: domain.OutcomeBelowThreshold}
	rep := &recordingReporter{}
	r := newTestRunner(t, p, WithStrategies(first, second), WithReporter(rep))

	decisions, err := r.RunCycle(context.Background())
	require.NoError(t, err)
	require.Len(t, decisions, 2)

	require.Len(t, first.seen, 1)
	data := first.seen[0]
	assert.NotEmpty(t, data.ID)
	assert.Equal(t, data.ID, second.seen[0].ID, "one snapshot per cycle")
	assert.Len(t, data.Accounts, 2)
	assert.Equal(t, "0.5", data.Tickers["BTC-USD"].Bid)

	assert.Len(t, rep.tickers, 1)
	assert.Len(t, rep.decisions, 2)
	assert.Empty(t, rep.skips)
}

func TestRunCycleSkipsOnFetchFailure(t *testing.T) {
	tests := []struct {
		name  string
		setup func(p *fakeProvider)
	}{
		{"accounts", func(p *fakeProvider) { p.accountsErr = apperror.New(apperror.CodeExchangeUnavailable) }},
		{"ticker", func(p *fakeProvider) { p.tickerErr = apperror.New(apperror.CodeServiceTimeout) }},
		{"unknown product", func(p *fakeProvider) { delete(p.tickers, "BTC-USD") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := usdProvider("0.5", "0.5")
			tt.setup(p)
			s := &countingStrategy{}
			rep := &recordingReporter{}
			r := newTestRunner(t, p, WithStrategies(s), WithReporter(rep))

			_, err := r.RunCycle(context.Background())

			assert.Error(t, err)
			assert.Zero(t, s.count(), "strategies never see a partial snapshot")
			assert.Len(t, rep.skips, 1)
		})
	}
}

func TestRunCycleJournalsOrderDecisions(t *testing.T) {
	p := usdProvider("0.5", "0.5")
	engine := newTestEngine(t, p, "BTC-USD")
	j := &memoryJournal{}
	r := newTestRunner(t, p, WithStrategies(engine), WithJournal(j))

	_, err := r.RunCycle(context.Background())
	require.NoError(t, err)
	_, err = r.RunCycle(context.Background())
	require.NoError(t, err)

	require.Len(t, j.entries, 1, "only the placement touches an order")
	assert.Equal(t, domain.OutcomeOrderPlaced, j.entries[0].Outcome)
	assert.Equal(t, "order-1", j.entries[0].OrderID)
}

func TestRunCycleContinuesAfterJournalFailure(t *testing.T) {
	p := usdProvider("0.5", "0.5")
	engine := newTestEngine(t, p, "BTC-USD")
	j := &memoryJournal{err: apperror.New(apperror.CodeJournalWriteFailed)}
	rep := &recordingReporter{}
	r := newTestRunner(t, p, WithStrategies(engine), WithJournal(j), WithReporter(rep))

	decisions, err := r.RunCycle(context.Background())

	require.NoError(t, err)
	require.Len(t, decisions, 1)
	assert.Equal(t, domain.OutcomeOrderPlaced, decisions[0].Outcome)
	assert.Len(t, rep.decisions, 1)
}

func TestRunnerStartStop(t *testing.T) {
	p := usdProvider("1", "1")
	s := &countingStrategy{next: domain.OutcomeNoSignal}
	rep := &recordingReporter{}
	r := newTestRunner(t, p, WithStrategies(s), WithReporter(rep))

	assert.Error(t, r.HealthCheck(context.Background()), "not started")

	require.NoError(t, r.Start(context.Background()))
	assert.Error(t, r.Start(context.Background()), "second start")

	require.Eventually(t, func() bool { return s.count() >= 2 }, time.Second, 5*time.Millisecond)
	assert.NoError(t, r.HealthCheck(context.Background()))

	require.NoError(t, r.Stop())
	assert.True(t, rep.started)
	assert.True(t, rep.stopped)

	n := s.count()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, n, s.count(), "no cycles after stop")
	assert.NoError(t, r.Stop(), "stop is idempotent")
}

func TestRunnerHealthCheckGoesStale(t *testing.T) {
	p := usdProvider("1", "1")
	r := newTestRunner(t, p, WithStrategies(&countingStrategy{}))

	r.started.Store(time.Now().Add(-time.Second).UnixNano())
	err := r.HealthCheck(context.Background())
	assert.True(t, apperror.HasCode(err, apperror.CodeServiceUnavailable))

	r.lastCycle.Store(time.Now().UnixNano())
	assert.NoError(t, r.HealthCheck(context.Background()))
}
