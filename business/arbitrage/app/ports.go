package app

import (
	"context"
	"time"

	"github.com/fd1az/graph-arbitrage/business/arbitrage/domain"
	exdomain "github.com/fd1az/graph-arbitrage/business/exchange/domain"
)

// Reporter defines the interface for presenting the trading loop.
type Reporter interface {
	// Start initializes the reporter.
	Start(ctx context.Context) error

	// ReportTickers shows the tickers fetched for a cycle.
	ReportTickers(tickers map[string]exdomain.Ticker)

	// ReportDecision shows what a strategy did in a cycle.
	ReportDecision(d *domain.Decision)

	// ReportSkip shows a cycle skipped because market data was unavailable.
	ReportSkip(reason string)

	// UpdateConnectionStatus updates a connection status display.
	UpdateConnectionStatus(name string, connected bool, latency time.Duration)

	// Stop gracefully shuts down the reporter.
	Stop() error
}

// JournalEntry is one persisted decision.
type JournalEntry struct {
	ID       string
	CycleID  string
	Time     time.Time
	Strategy string
	Held     string
	Outcome  domain.Outcome
	Signal   string
	Product  string
	OrderID  string
	Price    string
	Size     string
	Spread   string
	Path     string
	Reason   string
}

// Journal persists decisions that touched an order.
type Journal interface {
	Record(ctx context.Context, d *domain.Decision) error
	Recent(ctx context.Context, limit int) ([]JournalEntry, error)
	Close() error
}
