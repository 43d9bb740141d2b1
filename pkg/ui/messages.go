// Package ui provides the Bubble Tea TUI for the graph arbitrage trader.
package ui

import (
	"time"

	"github.com/fd1az/graph-arbitrage/pkg/ui/components"
)

// TickersMsg is sent with the tickers fetched for a cycle.
type TickersMsg struct {
	Rows []components.TickerRow
	At   time.Time
}

// DecisionMsg is sent when a strategy finishes a cycle.
type DecisionMsg struct {
	Row  components.DecisionRow
	Held string
	Path string
}

// SkipMsg is sent when a cycle was skipped for lack of market data.
type SkipMsg struct {
	Reason string
}

// ConnectionStatusMsg is sent when connection status changes.
type ConnectionStatusMsg struct {
	Name      string
	Connected bool
	Latency   time.Duration
}

// ErrorMsg is sent when an error occurs.
type ErrorMsg struct {
	Error error
}

// TickMsg is sent periodically for UI updates.
type TickMsg struct{}

// LogMsg carries a warning or error log record to the activity feed.
type LogMsg struct {
	Level   string // "warn" or "error"
	Message string
}

// StartupMsg is sent during application startup to show progress.
type StartupMsg struct {
	Step    string // Current step name
	Status  string // "connecting", "connected", "failed", "done"
	Message string // Optional message
}
