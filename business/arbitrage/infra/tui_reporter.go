package infra

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/fd1az/graph-arbitrage/business/arbitrage/app"
	"github.com/fd1az/graph-arbitrage/business/arbitrage/domain"
	exdomain "github.com/fd1az/graph-arbitrage/business/exchange/domain"
	"github.com/fd1az/graph-arbitrage/pkg/ui"
	"github.com/fd1az/graph-arbitrage/pkg/ui/components"
)

var _ app.Reporter = (*TUIReporter)(nil)

// TUIReporter implements Reporter by forwarding to the Bubble Tea dashboard.
type TUIReporter struct {
	send func(tea.Msg)
	now  func() time.Time
}

// NewTUIReporter creates a TUIReporter that sends to the running program.
func NewTUIReporter() *TUIReporter {
	return &TUIReporter{send: ui.Send, now: time.Now}
}

// Start marks the exchange connected in the startup screen.
func (r *TUIReporter) Start(ctx context.Context) error {
	r.send(ui.StartupMsg{Step: ui.StepExchange, Status: "connected"})
	return nil
}

// ReportTickers sends the cycle's quotes.
func (r *TUIReporter) ReportTickers(tickers map[string]exdomain.Ticker) {
	rows := make([]components.TickerRow, 0, len(tickers))
	for product, t := range tickers {
		bid, ask, err := t.Quote()
		rows = append(rows, components.TickerRow{
			Product: product,
			Bid:     bid,
			Ask:     ask,
			Valid:   err == nil,
		})
	}
	r.send(ui.TickersMsg{Rows: rows, At: r.now()})
}

// ReportDecision sends a decision row.
func (r *TUIReporter) ReportDecision(d *domain.Decision) {
	r.send(ui.DecisionMsg{Row: DecisionRow(d), Held: string(d.Held), Path: pathString(d.Path)})
}

// ReportSkip sends a skipped cycle.
func (r *TUIReporter) ReportSkip(reason string) {
	r.send(ui.SkipMsg{Reason: reason})
	r.send(ui.ErrorMsg{Error: errors.New(reason)})
}

// UpdateConnectionStatus sends connection status to the TUI.
func (r *TUIReporter) UpdateConnectionStatus(name string, connected bool, latency time.Duration) {
	r.send(ui.ConnectionStatusMsg{Name: name, Connected: connected, Latency: latency})
	if connected {
		r.send(ui.StartupMsg{Step: ui.StepFeed, Status: "connected"})
	}
}

// Stop is a no-op; the program exits on its own quit key or context.
func (r *TUIReporter) Stop() error {
	return nil
}

// DecisionRow flattens a decision for display.
func DecisionRow(d *domain.Decision) components.DecisionRow {
	row := components.DecisionRow{
		Time:    d.Time.Format("15:04:05"),
		Held:    string(d.Held),
		Outcome: string(d.Outcome),
		Detail:  d.Reason,
		Order:   d.Outcome.TouchesOrder(),
		Failure: d.Outcome == domain.OutcomeOrderRejected ||
			d.Outcome == domain.OutcomeProviderFailure ||
			d.Outcome == domain.OutcomeCancelFailed,
	}
	if !d.Product.IsZero() {
		row.Signal = d.Signal.String()
		row.Product = d.Product.String()
	}
	if !d.Size.IsZero() {
		row.Price = d.Price.String()
		row.Size = d.Size.String()
	}
	if !d.Spread.IsZero() {
		row.Spread = d.Spread.StringFixed(6)
	}
	return row
}

func pathString(p domain.Path) string {
	if len(p) == 0 {
		return ""
	}
	return p.String()
}
