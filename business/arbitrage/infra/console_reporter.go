// Package infra contains infrastructure adapters for the arbitrage context.
package infra

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/fd1az/graph-arbitrage/business/arbitrage/app"
	"github.com/fd1az/graph-arbitrage/business/arbitrage/domain"
	exdomain "github.com/fd1az/graph-arbitrage/business/exchange/domain"
)

var _ app.Reporter = (*ConsoleReporter)(nil)

// ConsoleReporter implements Reporter for CLI output. Only decisions that
// touch an order are printed in full; quiet cycles print one line.
type ConsoleReporter struct {
	out     io.Writer
	mu      sync.Mutex
	verbose bool
}

// NewConsoleReporter creates a new ConsoleReporter writing to stdout.
func NewConsoleReporter() *ConsoleReporter {
	return NewConsoleReporterTo(os.Stdout, false)
}

// NewConsoleReporterTo writes to out. verbose also prints tickers.
func NewConsoleReporterTo(out io.Writer, verbose bool) *ConsoleReporter {
	return &ConsoleReporter{out: out, verbose: verbose}
}

// Start initializes the console reporter.
func (r *ConsoleReporter) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, "Graph Arbitrage Started")
	fmt.Fprintln(r.out, "=======================")
	return nil
}

// ReportTickers prints the cycle's quotes in verbose mode.
func (r *ConsoleReporter) ReportTickers(tickers map[string]exdomain.Ticker) {
	if !r.verbose {
		return
	}

	products := make([]string, 0, len(tickers))
	for p := range tickers {
		products = append(products, p)
	}
	sort.Strings(products)

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range products {
		t := tickers[p]
		fmt.Fprintf(r.out, "  %-10s bid %-14s ask %s\n", p, t.Bid, t.Ask)
	}
}

// ReportDecision outputs a strategy decision.
func (r *ConsoleReporter) ReportDecision(d *domain.Decision) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ts := d.Time.Format("15:04:05")
	if !d.Outcome.TouchesOrder() {
		fmt.Fprintf(r.out, "[%s] %s held=%s %s\n", ts, d.Outcome, d.Held, r.summary(d))
		return
	}

	fmt.Fprintln(r.out, "")
	fmt.Fprintln(r.out, "================================================================================")
	fmt.Fprintf(r.out, "ORDER %s\n", d.Outcome)
	fmt.Fprintln(r.out, "================================================================================")
	fmt.Fprintf(r.out, "Cycle:          %s\n", d.CycleID)
	fmt.Fprintf(r.out, "Timestamp:      %s\n", d.Time.Format(time.RFC3339))
	fmt.Fprintf(r.out, "Held:           %s\n", d.Held)
	if len(d.Path) > 0 {
		fmt.Fprintf(r.out, "Path:           %s\n", d.Path)
		fmt.Fprintf(r.out, "Distance:       %s\n", d.Distance.StringFixed(8))
	}
	if !d.Product.IsZero() {
		fmt.Fprintf(r.out, "Signal:         %s %s\n", d.Signal, d.Product)
	}
	fmt.Fprintln(r.out, "--------------------------------------------------------------------------------")
	if d.OrderID != "" {
		fmt.Fprintf(r.out, "  Order:        %s\n", d.OrderID)
	}
	if !d.Size.IsZero() {
		fmt.Fprintf(r.out, "  Price:        %s\n", d.Price.String())
		fmt.Fprintf(r.out, "  Size:         %s\n", d.Size.String())
	}
	if !d.Spread.IsZero() {
		fmt.Fprintf(r.out, "  Spread:       %s\n", d.Spread.StringFixed(6))
	}
	if d.Reason != "" {
		fmt.Fprintf(r.out, "  Reason:       %s\n", d.Reason)
	}
	fmt.Fprintln(r.out, "================================================================================")
}

func (r *ConsoleReporter) summary(d *domain.Decision) string {
	switch {
	case d.Reason != "":
		return d.Reason
	case !d.Product.IsZero():
		return fmt.Sprintf("%s %s spread=%s", d.Signal, d.Product, d.Spread.StringFixed(6))
	}
	return ""
}

// ReportSkip outputs a skipped cycle.
func (r *ConsoleReporter) ReportSkip(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, "[%s] data unavailable, iteration skipped: %s\n", time.Now().Format("15:04:05"), reason)
}

// UpdateConnectionStatus outputs connection status changes.
func (r *ConsoleReporter) UpdateConnectionStatus(name string, connected bool, latency time.Duration) {
	status := "disconnected"
	if connected {
		status = fmt.Sprintf("connected (%s)", latency)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, "[%s] %s: %s\n", time.Now().Format("15:04:05"), name, status)
}

// Stop gracefully shuts down the console reporter.
func (r *ConsoleReporter) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, "")
	fmt.Fprintln(r.out, "Graph Arbitrage Stopped")
	return nil
}
