// Package components provides reusable TUI components.
package components

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// TickerRow is one product's top of book.
type TickerRow struct {
	Product string
	Bid     decimal.Decimal
	Ask     decimal.Decimal
	// Valid is false when the exchange sent a side that did not parse.
	Valid bool
}

// SpreadPct is the relative bid/ask spread in percent.
func (r TickerRow) SpreadPct() decimal.Decimal {
	if !r.Valid || r.Bid.IsZero() {
		return decimal.Zero
	}
	return r.Ask.Sub(r.Bid).Div(r.Bid).Mul(decimal.NewFromInt(100))
}

// TickersComponent renders the quote table.
type TickersComponent struct {
	rows      map[string]TickerRow
	reference string
}

// NewTickersComponent creates a new tickers component.
func NewTickersComponent(reference string) *TickersComponent {
	return &TickersComponent{
		rows:      make(map[string]TickerRow),
		reference: reference,
	}
}

// Update replaces the quotes of the given products.
func (t *TickersComponent) Update(rows []TickerRow) {
	for _, r := range rows {
		t.rows[r.Product] = r
	}
}

// Len returns the number of products shown.
func (t *TickersComponent) Len() int {
	return len(t.rows)
}

// View renders the tickers component.
func (t *TickersComponent) View() string {
	if len(t.rows) == 0 {
		return "Waiting for tickers..."
	}

	products := make([]string, 0, len(t.rows))
	for p := range t.rows {
		products = append(products, p)
	}
	sort.Strings(products)

	var sb strings.Builder
	sb.WriteString(headerStyle.Render(fmt.Sprintf("TICKERS (reference %s)", t.reference)))
	sb.WriteString("\n\n")
	sb.WriteString(fmt.Sprintf("  %-10s  %14s  %14s  %9s\n", "Product", "Bid", "Ask", "Spread"))
	sb.WriteString(dimStyle.Render("  "+strings.Repeat("─", 53)) + "\n")

	for _, p := range products {
		r := t.rows[p]
		if !r.Valid {
			sb.WriteString(fmt.Sprintf("  %-10s  %s\n", p, badStyle.Render("unusable quote")))
			continue
		}
		sb.WriteString(fmt.Sprintf("  %-10s  %14s  %14s  %8s%%\n",
			p, r.Bid.String(), r.Ask.String(), r.SpreadPct().StringFixed(3)))
	}
	return sb.String()
}
