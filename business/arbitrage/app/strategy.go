// Package app contains the arbitrage decision engine, the trading loop that
// feeds it and the ports it reports through.
package app

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/graph-arbitrage/business/arbitrage/domain"
	exdomain "github.com/fd1az/graph-arbitrage/business/exchange/domain"
)

// Strategy is run once per trading cycle with that cycle's market snapshot.
// Tick must not return provider failures; it reports what it did instead.
type Strategy interface {
	Name() string
	Tick(ctx context.Context, data CycleData) domain.Decision
}

// CycleData is the snapshot handed to every strategy in a cycle.
type CycleData struct {
	ID        string
	FetchedAt time.Time
	Accounts  []exdomain.Account
	// Tickers is keyed by product id ("BTC-USD").
	Tickers map[string]exdomain.Ticker
}

// BalanceOf returns the balance of the first account in c with a parseable
// balance. The boolean is false when there is no such account.
func (d CycleData) BalanceOf(c domain.Currency) (decimal.Decimal, bool) {
	for _, a := range d.Accounts {
		if a.Currency != string(c) {
			continue
		}
		b, err := a.ParseBalance()
		if err != nil {
			continue
		}
		return b, true
	}
	return decimal.Zero, false
}

// Ticker returns the ticker for a pair.
func (d CycleData) Ticker(p domain.CurrencyPair) (exdomain.Ticker, bool) {
	t, ok := d.Tickers[p.String()]
	return t, ok
}
