package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Outcome names what a strategy cycle ended up doing.
type Outcome string

const (
	OutcomeGraphUnavailable Outcome = "graph_unavailable"
	OutcomeNoSignal         Outcome = "no_signal"
	OutcomeNoMarketPrice    Outcome = "no_market_price"
	OutcomeBelowThreshold   Outcome = "below_threshold"
	OutcomeNoBalance        Outcome = "no_balance"
	OutcomeOrderPlaced      Outcome = "order_placed"
	OutcomeOrderRejected    Outcome = "order_rejected"
	OutcomeProviderFailure  Outcome = "provider_failure"
	OutcomeOrderUnchanged   Outcome = "order_unchanged"
	OutcomeOrderCleared     Outcome = "order_cleared"
	OutcomeOrderKept        Outcome = "order_kept"
	OutcomeOrderCancelled   Outcome = "order_cancelled"
	OutcomeCancelFailed     Outcome = "cancel_failed"
)

// TouchesOrder reports whether the outcome involved an order request or a
// change to the tracked order, which is what the journal keeps.
func (o Outcome) TouchesOrder() bool {
	switch o {
	case OutcomeOrderPlaced, OutcomeOrderRejected, OutcomeOrderCleared,
		OutcomeOrderCancelled, OutcomeCancelFailed:
		return true
	}
	return false
}

// Decision is the record of one strategy cycle.
type Decision struct {
	CycleID     string
	Strategy    string
	Time        time.Time
	Held        Currency
	Path        Path
	Distance    decimal.Decimal
	Signal      TradeSignal
	Product     CurrencyPair
	MarketPrice decimal.Decimal
	Spread      decimal.Decimal
	Outcome     Outcome
	OrderID     string
	Price       decimal.Decimal
	Size        decimal.Decimal
	Reason      string
}
