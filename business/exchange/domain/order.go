package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderSide is the direction of an order.
type OrderSide string

const (
	SideBuy  OrderSide = "buy"
	SideSell OrderSide = "sell"
)

// OrderStatus is the exchange-reported lifecycle state.
type OrderStatus string

const (
	StatusPending  OrderStatus = "pending"
	StatusOpen     OrderStatus = "open"
	StatusActive   OrderStatus = "active"
	StatusDone     OrderStatus = "done"
	StatusRejected OrderStatus = "rejected"
)

// Done reasons reported with StatusDone.
const (
	DoneReasonFilled   = "filled"
	DoneReasonCanceled = "canceled"
)

// Order is a limit order as last reported by the exchange.
type Order struct {
	ID         string
	ClientOID  string
	Product    string
	Side       OrderSide
	Price      decimal.Decimal
	Size       decimal.Decimal
	FilledSize decimal.Decimal
	Status     OrderStatus
	Settled    bool
	DoneReason string
	CreatedAt  time.Time
}

// Cancelled reports whether the exchange ended the order by cancellation.
// Both spellings appear in exchange payloads.
func (o Order) Cancelled() bool {
	return o.DoneReason == DoneReasonCanceled || o.DoneReason == "cancelled"
}

// Finished reports whether the order no longer needs tracking: rejected,
// cancelled, or done and settled.
func (o Order) Finished() bool {
	return o.Status == StatusRejected || o.Cancelled() || (o.Status == StatusDone && o.Settled)
}

// Age is how long ago the order was created.
func (o Order) Age(now time.Time) time.Duration {
	if o.CreatedAt.IsZero() {
		return 0
	}
	return now.Sub(o.CreatedAt)
}

// OrderRequest is a new limit order.
type OrderRequest struct {
	Product   string
	Side      OrderSide
	Price     decimal.Decimal
	Size      decimal.Decimal
	ClientOID string
}

// SubmitKind classifies the outcome of a submission.
type SubmitKind uint8

const (
	// SubmitAccepted carries the created order.
	SubmitAccepted SubmitKind = iota
	// SubmitRejected means the exchange answered and refused the order.
	SubmitRejected
	// SubmitFailed means no answer was obtained; it is safe to try again.
	SubmitFailed
)

func (k SubmitKind) String() string {
	switch k {
	case SubmitAccepted:
		return "accepted"
	case SubmitRejected:
		return "rejected"
	}
	return "failed"
}

// SubmitResult is the discriminated outcome of SubmitOrder.
type SubmitResult struct {
	Kind   SubmitKind
	Order  Order
	Reason string
	Err    error
}

// Accepted wraps a created order.
func Accepted(o Order) SubmitResult {
	return SubmitResult{Kind: SubmitAccepted, Order: o}
}

// Rejected records the exchange's refusal message.
func Rejected(reason string) SubmitResult {
	return SubmitResult{Kind: SubmitRejected, Reason: reason}
}

// Failed records a transport failure.
func Failed(err error) SubmitResult {
	return SubmitResult{Kind: SubmitFailed, Err: err}
}
