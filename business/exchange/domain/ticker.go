package domain

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/graph-arbitrage/internal/apperror"
)

// Ticker is the top of book for one product. Bid and Ask stay raw so a
// missing or garbled field is visible to the consumer instead of reading as
// zero.
type Ticker struct {
	Product string
	Bid     string
	Ask     string
	Price   string
	Time    time.Time
}

// ParseBid returns the bid or a CodeInvalidTicker error.
func (t Ticker) ParseBid() (decimal.Decimal, error) {
	return parsePrice(t.Product, "bid", t.Bid)
}

// ParseAsk returns the ask or a CodeInvalidTicker error.
func (t Ticker) ParseAsk() (decimal.Decimal, error) {
	return parsePrice(t.Product, "ask", t.Ask)
}

// Quote returns both sides, failing if either is unusable.
func (t Ticker) Quote() (bid, ask decimal.Decimal, err error) {
	if bid, err = t.ParseBid(); err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	if ask, err = t.ParseAsk(); err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return bid, ask, nil
}

func parsePrice(product, field, raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, apperror.New(apperror.CodeInvalidTicker,
			apperror.WithContext(product+" "+field+" missing"))
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, apperror.New(apperror.CodeInvalidTicker,
			apperror.WithContext(product+" "+field), apperror.WithCause(err))
	}
	if !v.IsPositive() {
		return decimal.Zero, apperror.New(apperror.CodeInvalidTicker,
			apperror.WithContext(product+" "+field+" not positive"))
	}
	return v, nil
}
