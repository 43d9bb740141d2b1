// Package domain holds the exchange-facing data: accounts, tickers and
// orders, exactly as the trading loop consumes them.
package domain

import (
	"github.com/shopspring/decimal"

	"github.com/fd1az/graph-arbitrage/internal/apperror"
)

// Account is one currency balance held on the exchange.
type Account struct {
	ID        string
	Currency  string
	Balance   string
	Available string
	Hold      string
}

// ParseBalance parses the raw balance.
func (a Account) ParseBalance() (decimal.Decimal, error) {
	b, err := decimal.NewFromString(a.Balance)
	if err != nil {
		return decimal.Zero, apperror.New(apperror.CodeInvalidInput,
			apperror.WithContext("balance of "+a.Currency), apperror.WithCause(err))
	}
	return b, nil
}

// Funded reports whether the balance parses to a positive number.
func (a Account) Funded() bool {
	b, err := a.ParseBalance()
	return err == nil && b.IsPositive()
}
