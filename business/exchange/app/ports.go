// Package app contains the exchange port consumed by trading strategies.
package app

import (
	"context"

	"github.com/fd1az/graph-arbitrage/business/exchange/domain"
)

// Provider is everything the trading loop needs from an exchange.
//
// GetOrder reports an order the exchange no longer knows about with an
// apperror.CodeOrderNotFound error. Any other error is a transient failure.
type Provider interface {
	GetAccounts(ctx context.Context) ([]domain.Account, error)
	GetTicker(ctx context.Context, product string) (domain.Ticker, error)
	GetOrder(ctx context.Context, id string) (domain.Order, error)
	CancelOrder(ctx context.Context, id string) error
	SubmitOrder(ctx context.Context, req domain.OrderRequest) domain.SubmitResult
}

// Connector is implemented by providers that hold a streaming connection.
type Connector interface {
	Connect(ctx context.Context) error
	Close() error
}
