// Package di contains dependency injection tokens for the exchange context.
package di

import (
	"github.com/fd1az/graph-arbitrage/business/exchange/app"
	"github.com/fd1az/graph-arbitrage/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Provider = di.NewToken[app.Provider]("exchange.Provider")
)

// Private dependency tokens - internal to exchange module
var (
	LiveProvider = di.NewToken[app.Provider]("exchange:liveProvider")
)

// GetProvider returns the configured exchange provider.
func GetProvider(c di.ServiceRegistry) app.Provider {
	return di.GetToken(c, Provider)
}

func GetLiveProvider(c di.ServiceRegistry) app.Provider {
	return di.GetToken(c, LiveProvider)
}
