// Package exchange implements the exchange bounded context: the provider
// port and its Coinbase and paper adapters.
package exchange

import (
	"context"
	"time"

	"github.com/fd1az/graph-arbitrage/business/exchange/app"
	exchangeDI "github.com/fd1az/graph-arbitrage/business/exchange/di"
	"github.com/fd1az/graph-arbitrage/business/exchange/infra/coinbase"
	"github.com/fd1az/graph-arbitrage/business/exchange/infra/paper"
	"github.com/fd1az/graph-arbitrage/internal/config"
	"github.com/fd1az/graph-arbitrage/internal/di"
	"github.com/fd1az/graph-arbitrage/internal/health"
	"github.com/fd1az/graph-arbitrage/internal/logger"
	"github.com/fd1az/graph-arbitrage/internal/monolith"
)

const connectTimeout = 10 * time.Second

// Module implements the exchange bounded context.
type Module struct{}

// RegisterServices registers all exchange services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register LiveProvider (Coinbase) - private dependency
	di.RegisterToken(c, exchangeDI.LiveProvider, func(sr di.ServiceRegistry) app.Provider {
		cfg := sr.Get(monolith.ConfigService).(*config.Config)
		log := sr.Get(monolith.LoggerService).(logger.LoggerInterface)

		provider, err := coinbase.NewProvider(coinbaseConfig(cfg), log)
		if err != nil {
			panic("failed to create coinbase provider: " + err.Error())
		}
		return provider
	})

	// Register Provider (public - exposed to other modules)
	di.RegisterToken(c, exchangeDI.Provider, func(sr di.ServiceRegistry) app.Provider {
		cfg := sr.Get(monolith.ConfigService).(*config.Config)
		if cfg.Exchange.Provider != config.ProviderPaper {
			return exchangeDI.GetLiveProvider(sr)
		}

		log := sr.Get(monolith.LoggerService).(logger.LoggerInterface)

		var source paper.TickerSource
		if cfg.Paper.LivePrices && cfg.Exchange.HasCredentials() {
			source = exchangeDI.GetLiveProvider(sr)
		}

		tickers := make(map[string]paper.Quote, len(cfg.Paper.Tickers))
		for product, q := range cfg.Paper.Tickers {
			tickers[product] = paper.Quote{Bid: q.Bid, Ask: q.Ask}
		}

		ex, err := paper.NewExchange(paper.Config{
			Balances:        cfg.Paper.Balances,
			Tickers:         tickers,
			FillImmediately: cfg.Paper.FillImmediately,
		}, source, log)
		if err != nil {
			panic("failed to create paper exchange: " + err.Error())
		}
		return ex
	})

	return nil
}

func coinbaseConfig(cfg *config.Config) coinbase.ProviderConfig {
	creds := coinbase.Credentials{
		Key:        cfg.Exchange.APIKey,
		Secret:     cfg.Exchange.APISecret,
		Passphrase: cfg.Exchange.Passphrase,
	}

	pc := coinbase.DefaultProviderConfig(creds, cfg.Arbitrage.Products)
	if cfg.Exchange.RestURL != "" {
		pc.HTTP.BaseURL = cfg.Exchange.RestURL
	}
	if cfg.Exchange.WebSocketURL != "" {
		pc.WebSocketURL = cfg.Exchange.WebSocketURL
	}
	if cfg.Exchange.RequestsPerSecond > 0 {
		pc.HTTP.RequestsPerSecond = cfg.Exchange.RequestsPerSecond
	}
	if cfg.Exchange.MaxRetries > 0 {
		pc.HTTP.MaxRetries = cfg.Exchange.MaxRetries
	}
	if cfg.Exchange.RetryDelay > 0 {
		pc.HTTP.RetryDelay = cfg.Exchange.RetryDelay
	}
	if cfg.Exchange.RequestTimeout > 0 {
		pc.HTTP.Timeout = cfg.Exchange.RequestTimeout
	}
	if cfg.Exchange.StaleTimeout > 0 {
		pc.StaleTimeout = cfg.Exchange.StaleTimeout
	}
	pc.UseWebSocket = cfg.Exchange.UseWebSocket
	return pc
}

// Startup connects streaming providers.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	provider := exchangeDI.GetProvider(mono.Services())

	// Paper mode only has a connection when it borrows live prices.
	cfg := mono.Config()
	if cfg.Exchange.Provider == config.ProviderPaper {
		if !cfg.Paper.LivePrices || !cfg.Exchange.HasCredentials() {
			log.Info(ctx, "exchange module started", "provider", config.ProviderPaper)
			return nil
		}
		provider = exchangeDI.GetLiveProvider(mono.Services())
	}

	if connector, ok := provider.(app.Connector); ok {
		// Don't block startup on the feed; REST serves tickers meanwhile
		connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()

		if err := connector.Connect(connectCtx); err != nil {
			log.Warn(ctx, "exchange connection failed", "error", err)
		}
		mono.OnClose(connector)
	}

	if hs := mono.Health(); hs != nil {
		if cb, ok := provider.(*coinbase.Provider); ok && cb.Feed() != nil {
			hs.RegisterCheck("ticker_feed", feedCheck(cb.Feed()))
		}
	}

	log.Info(ctx, "exchange module started", "provider", cfg.Exchange.Provider)
	return nil
}

// feedCheck reports the feed state. A dropped feed degrades to REST tickers,
// so it never fails readiness on its own.
func feedCheck(feed *coinbase.TickerFeed) health.CheckFunc {
	return func(context.Context) (bool, string) {
		if feed.IsConnected() {
			return true, "connected"
		}
		return true, "disconnected, serving REST tickers"
	}
}
