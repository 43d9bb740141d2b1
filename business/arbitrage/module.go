// Package arbitrage implements the arbitrage bounded context: the currency
// graph engine and the trading loop that drives it.
package arbitrage

import (
	"context"
	"time"

	"github.com/fd1az/graph-arbitrage/business/arbitrage/app"
	arbitrageDI "github.com/fd1az/graph-arbitrage/business/arbitrage/di"
	"github.com/fd1az/graph-arbitrage/business/arbitrage/domain"
	"github.com/fd1az/graph-arbitrage/business/arbitrage/infra"
	"github.com/fd1az/graph-arbitrage/business/arbitrage/infra/journal"
	exchangeDI "github.com/fd1az/graph-arbitrage/business/exchange/di"
	"github.com/fd1az/graph-arbitrage/internal/apperror"
	"github.com/fd1az/graph-arbitrage/internal/config"
	"github.com/fd1az/graph-arbitrage/internal/di"
	"github.com/fd1az/graph-arbitrage/internal/logger"
	"github.com/fd1az/graph-arbitrage/internal/monolith"
)

// Connection names shown by reporters.
const (
	ConnExchange = "Exchange"
	ConnFeed     = "Ticker feed"
)

// Module implements the arbitrage bounded context.
type Module struct{}

// RegisterServices registers all arbitrage services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register Reporter (private) - TUI or console depending on mode
	di.RegisterToken(c, arbitrageDI.Reporter, func(sr di.ServiceRegistry) app.Reporter {
		cfg := sr.Get(monolith.ConfigService).(*config.Config)
		if cfg.Arbitrage.TUIMode {
			return infra.NewTUIReporter()
		}
		return infra.NewConsoleReporter()
	})

	// Register Journal (private) - only resolved when enabled
	di.RegisterToken(c, arbitrageDI.Journal, func(sr di.ServiceRegistry) app.Journal {
		cfg := sr.Get(monolith.ConfigService).(*config.Config)
		j, err := journal.NewSQLite(cfg.Journal.Path)
		if err != nil {
			panic("failed to open journal: " + err.Error())
		}
		return j
	})

	// Register Engine (public)
	di.RegisterToken(c, arbitrageDI.Engine, func(sr di.ServiceRegistry) *app.Engine {
		cfg := sr.Get(monolith.ConfigService).(*config.Config)
		log := sr.Get(monolith.LoggerService).(logger.LoggerInterface)

		engine, err := app.NewEngine(EngineConfig(cfg), exchangeDI.GetProvider(sr), log)
		if err != nil {
			panic("failed to create engine: " + err.Error())
		}
		return engine
	})

	// Register Runner (public)
	di.RegisterToken(c, arbitrageDI.Runner, func(sr di.ServiceRegistry) *app.Runner {
		cfg := sr.Get(monolith.ConfigService).(*config.Config)
		log := sr.Get(monolith.LoggerService).(logger.LoggerInterface)

		opts := []app.RunnerOption{
			app.WithStrategies(arbitrageDI.GetEngine(sr)),
			app.WithReporter(arbitrageDI.GetReporter(sr)),
		}
		if cfg.Journal.Enabled {
			opts = append(opts, app.WithJournal(arbitrageDI.GetJournal(sr)))
		}

		runner, err := app.NewRunner(app.RunnerConfig{
			Products: domain.MustParseProducts(cfg.Arbitrage.Products...),
			Interval: cfg.Arbitrage.PollInterval,
		}, exchangeDI.GetProvider(sr), log, opts...)
		if err != nil {
			panic("failed to create runner: " + err.Error())
		}
		return runner
	})

	return nil
}

// EngineConfig maps validated configuration onto the engine's settings.
func EngineConfig(cfg *config.Config) app.EngineConfig {
	return app.EngineConfig{
		Reference:   domain.Currency(cfg.Arbitrage.ReferenceCurrency),
		Threshold:   cfg.Arbitrage.ThresholdDecimal(),
		Products:    domain.MustParseProducts(cfg.Arbitrage.Products...),
		CancelAfter: cfg.Arbitrage.CancelAfter,
	}
}

// Startup checks the exchange, wires connection status into the reporter
// and registers the cycle health check. The runner itself is started by
// the caller.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	sr := mono.Services()
	provider := exchangeDI.GetProvider(sr)
	reporter := arbitrageDI.GetReporter(sr)
	runner := arbitrageDI.GetRunner(sr)

	// Bad credentials will not fix themselves, fail fast on them.
	began := time.Now()
	_, err := provider.GetAccounts(ctx)
	switch {
	case apperror.HasCode(err, apperror.CodeUnauthorized):
		return err
	case err != nil:
		log.Warn(ctx, "exchange check failed, cycles will skip until it recovers", "error", err)
	}
	reporter.UpdateConnectionStatus(ConnExchange, err == nil, time.Since(began))

	if fs, ok := provider.(interface{ OnFeedStatus(func(bool)) }); ok {
		fs.OnFeedStatus(func(connected bool) {
			reporter.UpdateConnectionStatus(ConnFeed, connected, 0)
		})
	}

	if mono.Config().Journal.Enabled {
		mono.OnClose(arbitrageDI.GetJournal(sr))
	}

	if hs := mono.Health(); hs != nil {
		hs.RegisterCheck("cycle", func(ctx context.Context) (bool, string) {
			if err := runner.HealthCheck(ctx); err != nil {
				return false, err.Error()
			}
			return true, "ok"
		})
	}

	log.Info(ctx, "arbitrage module started",
		"reference", mono.Config().Arbitrage.ReferenceCurrency,
		"threshold", mono.Config().Arbitrage.Threshold,
		"products", mono.Config().Arbitrage.Products)
	return nil
}
