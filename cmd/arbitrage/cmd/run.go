package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/fd1az/graph-arbitrage/business/arbitrage"
	arbitrageDI "github.com/fd1az/graph-arbitrage/business/arbitrage/di"
	"github.com/fd1az/graph-arbitrage/business/exchange"
	"github.com/fd1az/graph-arbitrage/internal/apm"
	"github.com/fd1az/graph-arbitrage/internal/config"
	"github.com/fd1az/graph-arbitrage/internal/health"
	"github.com/fd1az/graph-arbitrage/internal/logger"
	"github.com/fd1az/graph-arbitrage/internal/metrics"
	"github.com/fd1az/graph-arbitrage/internal/monolith"
	"github.com/fd1az/graph-arbitrage/pkg/ui"
)

const shutdownTimeout = 5 * time.Second

var cliMode bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the trading loop",
	Long: `Run starts the exchange and arbitrage modules and polls the configured
products every poll_interval until interrupted.

The dashboard is the default. Use --cli for JSON logs on stderr.

Example:
  arbitrage run --paper --cli`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()
		return run(ctx, !cliMode)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().BoolVar(&cliMode, "cli", false, "log to stderr instead of showing the dashboard")
}

func run(ctx context.Context, tuiMode bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.Arbitrage.TUIMode = tuiMode

	// The dashboard owns the terminal; only warnings reach its feed.
	var out io.Writer = os.Stderr
	if tuiMode {
		out = ui.NewLogWriter()
	}
	log := newLogger(cfg, out)
	log.Info(ctx, "starting graph arbitrage bot",
		"version", version,
		"environment", cfg.App.Environment,
		"provider", cfg.Exchange.Provider,
	)

	stopTelemetry, err := startTelemetry(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer stopTelemetry()

	healthServer := health.NewServer(cfg.Health.Port, version, log)
	if err := healthServer.Start(); err != nil {
		log.Warn(ctx, "failed to start health server", "error", err)
	} else {
		log.Info(ctx, "health server started", "port", cfg.Health.Port)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		healthServer.Stop(sctx)
	}()

	mono := monolith.New(cfg, log, healthServer)
	defer func() {
		if err := mono.Close(); err != nil {
			log.Error(context.Background(), "error closing modules", "error", err)
		}
	}()

	modules := []monolith.Module{
		&exchange.Module{},  // provides the exchange port
		&arbitrage.Module{}, // depends on exchange
	}

	if err := mono.RegisterModules(modules...); err != nil {
		return fmt.Errorf("failed to register modules: %w", err)
	}

	var started atomic.Bool
	start := func() error {
		if err := mono.StartModules(ctx, modules...); err != nil {
			return fmt.Errorf("failed to start modules: %w", err)
		}
		if err := arbitrageDI.GetRunner(mono.Services()).Start(ctx); err != nil {
			return err
		}
		started.Store(true)
		return nil
	}
	stopRunner := func() {
		if !started.Load() {
			return
		}
		if err := arbitrageDI.GetRunner(mono.Services()).Stop(); err != nil {
			log.Error(context.Background(), "error stopping runner", "error", err)
		}
	}

	if tuiMode {
		return runTUI(ctx, cfg, start, stopRunner)
	}
	return runCLI(ctx, log, start, stopRunner)
}

// startTelemetry installs tracing and metrics when enabled. The returned
// func flushes and stops both.
func startTelemetry(ctx context.Context, cfg *config.Config, log logger.LoggerInterface) (func(), error) {
	if !cfg.Telemetry.Enabled {
		return func() {}, nil
	}

	tp, err := apm.NewTraceProvider(ctx, apm.Config{
		Provider:    apm.Provider(cfg.Telemetry.TraceExporter),
		ServiceName: cfg.Telemetry.ServiceName,
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		Headers:     cfg.Telemetry.OTLPHeaders,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to start tracing: %w", err)
	}
	log.Info(ctx, "tracing initialized",
		"provider", cfg.Telemetry.TraceExporter,
		"endpoint", cfg.Telemetry.OTLPEndpoint)

	metricOpts := []metrics.Option{
		metrics.WithServiceName(cfg.Telemetry.ServiceName),
		metrics.WithPrometheus(),
	}
	if ep := cfg.Telemetry.MetricsEndpoint; ep != "" {
		headers, err := apm.ParseHeaders(cfg.Telemetry.OTLPHeaders)
		if err != nil {
			tp.Stop()
			return nil, fmt.Errorf("invalid telemetry.otlp_headers: %w", err)
		}
		metricOpts = append(metricOpts, metrics.WithOTLP(ep, headers, cfg.Telemetry.MetricsInsecure))
	}

	mp, err := metrics.NewMetricProvider(ctx, metricOpts...)
	if err != nil {
		tp.Stop()
		return nil, fmt.Errorf("failed to start metrics: %w", err)
	}

	port := cfg.Telemetry.PrometheusPort
	if port == 0 {
		port = 9090
	}
	ms := metrics.NewServer(metrics.WithPort(strconv.Itoa(port)))
	if err := ms.Start(); err != nil {
		log.Warn(ctx, "failed to start metrics server", "error", err)
	} else {
		log.Info(ctx, "prometheus metrics server started", "port", port)
	}

	return func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		ms.Stop(sctx)
		mp.Shutdown(sctx)
		if err := tp.Stop(); err != nil {
			log.Warn(sctx, "failed to flush traces", "error", err)
		}
	}, nil
}

func runCLI(ctx context.Context, log logger.LoggerInterface, start func() error, stop func()) error {
	if err := start(); err != nil {
		return err
	}
	log.Info(ctx, "all modules started, trading loop running")

	<-ctx.Done()

	log.Info(context.Background(), "shutting down")
	stop()
	return nil
}

func runTUI(ctx context.Context, cfg *config.Config, start func() error, stop func()) error {
	startSignal := make(chan struct{}, 1)
	ui.OnStartModules = func() {
		select {
		case startSignal <- struct{}{}:
		default:
		}
	}

	p := tea.NewProgram(ui.New(cfg.Arbitrage.ReferenceCurrency), tea.WithAltScreen(), tea.WithContext(ctx))
	ui.Program = p

	errCh := make(chan error, 1)
	go func() {
		select {
		case <-startSignal:
		case <-ctx.Done():
			errCh <- nil
			return
		}

		ui.Send(ui.StartupMsg{Step: ui.StepConfig, Status: "done", Message: cfg.Exchange.Provider})
		if err := start(); err != nil {
			ui.Send(ui.StartupMsg{Step: ui.StepExchange, Status: "failed", Message: err.Error()})
			ui.Send(ui.ErrorMsg{Error: err})
			errCh <- err
			return
		}

		<-ctx.Done()
		stop()
		errCh <- nil
	}()

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	// Quitting from the keyboard does not cancel ctx, stop the loop here.
	stop()

	select {
	case err := <-errCh:
		return err
	default:
		return nil
	}
}
