package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/fd1az/graph-arbitrage/business/arbitrage"
	"github.com/fd1az/graph-arbitrage/business/arbitrage/app"
	"github.com/fd1az/graph-arbitrage/business/arbitrage/domain"
	"github.com/fd1az/graph-arbitrage/business/exchange"
	exchangeDI "github.com/fd1az/graph-arbitrage/business/exchange/di"
	exdomain "github.com/fd1az/graph-arbitrage/business/exchange/domain"
	"github.com/fd1az/graph-arbitrage/internal/monolith"
)

var pathFrom string

var pathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the best conversion path without trading",
	Long: `Path fetches one snapshot of the configured products, builds the currency
graph and prints the best round trip from the held currency with the signal
the trading loop would act on. No orders are placed.

Example:
  arbitrage path --paper --from USD`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()
		return printPath(ctx, cmd)
	},
}

func init() {
	rootCmd.AddCommand(pathCmd)
	pathCmd.Flags().StringVar(&pathFrom, "from", "", "start currency (default: first funded account, then the reference currency)")
}

func printPath(ctx context.Context, cmd *cobra.Command) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg, os.Stderr)

	mono := monolith.New(cfg, log, nil)
	defer mono.Close()
	if err := mono.RegisterModules(&exchange.Module{}); err != nil {
		return fmt.Errorf("failed to register modules: %w", err)
	}
	provider := exchangeDI.GetProvider(mono.Services())

	engineCfg := arbitrage.EngineConfig(cfg)

	held := domain.Currency(strings.ToUpper(pathFrom))
	if held == "" {
		held = engineCfg.Reference
		accounts, err := provider.GetAccounts(ctx)
		if err != nil {
			return fmt.Errorf("failed to fetch accounts: %w", err)
		}
		for _, a := range accounts {
			if a.Funded() {
				held = domain.Currency(a.Currency)
				break
			}
		}
	}

	var mu sync.Mutex
	tickers := make(map[string]exdomain.Ticker, len(engineCfg.Products))
	g, gctx := errgroup.WithContext(ctx)
	for _, p := range engineCfg.Products {
		product := p.String()
		g.Go(func() error {
			t, err := provider.GetTicker(gctx, product)
			if err != nil {
				return fmt.Errorf("ticker %s: %w", product, err)
			}
			mu.Lock()
			tickers[product] = t
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	graph, err := app.BuildGraph(engineCfg.Products, tickers)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	start := domain.Bid(held)
	if !graph.HasNode(start) {
		fmt.Fprintf(out, "%s is not traded by any configured product\n", held)
		return nil
	}

	path, distance := graph.FindBestPath(start, domain.Ask(held))
	if !path.StartsAt(start) {
		fmt.Fprintf(out, "no round trip from %s\n", held)
		return nil
	}

	signal, product := graph.Signal(path)
	fmt.Fprintf(out, "held:      %s\n", held)
	fmt.Fprintf(out, "path:      %s\n", path)
	fmt.Fprintf(out, "distance:  %s\n", distance.StringFixed(8))
	fmt.Fprintf(out, "threshold: %s\n", engineCfg.Threshold)
	if product.IsZero() {
		fmt.Fprintf(out, "signal:    %s\n", signal)
		return nil
	}
	fmt.Fprintf(out, "signal:    %s %s\n", signal, product)

	bid, ask, err := tickers[product.String()].Quote()
	if err != nil {
		return err
	}
	price := bid
	if signal == domain.SignalSell {
		price = ask
	}
	spread := domain.Quo(distance, price)
	fmt.Fprintf(out, "price:     %s\n", price)
	fmt.Fprintf(out, "spread:    %s\n", spread.StringFixed(8))
	fmt.Fprintf(out, "trade:     %t\n", spread.GreaterThan(engineCfg.Threshold))
	return nil
}
