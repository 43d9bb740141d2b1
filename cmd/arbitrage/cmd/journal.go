package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fd1az/graph-arbitrage/business/arbitrage/app"
	"github.com/fd1az/graph-arbitrage/business/arbitrage/infra/journal"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query the decision journal",
	Long: `Query decisions recorded by the trading loop when journal.enabled is set.

Subcommands:
  recent - List the latest decisions
  orders - List the latest decisions that placed, filled or cancelled an order

Examples:
  arbitrage journal recent --limit 50
  arbitrage journal orders --db ./journal.db`,
}

var journalRecentCmd = &cobra.Command{
	Use:   "recent",
	Short: "List the latest decisions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return listJournal(cmd, false)
	},
}

var journalOrdersCmd = &cobra.Command{
	Use:   "orders",
	Short: "List the latest order decisions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return listJournal(cmd, true)
	},
}

var (
	journalDBPath string
	journalLimit  int
)

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalRecentCmd)
	journalCmd.AddCommand(journalOrdersCmd)

	journalCmd.PersistentFlags().StringVarP(&journalDBPath, "db", "d", "./journal.db", "path to SQLite journal DB")
	journalCmd.PersistentFlags().IntVarP(&journalLimit, "limit", "n", 20, "maximum number of decisions to scan")
}

func listJournal(cmd *cobra.Command, ordersOnly bool) error {
	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	entries, err := j.Recent(cmd.Context(), journalLimit)
	if err != nil {
		return fmt.Errorf("query decisions: %w", err)
	}

	if ordersOnly {
		kept := entries[:0]
		for _, e := range entries {
			if e.Outcome.TouchesOrder() {
				kept = append(kept, e)
			}
		}
		entries = kept
	}

	return writeEntries(cmd.OutOrStdout(), entries)
}

func writeEntries(w io.Writer, entries []app.JournalEntry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "no decisions recorded")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tHELD\tOUTCOME\tSIGNAL\tPRODUCT\tPRICE\tSIZE\tSPREAD\tORDER\tREASON")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			e.Time.Local().Format("2006-01-02 15:04:05"),
			e.Held, e.Outcome, e.Signal, e.Product,
			e.Price, e.Size, e.Spread, e.OrderID, e.Reason)
	}
	return tw.Flush()
}
