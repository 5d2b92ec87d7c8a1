package main

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"lookout/internal/app"
)

// =============================================================================
// LEDGER COMMANDS - reporting
// =============================================================================

func newLedgerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Ledger-wide reports",
	}

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Print recharge, consumption and balance totals",
		Args:  cobra.NoArgs,
		RunE: withEngine(func(ctx context.Context, engine *app.App, out io.Writer) error {
			s, err := engine.Ledger.Stats(ctx)
			if err != nil {
				return err
			}
			return printJSON(out, s)
		}),
	}

	reconcile := &cobra.Command{
		Use:   "reconcile",
		Short: "List accounts whose balance differs from their transaction sum",
		Args:  cobra.NoArgs,
		RunE: withEngine(func(ctx context.Context, engine *app.App, out io.Writer) error {
			mismatches, err := engine.Ledger.Reconcile(ctx)
			if err != nil {
				return err
			}
			return printJSON(out, mismatches)
		}),
	}

	cmd.AddCommand(stats, reconcile)
	return cmd
}
