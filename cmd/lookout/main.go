// Command lookout runs lookups and ledger operations against the configured
// backends.
//
//	lookout lookup +14155550000 --user alice
//	lookout account open alice --balance 10
//	lookout account set-balance alice 25 --operator ops-1
//	lookout ledger stats
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"lookout/internal/app"
	"lookout/internal/platform/config"
	"lookout/internal/platform/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// engineFunc runs fn with a freshly wired engine and releases it afterwards.
type engineFunc func(ctx context.Context, engine *app.App, out io.Writer) error

func withEngine(fn engineFunc) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		log := logger.NewWithWriter(cmd.ErrOrStderr(), cfg.Server.LogLevel, "text")

		ctx := cmd.Context()
		engine, err := app.New(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer func() { _ = engine.Close(context.WithoutCancel(ctx)) }()
		return fn(ctx, engine, cmd.OutOrStdout())
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "lookout",
		Short:         "Phone and email lookup aggregation",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newLookupCmd(), newAccountCmd(), newLedgerCmd())
	return root
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
