package main

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"lookout/internal/app"
	lookupservice "lookout/internal/lookup/service"
	"lookout/pkg/requestcontext"
)

// =============================================================================
// LOOKUP COMMAND
// =============================================================================

func newLookupCmd() *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "lookup <phone|email>",
		Short: "Resolve a phone number or email address into a merged profile",
		Args:  cobra.ExactArgs(1),
	}
	cmd.Flags().StringVar(&userID, "user", "", "account to charge; empty runs unmetered")
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return withEngine(func(ctx context.Context, engine *app.App, out io.Writer) error {
			ctx = requestcontext.WithUserID(ctx, userID)
			res, err := engine.Lookup.Lookup(ctx, lookupservice.Request{UserID: userID, Identifier: args[0]})
			if err != nil {
				return err
			}
			return printJSON(out, res)
		})(cmd, args)
	}
	return cmd
}
