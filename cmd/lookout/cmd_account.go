package main

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"lookout/internal/app"
	ledgermodels "lookout/internal/ledger/models"
	"lookout/pkg/requestcontext"
)

// =============================================================================
// ACCOUNT COMMANDS - balance administration
// =============================================================================

func newAccountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage credit accounts",
	}
	cmd.AddCommand(
		newAccountOpenCmd(),
		newAccountBalanceCmd(),
		newAccountCreditCmd(),
		newAccountSetBalanceCmd(),
		newAccountHistoryCmd(),
	)
	return cmd
}

func newAccountOpenCmd() *cobra.Command {
	var (
		balance    int64
		privileged bool
	)
	cmd := &cobra.Command{
		Use:   "open <user>",
		Short: "Open an account",
		Args:  cobra.ExactArgs(1),
	}
	cmd.Flags().Int64Var(&balance, "balance", 0, "initial balance")
	cmd.Flags().BoolVar(&privileged, "privileged", false, "never charge this account")
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return withEngine(func(ctx context.Context, engine *app.App, out io.Writer) error {
			account, err := engine.Ledger.OpenAccount(ctx, args[0], balance, privileged)
			if err != nil {
				return err
			}
			return printJSON(out, account)
		})(cmd, args)
	}
	return cmd
}

func newAccountBalanceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "balance <user>",
		Short: "Print the current balance",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return withEngine(func(ctx context.Context, engine *app.App, out io.Writer) error {
			balance, err := engine.Ledger.Balance(ctx, args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(out, balance)
			return err
		})(cmd, args)
	}
	return cmd
}

func newAccountCreditCmd() *cobra.Command {
	var (
		operator string
		reason   string
		reward   bool
	)
	cmd := &cobra.Command{
		Use:   "credit <user> <amount>",
		Short: "Add units to an account",
		Args:  cobra.ExactArgs(2),
	}
	cmd.Flags().StringVar(&operator, "operator", "", "operator performing the credit")
	cmd.Flags().StringVar(&reason, "reason", "recharge", "reason recorded on the transaction")
	cmd.Flags().BoolVar(&reward, "reward", false, "record as a reward instead of a recharge")
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		amount, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid amount %q: %w", args[1], err)
		}
		txType := ledgermodels.TypeRecharge
		if reward {
			txType = ledgermodels.TypeReward
		}
		return withEngine(func(ctx context.Context, engine *app.App, out io.Writer) error {
			ctx = requestcontext.WithOperatorID(ctx, operator)
			balance, err := engine.Ledger.Credit(ctx, args[0], amount, txType, reason, operator)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(out, balance)
			return err
		})(cmd, args)
	}
	return cmd
}

func newAccountSetBalanceCmd() *cobra.Command {
	var operator, reason string
	cmd := &cobra.Command{
		Use:   "set-balance <user> <target>",
		Short: "Adjust an account to an exact balance",
		Args:  cobra.ExactArgs(2),
	}
	cmd.Flags().StringVar(&operator, "operator", "", "operator performing the adjustment")
	cmd.Flags().StringVar(&reason, "reason", "", "reason recorded on the transaction")
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		target, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid target %q: %w", args[1], err)
		}
		return withEngine(func(ctx context.Context, engine *app.App, out io.Writer) error {
			balance, err := engine.Ledger.SetBalance(ctx, args[0], target, operator, reason)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(out, balance)
			return err
		})(cmd, args)
	}
	return cmd
}

func newAccountHistoryCmd() *cobra.Command {
	var (
		txType        string
		limit, offset int
	)
	cmd := &cobra.Command{
		Use:   "history <user>",
		Short: "List transactions, newest first",
		Args:  cobra.ExactArgs(1),
	}
	cmd.Flags().StringVar(&txType, "type", "", "consumption, recharge, reward or deduction")
	cmd.Flags().IntVar(&limit, "limit", 0, "page size")
	cmd.Flags().IntVar(&offset, "offset", 0, "rows to skip")
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		filter := ledgermodels.HistoryFilter{
			UserID: args[0],
			Type:   ledgermodels.TransactionType(txType),
			Limit:  limit,
			Offset: offset,
		}
		if txType != "" && !filter.Type.IsValid() {
			return fmt.Errorf("unknown transaction type %q", txType)
		}
		return withEngine(func(ctx context.Context, engine *app.App, out io.Writer) error {
			page, err := engine.Ledger.History(ctx, filter)
			if err != nil {
				return err
			}
			return printJSON(out, page)
		})(cmd, args)
	}
	return cmd
}
