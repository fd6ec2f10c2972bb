package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"roulette-bot/internal/config"
	"roulette-bot/internal/repository"
)

func ledgerCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Maintain the inventory ledger",
	}

	var timeout time.Duration
	cmd.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Minute, "maximum run time")

	cmd.AddCommand(&cobra.Command{
		Use:   "rebuild",
		Short: "Recompute inventory counts from the grant log",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLedger(cmd.Context(), timeout, func(ctx context.Context, l repository.Ledger) error {
				n, err := l.Rebuild(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "rebuilt %d inventory rows\n", n)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "verify",
		Short: "Compare inventory counts with the grant log",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLedger(cmd.Context(), timeout, func(ctx context.Context, l repository.Ledger) error {
				mismatches, err := l.Verify(ctx)
				if err != nil {
					return err
				}
				for _, m := range mismatches {
					fmt.Fprintf(cmd.OutOrStdout(), "user %d item %d: aggregate %d, log %d\n",
						m.UserID, m.ItemID, m.Aggregate, m.Logged)
				}
				if len(mismatches) > 0 {
					return fmt.Errorf("%d mismatched rows, run `%s ledger rebuild`", len(mismatches), programName)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "ledger consistent")
				return nil
			})
		},
	})

	return cmd
}

func withLedger(ctx context.Context, timeout time.Duration, fn func(context.Context, repository.Ledger) error) error {
	cfg, err := config.LoadForTools()
	if err != nil {
		return err
	}
	commonRun(cfg.App.Name, cfg.App.Debug)

	l, err := repository.Open(cfg.Ledger)
	if err != nil {
		return err
	}
	defer l.Close()
	log.Info().Str("db_type", cfg.Ledger.Type).Msg("ledger opened")

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(ctx, l)
}
