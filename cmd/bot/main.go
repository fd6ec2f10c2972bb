package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"

	"roulette-bot/internal/logger"
)

const programName = "bot"

var globalFlags = struct {
	debug bool
}{}

func commonRun(service string, debug bool) {
	logger.Init(service, debug || globalFlags.debug)
	if _, err := maxprocs.Set(maxprocs.Logger(log.Printf)); err != nil {
		log.Warn().Err(err).Msg("failed to set GOMAXPROCS")
	}
}

func main() {
	rootCmd := &cobra.Command{
		Use:           programName,
		Short:         "Telegram roulette bot",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().
		BoolVarP(&globalFlags.debug, "debug", "D", false, "enable debug logging")

	rootCmd.AddCommand(serveCommand())
	rootCmd.AddCommand(catalogCommand())
	rootCmd.AddCommand(ledgerCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", programName, err)
		os.Exit(1)
	}
}
