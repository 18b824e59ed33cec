package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const version = "v1.2.0"

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	if term.IsTerminal(int(os.Stderr.Fd())) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}

	rootCmd := &cobra.Command{
		Use:     "edgegate",
		Short:   "Opportunity scoring and risk-gating for bounded-risk positions",
		Version: version,
		Long: `EdgeGate evaluates trading and betting opportunities, converts them into a
bounded risk decision, and persists an auditable record (structured data,
executive summary, printable report) for every approved position.

Run 'edgegate serve' to start the HTTP API, or 'edgegate score' /
'edgegate evaluate' for offline use.`,
	}

	rootCmd.PersistentFlags().String("config", "", "Path to yaml config file")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newScoreCmd())
	rootCmd.AddCommand(newEvaluateCmd())

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
