package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

type options struct {
	baseURL string
	timeout time.Duration
	actor   string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "ledgerctl",
		Short:         "Nexum ledger CLI",
		Long:          `A command line interface for the Nexum ledger API and its database.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.baseURL, "url", envOr("LEDGER_URL", "http://localhost:8080"), "Base URL of the ledger API")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "Request timeout")
	rootCmd.PersistentFlags().StringVar(&opts.actor, "actor", envOr("LEDGER_ACTOR", "ledgerctl"), "Actor recorded on audit events")

	rootCmd.AddCommand(
		scheduleCmd(),
		accrueCmd(opts),
		balanceCmd(opts),
		statementCmd(opts),
		auditCmd(opts),
		reconcileCmd(opts),
		txCmd(opts),
		migrateCmd(),
	)

	return rootCmd
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
