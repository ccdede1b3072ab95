package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// newRootCommand builds the command tree. Running it without a subcommand serves the API.
func newRootCommand() *cobra.Command {
	serve := newServeCommand()
	root := &cobra.Command{
		Use:   "eventsapi",
		Short: "Event manager HTTP API",
		Long: `eventsapi serves the event management API: create, list, update and delete
events with speakers, registrations and location conflict checks.

Configuration is read from the environment (and a .env file outside production).`,
		SilenceUsage: true,
		RunE:         serve.RunE,
	}
	root.Flags().AddFlagSet(serve.Flags())
	root.AddCommand(serve, newMigrateCommand(), newTokenCommand())
	return root
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
