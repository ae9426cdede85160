package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/octanelabs/bolt/bundler"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the bundler core",
	Long:  `Initialize the mempool, gas price manager and wallet pool, then serve until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return bundler.RunWithConfig(ctx, config)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
