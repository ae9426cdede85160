package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	config  = "./config/bundler.yaml"
	rootCmd = &cobra.Command{
		Use:   "bolt",
		Short: "bolt ERC-4337 bundler",
		Long: `bolt runs the account-abstraction bundler core: the user operation
mempool, the gas price manager and the executor wallet pool.

Start it with "bolt run --config=path-to-your-config-file".
`,
	}
)

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&config, "config", "c", "./config/bundler.yaml", "Path to config file")
}
