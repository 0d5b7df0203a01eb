package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "cachedrpc",
	Short: "Caching forward proxy for JSON-RPC blockchain endpoints",
	Long:  "cachedrpc proxies JSON-RPC batches to upstream Ethereum-family nodes, caching reorg-aware results per chain.",
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to config file (defaults to ./conf.toml)")
	rootCmd.AddCommand(ServerCmd())
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
