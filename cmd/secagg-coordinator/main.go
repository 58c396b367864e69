// Command secagg-coordinator runs the coordinator side of the
// pairwise-masking aggregation protocol: it listens for client
// connections, drives the session state machine of §4.4, and serves
// prometheus metrics alongside a small admin HTTP surface for the
// broadcast subcommand.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "secagg-coordinator",
	Short: "Secure aggregation coordinator",
	Long: `secagg-coordinator admits a fixed number of participants, relays
their encrypted pairwise seeds, sums their masked vectors, and broadcasts
the result — the coordinator half of the pairwise-masking secure
aggregation protocol.`,
	RunE: runServe,
}

var (
	configPath   string
	threshold    int
	base         int64
	listenAddr   string
	vectorLength int
	maskMode     string
	metricsAddr  string
	adminAddr    string
)

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.Flags().StringVar(&configPath, "config", "", "path to a YAML config file (optional)")
	rootCmd.Flags().IntVar(&threshold, "threshold", 0, "required number of participants (overrides config)")
	rootCmd.Flags().Int64Var(&base, "base", 0, "modular base for all arithmetic (overrides config)")
	rootCmd.Flags().StringVar(&listenAddr, "listen", "", "host:port to listen on (overrides config)")
	rootCmd.Flags().IntVar(&vectorLength, "vector-length", 0, "length of each client's vector (overrides config)")
	rootCmd.Flags().StringVar(&maskMode, "mask-mode", "", "scalar or vector (overrides config)")
	rootCmd.Flags().StringVar(&metricsAddr, "metrics-addr", ":9090", "address to serve /metrics on")
	rootCmd.Flags().StringVar(&adminAddr, "admin-addr", ":9091", "address to serve the admin broadcast endpoint on")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
