// Command secagg-client drives one participant's session against a
// running secagg-coordinator: it connects, exchanges keys and seeds,
// submits its masked vector, and prints the final aggregation result.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sage-x-project/secagg/client"
	"github.com/sage-x-project/secagg/config"
	"github.com/sage-x-project/secagg/internal/logger"
	"github.com/sage-x-project/secagg/mask"
	"github.com/sage-x-project/secagg/transport/ws"
)

var rootCmd = &cobra.Command{
	Use:   "secagg-client",
	Short: "Secure aggregation participant",
	Long: `secagg-client connects to a secagg-coordinator, contributes one
private vector to the pairwise-masking secure aggregation protocol, and
prints the resulting sum once every participant has submitted.`,
	RunE: runClient,
}

const wsPath = "/secagg"

var (
	configPath  string
	vectorFlag  string
	coordinator string
	maskModeFlag string
	timeout     time.Duration
)

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.Flags().StringVar(&configPath, "config", "", "path to a YAML config file (optional)")
	rootCmd.Flags().StringVar(&vectorFlag, "vector", "", "comma-separated private vector, e.g. 1,2,3 (overrides config)")
	rootCmd.Flags().StringVar(&coordinator, "coordinator", "", "coordinator host:port (overrides config)")
	rootCmd.Flags().StringVar(&maskModeFlag, "mask-mode", "scalar", "scalar or vector; every client in the session must use the same mode")
	rootCmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "deadline for the whole session to complete")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runClient(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadClientConfig(configPath)
	if err != nil {
		return fmt.Errorf("secagg-client: %w", err)
	}
	if cmd.Flags().Changed("vector") {
		vec, err := parseVector(vectorFlag)
		if err != nil {
			return fmt.Errorf("secagg-client: %w", err)
		}
		cfg.PrivateVector = vec
	}
	if cmd.Flags().Changed("coordinator") {
		cfg.Host, cfg.Port = splitHostPort(coordinator)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("secagg-client: %w", err)
	}

	mode := mask.ScalarMode
	if maskModeFlag == "vector" {
		mode = mask.VectorMode
	}

	log := logger.NewDefaultLogger()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	url := fmt.Sprintf("ws://%s:%d%s", cfg.Host, cfg.Port, wsPath)
	conn, err := ws.Dial(ctx, url)
	if err != nil {
		return fmt.Errorf("secagg-client: dial %s: %w", url, err)
	}
	defer conn.Close()

	c := client.New(conn, cfg.PrivateVector, mode, log)
	result, err := c.Run(ctx)
	if err != nil {
		return fmt.Errorf("secagg-client: %w", err)
	}

	fmt.Println(formatResult(result))
	return nil
}

func parseVector(s string) ([]int64, error) {
	parts := strings.Split(s, ",")
	out := make([]int64, len(parts))
	for i, p := range parts {
		n, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid vector component %q: %w", p, err)
		}
		out[i] = n
	}
	return out, nil
}

func splitHostPort(addr string) (host string, port int) {
	idx := strings.LastIndex(addr, ":")
	if idx < 0 {
		return addr, 0
	}
	host = addr[:idx]
	if host == "" {
		host = "localhost"
	}
	port, _ = strconv.Atoi(addr[idx+1:])
	return host, port
}

func formatResult(result []int64) string {
	strs := make([]string, len(result))
	for i, v := range result {
		strs[i] = strconv.FormatInt(v, 10)
	}
	return "[" + strings.Join(strs, ", ") + "]"
}
