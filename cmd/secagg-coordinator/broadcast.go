package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

var broadcastCmd = &cobra.Command{
	Use:   "broadcast <text>",
	Short: "Send an operator announcement to every connected client",
	Long: `broadcast posts a free-text message frame to a running
coordinator's admin endpoint, which relays it to every currently connected
client as a §4.5 TypeText frame. It never touches protocol state.`,
	Args: cobra.ExactArgs(1),
	RunE: runBroadcast,
}

var broadcastAdminAddr string

func init() {
	rootCmd.AddCommand(broadcastCmd)
	broadcastCmd.Flags().StringVar(&broadcastAdminAddr, "admin-addr", "localhost:9091", "running coordinator's admin address")
}

func runBroadcast(cmd *cobra.Command, args []string) error {
	body, err := json.Marshal(broadcastRequest{Text: args[0]})
	if err != nil {
		return err
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Post(fmt.Sprintf("http://%s/broadcast", broadcastAdminAddr), "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("broadcast: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("broadcast: coordinator returned %s", resp.Status)
	}
	fmt.Println("broadcast sent")
	return nil
}
