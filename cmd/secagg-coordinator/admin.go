package main

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sage-x-project/secagg/internal/logger"
	"github.com/sage-x-project/secagg/session"
)

// broadcastRequest is the JSON body the `secagg-coordinator broadcast`
// subcommand posts to the admin server's /broadcast endpoint.
type broadcastRequest struct {
	Text string `json:"text"`
}

// startAdminServer serves the operator-only surface §12 describes: a
// broadcast endpoint that relays a free-text TypeText frame to every
// connected client, independent of protocol state.
func startAdminServer(addr string, coord *session.Coordinator, log logger.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/broadcast", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req broadcastRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Text == "" {
			http.Error(w, "bad request: expected {\"text\": \"...\"}", http.StatusBadRequest)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		coord.BroadcastText(ctx, req.Text)
		log.Info("admin broadcast sent", logger.String("text", req.Text))
		w.WriteHeader(http.StatusNoContent)
	})
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}

// splitHostPort parses "host:port" flags, defaulting host to "localhost"
// if only a bare port (":8001") is given.
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
