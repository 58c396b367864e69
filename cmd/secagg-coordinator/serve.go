package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sage-x-project/secagg/config"
	"github.com/sage-x-project/secagg/internal/logger"
	"github.com/sage-x-project/secagg/internal/metrics"
	"github.com/sage-x-project/secagg/session"
	"github.com/sage-x-project/secagg/transport/ws"
)

const wsPath = "/secagg"

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadCoordinatorConfig(configPath)
	if err != nil {
		return fmt.Errorf("secagg-coordinator: %w", err)
	}
	applyCoordinatorFlagOverrides(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("secagg-coordinator: %w", err)
	}

	log := logger.NewDefaultLogger()
	log.Info("starting coordinator",
		logger.Int("threshold", cfg.Threshold),
		logger.Int("vector_length", cfg.VectorLength),
		logger.String("listen", fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)),
		logger.String("mask_mode", cfg.MaskMode),
	)

	coord := session.NewCoordinator(cfg, log)

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	listener, err := ws.Listen(addr, wsPath)
	if err != nil {
		return fmt.Errorf("secagg-coordinator: listen: %w", err)
	}
	defer listener.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	metricsSrv := startMetricsServer(metricsAddr)
	defer shutdownServer(metricsSrv)

	adminSrv := startAdminServer(adminAddr, coord, log)
	defer shutdownServer(adminSrv)

	go acceptLoop(ctx, listener, coord, log)

	<-ctx.Done()
	log.Info("shutting down")
	return nil
}

func acceptLoop(ctx context.Context, listener *ws.Listener, coord *session.Coordinator, log logger.Logger) {
	for {
		conn, err := listener.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warn("accept failed", logger.Error(err))
			return
		}
		go coord.HandleConnection(ctx, conn)
	}
}

func startMetricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "metrics server: %v\n", err)
		}
	}()
	return srv
}

func shutdownServer(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}

func applyCoordinatorFlagOverrides(cmd *cobra.Command, cfg *config.CoordinatorConfig) {
	if cmd.Flags().Changed("threshold") {
		cfg.Threshold = threshold
	}
	if cmd.Flags().Changed("base") {
		cfg.Base = base
	}
	if cmd.Flags().Changed("listen") {
		cfg.Host, cfg.Port = splitHostPort(listenAddr)
	}
	if cmd.Flags().Changed("vector-length") {
		cfg.VectorLength = vectorLength
	}
	if cmd.Flags().Changed("mask-mode") {
		cfg.MaskMode = maskMode
	}
}
