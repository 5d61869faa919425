package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/filippods/irriboard"
)

const (
	shutdownTimeout = 10 * time.Second

	// defaultRelayPort is used when serve runs with a config that leaves
	// relay_port unset. The relay is the whole point of serve.
	defaultRelayPort = 8080
)

// serveCmd polls the backend and serves the read-only relay.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Poll the backend and serve the state relay",
	Long: `Poll the irrigation backend and serve its state to relay clients.

The console will:
  - Load configuration from the specified YAML file
  - Poll the backend's execution state at the adaptive cadence
  - Serve the latest state over HTTP, SSE, and WebSocket
  - Record run start/end events to the history log when configured

The console runs until interrupted (Ctrl+C) or receives SIGTERM.

Example:
  irriboard serve -c config.yaml
  irriboard serve --config /etc/irriboard/config.yaml`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = serveCmd.MarkFlagRequired("config")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.SlogLevel())

	relayPort := cfg.RelayPort
	if relayPort == 0 {
		relayPort = defaultRelayPort
	}

	logger.Info("config loaded",
		"base_url", cfg.BaseURL,
		"relay_port", relayPort,
		"history", cfg.HistoryPath != "",
	)

	opts := []irriboard.Option{
		irriboard.WithRequestTimeout(cfg.RequestTimeout.Duration()),
		irriboard.WithLogger(logger),
		irriboard.WithRelay(relayPort),
		irriboard.WithRenderer(irriboard.NewLogRenderer(logger)),
		irriboard.WithNotifier(&irriboard.LogNotifier{Logger: logger}),
	}
	if cfg.HistoryPath != "" {
		opts = append(opts, irriboard.WithHistory(cfg.HistoryPath))
	}

	console, err := irriboard.New(cfg.BaseURL, opts...)
	if err != nil {
		return fmt.Errorf("failed to create console: %w", err)
	}

	// set up context with signal handling - cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// start console - blocks until context cancelled
	errChan := make(chan error, 1)
	go func() {
		errChan <- console.Start(ctx)
	}()

	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("console error: %w", err)
		}
		logger.Info("shutdown complete")
		return nil

	case <-ctx.Done():
		// signal received, wait for graceful shutdown with timeout
		select {
		case err := <-errChan:
			if err != nil {
				return fmt.Errorf("console error: %w", err)
			}
			logger.Info("shutdown complete")
			return nil
		case <-time.After(shutdownTimeout):
			logger.Warn("shutdown timed out",
				"timeout", shutdownTimeout.String(),
				"action", "forcing exit",
			)
			return nil
		}
	}
}
