package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/filippods/irriboard"
)

// watchCmd polls the backend and logs state changes, without the relay.
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Poll the backend and log state changes",
	Long: `Poll the irrigation backend and log its execution state.

Unlike serve, watch does not start the relay server. It is meant for
following a controller from a terminal or a log pipeline.

The console runs until interrupted (Ctrl+C) or receives SIGTERM.

Example:
  irriboard watch -c config.yaml`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = watchCmd.MarkFlagRequired("config")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.SlogLevel())

	opts := []irriboard.Option{
		irriboard.WithRequestTimeout(cfg.RequestTimeout.Duration()),
		irriboard.WithLogger(logger),
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Resolve program names up front so run events log something readable.
	if programs, err := console.Programs(ctx); err == nil {
		for _, p := range programs {
			logger.Info("program", "id", p.ID, "name", p.Name, "automatic", p.Automatic)
		}
	} else {
		logger.Warn("could not load program list", "error", err)
	}

	if err := console.Start(ctx); err != nil {
		return fmt.Errorf("console error: %w", err)
	}
	logger.Info("shutdown complete")
	return nil
}
