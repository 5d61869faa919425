package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/filippods/irriboard/internal/history"
)

const historyQueryTimeout = 5 * time.Second

// historyCmd lists recent run events from the history log.
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent program run events",
	Long: `List recent run start/end events from the history log.

Requires history_path to be set in the config file. Events are printed
newest first.

Example:
  irriboard history -c config.yaml
  irriboard history -c config.yaml --limit 50`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = historyCmd.MarkFlagRequired("config")
	historyCmd.Flags().Int("limit", 20, "maximum number of events to show")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.HistoryPath == "" {
		return fmt.Errorf("history_path is not set in the config")
	}
	limit, _ := cmd.Flags().GetInt("limit")

	repo, err := history.Open(cfg.HistoryPath)
	if err != nil {
		return fmt.Errorf("open history log: %w", err)
	}
	defer repo.Close()

	ctx, cancel := context.WithTimeout(context.Background(), historyQueryTimeout)
	defer cancel()

	events, err := repo.Recent(ctx, limit)
	if err != nil {
		return fmt.Errorf("query history: %w", err)
	}

	if len(events) == 0 {
		fmt.Println("No run events recorded")
		return nil
	}

	for _, ev := range events {
		fmt.Printf("%s  %-7s  program %s\n",
			ev.At.Local().Format(time.RFC3339), ev.Kind, ev.ProgramID)
	}
	return nil
}
