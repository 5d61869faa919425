package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/filippods/irriboard"
)

// statusCmd performs a one-shot state query.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the backend's current execution state",
	Long: `Query the irrigation backend once and print its execution state.

Example:
  irriboard status -c config.yaml`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = statusCmd.MarkFlagRequired("config")
}

func runStatus(cmd *cobra.Command, args []string) error {
	return withConsole(cmd, func(ctx context.Context, console *irriboard.Console) error {
		state, err := console.CurrentState(ctx)
		if err != nil {
			return fmt.Errorf("query state: %w", err)
		}

		if !state.ProgramRunning {
			fmt.Println("Idle: no program running")
			return nil
		}

		fmt.Printf("Running: program %s\n", state.CurrentProgramID)
		if z := state.ActiveZone; z != nil {
			fmt.Printf("  Zone:      %s (id %d)\n", z.Name, z.ID)
			fmt.Printf("  Remaining: %ds\n", z.RemainingSeconds)
		}
		return nil
	})
}
