// Package main is the entry point for the irriboard CLI.
//
// irriboard can be run either as a library (SDK) or as a standalone binary
// with YAML configuration. This CLI provides the standalone binary approach.
//
// Usage:
//
//	irriboard serve -c config.yaml      # Poll the backend and serve the relay
//	irriboard watch -c config.yaml      # Poll the backend and log state lines
//	irriboard run 3 -c config.yaml      # Start program 3
//	irriboard stop -c config.yaml       # Stop the running program
//	irriboard status -c config.yaml     # One-shot state query
//	irriboard validate -c config.yaml   # Validate configuration
//	irriboard version                   # Show version info
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/filippods/irriboard/config"
)

// Version information - set by GoReleaser at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the base command when called without subcommands.
// It just displays help - actual functionality is in subcommands.
var rootCmd = &cobra.Command{
	Use:   "irriboard",
	Short: "A headless console for an irrigation controller",
	Long: `irriboard is a headless dashboard controller for an irrigation backend.

It polls the backend's program execution state at an adaptive cadence
(faster while a program is running), logs or relays the state, and issues
control commands with bounded retry.

Quick start:
  1. Create a config file (irriboard.yaml):

       base_url: http://sprinkler.local:8080

  2. Run: irriboard watch -c irriboard.yaml
  3. Start a program: irriboard run 3 -c irriboard.yaml`,
	// No Run/RunE means this just shows help when called without subcommands
}

// Execute runs the root command.
// This is the main entry point called from main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error, just exit with code 1
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this irriboard binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("irriboard %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}

func init() {
	// Register subcommands with root
	rootCmd.AddCommand(versionCmd)
}

// loadConfig loads the config file named by the command's --config flag.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// newLogger creates a JSON logger for CLI use at the configured level.
func newLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}
