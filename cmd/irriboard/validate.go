package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/filippods/irriboard/config"
)

// validateCmd validates a config file without starting the console.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate an irriboard configuration file without starting the console.

This command parses the YAML, expands environment variables, and validates
all fields. It's useful for CI/CD pipelines or pre-deployment checks.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  irriboard validate -c config.yaml
  irriboard validate --config /etc/irriboard/config.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = validateCmd.MarkFlagRequired("config")
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	relay := "disabled"
	if cfg.RelayPort != 0 {
		relay = fmt.Sprintf("port %d", cfg.RelayPort)
	}
	historyLog := "disabled"
	if cfg.HistoryPath != "" {
		historyLog = cfg.HistoryPath
	}

	fmt.Printf("Config is valid!\n")
	fmt.Printf("  Backend:         %s\n", cfg.BaseURL)
	fmt.Printf("  Request timeout: %s\n", cfg.RequestTimeout.Duration())
	fmt.Printf("  Relay:           %s\n", relay)
	fmt.Printf("  History log:     %s\n", historyLog)
	fmt.Printf("  Log level:       %s\n", cfg.LogLevel)

	return nil
}
