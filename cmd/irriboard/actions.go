package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/filippods/irriboard"
)

// actionTimeout bounds one-shot command invocations. It has to cover the
// full retry schedule (three attempts plus backoff) with room to spare.
const actionTimeout = 30 * time.Second

// runCmd starts an irrigation program.
var runCmd = &cobra.Command{
	Use:   "run <program-id>",
	Short: "Start an irrigation program",
	Long: `Start the given irrigation program on the backend.

The command retries transient transport failures up to three times. A
rejection from the backend (for example, another program already running)
is reported immediately without retry.

Example:
  irriboard run 3 -c config.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withConsole(cmd, func(ctx context.Context, console *irriboard.Console) error {
			if err := console.StartProgram(ctx, args[0]); err != nil {
				return fmt.Errorf("start program %s: %w", args[0], err)
			}
			fmt.Printf("Program %s started\n", args[0])
			return nil
		})
	},
}

// stopCmd stops the currently running program.
var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running program",
	Long: `Stop whatever program the backend is currently running.

Example:
  irriboard stop -c config.yaml`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withConsole(cmd, func(ctx context.Context, console *irriboard.Console) error {
			if err := console.StopProgram(ctx); err != nil {
				return fmt.Errorf("stop program: %w", err)
			}
			fmt.Println("Program stopped")
			return nil
		})
	},
}

// deleteCmd deletes a program.
var deleteCmd = &cobra.Command{
	Use:   "delete <program-id>",
	Short: "Delete an irrigation program",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withConsole(cmd, func(ctx context.Context, console *irriboard.Console) error {
			if err := console.DeleteProgram(ctx, args[0]); err != nil {
				return fmt.Errorf("delete program %s: %w", args[0], err)
			}
			fmt.Printf("Program %s deleted\n", args[0])
			return nil
		})
	},
}

// autoCmd toggles a program's automatic scheduling.
var autoCmd = &cobra.Command{
	Use:   "auto <program-id>",
	Short: "Enable or disable a program's automatic schedule",
	Long: `Enable or disable automatic scheduling for the given program.

Exactly one of --enable or --disable must be given.

Example:
  irriboard auto 3 --enable -c config.yaml
  irriboard auto 3 --disable -c config.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		enable, _ := cmd.Flags().GetBool("enable")
		disable, _ := cmd.Flags().GetBool("disable")
		if enable == disable {
			return fmt.Errorf("exactly one of --enable or --disable is required")
		}
		return withConsole(cmd, func(ctx context.Context, console *irriboard.Console) error {
			if err := console.SetAutomatic(ctx, args[0], enable); err != nil {
				return fmt.Errorf("set automatic for program %s: %w", args[0], err)
			}
			if enable {
				fmt.Printf("Program %s automatic schedule enabled\n", args[0])
			} else {
				fmt.Printf("Program %s automatic schedule disabled\n", args[0])
			}
			return nil
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{runCmd, stopCmd, deleteCmd, autoCmd} {
		c.Flags().StringP("config", "c", "", "path to config file (required)")
		_ = c.MarkFlagRequired("config")
		rootCmd.AddCommand(c)
	}
	autoCmd.Flags().Bool("enable", false, "enable automatic scheduling")
	autoCmd.Flags().Bool("disable", false, "disable automatic scheduling")
}

// withConsole builds a one-shot console from the command's config and runs
// fn against it with a bounded context. The console is never started, so
// no polling happens; only the command itself talks to the backend.
func withConsole(cmd *cobra.Command, fn func(context.Context, *irriboard.Console) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.SlogLevel())

	console, err := irriboard.New(cfg.BaseURL,
		irriboard.WithRequestTimeout(cfg.RequestTimeout.Duration()),
		irriboard.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("failed to create console: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()

	return fn(ctx, console)
}
