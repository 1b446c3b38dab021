/*
cyclectl - Pay cycle and report tool

PURPOSE:
  Debugging and reporting companion to the server. Reads the same
  configuration (.env, config.yaml, environment) so cycle boundaries always
  agree with the running service.

COMMANDS:
  cycle [date]           Cycle containing a date (default today)
  grace [datetime]       Display cycle and grace window at an instant
  report --user [--date] Per-week totals and pay estimate for one user
  reconcile [--date]     Recompute stored weekly summaries for a cycle
  token --user [--admin] Sign a bearer token for local testing
*/
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/warp/staff-hours/config"
	"github.com/warp/staff-hours/logger"
)

// cfg is loaded once before any command runs.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:           "cyclectl",
	Short:         "Inspect pay cycles and staff hour totals",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cfg != nil {
			return nil
		}
		loaded, err := config.Load()
		if err != nil {
			return err
		}
		cfg = loaded
		logger.Init(cfg.Log).SetOutput(cmd.ErrOrStderr())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cycleCmd)
	rootCmd.AddCommand(graceCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(reconcileCmd)
	rootCmd.AddCommand(tokenCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
