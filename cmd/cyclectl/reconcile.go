package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var reconcileDate string

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Recompute stored weekly summaries for a cycle",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, closeStore, err := openService()
		if err != nil {
			return err
		}
		defer closeStore()

		cycle, err := selectCycle(svc, reconcileDate)
		if err != nil {
			return err
		}
		res, err := svc.ReconcileSummaries(cmd.Context(), cycle)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Cycle %s: %d corrected, %d removed\n", cycle.Key(), res.Corrected, res.Removed)
		return nil
	},
}

func init() {
	reconcileCmd.Flags().StringVar(&reconcileDate, "date", "", "Any date in the cycle (default: display cycle)")
}
