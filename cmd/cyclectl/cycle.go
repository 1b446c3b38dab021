package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/warp/staff-hours/generic"
)

var cycleCmd = &cobra.Command{
	Use:   "cycle [date]",
	Short: "Show the cycle containing a date (default today)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCycle,
}

func runCycle(cmd *cobra.Command, args []string) error {
	date := generic.Today()
	if len(args) == 1 {
		d, err := generic.ParseDate(args[0])
		if err != nil {
			return fmt.Errorf("invalid date %q, expected YYYY-MM-DD", args[0])
		}
		date = d
	}
	c := cfg.Cycle.Calendar().CycleContaining(date)
	printCycle(cmd.OutOrStdout(), c, date)
	return nil
}

func printCycle(w io.Writer, c generic.Cycle, marker generic.TimePoint) {
	fmt.Fprintf(w, "Cycle %d: %s to %s\n", c.Index, c.Start(), c.End())
	for i, week := range c.Weeks {
		mark := ""
		if week.Contains(marker) {
			mark = "  <"
		}
		fmt.Fprintf(w, "  Week %d: %s to %s%s\n", i+1, week.Start, week.End, mark)
	}
}

var graceCmd = &cobra.Command{
	Use:   "grace [datetime]",
	Short: "Show the display cycle at an instant (default now)",
	Long: `Resolves which cycle dashboards and approval queues show at an instant.
The instant is local time in one of: 2006-01-02T15:04:05, 2006-01-02T15:04,
2006-01-02, or RFC 3339.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runGrace,
}

var instantLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02T15:04", generic.DateLayout}

func parseInstant(s string) (time.Time, error) {
	for _, layout := range instantLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid datetime %q", s)
}

func runGrace(cmd *cobra.Command, args []string) error {
	now := time.Now()
	if len(args) == 1 {
		t, err := parseInstant(args[0])
		if err != nil {
			return err
		}
		now = t
	}
	dc := cfg.Cycle.Calendar().ResolveDisplayCycle(now)

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "At %s\n", now.Format("2006-01-02 15:04:05 MST"))
	printCycle(w, dc.Cycle, generic.DateOf(now))
	if dc.IsGracePeriod {
		fmt.Fprintf(w, "Grace period: yes, until %s\n", dc.GraceEnd.Format("2006-01-02 15:04:05"))
	} else {
		fmt.Fprintln(w, "Grace period: no")
	}
	return nil
}
