package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/warp/staff-hours/generic"
	"github.com/warp/staff-hours/logger"
	"github.com/warp/staff-hours/store/sqlite"
)

var (
	reportUser           string
	reportDate           string
	reportFormat         string
	reportIncludeDeleted bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Per-week totals and pay estimate for one user",
	Args:  cobra.NoArgs,
	RunE:  runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportUser, "user", "", "User id (required)")
	reportCmd.Flags().StringVar(&reportDate, "date", "", "Any date in the cycle (default: display cycle)")
	reportCmd.Flags().StringVar(&reportFormat, "format", "text", "Output format: text, json")
	reportCmd.Flags().BoolVar(&reportIncludeDeleted, "include-deleted", false, "Count soft-deleted records")
	_ = reportCmd.MarkFlagRequired("user")
}

// openService opens the configured store and wraps it in a RecordService.
func openService() (*generic.RecordService, func(), error) {
	store, err := sqlite.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, nil, err
	}
	svc := generic.NewRecordService(store, cfg.Cycle.Calendar(), logger.Log.WithField("component", "cyclectl"))
	svc.VisibilityWindow = cfg.Cycle.VisibilityWindow
	return svc, func() { store.Close() }, nil
}

// selectCycle returns the cycle containing date, or the display cycle.
func selectCycle(svc *generic.RecordService, date string) (generic.Cycle, error) {
	if date == "" {
		return svc.Calendar.ResolveDisplayCycle(svc.Now()).Cycle, nil
	}
	d, err := generic.ParseDate(date)
	if err != nil {
		return generic.Cycle{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", date)
	}
	return svc.Calendar.CycleContaining(d), nil
}

func runReport(cmd *cobra.Command, args []string) error {
	svc, closeStore, err := openService()
	if err != nil {
		return err
	}
	defer closeStore()

	cycle, err := selectCycle(svc, reportDate)
	if err != nil {
		return err
	}
	report, err := svc.CycleReport(cmd.Context(), generic.UserID(reportUser), cycle, generic.ReportOptions{
		HourlyRate:         cfg.Cycle.Rate(),
		IncludeSoftDeleted: reportIncludeDeleted,
	})
	if err != nil {
		return err
	}

	switch reportFormat {
	case "json":
		return writeReportJSON(cmd.OutOrStdout(), report)
	case "text":
		writeReportText(cmd.OutOrStdout(), report)
		return nil
	default:
		return fmt.Errorf("unknown format %q", reportFormat)
	}
}

func writeReportText(out io.Writer, report generic.CycleReport) {
	fmt.Fprintf(out, "User %s", report.UserID)
	if report.UserName != "" {
		fmt.Fprintf(out, " (%s)", report.UserName)
	}
	fmt.Fprintf(out, ", cycle %d: %s to %s\n\n", report.Cycle.Index, report.Cycle.Start(), report.Cycle.End())

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprint(w, "KIND")
	for i := range report.Cycle.Weeks {
		fmt.Fprintf(w, "\tWEEK %d", i+1)
	}
	fmt.Fprint(w, "\tTOTAL\n")
	for _, kt := range report.Kinds {
		fmt.Fprint(w, kt.Kind)
		for _, week := range report.Cycle.Intervals() {
			fmt.Fprintf(w, "\t%s", formatCell(kt.PerWeekMinutes[week.Key()], kt.PerWeekDays[week.Key()]))
		}
		fmt.Fprintf(w, "\t%s\n", formatCell(kt.TotalMinutes, kt.TotalDays))
	}
	w.Flush()

	fmt.Fprintf(out, "\nPay hours: %s  Estimated pay: %s\n", generic.FormatMinutes(report.PayMinutes), report.EstimatedPay.StringFixed(2))
}

func formatCell(minutes, days int64) string {
	if days > 0 {
		return fmt.Sprintf("%dd", days)
	}
	return generic.FormatMinutes(minutes)
}

type weekJSON struct {
	WeekStart string `json:"week_start"`
	Minutes   int64  `json:"minutes"`
	Days      int64  `json:"days"`
}

type kindJSON struct {
	Kind         string     `json:"kind"`
	TotalMinutes int64      `json:"total_minutes"`
	TotalDays    int64      `json:"total_days"`
	Weeks        []weekJSON `json:"weeks"`
}

func writeReportJSON(out io.Writer, report generic.CycleReport) error {
	doc := struct {
		UserID       string     `json:"user_id"`
		CycleStart   string     `json:"cycle_start"`
		CycleEnd     string     `json:"cycle_end"`
		Kinds        []kindJSON `json:"kinds"`
		PayMinutes   int64      `json:"pay_minutes"`
		EstimatedPay string     `json:"estimated_pay"`
	}{
		UserID:       string(report.UserID),
		CycleStart:   report.Cycle.Start().String(),
		CycleEnd:     report.Cycle.End().String(),
		PayMinutes:   report.PayMinutes,
		EstimatedPay: report.EstimatedPay.StringFixed(2),
	}
	for _, kt := range report.Kinds {
		k := kindJSON{Kind: string(kt.Kind), TotalMinutes: kt.TotalMinutes, TotalDays: kt.TotalDays}
		for _, week := range report.Cycle.Intervals() {
			k.Weeks = append(k.Weeks, weekJSON{
				WeekStart: week.Key(),
				Minutes:   kt.PerWeekMinutes[week.Key()],
				Days:      kt.PerWeekDays[week.Key()],
			})
		}
		doc.Kinds = append(doc.Kinds, k)
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
