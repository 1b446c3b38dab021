// Package timesheet implements work entries: clocked shifts that feed the
// per-cycle weekly summary and the pay estimate.
package timesheet

import (
	"github.com/warp/staff-hours/generic"
)

// KindWorkEntry is the registered name of work entries.
const KindWorkEntry generic.Kind = "work_entry"

// WorkEntry is a shift worked on one day, clocked in HH:MM.
type WorkEntry struct{}

// Compile-time check that WorkEntry implements generic.RecordKind
var _ generic.RecordKind = WorkEntry{}

func init() {
	generic.RegisterKind(WorkEntry{})
}

func (WorkEntry) Kind() generic.Kind { return KindWorkEntry }

func (WorkEntry) Validate(r *generic.Record) error {
	if r.Date.IsZero() {
		return generic.NewValidationError("date", "is required")
	}
	if r.StartTime == "" || r.EndTime == "" {
		return generic.NewValidationError("time", "start and end times are required")
	}
	minutes, err := MinutesBetween(r.StartTime, r.EndTime)
	if err != nil {
		return err
	}
	if minutes == 0 {
		return generic.NewValidationError("time", "start and end times must differ")
	}
	if !r.EndDate.IsZero() && !r.EndDate.Equal(r.Date) {
		return generic.NewValidationError("endDate", "a work entry covers a single day")
	}
	return nil
}

func (WorkEntry) Duration(r *generic.Record) (generic.Amount, error) {
	minutes, err := MinutesBetween(r.StartTime, r.EndTime)
	if err != nil {
		return generic.Amount{}, err
	}
	return generic.Minutes(minutes), nil
}

func (WorkEntry) SupportsCompletion() bool { return false }

// Approved shifts are payroll history; only an administrator may remove them.
func (WorkEntry) OwnerMaySoftDelete() bool { return false }

func (WorkEntry) TracksWeeklySummary() bool { return true }
