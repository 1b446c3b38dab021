/*
aggregate.go - Per-week totals for a set of records

PURPOSE:
  Buckets record durations into weekly intervals (normally the four weeks
  of a cycle) and totals them. The output feeds dashboards, the admin
  summary and the linear pay estimate.

RULES:
  - Drafts are never counted.
  - Soft-deleted records are excluded unless IncludeSoftDeleted is set
    (payroll history views).
  - ApprovedOnly counts approved and completed records only. Leave and
    training totals use it; plain work-hour totals count every submitted
    WorkEntry regardless of approval.
  - A minute-based record lands in the first interval holding its date and
    nowhere else. Day-based records (LeaveRequest) contribute one day to
    the interval holding each day of their span.
  - The queue-visibility window is a display filter and is never applied
    here.

PARTITION PROPERTY:
  For non-overlapping intervals, sum(PerWeek) == Total for records whose
  dates fall inside the intervals.
*/
package generic

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type AggregateOptions struct {
	ApprovedOnly       bool
	IncludeSoftDeleted bool
}

// Included reports whether r contributes to an aggregation.
func (o AggregateOptions) Included(r *Record) bool {
	if r.State == StateDraft || r.IsDraft {
		return false
	}
	if r.Deleted && !o.IncludeSoftDeleted {
		return false
	}
	if o.ApprovedOnly && !r.State.IsFinalized() {
		return false
	}
	return true
}

// Aggregation holds bucketed totals keyed by Period.Key().
type Aggregation struct {
	PerWeekMinutes map[string]int64
	PerWeekDays    map[string]int64
	TotalMinutes   int64
	TotalDays      int64
}

func newAggregation(intervals []Period) Aggregation {
	a := Aggregation{
		PerWeekMinutes: make(map[string]int64, len(intervals)),
		PerWeekDays:    make(map[string]int64, len(intervals)),
	}
	for _, iv := range intervals {
		a.PerWeekMinutes[iv.Key()] = 0
		a.PerWeekDays[iv.Key()] = 0
	}
	return a
}

// Aggregate sums the durations of records into intervals.
func Aggregate(records []Record, intervals []Period, opts AggregateOptions) (Aggregation, error) {
	agg := newAggregation(intervals)
	for i := range records {
		r := &records[i]
		if !opts.Included(r) {
			continue
		}
		kind, err := LookupKind(r.Kind)
		if err != nil {
			return Aggregation{}, err
		}
		amount, err := kind.Duration(r)
		if err != nil {
			return Aggregation{}, fmt.Errorf("record %s: %w", r.ID, err)
		}

		if amount.Unit == UnitDays {
			for _, day := range r.Span().Days() {
				if iv, ok := firstContaining(intervals, day); ok {
					agg.PerWeekDays[iv.Key()]++
					agg.TotalDays++
				}
			}
			continue
		}

		if iv, ok := firstContaining(intervals, r.Date); ok {
			minutes := amount.InMinutes()
			agg.PerWeekMinutes[iv.Key()] += minutes
			agg.TotalMinutes += minutes
		}
	}
	return agg, nil
}

func firstContaining(intervals []Period, day TimePoint) (Period, bool) {
	for _, iv := range intervals {
		if iv.Contains(day) {
			return iv, true
		}
	}
	return Period{}, false
}

// EstimatePay computes (wholeHours + minutes/60) * hourlyRate, rounded to cents.
func EstimatePay(totalMinutes int64, hourlyRate decimal.Decimal) decimal.Decimal {
	wholeHours := decimal.NewFromInt(totalMinutes / 60)
	remainder := decimal.NewFromInt(totalMinutes % 60).Div(decimal.NewFromInt(60))
	return wholeHours.Add(remainder).Mul(hourlyRate).Round(2)
}

// FormatMinutes renders minutes as H:MM for reports.
func FormatMinutes(minutes int64) string {
	sign := ""
	if minutes < 0 {
		sign, minutes = "-", -minutes
	}
	return fmt.Sprintf("%s%d:%02d", sign, minutes/60, minutes%60)
}
