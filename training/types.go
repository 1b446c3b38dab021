// Package training implements training records: hours spent on a course,
// approved by an administrator and then marked completed.
package training

import (
	"github.com/shopspring/decimal"

	"github.com/warp/staff-hours/generic"
)

// KindTraining is the registered name of training records.
const KindTraining generic.Kind = "training"

// MaxHoursPerDay bounds a single training record.
var MaxHoursPerDay = decimal.NewFromInt(24)

// Record is a training session on one day.
type Record struct{}

var _ generic.RecordKind = Record{}

func init() {
	generic.RegisterKind(Record{})
}

func (Record) Kind() generic.Kind { return KindTraining }

func (Record) Validate(r *generic.Record) error {
	if r.Date.IsZero() {
		return generic.NewValidationError("date", "is required")
	}
	if !r.Hours.IsPositive() {
		return generic.NewValidationError("hours", "must be greater than zero")
	}
	if r.Hours.GreaterThan(MaxHoursPerDay) {
		return generic.NewValidationError("hours", "cannot exceed 24")
	}
	if r.Category == "" {
		return generic.NewValidationError("title", "a course title is required")
	}
	if !r.EndDate.IsZero() && !r.EndDate.Equal(r.Date) {
		return generic.NewValidationError("endDate", "a training record covers a single day")
	}
	return nil
}

func (Record) Duration(r *generic.Record) (generic.Amount, error) {
	return generic.Hours(r.Hours), nil
}

func (Record) SupportsCompletion() bool  { return true }
func (Record) OwnerMaySoftDelete() bool  { return true }
func (Record) TracksWeeklySummary() bool { return false }
