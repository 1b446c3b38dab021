// Package timeoff implements leave records.
// A LeaveRequest books whole days; LeaveHours books part of a day.
package timeoff

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/warp/staff-hours/generic"
)

// =============================================================================
// LEAVE TYPES
// =============================================================================

// LeaveType classifies a leave record. Stored in Record.Category.
type LeaveType string

const (
	LeaveAnnual LeaveType = "annual"
	LeaveSick   LeaveType = "sick"
	LeaveUnpaid LeaveType = "unpaid"
	LeaveOther  LeaveType = "other"
)

func (t LeaveType) Valid() bool {
	switch t {
	case LeaveAnnual, LeaveSick, LeaveUnpaid, LeaveOther:
		return true
	}
	return false
}

// =============================================================================
// RECORD KINDS
// =============================================================================

const (
	KindLeaveRequest generic.Kind = "leave_request"
	KindLeaveHours   generic.Kind = "leave_hours"
)

// MaxLeaveDays bounds a single LeaveRequest span.
const MaxLeaveDays = 366

var maxHoursPerDay = decimal.NewFromInt(24)

// Register leave kinds with the generic registry
func init() {
	generic.RegisterKind(LeaveRequest{})
	generic.RegisterKind(LeaveHours{})
}

// LeaveRequest is leave over an inclusive date range, counted in days.
type LeaveRequest struct{}

// LeaveHours is leave for part of one day, counted in hours.
type LeaveHours struct{}

// Compile-time checks
var (
	_ generic.RecordKind = LeaveRequest{}
	_ generic.RecordKind = LeaveHours{}
)

func (LeaveRequest) Kind() generic.Kind { return KindLeaveRequest }

func (LeaveRequest) Validate(r *generic.Record) error {
	if r.Date.IsZero() {
		return generic.NewValidationError("startDate", "is required")
	}
	if r.EndDate.IsZero() {
		return generic.NewValidationError("endDate", "is required")
	}
	if r.EndDate.Before(r.Date) {
		return generic.NewValidationError("endDate", "must not be before the start date")
	}
	if days := generic.DaysBetween(r.Date, r.EndDate) + 1; days > MaxLeaveDays {
		return generic.NewValidationError("endDate", fmt.Sprintf("leave cannot span more than %d days", MaxLeaveDays))
	}
	return validateLeaveType(r)
}

// Duration counts calendar days in the span, both ends included.
func (LeaveRequest) Duration(r *generic.Record) (generic.Amount, error) {
	span := r.Span()
	return generic.Days(int64(generic.DaysBetween(span.Start, span.End) + 1)), nil
}

func (LeaveRequest) SupportsCompletion() bool  { return false }
func (LeaveRequest) OwnerMaySoftDelete() bool  { return false }
func (LeaveRequest) TracksWeeklySummary() bool { return false }

func (LeaveHours) Kind() generic.Kind { return KindLeaveHours }

func (LeaveHours) Validate(r *generic.Record) error {
	if r.Date.IsZero() {
		return generic.NewValidationError("date", "is required")
	}
	if !r.Hours.IsPositive() {
		return generic.NewValidationError("hours", "must be greater than zero")
	}
	if r.Hours.GreaterThan(maxHoursPerDay) {
		return generic.NewValidationError("hours", "cannot exceed 24")
	}
	if !r.EndDate.IsZero() && !r.EndDate.Equal(r.Date) {
		return generic.NewValidationError("endDate", "hourly leave covers a single day")
	}
	return validateLeaveType(r)
}

func (LeaveHours) Duration(r *generic.Record) (generic.Amount, error) {
	return generic.Hours(r.Hours), nil
}

func (LeaveHours) SupportsCompletion() bool  { return false }
func (LeaveHours) OwnerMaySoftDelete() bool  { return true }
func (LeaveHours) TracksWeeklySummary() bool { return false }

// validateLeaveType defaults an empty type to annual leave.
func validateLeaveType(r *generic.Record) error {
	if r.Category == "" {
		r.Category = string(LeaveAnnual)
		return nil
	}
	if !LeaveType(r.Category).Valid() {
		return generic.NewValidationError("leaveType", fmt.Sprintf("unknown leave type %q", r.Category))
	}
	return nil
}
