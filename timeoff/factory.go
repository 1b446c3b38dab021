/*
Package timeoff provides leave payload factory functions.

These functions build JSON record payloads for leave kinds. They construct
JSON strings directly to avoid import cycles with the factory package.

USAGE:
  import "github.com/warp/staff-hours/timeoff"

  payload := timeoff.LeaveRequestJSON(start, end, timeoff.LeaveAnnual, "")
  record, isDraft, err := recordFactory.ParseRecord([]byte(payload))
*/
package timeoff

import (
	"encoding/json"

	"github.com/warp/staff-hours/generic"
)

// LeaveRequestJSON returns JSON for a whole-day leave request.
func LeaveRequestJSON(start, end generic.TimePoint, leaveType LeaveType, notes string) string {
	pj := map[string]interface{}{
		"kind":       string(KindLeaveRequest),
		"start_date": start.String(),
		"end_date":   end.String(),
		"leave_type": string(leaveType),
	}
	if notes != "" {
		pj["notes"] = notes
	}
	b, _ := json.MarshalIndent(pj, "", "  ")
	return string(b)
}

// LeaveHoursJSON returns JSON for part-day leave.
func LeaveHoursJSON(date generic.TimePoint, hours float64, leaveType LeaveType, notes string) string {
	pj := map[string]interface{}{
		"kind":       string(KindLeaveHours),
		"date":       date.String(),
		"hours":      hours,
		"leave_type": string(leaveType),
	}
	if notes != "" {
		pj["notes"] = notes
	}
	b, _ := json.MarshalIndent(pj, "", "  ")
	return string(b)
}

// SickDayJSON returns JSON for a single sick day.
func SickDayJSON(date generic.TimePoint) string {
	return LeaveRequestJSON(date, date, LeaveSick, "")
}
