package timesheet

import (
	"encoding/json"

	"github.com/warp/staff-hours/generic"
)

// WorkEntryJSON returns JSON for a work entry on date between two HH:MM
// clock times.
func WorkEntryJSON(date generic.TimePoint, start, end string, isDraft bool) string {
	pj := map[string]interface{}{
		"kind":       string(KindWorkEntry),
		"date":       date.String(),
		"start_time": start,
		"end_time":   end,
	}
	if isDraft {
		pj["is_draft"] = true
	}
	b, _ := json.MarshalIndent(pj, "", "  ")
	return string(b)
}
