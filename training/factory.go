package training

import (
	"encoding/json"

	"github.com/warp/staff-hours/generic"
)

// SessionJSON returns JSON for a training session.
func SessionJSON(date generic.TimePoint, hours float64, title string) string {
	pj := map[string]interface{}{
		"kind":  string(KindTraining),
		"date":  date.String(),
		"hours": hours,
		"title": title,
	}
	b, _ := json.MarshalIndent(pj, "", "  ")
	return string(b)
}
