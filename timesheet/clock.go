package timesheet

import (
	"fmt"
	"time"

	"github.com/warp/staff-hours/generic"
)

// ClockLayout is the 24-hour wall-clock format used by work entries.
const ClockLayout = "15:04"

const minutesPerDay = 24 * 60

// ParseClock parses HH:MM and returns minutes since midnight.
func ParseClock(s string) (int, error) {
	t, err := time.Parse(ClockLayout, s)
	if err != nil {
		return 0, generic.NewValidationError("time", fmt.Sprintf("%q is not a valid HH:MM time", s))
	}
	return t.Hour()*60 + t.Minute(), nil
}

// MinutesBetween returns the elapsed minutes from start to end. An end
// earlier than start is a shift that crosses midnight.
func MinutesBetween(start, end string) (int64, error) {
	s, err := ParseClock(start)
	if err != nil {
		return 0, err
	}
	e, err := ParseClock(end)
	if err != nil {
		return 0, err
	}
	if e < s {
		e += minutesPerDay
	}
	return int64(e - s), nil
}
