package generic

import (
	"time"
)

// =============================================================================
// TIME POINT - Calendar date, anchored at UTC midnight
// =============================================================================

// TimePoint is a calendar date. The date is held at UTC midnight so day
// arithmetic never meets a DST gap; local wall-clock time only enters
// through DateOf, StartOfDay and EndOfDay.
type TimePoint struct {
	Time time.Time
}

const DateLayout = "2006-01-02"

// Constructors
func NewTimePoint(year int, month time.Month, day int) TimePoint {
	return TimePoint{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the local calendar day of an instant.
func DateOf(t time.Time) TimePoint {
	y, m, d := t.In(time.Local).Date()
	return NewTimePoint(y, m, d)
}

func Today() TimePoint { return DateOf(time.Now()) }

// ParseDate parses an ISO calendar date (YYYY-MM-DD).
func ParseDate(s string) (TimePoint, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return TimePoint{}, err
	}
	return TimePoint{Time: t}, nil
}

// MustParseDate is ParseDate for constants and tests.
func MustParseDate(s string) TimePoint {
	tp, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return tp
}

// Comparison
func (tp TimePoint) Before(other TimePoint) bool        { return tp.civil().Before(other.civil()) }
func (tp TimePoint) Equal(other TimePoint) bool         { return tp.civil().Equal(other.civil()) }
func (tp TimePoint) After(other TimePoint) bool         { return tp.civil().After(other.civil()) }
func (tp TimePoint) BeforeOrEqual(other TimePoint) bool { return !tp.After(other) }
func (tp TimePoint) AfterOrEqual(other TimePoint) bool  { return !tp.Before(other) }

// civil drops any clock part, keeping the date as written in tp's own zone.
func (tp TimePoint) civil() time.Time {
	y, m, d := tp.Time.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Normalize returns tp as a bare date at UTC midnight.
func (tp TimePoint) Normalize() TimePoint { return TimePoint{Time: tp.civil()} }

// Arithmetic
func (tp TimePoint) AddDays(n int) TimePoint {
	y, m, d := tp.Time.Date()
	return NewTimePoint(y, m, d+n)
}

// Properties
func (tp TimePoint) Year() int             { return tp.Time.Year() }
func (tp TimePoint) Month() time.Month     { return tp.Time.Month() }
func (tp TimePoint) Day() int              { return tp.Time.Day() }
func (tp TimePoint) Weekday() time.Weekday { return tp.Time.Weekday() }
func (tp TimePoint) IsZero() bool          { return tp.Time.IsZero() }
func (tp TimePoint) String() string        { return tp.Time.Format(DateLayout) }

// StartOfDay is the first local instant of the date. Where midnight falls
// in a DST gap, that is the first instant after the gap.
func (tp TimePoint) StartOfDay() time.Time {
	y, m, d := tp.Time.Date()
	t := time.Date(y, m, d, 0, 0, 0, 0, time.Local)
	for t.Day() != d {
		t = t.Add(time.Hour)
	}
	return t
}

// EndOfDay is the last local millisecond of the date.
func (tp TimePoint) EndOfDay() time.Time {
	return tp.AddDays(1).StartOfDay().Add(-time.Millisecond)
}

// =============================================================================
// TIME UTILITIES
// =============================================================================

// DaysBetween counts calendar days from -> to (negative when to is earlier).
func DaysBetween(from, to TimePoint) int {
	return int(to.civil().Sub(from.civil()).Hours() / 24)
}

// NextWeekdayOnOrAfter returns the first date >= tp falling on wd.
func NextWeekdayOnOrAfter(tp TimePoint, wd time.Weekday) TimePoint {
	offset := (int(wd) - int(tp.Weekday()) + 7) % 7
	return tp.AddDays(offset)
}

// floorDiv divides rounding toward negative infinity.
func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
