package generic

import (
	"fmt"
	"time"
)

// =============================================================================
// PERIOD - Inclusive date interval
// =============================================================================

// Period is an inclusive calendar-date interval [Start, End].
// A Week is a Period of 7 days.
type Period struct {
	Start TimePoint
	End   TimePoint
}

// Contains returns true if the date is within the period [Start, End]
func (p Period) Contains(t TimePoint) bool {
	return t.AfterOrEqual(p.Start) && t.BeforeOrEqual(p.End)
}

// ContainsInstant is Contains for an instant, treating End as end-of-day.
func (p Period) ContainsInstant(t time.Time) bool {
	return !t.Before(p.Start.StartOfDay()) && !t.After(p.End.EndOfDay())
}

// Days returns all days in the period.
func (p Period) Days() []TimePoint {
	var days []TimePoint
	for current := p.Start; current.BeforeOrEqual(p.End); current = current.AddDays(1) {
		days = append(days, current)
	}
	return days
}

// Key identifies the period by its start date; used as the bucket key in
// aggregation results.
func (p Period) Key() string { return p.Start.String() }

func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}

// =============================================================================
// CYCLE - 28-day pay period made of 4 weeks
// =============================================================================

const (
	DaysPerWeek   = 7
	WeeksPerCycle = 4
	CycleLength   = DaysPerWeek * WeeksPerCycle

	// GraceDays is Monday through Saturday.
	GraceDays = 6
)

// DefaultReferenceDate is the Monday every cycle boundary is counted from.
// Callers should use the configured value (config.CycleConfig) rather than
// this constant so the server and tools can never disagree.
var DefaultReferenceDate = NewTimePoint(2025, time.March, 3)

// Cycle is a pay period. Index counts cycles from the reference date and is
// negative for cycles before it.
type Cycle struct {
	Index int
	Weeks [WeeksPerCycle]Period
}

func (c Cycle) Start() TimePoint { return c.Weeks[0].Start }
func (c Cycle) End() TimePoint   { return c.Weeks[WeeksPerCycle-1].End }
func (c Cycle) Period() Period   { return Period{Start: c.Start(), End: c.End()} }
func (c Cycle) Key() string      { return c.Start().String() }

func (c Cycle) Contains(t TimePoint) bool { return c.Period().Contains(t) }

// WeekContaining returns the index of the week holding t, or -1.
func (c Cycle) WeekContaining(t TimePoint) int {
	for i, w := range c.Weeks {
		if w.Contains(t) {
			return i
		}
	}
	return -1
}

// Intervals returns the weeks as a slice, the shape Aggregate expects.
func (c Cycle) Intervals() []Period {
	out := make([]Period, WeeksPerCycle)
	copy(out, c.Weeks[:])
	return out
}

func (c Cycle) Next() Cycle     { return buildCycle(c.Start().AddDays(CycleLength), c.Index+1) }
func (c Cycle) Previous() Cycle { return buildCycle(c.Start().AddDays(-CycleLength), c.Index-1) }

func (c Cycle) String() string {
	return fmt.Sprintf("cycle %d %s", c.Index, c.Period())
}

func buildCycle(start TimePoint, index int) Cycle {
	c := Cycle{Index: index}
	for i := 0; i < WeeksPerCycle; i++ {
		ws := start.AddDays(i * DaysPerWeek)
		c.Weeks[i] = Period{Start: ws, End: ws.AddDays(DaysPerWeek - 1)}
	}
	return c
}

// =============================================================================
// CYCLE CALCULATOR - Determines which cycle a date falls into
// =============================================================================

// CycleContaining returns the cycle holding date. Total over all dates:
// dates before the reference fall into negative-indexed cycles.
func CycleContaining(date, reference TimePoint) Cycle {
	date = date.Normalize()
	reference = reference.Normalize()
	index := floorDiv(DaysBetween(reference, date), CycleLength)
	return buildCycle(reference.AddDays(index*CycleLength), index)
}

// =============================================================================
// GRACE PERIOD RESOLVER
// =============================================================================

// DisplayCycle is the cycle dashboards and approval queues should show.
type DisplayCycle struct {
	Cycle         Cycle
	IsGracePeriod bool
	GraceStart    time.Time
	GraceEnd      time.Time
}

// GraceWindowAfter returns the grace window following c: from the first
// Monday on or after the day after c ends, through the Saturday after it.
func GraceWindowAfter(c Cycle) (start, end time.Time) {
	monday := NextWeekdayOnOrAfter(c.End().AddDays(1), time.Monday)
	return monday.StartOfDay(), monday.AddDays(GraceDays - 1).EndOfDay()
}

// ResolveDisplayCycle picks the previous cycle while now is inside the grace
// window that follows it, and the cycle containing now otherwise.
func ResolveDisplayCycle(now time.Time, reference TimePoint) DisplayCycle {
	current := CycleContaining(DateOf(now), reference)
	previous := current.Previous()
	start, end := GraceWindowAfter(previous)
	if !now.Before(start) && !now.After(end) {
		return DisplayCycle{Cycle: previous, IsGracePeriod: true, GraceStart: start, GraceEnd: end}
	}
	return DisplayCycle{Cycle: current, GraceStart: start, GraceEnd: end}
}

// =============================================================================
// PAY CALENDAR - Cycle math bound to one injected reference date
// =============================================================================

// PayCalendar carries the reference date so call sites never re-declare it.
type PayCalendar struct {
	Reference TimePoint
}

func NewPayCalendar(reference TimePoint) PayCalendar {
	return PayCalendar{Reference: reference.Normalize()}
}

// ValidateReference rejects reference dates that are not Mondays; the grace
// window assumes cycles end on a Sunday.
func ValidateReference(reference TimePoint) error {
	if reference.Weekday() != time.Monday {
		return fmt.Errorf("%w: reference date %s is a %s, want Monday", ErrValidation, reference, reference.Weekday())
	}
	return nil
}

func (pc PayCalendar) CycleContaining(date TimePoint) Cycle {
	return CycleContaining(date, pc.Reference)
}

func (pc PayCalendar) ResolveDisplayCycle(now time.Time) DisplayCycle {
	return ResolveDisplayCycle(now, pc.Reference)
}

// CyclesBetween returns every cycle overlapping [from, to], oldest first.
func (pc PayCalendar) CyclesBetween(from, to TimePoint) []Cycle {
	if to.Before(from) {
		return nil
	}
	var cycles []Cycle
	for c := pc.CycleContaining(from); !c.Start().After(to); c = c.Next() {
		cycles = append(cycles, c)
	}
	return cycles
}
