/*
Package generic provides the core payment-cycle and record lifecycle engine.

PURPOSE:
  This package contains kind-agnostic types and algorithms for tracking
  hour-bearing staff records. Whether a record is a shift worked, a day of
  leave, an hour of sick leave, or a training session, the same engine
  handles cycle placement, approval state, deletion policy, and aggregation.

KEY CONCEPTS IN THIS FILE (types.go):
  - Amount: A quantity with a unit (e.g., 510 minutes, 4.5 hours, 3 days)
  - Identity: The authenticated actor performing an operation
  - UserID/RecordID: Type-safe identifiers

DESIGN PRINCIPLES:
  1. Immutability: Approved records are never edited, only soft-deleted
  2. Precision: Uses decimal.Decimal for hours and pay to avoid float drift
  3. Type Safety: Strong typing for IDs prevents mixing user/record IDs
  4. Single anchor: Every cycle is computed from one injected reference date

USAGE:
  cal := generic.NewPayCalendar(generic.DefaultReferenceDate)
  cycle := cal.CycleContaining(generic.NewTimePoint(2025, time.March, 17))

SEE ALSO:
  - period.go: Cycle calculator and grace period resolver
  - record.go: Record states and transition rules
  - service.go: Lifecycle operations against a Store
  - aggregate.go: Per-week minute totals and pay estimate
*/
package generic

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// AMOUNT - Quantity with unit
// =============================================================================

type Amount struct {
	Value decimal.Decimal
	Unit  Unit
}

type Unit string

const (
	UnitDays    Unit = "days"
	UnitHours   Unit = "hours"
	UnitMinutes Unit = "minutes"
)

var minutesPerHour = decimal.NewFromInt(60)

func NewAmount(value float64, unit Unit) Amount {
	return Amount{Value: decimal.NewFromFloat(value), Unit: unit}
}

func NewAmountFromInt(value int64, unit Unit) Amount {
	return Amount{Value: decimal.NewFromInt(value), Unit: unit}
}

func Minutes(n int64) Amount { return NewAmountFromInt(n, UnitMinutes) }
func Hours(d decimal.Decimal) Amount { return Amount{Value: d, Unit: UnitHours} }
func Days(n int64) Amount { return NewAmountFromInt(n, UnitDays) }

func (a Amount) Add(b Amount) Amount       { return Amount{Value: a.Value.Add(b.Value), Unit: a.Unit} }
func (a Amount) Sub(b Amount) Amount       { return Amount{Value: a.Value.Sub(b.Value), Unit: a.Unit} }
func (a Amount) Neg() Amount               { return Amount{Value: a.Value.Neg(), Unit: a.Unit} }
func (a Amount) IsZero() bool              { return a.Value.IsZero() }
func (a Amount) IsNegative() bool          { return a.Value.IsNegative() }
func (a Amount) IsPositive() bool          { return a.Value.IsPositive() }
func (a Amount) GreaterThan(b Amount) bool { return a.Value.GreaterThan(b.Value) }

// InMinutes converts hour and minute amounts to whole minutes, rounding half
// away from zero. Day amounts are not time-of-day based and return 0.
func (a Amount) InMinutes() int64 {
	switch a.Unit {
	case UnitMinutes:
		return a.Value.Round(0).IntPart()
	case UnitHours:
		return a.Value.Mul(minutesPerHour).Round(0).IntPart()
	default:
		return 0
	}
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type UserID string
type RecordID string

// Identity is the authenticated actor supplied by the auth provider.
type Identity struct {
	UserID      UserID
	DisplayName string
	IsAdmin     bool
}

// Owns reports whether the identity is the owner of the record.
func (id Identity) Owns(r *Record) bool {
	return r != nil && id.UserID != "" && r.UserID == id.UserID
}
