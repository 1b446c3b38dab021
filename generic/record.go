/*
record.go - Hour-bearing record and its lifecycle rules

PURPOSE:
  Defines the one record shape shared by every kind and the pure rules that
  decide which lifecycle operations are legal. The rules never touch the
  store; service.go applies them and then performs a conditional update.

STATE MACHINE:
  ┌─────────────────────────────────────────────────────────────────┐
  │                                                                 │
  │   create(draft) ──▶ draft ──submit──▶ pending ──approve──▶ approved
  │   create       ─────────────────────▶ pending                  │ │
  │                                          │                     │ │
  │                                       reject                complete
  │                                          ▼              (training) │
  │                                       rejected                 ▼ │
  │                                                           completed
  └─────────────────────────────────────────────────────────────────┘

  Edits are allowed in draft and pending only.
  Approved and completed records are immutable: deleting one sets the
  soft-delete fields and keeps the row for payroll history. Every other
  state is hard-deleted.

SEE ALSO:
  - service.go: Executes these rules against a Store
  - kind.go: Kind-specific hooks
*/
package generic

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// STATES
// =============================================================================

type State string

const (
	StateDraft     State = "draft"
	StatePending   State = "pending"
	StateApproved  State = "approved"
	StateRejected  State = "rejected"
	StateCompleted State = "completed"
)

// IsFinalized is true for approved and completed records, which are
// immutable and only ever soft-deleted.
func (s State) IsFinalized() bool {
	return s == StateApproved || s == StateCompleted
}

func (s State) Valid() bool {
	switch s {
	case StateDraft, StatePending, StateApproved, StateRejected, StateCompleted:
		return true
	}
	return false
}

// InitialState is the state a new record is created in.
func InitialState(isDraft bool) State {
	if isDraft {
		return StateDraft
	}
	return StatePending
}

// =============================================================================
// RECORD
// =============================================================================

// Record is a WorkEntry, LeaveRequest, LeaveHours or TrainingRecord.
// Kind-specific fields are left zero by kinds that do not use them.
type Record struct {
	ID       RecordID
	Kind     Kind
	UserID   UserID
	UserName string // captured at creation

	Date      TimePoint // day worked, first day of leave, training day
	EndDate   TimePoint // last day of a LeaveRequest; equals Date otherwise
	StartTime string    // HH:MM, WorkEntry
	EndTime   string    // HH:MM, WorkEntry
	Hours     decimal.Decimal
	Category  string // leave type or course name
	Notes     string

	State   State
	IsDraft bool

	ApprovedBy      *string
	ApprovedAt      *time.Time
	RejectedBy      *string
	RejectedAt      *time.Time
	RejectionReason *string
	CompletedBy     *string
	CompletedAt     *time.Time

	Deleted        bool
	DeletedAt      *time.Time
	DeletedBy      *string
	DeletionReason *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Span is the inclusive date range the record covers.
func (r *Record) Span() Period {
	end := r.EndDate
	if end.IsZero() {
		end = r.Date
	}
	return Period{Start: r.Date, End: end}
}

// RecordPatch holds the owner-editable fields. Nil means unchanged.
type RecordPatch struct {
	Date      *TimePoint
	EndDate   *TimePoint
	StartTime *string
	EndTime   *string
	Hours     *decimal.Decimal
	Category  *string
	Notes     *string
}

// ApplyTo returns a copy of r with the patch applied.
func (p RecordPatch) ApplyTo(r Record) Record {
	if p.Date != nil {
		// single-day records keep EndDate pinned to Date
		if r.EndDate.IsZero() || r.EndDate.Equal(r.Date) {
			r.EndDate = *p.Date
		}
		r.Date = *p.Date
	}
	if p.EndDate != nil {
		r.EndDate = *p.EndDate
	}
	if p.StartTime != nil {
		r.StartTime = *p.StartTime
	}
	if p.EndTime != nil {
		r.EndTime = *p.EndTime
	}
	if p.Hours != nil {
		r.Hours = *p.Hours
	}
	if p.Category != nil {
		r.Category = *p.Category
	}
	if p.Notes != nil {
		r.Notes = *p.Notes
	}
	return r
}

// =============================================================================
// TRANSITION RULES
// =============================================================================

// CheckSubmit allows draft -> pending for the owner.
func CheckSubmit(r *Record, actor Identity) error {
	if err := checkLive(r, "submit"); err != nil {
		return err
	}
	if !actor.Owns(r) {
		return newTransitionError(r, "submit", ErrForbidden)
	}
	if r.State != StateDraft {
		return newTransitionError(r, "submit", ErrForbidden)
	}
	return nil
}

// CheckApprove allows pending -> approved.
func CheckApprove(r *Record) error {
	if err := checkLive(r, "approve"); err != nil {
		return err
	}
	switch r.State {
	case StatePending:
		return nil
	case StateApproved, StateCompleted:
		return newTransitionError(r, "approve", ErrAlreadyApproved)
	case StateRejected:
		return newTransitionError(r, "approve", ErrAlreadyRejected)
	default:
		return newTransitionError(r, "approve", ErrForbidden)
	}
}

// CheckReject allows pending -> rejected. The reason must be non-blank;
// it is checked before the state so a missing reason is always reported.
// Drafts have not been submitted for review and are forbidden, as for
// approval.
func CheckReject(r *Record, reason string) error {
	if strings.TrimSpace(reason) == "" {
		return NewValidationError("reason", "a rejection reason is required")
	}
	if err := checkLive(r, "reject"); err != nil {
		return err
	}
	switch r.State {
	case StatePending:
		return nil
	case StateRejected:
		return newTransitionError(r, "reject", ErrAlreadyRejected)
	case StateApproved, StateCompleted:
		return newTransitionError(r, "reject", ErrAlreadyApproved)
	default:
		return newTransitionError(r, "reject", ErrForbidden)
	}
}

// CheckComplete allows approved -> completed for kinds that support it.
func CheckComplete(r *Record, kind RecordKind) error {
	if err := checkLive(r, "complete"); err != nil {
		return err
	}
	if !kind.SupportsCompletion() || r.State != StateApproved {
		return newTransitionError(r, "complete", ErrForbidden)
	}
	return nil
}

// CheckEdit allows the owner to edit draft and pending records.
func CheckEdit(r *Record, actor Identity) error {
	if err := checkLive(r, "edit"); err != nil {
		return err
	}
	if !actor.Owns(r) {
		return newTransitionError(r, "edit", ErrForbidden)
	}
	if r.State != StateDraft && r.State != StatePending {
		return newTransitionError(r, "edit", ErrForbidden)
	}
	return nil
}

// DeleteMode says how a record is removed.
type DeleteMode string

const (
	DeleteHard DeleteMode = "hard"
	DeleteSoft DeleteMode = "soft"
)

// PlanDelete decides between hard and soft delete. asAdmin is set only on
// the administrative surface; the owner-facing surface passes false even
// for administrators.
func PlanDelete(r *Record, actor Identity, kind RecordKind, asAdmin bool) (DeleteMode, error) {
	if err := checkLive(r, "delete"); err != nil {
		return "", err
	}
	admin := asAdmin && actor.IsAdmin
	if !admin && !actor.Owns(r) {
		return "", newTransitionError(r, "delete", ErrForbidden)
	}
	if !r.State.IsFinalized() {
		return DeleteHard, nil
	}
	if admin || kind.OwnerMaySoftDelete() {
		return DeleteSoft, nil
	}
	return "", newTransitionError(r, "delete", ErrForbidden)
}

func checkLive(r *Record, op string) error {
	if r.Deleted {
		return newTransitionError(r, op, ErrForbidden)
	}
	return nil
}

// =============================================================================
// DISPLAY VISIBILITY
// =============================================================================

// DefaultVisibilityWindow is how long an approved record stays in its
// submitter's queue after its last update.
const DefaultVisibilityWindow = 24 * time.Hour

// VisibleInQueue filters the submitter's pending-queue view. It is a
// display rule only; aggregation never consults it.
func VisibleInQueue(r *Record, now time.Time, window time.Duration) bool {
	if r.Deleted {
		return false
	}
	if r.State.IsFinalized() && now.Sub(r.UpdatedAt) > window {
		return false
	}
	return true
}
