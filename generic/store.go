/*
store.go - Persistence interface for records, summaries and audit entries

PURPOSE:
  Defines the interface between the lifecycle engine and the database.
  Different implementations can use SQLite, PostgreSQL, or in-memory storage.

KEY INTERFACES:
  Store:   Record persistence, WeeklySummary running totals, audit trail
  TxStore: Transactional operations (record write + summary + audit together)

CONDITIONAL WRITES:
  Every state-changing write is conditioned on the state the caller read:

    UPDATE records SET ... WHERE id = ? AND state = ? AND deleted = false

  If no row matches, the write returns ErrConcurrentModification and
  nothing changes. Two administrators approving the same record at once
  therefore produce exactly one approval; the loser re-reads the record
  and reports "already approved".

SUMMARY UPSERT:
  AddSummaryMinutes is an atomic increment-or-insert
  (INSERT ... ON CONFLICT DO UPDATE SET minutes = minutes + excluded.minutes)
  so concurrent submissions for the same user and cycle never lose an
  update and never create a duplicate row.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite and PostgreSQL
  - generic/store/memory.go: In-memory for testing

SEE ALSO:
  - service.go: The only caller that writes
*/
package generic

import (
	"context"
	"time"
)

// =============================================================================
// STORE
// =============================================================================

// RecordFilter selects records. Date bounds match records whose span
// overlaps [From, To]. Drafts and soft-deleted rows are excluded unless
// asked for.
type RecordFilter struct {
	UserID         *UserID
	Kinds          []Kind
	States         []State
	From           *TimePoint
	To             *TimePoint
	IncludeDrafts  bool
	IncludeDeleted bool
}

// StateChange is the payload of a conditional state transition.
type StateChange struct {
	To     State
	Actor  string
	At     time.Time
	Reason string // rejection reason
}

// Deletion is the payload of a soft delete.
type Deletion struct {
	Actor  string
	At     time.Time
	Reason string
}

// WeeklySummary is the running total of submitted WorkEntry minutes for one
// user and one cycle, keyed by the cycle's start date.
type WeeklySummary struct {
	UserID     UserID
	UserName   string
	CycleStart TimePoint
	Minutes    int64
	UpdatedAt  time.Time
}

type Store interface {
	// Insert persists a new record.
	Insert(ctx context.Context, r Record) error

	// Get returns the record or (nil, nil) when it does not exist.
	// Soft-deleted records are returned.
	Get(ctx context.Context, id RecordID) (*Record, error)

	// Find returns records matching filter, ordered by date then creation.
	Find(ctx context.Context, filter RecordFilter) ([]Record, error)

	// Transition moves a live record out of state from.
	Transition(ctx context.Context, id RecordID, from State, change StateChange) error

	// Update rewrites the editable fields of a live record in state expected.
	Update(ctx context.Context, r Record, expected State) error

	// HardDelete removes a live record in state expected.
	HardDelete(ctx context.Context, id RecordID, expected State) error

	// SoftDelete marks a live record in state expected as deleted.
	SoftDelete(ctx context.Context, id RecordID, expected State, d Deletion) error

	// AddSummaryMinutes atomically adds delta to the (user, cycle) total,
	// creating the row if needed.
	AddSummaryMinutes(ctx context.Context, s WeeklySummary) error

	// PutSummary overwrites a total. Used by reconciliation.
	PutSummary(ctx context.Context, s WeeklySummary) error

	// GetSummary returns the total or (nil, nil).
	GetSummary(ctx context.Context, user UserID, cycleStart TimePoint) (*WeeklySummary, error)

	// DeleteSummary removes the (user, cycle) row if present.
	DeleteSummary(ctx context.Context, user UserID, cycleStart TimePoint) error

	// ListSummaries returns every row for a cycle, ordered by user.
	ListSummaries(ctx context.Context, cycleStart TimePoint) ([]WeeklySummary, error)

	// AppendAudit records a lifecycle event. Append-only.
	AppendAudit(ctx context.Context, e AuditEntry) error

	// ListAudit returns the events for a record, oldest first.
	ListAudit(ctx context.Context, id RecordID) ([]AuditEntry, error)
}

// =============================================================================
// TRANSACTIONAL STORE - For atomic operations across multiple writes
// =============================================================================

// TxStore wraps Store with transaction support.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction.
	// If fn returns error, transaction is rolled back.
	// If fn returns nil, transaction is committed.
	WithTx(ctx context.Context, fn func(Store) error) error
}

// =============================================================================
// AUDIT LOG - Who did what to which record, and when
// =============================================================================

type AuditAction string

const (
	AuditCreated     AuditAction = "created"
	AuditSubmitted   AuditAction = "submitted"
	AuditEdited      AuditAction = "edited"
	AuditApproved    AuditAction = "approved"
	AuditRejected    AuditAction = "rejected"
	AuditCompleted   AuditAction = "completed"
	AuditHardDeleted AuditAction = "hard_deleted"
	AuditSoftDeleted AuditAction = "soft_deleted"
)

// AuditEntry records one lifecycle event. Entries outlive hard-deleted records.
type AuditEntry struct {
	ID        string
	RecordID  RecordID
	Kind      Kind
	ActorID   string
	Action    AuditAction
	FromState State
	ToState   State
	Reason    string
	At        time.Time
}

// Matches applies the filter to one record. SQL stores push the same
// conditions into the WHERE clause.
func (f RecordFilter) Matches(r *Record) bool {
	if f.UserID != nil && r.UserID != *f.UserID {
		return false
	}
	if !f.IncludeDrafts && r.State == StateDraft {
		return false
	}
	if !f.IncludeDeleted && r.Deleted {
		return false
	}
	if len(f.Kinds) > 0 && !containsKind(f.Kinds, r.Kind) {
		return false
	}
	if len(f.States) > 0 && !containsState(f.States, r.State) {
		return false
	}
	span := r.Span()
	if f.From != nil && span.End.Before(*f.From) {
		return false
	}
	if f.To != nil && span.Start.After(*f.To) {
		return false
	}
	return true
}

func containsKind(kinds []Kind, k Kind) bool {
	for _, x := range kinds {
		if x == k {
			return true
		}
	}
	return false
}

func containsState(states []State, s State) bool {
	for _, x := range states {
		if x == s {
			return true
		}
	}
	return false
}
