/*
service.go - Record lifecycle operations

PURPOSE:
  RecordService is the only writer of records. Each operation reads the
  record, checks the transition rule in record.go, and then performs a
  conditional write inside a transaction together with the WeeklySummary
  adjustment and the audit entry.

RACE HANDLING:
  The conditional write fails with ErrConcurrentModification when another
  caller changed the record between our read and our write. The service
  re-reads the record and re-runs the rule so the caller sees the specific
  reason ("already approved") instead of a generic conflict.

WEEKLY SUMMARY:
  For kinds that track it (WorkEntry), the (user, cycle) running total
  gains the record's minutes when it leaves draft and loses them when a
  submitted record is hard-deleted. The row is removed once no submitted
  record of a tracking kind remains in the cycle. Soft-deleted records
  still count: they remain part of payroll history.

SEE ALSO:
  - record.go: Transition rules
  - store.go: Conditional writes
  - aggregate.go: Read-side totals
*/
package generic

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type RecordService struct {
	Store    TxStore
	Calendar PayCalendar
	Log      logrus.FieldLogger

	// Now and NewID are replaceable for tests.
	Now   func() time.Time
	NewID func() string

	// VisibilityWindow controls VisibleInQueue for List.
	VisibilityWindow time.Duration
}

func NewRecordService(store TxStore, calendar PayCalendar, log logrus.FieldLogger) *RecordService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &RecordService{
		Store:            store,
		Calendar:         calendar,
		Log:              log,
		Now:              time.Now,
		NewID:            uuid.NewString,
		VisibilityWindow: DefaultVisibilityWindow,
	}
}

// =============================================================================
// CREATE / SUBMIT / EDIT
// =============================================================================

// Create stores a new record owned by actor. The caller fills the
// kind-specific fields; identity, state and timestamps are set here.
func (s *RecordService) Create(ctx context.Context, actor Identity, in Record, isDraft bool) (*Record, error) {
	if actor.UserID == "" {
		return nil, NewValidationError("user", "an authenticated user is required")
	}
	kind, err := LookupKind(in.Kind)
	if err != nil {
		return nil, err
	}

	now := s.Now()
	r := Record{
		ID:        RecordID(s.NewID()),
		Kind:      in.Kind,
		UserID:    actor.UserID,
		UserName:  actor.DisplayName,
		Date:      in.Date,
		EndDate:   in.EndDate,
		StartTime: in.StartTime,
		EndTime:   in.EndTime,
		Hours:     in.Hours,
		Category:  in.Category,
		Notes:     in.Notes,
		State:     InitialState(isDraft),
		IsDraft:   isDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if r.EndDate.IsZero() {
		r.EndDate = r.Date
	}
	if err := kind.Validate(&r); err != nil {
		return nil, err
	}

	err = s.Store.WithTx(ctx, func(tx Store) error {
		if err := tx.Insert(ctx, r); err != nil {
			return err
		}
		if !isDraft {
			if err := s.adjustSummary(ctx, tx, kind, &r, 1, now); err != nil {
				return err
			}
		}
		return s.audit(ctx, tx, &r, actor, AuditCreated, "", r.State, "", now)
	})
	if err != nil {
		return nil, s.fail("create record", err, logrus.Fields{"kind": r.Kind, "user": r.UserID})
	}

	s.Log.WithFields(logrus.Fields{"record": r.ID, "kind": r.Kind, "user": r.UserID, "state": r.State}).Info("record created")
	return &r, nil
}

// SubmitDraft moves an owner's draft to pending.
func (s *RecordService) SubmitDraft(ctx context.Context, actor Identity, id RecordID) (*Record, error) {
	check := func(r *Record) error { return CheckSubmit(r, actor) }
	return s.transition(ctx, actor, id, check, StateChange{To: StatePending}, AuditSubmitted,
		func(tx Store, kind RecordKind, r *Record, at time.Time) error {
			return s.adjustSummary(ctx, tx, kind, r, 1, at)
		})
}

// Edit changes the editable fields of an owner's draft or pending record.
func (s *RecordService) Edit(ctx context.Context, actor Identity, id RecordID, patch RecordPatch) (*Record, error) {
	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := CheckEdit(current, actor); err != nil {
		return nil, err
	}
	kind, err := LookupKind(current.Kind)
	if err != nil {
		return nil, err
	}

	now := s.Now()
	next := patch.ApplyTo(*current)
	next.UpdatedAt = now
	if err := kind.Validate(&next); err != nil {
		return nil, err
	}

	err = s.Store.WithTx(ctx, func(tx Store) error {
		if err := tx.Update(ctx, next, current.State); err != nil {
			return err
		}
		if current.State == StatePending && kind.TracksWeeklySummary() {
			if err := s.adjustSummary(ctx, tx, kind, current, -1, now); err != nil {
				return err
			}
			if err := s.adjustSummary(ctx, tx, kind, &next, 1, now); err != nil {
				return err
			}
			if err := s.pruneSummary(ctx, tx, current); err != nil {
				return err
			}
		}
		return s.audit(ctx, tx, &next, actor, AuditEdited, current.State, current.State, "", now)
	})
	if err != nil {
		return nil, s.resolveConflict(ctx, id, func(r *Record) error { return CheckEdit(r, actor) }, err, "edit record")
	}
	return s.load(ctx, id)
}

// =============================================================================
// ADMINISTRATIVE TRANSITIONS
// =============================================================================

func (s *RecordService) Approve(ctx context.Context, actor Identity, id RecordID) (*Record, error) {
	if !actor.IsAdmin {
		return nil, ErrForbidden
	}
	return s.transition(ctx, actor, id, CheckApprove, StateChange{To: StateApproved}, AuditApproved, nil)
}

func (s *RecordService) Reject(ctx context.Context, actor Identity, id RecordID, reason string) (*Record, error) {
	if !actor.IsAdmin {
		return nil, ErrForbidden
	}
	reason = strings.TrimSpace(reason)
	check := func(r *Record) error { return CheckReject(r, reason) }
	return s.transition(ctx, actor, id, check, StateChange{To: StateRejected, Reason: reason}, AuditRejected, nil)
}

// Complete marks an approved training record as completed.
func (s *RecordService) Complete(ctx context.Context, actor Identity, id RecordID) (*Record, error) {
	if !actor.IsAdmin {
		return nil, ErrForbidden
	}
	check := func(r *Record) error {
		kind, err := LookupKind(r.Kind)
		if err != nil {
			return err
		}
		return CheckComplete(r, kind)
	}
	return s.transition(ctx, actor, id, check, StateChange{To: StateCompleted}, AuditCompleted, nil)
}

type transitionHook func(tx Store, kind RecordKind, r *Record, at time.Time) error

func (s *RecordService) transition(ctx context.Context, actor Identity, id RecordID, check func(*Record) error,
	change StateChange, action AuditAction, hook transitionHook) (*Record, error) {
	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := check(current); err != nil {
		return nil, err
	}
	kind, err := LookupKind(current.Kind)
	if err != nil {
		return nil, err
	}

	change.Actor = string(actor.UserID)
	change.At = s.Now()
	err = s.Store.WithTx(ctx, func(tx Store) error {
		if err := tx.Transition(ctx, id, current.State, change); err != nil {
			return err
		}
		if hook != nil {
			if err := hook(tx, kind, current, change.At); err != nil {
				return err
			}
		}
		return s.audit(ctx, tx, current, actor, action, current.State, change.To, change.Reason, change.At)
	})
	if err != nil {
		return nil, s.resolveConflict(ctx, id, check, err, string(action))
	}

	s.Log.WithFields(logrus.Fields{
		"record": id, "kind": current.Kind, "from": current.State, "to": change.To, "actor": actor.UserID,
	}).Info("record transitioned")
	return s.load(ctx, id)
}

// =============================================================================
// DELETE
// =============================================================================

type DeleteRequest struct {
	ID     RecordID
	Reason string
	// AsAdmin selects the administrative surface; only honoured for admins.
	AsAdmin bool
}

// Delete hard-deletes records that are not finalized and soft-deletes
// approved and completed ones. The returned mode says which happened.
func (s *RecordService) Delete(ctx context.Context, actor Identity, req DeleteRequest) (DeleteMode, error) {
	current, err := s.load(ctx, req.ID)
	if err != nil {
		return "", err
	}
	kind, err := LookupKind(current.Kind)
	if err != nil {
		return "", err
	}
	mode, err := PlanDelete(current, actor, kind, req.AsAdmin)
	if err != nil {
		return "", err
	}

	now := s.Now()
	reason := strings.TrimSpace(req.Reason)
	err = s.Store.WithTx(ctx, func(tx Store) error {
		if mode == DeleteSoft {
			d := Deletion{Actor: string(actor.UserID), At: now, Reason: reason}
			if err := tx.SoftDelete(ctx, req.ID, current.State, d); err != nil {
				return err
			}
			return s.audit(ctx, tx, current, actor, AuditSoftDeleted, current.State, current.State, reason, now)
		}

		if err := tx.HardDelete(ctx, req.ID, current.State); err != nil {
			return err
		}
		if current.State != StateDraft {
			if err := s.adjustSummary(ctx, tx, kind, current, -1, now); err != nil {
				return err
			}
			if err := s.pruneSummary(ctx, tx, current); err != nil {
				return err
			}
		}
		return s.audit(ctx, tx, current, actor, AuditHardDeleted, current.State, current.State, reason, now)
	})
	if err != nil {
		check := func(r *Record) error {
			_, err := PlanDelete(r, actor, kind, req.AsAdmin)
			return err
		}
		return "", s.resolveConflict(ctx, req.ID, check, err, "delete record")
	}

	s.Log.WithFields(logrus.Fields{"record": req.ID, "mode": mode, "actor": actor.UserID}).Info("record deleted")
	return mode, nil
}

// =============================================================================
// READS
// =============================================================================

// Get returns a record, soft-deleted or not, to its owner or an admin.
func (s *RecordService) Get(ctx context.Context, actor Identity, id RecordID) (*Record, error) {
	r, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin && !actor.Owns(r) {
		return nil, ErrForbidden
	}
	return r, nil
}

// ListQuery is a read-path query. QueueView applies VisibleInQueue.
type ListQuery struct {
	Filter    RecordFilter
	QueueView bool
}

func (s *RecordService) List(ctx context.Context, q ListQuery) ([]Record, error) {
	records, err := s.Store.Find(ctx, q.Filter)
	if err != nil {
		return nil, s.fail("list records", err, nil)
	}
	if !q.QueueView {
		return records, nil
	}
	now := s.Now()
	visible := records[:0]
	for i := range records {
		if VisibleInQueue(&records[i], now, s.VisibilityWindow) {
			visible = append(visible, records[i])
		}
	}
	return visible, nil
}

func (s *RecordService) Audit(ctx context.Context, id RecordID) ([]AuditEntry, error) {
	entries, err := s.Store.ListAudit(ctx, id)
	if err != nil {
		return nil, s.fail("list audit", err, logrus.Fields{"record": id})
	}
	return entries, nil
}

func (s *RecordService) WeeklySummary(ctx context.Context, user UserID, cycle Cycle) (*WeeklySummary, error) {
	sum, err := s.Store.GetSummary(ctx, user, cycle.Start())
	if err != nil {
		return nil, s.fail("get weekly summary", err, logrus.Fields{"user": user})
	}
	return sum, nil
}

func (s *RecordService) WeeklySummaries(ctx context.Context, cycle Cycle) ([]WeeklySummary, error) {
	list, err := s.Store.ListSummaries(ctx, cycle.Start())
	if err != nil {
		return nil, s.fail("list weekly summaries", err, nil)
	}
	return list, nil
}

// =============================================================================
// CYCLE REPORTS
// =============================================================================

// KindTotals is the aggregation of one kind over a cycle.
type KindTotals struct {
	Kind         Kind
	ApprovedOnly bool
	Aggregation
}

// CycleReport is one user's totals for a cycle.
type CycleReport struct {
	UserID       UserID
	UserName     string
	Cycle        Cycle
	Kinds        []KindTotals
	PayMinutes   int64
	EstimatedPay decimal.Decimal
}

// Totals returns the aggregation for kind, or a zero one.
func (cr CycleReport) Totals(kind Kind) KindTotals {
	for _, kt := range cr.Kinds {
		if kt.Kind == kind {
			return kt
		}
	}
	return KindTotals{Kind: kind, Aggregation: newAggregation(cr.Cycle.Intervals())}
}

// ReportOptions tunes a cycle report.
type ReportOptions struct {
	HourlyRate         decimal.Decimal
	IncludeSoftDeleted bool
}

// CycleReport aggregates every registered kind for one user. Kinds that
// track a weekly summary count all submitted records; the others count
// approved records only. The pay estimate covers the minute-based totals.
func (s *RecordService) CycleReport(ctx context.Context, user UserID, cycle Cycle, opts ReportOptions) (CycleReport, error) {
	from, to := cycle.Start(), cycle.End()
	records, err := s.Store.Find(ctx, RecordFilter{UserID: &user, From: &from, To: &to, IncludeDeleted: opts.IncludeSoftDeleted})
	if err != nil {
		return CycleReport{}, s.fail("cycle report", err, logrus.Fields{"user": user})
	}
	return buildReport(user, records, cycle, opts)
}

// CycleReports is CycleReport for every user with records in the cycle.
func (s *RecordService) CycleReports(ctx context.Context, cycle Cycle, opts ReportOptions) ([]CycleReport, error) {
	from, to := cycle.Start(), cycle.End()
	records, err := s.Store.Find(ctx, RecordFilter{From: &from, To: &to, IncludeDeleted: opts.IncludeSoftDeleted})
	if err != nil {
		return nil, s.fail("cycle reports", err, nil)
	}
	return s.buildReports(records, cycle, opts)
}

func (s *RecordService) buildReports(records []Record, cycle Cycle, opts ReportOptions) ([]CycleReport, error) {
	var order []UserID
	byUser := make(map[UserID][]Record)
	for _, r := range records {
		if _, seen := byUser[r.UserID]; !seen {
			order = append(order, r.UserID)
		}
		byUser[r.UserID] = append(byUser[r.UserID], r)
	}

	reports := make([]CycleReport, 0, len(order))
	for _, user := range order {
		report, err := buildReport(user, byUser[user], cycle, opts)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, nil
}

func buildReport(user UserID, records []Record, cycle Cycle, opts ReportOptions) (CycleReport, error) {
	report := CycleReport{UserID: user, Cycle: cycle}
	if len(records) > 0 {
		report.UserName = records[0].UserName
	}
	for _, name := range ListKinds() {
		kind := MustLookupKind(name)
		var ofKind []Record
		for _, r := range records {
			if r.Kind == name {
				ofKind = append(ofKind, r)
			}
		}
		aggOpts := AggregateOptions{ApprovedOnly: !kind.TracksWeeklySummary(), IncludeSoftDeleted: opts.IncludeSoftDeleted}
		agg, err := Aggregate(ofKind, cycle.Intervals(), aggOpts)
		if err != nil {
			return CycleReport{}, err
		}
		report.Kinds = append(report.Kinds, KindTotals{Kind: name, ApprovedOnly: aggOpts.ApprovedOnly, Aggregation: agg})
		report.PayMinutes += agg.TotalMinutes
	}
	report.EstimatedPay = EstimatePay(report.PayMinutes, opts.HourlyRate)
	return report, nil
}

// =============================================================================
// RECONCILIATION
// =============================================================================

// ReconcileResult reports what ReconcileSummaries changed.
type ReconcileResult struct {
	Cycle     Cycle
	Corrected int
	Removed   int
}

// ReconcileSummaries recomputes every WeeklySummary of a cycle from the
// records and overwrites rows that drifted.
func (s *RecordService) ReconcileSummaries(ctx context.Context, cycle Cycle) (ReconcileResult, error) {
	result := ReconcileResult{Cycle: cycle}
	tracking := trackingKinds()
	if len(tracking) == 0 {
		return result, nil
	}
	now := s.Now()
	from, to := cycle.Start(), cycle.End()

	err := s.Store.WithTx(ctx, func(tx Store) error {
		records, err := tx.Find(ctx, RecordFilter{Kinds: tracking, From: &from, To: &to, IncludeDeleted: true})
		if err != nil {
			return err
		}
		expected := make(map[UserID]*WeeklySummary)
		for i := range records {
			r := &records[i]
			if !cycle.Contains(r.Date) {
				continue
			}
			minutes, err := recordMinutes(r)
			if err != nil {
				return err
			}
			sum, ok := expected[r.UserID]
			if !ok {
				sum = &WeeklySummary{UserID: r.UserID, UserName: r.UserName, CycleStart: from, UpdatedAt: now}
				expected[r.UserID] = sum
			}
			sum.Minutes += minutes
		}

		existing, err := tx.ListSummaries(ctx, from)
		if err != nil {
			return err
		}
		for _, row := range existing {
			want, ok := expected[row.UserID]
			if !ok {
				if err := tx.DeleteSummary(ctx, row.UserID, from); err != nil {
					return err
				}
				result.Removed++
				continue
			}
			if want.Minutes != row.Minutes {
				if err := tx.PutSummary(ctx, *want); err != nil {
					return err
				}
				result.Corrected++
			}
			delete(expected, row.UserID)
		}
		for _, want := range expected {
			if err := tx.PutSummary(ctx, *want); err != nil {
				return err
			}
			result.Corrected++
		}
		return nil
	})
	if err != nil {
		return ReconcileResult{}, s.fail("reconcile summaries", err, logrus.Fields{"cycle": cycle.Key()})
	}
	if result.Corrected > 0 || result.Removed > 0 {
		s.Log.WithFields(logrus.Fields{
			"cycle": cycle.Key(), "corrected": result.Corrected, "removed": result.Removed,
		}).Warn("weekly summaries drifted")
	}
	return result, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func (s *RecordService) load(ctx context.Context, id RecordID) (*Record, error) {
	r, err := s.Store.Get(ctx, id)
	if err != nil {
		return nil, s.fail("get record", err, logrus.Fields{"record": id})
	}
	if r == nil {
		return nil, ErrNotFound
	}
	return r, nil
}

// resolveConflict turns a lost race into the error the caller would have
// seen had it read the record after the winner's write.
func (s *RecordService) resolveConflict(ctx context.Context, id RecordID, check func(*Record) error, err error, op string) error {
	if !errors.Is(err, ErrConcurrentModification) && !errors.Is(err, ErrNotFound) {
		return s.fail(op, err, logrus.Fields{"record": id})
	}
	latest, loadErr := s.load(ctx, id)
	if loadErr != nil {
		return loadErr
	}
	if checkErr := check(latest); checkErr != nil {
		return checkErr
	}
	return ErrConcurrentModification
}

// fail logs storage failures with context. Client errors pass through.
func (s *RecordService) fail(op string, err error, fields logrus.Fields) error {
	if IsClientError(err) || IsNotFound(err) || IsRetryable(err) {
		return err
	}
	entry := s.Log.WithField("op", op)
	if fields != nil {
		entry = entry.WithFields(fields)
	}
	var dbErr *DatabaseError
	if errors.As(err, &dbErr) {
		entry.WithError(dbErr.Cause()).Error("database operation failed")
		return err
	}
	entry.WithError(err).Error("operation failed")
	return NewDatabaseError(op, err)
}

func (s *RecordService) adjustSummary(ctx context.Context, tx Store, kind RecordKind, r *Record, sign int64, at time.Time) error {
	if !kind.TracksWeeklySummary() {
		return nil
	}
	minutes, err := recordMinutes(r)
	if err != nil {
		return err
	}
	return tx.AddSummaryMinutes(ctx, WeeklySummary{
		UserID:     r.UserID,
		UserName:   r.UserName,
		CycleStart: s.Calendar.CycleContaining(r.Date).Start(),
		Minutes:    sign * minutes,
		UpdatedAt:  at,
	})
}

// pruneSummary drops the (user, cycle) row of r once no submitted record
// of a tracking kind is left in that cycle.
func (s *RecordService) pruneSummary(ctx context.Context, tx Store, r *Record) error {
	cycle := s.Calendar.CycleContaining(r.Date)
	from, to := cycle.Start(), cycle.End()
	user := r.UserID
	remaining, err := tx.Find(ctx, RecordFilter{UserID: &user, Kinds: trackingKinds(), From: &from, To: &to, IncludeDeleted: true})
	if err != nil {
		return err
	}
	for i := range remaining {
		if cycle.Contains(remaining[i].Date) {
			return nil
		}
	}
	return tx.DeleteSummary(ctx, user, from)
}

func (s *RecordService) audit(ctx context.Context, tx Store, r *Record, actor Identity, action AuditAction,
	from, to State, reason string, at time.Time) error {
	return tx.AppendAudit(ctx, AuditEntry{
		ID:        s.NewID(),
		RecordID:  r.ID,
		Kind:      r.Kind,
		ActorID:   string(actor.UserID),
		Action:    action,
		FromState: from,
		ToState:   to,
		Reason:    reason,
		At:        at,
	})
}

func recordMinutes(r *Record) (int64, error) {
	kind, err := LookupKind(r.Kind)
	if err != nil {
		return 0, err
	}
	amount, err := kind.Duration(r)
	if err != nil {
		return 0, err
	}
	return amount.InMinutes(), nil
}

func trackingKinds() []Kind {
	var kinds []Kind
	for _, name := range ListKinds() {
		if MustLookupKind(name).TracksWeeklySummary() {
			kinds = append(kinds, name)
		}
	}
	return kinds
}
