package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/staff-hours/generic"
	"github.com/warp/staff-hours/store/sqlite"
	"github.com/warp/staff-hours/timeoff"
	"github.com/warp/staff-hours/timesheet"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

var created = time.Date(2025, 3, 18, 9, 0, 0, 0, time.UTC)

func pendingShift(id generic.RecordID, user generic.UserID, day string) generic.Record {
	d := generic.MustParseDate(day)
	return generic.Record{
		ID:        id,
		Kind:      timesheet.KindWorkEntry,
		UserID:    user,
		UserName:  "Ana",
		Date:      d,
		EndDate:   d,
		StartTime: "09:00",
		EndTime:   "17:30",
		State:     generic.StatePending,
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func TestInsertAndGet_RoundTrip(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	r := generic.Record{
		ID:        "lh-1",
		Kind:      timeoff.KindLeaveHours,
		UserID:    "u-1",
		UserName:  "Ana",
		Date:      generic.MustParseDate("2025-03-20"),
		EndDate:   generic.MustParseDate("2025-03-20"),
		Hours:     decimal.RequireFromString("4.5"),
		Category:  "annual",
		Notes:     "dentist",
		State:     generic.StatePending,
		CreatedAt: created,
		UpdatedAt: created,
	}
	require.NoError(t, store.Insert(ctx, r))

	got, err := store.Get(ctx, "lh-1")

	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, timeoff.KindLeaveHours, got.Kind)
	assert.Equal(t, "2025-03-20", got.Date.String())
	assert.True(t, r.Hours.Equal(got.Hours))
	assert.Equal(t, "dentist", got.Notes)
	assert.True(t, created.Equal(got.CreatedAt))
	assert.Nil(t, got.ApprovedBy)
	assert.False(t, got.Deleted)

	missing, err := store.Get(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestInsert_DuplicateID(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	require.NoError(t, store.Insert(ctx, pendingShift("w-1", "u-1", "2025-03-18")))

	err := store.Insert(ctx, pendingShift("w-1", "u-1", "2025-03-19"))

	assert.ErrorIs(t, err, generic.ErrDatabase)
}

// =============================================================================
// CONDITIONAL WRITES
// =============================================================================

func TestTransition_Conditional(t *testing.T) {
	// GIVEN: A pending shift
	store := newStore(t)
	ctx := context.Background()
	require.NoError(t, store.Insert(ctx, pendingShift("w-1", "u-1", "2025-03-18")))
	at := created.Add(time.Hour)
	approve := generic.StateChange{To: generic.StateApproved, Actor: "adm", At: at}

	// WHEN: Two approvals race from the same read
	first := store.Transition(ctx, "w-1", generic.StatePending, approve)
	second := store.Transition(ctx, "w-1", generic.StatePending, approve)

	// THEN: Exactly one succeeds
	require.NoError(t, first)
	assert.ErrorIs(t, second, generic.ErrConcurrentModification)

	got, err := store.Get(ctx, "w-1")
	require.NoError(t, err)
	assert.Equal(t, generic.StateApproved, got.State)
	require.NotNil(t, got.ApprovedBy)
	assert.Equal(t, "adm", *got.ApprovedBy)
	require.NotNil(t, got.ApprovedAt)
	assert.True(t, at.Equal(*got.ApprovedAt))
	assert.True(t, at.Equal(got.UpdatedAt))

	err = store.Transition(ctx, "missing", generic.StatePending, approve)
	assert.ErrorIs(t, err, generic.ErrNotFound)
}

func TestTransition_RejectKeepsReason(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	require.NoError(t, store.Insert(ctx, pendingShift("w-1", "u-1", "2025-03-18")))

	require.NoError(t, store.Transition(ctx, "w-1", generic.StatePending,
		generic.StateChange{To: generic.StateRejected, Actor: "adm", At: created, Reason: "wrong day"}))

	got, err := store.Get(ctx, "w-1")
	require.NoError(t, err)
	require.NotNil(t, got.RejectionReason)
	assert.Equal(t, "wrong day", *got.RejectionReason)
}

func TestSoftDelete_HidesFromDefaultFind(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	require.NoError(t, store.Insert(ctx, pendingShift("w-1", "u-1", "2025-03-18")))

	require.NoError(t, store.SoftDelete(ctx, "w-1", generic.StatePending,
		generic.Deletion{Actor: "u-1", At: created, Reason: "duplicate"}))

	visible, err := store.Find(ctx, generic.RecordFilter{})
	require.NoError(t, err)
	assert.Empty(t, visible)
	all, err := store.Find(ctx, generic.RecordFilter{IncludeDeleted: true})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, all[0].Deleted)
	assert.Equal(t, "duplicate", *all[0].DeletionReason)

	// Deleted rows are no longer live
	err = store.Transition(ctx, "w-1", generic.StatePending, generic.StateChange{To: generic.StateApproved, At: created})
	assert.ErrorIs(t, err, generic.ErrConcurrentModification)
}

func TestUpdateAndHardDelete_Conditional(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	r := pendingShift("w-1", "u-1", "2025-03-18")
	require.NoError(t, store.Insert(ctx, r))

	r.EndTime = "12:00"
	require.NoError(t, store.Update(ctx, r, generic.StatePending))
	assert.ErrorIs(t, store.Update(ctx, r, generic.StateDraft), generic.ErrConcurrentModification)

	got, err := store.Get(ctx, "w-1")
	require.NoError(t, err)
	assert.Equal(t, "12:00", got.EndTime)

	assert.ErrorIs(t, store.HardDelete(ctx, "w-1", generic.StateApproved), generic.ErrConcurrentModification)
	require.NoError(t, store.HardDelete(ctx, "w-1", generic.StatePending))
	assert.ErrorIs(t, store.HardDelete(ctx, "w-1", generic.StatePending), generic.ErrNotFound)
}

func TestFind_Filters(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	draft := pendingShift("w-draft", "u-1", "2025-03-17")
	draft.State, draft.IsDraft = generic.StateDraft, true
	leave := generic.Record{
		ID: "lr-1", Kind: timeoff.KindLeaveRequest, UserID: "u-1", State: generic.StatePending,
		Date: generic.MustParseDate("2025-03-28"), EndDate: generic.MustParseDate("2025-04-02"),
		CreatedAt: created, UpdatedAt: created,
	}
	for _, r := range []generic.Record{
		pendingShift("w-1", "u-1", "2025-03-18"),
		pendingShift("w-2", "u-2", "2025-03-19"),
		pendingShift("w-3", "u-1", "2025-04-01"),
		draft,
		leave,
	} {
		require.NoError(t, store.Insert(ctx, r))
	}
	user := generic.UserID("u-1")
	from, to := generic.MustParseDate("2025-03-03"), generic.MustParseDate("2025-03-30")

	got, err := store.Find(ctx, generic.RecordFilter{UserID: &user, From: &from, To: &to})

	// Spans overlapping the range match; drafts stay hidden
	require.NoError(t, err)
	assert.Equal(t, []generic.RecordID{"w-1", "lr-1"}, ids(got))

	got, err = store.Find(ctx, generic.RecordFilter{UserID: &user, IncludeDrafts: true, Kinds: []generic.Kind{timesheet.KindWorkEntry}})
	require.NoError(t, err)
	assert.Equal(t, []generic.RecordID{"w-draft", "w-1", "w-3"}, ids(got))

	got, err = store.Find(ctx, generic.RecordFilter{States: []generic.State{generic.StateDraft}, IncludeDrafts: true})
	require.NoError(t, err)
	assert.Equal(t, []generic.RecordID{"w-draft"}, ids(got))
}

func ids(records []generic.Record) []generic.RecordID {
	out := make([]generic.RecordID, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

// =============================================================================
// WEEKLY SUMMARIES
// =============================================================================

func TestAddSummaryMinutes_Upserts(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	cycle := generic.MustParseDate("2025-03-03")
	add := func(minutes int64) {
		require.NoError(t, store.AddSummaryMinutes(ctx, generic.WeeklySummary{
			UserID: "u-1", UserName: "Ana", CycleStart: cycle, Minutes: minutes, UpdatedAt: created,
		}))
	}

	add(510)
	add(240)
	add(-100)

	sum, err := store.GetSummary(ctx, "u-1", cycle)
	require.NoError(t, err)
	require.NotNil(t, sum)
	assert.Equal(t, int64(650), sum.Minutes)

	list, err := store.ListSummaries(ctx, cycle)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestPutAndDeleteSummary(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	cycle := generic.MustParseDate("2025-03-03")
	require.NoError(t, store.AddSummaryMinutes(ctx, generic.WeeklySummary{UserID: "u-1", CycleStart: cycle, Minutes: 10, UpdatedAt: created}))

	require.NoError(t, store.PutSummary(ctx, generic.WeeklySummary{UserID: "u-1", CycleStart: cycle, Minutes: 510, UpdatedAt: created}))
	sum, err := store.GetSummary(ctx, "u-1", cycle)
	require.NoError(t, err)
	assert.Equal(t, int64(510), sum.Minutes)

	require.NoError(t, store.DeleteSummary(ctx, "u-1", cycle))
	sum, err = store.GetSummary(ctx, "u-1", cycle)
	require.NoError(t, err)
	assert.Nil(t, sum)
}

// =============================================================================
// TRANSACTIONS AND AUDIT
// =============================================================================

func TestWithTx_RollsBackOnError(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	cycle := generic.MustParseDate("2025-03-03")

	err := store.WithTx(ctx, func(tx generic.Store) error {
		if err := tx.Insert(ctx, pendingShift("w-1", "u-1", "2025-03-18")); err != nil {
			return err
		}
		if err := tx.AddSummaryMinutes(ctx, generic.WeeklySummary{UserID: "u-1", CycleStart: cycle, Minutes: 510, UpdatedAt: created}); err != nil {
			return err
		}
		return errors.New("boom")
	})

	require.Error(t, err)
	got, err := store.Get(ctx, "w-1")
	require.NoError(t, err)
	assert.Nil(t, got)
	sum, err := store.GetSummary(ctx, "u-1", cycle)
	require.NoError(t, err)
	assert.Nil(t, sum)
}

func TestWithTx_Commits(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	err := store.WithTx(ctx, func(tx generic.Store) error {
		if err := tx.Insert(ctx, pendingShift("w-1", "u-1", "2025-03-18")); err != nil {
			return err
		}
		// reads inside the transaction see its own writes
		r, err := tx.Get(ctx, "w-1")
		if err != nil {
			return err
		}
		require.NotNil(t, r)
		return tx.Transition(ctx, "w-1", generic.StatePending, generic.StateChange{To: generic.StateApproved, Actor: "adm", At: created})
	})

	require.NoError(t, err)
	got, err := store.Get(ctx, "w-1")
	require.NoError(t, err)
	assert.Equal(t, generic.StateApproved, got.State)
}

func TestAudit_OrderedByTime(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	entries := []generic.AuditEntry{
		{ID: "a-2", RecordID: "w-1", Kind: timesheet.KindWorkEntry, ActorID: "adm", Action: generic.AuditApproved,
			FromState: generic.StatePending, ToState: generic.StateApproved, At: created.Add(time.Hour)},
		{ID: "a-1", RecordID: "w-1", Kind: timesheet.KindWorkEntry, ActorID: "u-1", Action: generic.AuditCreated,
			ToState: generic.StatePending, At: created},
		{ID: "a-3", RecordID: "w-2", Kind: timesheet.KindWorkEntry, ActorID: "u-1", Action: generic.AuditCreated, At: created},
	}
	for _, e := range entries {
		require.NoError(t, store.AppendAudit(ctx, e))
	}

	got, err := store.ListAudit(ctx, "w-1")

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, generic.AuditCreated, got[0].Action)
	assert.Equal(t, generic.AuditApproved, got[1].Action)
	assert.Equal(t, generic.StatePending, got[1].FromState)
	assert.True(t, created.Add(time.Hour).Equal(got[1].At))
}

func TestReset_ClearsEverything(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	require.NoError(t, store.Insert(ctx, pendingShift("w-1", "u-1", "2025-03-18")))
	require.NoError(t, store.AppendAudit(ctx, generic.AuditEntry{ID: "a-1", RecordID: "w-1", Action: generic.AuditCreated, At: created}))

	require.NoError(t, store.Reset(ctx))
	require.NoError(t, store.Ping(ctx))

	all, err := store.Find(ctx, generic.RecordFilter{IncludeDrafts: true, IncludeDeleted: true})
	require.NoError(t, err)
	assert.Empty(t, all)
	audit, err := store.ListAudit(ctx, "w-1")
	require.NoError(t, err)
	assert.Empty(t, audit)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := sqlite.Open("mysql", "whatever")
	assert.Error(t, err)
}

// =============================================================================
// SERVICE OVER SQLITE
// =============================================================================

func TestRecordService_OnSQLite(t *testing.T) {
	// GIVEN: The lifecycle service on a SQLite store
	store := newStore(t)
	ctx := context.Background()
	logger, _ := test.NewNullLogger()
	svc := generic.NewRecordService(store, generic.NewPayCalendar(generic.MustParseDate("2025-03-03")), logger)
	owner := generic.Identity{UserID: "u-1", DisplayName: "Ana"}
	admin := generic.Identity{UserID: "adm", IsAdmin: true}

	// WHEN: A shift is submitted, approved, and a second one hard-deleted
	shift, err := svc.Create(ctx, owner, generic.Record{
		Kind: timesheet.KindWorkEntry, Date: generic.MustParseDate("2025-03-18"), StartTime: "09:00", EndTime: "17:30",
	}, false)
	require.NoError(t, err)
	extra, err := svc.Create(ctx, owner, generic.Record{
		Kind: timesheet.KindWorkEntry, Date: generic.MustParseDate("2025-03-19"), StartTime: "09:00", EndTime: "10:00",
	}, false)
	require.NoError(t, err)
	_, err = svc.Approve(ctx, admin, shift.ID)
	require.NoError(t, err)
	_, err = svc.Approve(ctx, admin, shift.ID)
	assert.ErrorIs(t, err, generic.ErrAlreadyApproved)
	mode, err := svc.Delete(ctx, owner, generic.DeleteRequest{ID: extra.ID})
	require.NoError(t, err)
	assert.Equal(t, generic.DeleteHard, mode)

	// THEN: The summary reflects the surviving shift and the audit trail is kept
	cycle := svc.Calendar.CycleContaining(generic.MustParseDate("2025-03-18"))
	sum, err := svc.WeeklySummary(ctx, owner.UserID, cycle)
	require.NoError(t, err)
	require.NotNil(t, sum)
	assert.Equal(t, int64(510), sum.Minutes)

	audit, err := svc.Audit(ctx, extra.ID)
	require.NoError(t, err)
	require.Len(t, audit, 2)
	assert.Equal(t, generic.AuditHardDeleted, audit[1].Action)

	res, err := svc.ReconcileSummaries(ctx, cycle)
	require.NoError(t, err)
	assert.Zero(t, res.Corrected)
	assert.Zero(t, res.Removed)
}
