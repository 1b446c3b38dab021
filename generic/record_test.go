package generic_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/staff-hours/generic"
)

// stubKind lets rule tests toggle kind behaviour without the registry.
type stubKind struct {
	completion bool
	ownerSoft  bool
}

func (stubKind) Kind() generic.Kind                               { return "stub" }
func (stubKind) Validate(*generic.Record) error                   { return nil }
func (stubKind) Duration(*generic.Record) (generic.Amount, error) { return generic.Minutes(0), nil }
func (k stubKind) SupportsCompletion() bool                       { return k.completion }
func (k stubKind) OwnerMaySoftDelete() bool                       { return k.ownerSoft }
func (stubKind) TracksWeeklySummary() bool                        { return false }

var (
	owner    = generic.Identity{UserID: "u-1", DisplayName: "Ana"}
	stranger = generic.Identity{UserID: "u-2", DisplayName: "Ben"}
	admin    = generic.Identity{UserID: "adm", DisplayName: "Admin", IsAdmin: true}
)

func recordIn(state generic.State) *generic.Record {
	return &generic.Record{
		ID:      "r-1",
		UserID:  owner.UserID,
		State:   state,
		IsDraft: state == generic.StateDraft,
		Date:    date("2025-03-18"),
		EndDate: date("2025-03-18"),
	}
}

// =============================================================================
// TRANSITION RULES
// =============================================================================

func TestCheckApprove(t *testing.T) {
	tests := []struct {
		state generic.State
		want  error
	}{
		{generic.StatePending, nil},
		{generic.StateDraft, generic.ErrForbidden},
		{generic.StateApproved, generic.ErrAlreadyApproved},
		{generic.StateCompleted, generic.ErrAlreadyApproved},
		{generic.StateRejected, generic.ErrAlreadyRejected},
	}
	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			err := generic.CheckApprove(recordIn(tt.state))
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCheckReject_ReasonRequiredFirst(t *testing.T) {
	// GIVEN: An already-approved record
	// WHEN: Rejecting with a blank reason
	err := generic.CheckReject(recordIn(generic.StateApproved), "   ")

	// THEN: The missing reason is reported, not the state
	assert.ErrorIs(t, err, generic.ErrValidation)
	assert.NotErrorIs(t, err, generic.ErrAlreadyApproved)
}

func TestCheckReject(t *testing.T) {
	tests := []struct {
		state generic.State
		want  error
	}{
		{generic.StatePending, nil},
		{generic.StateDraft, generic.ErrForbidden},
		{generic.StateApproved, generic.ErrAlreadyApproved},
		{generic.StateCompleted, generic.ErrAlreadyApproved},
		{generic.StateRejected, generic.ErrAlreadyRejected},
	}
	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			err := generic.CheckReject(recordIn(tt.state), "hours do not match")
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCheckSubmit(t *testing.T) {
	assert.NoError(t, generic.CheckSubmit(recordIn(generic.StateDraft), owner))
	assert.ErrorIs(t, generic.CheckSubmit(recordIn(generic.StateDraft), stranger), generic.ErrForbidden)
	assert.ErrorIs(t, generic.CheckSubmit(recordIn(generic.StatePending), owner), generic.ErrForbidden)
}

func TestCheckEdit(t *testing.T) {
	assert.NoError(t, generic.CheckEdit(recordIn(generic.StateDraft), owner))
	assert.NoError(t, generic.CheckEdit(recordIn(generic.StatePending), owner))

	// Finalized and rejected records are immutable
	for _, s := range []generic.State{generic.StateApproved, generic.StateRejected, generic.StateCompleted} {
		assert.ErrorIs(t, generic.CheckEdit(recordIn(s), owner), generic.ErrForbidden, string(s))
	}
	// Only the owner edits, admins included
	assert.ErrorIs(t, generic.CheckEdit(recordIn(generic.StatePending), admin), generic.ErrForbidden)
}

func TestCheckComplete(t *testing.T) {
	trainingLike := stubKind{completion: true}

	assert.NoError(t, generic.CheckComplete(recordIn(generic.StateApproved), trainingLike))
	assert.ErrorIs(t, generic.CheckComplete(recordIn(generic.StatePending), trainingLike), generic.ErrForbidden)
	assert.ErrorIs(t, generic.CheckComplete(recordIn(generic.StateApproved), stubKind{}), generic.ErrForbidden)
}

func TestTransitions_DeletedRecordIsForbidden(t *testing.T) {
	r := recordIn(generic.StatePending)
	r.Deleted = true

	assert.ErrorIs(t, generic.CheckApprove(r), generic.ErrForbidden)
	assert.ErrorIs(t, generic.CheckReject(r, "x"), generic.ErrForbidden)
	assert.ErrorIs(t, generic.CheckEdit(r, owner), generic.ErrForbidden)
	_, err := generic.PlanDelete(r, owner, stubKind{}, false)
	assert.ErrorIs(t, err, generic.ErrForbidden)
}

func TestTransitionError_CarriesState(t *testing.T) {
	err := generic.CheckApprove(recordIn(generic.StateRejected))

	var terr *generic.TransitionError
	require.ErrorAs(t, err, &terr)
	assert.Contains(t, err.Error(), "rejected")
}

// =============================================================================
// DELETE PLANNING
// =============================================================================

func TestPlanDelete(t *testing.T) {
	tests := []struct {
		name    string
		state   generic.State
		actor   generic.Identity
		kind    stubKind
		asAdmin bool
		want    generic.DeleteMode
		wantErr error
	}{
		{"owner deletes draft", generic.StateDraft, owner, stubKind{}, false, generic.DeleteHard, nil},
		{"owner deletes pending", generic.StatePending, owner, stubKind{}, false, generic.DeleteHard, nil},
		{"owner deletes rejected", generic.StateRejected, owner, stubKind{}, false, generic.DeleteHard, nil},
		{"owner cannot remove approved shift", generic.StateApproved, owner, stubKind{}, false, "", generic.ErrForbidden},
		{"owner soft-deletes approved leave hours", generic.StateApproved, owner, stubKind{ownerSoft: true}, false, generic.DeleteSoft, nil},
		{"owner soft-deletes completed training", generic.StateCompleted, owner, stubKind{ownerSoft: true}, false, generic.DeleteSoft, nil},
		{"admin soft-deletes approved shift", generic.StateApproved, admin, stubKind{}, true, generic.DeleteSoft, nil},
		{"admin hard-deletes pending", generic.StatePending, admin, stubKind{}, true, generic.DeleteHard, nil},
		{"stranger cannot delete", generic.StatePending, stranger, stubKind{}, false, "", generic.ErrForbidden},
		{"admin on owner surface is a stranger", generic.StatePending, admin, stubKind{}, false, "", generic.ErrForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mode, err := generic.PlanDelete(recordIn(tt.state), tt.actor, tt.kind, tt.asAdmin)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, mode)
		})
	}
}

// =============================================================================
// PATCH AND VISIBILITY
// =============================================================================

func TestRecordPatch_DateMovesSingleDayEnd(t *testing.T) {
	r := *recordIn(generic.StatePending)
	moved := date("2025-03-20")

	got := generic.RecordPatch{Date: &moved}.ApplyTo(r)

	assert.Equal(t, "2025-03-20", got.Date.String())
	assert.Equal(t, "2025-03-20", got.EndDate.String())
	assert.Equal(t, "2025-03-18", r.Date.String(), "original is untouched")
}

func TestRecordPatch_DateKeepsRangeEnd(t *testing.T) {
	r := *recordIn(generic.StatePending)
	r.EndDate = date("2025-03-21")
	moved := date("2025-03-19")

	got := generic.RecordPatch{Date: &moved}.ApplyTo(r)

	assert.Equal(t, "2025-03-19", got.Date.String())
	assert.Equal(t, "2025-03-21", got.EndDate.String())
}

func TestVisibleInQueue(t *testing.T) {
	now := at("2025-03-20 12:00:00.000")
	window := generic.DefaultVisibilityWindow

	approved := recordIn(generic.StateApproved)
	approved.UpdatedAt = now.Add(-23 * time.Hour)
	assert.True(t, generic.VisibleInQueue(approved, now, window))

	approved.UpdatedAt = now.Add(-25 * time.Hour)
	assert.False(t, generic.VisibleInQueue(approved, now, window))

	pending := recordIn(generic.StatePending)
	pending.UpdatedAt = now.Add(-30 * 24 * time.Hour)
	assert.True(t, generic.VisibleInQueue(pending, now, window))

	pending.Deleted = true
	assert.False(t, generic.VisibleInQueue(pending, now, window))
}
