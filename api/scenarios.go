/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:
	Provides pre-built scenarios that populate the database with realistic
	staff records for demos. Dates are placed relative to the cycle that
	contains today so dashboards always have something to show.

AVAILABLE SCENARIOS:
	cycle-in-progress: Work, leave and training spread over the current cycle
	grace-review:      Previous cycle still awaiting approval
	payroll-history:   Finalized records, one soft-deleted, one rejected

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Build payloads with the kind packages' JSON helpers
 3. Create each record through RecordService as its owner
 4. Apply follow-up actions (submit, approve, reject, complete, delete)
    as the demo administrator

USAGE VIA API:
	POST /api/scenarios/load
	{"scenario_id": "grace-review"}

NOTE:
	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Error mapping shared with the scenario handlers
  - timesheet, timeoff, training: Payload helpers
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/warp/staff-hours/generic"
	"github.com/warp/staff-hours/timeoff"
	"github.com/warp/staff-hours/timesheet"
	"github.com/warp/staff-hours/training"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "cycle-in-progress",
		Name:        "Cycle In Progress",
		Description: "Two staff members with work entries, leave and training across the current cycle",
	},
	{
		ID:          "grace-review",
		Name:        "Grace Review",
		Description: "Previous cycle records still pending, as seen during the grace week",
	},
	{
		ID:          "payroll-history",
		Name:        "Payroll History",
		Description: "Approved and completed records, a soft-deleted leave and a rejected entry",
	},
}

var (
	demoAdmin = generic.Identity{UserID: "demo-admin", DisplayName: "Demo Admin", IsAdmin: true}
	demoAlice = generic.Identity{UserID: "alice", DisplayName: "Alice Martin"}
	demoBob   = generic.Identity{UserID: "bob", DisplayName: "Bob Okafor"}
)

// Follow-up actions applied after a record is created.
const (
	actSubmit   = "submit"
	actApprove  = "approve"
	actReject   = "reject"
	actComplete = "complete"
	actDelete   = "delete"
)

type seedRecord struct {
	owner   generic.Identity
	payload string
	then    []string
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	if current == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, ScenarioDTO{ID: current, Name: current})
}

// LoadScenario resets the database and loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var build func(generic.Cycle) []seedRecord
	switch req.ScenarioID {
	case "cycle-in-progress":
		build = cycleInProgressScenario
	case "grace-review":
		build = graceReviewScenario
	case "payroll-history":
		build = payrollHistoryScenario
	default:
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	ctx := r.Context()
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.Store.Reset(ctx); err != nil {
		h.writeServiceError(w, r, "reset database", err)
		return
	}
	h.currentScenario = ""

	today := generic.DateOf(h.Service.Now())
	if err := h.seed(ctx, build(h.Service.Calendar.CycleContaining(today))); err != nil {
		h.writeServiceError(w, r, "load scenario", fmt.Errorf("scenario %s: %w", req.ScenarioID, err))
		return
	}
	h.currentScenario = req.ScenarioID

	h.Log.WithField("scenario", req.ScenarioID).Info("scenario loaded")
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// ResetDatabase clears all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.Store.Reset(r.Context()); err != nil {
		h.writeServiceError(w, r, "reset database", err)
		return
	}
	h.currentScenario = ""
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func cycleInProgressScenario(c generic.Cycle) []seedRecord {
	w1, w2, w3 := c.Weeks[0].Start, c.Weeks[1].Start, c.Weeks[2].Start
	return []seedRecord{
		{demoAlice, timesheet.WorkEntryJSON(w1, "09:00", "17:30", false), []string{actApprove}},
		{demoAlice, timesheet.WorkEntryJSON(w1.AddDays(1), "09:00", "17:00", false), []string{actApprove}},
		{demoAlice, timesheet.WorkEntryJSON(w2, "08:30", "16:45", false), nil},
		{demoAlice, timesheet.WorkEntryJSON(w2.AddDays(1), "10:00", "14:00", true), nil},
		{demoAlice, timeoff.LeaveRequestJSON(w3.AddDays(2), w3.AddDays(4), timeoff.LeaveAnnual, "Family trip"), []string{actApprove}},
		{demoBob, timesheet.WorkEntryJSON(w1.AddDays(2), "22:00", "06:00", false), nil},
		{demoBob, timesheet.WorkEntryJSON(w2.AddDays(3), "09:00", "17:30", false), []string{actApprove}},
		{demoBob, timeoff.LeaveHoursJSON(w2.AddDays(4), 4.5, timeoff.LeaveOther, "Dentist"), nil},
		{demoBob, training.SessionJSON(w3, 3, "First aid refresher"), nil},
	}
}

func graceReviewScenario(c generic.Cycle) []seedRecord {
	prev := c.Previous()
	last := prev.Weeks[generic.WeeksPerCycle-1].Start
	return []seedRecord{
		{demoAlice, timesheet.WorkEntryJSON(last, "09:00", "17:30", false), nil},
		{demoAlice, timesheet.WorkEntryJSON(last.AddDays(1), "09:00", "17:30", false), nil},
		{demoAlice, timesheet.WorkEntryJSON(last.AddDays(2), "09:00", "13:00", true), []string{actSubmit}},
		{demoBob, timesheet.WorkEntryJSON(last.AddDays(3), "07:00", "15:30", false), []string{actApprove}},
		{demoBob, timeoff.SickDayJSON(last.AddDays(4)), nil},
		{demoBob, training.SessionJSON(last.AddDays(1), 2, "Fire safety"), []string{actApprove}},
		{demoAlice, timesheet.WorkEntryJSON(c.Weeks[0].Start, "09:00", "17:00", false), nil},
	}
}

func payrollHistoryScenario(c generic.Cycle) []seedRecord {
	w1, w2 := c.Weeks[0].Start, c.Weeks[1].Start
	return []seedRecord{
		{demoAlice, timesheet.WorkEntryJSON(w1, "09:00", "17:30", false), []string{actApprove}},
		{demoAlice, timesheet.WorkEntryJSON(w1.AddDays(1), "09:00", "17:30", false), []string{actApprove}},
		{demoAlice, timeoff.LeaveHoursJSON(w1.AddDays(2), 4.5, timeoff.LeaveAnnual, ""), []string{actApprove, actDelete}},
		{demoAlice, training.SessionJSON(w2, 6, "Manual handling"), []string{actApprove, actComplete}},
		{demoBob, timesheet.WorkEntryJSON(w1.AddDays(3), "09:00", "12:00", false), []string{actReject}},
		{demoBob, timesheet.WorkEntryJSON(w2.AddDays(1), "12:00", "20:00", false), []string{actApprove}},
		{demoBob, timeoff.LeaveRequestJSON(w2.AddDays(2), w2.AddDays(3), timeoff.LeaveUnpaid, ""), []string{actApprove}},
	}
}

// seed creates each record as its owner and applies the follow-ups.
func (h *Handler) seed(ctx context.Context, records []seedRecord) error {
	for i, s := range records {
		in, isDraft, err := h.Factory.ParseRecord([]byte(s.payload))
		if err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
		rec, err := h.Service.Create(ctx, s.owner, in, isDraft)
		if err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
		for _, action := range s.then {
			if err := h.applySeedAction(ctx, s.owner, rec.ID, action); err != nil {
				return fmt.Errorf("record %d %s: %w", i, action, err)
			}
		}
	}
	return nil
}

func (h *Handler) applySeedAction(ctx context.Context, owner generic.Identity, id generic.RecordID, action string) error {
	var err error
	switch action {
	case actSubmit:
		_, err = h.Service.SubmitDraft(ctx, owner, id)
	case actApprove:
		_, err = h.Service.Approve(ctx, demoAdmin, id)
	case actReject:
		_, err = h.Service.Reject(ctx, demoAdmin, id, "Hours do not match the rota")
	case actComplete:
		_, err = h.Service.Complete(ctx, demoAdmin, id)
	case actDelete:
		_, err = h.Service.Delete(ctx, owner, generic.DeleteRequest{ID: id, Reason: "Booked in error"})
	default:
		err = fmt.Errorf("unknown action %q", action)
	}
	return err
}
