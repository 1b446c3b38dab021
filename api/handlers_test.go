/*
handlers_test.go - HTTP tests for the record, cycle and summary endpoints

Tests drive the full router (auth, admin gate, JSON mapping) against the
in-memory store with a fixed clock.
*/
package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/staff-hours/generic"
	memstore "github.com/warp/staff-hours/generic/store"
)

const (
	testSecret = "test-secret-0123456789abcdef-0123456789"
	testIssuer = "staff-hours"
)

var (
	alice  = generic.Identity{UserID: "alice", DisplayName: "Alice Martin"}
	bob    = generic.Identity{UserID: "bob", DisplayName: "Bob Okafor"}
	admin  = generic.Identity{UserID: "boss", DisplayName: "Admin", IsAdmin: true}
	nobody = generic.Identity{}
)

type testEnv struct {
	t       *testing.T
	now     time.Time
	mem     *memstore.TxMemory
	handler *Handler
	router  http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger, _ := test.NewNullLogger()
	env := &testEnv{
		t:   t,
		now: time.Date(2025, time.March, 19, 10, 0, 0, 0, time.Local),
		mem: memstore.NewTxMemory(),
	}
	svc := generic.NewRecordService(env.mem, generic.NewPayCalendar(generic.MustParseDate("2025-03-03")), logger)
	svc.Now = func() time.Time { return env.now }
	env.handler = NewHandler(svc, env.mem, decimal.NewFromInt(20), logger)
	env.router = NewRouter(env.handler, RouterOptions{
		Verifier:       NewTokenVerifier(testSecret, testIssuer),
		AllowedOrigins: []string{"*"},
		CORSMaxAge:     300,
	})
	return env
}

// do sends a request as who; the zero identity sends no token.
func (e *testEnv) do(who generic.Identity, method, path, body string) *httptest.ResponseRecorder {
	e.t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if who.UserID != "" {
		token, err := IssueToken(testSecret, testIssuer, who, time.Hour)
		require.NoError(e.t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (e *testEnv) createRecord(who generic.Identity, payload string) RecordDTO {
	e.t.Helper()
	rec := e.do(who, http.MethodPost, "/api/records", payload)
	require.Equal(e.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeBody[RecordDTO](e.t, rec)
}

const shiftPayload = `{"kind":"work_entry","date":"2025-03-18","start_time":"09:00","end_time":"17:30"}`

// =============================================================================
// AUTH AND ROUTING
// =============================================================================

func TestHealth_IsPublic(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(nobody, http.MethodGet, "/api/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRoutes_RequireToken(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(nobody, http.MethodGet, "/api/records", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/records", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	bad := httptest.NewRecorder()
	env.router.ServeHTTP(bad, req)
	assert.Equal(t, http.StatusUnauthorized, bad.Code)
}

func TestAdminRoutes_RequireAdminClaim(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/api/admin/records", "/api/admin/summary", "/api/scenarios"} {
		rec := env.do(alice, http.MethodGet, path, "")
		assert.Equal(t, http.StatusForbidden, rec.Code, path)
	}
	rec := env.do(admin, http.MethodGet, "/api/admin/records", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUnknownRoute_JSON404(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(alice, http.MethodGet, "/api/nothing-here", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestCORS_Preflight(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/records", nil)
	req.Header.Set("Origin", "https://hours.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()

	env.router.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

// =============================================================================
// CYCLES
// =============================================================================

func TestCurrentCycle_DuringGrace(t *testing.T) {
	// GIVEN: Wednesday of the week after the first cycle ends
	env := newTestEnv(t)
	env.now = time.Date(2025, time.April, 2, 12, 0, 0, 0, time.Local)

	// WHEN: Asking for the current cycle
	rec := env.do(alice, http.MethodGet, "/api/cycles/current", "")

	// THEN: The previous cycle is shown with the grace flag
	require.Equal(t, http.StatusOK, rec.Code)
	dto := decodeBody[CycleDTO](t, rec)
	assert.Equal(t, 0, dto.Index)
	assert.Equal(t, "2025-03-03", dto.StartDate)
	assert.Equal(t, "2025-03-30", dto.EndDate)
	require.NotNil(t, dto.IsGracePeriod)
	assert.True(t, *dto.IsGracePeriod)
	assert.Len(t, dto.Weeks, generic.WeeksPerCycle)
}

func TestCycleForDate(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(alice, http.MethodGet, "/api/cycles?date=2025-03-31", "")
	require.Equal(t, http.StatusOK, rec.Code)
	dto := decodeBody[CycleDTO](t, rec)
	assert.Equal(t, 1, dto.Index)
	assert.Nil(t, dto.IsGracePeriod)
	assert.Equal(t, "2025-04-07", dto.Weeks[1].StartDate)

	assert.Equal(t, http.StatusBadRequest, env.do(alice, http.MethodGet, "/api/cycles", "").Code)
	assert.Equal(t, http.StatusBadRequest, env.do(alice, http.MethodGet, "/api/cycles?date=31-03-2025", "").Code)
}

// =============================================================================
// RECORD LIFECYCLE
// =============================================================================

func TestRecordLifecycle_OverHTTP(t *testing.T) {
	env := newTestEnv(t)

	// GIVEN: Alice submits a shift
	created := env.createRecord(alice, shiftPayload)
	assert.Equal(t, "pending", created.Status)
	assert.Equal(t, "alice", created.UserID)
	assert.Equal(t, "Alice Martin", created.UserName)
	assert.Equal(t, "work_entry", created.Kind)

	// WHEN: An admin approves it twice
	first := env.do(admin, http.MethodPost, "/api/admin/records/"+created.ID+"/approve", "")
	second := env.do(admin, http.MethodPost, "/api/admin/records/"+created.ID+"/approve", "")

	// THEN: The second approval reports the specific conflict
	require.Equal(t, http.StatusOK, first.Code, first.Body.String())
	approved := decodeBody[RecordDTO](t, first)
	assert.Equal(t, "approved", approved.Status)
	require.NotNil(t, approved.ApprovedBy)
	assert.Equal(t, "boss", *approved.ApprovedBy)

	assert.Equal(t, http.StatusConflict, second.Code)
	assert.Equal(t, "already_approved", decodeBody[ErrorResponse](t, second).Code)

	// AND: Alice can no longer remove the approved shift, an admin can
	assert.Equal(t, http.StatusForbidden, env.do(alice, http.MethodDelete, "/api/records/"+created.ID, "").Code)
	del := env.do(admin, http.MethodDelete, "/api/admin/records/"+created.ID, `{"reason":"duplicate entry"}`)
	require.Equal(t, http.StatusOK, del.Code, del.Body.String())
	assert.Equal(t, DeleteResponse{ID: created.ID, Mode: "soft"}, decodeBody[DeleteResponse](t, del))

	// AND: The soft-deleted record is still retrievable
	got := env.do(alice, http.MethodGet, "/api/records/"+created.ID, "")
	require.Equal(t, http.StatusOK, got.Code)
	dto := decodeBody[RecordDTO](t, got)
	assert.True(t, dto.Deleted)
	require.NotNil(t, dto.DeletionReason)
	assert.Equal(t, "duplicate entry", *dto.DeletionReason)
}

func TestCreateRecord_ValidationDetails(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(alice, http.MethodPost, "/api/records",
		`{"kind":"work_entry","date":"2025-03-18","start_time":"09:00","end_time":"9pm"}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody[struct {
		Code    string            `json:"code"`
		Details map[string]string `json:"details"`
	}](t, rec)
	assert.Equal(t, "validation", body.Code)
	assert.Equal(t, "time", body.Details["field"])

	unknown := env.do(alice, http.MethodPost, "/api/records", `{"kind":"overtime","date":"2025-03-18"}`)
	assert.Equal(t, http.StatusBadRequest, unknown.Code)

	garbage := env.do(alice, http.MethodPost, "/api/records", `{"kind":`)
	assert.Equal(t, http.StatusBadRequest, garbage.Code)
}

func TestRejectRecord_RequiresReason(t *testing.T) {
	env := newTestEnv(t)
	created := env.createRecord(alice, shiftPayload)
	path := "/api/admin/records/" + created.ID + "/reject"

	missing := env.do(admin, http.MethodPost, path, `{"reason":"  "}`)
	assert.Equal(t, http.StatusBadRequest, missing.Code)

	ok := env.do(admin, http.MethodPost, path, `{"reason":"Not on the rota"}`)
	require.Equal(t, http.StatusOK, ok.Code)
	dto := decodeBody[RecordDTO](t, ok)
	assert.Equal(t, "rejected", dto.Status)
	require.NotNil(t, dto.RejectionReason)
	assert.Equal(t, "Not on the rota", *dto.RejectionReason)

	again := env.do(admin, http.MethodPost, "/api/admin/records/"+created.ID+"/approve", "")
	assert.Equal(t, http.StatusConflict, again.Code)
	assert.Equal(t, "already_rejected", decodeBody[ErrorResponse](t, again).Code)
}

func TestEditAndSubmitDraft(t *testing.T) {
	env := newTestEnv(t)
	draft := env.createRecord(alice, `{"kind":"work_entry","date":"2025-03-18","start_time":"09:00","end_time":"17:30","is_draft":true}`)
	assert.Equal(t, "draft", draft.Status)

	edit := env.do(alice, http.MethodPut, "/api/records/"+draft.ID, `{"end_time":"13:00"}`)
	require.Equal(t, http.StatusOK, edit.Code, edit.Body.String())
	assert.Equal(t, "13:00", decodeBody[RecordDTO](t, edit).EndTime)

	// Only the owner edits or submits
	assert.Equal(t, http.StatusForbidden, env.do(bob, http.MethodPut, "/api/records/"+draft.ID, `{"end_time":"14:00"}`).Code)
	assert.Equal(t, http.StatusForbidden, env.do(bob, http.MethodPost, "/api/records/"+draft.ID+"/submit", "").Code)

	submit := env.do(alice, http.MethodPost, "/api/records/"+draft.ID+"/submit", "")
	require.Equal(t, http.StatusOK, submit.Code)
	assert.Equal(t, "pending", decodeBody[RecordDTO](t, submit).Status)

	sums := env.do(admin, http.MethodGet, "/api/admin/weekly-summaries?date=2025-03-18", "")
	require.Equal(t, http.StatusOK, sums.Code)
	rows := decodeBody[[]WeeklySummaryDTO](t, sums)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(240), rows[0].Minutes)
	assert.Equal(t, "4:00", rows[0].Hours)
	assert.Equal(t, "2025-03-03", rows[0].CycleStart)
}

func TestGetRecord_NotFoundAndForbidden(t *testing.T) {
	env := newTestEnv(t)
	created := env.createRecord(alice, shiftPayload)

	assert.Equal(t, http.StatusNotFound, env.do(alice, http.MethodGet, "/api/records/missing", "").Code)
	assert.Equal(t, http.StatusForbidden, env.do(bob, http.MethodGet, "/api/records/"+created.ID, "").Code)
	assert.Equal(t, http.StatusOK, env.do(admin, http.MethodGet, "/api/records/"+created.ID, "").Code)
}

func TestListRecords_Filters(t *testing.T) {
	env := newTestEnv(t)
	env.createRecord(alice, shiftPayload)
	env.createRecord(alice, `{"kind":"work_entry","date":"2025-03-19","start_time":"09:00","end_time":"12:00","is_draft":true}`)
	env.createRecord(bob, shiftPayload)

	list := func(who generic.Identity, path string) []RecordDTO {
		rec := env.do(who, http.MethodGet, path, "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		return decodeBody[[]RecordDTO](t, rec)
	}

	assert.Len(t, list(alice, "/api/records"), 1, "own records, drafts hidden")
	assert.Len(t, list(alice, "/api/records?includeDrafts=true"), 2)
	drafts := list(alice, "/api/records?status=draft")
	require.Len(t, drafts, 1)
	assert.Equal(t, "draft", drafts[0].Status)
	assert.Len(t, list(alice, "/api/records?startDate=2025-03-19&includeDrafts=true"), 1)
	assert.Len(t, list(admin, "/api/admin/records"), 2)
	assert.Len(t, list(admin, "/api/admin/records?user=bob"), 1)
	assert.Empty(t, list(admin, "/api/admin/records?kind=leave_hours"))

	assert.Equal(t, http.StatusBadRequest, env.do(alice, http.MethodGet, "/api/records?status=archived", "").Code)
	assert.Equal(t, http.StatusBadRequest, env.do(alice, http.MethodGet, "/api/records?kind=overtime", "").Code)
	assert.Equal(t, http.StatusBadRequest, env.do(alice, http.MethodGet, "/api/records?startDate=soon", "").Code)
}

func TestCompleteTraining_AndAudit(t *testing.T) {
	env := newTestEnv(t)
	course := env.createRecord(bob, `{"kind":"training","date":"2025-03-20","hours":3,"title":"First aid"}`)
	base := "/api/admin/records/" + course.ID

	assert.Equal(t, http.StatusForbidden, env.do(admin, http.MethodPost, base+"/complete", "").Code)
	require.Equal(t, http.StatusOK, env.do(admin, http.MethodPost, base+"/approve", "").Code)
	done := env.do(admin, http.MethodPost, base+"/complete", "")
	require.Equal(t, http.StatusOK, done.Code)
	assert.Equal(t, "completed", decodeBody[RecordDTO](t, done).Status)
	assert.Equal(t, "First aid", decodeBody[RecordDTO](t, done).Title)

	audit := env.do(admin, http.MethodGet, base+"/audit", "")
	require.Equal(t, http.StatusOK, audit.Code)
	entries := decodeBody[[]AuditDTO](t, audit)
	require.Len(t, entries, 3)
	assert.Equal(t, []string{"created", "approved", "completed"},
		[]string{entries[0].Action, entries[1].Action, entries[2].Action})
}

// =============================================================================
// SUMMARIES
// =============================================================================

func TestSummary_PayEstimate(t *testing.T) {
	// GIVEN: A pending 510-minute shift and approved 1.5h leave for Alice
	env := newTestEnv(t)
	env.createRecord(alice, shiftPayload)
	leave := env.createRecord(alice, `{"kind":"leave_hours","date":"2025-03-20","hours":1.5}`)
	require.Equal(t, http.StatusOK, env.do(admin, http.MethodPost, "/api/admin/records/"+leave.ID+"/approve", "").Code)
	env.createRecord(alice, `{"kind":"leave_hours","date":"2025-03-21","hours":2}`)

	// WHEN: Alice asks for her summary at 20/hour
	rec := env.do(alice, http.MethodGet, "/api/summary", "")

	// THEN: 600 minutes count, pending leave does not
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	sum := decodeBody[SummaryDTO](t, rec)
	assert.Equal(t, "alice", sum.UserID)
	assert.Equal(t, "2025-03-03", sum.Cycle.StartDate)
	assert.Equal(t, int64(600), sum.PayMinutes)
	assert.Equal(t, "10:00", sum.PayHours)
	assert.True(t, decimal.NewFromInt(200).Equal(sum.EstimatedPay), "got %s", sum.EstimatedPay)

	byKind := map[string]KindTotalsDTO{}
	for _, k := range sum.Kinds {
		byKind[k.Kind] = k
	}
	assert.Equal(t, int64(510), byKind["work_entry"].TotalMinutes)
	assert.Equal(t, int64(90), byKind["leave_hours"].TotalMinutes)
	assert.True(t, byKind["leave_hours"].ApprovedOnly)
	require.Len(t, byKind["work_entry"].Weeks, generic.WeeksPerCycle)
	assert.Equal(t, int64(510), byKind["work_entry"].Weeks[2].Minutes)
}

func TestAdminSummary_AllUsers(t *testing.T) {
	env := newTestEnv(t)
	env.createRecord(alice, shiftPayload)
	env.createRecord(bob, `{"kind":"work_entry","date":"2025-03-18","start_time":"09:00","end_time":"12:00"}`)

	rec := env.do(admin, http.MethodGet, "/api/admin/summary?date=2025-03-18", "")

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[AdminSummaryDTO](t, rec)
	require.Len(t, resp.Users, 2)
	minutes := map[string]int64{}
	for _, u := range resp.Users {
		minutes[u.UserID] = u.PayMinutes
	}
	assert.Equal(t, map[string]int64{"alice": 510, "bob": 180}, minutes)

	assert.Equal(t, http.StatusBadRequest, env.do(admin, http.MethodGet, "/api/admin/summary?date=yesterday", "").Code)
}

func TestSummary_IncludeDeletedHistory(t *testing.T) {
	env := newTestEnv(t)
	leave := env.createRecord(alice, `{"kind":"leave_hours","date":"2025-03-20","hours":4.5}`)
	require.Equal(t, http.StatusOK, env.do(admin, http.MethodPost, "/api/admin/records/"+leave.ID+"/approve", "").Code)
	del := env.do(alice, http.MethodDelete, "/api/records/"+leave.ID, "")
	require.Equal(t, http.StatusOK, del.Code)
	assert.Equal(t, "soft", decodeBody[DeleteResponse](t, del).Mode)

	live := decodeBody[SummaryDTO](t, env.do(alice, http.MethodGet, "/api/summary", ""))
	history := decodeBody[SummaryDTO](t, env.do(alice, http.MethodGet, "/api/summary?includeDeleted=true", ""))

	assert.Equal(t, int64(0), live.PayMinutes)
	assert.Equal(t, int64(270), history.PayMinutes)
}
