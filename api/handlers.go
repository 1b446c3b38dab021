/*
handlers.go - HTTP API handlers for the time and leave tracker

PURPOSE:
  Exposes the record lifecycle engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to RecordService.

ENDPOINTS:
  Cycles:
    GET    /api/cycles/current              Display cycle (grace aware)
    GET    /api/cycles?date=YYYY-MM-DD      Cycle containing a date

  Records (owner):
    POST   /api/records                     Create record or draft
    GET    /api/records                     Own records
    GET    /api/records/{id}                Get record
    PUT    /api/records/{id}                Edit draft or pending record
    POST   /api/records/{id}/submit         Submit draft
    DELETE /api/records/{id}                Delete (hard or soft)
    GET    /api/summary                     Own per-week totals

  Admin:
    GET    /api/admin/records               All users' records
    POST   /api/admin/records/{id}/approve  Approve
    POST   /api/admin/records/{id}/reject   Reject with reason
    POST   /api/admin/records/{id}/complete Complete training
    DELETE /api/admin/records/{id}          Admin delete
    GET    /api/admin/records/{id}/audit    Audit trail
    GET    /api/admin/summary               Per-user totals
    GET    /api/admin/weekly-summaries      Stored running totals

LIST QUERY PARAMETERS:
  startDate, endDate   YYYY-MM-DD overlap filter
  includeDrafts        true to include drafts
  includeDeleted       true to include soft-deleted records
  status               comma-separated states
  kind                 comma-separated kinds
  view=queue           hide approved records older than the visibility window
  user                 admin list only

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 401: Missing or invalid bearer token
  - 403: Not the owner, not an admin, or not allowed in this state
  - 404: Record not found
  - 409: Already approved/rejected, or lost a concurrent update
  - 500: Storage failures (details are logged, never returned)

SEE ALSO:
  - dto.go: Request/response data structures
  - auth.go: Identity middleware
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/warp/staff-hours/factory"
	"github.com/warp/staff-hours/generic"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Maintenance is the store surface used by health checks and scenarios.
type Maintenance interface {
	Reset(ctx context.Context) error
	Ping(ctx context.Context) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service    *generic.RecordService
	Factory    *factory.RecordFactory
	Store      Maintenance
	HourlyRate decimal.Decimal
	Log        logrus.FieldLogger

	// Track currently loaded scenario
	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a new handler around the service.
func NewHandler(svc *generic.RecordService, store Maintenance, hourlyRate decimal.Decimal, log logrus.FieldLogger) *Handler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Handler{
		Service:    svc,
		Factory:    factory.NewRecordFactory(),
		Store:      store,
		HourlyRate: hourlyRate,
		Log:        log,
	}
}

// Health reports liveness and store connectivity.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Ping(r.Context()); err != nil {
		h.Log.WithError(err).Error("health check failed")
		writeError(w, http.StatusServiceUnavailable, "Database unavailable", nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// CYCLE ENDPOINTS
// =============================================================================

// CurrentCycle returns the display cycle for now.
func (h *Handler) CurrentCycle(w http.ResponseWriter, r *http.Request) {
	dc := h.Service.Calendar.ResolveDisplayCycle(h.Service.Now())
	writeJSON(w, http.StatusOK, toDisplayCycleDTO(dc))
}

// CycleForDate returns the cycle containing ?date=.
func (h *Handler) CycleForDate(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("date")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "date is required", nil)
		return
	}
	date, err := generic.ParseDate(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD", err)
		return
	}
	writeJSON(w, http.StatusOK, toCycleDTO(h.Service.Calendar.CycleContaining(date)))
}

// =============================================================================
// RECORD ENDPOINTS
// =============================================================================

// CreateRecord creates a record owned by the caller.
func (h *Handler) CreateRecord(w http.ResponseWriter, r *http.Request) {
	actor := mustIdentity(r)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	in, isDraft, err := h.Factory.ParseRecord(body)
	if err != nil {
		h.writeServiceError(w, r, "create record", err)
		return
	}

	rec, err := h.Service.Create(r.Context(), actor, in, isDraft)
	if err != nil {
		h.writeServiceError(w, r, "create record", err)
		return
	}
	writeJSON(w, http.StatusCreated, h.toRecordDTO(*rec))
}

// ListRecords lists the caller's own records.
func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	actor := mustIdentity(r)
	q, err := parseListQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid query", err)
		return
	}
	user := actor.UserID
	q.Filter.UserID = &user
	h.listRecords(w, r, q)
}

// AdminListRecords lists every user's records, or one user's with ?user=.
func (h *Handler) AdminListRecords(w http.ResponseWriter, r *http.Request) {
	q, err := parseListQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid query", err)
		return
	}
	if raw := r.URL.Query().Get("user"); raw != "" {
		user := generic.UserID(raw)
		q.Filter.UserID = &user
	}
	h.listRecords(w, r, q)
}

func (h *Handler) listRecords(w http.ResponseWriter, r *http.Request, q generic.ListQuery) {
	records, err := h.Service.List(r.Context(), q)
	if err != nil {
		h.writeServiceError(w, r, "list records", err)
		return
	}
	writeJSON(w, http.StatusOK, h.toRecordDTOs(records))
}

// GetRecord returns a record, including soft-deleted ones.
func (h *Handler) GetRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Service.Get(r.Context(), mustIdentity(r), recordID(r))
	if err != nil {
		h.writeServiceError(w, r, "get record", err)
		return
	}
	writeJSON(w, http.StatusOK, h.toRecordDTO(*rec))
}

// EditRecord applies a patch to a draft or pending record.
func (h *Handler) EditRecord(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	patch, err := h.Factory.ParsePatch(body)
	if err != nil {
		h.writeServiceError(w, r, "edit record", err)
		return
	}
	rec, err := h.Service.Edit(r.Context(), mustIdentity(r), recordID(r), patch)
	if err != nil {
		h.writeServiceError(w, r, "edit record", err)
		return
	}
	writeJSON(w, http.StatusOK, h.toRecordDTO(*rec))
}

// SubmitRecord moves a draft to pending.
func (h *Handler) SubmitRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Service.SubmitDraft(r.Context(), mustIdentity(r), recordID(r))
	if err != nil {
		h.writeServiceError(w, r, "submit record", err)
		return
	}
	writeJSON(w, http.StatusOK, h.toRecordDTO(*rec))
}

// DeleteRecord is the owner delete.
func (h *Handler) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	h.deleteRecord(w, r, false)
}

// AdminDeleteRecord deletes any user's record.
func (h *Handler) AdminDeleteRecord(w http.ResponseWriter, r *http.Request) {
	h.deleteRecord(w, r, true)
}

func (h *Handler) deleteRecord(w http.ResponseWriter, r *http.Request, asAdmin bool) {
	var req DeleteRecordRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	id := recordID(r)
	mode, err := h.Service.Delete(r.Context(), mustIdentity(r), generic.DeleteRequest{
		ID:      id,
		Reason:  req.Reason,
		AsAdmin: asAdmin,
	})
	if err != nil {
		h.writeServiceError(w, r, "delete record", err)
		return
	}
	writeJSON(w, http.StatusOK, DeleteResponse{ID: string(id), Mode: string(mode)})
}

// =============================================================================
// APPROVAL ENDPOINTS
// =============================================================================

// ApproveRecord approves a pending record.
func (h *Handler) ApproveRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Service.Approve(r.Context(), mustIdentity(r), recordID(r))
	if err != nil {
		h.writeServiceError(w, r, "approve record", err)
		return
	}
	writeJSON(w, http.StatusOK, h.toRecordDTO(*rec))
}

// RejectRecord rejects a pending record. A reason is required.
func (h *Handler) RejectRecord(w http.ResponseWriter, r *http.Request) {
	var req RejectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	rec, err := h.Service.Reject(r.Context(), mustIdentity(r), recordID(r), req.Reason)
	if err != nil {
		h.writeServiceError(w, r, "reject record", err)
		return
	}
	writeJSON(w, http.StatusOK, h.toRecordDTO(*rec))
}

// CompleteRecord marks approved training as completed.
func (h *Handler) CompleteRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Service.Complete(r.Context(), mustIdentity(r), recordID(r))
	if err != nil {
		h.writeServiceError(w, r, "complete record", err)
		return
	}
	writeJSON(w, http.StatusOK, h.toRecordDTO(*rec))
}

// RecordAudit returns a record's audit trail, oldest first.
func (h *Handler) RecordAudit(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Service.Audit(r.Context(), recordID(r))
	if err != nil {
		h.writeServiceError(w, r, "record audit", err)
		return
	}
	dtos := make([]AuditDTO, 0, len(entries))
	for _, e := range entries {
		dtos = append(dtos, toAuditDTO(e))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// SUMMARY ENDPOINTS
// =============================================================================

// Summary returns the caller's totals for the display cycle, or for the
// cycle containing ?date=.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	actor := mustIdentity(r)
	cycle, cycleDTO, err := h.resolveCycle(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD", err)
		return
	}
	report, err := h.Service.CycleReport(r.Context(), actor.UserID, cycle, h.reportOptions(r))
	if err != nil {
		h.writeServiceError(w, r, "summary", err)
		return
	}
	if report.UserName == "" {
		report.UserName = actor.DisplayName
	}
	writeJSON(w, http.StatusOK, toSummaryDTO(report, cycleDTO, h.HourlyRate))
}

// AdminSummary returns every user's totals for a cycle.
func (h *Handler) AdminSummary(w http.ResponseWriter, r *http.Request) {
	cycle, cycleDTO, err := h.resolveCycle(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD", err)
		return
	}
	reports, err := h.Service.CycleReports(r.Context(), cycle, h.reportOptions(r))
	if err != nil {
		h.writeServiceError(w, r, "admin summary", err)
		return
	}
	resp := AdminSummaryDTO{Cycle: cycleDTO, Users: make([]SummaryDTO, 0, len(reports))}
	for _, report := range reports {
		resp.Users = append(resp.Users, toSummaryDTO(report, cycleDTO, h.HourlyRate))
	}
	writeJSON(w, http.StatusOK, resp)
}

// AdminWeeklySummaries returns the stored running totals for a cycle.
func (h *Handler) AdminWeeklySummaries(w http.ResponseWriter, r *http.Request) {
	cycle, _, err := h.resolveCycle(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD", err)
		return
	}
	rows, err := h.Service.WeeklySummaries(r.Context(), cycle)
	if err != nil {
		h.writeServiceError(w, r, "weekly summaries", err)
		return
	}
	dtos := make([]WeeklySummaryDTO, 0, len(rows))
	for _, row := range rows {
		dtos = append(dtos, toWeeklySummaryDTO(row))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// resolveCycle picks the cycle containing ?date=, or the display cycle.
func (h *Handler) resolveCycle(r *http.Request) (generic.Cycle, CycleDTO, error) {
	cal := h.Service.Calendar
	if raw := r.URL.Query().Get("date"); raw != "" {
		date, err := generic.ParseDate(raw)
		if err != nil {
			return generic.Cycle{}, CycleDTO{}, err
		}
		c := cal.CycleContaining(date)
		return c, toCycleDTO(c), nil
	}
	dc := cal.ResolveDisplayCycle(h.Service.Now())
	return dc.Cycle, toDisplayCycleDTO(dc), nil
}

func (h *Handler) reportOptions(r *http.Request) generic.ReportOptions {
	includeDeleted, _ := strconv.ParseBool(r.URL.Query().Get("includeDeleted"))
	return generic.ReportOptions{HourlyRate: h.HourlyRate, IncludeSoftDeleted: includeDeleted}
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeServiceError maps domain errors to HTTP statuses. Storage failures
// are logged and answered with a generic message.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var verr *generic.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "Validation failed",
			Code:    "validation",
			Details: map[string]string{"field": verr.Field, "message": verr.Message},
		})
	case errors.Is(err, generic.ErrValidation), errors.Is(err, generic.ErrUnknownKind):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Validation failed", Code: "validation", Details: err.Error()})
	case errors.Is(err, generic.ErrNotFound):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "Record not found", Code: "not_found"})
	case errors.Is(err, generic.ErrAlreadyApproved):
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: err.Error(), Code: "already_approved"})
	case errors.Is(err, generic.ErrAlreadyRejected):
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: err.Error(), Code: "already_rejected"})
	case errors.Is(err, generic.ErrConcurrentModification):
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: "Record was modified concurrently, retry", Code: "conflict"})
	case errors.Is(err, generic.ErrForbidden):
		writeJSON(w, http.StatusForbidden, ErrorResponse{Error: err.Error(), Code: "forbidden"})
	default:
		h.Log.WithFields(logrus.Fields{
			"op":         op,
			"request_id": middleware.GetReqID(r.Context()),
			"record_id":  chi.URLParam(r, "id"),
		}).WithError(err).Error("request failed")
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "Internal server error", Code: "internal"})
	}
}

// parseListQuery reads the list filters shared by the owner and admin views.
func parseListQuery(r *http.Request) (generic.ListQuery, error) {
	q := r.URL.Query()
	var lq generic.ListQuery

	if raw := q.Get("startDate"); raw != "" {
		from, err := generic.ParseDate(raw)
		if err != nil {
			return lq, generic.NewValidationError("startDate", "expected YYYY-MM-DD")
		}
		lq.Filter.From = &from
	}
	if raw := q.Get("endDate"); raw != "" {
		to, err := generic.ParseDate(raw)
		if err != nil {
			return lq, generic.NewValidationError("endDate", "expected YYYY-MM-DD")
		}
		lq.Filter.To = &to
	}
	for _, flag := range []struct {
		name string
		dst  *bool
	}{
		{"includeDrafts", &lq.Filter.IncludeDrafts},
		{"includeDeleted", &lq.Filter.IncludeDeleted},
	} {
		if raw := q.Get(flag.name); raw != "" {
			v, err := strconv.ParseBool(raw)
			if err != nil {
				return lq, generic.NewValidationError(flag.name, "expected true or false")
			}
			*flag.dst = v
		}
	}
	for _, s := range splitList(q.Get("status")) {
		state := generic.State(s)
		if !state.Valid() {
			return lq, generic.NewValidationError("status", "unknown status "+strconv.Quote(s))
		}
		if state == generic.StateDraft {
			lq.Filter.IncludeDrafts = true
		}
		lq.Filter.States = append(lq.Filter.States, state)
	}
	for _, k := range splitList(q.Get("kind")) {
		if _, err := generic.LookupKind(generic.Kind(k)); err != nil {
			return lq, generic.NewValidationError("kind", err.Error())
		}
		lq.Filter.Kinds = append(lq.Filter.Kinds, generic.Kind(k))
	}
	lq.QueueView = q.Get("view") == "queue"
	return lq, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// decodeOptionalJSON decodes the body into dst unless it is empty.
func decodeOptionalJSON(r *http.Request, dst any) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func recordID(r *http.Request) generic.RecordID {
	return generic.RecordID(chi.URLParam(r, "id"))
}

// mustIdentity returns the caller. Routes using it sit behind Authenticate.
func mustIdentity(r *http.Request) generic.Identity {
	identity, _ := IdentityFrom(r.Context())
	return identity
}
