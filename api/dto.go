/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  Cycles:     CycleDTO, WeekDTO
  Records:    RecordDTO, RejectRequest, DeleteRecordRequest, DeleteResponse
  Summaries:  SummaryDTO, KindTotalsDTO, WeekTotalDTO, WeeklySummaryDTO
  Audit:      AuditDTO
  Scenarios:  ScenarioDTO, LoadScenarioRequest

Record create and edit bodies are factory.RecordJSON and factory.PatchJSON.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/record.go: Record payload types
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/staff-hours/factory"
	"github.com/warp/staff-hours/generic"
)

// =============================================================================
// CYCLES
// =============================================================================

// WeekDTO is one week of a cycle.
type WeekDTO struct {
	Index     int    `json:"index"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// CycleDTO describes a cycle, and for display cycles the grace window.
type CycleDTO struct {
	Index         int       `json:"index"`
	StartDate     string    `json:"start_date"`
	EndDate       string    `json:"end_date"`
	Weeks         []WeekDTO `json:"weeks"`
	IsGracePeriod *bool     `json:"is_grace_period,omitempty"`
	GraceStart    string    `json:"grace_start,omitempty"`
	GraceEnd      string    `json:"grace_end,omitempty"`
}

func toCycleDTO(c generic.Cycle) CycleDTO {
	dto := CycleDTO{
		Index:     c.Index,
		StartDate: c.Start().String(),
		EndDate:   c.End().String(),
		Weeks:     make([]WeekDTO, 0, generic.WeeksPerCycle),
	}
	for i, w := range c.Weeks {
		dto.Weeks = append(dto.Weeks, WeekDTO{Index: i + 1, StartDate: w.Start.String(), EndDate: w.End.String()})
	}
	return dto
}

func toDisplayCycleDTO(dc generic.DisplayCycle) CycleDTO {
	dto := toCycleDTO(dc.Cycle)
	grace := dc.IsGracePeriod
	dto.IsGracePeriod = &grace
	dto.GraceStart = dc.GraceStart.Format(time.RFC3339)
	dto.GraceEnd = dc.GraceEnd.Format(time.RFC3339)
	return dto
}

// =============================================================================
// RECORDS
// =============================================================================

// RecordDTO represents a record in API responses.
type RecordDTO struct {
	ID       string `json:"id"`
	UserID   string `json:"user_id"`
	UserName string `json:"user_name,omitempty"`
	factory.RecordJSON
	Status string `json:"status"`

	ApprovedBy      *string `json:"approved_by,omitempty"`
	ApprovedAt      *string `json:"approved_at,omitempty"`
	RejectedBy      *string `json:"rejected_by,omitempty"`
	RejectedAt      *string `json:"rejected_at,omitempty"`
	RejectionReason *string `json:"rejection_reason,omitempty"`
	CompletedBy     *string `json:"completed_by,omitempty"`
	CompletedAt     *string `json:"completed_at,omitempty"`

	Deleted        bool    `json:"deleted"`
	DeletedAt      *string `json:"deleted_at,omitempty"`
	DeletedBy      *string `json:"deleted_by,omitempty"`
	DeletionReason *string `json:"deletion_reason,omitempty"`

	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func (h *Handler) toRecordDTO(r generic.Record) RecordDTO {
	return RecordDTO{
		ID:              string(r.ID),
		UserID:          string(r.UserID),
		UserName:        r.UserName,
		RecordJSON:      h.Factory.ToJSON(r),
		Status:          string(r.State),
		ApprovedBy:      r.ApprovedBy,
		ApprovedAt:      formatTimePtr(r.ApprovedAt),
		RejectedBy:      r.RejectedBy,
		RejectedAt:      formatTimePtr(r.RejectedAt),
		RejectionReason: r.RejectionReason,
		CompletedBy:     r.CompletedBy,
		CompletedAt:     formatTimePtr(r.CompletedAt),
		Deleted:         r.Deleted,
		DeletedAt:       formatTimePtr(r.DeletedAt),
		DeletedBy:       r.DeletedBy,
		DeletionReason:  r.DeletionReason,
		CreatedAt:       r.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       r.UpdatedAt.Format(time.RFC3339),
	}
}

func (h *Handler) toRecordDTOs(records []generic.Record) []RecordDTO {
	dtos := make([]RecordDTO, 0, len(records))
	for _, r := range records {
		dtos = append(dtos, h.toRecordDTO(r))
	}
	return dtos
}

// RejectRequest is the body of a reject call.
type RejectRequest struct {
	Reason string `json:"reason"`
}

// DeleteRecordRequest is the optional body of a delete call.
type DeleteRecordRequest struct {
	Reason string `json:"reason"`
}

// DeleteResponse reports whether the row was removed or flagged.
type DeleteResponse struct {
	ID   string `json:"id"`
	Mode string `json:"mode"`
}

// =============================================================================
// SUMMARIES
// =============================================================================

// WeekTotalDTO is one week's total for a kind.
type WeekTotalDTO struct {
	WeekStart string `json:"week_start"`
	Minutes   int64  `json:"minutes"`
	Hours     string `json:"hours"`
	Days      int64  `json:"days"`
}

// KindTotalsDTO is a kind's totals over a cycle.
type KindTotalsDTO struct {
	Kind         string         `json:"kind"`
	ApprovedOnly bool           `json:"approved_only"`
	TotalMinutes int64          `json:"total_minutes"`
	TotalHours   string         `json:"total_hours"`
	TotalDays    int64          `json:"total_days"`
	Weeks        []WeekTotalDTO `json:"weeks"`
}

// SummaryDTO is one user's cycle report.
type SummaryDTO struct {
	UserID       string          `json:"user_id"`
	UserName     string          `json:"user_name,omitempty"`
	Cycle        CycleDTO        `json:"cycle"`
	Kinds        []KindTotalsDTO `json:"kinds"`
	PayMinutes   int64           `json:"pay_minutes"`
	PayHours     string          `json:"pay_hours"`
	HourlyRate   decimal.Decimal `json:"hourly_rate"`
	EstimatedPay decimal.Decimal `json:"estimated_pay"`
}

// AdminSummaryDTO lists every user's report for one cycle.
type AdminSummaryDTO struct {
	Cycle CycleDTO     `json:"cycle"`
	Users []SummaryDTO `json:"users"`
}

func toSummaryDTO(report generic.CycleReport, cycle CycleDTO, rate decimal.Decimal) SummaryDTO {
	dto := SummaryDTO{
		UserID:       string(report.UserID),
		UserName:     report.UserName,
		Cycle:        cycle,
		Kinds:        make([]KindTotalsDTO, 0, len(report.Kinds)),
		PayMinutes:   report.PayMinutes,
		PayHours:     generic.FormatMinutes(report.PayMinutes),
		HourlyRate:   rate,
		EstimatedPay: report.EstimatedPay,
	}
	for _, kt := range report.Kinds {
		kdto := KindTotalsDTO{
			Kind:         string(kt.Kind),
			ApprovedOnly: kt.ApprovedOnly,
			TotalMinutes: kt.TotalMinutes,
			TotalHours:   generic.FormatMinutes(kt.TotalMinutes),
			TotalDays:    kt.TotalDays,
			Weeks:        make([]WeekTotalDTO, 0, generic.WeeksPerCycle),
		}
		for _, week := range report.Cycle.Intervals() {
			minutes := kt.PerWeekMinutes[week.Key()]
			kdto.Weeks = append(kdto.Weeks, WeekTotalDTO{
				WeekStart: week.Key(),
				Minutes:   minutes,
				Hours:     generic.FormatMinutes(minutes),
				Days:      kt.PerWeekDays[week.Key()],
			})
		}
		dto.Kinds = append(dto.Kinds, kdto)
	}
	return dto
}

// WeeklySummaryDTO is a stored running total.
type WeeklySummaryDTO struct {
	UserID     string `json:"user_id"`
	UserName   string `json:"user_name,omitempty"`
	CycleStart string `json:"cycle_start"`
	Minutes    int64  `json:"minutes"`
	Hours      string `json:"hours"`
	UpdatedAt  string `json:"updated_at"`
}

func toWeeklySummaryDTO(s generic.WeeklySummary) WeeklySummaryDTO {
	return WeeklySummaryDTO{
		UserID:     string(s.UserID),
		UserName:   s.UserName,
		CycleStart: s.CycleStart.String(),
		Minutes:    s.Minutes,
		Hours:      generic.FormatMinutes(s.Minutes),
		UpdatedAt:  s.UpdatedAt.Format(time.RFC3339),
	}
}

// =============================================================================
// AUDIT
// =============================================================================

// AuditDTO is one audit trail entry.
type AuditDTO struct {
	ID        string `json:"id"`
	RecordID  string `json:"record_id"`
	Kind      string `json:"kind"`
	ActorID   string `json:"actor_id"`
	Action    string `json:"action"`
	FromState string `json:"from_state,omitempty"`
	ToState   string `json:"to_state,omitempty"`
	Reason    string `json:"reason,omitempty"`
	At        string `json:"at"`
}

func toAuditDTO(e generic.AuditEntry) AuditDTO {
	return AuditDTO{
		ID:        e.ID,
		RecordID:  string(e.RecordID),
		Kind:      string(e.Kind),
		ActorID:   e.ActorID,
		Action:    string(e.Action),
		FromState: string(e.FromState),
		ToState:   string(e.ToState),
		Reason:    e.Reason,
		At:        e.At.Format(time.RFC3339),
	}
}

// =============================================================================
// SCENARIOS
// =============================================================================

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects a scenario to load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}
