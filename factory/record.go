/*
Package factory provides JSON to Go record conversion.

PURPOSE:
  Converts JSON record payloads into generic.Record values and patches.
  The HTTP layer, the demo scenarios and the CLI all accept the same
  payload shape, so parsing lives here rather than in each caller.

JSON SCHEMA:
  {
    "kind": "work_entry",          // work_entry | leave_request | leave_hours | training
    "date": "2025-03-18",          // day worked, hourly leave day, training day
    "start_date": "2025-03-18",    // leave_request first day (alias of date)
    "end_date": "2025-03-20",      // leave_request last day
    "start_time": "09:00",         // work_entry, HH:MM 24-hour
    "end_time": "17:30",
    "hours": 4.5,                  // leave_hours, training
    "leave_type": "sick",          // leave_request, leave_hours
    "title": "First aid",          // training
    "notes": "",
    "is_draft": false
  }

KEY FEATURES:
  - Rejects unknown kinds before any field parsing
  - Dates parse as local calendar dates (YYYY-MM-DD)
  - Hours parse into decimal.Decimal, from a JSON number or string

USAGE:
  f := factory.NewRecordFactory()
  record, isDraft, err := f.ParseRecord(body)
  svc.Create(ctx, actor, record, isDraft)

SEE ALSO:
  - generic/record.go: Record definition
  - api/handlers.go: HTTP entry points
*/
package factory

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/warp/staff-hours/generic"
	_ "github.com/warp/staff-hours/timeoff"
	_ "github.com/warp/staff-hours/timesheet"
	"github.com/warp/staff-hours/training"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// RecordJSON is the JSON representation of a record payload.
type RecordJSON struct {
	Kind      string           `json:"kind"`
	Date      string           `json:"date,omitempty"`
	StartDate string           `json:"start_date,omitempty"`
	EndDate   string           `json:"end_date,omitempty"`
	StartTime string           `json:"start_time,omitempty"`
	EndTime   string           `json:"end_time,omitempty"`
	Hours     *decimal.Decimal `json:"hours,omitempty"`
	LeaveType string           `json:"leave_type,omitempty"`
	Title     string           `json:"title,omitempty"`
	Notes     string           `json:"notes,omitempty"`
	IsDraft   bool             `json:"is_draft,omitempty"`
}

// PatchJSON is the JSON representation of an edit. Absent fields are unchanged.
type PatchJSON struct {
	Date      *string          `json:"date,omitempty"`
	StartDate *string          `json:"start_date,omitempty"`
	EndDate   *string          `json:"end_date,omitempty"`
	StartTime *string          `json:"start_time,omitempty"`
	EndTime   *string          `json:"end_time,omitempty"`
	Hours     *decimal.Decimal `json:"hours,omitempty"`
	LeaveType *string          `json:"leave_type,omitempty"`
	Title     *string          `json:"title,omitempty"`
	Notes     *string          `json:"notes,omitempty"`
}

// =============================================================================
// RECORD FACTORY
// =============================================================================

// RecordFactory converts JSON payloads to records.
type RecordFactory struct{}

func NewRecordFactory() *RecordFactory {
	return &RecordFactory{}
}

// ParseRecord parses a JSON payload into a Record and its draft flag.
func (f *RecordFactory) ParseRecord(data []byte) (generic.Record, bool, error) {
	var rj RecordJSON
	if err := json.Unmarshal(data, &rj); err != nil {
		return generic.Record{}, false, fmt.Errorf("%w: failed to parse record JSON: %v", generic.ErrValidation, err)
	}
	return f.FromJSON(rj)
}

// FromJSON converts RecordJSON to a Record. Kind-specific validation is
// left to the kind itself at create time.
func (f *RecordFactory) FromJSON(rj RecordJSON) (generic.Record, bool, error) {
	kind := generic.Kind(rj.Kind)
	if _, err := generic.LookupKind(kind); err != nil {
		return generic.Record{}, false, fmt.Errorf("%w: %v", generic.ErrValidation, err)
	}

	r := generic.Record{
		Kind:      kind,
		StartTime: rj.StartTime,
		EndTime:   rj.EndTime,
		Category:  firstNonEmpty(rj.LeaveType, rj.Title),
		Notes:     rj.Notes,
	}
	if rj.Hours != nil {
		r.Hours = *rj.Hours
	}

	var err error
	if r.Date, err = parseOptionalDate("date", firstNonEmpty(rj.Date, rj.StartDate)); err != nil {
		return generic.Record{}, false, err
	}
	if r.EndDate, err = parseOptionalDate("end_date", rj.EndDate); err != nil {
		return generic.Record{}, false, err
	}
	return r, rj.IsDraft, nil
}

// ParsePatch parses an edit payload.
func (f *RecordFactory) ParsePatch(data []byte) (generic.RecordPatch, error) {
	var pj PatchJSON
	if err := json.Unmarshal(data, &pj); err != nil {
		return generic.RecordPatch{}, fmt.Errorf("%w: failed to parse patch JSON: %v", generic.ErrValidation, err)
	}
	return f.PatchFromJSON(pj)
}

func (f *RecordFactory) PatchFromJSON(pj PatchJSON) (generic.RecordPatch, error) {
	p := generic.RecordPatch{
		StartTime: pj.StartTime,
		EndTime:   pj.EndTime,
		Hours:     pj.Hours,
		Notes:     pj.Notes,
	}
	if pj.LeaveType != nil {
		p.Category = pj.LeaveType
	} else if pj.Title != nil {
		p.Category = pj.Title
	}

	date := pj.Date
	if date == nil {
		date = pj.StartDate
	}
	if date != nil {
		tp, err := parseRequiredDate("date", *date)
		if err != nil {
			return generic.RecordPatch{}, err
		}
		p.Date = &tp
	}
	if pj.EndDate != nil {
		tp, err := parseRequiredDate("end_date", *pj.EndDate)
		if err != nil {
			return generic.RecordPatch{}, err
		}
		p.EndDate = &tp
	}
	return p, nil
}

// ToJSON converts a Record back to its payload form.
func (f *RecordFactory) ToJSON(r generic.Record) RecordJSON {
	rj := RecordJSON{
		Kind:      string(r.Kind),
		Date:      r.Date.String(),
		StartTime: r.StartTime,
		EndTime:   r.EndTime,
		Notes:     r.Notes,
		IsDraft:   r.IsDraft,
	}
	if !r.Hours.IsZero() {
		h := r.Hours
		rj.Hours = &h
	}
	if !r.EndDate.IsZero() && !r.EndDate.Equal(r.Date) {
		rj.EndDate = r.EndDate.String()
	}
	if r.Kind == training.KindTraining {
		rj.Title = r.Category
	} else {
		rj.LeaveType = r.Category
	}
	return rj
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

func parseOptionalDate(field, s string) (generic.TimePoint, error) {
	if s == "" {
		return generic.TimePoint{}, nil
	}
	return parseRequiredDate(field, s)
}

func parseRequiredDate(field, s string) (generic.TimePoint, error) {
	tp, err := generic.ParseDate(s)
	if err != nil {
		return generic.TimePoint{}, generic.NewValidationError(field, fmt.Sprintf("%q is not a YYYY-MM-DD date", s))
	}
	return tp, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
