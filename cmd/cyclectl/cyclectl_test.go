package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/staff-hours/generic"
)

var testCalendar = generic.NewPayCalendar(generic.MustParseDate("2025-03-03"))

func TestParseInstant(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2025-03-31T08:15:30", time.Date(2025, time.March, 31, 8, 15, 30, 0, time.Local)},
		{"2025-03-31T08:15", time.Date(2025, time.March, 31, 8, 15, 0, 0, time.Local)},
		{"2025-03-31", time.Date(2025, time.March, 31, 0, 0, 0, 0, time.Local)},
	}
	for _, tt := range tests {
		got, err := parseInstant(tt.in)
		require.NoError(t, err, tt.in)
		assert.True(t, tt.want.Equal(got), "%s: got %s", tt.in, got)
	}

	_, err := parseInstant("next monday")
	assert.Error(t, err)
}

func TestPrintCycle_MarksWeek(t *testing.T) {
	var out bytes.Buffer

	printCycle(&out, testCalendar.CycleContaining(generic.MustParseDate("2025-03-19")), generic.MustParseDate("2025-03-19"))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 1+generic.WeeksPerCycle)
	assert.Equal(t, "Cycle 0: 2025-03-03 to 2025-03-30", lines[0])
	assert.Equal(t, "  Week 3: 2025-03-17 to 2025-03-23  <", lines[3])
	assert.NotContains(t, lines[2], "<")
}

func TestFormatCell(t *testing.T) {
	assert.Equal(t, "8:30", formatCell(510, 0))
	assert.Equal(t, "3d", formatCell(0, 3))
	assert.Equal(t, "0:00", formatCell(0, 0))
}

func sampleReport() generic.CycleReport {
	cycle := testCalendar.CycleContaining(generic.MustParseDate("2025-03-03"))
	return generic.CycleReport{
		UserID:   "alice",
		UserName: "Alice Martin",
		Cycle:    cycle,
		Kinds: []generic.KindTotals{{
			Kind: "work_entry",
			Aggregation: generic.Aggregation{
				PerWeekMinutes: map[string]int64{"2025-03-10": 510},
				PerWeekDays:    map[string]int64{},
				TotalMinutes:   510,
			},
		}},
		PayMinutes:   510,
		EstimatedPay: decimal.NewFromInt(170),
	}
}

func TestWriteReportText(t *testing.T) {
	var out bytes.Buffer

	writeReportText(&out, sampleReport())

	text := out.String()
	assert.Contains(t, text, "User alice (Alice Martin), cycle 0: 2025-03-03 to 2025-03-30")
	assert.Contains(t, text, "WEEK 4")
	assert.Contains(t, text, "Pay hours: 8:30  Estimated pay: 170.00")
}

func TestWriteReportJSON(t *testing.T) {
	var out bytes.Buffer

	require.NoError(t, writeReportJSON(&out, sampleReport()))

	var doc struct {
		CycleEnd     string `json:"cycle_end"`
		EstimatedPay string `json:"estimated_pay"`
		Kinds        []struct {
			Weeks []struct {
				WeekStart string `json:"week_start"`
				Minutes   int64  `json:"minutes"`
			} `json:"weeks"`
		} `json:"kinds"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &doc))
	assert.Equal(t, "2025-03-30", doc.CycleEnd)
	assert.Equal(t, "170.00", doc.EstimatedPay)
	require.Len(t, doc.Kinds, 1)
	require.Len(t, doc.Kinds[0].Weeks, generic.WeeksPerCycle)
	assert.Equal(t, "2025-03-10", doc.Kinds[0].Weeks[1].WeekStart)
	assert.Equal(t, int64(510), doc.Kinds[0].Weeks[1].Minutes)
}
