package attendance_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/timee/attendance"
	"github.com/warp/timee/generic"
	"github.com/warp/timee/timeoff"
	"github.com/xuri/excelize/v2"
)

var day = generic.Date(2024, time.March, 4)

func at(h, m int) time.Time {
	return day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
}

func states(list ...attendance.Status) []attendance.StateEntry {
	out := make([]attendance.StateEntry, len(list))
	for i, s := range list {
		out[i] = attendance.StateEntry{Status: s, Timestamp: at(9+i, 0)}
	}
	return out
}

// =============================================================================
// STATE MACHINE
// =============================================================================

func TestCheckTransition(t *testing.T) {
	S, P, R, E := attendance.StatusStart, attendance.StatusPause, attendance.StatusResume, attendance.StatusEnd

	tests := []struct {
		name    string
		history []attendance.StateEntry
		cmd     attendance.Command
		force   bool
		wantErr error
	}{
		{"start on empty session", nil, attendance.CmdStart, false, nil},
		{"start twice", states(S), attendance.CmdStart, false, generic.ErrAlreadyActive},
		{"start after resume", states(S, P, R), attendance.CmdStart, false, generic.ErrAlreadyActive},
		{"start after end", states(S, E), attendance.CmdStart, false, generic.ErrSessionEnded},
		{"force start after end", states(S, E), attendance.CmdStart, true, nil},
		{"force start while active", states(S), attendance.CmdStart, true, nil},
		{"start after pause", states(S, P), attendance.CmdStart, false, nil},
		{"resume without session", nil, attendance.CmdResume, false, generic.ErrNotActive},
		{"resume while active", states(S), attendance.CmdResume, false, generic.ErrAlreadyActive},
		{"resume after pause", states(S, P), attendance.CmdResume, false, nil},
		{"resume after end", states(S, E), attendance.CmdResume, false, nil},
		{"pause without session", nil, attendance.CmdPause, false, generic.ErrNotActive},
		{"pause twice", states(S, P), attendance.CmdPause, false, generic.ErrNotActive},
		{"pause after resume", states(S, P, R), attendance.CmdPause, false, nil},
		{"end without session", nil, attendance.CmdEnd, false, generic.ErrNotActive},
		{"end after pause", states(S, P), attendance.CmdEnd, false, generic.ErrNotActive},
		{"end after start", states(S), attendance.CmdEnd, false, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := attendance.CheckTransition(tt.history, tt.cmd, tt.force)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
			assert.True(t, generic.IsConflict(err))

			var terr *attendance.TransitionError
			require.True(t, errors.As(err, &terr))
			assert.Equal(t, tt.cmd, terr.Command)
		})
	}
}

func TestApply_IllegalLeavesSessionUnchanged(t *testing.T) {
	// GIVEN: Every sequence of four commands
	// WHEN: Applied one by one to a fresh session
	// THEN: The session grows exactly by the accepted commands

	cmds := []attendance.Command{attendance.CmdStart, attendance.CmdPause, attendance.CmdResume, attendance.CmdEnd}
	var walk func(seq []attendance.Command)
	walk = func(seq []attendance.Command) {
		if len(seq) == 4 {
			var m attendance.MemberSession
			for i, c := range seq {
				before := len(m.States)
				err := m.Apply(c, at(9+i, 0), "", false)
				if err != nil {
					assert.Len(t, m.States, before, "sequence %v", seq)
				} else {
					assert.Len(t, m.States, before+1, "sequence %v", seq)
				}
			}
			return
		}
		for _, c := range cmds {
			walk(append(append([]attendance.Command(nil), seq...), c))
		}
	}
	walk(nil)
}

func TestElapsed(t *testing.T) {
	full := []attendance.StateEntry{
		{Status: attendance.StatusStart, Timestamp: at(9, 0)},
		{Status: attendance.StatusPause, Timestamp: at(12, 0)},
		{Status: attendance.StatusResume, Timestamp: at(13, 0)},
		{Status: attendance.StatusEnd, Timestamp: at(18, 0)},
	}
	assert.Equal(t, 8*time.Hour, attendance.Elapsed(full))

	// Open phase counts nothing yet
	assert.Equal(t, 3*time.Hour, attendance.Elapsed(full[:3]))
	assert.Zero(t, attendance.Elapsed(full[:1]))
}

// =============================================================================
// RENDERING
// =============================================================================

func TestRenderDay(t *testing.T) {
	d := attendance.AttendanceDay{Members: []attendance.MemberSession{
		{Username: "alice", States: []attendance.StateEntry{
			{Status: attendance.StatusStart, Timestamp: at(9, 0), Note: "wfh today"},
			{Status: attendance.StatusPause, Timestamp: at(12, 0)},
		}},
		{Username: "bob", States: []attendance.StateEntry{
			{Status: attendance.StatusStart, Timestamp: at(8, 30), Note: "  "},
		}},
	}}

	want := ":house_with_garden: Today *2* members working from home have checked in.\n\n" +
		":pause_button: *alice* -- Total: *3.0h*\n[09:00 Start: _wfh today_ ] *-* [12:00 Pause]\n\n" +
		":white_check_mark: *bob* -- Total: *0.0h*\n[08:30 Start]"
	assert.Equal(t, want, attendance.RenderDay(d))
}

// =============================================================================
// EXPORT
// =============================================================================

func exportFixture() ([]attendance.AttendanceDay, []timeoff.OffLogEntry) {
	days := []attendance.AttendanceDay{{
		Date: day,
		Members: []attendance.MemberSession{
			{UserID: "u-alice", Username: "alice", States: []attendance.StateEntry{
				{Status: attendance.StatusStart, Timestamp: at(9, 5), Note: "hi"},
				{Status: attendance.StatusEnd, Timestamp: at(18, 30)},
			}},
			{UserID: "u-bob", Username: "bob", States: []attendance.StateEntry{
				{Status: attendance.StatusStart, Timestamp: at(8, 0)},
				{Status: attendance.StatusPause, Timestamp: at(11, 45), Note: "lunch"},
				{Status: attendance.StatusResume, Timestamp: at(13, 0)},
				{Status: attendance.StatusPause, Timestamp: at(15, 0), Note: "second"},
			}},
		},
	}}
	offs := []timeoff.OffLogEntry{
		{UserID: "u-alice", Type: timeoff.TypeLate, StartDate: day, Duration: decimal.NewFromInt(30), Reason: "traffic jam"},
		{UserID: "u-alice", Type: timeoff.TypeEndSoon, StartDate: day, Duration: decimal.NewFromInt(15), Reason: "dentist"},
		{UserID: "u-alice", Type: timeoff.TypeOff, StartDate: day, Duration: decimal.NewFromInt(1), Reason: "ignored"},
		{UserID: "u-alice", Type: timeoff.TypeLate, StartDate: day.AddDate(0, 0, 1), Duration: decimal.NewFromInt(20), Reason: "other day"},
	}
	return days, offs
}

func TestWriteCSV(t *testing.T) {
	days, offs := exportFixture()

	got := string(attendance.WriteCSV(attendance.BuildRows(days, offs)))
	want := "Date,Username,Start,Message,Pause,Message,Resume,Message,End,Message,Off,Message\n" +
		"04/3/2024,alice,09:05 AM,hi,,,,,06:30 PM,,Đi muộn - 30 phútNghỉ sớm - 15 phút,traffic jamdentist\n" +
		"04/3/2024,bob,08:00 AM,,11:45 AM,lunch,01:00 PM,,,,,\n"
	assert.Equal(t, want, got)
}

func TestWriteXLSX(t *testing.T) {
	days, offs := exportFixture()
	month := generic.Date(2024, time.March, 1)

	f, err := attendance.Render(month, attendance.BuildRows(days, offs), attendance.FormatXLSX)
	require.NoError(t, err)
	assert.Equal(t, "time_log_03_2024.xlsx", f.Filename)

	book, err := excelize.OpenReader(bytes.NewReader(f.Content))
	require.NoError(t, err)
	defer book.Close()

	rows, err := book.GetRows("03-2024")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Date", rows[0][0])
	assert.Equal(t, "alice", rows[1][1])
	assert.Equal(t, "11:45 AM", rows[2][4])
}

func TestParseFormat(t *testing.T) {
	f, err := attendance.ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, attendance.FormatCSV, f)

	f, err = attendance.ParseFormat("XLSX")
	require.NoError(t, err)
	assert.True(t, strings.Contains(f.ContentType(), "spreadsheetml"))

	_, err = attendance.ParseFormat("pdf")
	assert.ErrorIs(t, err, generic.ErrInvalidInput)
}
