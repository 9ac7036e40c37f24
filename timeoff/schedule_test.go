package timeoff_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/timee/generic"
	"github.com/warp/timee/timeoff"
)

func scheduleEntry(msg, username string, typ timeoff.RequestType, p timeoff.Period, duration float64) timeoff.ScheduleEntry {
	return timeoff.ScheduleEntry{
		MessageID: generic.MessageID(msg),
		UserID:    generic.UserID("id-" + username),
		Username:  username,
		Type:      typ,
		Period:    p,
		Duration:  dec(duration),
	}
}

func TestSchedule_InsertOrMergeDay(t *testing.T) {
	var s timeoff.Schedule
	day := date(2024, time.March, 4)

	s.InsertOrMergeDay(day, scheduleEntry("m1", "alice", timeoff.TypeOff, timeoff.PeriodDay, 1))
	s.InsertOrMergeDay(day.Add(3*time.Hour), scheduleEntry("m2", "bob", timeoff.TypeWFH, timeoff.PeriodDay, 1))
	s.InsertOrMergeDay(day.AddDate(0, 0, 1), scheduleEntry("m1", "alice", timeoff.TypeOff, timeoff.PeriodDay, 1))

	require.Len(t, s.Days, 2)
	assert.Equal(t, "4/3/2024", s.Days[0].Date)
	assert.Len(t, s.Days[0].Entries, 2)
	assert.Equal(t, "5/3/2024", s.Days[1].Date)
}

func TestSchedule_RemoveEntry_DropsEmptyDay(t *testing.T) {
	var s timeoff.Schedule
	day := date(2024, time.March, 4)
	s.InsertOrMergeDay(day, scheduleEntry("m1", "alice", timeoff.TypeOff, timeoff.PeriodDay, 1))
	s.InsertOrMergeDay(day, scheduleEntry("m2", "bob", timeoff.TypeLate, timeoff.PeriodMorning, 30))

	n := s.RemoveEntry(day, func(e timeoff.ScheduleEntry) bool { return e.MessageID == "m1" })
	assert.Equal(t, 1, n)
	require.Len(t, s.Days, 1)
	assert.Len(t, s.Days[0].Entries, 1)

	n = s.RemoveEntry(day, func(e timeoff.ScheduleEntry) bool { return e.Username == "bob" })
	assert.Equal(t, 1, n)
	assert.Empty(t, s.Days)

	assert.Equal(t, 0, s.RemoveEntry(day, func(timeoff.ScheduleEntry) bool { return true }))
}

func TestSchedule_RemoveMessage_AcrossDays(t *testing.T) {
	var s timeoff.Schedule
	for i := 0; i < 3; i++ {
		s.InsertOrMergeDay(date(2024, time.March, 4+i), scheduleEntry("m1", "alice", timeoff.TypeOff, timeoff.PeriodDay, 3))
	}
	s.InsertOrMergeDay(date(2024, time.March, 5), scheduleEntry("m2", "bob", timeoff.TypeWFH, timeoff.PeriodDay, 1))

	assert.Equal(t, 3, s.RemoveMessage("m1"))
	require.Len(t, s.Days, 1)
	assert.Equal(t, "5/3/2024", s.Days[0].Date)
	assert.Equal(t, "bob", s.Days[0].Entries[0].Username)
}

func TestSchedule_ExtractTodayAndPrune(t *testing.T) {
	var s timeoff.Schedule
	s.InsertOrMergeDay(date(2024, time.March, 1), scheduleEntry("m1", "alice", timeoff.TypeOff, timeoff.PeriodDay, 1))
	s.InsertOrMergeDay(date(2024, time.March, 4), scheduleEntry("m2", "bob", timeoff.TypeOff, timeoff.PeriodDay, 1))
	s.InsertOrMergeDay(date(2024, time.March, 5), scheduleEntry("m3", "carol", timeoff.TypeOff, timeoff.PeriodDay, 1))
	s.Days = append(s.Days, timeoff.ScheduleDay{Date: "garbage"})

	today := date(2024, time.March, 4)
	day, ok := s.ExtractToday(today)
	require.True(t, ok)
	assert.Equal(t, "bob", day.Entries[0].Username)

	assert.Equal(t, 2, s.PruneBefore(today))
	require.Len(t, s.Days, 2)
	assert.Equal(t, "4/3/2024", s.Days[0].Date)
	assert.Equal(t, "5/3/2024", s.Days[1].Date)

	_, ok = s.ExtractToday(date(2024, time.March, 6))
	assert.False(t, ok)
}

func TestComposeDigest_OrdersBuckets(t *testing.T) {
	// GIVEN: Mixed entries for one day
	// WHEN: Composing the digest
	// THEN: OFF/WFH go DAY, MORNING, AFTERNOON; LATE precedes END_SOON

	day := timeoff.ScheduleDay{Date: "4/3/2024", Entries: []timeoff.ScheduleEntry{
		scheduleEntry("m1", "alice", timeoff.TypeOff, timeoff.PeriodAfternoon, 0.5),
		scheduleEntry("m2", "dave", timeoff.TypeEndSoon, timeoff.PeriodAfternoon, 30),
		scheduleEntry("m3", "bob", timeoff.TypeOff, timeoff.PeriodDay, 1),
		scheduleEntry("m4", "carol", timeoff.TypeWFH, timeoff.PeriodMorning, 0.5),
		scheduleEntry("m5", "erin", timeoff.TypeLate, timeoff.PeriodMorning, 15),
		scheduleEntry("m6", "finn", timeoff.TypeOff, timeoff.PeriodMorning, 0.5),
	}}

	d := timeoff.ComposeDigest(day)
	names := func(list []timeoff.ScheduleEntry) []string {
		var out []string
		for _, e := range list {
			out = append(out, e.Username)
		}
		return out
	}
	assert.Equal(t, []string{"bob", "finn", "alice"}, names(d.Off))
	assert.Equal(t, []string{"carol"}, names(d.WFH))
	assert.Equal(t, []string{"erin", "dave"}, names(d.Other))
	assert.False(t, d.IsEmpty())
}

func TestRenderDigest(t *testing.T) {
	day := timeoff.ScheduleDay{Date: "4/3/2024", Entries: []timeoff.ScheduleEntry{
		scheduleEntry("m1", "alice", timeoff.TypeOff, timeoff.PeriodAfternoon, 0.5),
		scheduleEntry("m2", "dave", timeoff.TypeEndSoon, timeoff.PeriodAfternoon, 30),
		scheduleEntry("m3", "bob", timeoff.TypeOff, timeoff.PeriodDay, 1),
		scheduleEntry("m4", "carol", timeoff.TypeWFH, timeoff.PeriodMorning, 0.5),
		scheduleEntry("m5", "erin", timeoff.TypeLate, timeoff.PeriodMorning, 15),
	}}

	want := "Today's requests _4/3/2024_ :\n" +
		"🏖️  *Off (2):*  bob,  alice (Afternoon)\n" +
		"🏡  *WFH (1):*  carol (Morning)\n" +
		":police_car: *Other:*  erin (Morning late arrival 15 minutes),  dave (Afternoon early leave 30 minutes)"
	assert.Equal(t, want, timeoff.RenderDigest(timeoff.ComposeDigest(day)))
}

func TestBuildTickBoard(t *testing.T) {
	march := generic.CalendarMonth(2024, time.March)
	red := timeoff.Warning{Kind: timeoff.WarningOverQuota, Severity: timeoff.SeverityRed}
	black := timeoff.Warning{Kind: timeoff.WarningLateSubmit, Severity: timeoff.SeverityBlack}

	mk := func(user generic.UserID, typ timeoff.RequestType, start time.Time, d float64, ws ...timeoff.Warning) timeoff.OffLogEntry {
		return timeoff.OffLogEntry{UserID: user, Type: typ, StartDate: start, Duration: dec(d), Approved: true, Warnings: ws}
	}
	entries := []timeoff.OffLogEntry{
		mk("u1", timeoff.TypeOff, date(2024, time.March, 4), 1.5, red, black),
		mk("u1", timeoff.TypeLate, date(2024, time.March, 5), 30),
		mk("u1", timeoff.TypeEndSoon, date(2024, time.March, 6), 15, black),
		mk("u2", timeoff.TypeWFH, date(2024, time.March, 7), 1),
		mk("u2", timeoff.TypeWFH, date(2024, time.April, 1), 1),
		mk("ghost", timeoff.TypeOff, date(2024, time.March, 7), 1),
	}

	rows := timeoff.BuildTickBoard(entries, march, map[generic.UserID]string{"u1": "Zed", "u2": "amy"})
	require.Len(t, rows, 2)
	assert.Equal(t, "amy", rows[0].Username)
	assert.True(t, rows[0].WFHDays.Equal(dec(1)))

	zed := rows[1]
	assert.True(t, zed.OffDays.Equal(dec(1.5)))
	assert.True(t, zed.LateMinutes.Equal(dec(30)), "early leave is not late")
	r, b := zed.Ticks()
	assert.Equal(t, 1, r)
	assert.Equal(t, 2, b)

	text := timeoff.RenderTickBoard("03/2024", rows)
	assert.Contains(t, text, "*Zed:* Off: 1.5 days | Late: 30 minutes | Red: 1 | Black: 2 :x::heavy_multiplication_x::heavy_multiplication_x:")
}

func TestParseMonth(t *testing.T) {
	now := date(2024, time.March, 4)

	p, err := timeoff.ParseMonth("", now)
	require.NoError(t, err)
	assert.Equal(t, date(2024, time.March, 1), p.Start)

	p, err = timeoff.ParseMonth("02/2024", now)
	require.NoError(t, err)
	assert.Equal(t, date(2024, time.February, 1), p.Start)
	assert.True(t, p.Contains(date(2024, time.February, 29).Add(23*time.Hour)))

	_, err = timeoff.ParseMonth("13/2024", now)
	assert.ErrorIs(t, err, generic.ErrInvalidDate)
}
