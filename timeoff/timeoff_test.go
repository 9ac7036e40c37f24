package timeoff_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/timee/config"
	"github.com/warp/timee/generic"
	"github.com/warp/timee/timeoff"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func date(year int, month time.Month, day int) time.Time {
	return generic.Date(year, month, day)
}

func dec(f float64) decimal.Decimal { return decimal.NewFromFloat(f) }

func testOrg() *config.OrgConfig {
	return &config.OrgConfig{
		Scope:             "test",
		BotUsername:       "timee.bot",
		CheckinRooms:      []string{"checkin"},
		TimeoffRoom:       "timeoff",
		AdminUsers:        []string{"boss"},
		MonthlyAccrualOff: 1,
		MonthlyAccrualWFH: 1,
		MonthlyLateLimit:  120,
		CheckinWindow:     config.Window{Morning: "9:00", Afternoon: "13:30"},
		CheckoutWindow:    config.Window{Morning: "12:00", Afternoon: "18:00"},
		RequestOffBefore:  24,
		RequestWFHBefore:  12,
		RequestLateBefore: 2,
		DigestHour:        8,
		TimezoneOffset:    7,
	}
}

func testWindows(t *testing.T) timeoff.Windows {
	w, err := timeoff.WindowsFrom(testOrg())
	require.NoError(t, err)
	return w
}

func entry(user generic.UserID, typ timeoff.RequestType, createdAt time.Time, duration float64) timeoff.OffLogEntry {
	return timeoff.OffLogEntry{
		ID:        timeoff.EntryID(user, generic.MessageID(createdAt.String())),
		UserID:    user,
		Type:      typ,
		CreatedAt: createdAt,
		Approved:  true,
		StartDate: generic.StartOfDay(createdAt),
		Period:    timeoff.PeriodDay,
		Duration:  dec(duration),
	}
}

func quotaInput(now time.Time, entries ...timeoff.OffLogEntry) timeoff.QuotaInput {
	return timeoff.QuotaInput{
		UserID:            "u1",
		Year:              now.Year(),
		Now:               now,
		AccountCreatedAt:  date(2021, time.July, 20),
		MonthlyAccrualOff: dec(1),
		MonthlyAccrualWFH: dec(1),
		MonthlyLateLimit:  dec(120),
		Entries:           entries,
	}
}

// =============================================================================
// QUOTA LEDGER TESTS
// =============================================================================

func TestEntitlement_PastFirstYear_HalfMonthDeducted(t *testing.T) {
	// GIVEN: Account created 20/07/2021, accrual 1 per month
	// WHEN: Querying 2021 from October 2022
	// THEN: 6 months minus 1 for a creation day on/after the 15th = 5

	got := timeoff.Entitlement(dec(1), 2021, date(2021, time.July, 20), date(2022, time.October, 10))
	assert.True(t, got.Equal(dec(5)), "got %s", got)
}

func TestEntitlement_CurrentYear_CreatedEarlier(t *testing.T) {
	// GIVEN: Same account, clock in October 2022
	// THEN: 10 months, no half-month rule outside the first year

	got := timeoff.Entitlement(dec(1), 2022, date(2021, time.July, 20), date(2022, time.October, 10))
	assert.True(t, got.Equal(dec(10)), "got %s", got)
}

func TestEntitlement_Table(t *testing.T) {
	created := date(2021, time.July, 10)
	now := date(2022, time.October, 10)

	tests := []struct {
		name    string
		year    int
		created time.Time
		want    float64
	}{
		{"future year", 2023, created, 0},
		{"before creation", 2020, created, 0},
		{"past first year, early in month", 2021, created, 6},
		{"current year, created earlier", 2022, date(2020, time.March, 1), 10},
		{"current year is creation year", 2022, date(2022, time.April, 3), 7},
		{"current year is creation year, late in month", 2022, date(2022, time.April, 20), 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := timeoff.Entitlement(dec(1), tt.year, tt.created, now)
			assert.True(t, got.Equal(dec(tt.want)), "got %s want %v", got, tt.want)
		})
	}

	full := timeoff.Entitlement(dec(1.5), 2021, date(2019, time.May, 1), now)
	assert.True(t, full.Equal(dec(18)), "full past year at 1.5/month, got %s", full)
}

func TestComputeRemaining_AdditionalOffOnlyAffectsOff(t *testing.T) {
	// GIVEN: A clean balance in October 2022
	// WHEN: An OFF entry inside the year is added
	// THEN: off strictly decreases, wfh and late stay put

	now := date(2022, time.October, 10).Add(5 * time.Hour)
	before := timeoff.ComputeRemaining(quotaInput(now))
	after := timeoff.ComputeRemaining(quotaInput(now, entry("u1", timeoff.TypeOff, date(2022, time.March, 1), 1.5)))

	assert.True(t, after.Off.Value.LessThan(before.Off.Value))
	assert.True(t, after.Off.Value.Equal(dec(8.5)), "got %s", after.Off.Value)
	assert.True(t, after.WFH.Value.Equal(before.WFH.Value))
	assert.True(t, after.Late.Value.Equal(before.Late.Value))
}

func TestComputeRemaining_EntryOutsideYearIgnored(t *testing.T) {
	now := date(2022, time.October, 10)
	got := timeoff.ComputeRemaining(quotaInput(now,
		entry("u1", timeoff.TypeOff, date(2021, time.December, 1), 2),
		entry("u2", timeoff.TypeOff, date(2022, time.February, 1), 2),
	))
	assert.True(t, got.Off.Value.Equal(dec(10)), "got %s", got.Off.Value)
}

func TestComputeRemaining_LateBucketNetsCurrentMonthOnly(t *testing.T) {
	now := date(2022, time.October, 15)
	got := timeoff.ComputeRemaining(quotaInput(now,
		entry("u1", timeoff.TypeLate, date(2022, time.October, 3), 60),
		entry("u1", timeoff.TypeEndSoon, date(2022, time.October, 10), 40),
		entry("u1", timeoff.TypeLate, date(2022, time.September, 28), 90),
	))
	assert.True(t, got.Late.Value.Equal(dec(20)), "got %s", got.Late.Value)
	assert.Equal(t, generic.UnitMinutes, got.Late.Unit)
}

func TestComputeRemaining_AdjustmentAdded(t *testing.T) {
	now := date(2022, time.October, 15)
	in := quotaInput(now)
	in.Adjustment = &timeoff.MemberQuotaAdjustment{UserID: "u1", Year: 2022, OffExtra: 2, WFHExtra: -1, LateExtra: 30}

	got := timeoff.ComputeRemaining(in)
	assert.True(t, got.Off.Value.Equal(dec(12)))
	assert.True(t, got.WFH.Value.Equal(dec(9)))
	assert.True(t, got.Late.Value.Equal(dec(150)))
}

func TestComputeRemaining_UnapprovedIgnored(t *testing.T) {
	e := entry("u1", timeoff.TypeWFH, date(2022, time.March, 1), 3)
	e.Approved = false
	got := timeoff.ComputeRemaining(quotaInput(date(2022, time.October, 15), e))
	assert.True(t, got.WFH.Value.Equal(dec(10)))
}

func TestMemberQuotaAdjustment_Accumulates(t *testing.T) {
	a := timeoff.MemberQuotaAdjustment{UserID: "u1", Year: 2024}
	a.Add(timeoff.TypeOff, 2)
	a.Add(timeoff.TypeOff, -1)
	a.Add(timeoff.TypeEndSoon, 15)
	a.Add(timeoff.TypeLate, 15)

	assert.Equal(t, 1, a.OffExtra)
	assert.Equal(t, 0, a.WFHExtra)
	assert.Equal(t, 30, a.LateExtra)
}

// =============================================================================
// PENDING CLASSIFIER TESTS
// =============================================================================

func TestIsPending_MorningOffStopsAtCheckin(t *testing.T) {
	// GIVEN: An OFF request for this morning, check-in 09:00 at UTC+7
	// WHEN: The clock passes 09:00 local (02:00 UTC)
	// THEN: The request is no longer pending

	w := testWindows(t)
	today := date(2024, time.March, 4)
	e := timeoff.OffLogEntry{Type: timeoff.TypeOff, StartDate: today, Period: timeoff.PeriodMorning, Duration: dec(0.5)}

	assert.True(t, timeoff.IsPending(w, e, today.Add(time.Hour+59*time.Minute)))
	assert.False(t, timeoff.IsPending(w, e, today.Add(2*time.Hour)))
	assert.False(t, timeoff.IsPending(w, e, today.Add(5*time.Hour)))
}

func TestIsPending_AfternoonUsesAfternoonCheckin(t *testing.T) {
	w := testWindows(t)
	today := date(2024, time.March, 4)
	e := timeoff.OffLogEntry{Type: timeoff.TypeWFH, StartDate: today, Period: timeoff.PeriodAfternoon, Duration: dec(0.5)}

	// 13:30 local is 06:30 UTC
	assert.True(t, timeoff.IsPending(w, e, today.Add(6*time.Hour+29*time.Minute)))
	assert.False(t, timeoff.IsPending(w, e, today.Add(6*time.Hour+30*time.Minute)))
}

func TestIsPending_EndSoonStopsWhenLeaveStarts(t *testing.T) {
	// GIVEN: Leaving 30 minutes before the 18:00 checkout (11:00 UTC)
	// THEN: Pending until 10:30 UTC

	w := testWindows(t)
	today := date(2024, time.March, 4)
	e := timeoff.OffLogEntry{Type: timeoff.TypeEndSoon, StartDate: today, Period: timeoff.PeriodAfternoon, Duration: dec(30)}

	assert.True(t, timeoff.IsPending(w, e, today.Add(10*time.Hour+29*time.Minute)))
	assert.False(t, timeoff.IsPending(w, e, today.Add(10*time.Hour+30*time.Minute)))
}

func TestWindowsFrom_InvalidClock(t *testing.T) {
	org := testOrg()
	org.CheckoutWindow.Afternoon = "six"
	_, err := timeoff.WindowsFrom(org)
	assert.ErrorIs(t, err, generic.ErrInvalidClock)
}

// =============================================================================
// SPAN BUILDER TESTS
// =============================================================================

func TestBuildMessageData_EndLabels(t *testing.T) {
	friday := date(2024, time.March, 1)

	tests := []struct {
		name     string
		period   timeoff.Period
		duration float64
		endDate  string
		endLabel timeoff.Period
	}{
		{"one full day", timeoff.PeriodDay, 1, "", ""},
		{"half morning", timeoff.PeriodMorning, 0.5, "", ""},
		{"half afternoon", timeoff.PeriodAfternoon, 0.5, "", ""},
		{"one and a half days", timeoff.PeriodDay, 1.5, "4/3/2024", timeoff.PeriodMorning},
		{"two days", timeoff.PeriodDay, 2, "4/3/2024", timeoff.PeriodDay},
		{"afternoon plus one", timeoff.PeriodAfternoon, 1, "4/3/2024", timeoff.PeriodMorning},
		{"afternoon plus one and a half", timeoff.PeriodAfternoon, 1.5, "4/3/2024", timeoff.PeriodDay},
		{"three days", timeoff.PeriodDay, 3, "5/3/2024", timeoff.PeriodDay},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			md := timeoff.BuildMessageData(friday, tt.period, timeoff.TypeOff, dec(tt.duration))
			assert.Equal(t, "1/3/2024", md.StartDate)
			assert.Equal(t, "Friday", md.StartDay)
			assert.Equal(t, tt.period, md.StartLabel)
			assert.Equal(t, tt.endDate, md.EndDate)
			assert.Equal(t, tt.endLabel, md.EndLabel)
			if tt.endDate != "" {
				assert.NotEqual(t, "Saturday", md.EndDay)
				assert.NotEqual(t, "Sunday", md.EndDay)
			}
		})
	}
}

func TestBuildMessageData_LateHasNoEnd(t *testing.T) {
	md := timeoff.BuildMessageData(date(2024, time.March, 1), timeoff.PeriodMorning, timeoff.TypeLate, dec(90))
	assert.False(t, md.HasEnd())
}

func TestTotalDays(t *testing.T) {
	assert.Equal(t, 1, timeoff.TotalDays(timeoff.TypeOff, dec(0.5)))
	assert.Equal(t, 2, timeoff.TotalDays(timeoff.TypeOff, dec(1.5)))
	assert.Equal(t, 3, timeoff.TotalDays(timeoff.TypeWFH, dec(3)))
	assert.Equal(t, 1, timeoff.TotalDays(timeoff.TypeLate, dec(120)))
	assert.Equal(t, 1, timeoff.TotalDays(timeoff.TypeEndSoon, dec(30)))
}

func TestExpandToScheduleEntries_Labels(t *testing.T) {
	// GIVEN: 3 days starting Thursday 29/2/2024
	// THEN: Thursday, Friday, then Monday; weekend skipped

	got := timeoff.ExpandToScheduleEntries(date(2024, time.February, 29), timeoff.PeriodDay, timeoff.TypeOff, dec(3), timeoff.PeriodDay)
	require.Len(t, got, 3)
	assert.Equal(t, date(2024, time.February, 29), got[0].Date)
	assert.Equal(t, date(2024, time.March, 1), got[1].Date)
	assert.Equal(t, date(2024, time.March, 4), got[2].Date)
	for _, d := range got {
		assert.Equal(t, timeoff.PeriodDay, d.Period)
	}

	half := timeoff.ExpandToScheduleEntries(date(2024, time.March, 1), timeoff.PeriodAfternoon, timeoff.TypeWFH, dec(1.5), timeoff.PeriodDay)
	require.Len(t, half, 2)
	assert.Equal(t, timeoff.PeriodAfternoon, half[0].Period)
	assert.Equal(t, date(2024, time.March, 4), half[1].Date)
	assert.Equal(t, timeoff.PeriodDay, half[1].Period)
}

func TestExpandToScheduleEntries_NeverOnWeekend(t *testing.T) {
	// GIVEN: Every start day over two weeks, weekends included
	// WHEN: Expanding durations 1 to 10
	// THEN: No entry lands on a weekend and dates strictly increase

	for offset := 0; offset < 14; offset++ {
		start := date(2024, time.March, 1).AddDate(0, 0, offset)
		for d := 1; d <= 10; d++ {
			md := timeoff.BuildMessageData(start, timeoff.PeriodDay, timeoff.TypeOff, dec(float64(d)))
			got := timeoff.ExpandToScheduleEntries(start, timeoff.PeriodDay, timeoff.TypeOff, dec(float64(d)), md.EndLabel)
			require.Len(t, got, d)
			for i, e := range got {
				assert.False(t, generic.IsWeekend(e.Date), "start %s duration %d day %d", start, d, i)
				if i > 0 {
					assert.True(t, e.Date.After(got[i-1].Date))
				}
			}
			if md.HasEnd() {
				assert.Equal(t, md.EndDate, generic.DateToString(got[len(got)-1].Date))
			}
		}
	}
}

func TestExpandToScheduleEntries_LateIsSingleDay(t *testing.T) {
	got := timeoff.ExpandToScheduleEntries(date(2024, time.March, 2), timeoff.PeriodMorning, timeoff.TypeLate, dec(45), "")
	require.Len(t, got, 1)
	assert.Equal(t, date(2024, time.March, 4), got[0].Date)
	assert.Equal(t, timeoff.PeriodMorning, got[0].Period)
}

// =============================================================================
// WARNING EVALUATOR TESTS
// =============================================================================

func remaining(off, wfh, late float64) timeoff.Remaining {
	return timeoff.Remaining{
		Off:  generic.NewAmount(off, generic.UnitDays),
		WFH:  generic.NewAmount(wfh, generic.UnitDays),
		Late: generic.NewAmount(late, generic.UnitMinutes),
	}
}

func TestEvaluateWarnings_EndSoonOverMonthlyLimit(t *testing.T) {
	// GIVEN: Limit 120, 100 minutes used this month
	// WHEN: Requesting a 30-minute early leave well in advance
	// THEN: 120-100-30 = -10 earns LATE_OR_EARLY_USED_UP only

	now := date(2022, time.October, 15)
	r := timeoff.ComputeRemaining(quotaInput(now,
		entry("u1", timeoff.TypeLate, date(2022, time.October, 3), 60),
		entry("u1", timeoff.TypeEndSoon, date(2022, time.October, 10), 40),
	))
	form := timeoff.FormData{StartDate: date(2022, time.October, 20), Period: timeoff.PeriodAfternoon, Duration: dec(30), Reason: "doctor appointment"}

	ws := timeoff.EvaluateWarnings(timeoff.WarningInput{
		Type: timeoff.TypeEndSoon, Form: form, Remaining: r,
		Windows: testWindows(t), Notice: timeoff.NoticeFrom(testOrg()), Now: now,
	})

	require.Len(t, ws, 1)
	assert.Equal(t, timeoff.WarningLateUsedUp, ws[0].Kind)
	assert.Equal(t, timeoff.SeverityBlack, ws[0].Severity)
	assert.True(t, timeoff.RemainingAfter(r, timeoff.TypeEndSoon, form.Duration).Value.Equal(dec(-10)))
}

func TestEvaluateWarnings_OverQuotaCarriesValue(t *testing.T) {
	now := date(2024, time.March, 4)
	form := timeoff.FormData{StartDate: date(2024, time.March, 20), Period: timeoff.PeriodDay, Duration: dec(2), Reason: "family trip abroad"}

	ws := timeoff.EvaluateWarnings(timeoff.WarningInput{
		Type: timeoff.TypeOff, Form: form, Remaining: remaining(1, 5, 120),
		Windows: testWindows(t), Notice: timeoff.NoticeFrom(testOrg()), Now: now,
	})

	require.Len(t, ws, 1)
	assert.Equal(t, timeoff.WarningOverQuota, ws[0].Kind)
	assert.Equal(t, timeoff.SeverityRed, ws[0].Severity)
	require.NotNil(t, ws[0].Value)
	assert.True(t, ws[0].Value.Equal(dec(-1)))
}

func TestEvaluateWarnings_LateSubmissionAddsToOverQuota(t *testing.T) {
	// GIVEN: An OFF request for tomorrow morning submitted 16h ahead
	// THEN: Both OVER_QUOTA and LATE_SUBMISSION, in that order

	now := date(2024, time.March, 4).Add(10 * time.Hour)
	form := timeoff.FormData{StartDate: date(2024, time.March, 5), Period: timeoff.PeriodMorning, Duration: dec(0.5), Reason: "feeling unwell today"}

	ws := timeoff.EvaluateWarnings(timeoff.WarningInput{
		Type: timeoff.TypeOff, Form: form, Remaining: remaining(0, 5, 120),
		Windows: testWindows(t), Notice: timeoff.NoticeFrom(testOrg()), Now: now,
	})

	require.Len(t, ws, 2)
	assert.Equal(t, timeoff.WarningOverQuota, ws[0].Kind)
	assert.Equal(t, timeoff.WarningLateSubmit, ws[1].Kind)

	red, black := timeoff.CountTicks(ws)
	assert.Equal(t, 1, red)
	assert.Equal(t, 1, black)
}

func TestEvaluateWarnings_WFHWithinQuotaAndNotice(t *testing.T) {
	now := date(2024, time.March, 4)
	form := timeoff.FormData{StartDate: date(2024, time.March, 6), Period: timeoff.PeriodDay, Duration: dec(1), Reason: "waiting for delivery"}

	ws := timeoff.EvaluateWarnings(timeoff.WarningInput{
		Type: timeoff.TypeWFH, Form: form, Remaining: remaining(3, 3, 120),
		Windows: testWindows(t), Notice: timeoff.NoticeFrom(testOrg()), Now: now,
	})
	assert.Empty(t, ws)
}
