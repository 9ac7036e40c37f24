package generic_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/timee/generic"
)

// =============================================================================
// DATE STRING TESTS
// =============================================================================

func TestDateToString_NoLeadingZeros(t *testing.T) {
	d := generic.Date(2024, time.March, 5)
	assert.Equal(t, "5/3/2024", generic.DateToString(d))
}

func TestStringToDate_RoundTrip(t *testing.T) {
	// GIVEN: Instants up to one day around midnight
	// WHEN: Formatting then parsing
	// THEN: The same calendar day comes back

	base := generic.Date(2023, time.December, 31)
	for h := -23; h <= 23; h++ {
		ts := base.Add(time.Duration(h) * time.Hour)
		got, err := generic.StringToDate(generic.DateToString(ts))
		require.NoError(t, err)
		assert.Equal(t, generic.StartOfDay(ts), got, "offset %dh", h)
	}
}

func TestStringToDate_LeadingZerosAccepted(t *testing.T) {
	got, err := generic.StringToDate("09/07/2021")
	require.NoError(t, err)
	assert.Equal(t, generic.Date(2021, time.July, 9), got)
}

func TestStringToDate_Invalid(t *testing.T) {
	for _, s := range []string{"", "1/1", "a/b/c", "31/2/2024", "0/1/2024", "1/13/2024"} {
		_, err := generic.StringToDate(s)
		assert.ErrorIs(t, err, generic.ErrInvalidDate, s)
		assert.True(t, generic.IsClientError(err), s)
	}
}

func TestDayKey(t *testing.T) {
	assert.Equal(t, "05032024", generic.DayKey(generic.Date(2024, time.March, 5)))
}

// =============================================================================
// WEEKDAY TESTS
// =============================================================================

func TestNextBusinessDay(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{"monday", generic.Date(2024, time.June, 3), generic.Date(2024, time.June, 4)},
		{"thursday", generic.Date(2024, time.June, 6), generic.Date(2024, time.June, 7)},
		{"friday", generic.Date(2024, time.June, 7), generic.Date(2024, time.June, 10)},
		{"saturday", generic.Date(2024, time.June, 8), generic.Date(2024, time.June, 10)},
		{"sunday", generic.Date(2024, time.June, 9), generic.Date(2024, time.June, 10)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, generic.NextBusinessDay(tt.in))
		})
	}
}

func TestSkipWeekend(t *testing.T) {
	sat := generic.Date(2024, time.June, 8)
	sun := generic.Date(2024, time.June, 9)
	mon := generic.Date(2024, time.June, 10)

	assert.Equal(t, mon, generic.SkipWeekend(sat))
	assert.Equal(t, mon, generic.SkipWeekend(sun))
	assert.Equal(t, mon, generic.SkipWeekend(mon))
	assert.True(t, generic.IsWeekend(sat))
	assert.False(t, generic.IsWeekend(mon))
}

// =============================================================================
// NUMBER TESTS
// =============================================================================

func TestRoundToHalf(t *testing.T) {
	assert.Equal(t, 1.5, generic.RoundToHalf(1.4))
	assert.Equal(t, 1.0, generic.RoundToHalf(1.2))
	assert.Equal(t, 2.0, generic.RoundToHalf(1.8))
	assert.Equal(t, 0.5, generic.RoundToHalf(0.5))

	got := generic.RoundDecimalToHalf(decimal.RequireFromString("2.3"))
	assert.True(t, got.Equal(decimal.RequireFromString("2.5")), got.String())
}

func TestHoursFromHHMM(t *testing.T) {
	h, err := generic.HoursFromHHMM("13:30")
	require.NoError(t, err)
	assert.Equal(t, 13.5, h)

	h, err = generic.HoursFromHHMM("9:00")
	require.NoError(t, err)
	assert.Equal(t, 9.0, h)

	_, err = generic.HoursFromHHMM("nine")
	assert.ErrorIs(t, err, generic.ErrInvalidClock)
	_, err = generic.HoursFromHHMM("25:00")
	assert.ErrorIs(t, err, generic.ErrInvalidClock)
}

func TestShiftOffset(t *testing.T) {
	now := time.Date(2024, time.June, 3, 2, 0, 0, 0, time.UTC)
	assert.Equal(t, now.Add(7*time.Hour), generic.ShiftOffset(now, 7, 0))
	assert.Equal(t, now, generic.ShiftOffset(now, 7, 7))
	assert.Equal(t, now.Add(90*time.Minute), generic.ShiftOffset(now, 5.5, 4))
}

// =============================================================================
// PERIOD TESTS
// =============================================================================

func TestYearToDate_ClampsToNow(t *testing.T) {
	now := time.Date(2024, time.May, 10, 12, 0, 0, 0, time.UTC)

	current := generic.YearToDate(2024, now)
	assert.Equal(t, generic.Date(2024, time.January, 1), current.Start)
	assert.Equal(t, now, current.End)

	past := generic.YearToDate(2023, now)
	assert.Equal(t, generic.EndOfYear(2023), past.End)
	assert.True(t, past.Contains(time.Date(2023, time.December, 31, 23, 0, 0, 0, time.UTC)))

	future := generic.YearToDate(2025, now)
	assert.True(t, future.IsEmpty())
}

func TestMonthOf_UsesNowMonthInYear(t *testing.T) {
	now := time.Date(2024, time.February, 10, 0, 0, 0, 0, time.UTC)
	p := generic.MonthOf(2023, now)

	assert.Equal(t, generic.Date(2023, time.February, 1), p.Start)
	assert.True(t, p.Contains(time.Date(2023, time.February, 28, 23, 59, 0, 0, time.UTC)))
	assert.False(t, p.Contains(generic.Date(2023, time.March, 1)))
}
