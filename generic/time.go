package generic

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CALENDAR DAYS
// =============================================================================
// A calendar day is represented by the UTC midnight instant of that day.
// Conversions below only look at calendar components; no zone shift is applied.

// Date returns the UTC midnight of the given calendar day.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// StartOfDay truncates t to the calendar day it falls on (in UTC).
func StartOfDay(t time.Time) time.Time {
	u := t.UTC()
	return Date(u.Year(), u.Month(), u.Day())
}

// DateToString formats t as "D/M/YYYY".
func DateToString(t time.Time) string {
	u := t.UTC()
	return fmt.Sprintf("%d/%d/%d", u.Day(), int(u.Month()), u.Year())
}

// StringToDate parses "D/M/YYYY" (leading zeros allowed) into the UTC
// midnight of that day. It is the exact inverse of DateToString.
func StringToDate(s string) (time.Time, error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}

	var nums [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
		}
		nums[i] = n
	}

	day, month, year := nums[0], nums[1], nums[2]
	if month < 1 || month > 12 || day < 1 || year < 1 {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}

	d := Date(year, time.Month(month), day)
	// time.Date normalizes 31/2 into March; reject instead
	if d.Day() != day || int(d.Month()) != month {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return d, nil
}

// DayKey formats t as "DDMMYYYY", used in attendance record ids.
func DayKey(t time.Time) string {
	u := t.UTC()
	return fmt.Sprintf("%02d%02d%04d", u.Day(), int(u.Month()), u.Year())
}

// =============================================================================
// WEEKDAYS
// =============================================================================

func IsWeekend(t time.Time) bool {
	wd := t.UTC().Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// NextBusinessDay is the default "tomorrow" suggestion in request forms:
// Friday advances 3 days, Saturday 2, anything else 1.
func NextBusinessDay(t time.Time) time.Time {
	switch t.UTC().Weekday() {
	case time.Friday:
		return t.AddDate(0, 0, 3)
	case time.Saturday:
		return t.AddDate(0, 0, 2)
	default:
		return t.AddDate(0, 0, 1)
	}
}

// SkipWeekend moves a Saturday to Monday and a Sunday to Monday.
func SkipWeekend(t time.Time) time.Time {
	switch t.UTC().Weekday() {
	case time.Saturday:
		return t.AddDate(0, 0, 2)
	case time.Sunday:
		return t.AddDate(0, 0, 1)
	default:
		return t
	}
}

// =============================================================================
// NUMBERS
// =============================================================================

// RoundToHalf rounds to the nearest multiple of 0.5.
func RoundToHalf(n float64) float64 {
	return math.Round(n*2) / 2
}

// RoundDecimalToHalf is RoundToHalf for decimals.
func RoundDecimalToHalf(d decimal.Decimal) decimal.Decimal {
	two := decimal.NewFromInt(2)
	return d.Mul(two).Round(0).Div(two)
}

// HoursFromHHMM converts "H:MM" into fractional hours ("13:30" -> 13.5).
func HoursFromHHMM(s string) (float64, error) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	hours, err := strconv.Atoi(h)
	if err != nil || hours < 0 || hours > 23 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	minutes, err := strconv.Atoi(m)
	if err != nil || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	return float64(hours) + float64(minutes)/60, nil
}

// HoursToDuration converts fractional hours into a time.Duration.
func HoursToDuration(h float64) time.Duration {
	return time.Duration(h * float64(time.Hour))
}

// ShiftOffset normalizes a timestamp taken on the server clock to the
// wall-clock basis of a user: t + (userOffset - baseOffset) hours.
func ShiftOffset(t time.Time, userOffset, baseOffset float64) time.Time {
	return t.Add(HoursToDuration(userOffset - baseOffset))
}

// =============================================================================
// TIME UTILITIES
// =============================================================================

func StartOfYear(year int) time.Time { return Date(year, time.January, 1) }

// EndOfYear is the last instant of the year.
func EndOfYear(year int) time.Time { return Date(year+1, time.January, 1).Add(-time.Nanosecond) }

func StartOfMonth(year int, month time.Month) time.Time { return Date(year, month, 1) }

// EndOfMonth is the last instant of the month.
func EndOfMonth(year int, month time.Month) time.Time {
	return Date(year, month+1, 1).Add(-time.Nanosecond)
}
