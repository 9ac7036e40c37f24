package timeoff

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/timee/generic"
)

// =============================================================================
// SPAN BUILDER - First/last day labels and per-day expansion
// =============================================================================
// A day-based request is laid out on half-day slots: slot 0 is the start
// day's morning, slot 1 its afternoon, slot 2 the next business day's
// morning, and so on. An AFTERNOON start begins at slot 1; a duration of d
// days covers 2d slots. The last slot decides the end label: an odd slot
// ends a full day (DAY), an even slot ends at noon (MORNING).

// DatedPeriod is one calendar day of an expanded request.
type DatedPeriod struct {
	Date   time.Time
	Period Period
}

// businessDay walks offset business days forward from start, skipping
// Saturdays and Sundays one day at a time.
func businessDay(start time.Time, offset int) time.Time {
	d := generic.SkipWeekend(start)
	for i := 0; i < offset; i++ {
		d = generic.SkipWeekend(d.AddDate(0, 0, 1))
	}
	return d
}

// lastSlot returns the end day offset and end label of a day-based span.
func lastSlot(p Period, duration decimal.Decimal) (int, Period) {
	first := int64(0)
	if p == PeriodAfternoon {
		first = 1
	}
	slots := duration.Mul(decimal.NewFromInt(2)).Round(0).IntPart()
	last := first + slots - 1
	if last < 0 {
		last = 0
	}

	label := PeriodMorning
	if last%2 == 1 {
		label = PeriodDay
	}
	return int(last / 2), label
}

// BuildMessageData derives the display labels of a request.
func BuildMessageData(start time.Time, p Period, t RequestType, duration decimal.Decimal) MessageData {
	md := MessageData{
		StartDate:  generic.DateToString(start),
		StartDay:   start.UTC().Weekday().String(),
		StartLabel: p,
		Duration:   duration,
	}
	if !t.IsDayBased() {
		return md
	}

	offset, label := lastSlot(p, duration)
	if offset > 0 {
		end := businessDay(start, offset)
		md.EndDate = generic.DateToString(end)
		md.EndDay = end.UTC().Weekday().String()
		md.EndLabel = label
	}
	return md
}

// TotalDays is the number of calendar days a request is expanded to:
// ceil(duration) for OFF/WFH, always 1 for LATE/END_SOON.
func TotalDays(t RequestType, duration decimal.Decimal) int {
	if !t.IsDayBased() {
		return 1
	}
	n := int(duration.Ceil().IntPart())
	if n < 1 {
		n = 1
	}
	return n
}

// ExpandToScheduleEntries lays a request out day by day, never on a weekend.
// The first day carries the request's own period, middle days are DAY and
// the last day carries endLabel.
func ExpandToScheduleEntries(start time.Time, p Period, t RequestType, duration decimal.Decimal, endLabel Period) []DatedPeriod {
	total := TotalDays(t, duration)
	out := make([]DatedPeriod, 0, total)

	day := generic.SkipWeekend(start)
	for i := 0; i < total; i++ {
		if i > 0 {
			day = generic.SkipWeekend(day.AddDate(0, 0, 1))
		}

		label := p
		switch {
		case i == 0:
		case i < total-1:
			label = PeriodDay
		case endLabel != "":
			label = endLabel
		default:
			label = PeriodDay
		}
		out = append(out, DatedPeriod{Date: day, Period: label})
	}
	return out
}
