package generic

import "time"

// =============================================================================
// PERIOD - Closed time window used for usage netting
// =============================================================================

// Period is the closed interval [Start, End].
type Period struct {
	Start time.Time
	End   time.Time
}

// Contains returns true if t is within [Start, End].
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && !t.After(p.End)
}

// IsEmpty reports whether the window closes before it opens.
func (p Period) IsEmpty() bool {
	return p.End.Before(p.Start)
}

func (p Period) String() string {
	return "[" + p.Start.Format(time.RFC3339) + ", " + p.End.Format(time.RFC3339) + "]"
}

// YearToDate is [Jan 1 of year, min(now, Dec 31 of year)].
// For a future year the window is empty.
func YearToDate(year int, now time.Time) Period {
	end := EndOfYear(year)
	if now.Before(end) {
		end = now
	}
	return Period{Start: StartOfYear(year), End: end}
}

// MonthOf is the full calendar month of the given year that now's month
// points at.
func MonthOf(year int, now time.Time) Period {
	month := now.UTC().Month()
	return Period{Start: StartOfMonth(year, month), End: EndOfMonth(year, month)}
}

// CalendarMonth is the full window of year/month.
func CalendarMonth(year int, month time.Month) Period {
	return Period{Start: StartOfMonth(year, month), End: EndOfMonth(year, month)}
}
