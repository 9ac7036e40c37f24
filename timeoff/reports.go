package timeoff

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/timee/generic"
)

// =============================================================================
// REPORT ROWS - stats, extra-stats, tick board
// =============================================================================

// StatsRow is one member's remaining quota.
type StatsRow struct {
	UserID    generic.UserID `json:"userId"`
	Username  string         `json:"username"`
	Remaining Remaining      `json:"remaining"`
}

// ExtraRow is one member's manual adjustments for a year.
type ExtraRow struct {
	UserID     generic.UserID        `json:"userId"`
	Username   string                `json:"username"`
	Adjustment MemberQuotaAdjustment `json:"adjustment"`
}

// TickRow sums one member's requests that start in a month.
type TickRow struct {
	UserID      generic.UserID  `json:"userId"`
	Username    string          `json:"username"`
	OffDays     decimal.Decimal `json:"offDays"`
	WFHDays     decimal.Decimal `json:"wfhDays"`
	LateMinutes decimal.Decimal `json:"lateMinutes"` // LATE only
	Warnings    []Warning       `json:"warnings"`
}

func (r TickRow) Ticks() (red, black int) { return CountTicks(r.Warnings) }

// BuildTickBoard aggregates entries whose start date falls in month.
// END_SOON entries add their warnings but no minutes.
// usernames resolves user ids; entries of unknown users are skipped.
func BuildTickBoard(entries []OffLogEntry, month generic.Period, usernames map[generic.UserID]string) []TickRow {
	rows := map[generic.UserID]*TickRow{}
	for _, e := range entries {
		if !month.Contains(e.StartDate) {
			continue
		}
		name, ok := usernames[e.UserID]
		if !ok {
			continue
		}
		row, ok := rows[e.UserID]
		if !ok {
			row = &TickRow{UserID: e.UserID, Username: name}
			rows[e.UserID] = row
		}
		switch e.Type {
		case TypeOff:
			row.OffDays = row.OffDays.Add(e.Duration)
		case TypeWFH:
			row.WFHDays = row.WFHDays.Add(e.Duration)
		case TypeLate:
			row.LateMinutes = row.LateMinutes.Add(e.Duration)
		}
		row.Warnings = append(row.Warnings, e.Warnings...)
	}

	out := make([]TickRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return lessUsername(out[i].Username, out[j].Username) })
	return out
}

// ParseMonth reads "MM/YYYY". An empty string means the month of now, read
// in UTC; callers pass the org's LocalToday.
func ParseMonth(s string, now time.Time) (generic.Period, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return generic.CalendarMonth(now.UTC().Year(), now.UTC().Month()), nil
	}
	d, err := generic.StringToDate("1/" + s)
	if err != nil {
		return generic.Period{}, err
	}
	return generic.CalendarMonth(d.Year(), d.Month()), nil
}

func lessUsername(a, b string) bool {
	return strings.ToLower(a) < strings.ToLower(b)
}
