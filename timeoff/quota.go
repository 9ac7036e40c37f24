package timeoff

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/timee/generic"
)

// =============================================================================
// QUOTA LEDGER - Remaining balance recomputed from the full history
// =============================================================================
// Nothing is cached incrementally. Every query prorates the entitlement
// from the account creation date, applies the manual adjustment and nets
// out every approved entry in the usage window.
//
// Usage windows:
//   OFF/WFH:        createdAt in [Jan 1 of year, min(now, Dec 31 of year)]
//   LATE/END_SOON:  createdAt in the calendar month of now, within year
//
// Years and months are read on the org's wall clock (TimezoneOffset), so a
// request made early on Jan 1 local time counts toward the new year.

// halfMonthDay is the creation day from which the first month is docked.
const halfMonthDay = 15

type QuotaInput struct {
	UserID            generic.UserID
	Year              int
	Now               time.Time
	TimezoneOffset    float64 // org hours east of UTC
	AccountCreatedAt  time.Time
	MonthlyAccrualOff decimal.Decimal
	MonthlyAccrualWFH decimal.Decimal
	MonthlyLateLimit  decimal.Decimal // minutes
	Adjustment        *MemberQuotaAdjustment
	Entries           []OffLogEntry
}

// Entitlement is the prorated accrual for year.
func Entitlement(monthlyAccrual decimal.Decimal, year int, createdAt, now time.Time) decimal.Decimal {
	created := createdAt.UTC()
	current := now.UTC()

	createdYear, createdMonth := created.Year(), int(created.Month())
	currentYear, currentMonth := current.Year(), int(current.Month())

	var months int
	firstYear := year == createdYear
	switch {
	case year > currentYear, year < createdYear:
		return decimal.Zero
	case firstYear && year < currentYear:
		months = 13 - createdMonth
	case year < currentYear:
		months = 12
	case firstYear:
		months = currentMonth - createdMonth + 1
	default:
		months = currentMonth
	}

	total := monthlyAccrual.Mul(decimal.NewFromInt(int64(months)))
	if firstYear && created.Day() >= halfMonthDay {
		total = total.Sub(decimal.NewFromInt(1))
	}
	return total
}

// ComputeRemaining returns the user's balance for the input year.
func ComputeRemaining(in QuotaInput) Remaining {
	local := func(t time.Time) time.Time { return generic.ShiftOffset(t, in.TimezoneOffset, 0) }
	now := local(in.Now)

	off := Entitlement(in.MonthlyAccrualOff, in.Year, local(in.AccountCreatedAt), now)
	wfh := Entitlement(in.MonthlyAccrualWFH, in.Year, local(in.AccountCreatedAt), now)
	late := in.MonthlyLateLimit

	if adj := in.Adjustment; adj != nil && adj.Year == in.Year {
		off = off.Add(decimal.NewFromInt(int64(adj.OffExtra)))
		wfh = wfh.Add(decimal.NewFromInt(int64(adj.WFHExtra)))
		late = late.Add(decimal.NewFromInt(int64(adj.LateExtra)))
	}

	yearWindow := generic.YearToDate(in.Year, now)
	monthWindow := generic.MonthOf(in.Year, now)

	for _, e := range in.Entries {
		if !e.Approved || (in.UserID != "" && e.UserID != in.UserID) {
			continue
		}
		created := local(e.CreatedAt)
		switch e.Type {
		case TypeOff:
			if yearWindow.Contains(created) {
				off = off.Sub(e.Duration)
			}
		case TypeWFH:
			if yearWindow.Contains(created) {
				wfh = wfh.Sub(e.Duration)
			}
		case TypeLate, TypeEndSoon:
			if monthWindow.Contains(created) {
				late = late.Sub(e.Duration)
			}
		}
	}

	return Remaining{
		Off:  generic.NewAmountFromDecimal(off, generic.UnitDays),
		WFH:  generic.NewAmountFromDecimal(wfh, generic.UnitDays),
		Late: generic.NewAmountFromDecimal(late, generic.UnitMinutes),
	}
}
