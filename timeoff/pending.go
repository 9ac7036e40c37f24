package timeoff

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/timee/config"
	"github.com/warp/timee/generic"
)

// =============================================================================
// WINDOWS - Configured check-in/check-out clock times
// =============================================================================

// Windows holds the four configured clock times as offsets from the UTC
// midnight of a calendar day, already corrected by the org's timezone
// offset: a 9:00 check-in at UTC+7 is stored as 2h.
type Windows struct {
	CheckinMorning    time.Duration
	CheckinAfternoon  time.Duration
	CheckoutMorning   time.Duration
	CheckoutAfternoon time.Duration
}

// WindowsFrom converts the org's "H:MM" settings.
func WindowsFrom(org *config.OrgConfig) (Windows, error) {
	convert := func(hhmm string) (time.Duration, error) {
		h, err := generic.HoursFromHHMM(hhmm)
		if err != nil {
			return 0, err
		}
		return generic.HoursToDuration(h - org.TimezoneOffset), nil
	}

	var (
		w   Windows
		err error
	)
	if w.CheckinMorning, err = convert(org.CheckinWindow.Morning); err != nil {
		return Windows{}, err
	}
	if w.CheckinAfternoon, err = convert(org.CheckinWindow.Afternoon); err != nil {
		return Windows{}, err
	}
	if w.CheckoutMorning, err = convert(org.CheckoutWindow.Morning); err != nil {
		return Windows{}, err
	}
	if w.CheckoutAfternoon, err = convert(org.CheckoutWindow.Afternoon); err != nil {
		return Windows{}, err
	}
	return w, nil
}

// CheckinAt is the check-in instant a request starting on day in period
// refers to: the afternoon check-in for AFTERNOON, the morning otherwise.
func (w Windows) CheckinAt(day time.Time, p Period) time.Time {
	if p == PeriodAfternoon {
		return day.Add(w.CheckinAfternoon)
	}
	return day.Add(w.CheckinMorning)
}

// CheckoutAt is the morning checkout for MORNING, the afternoon otherwise.
func (w Windows) CheckoutAt(day time.Time, p Period) time.Time {
	if p == PeriodMorning {
		return day.Add(w.CheckoutMorning)
	}
	return day.Add(w.CheckoutAfternoon)
}

// =============================================================================
// PENDING CLASSIFIER
// =============================================================================

// EffectiveInstant is the moment a request takes effect. OFF/WFH/LATE take
// effect at check-in; END_SOON takes effect when the early leave starts,
// duration minutes before checkout.
func EffectiveInstant(w Windows, t RequestType, start time.Time, p Period, duration decimal.Decimal) time.Time {
	if t == TypeEndSoon {
		minutes := duration.Mul(decimal.NewFromInt(int64(time.Minute))).IntPart()
		return w.CheckoutAt(start, p).Add(-time.Duration(minutes))
	}
	return w.CheckinAt(start, p)
}

// IsPending reports whether the entry has not taken effect yet. Only
// pending entries can be cancelled.
func IsPending(w Windows, e OffLogEntry, now time.Time) bool {
	return now.Before(EffectiveInstant(w, e.Type, e.StartDate, e.Period, e.Duration))
}
