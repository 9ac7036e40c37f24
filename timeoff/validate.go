package timeoff

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/warp/timee/generic"
)

// =============================================================================
// FORM VALIDATION
// =============================================================================

// MaxLateMinutes caps LATE/END_SOON requests.
const MaxLateMinutes = 120

// MaxRequestDays caps OFF/WFH requests, in business days.
const MaxRequestDays = 365

const (
	msgStartDate     = "Invalid start date"
	msgPeriod        = "Choose a period"
	msgDuration      = "Invalid duration"
	msgUnderDuration = "Number of days does not match the period"
	msgOverDuration  = "Too long, request half a day off instead"
	msgOverDays      = "Too many days for one request"
	msgReason        = "Enter a reason (at least 10 characters)"
)

// RawForm is a request form as submitted. Blank fields get defaults.
type RawForm struct {
	StartDate string   `json:"startDate"` // D/M/YYYY
	Period    string   `json:"period"`
	Duration  *float64 `json:"duration"`
	Reason    string   `json:"reason"`
}

// ValidationError carries one message per form field. Keys are
// <type>StartDate, <type>Period, <type>Duration, <type>Reason.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return generic.ErrInvalidInput }

// formRules are the field-local checks.
type formRules struct {
	Period   string  `validate:"required,oneof=day morning afternoon"`
	Duration float64 `validate:"gte=0.5"`
	Reason   string  `validate:"min=10"`
}

var validate = validator.New()

// DefaultPeriod is preselected in the form of t.
func DefaultPeriod(t RequestType) Period {
	switch t {
	case TypeLate:
		return PeriodMorning
	case TypeEndSoon:
		return PeriodAfternoon
	default:
		return PeriodDay
	}
}

// DefaultDuration is 1 day or 30 minutes.
func DefaultDuration(t RequestType) float64 {
	if t.IsDayBased() {
		return 1
	}
	return 30
}

// ValidateForm applies defaults and checks raw. now is the server clock and
// tzOffset the org's offset in hours; calendar days are judged in org time.
func ValidateForm(t RequestType, raw RawForm, now time.Time, tzOffset float64) (FormData, error) {
	if !t.Valid() {
		return FormData{}, fmt.Errorf("%w: unknown request type %q", generic.ErrInvalidInput, t)
	}

	localToday := generic.StartOfDay(generic.ShiftOffset(now, tzOffset, 0))
	fields := map[string]string{}
	key := func(name string) string { return string(t) + name }
	fail := func(name, msg string) {
		if _, seen := fields[key(name)]; !seen {
			fields[key(name)] = msg
		}
	}

	// defaults
	start := generic.NextBusinessDay(localToday)
	if s := strings.TrimSpace(raw.StartDate); s != "" {
		d, err := generic.StringToDate(s)
		if err != nil {
			fail("StartDate", msgStartDate)
		} else {
			start = d
		}
	}
	period := Period(strings.TrimSpace(raw.Period))
	if period == "" {
		period = DefaultPeriod(t)
	}
	duration := DefaultDuration(t)
	if raw.Duration != nil {
		duration = *raw.Duration
	}
	if t.IsDayBased() {
		duration = generic.RoundToHalf(duration)
	} else {
		duration = float64(int64(duration + 0.5))
	}
	reason := strings.TrimSpace(raw.Reason)

	// dates before yesterday 23:00 (org time) are in the past
	if start.Before(localToday.Add(-time.Hour)) {
		fail("StartDate", msgStartDate)
	}
	if generic.IsWeekend(start) {
		fail("StartDate", msgStartDate)
	}

	err := validate.Struct(formRules{Period: string(period), Duration: duration, Reason: reason})
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			switch fe.Field() {
			case "Period":
				fail("Period", msgPeriod)
			case "Duration":
				fail("Duration", msgDuration)
			case "Reason":
				fail("Reason", msgReason)
			}
		}
	} else if err != nil {
		return FormData{}, err
	}

	if period == PeriodDay && duration < 1 {
		fail("Duration", msgUnderDuration)
	}
	if !t.IsDayBased() && duration > MaxLateMinutes {
		fail("Duration", msgOverDuration)
	}
	if t.IsDayBased() && duration > MaxRequestDays {
		fail("Duration", msgOverDays)
	}

	if len(fields) > 0 {
		return FormData{}, &ValidationError{Fields: fields}
	}
	return FormData{
		StartDate: start,
		Period:    period,
		Duration:  decimal.NewFromFloat(duration),
		Reason:    reason,
	}, nil
}
