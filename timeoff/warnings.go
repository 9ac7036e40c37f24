package timeoff

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/timee/config"
	"github.com/warp/timee/generic"
)

// =============================================================================
// WARNING EVALUATOR
// =============================================================================
// Warnings never block a request. Order of the returned list:
//   1. OVER_QUOTA (OFF/WFH) or LATE_OR_EARLY_USED_UP (LATE/END_SOON)
//   2. LATE_SUBMISSION

// Notice holds the advance-notice thresholds per request type.
type Notice struct {
	Off  time.Duration
	WFH  time.Duration
	Late time.Duration // LATE and END_SOON
}

func NoticeFrom(org *config.OrgConfig) Notice {
	return Notice{
		Off:  generic.HoursToDuration(org.RequestOffBefore),
		WFH:  generic.HoursToDuration(org.RequestWFHBefore),
		Late: generic.HoursToDuration(org.RequestLateBefore),
	}
}

func (n Notice) For(t RequestType) time.Duration {
	switch t {
	case TypeOff:
		return n.Off
	case TypeWFH:
		return n.WFH
	default:
		return n.Late
	}
}

type WarningInput struct {
	Type      RequestType
	Form      FormData
	Remaining Remaining
	Windows   Windows
	Notice    Notice
	Now       time.Time
}

// RemainingAfter is the balance of the request's bucket once it is taken.
func RemainingAfter(r Remaining, t RequestType, duration decimal.Decimal) generic.Amount {
	return r.For(t).Sub(generic.NewAmountFromDecimal(duration, t.Unit()))
}

// submissionReference is the instant the advance notice is measured to:
// check-in for OFF/WFH/LATE, checkout for END_SOON.
func submissionReference(in WarningInput) time.Time {
	if in.Type == TypeEndSoon {
		return in.Windows.CheckoutAt(in.Form.StartDate, in.Form.Period)
	}
	return in.Windows.CheckinAt(in.Form.StartDate, in.Form.Period)
}

// EvaluateWarnings returns the ordered warnings for a request.
func EvaluateWarnings(in WarningInput) []Warning {
	var out []Warning

	after := RemainingAfter(in.Remaining, in.Type, in.Form.Duration)
	if after.IsNegative() {
		if in.Type.IsDayBased() {
			value := after.Value
			out = append(out, Warning{Kind: WarningOverQuota, Severity: SeverityRed, Value: &value})
		} else {
			out = append(out, Warning{Kind: WarningLateUsedUp, Severity: SeverityBlack})
		}
	}

	if submissionReference(in).Sub(in.Now) < in.Notice.For(in.Type) {
		out = append(out, Warning{Kind: WarningLateSubmit, Severity: SeverityBlack})
	}
	return out
}

// CountTicks returns the number of red and black warnings.
func CountTicks(ws []Warning) (red, black int) {
	for _, w := range ws {
		if w.Severity == SeverityRed {
			red++
		} else {
			black++
		}
	}
	return red, black
}
