// Package timeoff implements leave, work-from-home and late/early requests:
// quota accounting, pending classification, span expansion, warnings and the
// day-indexed schedule behind the daily digest.
package timeoff

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/timee/generic"
)

// =============================================================================
// REQUEST TYPE
// =============================================================================

type RequestType string

const (
	TypeOff     RequestType = "off"
	TypeWFH     RequestType = "wfh"
	TypeLate    RequestType = "late"
	TypeEndSoon RequestType = "endSoon"
)

// AllTypes lists the request types in display order.
var AllTypes = []RequestType{TypeOff, TypeWFH, TypeLate, TypeEndSoon}

func (t RequestType) Valid() bool {
	switch t {
	case TypeOff, TypeWFH, TypeLate, TypeEndSoon:
		return true
	}
	return false
}

// IsDayBased is true for OFF/WFH, measured in days. LATE/END_SOON are
// measured in minutes and never span more than one day.
func (t RequestType) IsDayBased() bool {
	return t == TypeOff || t == TypeWFH
}

func (t RequestType) Unit() generic.Unit {
	if t.IsDayBased() {
		return generic.UnitDays
	}
	return generic.UnitMinutes
}

// =============================================================================
// PERIOD
// =============================================================================

type Period string

const (
	PeriodDay       Period = "day"
	PeriodMorning   Period = "morning"
	PeriodAfternoon Period = "afternoon"
)

func (p Period) Valid() bool {
	return p == PeriodDay || p == PeriodMorning || p == PeriodAfternoon
}

// rank orders periods for display: DAY, MORNING, AFTERNOON.
func (p Period) rank() int {
	switch p {
	case PeriodDay:
		return 0
	case PeriodMorning:
		return 1
	default:
		return 2
	}
}

// =============================================================================
// WARNINGS
// =============================================================================

type WarningKind string

const (
	WarningOverQuota  WarningKind = "OVER_QUOTA"
	WarningLateUsedUp WarningKind = "LATE_OR_EARLY_USED_UP"
	WarningLateSubmit WarningKind = "LATE_SUBMISSION"
)

// Severity is the tick color shown on the board.
type Severity string

const (
	SeverityRed   Severity = "red"
	SeverityBlack Severity = "black"
)

type Warning struct {
	Kind     WarningKind      `json:"kind"`
	Severity Severity         `json:"severity"`
	Value    *decimal.Decimal `json:"value,omitempty"`
}

// =============================================================================
// RECORDS
// =============================================================================

// OffLogEntry is one confirmed request. It is never mutated; cancellation
// deletes it.
type OffLogEntry struct {
	ID        string            `json:"id"` // <userID>_<messageID>
	UserID    generic.UserID    `json:"userId"`
	MessageID generic.MessageID `json:"messageId"`
	Type      RequestType       `json:"type"`
	CreatedAt time.Time         `json:"createdAt"`
	Approved  bool              `json:"approved"`
	StartDate time.Time         `json:"startDate"`
	Period    Period            `json:"period"`
	Duration  decimal.Decimal   `json:"duration"`
	Reason    string            `json:"reason"`
	Warnings  []Warning         `json:"warnings"`
}

func EntryID(user generic.UserID, msg generic.MessageID) string {
	return string(user) + "_" + string(msg)
}

// MemberQuotaAdjustment holds the signed manual corrections for one user
// and year. Repeated adjustments accumulate.
type MemberQuotaAdjustment struct {
	UserID    generic.UserID `json:"userId"`
	Year      int            `json:"year"`
	OffExtra  int            `json:"offExtra"`
	WFHExtra  int            `json:"wfhExtra"`
	LateExtra int            `json:"lateExtra"`
}

// Add accumulates count into the bucket of t.
func (a *MemberQuotaAdjustment) Add(t RequestType, count int) {
	switch t {
	case TypeOff:
		a.OffExtra += count
	case TypeWFH:
		a.WFHExtra += count
	case TypeLate, TypeEndSoon:
		a.LateExtra += count
	}
}

// Remaining is a user's balance: days for off/wfh, minutes for late.
// Values may be negative.
type Remaining struct {
	Off  generic.Amount `json:"off"`
	WFH  generic.Amount `json:"wfh"`
	Late generic.Amount `json:"late"`
}

// For returns the bucket a request of type t draws from.
func (r Remaining) For(t RequestType) generic.Amount {
	switch t {
	case TypeOff:
		return r.Off
	case TypeWFH:
		return r.WFH
	default:
		return r.Late
	}
}

// FormData is a validated request form.
type FormData struct {
	StartDate time.Time       `json:"startDate"`
	Period    Period          `json:"period"`
	Duration  decimal.Decimal `json:"duration"`
	Reason    string          `json:"reason"`
}

// MessageData holds the first/last day labels shown in confirmation and
// log messages. End fields are set only when the span reaches past the
// start day.
type MessageData struct {
	StartDate  string          `json:"startDate"`
	StartDay   string          `json:"startDay"`
	StartLabel Period          `json:"startLabel"`
	Duration   decimal.Decimal `json:"duration"`
	EndDate    string          `json:"endDate,omitempty"`
	EndDay     string          `json:"endDay,omitempty"`
	EndLabel   Period          `json:"endLabel,omitempty"`
}

func (m MessageData) HasEnd() bool { return m.EndDate != "" }
