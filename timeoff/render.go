package timeoff

import (
	"fmt"
	"strings"
)

// =============================================================================
// MESSAGE RENDERING
// =============================================================================
// Chat markdown for log messages, the daily digest and admin boards.

const (
	tickRed   = ":x:"
	tickBlack = ":heavy_multiplication_x:"
)

var typeIcons = map[RequestType]string{
	TypeOff:     "🏖️",
	TypeWFH:     "🏡",
	TypeLate:    ":turtle:",
	TypeEndSoon: ":police_car:",
}

var typeNames = map[RequestType]string{
	TypeOff:     "off",
	TypeWFH:     "WFH",
	TypeLate:    "late arrival",
	TypeEndSoon: "early leave",
}

func (p Period) Label() string {
	switch p {
	case PeriodMorning:
		return "Morning"
	case PeriodAfternoon:
		return "Afternoon"
	default:
		return "Full day"
	}
}

func (t RequestType) Icon() string { return typeIcons[t] }

func tick(s Severity) string {
	if s == SeverityRed {
		return tickRed
	}
	return tickBlack
}

func dayPhrase(p Period, date, weekday string) string {
	switch p {
	case PeriodMorning:
		return fmt.Sprintf("morning of *%s, %s*", weekday, date)
	case PeriodAfternoon:
		return fmt.Sprintf("afternoon of *%s, %s*", weekday, date)
	default:
		return fmt.Sprintf("*%s, %s*", weekday, date)
	}
}

// RenderOverview is the one-line summary of a request.
func RenderOverview(username string, t RequestType, md MessageData) string {
	if !t.IsDayBased() {
		return fmt.Sprintf("*%s* requests %s of about *%s minutes*, %s",
			username, typeNames[t], md.Duration.String(), dayPhrase(md.StartLabel, md.StartDate, md.StartDay))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "*%s* requests %s", username, typeNames[t])
	if md.HasEnd() {
		b.WriteString(" from")
	}
	b.WriteString(" " + dayPhrase(md.StartLabel, md.StartDate, md.StartDay))
	if md.HasEnd() {
		b.WriteString(" until the end of " + dayPhrase(md.EndLabel, md.EndDate, md.EndDay))
	}
	fmt.Fprintf(&b, ". (*%s* days)", md.Duration.String())
	return b.String()
}

func warningText(w Warning) string {
	switch w.Kind {
	case WarningOverQuota:
		if w.Value != nil && !w.Value.IsZero() {
			return fmt.Sprintf("Over quota (*%s* days).", w.Value.String())
		}
		return "Over quota."
	case WarningLateUsedUp:
		return "Monthly late/early budget used up."
	default:
		return "Late request."
	}
}

// LogView is everything shown in a request's log message.
type LogView struct {
	Username  string
	Type      RequestType
	Message   MessageData
	Reason    string
	Warnings  []Warning
	Cancelled bool
}

// RenderLogMessage renders the message posted to the time-off room.
func RenderLogMessage(v LogView) string {
	caption := v.Type.Icon() + " " + RenderOverview(v.Username, v.Type, v.Message)
	if v.Cancelled {
		caption = "~" + caption + "~"
	}

	var b strings.Builder
	b.WriteString(caption)
	b.WriteString("\n*Reason:* " + v.Reason)
	if len(v.Warnings) > 0 {
		b.WriteString("\n")
		for _, w := range v.Warnings {
			b.WriteString("\n" + tick(w.Severity) + " " + warningText(w))
		}
	}
	if v.Cancelled {
		fmt.Fprintf(&b, "\n:speech_balloon: *%s* cancelled the request.", v.Username)
	}
	return b.String()
}

// RenderConfirmation is the text shown before the user confirms.
func RenderConfirmation(username string, p PendingConfirmation) string {
	var b strings.Builder
	b.WriteString(RenderOverview(username, p.Type, p.Message))
	if p.Type.IsDayBased() {
		fmt.Fprintf(&b, "\nAfter this request you have *%s* %s days left.", p.RemainingAfter.Value.String(), typeNames[p.Type])
	}
	for _, w := range p.Warnings {
		b.WriteString("\n" + tick(w.Severity) + " " + warningText(w))
	}
	return b.String()
}

// =============================================================================
// DIGEST
// =============================================================================

func digestNames(list []ScheduleEntry) string {
	parts := make([]string, len(list))
	for i, e := range list {
		if e.Period == PeriodDay {
			parts[i] = "  " + e.Username
		} else {
			parts[i] = fmt.Sprintf("  %s (%s)", e.Username, e.Period.Label())
		}
	}
	return strings.Join(parts, ",")
}

// RenderDigest renders today's digest. Empty buckets are omitted.
func RenderDigest(d Digest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Today's requests _%s_ :\n", d.Date)
	if len(d.Off) > 0 {
		fmt.Fprintf(&b, "%s  *Off (%d):*%s\n", TypeOff.Icon(), len(d.Off), digestNames(d.Off))
	}
	if len(d.WFH) > 0 {
		fmt.Fprintf(&b, "%s  *WFH (%d):*%s\n", TypeWFH.Icon(), len(d.WFH), digestNames(d.WFH))
	}
	if len(d.Other) > 0 {
		parts := make([]string, len(d.Other))
		for i, e := range d.Other {
			parts[i] = fmt.Sprintf("  %s (%s %s %s minutes)", e.Username, e.Period.Label(), typeNames[e.Type], e.Duration.String())
		}
		fmt.Fprintf(&b, "%s *Other:*%s", TypeEndSoon.Icon(), strings.Join(parts, ","))
	}
	return strings.TrimRight(b.String(), "\n")
}

// =============================================================================
// BOARDS
// =============================================================================

func RenderStats(year int, rows []StatsRow) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Remaining quota for %d:", year)
	for _, r := range rows {
		fmt.Fprintf(&b, "\n*%s:* *%s* days off | *%s* WFH days | *%s* late minutes",
			r.Username, r.Remaining.Off.Value.String(), r.Remaining.WFH.Value.String(), r.Remaining.Late.Value.String())
	}
	return b.String()
}

func RenderExtraStats(year int, rows []ExtraRow) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Quota adjustments for %d:", year)
	for _, r := range rows {
		a := r.Adjustment
		fmt.Fprintf(&b, "\n*%s:* *%d* days off | *%d* WFH days | *%d* late minutes", r.Username, a.OffExtra, a.WFHExtra, a.LateExtra)
	}
	return b.String()
}

// RenderTickBoard lists per-member totals followed by their ticks.
func RenderTickBoard(month string, rows []TickRow) string {
	var b strings.Builder
	fmt.Fprintf(&b, ":palm_tree: Statistics for *%s*:", month)
	for _, r := range rows {
		b.WriteString("\n*" + r.Username + ":*")
		if r.OffDays.IsPositive() {
			fmt.Fprintf(&b, " Off: %s days |", r.OffDays.String())
		}
		if r.WFHDays.IsPositive() {
			fmt.Fprintf(&b, " WFH: %s days |", r.WFHDays.String())
		}
		if r.LateMinutes.IsPositive() {
			fmt.Fprintf(&b, " Late: %s minutes |", r.LateMinutes.String())
		}
		red, black := r.Ticks()
		fmt.Fprintf(&b, " Red: %d | Black: %d ", red, black)
		for _, w := range r.Warnings {
			b.WriteString(tick(w.Severity))
		}
	}
	return b.String()
}

// RenderMemberLogs lists a member's entries, numbered, with their ticks.
func RenderMemberLogs(username string, remaining Remaining, entries []OffLogEntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*%s* has :beach: *%s* days off and :house_with_garden: *%s* WFH days left this year.",
		username, remaining.Off.Value.String(), remaining.WFH.Value.String())
	for i, e := range entries {
		md := BuildMessageData(e.StartDate, e.Period, e.Type, e.Duration)
		fmt.Fprintf(&b, "\n\n%d. %s\n*Reason:* %s", i+1, RenderOverview(username, e.Type, md), e.Reason)
		for _, w := range e.Warnings {
			b.WriteString(" " + tick(w.Severity))
		}
	}
	return b.String()
}
