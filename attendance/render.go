package attendance

import (
	"fmt"
	"strings"
)

// =============================================================================
// RENDERING
// =============================================================================

const (
	NoticeCheckedIn = ":white_check_mark: You have checked in successfully."
	NoticeResumed   = ":white_check_mark: Welcome back, your session is running again."
	NoticePaused    = ":pause_button: Your working session is paused."
	NoticeEnded     = "You have ended your working session. Thank you :+1:"
)

var statusIcons = map[Status]string{
	StatusStart:  ":white_check_mark:",
	StatusResume: ":white_check_mark:",
	StatusPause:  ":pause_button:",
	StatusEnd:    ":zzz:",
}

func (s Status) Icon() string { return statusIcons[s] }

// RenderDay renders the attendance message of a room for one day.
func RenderDay(d AttendanceDay) string {
	var b strings.Builder
	fmt.Fprintf(&b, ":house_with_garden: Today *%d* members working from home have checked in.", len(d.Members))

	for _, m := range d.Members {
		last, ok := m.Last()
		if !ok {
			continue
		}
		hours := Elapsed(m.States).Hours()
		fmt.Fprintf(&b, "\n\n%s *%s* -- Total: *%.1fh*\n%s", last.Status.Icon(), m.Username, hours, renderTrail(m.States))
	}
	return b.String()
}

// renderTrail prints "[09:00 Start: _note_ ] *-* [12:00 Pause]".
func renderTrail(states []StateEntry) string {
	parts := make([]string, len(states))
	for i, st := range states {
		var b strings.Builder
		fmt.Fprintf(&b, "[%s %s", st.Timestamp.UTC().Format("15:04"), st.Status.Title())
		if note := strings.TrimSpace(st.Note); note != "" {
			fmt.Fprintf(&b, ": _%s_ ", note)
		}
		b.WriteString("]")
		parts[i] = b.String()
	}
	return strings.Join(parts, " *-* ")
}

func noticeFor(cmd Command) string {
	switch cmd {
	case CmdStart:
		return NoticeCheckedIn
	case CmdResume:
		return NoticeResumed
	case CmdPause:
		return NoticePaused
	default:
		return NoticeEnded
	}
}
