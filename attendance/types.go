/*
Package attendance tracks daily work sessions in the check-in rooms.

PURPOSE:
  Members announce when they start, pause, resume and end their working
  day. Each room gets one AttendanceDay per calendar day, rendered into a
  single chat message that is edited in place after every command.

KEY CONCEPTS:
  - AttendanceDay: One room, one day, one log message
  - MemberSession: One member's append-only list of states within a day
  - StatusPointer: Cached {status, log message} per member, advisory only

LIFECYCLE:
  ┌─────────┐  pause  ┌─────────┐ resume  ┌─────────┐
  │  START  │────────▶│  PAUSE  │────────▶│ RESUME  │
  └────┬────┘         └─────────┘◀────────└────┬────┘
       │                              pause    │
       │ end          ┌─────────┐         end  │
       └─────────────▶│   END   │◀─────────────┘
                      └─────────┘
  END only leads back to START with "force" (or to RESUME).

SEE ALSO:
  - machine.go: Transition rules and elapsed-time aggregation
  - service.go: Command handling against the host and the store
  - export.go:  Monthly CSV and XLSX export
*/
package attendance

import (
	"fmt"
	"strings"
	"time"

	"github.com/warp/timee/generic"
)

// =============================================================================
// STATUS
// =============================================================================

type Status string

const (
	StatusStart  Status = "start"
	StatusPause  Status = "pause"
	StatusResume Status = "resume"
	StatusEnd    Status = "end"
)

// IsActive reports whether the member is working after this status.
func (s Status) IsActive() bool {
	return s == StatusStart || s == StatusResume
}

// Title is the capitalized status name used in rendered trails.
func (s Status) Title() string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(string(s[:1])) + string(s[1:])
}

// =============================================================================
// RECORDS
// =============================================================================

// StateEntry is one event in a session. Timestamp is already shifted to
// the member's wall clock.
type StateEntry struct {
	Status    Status    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Note      string    `json:"note,omitempty"`
}

type MemberSession struct {
	UserID    generic.UserID `json:"userId"`
	Username  string         `json:"username"`
	UTCOffset float64        `json:"utcOffset"`
	States    []StateEntry   `json:"states"`
}

// Last returns the latest state, or false for an empty session.
func (m *MemberSession) Last() (StateEntry, bool) {
	if len(m.States) == 0 {
		return StateEntry{}, false
	}
	return m.States[len(m.States)-1], true
}

// First returns the first state with status s.
func (m *MemberSession) First(s Status) (StateEntry, bool) {
	for _, st := range m.States {
		if st.Status == s {
			return st, true
		}
	}
	return StateEntry{}, false
}

// AttendanceDay is one room's record for one calendar day.
type AttendanceDay struct {
	ID           string            `json:"id"`
	Room         generic.RoomID    `json:"room"`
	RoomName     string            `json:"roomName"`
	Date         time.Time         `json:"date"`
	LogMessageID generic.MessageID `json:"logMessageId"`
	Members      []MemberSession   `json:"members"`
}

// DayID builds the record id "<room>_<DDMMYYYY>".
func DayID(roomName string, day time.Time) string {
	return fmt.Sprintf("%s_%s", roomName, generic.DayKey(day))
}

// Member returns the session of user, or nil.
func (d *AttendanceDay) Member(user generic.UserID) *MemberSession {
	for i := range d.Members {
		if d.Members[i].UserID == user {
			return &d.Members[i]
		}
	}
	return nil
}

// Clone deep-copies the record so cached values are never mutated.
func (d AttendanceDay) Clone() AttendanceDay {
	out := d
	out.Members = make([]MemberSession, len(d.Members))
	for i, m := range d.Members {
		m.States = append([]StateEntry(nil), m.States...)
		out.Members[i] = m
	}
	return out
}

// StatusPointer is the cached last status of a member and the log message
// of the record holding it.
type StatusPointer struct {
	Status    Status            `json:"status"`
	MessageID generic.MessageID `json:"messageId"`
}
