package attendance

import (
	"fmt"
	"time"

	"github.com/warp/timee/generic"
)

// =============================================================================
// COMMANDS
// =============================================================================

type Command string

const (
	CmdStart  Command = "start"
	CmdPause  Command = "pause"
	CmdResume Command = "resume"
	CmdEnd    Command = "end"
)

func ParseCommand(s string) (Command, bool) {
	switch c := Command(s); c {
	case CmdStart, CmdPause, CmdResume, CmdEnd:
		return c, true
	}
	return "", false
}

// Status is the state a successful command appends.
func (c Command) Status() Status {
	return Status(c)
}

// =============================================================================
// TRANSITIONS
// =============================================================================

// TransitionError rejects a command given the last status of the session.
// Last is empty when the member has no session yet.
type TransitionError struct {
	Command Command
	Last    Status
	Err     error
}

func (e *TransitionError) Error() string {
	if e.Last == "" {
		return fmt.Sprintf("cannot %s: no session yet: %v", e.Command, e.Err)
	}
	return fmt.Sprintf("cannot %s after %s: %v", e.Command, e.Last, e.Err)
}

func (e *TransitionError) Unwrap() error { return e.Err }

// CheckTransition validates cmd against the states recorded so far.
//
//	start   legal on an empty session, after PAUSE, or always with force
//	resume  legal after PAUSE or END
//	pause   legal after START or RESUME
//	end     legal after START or RESUME
func CheckTransition(states []StateEntry, cmd Command, force bool) error {
	var last Status
	if n := len(states); n > 0 {
		last = states[n-1].Status
	}
	reject := func(err error) error {
		return &TransitionError{Command: cmd, Last: last, Err: err}
	}

	switch cmd {
	case CmdStart:
		switch {
		case force, last == "", last == StatusPause:
			return nil
		case last.IsActive():
			return reject(generic.ErrAlreadyActive)
		default:
			return reject(generic.ErrSessionEnded)
		}
	case CmdResume:
		switch {
		case last == "":
			return reject(generic.ErrNotActive)
		case last.IsActive():
			return reject(generic.ErrAlreadyActive)
		}
		return nil
	case CmdPause, CmdEnd:
		if !last.IsActive() {
			return reject(generic.ErrNotActive)
		}
		return nil
	}
	return fmt.Errorf("%w: unknown command %q", generic.ErrInvalidInput, cmd)
}

// Apply validates cmd and appends its state. On error the session is left
// untouched.
func (m *MemberSession) Apply(cmd Command, at time.Time, note string, force bool) error {
	if err := CheckTransition(m.States, cmd, force); err != nil {
		return err
	}
	m.States = append(m.States, StateEntry{Status: cmd.Status(), Timestamp: at, Note: note})
	return nil
}

// =============================================================================
// ELAPSED TIME
// =============================================================================

// Elapsed sums every active phase closed by the following state. An open
// phase contributes nothing until it is closed.
func Elapsed(states []StateEntry) time.Duration {
	var total time.Duration
	for i := 1; i < len(states); i++ {
		prev, cur := states[i-1], states[i]
		if prev.Status.IsActive() && !cur.Status.IsActive() {
			total += cur.Timestamp.Sub(prev.Timestamp)
		}
	}
	return total
}
