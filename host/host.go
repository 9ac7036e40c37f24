/*
Package host describes the chat application the bot runs inside.

PURPOSE:
  The bot owns none of the chat primitives. Users, rooms, membership and
  messages all live in the host; the bot only calls the interfaces below.

IMPLEMENTATIONS:
  - memory.go: In-process host for tests and local development
  - rest.go:   Rocket.Chat-style REST API client for production

FAILURES:
  Every host error is wrapped as a generic.CollaboratorError by the caller
  and surfaced, never retried.
*/
package host

import (
	"context"
	"regexp"
	"time"

	"github.com/warp/timee/generic"
)

// =============================================================================
// TYPES
// =============================================================================

type User struct {
	ID        generic.UserID `json:"id"`
	Username  string         `json:"username"`
	Name      string         `json:"name,omitempty"`
	UTCOffset float64        `json:"utcOffset"`
	CreatedAt time.Time      `json:"createdAt"`
	Enabled   bool           `json:"enabled"`
	Bot       bool           `json:"bot"`
	Roles     []string       `json:"roles,omitempty"`
}

var botName = regexp.MustCompile(`(?i)(rocket\.cat|app\.|\.bot|bot\.)`)

// IsActiveMember reports whether u counts as a human team member: enabled,
// not a bot (by type or by naming convention) and not a guest.
func (u User) IsActiveMember() bool {
	if !u.Enabled || u.Bot || botName.MatchString(u.Username) {
		return false
	}
	for _, r := range u.Roles {
		if r == "guest" {
			return false
		}
	}
	return true
}

type Room struct {
	ID   generic.RoomID `json:"id"`
	Name string         `json:"name"`
}

// Message is rendered markdown content plus an optional avatar override.
type Message struct {
	Text   string `json:"text"`
	Avatar string `json:"avatar,omitempty"`
}

// =============================================================================
// INTERFACES
// =============================================================================

// Directory looks up users and rooms.
type Directory interface {
	UserByID(ctx context.Context, id generic.UserID) (*User, error)
	UserByUsername(ctx context.Context, username string) (*User, error)
	RoomByID(ctx context.Context, id generic.RoomID) (*Room, error)
	RoomByName(ctx context.Context, name string) (*Room, error)
	Members(ctx context.Context, room generic.RoomID) ([]User, error)
}

// Messenger sends and edits chat output.
type Messenger interface {
	Send(ctx context.Context, room generic.RoomID, msg Message) (generic.MessageID, error)
	Update(ctx context.Context, id generic.MessageID, msg Message) error
	// Notify shows text to a single user in room (ephemeral).
	Notify(ctx context.Context, user generic.UserID, room generic.RoomID, text string) error
	MessageExists(ctx context.Context, id generic.MessageID) (bool, error)
	// DirectRoom returns the direct conversation between the bot and
	// username, creating it when needed.
	DirectRoom(ctx context.Context, username string) (*Room, error)
	Upload(ctx context.Context, room generic.RoomID, filename string, content []byte, text string) error
}

// Host is the full collaborator surface.
type Host interface {
	Directory
	Messenger
}
