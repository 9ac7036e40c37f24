package host

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/warp/timee/generic"
)

// =============================================================================
// MEMORY HOST - In-process implementation (for testing/dev)
// =============================================================================

// SentMessage is a message the bot posted, with its latest content.
type SentMessage struct {
	ID      generic.MessageID
	Room    generic.RoomID
	Message Message
	Edits   int
}

type Notification struct {
	User generic.UserID
	Room generic.RoomID
	Text string
}

type Upload struct {
	Room     generic.RoomID
	Filename string
	Content  []byte
	Text     string
}

type Memory struct {
	mu            sync.RWMutex
	users         map[generic.UserID]User
	rooms         map[generic.RoomID]Room
	members       map[generic.RoomID][]generic.UserID
	messages      map[generic.MessageID]*SentMessage
	order         []generic.MessageID
	notifications []Notification
	uploads       []Upload

	// FailSend makes every Send return this error.
	FailSend error
	// FailUpdate makes every Update return this error.
	FailUpdate error
}

func NewMemory() *Memory {
	return &Memory{
		users:    make(map[generic.UserID]User),
		rooms:    make(map[generic.RoomID]Room),
		members:  make(map[generic.RoomID][]generic.UserID),
		messages: make(map[generic.MessageID]*SentMessage),
	}
}

// AddUser registers u.
func (m *Memory) AddUser(u User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
}

// AddRoom registers a room and its members.
func (m *Memory) AddRoom(r Room, members ...generic.UserID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rooms[r.ID] = r
	m.members[r.ID] = append([]generic.UserID(nil), members...)
}

// Reset forgets every user, room and message.
func (m *Memory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users = make(map[generic.UserID]User)
	m.rooms = make(map[generic.RoomID]Room)
	m.members = make(map[generic.RoomID][]generic.UserID)
	m.messages = make(map[generic.MessageID]*SentMessage)
	m.order = nil
	m.notifications = nil
	m.uploads = nil
}

// DeleteMessage simulates a message removed by someone outside the bot.
func (m *Memory) DeleteMessage(id generic.MessageID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.messages, id)
}

// =============================================================================
// DIRECTORY
// =============================================================================

func (m *Memory) UserByID(_ context.Context, id generic.UserID) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, generic.ErrNotFound)
	}
	return &u, nil
}

func (m *Memory) UserByUsername(_ context.Context, username string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Username == username {
			u := u
			return &u, nil
		}
	}
	return nil, fmt.Errorf("user %s: %w", username, generic.ErrNotFound)
}

func (m *Memory) RoomByID(_ context.Context, id generic.RoomID) (*Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[id]
	if !ok {
		return nil, fmt.Errorf("room %s: %w", id, generic.ErrNotFound)
	}
	return &r, nil
}

func (m *Memory) RoomByName(_ context.Context, name string) (*Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.rooms {
		if strings.EqualFold(r.Name, name) {
			r := r
			return &r, nil
		}
	}
	return nil, fmt.Errorf("room %s: %w", name, generic.ErrNotFound)
}

func (m *Memory) Members(_ context.Context, room generic.RoomID) ([]User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids, ok := m.members[room]
	if !ok {
		return nil, fmt.Errorf("room %s: %w", room, generic.ErrNotFound)
	}
	out := make([]User, 0, len(ids))
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

// =============================================================================
// MESSENGER
// =============================================================================

func (m *Memory) Send(_ context.Context, room generic.RoomID, msg Message) (generic.MessageID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailSend != nil {
		return "", m.FailSend
	}
	id := generic.MessageID(uuid.NewString())
	m.messages[id] = &SentMessage{ID: id, Room: room, Message: msg}
	m.order = append(m.order, id)
	return id, nil
}

func (m *Memory) Update(_ context.Context, id generic.MessageID, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailUpdate != nil {
		return m.FailUpdate
	}
	sent, ok := m.messages[id]
	if !ok {
		return fmt.Errorf("message %s: %w", id, generic.ErrNotFound)
	}
	sent.Message = msg
	sent.Edits++
	return nil
}

func (m *Memory) Notify(_ context.Context, user generic.UserID, room generic.RoomID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications = append(m.notifications, Notification{User: user, Room: room, Text: text})
	return nil
}

func (m *Memory) MessageExists(_ context.Context, id generic.MessageID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.messages[id]
	return ok, nil
}

func (m *Memory) DirectRoom(_ context.Context, username string) (*Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := generic.RoomID("direct-" + username)
	r, ok := m.rooms[id]
	if !ok {
		r = Room{ID: id, Name: "@" + username}
		m.rooms[id] = r
	}
	return &r, nil
}

func (m *Memory) Upload(_ context.Context, room generic.RoomID, filename string, content []byte, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploads = append(m.uploads, Upload{
		Room:     room,
		Filename: filename,
		Content:  append([]byte(nil), content...),
		Text:     text,
	})
	return nil
}

// =============================================================================
// INSPECTION (tests)
// =============================================================================

// Message returns the current content of a sent message.
func (m *Memory) Message(id generic.MessageID) (SentMessage, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sent, ok := m.messages[id]
	if !ok {
		return SentMessage{}, false
	}
	return *sent, true
}

// Sent returns the messages posted to room, oldest first.
func (m *Memory) Sent(room generic.RoomID) []SentMessage {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []SentMessage
	for _, id := range m.order {
		if sent, ok := m.messages[id]; ok && sent.Room == room {
			out = append(out, *sent)
		}
	}
	return out
}

func (m *Memory) Notifications() []Notification {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Notification(nil), m.notifications...)
}

func (m *Memory) Uploads() []Upload {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Upload(nil), m.uploads...)
}

var _ Host = (*Memory)(nil)
