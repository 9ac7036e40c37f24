/*
service.go - Check-in commands and monthly export

COMMAND FLOW:
  1. The invoking room must be a configured check-in room
  2. Locate the record:
       start           today's record of the invoking room
       pause/resume/end the record behind the member's status pointer,
                       else today's record of the invoking room
  3. Lock the record, re-read it from the store, validate the transition
  4. Append the state (timestamp on the member's wall clock)
  5. Persist, refresh the status pointer, re-render the log message
  6. Notify the member

The status pointer only says where to look. The persisted record decides
whether a transition is legal. A pointer to a deleted log message means
the record is gone for the member: the pointer is dropped and the command
fails with generic.ErrNoTimelog.

CACHES:
  - Status pointers: 12h (StatusCache, in process or Redis)
  - Today's records: 30 min, read paths only
*/
package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/warp/timee/config"
	"github.com/warp/timee/generic"
	"github.com/warp/timee/host"
	"github.com/warp/timee/timeoff"
	"go.uber.org/zap"
)

// DayTTL bounds how long a rendered record is served from memory.
const DayTTL = 30 * time.Minute

// OffLogSource lists confirmed requests for the export's Off columns.
// *timeoff.Repository implements it.
type OffLogSource interface {
	EntriesStartingIn(ctx context.Context, year, month int) ([]timeoff.OffLogEntry, error)
}

type Service struct {
	repo   *Repository
	offs   OffLogSource
	host   host.Host
	org    timeoff.OrgSource
	status StatusCache
	days   *generic.TTLCache[string, AttendanceDay]
	locks  *generic.KeyedMutex
	log    *zap.Logger
	now    func() time.Time
}

// NewService wires the service. A nil status cache keeps pointers in
// process; a nil clock defaults to time.Now.
func NewService(repo *Repository, offs OffLogSource, h host.Host, org timeoff.OrgSource, status StatusCache, log *zap.Logger, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	if status == nil {
		status = NewMemoryStatusCache(now)
	}
	return &Service{
		repo:   repo,
		offs:   offs,
		host:   h,
		org:    org,
		status: status,
		days:   generic.NewTTLCache[string, AttendanceDay](DayTTL, now),
		locks:  generic.NewKeyedMutex(),
		log:    log.Named("attendance"),
		now:    now,
	}
}

func (s *Service) observe(op string, err *error, fields ...zap.Field) {
	if *err != nil && errors.Is(*err, generic.ErrCollaborator) {
		s.log.Error(op+" failed", append(fields, zap.Error(*err))...)
	}
}

// =============================================================================
// COMMANDS
// =============================================================================

func (s *Service) Start(ctx context.Context, user generic.UserID, room generic.RoomID, note string, force bool) (AttendanceDay, error) {
	return s.Handle(ctx, user, room, CmdStart, note, force)
}

func (s *Service) Pause(ctx context.Context, user generic.UserID, room generic.RoomID, note string) (AttendanceDay, error) {
	return s.Handle(ctx, user, room, CmdPause, note, false)
}

func (s *Service) Resume(ctx context.Context, user generic.UserID, room generic.RoomID, note string) (AttendanceDay, error) {
	return s.Handle(ctx, user, room, CmdResume, note, false)
}

func (s *Service) End(ctx context.Context, user generic.UserID, room generic.RoomID, note string) (AttendanceDay, error) {
	return s.Handle(ctx, user, room, CmdEnd, note, false)
}

// target identifies one record.
type target struct {
	room     generic.RoomID
	roomName string
	date     time.Time
}

// Handle runs one check-in command. An illegal transition returns a
// *TransitionError and changes nothing.
func (s *Service) Handle(ctx context.Context, userID generic.UserID, roomID generic.RoomID, cmd Command, note string, force bool) (d AttendanceDay, err error) {
	defer s.observe("checkin "+string(cmd), &err, zap.String("user_id", string(userID)), zap.String("room", string(roomID)))

	org, now := s.org.Get(), s.now()
	room, err := s.checkinRoom(ctx, org, roomID)
	if err != nil {
		return d, err
	}
	user, err := s.user(ctx, userID)
	if err != nil {
		return d, err
	}

	tgt, err := s.locate(ctx, org, room, user.ID, cmd, now)
	if err != nil {
		return d, err
	}

	unlock := s.locks.Lock(DayID(tgt.roomName, tgt.date))
	defer unlock()

	d, err = s.repo.Day(ctx, tgt.room, tgt.date)
	switch {
	case errors.Is(err, generic.ErrNotFound) && cmd == CmdStart:
		d = AttendanceDay{ID: DayID(tgt.roomName, tgt.date), Room: tgt.room, RoomName: tgt.roomName, Date: tgt.date}
	case errors.Is(err, generic.ErrNotFound):
		return d, &TransitionError{Command: cmd, Err: generic.ErrNotActive}
	case err != nil:
		return d, err
	}

	member := d.Member(user.ID)
	if member == nil {
		if cmd != CmdStart {
			return d, &TransitionError{Command: cmd, Err: generic.ErrNotActive}
		}
		d.Members = append(d.Members, MemberSession{UserID: user.ID, Username: user.Username, UTCOffset: user.UTCOffset})
		member = &d.Members[len(d.Members)-1]
	}

	at := generic.ShiftOffset(now, user.UTCOffset, org.DefaultTimezone)
	if err := member.Apply(cmd, at, note, force); err != nil {
		return d, err
	}

	if err := s.publish(ctx, &d); err != nil {
		return d, err
	}

	if err := s.status.Set(ctx, user.ID, StatusPointer{Status: cmd.Status(), MessageID: d.LogMessageID}); err != nil {
		s.log.Warn("status pointer not saved", zap.String("user_id", string(user.ID)), zap.Error(err))
	}
	s.days.Set(d.ID, d.Clone())

	if err := s.host.Notify(ctx, user.ID, room.ID, noticeFor(cmd)); err != nil {
		return d, generic.Collaborator("host.notify", err)
	}
	return d, nil
}

// locate picks the record a command applies to.
func (s *Service) locate(ctx context.Context, org *config.OrgConfig, room *host.Room, user generic.UserID, cmd Command, now time.Time) (target, error) {
	today := target{room: room.ID, roomName: room.Name, date: timeoff.LocalToday(org, now)}
	if cmd == CmdStart {
		return today, nil
	}

	p, ok, err := s.status.Get(ctx, user)
	if err != nil {
		s.log.Warn("status pointer unreadable", zap.String("user_id", string(user)), zap.Error(err))
	}
	if err != nil || !ok || p.MessageID == "" {
		return s.openSession(ctx, today, user)
	}

	exists, err := s.host.MessageExists(ctx, p.MessageID)
	if err != nil {
		return target{}, generic.Collaborator("host.message", err)
	}
	if !exists {
		if err := s.status.Delete(ctx, user); err != nil {
			s.log.Warn("status pointer not dropped", zap.String("user_id", string(user)), zap.Error(err))
		}
		return target{}, generic.ErrNoTimelog
	}

	d, err := s.repo.DayByMessage(ctx, p.MessageID)
	if errors.Is(err, generic.ErrNotFound) {
		return target{}, generic.ErrNoTimelog
	}
	if err != nil {
		return target{}, err
	}
	return target{room: d.Room, roomName: d.RoomName, date: d.Date}, nil
}

// openSession resolves a command without a status pointer from the store:
// today's record when the member is on it, else the previous day's record
// while the member's session there is still open.
func (s *Service) openSession(ctx context.Context, today target, user generic.UserID) (target, error) {
	d, err := s.repo.Day(ctx, today.room, today.date)
	switch {
	case err == nil && d.Member(user) != nil:
		return today, nil
	case err != nil && !errors.Is(err, generic.ErrNotFound):
		return target{}, err
	}

	prev := today
	prev.date = today.date.AddDate(0, 0, -1)
	d, err = s.repo.Day(ctx, prev.room, prev.date)
	if errors.Is(err, generic.ErrNotFound) {
		return today, nil
	}
	if err != nil {
		return target{}, err
	}
	if m := d.Member(user); m != nil {
		if last, ok := m.Last(); ok && last.Status != StatusEnd {
			return prev, nil
		}
	}
	return today, nil
}

// publish persists d and renders it into its log message, sending a new
// one when the record has none or the old one was deleted.
func (s *Service) publish(ctx context.Context, d *AttendanceDay) error {
	msg := host.Message{Text: RenderDay(*d)}

	fresh := d.LogMessageID == ""
	if !fresh {
		exists, err := s.host.MessageExists(ctx, d.LogMessageID)
		if err != nil {
			return generic.Collaborator("host.message", err)
		}
		fresh = !exists
	}

	if fresh {
		id, err := s.host.Send(ctx, d.Room, msg)
		if err != nil {
			return generic.Collaborator("host.send", err)
		}
		d.LogMessageID = id
		return s.repo.SaveDay(ctx, *d)
	}

	if err := s.repo.SaveDay(ctx, *d); err != nil {
		return err
	}
	return generic.Collaborator("host.update", s.host.Update(ctx, d.LogMessageID, msg))
}

// Today returns today's record of room. Read-only callers only.
func (s *Service) Today(ctx context.Context, roomID generic.RoomID) (d AttendanceDay, err error) {
	defer s.observe("today", &err, zap.String("room", string(roomID)))

	org := s.org.Get()
	room, err := s.checkinRoom(ctx, org, roomID)
	if err != nil {
		return d, err
	}
	today := timeoff.LocalToday(org, s.now())
	id := DayID(room.Name, today)
	if cached, ok := s.days.Get(id); ok {
		return cached.Clone(), nil
	}

	d, err = s.repo.Day(ctx, room.ID, today)
	if err != nil {
		return d, err
	}
	s.days.Set(id, d.Clone())
	return d, nil
}

// FlushCache forgets every cached record, e.g. after the store was reset.
func (s *Service) FlushCache() {
	s.days.Clear()
}

// =============================================================================
// EXPORT
// =============================================================================

// Export renders the month's CSV and uploads it to the member's direct
// conversation with the bot.
func (s *Service) Export(ctx context.Context, userID generic.UserID, roomID generic.RoomID, month string) (f ExportFile, err error) {
	defer s.observe("export", &err, zap.String("user_id", string(userID)), zap.String("room", string(roomID)))

	user, err := s.user(ctx, userID)
	if err != nil {
		return f, err
	}
	f, start, err := s.render(ctx, roomID, month, FormatCSV)
	if err != nil {
		return f, err
	}

	dm, err := s.host.DirectRoom(ctx, user.Username)
	if err != nil {
		return f, generic.Collaborator("host.direct", err)
	}
	text := fmt.Sprintf("CSV time log %02d/%d. Download above.", int(start.Month()), start.Year())
	if err := s.host.Upload(ctx, dm.ID, f.Filename, f.Content, text); err != nil {
		return f, generic.Collaborator("host.upload", err)
	}
	return f, nil
}

// ExportFile renders the month's export without uploading it.
func (s *Service) ExportFile(ctx context.Context, roomID generic.RoomID, month string, format Format) (f ExportFile, err error) {
	defer s.observe("export", &err, zap.String("room", string(roomID)))
	f, _, err = s.render(ctx, roomID, month, format)
	return f, err
}

func (s *Service) render(ctx context.Context, roomID generic.RoomID, month string, format Format) (ExportFile, time.Time, error) {
	org := s.org.Get()
	room, err := s.checkinRoom(ctx, org, roomID)
	if err != nil {
		return ExportFile{}, time.Time{}, err
	}
	period, err := timeoff.ParseMonth(month, timeoff.LocalToday(org, s.now()))
	if err != nil {
		return ExportFile{}, time.Time{}, err
	}
	start := period.Start

	days, err := s.repo.Month(ctx, room.ID, start.Year(), start.Month())
	if err != nil {
		return ExportFile{}, start, err
	}
	if len(days) == 0 {
		return ExportFile{}, start, generic.ErrNoTimelog
	}

	offs, err := s.offs.EntriesStartingIn(ctx, start.Year(), int(start.Month()))
	if err != nil {
		return ExportFile{}, start, err
	}

	f, err := Render(start, BuildRows(days, offs), format)
	return f, start, err
}

// =============================================================================
// HOST LOOKUPS
// =============================================================================

func (s *Service) user(ctx context.Context, id generic.UserID) (*host.User, error) {
	u, err := s.host.UserByID(ctx, id)
	if err != nil && !errors.Is(err, generic.ErrNotFound) {
		return nil, generic.Collaborator("host.user", err)
	}
	return u, err
}

// checkinRoom resolves roomID and rejects rooms that are not check-in rooms.
func (s *Service) checkinRoom(ctx context.Context, org *config.OrgConfig, roomID generic.RoomID) (*host.Room, error) {
	room, err := s.host.RoomByID(ctx, roomID)
	if errors.Is(err, generic.ErrNotFound) {
		return nil, generic.ErrWrongRoom
	}
	if err != nil {
		return nil, generic.Collaborator("host.room", err)
	}
	if !org.IsCheckinRoom(room.Name) {
		return nil, generic.ErrWrongRoom
	}
	return room, nil
}
