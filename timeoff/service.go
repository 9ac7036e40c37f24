/*
service.go - Request lifecycle, digest and admin boards

REQUEST FLOW:
  ┌──────────────────────────────────────────────────────────────────┐
  │                                                                  │
  │  Submit ──▶ validate ──▶ remaining ──▶ warnings ──▶ Pending      │
  │                                                   Confirmation   │
  │                                                        │         │
  │  Confirm (token or payload) ◀──────────────────────────┘         │
  │     │                                                            │
  │     ├──▶ log message in the time-off room                        │
  │     ├──▶ OffLogEntry (id user_msg)                               │
  │     └──▶ schedule ledger, one entry per business day             │
  │                                                                  │
  │  Cancel ──▶ author? pending? ──▶ strike message, drop schedule   │
  │                                  entries, remove entry, notify   │
  │                                                                  │
  └──────────────────────────────────────────────────────────────────┘

Confirm trusts the PendingConfirmation. Warnings are never recomputed, so
the persisted warnings are the ones the user saw.

CONCURRENCY:
  The schedule ledger is one document. Confirm, Cancel and RunDailyDigest
  hold the "schedule" key of a KeyedMutex around their read-modify-write.
  Adjustments are serialized per user. Nothing here protects against a
  second process writing the same store.

ERRORS:
  Validation errors come back as *ValidationError. Conflicts use the
  generic sentinels. Host and store failures are logged here and returned
  wrapped in generic.CollaboratorError.
*/
package timeoff

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/timee/config"
	"github.com/warp/timee/generic"
	"github.com/warp/timee/host"
	"go.uber.org/zap"
)

// MembersTTL bounds how long a room's member list is reused.
const MembersTTL = 15 * time.Minute

const scheduleLock = "schedule"

// OrgSource hands out the current settings snapshot. *config.Holder
// implements it.
type OrgSource interface {
	Get() *config.OrgConfig
}

type Service struct {
	repo    *Repository
	host    host.Host
	org     OrgSource
	log     *zap.Logger
	now     func() time.Time
	locks   *generic.KeyedMutex
	pending *ConfirmationStore
	members *generic.TTLCache[generic.RoomID, []host.User]
}

// NewService wires the service. A nil clock defaults to time.Now.
func NewService(repo *Repository, h host.Host, org OrgSource, log *zap.Logger, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:    repo,
		host:    h,
		org:     org,
		log:     log.Named("timeoff"),
		now:     now,
		locks:   generic.NewKeyedMutex(),
		pending: NewConfirmationStore(now),
		members: generic.NewTTLCache[generic.RoomID, []host.User](MembersTTL, now),
	}
}

// Settings returns the current org settings snapshot.
func (s *Service) Settings() *config.OrgConfig { return s.org.Get() }

// FlushCache forgets cached room members, e.g. after the directory changed.
func (s *Service) FlushCache() {
	s.members.Clear()
}

// observe logs collaborator failures; validation and conflicts stay quiet.
func (s *Service) observe(op string, err *error, fields ...zap.Field) {
	if *err != nil && errors.Is(*err, generic.ErrCollaborator) {
		s.log.Error(op+" failed", append(fields, zap.Error(*err))...)
	}
}

// LocalToday is the org's current calendar day.
func LocalToday(org *config.OrgConfig, now time.Time) time.Time {
	return generic.StartOfDay(generic.ShiftOffset(now, org.TimezoneOffset, 0))
}

// CurrentYear is the quota year on the org's clock.
func (s *Service) CurrentYear() int {
	return LocalToday(s.org.Get(), s.now()).Year()
}

// =============================================================================
// SUBMIT / CONFIRM / CANCEL
// =============================================================================

// Submit validates a form and prepares what the user confirms. Nothing is
// persisted yet.
func (s *Service) Submit(ctx context.Context, userID generic.UserID, t RequestType, raw RawForm) (p PendingConfirmation, err error) {
	defer s.observe("submit", &err, zap.String("user_id", string(userID)), zap.String("type", string(t)))

	org, now := s.org.Get(), s.now()
	user, err := s.user(ctx, userID)
	if err != nil {
		return p, err
	}
	form, err := ValidateForm(t, raw, now, org.TimezoneOffset)
	if err != nil {
		return p, err
	}
	windows, err := WindowsFrom(org)
	if err != nil {
		return p, fmt.Errorf("%w: %w", generic.ErrInvalidConfig, err)
	}
	remaining, err := s.remaining(ctx, org, user, LocalToday(org, now).Year(), now)
	if err != nil {
		return p, err
	}

	md := BuildMessageData(form.StartDate, form.Period, t, form.Duration)
	p = PendingConfirmation{
		UserID:   user.ID,
		Username: user.Username,
		Type:     t,
		Form:     form,
		Message:  md,
		Warnings: EvaluateWarnings(WarningInput{
			Type:      t,
			Form:      form,
			Remaining: remaining,
			Windows:   windows,
			Notice:    NoticeFrom(org),
			Now:       now,
		}),
		RemainingAfter: RemainingAfter(remaining, t, form.Duration),
		CreatedAt:      now,
	}
	return s.pending.Put(p), nil
}

// Confirm confirms a request submitted earlier on this server.
func (s *Service) Confirm(ctx context.Context, userID generic.UserID, token string) (OffLogEntry, error) {
	p, err := s.pending.Take(token)
	if err != nil {
		return OffLogEntry{}, err
	}
	return s.confirm(ctx, userID, p)
}

// Payload seals p for clients that confirm without keeping the token.
func (s *Service) Payload(p PendingConfirmation) (string, error) {
	return s.pending.Seal(p)
}

// ConfirmPayload confirms a request round-tripped through the client as a
// sealed PendingConfirmation. Only the author spends it.
func (s *Service) ConfirmPayload(ctx context.Context, userID generic.UserID, payload string) (OffLogEntry, error) {
	p, err := s.pending.Open(payload)
	if err != nil {
		return OffLogEntry{}, err
	}
	if p.UserID != userID {
		return OffLogEntry{}, generic.ErrNotAuthor
	}
	if err := s.pending.Spend(p); err != nil {
		return OffLogEntry{}, err
	}
	return s.confirm(ctx, userID, p)
}

func (s *Service) confirm(ctx context.Context, userID generic.UserID, p PendingConfirmation) (e OffLogEntry, err error) {
	defer s.observe("confirm", &err, zap.String("user_id", string(userID)), zap.String("type", string(p.Type)))

	if p.UserID != userID {
		return e, generic.ErrNotAuthor
	}
	org := s.org.Get()
	room, err := s.timeoffRoom(ctx, org)
	if err != nil {
		return e, err
	}

	text := RenderLogMessage(LogView{
		Username: p.Username,
		Type:     p.Type,
		Message:  p.Message,
		Reason:   p.Form.Reason,
		Warnings: p.Warnings,
	})
	msgID, err := s.host.Send(ctx, room.ID, host.Message{Text: text})
	if err != nil {
		return e, generic.Collaborator("host.send", err)
	}

	e = OffLogEntry{
		ID:        EntryID(p.UserID, msgID),
		UserID:    p.UserID,
		MessageID: msgID,
		Type:      p.Type,
		CreatedAt: s.now(),
		Approved:  true,
		StartDate: p.Form.StartDate,
		Period:    p.Form.Period,
		Duration:  p.Form.Duration,
		Reason:    p.Form.Reason,
		Warnings:  p.Warnings,
	}
	if err := s.repo.SaveEntry(ctx, e); err != nil {
		return e, err
	}

	err = s.updateSchedule(ctx, func(sch *Schedule) {
		for _, d := range ExpandToScheduleEntries(e.StartDate, e.Period, e.Type, e.Duration, p.Message.EndLabel) {
			sch.InsertOrMergeDay(d.Date, ScheduleEntry{
				MessageID: msgID,
				UserID:    e.UserID,
				Username:  p.Username,
				Type:      e.Type,
				Period:    d.Period,
				Duration:  e.Duration,
			})
		}
	})
	if err != nil {
		return e, err
	}

	s.log.Info("request confirmed",
		zap.String("user_id", string(e.UserID)),
		zap.String("message_id", string(msgID)),
		zap.String("type", string(e.Type)),
		zap.Int("warnings", len(e.Warnings)))
	return e, nil
}

// Cancel undoes a request. Only its author can, and only while it is
// pending.
func (s *Service) Cancel(ctx context.Context, userID generic.UserID, msgID generic.MessageID) (err error) {
	defer s.observe("cancel", &err, zap.String("user_id", string(userID)), zap.String("message_id", string(msgID)))

	e, err := s.repo.EntryByMessage(ctx, msgID)
	if errors.Is(err, generic.ErrNotFound) {
		return generic.ErrAlreadyCancelled
	}
	if err != nil {
		return err
	}
	if e.UserID != userID {
		return generic.ErrNotAuthor
	}

	org := s.org.Get()
	windows, err := WindowsFrom(org)
	if err != nil {
		return fmt.Errorf("%w: %w", generic.ErrInvalidConfig, err)
	}
	if !IsPending(windows, e, s.now()) {
		return generic.ErrNotPending
	}

	user, err := s.user(ctx, userID)
	if err != nil {
		return err
	}
	// The entry goes last: while it exists a failed cancel can be retried.
	text := RenderLogMessage(LogView{
		Username:  user.Username,
		Type:      e.Type,
		Message:   BuildMessageData(e.StartDate, e.Period, e.Type, e.Duration),
		Reason:    e.Reason,
		Warnings:  e.Warnings,
		Cancelled: true,
	})
	if err := s.host.Update(ctx, msgID, host.Message{Text: text}); err != nil {
		return generic.Collaborator("host.update", err)
	}

	if err := s.updateSchedule(ctx, func(sch *Schedule) { sch.RemoveMessage(msgID) }); err != nil {
		return err
	}
	if _, err := s.repo.RemoveEntry(ctx, msgID); err != nil {
		return err
	}

	room, err := s.timeoffRoom(ctx, org)
	if err != nil {
		return err
	}
	if err := s.host.Notify(ctx, userID, room.ID, "Request cancelled."); err != nil {
		return generic.Collaborator("host.notify", err)
	}
	return nil
}

func (s *Service) updateSchedule(ctx context.Context, mutate func(*Schedule)) error {
	unlock := s.locks.Lock(scheduleLock)
	defer unlock()

	sch, err := s.repo.Schedule(ctx)
	if err != nil {
		return err
	}
	mutate(&sch)
	return s.repo.SaveSchedule(ctx, sch)
}

// =============================================================================
// QUOTA
// =============================================================================

// Remaining returns the user's balance for year.
func (s *Service) Remaining(ctx context.Context, userID generic.UserID, year int) (r Remaining, err error) {
	defer s.observe("remaining", &err, zap.String("user_id", string(userID)))

	user, err := s.user(ctx, userID)
	if err != nil {
		return r, err
	}
	return s.remaining(ctx, s.org.Get(), user, year, s.now())
}

func (s *Service) remaining(ctx context.Context, org *config.OrgConfig, user *host.User, year int, now time.Time) (Remaining, error) {
	adj, err := s.repo.Adjustment(ctx, user.ID, year)
	if err != nil {
		return Remaining{}, err
	}
	entries, err := s.repo.EntriesByUser(ctx, user.ID)
	if err != nil {
		return Remaining{}, err
	}
	return ComputeRemaining(QuotaInput{
		UserID:            user.ID,
		Year:              year,
		Now:               now,
		TimezoneOffset:    org.TimezoneOffset,
		AccountCreatedAt:  user.CreatedAt,
		MonthlyAccrualOff: decimal.NewFromFloat(org.MonthlyAccrualOff),
		MonthlyAccrualWFH: decimal.NewFromFloat(org.MonthlyAccrualWFH),
		MonthlyLateLimit:  decimal.NewFromFloat(org.MonthlyLateLimit),
		Adjustment:        adj,
		Entries:           entries,
	}), nil
}

// =============================================================================
// SCHEDULE & DIGEST
// =============================================================================

// Today returns today's digest without publishing it.
func (s *Service) Today(ctx context.Context) (d Digest, err error) {
	defer s.observe("today", &err)

	sch, err := s.repo.Schedule(ctx)
	if err != nil {
		return d, err
	}
	today := LocalToday(s.org.Get(), s.now())
	day, ok := sch.ExtractToday(today)
	if !ok {
		return Digest{Date: generic.DateToString(today)}, nil
	}
	return ComposeDigest(day), nil
}

// RunDailyDigest publishes today's digest to the time-off room and prunes
// every day before today from the ledger.
func (s *Service) RunDailyDigest(ctx context.Context) (d Digest, err error) {
	defer s.observe("daily digest", &err)

	org := s.org.Get()
	today := LocalToday(org, s.now())
	d = Digest{Date: generic.DateToString(today)}

	unlock := s.locks.Lock(scheduleLock)
	defer unlock()

	sch, err := s.repo.Schedule(ctx)
	if err != nil {
		return d, err
	}
	if day, ok := sch.ExtractToday(today); ok {
		d = ComposeDigest(day)
	}

	if !d.IsEmpty() {
		room, err := s.timeoffRoom(ctx, org)
		if err != nil {
			return d, err
		}
		if _, err := s.host.Send(ctx, room.ID, host.Message{Text: RenderDigest(d)}); err != nil {
			return d, generic.Collaborator("host.send", err)
		}
	}

	if pruned := sch.PruneBefore(today); pruned > 0 {
		if err := s.repo.SaveSchedule(ctx, sch); err != nil {
			return d, err
		}
		s.log.Info("schedule pruned", zap.Int("days", pruned))
	}
	return d, nil
}

// =============================================================================
// ADMIN
// =============================================================================

// AdjustQuota adds count to username's bucket of t for the current year.
// Repeated adjustments accumulate.
func (s *Service) AdjustQuota(ctx context.Context, adminID generic.UserID, username string, t RequestType, count int) (a MemberQuotaAdjustment, err error) {
	defer s.observe("adjust quota", &err, zap.String("user_id", string(adminID)), zap.String("target", username))

	if _, err := s.requireAdmin(ctx, adminID); err != nil {
		return a, err
	}
	if !t.Valid() {
		return a, fmt.Errorf("%w: unknown request type %q", generic.ErrInvalidInput, t)
	}
	target, err := s.userByName(ctx, username)
	if err != nil {
		return a, err
	}

	year := s.CurrentYear()
	unlock := s.locks.Lock("extra:" + string(target.ID))
	defer unlock()

	cur, err := s.repo.Adjustment(ctx, target.ID, year)
	if err != nil {
		return a, err
	}
	a = MemberQuotaAdjustment{UserID: target.ID, Year: year}
	if cur != nil {
		a = *cur
	}
	a.Add(t, count)
	if err := s.repo.SaveAdjustment(ctx, a); err != nil {
		return a, err
	}
	return a, nil
}

// Stats returns the remaining quota of every active time-off room member.
func (s *Service) Stats(ctx context.Context, adminID generic.UserID, year int) (rows []StatsRow, err error) {
	defer s.observe("stats", &err, zap.String("user_id", string(adminID)))

	if _, err := s.requireAdmin(ctx, adminID); err != nil {
		return nil, err
	}
	org, now := s.org.Get(), s.now()
	members, err := s.activeMembers(ctx, org)
	if err != nil {
		return nil, err
	}
	for i := range members {
		r, err := s.remaining(ctx, org, &members[i], year, now)
		if err != nil {
			return nil, err
		}
		rows = append(rows, StatsRow{UserID: members[i].ID, Username: members[i].Username, Remaining: r})
	}
	return rows, nil
}

// ExtraStats returns this year's adjustments of active members.
func (s *Service) ExtraStats(ctx context.Context, adminID generic.UserID) (year int, rows []ExtraRow, err error) {
	defer s.observe("extra stats", &err, zap.String("user_id", string(adminID)))

	if _, err := s.requireAdmin(ctx, adminID); err != nil {
		return 0, nil, err
	}
	year = s.CurrentYear()
	members, err := s.activeMembers(ctx, s.org.Get())
	if err != nil {
		return year, nil, err
	}
	adjs, err := s.repo.Adjustments(ctx, year)
	if err != nil {
		return year, nil, err
	}
	byUser := make(map[generic.UserID]MemberQuotaAdjustment, len(adjs))
	for _, a := range adjs {
		byUser[a.UserID] = a
	}
	for _, m := range members {
		if a, ok := byUser[m.ID]; ok {
			rows = append(rows, ExtraRow{UserID: m.ID, Username: m.Username, Adjustment: a})
		}
	}
	return year, rows, nil
}

// MemberLogs is one member's history for the current year.
type MemberLogs struct {
	Username  string        `json:"username"`
	Remaining Remaining     `json:"remaining"`
	Entries   []OffLogEntry `json:"entries"`
}

func (s *Service) MemberLogs(ctx context.Context, adminID generic.UserID, username string) (ml MemberLogs, err error) {
	defer s.observe("member logs", &err, zap.String("user_id", string(adminID)), zap.String("target", username))

	if _, err := s.requireAdmin(ctx, adminID); err != nil {
		return ml, err
	}
	target, err := s.userByName(ctx, username)
	if err != nil {
		return ml, err
	}
	org, now := s.org.Get(), s.now()
	year := LocalToday(org, now).Year()

	entries, err := s.repo.EntriesByUser(ctx, target.ID)
	if err != nil {
		return ml, err
	}
	ml = MemberLogs{Username: target.Username}
	for _, e := range entries {
		if e.StartDate.UTC().Year() == year {
			ml.Entries = append(ml.Entries, e)
		}
	}
	ml.Remaining, err = s.remaining(ctx, org, target, year, now)
	return ml, err
}

// TickBoard sums the requests starting in month ("MM/YYYY", empty for the
// current month) per active member.
func (s *Service) TickBoard(ctx context.Context, month string) (label string, rows []TickRow, err error) {
	defer s.observe("tick board", &err)

	window, err := ParseMonth(month, LocalToday(s.org.Get(), s.now()))
	if err != nil {
		return "", nil, err
	}
	start := window.Start.UTC()
	label = fmt.Sprintf("%02d/%d", int(start.Month()), start.Year())

	members, err := s.activeMembers(ctx, s.org.Get())
	if err != nil {
		return label, nil, err
	}
	names := make(map[generic.UserID]string, len(members))
	for _, m := range members {
		names[m.ID] = m.Username
	}
	entries, err := s.repo.EntriesStartingIn(ctx, start.Year(), int(start.Month()))
	if err != nil {
		return label, nil, err
	}
	return label, BuildTickBoard(entries, window, names), nil
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

func (s *Service) userByName(ctx context.Context, username string) (*host.User, error) {
	u, err := s.host.UserByUsername(ctx, username)
	if err != nil && !errors.Is(err, generic.ErrNotFound) {
		return nil, generic.Collaborator("host.user", err)
	}
	return u, err
}

func (s *Service) requireAdmin(ctx context.Context, id generic.UserID) (*host.User, error) {
	u, err := s.user(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.org.Get().IsAdmin(u.Username) {
		return nil, generic.ErrForbidden
	}
	return u, nil
}

func (s *Service) timeoffRoom(ctx context.Context, org *config.OrgConfig) (*host.Room, error) {
	room, err := s.host.RoomByName(ctx, org.TimeoffRoom)
	if err != nil {
		return nil, generic.Collaborator("host.room", err)
	}
	return room, nil
}

// activeMembers lists the enabled human members of the time-off room,
// sorted by username.
func (s *Service) activeMembers(ctx context.Context, org *config.OrgConfig) ([]host.User, error) {
	room, err := s.timeoffRoom(ctx, org)
	if err != nil {
		return nil, err
	}
	if cached, ok := s.members.Get(room.ID); ok {
		return cached, nil
	}

	all, err := s.host.Members(ctx, room.ID)
	if err != nil {
		return nil, generic.Collaborator("host.members", err)
	}
	out := make([]host.User, 0, len(all))
	for _, u := range all {
		if u.IsActiveMember() {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return lessUsername(out[i].Username, out[j].Username) })
	s.members.Set(room.ID, out)
	return out, nil
}
