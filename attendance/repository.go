package attendance

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"time"

	"github.com/warp/timee/generic"
)

// =============================================================================
// REPOSITORY - time-log documents
// =============================================================================
// Tags: scope, kind:time-log, room:<id>, day:<DDMMYYYY>, year:<YYYY>,
// month:<M>, msg:<log message id>. One document per room and day.

const kindTimeLog = "time-log"

type Repository struct {
	store generic.DocumentStore
	scope string
}

func NewRepository(store generic.DocumentStore, scope string) *Repository {
	return &Repository{store: store, scope: scope}
}

func (r *Repository) tags(more ...generic.Tag) generic.Tags {
	return generic.Tags{
		generic.NewTag("scope", r.scope),
		generic.NewTag("kind", kindTimeLog),
	}.With(more...)
}

func roomTag(id generic.RoomID) generic.Tag { return generic.NewTag("room", string(id)) }
func dayTag(d time.Time) generic.Tag         { return generic.NewTag("day", generic.DayKey(d)) }

// SaveDay replaces the record of the same room and day.
func (r *Repository) SaveDay(ctx context.Context, d AttendanceDay) error {
	date := d.Date.UTC()
	key := r.tags(roomTag(d.Room), dayTag(d.Date))

	// The log message may have been re-sent; drop the record filed under
	// the old message tag first.
	if _, err := r.store.Remove(ctx, key); err != nil {
		return generic.Collaborator("store.remove time-log", err)
	}
	tags := key.With(
		generic.NewTag("year", strconv.Itoa(date.Year())),
		generic.NewTag("month", strconv.Itoa(int(date.Month()))),
		generic.NewTag("msg", string(d.LogMessageID)),
	)
	return generic.Collaborator("store.write time-log", generic.WriteJSON(ctx, r.store, tags, d, false))
}

// Day returns the record of room on day, or generic.ErrNotFound.
func (r *Repository) Day(ctx context.Context, room generic.RoomID, day time.Time) (AttendanceDay, error) {
	return r.one(ctx, r.tags(roomTag(room), dayTag(day)))
}

// DayByMessage returns the record rendered into msg.
func (r *Repository) DayByMessage(ctx context.Context, msg generic.MessageID) (AttendanceDay, error) {
	return r.one(ctx, r.tags(generic.NewTag("msg", string(msg))))
}

// Month returns the records of room in year/month, oldest day first.
func (r *Repository) Month(ctx context.Context, room generic.RoomID, year int, month time.Month) ([]AttendanceDay, error) {
	days, err := generic.ReadJSON[AttendanceDay](ctx, r.store, r.tags(
		roomTag(room),
		generic.NewTag("year", strconv.Itoa(year)),
		generic.NewTag("month", strconv.Itoa(int(month))),
	))
	if err != nil {
		return nil, generic.Collaborator("store.read time-log", err)
	}
	sort.SliceStable(days, func(i, j int) bool { return days[i].Date.Before(days[j].Date) })
	return days, nil
}

func (r *Repository) one(ctx context.Context, tags generic.Tags) (AttendanceDay, error) {
	d, err := generic.ReadOneJSON[AttendanceDay](ctx, r.store, tags)
	if errors.Is(err, generic.ErrNotFound) {
		return d, err
	}
	return d, generic.Collaborator("store.read time-log", err)
}
