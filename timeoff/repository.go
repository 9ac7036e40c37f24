/*
repository.go - Typed access to time-off documents

PURPOSE:
  Maps the three kinds of time-off records onto the host's tagged document
  store. Every document carries the installation scope tag so several
  installations can share one store.

DOCUMENTS AND TAGS:
  off-log        scope, kind, user:<id>, msg:<id>, year:<YYYY>, month:<M>
                 (year/month of the entry's start date)
  member-extra   scope, kind, user:<id>, year:<YYYY>
  schedule       scope, kind (one document for the whole ledger)

ERRORS:
  Store failures are wrapped as generic.CollaboratorError. A missing
  document is generic.ErrNotFound, except for the schedule and adjustments,
  which start out empty.
*/
package timeoff

import (
	"context"
	"errors"
	"sort"
	"strconv"

	"github.com/warp/timee/generic"
)

const (
	kindOffLog      = "off-log"
	kindMemberExtra = "member-extra"
	kindSchedule    = "schedule"
)

type Repository struct {
	store generic.DocumentStore
	scope string
}

func NewRepository(store generic.DocumentStore, scope string) *Repository {
	return &Repository{store: store, scope: scope}
}

func (r *Repository) tags(kind string, more ...generic.Tag) generic.Tags {
	return generic.Tags{
		generic.NewTag("scope", r.scope),
		generic.NewTag("kind", kind),
	}.With(more...)
}

func userTag(id generic.UserID) generic.Tag { return generic.NewTag("user", string(id)) }
func msgTag(id generic.MessageID) generic.Tag { return generic.NewTag("msg", string(id)) }
func yearTag(year int) generic.Tag { return generic.NewTag("year", strconv.Itoa(year)) }

// =============================================================================
// OFF-LOG ENTRIES
// =============================================================================

func (r *Repository) SaveEntry(ctx context.Context, e OffLogEntry) error {
	start := e.StartDate.UTC()
	tags := r.tags(kindOffLog,
		userTag(e.UserID),
		msgTag(e.MessageID),
		yearTag(start.Year()),
		generic.NewTag("month", strconv.Itoa(int(start.Month()))),
	)
	return generic.Collaborator("store.write off-log", generic.WriteJSON(ctx, r.store, tags, e, true))
}

// EntryByMessage returns the entry created by msg.
func (r *Repository) EntryByMessage(ctx context.Context, msg generic.MessageID) (OffLogEntry, error) {
	e, err := generic.ReadOneJSON[OffLogEntry](ctx, r.store, r.tags(kindOffLog, msgTag(msg)))
	if errors.Is(err, generic.ErrNotFound) {
		return e, err
	}
	return e, generic.Collaborator("store.read off-log", err)
}

// RemoveEntry deletes the entry of msg and reports how many were removed.
func (r *Repository) RemoveEntry(ctx context.Context, msg generic.MessageID) (int, error) {
	n, err := r.store.Remove(ctx, r.tags(kindOffLog, msgTag(msg)))
	return n, generic.Collaborator("store.remove off-log", err)
}

func (r *Repository) EntriesByUser(ctx context.Context, user generic.UserID) ([]OffLogEntry, error) {
	return r.entries(ctx, r.tags(kindOffLog, userTag(user)))
}

// EntriesStartingIn returns every entry whose start date is in year/month.
func (r *Repository) EntriesStartingIn(ctx context.Context, year, month int) ([]OffLogEntry, error) {
	return r.entries(ctx, r.tags(kindOffLog, yearTag(year), generic.NewTag("month", strconv.Itoa(month))))
}

func (r *Repository) entries(ctx context.Context, tags generic.Tags) ([]OffLogEntry, error) {
	out, err := generic.ReadJSON[OffLogEntry](ctx, r.store, tags)
	if err != nil {
		return nil, generic.Collaborator("store.read off-log", err)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// =============================================================================
// MEMBER ADJUSTMENTS
// =============================================================================

// Adjustment returns the user's adjustment for year, or nil if none exists.
func (r *Repository) Adjustment(ctx context.Context, user generic.UserID, year int) (*MemberQuotaAdjustment, error) {
	a, err := generic.ReadOneJSON[MemberQuotaAdjustment](ctx, r.store, r.tags(kindMemberExtra, userTag(user), yearTag(year)))
	if errors.Is(err, generic.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, generic.Collaborator("store.read member-extra", err)
	}
	return &a, nil
}

func (r *Repository) SaveAdjustment(ctx context.Context, a MemberQuotaAdjustment) error {
	tags := r.tags(kindMemberExtra, userTag(a.UserID), yearTag(a.Year))
	return generic.Collaborator("store.write member-extra", generic.WriteJSON(ctx, r.store, tags, a, true))
}

// Adjustments returns every adjustment recorded for year.
func (r *Repository) Adjustments(ctx context.Context, year int) ([]MemberQuotaAdjustment, error) {
	out, err := generic.ReadJSON[MemberQuotaAdjustment](ctx, r.store, r.tags(kindMemberExtra, yearTag(year)))
	return out, generic.Collaborator("store.read member-extra", err)
}

// =============================================================================
// SCHEDULE
// =============================================================================

// Schedule returns the ledger; a missing document is an empty ledger.
func (r *Repository) Schedule(ctx context.Context) (Schedule, error) {
	s, err := generic.ReadOneJSON[Schedule](ctx, r.store, r.tags(kindSchedule))
	if errors.Is(err, generic.ErrNotFound) {
		return Schedule{}, nil
	}
	return s, generic.Collaborator("store.read schedule", err)
}

func (r *Repository) SaveSchedule(ctx context.Context, s Schedule) error {
	return generic.Collaborator("store.write schedule", generic.WriteJSON(ctx, r.store, r.tags(kindSchedule), s, true))
}
