/*
store.go - Tagged document persistence interface

PURPOSE:
  The host hands the bot a generic key-value store where every document is
  filed under a set of tags (installation scope, record kind, partition
  labels, entity id). The bot never owns that store; it only needs three
  operations on it, described by DocumentStore.

TAG MATCHING:
  Read and Remove select documents carrying ALL of the given tags. Writing
  with upsert replaces every document that carries all the given tags, or
  inserts when none does.

NO COMPARE-AND-SWAP:
  The host offers no conditional write, so read-modify-write cycles on
  shared documents (the schedule ledger) can lose updates under true
  concurrency. Callers serialize them with a KeyedMutex (lock.go), which
  reduces the window inside one process but cannot close it across
  processes. Last write wins.

IMPLEMENTATIONS:
  - generic/store/memory.go: In-memory for tests and development
  - store/sqlite/sqlite.go: SQLite-backed production store

SEE ALSO:
  - timeoff/repository.go, attendance/repository.go: typed repositories
*/
package generic

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
)

// =============================================================================
// TAGS
// =============================================================================

// Tag is one association label, e.g. {Key: "kind", Value: "off-log"}.
type Tag struct {
	Key   string
	Value string
}

func NewTag(key, value string) Tag { return Tag{Key: key, Value: value} }

func (t Tag) String() string { return t.Key + ":" + t.Value }

// Tags is an unordered tag set.
type Tags []Tag

// Strings returns the canonical, sorted string form of the tag set.
func (ts Tags) Strings() []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.String()
	}
	sort.Strings(out)
	return out
}

// Key joins the canonical form into a single string.
func (ts Tags) Key() string {
	return strings.Join(ts.Strings(), "|")
}

// With returns a copy of ts extended by more.
func (ts Tags) With(more ...Tag) Tags {
	out := make(Tags, 0, len(ts)+len(more))
	out = append(out, ts...)
	return append(out, more...)
}

// Matches reports whether every tag in want is present in ts.
func (ts Tags) Matches(want Tags) bool {
	have := make(map[string]struct{}, len(ts))
	for _, t := range ts {
		have[t.String()] = struct{}{}
	}
	for _, t := range want {
		if _, ok := have[t.String()]; !ok {
			return false
		}
	}
	return true
}

// =============================================================================
// DOCUMENT STORE
// =============================================================================

// DocumentStore is the host's tagged document persistence.
type DocumentStore interface {
	// Write stores doc under tags. With upsert, documents carrying all tags
	// are replaced (inserting if there is none); without, a new document is
	// always added.
	Write(ctx context.Context, tags Tags, doc json.RawMessage, upsert bool) error

	// Read returns every document carrying all tags, in insertion order.
	Read(ctx context.Context, tags Tags) ([]json.RawMessage, error)

	// Remove deletes every document carrying all tags and returns how many.
	Remove(ctx context.Context, tags Tags) (int, error)
}

// WriteJSON marshals v and writes it.
func WriteJSON(ctx context.Context, s DocumentStore, tags Tags, v any, upsert bool) error {
	doc, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.Write(ctx, tags, doc, upsert)
}

// ReadJSON reads all documents under tags and decodes each into a T.
func ReadJSON[T any](ctx context.Context, s DocumentStore, tags Tags) ([]T, error) {
	docs, err := s.Read(ctx, tags)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(docs))
	for _, d := range docs {
		var v T
		if err := json.Unmarshal(d, &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// ReadOneJSON returns the first document under tags, or ErrNotFound.
func ReadOneJSON[T any](ctx context.Context, s DocumentStore, tags Tags) (T, error) {
	var zero T
	all, err := ReadJSON[T](ctx, s, tags)
	if err != nil {
		return zero, err
	}
	if len(all) == 0 {
		return zero, ErrNotFound
	}
	return all[0], nil
}
