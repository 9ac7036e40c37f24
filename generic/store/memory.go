// Package store provides DocumentStore implementations.
package store

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/warp/timee/generic"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu   sync.RWMutex
	docs []document
}

type document struct {
	tags generic.Tags
	body json.RawMessage
}

func NewMemory() *Memory {
	return &Memory{}
}

// Write stores doc under tags. With upsert, the first matching document is
// replaced in place and further matches are dropped.
func (m *Memory) Write(_ context.Context, tags generic.Tags, doc json.RawMessage, upsert bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	d := document{tags: append(generic.Tags(nil), tags...), body: clone(doc)}
	if !upsert {
		m.docs = append(m.docs, d)
		return nil
	}

	replaced := false
	kept := m.docs[:0]
	for _, existing := range m.docs {
		if !existing.tags.Matches(tags) {
			kept = append(kept, existing)
			continue
		}
		if !replaced {
			kept = append(kept, d)
			replaced = true
		}
	}
	m.docs = kept
	if !replaced {
		m.docs = append(m.docs, d)
	}
	return nil
}

func (m *Memory) Read(_ context.Context, tags generic.Tags) ([]json.RawMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []json.RawMessage
	for _, d := range m.docs {
		if d.tags.Matches(tags) {
			result = append(result, clone(d.body))
		}
	}
	return result, nil
}

func (m *Memory) Remove(_ context.Context, tags generic.Tags) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	kept := m.docs[:0]
	for _, d := range m.docs {
		if d.tags.Matches(tags) {
			removed++
			continue
		}
		kept = append(kept, d)
	}
	m.docs = kept
	return removed, nil
}

// Len returns the number of stored documents.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}

func clone(b json.RawMessage) json.RawMessage {
	out := make(json.RawMessage, len(b))
	copy(out, b)
	return out
}

var _ generic.DocumentStore = (*Memory)(nil)

// Reset drops every document.
func (m *Memory) Reset(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs = nil
	return nil
}
