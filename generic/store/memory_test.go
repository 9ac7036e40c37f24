package store_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/timee/generic"
	"github.com/warp/timee/generic/store"
)

func tags(pairs ...string) generic.Tags {
	var ts generic.Tags
	for i := 0; i+1 < len(pairs); i += 2 {
		ts = append(ts, generic.NewTag(pairs[i], pairs[i+1]))
	}
	return ts
}

func TestMemory_ReadMatchesAllTags(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()

	require.NoError(t, m.Write(ctx, tags("kind", "off-log", "user", "u1"), json.RawMessage(`{"n":1}`), false))
	require.NoError(t, m.Write(ctx, tags("kind", "off-log", "user", "u2"), json.RawMessage(`{"n":2}`), false))
	require.NoError(t, m.Write(ctx, tags("kind", "schedule"), json.RawMessage(`{"n":3}`), false))

	all, err := m.Read(ctx, tags("kind", "off-log"))
	require.NoError(t, err)
	assert.Len(t, all, 2)

	one, err := m.Read(ctx, tags("kind", "off-log", "user", "u2"))
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.JSONEq(t, `{"n":2}`, string(one[0]))
}

func TestMemory_UpsertReplaces(t *testing.T) {
	// GIVEN: A document under {kind:schedule}
	// WHEN: Writing again with upsert
	// THEN: Exactly one document remains with the new body

	ctx := context.Background()
	m := store.NewMemory()
	key := tags("kind", "schedule")

	require.NoError(t, m.Write(ctx, key, json.RawMessage(`{"v":1}`), true))
	require.NoError(t, m.Write(ctx, key, json.RawMessage(`{"v":2}`), true))

	docs, err := m.Read(ctx, key)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.JSONEq(t, `{"v":2}`, string(docs[0]))
	assert.Equal(t, 1, m.Len())
}

func TestMemory_Remove(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()

	require.NoError(t, m.Write(ctx, tags("kind", "off-log", "msg", "m1"), json.RawMessage(`{}`), false))
	require.NoError(t, m.Write(ctx, tags("kind", "off-log", "msg", "m2"), json.RawMessage(`{}`), false))

	n, err := m.Remove(ctx, tags("msg", "m1"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, m.Len())
}

func TestReadOneJSON_NotFound(t *testing.T) {
	_, err := generic.ReadOneJSON[map[string]any](context.Background(), store.NewMemory(), tags("kind", "x"))
	assert.ErrorIs(t, err, generic.ErrNotFound)
}
