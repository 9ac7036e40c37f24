package sqlite_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/timee/generic"
	"github.com/warp/timee/store/sqlite"
)

func newTestStore(t *testing.T) *sqlite.Store {
	s, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_WriteRead_MatchesAllTags(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	scope := generic.NewTag("scope", "acme")
	require.NoError(t, s.Write(ctx, generic.Tags{scope, generic.NewTag("kind", "off-log"), generic.NewTag("user", "u1")}, json.RawMessage(`{"id":"a"}`), false))
	require.NoError(t, s.Write(ctx, generic.Tags{scope, generic.NewTag("kind", "off-log"), generic.NewTag("user", "u2")}, json.RawMessage(`{"id":"b"}`), false))
	require.NoError(t, s.Write(ctx, generic.Tags{scope, generic.NewTag("kind", "time-log")}, json.RawMessage(`{"id":"c"}`), false))

	docs, err := s.Read(ctx, generic.Tags{scope, generic.NewTag("kind", "off-log")})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.JSONEq(t, `{"id":"a"}`, string(docs[0]))
	assert.JSONEq(t, `{"id":"b"}`, string(docs[1]))

	docs, err = s.Read(ctx, generic.Tags{generic.NewTag("user", "u2")})
	require.NoError(t, err)
	require.Len(t, docs, 1)
}

func TestStore_Upsert_KeepsSingleDocument(t *testing.T) {
	// GIVEN: The schedule ledger written twice with upsert
	// WHEN: Reading it back
	// THEN: Only the latest body is present

	ctx := context.Background()
	s := newTestStore(t)
	key := generic.Tags{generic.NewTag("kind", "schedule")}

	require.NoError(t, s.Write(ctx, key, json.RawMessage(`{"v":1}`), true))
	require.NoError(t, s.Write(ctx, key, json.RawMessage(`{"v":2}`), true))

	docs, err := s.Read(ctx, key)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.JSONEq(t, `{"v":2}`, string(docs[0]))
}

func TestStore_Remove(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.Write(ctx, generic.Tags{generic.NewTag("msg", "m1")}, json.RawMessage(`{}`), false))
	require.NoError(t, s.Write(ctx, generic.Tags{generic.NewTag("msg", "m2")}, json.RawMessage(`{}`), false))

	n, err := s.Remove(ctx, generic.Tags{generic.NewTag("msg", "m1")})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	docs, err := s.Read(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, docs, 1)

	require.NoError(t, s.Reset(ctx))
	docs, err = s.Read(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, docs)
}
