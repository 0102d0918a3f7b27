package recon

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewStore(rdb)
}

func TestRecordAndPending(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := Record{
		Principal: "bob@example.com",
		RoomID:    "r1",
		Role:      "editor",
		Stage:     StageACLGrant,
		Error:     "status 502",
	}
	require.NoError(t, store.Record(ctx, first))
	require.NoError(t, store.Record(ctx, Record{
		Principal: "carol@example.com",
		RoomID:    "r2",
		Role:      "viewer",
		Stage:     StageACLRevoke,
		Error:     "status 500",
	}))

	records, err := store.Pending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 2)

	// Oldest first.
	assert.Equal(t, "bob@example.com", records[0].Principal)
	assert.Equal(t, StageACLGrant, records[0].Stage)
	assert.Equal(t, "carol@example.com", records[1].Principal)
	assert.False(t, records[0].RecordedAt.IsZero(), "timestamp filled in on write")
}

func TestRecordKeepsExplicitTimestamp(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	at := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.Record(ctx, Record{Principal: "bob@example.com", RecordedAt: at}))

	records, err := store.Pending(ctx, 1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].RecordedAt.Equal(at))
}

func TestPendingLimit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for range 5 {
		require.NoError(t, store.Record(ctx, Record{Principal: "bob@example.com"}))
	}

	records, err := store.Pending(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, records, 3)

	records, err = store.Pending(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, records, 5, "non-positive limit falls back to the default window")
}

func TestPendingEmpty(t *testing.T) {
	store := newTestStore(t)
	records, err := store.Pending(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, records)
}
