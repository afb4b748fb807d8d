package ratelimit

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheStoreUpsertAndGet(t *testing.T) {
	store := NewCacheStore(time.Hour, time.Hour)
	resetAt := time.Now().Add(30 * time.Minute)

	store.Upsert("user-1", 100, 42, resetAt)

	rec, found := store.Get("user-1")
	require.True(t, found)
	assert.Equal(t, "user-1", rec.UserID)
	assert.Equal(t, 100, rec.Limit)
	assert.Equal(t, 42, rec.Remaining)
	assert.WithinDuration(t, resetAt, rec.ResetAt, time.Second)
	assert.WithinDuration(t, time.Now(), rec.LastUpdated, time.Second)
}

func TestCacheStoreMissingIsUntracked(t *testing.T) {
	store := NewCacheStore(time.Hour, time.Hour)

	rec, found := store.Get("never-seen")
	assert.False(t, found)
	assert.Nil(t, rec)
}

func TestCacheStoreOverwritesSingleRecord(t *testing.T) {
	store := NewCacheStore(time.Hour, time.Hour)
	store.Upsert("user-1", 100, 90, time.Now())
	store.Upsert("user-1", 100, 89, time.Now())

	rec, found := store.Get("user-1")
	require.True(t, found)
	assert.Equal(t, 89, rec.Remaining)
}

func TestCacheStoreIdleExpiry(t *testing.T) {
	store := NewCacheStore(30*time.Millisecond, time.Minute)
	// Remaining quota and reset time do not matter: a record idle past the TTL
	// is gone either way.
	store.Upsert("user-1", 100, 100, time.Now().Add(24*time.Hour))

	time.Sleep(60 * time.Millisecond)

	_, found := store.Get("user-1")
	assert.False(t, found)
}

func TestReportHeaders(t *testing.T) {
	store := NewCacheStore(time.Hour, time.Hour)

	t.Run("records complete headers", func(t *testing.T) {
		h := http.Header{}
		h.Set("X-RateLimit-Limit", "3000")
		h.Set("X-RateLimit-Remaining", "2999")
		h.Set("X-RateLimit-Reset", "1735689600")

		ReportHeaders(store, "user-1", h)

		rec, found := store.Get("user-1")
		require.True(t, found)
		assert.Equal(t, 3000, rec.Limit)
		assert.Equal(t, 2999, rec.Remaining)
		assert.Equal(t, time.Unix(1735689600, 0), rec.ResetAt)
	})

	t.Run("ignores incomplete headers", func(t *testing.T) {
		ReportHeaders(store, "user-2", http.Header{})

		_, found := store.Get("user-2")
		assert.False(t, found)
	})

	t.Run("ignores empty user id", func(t *testing.T) {
		h := http.Header{}
		h.Set("X-RateLimit-Limit", "10")
		h.Set("X-RateLimit-Remaining", "9")

		ReportHeaders(store, "", h)
	})
}

func TestUserIDContext(t *testing.T) {
	ctx := context.Background()

	_, ok := UserIDFromContext(ctx)
	assert.False(t, ok)

	ctx = WithUserID(ctx, "10.0.0.1")
	id, ok := UserIDFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "10.0.0.1", id)
}
