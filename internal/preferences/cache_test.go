package preferences

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewCache(client), mr
}

func TestCache_MissThenHit(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()
	userID := uuid.New()

	got, err := cache.Get(ctx, userID)
	require.NoError(t, err)
	assert.Nil(t, got)

	prefs := &Preferences{
		UserID:       userID,
		DefaultModel: "gemini-2.5-pro",
		Theme:        "dark",
		Language:     "en",
		UpdatedAt:    time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, cache.Set(ctx, prefs))

	got, err = cache.Get(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "gemini-2.5-pro", got.DefaultModel)
	assert.Equal(t, "dark", got.Theme)
}

func TestCache_Invalidate(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()
	userID := uuid.New()

	require.NoError(t, cache.Set(ctx, Defaults(userID)))
	require.NoError(t, cache.Invalidate(ctx, userID))

	got, err := cache.Get(ctx, userID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCache_EntryExpires(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()
	userID := uuid.New()

	require.NoError(t, cache.Set(ctx, Defaults(userID)))

	mr.FastForward(cacheTTL + time.Second)

	got, err := cache.Get(ctx, userID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCache_MalformedEntryIsMiss(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()
	userID := uuid.New()

	mr.Set(prefsKey(userID), "{not json")

	got, err := cache.Get(ctx, userID)
	require.NoError(t, err)
	assert.Nil(t, got)
}
