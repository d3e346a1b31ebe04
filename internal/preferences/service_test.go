package preferences

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	store map[uuid.UUID]*Preferences
	gets  int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{store: map[uuid.UUID]*Preferences{}}
}

func (f *fakeRepo) Get(_ context.Context, userID uuid.UUID) (*Preferences, error) {
	f.gets++
	if p, ok := f.store[userID]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeRepo) Upsert(_ context.Context, prefs *Preferences) error {
	cp := *prefs
	f.store[prefs.UserID] = &cp
	return nil
}

func newTestService(t *testing.T) (*Service, *fakeRepo) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	repo := newFakeRepo()
	return NewService(repo, NewCache(client)), repo
}

func TestService_GetReturnsDefaultsForNewUser(t *testing.T) {
	svc, _ := newTestService(t)
	userID := uuid.New()

	prefs, err := svc.Get(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.0-flash", prefs.DefaultModel)
	assert.Equal(t, "system", prefs.Theme)
}

func TestService_GetServesSecondReadFromCache(t *testing.T) {
	svc, repo := newTestService(t)
	userID := uuid.New()
	ctx := context.Background()

	_, err := svc.Get(ctx, userID)
	require.NoError(t, err)
	_, err = svc.Get(ctx, userID)
	require.NoError(t, err)

	assert.Equal(t, 1, repo.gets)
}

func TestService_UpdateMergesAndInvalidatesCache(t *testing.T) {
	svc, repo := newTestService(t)
	userID := uuid.New()
	ctx := context.Background()

	_, err := svc.Get(ctx, userID)
	require.NoError(t, err)

	updated, err := svc.Update(ctx, userID, UpdatePreferencesRequest{Theme: "dark"})
	require.NoError(t, err)
	assert.Equal(t, "dark", updated.Theme)
	assert.Equal(t, "gemini-2.0-flash", updated.DefaultModel)

	stored := repo.store[userID]
	require.NotNil(t, stored)
	assert.Equal(t, "dark", stored.Theme)

	// The next read repopulates from the database, not the stale cache entry.
	got, err := svc.Get(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "dark", got.Theme)
}
