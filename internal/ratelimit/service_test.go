package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	standardModel = "gemini-2.0-flash" // 1 credit
	premiumModel  = "gemini-2.5-pro"   // 2 credits
	dailyLimit    = 10
)

// fakeRepo is an in-memory Repository with the same conditional-update
// semantics as the Postgres implementation.
type fakeRepo struct {
	rec *Record

	getErr    error
	incErr    error
	createErr error
	resetErr  error

	// createConflict simulates losing the first-request insert race once.
	createConflict bool
}

func (f *fakeRepo) Get(_ context.Context, userID uuid.UUID) (*Record, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.rec == nil || f.rec.UserID != userID {
		return nil, nil
	}
	cp := *f.rec
	return &cp, nil
}

func (f *fakeRepo) Create(_ context.Context, rec *Record) (bool, error) {
	if f.createErr != nil {
		return false, f.createErr
	}
	if f.createConflict {
		f.createConflict = false
		f.rec = &Record{
			ID:           uuid.New(),
			UserID:       rec.UserID,
			RequestCount: 1,
			WindowStart:  rec.WindowStart,
			WindowEnd:    rec.WindowEnd,
			CreatedAt:    rec.CreatedAt,
			UpdatedAt:    rec.UpdatedAt,
		}
		return false, nil
	}
	if f.rec != nil && f.rec.UserID == rec.UserID {
		return false, nil
	}
	cp := *rec
	f.rec = &cp
	return true, nil
}

func (f *fakeRepo) IncrementInWindow(_ context.Context, userID uuid.UUID, cost int, now time.Time, limit int) (*Record, error) {
	if f.incErr != nil {
		return nil, f.incErr
	}
	r := f.rec
	if r == nil || r.UserID != userID {
		return nil, nil
	}
	if now.Before(r.WindowStart) || !now.Before(r.WindowEnd) {
		return nil, nil
	}
	if r.RequestCount >= limit {
		return nil, nil
	}
	r.RequestCount += cost
	r.UpdatedAt = now
	cp := *r
	return &cp, nil
}

func (f *fakeRepo) ResetWindow(_ context.Context, userID uuid.UUID, cost int, windowStart, windowEnd, now time.Time) (*Record, error) {
	if f.resetErr != nil {
		return nil, f.resetErr
	}
	r := f.rec
	if r == nil || r.UserID != userID {
		return nil, nil
	}
	if now.Before(r.WindowEnd) {
		return nil, nil
	}
	r.RequestCount = cost
	r.WindowStart = windowStart
	r.WindowEnd = windowEnd
	r.UpdatedAt = now
	cp := *r
	return &cp, nil
}

func newTestService(repo Repository, now time.Time) *Service {
	svc := NewService(repo, dailyLimit)
	svc.now = func() time.Time { return now }
	return svc
}

func TestAdmit_FirstRequestBootstrap(t *testing.T) {
	repo := &fakeRepo{}
	now := time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC)
	svc := newTestService(repo, now)
	userID := uuid.New()

	dec, err := svc.Admit(context.Background(), userID, standardModel)
	require.NoError(t, err)
	assert.Equal(t, 1, dec.Cost)
	assert.Equal(t, 9, dec.Remaining)

	require.NotNil(t, repo.rec)
	assert.Equal(t, 1, repo.rec.RequestCount)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), repo.rec.WindowStart)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), repo.rec.WindowEnd)
}

func TestAdmit_UnknownModel(t *testing.T) {
	repo := &fakeRepo{}
	svc := newTestService(repo, time.Now())

	_, err := svc.Admit(context.Background(), uuid.New(), "gpt-4o")
	var unknownErr *UnknownModelError
	require.ErrorAs(t, err, &unknownErr)
	assert.Equal(t, "Invalid model: gpt-4o", unknownErr.Error())
	assert.Nil(t, repo.rec, "no state should be touched for an invalid model")
}

func TestAdmit_CeilingEnforcement(t *testing.T) {
	repo := &fakeRepo{}
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(repo, now)
	userID := uuid.New()

	for i := 0; i < dailyLimit; i++ {
		dec, err := svc.Admit(context.Background(), userID, standardModel)
		require.NoError(t, err, "request %d should be admitted", i+1)
		assert.Equal(t, dailyLimit-i-1, dec.Remaining)
	}
	assert.Equal(t, 10, repo.rec.RequestCount)

	_, err := svc.Admit(context.Background(), userID, standardModel)
	var quotaErr *QuotaExceededError
	require.ErrorAs(t, err, &quotaErr)
	assert.Equal(t, repo.rec.WindowEnd, quotaErr.ResetAt)
	assert.Equal(t, 10, repo.rec.RequestCount, "denial must not mutate the counter")
}

func TestAdmit_OvershootAllowedAtBoundary(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	userID := uuid.New()
	repo := &fakeRepo{rec: &Record{
		ID:           uuid.New(),
		UserID:       userID,
		RequestCount: 9,
		WindowStart:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		WindowEnd:    time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
	}}
	svc := newTestService(repo, now)

	// The pre-increment count (9) is below the ceiling, so a 2-credit
	// request passes even though it lands on 11.
	dec, err := svc.Admit(context.Background(), userID, premiumModel)
	require.NoError(t, err)
	assert.Equal(t, 2, dec.Cost)
	assert.Equal(t, 0, dec.Remaining)
	assert.Equal(t, 11, repo.rec.RequestCount)

	// Any follow-up request is denied.
	_, err = svc.Admit(context.Background(), userID, standardModel)
	var quotaErr *QuotaExceededError
	require.ErrorAs(t, err, &quotaErr)
	assert.Equal(t, 11, repo.rec.RequestCount)
}

func TestAdmit_WindowRollover(t *testing.T) {
	userID := uuid.New()
	repo := &fakeRepo{rec: &Record{
		ID:           uuid.New(),
		UserID:       userID,
		RequestCount: 10,
		WindowStart:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		WindowEnd:    time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
	}}
	now := time.Date(2024, 1, 2, 0, 0, 1, 0, time.UTC)
	svc := newTestService(repo, now)

	dec, err := svc.Admit(context.Background(), userID, standardModel)
	require.NoError(t, err)
	assert.Equal(t, 9, dec.Remaining)

	assert.Equal(t, 1, repo.rec.RequestCount)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), repo.rec.WindowStart)
	assert.Equal(t, time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), repo.rec.WindowEnd)
}

func TestAdmit_RolloverChargesTriggeringCost(t *testing.T) {
	userID := uuid.New()
	repo := &fakeRepo{rec: &Record{
		ID:           uuid.New(),
		UserID:       userID,
		RequestCount: 4,
		WindowStart:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		WindowEnd:    time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
	}}
	svc := newTestService(repo, time.Date(2024, 1, 5, 8, 0, 0, 0, time.UTC))

	dec, err := svc.Admit(context.Background(), userID, premiumModel)
	require.NoError(t, err)
	assert.Equal(t, 8, dec.Remaining)
	assert.Equal(t, 2, repo.rec.RequestCount)
	assert.Equal(t, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), repo.rec.WindowStart)
}

func TestAdmit_DayOfMixedRequests(t *testing.T) {
	// Eight 1-credit requests, one 2-credit request filling the budget
	// exactly, then a denial quoting the next midnight.
	repo := &fakeRepo{}
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	svc := newTestService(repo, now)
	userID := uuid.New()

	for i := 1; i <= 8; i++ {
		dec, err := svc.Admit(context.Background(), userID, standardModel)
		require.NoError(t, err)
		assert.Equal(t, i, repo.rec.RequestCount)
		assert.Equal(t, dailyLimit-i, dec.Remaining)
	}

	dec, err := svc.Admit(context.Background(), userID, premiumModel)
	require.NoError(t, err)
	assert.Equal(t, 10, repo.rec.RequestCount)
	assert.Equal(t, 0, dec.Remaining)

	_, err = svc.Admit(context.Background(), userID, standardModel)
	var quotaErr *QuotaExceededError
	require.ErrorAs(t, err, &quotaErr)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), quotaErr.ResetAt)
	assert.Contains(t, quotaErr.Error(), "2024-01-02T00:00:00Z")
}

func TestAdmit_FailClosedOnPersistenceError(t *testing.T) {
	boom := errors.New("connection refused")

	repo := &fakeRepo{incErr: boom}
	svc := newTestService(repo, time.Now())
	_, err := svc.Admit(context.Background(), uuid.New(), standardModel)
	require.ErrorIs(t, err, boom)

	repo = &fakeRepo{createErr: boom}
	svc = newTestService(repo, time.Now())
	_, err = svc.Admit(context.Background(), uuid.New(), standardModel)
	require.ErrorIs(t, err, boom)
	assert.Nil(t, repo.rec)
}

func TestAdmit_RetriesAfterLosingCreateRace(t *testing.T) {
	// Another request inserts the row between our Get and Create; the retry
	// must land on the winner's record via the increment path.
	repo := &fakeRepo{createConflict: true}
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	svc := newTestService(repo, now)
	userID := uuid.New()

	dec, err := svc.Admit(context.Background(), userID, standardModel)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.rec.RequestCount, "winner's credit plus ours")
	assert.Equal(t, 8, dec.Remaining)
}

func TestAdmit_CountNeverNegative(t *testing.T) {
	repo := &fakeRepo{}
	svc := newTestService(repo, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	userID := uuid.New()

	for i := 0; i < 15; i++ {
		_, err := svc.Admit(context.Background(), userID, standardModel)
		if err != nil {
			var quotaErr *QuotaExceededError
			require.ErrorAs(t, err, &quotaErr)
		}
		require.GreaterOrEqual(t, repo.rec.RequestCount, 0)
	}
}

func TestRemaining_NoRecord(t *testing.T) {
	repo := &fakeRepo{}
	now := time.Date(2024, 1, 1, 15, 0, 0, 0, time.UTC)
	svc := newTestService(repo, now)

	status, err := svc.Remaining(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, dailyLimit, status.Remaining)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), status.ResetAt)
}

func TestRemaining_ActiveWindow(t *testing.T) {
	userID := uuid.New()
	windowEnd := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	repo := &fakeRepo{rec: &Record{
		ID:           uuid.New(),
		UserID:       userID,
		RequestCount: 7,
		WindowStart:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		WindowEnd:    windowEnd,
	}}
	svc := newTestService(repo, time.Date(2024, 1, 1, 18, 0, 0, 0, time.UTC))

	status, err := svc.Remaining(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 3, status.Remaining)
	assert.Equal(t, windowEnd, status.ResetAt)
}

func TestRemaining_ClampsOvershootToZero(t *testing.T) {
	userID := uuid.New()
	repo := &fakeRepo{rec: &Record{
		ID:           uuid.New(),
		UserID:       userID,
		RequestCount: 11,
		WindowStart:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		WindowEnd:    time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
	}}
	svc := newTestService(repo, time.Date(2024, 1, 1, 18, 0, 0, 0, time.UTC))

	status, err := svc.Remaining(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 0, status.Remaining)
}

func TestRemaining_ExpiredWindowKeepsStoredResetAt(t *testing.T) {
	// The full budget is reported once the window has lapsed, but ResetAt
	// deliberately stays the stored window end until an admit resets it.
	userID := uuid.New()
	staleEnd := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	repo := &fakeRepo{rec: &Record{
		ID:           uuid.New(),
		UserID:       userID,
		RequestCount: 10,
		WindowStart:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		WindowEnd:    staleEnd,
	}}
	svc := newTestService(repo, time.Date(2024, 1, 3, 9, 0, 0, 0, time.UTC))

	status, err := svc.Remaining(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, dailyLimit, status.Remaining)
	assert.Equal(t, staleEnd, status.ResetAt)
}

func TestRemaining_Idempotent(t *testing.T) {
	userID := uuid.New()
	repo := &fakeRepo{rec: &Record{
		ID:           uuid.New(),
		UserID:       userID,
		RequestCount: 5,
		WindowStart:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		WindowEnd:    time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
	}}
	svc := newTestService(repo, time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))

	first, err := svc.Remaining(context.Background(), userID)
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		status, err := svc.Remaining(context.Background(), userID)
		require.NoError(t, err)
		assert.Equal(t, first, status)
	}
	assert.Equal(t, 5, repo.rec.RequestCount, "quota reads must not consume credits")
}
