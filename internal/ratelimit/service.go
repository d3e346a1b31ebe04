// Package ratelimit implements the per-user daily credit budget that gates
// AI completion requests. Each user gets a fixed number of credits per
// calendar day; a request consumes the cost of its model (1 or 2 credits).
//
// State machine per user: no record → active window. An admitted request
// either creates the record, increments the counter inside a live window, or
// replaces an expired window. Denial does not transition state.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sparkchat-app/sparkchat/internal/catalog"
	"github.com/sparkchat-app/sparkchat/internal/metrics"
)

// admitAttempts bounds the create/reset retry loop. Each retry only happens
// when a concurrent request from the same user won a race, so two passes is
// the practical maximum.
const admitAttempts = 3

// windowLength is the size of one accounting window. The window is anchored
// at the start of the calendar day, so it always ends at the next midnight.
const windowLength = 24 * time.Hour

type Service struct {
	repo  Repository
	limit int

	// now is swapped out in tests; production uses the system clock.
	now func() time.Time
}

func NewService(repo Repository, dailyLimit int) *Service {
	return &Service{
		repo:  repo,
		limit: dailyLimit,
		now:   time.Now,
	}
}

// Admit decides whether one request for the given model may proceed and, if
// so, durably deducts the model's cost before returning. Accounting is
// fail-closed: any persistence error is returned as-is and the caller must
// not forward the request upstream.
//
// Denial is reported as *QuotaExceededError, carrying the window end so the
// caller can surface a retry time.
func (s *Service) Admit(ctx context.Context, userID uuid.UUID, model string) (*Decision, error) {
	cost, ok := catalog.Cost(model)
	if !ok {
		return nil, &UnknownModelError{Model: model}
	}

	for attempt := 0; attempt < admitAttempts; attempt++ {
		now := s.now()

		// Fast path: counter increment inside a live window. The ceiling
		// check is part of the same statement, so there is no
		// read-modify-write race.
		rec, err := s.repo.IncrementInWindow(ctx, userID, cost, now, s.limit)
		if err != nil {
			return nil, fmt.Errorf("admitting request: %w", err)
		}
		if rec != nil {
			return s.allowed(rec, cost), nil
		}

		existing, err := s.repo.Get(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("admitting request: %w", err)
		}

		if existing == nil {
			// First request ever: bootstrap a window for today.
			start := startOfDay(now)
			fresh := &Record{
				ID:           uuid.New(),
				UserID:       userID,
				RequestCount: cost,
				WindowStart:  start,
				WindowEnd:    start.Add(windowLength),
				CreatedAt:    now,
				UpdatedAt:    now,
			}
			created, err := s.repo.Create(ctx, fresh)
			if err != nil {
				return nil, fmt.Errorf("creating rate limit record: %w", err)
			}
			if created {
				return s.allowed(fresh, cost), nil
			}
			// A concurrent first request inserted the row; retry against it.
			continue
		}

		if !now.Before(existing.WindowEnd) {
			// Window expired: replace it and charge this request as the first
			// of the new day.
			start := startOfDay(now)
			rec, err := s.repo.ResetWindow(ctx, userID, cost, start, start.Add(windowLength), now)
			if err != nil {
				return nil, fmt.Errorf("resetting rate limit window: %w", err)
			}
			if rec != nil {
				return s.allowed(rec, cost), nil
			}
			// A concurrent request reset the window first; retry the increment.
			continue
		}

		// Live window with the budget exhausted.
		metrics.QuotaDeniedTotal.Inc()
		return nil, &QuotaExceededError{ResetAt: existing.WindowEnd}
	}

	return nil, fmt.Errorf("admitting request: retries exhausted for user %s", userID)
}

func (s *Service) allowed(rec *Record, cost int) *Decision {
	metrics.CreditsConsumedTotal.Add(float64(cost))
	remaining := s.limit - rec.RequestCount
	if remaining < 0 {
		remaining = 0
	}
	return &Decision{
		Cost:      cost,
		Remaining: remaining,
		ResetAt:   rec.WindowEnd,
	}
}

// Remaining reports the credits left in the user's current window and when
// the budget resets. It never mutates state, so the UI may poll it freely.
//
// When the stored window has already expired (no request has triggered a
// reset yet) the full budget is reported but ResetAt keeps the stored, stale
// window end. That mirrors the admission path's lazy-reset behavior; see
// DESIGN.md for the compatibility decision.
func (s *Service) Remaining(ctx context.Context, userID uuid.UUID) (*QuotaStatus, error) {
	now := s.now()

	rec, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("reading quota: %w", err)
	}

	if rec == nil {
		return &QuotaStatus{
			Remaining: s.limit,
			ResetAt:   startOfDay(now).Add(windowLength),
		}, nil
	}

	if now.Before(rec.WindowEnd) {
		remaining := s.limit - rec.RequestCount
		if remaining < 0 {
			remaining = 0
		}
		return &QuotaStatus{Remaining: remaining, ResetAt: rec.WindowEnd}, nil
	}

	return &QuotaStatus{Remaining: s.limit, ResetAt: rec.WindowEnd}, nil
}

// Limit returns the configured daily credit budget.
func (s *Service) Limit() int {
	return s.limit
}
