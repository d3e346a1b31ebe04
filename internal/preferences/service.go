package preferences

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Service reads preferences through the Redis cache and writes through to
// Postgres, invalidating the cache on update. Cache failures degrade to the
// database rather than failing the request.
type Service struct {
	repo  Repository
	cache *Cache
}

func NewService(repo Repository, cache *Cache) *Service {
	return &Service{repo: repo, cache: cache}
}

func (s *Service) Get(ctx context.Context, userID uuid.UUID) (*Preferences, error) {
	if s.cache != nil {
		prefs, err := s.cache.Get(ctx, userID)
		if err != nil {
			slog.Warn("preferences cache read failed", "error", err, "user_id", userID)
		} else if prefs != nil {
			return prefs, nil
		}
	}

	prefs, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if prefs == nil {
		prefs = Defaults(userID)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, prefs); err != nil {
			slog.Warn("preferences cache write failed", "error", err, "user_id", userID)
		}
	}
	return prefs, nil
}

func (s *Service) Update(ctx context.Context, userID uuid.UUID, req UpdatePreferencesRequest) (*Preferences, error) {
	current, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.DefaultModel != "" {
		current.DefaultModel = req.DefaultModel
	}
	if req.Theme != "" {
		current.Theme = req.Theme
	}
	if req.Language != "" {
		current.Language = req.Language
	}
	current.UpdatedAt = time.Now()

	if err := s.repo.Upsert(ctx, current); err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, userID); err != nil {
			slog.Warn("preferences cache invalidation failed", "error", err, "user_id", userID)
		}
	}
	return current, nil
}
