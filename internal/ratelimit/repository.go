package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists per-user rate-limit records. The rate_limits table has
// a UNIQUE constraint on user_id, so "the" record for a user is unambiguous
// and Create can never produce duplicates.
type Repository interface {
	// Get returns the user's record, or nil if none exists.
	Get(ctx context.Context, userID uuid.UUID) (*Record, error)

	// Create inserts a fresh record. Returns false without error when a
	// record for the user already exists (lost a first-request race).
	Create(ctx context.Context, rec *Record) (bool, error)

	// IncrementInWindow atomically adds cost to the record's counter iff now
	// falls inside the stored window and the pre-increment counter is below
	// limit. Returns the updated record, or nil when no row qualified.
	IncrementInWindow(ctx context.Context, userID uuid.UUID, cost int, now time.Time, limit int) (*Record, error)

	// ResetWindow atomically replaces an expired window with a fresh one and
	// sets the counter to cost. Returns the updated record, or nil when the
	// stored window had not yet expired (e.g. a concurrent reset won).
	ResetWindow(ctx context.Context, userID uuid.UUID, cost int, windowStart, windowEnd, now time.Time) (*Record, error)
}

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

const recordColumns = `id, user_id, request_count, window_start, window_end, created_at, updated_at`

func scanRecord(row pgx.Row) (*Record, error) {
	rec := &Record{}
	err := row.Scan(&rec.ID, &rec.UserID, &rec.RequestCount,
		&rec.WindowStart, &rec.WindowEnd, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *postgresRepository) Get(ctx context.Context, userID uuid.UUID) (*Record, error) {
	query := `SELECT ` + recordColumns + ` FROM rate_limits WHERE user_id = $1`

	rec, err := scanRecord(r.pool.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying rate limit record: %w", err)
	}
	return rec, nil
}

func (r *postgresRepository) Create(ctx context.Context, rec *Record) (bool, error) {
	query := `
		INSERT INTO rate_limits (id, user_id, request_count, window_start, window_end, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id) DO NOTHING`

	tag, err := r.pool.Exec(ctx, query,
		rec.ID, rec.UserID, rec.RequestCount, rec.WindowStart, rec.WindowEnd, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		return false, fmt.Errorf("inserting rate limit record: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *postgresRepository) IncrementInWindow(ctx context.Context, userID uuid.UUID, cost int, now time.Time, limit int) (*Record, error) {
	// Single conditional round trip: the ceiling check and the increment are
	// one statement, so two concurrent requests cannot both pass a stale
	// pre-check. The ceiling applies to the pre-increment count; a 2-credit
	// request at count 9 is admitted and lands on 11.
	query := `
		UPDATE rate_limits
		SET request_count = request_count + $2,
		    updated_at = $3
		WHERE user_id = $1
		  AND window_start <= $3 AND $3 < window_end
		  AND request_count < $4
		RETURNING ` + recordColumns

	rec, err := scanRecord(r.pool.QueryRow(ctx, query, userID, cost, now, limit))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("incrementing rate limit record: %w", err)
	}
	return rec, nil
}

func (r *postgresRepository) ResetWindow(ctx context.Context, userID uuid.UUID, cost int, windowStart, windowEnd, now time.Time) (*Record, error) {
	query := `
		UPDATE rate_limits
		SET request_count = $2,
		    window_start = $3,
		    window_end = $4,
		    updated_at = $5
		WHERE user_id = $1
		  AND window_end <= $5
		RETURNING ` + recordColumns

	rec, err := scanRecord(r.pool.QueryRow(ctx, query, userID, cost, windowStart, windowEnd, now))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("resetting rate limit window: %w", err)
	}
	return rec, nil
}
