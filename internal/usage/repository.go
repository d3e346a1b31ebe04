package usage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	Insert(ctx context.Context, e *Entry) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*Entry, error)
}

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

func (r *postgresRepository) Insert(ctx context.Context, e *Entry) error {
	// request_id is unique so redelivered events do not double-insert.
	query := `
		INSERT INTO ai_usage_log
			(id, request_id, user_id, chat_id, model, provider, credits_spent,
			 prompt_chars, output_chars, duration_ms, outcome, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (request_id) DO NOTHING`

	_, err := r.pool.Exec(ctx, query,
		e.ID, e.RequestID, e.UserID, e.ChatID, e.Model, e.Provider, e.CreditsSpent,
		e.PromptChars, e.OutputChars, e.DurationMS, e.Outcome, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting usage entry: %w", err)
	}
	return nil
}

func (r *postgresRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*Entry, error) {
	query := `
		SELECT id, request_id, user_id, chat_id, model, provider, credits_spent,
		       prompt_chars, output_chars, duration_ms, outcome, created_at
		FROM ai_usage_log
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing usage entries: %w", err)
	}
	defer rows.Close()

	var out []*Entry
	for rows.Next() {
		e := &Entry{}
		err := rows.Scan(&e.ID, &e.RequestID, &e.UserID, &e.ChatID, &e.Model, &e.Provider,
			&e.CreditsSpent, &e.PromptChars, &e.OutputChars, &e.DurationMS, &e.Outcome, &e.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scanning usage row: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
