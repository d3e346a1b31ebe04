package feedback

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	Create(ctx context.Context, fb *Feedback) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*Feedback, error)
}

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

func (r *postgresRepository) Create(ctx context.Context, fb *Feedback) error {
	query := `
		INSERT INTO feedback (id, user_id, message_id, rating, comment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.pool.Exec(ctx, query,
		fb.ID, fb.UserID, fb.MessageID, fb.Rating, fb.Comment, fb.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting feedback: %w", err)
	}
	return nil
}

func (r *postgresRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*Feedback, error) {
	query := `
		SELECT id, user_id, message_id, rating, comment, created_at
		FROM feedback
		WHERE user_id = $1
		ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("listing feedback: %w", err)
	}
	defer rows.Close()

	var out []*Feedback
	for rows.Next() {
		fb := &Feedback{}
		err := rows.Scan(&fb.ID, &fb.UserID, &fb.MessageID, &fb.Rating, &fb.Comment, &fb.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scanning feedback row: %w", err)
		}
		out = append(out, fb)
	}
	return out, rows.Err()
}
