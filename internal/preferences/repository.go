package preferences

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	Get(ctx context.Context, userID uuid.UUID) (*Preferences, error)
	Upsert(ctx context.Context, prefs *Preferences) error
}

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

func (r *postgresRepository) Get(ctx context.Context, userID uuid.UUID) (*Preferences, error) {
	query := `
		SELECT user_id, default_model, theme, language, updated_at
		FROM preferences
		WHERE user_id = $1`

	prefs := &Preferences{}
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&prefs.UserID, &prefs.DefaultModel, &prefs.Theme, &prefs.Language, &prefs.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading preferences: %w", err)
	}
	return prefs, nil
}

func (r *postgresRepository) Upsert(ctx context.Context, prefs *Preferences) error {
	query := `
		INSERT INTO preferences (user_id, default_model, theme, language, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE SET
			default_model = EXCLUDED.default_model,
			theme = EXCLUDED.theme,
			language = EXCLUDED.language,
			updated_at = EXCLUDED.updated_at`

	_, err := r.pool.Exec(ctx, query,
		prefs.UserID, prefs.DefaultModel, prefs.Theme, prefs.Language, prefs.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upserting preferences: %w", err)
	}
	return nil
}
