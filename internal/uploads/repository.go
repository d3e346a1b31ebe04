package uploads

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	Create(ctx context.Context, up *Upload) error
	GetByID(ctx context.Context, id uuid.UUID) (*Upload, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*Upload, error)
}

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

func (r *postgresRepository) Create(ctx context.Context, up *Upload) error {
	query := `
		INSERT INTO uploads (id, user_id, object_key, filename, content_type, size_bytes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.pool.Exec(ctx, query,
		up.ID, up.UserID, up.ObjectKey, up.Filename, up.ContentType, up.SizeBytes, up.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting upload: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Upload, error) {
	query := `
		SELECT id, user_id, object_key, filename, content_type, size_bytes, created_at
		FROM uploads
		WHERE id = $1`

	up := &Upload{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&up.ID, &up.UserID, &up.ObjectKey, &up.Filename, &up.ContentType, &up.SizeBytes, &up.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading upload: %w", err)
	}
	return up, nil
}

func (r *postgresRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*Upload, error) {
	query := `
		SELECT id, user_id, object_key, filename, content_type, size_bytes, created_at
		FROM uploads
		WHERE user_id = $1
		ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("listing uploads: %w", err)
	}
	defer rows.Close()

	var out []*Upload
	for rows.Next() {
		up := &Upload{}
		err := rows.Scan(&up.ID, &up.UserID, &up.ObjectKey, &up.Filename, &up.ContentType, &up.SizeBytes, &up.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scanning upload row: %w", err)
		}
		out = append(out, up)
	}
	return out, rows.Err()
}
