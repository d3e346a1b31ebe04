package chats

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	Create(ctx context.Context, chat *Chat) error
	GetByID(ctx context.Context, id uuid.UUID) (*Chat, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Chat, error)
	CountByUser(ctx context.Context, userID uuid.UUID) (int64, error)
	Rename(ctx context.Context, id uuid.UUID, title string) error
	Delete(ctx context.Context, id uuid.UUID) error
	Touch(ctx context.Context, id uuid.UUID) error
}

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

func (r *postgresRepository) Create(ctx context.Context, chat *Chat) error {
	query := `
		INSERT INTO chats (id, user_id, title, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.pool.Exec(ctx, query,
		chat.ID, chat.UserID, chat.Title, chat.CreatedAt, chat.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting chat: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Chat, error) {
	query := `SELECT id, user_id, title, created_at, updated_at FROM chats WHERE id = $1`

	chat := &Chat{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&chat.ID, &chat.UserID, &chat.Title, &chat.CreatedAt, &chat.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying chat by id: %w", err)
	}
	return chat, nil
}

func (r *postgresRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Chat, error) {
	query := `
		SELECT id, user_id, title, created_at, updated_at
		FROM chats
		WHERE user_id = $1
		ORDER BY updated_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing chats: %w", err)
	}
	defer rows.Close()

	var out []*Chat
	for rows.Next() {
		chat := &Chat{}
		err := rows.Scan(&chat.ID, &chat.UserID, &chat.Title, &chat.CreatedAt, &chat.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scanning chat row: %w", err)
		}
		out = append(out, chat)
	}
	return out, rows.Err()
}

func (r *postgresRepository) CountByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	query := `SELECT COUNT(*) FROM chats WHERE user_id = $1`

	var count int64
	err := r.pool.QueryRow(ctx, query, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting chats: %w", err)
	}
	return count, nil
}

func (r *postgresRepository) Rename(ctx context.Context, id uuid.UUID, title string) error {
	query := `UPDATE chats SET title = $2, updated_at = NOW() WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id, title)
	if err != nil {
		return fmt.Errorf("renaming chat: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("chat not found")
	}
	return nil
}

func (r *postgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	// Messages cascade via the messages.chat_id foreign key.
	query := `DELETE FROM chats WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("deleting chat: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("chat not found")
	}
	return nil
}

func (r *postgresRepository) Touch(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE chats SET updated_at = NOW() WHERE id = $1`

	_, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("touching chat: %w", err)
	}
	return nil
}
