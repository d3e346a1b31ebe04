package messages

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	Create(ctx context.Context, msg *Message) error
	ListByChat(ctx context.Context, chatID uuid.UUID) ([]*Message, error)
}

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

func (r *postgresRepository) Create(ctx context.Context, msg *Message) error {
	query := `
		INSERT INTO messages (id, chat_id, role, content, model, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.pool.Exec(ctx, query,
		msg.ID, msg.ChatID, msg.Role, msg.Content, msg.Model, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting message: %w", err)
	}
	return nil
}

func (r *postgresRepository) ListByChat(ctx context.Context, chatID uuid.UUID) ([]*Message, error) {
	query := `
		SELECT id, chat_id, role, content, model, created_at
		FROM messages
		WHERE chat_id = $1
		ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, chatID)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	defer rows.Close()

	var out []*Message
	for rows.Next() {
		msg := &Message{}
		err := rows.Scan(&msg.ID, &msg.ChatID, &msg.Role, &msg.Content, &msg.Model, &msg.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scanning message row: %w", err)
		}
		out = append(out, msg)
	}
	return out, rows.Err()
}
