package chats

import (
	"time"

	"github.com/google/uuid"
)

type Chat struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CreateChatRequest struct {
	Title string `json:"title" validate:"required,min=1,max=255"`
}

type RenameChatRequest struct {
	Title string `json:"title" validate:"required,min=1,max=255"`
}

type ListChatsParams struct {
	Page     int
	PageSize int
}

func DefaultListParams() ListChatsParams {
	return ListChatsParams{
		Page:     1,
		PageSize: 20,
	}
}
