package messages

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies who authored a message.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	ID        uuid.UUID `json:"id"`
	ChatID    uuid.UUID `json:"chat_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Model     string    `json:"model,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type CreateMessageRequest struct {
	Role    string `json:"role" validate:"required,oneof=user assistant"`
	Content string `json:"content" validate:"required,min=1"`
	Model   string `json:"model" validate:"omitempty,max=100"`
}
