package usage

import (
	"time"

	"github.com/google/uuid"
)

// Entry is one row of the AI usage log, written by the event consumer.
type Entry struct {
	ID           uuid.UUID `json:"id"`
	RequestID    string    `json:"request_id"`
	UserID       uuid.UUID `json:"user_id"`
	ChatID       uuid.UUID `json:"chat_id"`
	Model        string    `json:"model"`
	Provider     string    `json:"provider"`
	CreditsSpent int       `json:"credits_spent"`
	PromptChars  int       `json:"prompt_chars"`
	OutputChars  int       `json:"output_chars"`
	DurationMS   int64     `json:"duration_ms"`
	Outcome      string    `json:"outcome"`
	CreatedAt    time.Time `json:"created_at"`
}
