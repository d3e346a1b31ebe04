package events

import (
	"time"

	"github.com/google/uuid"
)

// FetchTimeout is the default timeout for batch fetching messages from consumers.
const FetchTimeout = 2 * time.Second

// Stream names.
const (
	StreamEvents = "SPARKCHAT_EVENTS"
)

// Subject constants.
const (
	SubjectUsage = "sparkchat.events.usage"
)

// UsageEvent is published after every AI completion, successful or not.
type UsageEvent struct {
	RequestID    string    `json:"request_id"`
	UserID       uuid.UUID `json:"user_id"`
	ChatID       uuid.UUID `json:"chat_id"`
	Model        string    `json:"model"`
	Provider     string    `json:"provider"`
	CreditsSpent int       `json:"credits_spent"`
	PromptChars  int       `json:"prompt_chars"`
	OutputChars  int       `json:"output_chars"`
	DurationMS   int64     `json:"duration_ms"`
	Outcome      string    `json:"outcome"` // ok, provider_error, canceled
	Timestamp    time.Time `json:"timestamp"`
}
