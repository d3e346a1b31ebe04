package preferences

import (
	"time"

	"github.com/google/uuid"
)

// Preferences holds per-user UI and model defaults.
type Preferences struct {
	UserID       uuid.UUID `json:"user_id"`
	DefaultModel string    `json:"default_model"`
	Theme        string    `json:"theme"`
	Language     string    `json:"language"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type UpdatePreferencesRequest struct {
	DefaultModel string `json:"default_model" validate:"omitempty,max=100"`
	Theme        string `json:"theme" validate:"omitempty,oneof=light dark system"`
	Language     string `json:"language" validate:"omitempty,bcp47_language_tag"`
}

// Defaults returns the preferences a user has before ever saving any.
func Defaults(userID uuid.UUID) *Preferences {
	return &Preferences{
		UserID:       userID,
		DefaultModel: "gemini-2.0-flash",
		Theme:        "system",
		Language:     "en",
	}
}
