package feedback

import (
	"time"

	"github.com/google/uuid"
)

// Feedback is a user-submitted rating of an assistant response or of the
// product in general.
type Feedback struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	MessageID *uuid.UUID `json:"message_id,omitempty"`
	Rating    int        `json:"rating"`
	Comment   string     `json:"comment,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

type CreateFeedbackRequest struct {
	MessageID string `json:"message_id" validate:"omitempty,uuid"`
	Rating    int    `json:"rating" validate:"required,min=1,max=5"`
	Comment   string `json:"comment" validate:"omitempty,max=2000"`
}
