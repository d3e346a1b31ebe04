package uploads

import (
	"time"

	"github.com/google/uuid"
)

// maxUploadBytes caps a single uploaded file at 20 MiB.
const maxUploadBytes = 20 << 20

// Upload records one file stored in object storage on behalf of a user.
type Upload struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	ObjectKey   string    `json:"-"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	CreatedAt   time.Time `json:"created_at"`
}
