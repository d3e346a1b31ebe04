package ratelimit

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Record matches the rate_limits table schema: one row per user holding the
// consumed credits for the current accounting window [WindowStart, WindowEnd).
type Record struct {
	ID           uuid.UUID `json:"id"`
	UserID       uuid.UUID `json:"user_id"`
	RequestCount int       `json:"request_count"`
	WindowStart  time.Time `json:"window_start"`
	WindowEnd    time.Time `json:"window_end"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Decision describes an admitted request: the credits it consumed and what
// is left of the budget. Denials are reported as *QuotaExceededError instead.
type Decision struct {
	Cost      int
	Remaining int
	ResetAt   time.Time
}

// QuotaStatus is the API response for the read-only quota endpoint.
type QuotaStatus struct {
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"reset_at"`
}

// QuotaExceededError is returned when the daily credit budget is exhausted.
// ResetAt is the end of the window the caller has to wait out.
type QuotaExceededError struct {
	ResetAt time.Time
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("Rate limit exceeded. You can send more messages after: %s",
		e.ResetAt.UTC().Format(time.RFC3339))
}

// UnknownModelError is returned when Admit is called with a model that is not
// on the allow-list. Handlers validate against the catalog before calling
// Admit, so hitting this indicates a programming error upstream.
type UnknownModelError struct {
	Model string
}

func (e *UnknownModelError) Error() string {
	return fmt.Sprintf("Invalid model: %s", e.Model)
}

// startOfDay truncates t to midnight in t's location. Windows are anchored to
// calendar-day boundaries, not to the first request of the day.
func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
