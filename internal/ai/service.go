package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sparkchat-app/sparkchat/internal/catalog"
	"github.com/sparkchat-app/sparkchat/internal/events"
	"github.com/sparkchat-app/sparkchat/internal/messages"
	"github.com/sparkchat-app/sparkchat/internal/metrics"
)

// ErrProviderNotConfigured is returned when a model's provider has no API key.
var ErrProviderNotConfigured = errors.New("provider not configured")

// Service routes completion requests to the right upstream provider, persists
// the resulting assistant message, and emits a usage event per request.
type Service struct {
	providers map[catalog.Provider]Provider
	msgSvc    *messages.Service
	publisher *events.Publisher
}

// NewService creates a Service. publisher may be nil when NATS is not
// configured; usage events are then skipped.
func NewService(providers map[catalog.Provider]Provider, msgSvc *messages.Service, publisher *events.Publisher) *Service {
	return &Service{
		providers: providers,
		msgSvc:    msgSvc,
		publisher: publisher,
	}
}

// StreamParams carries everything Stream needs for one completion.
type StreamParams struct {
	RequestID    string
	UserID       uuid.UUID
	ChatID       uuid.UUID
	Model        catalog.Model
	History      []PromptMessage
	CreditsSpent int
}

// Stream runs the upstream completion, forwarding deltas through onDelta.
// On success the assistant message is persisted and returned. The usage
// event is published for every outcome, including failures.
func (s *Service) Stream(ctx context.Context, p StreamParams, onDelta func(string) error) (*messages.Message, error) {
	provider, ok := s.providers[p.Model.Provider]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotConfigured, p.Model.Provider)
	}

	start := time.Now()
	text, err := provider.StreamCompletion(ctx, p.Model.ID, p.History, onDelta)
	elapsed := time.Since(start)

	metrics.AIRequestDuration.WithLabelValues(p.Model.ID).Observe(elapsed.Seconds())

	outcome := "ok"
	if err != nil {
		outcome = "provider_error"
		if ctx.Err() != nil {
			outcome = "canceled"
		}
	}
	metrics.AIRequestsTotal.WithLabelValues(p.Model.ID, outcome).Inc()

	s.publishUsage(p, text, elapsed, outcome)

	if err != nil {
		return nil, err
	}

	msg, perr := s.msgSvc.Create(ctx, p.ChatID, messages.RoleAssistant, text, p.Model.ID)
	if perr != nil {
		// The completion already streamed to the client; losing the
		// persisted copy is logged but not surfaced as a failure.
		slog.Error("persisting assistant message", "error", perr, "chat_id", p.ChatID)
		return &messages.Message{
			ID:        uuid.New(),
			ChatID:    p.ChatID,
			Role:      messages.RoleAssistant,
			Content:   text,
			Model:     p.Model.ID,
			CreatedAt: time.Now(),
		}, nil
	}
	return msg, nil
}

func (s *Service) publishUsage(p StreamParams, text string, elapsed time.Duration, outcome string) {
	if s.publisher == nil {
		return
	}

	promptChars := 0
	for _, m := range p.History {
		promptChars += len(m.Content)
	}

	ev := events.UsageEvent{
		RequestID:    p.RequestID,
		UserID:       p.UserID,
		ChatID:       p.ChatID,
		Model:        p.Model.ID,
		Provider:     string(p.Model.Provider),
		CreditsSpent: p.CreditsSpent,
		PromptChars:  promptChars,
		OutputChars:  len(text),
		DurationMS:   elapsed.Milliseconds(),
		Outcome:      outcome,
		Timestamp:    time.Now(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.publisher.PublishUsage(ctx, ev); err != nil {
		slog.Warn("publishing usage event", "error", err, "request_id", p.RequestID)
	}
}
