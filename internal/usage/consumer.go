package usage

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/sparkchat-app/sparkchat/internal/events"
)

// Consumer drains usage events off JetStream and persists them to the
// usage log table.
type Consumer struct {
	consumerMgr *events.ConsumerManager
	repo        Repository
}

func NewConsumer(consumerMgr *events.ConsumerManager, repo Repository) *Consumer {
	return &Consumer{consumerMgr: consumerMgr, repo: repo}
}

// Start begins the consume loop. It returns when ctx is canceled.
func (c *Consumer) Start(ctx context.Context) error {
	consumer, err := c.consumerMgr.EnsureConsumer(ctx, events.StreamEvents, "usage-log", events.SubjectUsage)
	if err != nil {
		return err
	}

	slog.Info("usage consumer started", "consumer", "usage-log")

	for {
		msgs, err := consumer.Fetch(10, jetstream.FetchMaxWait(events.FetchTimeout))
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			slog.Debug("fetching usage events", "error", err)
			continue
		}

		for msg := range msgs.Messages() {
			c.processEvent(ctx, msg)
		}

		if ctx.Err() != nil {
			return nil
		}
	}
}

func (c *Consumer) processEvent(ctx context.Context, msg jetstream.Msg) {
	var ev events.UsageEvent
	if err := json.Unmarshal(msg.Data(), &ev); err != nil {
		slog.Error("unmarshaling usage event", "error", err)
		_ = msg.Nak()
		return
	}

	entry := &Entry{
		ID:           uuid.New(),
		RequestID:    ev.RequestID,
		UserID:       ev.UserID,
		ChatID:       ev.ChatID,
		Model:        ev.Model,
		Provider:     ev.Provider,
		CreditsSpent: ev.CreditsSpent,
		PromptChars:  ev.PromptChars,
		OutputChars:  ev.OutputChars,
		DurationMS:   ev.DurationMS,
		Outcome:      ev.Outcome,
		CreatedAt:    ev.Timestamp,
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	if err := c.repo.Insert(ctx, entry); err != nil {
		slog.Error("persisting usage entry", "error", err, "request_id", ev.RequestID)
		_ = msg.Nak()
		return
	}

	_ = msg.Ack()
}
