package messages

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/sparkchat-app/sparkchat/internal/chats"
)

type Service struct {
	repo    Repository
	chatSvc *chats.Service
}

func NewService(repo Repository, chatSvc *chats.Service) *Service {
	return &Service{repo: repo, chatSvc: chatSvc}
}

func (s *Service) Create(ctx context.Context, chatID uuid.UUID, role, content, model string) (*Message, error) {
	msg := &Message{
		ID:        uuid.New(),
		ChatID:    chatID,
		Role:      role,
		Content:   content,
		Model:     model,
		CreatedAt: time.Now(),
	}
	if err := s.repo.Create(ctx, msg); err != nil {
		return nil, err
	}

	// New activity moves the chat up in the sidebar ordering.
	_ = s.chatSvc.Touch(ctx, chatID)

	return msg, nil
}

func (s *Service) ListByChat(ctx context.Context, chatID uuid.UUID) ([]*Message, error) {
	return s.repo.ListByChat(ctx, chatID)
}
