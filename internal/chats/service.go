package chats

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, userID uuid.UUID, title string) (*Chat, error) {
	now := time.Now()
	chat := &Chat{
		ID:        uuid.New(),
		UserID:    userID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, chat); err != nil {
		return nil, err
	}
	return chat, nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*Chat, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByUser(ctx context.Context, userID uuid.UUID, params ListChatsParams) ([]*Chat, int64, error) {
	offset := (params.Page - 1) * params.PageSize

	chats, err := s.repo.ListByUser(ctx, userID, params.PageSize, offset)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.repo.CountByUser(ctx, userID)
	if err != nil {
		return nil, 0, err
	}

	return chats, total, nil
}

func (s *Service) Rename(ctx context.Context, id uuid.UUID, title string) error {
	return s.repo.Rename(ctx, id, title)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

// Touch bumps a chat's updated_at so it sorts to the top of the sidebar.
func (s *Service) Touch(ctx context.Context, id uuid.UUID) error {
	return s.repo.Touch(ctx, id)
}
