package uploads

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
)

// urlExpiry bounds how long a presigned download link stays valid.
const urlExpiry = 15 * time.Minute

type Service struct {
	repo    Repository
	storage *Storage
}

func NewService(repo Repository, storage *Storage) *Service {
	return &Service{repo: repo, storage: storage}
}

// Create stores the file in object storage and records it. The object key
// namespaces files per user so keys never collide across accounts.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, filename, contentType string, size int64, reader io.Reader) (*Upload, error) {
	id := uuid.New()
	objectKey := fmt.Sprintf("%s/%s/%s", userID, id, filename)

	if err := s.storage.Put(ctx, objectKey, reader, size, contentType); err != nil {
		return nil, err
	}

	up := &Upload{
		ID:          id,
		UserID:      userID,
		ObjectKey:   objectKey,
		Filename:    filename,
		ContentType: contentType,
		SizeBytes:   size,
		CreatedAt:   time.Now(),
	}
	if err := s.repo.Create(ctx, up); err != nil {
		// Roll back the stored object so storage and the table stay in sync.
		_ = s.storage.Remove(ctx, objectKey)
		return nil, err
	}
	return up, nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*Upload, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByUser(ctx context.Context, userID uuid.UUID) ([]*Upload, error) {
	return s.repo.ListByUser(ctx, userID)
}

// DownloadURL returns a presigned URL for the upload's object.
func (s *Service) DownloadURL(ctx context.Context, up *Upload) (string, time.Time, error) {
	expiresAt := time.Now().Add(urlExpiry)
	u, err := s.storage.PresignedURL(ctx, up.ObjectKey, urlExpiry)
	if err != nil {
		return "", time.Time{}, err
	}
	return u, expiresAt, nil
}
