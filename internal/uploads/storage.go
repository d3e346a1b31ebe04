package uploads

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/sparkchat-app/sparkchat/internal/config"
)

// Storage wraps the MinIO client for upload objects.
type Storage struct {
	client *minio.Client
	bucket string
}

// NewStorage connects to MinIO and ensures the uploads bucket exists.
func NewStorage(ctx context.Context, cfg config.StorageConfig) (*Storage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("creating MinIO client: %w", err)
	}

	s := &Storage{client: client, bucket: cfg.Bucket}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("checking bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("creating bucket %s: %w", cfg.Bucket, err)
		}
		slog.Info("created storage bucket", "bucket", cfg.Bucket)
	}

	return s, nil
}

// Put stores an object under the given key.
func (s *Storage) Put(ctx context.Context, objectKey string, reader io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, objectKey, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("storing object %s: %w", objectKey, err)
	}
	return nil
}

// PresignedURL returns a time-limited download URL for an object.
func (s *Storage) PresignedURL(ctx context.Context, objectKey string, expiry time.Duration) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, objectKey, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("presigning object %s: %w", objectKey, err)
	}
	return u.String(), nil
}

// Remove deletes an object.
func (s *Storage) Remove(ctx context.Context, objectKey string) error {
	err := s.client.RemoveObject(ctx, s.bucket, objectKey, minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("removing object %s: %w", objectKey, err)
	}
	return nil
}
