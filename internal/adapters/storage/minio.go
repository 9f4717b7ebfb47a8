package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// StagingStore buffers Drive uploads in a MinIO bucket so the incoming
// multipart body does not have to be held in memory while the Drive
// upload runs.
type StagingStore struct {
	client *minio.Client
	bucket string
}

func NewStagingStore(endpoint, accessKey, secretKey, bucket string, useSSL bool) (*StagingStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	exists, err := client.BucketExists(context.Background(), bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(context.Background(), bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return &StagingStore{client: client, bucket: bucket}, nil
}

// Stage writes the reader to a uniquely named object and returns its key.
func (s *StagingStore) Stage(ctx context.Context, r io.Reader, size int64, contentType string) (string, error) {
	key := fmt.Sprintf("uploads/%s", uuid.New().String())
	_, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to stage upload: %w", err)
	}
	return key, nil
}

// Open returns a reader over a staged object.
func (s *StagingStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to open staged upload: %w", err)
	}
	return obj, nil
}

// Discard removes a staged object once the Drive upload has finished.
func (s *StagingStore) Discard(ctx context.Context, key string) error {
	return s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
}
