package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ObjectStorage stores issue photos and hands out time limited URLs.
type ObjectStorage interface {
	Upload(ctx context.Context, name string, r io.Reader, size int64, contentType string) error
	PresignedURL(ctx context.Context, name string, expiry time.Duration) (string, error)
	Delete(ctx context.Context, name string) error
}

// ObjectName builds a collision free key under issues/, keeping the
// uploaded file's extension.
func ObjectName(filename string) string {
	ext := strings.TrimPrefix(path.Ext(filename), ".")
	if ext == "" {
		ext = "jpg"
	}
	return "issues/" + uuid.NewString() + "." + strings.ToLower(ext)
}

type MinioStorage struct {
	client *minio.Client
	bucket string
}

// NewMinioStorage connects to the endpoint and creates the bucket when it
// does not exist yet.
func NewMinioStorage(ctx context.Context, endpoint, accessKey, secretKey, bucket string, secure bool) (*MinioStorage, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", bucket, err)
		}
		slog.Info("Created storage bucket", "bucket", bucket)
	}
	return &MinioStorage{client: client, bucket: bucket}, nil
}

func (s *MinioStorage) Upload(ctx context.Context, name string, r io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, name, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("upload %s: %w", name, err)
	}
	return nil
}

func (s *MinioStorage) PresignedURL(ctx context.Context, name string, expiry time.Duration) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, name, expiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", name, err)
	}
	return u.String(), nil
}

func (s *MinioStorage) Delete(ctx context.Context, name string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, name, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("delete %s: %w", name, err)
	}
	return nil
}
