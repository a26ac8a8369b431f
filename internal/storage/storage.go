package storage

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/mohnish10-leo/moxievault/internal/config"
)

// Signed URL expiry bounds. Whatever the caller asks for is clamped into
// [MinExpiry, MaxExpiry] so links cannot be minted with unbounded
// lifetimes.
const (
	MinExpiry     = 60 * time.Second
	MaxExpiry     = 3600 * time.Second
	DefaultExpiry = 300 * time.Second
)

// Store wraps the MinIO client for the vault-files bucket
type Store struct {
	client *minio.Client
	bucket string
}

// Connect creates the MinIO client and ensures the bucket exists
func Connect(cfg *config.Config) (*Store, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object storage client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %q: %w", cfg.MinioBucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %q: %w", cfg.MinioBucket, err)
		}
		log.Printf("Created object storage bucket %q", cfg.MinioBucket)
	}

	log.Println("Object storage connected successfully")

	return &Store{client: client, bucket: cfg.MinioBucket}, nil
}

// ClampExpiry normalizes an explicitly requested expiry in seconds into
// the allowed range; zero and negative values clamp up to the minimum.
// Callers that received no value at all use DefaultExpiry instead.
func ClampExpiry(seconds int) time.Duration {
	expiry := time.Duration(seconds) * time.Second
	if expiry < MinExpiry {
		return MinExpiry
	}
	if expiry > MaxExpiry {
		return MaxExpiry
	}
	return expiry
}

// ObjectPath builds an opaque storage path for a new upload. The original
// file name never appears in the path, only its extension.
func ObjectPath(ownerID, vaultID, originalName string) string {
	ext := strings.TrimPrefix(filepath.Ext(originalName), ".")
	if ext == "" {
		ext = "bin"
	}
	return fmt.Sprintf("%s/%s/%s.%s", ownerID, vaultID, uuid.NewString(), ext)
}

// Upload writes object bytes under the given path
func (s *Store) Upload(ctx context.Context, path string, r io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, path, r, size, minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: "max-age=3600",
	})
	if err != nil {
		return fmt.Errorf("failed to upload object %q: %w", path, err)
	}
	return nil
}

// PresignedURL mints a time-limited signed GET URL for an object. The
// expiry must already be clamped by the caller.
func (s *Store) PresignedURL(ctx context.Context, path string, expiry time.Duration) (string, error) {
	signed, err := s.client.PresignedGetObject(ctx, s.bucket, path, expiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("failed to presign object %q: %w", path, err)
	}
	return signed.String(), nil
}

// Remove deletes object bytes. Used as a best-effort follow-up after a
// file's metadata is soft-deleted.
func (s *Store) Remove(ctx context.Context, path string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, path, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to remove object %q: %w", path, err)
	}
	return nil
}
