package gcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
)

// GetEnv is a helper to read an environment variable or return a default value.
func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// ErrObjectNotFound is returned by Download for objects that do not exist.
var ErrObjectNotFound = errors.New("object not found")

// BlobStore wraps a single GCS bucket holding uploaded and generated PDFs.
type BlobStore struct {
	client *storage.Client
	bucket *storage.BucketHandle
	name   string
}

func NewBlobStore(ctx context.Context, bucketName string) (*BlobStore, error) {
	if bucketName == "" {
		return nil, fmt.Errorf("bucketName must be provided to create a blob store")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &BlobStore{
		client: client,
		bucket: client.Bucket(bucketName),
		name:   bucketName,
	}, nil
}

// Upload writes content to objectName, retrying transient failures with
// exponential backoff. Permanent (4xx) errors fail immediately.
func (s *BlobStore) Upload(ctx context.Context, objectName, contentType string, content []byte) error {
	const maxRetries = 4
	var backoff = 1 * time.Second
	var lastErr error

	for i := 0; i < maxRetries; i++ {
		err := func() error {
			w := s.bucket.Object(objectName).NewWriter(ctx)
			w.ContentType = contentType
			if _, err := w.Write(content); err != nil {
				_ = w.Close()
				return err
			}
			return w.Close()
		}()
		if err == nil {
			return nil
		}

		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code >= 400 && gerr.Code < 500 {
			return fmt.Errorf("upload for %s rejected: %w", objectName, err)
		}

		lastErr = err
		slog.Warn(
			"Upload failed, will retry.",
			"gcsObject", objectName,
			"attempt", i+1,
			"maxRetries", maxRetries,
			"backoff", backoff.String(),
			"error", err,
		)

		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("upload for %s failed after all retries: %w", objectName, lastErr)
}

// Download reads the full content of objectName.
func (s *BlobStore) Download(ctx context.Context, objectName string) ([]byte, error) {
	r, err := s.bucket.Object(objectName).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("%s: %w", objectName, ErrObjectNotFound)
		}
		return nil, fmt.Errorf("opening %s for download: %w", objectName, err)
	}
	defer r.Close()

	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", objectName, err)
	}
	return b, nil
}

// Delete removes objectName. Deleting an object that is already gone is not
// an error.
func (s *BlobStore) Delete(ctx context.Context, objectName string) error {
	err := s.bucket.Object(objectName).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("deleting %s: %w", objectName, err)
	}
	return nil
}

// SignedURL returns a V4 signed GET URL for objectName, valid for one hour.
func (s *BlobStore) SignedURL(objectName string) (string, error) {
	url, err := s.bucket.SignedURL(objectName, &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  "GET",
		Expires: time.Now().Add(1 * time.Hour),
	})
	if err != nil {
		return "", fmt.Errorf("signing URL for %s: %w", objectName, err)
	}
	return url, nil
}

func (s *BlobStore) Close() error {
	return s.client.Close()
}
