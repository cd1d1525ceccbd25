package gcp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
)

// ErrObjectExists is returned by Upload when the destination is already taken.
var ErrObjectExists = errors.New("object already exists")

// signedURLExpiry matches the long-lived links the web client has always received.
var signedURLExpiry = time.Date(2500, time.March, 1, 0, 0, 0, 0, time.UTC)

// ObjectStore wraps one Cloud Storage bucket.
type ObjectStore struct {
	client *storage.Client
	bucket string
}

// NewObjectStore creates a storage client bound to bucket.
func NewObjectStore(ctx context.Context, bucket string) (*ObjectStore, error) {
	if bucket == "" {
		return nil, fmt.Errorf("bucket must be provided to create an object store")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Storage client: %w", err)
	}
	return &ObjectStore{client: client, bucket: bucket}, nil
}

// Bucket returns the bucket name.
func (s *ObjectStore) Bucket() string { return s.bucket }

// Exists reports whether the object is currently visible.
func (s *ObjectStore) Exists(ctx context.Context, path string) (bool, error) {
	_, err := s.client.Bucket(s.bucket).Object(path).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat gs://%s/%s: %w", s.bucket, path, err)
	}
	return true, nil
}

// Download reads the whole object into memory.
func (s *ObjectStore) Download(ctx context.Context, path string) ([]byte, error) {
	r, err := s.client.Bucket(s.bucket).Object(path).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get GCS object reader for gs://%s/%s: %w", s.bucket, path, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read gs://%s/%s: %w", s.bucket, path, err)
	}
	return data, nil
}

// Upload writes data only if the object does not exist yet.
func (s *ObjectStore) Upload(ctx context.Context, path string, data []byte, contentType string) error {
	w := s.client.Bucket(s.bucket).Object(path).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return uploadError(path, "failed to write to GCS", err)
	}
	if err := w.Close(); err != nil {
		return uploadError(path, "failed to finalize GCS write", err)
	}
	return nil
}

func uploadError(path, msg string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed {
		slog.Warn("Upload precondition failed.", "gcsObject", path)
		return fmt.Errorf("%s: %w", path, ErrObjectExists)
	}
	return fmt.Errorf("%s %s: %w", msg, path, err)
}

// SignedURL issues a read-only URL that effectively never expires. V2 signing is
// used because V4 caps expiry at seven days.
func (s *ObjectStore) SignedURL(ctx context.Context, path string) (string, error) {
	u, err := s.client.Bucket(s.bucket).SignedURL(path, &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV2,
		Method:  http.MethodGet,
		Expires: signedURLExpiry,
	})
	if err != nil {
		return "", fmt.Errorf("failed to sign URL for gs://%s/%s: %w", s.bucket, path, err)
	}
	return u, nil
}

// Close releases the underlying client.
func (s *ObjectStore) Close() error {
	return s.client.Close()
}
