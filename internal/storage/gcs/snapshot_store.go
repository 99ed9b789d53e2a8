// Package gcs archives page snapshots in Google Cloud Storage.
package gcs

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/storage"
)

const snapshotContentType = "text/html; charset=utf-8"

// Config captures the parameters required to write to GCS.
type Config struct {
	Bucket string
}

// SnapshotStore writes page bodies to a configured bucket.
type SnapshotStore struct {
	client *storage.Client
	bucket string
}

// New creates a GCS-backed snapshot store. The client stays owned by the caller.
func New(client *storage.Client, cfg Config) (*SnapshotStore, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("archive.bucket is required")
	}
	return &SnapshotStore{client: client, bucket: cfg.Bucket}, nil
}

// SaveSnapshot uploads body to key and returns a gs:// URI.
func (s *SnapshotStore) SaveSnapshot(ctx context.Context, key string, body []byte) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("snapshot key is required")
	}
	writer := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	writer.ContentType = snapshotContentType
	if _, err := writer.Write(body); err != nil {
		if closeErr := writer.Close(); closeErr != nil {
			return "", fmt.Errorf("write object: %w (close writer: %v)", err, closeErr)
		}
		return "", fmt.Errorf("write object: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close writer: %w", err)
	}
	return fmt.Sprintf("gs://%s/%s", s.bucket, key), nil
}
