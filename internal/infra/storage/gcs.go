package storage

import (
	"context"
	"fmt"

	gcs "cloud.google.com/go/storage"
)

// GCS stores uploaded files in a Google Cloud Storage bucket. Used when
// STORAGE_BACKEND=gcs; credentials come from the ambient environment.
type GCS struct {
	client *gcs.Client
	bucket string
}

// NewGCS creates a GCS-backed blob store.
func NewGCS(ctx context.Context, bucket string) (*GCS, error) {
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}
	return &GCS{client: client, bucket: bucket}, nil
}

// Put writes content to the bucket under a collision-free object name and
/// returns the gs:// URI.
func (g *GCS) Put(ctx context.Context, filename string, content []byte) (string, error) {
	name := objectName(filename)
	w := g.client.Bucket(g.bucket).Object(name).NewWriter(ctx)
	if _, err := w.Write(content); err != nil {
		w.Close()
		return "", fmt.Errorf("write gcs object: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("close gcs writer: %w", err)
	}
	return fmt.Sprintf("gs://%s/%s", g.bucket, name), nil
}

// Close releases the underlying client.
func (g *GCS) Close() error {
	return g.client.Close()
}
