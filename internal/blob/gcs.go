package blob

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"

	"github.com/tbourn/go-page-restore/internal/config"
)

// GCS stores objects in a Google Cloud Storage bucket using application
// default credentials.
type GCS struct {
	client *storage.Client
	bucket *storage.BucketHandle
	prefix string
}

func NewGCS(ctx context.Context, cfg config.BlobConfig) (*GCS, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}
	return &GCS{client: client, bucket: client.Bucket(cfg.Bucket), prefix: cfg.Prefix}, nil
}

func (g *GCS) Put(ctx context.Context, key string, data []byte, contentType string) error {
	w := g.bucket.Object(joinPrefix(g.prefix, key)).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize GCS write: %w", err)
	}
	return nil
}

func (g *GCS) Get(ctx context.Context, key string) ([]byte, error) {
	r, err := g.bucket.Object(joinPrefix(g.prefix, key)).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open GCS object: %w", err)
	}
	defer r.Close()
	return io.ReadAll(r)
}

func (g *GCS) Delete(ctx context.Context, key string) error {
	err := g.bucket.Object(joinPrefix(g.prefix, key)).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("failed to delete GCS object: %w", err)
	}
	return nil
}

func (g *GCS) DeletePrefix(ctx context.Context, prefix string) error {
	it := g.bucket.Objects(ctx, &storage.Query{Prefix: joinPrefix(g.prefix, prefix)})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to list GCS objects: %w", err)
		}
		if err := g.bucket.Object(attrs.Name).Delete(ctx); err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
			return fmt.Errorf("failed to delete GCS object: %w", err)
		}
	}
}

// Close releases the underlying client.
func (g *GCS) Close() error { return g.client.Close() }
