// Package blob stores the binary payloads of artifacts: the uploaded
// original, one source object per page, and one result object per enhanced
// page. Metadata lives in the relational store; this package only moves
// bytes. Backends: local filesystem, MinIO, Google Cloud Storage and any
// S3-compatible service.
package blob

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/tbourn/go-page-restore/internal/config"
)

// ErrNotFound is returned by Get when the key does not exist.
var ErrNotFound = errors.New("blob not found")

// Store is a flat key/value object store. Put overwrites; Delete of a
// missing key is not an error.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	DeletePrefix(ctx context.Context, prefix string) error
}

// New builds the backend selected by cfg.Backend.
func New(ctx context.Context, cfg config.BlobConfig) (Store, error) {
	switch cfg.Backend {
	case "fs", "":
		return NewFS(cfg.Root)
	case "minio":
		return NewMinio(ctx, cfg)
	case "gcs":
		return NewGCS(ctx, cfg)
	case "s3":
		return NewS3(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported blob backend %q", cfg.Backend)
	}
}

// ArtifactPrefix is the common prefix of every object of an artifact.
func ArtifactPrefix(artifactID string) string {
	return "artifacts/" + artifactID + "/"
}

// OriginalKey addresses the upload as received.
func OriginalKey(artifactID, ext string) string {
	return ArtifactPrefix(artifactID) + "original" + normExt(ext)
}

// SourceKey addresses the source payload of one page.
func SourceKey(artifactID string, index int, ext string) string {
	return fmt.Sprintf("%ssource/%05d%s", ArtifactPrefix(artifactID), index, normExt(ext))
}

// ResultKey addresses the enhanced output of one page.
func ResultKey(artifactID string, index int, ext string) string {
	return fmt.Sprintf("%sresult/%05d%s", ArtifactPrefix(artifactID), index, normExt(ext))
}

func normExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" || strings.HasPrefix(ext, ".") {
		return ext
	}
	return "." + ext
}

// joinPrefix prepends the configured bucket prefix, if any.
func joinPrefix(prefix, key string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return key
	}
	return path.Join(prefix, key) + trailingSlash(key)
}

func trailingSlash(key string) string {
	if strings.HasSuffix(key, "/") {
		return "/"
	}
	return ""
}
