// Package services – ArtifactStore
//
// ArtifactStore owns uploaded bytes and their derived results. An upload is
// sniffed, split into per-page sources, written to blob storage under
// artifacts/{id}/ and recorded with all pages Pending. Results are written to
// blob storage only; moving a page to Completed is the orchestrator's job, so
// a page never becomes Completed before its bytes exist.
//
// The store performs no ownership checks.
package services

import (
	"context"
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"

	"github.com/tbourn/go-page-restore/internal/blob"
	"github.com/tbourn/go-page-restore/internal/document"
	"github.com/tbourn/go-page-restore/internal/domain"
	"github.com/tbourn/go-page-restore/internal/observability"
	"github.com/tbourn/go-page-restore/internal/repo"
)

const (
	filenameMaxLen = 255
	uploadWorkers  = 8
)

// ArtifactStore persists artifacts, page sources and page results.
type ArtifactStore struct {
	DB    *gorm.DB
	Blobs blob.Store

	// MaxPages caps pages per upload; 0 disables the cap.
	MaxPages int
	// MaxBytes caps upload size; 0 disables the cap.
	MaxBytes int64
}

// NewArtifactStore constructs an ArtifactStore.
func NewArtifactStore(db *gorm.DB, blobs blob.Store, maxPages int, maxBytes int64) *ArtifactStore {
	return &ArtifactStore{DB: db, Blobs: blobs, MaxPages: maxPages, MaxBytes: maxBytes}
}

// Create stores data as a new artifact owned by ownerID. declaredPages, when
// positive, must match the detected page count.
func (s *ArtifactStore) Create(ctx context.Context, ownerID, filename string, data []byte, declaredPages int) (*domain.Artifact, error) {
	tr := otel.Tracer("services/ArtifactStore")
	ctx, span := tr.Start(ctx, "Create",
		trace.WithAttributes(
			attribute.String("user.id", ownerID),
			attribute.Int("size_bytes", len(data)),
		),
	)
	defer span.End()

	if s.MaxBytes > 0 && int64(len(data)) > s.MaxBytes {
		return nil, fmt.Errorf("%w: %d bytes > %d", ErrPayloadTooLarge, len(data), s.MaxBytes)
	}

	doc, err := document.Inspect(data, s.MaxPages)
	switch {
	case errors.Is(err, document.ErrUnsupported):
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedContentType, err)
	case errors.Is(err, document.ErrEmpty), errors.Is(err, document.ErrCorrupt), errors.Is(err, document.ErrTooManyPages):
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	case err != nil:
		return nil, err
	}
	if declaredPages > 0 && declaredPages != len(doc.Pages) {
		return nil, fmt.Errorf("%w: declared %d pages, found %d", ErrInvalidRequest, declaredPages, len(doc.Pages))
	}

	id := uuid.NewString()
	a := &domain.Artifact{
		ID:          id,
		UserID:      ownerID,
		Filename:    normalizeFilename(filename, doc.Ext),
		Kind:        doc.Kind,
		ContentType: doc.MIME,
		SizeBytes:   int64(len(data)),
		TotalPages:  len(doc.Pages),
		SourceKey:   blob.OriginalKey(id, doc.Ext),
		Pages:       make([]domain.Page, 0, len(doc.Pages)),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uploadWorkers)
	g.Go(func() error { return s.Blobs.Put(gctx, a.SourceKey, data, doc.MIME) })
	for _, p := range doc.Pages {
		key := blob.SourceKey(id, p.Index, p.Ext)
		a.Pages = append(a.Pages, domain.Page{
			Index:      p.Index,
			State:      domain.PagePending,
			SourceKey:  key,
			SourceMIME: p.MIME,
			Width:      p.Width,
			Height:     p.Height,
		})
		if doc.Kind == domain.KindImage {
			// single-page images share the original blob
			a.Pages[len(a.Pages)-1].SourceKey = a.SourceKey
			continue
		}
		g.Go(func() error { return s.Blobs.Put(gctx, key, p.Data, p.MIME) })
	}
	if err := g.Wait(); err != nil {
		s.cleanup(ctx, id)
		return nil, fmt.Errorf("store upload: %w", err)
	}

	if err := repo.CreateArtifact(ctx, s.DB, a); err != nil {
		s.cleanup(ctx, id)
		return nil, err
	}

	observability.ArtifactUploaded(a.Kind)
	loggerFrom(ctx).Info().
		Str("artifact_id", id).
		Str("kind", a.Kind).
		Int("pages", a.TotalPages).
		Msg("artifact stored")
	return a, nil
}

func (s *ArtifactStore) cleanup(ctx context.Context, id string) {
	if err := s.Blobs.DeletePrefix(context.WithoutCancel(ctx), blob.ArtifactPrefix(id)); err != nil {
		loggerFrom(ctx).Warn().Err(err).Str("artifact_id", id).Msg("upload cleanup failed")
	}
}

// Get returns the artifact with its pages, or ErrNotFound.
func (s *ArtifactStore) Get(ctx context.Context, artifactID string) (*domain.Artifact, error) {
	a, err := repo.GetArtifactWithPages(ctx, s.DB, artifactID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrNotFound
	}
	return a, err
}

// List returns a page of ownerID's artifacts, newest first.
func (s *ArtifactStore) List(ctx context.Context, ownerID string, page, pageSize int) ([]domain.Artifact, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	total, err := repo.CountArtifacts(ctx, s.DB, ownerID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Artifact{}, 0, nil
	}
	items, err := repo.ListArtifactsPage(ctx, s.DB, ownerID, (page-1)*pageSize, pageSize)
	return items, total, err
}

// page loads one page row, mapping missing artifacts and indices to ErrNotFound.
func (s *ArtifactStore) page(ctx context.Context, artifactID string, index int) (*domain.Page, error) {
	if index < 0 {
		return nil, fmt.Errorf("%w: page %d", ErrNotFound, index)
	}
	p, err := repo.GetPage(ctx, s.DB, artifactID, index)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, fmt.Errorf("%w: page %d", ErrNotFound, index)
	}
	return p, err
}

// GetSourcePage returns the source bytes of one page and their MIME type.
func (s *ArtifactStore) GetSourcePage(ctx context.Context, artifactID string, index int) ([]byte, string, error) {
	p, err := s.page(ctx, artifactID, index)
	if err != nil {
		return nil, "", err
	}
	data, err := s.Blobs.Get(ctx, p.SourceKey)
	if errors.Is(err, blob.ErrNotFound) {
		return nil, "", fmt.Errorf("%w: source of page %d", ErrNotFound, index)
	}
	if err != nil {
		return nil, "", err
	}
	return data, p.SourceMIME, nil
}

// PutResult writes enhanced bytes for a page and returns the blob key. Last
// write wins.
func (s *ArtifactStore) PutResult(ctx context.Context, artifactID string, index int, data []byte, mime string) (string, error) {
	if _, err := s.page(ctx, artifactID, index); err != nil {
		return "", err
	}
	_, ext := document.DetectMIME(data)
	key := blob.ResultKey(artifactID, index, ext)
	if err := s.Blobs.Put(ctx, key, data, mime); err != nil {
		return "", fmt.Errorf("put result: %w", err)
	}
	return key, nil
}

// GetResult returns the enhanced bytes of a Completed page, or ErrNotReady.
func (s *ArtifactStore) GetResult(ctx context.Context, artifactID string, index int) ([]byte, string, error) {
	p, err := s.page(ctx, artifactID, index)
	if err != nil {
		return nil, "", err
	}
	if p.State != domain.PageCompleted || p.ResultKey == "" {
		return nil, "", fmt.Errorf("%w: page %d is %s", ErrNotReady, index, p.State)
	}
	data, err := s.Blobs.Get(ctx, p.ResultKey)
	if errors.Is(err, blob.ErrNotFound) {
		return nil, "", fmt.Errorf("%w: result of page %d missing", ErrNotReady, index)
	}
	if err != nil {
		return nil, "", err
	}
	return data, p.ResultMIME, nil
}

// Delete removes an artifact's rows and blobs. It fails with ErrPageConflict
// while any page is processing.
func (s *ArtifactStore) Delete(ctx context.Context, artifactID string) error {
	err := repo.DeleteArtifact(ctx, s.DB, artifactID)
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repo.ErrStaleClaim):
		return fmt.Errorf("%w: pages are processing", ErrPageConflict)
	case err != nil:
		return err
	}
	if err := s.Blobs.DeletePrefix(ctx, blob.ArtifactPrefix(artifactID)); err != nil {
		loggerFrom(ctx).Warn().Err(err).Str("artifact_id", artifactID).Msg("blob cleanup failed")
	}
	return nil
}

// normalizeFilename keeps the base name, NFC-normalized with collapsed
// whitespace, clipped to filenameMaxLen runes. Blank names fall back to
// "upload" plus ext.
func normalizeFilename(name, ext string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	name = norm.NFC.String(name)
	name = whitespaceRE.ReplaceAllString(strings.TrimSpace(name), " ")
	if name == "" || name == "." || name == "/" {
		name = "upload" + ext
	}
	if utf8.RuneCountInString(name) > filenameMaxLen {
		name = string([]rune(name)[:filenameMaxLen])
	}
	return name
}

var whitespaceRE = regexp.MustCompile(`\s+`)
