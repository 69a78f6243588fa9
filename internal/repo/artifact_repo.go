// This file provides repository functions for artifacts and their pages.
//
// All functions are context-aware and accept a *gorm.DB handle, so they can
// run inside a caller's transaction. Page state transitions are written as
// conditional updates (WHERE state IN ...) so that concurrent callers cannot
// both move the same page:
//
//   - ClaimPages:     pending|failed     -> processing (per batch)
//   - CompletePage:   processing (batch) -> completed
//   - FailPage:       processing (batch) -> failed
//   - ReleasePages:   processing (batch) -> pending
//   - ResetProcessing processing (any)   -> pending, used at start-up
//
// Error semantics follow the rest of the package: missing rows return
// ErrNotFound (gorm.ErrRecordNotFound); a page no longer held by the calling
// batch returns ErrStaleClaim.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-page-restore/internal/domain"
)

// CreateArtifact inserts the artifact and its pages in one statement batch.
// Callers should pass a transaction handle when atomicity with other writes
// is needed.
func CreateArtifact(ctx context.Context, db *gorm.DB, a *domain.Artifact) error {
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now
	for i := range a.Pages {
		a.Pages[i].ArtifactID = a.ID
		if a.Pages[i].State == "" {
			a.Pages[i].State = domain.PagePending
		}
		a.Pages[i].UpdatedAt = now
	}
	return db.WithContext(ctx).Create(a).Error
}

// GetArtifact fetches an artifact by id without pages. Ownership is not
// checked here.
func GetArtifact(ctx context.Context, db *gorm.DB, id string) (*domain.Artifact, error) {
	var a domain.Artifact
	if err := db.WithContext(ctx).Where("id = ?", id).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// GetArtifactWithPages fetches an artifact and its pages ordered by index.
func GetArtifactWithPages(ctx context.Context, db *gorm.DB, id string) (*domain.Artifact, error) {
	var a domain.Artifact
	err := db.WithContext(ctx).
		Preload("Pages", func(tx *gorm.DB) *gorm.DB { return tx.Order("page_index") }).
		Where("id = ?", id).
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// CountArtifacts returns the number of artifacts owned by userID.
func CountArtifacts(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Artifact{}).
		Where("user_id = ?", userID).
		Count(&total).Error
	return total, err
}

// ListArtifactsPage returns a page of a user's artifacts, newest first.
func ListArtifactsPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.Artifact, error) {
	var out []domain.Artifact
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Order("id").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// DeleteArtifact removes an artifact row; pages cascade. It refuses (returns
// ErrStaleClaim) while any page is processing.
func DeleteArtifact(ctx context.Context, db *gorm.DB, id string) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var busy int64
		if err := tx.Model(&domain.Page{}).
			Where("artifact_id = ? AND state = ?", id, domain.PageProcessing).
			Count(&busy).Error; err != nil {
			return err
		}
		if busy > 0 {
			return ErrStaleClaim
		}
		if err := tx.Where("artifact_id = ?", id).Delete(&domain.Page{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&domain.Artifact{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// ListPages returns every page of an artifact ordered by index.
func ListPages(ctx context.Context, db *gorm.DB, artifactID string) ([]domain.Page, error) {
	var out []domain.Page
	err := db.WithContext(ctx).
		Where("artifact_id = ?", artifactID).
		Order("page_index").
		Find(&out).Error
	return out, err
}

// GetPage fetches a single page, or ErrNotFound.
func GetPage(ctx context.Context, db *gorm.DB, artifactID string, index int) (*domain.Page, error) {
	var p domain.Page
	err := db.WithContext(ctx).
		Where("artifact_id = ? AND page_index = ?", artifactID, index).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ClaimPages moves the given pages from pending or failed to processing on
// behalf of batchID and returns how many rows moved. Callers compare the
// result with len(indices) inside a transaction and roll back on mismatch.
func ClaimPages(ctx context.Context, db *gorm.DB, artifactID, batchID string, indices []int) (int64, error) {
	res := db.WithContext(ctx).
		Model(&domain.Page{}).
		Where("artifact_id = ? AND page_index IN ? AND state IN ?",
			artifactID, indices, []string{domain.PagePending, domain.PageFailed}).
		Updates(map[string]any{
			"state":      domain.PageProcessing,
			"requested":  true,
			"batch_id":   batchID,
			"error":      "",
			"updated_at": time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}

// CompletePage marks a claimed page completed with its result reference.
func CompletePage(ctx context.Context, db *gorm.DB, artifactID string, index int, batchID, resultKey, resultMIME string, attempts int) error {
	return finishPage(ctx, db, artifactID, index, batchID, map[string]any{
		"state":       domain.PageCompleted,
		"result_key":  resultKey,
		"result_mime": resultMIME,
		"error":       "",
		"attempts":    gorm.Expr("attempts + ?", attempts),
	})
}

// FailPage marks a claimed page failed with an error summary.
func FailPage(ctx context.Context, db *gorm.DB, artifactID string, index int, batchID, summary string, attempts int) error {
	return finishPage(ctx, db, artifactID, index, batchID, map[string]any{
		"state":    domain.PageFailed,
		"error":    summary,
		"attempts": gorm.Expr("attempts + ?", attempts),
	})
}

func finishPage(ctx context.Context, db *gorm.DB, artifactID string, index int, batchID string, changes map[string]any) error {
	changes["updated_at"] = time.Now().UTC()
	res := db.WithContext(ctx).
		Model(&domain.Page{}).
		Where("artifact_id = ? AND page_index = ? AND state = ? AND batch_id = ?",
			artifactID, index, domain.PageProcessing, batchID).
		Updates(changes)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleClaim
	}
	return nil
}

// ReleasePages returns claimed-but-unstarted pages of batchID to pending.
func ReleasePages(ctx context.Context, db *gorm.DB, artifactID, batchID string, indices []int) (int64, error) {
	if len(indices) == 0 {
		return 0, nil
	}
	res := db.WithContext(ctx).
		Model(&domain.Page{}).
		Where("artifact_id = ? AND page_index IN ? AND state = ? AND batch_id = ?",
			artifactID, indices, domain.PageProcessing, batchID).
		Updates(map[string]any{
			"state":      domain.PagePending,
			"batch_id":   "",
			"updated_at": time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}

// ResetProcessing returns every processing page to pending. It is meant for
// start-up, when no batch can still be running.
func ResetProcessing(ctx context.Context, db *gorm.DB) (int64, error) {
	res := db.WithContext(ctx).
		Model(&domain.Page{}).
		Where("state = ?", domain.PageProcessing).
		Updates(map[string]any{
			"state":      domain.PagePending,
			"batch_id":   "",
			"updated_at": time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}

// CountBatchCompleted returns how many pages batchID completed.
func CountBatchCompleted(ctx context.Context, db *gorm.DB, batchID string) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.Page{}).
		Where("batch_id = ? AND state = ?", batchID, domain.PageCompleted).
		Count(&n).Error
	return n, err
}

// FailedPageIndices lists the indices of failed pages, ascending.
func FailedPageIndices(ctx context.Context, db *gorm.DB, artifactID string) ([]int, error) {
	var out []int
	err := db.WithContext(ctx).
		Model(&domain.Page{}).
		Where("artifact_id = ? AND state = ?", artifactID, domain.PageFailed).
		Order("page_index").
		Pluck("page_index", &out).Error
	return out, err
}
