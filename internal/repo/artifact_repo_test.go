package repo

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-page-restore/internal/domain"
)

func seedArtifact(t *testing.T, db *gorm.DB, userID string, pages int) *domain.Artifact {
	t.Helper()
	id := uuid.NewString()
	a := &domain.Artifact{
		ID:          id,
		UserID:      userID,
		Filename:    "scan.pdf",
		Kind:        domain.KindDocument,
		ContentType: "application/pdf",
		SizeBytes:   1024,
		TotalPages:  pages,
		SourceKey:   "artifacts/" + id + "/original.pdf",
	}
	for i := 0; i < pages; i++ {
		a.Pages = append(a.Pages, domain.Page{
			Index:      i,
			SourceKey:  fmt.Sprintf("artifacts/%s/source/%05d.pdf", id, i),
			SourceMIME: "application/pdf",
			Width:      595,
			Height:     842,
		})
	}
	if err := CreateArtifact(context.Background(), db, a); err != nil {
		t.Fatalf("CreateArtifact: %v", err)
	}
	return a
}

func pageState(t *testing.T, db *gorm.DB, artifactID string, idx int) domain.Page {
	t.Helper()
	p, err := GetPage(context.Background(), db, artifactID, idx)
	if err != nil {
		t.Fatalf("GetPage(%d): %v", idx, err)
	}
	return *p
}

func TestCreateArtifact_PagesPendingAndOrdered(t *testing.T) {
	db := newTestDB(t)
	a := seedArtifact(t, db, "u1", 3)

	got, err := GetArtifactWithPages(context.Background(), db, a.ID)
	if err != nil {
		t.Fatalf("GetArtifactWithPages: %v", err)
	}
	if len(got.Pages) != 3 {
		t.Fatalf("expected 3 pages, got %d", len(got.Pages))
	}
	for i, p := range got.Pages {
		if p.Index != i || p.State != domain.PagePending || p.Requested {
			t.Fatalf("page %d unexpected: %+v", i, p)
		}
	}

	if _, err := GetPage(context.Background(), db, a.ID, 7); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for out-of-range page, got %v", err)
	}
}

func TestClaimPages_OnlyPendingOrFailed(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	a := seedArtifact(t, db, "u1", 3)

	n, err := ClaimPages(ctx, db, a.ID, "b1", []int{0, 1})
	if err != nil || n != 2 {
		t.Fatalf("claim: n=%d err=%v", n, err)
	}
	p := pageState(t, db, a.ID, 0)
	if p.State != domain.PageProcessing || !p.Requested || p.BatchID != "b1" {
		t.Fatalf("page 0 not claimed: %+v", p)
	}

	// Page 1 already processing, only page 2 moves.
	n, err = ClaimPages(ctx, db, a.ID, "b2", []int{1, 2})
	if err != nil || n != 1 {
		t.Fatalf("overlapping claim: n=%d err=%v", n, err)
	}
	if p := pageState(t, db, a.ID, 1); p.BatchID != "b1" {
		t.Fatalf("page 1 stolen by second batch: %+v", p)
	}
}

func TestCompleteAndFailPage_RequireHeldClaim(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	a := seedArtifact(t, db, "u1", 2)

	if _, err := ClaimPages(ctx, db, a.ID, "b1", []int{0, 1}); err != nil {
		t.Fatalf("claim: %v", err)
	}

	if err := CompletePage(ctx, db, a.ID, 0, "other", "k", "image/png", 1); !errors.Is(err, ErrStaleClaim) {
		t.Fatalf("expected ErrStaleClaim for foreign batch, got %v", err)
	}
	if err := CompletePage(ctx, db, a.ID, 0, "b1", "res/0.png", "image/png", 2); err != nil {
		t.Fatalf("complete: %v", err)
	}
	p := pageState(t, db, a.ID, 0)
	if p.State != domain.PageCompleted || p.ResultKey != "res/0.png" || p.Attempts != 2 {
		t.Fatalf("unexpected completed page: %+v", p)
	}
	if n, err := CountBatchCompleted(ctx, db, "b1"); err != nil || n != 1 {
		t.Fatalf("CountBatchCompleted = %d, %v", n, err)
	}
	// A second finish on the same page is stale.
	if err := FailPage(ctx, db, a.ID, 0, "b1", "late", 1); !errors.Is(err, ErrStaleClaim) {
		t.Fatalf("expected ErrStaleClaim on completed page, got %v", err)
	}

	if err := FailPage(ctx, db, a.ID, 1, "b1", "provider returned no image", 3); err != nil {
		t.Fatalf("fail: %v", err)
	}
	p = pageState(t, db, a.ID, 1)
	if p.State != domain.PageFailed || p.Error == "" || p.ResultKey != "" {
		t.Fatalf("unexpected failed page: %+v", p)
	}

	failed, err := FailedPageIndices(ctx, db, a.ID)
	if err != nil || len(failed) != 1 || failed[0] != 1 {
		t.Fatalf("FailedPageIndices=%v err=%v", failed, err)
	}

	// Failed pages are claimable again and the error is cleared.
	n, err := ClaimPages(ctx, db, a.ID, "b2", []int{1})
	if err != nil || n != 1 {
		t.Fatalf("reclaim failed: n=%d err=%v", n, err)
	}
	if p := pageState(t, db, a.ID, 1); p.Error != "" || p.State != domain.PageProcessing {
		t.Fatalf("reclaimed page: %+v", p)
	}
}

func TestReleaseAndResetProcessing(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	a := seedArtifact(t, db, "u1", 3)

	if _, err := ClaimPages(ctx, db, a.ID, "b1", []int{0, 1, 2}); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if n, err := ReleasePages(ctx, db, a.ID, "b1", nil); err != nil || n != 0 {
		t.Fatalf("empty release: n=%d err=%v", n, err)
	}
	n, err := ReleasePages(ctx, db, a.ID, "b1", []int{2})
	if err != nil || n != 1 {
		t.Fatalf("release: n=%d err=%v", n, err)
	}
	p := pageState(t, db, a.ID, 2)
	if p.State != domain.PagePending || !p.Requested {
		t.Fatalf("released page should be pending and still requested: %+v", p)
	}

	n, err = ResetProcessing(ctx, db)
	if err != nil || n != 2 {
		t.Fatalf("reset: n=%d err=%v", n, err)
	}
	pages, _ := ListPages(ctx, db, a.ID)
	for _, p := range pages {
		if p.State != domain.PagePending {
			t.Fatalf("page %d still %s after reset", p.Index, p.State)
		}
	}
}

func TestDeleteArtifact(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	a := seedArtifact(t, db, "u1", 2)

	if _, err := ClaimPages(ctx, db, a.ID, "b1", []int{0}); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := DeleteArtifact(ctx, db, a.ID); !errors.Is(err, ErrStaleClaim) {
		t.Fatalf("expected refusal while processing, got %v", err)
	}
	if _, err := ReleasePages(ctx, db, a.ID, "b1", []int{0}); err != nil {
		t.Fatalf("release: %v", err)
	}
	if err := DeleteArtifact(ctx, db, a.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := GetArtifact(ctx, db, a.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	var left int64
	db.Model(&domain.Page{}).Where("artifact_id = ?", a.ID).Count(&left)
	if left != 0 {
		t.Fatalf("expected pages removed, %d left", left)
	}
	if err := DeleteArtifact(ctx, db, a.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete: expected ErrNotFound, got %v", err)
	}
}

func TestListArtifactsPage_FilterByUser(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedArtifact(t, db, "u1", 1)
	seedArtifact(t, db, "u1", 1)
	seedArtifact(t, db, "u2", 1)

	total, err := CountArtifacts(ctx, db, "u1")
	if err != nil || total != 2 {
		t.Fatalf("count=%d err=%v", total, err)
	}
	items, err := ListArtifactsPage(ctx, db, "u1", 0, 10)
	if err != nil || len(items) != 2 {
		t.Fatalf("list=%d err=%v", len(items), err)
	}
	for _, it := range items {
		if it.UserID != "u1" {
			t.Fatalf("leaked artifact of %s", it.UserID)
		}
	}
}
