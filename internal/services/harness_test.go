package services

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-page-restore/internal/blob"
	"github.com/tbourn/go-page-restore/internal/config"
	"github.com/tbourn/go-page-restore/internal/domain"
	"github.com/tbourn/go-page-restore/internal/enhance"
	"github.com/tbourn/go-page-restore/internal/repo"
)

// ---------- test helpers ----------

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}
	db.Exec("PRAGMA foreign_keys=ON;")
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// stubGateway routes calls to function fields; nil fields succeed.
type stubGateway struct {
	enhance func(ctx context.Context, req enhance.Request) (*enhance.Result, error)
	extract func(ctx context.Context, image []byte, mime string) (string, error)
}

func (s *stubGateway) Enhance(ctx context.Context, req enhance.Request) (*enhance.Result, error) {
	if s.enhance != nil {
		return s.enhance(ctx, req)
	}
	return &enhance.Result{Data: restoredPNG, MIME: "image/png"}, nil
}

func (s *stubGateway) ExtractText(ctx context.Context, image []byte, mime string) (string, error) {
	if s.extract != nil {
		return s.extract(ctx, image, mime)
	}
	return "", nil
}

var restoredPNG = func() []byte {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	img.Set(1, 1, color.Black)
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}()

type harness struct {
	db     *gorm.DB
	blobs  *blob.FS
	store  *ArtifactStore
	ledger *Ledger
	orch   *Orchestrator
	gw     *stubGateway
}

func testProcessingConfig() config.ProcessingConfig {
	return config.ProcessingConfig{
		Workers:         2,
		MaxBatchPages:   10,
		MaxAttempts:     2,
		RetryInitial:    time.Millisecond,
		RetryMax:        2 * time.Millisecond,
		ProviderTimeout: 2 * time.Second,
		BatchTimeout:    10 * time.Second,
		CommitTimeout:   2 * time.Second,
	}
}

func newHarness(t *testing.T, freePages int) *harness {
	t.Helper()
	db := newTestDB(t)
	fs, err := blob.NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	h := &harness{
		db:     db,
		blobs:  fs,
		store:  NewArtifactStore(db, fs, 20, 10<<20),
		ledger: NewLedger(db, freePages),
		gw:     &stubGateway{},
	}
	h.orch = NewOrchestrator(db, h.store, h.ledger, h.gw, testProcessingConfig())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = h.orch.Shutdown(ctx)
	})
	return h
}

// user creates userID holding credits.
func (h *harness) user(t *testing.T, userID string, credits int) {
	t.Helper()
	ctx := context.Background()
	if _, err := h.ledger.EnsureUser(ctx, domain.User{ID: userID, Email: userID + "@example.com"}); err != nil {
		t.Fatalf("EnsureUser: %v", err)
	}
	if credits > 0 {
		if _, _, err := h.ledger.ApplyDelta(ctx, userID, credits, 1, "seed:"+userID, domain.SourceAdjustment); err != nil {
			t.Fatalf("seed credits: %v", err)
		}
	}
}

func (h *harness) balance(t *testing.T, userID string) *domain.User {
	t.Helper()
	u, err := repo.GetUser(context.Background(), h.db, userID)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	return u
}

// upload stores a PDF whose pages have the given (width, height) sizes.
func (h *harness) upload(t *testing.T, ownerID string, dims ...[2]float64) *domain.Artifact {
	t.Helper()
	a, err := h.store.Create(context.Background(), ownerID, "scan.pdf", makePDF(t, dims...), 0)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return a
}

func (h *harness) pages(t *testing.T, artifactID string) []domain.Page {
	t.Helper()
	ps, err := repo.ListPages(context.Background(), h.db, artifactID)
	if err != nil {
		t.Fatalf("ListPages: %v", err)
	}
	return ps
}

func portrait(n int) [][2]float64 {
	out := make([][2]float64, n)
	for i := range out {
		out[i] = [2]float64{595, 842}
	}
	return out
}

// makePDF builds a minimal PDF with one page per entry of dims.
func makePDF(t *testing.T, dims ...[2]float64) []byte {
	t.Helper()
	var buf bytes.Buffer
	offsets := []int{0}
	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets)-1, body)
	}

	buf.WriteString("%PDF-1.4\n")
	kids := ""
	for i := range dims {
		kids += fmt.Sprintf("%d 0 R ", 3+i)
	}
	obj("<< /Type /Catalog /Pages 2 0 R >>")
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids, len(dims)))
	for _, d := range dims {
		obj(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %g %g] /Resources << >> >>", d[0], d[1]))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets))
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets[1:] {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets), xref)
	return buf.Bytes()
}
