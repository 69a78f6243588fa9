package blob

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/tbourn/go-page-restore/internal/config"
)

func TestKeys(t *testing.T) {
	id := "0b8f"
	cases := map[string]string{
		OriginalKey(id, "pdf"):     "artifacts/0b8f/original.pdf",
		OriginalKey(id, ".PNG"):    "artifacts/0b8f/original.png",
		SourceKey(id, 3, ".pdf"):   "artifacts/0b8f/source/00003.pdf",
		ResultKey(id, 12, "png"):   "artifacts/0b8f/result/00012.png",
		ResultKey(id, 0, ""):       "artifacts/0b8f/result/00000",
		ArtifactPrefix(id):         "artifacts/0b8f/",
		joinPrefix("", "a/b"):      "a/b",
		joinPrefix("/env/", "a/b"): "env/a/b",
		joinPrefix("env", "a/b/"):  "env/a/b/",
	}
	for got, want := range cases {
		if got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	}
}

func TestNew_Unsupported(t *testing.T) {
	_, err := New(context.Background(), config.BlobConfig{Backend: "ftp"})
	if err == nil || !strings.Contains(err.Error(), "unsupported blob backend") {
		t.Fatalf("expected unsupported backend error, got %v", err)
	}
}

func TestNew_FS(t *testing.T) {
	s, err := New(context.Background(), config.BlobConfig{Backend: "fs", Root: t.TempDir()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := s.(*FS); !ok {
		t.Fatalf("expected *FS, got %T", s)
	}
}

func TestFS_PutGetOverwriteDelete(t *testing.T) {
	ctx := context.Background()
	s, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	key := ResultKey("a1", 0, ".png")

	if _, err := s.Get(ctx, key); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound before put, got %v", err)
	}
	if err := s.Put(ctx, key, []byte("v1"), "image/png"); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.Put(ctx, key, []byte("v2"), "image/png"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	b, err := s.Get(ctx, key)
	if err != nil || string(b) != "v2" {
		t.Fatalf("get = %q, %v; want v2", b, err)
	}

	if err := s.Delete(ctx, key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Delete(ctx, key); err != nil {
		t.Fatalf("delete of missing key should be nil, got %v", err)
	}
	if _, err := s.Get(ctx, key); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestFS_DeletePrefix(t *testing.T) {
	ctx := context.Background()
	s, _ := NewFS(t.TempDir())

	_ = s.Put(ctx, SourceKey("a1", 0, ".pdf"), []byte("x"), "application/pdf")
	_ = s.Put(ctx, ResultKey("a1", 0, ".png"), []byte("y"), "image/png")
	_ = s.Put(ctx, SourceKey("a2", 0, ".pdf"), []byte("z"), "application/pdf")

	if err := s.DeletePrefix(ctx, ArtifactPrefix("a1")); err != nil {
		t.Fatalf("DeletePrefix: %v", err)
	}
	if _, err := s.Get(ctx, SourceKey("a1", 0, ".pdf")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("a1 source should be gone, got %v", err)
	}
	if b, err := s.Get(ctx, SourceKey("a2", 0, ".pdf")); err != nil || string(b) != "z" {
		t.Fatalf("a2 should survive, got %q %v", b, err)
	}
	// Removing a prefix that does not exist is fine.
	if err := s.DeletePrefix(ctx, ArtifactPrefix("nope")); err != nil {
		t.Fatalf("DeletePrefix missing: %v", err)
	}
}

func TestFS_RejectsEscapingKeys(t *testing.T) {
	s, _ := NewFS(t.TempDir())
	for _, k := range []string{"../x", "/etc/passwd", ".", "a/../../b"} {
		if err := s.Put(context.Background(), k, []byte("x"), ""); err == nil {
			t.Errorf("expected error for key %q", k)
		}
	}
}

func TestFS_CanceledContext(t *testing.T) {
	s, _ := NewFS(t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Put(ctx, "k", []byte("x"), ""); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
