package document

import (
	"archive/zip"
	"bytes"
	"io"
	"testing"
	"time"
)

func TestBundle(t *testing.T) {
	entries := []BundleEntry{
		{Index: 0, Ext: ".png", Data: []byte("first")},
		{Index: 2, Ext: "", Data: []byte("third")},
	}
	out, err := Bundle(entries, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Bundle: %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(out), int64(len(out)))
	if err != nil {
		t.Fatalf("zip reader: %v", err)
	}
	if len(zr.File) != 2 {
		t.Fatalf("expected 2 files, got %d", len(zr.File))
	}
	want := map[string]string{"page_0001.png": "first", "page_0003.png": "third"}
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open %s: %v", f.Name, err)
		}
		b, _ := io.ReadAll(rc)
		_ = rc.Close()
		if want[f.Name] != string(b) {
			t.Fatalf("%s = %q, want %q", f.Name, b, want[f.Name])
		}
	}
}

func TestBundle_Empty(t *testing.T) {
	out, err := Bundle(nil, time.Now())
	if err != nil {
		t.Fatalf("Bundle: %v", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(out), int64(len(out)))
	if err != nil {
		t.Fatalf("zip reader: %v", err)
	}
	if len(zr.File) != 0 {
		t.Fatalf("expected empty archive, got %d files", len(zr.File))
	}
}
