package document

import (
	"archive/zip"
	"bytes"
	"fmt"
	"time"
)

// BundleEntry is one file of a zip bundle.
type BundleEntry struct {
	Index int
	Ext   string
	Data  []byte
}

// BundleName is the file name used for a page inside a bundle.
func BundleName(index int, ext string) string {
	if ext == "" {
		ext = ".png"
	}
	return fmt.Sprintf("page_%04d%s", index+1, ext)
}

// Bundle zips entries in the given order. Images are already compressed, so
// entries are stored rather than deflated.
func Bundle(entries []BundleEntry, modified time.Time) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     BundleName(e.Index, e.Ext),
			Method:   zip.Store,
			Modified: modified,
		})
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(e.Data); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
