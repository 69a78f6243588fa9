// Package document turns an upload into pages. It sniffs the content type,
// splits PDFs into single-page PDFs and reads page dimensions so the
// enhancement step can pick an aspect preset.
package document

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // register decoders for image.DecodeConfig
	_ "image/png"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	_ "golang.org/x/image/webp"

	"github.com/tbourn/go-page-restore/internal/domain"
)

// Supported content types.
const (
	MIMEPDF  = "application/pdf"
	MIMEJPEG = "image/jpeg"
	MIMEPNG  = "image/png"
	MIMEWEBP = "image/webp"
)

var (
	// ErrUnsupported means the bytes are neither a PDF nor a supported image.
	ErrUnsupported = errors.New("unsupported content type")
	// ErrEmpty means the upload carried no bytes.
	ErrEmpty = errors.New("empty document")
	// ErrTooManyPages means the document exceeds the configured page limit.
	ErrTooManyPages = errors.New("too many pages")
	// ErrCorrupt means the content type was recognised but could not be parsed.
	ErrCorrupt = errors.New("corrupt document")
)

// Page is one extracted page ready to be stored.
type Page struct {
	Index  int
	Data   []byte
	MIME   string
	Ext    string
	Width  float64
	Height float64
}

// Document is the result of Inspect.
type Document struct {
	MIME  string
	Ext   string
	Kind  string // domain.KindDocument or domain.KindImage
	Pages []Page
}

// DetectMIME returns the sniffed content type and extension of data.
func DetectMIME(data []byte) (mime, ext string) {
	m := mimetype.Detect(data)
	return baseMIME(m.String()), m.Extension()
}

// Supported reports whether mime is an accepted upload type.
func Supported(mime string) bool {
	switch mime {
	case MIMEPDF, MIMEJPEG, MIMEPNG, MIMEWEBP:
		return true
	}
	return false
}

// Inspect sniffs data and splits it into pages. maxPages <= 0 disables the
// page limit.
func Inspect(data []byte, maxPages int) (*Document, error) {
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	mime, ext := DetectMIME(data)
	if !Supported(mime) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, mime)
	}

	if mime == MIMEPDF {
		pages, err := splitPDF(data, maxPages)
		if err != nil {
			return nil, err
		}
		return &Document{MIME: mime, Ext: ext, Kind: domain.KindDocument, Pages: pages}, nil
	}

	w, h, err := ImageSize(data)
	if err != nil {
		return nil, err
	}
	return &Document{
		MIME: mime,
		Ext:  ext,
		Kind: domain.KindImage,
		Pages: []Page{{
			Index: 0, Data: data, MIME: mime, Ext: ext,
			Width: float64(w), Height: float64(h),
		}},
	}, nil
}

// ImageSize decodes only the header of a JPEG, PNG or WebP image.
func ImageSize(data []byte) (width, height int, err error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return cfg.Width, cfg.Height, nil
}

func pdfConf() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// PageCount returns the number of pages of a PDF.
func PageCount(data []byte) (int, error) {
	n, err := api.PageCount(bytes.NewReader(data), pdfConf())
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return n, nil
}

func splitPDF(data []byte, maxPages int) ([]Page, error) {
	n, err := PageCount(data)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrEmpty
	}
	if maxPages > 0 && n > maxPages {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManyPages, n, maxPages)
	}

	dims, err := api.PageDims(bytes.NewReader(data), pdfConf())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	pages := make([]Page, 0, n)
	for i := 0; i < n; i++ {
		var buf bytes.Buffer
		// Trim keeps only the selected page; selections are 1-based.
		if err := api.Trim(bytes.NewReader(data), &buf, []string{strconv.Itoa(i + 1)}, pdfConf()); err != nil {
			return nil, fmt.Errorf("%w: extract page %d: %v", ErrCorrupt, i, err)
		}
		p := Page{Index: i, Data: buf.Bytes(), MIME: MIMEPDF, Ext: ".pdf"}
		if i < len(dims) {
			p.Width, p.Height = dims[i].Width, dims[i].Height
		}
		pages = append(pages, p)
	}
	return pages, nil
}

// baseMIME strips parameters such as "; charset=utf-8".
func baseMIME(m string) string {
	base, _, _ := strings.Cut(m, ";")
	return strings.TrimSpace(base)
}
