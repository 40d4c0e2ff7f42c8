package document

import (
	"bytes"
	"fmt"
	"image/jpeg"
	"image/png"
	"strings"

	"github.com/gen2brain/go-fitz"
)

// Document is an open PDF handle. Pages are zero-indexed.
type Document interface {
	PageCount() int
	Text(page int) (string, error)
	RenderImage(page int) (data []byte, mimeType string, err error)
	Close() error
}

// Source opens documents from the local filesystem.
type Source interface {
	Open(path string) (Document, error)
}

// FitzSource renders pages via MuPDF (go-fitz).
type FitzSource struct {
	dpi    int
	format string
}

// NewFitzSource constructs a source rendering at the given DPI and
// image format ("png" or "jpeg").
func NewFitzSource(dpi int, format string) *FitzSource {
	if dpi <= 0 {
		dpi = 200
	}
	format = strings.ToLower(format)
	if format != "jpeg" {
		format = "png"
	}
	return &FitzSource{dpi: dpi, format: format}
}

func (s *FitzSource) Open(path string) (Document, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("open document %s: %w", path, err)
	}
	return &fitzDocument{doc: doc, dpi: s.dpi, format: s.format}, nil
}

type fitzDocument struct {
	doc    *fitz.Document
	dpi    int
	format string
}

func (d *fitzDocument) PageCount() int {
	return d.doc.NumPage()
}

func (d *fitzDocument) Text(page int) (string, error) {
	text, err := d.doc.Text(page)
	if err != nil {
		return "", fmt.Errorf("extract text for page %d: %w", page+1, err)
	}
	return text, nil
}

// RenderImage rasterizes one page at the configured DPI and encodes it
// in the configured format. JPEG uses quality 95 to keep small print
// legible for vision models.
func (d *fitzDocument) RenderImage(page int) ([]byte, string, error) {
	img, err := d.doc.ImageDPI(page, float64(d.dpi))
	if err != nil {
		return nil, "", fmt.Errorf("render page %d: %w", page+1, err)
	}

	var buf bytes.Buffer
	if d.format == "jpeg" {
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}); err != nil {
			return nil, "", fmt.Errorf("encode page %d as jpeg: %w", page+1, err)
		}
		return buf.Bytes(), "image/jpeg", nil
	}

	if err := png.Encode(&buf, img); err != nil {
		return nil, "", fmt.Errorf("encode page %d as png: %w", page+1, err)
	}
	return buf.Bytes(), "image/png", nil
}

func (d *fitzDocument) Close() error {
	return d.doc.Close()
}
