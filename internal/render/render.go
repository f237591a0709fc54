// Package render decodes uploaded PDF documents and produces the per-page
// raster surfaces the interaction layer works against. The page painting
// itself is a plain white surface at the page's pixel extent; annotation
// overlays are composed on top of it by the caller.
package render

import (
	"bytes"
	"errors"
	"fmt"
	"math"

	"github.com/gogpu/gg"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var (
	ErrNotPDF   = errors.New("render: not a PDF document")
	ErrTooLarge = errors.New("render: document exceeds size limit")
	ErrEmptyPDF = errors.New("render: document has no pages")
	ErrBadPage  = errors.New("render: page out of range")
	ErrBadZoom  = errors.New("render: zoom factor out of range")
)

// MaxDocumentSize bounds uploaded documents.
const MaxDocumentSize = 50 << 20

// Zoom limits, matching the viewer's zoom controls.
const (
	MinZoom = 0.25
	MaxZoom = 4.0
)

var pdfMagic = []byte("%PDF-")

// PageSize is one page's media box extent in PDF points.
type PageSize struct {
	Width  float64
	Height float64
}

// Document is a decoded, validated PDF held in memory for the lifetime of a
// session. Immutable after Decode.
type Document struct {
	data  []byte
	name  string
	pages []PageSize
}

// Decode validates raw upload bytes as a PDF and reads its page geometry.
// Rejections leave no state behind: a failed Decode returns a nil Document.
func Decode(data []byte, name string) (*Document, error) {
	if len(data) > MaxDocumentSize {
		return nil, ErrTooLarge
	}
	if !bytes.HasPrefix(data, pdfMagic) {
		return nil, ErrNotPDF
	}

	conf := model.NewDefaultConfiguration()
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotPDF, err)
	}
	if ctx.PageCount == 0 {
		return nil, ErrEmptyPDF
	}
	dims, err := ctx.PageDims()
	if err != nil {
		return nil, fmt.Errorf("render: page dims: %w", err)
	}

	pages := make([]PageSize, len(dims))
	for i, d := range dims {
		pages[i] = PageSize{Width: d.Width, Height: d.Height}
	}
	doc := &Document{
		data:  append([]byte(nil), data...),
		name:  name,
		pages: pages,
	}
	return doc, nil
}

// Bytes returns the original document bytes.
func (d *Document) Bytes() []byte { return d.data }

// Name returns the original upload filename.
func (d *Document) Name() string { return d.name }

// PageCount returns the number of pages.
func (d *Document) PageCount() int { return len(d.pages) }

// Size returns the media box extent of the given 1-indexed page in points.
func (d *Document) Size(page int) (PageSize, error) {
	if page < 1 || page > len(d.pages) {
		return PageSize{}, fmt.Errorf("%w: %d of %d", ErrBadPage, page, len(d.pages))
	}
	return d.pages[page-1], nil
}

// SurfaceExtent returns the pixel extent of the raster surface for the given
// page at the given zoom without rendering it.
func (d *Document) SurfaceExtent(page int, zoom float64) (w, h float64, err error) {
	sz, err := d.Size(page)
	if err != nil {
		return 0, 0, err
	}
	if zoom < MinZoom || zoom > MaxZoom {
		return 0, 0, fmt.Errorf("%w: %g", ErrBadZoom, zoom)
	}
	return math.Round(sz.Width * zoom), math.Round(sz.Height * zoom), nil
}

// Rasterize produces the page surface at the given zoom as PNG bytes. A pure
// function of (document, page, zoom): identical inputs always yield
// identical bytes.
func (d *Document) Rasterize(page int, zoom float64) ([]byte, error) {
	w, h, err := d.SurfaceExtent(page, zoom)
	if err != nil {
		return nil, err
	}
	ctx := gg.NewContext(int(w), int(h))
	defer ctx.Close()
	ctx.ClearWithColor(gg.RGB(1, 1, 1))

	var buf bytes.Buffer
	if err := ctx.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("render: encode page %d: %w", page, err)
	}
	return buf.Bytes(), nil
}
