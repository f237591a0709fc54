// Package bake flattens a session's annotation elements into the PDF itself.
// Each page with elements gets one transparent overlay raster stamped onto
// it as a pdfcpu watermark; the overlay is drawn at the page's point size so
// element positions survive the raster-to-document coordinate transform
// exactly.
package bake

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/hazyhaar/signdesk/internal/render"
	"github.com/hazyhaar/signdesk/internal/store"
	"github.com/hazyhaar/signdesk/safety"
)

var (
	ErrNoDocument         = errors.New("bake: no document loaded")
	ErrUnsupportedPayload = errors.New("bake: element payload is not PNG or JPEG")
)

// The watermark covers the page exactly: the overlay raster has the page's
// aspect ratio, so scale:1 relative stretches it edge to edge.
const watermarkDesc = "pos:c, scale:1 rel, rot:0, op:1"

// Baker flattens elements into documents. Textual elements are drawn with a
// TTF font resolved under fontsDir.
type Baker struct {
	fontsDir   string
	textFont   string
	oversample float64
}

// Option configures a Baker.
type Option func(*Baker)

// WithTextFont overrides the font file used for textual elements.
func WithTextFont(file string) Option {
	return func(b *Baker) { b.textFont = file }
}

// WithOversample overrides the overlay supersampling factor.
func WithOversample(f float64) Option {
	return func(b *Baker) {
		if f >= 1 {
			b.oversample = f
		}
	}
}

// New creates a Baker loading fonts from fontsDir.
func New(fontsDir string, opts ...Option) *Baker {
	b := &Baker{
		fontsDir:   fontsDir,
		textFont:   "DejaVuSans.ttf",
		oversample: 2,
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Bake returns the document with every element embedded, plus the download
// filename. All-or-nothing: any failure aborts before the output is
// assembled, leaving the inputs untouched so the caller can fix the cause
// and retry. Elements are interpreted in the raster space of the given zoom.
func (b *Baker) Bake(doc *render.Document, elements []store.Element, zoom float64) ([]byte, string, error) {
	if doc == nil {
		return nil, "", ErrNoDocument
	}
	outName := "signed_" + safety.SafeFilename(doc.Name())

	byPage := make(map[int][]store.Element)
	for _, e := range elements {
		byPage[e.Page] = append(byPage[e.Page], e)
	}
	if len(byPage) == 0 {
		out := append([]byte(nil), doc.Bytes()...)
		return out, outName, nil
	}

	watermarks := make(map[int]*model.Watermark, len(byPage))
	for page, els := range byPage {
		size, err := doc.Size(page)
		if err != nil {
			return nil, "", fmt.Errorf("bake: page %d: %w", page, err)
		}
		overlay, err := b.renderOverlay(size, els, zoom)
		if err != nil {
			return nil, "", err
		}
		wm, err := api.ImageWatermarkForReader(
			bytes.NewReader(overlay), watermarkDesc, true, false, types.POINTS)
		if err != nil {
			return nil, "", fmt.Errorf("bake: watermark page %d: %w", page, err)
		}
		watermarks[page] = wm
	}

	var out bytes.Buffer
	conf := model.NewDefaultConfiguration()
	err := api.AddWatermarksMap(bytes.NewReader(doc.Bytes()), &out, watermarks, conf)
	if err != nil {
		return nil, "", fmt.Errorf("bake: stamp: %w", err)
	}
	return out.Bytes(), outName, nil
}
