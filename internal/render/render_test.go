package render

import (
	"bytes"
	"errors"
	"image/png"
	"testing"

	"github.com/hazyhaar/signdesk/internal/pdftest"
)

func TestDecode_ValidPDF(t *testing.T) {
	doc, err := Decode(pdftest.MinimalPDF(3, 612, 792), "contract.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if doc.PageCount() != 3 {
		t.Errorf("PageCount = %d, want 3", doc.PageCount())
	}
	sz, err := doc.Size(1)
	if err != nil {
		t.Fatal(err)
	}
	if sz.Width != 612 || sz.Height != 792 {
		t.Errorf("page 1 = %gx%g, want 612x792", sz.Width, sz.Height)
	}
	if doc.Name() != "contract.pdf" {
		t.Errorf("Name = %q", doc.Name())
	}
}

func TestDecode_RejectsNonPDF(t *testing.T) {
	// WHAT: Bytes without the PDF magic are rejected and no document exists
	// afterwards.
	// WHY: A bad upload must leave the session exactly as it was.
	doc, err := Decode([]byte("<html>not a pdf</html>"), "page.html")
	if !errors.Is(err, ErrNotPDF) {
		t.Fatalf("err = %v, want ErrNotPDF", err)
	}
	if doc != nil {
		t.Error("failed decode returned a document")
	}
}

func TestDecode_RejectsCorrupt(t *testing.T) {
	// Magic alone is not enough; the body must parse.
	if _, err := Decode([]byte("%PDF-1.4\ngarbage"), "x.pdf"); !errors.Is(err, ErrNotPDF) {
		t.Fatalf("err = %v, want ErrNotPDF", err)
	}
}

func TestDecode_RejectsOversize(t *testing.T) {
	big := make([]byte, MaxDocumentSize+1)
	if _, err := Decode(big, "big.pdf"); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("err = %v, want ErrTooLarge", err)
	}
}

func TestDecode_CopiesInput(t *testing.T) {
	raw := pdftest.MinimalPDF(1, 612, 792)
	doc, err := Decode(raw, "x.pdf")
	if err != nil {
		t.Fatal(err)
	}
	raw[0] = 'X'
	if !bytes.HasPrefix(doc.Bytes(), []byte("%PDF-")) {
		t.Error("document aliases the caller's byte slice")
	}
}

func TestSize_OutOfRange(t *testing.T) {
	doc, err := Decode(pdftest.MinimalPDF(2, 612, 792), "x.pdf")
	if err != nil {
		t.Fatal(err)
	}
	for _, page := range []int{0, -1, 3} {
		if _, err := doc.Size(page); !errors.Is(err, ErrBadPage) {
			t.Errorf("Size(%d): err = %v, want ErrBadPage", page, err)
		}
	}
}

func TestRasterize_ExtentFollowsZoom(t *testing.T) {
	// WHAT: The surface pixel extent is page points times zoom.
	doc, err := Decode(pdftest.MinimalPDF(1, 600, 800), "x.pdf")
	if err != nil {
		t.Fatal(err)
	}
	data, err := doc.Rasterize(1, 1.5)
	if err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	b := img.Bounds()
	if b.Dx() != 900 || b.Dy() != 1200 {
		t.Errorf("surface = %dx%d, want 900x1200", b.Dx(), b.Dy())
	}
}

func TestRasterize_BadZoom(t *testing.T) {
	doc, err := Decode(pdftest.MinimalPDF(1, 600, 800), "x.pdf")
	if err != nil {
		t.Fatal(err)
	}
	for _, zoom := range []float64{0, 0.1, 5} {
		if _, err := doc.Rasterize(1, zoom); !errors.Is(err, ErrBadZoom) {
			t.Errorf("Rasterize(zoom=%g): err = %v, want ErrBadZoom", zoom, err)
		}
	}
}

func TestRasterize_Deterministic(t *testing.T) {
	doc, err := Decode(pdftest.MinimalPDF(1, 600, 800), "x.pdf")
	if err != nil {
		t.Fatal(err)
	}
	a, err := doc.Rasterize(1, 1)
	if err != nil {
		t.Fatal(err)
	}
	b, err := doc.Rasterize(1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Error("identical inputs produced different rasters")
	}
}

func TestGuard_DiscardsStaleCompletions(t *testing.T) {
	// WHAT: A completion keyed for a superseded view is not fresh; the live
	// view's own key is.
	// WHY: Async rasterizations finishing out of order must never paint an
	// old page over the current one.
	var g Guard
	k1 := ViewKey{Doc: "doc_1", Page: 1, Zoom: 1}
	k2 := ViewKey{Doc: "doc_1", Page: 2, Zoom: 1}

	g.Set(k1)
	if !g.Fresh(k1) {
		t.Error("live key reported stale")
	}
	g.Set(k2)
	if g.Fresh(k1) {
		t.Error("superseded key reported fresh")
	}
	if !g.Fresh(k2) {
		t.Error("live key reported stale after page change")
	}
	if g.Current() != k2 {
		t.Errorf("Current = %+v, want %+v", g.Current(), k2)
	}
}
