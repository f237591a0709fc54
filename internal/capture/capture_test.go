package capture

import (
	"bytes"
	"errors"
	"image/png"
	"strings"
	"testing"
)

func TestDraw_RejectsEmpty(t *testing.T) {
	// WHAT: Saving with no strokes, or only empty strokes, fails.
	// WHY: A blank signature element is never what the user meant.
	c := New(t.TempDir())
	if _, err := c.Draw(nil, 0, 0); !errors.Is(err, ErrEmptySignature) {
		t.Errorf("nil strokes: err = %v, want ErrEmptySignature", err)
	}
	if _, err := c.Draw([]Stroke{{}, {}}, 0, 0); !errors.Is(err, ErrEmptySignature) {
		t.Errorf("empty strokes: err = %v, want ErrEmptySignature", err)
	}
}

func TestDraw_ProducesPNGDataURI(t *testing.T) {
	c := New(t.TempDir())
	strokes := []Stroke{
		{{X: 10, Y: 100}, {X: 120, Y: 40}, {X: 240, Y: 110}},
		{{X: 300, Y: 80}},
	}
	uri, err := c.Draw(strokes, 500, 200)
	if err != nil {
		t.Fatal(err)
	}
	data, mediaType, err := DecodeDataURI(uri)
	if err != nil {
		t.Fatal(err)
	}
	if mediaType != "image/png" {
		t.Errorf("media type = %s, want image/png", mediaType)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("payload is not a valid PNG: %v", err)
	}
	b := img.Bounds()
	if b.Dx() != 500 || b.Dy() != 200 {
		t.Errorf("pad is %dx%d, want 500x200", b.Dx(), b.Dy())
	}
}

func TestDraw_Deterministic(t *testing.T) {
	c := New(t.TempDir())
	strokes := []Stroke{{{X: 5, Y: 5}, {X: 50, Y: 60}}}
	a, err := c.Draw(strokes, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	b, err := c.Draw(strokes, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Error("identical strokes produced different payloads")
	}
}

func TestTyped_RejectsEmptyName(t *testing.T) {
	c := New(t.TempDir())
	for _, name := range []string{"", "   ", "\t\n"} {
		if _, err := c.Typed(name, "cursive"); !errors.Is(err, ErrEmptyName) {
			t.Errorf("Typed(%q): err = %v, want ErrEmptyName", name, err)
		}
	}
}

func TestTyped_UnknownFontPreset(t *testing.T) {
	c := New(t.TempDir())
	if _, err := c.Typed("Jane Doe", "comic-sans"); !errors.Is(err, ErrUnknownFont) {
		t.Errorf("err = %v, want ErrUnknownFont", err)
	}
}

func TestTyped_MissingFontFile(t *testing.T) {
	// WHAT: A valid preset whose TTF is absent from the fonts dir fails with
	// a load error, not a panic.
	c := New(t.TempDir())
	if _, err := c.Typed("Jane Doe", "cursive"); err == nil {
		t.Error("expected an error for a missing font file")
	}
}

func TestUpload_Passthrough(t *testing.T) {
	// WHAT: Upload keeps the original bytes unre-encoded inside the data URI.
	raw := append([]byte{}, jpegMagic...)
	raw = append(raw, []byte("jpeg-body")...)
	uri, err := Upload(raw, "image/jpeg")
	if err != nil {
		t.Fatal(err)
	}
	data, mediaType, err := DecodeDataURI(uri)
	if err != nil {
		t.Fatal(err)
	}
	if mediaType != "image/jpeg" || !bytes.Equal(data, raw) {
		t.Error("upload altered the payload")
	}
}

func TestUpload_RejectsNonImage(t *testing.T) {
	if _, err := Upload([]byte("x"), "application/pdf"); !errors.Is(err, ErrUnsupportedImage) {
		t.Errorf("err = %v, want ErrUnsupportedImage", err)
	}
}

func TestUpload_RejectsOversize(t *testing.T) {
	big := make([]byte, MaxUploadSize+1)
	if _, err := Upload(big, "image/png"); !errors.Is(err, ErrTooLarge) {
		t.Errorf("err = %v, want ErrTooLarge", err)
	}
}

func TestDecodeDataURI_Malformed(t *testing.T) {
	for _, uri := range []string{
		"",
		"image/png;base64,AAAA",
		"data:image/png;base64",
		"data:image/png,plain",
		"data:image/png;base64,%%%",
	} {
		if _, _, err := DecodeDataURI(uri); !errors.Is(err, ErrBadPayload) {
			t.Errorf("DecodeDataURI(%q): err = %v, want ErrBadPayload", uri, err)
		}
	}
}

func TestSniffImage(t *testing.T) {
	if got := SniffImage(append([]byte{}, pngMagic...)); got != "png" {
		t.Errorf("png magic sniffed as %q", got)
	}
	if got := SniffImage([]byte{0xff, 0xd8, 0xff, 0xe0}); got != "jpeg" {
		t.Errorf("jpeg magic sniffed as %q", got)
	}
	if got := SniffImage([]byte("GIF89a")); got != "" {
		t.Errorf("gif sniffed as %q, want unsupported", got)
	}
}

func TestFonts_ListsPresets(t *testing.T) {
	c := New(t.TempDir())
	got := strings.Join(c.Fonts(), ",")
	for _, preset := range []string{"cursive", "elegant", "casual", "formal"} {
		if !strings.Contains(got, preset) {
			t.Errorf("preset %s missing from %s", preset, got)
		}
	}
}
