// Package capture produces signature image payloads from the three input
// modes: freehand strokes, a typed name rendered in a cursive font, and a
// raw image upload. Every mode yields a data URI suitable as the content of
// a signature element.
package capture

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/gogpu/gg"
	"github.com/gogpu/gg/text"

	"github.com/hazyhaar/signdesk/safety"
)

var (
	ErrEmptySignature   = errors.New("capture: no strokes drawn")
	ErrEmptyName        = errors.New("capture: name is empty")
	ErrUnknownFont      = errors.New("capture: unknown font preset")
	ErrUnsupportedImage = errors.New("capture: not an image upload")
	ErrTooLarge         = errors.New("capture: image exceeds size limit")
)

// MaxUploadSize bounds uploaded signature images.
const MaxUploadSize = 5 << 20

// Typed-signature surface. The name sits on a fixed baseline so repeated
// captures of the same name are pixel-identical.
const (
	typedWidth    = 400
	typedHeight   = 150
	typedFontSize = 48
	typedInsetX   = 30
	typedBaseline = 95
)

// Default freehand pad extent, used when the caller passes no size.
const (
	padWidth  = 500
	padHeight = 200
)

// Point is one sampled pointer position on the drawing pad.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Stroke is one continuous pointer trace from down to up.
type Stroke []Point

// Capture renders signature payloads. Font presets resolve to TTF files
// inside a configured directory.
type Capture struct {
	fontsDir string
	fonts    map[string]string
}

// DefaultFonts maps preset names to font filenames expected under the
// fonts directory.
var DefaultFonts = map[string]string{
	"cursive": "GreatVibes-Regular.ttf",
	"elegant": "Allura-Regular.ttf",
	"casual":  "Caveat-Regular.ttf",
	"formal":  "Tangerine-Regular.ttf",
}

// New creates a Capture resolving font presets under fontsDir.
func New(fontsDir string) *Capture {
	fonts := make(map[string]string, len(DefaultFonts))
	for k, v := range DefaultFonts {
		fonts[k] = v
	}
	return &Capture{fontsDir: fontsDir, fonts: fonts}
}

// Draw renders freehand strokes onto a transparent pad and returns the PNG
// data URI. Returns ErrEmptySignature when no stroke contains a point.
func (c *Capture) Draw(strokes []Stroke, width, height int) (string, error) {
	if width <= 0 {
		width = padWidth
	}
	if height <= 0 {
		height = padHeight
	}
	drawn := false
	for _, s := range strokes {
		if len(s) > 0 {
			drawn = true
			break
		}
	}
	if !drawn {
		return "", ErrEmptySignature
	}

	ctx := gg.NewContext(width, height)
	defer ctx.Close()
	ctx.SetRGB(0, 0, 0)
	ctx.SetLineWidth(2.5)
	ctx.SetLineCap(gg.LineCapRound)
	ctx.SetLineJoin(gg.LineJoinRound)
	for _, s := range strokes {
		if len(s) == 1 {
			// A tap leaves a dot.
			ctx.DrawPoint(s[0].X, s[0].Y, 1.25)
			if err := ctx.Fill(); err != nil {
				return "", fmt.Errorf("capture: render stroke: %w", err)
			}
			continue
		}
		ctx.MoveTo(s[0].X, s[0].Y)
		for _, p := range s[1:] {
			ctx.LineTo(p.X, p.Y)
		}
		if err := ctx.Stroke(); err != nil {
			return "", fmt.Errorf("capture: render stroke: %w", err)
		}
	}
	return encodePNG(ctx)
}

// Typed renders name in the given font preset on a white surface at a fixed
// baseline and returns the PNG data URI.
func (c *Capture) Typed(name, font string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrEmptyName
	}
	file, ok := c.fonts[font]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownFont, font)
	}
	path, err := safety.SafePath(c.fontsDir, file)
	if err != nil {
		return "", fmt.Errorf("capture: resolve font: %w", err)
	}
	source, err := text.NewFontSourceFromFile(path)
	if err != nil {
		return "", fmt.Errorf("capture: load font %s: %w", file, err)
	}
	defer source.Close()

	ctx := gg.NewContext(typedWidth, typedHeight)
	defer ctx.Close()
	ctx.ClearWithColor(gg.RGB(1, 1, 1))
	ctx.SetRGB(0, 0, 0)
	ctx.SetFont(source.Face(typedFontSize))
	ctx.DrawString(name, typedInsetX, typedBaseline)
	return encodePNG(ctx)
}

// Fonts lists the available font preset names.
func (c *Capture) Fonts() []string {
	out := make([]string, 0, len(c.fonts))
	for k := range c.fonts {
		out = append(out, k)
	}
	return out
}

// Upload validates an uploaded signature image and passes its bytes through
// unre-encoded as a data URI with the declared media type.
func Upload(data []byte, mediaType string) (string, error) {
	if !strings.HasPrefix(mediaType, "image/") {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedImage, mediaType)
	}
	if len(data) > MaxUploadSize {
		return "", ErrTooLarge
	}
	if len(data) == 0 {
		return "", ErrEmptySignature
	}
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

func encodePNG(ctx *gg.Context) (string, error) {
	var buf bytes.Buffer
	if err := ctx.EncodePNG(&buf); err != nil {
		return "", fmt.Errorf("capture: encode png: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
