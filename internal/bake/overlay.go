package bake

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"math"

	"github.com/gogpu/gg"
	"github.com/gogpu/gg/text"

	"github.com/hazyhaar/signdesk/internal/capture"
	"github.com/hazyhaar/signdesk/internal/render"
	"github.com/hazyhaar/signdesk/internal/store"
	"github.com/hazyhaar/signdesk/safety"
)

// Rect is an element's placement in document space: PDF points, origin at
// the page's bottom-left.
type Rect struct {
	X, Y, W, H float64
}

// DocRect maps an element's raster-space box (pixels, origin top-left) onto
// the page in document space. The inverse of the on-screen zoom undoes the
// raster scaling; the vertical flip re-anchors the box at its bottom edge.
func DocRect(e store.Element, zoom float64, page render.PageSize) Rect {
	scale := 1 / zoom
	return Rect{
		X: e.X * scale,
		Y: page.Height - (e.Y+e.Height)*scale,
		W: e.Width * scale,
		H: e.Height * scale,
	}
}

const (
	textInset   = 4
	defaultFont = 14.0
	defaultLine = 2.0
)

// renderOverlay draws every element onto one transparent raster covering the
// page, supersampled for stroke quality, and returns it PNG-encoded.
func (b *Baker) renderOverlay(page render.PageSize, els []store.Element, zoom float64) ([]byte, error) {
	ovs := b.oversample
	ctx := gg.NewContext(int(math.Round(page.Width*ovs)), int(math.Round(page.Height*ovs)))
	defer ctx.Close()

	var fontSource *text.FontSource
	defer func() {
		if fontSource != nil {
			fontSource.Close()
		}
	}()

	for _, e := range els {
		r := DocRect(e, zoom, page)
		// Overlay pixels run top-down; document space runs bottom-up.
		box := Rect{
			X: r.X * ovs,
			Y: (page.Height - r.Y - r.H) * ovs,
			W: r.W * ovs,
			H: r.H * ovs,
		}

		switch {
		case e.Kind.Textual():
			if fontSource == nil {
				var err error
				fontSource, err = b.loadFont()
				if err != nil {
					return nil, err
				}
			}
			drawText(ctx, fontSource, e, box, ovs/zoom)
		case e.Kind.ImageBacked():
			if err := drawImage(ctx, e, box); err != nil {
				return nil, err
			}
		case e.Kind == store.KindCheckbox:
			drawCheck(ctx, e, box)
		case e.Kind == store.KindHighlight:
			drawHighlight(ctx, e, box)
		case e.Kind == store.KindCircle:
			setStroke(ctx, e, ovs/zoom)
			ctx.DrawEllipse(box.X+box.W/2, box.Y+box.H/2, box.W/2, box.H/2)
			ctx.Stroke()
		case e.Kind == store.KindRectangle:
			setStroke(ctx, e, ovs/zoom)
			ctx.DrawRectangle(box.X, box.Y, box.W, box.H)
			ctx.Stroke()
		case e.Kind == store.KindLine, e.Kind == store.KindStrikethrough:
			setStroke(ctx, e, ovs/zoom)
			ctx.DrawLine(box.X, box.Y+box.H/2, box.X+box.W, box.Y+box.H/2)
			ctx.Stroke()
		case e.Kind == store.KindArrow:
			drawArrow(ctx, e, box, ovs/zoom)
		default:
			return nil, fmt.Errorf("bake: unknown element kind %q", e.Kind)
		}
	}

	var buf bytes.Buffer
	if err := ctx.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("bake: encode overlay: %w", err)
	}
	return buf.Bytes(), nil
}

func (b *Baker) loadFont() (*text.FontSource, error) {
	path, err := safety.SafePath(b.fontsDir, b.textFont)
	if err != nil {
		return nil, fmt.Errorf("bake: resolve font: %w", err)
	}
	source, err := text.NewFontSourceFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("bake: load font %s: %w", b.textFont, err)
	}
	return source, nil
}

func elementColor(e store.Element) gg.RGBA {
	if e.Color == "" {
		return gg.RGB(0, 0, 0)
	}
	return gg.Hex(e.Color)
}

func setStroke(ctx *gg.Context, e store.Element, scale float64) {
	ctx.SetColor(elementColor(e).Color())
	w := e.StrokeWidth
	if w <= 0 {
		w = defaultLine
	}
	ctx.SetLineWidth(w * scale)
	ctx.SetLineCap(gg.LineCapRound)
	ctx.SetLineJoin(gg.LineJoinRound)
}

// drawText sets the baseline at 70% of the box height, which optically
// centres a single line for the usual font sizes.
func drawText(ctx *gg.Context, source *text.FontSource, e store.Element, box Rect, scale float64) {
	size := e.FontSize
	if size <= 0 {
		size = defaultFont
	}
	ctx.SetFont(source.Face(size * scale))
	ctx.SetColor(elementColor(e).Color())
	ctx.DrawString(e.Content, box.X+textInset*scale, box.Y+box.H*0.7)
}

func drawCheck(ctx *gg.Context, e store.Element, box Rect) {
	ctx.SetColor(elementColor(e).Color())
	ctx.SetLineWidth(box.H * 0.12)
	ctx.SetLineCap(gg.LineCapRound)
	ctx.SetLineJoin(gg.LineJoinRound)
	ctx.MoveTo(box.X+box.W*0.2, box.Y+box.H*0.55)
	ctx.LineTo(box.X+box.W*0.42, box.Y+box.H*0.75)
	ctx.LineTo(box.X+box.W*0.8, box.Y+box.H*0.25)
	ctx.Stroke()
}

func drawHighlight(ctx *gg.Context, e store.Element, box Rect) {
	c := elementColor(e)
	c.A = 0.4
	ctx.SetColor(c.Color())
	ctx.DrawRectangle(box.X, box.Y, box.W, box.H)
	ctx.Fill()
}

func drawArrow(ctx *gg.Context, e store.Element, box Rect, scale float64) {
	setStroke(ctx, e, scale)
	midY := box.Y + box.H/2
	tipX := box.X + box.W
	ctx.DrawLine(box.X, midY, tipX, midY)
	ctx.Stroke()

	head := math.Min(box.W*0.25, 12*scale)
	for _, angle := range []float64{math.Pi * 5 / 6, -math.Pi * 5 / 6} {
		ctx.DrawLine(tipX, midY,
			tipX+head*math.Cos(angle), midY+head*math.Sin(angle))
		ctx.Stroke()
	}
}

// drawImage decodes a signature or image payload and scales it into the
// element's box. The payload bytes decide the format; anything that is not
// PNG or JPEG aborts the bake.
func drawImage(ctx *gg.Context, e store.Element, box Rect) error {
	data, _, err := capture.DecodeDataURI(e.Content)
	if err != nil {
		return fmt.Errorf("bake: element %s: %w", e.ID, err)
	}
	var img image.Image
	switch capture.SniffImage(data) {
	case "png":
		img, err = png.Decode(bytes.NewReader(data))
	case "jpeg":
		img, err = jpeg.Decode(bytes.NewReader(data))
	default:
		return fmt.Errorf("%w: element %s", ErrUnsupportedPayload, e.ID)
	}
	if err != nil {
		return fmt.Errorf("bake: decode element %s: %w", e.ID, err)
	}

	ctx.DrawImageEx(gg.ImageBufFromImage(img), gg.DrawImageOptions{
		X:         box.X,
		Y:         box.Y,
		DstWidth:  box.W,
		DstHeight: box.H,
	})
	return nil
}
