// Package store holds the ordered collection of annotation elements placed on
// a document session, keyed by generated id and tagged by kind.
package store

// Kind identifies one of the closed set of annotation element variants.
// Adding a variant requires updating PresetFor and the bake dispatch, both of
// which switch exhaustively over this set.
type Kind string

const (
	KindSignature     Kind = "signature"
	KindFullName      Kind = "full_name"
	KindInitials      Kind = "initials"
	KindText          Kind = "text"
	KindDate          Kind = "date"
	KindCheckbox      Kind = "checkbox"
	KindHighlight     Kind = "highlight"
	KindCircle        Kind = "circle"
	KindRectangle     Kind = "rectangle"
	KindLine          Kind = "line"
	KindArrow         Kind = "arrow"
	KindStrikethrough Kind = "strikethrough"
	KindImage         Kind = "image"
)

// Kinds lists every element kind in a stable order.
func Kinds() []Kind {
	return []Kind{
		KindSignature, KindFullName, KindInitials, KindText, KindDate,
		KindCheckbox, KindHighlight, KindCircle, KindRectangle, KindLine,
		KindArrow, KindStrikethrough, KindImage,
	}
}

// Valid reports whether k is a known element kind.
func (k Kind) Valid() bool {
	switch k {
	case KindSignature, KindFullName, KindInitials, KindText, KindDate,
		KindCheckbox, KindHighlight, KindCircle, KindRectangle, KindLine,
		KindArrow, KindStrikethrough, KindImage:
		return true
	}
	return false
}

// Textual reports whether k carries literal text content drawn with a font.
func (k Kind) Textual() bool {
	switch k {
	case KindFullName, KindInitials, KindText, KindDate:
		return true
	}
	return false
}

// ImageBacked reports whether k carries an image payload as content.
func (k Kind) ImageBacked() bool {
	return k == KindSignature || k == KindImage
}

// MinSize is the smallest width/height an element may have, in surface pixels.
// Anything smaller cannot be grabbed or resized reliably.
const MinSize = 20.0

// Element is one positioned annotation instance. Coordinates are in the
// current on-screen raster's pixel space (origin top-left), not document
// space; Page is 1-indexed.
type Element struct {
	ID          string  `json:"id"`
	Kind        Kind    `json:"kind"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	Page        int     `json:"page"`
	Content     string  `json:"content,omitempty"`
	Color       string  `json:"color,omitempty"`
	StrokeWidth float64 `json:"stroke_width,omitempty"`
	FontSize    float64 `json:"font_size,omitempty"`
}

// Preset is the per-kind default geometry and styling applied at placement.
type Preset struct {
	Width       float64
	Height      float64
	Content     string
	Color       string
	StrokeWidth float64
	FontSize    float64
}

// PresetFor returns the placement defaults for kind k.
func PresetFor(k Kind) Preset {
	switch k {
	case KindSignature:
		return Preset{Width: 150, Height: 60}
	case KindImage:
		return Preset{Width: 150, Height: 100}
	case KindFullName:
		return Preset{Width: 160, Height: 30, Color: "#000000", FontSize: 16}
	case KindInitials:
		return Preset{Width: 60, Height: 30, Color: "#000000", FontSize: 16}
	case KindText:
		return Preset{Width: 150, Height: 30, Content: "Text", Color: "#000000", FontSize: 14}
	case KindDate:
		return Preset{Width: 120, Height: 30, Color: "#000000", FontSize: 14}
	case KindCheckbox:
		return Preset{Width: 24, Height: 24, Content: "✓", Color: "#000000", StrokeWidth: 2}
	case KindHighlight:
		return Preset{Width: 200, Height: 20, Color: "#ffeb3b"}
	case KindCircle:
		return Preset{Width: 80, Height: 80, Color: "#000000", StrokeWidth: 2}
	case KindRectangle:
		return Preset{Width: 120, Height: 80, Color: "#000000", StrokeWidth: 2}
	case KindLine:
		return Preset{Width: 150, Height: 20, Color: "#000000", StrokeWidth: 2}
	case KindArrow:
		return Preset{Width: 150, Height: 20, Color: "#000000", StrokeWidth: 2}
	case KindStrikethrough:
		return Preset{Width: 150, Height: 20, Color: "#e53935", StrokeWidth: 2}
	}
	return Preset{Width: MinSize, Height: MinSize}
}
