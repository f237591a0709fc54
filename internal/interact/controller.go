// Package interact drives the pointer and keyboard interaction state machine
// for one annotation session: sticky tool placement, element dragging,
// handle-based resizing and the keyboard accelerators. All geometry is in the
// raster surface's pixel space.
package interact

import (
	"errors"

	"github.com/hazyhaar/signdesk/internal/history"
	"github.com/hazyhaar/signdesk/internal/store"
)

var (
	ErrUnknownTool = errors.New("interact: unknown tool kind")
	ErrNoSignature = errors.New("interact: no captured signature to place")
	ErrNoSelection = errors.New("interact: no element selected")
)

// State is the controller's interaction phase. Dragging and Resizing exist
// only between a pointer down and the matching up; there is no persistent
// capture outside a gesture.
type State int

const (
	Idle State = iota
	Dragging
	Resizing
)

// Handle names one of the eight resize grips on the selected element's
// bounding box. Empty means the pointer is not on a grip.
type Handle string

const (
	HandleNone Handle = ""
	HandleN    Handle = "n"
	HandleS    Handle = "s"
	HandleE    Handle = "e"
	HandleW    Handle = "w"
	HandleNW   Handle = "nw"
	HandleNE   Handle = "ne"
	HandleSW   Handle = "sw"
	HandleSE   Handle = "se"
)

// Key is a keyboard accelerator understood by the controller.
type Key string

const (
	KeyEscape    Key = "escape"
	KeyDelete    Key = "delete"
	KeyBackspace Key = "backspace"
	KeyUp        Key = "up"
	KeyDown      Key = "down"
	KeyLeft      Key = "left"
	KeyRight     Key = "right"
	KeyUndo      Key = "undo"
	KeyRedo      Key = "redo"
)

// gesture holds the transient tracking state between pointer down and up.
type gesture struct {
	elementID string
	handle    Handle
	anchorX   float64
	anchorY   float64
	orig      store.Element
	moved     bool
}

// Controller mediates between pointer/keyboard input, the element store and
// the history stack. One gesture (placement, completed drag or resize,
// delete, nudge, style change) commits exactly one history snapshot.
// Not goroutine-safe; the owning session serialises access.
type Controller struct {
	store   *store.Store
	history *history.History

	page     int
	surfaceW float64
	surfaceH float64

	tool     store.Kind
	selected string
	state    State
	gesture  *gesture

	// Active capture payloads consumed by signature and image placement,
	// stored as data URIs.
	signaturePayload string
	imagePayload     string
}

// New creates a Controller over the given store and history, starting on
// page 1 with no tool or selection.
func New(st *store.Store, h *history.History) *Controller {
	return &Controller{store: st, history: h, page: 1}
}

// SetSurface records the current raster surface extent in pixels. Drag and
// resize clamping is relative to this extent.
func (c *Controller) SetSurface(w, h float64) {
	c.surfaceW = w
	c.surfaceH = h
}

// SetPage switches the page hit-testing and placement operate on. Any
// in-flight gesture is abandoned and the selection cleared.
func (c *Controller) SetPage(page int) {
	if page < 1 {
		page = 1
	}
	c.page = page
	c.selected = ""
	c.state = Idle
	c.gesture = nil
}

// Page returns the page the controller operates on.
func (c *Controller) Page() int { return c.page }

// SelectTool arms the sticky placement tool. The tool stays armed across
// placements until cleared or Escape is pressed.
func (c *Controller) SelectTool(k store.Kind) error {
	if !k.Valid() {
		return ErrUnknownTool
	}
	c.tool = k
	return nil
}

// ClearTool disarms the placement tool.
func (c *Controller) ClearTool() { c.tool = "" }

// Tool returns the armed placement tool, or "" when none is armed.
func (c *Controller) Tool() store.Kind { return c.tool }

// Selected returns the id of the selected element, or "".
func (c *Controller) Selected() string { return c.selected }

// State returns the current interaction phase.
func (c *Controller) State() State { return c.state }

// SetSignaturePayload installs the data URI produced by signature capture.
// Placing a signature element consumes a copy of it.
func (c *Controller) SetSignaturePayload(dataURI string) {
	c.signaturePayload = dataURI
}

// SetImagePayload installs the data URI for image element placement.
func (c *Controller) SetImagePayload(dataURI string) {
	c.imagePayload = dataURI
}

// PointerDown handles a press at (x, y). With a tool armed it places a new
// element centred on the press point; on a resize handle of the selection it
// starts a resize; on an element it selects it and starts a drag; on empty
// surface it clears the selection.
func (c *Controller) PointerDown(x, y float64, handle Handle) error {
	if c.tool != "" {
		return c.place(x, y)
	}
	if handle != HandleNone && c.selected != "" {
		if orig, ok := c.store.Get(c.selected); ok {
			c.state = Resizing
			c.gesture = &gesture{
				elementID: c.selected,
				handle:    handle,
				anchorX:   x,
				anchorY:   y,
				orig:      orig,
			}
			return nil
		}
	}
	if hit, ok := c.hitTest(x, y); ok {
		c.selected = hit.ID
		c.state = Dragging
		c.gesture = &gesture{
			elementID: hit.ID,
			anchorX:   x,
			anchorY:   y,
			orig:      hit,
		}
		return nil
	}
	c.selected = ""
	return nil
}

// PointerMove updates the in-flight drag or resize. Outside a gesture it is
// a no-op.
func (c *Controller) PointerMove(x, y float64) {
	g := c.gesture
	if g == nil {
		return
	}
	dx := x - g.anchorX
	dy := y - g.anchorY
	switch c.state {
	case Dragging:
		nx := clamp(g.orig.X+dx, 0, c.surfaceW-g.orig.Width)
		ny := clamp(g.orig.Y+dy, 0, c.surfaceH-g.orig.Height)
		c.store.Update(g.elementID, store.Patch{X: &nx, Y: &ny})
		g.moved = true
	case Resizing:
		r := resize(g.orig, g.handle, dx, dy, c.surfaceW, c.surfaceH)
		c.store.Update(g.elementID, store.Patch{
			X: &r.X, Y: &r.Y, Width: &r.Width, Height: &r.Height,
		})
		g.moved = true
	}
}

// PointerUp completes the gesture. A drag or resize that actually changed
// geometry commits one history snapshot; a click that moved nothing does not.
func (c *Controller) PointerUp(x, y float64) {
	g := c.gesture
	c.gesture = nil
	c.state = Idle
	if g == nil || !g.moved {
		return
	}
	c.history.Commit(c.store.All())
}

// Keyboard dispatches a keyboard accelerator. modifier is the platform's
// large-step modifier (shift) for arrow nudges.
func (c *Controller) Keyboard(key Key, modifier bool) error {
	switch key {
	case KeyEscape:
		c.cancel()
		return nil
	case KeyDelete, KeyBackspace:
		return c.deleteSelected()
	case KeyUp:
		return c.nudge(0, -step(modifier))
	case KeyDown:
		return c.nudge(0, step(modifier))
	case KeyLeft:
		return c.nudge(-step(modifier), 0)
	case KeyRight:
		return c.nudge(step(modifier), 0)
	case KeyUndo:
		c.Undo()
		return nil
	case KeyRedo:
		c.Redo()
		return nil
	}
	return nil
}

// ApplyStyle patches the selected element's styling and commits a single
// history step.
func (c *Controller) ApplyStyle(p store.Patch) error {
	if c.selected == "" {
		return ErrNoSelection
	}
	if !c.store.Update(c.selected, p) {
		c.selected = ""
		return ErrNoSelection
	}
	c.history.Commit(c.store.All())
	return nil
}

// Undo steps the history back and replaces the live store content.
// Returns false at the oldest entry.
func (c *Controller) Undo() bool {
	els, ok := c.history.Undo()
	if !ok {
		return false
	}
	c.store.Replace(els)
	c.revalidateSelection()
	return true
}

// Redo steps the history forward and replaces the live store content.
// Returns false at the newest entry.
func (c *Controller) Redo() bool {
	els, ok := c.history.Redo()
	if !ok {
		return false
	}
	c.store.Replace(els)
	c.revalidateSelection()
	return true
}

// place creates a new element of the armed tool kind centred on (x, y),
// clamped into the surface, selects it and commits.
func (c *Controller) place(x, y float64) error {
	p := store.PresetFor(c.tool)
	e := store.Element{
		Kind:        c.tool,
		Width:       p.Width,
		Height:      p.Height,
		Content:     p.Content,
		Color:       p.Color,
		StrokeWidth: p.StrokeWidth,
		FontSize:    p.FontSize,
	}
	switch c.tool {
	case store.KindSignature:
		if c.signaturePayload == "" {
			return ErrNoSignature
		}
		e.Content = c.signaturePayload
	case store.KindImage:
		if c.imagePayload == "" {
			return ErrNoSignature
		}
		e.Content = c.imagePayload
	}
	e.Page = c.page
	e.X = clamp(x-e.Width/2, 0, c.surfaceW-e.Width)
	e.Y = clamp(y-e.Height/2, 0, c.surfaceH-e.Height)
	c.selected = c.store.Add(e)
	c.history.Commit(c.store.All())
	return nil
}

// hitTest returns the topmost element on the current page containing (x, y).
// Later-placed elements win, matching paint order.
func (c *Controller) hitTest(x, y float64) (store.Element, bool) {
	onPage := c.store.ByPage(c.page)
	for i := len(onPage) - 1; i >= 0; i-- {
		e := onPage[i]
		if x >= e.X && x <= e.X+e.Width && y >= e.Y && y <= e.Y+e.Height {
			return e, true
		}
	}
	return store.Element{}, false
}

// cancel clears the selection and the armed tool. A gesture in flight is
// rolled back to its original geometry without committing.
func (c *Controller) cancel() {
	if g := c.gesture; g != nil && g.moved {
		c.store.Update(g.elementID, store.Patch{
			X: &g.orig.X, Y: &g.orig.Y,
			Width: &g.orig.Width, Height: &g.orig.Height,
		})
	}
	c.gesture = nil
	c.state = Idle
	c.selected = ""
	c.tool = ""
}

func (c *Controller) deleteSelected() error {
	if c.selected == "" {
		return ErrNoSelection
	}
	c.store.Remove(c.selected)
	c.selected = ""
	c.history.Commit(c.store.All())
	return nil
}

// nudge moves the selected element by (dx, dy), clamped to the surface, and
// commits. Each keypress is its own undo step.
func (c *Controller) nudge(dx, dy float64) error {
	if c.selected == "" {
		return ErrNoSelection
	}
	e, ok := c.store.Get(c.selected)
	if !ok {
		c.selected = ""
		return ErrNoSelection
	}
	nx := clamp(e.X+dx, 0, c.surfaceW-e.Width)
	ny := clamp(e.Y+dy, 0, c.surfaceH-e.Height)
	c.store.Update(e.ID, store.Patch{X: &nx, Y: &ny})
	c.history.Commit(c.store.All())
	return nil
}

func (c *Controller) revalidateSelection() {
	if c.selected == "" {
		return
	}
	if _, ok := c.store.Get(c.selected); !ok {
		c.selected = ""
	}
}

// resize returns the rectangle produced by moving the given handle of orig
// by (dx, dy). Edge handles change one dimension; n and w also shift the
// position so the opposite edge stays pinned. Corner handles pin the
// opposite corner. Width and height never drop below store.MinSize and the
// moving edge stays inside the surface.
func resize(orig store.Element, h Handle, dx, dy, surfaceW, surfaceH float64) store.Element {
	r := orig
	right := orig.X + orig.Width
	bottom := orig.Y + orig.Height

	switch h {
	case HandleE, HandleNE, HandleSE:
		r.Width = clamp(orig.Width+dx, store.MinSize, surfaceW-orig.X)
	case HandleW, HandleNW, HandleSW:
		r.Width = clamp(orig.Width-dx, store.MinSize, right)
		r.X = right - r.Width
	}
	switch h {
	case HandleS, HandleSW, HandleSE:
		r.Height = clamp(orig.Height+dy, store.MinSize, surfaceH-orig.Y)
	case HandleN, HandleNW, HandleNE:
		r.Height = clamp(orig.Height-dy, store.MinSize, bottom)
		r.Y = bottom - r.Height
	}
	return r
}

func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func step(modifier bool) float64 {
	if modifier {
		return 10
	}
	return 1
}
