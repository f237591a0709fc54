package interact

import (
	"errors"
	"fmt"
	"testing"

	"github.com/hazyhaar/signdesk/internal/history"
	"github.com/hazyhaar/signdesk/internal/store"
)

func newController() (*Controller, *store.Store, *history.History) {
	n := 0
	st := store.New(func() string {
		n++
		return fmt.Sprintf("el_%d", n)
	})
	h := history.New(0, nil)
	c := New(st, h)
	c.SetSurface(1000, 800)
	return c, st, h
}

func TestPlacement_CheckboxAtClickPoint(t *testing.T) {
	// WHAT: Arming the checkbox tool and clicking places a 24x24 checked box
	// centred on the click, selected, as one undo step.
	c, st, h := newController()
	if err := c.SelectTool(store.KindCheckbox); err != nil {
		t.Fatal(err)
	}
	if err := c.PointerDown(300, 400, HandleNone); err != nil {
		t.Fatal(err)
	}

	if st.Len() != 1 {
		t.Fatalf("store has %d elements, want 1", st.Len())
	}
	e := st.All()[0]
	if e.Kind != store.KindCheckbox || e.Width != 24 || e.Height != 24 {
		t.Errorf("placed %s %gx%g, want checkbox 24x24", e.Kind, e.Width, e.Height)
	}
	if e.X != 300-12 || e.Y != 400-12 {
		t.Errorf("placed at (%g,%g), want centred on click", e.X, e.Y)
	}
	if c.Selected() != e.ID {
		t.Error("placed element not selected")
	}
	if !h.CanUndo() {
		t.Error("placement did not commit a history step")
	}

	// Sticky: tool stays armed for the next click.
	if c.Tool() != store.KindCheckbox {
		t.Error("tool disarmed after placement")
	}
}

func TestPlacement_SignatureWithoutPayload(t *testing.T) {
	c, st, _ := newController()
	c.SelectTool(store.KindSignature)
	err := c.PointerDown(100, 100, HandleNone)
	if !errors.Is(err, ErrNoSignature) {
		t.Fatalf("err = %v, want ErrNoSignature", err)
	}
	if st.Len() != 0 {
		t.Error("failed placement must not add an element")
	}

	c.SetSignaturePayload("data:image/png;base64,AAAA")
	if err := c.PointerDown(100, 100, HandleNone); err != nil {
		t.Fatal(err)
	}
	if got := st.All()[0].Content; got != "data:image/png;base64,AAAA" {
		t.Errorf("signature content = %q", got)
	}
}

func TestDrag_ClampedToSurface(t *testing.T) {
	// WHAT: Dragging past the surface edge pins the element at the boundary.
	// WHY: Elements must stay fully on the page raster at all times.
	c, st, _ := newController()
	c.SelectTool(store.KindRectangle)
	c.PointerDown(500, 400, HandleNone)
	id := c.Selected()
	c.ClearTool()

	e, _ := st.Get(id)
	c.PointerDown(e.X+5, e.Y+5, HandleNone)
	if c.State() != Dragging {
		t.Fatalf("state = %v, want Dragging", c.State())
	}
	c.PointerMove(e.X+5+5000, e.Y+5-5000)
	c.PointerUp(e.X+5+5000, e.Y+5-5000)

	got, _ := st.Get(id)
	if got.X != 1000-got.Width || got.Y != 0 {
		t.Errorf("dragged to (%g,%g), want pinned at (%g,0)", got.X, got.Y, 1000-got.Width)
	}
	if c.State() != Idle {
		t.Error("gesture state leaked past pointer-up")
	}
}

func TestDrag_OneGestureOneUndoStep(t *testing.T) {
	c, st, h := newController()
	c.SelectTool(store.KindText)
	c.PointerDown(200, 200, HandleNone)
	id := c.Selected()
	c.ClearTool()
	before := h.Len()

	e, _ := st.Get(id)
	c.PointerDown(e.X+1, e.Y+1, HandleNone)
	for i := 1; i <= 30; i++ {
		c.PointerMove(e.X+1+float64(i), e.Y+1)
	}
	c.PointerUp(e.X+31, e.Y+1)

	if h.Len() != before+1 {
		t.Errorf("drag produced %d history entries, want 1", h.Len()-before)
	}
}

func TestResize_SoutheastKeepsOrigin(t *testing.T) {
	// WHAT: The se handle changes only width and height.
	c, st, _ := newController()
	c.SelectTool(store.KindRectangle)
	c.PointerDown(400, 300, HandleNone)
	id := c.Selected()
	c.ClearTool()
	orig, _ := st.Get(id)

	c.PointerDown(orig.X+orig.Width, orig.Y+orig.Height, HandleSE)
	if c.State() != Resizing {
		t.Fatalf("state = %v, want Resizing", c.State())
	}
	c.PointerMove(orig.X+orig.Width+30, orig.Y+orig.Height+40)
	c.PointerUp(orig.X+orig.Width+30, orig.Y+orig.Height+40)

	got, _ := st.Get(id)
	if got.X != orig.X || got.Y != orig.Y {
		t.Errorf("se resize moved origin to (%g,%g)", got.X, got.Y)
	}
	if got.Width != orig.Width+30 || got.Height != orig.Height+40 {
		t.Errorf("se resize -> %gx%g, want %gx%g",
			got.Width, got.Height, orig.Width+30, orig.Height+40)
	}
}

func TestResize_NorthwestPinsOppositeCorner(t *testing.T) {
	// WHAT: The nw handle keeps (x+w, y+h) fixed while x, y, w, h all change.
	c, st, _ := newController()
	c.SelectTool(store.KindRectangle)
	c.PointerDown(400, 300, HandleNone)
	id := c.Selected()
	c.ClearTool()
	orig, _ := st.Get(id)
	right, bottom := orig.X+orig.Width, orig.Y+orig.Height

	c.PointerDown(orig.X, orig.Y, HandleNW)
	c.PointerMove(orig.X-20, orig.Y-10)
	c.PointerUp(orig.X-20, orig.Y-10)

	got, _ := st.Get(id)
	if got.X+got.Width != right || got.Y+got.Height != bottom {
		t.Errorf("nw resize moved the opposite corner: (%g,%g), want (%g,%g)",
			got.X+got.Width, got.Y+got.Height, right, bottom)
	}
	if got.Width != orig.Width+20 || got.Height != orig.Height+10 {
		t.Errorf("nw resize -> %gx%g, want %gx%g",
			got.Width, got.Height, orig.Width+20, orig.Height+10)
	}
}

func TestResize_FloorsAtMinSize(t *testing.T) {
	c, st, _ := newController()
	c.SelectTool(store.KindRectangle)
	c.PointerDown(400, 300, HandleNone)
	id := c.Selected()
	c.ClearTool()
	orig, _ := st.Get(id)

	c.PointerDown(orig.X+orig.Width, orig.Y+orig.Height, HandleSE)
	c.PointerMove(orig.X-1000, orig.Y-1000)
	c.PointerUp(orig.X-1000, orig.Y-1000)

	got, _ := st.Get(id)
	if got.Width != store.MinSize || got.Height != store.MinSize {
		t.Errorf("collapsed to %gx%g, want floor %gx%g",
			got.Width, got.Height, store.MinSize, store.MinSize)
	}
}

func TestEscape_CancelsSelectionToolAndGesture(t *testing.T) {
	// WHAT: Escape clears tool and selection; a gesture in flight rolls back
	// with no element data change and no history entry.
	c, st, h := newController()
	c.SelectTool(store.KindCircle)
	c.PointerDown(400, 300, HandleNone)
	id := c.Selected()
	orig, _ := st.Get(id)
	c.ClearTool()
	before := h.Len()

	c.PointerDown(orig.X+5, orig.Y+5, HandleNone)
	c.PointerMove(orig.X+50, orig.Y+50)
	c.Keyboard(KeyEscape, false)

	got, _ := st.Get(id)
	if got != orig {
		t.Errorf("escape left element changed: %+v", got)
	}
	if c.Selected() != "" || c.Tool() != "" || c.State() != Idle {
		t.Error("escape did not reset selection, tool and state")
	}
	if h.Len() != before {
		t.Error("cancelled gesture committed a history entry")
	}
}

func TestDeleteKey_RemovesSelected(t *testing.T) {
	c, st, h := newController()
	c.SelectTool(store.KindText)
	c.PointerDown(100, 100, HandleNone)
	c.ClearTool()
	before := h.Len()

	if err := c.Keyboard(KeyDelete, false); err != nil {
		t.Fatal(err)
	}
	if st.Len() != 0 {
		t.Error("delete left the element in the store")
	}
	if c.Selected() != "" {
		t.Error("deleted element still selected")
	}
	if h.Len() != before+1 {
		t.Error("delete did not commit one history step")
	}

	if err := c.Keyboard(KeyDelete, false); !errors.Is(err, ErrNoSelection) {
		t.Errorf("delete with nothing selected: err = %v", err)
	}
}

func TestArrowNudge(t *testing.T) {
	c, st, _ := newController()
	c.SelectTool(store.KindText)
	c.PointerDown(500, 400, HandleNone)
	id := c.Selected()
	c.ClearTool()
	orig, _ := st.Get(id)

	c.Keyboard(KeyRight, false)
	c.Keyboard(KeyDown, true)
	got, _ := st.Get(id)
	if got.X != orig.X+1 || got.Y != orig.Y+10 {
		t.Errorf("nudged to (%g,%g), want (%g,%g)", got.X, got.Y, orig.X+1, orig.Y+10)
	}
}

func TestUndoRedo_ThroughController(t *testing.T) {
	// WHAT: Undo removes the last placement from the live store; redo brings
	// it back; a vanished selection is dropped.
	c, st, _ := newController()
	c.SelectTool(store.KindText)
	c.PointerDown(100, 100, HandleNone)
	c.PointerDown(200, 200, HandleNone)
	if st.Len() != 2 {
		t.Fatalf("Len = %d, want 2", st.Len())
	}

	if !c.Undo() {
		t.Fatal("Undo failed")
	}
	if st.Len() != 1 {
		t.Errorf("after undo Len = %d, want 1", st.Len())
	}
	if c.Selected() != "" {
		t.Error("selection survived undo of its placement")
	}
	if !c.Redo() {
		t.Fatal("Redo failed")
	}
	if st.Len() != 2 {
		t.Errorf("after redo Len = %d, want 2", st.Len())
	}
}

func TestHitTest_TopmostWins(t *testing.T) {
	c, st, _ := newController()
	c.SelectTool(store.KindRectangle)
	c.PointerDown(300, 300, HandleNone)
	c.PointerDown(310, 310, HandleNone)
	second := c.Selected()
	c.ClearTool()
	c.Keyboard(KeyEscape, false)

	// Both rectangles overlap at (310,310); the later one must win.
	c.PointerDown(310, 310, HandleNone)
	if c.Selected() != second {
		t.Errorf("selected %s, want topmost %s", c.Selected(), second)
	}
	c.PointerUp(310, 310)
	_ = st
}

func TestPointerDown_EmptySurfaceDeselects(t *testing.T) {
	c, _, _ := newController()
	c.SelectTool(store.KindText)
	c.PointerDown(100, 100, HandleNone)
	c.ClearTool()
	if c.Selected() == "" {
		t.Fatal("placement should select")
	}
	c.PointerDown(900, 700, HandleNone)
	if c.Selected() != "" {
		t.Error("click on empty surface kept the selection")
	}
}

func TestApplyStyle_CommitsOneStep(t *testing.T) {
	c, st, h := newController()
	c.SelectTool(store.KindText)
	c.PointerDown(100, 100, HandleNone)
	id := c.Selected()
	c.ClearTool()
	before := h.Len()

	color := "#ff0000"
	size := 22.0
	if err := c.ApplyStyle(store.Patch{Color: &color, FontSize: &size}); err != nil {
		t.Fatal(err)
	}
	got, _ := st.Get(id)
	if got.Color != "#ff0000" || got.FontSize != 22 {
		t.Errorf("style not applied: %+v", got)
	}
	if h.Len() != before+1 {
		t.Error("style change did not commit one history step")
	}
}

func TestSetPage_ScopesHitTesting(t *testing.T) {
	c, st, _ := newController()
	c.SelectTool(store.KindText)
	c.PointerDown(100, 100, HandleNone)
	c.ClearTool()
	c.Keyboard(KeyEscape, false)

	c.SetPage(2)
	c.PointerDown(100, 100, HandleNone)
	if c.Selected() != "" {
		t.Error("hit test found an element from another page")
	}
	if st.Len() != 1 {
		t.Error("page switch altered the store")
	}
}
