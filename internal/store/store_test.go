package store

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// seqGen returns a deterministic generator for tests.
func seqGen() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("el_%d", n)
	}
}

func TestAdd_AssignsFreshID(t *testing.T) {
	s := New(seqGen())
	id1 := s.Add(Element{Kind: KindCheckbox, X: 10, Y: 10, Width: 24, Height: 24, Page: 1})
	id2 := s.Add(Element{Kind: KindText, X: 50, Y: 50, Width: 150, Height: 30, Page: 1})
	if id1 == id2 {
		t.Fatalf("ids must be unique, both %s", id1)
	}
	if s.Len() != 2 {
		t.Errorf("Len = %d, want 2", s.Len())
	}
	e, ok := s.Get(id1)
	if !ok || e.Kind != KindCheckbox {
		t.Errorf("Get(%s) = %+v, %v", id1, e, ok)
	}
}

func TestAdd_IgnoresCallerID(t *testing.T) {
	// WHAT: A caller-supplied ID is replaced at insertion.
	// WHY: IDs are generated exactly once and never reused.
	s := New(seqGen())
	id := s.Add(Element{ID: "spoofed", Kind: KindText, Page: 1})
	if id == "spoofed" {
		t.Error("caller-supplied ID must not survive Add")
	}
}

func TestUpdate_Partial(t *testing.T) {
	s := New(seqGen())
	id := s.Add(Element{Kind: KindText, X: 10, Y: 20, Width: 150, Height: 30, Page: 1, Content: "Text", FontSize: 14})

	content := "Approved"
	fs := 18.0
	if !s.Update(id, Patch{Content: &content, FontSize: &fs}) {
		t.Fatal("Update returned false for a live id")
	}
	e, _ := s.Get(id)
	if e.Content != "Approved" || e.FontSize != 18 {
		t.Errorf("patched element = %+v", e)
	}
	if e.X != 10 || e.Y != 20 || e.Width != 150 {
		t.Errorf("untouched fields changed: %+v", e)
	}
}

func TestUpdate_FloorsSizeAtMinimum(t *testing.T) {
	s := New(seqGen())
	id := s.Add(Element{Kind: KindRectangle, Width: 120, Height: 80, Page: 1})
	w, h := 5.0, 3.0
	s.Update(id, Patch{Width: &w, Height: &h})
	e, _ := s.Get(id)
	if e.Width != MinSize || e.Height != MinSize {
		t.Errorf("size = %vx%v, want floored at %v", e.Width, e.Height, MinSize)
	}
}

func TestRemove_Idempotent(t *testing.T) {
	// WHAT: Removing an already-removed id is a no-op.
	s := New(seqGen())
	id := s.Add(Element{Kind: KindCircle, Page: 1})
	s.Remove(id)
	s.Remove(id)
	if s.Len() != 0 {
		t.Errorf("Len = %d after double remove, want 0", s.Len())
	}
	if s.Update(id, Patch{}) {
		t.Error("Update on removed id must return false")
	}
}

func TestRemove_PreservesOrder(t *testing.T) {
	s := New(seqGen())
	a := s.Add(Element{Kind: KindText, Page: 1})
	b := s.Add(Element{Kind: KindLine, Page: 1})
	c := s.Add(Element{Kind: KindArrow, Page: 1})
	s.Remove(b)

	all := s.All()
	if len(all) != 2 || all[0].ID != a || all[1].ID != c {
		t.Errorf("order after remove: %+v", all)
	}
	// Index must still resolve the survivors.
	if _, ok := s.Get(c); !ok {
		t.Error("Get after remove lost a surviving element")
	}
}

func TestByPage(t *testing.T) {
	s := New(seqGen())
	s.Add(Element{Kind: KindText, Page: 1})
	s.Add(Element{Kind: KindText, Page: 2})
	s.Add(Element{Kind: KindLine, Page: 1})

	p1 := s.ByPage(1)
	if len(p1) != 2 {
		t.Fatalf("ByPage(1) len = %d, want 2", len(p1))
	}
	if len(s.ByPage(3)) != 0 {
		t.Error("ByPage(3) should be empty")
	}
}

func TestReplace_RoundTrip(t *testing.T) {
	// WHAT: Replace restores an earlier snapshot exactly.
	// WHY: Undo/redo swaps the live collection for a history snapshot.
	s := New(seqGen())
	s.Add(Element{Kind: KindText, X: 1, Page: 1, Content: "a"})
	s.Add(Element{Kind: KindLine, X: 2, Page: 1})
	snap := s.All()

	s.Add(Element{Kind: KindArrow, X: 3, Page: 1})
	s.Replace(snap)

	if diff := cmp.Diff(snap, s.All()); diff != "" {
		t.Errorf("collection mismatch after Replace (-want +got):\n%s", diff)
	}
	// Index is rebuilt.
	if _, ok := s.Get(snap[0].ID); !ok {
		t.Error("Get broken after Replace")
	}
}

func TestAll_ReturnsCopy(t *testing.T) {
	s := New(seqGen())
	s.Add(Element{Kind: KindText, X: 1, Page: 1})
	all := s.All()
	all[0].X = 99
	e, _ := s.Get(all[0].ID)
	if e.X == 99 {
		t.Error("All must return a copy, not a view")
	}
}

func TestPresetFor_EveryKind(t *testing.T) {
	// WHAT: Every kind has usable placement defaults.
	for _, k := range Kinds() {
		p := PresetFor(k)
		if p.Width < MinSize || p.Height < MinSize {
			t.Errorf("%s preset %vx%v below minimum size", k, p.Width, p.Height)
		}
	}
}

func TestPresetFor_SpecifiedDefaults(t *testing.T) {
	cb := PresetFor(KindCheckbox)
	if cb.Width != 24 || cb.Height != 24 || cb.Content != "✓" {
		t.Errorf("checkbox preset = %+v", cb)
	}
	hl := PresetFor(KindHighlight)
	if hl.Width != 200 || hl.Height != 20 || hl.Color != "#ffeb3b" {
		t.Errorf("highlight preset = %+v", hl)
	}
	ar := PresetFor(KindArrow)
	if ar.Width != 150 || ar.Height != 20 || ar.Color != "#000000" || ar.StrokeWidth != 2 {
		t.Errorf("arrow preset = %+v", ar)
	}
}

func TestKindPredicates(t *testing.T) {
	if !KindSignature.ImageBacked() || !KindImage.ImageBacked() {
		t.Error("signature and image are image-backed")
	}
	if KindHighlight.Textual() || !KindDate.Textual() {
		t.Error("textual predicate wrong")
	}
	if Kind("bogus").Valid() {
		t.Error("unknown kind must not validate")
	}
	if len(Kinds()) != 13 {
		t.Errorf("kind count = %d, want 13", len(Kinds()))
	}
}
