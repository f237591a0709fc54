package store

import "github.com/hazyhaar/signdesk/idgen"

// Store is an ordered, id-keyed collection of elements. It is not
// goroutine-safe: the owning session serialises access (single-writer).
type Store struct {
	elements []Element
	index    map[string]int
	newID    idgen.Generator
}

// New creates an empty Store. A nil generator falls back to "el_"-prefixed
// UUIDv7 IDs.
func New(gen idgen.Generator) *Store {
	if gen == nil {
		gen = idgen.Prefixed("el_", idgen.Default)
	}
	return &Store{
		index: make(map[string]int),
		newID: gen,
	}
}

// Patch is a partial element update. Nil fields are left untouched.
type Patch struct {
	X           *float64
	Y           *float64
	Width       *float64
	Height      *float64
	Page        *int
	Content     *string
	Color       *string
	StrokeWidth *float64
	FontSize    *float64
}

// Add inserts e at the end of the collection, assigning a fresh id.
// The caller's ID field is ignored. Returns the assigned id.
func (s *Store) Add(e Element) string {
	e.ID = s.newID()
	s.index[e.ID] = len(s.elements)
	s.elements = append(s.elements, e)
	return e.ID
}

// Update applies p to the element with the given id. Returns false if the id
// is unknown.
func (s *Store) Update(id string, p Patch) bool {
	i, ok := s.index[id]
	if !ok {
		return false
	}
	e := &s.elements[i]
	if p.X != nil {
		e.X = *p.X
	}
	if p.Y != nil {
		e.Y = *p.Y
	}
	if p.Width != nil {
		e.Width = max(*p.Width, MinSize)
	}
	if p.Height != nil {
		e.Height = max(*p.Height, MinSize)
	}
	if p.Page != nil {
		e.Page = *p.Page
	}
	if p.Content != nil {
		e.Content = *p.Content
	}
	if p.Color != nil {
		e.Color = *p.Color
	}
	if p.StrokeWidth != nil {
		e.StrokeWidth = *p.StrokeWidth
	}
	if p.FontSize != nil {
		e.FontSize = *p.FontSize
	}
	return true
}

// Remove deletes the element with the given id. Removing an id that is
// already gone is a no-op.
func (s *Store) Remove(id string) {
	i, ok := s.index[id]
	if !ok {
		return
	}
	s.elements = append(s.elements[:i], s.elements[i+1:]...)
	delete(s.index, id)
	for j := i; j < len(s.elements); j++ {
		s.index[s.elements[j].ID] = j
	}
}

// Get returns the element with the given id.
func (s *Store) Get(id string) (Element, bool) {
	i, ok := s.index[id]
	if !ok {
		return Element{}, false
	}
	return s.elements[i], true
}

// All returns a copy of the full collection in insertion order.
func (s *Store) All() []Element {
	out := make([]Element, len(s.elements))
	copy(out, s.elements)
	return out
}

// ByPage returns the elements on the given 1-indexed page, in insertion order.
func (s *Store) ByPage(page int) []Element {
	var out []Element
	for _, e := range s.elements {
		if e.Page == page {
			out = append(out, e)
		}
	}
	return out
}

// Replace swaps the entire collection for the given snapshot. Used by
// undo/redo; ids are preserved as-is.
func (s *Store) Replace(elements []Element) {
	s.elements = make([]Element, len(elements))
	copy(s.elements, elements)
	s.index = make(map[string]int, len(elements))
	for i, e := range s.elements {
		s.index[e.ID] = i
	}
}

// Clear removes every element.
func (s *Store) Clear() {
	s.elements = nil
	s.index = make(map[string]int)
}

// Len returns the number of elements.
func (s *Store) Len() int {
	return len(s.elements)
}
