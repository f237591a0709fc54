// Package history implements the bounded undo/redo snapshot stack for an
// annotation session. One committed gesture produces at most one entry.
package history

import (
	"slices"
	"time"

	"github.com/hazyhaar/signdesk/internal/store"
)

// DefaultLimit is the maximum number of retained snapshots. When exceeded,
// the oldest entry is dropped.
const DefaultLimit = 50

// Snapshot is a stored copy of the full element collection at one point in
// time.
type Snapshot struct {
	Elements []store.Element
	At       time.Time
}

// History owns an ordered sequence of snapshots plus a current index. The
// snapshot at the index always equals the live store content immediately
// after any undo or redo. Not goroutine-safe; the owning session serialises
// access.
type History struct {
	entries []Snapshot
	index   int
	limit   int
	clock   func() time.Time
}

// New creates a History seeded with the empty collection, so undoing the
// first gesture returns to an empty document.
func New(limit int, clock func() time.Time) *History {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if clock == nil {
		clock = time.Now
	}
	h := &History{limit: limit, clock: clock}
	h.entries = append(h.entries, Snapshot{At: clock()})
	return h
}

// Commit records the given collection as a new snapshot. Called by the
// interaction controller at gesture completion (placement, pointer-up,
// delete, style change), never per pointer-move frame. If the collection
// deep-equals the snapshot at the current index the call is a no-op;
// otherwise any redo entries beyond the index are discarded, the snapshot is
// appended, and the oldest entry is evicted once the limit is exceeded.
func (h *History) Commit(elements []store.Element) {
	if slices.Equal(elements, h.entries[h.index].Elements) {
		return
	}
	h.entries = h.entries[:h.index+1]
	snap := Snapshot{Elements: make([]store.Element, len(elements)), At: h.clock()}
	copy(snap.Elements, elements)
	h.entries = append(h.entries, snap)
	h.index++
	if len(h.entries) > h.limit {
		drop := len(h.entries) - h.limit
		h.entries = h.entries[drop:]
		h.index -= drop
	}
}

// Undo moves one step back and returns the snapshot to restore. Returns
// false at the oldest entry.
func (h *History) Undo() ([]store.Element, bool) {
	if h.index == 0 {
		return nil, false
	}
	h.index--
	return h.current(), true
}

// Redo moves one step forward and returns the snapshot to restore. Returns
// false at the newest entry.
func (h *History) Redo() ([]store.Element, bool) {
	if h.index >= len(h.entries)-1 {
		return nil, false
	}
	h.index++
	return h.current(), true
}

// CanUndo reports whether Undo would succeed.
func (h *History) CanUndo() bool { return h.index > 0 }

// CanRedo reports whether Redo would succeed.
func (h *History) CanRedo() bool { return h.index < len(h.entries)-1 }

// Reset discards all entries and reseeds with the empty collection.
// Used by document Clear-All and new uploads.
func (h *History) Reset() {
	h.entries = h.entries[:0]
	h.entries = append(h.entries, Snapshot{At: h.clock()})
	h.index = 0
}

// Len returns the number of retained snapshots.
func (h *History) Len() int { return len(h.entries) }

// Index returns the current position within the snapshot sequence.
func (h *History) Index() int { return h.index }

func (h *History) current() []store.Element {
	src := h.entries[h.index].Elements
	out := make([]store.Element, len(src))
	copy(out, src)
	return out
}
