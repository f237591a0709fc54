package render

import "sync"

// ViewKey identifies one rasterization request: the document generation it
// was issued for, the page and the zoom factor.
type ViewKey struct {
	Doc  string
	Page int
	Zoom float64
}

// Guard rejects rasterization results that completed after the view moved
// on. The session updates the live key on every document, page or zoom
// change; a completion whose key no longer matches is discarded by the
// caller. Safe for concurrent use since completions may arrive from other
// goroutines.
type Guard struct {
	mu   sync.Mutex
	live ViewKey
}

// Set records the live view key, invalidating in-flight rasterizations
// issued for any other key.
func (g *Guard) Set(k ViewKey) {
	g.mu.Lock()
	g.live = k
	g.mu.Unlock()
}

// Current returns the live view key.
func (g *Guard) Current() ViewKey {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.live
}

// Fresh reports whether a completion for k still matches the live view.
func (g *Guard) Fresh(k ViewKey) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.live == k
}
