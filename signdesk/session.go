package signdesk

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/hazyhaar/signdesk/internal/capture"
	"github.com/hazyhaar/signdesk/internal/history"
	"github.com/hazyhaar/signdesk/internal/interact"
	"github.com/hazyhaar/signdesk/internal/render"
	"github.com/hazyhaar/signdesk/internal/store"
	"github.com/hazyhaar/signdesk/observability"
)

// Pointer event phases accepted by Session.Pointer.
const (
	PhaseDown = "down"
	PhaseMove = "move"
	PhaseUp   = "up"
)

// Session wraps one uploaded document and its annotation state. Element
// geometry lives in the document's own pixel space (one unit per PDF point,
// origin top-left); the on-screen zoom is applied at the view edge, so
// pointer coordinates arriving in screen pixels are divided by the zoom
// before they reach the interaction state machine.
//
// All mutating calls serialise on one mutex: the engine may be driven by
// HTTP handlers on many goroutines.
type Session struct {
	mu sync.Mutex

	id         string
	doc        *render.Document
	page       int
	zoom       float64
	store      *store.Store
	history    *history.History
	controller *interact.Controller
	guard      render.Guard

	svc *Service
}

// State is a session snapshot for API responses.
type State struct {
	ID       string  `json:"id"`
	Document string  `json:"document"`
	Pages    int     `json:"pages"`
	Page     int     `json:"page"`
	Zoom     float64 `json:"zoom"`
	Tool     string  `json:"tool,omitempty"`
	Selected string  `json:"selected,omitempty"`
	Elements int     `json:"elements"`
	CanUndo  bool    `json:"can_undo"`
	CanRedo  bool    `json:"can_redo"`
}

func newSession(id string, doc *render.Document, svc *Service) *Session {
	st := store.New(nil)
	h := history.New(svc.config.HistoryLimit, svc.clock)
	c := interact.New(st, h)

	sess := &Session{
		id:         id,
		doc:        doc,
		page:       1,
		zoom:       1,
		store:      st,
		history:    h,
		controller: c,
		svc:        svc,
	}
	sess.applyView()
	return sess
}

// applyView pushes the current page geometry into the controller and the
// stale-raster guard. Callers hold mu.
func (s *Session) applyView() {
	if size, err := s.doc.Size(s.page); err == nil {
		s.controller.SetSurface(size.Width, size.Height)
	}
	s.guard.Set(render.ViewKey{Doc: s.id, Page: s.page, Zoom: s.zoom})
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// State returns a snapshot of the session.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		ID:       s.id,
		Document: s.doc.Name(),
		Pages:    s.doc.PageCount(),
		Page:     s.page,
		Zoom:     s.zoom,
		Tool:     string(s.controller.Tool()),
		Selected: s.controller.Selected(),
		Elements: s.store.Len(),
		CanUndo:  s.history.CanUndo(),
		CanRedo:  s.history.CanRedo(),
	}
}

// SetPage switches the visible page. Any in-flight gesture is abandoned.
func (s *Session) SetPage(page int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.doc.Size(page); err != nil {
		return err
	}
	s.page = page
	s.controller.SetPage(page)
	s.applyView()
	return nil
}

// SetZoom changes the view zoom. Element geometry is unaffected; only
// rasterization and pointer scaling change.
func (s *Session) SetZoom(zoom float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if zoom < render.MinZoom || zoom > render.MaxZoom {
		return fmt.Errorf("%w: %g", render.ErrBadZoom, zoom)
	}
	s.zoom = zoom
	s.applyView()
	return nil
}

// Raster renders the current page surface at the current zoom. The result
// carries the view key it was produced for; if the view moved on while
// rendering, the stale raster is discarded and ErrStaleView returned.
func (s *Session) Raster() ([]byte, error) {
	s.mu.Lock()
	page, zoom := s.page, s.zoom
	key := render.ViewKey{Doc: s.id, Page: page, Zoom: zoom}
	s.mu.Unlock()

	data, err := s.doc.Rasterize(page, zoom)
	if err != nil {
		return nil, err
	}
	if !s.guard.Fresh(key) {
		return nil, ErrStaleView
	}
	return data, nil
}

// SelectTool arms the sticky placement tool.
func (s *Session) SelectTool(kind string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.controller.SelectTool(store.Kind(kind))
}

// ClearTool disarms the placement tool.
func (s *Session) ClearTool() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.controller.ClearTool()
}

// Pointer dispatches a pointer event. Coordinates arrive in screen pixels
// at the current zoom.
func (s *Session) Pointer(ctx context.Context, phase string, x, y float64, handle string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	x /= s.zoom
	y /= s.zoom
	switch phase {
	case PhaseDown:
		placing := s.controller.Tool() != ""
		before := s.store.Len()
		if err := s.controller.PointerDown(x, y, interact.Handle(handle)); err != nil {
			return err
		}
		if placing && s.store.Len() > before {
			s.logPlacement(ctx)
		}
		return nil
	case PhaseMove:
		s.controller.PointerMove(x, y)
		return nil
	case PhaseUp:
		s.controller.PointerUp(x, y)
		return nil
	}
	return fmt.Errorf("%w: %q", ErrBadPointerPhase, phase)
}

// logPlacement records an element_placed event for the element just added.
// Callers hold mu.
func (s *Session) logPlacement(ctx context.Context) {
	id := s.controller.Selected()
	e, ok := s.store.Get(id)
	if !ok {
		return
	}
	s.svc.events.LogEvent(ctx, observability.BusinessEvent{
		EventType:  observability.EventElementPlaced,
		EntityType: "element",
		EntityID:   id,
		Details:    `{"kind":` + strconv.Quote(string(e.Kind)) + `,"page":` + strconv.Itoa(e.Page) + `}`,
		Success:    true,
	})
}

// Keyboard dispatches a keyboard accelerator.
func (s *Session) Keyboard(key string, modifier bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.controller.Keyboard(interact.Key(key), modifier)
}

// Elements returns every element in the session.
func (s *Session) Elements() []store.Element {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.All()
}

// VisibleElements returns the elements on the current page.
func (s *Session) VisibleElements() []store.Element {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.ByPage(s.page)
}

// UpdateElement patches an element directly, as one history step.
func (s *Session) UpdateElement(id string, p store.Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.store.Update(id, p) {
		return fmt.Errorf("%w: %s", ErrElementNotFound, id)
	}
	s.history.Commit(s.store.All())
	return nil
}

// RemoveElement deletes an element. Removing an unknown id is a no-op.
func (s *Session) RemoveElement(ctx context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.store.Get(id); !ok {
		return
	}
	s.store.Remove(id)
	s.history.Commit(s.store.All())
	s.svc.events.LogEvent(ctx, observability.BusinessEvent{
		EventType:  observability.EventElementRemoved,
		EntityType: "element",
		EntityID:   id,
		Success:    true,
	})
}

// Undo steps the annotation state back. Returns false at the oldest entry.
func (s *Session) Undo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.controller.Undo()
}

// Redo steps the annotation state forward. Returns false at the newest entry.
func (s *Session) Redo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.controller.Redo()
}

// Clear removes every element and resets the undo history. The loaded
// document and saved signatures are untouched.
func (s *Session) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.Clear()
	s.history.Reset()
	s.controller.ClearTool()
	s.controller.SetPage(s.page)
	s.svc.events.LogEvent(ctx, observability.BusinessEvent{
		EventType:  observability.EventDocumentCleared,
		EntityType: "session",
		EntityID:   s.id,
		Success:    true,
	})
}

// CaptureDraw renders freehand strokes into a signature payload and arms it
// for placement.
func (s *Session) CaptureDraw(ctx context.Context, strokes []capture.Stroke, width, height int) (string, error) {
	uri, err := s.svc.capture.Draw(strokes, width, height)
	if err != nil {
		return "", err
	}
	s.armSignature(ctx, uri, "draw")
	return uri, nil
}

// CaptureTyped renders a typed name into a signature payload and arms it
// for placement.
func (s *Session) CaptureTyped(ctx context.Context, name, font string) (string, error) {
	uri, err := s.svc.capture.Typed(name, font)
	if err != nil {
		return "", err
	}
	s.armSignature(ctx, uri, "type")
	return uri, nil
}

// CaptureUpload validates an uploaded image into a signature payload and
// arms it for placement.
func (s *Session) CaptureUpload(ctx context.Context, data []byte, mediaType string) (string, error) {
	uri, err := capture.Upload(data, mediaType)
	if err != nil {
		return "", err
	}
	s.armSignature(ctx, uri, "upload")
	return uri, nil
}

// UseSignature arms an already-captured payload, e.g. a saved signature.
func (s *Session) UseSignature(dataURI string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.controller.SetSignaturePayload(dataURI)
}

// UseImage arms an already-encoded data URI for image element placement.
func (s *Session) UseImage(dataURI string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.controller.SetImagePayload(dataURI)
}

// SetImage arms an image payload for image element placement.
func (s *Session) SetImage(data []byte, mediaType string) error {
	uri, err := capture.Upload(data, mediaType)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.controller.SetImagePayload(uri)
	return nil
}

func (s *Session) armSignature(ctx context.Context, uri, mode string) {
	s.mu.Lock()
	s.controller.SetSignaturePayload(uri)
	s.mu.Unlock()
	s.svc.events.LogEvent(ctx, observability.BusinessEvent{
		EventType:  observability.EventSignatureCaptured,
		EntityType: "session",
		EntityID:   s.id,
		Details:    `{"mode":` + strconv.Quote(mode) + `}`,
		Success:    true,
	})
}

// Export bakes every element into the document and returns the output bytes
// plus the download filename. All-or-nothing: on failure the session state
// is untouched and the export can be retried.
func (s *Session) Export(ctx context.Context) ([]byte, string, error) {
	s.mu.Lock()
	elements := s.store.All()
	s.mu.Unlock()

	out, name, err := s.svc.baker.Bake(s.doc, elements, 1)
	if err != nil {
		s.svc.events.LogEvent(ctx, observability.BusinessEvent{
			EventType:  observability.EventExportFailed,
			EntityType: "session",
			EntityID:   s.id,
		})
		return nil, "", err
	}
	s.svc.events.LogEvent(ctx, observability.BusinessEvent{
		EventType:  observability.EventExportCompleted,
		EntityType: "session",
		EntityID:   s.id,
		Details:    `{"elements":` + strconv.Itoa(len(elements)) + `}`,
		Success:    true,
	})
	return out, name, nil
}
