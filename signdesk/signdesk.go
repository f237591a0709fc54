// Package signdesk is the document annotation and signing engine. A Service
// owns named sessions, each wrapping one uploaded PDF plus its element
// store, undo history and interaction state. Captured signatures and the
// signer's name persist across sessions through an optional sigstore.Store.
package signdesk

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hazyhaar/signdesk/idgen"
	"github.com/hazyhaar/signdesk/internal/bake"
	"github.com/hazyhaar/signdesk/internal/capture"
	"github.com/hazyhaar/signdesk/internal/render"
	"github.com/hazyhaar/signdesk/observability"
	"github.com/hazyhaar/signdesk/safety"
	"github.com/hazyhaar/signdesk/sigstore"
)

// Service is the main signdesk orchestrator.
type Service struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	logger     *slog.Logger
	config     *Config
	newID      idgen.Generator
	clock      func() time.Time
	baker      *bake.Baker
	capture    *capture.Capture
	signatures *sigstore.Store
	events     *observability.EventLogger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithSignatureStore enables persistent saved signatures.
func WithSignatureStore(st *sigstore.Store) ServiceOption {
	return func(s *Service) { s.signatures = st }
}

// WithEventLogger enables business event recording.
func WithEventLogger(l *observability.EventLogger) ServiceOption {
	return func(s *Service) { s.events = l }
}

// WithIDGenerator sets a custom session ID generator.
func WithIDGenerator(gen idgen.Generator) ServiceOption {
	return func(s *Service) { s.newID = gen }
}

// WithClock sets the time source.
func WithClock(clock func() time.Time) ServiceOption {
	return func(s *Service) { s.clock = clock }
}

// New creates a signdesk Service.
func New(cfg *Config, logger *slog.Logger, opts ...ServiceOption) *Service {
	if cfg == nil {
		cfg = defaultConfig()
	}
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	svc := &Service{
		sessions: make(map[string]*Session),
		logger:   logger,
		config:   cfg,
		newID:    idgen.Prefixed("ses_", idgen.Default),
		clock:    time.Now,
		baker:    bake.New(cfg.FontsDir, bake.WithTextFont(cfg.TextFont)),
		capture:  capture.New(cfg.FontsDir),
	}
	for _, o := range opts {
		o(svc)
	}
	return svc
}

// CreateSession decodes the uploaded document and opens a session for it.
func (s *Service) CreateSession(ctx context.Context, data []byte, name string) (*Session, error) {
	doc, err := render.Decode(data, safety.SafeFilename(name))
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	sess := newSession(s.newID(), doc, s)

	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()

	s.logger.Info("session created",
		"session_id", sess.id, "document", doc.Name(), "pages", doc.PageCount())
	s.events.LogEvent(ctx, observability.BusinessEvent{
		EventType:  observability.EventDocumentUploaded,
		EntityType: "session",
		EntityID:   sess.id,
		Success:    true,
	})
	return sess, nil
}

// Session returns the session with the given id.
func (s *Service) Session(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return sess, nil
}

// DeleteSession discards a session and everything in it. Saved signatures
// are not touched.
func (s *Service) DeleteSession(ctx context.Context, id string) error {
	s.mu.Lock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	s.events.LogEvent(ctx, observability.BusinessEvent{
		EventType:  observability.EventDocumentCleared,
		EntityType: "session",
		EntityID:   id,
		Success:    true,
	})
	return nil
}

// SessionCount returns the number of open sessions.
func (s *Service) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Fonts lists the typed-signature font presets.
func (s *Service) Fonts() []string {
	return s.capture.Fonts()
}

// SavedSignatures lists persisted signatures, newest first. Without a
// signature store it returns nothing.
func (s *Service) SavedSignatures(ctx context.Context) []sigstore.SavedSignature {
	if s.signatures == nil {
		return nil
	}
	return s.signatures.List(ctx)
}

// SaveSignature persists a captured signature for reuse and returns its id.
func (s *Service) SaveSignature(ctx context.Context, mode sigstore.Mode, payload, name string) string {
	if s.signatures == nil {
		return ""
	}
	id := s.signatures.Save(ctx, mode, payload, name)
	s.events.LogEvent(ctx, observability.BusinessEvent{
		EventType:  observability.EventSignatureSaved,
		EntityType: "signature",
		EntityID:   id,
		Success:    true,
	})
	return id
}

// DeleteSignature removes a persisted signature.
func (s *Service) DeleteSignature(ctx context.Context, id string) {
	if s.signatures == nil {
		return
	}
	s.signatures.Delete(ctx, id)
	s.events.LogEvent(ctx, observability.BusinessEvent{
		EventType:  observability.EventSignatureDeleted,
		EntityType: "signature",
		EntityID:   id,
		Success:    true,
	})
}

// SignerName returns the persisted signer display name.
func (s *Service) SignerName(ctx context.Context) string {
	if s.signatures == nil {
		return ""
	}
	return s.signatures.SignerName(ctx)
}

// SetSignerName stores the signer display name.
func (s *Service) SetSignerName(ctx context.Context, name string) {
	if s.signatures == nil {
		return
	}
	s.signatures.SetSignerName(ctx, name)
}
