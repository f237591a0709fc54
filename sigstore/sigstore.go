// Package sigstore persists captured signatures and the signer's display
// name across sessions in a local SQLite database. Storage failures degrade
// silently: a read returns nothing, a write is dropped with a warning, and
// the caller keeps working with in-memory state only.
package sigstore

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/hazyhaar/signdesk/idgen"
)

// Mode identifies how a signature was captured.
type Mode string

const (
	ModeDraw   Mode = "draw"
	ModeType   Mode = "type"
	ModeUpload Mode = "upload"
)

// Valid reports whether m is a known capture mode.
func (m Mode) Valid() bool {
	return m == ModeDraw || m == ModeType || m == ModeUpload
}

// SavedSignature is one reusable signature image.
type SavedSignature struct {
	ID        string    `json:"id"`
	Mode      Mode      `json:"mode"`
	Payload   string    `json:"payload"`
	Name      string    `json:"name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Store reads and writes saved signatures. Never touched by a document
// clear: only an explicit Delete removes a signature.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
	newID  idgen.Generator
	clock  func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for degraded-storage warnings.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithIDGenerator sets a custom signature ID generator.
func WithIDGenerator(gen idgen.Generator) Option {
	return func(s *Store) { s.newID = gen }
}

// WithClock sets the time source for created-at stamps.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) { s.clock = clock }
}

// New creates a Store over the given database.
func New(db *sql.DB, opts ...Option) *Store {
	s := &Store{
		db:     db,
		logger: slog.Default(),
		newID:  idgen.Prefixed("sig_", idgen.Default),
		clock:  time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Save persists a signature and returns its id. On storage failure the
// generated id is still returned so the caller can keep using the signature
// in memory; it simply will not survive a restart.
func (s *Store) Save(ctx context.Context, mode Mode, payload, name string) string {
	id := s.newID()
	if !mode.Valid() || payload == "" {
		s.logger.Warn("sigstore: dropping invalid signature", "mode", mode)
		return id
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO saved_signatures (signature_id, capture_mode, image_payload, name, created_at)
		VALUES (?,?,?,?,?)`,
		id, string(mode), payload, name, s.clock().Unix())
	if err != nil {
		s.logger.Warn("sigstore: save failed", "error", err, "signature_id", id)
	}
	return id
}

// List returns saved signatures, newest first. On storage failure it returns
// an empty list.
func (s *Store) List(ctx context.Context) []SavedSignature {
	rows, err := s.db.QueryContext(ctx, `
		SELECT signature_id, capture_mode, image_payload, name, created_at
		FROM saved_signatures ORDER BY created_at DESC, signature_id DESC`)
	if err != nil {
		s.logger.Warn("sigstore: list failed", "error", err)
		return nil
	}
	defer rows.Close()

	var out []SavedSignature
	for rows.Next() {
		var sig SavedSignature
		var mode string
		var created int64
		if err := rows.Scan(&sig.ID, &mode, &sig.Payload, &sig.Name, &created); err != nil {
			s.logger.Warn("sigstore: scan failed", "error", err)
			return nil
		}
		sig.Mode = Mode(mode)
		sig.CreatedAt = time.Unix(created, 0).UTC()
		out = append(out, sig)
	}
	if err := rows.Err(); err != nil {
		s.logger.Warn("sigstore: list failed", "error", err)
		return nil
	}
	return out
}

// Delete removes a saved signature. A freshly initialized session must not
// see a deleted signature again, so the row is removed, not flagged.
func (s *Store) Delete(ctx context.Context, id string) {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM saved_signatures WHERE signature_id = ?`, id); err != nil {
		s.logger.Warn("sigstore: delete failed", "error", err, "signature_id", id)
	}
}

// SignerName returns the stored display name, or "" when unset or on
// storage failure.
func (s *Store) SignerName(ctx context.Context) string {
	var name string
	err := s.db.QueryRowContext(ctx,
		`SELECT display_name FROM signer_profile WHERE profile_id = 1`).Scan(&name)
	if err != nil {
		if err != sql.ErrNoRows {
			s.logger.Warn("sigstore: read signer name failed", "error", err)
		}
		return ""
	}
	return name
}

// SetSignerName stores the signer's display name.
func (s *Store) SetSignerName(ctx context.Context, name string) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO signer_profile (profile_id, display_name, updated_at)
		VALUES (1, ?, ?)
		ON CONFLICT(profile_id) DO UPDATE SET display_name = excluded.display_name,
			updated_at = excluded.updated_at`,
		name, s.clock().Unix())
	if err != nil {
		s.logger.Warn("sigstore: set signer name failed", "error", err)
	}
}
