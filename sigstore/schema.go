package sigstore

import "database/sql"

// Schema contains the DDL for the saved-signature tables.
const Schema = `
CREATE TABLE IF NOT EXISTS saved_signatures (
    signature_id TEXT PRIMARY KEY,
    capture_mode TEXT NOT NULL CHECK (capture_mode IN ('draw', 'type', 'upload')),
    image_payload TEXT NOT NULL,
    name TEXT,
    created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
);
CREATE INDEX IF NOT EXISTS idx_saved_signatures_created
    ON saved_signatures(created_at DESC);

-- Single-row table holding the signer's display name.
CREATE TABLE IF NOT EXISTS signer_profile (
    profile_id INTEGER PRIMARY KEY CHECK (profile_id = 1),
    display_name TEXT NOT NULL DEFAULT '',
    updated_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
);
INSERT OR IGNORE INTO signer_profile (profile_id, display_name) VALUES (1, '');
`

// Init applies the sigstore schema to the given database.
func Init(db *sql.DB) error {
	_, err := db.Exec(Schema)
	return err
}
