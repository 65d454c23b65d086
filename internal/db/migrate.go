package db

import (
	"database/sql"
	"fmt"
)

// AppendOnlyMessage is the trigger abort text. The repository layer matches
// on it to map raw SQLite errors to ErrAppendOnly.
const AppendOnlyMessage = "ledger entries are append-only"

// Migrate runs all schema migrations. Statements are idempotent so the full
// list re-runs on every startup.
func Migrate(db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS ledger_entries (
		id                TEXT PRIMARY KEY,
		session_id        TEXT NOT NULL,
		user_id           TEXT NOT NULL,
		timestamp         TEXT NOT NULL,
		user_input        TEXT NOT NULL,
		user_input_hash   TEXT NOT NULL,
		malicious_score   REAL,
		malicious_blocked INTEGER NOT NULL DEFAULT 0,
		voting_result     TEXT,
		comparison_result TEXT,
		elevation_event   TEXT,
		trusted_intent    TEXT,
		processing_output TEXT,
		ip_address        TEXT,
		user_agent        TEXT
	)`,

	`CREATE INDEX IF NOT EXISTS idx_ledger_user ON ledger_entries(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_ledger_session ON ledger_entries(session_id)`,
	`CREATE INDEX IF NOT EXISTS idx_ledger_timestamp ON ledger_entries(timestamp)`,
	`CREATE INDEX IF NOT EXISTS idx_ledger_input_hash ON ledger_entries(user_input_hash)`,
	`CREATE INDEX IF NOT EXISTS idx_ledger_blocked ON ledger_entries(malicious_blocked)`,

	// Append-only enforcement at the storage boundary. The API exposes no
	// update or delete, but these triggers reject mutation even from raw
	// SQL against the same database file.
	`CREATE TRIGGER IF NOT EXISTS ledger_no_update
	 BEFORE UPDATE ON ledger_entries
	 BEGIN
		SELECT RAISE(ABORT, 'ledger entries are append-only');
	 END`,

	`CREATE TRIGGER IF NOT EXISTS ledger_no_delete
	 BEFORE DELETE ON ledger_entries
	 BEGIN
		SELECT RAISE(ABORT, 'ledger entries are append-only');
	 END`,

	`CREATE TABLE IF NOT EXISTS elevation_events (
		id               TEXT PRIMARY KEY,
		reason           TEXT NOT NULL,
		status           TEXT NOT NULL DEFAULT 'pending'
		                 CHECK(status IN ('pending','approved','rejected')),
		canonical_intent TEXT NOT NULL,
		content_refs     TEXT,
		user_id          TEXT NOT NULL,
		session_id       TEXT NOT NULL,
		approver_id      TEXT,
		resolved_at      TEXT,
		notes            TEXT,
		created_at       TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_elevation_status ON elevation_events(status)`,
	`CREATE INDEX IF NOT EXISTS idx_elevation_created ON elevation_events(created_at)`,
}
