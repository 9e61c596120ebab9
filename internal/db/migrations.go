package db

import (
	"database/sql"
	"fmt"
)

// migrations is an ordered list of SQL migration statements.
// Each entry is applied once in order. New migrations are appended at the end.
var migrations = []string{
	// Migration 0: profiles and their memories
	`CREATE TABLE IF NOT EXISTS profiles (
		id                TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(16)))),
		name              TEXT NOT NULL UNIQUE,
		description       TEXT NOT NULL DEFAULT '',
		backstory         TEXT NOT NULL DEFAULT '',
		addressed_as      TEXT NOT NULL DEFAULT 'love',
		tags              TEXT NOT NULL DEFAULT '[]',
		traits            TEXT NOT NULL DEFAULT '{}',
		emotional_profile TEXT NOT NULL DEFAULT '{}',
		created_at        DATETIME DEFAULT CURRENT_TIMESTAMP,
		last_used_at      DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE TABLE IF NOT EXISTS profile_memories (
		id         TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(16)))),
		profile_id TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
		position   INTEGER NOT NULL,
		content    TEXT NOT NULL,
		tags       TEXT NOT NULL DEFAULT '[]',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,

	// Migration 2: conversation turns, grouped by session
	`CREATE TABLE IF NOT EXISTS turns (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		profile_id TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
		role       TEXT NOT NULL,
		content    TEXT NOT NULL,
		method     TEXT NOT NULL DEFAULT '',
		emotion    TEXT NOT NULL DEFAULT '',
		polarity   REAL NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE INDEX IF NOT EXISTS idx_profile_memories_profile ON profile_memories(profile_id, position)`,
	`CREATE INDEX IF NOT EXISTS idx_turns_session            ON turns(session_id, id)`,
	`CREATE INDEX IF NOT EXISTS idx_turns_profile            ON turns(profile_id, created_at DESC)`,

	// Migration 6: migration tracking table
	`CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
}

// applyMigrations runs any migrations that have not yet been applied.
func applyMigrations(conn *sql.DB) error {
	// Ensure the migration tracking table exists first.
	if _, err := conn.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	for i, stmt := range migrations {
		var count int
		row := conn.QueryRow(`SELECT COUNT(*) FROM schema_migrations WHERE version = ?`, i)
		if err := row.Scan(&count); err != nil {
			return fmt.Errorf("check migration %d: %w", i, err)
		}
		if count > 0 {
			continue
		}

		if _, err := conn.Exec(stmt); err != nil {
			return fmt.Errorf("apply migration %d: %w", i, err)
		}

		if _, err := conn.Exec(`INSERT INTO schema_migrations (version) VALUES (?)`, i); err != nil {
			return fmt.Errorf("record migration %d: %w", i, err)
		}
	}

	return nil
}

// applyVectorTables creates the sqlite-vec table for memory embeddings.
func applyVectorTables(conn *sql.DB, dimension int) error {
	stmt := fmt.Sprintf(`CREATE VIRTUAL TABLE IF NOT EXISTS vec_memories USING vec0(
		id TEXT PRIMARY KEY,
		embedding float[%d]
	)`, dimension)

	if _, err := conn.Exec(stmt); err != nil {
		return fmt.Errorf("create vector table: %w", err)
	}
	return nil
}
