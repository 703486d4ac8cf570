package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"entgo.io/ent/dialect"
)

// Table names.
const (
	tableDocuments   = "documents"
	tableChunks      = "chunks"
	tableAttempts    = "attempts"
	tableLLMRequests = "llm_request_events"
)

// ddl holds the CREATE statements. {{serial}} and {{blob}} are replaced
// per dialect. Timestamps are unix milliseconds.
var ddl = []string{
	`CREATE TABLE IF NOT EXISTS global_sequence (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		next_val BIGINT NOT NULL DEFAULT 1
	)`,
	`CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		filename TEXT NOT NULL,
		sha256 TEXT NOT NULL DEFAULT '',
		chunk_count INTEGER NOT NULL DEFAULT 0,
		created_at BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS chunks (
		id TEXT PRIMARY KEY,
		document_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		char_offset INTEGER NOT NULL DEFAULT 0,
		content TEXT NOT NULL,
		embedding {{blob}} NOT NULL,
		UNIQUE (document_id, position)
	)`,
	`CREATE TABLE IF NOT EXISTS attempts (
		id {{serial}},
		seq BIGINT NOT NULL UNIQUE,
		student_id TEXT NOT NULL,
		document_id TEXT NOT NULL,
		question TEXT NOT NULL,
		selected TEXT NOT NULL,
		correct TEXT NOT NULL,
		is_correct BOOLEAN NOT NULL,
		created_at BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS attempts_student_document ON attempts (student_id, document_id)`,
	`CREATE TABLE IF NOT EXISTS llm_request_events (
		id {{serial}},
		seq BIGINT NOT NULL UNIQUE,
		created_at BIGINT NOT NULL,
		provider TEXT NOT NULL,
		model TEXT NOT NULL,
		purpose TEXT NOT NULL,
		input_tokens INTEGER NOT NULL DEFAULT 0,
		output_tokens INTEGER NOT NULL DEFAULT 0,
		latency_ms BIGINT NOT NULL DEFAULT 0,
		success BOOLEAN NOT NULL,
		error_message TEXT NOT NULL DEFAULT '',
		request_body TEXT NOT NULL DEFAULT '',
		response_body TEXT NOT NULL DEFAULT ''
	)`,
}

// migrate creates missing tables and indexes. It is idempotent.
func migrate(ctx context.Context, db *sql.DB, d string) error {
	serial, blob := "INTEGER PRIMARY KEY AUTOINCREMENT", "BLOB"
	if d == dialect.Postgres {
		serial, blob = "BIGSERIAL PRIMARY KEY", "BYTEA"
	}
	r := strings.NewReplacer("{{serial}}", serial, "{{blob}}", blob)

	for _, stmt := range ddl {
		if _, err := db.ExecContext(ctx, r.Replace(stmt)); err != nil {
			return fmt.Errorf("exec %q: %w", firstLine(stmt), err)
		}
	}
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}
