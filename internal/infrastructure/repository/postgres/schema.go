package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

const schemaLockID = int64(2026021001)

const schemaDDL = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	full_name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS document_types (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	document_type_id TEXT REFERENCES document_types(id),
	uploaded_by TEXT REFERENCES users(id),
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS document_metadata (
	document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	meta_key TEXT NOT NULL,
	meta_value JSONB,
	label TEXT NOT NULL DEFAULT '',
	field_type TEXT NOT NULL DEFAULT 'text',
	PRIMARY KEY (document_id, meta_key)
);

CREATE TABLE IF NOT EXISTS document_type_fields (
	document_type_id TEXT NOT NULL REFERENCES document_types(id) ON DELETE CASCADE,
	field_name TEXT NOT NULL,
	is_required BOOLEAN NOT NULL DEFAULT FALSE,
	display_order INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (document_type_id, field_name)
);

CREATE TABLE IF NOT EXISTS templates (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	document_type_id TEXT REFERENCES document_types(id),
	file_path TEXT NOT NULL DEFAULT '',
	completeness_score DOUBLE PRECISION,
	usage_count INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS template_fields (
	template_id TEXT NOT NULL REFERENCES templates(id) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	name TEXT NOT NULL,
	x DOUBLE PRECISION NOT NULL DEFAULT 0,
	y DOUBLE PRECISION NOT NULL DEFAULT 0,
	width DOUBLE PRECISION NOT NULL DEFAULT 0,
	height DOUBLE PRECISION NOT NULL DEFAULT 0,
	page INTEGER NOT NULL DEFAULT 1,
	field_type TEXT NOT NULL DEFAULT 'text',
	is_required BOOLEAN NOT NULL DEFAULT FALSE,
	PRIMARY KEY (template_id, position)
);

CREATE TABLE IF NOT EXISTS ref_region (
	id BIGSERIAL PRIMARY KEY,
	region_code TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS ref_province (
	id BIGSERIAL PRIMARY KEY,
	province_code TEXT NOT NULL UNIQUE,
	region_code TEXT NOT NULL DEFAULT '',
	name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS ref_citymun (
	id BIGSERIAL PRIMARY KEY,
	citymun_code TEXT NOT NULL UNIQUE,
	province_code TEXT NOT NULL DEFAULT '',
	name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS ref_barangay (
	id BIGSERIAL PRIMARY KEY,
	barangay_code TEXT NOT NULL UNIQUE,
	citymun_code TEXT NOT NULL DEFAULT '',
	name TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_documents_type ON documents(document_type_id);
CREATE INDEX IF NOT EXISTS idx_templates_type ON templates(document_type_id);
`

// EnsureSchema creates the tables the service reads from.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, schemaLockID); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}
	if _, err := tx.ExecContext(ctx, schemaDDL); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}
