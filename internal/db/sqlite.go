package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS queue_items (
    id                INTEGER PRIMARY KEY AUTOINCREMENT,
    title             TEXT    NOT NULL,
    options           TEXT    NOT NULL DEFAULT '{}',
    status            TEXT    NOT NULL DEFAULT 'queued',
    result_ref        INTEGER,
    error_message     TEXT,
    retry_count       INTEGER NOT NULL DEFAULT 0,
    scheduled_job_ref TEXT,
    created_at        DATETIME NOT NULL,
    started_at        DATETIME,
    completed_at      DATETIME
);
CREATE INDEX IF NOT EXISTS idx_queue_items_status ON queue_items(status);

CREATE TABLE IF NOT EXISTS media_assets (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    filename   TEXT NOT NULL,
    mime       TEXT NOT NULL,
    data       BLOB NOT NULL,
    alt_text   TEXT NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS articles (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    title          TEXT NOT NULL,
    slug           TEXT NOT NULL,
    body           TEXT NOT NULL,
    status         TEXT NOT NULL DEFAULT 'draft',
    type           TEXT NOT NULL DEFAULT 'post',
    category       INTEGER,
    tags           TEXT NOT NULL DEFAULT '[]',
    featured_image INTEGER REFERENCES media_assets(id) ON DELETE SET NULL,
    meta           TEXT NOT NULL DEFAULT '{}',
    created_at     DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_articles_status_type ON articles(status, type);
`

// OpenSQLite opens (creating if needed) the single-node database at path and
// applies the schema.
func OpenSQLite(path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}
	return db, nil
}
