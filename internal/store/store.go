// Package store is the SQLite persistence of series, meetings, action items,
// decisions, diagnostics and rendered artifacts. Repo implements the
// semantic pass's repository port.
package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/protokoll/minutes/internal/semantic"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS series (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	name       TEXT NOT NULL,
	short_name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS categories (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	series_id INTEGER NOT NULL REFERENCES series(id) ON DELETE CASCADE,
	name      TEXT NOT NULL,
	UNIQUE(series_id, name)
);

CREATE TABLE IF NOT EXISTS meta_fields (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	series_id     INTEGER NOT NULL REFERENCES series(id) ON DELETE CASCADE,
	key           TEXT NOT NULL,
	name          TEXT NOT NULL DEFAULT '',
	default_value TEXT NOT NULL DEFAULT '',
	internal      INTEGER NOT NULL DEFAULT 0,
	UNIQUE(series_id, key)
);

CREATE TABLE IF NOT EXISTS meetings (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	series_id  INTEGER NOT NULL REFERENCES series(id) ON DELETE CASCADE,
	date       TEXT NOT NULL DEFAULT '',
	start_time TEXT NOT NULL DEFAULT '',
	end_time   TEXT NOT NULL DEFAULT '',
	source     TEXT NOT NULL DEFAULT '',
	checksum   TEXT NOT NULL DEFAULT '',
	meta       TEXT NOT NULL DEFAULT '{}',
	done       INTEGER NOT NULL DEFAULT 0,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_meetings_series ON meetings(series_id, date);

CREATE TABLE IF NOT EXISTS action_items (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	series_id   INTEGER NOT NULL REFERENCES series(id) ON DELETE CASCADE,
	number      INTEGER NOT NULL,
	who         TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	state       TEXT NOT NULL DEFAULT 'open',
	date        TEXT NOT NULL DEFAULT '',
	UNIQUE(series_id, number)
);

CREATE TABLE IF NOT EXISTS action_item_meetings (
	item_id    INTEGER NOT NULL REFERENCES action_items(id) ON DELETE CASCADE,
	meeting_id INTEGER NOT NULL REFERENCES meetings(id) ON DELETE CASCADE,
	UNIQUE(item_id, meeting_id)
);

CREATE INDEX IF NOT EXISTS idx_aim_meeting ON action_item_meetings(meeting_id);

CREATE TABLE IF NOT EXISTS action_item_aliases (
	series_id INTEGER NOT NULL REFERENCES series(id) ON DELETE CASCADE,
	number    INTEGER NOT NULL,
	target    INTEGER NOT NULL,
	UNIQUE(series_id, number)
);

CREATE TABLE IF NOT EXISTS legacy_action_items (
	series_id   INTEGER NOT NULL REFERENCES series(id) ON DELETE CASCADE,
	number      INTEGER NOT NULL,
	who         TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	UNIQUE(series_id, number)
);

CREATE TABLE IF NOT EXISTS decisions (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	meeting_id INTEGER NOT NULL REFERENCES meetings(id) ON DELETE CASCADE,
	position   INTEGER NOT NULL,
	content    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS decision_categories (
	decision_id INTEGER NOT NULL REFERENCES decisions(id) ON DELETE CASCADE,
	category_id INTEGER NOT NULL REFERENCES categories(id) ON DELETE CASCADE,
	position    INTEGER NOT NULL,
	UNIQUE(decision_id, category_id)
);

CREATE TABLE IF NOT EXISTS agenda_items (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	meeting_id INTEGER NOT NULL REFERENCES meetings(id) ON DELETE CASCADE,
	number     INTEGER NOT NULL,
	name       TEXT NOT NULL,
	extra      INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS diagnostics (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	meeting_id INTEGER NOT NULL REFERENCES meetings(id) ON DELETE CASCADE,
	phase      TEXT NOT NULL,
	kind       TEXT NOT NULL,
	severity   TEXT NOT NULL,
	message    TEXT NOT NULL,
	line       INTEGER NOT NULL DEFAULT 0,
	context    TEXT NOT NULL DEFAULT '',
	tree       TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS artifacts (
	meeting_id INTEGER NOT NULL REFERENCES meetings(id) ON DELETE CASCADE,
	format     TEXT NOT NULL,
	visibility TEXT NOT NULL,
	run_id     TEXT NOT NULL,
	content    TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY(meeting_id, format, visibility)
);
`

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Repo runs queries against the database or inside one transaction.
type Repo struct {
	q querier
}

// Verify *Repo satisfies the semantic repository port at compile time.
var _ semantic.Repository = (*Repo)(nil)

// DB wraps a sql.DB. Its embedded Repo runs every statement in autocommit mode.
type DB struct {
	*Repo
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply fts schema: %w", err)
	}
	return &DB{Repo: &Repo{q: conn}, conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks that the database answers.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// WithTx runs fn inside a transaction. It commits when fn returns nil and
// rolls back otherwise.
func (db *DB) WithTx(ctx context.Context, fn func(*Repo) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if err := fn(&Repo{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return nil
}
