// Package store provides SQLite persistence for the catalog: imported
// playlists and feeds, the deduplicated content items, and the liveness
// bookkeeping the scanner updates.
package store

import (
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = errors.New("store: not found")

// maxSQLParams keeps bulk lookups under SQLite's bound-parameter limit.
const maxSQLParams = 900

// Store wraps the SQLite connection.
type Store struct {
	conn *sql.DB
}

// Open opens or creates the database at path and applies the schema.
func Open(path string) (*Store, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// WAL so reads keep working while an import transaction commits.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set wal mode: %w", err)
	}
	s := &Store{conn: conn}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS playlists (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		url TEXT NOT NULL,
		filter_spanish INTEGER NOT NULL DEFAULT 0,
		active INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL,
		last_imported DATETIME,
		total_items INTEGER NOT NULL DEFAULT 0,
		active_items INTEGER NOT NULL DEFAULT 0,
		last_error TEXT NOT NULL DEFAULT ''
	);
	CREATE TABLE IF NOT EXISTS feeds (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		url TEXT NOT NULL,
		active INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL,
		last_imported DATETIME,
		total_items INTEGER NOT NULL DEFAULT 0,
		last_error TEXT NOT NULL DEFAULT ''
	);
	CREATE TABLE IF NOT EXISTS items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		kind TEXT NOT NULL DEFAULT 'movie',
		stream_url TEXT NOT NULL,
		fingerprint TEXT NOT NULL UNIQUE,
		source TEXT NOT NULL DEFAULT 'm3u',
		server TEXT NOT NULL DEFAULT '',
		artwork_url TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		year INTEGER,
		genre TEXT NOT NULL DEFAULT '',
		group_title TEXT NOT NULL DEFAULT '',
		language TEXT NOT NULL DEFAULT '',
		country TEXT NOT NULL DEFAULT '',
		season INTEGER,
		episode INTEGER,
		rating REAL,
		active INTEGER NOT NULL DEFAULT 1,
		added_at DATETIME NOT NULL,
		last_check DATETIME,
		playlist_id INTEGER REFERENCES playlists(id),
		feed_id INTEGER REFERENCES feeds(id)
	);
	CREATE INDEX IF NOT EXISTS idx_items_active ON items(active);
	CREATE INDEX IF NOT EXISTS idx_items_source ON items(source);
	CREATE INDEX IF NOT EXISTS idx_items_added ON items(added_at);
	CREATE INDEX IF NOT EXISTS idx_items_playlist ON items(playlist_id);
	CREATE INDEX IF NOT EXISTS idx_items_feed ON items(feed_id);
	`
	_, err := s.conn.Exec(schema)
	return err
}
