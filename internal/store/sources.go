package store

import (
	"database/sql"
	"time"

	"github.com/Raulcadiz/CineCadiz/internal/catalog"
)

// --- Playlists ---

// CreatePlaylist inserts p and fills ID and CreatedAt.
func (s *Store) CreatePlaylist(p *catalog.Playlist) error {
	p.CreatedAt = time.Now().UTC()
	p.Active = true
	res, err := s.conn.Exec(
		"INSERT INTO playlists (name, url, filter_spanish, active, created_at) VALUES (?, ?, ?, 1, ?)",
		p.Name, p.URL, p.FilterSpanish, p.CreatedAt)
	if err != nil {
		return err
	}
	p.ID, err = res.LastInsertId()
	return err
}

// Playlists returns all playlists, newest first.
func (s *Store) Playlists() ([]catalog.Playlist, error) {
	rows, err := s.conn.Query(
		"SELECT id, name, url, filter_spanish, active, created_at, last_imported, total_items, active_items, last_error " +
			"FROM playlists ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []catalog.Playlist
	for rows.Next() {
		p, err := scanPlaylist(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// PlaylistByID returns one playlist or ErrNotFound.
func (s *Store) PlaylistByID(id int64) (catalog.Playlist, error) {
	row := s.conn.QueryRow(
		"SELECT id, name, url, filter_spanish, active, created_at, last_imported, total_items, active_items, last_error "+
			"FROM playlists WHERE id = ?", id)
	p, err := scanPlaylist(row)
	if err == sql.ErrNoRows {
		return catalog.Playlist{}, ErrNotFound
	}
	return p, err
}

// DeletePlaylist removes the playlist and all items imported from it.
func (s *Store) DeletePlaylist(id int64) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM items WHERE playlist_id = ?", id); err != nil {
		tx.Rollback()
		return err
	}
	res, err := tx.Exec("DELETE FROM playlists WHERE id = ?", id)
	if err != nil {
		tx.Rollback()
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		tx.Rollback()
		return ErrNotFound
	}
	return tx.Commit()
}

// TogglePlaylist flips the active flag and returns the new value.
func (s *Store) TogglePlaylist(id int64) (bool, error) {
	res, err := s.conn.Exec("UPDATE playlists SET active = NOT active WHERE id = ?", id)
	if err != nil {
		return false, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return false, ErrNotFound
	}
	var active bool
	err = s.conn.QueryRow("SELECT active FROM playlists WHERE id = ?", id).Scan(&active)
	return active, err
}

// FinishPlaylistImport records the outcome of an import run: item counts,
// the import timestamp, and a cleared or set error message.
func (s *Store) FinishPlaylistImport(id int64, importErr string) error {
	_, err := s.conn.Exec(`
		UPDATE playlists SET
			last_imported = ?,
			last_error = ?,
			total_items = (SELECT COUNT(*) FROM items WHERE playlist_id = ?),
			active_items = (SELECT COUNT(*) FROM items WHERE playlist_id = ? AND active = 1)
		WHERE id = ?`,
		time.Now().UTC(), importErr, id, id, id)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlaylist(row rowScanner) (catalog.Playlist, error) {
	var p catalog.Playlist
	var lastImported sql.NullTime
	err := row.Scan(&p.ID, &p.Name, &p.URL, &p.FilterSpanish, &p.Active,
		&p.CreatedAt, &lastImported, &p.TotalItems, &p.ActiveItems, &p.LastError)
	if err != nil {
		return catalog.Playlist{}, err
	}
	if lastImported.Valid {
		t := lastImported.Time
		p.LastImported = &t
	}
	return p, nil
}

// --- Feeds ---

// CreateFeed inserts f and fills ID and CreatedAt.
func (s *Store) CreateFeed(f *catalog.Feed) error {
	f.CreatedAt = time.Now().UTC()
	f.Active = true
	res, err := s.conn.Exec(
		"INSERT INTO feeds (name, url, active, created_at) VALUES (?, ?, 1, ?)",
		f.Name, f.URL, f.CreatedAt)
	if err != nil {
		return err
	}
	f.ID, err = res.LastInsertId()
	return err
}

// FeedByURL returns the feed with the given URL, or ErrNotFound. Used by the
// default-source importer to skip feeds that already exist.
func (s *Store) FeedByURL(url string) (catalog.Feed, error) {
	row := s.conn.QueryRow(
		"SELECT id, name, url, active, created_at, last_imported, total_items, last_error "+
			"FROM feeds WHERE url = ?", url)
	f, err := scanFeed(row)
	if err == sql.ErrNoRows {
		return catalog.Feed{}, ErrNotFound
	}
	return f, err
}

// Feeds returns all feeds, newest first.
func (s *Store) Feeds() ([]catalog.Feed, error) {
	rows, err := s.conn.Query(
		"SELECT id, name, url, active, created_at, last_imported, total_items, last_error " +
			"FROM feeds ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []catalog.Feed
	for rows.Next() {
		f, err := scanFeed(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// FeedByID returns one feed or ErrNotFound.
func (s *Store) FeedByID(id int64) (catalog.Feed, error) {
	row := s.conn.QueryRow(
		"SELECT id, name, url, active, created_at, last_imported, total_items, last_error "+
			"FROM feeds WHERE id = ?", id)
	f, err := scanFeed(row)
	if err == sql.ErrNoRows {
		return catalog.Feed{}, ErrNotFound
	}
	return f, err
}

// DeleteFeed removes the feed and all items imported from it.
func (s *Store) DeleteFeed(id int64) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM items WHERE feed_id = ?", id); err != nil {
		tx.Rollback()
		return err
	}
	res, err := tx.Exec("DELETE FROM feeds WHERE id = ?", id)
	if err != nil {
		tx.Rollback()
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		tx.Rollback()
		return ErrNotFound
	}
	return tx.Commit()
}

// FinishFeedImport records the outcome of a feed import run.
func (s *Store) FinishFeedImport(id int64, importErr string) error {
	_, err := s.conn.Exec(`
		UPDATE feeds SET
			last_imported = ?,
			last_error = ?,
			total_items = (SELECT COUNT(*) FROM items WHERE feed_id = ?)
		WHERE id = ?`,
		time.Now().UTC(), importErr, id, id)
	return err
}

func scanFeed(row rowScanner) (catalog.Feed, error) {
	var f catalog.Feed
	var lastImported sql.NullTime
	err := row.Scan(&f.ID, &f.Name, &f.URL, &f.Active,
		&f.CreatedAt, &lastImported, &f.TotalItems, &f.LastError)
	if err != nil {
		return catalog.Feed{}, err
	}
	if lastImported.Valid {
		t := lastImported.Time
		f.LastImported = &t
	}
	return f, nil
}
