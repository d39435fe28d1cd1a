package store

import (
	"database/sql"
	"sort"
	"strings"
	"time"

	"github.com/Raulcadiz/CineCadiz/internal/catalog"
)

const itemColumns = "id, title, kind, stream_url, fingerprint, source, server, artwork_url, " +
	"description, year, genre, group_title, language, country, season, episode, rating, " +
	"active, added_at, last_check, playlist_id, feed_id"

// ExistingFingerprints returns which of the given fingerprints are already in
// the items table. Lookups run in chunks to stay under the SQLite parameter
// limit.
func (s *Store) ExistingFingerprints(fps []string) (map[string]struct{}, error) {
	existing := make(map[string]struct{}, len(fps))
	for start := 0; start < len(fps); start += maxSQLParams {
		end := start + maxSQLParams
		if end > len(fps) {
			end = len(fps)
		}
		chunk := fps[start:end]

		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(chunk)), ",")
		args := make([]any, len(chunk))
		for i, fp := range chunk {
			args[i] = fp
		}
		rows, err := s.conn.Query(
			"SELECT fingerprint FROM items WHERE fingerprint IN ("+placeholders+")", args...)
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			var fp string
			if err := rows.Scan(&fp); err != nil {
				rows.Close()
				return nil, err
			}
			existing[fp] = struct{}{}
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()
	}
	return existing, nil
}

// InsertEntries persists entries in transactions of batchSize rows and
// returns how many were actually added. Exactly one of playlistID / feedID
// identifies the provenance. Fingerprint collisions with concurrent imports
// are ignored rather than failed.
func (s *Store) InsertEntries(entries []catalog.Entry, playlistID, feedID *int64, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = 500
	}
	added := 0
	now := time.Now().UTC()
	for start := 0; start < len(entries); start += batchSize {
		end := start + batchSize
		if end > len(entries) {
			end = len(entries)
		}
		n, err := s.insertBatch(entries[start:end], playlistID, feedID, now)
		added += n
		if err != nil {
			return added, err
		}
	}
	return added, nil
}

func (s *Store) insertBatch(entries []catalog.Entry, playlistID, feedID *int64, now time.Time) (int, error) {
	tx, err := s.conn.Begin()
	if err != nil {
		return 0, err
	}
	stmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO items
			(title, kind, stream_url, fingerprint, source, server, artwork_url,
			 description, year, genre, group_title, language, country,
			 season, episode, rating, active, added_at, playlist_id, feed_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return 0, err
	}
	defer stmt.Close()

	added := 0
	for _, e := range entries {
		title := e.Title
		if title == "" {
			title = "Sin título"
		}
		res, err := stmt.Exec(title, string(e.Kind), e.StreamURL, e.Fingerprint,
			string(e.Source), e.Server, e.ArtworkURL, e.Description,
			nullInt(e.Year), e.Genre, e.GroupTitle, e.Language, e.Country,
			nullInt(e.Season), nullInt(e.Episode), nullFloat(e.Rating),
			now, playlistID, feedID)
		if err != nil {
			tx.Rollback()
			return 0, err
		}
		if n, _ := res.RowsAffected(); n > 0 {
			added++
		}
	}
	return added, tx.Commit()
}

// ItemQuery selects active catalog items. Zero values mean "no filter".
type ItemQuery struct {
	Kind    catalog.Kind
	Genre   string // substring match
	Year    int
	Text    string // matches title, genre or group title
	Page    int    // 1-based
	PerPage int
}

// QueryItems returns one page of active items matching q, newest first,
// together with the total match count.
func (s *Store) QueryItems(q ItemQuery) ([]catalog.Item, int, error) {
	where := "active = 1"
	var args []any
	if q.Kind != "" {
		where += " AND kind = ?"
		args = append(args, string(q.Kind))
	}
	if q.Genre != "" {
		where += " AND genre LIKE '%' || ? || '%'"
		args = append(args, q.Genre)
	}
	if q.Year > 0 {
		where += " AND year = ?"
		args = append(args, q.Year)
	}
	if q.Text != "" {
		where += " AND (title LIKE '%' || ? || '%' OR genre LIKE '%' || ? || '%' OR group_title LIKE '%' || ? || '%')"
		args = append(args, q.Text, q.Text, q.Text)
	}

	var total int
	if err := s.conn.QueryRow("SELECT COUNT(*) FROM items WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page := q.Page
	if page < 1 {
		page = 1
	}
	perPage := q.PerPage
	if perPage < 1 {
		perPage = 24
	}
	args = append(args, perPage, (page-1)*perPage)
	rows, err := s.conn.Query(
		"SELECT "+itemColumns+" FROM items WHERE "+where+
			" ORDER BY added_at DESC, id DESC LIMIT ? OFFSET ?", args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items, err := scanItemRows(rows)
	return items, total, err
}

// ItemByID returns one item regardless of its active flag, or ErrNotFound.
func (s *Store) ItemByID(id int64) (catalog.Item, error) {
	row := s.conn.QueryRow("SELECT "+itemColumns+" FROM items WHERE id = ?", id)
	it, err := scanItem(row)
	if err == sql.ErrNoRows {
		return catalog.Item{}, ErrNotFound
	}
	return it, err
}

// Trending returns the most recently added active items.
func (s *Store) Trending(limit int) ([]catalog.Item, error) {
	rows, err := s.conn.Query(
		"SELECT "+itemColumns+" FROM items WHERE active = 1 ORDER BY added_at DESC, id DESC LIMIT ?",
		limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanItemRows(rows)
}

// ToggleItem flips the active flag of one item and returns the new value.
func (s *Store) ToggleItem(id int64) (bool, error) {
	res, err := s.conn.Exec("UPDATE items SET active = NOT active WHERE id = ?", id)
	if err != nil {
		return false, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return false, ErrNotFound
	}
	var active bool
	err = s.conn.QueryRow("SELECT active FROM items WHERE id = ?", id).Scan(&active)
	return active, err
}

// Genres returns the distinct genre names across active items. Stored genres
// are comma-joined, so they are split and deduplicated here.
func (s *Store) Genres() ([]string, error) {
	rows, err := s.conn.Query(
		"SELECT DISTINCT genre FROM items WHERE active = 1 AND genre != ''")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seen := make(map[string]struct{})
	for rows.Next() {
		var g string
		if err := rows.Scan(&g); err != nil {
			return nil, err
		}
		for _, part := range strings.Split(g, ",") {
			if part = strings.TrimSpace(part); part != "" {
				seen[part] = struct{}{}
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	genres := make([]string, 0, len(seen))
	for g := range seen {
		genres = append(genres, g)
	}
	sort.Strings(genres)
	return genres, nil
}

// Years returns the distinct release years across active items, newest
// first.
func (s *Store) Years() ([]int, error) {
	rows, err := s.conn.Query(
		"SELECT DISTINCT year FROM items WHERE active = 1 AND year IS NOT NULL ORDER BY year DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var years []int
	for rows.Next() {
		var y int
		if err := rows.Scan(&y); err != nil {
			return nil, err
		}
		years = append(years, y)
	}
	return years, rows.Err()
}

// Stats summarises the catalog for the frontend and the admin dashboard.
type Stats struct {
	Movies    int
	Series    int
	Inactive  int
	Playlists int
	Feeds     int
	Total     int
}

// CatalogStats returns catalog counters.
func (s *Store) CatalogStats() (Stats, error) {
	var st Stats
	err := s.conn.QueryRow(`
		SELECT
			(SELECT COUNT(*) FROM items WHERE active = 1 AND kind = 'movie'),
			(SELECT COUNT(*) FROM items WHERE active = 1 AND kind = 'series'),
			(SELECT COUNT(*) FROM items WHERE active = 0),
			(SELECT COUNT(*) FROM playlists WHERE active = 1),
			(SELECT COUNT(*) FROM feeds WHERE active = 1)`).
		Scan(&st.Movies, &st.Series, &st.Inactive, &st.Playlists, &st.Feeds)
	if err != nil {
		return Stats{}, err
	}
	st.Total = st.Movies + st.Series
	return st, nil
}

func nullInt(v int) any {
	if v == 0 {
		return nil
	}
	return v
}

func nullFloat(v float64) any {
	if v == 0 {
		return nil
	}
	return v
}

func scanItem(row rowScanner) (catalog.Item, error) {
	var it catalog.Item
	var year, season, episode sql.NullInt64
	var rating sql.NullFloat64
	var lastCheck sql.NullTime
	var playlistID, feedID sql.NullInt64
	err := row.Scan(&it.ID, &it.Title, (*string)(&it.Kind), &it.StreamURL, &it.Fingerprint,
		(*string)(&it.Source), &it.Server, &it.ArtworkURL, &it.Description,
		&year, &it.Genre, &it.GroupTitle, &it.Language, &it.Country,
		&season, &episode, &rating, &it.Active, &it.AddedAt, &lastCheck,
		&playlistID, &feedID)
	if err != nil {
		return catalog.Item{}, err
	}
	it.Year = int(year.Int64)
	it.Season = int(season.Int64)
	it.Episode = int(episode.Int64)
	it.Rating = rating.Float64
	if lastCheck.Valid {
		t := lastCheck.Time
		it.LastCheck = &t
	}
	if playlistID.Valid {
		id := playlistID.Int64
		it.PlaylistID = &id
	}
	if feedID.Valid {
		id := feedID.Int64
		it.FeedID = &id
	}
	return it, nil
}

func scanItemRows(rows *sql.Rows) ([]catalog.Item, error) {
	var items []catalog.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
