package store

import (
	"strings"
	"time"
)

// ScanTarget is one item the liveness scanner should probe.
type ScanTarget struct {
	ID        int64
	StreamURL string
}

// ScanBatch selects up to limit active playlist items for liveness
// verification. Never-verified items come first, then the least recently
// verified. Feed items link to web pages and are excluded.
func (s *Store) ScanBatch(limit int) ([]ScanTarget, error) {
	rows, err := s.conn.Query(`
		SELECT id, stream_url FROM items
		WHERE active = 1 AND source = 'm3u'
		ORDER BY last_check IS NOT NULL, last_check ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var targets []ScanTarget
	for rows.Next() {
		var t ScanTarget
		if err := rows.Scan(&t.ID, &t.StreamURL); err != nil {
			return nil, err
		}
		targets = append(targets, t)
	}
	return targets, rows.Err()
}

// ApplyScanResults stamps all checked items with the verification time,
// deactivates the dead ones, and refreshes the per-playlist active counters.
func (s *Store) ApplyScanResults(checkedAt time.Time, results map[int64]bool) error {
	if len(results) == 0 {
		return nil
	}
	tx, err := s.conn.Begin()
	if err != nil {
		return err
	}
	alive, err := tx.Prepare("UPDATE items SET last_check = ? WHERE id = ?")
	if err != nil {
		tx.Rollback()
		return err
	}
	defer alive.Close()
	dead, err := tx.Prepare("UPDATE items SET last_check = ?, active = 0 WHERE id = ?")
	if err != nil {
		tx.Rollback()
		return err
	}
	defer dead.Close()

	for id, ok := range results {
		stmt := alive
		if !ok {
			stmt = dead
		}
		if _, err := stmt.Exec(checkedAt, id); err != nil {
			tx.Rollback()
			return err
		}
	}

	ids := make([]int64, 0, len(results))
	for id := range results {
		ids = append(ids, id)
	}
	for start := 0; start < len(ids); start += maxSQLParams {
		end := start + maxSQLParams
		if end > len(ids) {
			end = len(ids)
		}
		chunk := ids[start:end]
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(chunk)), ",")
		args := make([]any, len(chunk))
		for i, id := range chunk {
			args[i] = id
		}
		_, err = tx.Exec(`
			UPDATE playlists SET active_items =
				(SELECT COUNT(*) FROM items WHERE playlist_id = playlists.id AND active = 1)
			WHERE id IN (SELECT DISTINCT playlist_id FROM items
				WHERE playlist_id IS NOT NULL AND id IN (`+placeholders+`))`, args...)
		if err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}
