package history

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Record stores r, assigning an ID and timestamp when missing.
func (s *Store) Record(r *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return ErrNotOpen
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO downloads
		(id, run_id, video_id, url, path, format, title, artist, album, tagged, cover_embedded, status, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		r.ID,
		nullString(r.RunID),
		nullString(r.VideoID),
		r.URL,
		nullString(r.Path),
		r.Format,
		nullString(r.Title),
		nullString(r.Artist),
		nullString(r.Album),
		r.Tagged,
		r.CoverEmbedded,
		string(r.Status),
		nullString(r.Error),
		r.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert download: %w", err)
	}

	s.logger.Debug().
		Str("id", r.ID).
		Str("url", r.URL).
		Str("status", string(r.Status)).
		Msg("Recorded download")
	return nil
}

// Recent returns up to limit records, newest first.
func (s *Store) Recent(limit int) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, ErrNotOpen
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(`
		SELECT id, run_id, video_id, url, path, format, title, artist, album, tagged, cover_embedded, status, error, created_at
		FROM downloads
		ORDER BY created_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query downloads: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// LastSuccess returns the newest successful record for videoID, or nil.
func (s *Store) LastSuccess(videoID string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, ErrNotOpen
	}

	row := s.db.QueryRow(`
		SELECT id, run_id, video_id, url, path, format, title, artist, album, tagged, cover_embedded, status, error, created_at
		FROM downloads
		WHERE video_id = ? AND status = ?
		ORDER BY created_at DESC
		LIMIT 1
	`, videoID, string(StatusSucceeded))

	r, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return r, err
}

// Stats returns aggregate counts.
func (s *Store) Stats() (*Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, ErrNotOpen
	}

	stats := &Stats{}
	var last sql.NullString
	err := s.db.QueryRow(`
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
			MAX(created_at)
		FROM downloads
	`, string(StatusSucceeded), string(StatusFailed)).Scan(&stats.Total, &stats.Succeeded, &stats.Failed, &last)
	if err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}

	if last.Valid {
		stats.LastDownload, _ = time.Parse(timeLayout, last.String)
	}
	stats.SchemaVersion = s.getSchemaVersion()

	return stats, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*Record, error) {
	var (
		r                                          Record
		runID, videoID, path, title, artist, album sql.NullString
		errMsg                                     sql.NullString
		status, createdAt                          string
	)
	if err := row.Scan(
		&r.ID, &runID, &videoID, &r.URL, &path, &r.Format, &title, &artist, &album,
		&r.Tagged, &r.CoverEmbedded, &status, &errMsg, &createdAt,
	); err != nil {
		return nil, err
	}

	r.RunID = runID.String
	r.VideoID = videoID.String
	r.Path = path.String
	r.Title = title.String
	r.Artist = artist.String
	r.Album = album.String
	r.Status = Status(status)
	r.Error = errMsg.String
	r.CreatedAt, _ = time.Parse(timeLayout, createdAt)

	return &r, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
