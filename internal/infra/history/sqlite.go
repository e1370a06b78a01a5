// Package history provides a SQLite ledger of processed downloads.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// CurrentSchemaVersion is the current database schema version.
	CurrentSchemaVersion = "1"

	// DefaultDBPath is the default path for the history database.
	DefaultDBPath = "data/history.db"
)

// Store is the SQLite download history.
type Store struct {
	mu     sync.RWMutex
	db     *sql.DB
	path   string
	logger zerolog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New creates a history store instance. Call Open before use.
func New(path string, opts ...Option) *Store {
	if path == "" {
		path = DefaultDBPath
	}
	s := &Store{
		path:   path,
		logger: log.Logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open opens the database and initializes the schema.
func (s *Store) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := sql.Open("sqlite3", s.path+"?_journal=WAL&_busy_timeout=5000")
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s.db = db

	if err := s.initSchema(); err != nil {
		s.db.Close()
		s.db = nil
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	s.logger.Debug().Str("path", s.path).Msg("History database opened")
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		return err
	}
	return nil
}

// initSchema initializes the database schema.
func (s *Store) initSchema() error {
	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS history_meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TEXT
		);

		CREATE TABLE IF NOT EXISTS downloads (
			id TEXT PRIMARY KEY,
			run_id TEXT,
			video_id TEXT,
			url TEXT NOT NULL,
			path TEXT,
			format TEXT NOT NULL,
			title TEXT,
			artist TEXT,
			album TEXT,
			tagged INTEGER NOT NULL DEFAULT 0,
			cover_embedded INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL,
			error TEXT,
			created_at TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_downloads_created ON downloads(created_at);
		CREATE INDEX IF NOT EXISTS idx_downloads_video ON downloads(video_id);
		CREATE INDEX IF NOT EXISTS idx_downloads_run ON downloads(run_id);
	`); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}

	current := s.getSchemaVersion()
	if current != "" && current != CurrentSchemaVersion {
		s.logger.Info().
			Str("current", current).
			Str("target", CurrentSchemaVersion).
			Msg("Migrating history schema")
	}
	if current != CurrentSchemaVersion {
		return s.setMeta("schema_version", CurrentSchemaVersion)
	}
	return nil
}

// getSchemaVersion returns the current schema version.
func (s *Store) getSchemaVersion() string {
	var version string
	err := s.db.QueryRow("SELECT value FROM history_meta WHERE key = 'schema_version'").Scan(&version)
	if err != nil {
		return ""
	}
	return version
}

// setMeta sets a metadata value.
func (s *Store) setMeta(key, value string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.Exec(`
		INSERT INTO history_meta (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = ?, updated_at = ?
	`, key, value, now, value, now)
	return err
}

// NewRunID returns an identifier grouping the records of one batch.
func NewRunID() string {
	return uuid.NewString()
}
