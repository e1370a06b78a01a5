// Package mpd notifies a Music Player Daemon about newly tagged files.
package mpd

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fhs/gompd/v2/mpd"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Client wraps the MPD client with reconnection logic.
type Client struct {
	mu       sync.Mutex
	client   *mpd.Client
	host     string
	port     int
	password string
	musicDir string
	logger   zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithPassword authenticates after connecting.
func WithPassword(password string) Option {
	return func(c *Client) {
		c.password = password
	}
}

// WithMusicDir sets MPD's music directory, used to turn local file paths into
// database URIs. Without it every update rescans the whole library.
func WithMusicDir(dir string) Option {
	return func(c *Client) {
		c.musicDir = dir
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a new MPD client wrapper.
func NewClient(host string, port int, opts ...Option) *Client {
	c := &Client{
		host:   host,
		port:   port,
		logger: log.Logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect establishes connection to MPD.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.connectLocked()
}

// connectLocked establishes connection (must hold lock).
func (c *Client) connectLocked() error {
	addr := fmt.Sprintf("%s:%d", c.host, c.port)
	c.logger.Debug().Str("addr", addr).Msg("Connecting to MPD")

	client, err := mpd.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect to MPD: %w", err)
	}

	if c.password != "" {
		if err := client.Command("password %s", c.password).OK(); err != nil {
			client.Close()
			return fmt.Errorf("MPD authentication failed: %w", err)
		}
	}

	c.client = client
	c.logger.Debug().Msg("Connected to MPD")
	return nil
}

// ensureConnected checks connection and reconnects if needed (must hold lock).
func (c *Client) ensureConnected() error {
	if c.client == nil {
		return c.connectLocked()
	}

	if err := c.client.Ping(); err != nil {
		c.logger.Warn().Err(err).Msg("MPD connection lost, reconnecting...")
		c.client.Close()
		c.client = nil
		return c.connectLocked()
	}

	return nil
}

// Close closes the MPD connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil {
		err := c.client.Close()
		c.client = nil
		return err
	}
	return nil
}

// Ping checks if the connection is alive.
func (c *Client) Ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client == nil {
		return fmt.Errorf("not connected")
	}
	return c.client.Ping()
}

// Update asks MPD to rescan uri ("" for the whole library) and returns the
// update job ID.
func (c *Client) Update(uri string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureConnected(); err != nil {
		return 0, err
	}

	job, err := c.client.Update(uri)
	if err != nil {
		return 0, fmt.Errorf("MPD update %q: %w", uri, err)
	}
	return job, nil
}

// URIFor maps a local file path to the directory URI MPD should rescan.
// Paths outside the music directory map to "" (full rescan).
func (c *Client) URIFor(path string) string {
	if c.musicDir == "" {
		return ""
	}
	absDir, err := filepath.Abs(c.musicDir)
	if err != nil {
		return ""
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return ""
	}
	rel, err := filepath.Rel(absDir, filepath.Dir(absPath))
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return ""
	}
	if rel == "." {
		return ""
	}
	return filepath.ToSlash(rel)
}

// NotifyFile triggers a rescan covering the file at path.
func (c *Client) NotifyFile(path string) error {
	uri := c.URIFor(path)
	job, err := c.Update(uri)
	if err != nil {
		return err
	}
	c.logger.Info().Str("uri", uri).Int("job", job).Msg("MPD library update requested")
	return nil
}
