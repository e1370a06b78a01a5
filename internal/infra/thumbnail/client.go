// Package thumbnail downloads thumbnail images advertised by the video platform.
package thumbnail

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/edumarques81/stellar-tagger/internal/version"
)

const (
	// DefaultTimeout for thumbnail requests
	DefaultTimeout = 15 * time.Second

	// MaxImageSize is the maximum image size to download (10MB)
	MaxImageSize = 10 * 1024 * 1024
)

var (
	// ErrThumbnailNotFound is returned for 404 responses and empty bodies.
	ErrThumbnailNotFound = errors.New("thumbnail not found")
	// ErrUnexpectedStatus is returned for any other non-200 response.
	ErrUnexpectedStatus = errors.New("unexpected status")
)

// Client fetches thumbnail images over HTTP.
type Client struct {
	userAgent  string
	httpClient *http.Client
	logger     zerolog.Logger
}

// Option is a functional option for configuring the client
type Option func(*Client)

// WithUserAgent sets a custom User-Agent header
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the overall request timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a new thumbnail client
func NewClient(opts ...Option) *Client {
	c := &Client{
		userAgent: version.UserAgent(),
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		logger: log.Logger,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Fetch downloads the image at url.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	c.logger.Debug().Str("url", url).Msg("Fetching thumbnail")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "image/*")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		c.logger.Debug().Str("url", url).Msg("Thumbnail not found")
		return nil, ErrThumbnailNotFound
	default:
		c.logger.Warn().Str("url", url).Int("status", resp.StatusCode).Msg("Thumbnail unexpected status")
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxImageSize))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if len(data) == 0 {
		return nil, ErrThumbnailNotFound
	}

	c.logger.Debug().
		Str("url", url).
		Int("size", len(data)).
		Str("type", resp.Header.Get("Content-Type")).
		Msg("Fetched thumbnail")

	return data, nil
}
