package coverart

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/edumarques81/stellar-tagger/internal/version"
)

const (
	// DefaultCAABaseURL is the Cover Art Archive API base URL.
	DefaultCAABaseURL = "https://coverartarchive.org"

	// DefaultCAARateLimit is the request rate used against the archive.
	DefaultCAARateLimit = 1

	// MaxImageSize caps a downloaded cover at 10 MB.
	MaxImageSize = 10 * 1024 * 1024

	// frontSize selects the 1200px front thumbnail, matching the cover size
	// the normalizer produces.
	frontSize = "1200"
)

// CAAClient downloads front covers from the Cover Art Archive.
type CAAClient struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	limiter    *rateLimiter
	logger     zerolog.Logger
}

// CAAOption configures a CAAClient.
type CAAOption func(*CAAClient)

// WithCAABaseURL sets a custom base URL (useful for testing).
func WithCAABaseURL(u string) CAAOption {
	return func(c *CAAClient) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithCAAHTTPClient sets a custom HTTP client.
func WithCAAHTTPClient(client *http.Client) CAAOption {
	return func(c *CAAClient) {
		c.httpClient = client
	}
}

// WithCAARateLimit sets the request rate in requests per second.
func WithCAARateLimit(rps int) CAAOption {
	return func(c *CAAClient) {
		c.limiter = newRateLimiter(rps)
	}
}

// WithCAALogger sets the logger.
func WithCAALogger(logger zerolog.Logger) CAAOption {
	return func(c *CAAClient) {
		c.logger = logger
	}
}

// NewCAAClient creates a Cover Art Archive client.
func NewCAAClient(opts ...CAAOption) *CAAClient {
	c := &CAAClient{
		baseURL:    DefaultCAABaseURL,
		userAgent:  version.UserAgent(),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    newRateLimiter(DefaultCAARateLimit),
		logger:     log.Logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchFront downloads the front cover of the release mbid.
func (c *CAAClient) FetchFront(ctx context.Context, mbid string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	reqURL := fmt.Sprintf("%s/release/%s/front-%s", c.baseURL, mbid, frontSize)
	c.logger.Debug().Str("mbid", mbid).Str("url", reqURL).Msg("Fetching front cover from CAA")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
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

	if err := statusError("CAA", resp.StatusCode); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxImageSize))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrNotFound
	}

	c.logger.Debug().Str("mbid", mbid).Int("size", len(data)).Msg("Fetched front cover from CAA")
	return data, nil
}
