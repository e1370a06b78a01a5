package coverart

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/edumarques81/stellar-tagger/internal/version"
)

const (
	// DefaultMBBaseURL is the MusicBrainz API base URL.
	DefaultMBBaseURL = "https://musicbrainz.org/ws/2"

	// DefaultMBRateLimit is the MusicBrainz guideline of one request per second.
	DefaultMBRateLimit = 1

	// DefaultTimeout for HTTP requests.
	DefaultTimeout = 30 * time.Second

	// Minimum search scores for a match. The first result at or above
	// highScore wins; otherwise the top result is used when above lowScore.
	highScore = 80
	lowScore  = 50
)

// MusicBrainzClient searches releases and recordings.
type MusicBrainzClient struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	limiter    *rateLimiter
	logger     zerolog.Logger
}

// MBOption configures a MusicBrainzClient.
type MBOption func(*MusicBrainzClient)

// WithMBBaseURL sets a custom base URL (useful for testing).
func WithMBBaseURL(u string) MBOption {
	return func(c *MusicBrainzClient) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithMBHTTPClient sets a custom HTTP client.
func WithMBHTTPClient(client *http.Client) MBOption {
	return func(c *MusicBrainzClient) {
		c.httpClient = client
	}
}

// WithMBRateLimit sets the request rate in requests per second.
func WithMBRateLimit(rps int) MBOption {
	return func(c *MusicBrainzClient) {
		c.limiter = newRateLimiter(rps)
	}
}

// WithMBLogger sets the logger.
func WithMBLogger(logger zerolog.Logger) MBOption {
	return func(c *MusicBrainzClient) {
		c.logger = logger
	}
}

// NewMusicBrainzClient creates a MusicBrainz API client.
func NewMusicBrainzClient(opts ...MBOption) *MusicBrainzClient {
	c := &MusicBrainzClient{
		baseURL:    DefaultMBBaseURL,
		userAgent:  version.UserAgent(),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    newRateLimiter(DefaultMBRateLimit),
		logger:     log.Logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// MBRelease is a release in a MusicBrainz search response.
type MBRelease struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Score  int    `json:"score"`
	Status string `json:"status"`
}

// MBRecording is a recording in a MusicBrainz search response.
type MBRecording struct {
	ID       string      `json:"id"`
	Title    string      `json:"title"`
	Score    int         `json:"score"`
	Releases []MBRelease `json:"releases"`
}

type releaseSearch struct {
	Releases []MBRelease `json:"releases"`
}

type recordingSearch struct {
	Recordings []MBRecording `json:"recordings"`
}

// SearchRelease returns the MBID of the best release matching artist and
// album, or "" when nothing matches with enough confidence.
func (c *MusicBrainzClient) SearchRelease(ctx context.Context, artist, album string) (string, error) {
	query := fmt.Sprintf(`artist:"%s" AND release:"%s"`, escapeQuery(artist), escapeQuery(album))

	var resp releaseSearch
	if err := c.search(ctx, "release", query, &resp); err != nil {
		return "", err
	}

	candidates := make([]match, len(resp.Releases))
	for i, r := range resp.Releases {
		candidates[i] = match{score: r.Score, title: r.Title}
	}
	i := bestMatch(candidates, album)
	if i < 0 {
		c.logger.Debug().Str("artist", artist).Str("album", album).Msg("No confident MusicBrainz release match")
		return "", nil
	}

	c.logger.Debug().
		Str("artist", artist).
		Str("album", album).
		Str("mbid", resp.Releases[i].ID).
		Int("score", resp.Releases[i].Score).
		Msg("Found MusicBrainz release")
	return resp.Releases[i].ID, nil
}

// SearchRecording returns the release MBIDs of the best recording matching
// artist and title, official releases first.
func (c *MusicBrainzClient) SearchRecording(ctx context.Context, artist, title string) ([]string, error) {
	query := fmt.Sprintf(`artist:"%s" AND recording:"%s"`, escapeQuery(artist), escapeQuery(title))

	var resp recordingSearch
	if err := c.search(ctx, "recording", query, &resp); err != nil {
		return nil, err
	}

	candidates := make([]match, len(resp.Recordings))
	for i, r := range resp.Recordings {
		candidates[i] = match{score: r.Score, title: r.Title}
	}
	i := bestMatch(candidates, title)
	if i < 0 {
		c.logger.Debug().Str("artist", artist).Str("title", title).Msg("No confident MusicBrainz recording match")
		return nil, nil
	}

	var official, other []string
	for _, r := range resp.Recordings[i].Releases {
		if strings.EqualFold(r.Status, "official") {
			official = append(official, r.ID)
		} else {
			other = append(other, r.ID)
		}
	}
	return append(official, other...), nil
}

// search runs a Lucene query against the entity endpoint and decodes the
// JSON response into out.
func (c *MusicBrainzClient) search(ctx context.Context, entity, query string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	reqURL := fmt.Sprintf("%s/%s?query=%s&fmt=json&limit=5", c.baseURL, entity, url.QueryEscape(query))
	c.logger.Debug().Str("url", reqURL).Msg("Searching MusicBrainz")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if err := statusError("MusicBrainz", resp.StatusCode); err != nil {
		return err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

type match struct {
	score int
	title string
}

// bestMatch picks, among results scored at or above highScore, the one whose
// title is closest to want (earliest on ties). Without such results the top
// result is used when it scores above lowScore. It returns -1 for no match.
func bestMatch(results []match, want string) int {
	metric := metrics.NewLevenshtein()
	metric.CaseSensitive = false

	best, bestSim := -1, -1.0
	for i, r := range results {
		if r.score < highScore {
			continue
		}
		if sim := strutil.Similarity(r.title, want, metric); sim > bestSim {
			best, bestSim = i, sim
		}
	}
	if best >= 0 {
		return best
	}
	if len(results) > 0 && results[0].score > lowScore {
		return 0
	}
	return -1
}

// statusError maps an HTTP status to the package errors.
func statusError(service string, code int) error {
	switch code {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusTooManyRequests:
		return fmt.Errorf("%s: %w", service, ErrRateLimited)
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		return fmt.Errorf("%s status %d: %w", service, code, ErrTemporaryFailure)
	default:
		return fmt.Errorf("%s: unexpected status: %d", service, code)
	}
}

// escapeQuery escapes Lucene special characters.
func escapeQuery(s string) string {
	return luceneEscaper.Replace(s)
}

var luceneEscaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	`+`, `\+`,
	`-`, `\-`,
	`!`, `\!`,
	`(`, `\(`,
	`)`, `\)`,
	`{`, `\{`,
	`}`, `\}`,
	`[`, `\[`,
	`]`, `\]`,
	`^`, `\^`,
	`~`, `\~`,
	`*`, `\*`,
	`?`, `\?`,
	`:`, `\:`,
	`/`, `\/`,
)
