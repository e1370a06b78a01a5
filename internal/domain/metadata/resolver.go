// Package metadata derives canonical tag fields from noisy upstream video metadata.
package metadata

import (
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// titleSeparator splits "Artist - Title" style strings.
const titleSeparator = " - "

// maxTitleArtistLen bounds the artist candidate taken from a title split.
const maxTitleArtistLen = 50

var (
	artistMarkers = []string{"Artist:", "Artista:", "By:", "Por:"}
	albumMarkers  = []string{"Album:", "Álbum:"}
)

// ArtistStrategy proposes an artist from the info record given the current
// candidate. It returns current unchanged when it has nothing better.
type ArtistStrategy func(info RawInfo, current string) string

// DefaultArtistStrategies is the resolution order used by NewResolver.
var DefaultArtistStrategies = []ArtistStrategy{
	ArtistFromTags,
	ArtistFromLatinAlternative,
	ArtistFromTitle,
	ArtistFromDescription,
	ArtistFromChannel,
}

// Resolver builds Canonical metadata from a RawInfo record.
type Resolver struct {
	logger     zerolog.Logger
	strategies []ArtistStrategy
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithLogger sets the logger used for resolution diagnostics.
func WithLogger(logger zerolog.Logger) ResolverOption {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// WithArtistStrategies replaces the artist strategy chain.
func WithArtistStrategies(strategies ...ArtistStrategy) ResolverOption {
	return func(r *Resolver) {
		r.strategies = strategies
	}
}

// NewResolver creates a resolver with the default strategy chain.
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{
		logger:     log.Logger,
		strategies: DefaultArtistStrategies,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve derives the canonical tag set. It never fails: every field has a fallback.
func (r *Resolver) Resolve(info RawInfo) Canonical {
	artist := ""
	for _, strategy := range r.strategies {
		artist = strategy(info, artist)
	}

	c := Canonical{
		Title:    info.Title,
		Artist:   CleanArtistName(artist),
		Album:    ResolveAlbum(info),
		Date:     ResolveDate(info),
		Genre:    ResolveGenre(info.Categories),
		Duration: formatDuration(info.Duration),
	}

	r.logger.Debug().
		Str("id", info.ID).
		Str("raw_artist", artist).
		Str("artist", c.Artist).
		Str("title", c.Title).
		Str("album", c.Album).
		Str("date", c.Date).
		Msg("Resolved metadata")

	return c
}

// ArtistFromTags takes the artist or creator field when nothing is chosen yet.
func ArtistFromTags(info RawInfo, current string) string {
	if current != "" {
		return current
	}
	return firstNonEmpty(info.Artist, info.Creator)
}

// ArtistFromLatinAlternative replaces a CJK artist with the left side of an
// "Artist - Title" track or alt_title field, if that side is Latin.
func ArtistFromLatinAlternative(info RawInfo, current string) string {
	if current == "" || !HasCJK(current) {
		return current
	}
	alt := firstNonEmpty(info.Track, info.AltTitle)
	left, _, found := strings.Cut(alt, titleSeparator)
	if !found {
		return current
	}
	left = strings.TrimSpace(left)
	if left == "" || HasCJK(left) {
		return current
	}
	return left
}

// ArtistFromTitle splits "Artist - Title" titles when no artist is known.
func ArtistFromTitle(info RawInfo, current string) string {
	if current != "" {
		return current
	}
	left, _, found := strings.Cut(info.Title, titleSeparator)
	if !found {
		return current
	}
	left = strings.TrimSpace(left)
	if len([]rune(left)) >= maxTitleArtistLen {
		return current
	}
	return left
}

// ArtistFromDescription scans the description for "Artist:"-style markers when
// the artist is still missing or non-Latin. The first marker with a non-CJK
// value ends the scan, even when that value is empty.
func ArtistFromDescription(info RawInfo, current string) string {
	if current != "" && !HasCJK(current) {
		return current
	}
	for _, marker := range artistMarkers {
		value, ok := markerValue(info.Description, marker)
		if !ok || HasCJK(value) {
			continue
		}
		return value
	}
	return current
}

// ArtistFromChannel falls back to the uploader, then the channel name.
func ArtistFromChannel(info RawInfo, current string) string {
	if current != "" {
		return current
	}
	return firstNonEmpty(info.Uploader, info.Channel)
}

// ResolveAlbum returns the album field, an "Album:" description marker, or the title.
func ResolveAlbum(info RawInfo) string {
	if info.Album != "" {
		return info.Album
	}
	for _, marker := range albumMarkers {
		value, ok := markerValue(info.Description, marker)
		if !ok {
			continue
		}
		if value != "" {
			return value
		}
		break
	}
	return info.Title
}

// ResolveDate prefers the release year, then the year part of the upload date.
func ResolveDate(info RawInfo) string {
	if info.ReleaseYear != 0 {
		return strconv.Itoa(info.ReleaseYear)
	}
	if len(info.UploadDate) >= 4 {
		return info.UploadDate[:4]
	}
	return ""
}

// ResolveGenre keeps the platform's narrow rule: the first category is used
// only when the list contains "Music"; anything else yields DefaultGenre.
func ResolveGenre(categories []string) string {
	if len(categories) == 0 {
		return DefaultGenre
	}
	for _, c := range categories {
		if c == DefaultGenre {
			return categories[0]
		}
	}
	return DefaultGenre
}

// markerValue finds the first line containing marker and returns the text after
// it, cut at the next occurrence of the marker or a "•", trimmed.
func markerValue(description, marker string) (string, bool) {
	if !strings.Contains(description, marker) {
		return "", false
	}
	for _, line := range strings.Split(description, "\n") {
		_, after, found := strings.Cut(line, marker)
		if !found {
			continue
		}
		if before, _, again := strings.Cut(after, marker); again {
			after = before
		}
		after = strings.TrimSpace(after)
		if before, _, bullet := strings.Cut(after, "•"); bullet {
			after = before
		}
		return strings.TrimSpace(after), true
	}
	return "", false
}

func formatDuration(seconds float64) string {
	if seconds == 0 {
		return ""
	}
	return strconv.FormatFloat(seconds, 'f', -1, 64)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
