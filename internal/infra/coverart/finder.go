package coverart

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/edumarques81/stellar-tagger/internal/domain/metadata"
)

// maxReleaseAttempts bounds the archive requests made per recording lookup.
const maxReleaseAttempts = 3

// ReleaseSearcher finds MusicBrainz releases.
type ReleaseSearcher interface {
	SearchRelease(ctx context.Context, artist, album string) (string, error)
	SearchRecording(ctx context.Context, artist, title string) ([]string, error)
}

// CoverFetcher downloads a release's front cover.
type CoverFetcher interface {
	FetchFront(ctx context.Context, mbid string) ([]byte, error)
}

// Finder resolves canonical track metadata to a cover image.
type Finder struct {
	releases ReleaseSearcher
	covers   CoverFetcher
	logger   zerolog.Logger
}

// FinderOption configures a Finder.
type FinderOption func(*Finder)

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) FinderOption {
	return func(f *Finder) {
		f.logger = logger
	}
}

// NewFinder creates a Finder. Nil clients default to the public services.
func NewFinder(releases ReleaseSearcher, covers CoverFetcher, opts ...FinderOption) *Finder {
	f := &Finder{
		releases: releases,
		covers:   covers,
		logger:   log.Logger,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.releases == nil {
		f.releases = NewMusicBrainzClient(WithMBLogger(f.logger))
	}
	if f.covers == nil {
		f.covers = NewCAAClient(WithCAALogger(f.logger))
	}
	return f
}

// Find looks up the album release first, then the releases of the recording
// when the album has no release or no cover. It returns ErrNotFound when
// neither yields a cover. Temporary upstream errors abort the lookup.
func (f *Finder) Find(ctx context.Context, c metadata.Canonical) ([]byte, error) {
	if strings.TrimSpace(c.Artist) == "" {
		return nil, ErrNotFound
	}

	var album string
	if c.Album != "" && !strings.EqualFold(c.Album, c.Title) {
		mbid, err := f.releases.SearchRelease(ctx, c.Artist, c.Album)
		if err != nil {
			return nil, fmt.Errorf("search release: %w", err)
		}
		if mbid != "" {
			album = mbid
			data, err := f.tryReleases(ctx, []string{mbid})
			if err == nil {
				return data, nil
			}
			if !errors.Is(err, ErrNotFound) {
				return nil, err
			}
			f.logger.Debug().Str("release", mbid).Msg("Album release has no cover, trying recording releases")
		}
	}

	if c.Title != "" {
		ids, err := f.releases.SearchRecording(ctx, c.Artist, c.Title)
		if err != nil {
			return nil, fmt.Errorf("search recording: %w", err)
		}

		var candidates []string
		for _, id := range ids {
			if id != album && len(candidates) < maxReleaseAttempts {
				candidates = append(candidates, id)
			}
		}

		data, err := f.tryReleases(ctx, candidates)
		if err == nil || !errors.Is(err, ErrNotFound) {
			return data, err
		}
	}

	f.logger.Debug().Str("artist", c.Artist).Str("title", c.Title).Msg("No cover art found")
	return nil, ErrNotFound
}

// tryReleases returns the first front cover among mbids. Missing covers and
// permanent per-release failures move on to the next release.
func (f *Finder) tryReleases(ctx context.Context, mbids []string) ([]byte, error) {
	for _, mbid := range mbids {
		data, err := f.covers.FetchFront(ctx, mbid)
		switch {
		case err == nil:
			return data, nil
		case errors.Is(err, ErrNotFound):
			continue
		case IsTemporaryError(err) || ctx.Err() != nil:
			return nil, fmt.Errorf("fetch cover %s: %w", mbid, err)
		default:
			f.logger.Warn().Err(err).Str("release", mbid).Msg("Cover fetch failed, trying next release")
		}
	}
	return nil, ErrNotFound
}
