// Package pipeline runs the download, resolve, cover and tag flow for single
// tracks, playlists and searches.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/edumarques81/stellar-tagger/internal/domain/artwork"
	"github.com/edumarques81/stellar-tagger/internal/domain/metadata"
	"github.com/edumarques81/stellar-tagger/internal/infra/history"
	"github.com/edumarques81/stellar-tagger/internal/infra/tagwriter"
	"github.com/edumarques81/stellar-tagger/internal/infra/ytdlp"
)

// MediaFetcher retrieves info records and audio files.
type MediaFetcher interface {
	Info(ctx context.Context, url string) (metadata.RawInfo, error)
	Download(ctx context.Context, url, format string) (string, error)
	Playlist(ctx context.Context, url string) (ytdlp.Playlist, error)
	Search(ctx context.Context, query string, n int) ([]ytdlp.Entry, error)
	OutputDir() string
}

// ThumbnailFetcher downloads thumbnail images.
type ThumbnailFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// CoverSource looks up cover art by canonical metadata when no thumbnail
// could be used.
type CoverSource interface {
	Find(ctx context.Context, c metadata.Canonical) ([]byte, error)
}

// CoverNormalizer turns a thumbnail into cover art. It must never fail.
type CoverNormalizer interface {
	Normalize(data []byte) []byte
}

// TagWriter writes canonical metadata into audio files.
type TagWriter interface {
	WriteTags(path string, c metadata.Canonical, cover []byte) error
	EmbedsCover(path string) bool
}

// HistoryRecorder persists track outcomes.
type HistoryRecorder interface {
	Record(r *history.Record) error
}

// DownloadLedger reports earlier successful downloads of a video.
type DownloadLedger interface {
	LastSuccess(videoID string) (*history.Record, error)
}

// LibraryNotifier is told about new files, e.g. to rescan a music library.
type LibraryNotifier interface {
	NotifyFile(path string) error
}

// TrackResult describes a processed track.
type TrackResult struct {
	URL           string             `json:"url"`
	VideoID       string             `json:"videoId,omitempty"`
	Format        string             `json:"format,omitempty"`
	Path          string             `json:"path"`
	Metadata      metadata.Canonical `json:"metadata"`
	Tagged        bool               `json:"tagged"`
	CoverEmbedded bool               `json:"coverEmbedded"`
	Renamed       bool               `json:"renamed"`
	TagErr        error              `json:"-"`
}

// Service orchestrates the per-track flow.
type Service struct {
	fetcher    MediaFetcher
	thumbnails ThumbnailFetcher
	tags       TagWriter
	resolver   *metadata.Resolver
	normalizer CoverNormalizer
	fallback   CoverSource
	history    HistoryRecorder
	ledger     DownloadLedger
	notifier   LibraryNotifier
	observer   Observer
	logger     zerolog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithResolver replaces the default metadata resolver.
func WithResolver(r *metadata.Resolver) Option {
	return func(s *Service) {
		s.resolver = r
	}
}

// WithNormalizer replaces the default cover normalizer.
func WithNormalizer(n CoverNormalizer) Option {
	return func(s *Service) {
		s.normalizer = n
	}
}

// WithCoverFallback consults src for tracks without a usable thumbnail.
func WithCoverFallback(src CoverSource) Option {
	return func(s *Service) {
		s.fallback = src
	}
}

// WithHistory records every track outcome.
func WithHistory(h HistoryRecorder) Option {
	return func(s *Service) {
		s.history = h
	}
}

// WithSkipDownloaded makes playlist and search runs skip entries whose last
// successful download recorded in l is still on disk.
func WithSkipDownloaded(l DownloadLedger) Option {
	return func(s *Service) {
		s.ledger = l
	}
}

// WithNotifier notifies n about every downloaded file.
func WithNotifier(n LibraryNotifier) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

// WithObserver sets the progress observer.
func WithObserver(o Observer) Option {
	return func(s *Service) {
		s.observer = o
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService creates a pipeline service.
func NewService(fetcher MediaFetcher, thumbnails ThumbnailFetcher, tags TagWriter, opts ...Option) *Service {
	s := &Service{
		fetcher:    fetcher,
		thumbnails: thumbnails,
		tags:       tags,
		observer:   NopObserver{},
		logger:     log.Logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.resolver == nil {
		s.resolver = metadata.NewResolver(metadata.WithLogger(s.logger))
	}
	if s.normalizer == nil {
		s.normalizer = artwork.NewNormalizer(artwork.WithLogger(s.logger))
	}
	return s
}

// ProcessTrack downloads url in format, tags it and renames it to its clean
// filename.
func (s *Service) ProcessTrack(ctx context.Context, url, format string) (*TrackResult, error) {
	if _, err := ytdlp.PresetFor(format); err != nil {
		return nil, err
	}
	return s.processTrack(ctx, format, TrackEvent{URL: url})
}

// processTrack runs one track and reports it to the observer. Panics are
// turned into errors so that a single track can't abort a run.
func (s *Service) processTrack(ctx context.Context, format string, ev TrackEvent) (res *TrackResult, err error) {
	s.observer.OnTrackStart(ev)
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, fmt.Errorf("process %s: panic: %v", ev.URL, r)
		}
		if err != nil {
			s.record(ev, &TrackResult{URL: ev.URL, Format: format}, err)
		}
		s.observer.OnTrackDone(ev, res, err)
	}()

	info, err := s.fetcher.Info(ctx, ev.URL)
	if err != nil {
		return nil, fmt.Errorf("process %s: %w", ev.URL, err)
	}

	c := s.resolver.Resolve(info)
	s.logger.Info().
		Str("artist", c.Artist).
		Str("title", c.Title).
		Str("album", c.Album).
		Str("date", c.Date).
		Str("duration", c.Duration).
		Msg("Resolved metadata")

	path, err := s.fetcher.Download(ctx, ev.URL, format)
	if err != nil {
		return nil, fmt.Errorf("process %s: %w", ev.URL, err)
	}

	res = s.finish(ctx, path, info, c)
	res.URL = ev.URL
	res.Format = format

	s.record(ev, res, nil)
	s.notify(res.Path)
	return res, nil
}

// TagFile runs the tagging half of the flow on an already downloaded file
// described by info. It fails for containers without a tag backend and when
// the tags could not be written.
func (s *Service) TagFile(ctx context.Context, path string, info metadata.RawInfo) (*TrackResult, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("tag %s: %w", path, err)
	}
	if !tagwriter.Supported(path) {
		return nil, fmt.Errorf("tag %s: %w", path, tagwriter.ErrUnsupportedFormat)
	}

	res := s.finish(ctx, path, info, s.resolver.Resolve(info))
	res.URL = info.WebpageURL
	res.Format = strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if res.TagErr != nil {
		return res, fmt.Errorf("tag %s: %w", path, res.TagErr)
	}

	s.notify(res.Path)
	return res, nil
}

// finish fetches cover art, writes tags and renames the file. Cover and tag
// failures are logged and reflected in the result, never returned.
func (s *Service) finish(ctx context.Context, path string, info metadata.RawInfo, c metadata.Canonical) *TrackResult {
	res := &TrackResult{
		VideoID:  info.ID,
		Path:     path,
		Metadata: c,
	}

	cover := s.cover(ctx, info, c)

	if err := s.tags.WriteTags(path, c, cover); err != nil {
		s.logger.Warn().Err(err).Str("path", path).Msg("Failed to write tags, keeping file as downloaded")
		res.TagErr = err
		return res
	}
	res.Tagged = true
	res.CoverEmbedded = len(cover) > 0 && s.tags.EmbedsCover(path)

	res.Path, res.Renamed = s.rename(path, c)
	return res
}

// cover returns normalized cover art for info, or nil when none is available.
func (s *Service) cover(ctx context.Context, info metadata.RawInfo, c metadata.Canonical) []byte {
	data := s.thumbnail(ctx, info)
	if len(data) == 0 {
		data = s.fallbackCover(ctx, c)
	}
	if len(data) == 0 {
		return nil
	}
	return s.normalizer.Normalize(data)
}

func (s *Service) thumbnail(ctx context.Context, info metadata.RawInfo) []byte {
	url := artwork.SelectBestThumbnailWithLogger(s.logger, info.Thumbnails, info.Thumbnail)
	if url == "" {
		s.logger.Debug().Msg("No thumbnail available")
		return nil
	}

	data, err := s.thumbnails.Fetch(ctx, url)
	if err != nil {
		s.logger.Warn().Err(err).Str("url", url).Msg("Failed to fetch thumbnail")
		return nil
	}
	return data
}

func (s *Service) fallbackCover(ctx context.Context, c metadata.Canonical) []byte {
	if s.fallback == nil {
		s.logger.Debug().Msg("No cover fallback configured, skipping cover")
		return nil
	}

	data, err := s.fallback.Find(ctx, c)
	if err != nil {
		s.logger.Info().Err(err).Str("artist", c.Artist).Str("album", c.Album).Msg("No fallback cover found, skipping cover")
		return nil
	}
	s.logger.Info().Str("artist", c.Artist).Str("album", c.Album).Msg("Using fallback cover")
	return data
}

// rename moves path to its clean filename unless that name is taken.
func (s *Service) rename(path string, c metadata.Canonical) (string, bool) {
	target := metadata.CleanFilename(c, path)
	if target == path {
		return path, false
	}

	if _, err := os.Stat(target); err == nil {
		s.logger.Info().Str("target", target).Msg("Clean filename already exists, keeping original name")
		return path, false
	} else if !errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn().Err(err).Str("target", target).Msg("Cannot check clean filename, keeping original name")
		return path, false
	}

	if err := os.Rename(path, target); err != nil {
		s.logger.Warn().Err(err).Str("path", path).Msg("Failed to rename file")
		return path, false
	}

	s.logger.Info().Str("name", filepath.Base(target)).Msg("Renamed")
	return target, true
}

func (s *Service) record(ev TrackEvent, res *TrackResult, procErr error) {
	if s.history == nil {
		return
	}

	r := &history.Record{
		RunID:         ev.RunID,
		VideoID:       res.VideoID,
		URL:           res.URL,
		Path:          res.Path,
		Format:        res.Format,
		Title:         res.Metadata.Title,
		Artist:        res.Metadata.Artist,
		Album:         res.Metadata.Album,
		Tagged:        res.Tagged,
		CoverEmbedded: res.CoverEmbedded,
		Status:        history.StatusSucceeded,
	}
	if procErr != nil {
		r.Status = history.StatusFailed
		r.Error = procErr.Error()
	}

	if err := s.history.Record(r); err != nil {
		s.logger.Warn().Err(err).Str("url", res.URL).Msg("Failed to record history")
	}
}

func (s *Service) notify(path string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyFile(path); err != nil {
		s.logger.Warn().Err(err).Str("path", path).Msg("Failed to notify library")
	}
}
