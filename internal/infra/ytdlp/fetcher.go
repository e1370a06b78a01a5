// Package ytdlp drives the external yt-dlp media fetcher.
package ytdlp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/edumarques81/stellar-tagger/internal/domain/metadata"
)

const (
	// DefaultBinary is the yt-dlp executable looked up on PATH.
	DefaultBinary = "yt-dlp"
	// DefaultFFmpeg is the ffmpeg executable looked up on PATH.
	DefaultFFmpeg = "ffmpeg"
	// DefaultOutputDir is where downloads land.
	DefaultOutputDir = "downloads"
)

// ErrMissingDependency is returned when an external tool can't be run.
var ErrMissingDependency = errors.New("missing dependency")

// Runner executes an external command and returns its standard output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs commands with os/exec. Standard error is folded into the
// returned error.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return stdout.Bytes(), fmt.Errorf("%s: %w: %s", name, err, lastLine(msg))
		}
		return stdout.Bytes(), fmt.Errorf("%s: %w", name, err)
	}
	return stdout.Bytes(), nil
}

// Fetcher wraps the yt-dlp command line.
type Fetcher struct {
	binary    string
	ffmpeg    string
	outputDir string
	run       Runner
	logger    zerolog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithBinary sets the yt-dlp executable.
func WithBinary(path string) Option {
	return func(f *Fetcher) {
		if path != "" {
			f.binary = path
		}
	}
}

// WithFFmpeg sets the ffmpeg executable used for audio extraction.
func WithFFmpeg(path string) Option {
	return func(f *Fetcher) {
		if path != "" {
			f.ffmpeg = path
		}
	}
}

// WithOutputDir sets the download directory.
func WithOutputDir(dir string) Option {
	return func(f *Fetcher) {
		if dir != "" {
			f.outputDir = dir
		}
	}
}

// WithRunner replaces the command runner (used by tests).
func WithRunner(r Runner) Option {
	return func(f *Fetcher) {
		f.run = r
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// New creates a Fetcher.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		binary:    DefaultBinary,
		ffmpeg:    DefaultFFmpeg,
		outputDir: DefaultOutputDir,
		run:       ExecRunner,
		logger:    log.Logger,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// OutputDir returns the download directory.
func (f *Fetcher) OutputDir() string {
	return f.outputDir
}

// Info fetches the info record of a single video without downloading it.
func (f *Fetcher) Info(ctx context.Context, url string) (metadata.RawInfo, error) {
	out, err := f.run(ctx, f.binary, "-J", "--no-playlist", "--no-warnings", url)
	if err != nil {
		return metadata.RawInfo{}, fmt.Errorf("fetch info: %w", err)
	}
	info, err := ParseInfo(out)
	if err != nil {
		return metadata.RawInfo{}, fmt.Errorf("parse info: %w", err)
	}
	if info.WebpageURL == "" {
		info.WebpageURL = url
	}
	return info, nil
}

// Download fetches url as audio in the given format and returns the final
// file path reported by yt-dlp after post-processing.
func (f *Fetcher) Download(ctx context.Context, url, format string) (string, error) {
	preset, err := PresetFor(format)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(f.outputDir, 0755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	args := preset.args()
	args = append(args,
		"-o", filepath.Join(f.outputDir, OutputTemplate),
		"--no-playlist",
		"--no-progress",
		"--no-warnings",
		"--no-simulate",
		"--print", "after_move:filepath",
	)
	if f.ffmpeg != DefaultFFmpeg {
		args = append(args, "--ffmpeg-location", f.ffmpeg)
	}
	args = append(args, url)

	f.logger.Info().Str("url", url).Str("format", format).Msg("Downloading")

	out, err := f.run(ctx, f.binary, args...)
	if err != nil {
		return "", fmt.Errorf("download: %w", err)
	}

	path := lastLine(string(out))
	if path == "" {
		return "", fmt.Errorf("download: yt-dlp reported no output file")
	}

	if !strings.EqualFold(filepath.Ext(path), preset.Ext()) {
		f.logger.Warn().
			Str("path", path).
			Str("expected", preset.Ext()).
			Msg("Downloaded file has an unexpected extension, audio extraction may have been skipped")
	}

	f.logger.Debug().Str("path", path).Msg("Download finished")
	return path, nil
}

// Playlist lists a playlist without downloading anything.
func (f *Fetcher) Playlist(ctx context.Context, url string) (Playlist, error) {
	out, err := f.run(ctx, f.binary, "-J", "--flat-playlist", "--no-warnings", url)
	if err != nil {
		return Playlist{}, fmt.Errorf("fetch playlist: %w", err)
	}
	pl, err := ParsePlaylist(out)
	if err != nil {
		return Playlist{}, fmt.Errorf("parse playlist: %w", err)
	}
	return pl, nil
}

// Search returns up to n results for query.
func (f *Fetcher) Search(ctx context.Context, query string, n int) ([]Entry, error) {
	if n < 1 {
		n = 1
	}
	pl, err := f.Playlist(ctx, "ytsearch"+strconv.Itoa(n)+":"+query)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	if len(pl.Entries) == 0 {
		return nil, fmt.Errorf("search %q: %w", query, ErrNoEntries)
	}
	return pl.Entries, nil
}

// Dependencies holds the versions of the external tools.
type Dependencies struct {
	YtDlp  string `json:"ytDlp"`
	FFmpeg string `json:"ffmpeg"`
}

// CheckDependencies verifies that yt-dlp and ffmpeg can be executed.
func (f *Fetcher) CheckDependencies(ctx context.Context) (Dependencies, error) {
	var deps Dependencies
	var errs []error

	if out, err := f.run(ctx, f.binary, "--version"); err != nil {
		errs = append(errs, fmt.Errorf("%w: %s: %v", ErrMissingDependency, f.binary, err))
	} else {
		deps.YtDlp = firstLine(string(out))
	}

	if out, err := f.run(ctx, f.ffmpeg, "-version"); err != nil {
		errs = append(errs, fmt.Errorf("%w: %s: %v", ErrMissingDependency, f.ffmpeg, err))
	} else {
		deps.FFmpeg = firstLine(string(out))
	}

	return deps, errors.Join(errs...)
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(s)
}
