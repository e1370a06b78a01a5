// Package tagwriter persists canonical metadata and cover art into audio
// file tag containers.
package tagwriter

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/edumarques81/stellar-tagger/internal/domain/metadata"
)

// ErrUnsupportedFormat is returned for file extensions without a tag backend.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// coverDescription labels the front cover picture we write.
const coverDescription = "Cover"

// Writer dispatches tag writes by file extension.
type Writer struct {
	logger         zerolog.Logger
	embedFLACCover bool
}

// Option configures a Writer.
type Option func(*Writer)

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(w *Writer) {
		w.logger = logger
	}
}

// WithFLACCover enables embedding cover art as a FLAC PICTURE block.
func WithFLACCover(enabled bool) Option {
	return func(w *Writer) {
		w.embedFLACCover = enabled
	}
}

// New creates a tag writer.
func New(opts ...Option) *Writer {
	w := &Writer{logger: log.Logger}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Supported reports whether path has an extension the writer can tag.
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".m4a", ".mp4", ".m4b", ".mp3", ".flac":
		return true
	}
	return false
}

// EmbedsCover reports whether WriteTags stores cover art for path.
func (w *Writer) EmbedsCover(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".m4a", ".mp4", ".m4b", ".mp3":
		return true
	case ".flac":
		return w.embedFLACCover
	}
	return false
}

// WriteTags writes c and an optional cover image into the file at path.
// Empty fields are skipped and unrelated existing tags are left in place.
func (w *Writer) WriteTags(path string, c metadata.Canonical, cover []byte) error {
	ext := strings.ToLower(filepath.Ext(path))

	w.logger.Debug().
		Str("path", path).
		Str("format", ext).
		Bool("cover", len(cover) > 0).
		Msg("Writing tags")

	var err error
	switch ext {
	case ".m4a", ".mp4", ".m4b":
		err = writeMP4(path, c, cover)
	case ".mp3":
		err = writeMP3(path, c, cover)
	case ".flac":
		if !w.EmbedsCover(path) {
			cover = nil
		}
		err = writeFLAC(path, c, cover)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return fmt.Errorf("write %s tags: %w", strings.TrimPrefix(ext, "."), err)
	}

	w.logger.Info().
		Str("path", path).
		Str("artist", c.Artist).
		Str("title", c.Title).
		Msg("Tags written")
	return nil
}
