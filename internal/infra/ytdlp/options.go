package ytdlp

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownFormat is returned for a format name without a preset.
var ErrUnknownFormat = errors.New("unknown audio format")

// Format names accepted by the downloader.
const (
	FormatBest = "best"
	FormatM4A  = "m4a"
	FormatMP3  = "mp3"
	FormatFLAC = "flac"
)

// OutputTemplate names downloaded files before they are renamed.
const OutputTemplate = "%(uploader)s - %(title)s.%(ext)s"

// Preset is the stream selection and audio extraction used for a format.
type Preset struct {
	Selector string // -f
	Codec    string // --audio-format
	Quality  string // --audio-quality, empty to omit
}

var presets = map[string]Preset{
	FormatBest: {Selector: "bestaudio[ext=m4a]/bestaudio/best", Codec: "m4a", Quality: "0"},
	FormatM4A:  {Selector: "bestaudio[ext=m4a]/bestaudio/best", Codec: "m4a", Quality: "0"},
	FormatMP3:  {Selector: "bestaudio/best", Codec: "mp3", Quality: "0"},
	FormatFLAC: {Selector: "bestaudio/best", Codec: "flac"},
}

// Formats lists the accepted format names.
func Formats() []string {
	return []string{FormatBest, FormatM4A, FormatMP3, FormatFLAC}
}

// PresetFor returns the preset for a format name (case-insensitive).
func PresetFor(format string) (Preset, error) {
	p, ok := presets[strings.ToLower(strings.TrimSpace(format))]
	if !ok {
		return Preset{}, fmt.Errorf("%w: %q (want one of %s)", ErrUnknownFormat, format, strings.Join(Formats(), ", "))
	}
	return p, nil
}

// Ext is the file extension produced by the preset.
func (p Preset) Ext() string {
	return "." + p.Codec
}

// args are the extraction flags for the preset.
func (p Preset) args() []string {
	args := []string{"-f", p.Selector, "-x", "--audio-format", p.Codec}
	if p.Quality != "" {
		args = append(args, "--audio-quality", p.Quality)
	}
	return args
}
