// Package metadata derives canonical tag fields from noisy upstream video metadata.
package metadata

import (
	"path/filepath"
	"strings"
)

// invalidFilenameChars are stripped from both name components.
const invalidFilenameChars = `<>:"/\|?*`

// SanitizeFilenamePart removes characters that are invalid in file names.
func SanitizeFilenamePart(s string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(invalidFilenameChars, r) {
			return -1
		}
		return r
	}, s)
}

// CleanFilename builds "{artist} - {title}{ext}" next to originalPath.
func CleanFilename(c Canonical, originalPath string) string {
	artist := c.Artist
	if artist == "" {
		artist = DefaultArtist
	}
	title := c.Title
	if title == "" {
		title = "Unknown Title"
	}

	name := SanitizeFilenamePart(artist) + " - " + SanitizeFilenamePart(title) + filepath.Ext(originalPath)
	return filepath.Join(filepath.Dir(originalPath), name)
}
