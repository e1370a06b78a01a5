// Package metadata derives canonical tag fields from noisy upstream video metadata.
package metadata

import "strings"

// brandingPatterns are channel-naming conventions stripped from artist names, in order.
var brandingPatterns = []string{
	" - Topic",
	" Topic",
	"VEVO",
	" Official",
	" Official Channel",
	" Official YouTube Channel",
	" Official Music Video",
	" Official Video",
	" Official Audio",
	" (Official)",
	"Official ",
}

// CleanArtistName strips channel branding from an artist name.
// An empty result becomes DefaultArtist. The pass repeats until nothing changes,
// so applying it twice yields the same value as applying it once.
func CleanArtistName(artist string) string {
	cleaned := artist
	for {
		next := cleaned
		for _, pattern := range brandingPatterns {
			next = strings.ReplaceAll(next, pattern, "")
		}
		next = strings.TrimSpace(next)
		if next == cleaned {
			break
		}
		cleaned = next
	}

	if cleaned == "" {
		return DefaultArtist
	}
	return cleaned
}
