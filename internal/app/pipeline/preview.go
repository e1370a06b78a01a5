package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/edumarques81/stellar-tagger/internal/infra/ytdlp"
)

const (
	// PreviewLimit is the number of entries listed in a preview.
	PreviewLimit = 10
	// defaultTrackSeconds stands in for unknown durations when averaging.
	defaultTrackSeconds = 240
)

// Approximate file size per track, in megabytes.
const (
	m4aTrackMB  = 4.0
	mp3TrackMB  = 3.5
	flacTrackMB = 25.0
)

// SizeEstimate is the estimated download size per format, in megabytes.
type SizeEstimate struct {
	M4A  float64 `json:"m4a"`
	MP3  float64 `json:"mp3"`
	FLAC float64 `json:"flac"`
}

// Preview summarizes a playlist without downloading it.
type Preview struct {
	Title         string        `json:"title"`
	Uploader      string        `json:"uploader"`
	Count         int           `json:"count"`
	Entries       []ytdlp.Entry `json:"entries"` // at most PreviewLimit
	TotalDuration time.Duration `json:"totalDuration"`
	Size          SizeEstimate  `json:"size"`
}

// Remaining is the number of entries not listed in the preview.
func (p *Preview) Remaining() int {
	return p.Count - len(p.Entries)
}

// Preview lists the playlist at url and estimates its duration and size.
func (s *Service) Preview(ctx context.Context, url string) (*Preview, error) {
	pl, err := s.fetcher.Playlist(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("preview %s: %w", url, err)
	}

	n := len(pl.Entries)
	shown := pl.Entries
	if n > PreviewLimit {
		shown = shown[:PreviewLimit]
	}

	return &Preview{
		Title:         pl.Title,
		Uploader:      pl.Uploader,
		Count:         n,
		Entries:       shown,
		TotalDuration: EstimateDuration(pl.Entries),
		Size: SizeEstimate{
			M4A:  float64(n) * m4aTrackMB,
			MP3:  float64(n) * mp3TrackMB,
			FLAC: float64(n) * flacTrackMB,
		},
	}, nil
}

// EstimateDuration sums entry durations. Unknown durations count as 240s
// when computing the mean, and the mean stands in for them in the total.
func EstimateDuration(entries []ytdlp.Entry) time.Duration {
	if len(entries) == 0 {
		return 0
	}

	sum := 0.0
	for _, e := range entries {
		if e.Duration > 0 {
			sum += e.Duration
		} else {
			sum += defaultTrackSeconds
		}
	}
	mean := sum / float64(len(entries))

	total := 0.0
	for _, e := range entries {
		if e.Duration > 0 {
			total += e.Duration
		} else {
			total += mean
		}
	}
	return time.Duration(total * float64(time.Second))
}
