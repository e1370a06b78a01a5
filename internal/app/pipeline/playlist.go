package pipeline

import (
	"context"
	"fmt"
	"os"

	"github.com/edumarques81/stellar-tagger/internal/infra/history"
	"github.com/edumarques81/stellar-tagger/internal/infra/ytdlp"
)

// Summary counts the outcome of a playlist or search run.
type Summary struct {
	RunID     string `json:"runId"`
	Title     string `json:"title"`
	Total     int    `json:"total"`
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
	Skipped   int    `json:"skipped"`  // not attempted because the run was canceled
	Existing  int    `json:"existing"` // already downloaded in an earlier run
	OutputDir string `json:"outputDir"`
}

// ProcessPlaylist processes every entry of the playlist at url in order.
// A failing track is counted and the loop moves on; only listing the
// playlist itself can fail the call.
func (s *Service) ProcessPlaylist(ctx context.Context, url, format string) (Summary, error) {
	if _, err := ytdlp.PresetFor(format); err != nil {
		return Summary{}, err
	}

	pl, err := s.fetcher.Playlist(ctx, url)
	if err != nil {
		return Summary{}, fmt.Errorf("playlist %s: %w", url, err)
	}
	if len(pl.Entries) == 0 {
		return Summary{}, fmt.Errorf("playlist %s: %w", url, ytdlp.ErrNoEntries)
	}

	s.logger.Info().
		Str("title", pl.Title).
		Int("tracks", len(pl.Entries)).
		Str("format", format).
		Msg("Processing playlist")

	return s.run(ctx, pl.Title, pl.Entries, format), nil
}

// Search looks up query and processes up to n results.
func (s *Service) Search(ctx context.Context, query string, n int, format string) (Summary, error) {
	if _, err := ytdlp.PresetFor(format); err != nil {
		return Summary{}, err
	}

	entries, err := s.fetcher.Search(ctx, query, n)
	if err != nil {
		return Summary{}, err
	}

	s.logger.Info().Str("query", query).Int("results", len(entries)).Msg("Processing search results")

	return s.run(ctx, "search: "+query, entries, format), nil
}

// run processes entries sequentially and reports the summary.
func (s *Service) run(ctx context.Context, title string, entries []ytdlp.Entry, format string) Summary {
	sum := Summary{
		RunID:     history.NewRunID(),
		Title:     title,
		Total:     len(entries),
		OutputDir: s.fetcher.OutputDir(),
	}

	for i, entry := range entries {
		if ctx.Err() != nil {
			sum.Skipped = len(entries) - i
			s.logger.Warn().Int("skipped", sum.Skipped).Msg("Run canceled")
			break
		}

		if prev := s.downloaded(entry); prev != nil {
			sum.Existing++
			s.logger.Info().Str("id", entry.ID).Str("path", prev.Path).Msg("Already downloaded, skipping")
			continue
		}

		ev := TrackEvent{
			RunID: sum.RunID,
			Index: i + 1,
			Total: len(entries),
			URL:   entry.URL,
		}
		if _, err := s.processTrack(ctx, format, ev); err != nil {
			sum.Failed++
			continue
		}
		sum.Succeeded++
	}

	s.observer.OnPlaylistDone(sum)
	return sum
}

// downloaded returns the earlier successful download of entry when its file
// still exists.
func (s *Service) downloaded(entry ytdlp.Entry) *history.Record {
	if s.ledger == nil || entry.ID == "" {
		return nil
	}

	rec, err := s.ledger.LastSuccess(entry.ID)
	if err != nil {
		s.logger.Warn().Err(err).Str("id", entry.ID).Msg("Failed to look up download history")
		return nil
	}
	if rec == nil || rec.Path == "" {
		return nil
	}
	if _, err := os.Stat(rec.Path); err != nil {
		return nil
	}
	return rec
}
