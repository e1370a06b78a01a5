package pipeline

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// TrackEvent identifies a track within a run.
type TrackEvent struct {
	RunID string `json:"runId,omitempty"`
	Index int    `json:"index"` // 1-based position in a playlist or search, 0 for single tracks
	Total int    `json:"total"`
	URL   string `json:"url"`
}

// Observer receives progress notifications from the pipeline.
// Implementations must be safe to call from the goroutine running the pipeline
// and should return quickly.
type Observer interface {
	OnTrackStart(ev TrackEvent)
	OnTrackDone(ev TrackEvent, res *TrackResult, err error)
	OnPlaylistDone(sum Summary)
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) OnTrackStart(TrackEvent)                     {}
func (NopObserver) OnTrackDone(TrackEvent, *TrackResult, error) {}
func (NopObserver) OnPlaylistDone(Summary)                      {}

// Observers fans events out to several observers in order.
type Observers []Observer

func (o Observers) OnTrackStart(ev TrackEvent) {
	for _, obs := range o {
		obs.OnTrackStart(ev)
	}
}

func (o Observers) OnTrackDone(ev TrackEvent, res *TrackResult, err error) {
	for _, obs := range o {
		obs.OnTrackDone(ev, res, err)
	}
}

func (o Observers) OnPlaylistDone(sum Summary) {
	for _, obs := range o {
		obs.OnPlaylistDone(sum)
	}
}

// LogObserver reports progress as structured log lines.
type LogObserver struct {
	logger zerolog.Logger
}

// NewLogObserver creates an observer writing to logger. A nil logger uses
// the global logger.
func NewLogObserver(logger *zerolog.Logger) *LogObserver {
	if logger == nil {
		return &LogObserver{logger: log.Logger}
	}
	return &LogObserver{logger: *logger}
}

func (o *LogObserver) OnTrackStart(ev TrackEvent) {
	e := o.logger.Info().Str("url", ev.URL)
	if ev.Total > 0 {
		e = e.Int("index", ev.Index).Int("total", ev.Total)
	}
	e.Msg("Processing track")
}

func (o *LogObserver) OnTrackDone(ev TrackEvent, res *TrackResult, err error) {
	if err != nil {
		o.logger.Error().Err(err).Str("url", ev.URL).Int("index", ev.Index).Msg("Track failed")
		return
	}
	o.logger.Info().
		Str("artist", res.Metadata.Artist).
		Str("title", res.Metadata.Title).
		Str("album", res.Metadata.Album).
		Str("path", res.Path).
		Bool("tagged", res.Tagged).
		Bool("cover", res.CoverEmbedded).
		Msg("Track done")
}

func (o *LogObserver) OnPlaylistDone(sum Summary) {
	o.logger.Info().
		Str("title", sum.Title).
		Int("total", sum.Total).
		Int("succeeded", sum.Succeeded).
		Int("failed", sum.Failed).
		Int("skipped", sum.Skipped).
		Str("dir", sum.OutputDir).
		Msg("Run completed")
}
