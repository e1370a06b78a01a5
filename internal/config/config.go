// Package config loads Stellar Tagger settings from an optional YAML file and
// STELLAR_TAGGER_* environment variables.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/edumarques81/stellar-tagger/internal/infra/ytdlp"
)

// ErrInvalidConfig is returned when a loaded value is out of range.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the complete tool configuration.
type Config struct {
	DownloadDir      string        `yaml:"download_dir" env:"STELLAR_TAGGER_DOWNLOAD_DIR" env-default:"./downloads"`
	Format           string        `yaml:"format" env:"STELLAR_TAGGER_FORMAT" env-default:"best"`
	YtDlpPath        string        `yaml:"ytdlp_path" env:"STELLAR_TAGGER_YTDLP_PATH" env-default:"yt-dlp"`
	FFmpegPath       string        `yaml:"ffmpeg_path" env:"STELLAR_TAGGER_FFMPEG_PATH" env-default:"ffmpeg"`
	ThumbnailTimeout time.Duration `yaml:"thumbnail_timeout" env:"STELLAR_TAGGER_THUMBNAIL_TIMEOUT" env-default:"15s"`
	HistoryDB        string        `yaml:"history_db" env:"STELLAR_TAGGER_HISTORY_DB"`           // empty disables history
	SkipDownloaded   bool          `yaml:"skip_downloaded" env:"STELLAR_TAGGER_SKIP_DOWNLOADED"` // needs history_db
	EmbedFLACCover   bool          `yaml:"embed_flac_cover" env:"STELLAR_TAGGER_EMBED_FLAC_COVER"`
	CoverFallback    bool          `yaml:"cover_fallback" env:"STELLAR_TAGGER_COVER_FALLBACK"` // look up covers on MusicBrainz when a video has none
	Debug            bool          `yaml:"debug" env:"STELLAR_TAGGER_DEBUG"`
	MPD              MPDConfig     `yaml:"mpd" env-prefix:"STELLAR_TAGGER_MPD_"`
	Feed             FeedConfig    `yaml:"feed" env-prefix:"STELLAR_TAGGER_FEED_"`
}

// MPDConfig controls the library update sent to MPD after tagging.
type MPDConfig struct {
	Enabled  bool   `yaml:"enabled" env:"ENABLED"`
	Host     string `yaml:"host" env:"HOST" env-default:"localhost"`
	Port     int    `yaml:"port" env:"PORT" env-default:"6600"`
	Password string `yaml:"password" env:"PASSWORD"`
	MusicDir string `yaml:"music_dir" env:"MUSIC_DIR"`
}

// FeedConfig controls the Socket.IO progress feed.
type FeedConfig struct {
	Enabled    bool `yaml:"enabled" env:"ENABLED"`
	Port       int  `yaml:"port" env:"PORT" env-default:"3002"`
	MaxClients int  `yaml:"max_clients" env:"MAX_CLIENTS" env-default:"4"` // external clients; local ones are unlimited
}

// Load reads the YAML file at path, when given, then the environment.
// Environment variables override file values; defaults fill the rest.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	var err error
	if path != "" {
		err = cleanenv.ReadConfig(path, cfg)
	} else {
		err = cleanenv.ReadEnv(cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if _, err := ytdlp.PresetFor(c.Format); err != nil {
		return fmt.Errorf("%w: format %q: %v", ErrInvalidConfig, c.Format, err)
	}
	if c.DownloadDir == "" {
		return fmt.Errorf("%w: download_dir is empty", ErrInvalidConfig)
	}
	if c.ThumbnailTimeout <= 0 {
		return fmt.Errorf("%w: thumbnail_timeout must be positive", ErrInvalidConfig)
	}
	if c.MPD.Enabled && !validPort(c.MPD.Port) {
		return fmt.Errorf("%w: mpd port %d", ErrInvalidConfig, c.MPD.Port)
	}
	if c.Feed.Enabled && !validPort(c.Feed.Port) {
		return fmt.Errorf("%w: feed port %d", ErrInvalidConfig, c.Feed.Port)
	}
	if c.Feed.MaxClients < 1 {
		return fmt.Errorf("%w: feed max_clients must be at least 1", ErrInvalidConfig)
	}
	return nil
}

func validPort(p int) bool {
	return p > 0 && p < 65536
}
