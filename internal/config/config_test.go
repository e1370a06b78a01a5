package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/edumarques81/stellar-tagger/internal/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.DownloadDir != "./downloads" {
		t.Errorf("Expected ./downloads, got '%s'", cfg.DownloadDir)
	}
	if cfg.Format != "best" {
		t.Errorf("Expected best, got '%s'", cfg.Format)
	}
	if cfg.YtDlpPath != "yt-dlp" || cfg.FFmpegPath != "ffmpeg" {
		t.Errorf("Unexpected tool paths: %s, %s", cfg.YtDlpPath, cfg.FFmpegPath)
	}
	if cfg.ThumbnailTimeout != 15*time.Second {
		t.Errorf("Expected 15s, got %v", cfg.ThumbnailTimeout)
	}
	if cfg.HistoryDB != "" || cfg.EmbedFLACCover || cfg.SkipDownloaded {
		t.Errorf("History and FLAC cover should be off by default: %+v", cfg)
	}
	if cfg.MPD.Enabled || cfg.MPD.Host != "localhost" || cfg.MPD.Port != 6600 {
		t.Errorf("Unexpected MPD defaults: %+v", cfg.MPD)
	}
	if cfg.Feed.Enabled || cfg.Feed.Port != 3002 || cfg.Feed.MaxClients != 4 {
		t.Errorf("Unexpected feed defaults: %+v", cfg.Feed)
	}
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
download_dir: /music/incoming
format: flac
thumbnail_timeout: 5s
history_db: /var/lib/stellar-tagger/history.db
skip_downloaded: true
embed_flac_cover: true
mpd:
  enabled: true
  host: nas.local
  port: 6601
  music_dir: /music
feed:
  enabled: true
  port: 4000
`)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.DownloadDir != "/music/incoming" || cfg.Format != "flac" {
		t.Errorf("Unexpected values: %+v", cfg)
	}
	if cfg.ThumbnailTimeout != 5*time.Second {
		t.Errorf("Expected 5s, got %v", cfg.ThumbnailTimeout)
	}
	if !cfg.EmbedFLACCover || cfg.HistoryDB == "" || !cfg.SkipDownloaded {
		t.Errorf("Expected history, skip and FLAC cover enabled: %+v", cfg)
	}
	if !cfg.MPD.Enabled || cfg.MPD.Host != "nas.local" || cfg.MPD.Port != 6601 || cfg.MPD.MusicDir != "/music" {
		t.Errorf("Unexpected MPD config: %+v", cfg.MPD)
	}
	if !cfg.Feed.Enabled || cfg.Feed.Port != 4000 || cfg.Feed.MaxClients != 4 {
		t.Errorf("Unexpected feed config: %+v", cfg.Feed)
	}
	if cfg.YtDlpPath != "yt-dlp" {
		t.Errorf("Defaults should fill unset fields, got '%s'", cfg.YtDlpPath)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "format: flac\nmpd:\n  host: nas.local\n")
	t.Setenv("STELLAR_TAGGER_FORMAT", "mp3")
	t.Setenv("STELLAR_TAGGER_MPD_HOST", "10.0.0.2")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Format != "mp3" {
		t.Errorf("Expected env format mp3, got '%s'", cfg.Format)
	}
	if cfg.MPD.Host != "10.0.0.2" {
		t.Errorf("Expected env MPD host, got '%s'", cfg.MPD.Host)
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}

	path := writeConfig(t, "format: wav\n")
	if _, err := config.Load(path); !errors.Is(err, config.ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	base := func() *config.Config {
		cfg, err := config.Load("")
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"empty download dir", func(c *config.Config) { c.DownloadDir = "" }},
		{"zero timeout", func(c *config.Config) { c.ThumbnailTimeout = 0 }},
		{"bad mpd port", func(c *config.Config) { c.MPD.Enabled = true; c.MPD.Port = 70000 }},
		{"bad feed port", func(c *config.Config) { c.Feed.Enabled = true; c.Feed.Port = 0 }},
		{"no feed clients", func(c *config.Config) { c.Feed.MaxClients = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, config.ErrInvalidConfig) {
				t.Errorf("Expected ErrInvalidConfig, got %v", err)
			}
		})
	}

	// Disabled components are not validated.
	cfg := base()
	cfg.MPD.Port = -1
	if err := cfg.Validate(); err != nil {
		t.Errorf("Disabled MPD should not be validated: %v", err)
	}
}
