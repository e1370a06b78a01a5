package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/edumarques81/stellar-tagger/internal/app/pipeline"
	"github.com/edumarques81/stellar-tagger/internal/config"
	"github.com/edumarques81/stellar-tagger/internal/infra/coverart"
	"github.com/edumarques81/stellar-tagger/internal/infra/history"
	"github.com/edumarques81/stellar-tagger/internal/infra/mpd"
	"github.com/edumarques81/stellar-tagger/internal/infra/tagwriter"
	"github.com/edumarques81/stellar-tagger/internal/infra/thumbnail"
	"github.com/edumarques81/stellar-tagger/internal/infra/ytdlp"
	"github.com/edumarques81/stellar-tagger/internal/transport/socketio"
	"github.com/edumarques81/stellar-tagger/internal/version"
)

// errNoHistory is returned by commands that need the history database.
var errNoHistory = errors.New("history database not configured (set history_db or --history-db)")

// app holds the wired components for one command invocation.
type app struct {
	cfg     *config.Config
	fetcher *ytdlp.Fetcher
	service *pipeline.Service
	history *history.Store
	mpd     *mpd.Client
	feed    *socketio.Server
	server  *http.Server
}

// newApp wires the pipeline from cfg. Optional components that fail to start
// are logged and left out.
func newApp(cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}

	a.fetcher = ytdlp.New(
		ytdlp.WithBinary(cfg.YtDlpPath),
		ytdlp.WithFFmpeg(cfg.FFmpegPath),
		ytdlp.WithOutputDir(cfg.DownloadDir),
	)

	opts := []pipeline.Option{}
	observers := pipeline.Observers{pipeline.NewLogObserver(nil)}

	if cfg.HistoryDB != "" {
		store, err := openHistory(cfg)
		if err != nil {
			return nil, err
		}
		a.history = store
		opts = append(opts, pipeline.WithHistory(store))
		if cfg.SkipDownloaded {
			opts = append(opts, pipeline.WithSkipDownloaded(store))
		}
	} else if cfg.SkipDownloaded {
		log.Warn().Msg("skip_downloaded needs history_db, downloading every entry")
	}

	if cfg.CoverFallback {
		opts = append(opts, pipeline.WithCoverFallback(coverart.NewFinder(nil, nil)))
	}

	if cfg.MPD.Enabled {
		a.mpd = mpd.NewClient(cfg.MPD.Host, cfg.MPD.Port,
			mpd.WithPassword(cfg.MPD.Password),
			mpd.WithMusicDir(cfg.MPD.MusicDir),
		)
		if err := a.mpd.Connect(); err != nil {
			log.Warn().Err(err).Msg("MPD unavailable, library updates will be retried per track")
		}
		opts = append(opts, pipeline.WithNotifier(a.mpd))
	}

	if cfg.Feed.Enabled {
		feed, err := socketio.NewServer(socketio.WithMaxExternalClients(cfg.Feed.MaxClients))
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("create progress feed: %w", err)
		}
		a.feed = feed
		a.startFeed()
		observers = append(observers, feed)
	}

	opts = append(opts, pipeline.WithObserver(observers))

	a.service = pipeline.NewService(
		a.fetcher,
		thumbnail.NewClient(thumbnail.WithTimeout(cfg.ThumbnailTimeout)),
		tagwriter.New(tagwriter.WithFLACCover(cfg.EmbedFLACCover)),
		opts...,
	)
	return a, nil
}

func openHistory(cfg *config.Config) (*history.Store, error) {
	store := history.New(cfg.HistoryDB)
	if err := store.Open(); err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	return store, nil
}

// startFeed serves the Socket.io feed with health and status endpoints.
func (a *app) startFeed() {
	mux := http.NewServeMux()
	mux.Handle("/socket.io/", a.feed)

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	mux.HandleFunc("/api/v1/version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(version.GetInfo())
	})

	mux.HandleFunc("/api/v1/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(a.feed.Status())
	})

	addr := ":" + strconv.Itoa(a.cfg.Feed.Port)
	a.server = &http.Server{
		Addr:         addr,
		Handler:      corsMiddleware(mux),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("Progress feed listening")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Progress feed server error")
		}
	}()
}

// Close releases every component that was started.
func (a *app) Close() {
	if a.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.server.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("Progress feed shutdown error")
		}
	}
	if a.feed != nil {
		a.feed.Close()
	}
	if a.mpd != nil {
		a.mpd.Close()
	}
	if a.history != nil {
		a.history.Close()
	}
}
