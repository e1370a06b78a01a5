// Package main is the entry point for the Stellar Tagger command line tool.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/edumarques81/stellar-tagger/internal/config"
)

// rootOptions holds the global flags.
type rootOptions struct {
	configPath     string
	debug          bool
	downloadDir    string
	format         string
	historyDB      string
	skipDownloaded bool
	embedFLACCover bool
	coverFallback  bool
	feed           bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	setupLogging(false)

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("Command failed")
		stop()
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cfg := &config.Config{}

	root := &cobra.Command{
		Use:           "stellar-tagger",
		Short:         "Download audio tracks and tag them with clean metadata and cover art",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			loaded, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			setupLogging(loaded.Debug)
			*cfg = *loaded
			return nil
		},
	}

	addRootFlags(root, opts)

	root.AddCommand(
		newDownloadCommand(cfg),
		newPlaylistCommand(cfg),
		newSearchCommand(cfg),
		newPreviewCommand(cfg),
		newTagCommand(cfg),
		newCheckCommand(cfg),
		newHistoryCommand(cfg),
		newVersionCommand(),
	)

	return root
}

func addRootFlags(cmd *cobra.Command, opts *rootOptions) {
	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "Path to a YAML config file")
	flags.BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	flags.StringVarP(&opts.downloadDir, "dir", "d", "", "Download directory (overrides config)")
	flags.StringVarP(&opts.format, "format", "f", "", "Audio format: best, m4a, mp3 or flac (overrides config)")
	flags.StringVar(&opts.historyDB, "history-db", "", "SQLite history database path (overrides config)")
	flags.BoolVar(&opts.skipDownloaded, "skip-downloaded", false, "Skip playlist and search entries already in the history database")
	flags.BoolVar(&opts.embedFLACCover, "embed-flac-cover", false, "Embed cover art into FLAC files")
	flags.BoolVar(&opts.coverFallback, "cover-fallback", false, "Look up covers on MusicBrainz when a video has no thumbnail")
	flags.BoolVar(&opts.feed, "feed", false, "Serve the Socket.io progress feed while running")
}

// loadConfig reads file and environment settings, then applies flags that
// were set explicitly.
func loadConfig(cmd *cobra.Command, opts *rootOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("debug") {
		cfg.Debug = opts.debug
	}
	if flags.Changed("dir") {
		cfg.DownloadDir = opts.downloadDir
	}
	if flags.Changed("format") {
		cfg.Format = opts.format
	}
	if flags.Changed("history-db") {
		cfg.HistoryDB = opts.historyDB
	}
	if flags.Changed("skip-downloaded") {
		cfg.SkipDownloaded = opts.skipDownloaded
	}
	if flags.Changed("embed-flac-cover") {
		cfg.EmbedFLACCover = opts.embedFLACCover
	}
	if flags.Changed("cover-fallback") {
		cfg.CoverFallback = opts.coverFallback
	}
	if flags.Changed("feed") {
		cfg.Feed.Enabled = opts.feed
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setupLogging(debug bool) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
}
