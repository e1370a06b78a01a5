package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/edumarques81/stellar-tagger/internal/config"
	"github.com/edumarques81/stellar-tagger/internal/infra/ytdlp"
	"github.com/edumarques81/stellar-tagger/internal/version"
)

// withApp runs fn with a wired app and closes it afterwards.
func withApp(cfg *config.Config, fn func(a *app) error) error {
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func newDownloadCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "download <url>",
		Short: "Download a single track and tag it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cfg, func(a *app) error {
				res, err := a.service.ProcessTrack(cmd.Context(), args[0], cfg.Format)
				if err != nil {
					return err
				}
				renderTrack(cmd.OutOrStdout(), res)
				return nil
			})
		},
	}
}

func newPlaylistCommand(cfg *config.Config) *cobra.Command {
	var preview bool

	cmd := &cobra.Command{
		Use:   "playlist <url>",
		Short: "Download and tag every track of a playlist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cfg, func(a *app) error {
				if preview {
					p, err := a.service.Preview(cmd.Context(), args[0])
					if err != nil {
						return err
					}
					renderPreview(cmd.OutOrStdout(), p)
					return nil
				}

				sum, err := a.service.ProcessPlaylist(cmd.Context(), args[0], cfg.Format)
				if err != nil {
					return err
				}
				renderSummary(cmd.OutOrStdout(), sum)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&preview, "preview", false, "Only list the playlist and estimate its size")
	return cmd
}

func newSearchCommand(cfg *config.Config) *cobra.Command {
	var results int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search for tracks and download the top results",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return withApp(cfg, func(a *app) error {
				sum, err := a.service.Search(cmd.Context(), query, results, cfg.Format)
				if err != nil {
					return err
				}
				renderSummary(cmd.OutOrStdout(), sum)
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&results, "results", "n", 1, "Number of results to download")
	return cmd
}

func newPreviewCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "preview <url>",
		Short: "List a playlist and estimate its duration and size",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cfg, func(a *app) error {
				p, err := a.service.Preview(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				renderPreview(cmd.OutOrStdout(), p)
				return nil
			})
		},
	}
}

func newTagCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "tag <file> <info.json>",
		Short: "Tag an existing audio file from a yt-dlp info JSON file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[1])
			if err != nil {
				return fmt.Errorf("read info: %w", err)
			}
			info, err := ytdlp.ParseInfo(data)
			if err != nil {
				return fmt.Errorf("parse info %s: %w", args[1], err)
			}

			return withApp(cfg, func(a *app) error {
				res, err := a.service.TagFile(cmd.Context(), args[0], info)
				if err != nil {
					return err
				}
				renderTrack(cmd.OutOrStdout(), res)
				return nil
			})
		},
	}
}

func newCheckCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify that yt-dlp and ffmpeg are installed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fetcher := ytdlp.New(ytdlp.WithBinary(cfg.YtDlpPath), ytdlp.WithFFmpeg(cfg.FFmpegPath))
			deps, err := fetcher.CheckDependencies(cmd.Context())
			renderDependencies(cmd.OutOrStdout(), deps)
			return err
		},
	}
}

func newHistoryCommand(cfg *config.Config) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently processed tracks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cfg.HistoryDB == "" {
				return errNoHistory
			}
			store, err := openHistory(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := store.Recent(limit)
			if err != nil {
				return err
			}
			stats, err := store.Stats()
			if err != nil {
				return err
			}
			renderHistory(cmd.OutOrStdout(), records, stats)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of records to show")
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), version.GetInfo().String())
			return nil
		},
	}
}
