package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/edumarques81/stellar-tagger/internal/app/pipeline"
	"github.com/edumarques81/stellar-tagger/internal/infra/history"
	"github.com/edumarques81/stellar-tagger/internal/infra/ytdlp"
)

var (
	okColor   = color.New(color.FgGreen)
	warnColor = color.New(color.FgYellow)
	errColor  = color.New(color.FgRed)
	infoColor = color.New(color.FgCyan)
)

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetRowLine(false)
	return table
}

// renderTrack prints the outcome of a single track.
func renderTrack(w io.Writer, res *pipeline.TrackResult) {
	switch {
	case res.TagErr != nil:
		warnColor.Fprintf(w, "Downloaded without tags: %s\n", res.Path)
	default:
		okColor.Fprintf(w, "Saved %s\n", res.Path)
	}

	table := newTable(w, "Field", "Value")
	table.Append([]string{"Title", res.Metadata.Title})
	table.Append([]string{"Artist", res.Metadata.Artist})
	table.Append([]string{"Album", res.Metadata.Album})
	table.Append([]string{"Date", res.Metadata.Date})
	table.Append([]string{"Genre", res.Metadata.Genre})
	table.Append([]string{"Cover", yesNo(res.CoverEmbedded)})
	table.Render()
}

// renderSummary prints the counters of a playlist or search run.
func renderSummary(w io.Writer, sum pipeline.Summary) {
	infoColor.Fprintf(w, "%s\n", sum.Title)

	table := newTable(w, "Total", "Succeeded", "Failed", "Skipped", "Existing")
	table.Append([]string{
		strconv.Itoa(sum.Total),
		strconv.Itoa(sum.Succeeded),
		strconv.Itoa(sum.Failed),
		strconv.Itoa(sum.Skipped),
		strconv.Itoa(sum.Existing),
	})
	table.Render()

	switch {
	case sum.Failed == 0 && sum.Skipped == 0:
		okColor.Fprintf(w, "All tracks saved to %s\n", sum.OutputDir)
	case sum.Succeeded == 0 && sum.Existing == 0:
		errColor.Fprintf(w, "No tracks were saved\n")
	default:
		warnColor.Fprintf(w, "%d of %d tracks saved to %s\n", sum.Succeeded, sum.Total, sum.OutputDir)
	}
}

// renderPreview prints the first entries of a playlist with its estimates.
func renderPreview(w io.Writer, p *pipeline.Preview) {
	infoColor.Fprintf(w, "%s", p.Title)
	if p.Uploader != "" {
		fmt.Fprintf(w, " by %s", p.Uploader)
	}
	fmt.Fprintf(w, "\n%d tracks, about %s\n", p.Count, formatTotal(p.TotalDuration))

	table := newTable(w, "#", "Title", "Duration")
	for i, e := range p.Entries {
		table.Append([]string{strconv.Itoa(i + 1), e.Title, formatEntryDuration(e)})
	}
	table.Render()

	if n := p.Remaining(); n > 0 {
		fmt.Fprintf(w, "... and %d more\n", n)
	}
	fmt.Fprintf(w, "Estimated size: M4A %.0f MB, MP3 %.0f MB, FLAC %.0f MB\n",
		p.Size.M4A, p.Size.MP3, p.Size.FLAC)
}

// renderHistory prints recent records followed by totals.
func renderHistory(w io.Writer, records []*history.Record, stats *history.Stats) {
	table := newTable(w, "When", "Status", "Artist", "Title", "File")
	for _, r := range records {
		table.Append([]string{
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
			string(r.Status),
			r.Artist,
			r.Title,
			filepath.Base(r.Path),
		})
	}
	table.Render()

	if stats != nil {
		fmt.Fprintf(w, "%d tracks, ", stats.Total)
		okColor.Fprintf(w, "%d succeeded", stats.Succeeded)
		fmt.Fprint(w, ", ")
		errColor.Fprintf(w, "%d failed", stats.Failed)
		fmt.Fprintln(w)
	}
}

// renderDependencies prints the detected tool versions.
func renderDependencies(w io.Writer, deps ytdlp.Dependencies) {
	for _, d := range []struct{ name, version string }{
		{"yt-dlp", deps.YtDlp},
		{"ffmpeg", deps.FFmpeg},
	} {
		if d.version == "" {
			errColor.Fprintf(w, "✗ %s not found\n", d.name)
			continue
		}
		okColor.Fprintf(w, "✓ %s %s\n", d.name, d.version)
	}
}

// formatTotal renders d as "1h 5m" or "12m".
func formatTotal(d time.Duration) string {
	minutes := int(d.Round(time.Minute) / time.Minute)
	if minutes >= 60 {
		return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
	}
	return fmt.Sprintf("%dm", minutes)
}

// formatEntryDuration renders a track length as m:ss, or "?" when unknown.
func formatEntryDuration(e ytdlp.Entry) string {
	if e.Duration <= 0 {
		return "?"
	}
	secs := int(e.Duration)
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
