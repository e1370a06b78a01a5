package ytdlp

import (
	"errors"

	"github.com/tidwall/gjson"
)

// ErrNoEntries is returned when a playlist or search yields nothing.
var ErrNoEntries = errors.New("no entries")

// watchURL builds a watch URL for entries that only carry an ID.
const watchURL = "https://www.youtube.com/watch?v="

// Entry is a flat playlist item.
type Entry struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	URL      string  `json:"url"`
	Duration float64 `json:"duration,omitempty"` // 0 when unknown
}

// Playlist is a flat playlist listing.
type Playlist struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Uploader string  `json:"uploader"`
	Entries  []Entry `json:"entries"`
}

// ParsePlaylist decodes `yt-dlp -J --flat-playlist` output. Null entries and
// entries without any way to address them are dropped.
func ParsePlaylist(data []byte) (Playlist, error) {
	if !gjson.ValidBytes(data) {
		return Playlist{}, ErrInvalidInfo
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return Playlist{}, ErrInvalidInfo
	}

	pl := Playlist{
		ID:       str(root, "id"),
		Title:    str(root, "title"),
		Uploader: firstStr(root, "uploader", "channel"),
	}

	entries := root.Get("entries")
	if !entries.Exists() {
		return pl, ErrNoEntries
	}

	for _, e := range entries.Array() {
		if !e.IsObject() {
			continue
		}
		entry := Entry{
			ID:       str(e, "id"),
			Title:    str(e, "title"),
			URL:      firstStr(e, "webpage_url", "url"),
			Duration: e.Get("duration").Float(),
		}
		if entry.URL == "" && entry.ID != "" {
			entry.URL = watchURL + entry.ID
		}
		if entry.URL == "" {
			continue
		}
		pl.Entries = append(pl.Entries, entry)
	}

	return pl, nil
}
