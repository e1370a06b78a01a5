// Package metadata derives canonical tag fields from noisy upstream video metadata.
package metadata

// DefaultArtist is used when no artist survives resolution and cleanup.
const DefaultArtist = "Unknown Artist"

// DefaultGenre is the genre written when categories don't say otherwise.
const DefaultGenre = "Music"

// Thumbnail is a thumbnail candidate advertised by the source platform.
type Thumbnail struct {
	ID     string `json:"id"`
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// RawInfo is the loosely structured info record returned by the media fetcher.
// Every field is optional; the zero value means absent.
type RawInfo struct {
	ID          string
	WebpageURL  string
	Ext         string
	Title       string
	Artist      string
	Creator     string
	Track       string
	AltTitle    string
	Description string
	Uploader    string
	Channel     string
	Album       string
	ReleaseYear int     // 0 when unknown
	UploadDate  string  // YYYYMMDD
	Duration    float64 // seconds, 0 when unknown
	Categories  []string
	Thumbnails  []Thumbnail
	Thumbnail   string // single fallback URL
}

// Canonical is the normalized tag set written into an audio file.
type Canonical struct {
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	Album    string `json:"album"`
	Date     string `json:"date,omitempty"`
	Genre    string `json:"genre"`
	Duration string `json:"duration,omitempty"`
}
