package history

import (
	"errors"
	"time"
)

// ErrNotOpen is returned when the store is used before Open or after Close.
var ErrNotOpen = errors.New("history database not open")

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Status is the outcome of processing one track.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Record is one processed track.
type Record struct {
	ID            string    `json:"id"`
	RunID         string    `json:"runId,omitempty"` // groups tracks of one playlist or search
	VideoID       string    `json:"videoId,omitempty"`
	URL           string    `json:"url"`
	Path          string    `json:"path,omitempty"`
	Format        string    `json:"format"`
	Title         string    `json:"title,omitempty"`
	Artist        string    `json:"artist,omitempty"`
	Album         string    `json:"album,omitempty"`
	Tagged        bool      `json:"tagged"`
	CoverEmbedded bool      `json:"coverEmbedded"`
	Status        Status    `json:"status"`
	Error         string    `json:"error,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Stats summarizes the history.
type Stats struct {
	Total         int       `json:"total"`
	Succeeded     int       `json:"succeeded"`
	Failed        int       `json:"failed"`
	LastDownload  time.Time `json:"lastDownload,omitempty"`
	SchemaVersion string    `json:"schemaVersion"`
}
