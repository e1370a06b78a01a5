package coverart

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func newTestMB(t *testing.T, handler http.HandlerFunc) *MusicBrainzClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewMusicBrainzClient(
		WithMBBaseURL(server.URL),
		WithMBRateLimit(1000),
		WithMBLogger(zerolog.Nop()),
	)
}

func TestMusicBrainz_SearchRelease(t *testing.T) {
	client := newTestMB(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/release" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		query := r.URL.Query().Get("query")
		if !strings.Contains(query, `artist:"AC\/DC"`) || !strings.Contains(query, `release:"Back in Black"`) {
			t.Errorf("unexpected query: %s", query)
		}
		if !strings.HasPrefix(r.Header.Get("User-Agent"), "StellarTagger/") {
			t.Errorf("unexpected User-Agent: %s", r.Header.Get("User-Agent"))
		}
		w.Write([]byte(`{"releases":[{"id":"low","score":60},{"id":"high","score":95}]}`))
	})

	mbid, err := client.SearchRelease(context.Background(), "AC/DC", "Back in Black")
	if err != nil {
		t.Fatalf("SearchRelease failed: %v", err)
	}
	if mbid != "high" {
		t.Errorf("expected high, got %q", mbid)
	}
}

func TestMusicBrainz_SearchReleaseLowConfidence(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"top above fifty", `{"releases":[{"id":"a","score":70},{"id":"b","score":40}]}`, "a"},
		{"too low", `{"releases":[{"id":"a","score":50}]}`, ""},
		{"empty", `{"releases":[]}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestMB(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			})
			mbid, err := client.SearchRelease(context.Background(), "Artist", "Album")
			if err != nil {
				t.Fatalf("SearchRelease failed: %v", err)
			}
			if mbid != tt.want {
				t.Errorf("expected %q, got %q", tt.want, mbid)
			}
		})
	}
}

func TestMusicBrainz_SearchRecordingPrefersOfficial(t *testing.T) {
	client := newTestMB(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/recording" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte(`{"recordings":[{"id":"rec","score":100,"releases":[
			{"id":"bootleg","status":"Bootleg"},
			{"id":"official","status":"Official"}
		]}]}`))
	})

	ids, err := client.SearchRecording(context.Background(), "Artist", "Song")
	if err != nil {
		t.Fatalf("SearchRecording failed: %v", err)
	}
	if len(ids) != 2 || ids[0] != "official" || ids[1] != "bootleg" {
		t.Errorf("expected [official bootleg], got %v", ids)
	}
}

func TestMusicBrainz_StatusErrors(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusTooManyRequests, ErrRateLimited},
		{http.StatusServiceUnavailable, ErrTemporaryFailure},
		{http.StatusNotFound, ErrNotFound},
	}
	for _, tt := range tests {
		client := newTestMB(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		})
		_, err := client.SearchRelease(context.Background(), "Artist", "Album")
		if !errors.Is(err, tt.want) {
			t.Errorf("status %d: expected %v, got %v", tt.status, tt.want, err)
		}
	}
}

func TestMusicBrainz_InvalidJSON(t *testing.T) {
	client := newTestMB(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	})

	if _, err := client.SearchRelease(context.Background(), "Artist", "Album"); err == nil {
		t.Error("expected parse error")
	}
}

func TestBestMatch(t *testing.T) {
	tests := []struct {
		name    string
		results []match
		want    int
	}{
		{"closest confident title", []match{{90, "Greatest Hits"}, {85, "Back in Black"}, {99, "Live"}}, 1},
		{"ties keep earliest", []match{{60, "x"}, {90, "Back in Black"}, {95, "back in black"}}, 1},
		{"low confidence top", []match{{70, "Other"}, {40, "Back in Black"}}, 0},
		{"nothing confident", []match{{50, "Back in Black"}}, -1},
		{"empty", nil, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := bestMatch(tt.results, "Back in Black"); got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestEscapeQuery(t *testing.T) {
	if got := escapeQuery(`Sigur Rós: (Live) "x"`); got != `Sigur Rós\: \(Live\) \"x\"` {
		t.Errorf("unexpected escape: %s", got)
	}
}

func TestIsTemporaryError(t *testing.T) {
	if !IsTemporaryError(ErrRateLimited) || !IsTemporaryError(ErrTemporaryFailure) {
		t.Error("rate limit and temporary failure should be temporary")
	}
	if IsTemporaryError(ErrNotFound) {
		t.Error("not found should be permanent")
	}
}
