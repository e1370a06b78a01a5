package pipeline_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/edumarques81/stellar-tagger/internal/app/pipeline"
	"github.com/edumarques81/stellar-tagger/internal/domain/metadata"
	"github.com/edumarques81/stellar-tagger/internal/infra/history"
	"github.com/edumarques81/stellar-tagger/internal/infra/tagwriter"
	"github.com/edumarques81/stellar-tagger/internal/infra/ytdlp"
)

// fakeFetcher implements pipeline.MediaFetcher. Downloads create an empty file
// in dir named after the URL's entry in files (default "track.m4a").
type fakeFetcher struct {
	dir         string
	infos       map[string]metadata.RawInfo
	infoErr     map[string]error
	files       map[string]string
	downloadErr map[string]error
	playlist    ytdlp.Playlist
	playlistErr error
	results     []ytdlp.Entry
	searchErr   error

	mu         sync.Mutex
	downloaded []string
}

func (f *fakeFetcher) Info(_ context.Context, url string) (metadata.RawInfo, error) {
	if err := f.infoErr[url]; err != nil {
		return metadata.RawInfo{}, err
	}
	return f.infos[url], nil
}

func (f *fakeFetcher) Download(_ context.Context, url, _ string) (string, error) {
	if err := f.downloadErr[url]; err != nil {
		return "", err
	}
	name := f.files[url]
	if name == "" {
		name = "track.m4a"
	}
	path := filepath.Join(f.dir, name)
	if err := os.WriteFile(path, []byte("audio"), 0644); err != nil {
		return "", err
	}
	f.mu.Lock()
	f.downloaded = append(f.downloaded, url)
	f.mu.Unlock()
	return path, nil
}

func (f *fakeFetcher) Playlist(context.Context, string) (ytdlp.Playlist, error) {
	return f.playlist, f.playlistErr
}

func (f *fakeFetcher) Search(_ context.Context, _ string, n int) ([]ytdlp.Entry, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if n < len(f.results) {
		return f.results[:n], nil
	}
	return f.results, nil
}

func (f *fakeFetcher) OutputDir() string {
	return f.dir
}

type fakeThumbnails struct {
	data      []byte
	err       error
	requested []string
}

func (f *fakeThumbnails) Fetch(_ context.Context, url string) ([]byte, error) {
	f.requested = append(f.requested, url)
	return f.data, f.err
}

type fakeNormalizer struct{}

func (fakeNormalizer) Normalize(data []byte) []byte {
	return append([]byte("normalized:"), data...)
}

type tagCall struct {
	path  string
	c     metadata.Canonical
	cover []byte
}

type fakeTags struct {
	err    error
	panics bool
	noArt  bool
	calls  []tagCall
}

func (f *fakeTags) WriteTags(path string, c metadata.Canonical, cover []byte) error {
	if f.panics {
		panic("corrupt container")
	}
	f.calls = append(f.calls, tagCall{path: path, c: c, cover: cover})
	return f.err
}

func (f *fakeTags) EmbedsCover(string) bool {
	return !f.noArt
}

type fakeHistory struct {
	records []*history.Record
	err     error
}

func (f *fakeHistory) Record(r *history.Record) error {
	f.records = append(f.records, r)
	return f.err
}

type fakeNotifier struct {
	paths []string
	err   error
}

func (f *fakeNotifier) NotifyFile(path string) error {
	f.paths = append(f.paths, path)
	return f.err
}

type recordingObserver struct {
	starts    []pipeline.TrackEvent
	dones     []pipeline.TrackEvent
	errs      []error
	summaries []pipeline.Summary
}

func (o *recordingObserver) OnTrackStart(ev pipeline.TrackEvent) {
	o.starts = append(o.starts, ev)
}

func (o *recordingObserver) OnTrackDone(ev pipeline.TrackEvent, _ *pipeline.TrackResult, err error) {
	o.dones = append(o.dones, ev)
	o.errs = append(o.errs, err)
}

func (o *recordingObserver) OnPlaylistDone(sum pipeline.Summary) {
	o.summaries = append(o.summaries, sum)
}

const trackURL = "https://www.youtube.com/watch?v=abc"

func topicInfo() metadata.RawInfo {
	return metadata.RawInfo{
		ID:       "abc",
		Title:    "Artist - Song",
		Uploader: "Artist - Topic",
		Thumbnails: []metadata.Thumbnail{
			{ID: "0", URL: "https://i.example/vi/abc/default.jpg", Width: 120, Height: 90},
			{ID: "1", URL: "https://i.example/vi/abc/maxresdefault.jpg", Width: 1280, Height: 720},
		},
	}
}

type harness struct {
	fetcher  *fakeFetcher
	thumbs   *fakeThumbnails
	tags     *fakeTags
	history  *fakeHistory
	notifier *fakeNotifier
	observer *recordingObserver
	service  *pipeline.Service
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		fetcher: &fakeFetcher{
			dir:   t.TempDir(),
			infos: map[string]metadata.RawInfo{trackURL: topicInfo()},
		},
		thumbs:   &fakeThumbnails{data: []byte("jpeg")},
		tags:     &fakeTags{},
		history:  &fakeHistory{},
		notifier: &fakeNotifier{},
		observer: &recordingObserver{},
	}
	h.service = pipeline.NewService(h.fetcher, h.thumbs, h.tags,
		pipeline.WithNormalizer(fakeNormalizer{}),
		pipeline.WithHistory(h.history),
		pipeline.WithNotifier(h.notifier),
		pipeline.WithObserver(h.observer),
		pipeline.WithLogger(zerolog.Nop()),
	)
	return h
}

func TestProcessTrack_Success(t *testing.T) {
	h := newHarness(t)

	res, err := h.service.ProcessTrack(context.Background(), trackURL, "m4a")
	if err != nil {
		t.Fatalf("ProcessTrack failed: %v", err)
	}

	if res.Metadata.Artist != "Artist" || res.Metadata.Title != "Artist - Song" {
		t.Errorf("Unexpected metadata: %+v", res.Metadata)
	}
	if !res.Tagged || !res.CoverEmbedded || !res.Renamed {
		t.Errorf("Expected tagged, cover and renamed, got %+v", res)
	}

	want := filepath.Join(h.fetcher.dir, "Artist - Artist - Song.m4a")
	if res.Path != want {
		t.Errorf("Expected path '%s', got '%s'", want, res.Path)
	}
	if _, err := os.Stat(want); err != nil {
		t.Errorf("Renamed file missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(h.fetcher.dir, "track.m4a")); !os.IsNotExist(err) {
		t.Error("Original file should be gone after rename")
	}

	if len(h.thumbs.requested) != 1 || h.thumbs.requested[0] != "https://i.example/vi/abc/maxresdefault.jpg" {
		t.Errorf("Expected maxresdefault thumbnail request, got %v", h.thumbs.requested)
	}
	if len(h.tags.calls) != 1 || string(h.tags.calls[0].cover) != "normalized:jpeg" {
		t.Errorf("Expected normalized cover passed to writer, got %+v", h.tags.calls)
	}

	if len(h.history.records) != 1 {
		t.Fatalf("Expected 1 history record, got %d", len(h.history.records))
	}
	rec := h.history.records[0]
	if rec.Status != history.StatusSucceeded || rec.VideoID != "abc" || rec.Path != want || rec.Format != "m4a" {
		t.Errorf("Unexpected history record: %+v", rec)
	}

	if len(h.notifier.paths) != 1 || h.notifier.paths[0] != want {
		t.Errorf("Expected notification for %s, got %v", want, h.notifier.paths)
	}
	if len(h.observer.starts) != 1 || len(h.observer.dones) != 1 || h.observer.errs[0] != nil {
		t.Errorf("Expected one start and one successful done, got %+v", h.observer)
	}
}

func TestProcessTrack_UnknownFormat(t *testing.T) {
	h := newHarness(t)

	_, err := h.service.ProcessTrack(context.Background(), trackURL, "ogg")
	if !errors.Is(err, ytdlp.ErrUnknownFormat) {
		t.Errorf("Expected ErrUnknownFormat, got %v", err)
	}
	if len(h.fetcher.downloaded) != 0 {
		t.Error("Nothing should be downloaded for an unknown format")
	}
}

func TestProcessTrack_ThumbnailFailureSkipsCover(t *testing.T) {
	h := newHarness(t)
	h.thumbs.err = errors.New("boom")

	res, err := h.service.ProcessTrack(context.Background(), trackURL, "m4a")
	if err != nil {
		t.Fatalf("ProcessTrack failed: %v", err)
	}
	if !res.Tagged {
		t.Error("Tags should still be written without cover")
	}
	if res.CoverEmbedded {
		t.Error("Cover should not be reported as embedded")
	}
	if len(h.tags.calls) != 1 || h.tags.calls[0].cover != nil {
		t.Errorf("Expected tag write without cover, got %+v", h.tags.calls)
	}
}

func TestProcessTrack_NoThumbnails(t *testing.T) {
	h := newHarness(t)
	info := topicInfo()
	info.Thumbnails = nil
	h.fetcher.infos[trackURL] = info

	res, err := h.service.ProcessTrack(context.Background(), trackURL, "m4a")
	if err != nil {
		t.Fatalf("ProcessTrack failed: %v", err)
	}
	if len(h.thumbs.requested) != 0 {
		t.Errorf("No thumbnail should be requested, got %v", h.thumbs.requested)
	}
	if res.CoverEmbedded {
		t.Error("Cover should not be embedded")
	}
}

type fakeCoverSource struct {
	data    []byte
	err     error
	queries []metadata.Canonical
}

func (f *fakeCoverSource) Find(_ context.Context, c metadata.Canonical) ([]byte, error) {
	f.queries = append(f.queries, c)
	return f.data, f.err
}

func TestProcessTrack_CoverFallback(t *testing.T) {
	h := newHarness(t)
	h.thumbs.err = errors.New("boom")
	src := &fakeCoverSource{data: []byte("caa")}
	h.service = pipeline.NewService(h.fetcher, h.thumbs, h.tags,
		pipeline.WithNormalizer(fakeNormalizer{}),
		pipeline.WithCoverFallback(src),
		pipeline.WithLogger(zerolog.Nop()),
	)

	res, err := h.service.ProcessTrack(context.Background(), trackURL, "m4a")
	if err != nil {
		t.Fatalf("ProcessTrack failed: %v", err)
	}
	if len(src.queries) != 1 || src.queries[0].Artist != res.Metadata.Artist {
		t.Errorf("Expected one fallback query for %q, got %+v", res.Metadata.Artist, src.queries)
	}
	if got := string(h.tags.calls[0].cover); got != "normalized:caa" {
		t.Errorf("Expected normalized fallback cover, got %q", got)
	}
	if !res.CoverEmbedded {
		t.Error("Fallback cover should be embedded")
	}
}

func TestProcessTrack_CoverFallbackNotUsedWithThumbnail(t *testing.T) {
	h := newHarness(t)
	src := &fakeCoverSource{data: []byte("caa")}
	h.service = pipeline.NewService(h.fetcher, h.thumbs, h.tags,
		pipeline.WithNormalizer(fakeNormalizer{}),
		pipeline.WithCoverFallback(src),
		pipeline.WithLogger(zerolog.Nop()),
	)

	if _, err := h.service.ProcessTrack(context.Background(), trackURL, "m4a"); err != nil {
		t.Fatalf("ProcessTrack failed: %v", err)
	}
	if len(src.queries) != 0 {
		t.Errorf("Fallback should not be queried, got %+v", src.queries)
	}
}

func TestProcessTrack_CoverFallbackMiss(t *testing.T) {
	h := newHarness(t)
	h.thumbs.err = errors.New("boom")
	src := &fakeCoverSource{err: errors.New("not found")}
	h.service = pipeline.NewService(h.fetcher, h.thumbs, h.tags,
		pipeline.WithNormalizer(fakeNormalizer{}),
		pipeline.WithCoverFallback(src),
		pipeline.WithLogger(zerolog.Nop()),
	)

	res, err := h.service.ProcessTrack(context.Background(), trackURL, "m4a")
	if err != nil {
		t.Fatalf("ProcessTrack failed: %v", err)
	}
	if !res.Tagged || res.CoverEmbedded {
		t.Errorf("Expected tagged without cover, got %+v", res)
	}
}

func TestProcessTrack_CoverNotSupportedByContainer(t *testing.T) {
	h := newHarness(t)
	h.tags.noArt = true

	res, err := h.service.ProcessTrack(context.Background(), trackURL, "flac")
	if err != nil {
		t.Fatalf("ProcessTrack failed: %v", err)
	}
	if res.CoverEmbedded {
		t.Error("Cover should not be reported for containers that skip it")
	}
}

func TestProcessTrack_TagFailureKeepsFile(t *testing.T) {
	h := newHarness(t)
	h.tags.err = errors.New("read only")

	res, err := h.service.ProcessTrack(context.Background(), trackURL, "m4a")
	if err != nil {
		t.Fatalf("Tag failures should not fail the track: %v", err)
	}
	if res.Tagged || res.Renamed {
		t.Errorf("Expected untagged and not renamed, got %+v", res)
	}
	if res.TagErr == nil {
		t.Error("Expected TagErr to be set")
	}
	if res.Path != filepath.Join(h.fetcher.dir, "track.m4a") {
		t.Errorf("Expected original path, got '%s'", res.Path)
	}
	if h.history.records[0].Tagged {
		t.Error("History should record the track as untagged")
	}
}

func TestProcessTrack_RenameNeverOverwrites(t *testing.T) {
	h := newHarness(t)
	existing := filepath.Join(h.fetcher.dir, "Artist - Artist - Song.m4a")
	if err := os.WriteFile(existing, []byte("keep me"), 0644); err != nil {
		t.Fatalf("Failed to write existing file: %v", err)
	}

	res, err := h.service.ProcessTrack(context.Background(), trackURL, "m4a")
	if err != nil {
		t.Fatalf("ProcessTrack failed: %v", err)
	}
	if res.Renamed {
		t.Error("Rename should be skipped when the target exists")
	}

	data, err := os.ReadFile(existing)
	if err != nil || string(data) != "keep me" {
		t.Errorf("Existing file was modified: %q, %v", data, err)
	}
}

func TestProcessTrack_InfoFailure(t *testing.T) {
	h := newHarness(t)
	h.fetcher.infoErr = map[string]error{trackURL: errors.New("video unavailable")}

	_, err := h.service.ProcessTrack(context.Background(), trackURL, "m4a")
	if err == nil {
		t.Fatal("Expected error")
	}
	if len(h.history.records) != 1 || h.history.records[0].Status != history.StatusFailed {
		t.Errorf("Expected failed history record, got %+v", h.history.records)
	}
	if len(h.observer.errs) != 1 || h.observer.errs[0] == nil {
		t.Error("Observer should receive the error")
	}
	if len(h.notifier.paths) != 0 {
		t.Error("Failed tracks should not notify the library")
	}
}

func TestProcessTrack_PanicBecomesError(t *testing.T) {
	h := newHarness(t)
	h.tags.panics = true

	_, err := h.service.ProcessTrack(context.Background(), trackURL, "m4a")
	if err == nil {
		t.Fatal("Expected panic to be reported as an error")
	}
}

func TestProcessTrack_HistoryAndNotifierErrorsIgnored(t *testing.T) {
	h := newHarness(t)
	h.history.err = errors.New("disk full")
	h.notifier.err = errors.New("mpd down")

	if _, err := h.service.ProcessTrack(context.Background(), trackURL, "m4a"); err != nil {
		t.Errorf("Side effect failures should not fail the track: %v", err)
	}
}

func TestTagFile(t *testing.T) {
	h := newHarness(t)
	path := filepath.Join(h.fetcher.dir, "Artist - Topic - Song.mp3")
	if err := os.WriteFile(path, []byte("audio"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	res, err := h.service.TagFile(context.Background(), path, topicInfo())
	if err != nil {
		t.Fatalf("TagFile failed: %v", err)
	}
	if res.Format != "mp3" {
		t.Errorf("Expected format mp3, got '%s'", res.Format)
	}
	if !res.Renamed || filepath.Base(res.Path) != "Artist - Artist - Song.mp3" {
		t.Errorf("Expected rename to clean filename, got %+v", res)
	}
	if len(h.history.records) != 0 {
		t.Error("TagFile should not record download history")
	}
}

func TestTagFile_Errors(t *testing.T) {
	h := newHarness(t)

	if _, err := h.service.TagFile(context.Background(), filepath.Join(h.fetcher.dir, "missing.m4a"), topicInfo()); err == nil {
		t.Error("Expected error for missing file")
	}

	opus := filepath.Join(h.fetcher.dir, "song.opus")
	if err := os.WriteFile(opus, []byte("audio"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	if _, err := h.service.TagFile(context.Background(), opus, topicInfo()); !errors.Is(err, tagwriter.ErrUnsupportedFormat) {
		t.Errorf("Expected ErrUnsupportedFormat, got %v", err)
	}
	if len(h.thumbs.requested) != 0 || len(h.tags.calls) != 0 {
		t.Errorf("Expected no cover fetch or tag write for an unsupported file, got %v / %d", h.thumbs.requested, len(h.tags.calls))
	}

	path := filepath.Join(h.fetcher.dir, "song.m4a")
	if err := os.WriteFile(path, []byte("audio"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	h.tags.err = errors.New("broken")

	res, err := h.service.TagFile(context.Background(), path, topicInfo())
	if err == nil {
		t.Fatal("Expected tag error to be returned")
	}
	if res == nil || res.Path != path {
		t.Errorf("Expected result with original path, got %+v", res)
	}
}

func TestNewService_Defaults(t *testing.T) {
	h := newHarness(t)
	s := pipeline.NewService(h.fetcher, h.thumbs, h.tags, pipeline.WithLogger(zerolog.Nop()))

	// Default normalizer returns undecodable input unchanged.
	if _, err := s.ProcessTrack(context.Background(), trackURL, "m4a"); err != nil {
		t.Fatalf("ProcessTrack failed: %v", err)
	}
	if len(h.tags.calls) != 1 || string(h.tags.calls[0].cover) != "jpeg" {
		t.Errorf("Expected original cover bytes from default normalizer, got %+v", h.tags.calls)
	}
}
