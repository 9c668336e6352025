package downloader

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "redditsaver/pkg/errors"
	"redditsaver/pkg/logger"
	"redditsaver/pkg/reddit"
	"redditsaver/pkg/storage"
)

// mediaServer serves fixed bodies by path and counts hits
type mediaServer struct {
	mu    sync.Mutex
	files map[string]string
	hits  []string
}

func (s *mediaServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.hits = append(s.hits, r.URL.Path)
	body, ok := s.files[r.URL.Path]
	s.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	_, _ = io.WriteString(w, body)
}

func (s *mediaServer) Hits() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.hits...)
}

type fixture struct {
	srv   *httptest.Server
	media *mediaServer
	store *storage.Manager
	dl    *Downloader
	root  string
}

func newFixture(t *testing.T, files map[string]string) *fixture {
	t.Helper()
	media := &mediaServer{files: files}
	srv := httptest.NewServer(media)
	t.Cleanup(srv.Close)

	root := t.TempDir()
	store, err := storage.NewManager(root, 0755, 0644)
	require.NoError(t, err)

	client := reddit.NewClient(5*time.Second, "", logger.NewNopLogger())
	return &fixture{
		srv:   srv,
		media: media,
		store: store,
		dl:    New(client, store, nil, logger.NewTestLogger()),
		root:  root,
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestSaveSelfTextSkipsWithoutNetwork(t *testing.T) {
	f := newFixture(t, nil)
	rec := &reddit.SavedRecord{ID: "s1", Subreddit: "AskReddit", URL: "https://reddit.com/r/AskReddit/s1", IsSelf: true}

	out, err := f.dl.Save(context.Background(), rec, "")
	require.NoError(t, err)
	assert.True(t, out.Skipped)
	assert.Equal(t, ReasonSelfText, out.Reason)
	assert.Equal(t, reddit.MediaSelfText, out.Kind)
	assert.Empty(t, out.Files)
	assert.Empty(t, f.media.Hits())

	entries, err := os.ReadDir(filepath.Join(f.root, "AskReddit"))
	require.NoError(t, err, "subreddit directory is created even for skipped posts")
	assert.Empty(t, entries)
}

func TestSaveImage(t *testing.T) {
	f := newFixture(t, map[string]string{"/cat.PNG": "png-bytes"})
	rec := &reddit.SavedRecord{ID: "abc", Subreddit: "cats", URL: f.srv.URL + "/cat.PNG"}
	rec.Media = reddit.Classify(rec)

	out, err := f.dl.Save(context.Background(), rec, "")
	require.NoError(t, err)
	assert.False(t, out.Skipped)

	want := filepath.Join(f.root, "cats", "abc.PNG")
	assert.Equal(t, []string{want}, out.Files)
	assert.Equal(t, int64(9), out.Bytes)
	assert.Equal(t, "png-bytes", readFile(t, want))
}

func TestSaveGalleryWritesNumberedFiles(t *testing.T) {
	f := newFixture(t, map[string]string{
		"/a.jpg": "A",
		"/b.png": "B",
		"/c.jpg": "C",
	})
	isGallery := true
	rec := &reddit.SavedRecord{
		ID:        "g1",
		Subreddit: "EarthPorn",
		URL:       "https://www.reddit.com/gallery/g1",
		IsGallery: &isGallery,
		GalleryMetadata: map[string]reddit.GalleryMetadataItem{
			"m3": {S: &reddit.GallerySource{U: f.srv.URL + "/c.jpg?width=10&amp;s=x"}},
			"m1": {S: &reddit.GallerySource{U: f.srv.URL + "/a.jpg"}},
			"m2": {S: &reddit.GallerySource{U: f.srv.URL + "/b.png"}},
		},
	}
	rec.Media = reddit.Classify(rec)

	out, err := f.dl.Save(context.Background(), rec, "")
	require.NoError(t, err)

	dir := filepath.Join(f.root, "EarthPorn")
	assert.Equal(t, []string{
		filepath.Join(dir, "g1_gallery_1.jpg"),
		filepath.Join(dir, "g1_gallery_2.png"),
		filepath.Join(dir, "g1_gallery_3.jpg"),
	}, out.Files)
	assert.Equal(t, "A", readFile(t, out.Files[0]))
	assert.Equal(t, "B", readFile(t, out.Files[1]))
	assert.Equal(t, "C", readFile(t, out.Files[2]))
	assert.Equal(t, []string{"/a.jpg", "/b.png", "/c.jpg"}, f.media.Hits())
}

func TestSaveGalleryStopsAtFirstFailure(t *testing.T) {
	f := newFixture(t, map[string]string{"/a.jpg": "A"})
	rec := &reddit.SavedRecord{ID: "g2", Subreddit: "pics", Media: reddit.Gallery{Items: []reddit.GalleryItem{
		{Index: 1, MediaID: "m1", URL: f.srv.URL + "/a.jpg", Ext: "jpg"},
		{Index: 2, MediaID: "m2", URL: f.srv.URL + "/missing.jpg", Ext: "jpg"},
		{Index: 3, MediaID: "m3", URL: f.srv.URL + "/a.jpg", Ext: "jpg"},
	}}}

	out, err := f.dl.Save(context.Background(), rec, "")
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, apperrors.StatusCode(err))
	assert.Len(t, out.Files, 1)
	assert.NoFileExists(t, filepath.Join(f.root, "pics", "g2_gallery_2.jpg"))
	assert.NoFileExists(t, filepath.Join(f.root, "pics", "g2_gallery_3.jpg"))
}

func TestSaveEmptyGallerySkipped(t *testing.T) {
	f := newFixture(t, nil)
	rec := &reddit.SavedRecord{ID: "g3", Subreddit: "pics", Media: reddit.Gallery{}}

	out, err := f.dl.Save(context.Background(), rec, "")
	require.NoError(t, err)
	assert.True(t, out.Skipped)
	assert.Equal(t, ReasonEmptyGallery, out.Reason)
}

func TestSaveVideo(t *testing.T) {
	f := newFixture(t, map[string]string{"/v1/DASH_720.mp4": "MP4"})
	rec := &reddit.SavedRecord{
		ID: "v1", Subreddit: "videos", PostHint: reddit.HostedVideoHint,
		Video: &reddit.RedditVideo{FallbackURL: f.srv.URL + "/v1/DASH_720.mp4?source=fallback"},
	}
	rec.Media = reddit.Classify(rec)

	out, err := f.dl.Save(context.Background(), rec, "")
	require.NoError(t, err)
	want := filepath.Join(f.root, "videos", "v1.mp4")
	assert.Equal(t, []string{want}, out.Files)
	assert.Equal(t, "MP4", readFile(t, want))
}

func TestSaveVideoWithoutFallbackSkipped(t *testing.T) {
	f := newFixture(t, nil)
	rec := &reddit.SavedRecord{ID: "v2", Subreddit: "videos", PostHint: reddit.HostedVideoHint}

	out, err := f.dl.Save(context.Background(), rec, "")
	require.NoError(t, err)
	assert.True(t, out.Skipped)
	assert.Equal(t, ReasonNoFallback, out.Reason)
	assert.Empty(t, f.media.Hits())
}

func TestSaveUnsupportedLinkSkipped(t *testing.T) {
	f := newFixture(t, nil)
	rec := &reddit.SavedRecord{ID: "u1", Subreddit: "news", URL: "https://example.com/story"}

	out, err := f.dl.Save(context.Background(), rec, "")
	require.NoError(t, err)
	assert.True(t, out.Skipped)
	assert.Equal(t, ReasonUnsupported, out.Reason)
	assert.Equal(t, reddit.MediaUnknown, out.Kind)
	assert.Empty(t, f.media.Hits())
}

func TestDownloadBytesNotFoundWritesNothing(t *testing.T) {
	f := newFixture(t, nil)
	path := filepath.Join(f.root, "x.jpg")

	_, err := f.dl.DownloadBytes(context.Background(), f.srv.URL+"/x.jpg", path)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeHTTPStatus))
	assert.Contains(t, err.Error(), f.srv.URL+"/x.jpg")
	assert.NoFileExists(t, path)
}

func TestDownloadBytesOverwrites(t *testing.T) {
	f := newFixture(t, map[string]string{"/x.jpg": "new"})
	path := filepath.Join(f.root, "x.jpg")
	require.NoError(t, os.WriteFile(path, []byte("old content"), 0644))

	n, err := f.dl.DownloadBytes(context.Background(), f.srv.URL+"/x.jpg", path)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.Equal(t, "new", readFile(t, path))
}

type countingLimiter struct{ calls int }

func (l *countingLimiter) Wait(ctx context.Context) error {
	l.calls++
	return ctx.Err()
}

func TestDownloadBytesUsesLimiter(t *testing.T) {
	f := newFixture(t, map[string]string{"/x.jpg": "x"})
	lim := &countingLimiter{}
	dl := New(reddit.NewClient(time.Second, "", logger.NewNopLogger()), f.store, lim, logger.NewNopLogger())

	_, err := dl.DownloadBytes(context.Background(), f.srv.URL+"/x.jpg", filepath.Join(f.root, "x.jpg"))
	require.NoError(t, err)
	assert.Equal(t, 1, lim.calls)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = dl.DownloadBytes(ctx, f.srv.URL+"/x.jpg", filepath.Join(f.root, "y.jpg"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, f.media.Hits(), 1)
}
