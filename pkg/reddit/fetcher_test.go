package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "redditsaver/pkg/errors"
	"redditsaver/pkg/logger"
	"redditsaver/pkg/ratelimit"
)

// recordingGate records the order of Wait and Update calls
type recordingGate struct {
	mu      sync.Mutex
	calls   []string
	headers []http.Header
	waitErr error
}

func (g *recordingGate) Wait(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, "wait")
	return g.waitErr
}

func (g *recordingGate) Update(h http.Header) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, "update")
	g.headers = append(g.headers, h)
}

type page struct {
	after    string
	children []string // raw child JSON
}

// savedServer serves pages keyed by the after cursor and records every query
type savedServer struct {
	t        *testing.T
	pages    map[string]page
	mu       sync.Mutex
	requests []map[string]string
	status   int
	body     string
}

func (s *savedServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.requests = append(s.requests, map[string]string{
		"path":  r.URL.Path,
		"limit": r.URL.Query().Get("limit"),
		"after": r.URL.Query().Get("after"),
	})
	s.mu.Unlock()

	w.Header().Set("X-Ratelimit-Remaining", "42.0")
	w.Header().Set("X-Ratelimit-Reset", "100")

	if s.status != 0 {
		w.WriteHeader(s.status)
		_, _ = w.Write([]byte(s.body))
		return
	}
	if s.body != "" {
		_, _ = w.Write([]byte(s.body))
		return
	}

	p, ok := s.pages[r.URL.Query().Get("after")]
	if !ok {
		s.t.Errorf("unexpected cursor %q", r.URL.Query().Get("after"))
		w.WriteHeader(http.StatusNotFound)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	children := p.children
	if limit > 0 && len(children) > limit {
		children = children[:limit]
	}
	raw := make([]json.RawMessage, len(children))
	for i, c := range children {
		raw[i] = json.RawMessage(c)
	}

	var after interface{}
	if p.after != "" {
		after = p.after
	}
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"kind": "Listing",
		"data": map[string]interface{}{"after": after, "before": nil, "children": raw},
	})
}

func (s *savedServer) Requests() []map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]map[string]string(nil), s.requests...)
}

func link(id, url string) string {
	return fmt.Sprintf(`{"kind":"t3","data":{"id":%q,"title":"post %s","subreddit":"pics","url":%q,"is_self":false}}`, id, id, url)
}

func comment(id string) string {
	return fmt.Sprintf(`{"kind":"t1","data":{"id":%q,"body":"hi"}}`, id)
}

func newTestFetcher(t *testing.T, srv *httptest.Server, gate QuotaGate, opts FetcherOptions) *Fetcher {
	t.Helper()
	c := NewClient(5*time.Second, "", logger.NewNopLogger())
	c.SetAccessToken("tok")
	opts.BaseURL = srv.URL
	if opts.Username == "" {
		opts.Username = "alice"
	}
	return NewFetcher(c, gate, opts, logger.NewTestLogger())
}

func TestFetchSavedZeroLimitMakesNoCalls(t *testing.T) {
	handler := &savedServer{t: t}
	srv := httptest.NewServer(handler)
	defer srv.Close()
	gate := &recordingGate{}

	records, err := newTestFetcher(t, srv, gate, FetcherOptions{Limit: 0}).FetchSaved(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
	assert.Empty(t, handler.Requests())
	assert.Empty(t, gate.calls)
}

func TestFetchSavedPaginatesWithCursor(t *testing.T) {
	handler := &savedServer{t: t, pages: map[string]page{
		"": {after: "abc123", children: []string{
			link("p1", "https://i.redd.it/1.jpg"),
			link("p2", "https://i.redd.it/2.png"),
		}},
		"abc123": {after: "def456", children: []string{
			link("p3", "https://i.redd.it/3.gif"),
			link("p4", "https://i.redd.it/4.gif"),
		}},
	}}
	srv := httptest.NewServer(handler)
	defer srv.Close()
	gate := &recordingGate{}

	records, err := newTestFetcher(t, srv, gate, FetcherOptions{PageSize: 2, Limit: 3}).FetchSaved(context.Background())
	require.NoError(t, err)

	require.Len(t, records, 3)
	assert.Equal(t, "p1", records[0].ID)
	assert.Equal(t, "p2", records[1].ID)
	assert.Equal(t, "p3", records[2].ID)

	reqs := handler.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, "/user/alice/saved", reqs[0]["path"])
	assert.Equal(t, "2", reqs[0]["limit"])
	assert.Equal(t, "", reqs[0]["after"])
	assert.Equal(t, "1", reqs[1]["limit"], "second request asks only for what remains")
	assert.Equal(t, "abc123", reqs[1]["after"])

	assert.Equal(t, []string{"wait", "update", "wait", "update"}, gate.calls)
	assert.Equal(t, "42.0", gate.headers[0].Get("X-Ratelimit-Remaining"))
}

func TestFetchSavedStopsAtLimitWithinPage(t *testing.T) {
	body := fmt.Sprintf(`{"kind":"Listing","data":{"after":"more","children":[%s,%s,%s]}}`,
		link("a", "https://i.redd.it/a.jpg"), link("b", "https://i.redd.it/b.jpg"), link("c", "https://i.redd.it/c.jpg"))
	handler := &savedServer{t: t, body: body}
	srv := httptest.NewServer(handler)
	defer srv.Close()

	records, err := newTestFetcher(t, srv, &recordingGate{}, FetcherOptions{PageSize: 5, Limit: 2}).FetchSaved(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "b", records[1].ID)
	assert.Len(t, handler.Requests(), 1)
}

func TestFetchSavedKeepsOversizedPage(t *testing.T) {
	handler := &savedServer{t: t, pages: map[string]page{
		"": {after: "t3_c", children: []string{
			link("a", "https://i.redd.it/a.jpg"),
			link("b", "https://i.redd.it/b.jpg"),
			link("c", "https://i.redd.it/c.jpg"),
		}},
		"t3_c": {after: "", children: []string{link("d", "https://i.redd.it/d.jpg")}},
	}}
	srv := httptest.NewServer(handler)
	defer srv.Close()

	records, err := newTestFetcher(t, srv, &recordingGate{}, FetcherOptions{PageSize: 2, Limit: 4}).FetchSaved(context.Background())
	require.NoError(t, err)

	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"a", "b", "c", "d"}, ids)

	reqs := handler.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, "2", reqs[0]["limit"])
	assert.Equal(t, "1", reqs[1]["limit"])
	assert.Equal(t, "t3_c", reqs[1]["after"])
}

func TestFetchSavedCommentsCountTowardLimit(t *testing.T) {
	handler := &savedServer{t: t, pages: map[string]page{
		"": {after: "next", children: []string{comment("c1"), comment("c2")}},
	}}
	srv := httptest.NewServer(handler)
	defer srv.Close()

	records, err := newTestFetcher(t, srv, &recordingGate{}, FetcherOptions{PageSize: 2, Limit: 2}).FetchSaved(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Len(t, handler.Requests(), 1)
}

func TestFetchSavedSkipsMalformedLinks(t *testing.T) {
	handler := &savedServer{t: t, pages: map[string]page{
		"": {after: "", children: []string{
			`{"kind":"t3","data":{"id":"bad","url":"x","is_self":false}}`,
			link("good", "https://i.redd.it/g.jpg"),
			`{"kind":"more","data":{}}`,
		}},
	}}
	srv := httptest.NewServer(handler)
	defer srv.Close()

	tl := logger.NewTestLogger()
	c := NewClient(5*time.Second, "", logger.NewNopLogger())
	f := NewFetcher(c, &recordingGate{}, FetcherOptions{BaseURL: srv.URL, Username: "alice", PageSize: 3, Limit: 3}, tl)

	records, err := f.FetchSaved(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "good", records[0].ID)

	warns := tl.GetMessagesByLevel("WARN")
	require.Len(t, warns, 1)
	assert.True(t, apperrors.IsType(warns[0].Error, apperrors.ErrorTypeRecordShape))
}

func TestFetchSavedExhaustedPolicy(t *testing.T) {
	pages := map[string]page{
		"":   {after: "p2", children: []string{link("a", "https://i.redd.it/a.jpg")}},
		"p2": {after: "", children: []string{link("b", "https://i.redd.it/b.jpg")}},
	}

	t.Run("stop", func(t *testing.T) {
		srv := httptest.NewServer(&savedServer{t: t, pages: pages})
		defer srv.Close()

		records, err := newTestFetcher(t, srv, &recordingGate{}, FetcherOptions{PageSize: 1, Limit: 10}).FetchSaved(context.Background())
		require.NoError(t, err)
		assert.Len(t, records, 2)
	})

	t.Run("error", func(t *testing.T) {
		srv := httptest.NewServer(&savedServer{t: t, pages: pages})
		defer srv.Close()

		opts := FetcherOptions{PageSize: 1, Limit: 10, Exhausted: ExhaustedError}
		records, err := newTestFetcher(t, srv, &recordingGate{}, opts).FetchSaved(context.Background())
		assert.ErrorIs(t, err, apperrors.ErrListingExhausted)
		assert.Len(t, records, 2)
	})
}

func TestFetchSavedEmptyPageEndsLoop(t *testing.T) {
	handler := &savedServer{t: t, pages: map[string]page{
		"": {after: "loop", children: nil},
	}}
	srv := httptest.NewServer(handler)
	defer srv.Close()

	records, err := newTestFetcher(t, srv, &recordingGate{}, FetcherOptions{Limit: 5}).FetchSaved(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Len(t, handler.Requests(), 1)
}

func TestFetchSavedStatusErrorStillUpdatesLimiter(t *testing.T) {
	srv := httptest.NewServer(&savedServer{t: t, status: http.StatusForbidden, body: `{"message":"Forbidden"}`})
	defer srv.Close()

	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	q := ratelimit.NewQuotaLimiter(ratelimit.WithClock(func() time.Time { return clock }))

	records, err := newTestFetcher(t, srv, q, FetcherOptions{Limit: 5}).FetchSaved(context.Background())
	require.Error(t, err)
	assert.Nil(t, records)
	assert.Equal(t, http.StatusForbidden, apperrors.StatusCode(err))

	remaining, reset := q.Snapshot()
	assert.Equal(t, 42, remaining)
	assert.Equal(t, clock.Add(100*time.Second), reset)
}

func TestFetchSavedMalformedEnvelope(t *testing.T) {
	srv := httptest.NewServer(&savedServer{t: t, body: `not json`})
	defer srv.Close()
	gate := &recordingGate{}

	_, err := newTestFetcher(t, srv, gate, FetcherOptions{Limit: 5}).FetchSaved(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeEnvelopeParse))
	assert.Equal(t, []string{"wait", "update"}, gate.calls)
}

func TestFetchSavedWaitErrorAborts(t *testing.T) {
	handler := &savedServer{t: t}
	srv := httptest.NewServer(handler)
	defer srv.Close()

	gate := &recordingGate{waitErr: context.Canceled}
	_, err := newTestFetcher(t, srv, gate, FetcherOptions{Limit: 5}).FetchSaved(context.Background())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, handler.Requests())
}

func TestNewFetcherClampsPageSize(t *testing.T) {
	f := NewFetcher(nil, &recordingGate{}, FetcherOptions{PageSize: 500}, logger.NewNopLogger())
	assert.Equal(t, MaxPageSize, f.opts.PageSize)
	assert.Equal(t, ExhaustedStop, f.opts.Exhausted)
	assert.Equal(t, BaseURL, f.opts.BaseURL)
}

func TestParseExhaustedPolicy(t *testing.T) {
	assert.Equal(t, ExhaustedError, ParseExhaustedPolicy("error"))
	assert.Equal(t, ExhaustedError, ParseExhaustedPolicy(" ERROR "))
	assert.Equal(t, ExhaustedStop, ParseExhaustedPolicy("stop"))
	assert.Equal(t, ExhaustedStop, ParseExhaustedPolicy(""))
}
