package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const newsPageHTML = `<!DOCTYPE html>
<html><body>
  <div class="feed">
    <a class="feed-post-link" href="/news/acme-recall">Acme recall announced</a>
    <a class="feed-post-link" href="https://other.example.com/acme-award">Acme wins award</a>
    <a class="feed-post-link" href="/news/acme-recall">Acme recall announced</a>
    <a class="feed-post-link" href="/news/empty"> </a>
    <div class="feed-card"><a href="/news/wrapped">Wrapped headline</a></div>
  </div>
</body></html>`

const rssXML = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Example Feed</title>
    <item>
      <title>Acme recall widens</title>
      <link>https://example.com/news/recall-widens</link>
      <pubDate>Mon, 24 Aug 2026 10:30:00 GMT</pubDate>
    </item>
    <item>
      <title>Acme opens new plant</title>
      <link>https://example.com/news/new-plant</link>
    </item>
    <item>
      <title></title>
      <link>https://example.com/news/untitled</link>
    </item>
  </channel>
</rss>`

func serve(t *testing.T, contentType, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentType)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNewsPageFetch(t *testing.T) {
	srv := serve(t, "text/html", newsPageHTML)
	src := NewNewsPageSource("portal", srv.URL, "a.feed-post-link")

	items, err := src.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2, "duplicates and empty titles are dropped")

	assert.Equal(t, "Acme recall announced", items[0].Title)
	assert.Equal(t, srv.URL+"/news/acme-recall", items[0].URL, "relative links resolve against the page")
	assert.Equal(t, "portal", items[0].Source)
	assert.WithinDuration(t, time.Now().UTC(), items[0].PublishedAt, time.Minute)

	assert.Equal(t, "https://other.example.com/acme-award", items[1].URL, "absolute links pass through")
}

func TestNewsPageWrapperSelector(t *testing.T) {
	srv := serve(t, "text/html", newsPageHTML)
	src := NewNewsPageSource("portal", srv.URL, "div.feed-card")

	items, err := src.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Wrapped headline", items[0].Title)
	assert.Equal(t, srv.URL+"/news/wrapped", items[0].URL)
}

func TestNewsPageServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	src := NewNewsPageSource("portal", srv.URL, "a.feed-post-link")
	_, err := src.Fetch(context.Background())
	assert.Error(t, err)
}

func TestRSSFetch(t *testing.T) {
	srv := serve(t, "application/rss+xml", rssXML)
	src := NewRSSSource("wire", srv.URL)

	items, err := src.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2, "the untitled entry is dropped")

	assert.Equal(t, "Acme recall widens", items[0].Title)
	assert.Equal(t, "https://example.com/news/recall-widens", items[0].URL)
	assert.Equal(t, time.Date(2026, 8, 24, 10, 30, 0, 0, time.UTC), items[0].PublishedAt)

	// Entries without a pubDate fall back to the fetch time
	assert.WithinDuration(t, time.Now().UTC(), items[1].PublishedAt, time.Minute)
}

func TestRSSUnreachable(t *testing.T) {
	src := NewRSSSource("wire", "http://127.0.0.1:1/feed.xml")
	_, err := src.Fetch(context.Background())
	assert.Error(t, err)
}

func TestBuild(t *testing.T) {
	srcs, err := Build(
		[]string{"portal|https://portal.example.com|a.feed-post-link"},
		[]string{"wire|https://wire.example.com/rss"},
	)
	require.NoError(t, err)
	require.Len(t, srcs, 2)
	assert.Equal(t, "portal", srcs[0].Name())
	assert.Equal(t, "wire", srcs[1].Name())
}

func TestBuildRejectsMalformedEntries(t *testing.T) {
	_, err := Build([]string{"portal|https://portal.example.com"}, nil)
	assert.Error(t, err)

	_, err = Build(nil, []string{"just-a-name"})
	assert.Error(t, err)
}
