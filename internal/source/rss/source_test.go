package rss

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feed_syncer/internal/domain"
)

const rssDocument = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Example News</title>
    <description>All the news</description>
    <link>https://example.com/</link>
    <item>
      <title>First</title>
      <link>https://example.com/posts/1</link>
      <description>first body</description>
      <pubDate>Mon, 02 Jan 2006 15:04:05 +0000</pubDate>
    </item>
    <item>
      <title>Relative</title>
      <link>/posts/2</link>
      <description>second body</description>
    </item>
    <item>
      <title></title>
      <link>posts/3</link>
    </item>
    <item>
      <title>No link at all</title>
    </item>
  </channel>
</rss>`

const atomDocument = `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Atom Example</title>
  <subtitle>An atom feed</subtitle>
  <entry>
    <title>Atom entry</title>
    <link href="https://example.org/a/1"/>
    <id>urn:uuid:1</id>
    <updated>2024-03-01T10:00:00Z</updated>
    <summary>atom summary</summary>
  </entry>
</feed>`

const untitledDocument = `<?xml version="1.0"?>
<rss version="2.0"><channel><title>  </title>
<item><title>x</title><link>https://example.com/x</link></item>
</channel></rss>`

const emptyDocument = `<?xml version="1.0"?>
<rss version="2.0"><channel><title>Empty</title></channel></rss>`

var fixedNow = time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestParser(cfg Config) *Parser {
	if cfg.Timeout == 0 {
		cfg.Timeout = 2 * time.Second
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.InitialBackoff == 0 {
		cfg.InitialBackoff = time.Millisecond
		cfg.MaxBackoff = 5 * time.Millisecond
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	p := New(cfg, logger)
	p.now = func() time.Time { return fixedNow }
	return p
}

func serve(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestParse_RSSNormalizesEntries(t *testing.T) {
	srv := serve(t, http.StatusOK, rssDocument)
	p := newTestParser(Config{})

	doc, err := p.Parse(context.Background(), srv.URL+"/feed.xml")
	require.NoError(t, err)

	assert.Equal(t, "Example News", doc.Title)
	assert.Equal(t, "All the news", doc.Description)
	require.Len(t, doc.Entries, 3)

	assert.Equal(t, "https://example.com/posts/1", doc.Entries[0].Link)
	assert.Equal(t, time.Date(2006, 1, 2, 15, 4, 5, 0, time.UTC), doc.Entries[0].PublishedAt)
	assert.Equal(t, "first body", doc.Entries[0].Content)

	assert.Equal(t, srv.URL+"/posts/2", doc.Entries[1].Link)
	assert.Equal(t, fixedNow, doc.Entries[1].PublishedAt)

	assert.Equal(t, srv.URL+"/posts/3", doc.Entries[2].Link)
	assert.Equal(t, srv.URL+"/posts/3", doc.Entries[2].Title)
	assert.False(t, doc.Fallback)
}

func TestParse_SanitizesHostileContent(t *testing.T) {
	longLink := "https://example.com/" + strings.Repeat("a", 4000)
	body := fmt.Sprintf(`{
  "version": "https://jsonfeed.org/version/1.1",
  "title": "bad\u0000title",
  "description": "desc\u0000ription",
  "items": [
    {"id": "1", "url": "https://example.com/ok", "title": "nul\u0000led", "content_html": "<p>body\u0000</p>"},
    {"id": "2", "url": %q, "title": "too long"}
  ]
}`, longLink)
	srv := serve(t, http.StatusOK, body)
	p := newTestParser(Config{})

	doc, err := p.Parse(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, "badtitle", doc.Title)
	assert.Equal(t, "description", doc.Description)
	require.Len(t, doc.Entries, 1)
	assert.Equal(t, "https://example.com/ok", doc.Entries[0].Link)
	assert.Equal(t, "nulled", doc.Entries[0].Title)
	assert.Equal(t, "<p>body</p>", doc.Entries[0].Content)
}

func TestParse_OnlyOversizedLinksIsFormatError(t *testing.T) {
	body := fmt.Sprintf(`<?xml version="1.0"?>
<rss version="2.0"><channel><title>Long</title>
<item><title>x</title><link>https://example.com/%s</link></item>
</channel></rss>`, strings.Repeat("b", maxLinkLen))
	srv := serve(t, http.StatusOK, body)
	p := newTestParser(Config{})

	_, err := p.Parse(context.Background(), srv.URL)
	assert.ErrorIs(t, err, domain.ErrFormat)
}

func TestSanitizeText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "plain", want: "plain"},
		{in: "  a\x00b  ", want: "ab"},
		{in: "ok\xffbytes", want: "okbytes"},
		{in: "\x00", want: ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeText(tt.in), "%q", tt.in)
	}
}

func TestParse_Atom(t *testing.T) {
	srv := serve(t, http.StatusOK, atomDocument)
	p := newTestParser(Config{})

	doc, err := p.Parse(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, "Atom Example", doc.Title)
	require.Len(t, doc.Entries, 1)
	assert.Equal(t, "https://example.org/a/1", doc.Entries[0].Link)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), doc.Entries[0].PublishedAt)
}

func TestParse_FormatErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "html page", body: "<html><head><title>Not a feed</title></head><body>hi</body></html>"},
		{name: "garbage", body: "{not xml at all"},
		{name: "empty body", body: ""},
		{name: "missing title", body: untitledDocument},
		{name: "zero entries", body: emptyDocument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := serve(t, http.StatusOK, tt.body)
			p := newTestParser(Config{})

			doc, err := p.Parse(context.Background(), srv.URL)
			require.Error(t, err)
			assert.Nil(t, doc)
			assert.ErrorIs(t, err, domain.ErrFormat)
			assert.NotErrorIs(t, err, domain.ErrFetch)
		})
	}
}

func TestParse_ClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	p := newTestParser(Config{MaxAttempts: 3})

	_, err := p.Parse(context.Background(), srv.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrFetch)
	assert.Contains(t, err.Error(), "unexpected status: 404")
	assert.Equal(t, int32(1), calls.Load())
}

func TestParse_ServerErrorIsRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = fmt.Fprint(w, atomDocument)
	}))
	defer srv.Close()

	p := newTestParser(Config{MaxAttempts: 3})

	doc, err := p.Parse(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "Atom Example", doc.Title)
	assert.Equal(t, int32(2), calls.Load())
}

func TestParse_TimeoutIsFetchError(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	p := newTestParser(Config{Timeout: 50 * time.Millisecond})

	_, err := p.Parse(context.Background(), srv.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrFetch)
}

func TestParse_BodyLimit(t *testing.T) {
	srv := serve(t, http.StatusOK, rssDocument)
	p := newTestParser(Config{MaxBodyBytes: 64})

	_, err := p.Parse(context.Background(), srv.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrFetch)
	assert.Contains(t, err.Error(), "exceeds")
}

func TestParse_InvalidURL(t *testing.T) {
	p := newTestParser(Config{})

	for _, raw := range []string{"ftp://example.com/feed", "not a url", "https://"} {
		_, err := p.Parse(context.Background(), raw)
		assert.ErrorIs(t, err, domain.ErrFetch, raw)
	}
}

func TestParse_FallbackEntryForConfiguredHost(t *testing.T) {
	srv := serve(t, http.StatusOK, "<html><body>site without a feed</body></html>")
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)

	p := newTestParser(Config{
		FallbackHosts: []string{strings.ToUpper(u.Hostname())},
		FallbackTitle: "Visit site",
	})

	doc, err := p.Parse(context.Background(), srv.URL+"/rss")
	require.NoError(t, err)

	assert.Equal(t, u.Hostname(), doc.Title)
	require.Len(t, doc.Entries, 1)
	assert.Equal(t, srv.URL+"/", doc.Entries[0].Link)
	assert.Equal(t, "Visit site", doc.Entries[0].Title)
	assert.Equal(t, fixedNow, doc.Entries[0].PublishedAt)
	assert.True(t, doc.Fallback)
}

func TestParse_FallbackDoesNotMaskFetchErrors(t *testing.T) {
	srv := serve(t, http.StatusServiceUnavailable, "")
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)

	p := newTestParser(Config{FallbackHosts: []string{u.Hostname()}})

	_, err = p.Parse(context.Background(), srv.URL)
	assert.ErrorIs(t, err, domain.ErrFetch)
}

func TestResolveLink(t *testing.T) {
	base := &url.URL{Scheme: "https", Host: "blog.example.com", Path: "/"}

	tests := []struct {
		link string
		want string
		ok   bool
	}{
		{link: "https://other.example.com/a", want: "https://other.example.com/a", ok: true},
		{link: "/a/b?c=1", want: "https://blog.example.com/a/b?c=1", ok: true},
		{link: "a/b", want: "https://blog.example.com/a/b", ok: true},
		{link: "//cdn.example.com/x", want: "https://cdn.example.com/x", ok: true},
		{link: "mailto:someone@example.com", ok: false},
		{link: "javascript:alert(1)", ok: false},
		{link: "", ok: false},
	}

	for _, tt := range tests {
		got, ok := resolveLink(base, tt.link)
		assert.Equal(t, tt.ok, ok, tt.link)
		if tt.ok {
			assert.Equal(t, tt.want, got, tt.link)
		}
	}
}
