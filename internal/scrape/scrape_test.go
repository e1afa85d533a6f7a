package scrape

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ads97/Veritas/internal/cache"
	"github.com/Ads97/Veritas/internal/model"
	"github.com/Ads97/Veritas/internal/util"
	"github.com/Ads97/Veritas/internal/worker"
)

var socialHosts = []string{"facebook.com", "twitter.com", "x.com", "instagram.com"}

func TestSkipped(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://www.facebook.com/jane.doe", true},
		{"https://facebook.com/jane.doe", true},
		{"https://x.com/janedoe", true},
		{"https://box.com/file", false},
		{"https://records.example.com/123", false},
		{"not a url", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, skipped(tt.url, socialHosts), tt.url)
	}
}

func TestTruncate(t *testing.T) {
	c := truncate("https://a.test", "  short  ", 10)
	assert.Equal(t, "short", c.Markdown)
	assert.False(t, c.Truncated)

	c = truncate("https://a.test", strings.Repeat("é", 20), 10)
	assert.Equal(t, strings.Repeat("é", 10), c.Markdown)
	assert.True(t, c.Truncated)
}

func TestFirecrawlScraper_Scrape(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v0/scrape", r.URL.Path)
		assert.Equal(t, "Bearer fc-key", r.Header.Get("Authorization"))

		var req firecrawlRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "https://records.example.com/jane", req.URL)
		assert.Equal(t, []string{"markdown"}, req.Formats)

		_, _ = w.Write([]byte(`{"success":true,"data":{"markdown":"# Jane Doe\n\nOwner of record for 123 Main St."}}`))
	}))
	defer server.Close()

	s, err := NewFirecrawlScraper("fc-key", server.URL, server.Client(), Options{MaxChars: 12})
	require.NoError(t, err)

	content := s.Scrape(context.Background(), "https://records.example.com/jane")
	assert.Equal(t, "https://records.example.com/jane", content.Link)
	assert.Equal(t, "# Jane Doe\n\n", content.Markdown[:12])
	assert.True(t, content.Truncated)
}

func TestFirecrawlScraper_SkipsSocialHosts(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	s, err := NewFirecrawlScraper("fc-key", server.URL, server.Client(), Options{SkipHosts: socialHosts})
	require.NoError(t, err)

	content := s.Scrape(context.Background(), "https://www.instagram.com/janedoe")
	assert.True(t, content.Empty())
	assert.Equal(t, "https://www.instagram.com/janedoe", content.Link)
	assert.Zero(t, calls.Load())
}

func TestFirecrawlScraper_FailureYieldsEmptyContent(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	policy := worker.RetryPolicy{MaxRetries: 1, BaseDelay: time.Millisecond, Retryable: model.IsRetryable}
	s, err := NewFirecrawlScraper("fc-key", server.URL, server.Client(), Options{Retry: policy})
	require.NoError(t, err)

	content := s.Scrape(context.Background(), "https://records.example.com/jane")
	assert.True(t, content.Empty())
	assert.Equal(t, int32(2), calls.Load(), "transport errors are retried once")
}

func TestFirecrawlScraper_RecoversAfterRetry(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"success":true,"data":{"markdown":"ok"}}`))
	}))
	defer server.Close()

	policy := worker.RetryPolicy{MaxRetries: 2, BaseDelay: time.Millisecond, Retryable: model.IsRetryable}
	s, err := NewFirecrawlScraper("fc-key", server.URL, server.Client(), Options{Retry: policy})
	require.NoError(t, err)

	content := s.Scrape(context.Background(), "https://records.example.com/jane")
	assert.Equal(t, "ok", content.Markdown)
}

func TestNewFirecrawlScraper_RequiresKey(t *testing.T) {
	_, err := NewFirecrawlScraper("", "", nil, Options{})
	assert.Error(t, err)
}

const listingPage = `<html><head><title>Listing</title><style>.x{color:red}</style></head>
<body>
<nav>Home | Listings | Login</nav>
<article>
  <h1>Jane Doe</h1>
  <p>Owner of <a href="https://records.example.com/p/1">123 Main St</a>. Contact <strong>by phone</strong> only.</p>
  <ul><li>Two bedrooms</li><li>Parking</li></ul>
  <script>track()</script>
</article>
<footer>Copyright</footer>
</body></html>`

func TestToMarkdown(t *testing.T) {
	md, err := ToMarkdown(listingPage)
	require.NoError(t, err)

	assert.Contains(t, md, "# Jane Doe")
	assert.Contains(t, md, "[123 Main St](https://records.example.com/p/1)")
	assert.Contains(t, md, "**by phone**")
	assert.Contains(t, md, "- Two bedrooms")
	assert.Contains(t, md, "- Parking")
	assert.NotContains(t, md, "Login")
	assert.NotContains(t, md, "track()")
	assert.NotContains(t, md, "Copyright")
}

func TestToMarkdown_NoArticleUsesBody(t *testing.T) {
	md, err := ToMarkdown(`<html><body><p>Scam warning for 55 Oak Ave</p></body></html>`)
	require.NoError(t, err)
	assert.Equal(t, "Scam warning for 55 Oak Ave", md)
}

func TestHTMLScraper_Scrape(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/robots.txt":
			_, _ = w.Write([]byte("User-agent: *\nDisallow: /private\n"))
		case "/listing":
			assert.Equal(t, "Veritas/0.1", r.Header.Get("User-Agent"))
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte(listingPage))
		case "/file.pdf":
			w.Header().Set("Content-Type", "application/pdf")
			_, _ = w.Write([]byte("%PDF"))
		default:
			t.Errorf("unexpected request to %s", r.URL.Path)
		}
	}))
	defer server.Close()

	robots := util.NewRobotsChecker("Veritas/0.1", server.Client())
	s := NewHTMLScraper(server.Client(), "Veritas/0.1", 0, robots, Options{})
	ctx := context.Background()

	content := s.Scrape(ctx, server.URL+"/listing")
	assert.Contains(t, content.Markdown, "# Jane Doe")
	assert.False(t, content.Truncated)

	assert.True(t, s.Scrape(ctx, server.URL+"/private/page").Empty(), "robots.txt disallows /private")
	assert.True(t, s.Scrape(ctx, server.URL+"/file.pdf").Empty(), "non-HTML content is dropped")
}

// countingScraper returns fixed content and counts calls
type countingScraper struct {
	content model.ScrapedContent
	calls   int
}

func (c *countingScraper) Scrape(ctx context.Context, rawURL string) model.ScrapedContent {
	c.calls++
	out := c.content
	out.Link = rawURL
	return out
}

func TestCached_Scrape(t *testing.T) {
	ctx := context.Background()
	mem := cache.NewMemoryCache(time.Minute, time.Minute)

	inner := &countingScraper{content: model.ScrapedContent{Markdown: "page"}}
	c := NewCached(inner, mem, time.Minute, nil)

	first := c.Scrape(ctx, "https://a.test/1")
	second := c.Scrape(ctx, "https://a.test/1")
	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.calls)

	empty := &countingScraper{}
	c = NewCached(empty, mem, time.Minute, nil)
	c.Scrape(ctx, "https://a.test/2")
	c.Scrape(ctx, "https://a.test/2")
	assert.Equal(t, 2, empty.calls, "empty content is not cached")
}

func TestNew(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Scrape.APIKey = "fc-key"

	p, err := New(cfg, nil, nil, nil)
	require.NoError(t, err)
	assert.IsType(t, &FirecrawlScraper{}, p)

	cfg.Scrape.Provider = "direct"
	p, err = New(cfg, nil, nil, nil)
	require.NoError(t, err)
	assert.IsType(t, &HTMLScraper{}, p)

	cfg.Scrape.Provider = "carrier-pigeon"
	_, err = New(cfg, nil, nil, nil)
	assert.Error(t, err)
}
