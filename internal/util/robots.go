package util

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

const (
	robotsTTL        = time.Hour
	robotsRetryAfter = time.Minute // Server errors are rechecked sooner
	maxRobotsBytes   = 512 << 10
)

// RobotsChecker answers whether a scraper may fetch a page. Rules are fetched
// once per scheme and host and kept for an hour.
type RobotsChecker struct {
	client *http.Client
	agent  string
	now    func() time.Time

	mu    sync.Mutex
	hosts map[string]robotsEntry
}

type robotsEntry struct {
	data    *robotstxt.RobotsData
	expires time.Time
}

// NewRobotsChecker creates a checker that identifies as userAgent. A nil client gets a 10s timeout.
func NewRobotsChecker(userAgent string, client *http.Client) *RobotsChecker {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &RobotsChecker{
		client: client,
		agent:  NormalizeUserAgent(userAgent),
		now:    time.Now,
		hosts:  make(map[string]robotsEntry),
	}
}

// CanFetch reports whether rawURL may be fetched and the host's crawl delay.
// When robots.txt cannot be read the page is allowed and the error returned.
func (r *RobotsChecker) CanFetch(ctx context.Context, rawURL string) (bool, time.Duration, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false, 0, fmt.Errorf("parse URL: %w", err)
	}

	data, err := r.rules(ctx, u)
	if err != nil {
		return true, 0, err
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}

	// Blanket allow/disallow data has no groups
	var delay time.Duration
	if group := data.FindGroup(r.agent); group != nil {
		delay = group.CrawlDelay
	}
	return data.TestAgent(path, r.agent), delay, nil
}

// IsAllowed drops the crawl delay and error from CanFetch. A nil checker allows everything.
func (r *RobotsChecker) IsAllowed(ctx context.Context, rawURL string) bool {
	if r == nil {
		return true
	}
	allowed, _, _ := r.CanFetch(ctx, rawURL)
	return allowed
}

// Clear forgets every host's rules
func (r *RobotsChecker) Clear() {
	r.mu.Lock()
	r.hosts = make(map[string]robotsEntry)
	r.mu.Unlock()
}

func (r *RobotsChecker) rules(ctx context.Context, u *url.URL) (*robotstxt.RobotsData, error) {
	origin := u.Scheme + "://" + u.Host

	r.mu.Lock()
	entry, ok := r.hosts[origin]
	r.mu.Unlock()
	if ok && r.now().Before(entry.expires) {
		return entry.data, nil
	}

	status, body, err := r.fetch(ctx, origin+"/robots.txt")
	if err != nil {
		return nil, err
	}

	// 4xx allows everything, 5xx disallows everything
	data, err := robotstxt.FromStatusAndBytes(status, body)
	if err != nil {
		return nil, fmt.Errorf("parse robots.txt for %s: %w", u.Host, err)
	}

	ttl := robotsTTL
	if status >= 500 {
		ttl = robotsRetryAfter
	}
	entry = robotsEntry{data: data, expires: r.now().Add(ttl)}

	r.mu.Lock()
	r.hosts[origin] = entry
	r.mu.Unlock()
	return entry.data, nil
}

func (r *RobotsChecker) fetch(ctx context.Context, robotsURL string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", r.agent)

	resp, err := r.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("fetch robots.txt: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsBytes))
	if err != nil {
		return 0, nil, fmt.Errorf("read robots.txt: %w", err)
	}
	return resp.StatusCode, body, nil
}

// NormalizeUserAgent reduces "Veritas/0.1 (+url)" to the product token "Veritas"
func NormalizeUserAgent(ua string) string {
	fields := strings.Fields(ua)
	if len(fields) == 0 {
		return ""
	}
	product, _, _ := strings.Cut(fields[0], "/")
	return product
}
