package scrape

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Ads97/Veritas/internal/logger"
	"github.com/Ads97/Veritas/internal/metrics"
	"github.com/Ads97/Veritas/internal/model"
	"github.com/Ads97/Veritas/internal/util"
	"github.com/Ads97/Veritas/internal/worker"
)

const (
	directProvider  = "direct"
	defaultMaxBytes = 2_000_000
)

// errDisallowed marks a page excluded by robots.txt
var errDisallowed = errors.New("disallowed by robots.txt")

// HTMLScraper fetches pages itself and converts the HTML to markdown
type HTMLScraper struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	robots     *util.RobotsChecker
	opts       Options
	logger     *zap.Logger
}

// NewHTMLScraper creates a direct scraper. A nil robots checker fetches every page.
func NewHTMLScraper(client *http.Client, userAgent string, maxBytes int64, robots *util.RobotsChecker, opts Options) *HTMLScraper {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	return &HTMLScraper{
		httpClient: client,
		userAgent:  userAgent,
		maxBytes:   maxBytes,
		robots:     robots,
		opts:       opts,
		logger:     logger.OrNop(opts.Logger),
	}
}

// Scrape implements Provider
func (h *HTMLScraper) Scrape(ctx context.Context, rawURL string) model.ScrapedContent {
	if skipped(rawURL, h.opts.SkipHosts) {
		h.logger.Debug("scrape skipped", zap.String("url", rawURL))
		return model.EmptyContent(rawURL)
	}
	if !h.robots.IsAllowed(ctx, rawURL) {
		h.logger.Debug("scrape skipped", zap.String("url", rawURL), zap.Error(errDisallowed))
		return model.EmptyContent(rawURL)
	}

	page, err := worker.Do(ctx, h.opts.Retry, func(ctx context.Context) (string, error) {
		start := time.Now()
		body, err := h.fetch(ctx, rawURL)
		metrics.ObserveProvider(directProvider, "scrape", start, err)
		return body, err
	})
	if err != nil {
		h.logger.Warn("scrape failed", zap.String("provider", directProvider), zap.String("url", rawURL), zap.Error(err))
		return model.EmptyContent(rawURL)
	}

	markdown, err := ToMarkdown(page)
	if err != nil {
		h.logger.Warn("html conversion failed", zap.String("url", rawURL), zap.Error(err))
		return model.EmptyContent(rawURL)
	}
	return truncate(rawURL, markdown, h.opts.maxChars())
}

// fetch retrieves the HTML body of rawURL
func (h *HTMLScraper) fetch(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	if h.userAgent != "" {
		req.Header.Set("User-Agent", h.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return "", model.NewTransportError(directProvider, "scrape", 0, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", model.NewTransportError(directProvider, "scrape", resp.StatusCode, fmt.Errorf("unexpected status: %s", resp.Status))
	}

	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	if contentType != "" && !strings.Contains(contentType, "html") && !strings.HasPrefix(contentType, "text/") {
		return "", model.NewSchemaError(directProvider, "scrape", fmt.Errorf("unsupported content type %q", contentType))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, h.maxBytes))
	if err != nil {
		return "", model.NewTransportError(directProvider, "scrape", resp.StatusCode, fmt.Errorf("read body: %w", err))
	}
	return string(body), nil
}
