package scrape

import (
	"bytes"
	"context"
	"encoding/json"
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
	"github.com/Ads97/Veritas/internal/worker"
)

const (
	firecrawlProvider = "firecrawl"
	firecrawlBaseURL  = "https://api.firecrawl.dev"
	maxResponseSize   = 4 << 20
)

// FirecrawlScraper renders pages to markdown through the Firecrawl API
type FirecrawlScraper struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	opts       Options
	logger     *zap.Logger
}

type firecrawlRequest struct {
	URL     string   `json:"url"`
	Formats []string `json:"formats"`
}

type firecrawlResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Data    struct {
		Markdown string `json:"markdown"`
		Content  string `json:"content"`
	} `json:"data"`
}

// NewFirecrawlScraper creates a Firecrawl client
func NewFirecrawlScraper(apiKey, baseURL string, client *http.Client, opts Options) (*FirecrawlScraper, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Firecrawl API key is required")
	}
	if baseURL == "" {
		baseURL = firecrawlBaseURL
	}
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &FirecrawlScraper{
		apiKey:     apiKey,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: client,
		opts:       opts,
		logger:     logger.OrNop(opts.Logger),
	}, nil
}

// Scrape implements Provider
func (f *FirecrawlScraper) Scrape(ctx context.Context, rawURL string) model.ScrapedContent {
	if skipped(rawURL, f.opts.SkipHosts) {
		f.logger.Debug("scrape skipped", zap.String("url", rawURL))
		return model.EmptyContent(rawURL)
	}

	markdown, err := worker.Do(ctx, f.opts.Retry, func(ctx context.Context) (string, error) {
		start := time.Now()
		md, err := f.scrape(ctx, rawURL)
		metrics.ObserveProvider(firecrawlProvider, "scrape", start, err)
		return md, err
	})
	if err != nil {
		f.logger.Warn("scrape failed", zap.String("provider", firecrawlProvider), zap.String("url", rawURL), zap.Error(err))
		return model.EmptyContent(rawURL)
	}

	return truncate(rawURL, markdown, f.opts.maxChars())
}

func (f *FirecrawlScraper) scrape(ctx context.Context, rawURL string) (string, error) {
	body, err := json.Marshal(firecrawlRequest{URL: rawURL, Formats: []string{"markdown"}})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.baseURL+"/v0/scrape", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+f.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", model.NewTransportError(firecrawlProvider, "scrape", 0, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", model.NewTransportError(firecrawlProvider, "scrape", resp.StatusCode, fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return "", model.NewTransportError(firecrawlProvider, "scrape", resp.StatusCode, errors.New(strings.TrimSpace(string(respBody))))
	}

	var parsed firecrawlResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", model.NewSchemaError(firecrawlProvider, "scrape", fmt.Errorf("unmarshal response: %w", err))
	}
	if parsed.Error != "" {
		return "", model.NewSchemaError(firecrawlProvider, "scrape", errors.New(parsed.Error))
	}

	if parsed.Data.Markdown != "" {
		return parsed.Data.Markdown, nil
	}
	return parsed.Data.Content, nil
}
