package scrape

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/Ads97/Veritas/internal/model"
	"github.com/Ads97/Veritas/internal/util"
	"github.com/Ads97/Veritas/internal/worker"
)

const defaultMaxChars = 3000

// Provider turns a search hit's page into markdown.
// Scrape never fails: any error yields model.EmptyContent(url).
type Provider interface {
	Scrape(ctx context.Context, rawURL string) model.ScrapedContent
}

// Options are shared by every scraper
type Options struct {
	MaxChars  int
	SkipHosts []string
	Retry     worker.RetryPolicy
	Logger    *zap.Logger
}

func (o Options) maxChars() int {
	if o.MaxChars <= 0 {
		return defaultMaxChars
	}
	return o.MaxChars
}

// New builds the scraper selected by cfg.Scrape.Provider
func New(cfg model.Config, client *http.Client, limiter *worker.Limiter, log *zap.Logger) (Provider, error) {
	opts := Options{
		MaxChars:  cfg.Scrape.MaxChars,
		SkipHosts: cfg.Scrape.SkipHosts,
		Retry:     worker.PolicyFromConfig(cfg.Concurrency),
		Logger:    log,
	}

	switch strings.ToLower(cfg.Scrape.Provider) {
	case "firecrawl", "":
		return NewFirecrawlScraper(cfg.Scrape.APIKey, cfg.Scrape.BaseURL, worker.LimitClient(client, limiter), opts)
	case "direct", "html":
		var robots *util.RobotsChecker
		if cfg.Scrape.RespectRobots {
			robots = util.NewRobotsChecker(cfg.HTTP.UserAgent, client)
		}
		return NewHTMLScraper(worker.LimitClient(client, limiter), cfg.HTTP.UserAgent, cfg.HTTP.MaxBodyBytes, robots, opts), nil
	default:
		return nil, fmt.Errorf("unknown scrape provider: %s", cfg.Scrape.Provider)
	}
}

// skipped reports whether rawURL belongs to a host that is never scraped.
// Subdomains match ("www.facebook.com" is skipped by "facebook.com").
func skipped(rawURL string, hosts []string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Hostname() == "" {
		return true
	}
	host := strings.ToLower(parsed.Hostname())
	for _, h := range hosts {
		h = strings.ToLower(strings.TrimSpace(h))
		if h == "" {
			continue
		}
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

// truncate caps markdown at max runes and flags the cut
func truncate(link, markdown string, max int) model.ScrapedContent {
	markdown = strings.TrimSpace(markdown)
	if utf8.RuneCountInString(markdown) <= max {
		return model.ScrapedContent{Link: link, Markdown: markdown}
	}
	runes := []rune(markdown)
	return model.ScrapedContent{
		Link:      link,
		Markdown:  string(runes[:max]),
		Truncated: true,
	}
}
