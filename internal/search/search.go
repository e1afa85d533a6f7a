package search

import (
	"context"

	"github.com/Ads97/Veritas/internal/model"
)

// Provider runs a web search for a subject
type Provider interface {
	// Search returns up to maxResults hits, unique by link. An empty slice means no results.
	Search(ctx context.Context, query string, maxResults int) ([]model.SearchHit, error)
}

// dedupe drops repeated and empty links, keeping the first occurrence
func dedupe(hits []model.SearchHit, max int) []model.SearchHit {
	seen := make(map[string]struct{}, len(hits))
	out := make([]model.SearchHit, 0, len(hits))
	for _, h := range hits {
		if h.Link == "" {
			continue
		}
		if _, ok := seen[h.Link]; ok {
			continue
		}
		seen[h.Link] = struct{}{}
		out = append(out, h)
		if max > 0 && len(out) == max {
			break
		}
	}
	return out
}
