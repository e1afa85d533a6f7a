// Package market estimates the going rent for a subject's address.
package market

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Ads97/Veritas/internal/llm"
	"github.com/Ads97/Veritas/internal/logger"
	"github.com/Ads97/Veritas/internal/model"
	"github.com/Ads97/Veritas/internal/scrape"
	"github.com/Ads97/Veritas/internal/search"
)

const defaultMaxPages = 3

var rentSchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "reasoning": {"type": "string", "description": "One line on whether the page states a monthly rent."},
    "monthly_rent_usd": {"type": "number", "description": "Monthly rent in USD as a plain number. Use the lowest advertised rent when a range is shown. 0 when the page has no monthly rent."}
  },
  "required": ["reasoning", "monthly_rent_usd"],
  "additionalProperties": false
}`)

const rentSystem = "You are a meticulous data extractor. You read a rental listing page and return only the advertised monthly rent in USD."

const rentRules = `Rules:
- Target the advertised rent for currently available units.
- If a range is shown (e.g. "$2,700-$3,100/mo"), use the LOWEST monthly rent.
- Ignore Zestimates, mortgage payments, HOA fees, price history, purchase or sold prices, deposits and one-off fees.
- Convert weekly rent to monthly by multiplying by 4.345 and daily rent by 30.437, rounded to whole dollars.
- Answer 0 when the page states no monthly rent.`

type rentAnswer struct {
	Reasoning      string  `json:"reasoning"`
	MonthlyRentUSD float64 `json:"monthly_rent_usd"`
}

// Estimator finds comparable listings for an address and reads their rent
type Estimator struct {
	search   search.Provider
	scraper  scrape.Provider
	judge    llm.Provider
	maxPages int
	logger   *zap.Logger
}

// NewEstimator creates an Estimator that inspects at most maxPages listing pages
func NewEstimator(s search.Provider, sc scrape.Provider, judge llm.Provider, maxPages int, log *zap.Logger) *Estimator {
	if maxPages <= 0 {
		maxPages = defaultMaxPages
	}
	return &Estimator{search: s, scraper: sc, judge: judge, maxPages: maxPages, logger: logger.OrNop(log)}
}

// Query is the search query used for an address
func Query(address string) string {
	return strings.TrimSpace(address) + " rent zillow"
}

// Estimate returns the listed rent from the subject and the first non-zero
// market rent found. A search failure is returned; pages that yield no rent are skipped.
func (e *Estimator) Estimate(ctx context.Context, subject model.Subject) (*model.MarketEstimate, error) {
	est := &model.MarketEstimate{
		ListedRent: model.ParseRent(subject.ExtraValue(model.ExtraListedRent)),
	}

	hits, err := e.search.Search(ctx, Query(subject.Address), e.maxPages)
	if err != nil {
		return est, fmt.Errorf("market search: %w", err)
	}

	for i, hit := range hits {
		if i >= e.maxPages {
			break
		}
		if err := ctx.Err(); err != nil {
			return est, err
		}

		rent, err := e.rent(ctx, hit)
		if err != nil {
			e.logger.Debug("market page skipped", zap.String("link", hit.Link), zap.Error(err))
			continue
		}
		if rent > 0 {
			est.MarketRent = rent
			est.Sources = append(est.Sources, hit.Link)
			break
		}
	}

	e.logger.Debug("market estimate",
		zap.String("address", subject.Address),
		zap.Float64("listed", est.ListedRent),
		zap.Float64("market", est.MarketRent),
	)
	return est, nil
}

// rent reads the monthly rent from one listing page. The snippet alone is
// judged when the page cannot be scraped.
func (e *Estimator) rent(ctx context.Context, hit model.SearchHit) (float64, error) {
	content := e.scraper.Scrape(ctx, hit.Link)

	var b strings.Builder
	b.WriteString(rentRules)
	fmt.Fprintf(&b, "\n\nSearch result\nTitle: %s\nURL: %s\nSnippet: %s\n", hit.Title, hit.Link, hit.Snippet)
	b.WriteString("\nPage content\n")
	if content.Empty() {
		b.WriteString("(unavailable)\n")
	} else {
		b.WriteString(content.Markdown)
		b.WriteString("\n")
	}

	resp, err := e.judge.Judge(ctx, llm.Request{
		System:     rentSystem,
		Prompt:     b.String(),
		SchemaName: "monthly_rent",
		Schema:     rentSchema,
		MaxTokens:  256,
	})
	if err != nil {
		return 0, err
	}

	var answer rentAnswer
	if err := llm.Decode(e.judge.Name(), resp, &answer); err != nil {
		return 0, err
	}
	if answer.MonthlyRentUSD < 0 {
		return 0, model.NewSchemaError(e.judge.Name(), "rent", fmt.Errorf("negative rent %v", answer.MonthlyRentUSD))
	}
	return answer.MonthlyRentUSD, nil
}
