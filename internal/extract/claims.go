// Package extract turns one search hit and its scraped page into typed claims.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Ads97/Veritas/internal/llm"
	"github.com/Ads97/Veritas/internal/logger"
	"github.com/Ads97/Veritas/internal/metrics"
	"github.com/Ads97/Veritas/internal/model"
)

const (
	// Note values recorded on Unknown claims
	NoteNoContent    = "no content to judge"
	NoteJudgeFailed  = "judge failed"
	NoteSchemaFailed = "judge returned non-conformant output"

	schemaName = "claims"
)

// questions asks one thing per dimension. "supports" always favors the subject.
var questions = map[model.Dimension]string{
	model.DimensionIdentityMatch: "Do the name and the address on the page match the landlord's name and address? " +
		"supports = they match, contradicts = the page ties the name to a different person or address.",
	model.DimensionOwnershipProof: "Does the page prove that the landlord owns the address? " +
		"supports = it shows ownership, contradicts = it shows someone else owns it.",
	model.DimensionFraudReport: "Are there scam or fraud reports about the landlord? " +
		"contradicts = reports exist, supports = the page vouches for the landlord with no reports.",
	model.DimensionLegalMention: "Does the page contain legal or news mentions (evictions, lawsuits, scams) about the landlord? " +
		"contradicts = adverse mentions, supports = only neutral or positive coverage.",
	model.DimensionPresenceLiveness: "Does the page indicate the landlord is alive and currently at the address? " +
		"contradicts = deceased or no longer at the address, supports = currently there.",
}

const systemPrompt = "You are a rental fraud analyst. You judge one web page at a time as evidence about a prospective landlord. " +
	"Answer every question with supports, contradicts or unknown. Use unknown whenever the page does not clearly answer the question. " +
	"Never infer anything from the absence of information."

var claimsSchema = buildSchema()

func buildSchema() json.RawMessage {
	props := make(map[string]any, len(model.Dimensions))
	required := make([]string, 0, len(model.Dimensions))
	for _, d := range model.Dimensions {
		props[string(d)] = map[string]any{
			"type":        "string",
			"enum":        []string{string(model.PolaritySupports), string(model.PolarityContradicts), string(model.PolarityUnknown)},
			"description": questions[d],
		}
		required = append(required, string(d))
	}
	schema, err := json.Marshal(map[string]any{
		"type":                 "object",
		"properties":           props,
		"required":             required,
		"additionalProperties": false,
	})
	if err != nil {
		panic(fmt.Sprintf("claims schema: %v", err))
	}
	return schema
}

// answers is the judge's structured output. Polarity rejects values outside the enum.
type answers map[model.Dimension]model.Polarity

// Extractor asks the judge the per-dimension questions for a source
type Extractor struct {
	judge      llm.Provider
	classifier *Classifier
	maxChars   int
	logger     *zap.Logger
}

// NewExtractor creates a claim extractor. maxChars bounds the page excerpt in the prompt.
func NewExtractor(judge llm.Provider, maxChars int, log *zap.Logger) *Extractor {
	if maxChars <= 0 {
		maxChars = 3000
	}
	return &Extractor{
		judge:      judge,
		classifier: NewClassifier(),
		maxChars:   maxChars,
		logger:     logger.OrNop(log),
	}
}

// Extract returns exactly one claim per dimension, in model.Dimensions order.
// It never fails: judge errors and malformed answers yield Unknown claims.
func (e *Extractor) Extract(ctx context.Context, subject model.Subject, hit model.SearchHit, content model.ScrapedContent) []model.Claim {
	if strings.TrimSpace(hit.Title) == "" && strings.TrimSpace(hit.Snippet) == "" && content.Empty() {
		claims := model.UnknownClaims(hit, NoteNoContent)
		metrics.ObserveClaims(claims)
		return claims
	}

	kind := e.classifier.Classify(hit.Link)
	resp, err := e.judge.Judge(ctx, llm.Request{
		System:     systemPrompt,
		Prompt:     e.prompt(subject, hit, content, kind),
		SchemaName: schemaName,
		Schema:     claimsSchema,
	})
	if err != nil {
		e.logger.Warn("claim extraction failed",
			zap.String("link", hit.Link),
			zap.String("provider", e.judge.Name()),
			zap.Error(err),
		)
		claims := model.UnknownClaims(hit, NoteJudgeFailed)
		metrics.ObserveClaims(claims)
		return claims
	}

	var got answers
	if err := llm.Decode(e.judge.Name(), resp, &got); err != nil || !complete(got) {
		if err == nil {
			err = fmt.Errorf("missing dimensions in %s", resp.Content)
		}
		e.logger.Warn("claim extraction returned malformed output",
			zap.String("link", hit.Link),
			zap.String("provider", e.judge.Name()),
			zap.Error(err),
		)
		claims := model.UnknownClaims(hit, NoteSchemaFailed)
		metrics.ObserveClaims(claims)
		return claims
	}

	claims := make([]model.Claim, 0, len(model.Dimensions))
	for _, d := range model.Dimensions {
		c := model.Claim{Dimension: d, Polarity: got[d], Source: hit}
		if c.Polarity == model.PolarityUnknown && content.Empty() {
			c.Note = NoteNoContent
		}
		claims = append(claims, c)
	}

	e.logger.Debug("claims extracted",
		zap.String("link", hit.Link),
		zap.String("source_kind", string(kind)),
		zap.Int("tokens", resp.TokensUsed),
	)
	metrics.ObserveClaims(claims)
	return claims
}

// complete reports whether every dimension was answered and nothing else was
func complete(a answers) bool {
	if len(a) != len(model.Dimensions) {
		return false
	}
	for _, d := range model.Dimensions {
		if _, ok := a[d]; !ok {
			return false
		}
	}
	return true
}

func (e *Extractor) prompt(subject model.Subject, hit model.SearchHit, content model.ScrapedContent, kind SourceKind) string {
	var b strings.Builder

	b.WriteString("Prospective landlord\n")
	fmt.Fprintf(&b, "Name: %s\n", strings.TrimSpace(subject.Name))
	fmt.Fprintf(&b, "Address: %s\n", strings.TrimSpace(subject.Address))
	if subject.ListingURL != "" {
		fmt.Fprintf(&b, "Listing: %s\n", subject.ListingURL)
	}
	if subject.OtherDetails != "" {
		fmt.Fprintf(&b, "Other details: %s\n", subject.OtherDetails)
	}

	b.WriteString("\nSearch result\n")
	fmt.Fprintf(&b, "Title: %s\n", hit.Title)
	fmt.Fprintf(&b, "URL: %s\n", hit.Link)
	fmt.Fprintf(&b, "Snippet: %s\n", hit.Snippet)
	fmt.Fprintf(&b, "Source type: %s\n", kind.hint())

	b.WriteString("\nPage content\n")
	if content.Empty() {
		b.WriteString("(unavailable; judge on the title and snippet only)\n")
	} else {
		md := content.Markdown
		if runes := []rune(md); len(runes) > e.maxChars {
			md = string(runes[:e.maxChars])
		}
		b.WriteString(md)
		if content.Truncated || len([]rune(content.Markdown)) > e.maxChars {
			b.WriteString("\n...(truncated)")
		}
		b.WriteString("\n")
	}

	b.WriteString("\nQuestions\n")
	for _, d := range model.Dimensions {
		fmt.Fprintf(&b, "- %s: %s\n", d, questions[d])
	}
	return b.String()
}
