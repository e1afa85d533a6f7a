// Package aggregate folds per-source claims into a green/red evidence bundle.
package aggregate

import (
	"strings"

	"github.com/Ads97/Veritas/internal/model"
)

type bucketKey struct {
	dim  model.Dimension
	link string
}

// Aggregator folds claims one at a time. The resulting bundle's content does
// not depend on the order claims are added; only insertion order does.
type Aggregator struct {
	listing         string
	discountListing bool
	bundle          model.EvidenceBundle
	green           map[bucketKey]bool
	red             map[bucketKey]bool
}

// Option configures an Aggregator
type Option func(*Aggregator)

// WithListingDiscount drops support that comes from the subject's own listing page
func WithListingDiscount(enabled bool) Option {
	return func(a *Aggregator) { a.discountListing = enabled }
}

// New creates an empty Aggregator for subject
func New(subject model.Subject, opts ...Option) *Aggregator {
	a := &Aggregator{
		listing: normalizeLink(subject.ListingURL),
		bundle:  model.NewEvidenceBundle(),
		green:   make(map[bucketKey]bool),
		red:     make(map[bucketKey]bool),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Add folds one claim and reports whether the bundle changed.
//
// Supports goes to green, Contradicts to red, Unknown is dropped. A link counts
// once per dimension and bucket. When one link both supports and contradicts a
// dimension, the contradiction wins. With WithListingDiscount the subject's
// own listing page cannot corroborate the subject.
func (a *Aggregator) Add(c model.Claim) bool {
	if !c.Dimension.Valid() || c.Source.Link == "" {
		return false
	}
	key := bucketKey{dim: c.Dimension, link: normalizeLink(c.Source.Link)}

	switch c.Polarity {
	case model.PolarityContradicts:
		if a.red[key] {
			return canonical(a.bundle.RedFlags[c.Dimension], key.link, c.Source)
		}
		a.red[key] = true
		if a.green[key] {
			delete(a.green, key)
			a.bundle.GreenFlags[c.Dimension] = removeLink(a.bundle.GreenFlags[c.Dimension], key.link)
			if len(a.bundle.GreenFlags[c.Dimension]) == 0 {
				delete(a.bundle.GreenFlags, c.Dimension)
			}
		}
		a.bundle.RedFlags[c.Dimension] = append(a.bundle.RedFlags[c.Dimension], c.Source)
		return true

	case model.PolaritySupports:
		if a.green[key] {
			return canonical(a.bundle.GreenFlags[c.Dimension], key.link, c.Source)
		}
		if a.red[key] || (a.discountListing && a.listing != "" && key.link == a.listing) {
			return false
		}
		a.green[key] = true
		a.bundle.GreenFlags[c.Dimension] = append(a.bundle.GreenFlags[c.Dimension], c.Source)
		return true

	default:
		return false
	}
}

// Bundle returns the folded evidence
func (a *Aggregator) Bundle() model.EvidenceBundle {
	return a.bundle
}

// Aggregate folds claims for subject into an EvidenceBundle
func Aggregate(subject model.Subject, claims []model.Claim, opts ...Option) model.EvidenceBundle {
	a := New(subject, opts...)
	for _, c := range claims {
		a.Add(c)
	}
	return a.Bundle()
}

// Attributed keeps the claims whose source is one of hits and counts the rest
func Attributed(hits []model.SearchHit, claims []model.Claim) ([]model.Claim, int) {
	known := make(map[string]model.SearchHit, len(hits))
	for _, h := range hits {
		known[h.Link] = h
	}

	kept := make([]model.Claim, 0, len(claims))
	rejected := 0
	for _, c := range claims {
		if h, ok := known[c.Source.Link]; ok && h == c.Source {
			kept = append(kept, c)
			continue
		}
		rejected++
	}
	return kept, rejected
}

// normalizeLink folds trivial variations of the same page
func normalizeLink(link string) string {
	link = strings.TrimSpace(link)
	if i := strings.Index(link, "#"); i >= 0 {
		link = link[:i]
	}
	return strings.TrimSuffix(link, "/")
}

// canonical keeps one representative per normalized link: the smallest hit,
// so variants such as "/p" and "/p/" fold the same way in any order.
func canonical(hits []model.SearchHit, link string, candidate model.SearchHit) bool {
	for i, h := range hits {
		if normalizeLink(h.Link) == link && lessHit(candidate, h) {
			hits[i] = candidate
			return true
		}
	}
	return false
}

func lessHit(a, b model.SearchHit) bool {
	if a.Link != b.Link {
		return a.Link < b.Link
	}
	if a.Title != b.Title {
		return a.Title < b.Title
	}
	return a.Snippet < b.Snippet
}

func removeLink(hits []model.SearchHit, link string) []model.SearchHit {
	out := hits[:0]
	for _, h := range hits {
		if normalizeLink(h.Link) != link {
			out = append(out, h)
		}
	}
	return out
}
