package model

import (
	"fmt"
	"strings"
)

// Extra keys recognized on Subject.Extra
const (
	ExtraListedRent    = "listed_rent"
	ExtraPhone         = "phone"
	ExtraEmail         = "email"
	ExtraPaymentMethod = "payment_method"
)

// Subject is the identity under verification
type Subject struct {
	Name         string            `json:"name" yaml:"name"`
	Address      string            `json:"address" yaml:"address"`
	ListingURL   string            `json:"listing_url,omitempty" yaml:"listing_url,omitempty"`
	OtherDetails string            `json:"other_details,omitempty" yaml:"other_details,omitempty"`
	Extra        map[string]string `json:"extra,omitempty" yaml:"extra,omitempty"`
}

// Validate checks that the subject carries enough identity to verify
func (s Subject) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("name is required: %w", ErrInvalidSubject)
	}
	if strings.TrimSpace(s.Address) == "" {
		return fmt.Errorf("address is required: %w", ErrInvalidSubject)
	}
	return nil
}

// SearchQuery builds the web search query for the subject
func (s Subject) SearchQuery() string {
	return strings.TrimSpace(strings.TrimSpace(s.Name) + " " + strings.TrimSpace(s.Address))
}

// ExtraValue returns a trimmed extra attribute or ""
func (s Subject) ExtraValue(key string) string {
	if s.Extra == nil {
		return ""
	}
	return strings.TrimSpace(s.Extra[key])
}

// SearchHit is a single web search result
type SearchHit struct {
	Title   string `json:"title"`
	Link    string `json:"link"` // Unique key within a result set
	Snippet string `json:"snippet,omitempty"`
}

// ScrapedContent is the markdown rendition of a search hit's page
type ScrapedContent struct {
	Link      string `json:"link"`
	Markdown  string `json:"markdown"`
	Truncated bool   `json:"truncated"`
}

// Empty reports whether the scrape produced no usable content
func (c ScrapedContent) Empty() bool {
	return strings.TrimSpace(c.Markdown) == ""
}

// EmptyContent is the sentinel returned when a scrape fails
func EmptyContent(link string) ScrapedContent {
	return ScrapedContent{Link: link}
}

// Parcel identifies a property in the county records by block and lot.
// Both are strings so leading zeros survive ("028" is not 28).
type Parcel struct {
	Block string `json:"block" yaml:"block"`
	Lot   string `json:"lot" yaml:"lot"`
}

func (p Parcel) String() string {
	return fmt.Sprintf("Block %s, Lot %s", p.Block, p.Lot)
}

// Key returns a stable cache/map key
func (p Parcel) Key() string {
	return p.Block + "/" + p.Lot
}

// OwnerRecord is the county owner list for one parcel
type OwnerRecord struct {
	BlockNumber string   `json:"block_number"`
	LotNumber   string   `json:"lot_number"`
	Owners      []string `json:"owners"`
}

// Reconciliation is the outcome of matching the declared name against county records
type Reconciliation struct {
	Matched     bool     `json:"matched"`
	MatchedName string   `json:"matched_name,omitempty"`
	Attempted   bool     `json:"attempted"` // An owner list was actually obtained
	Parcel      *Parcel  `json:"parcel,omitempty"`
	Owners      []string `json:"owners,omitempty"`
	Err         string   `json:"error,omitempty"`
}
