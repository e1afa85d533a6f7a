package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Dimension is one of the fraud-relevant questions evaluated per source
type Dimension string

const (
	DimensionIdentityMatch    Dimension = "identity_match"    // Name and address on the page match the subject
	DimensionOwnershipProof   Dimension = "ownership_proof"   // Page proves the subject owns the address
	DimensionFraudReport      Dimension = "fraud_report"      // Scam/fraud reports about the subject
	DimensionLegalMention     Dimension = "legal_mention"     // Evictions, lawsuits, news coverage
	DimensionPresenceLiveness Dimension = "presence_liveness" // Subject is alive and currently at the address
)

// Dimensions lists every dimension in extraction order
var Dimensions = []Dimension{
	DimensionIdentityMatch,
	DimensionOwnershipProof,
	DimensionFraudReport,
	DimensionLegalMention,
	DimensionPresenceLiveness,
}

// Severity ranks a dimension for ordering reasons (higher is more severe)
func (d Dimension) Severity() int {
	switch d {
	case DimensionFraudReport:
		return 5
	case DimensionPresenceLiveness:
		return 4
	case DimensionLegalMention:
		return 3
	case DimensionOwnershipProof:
		return 2
	case DimensionIdentityMatch:
		return 1
	default:
		return 0
	}
}

// HighSeverity reports whether a contradicting claim on this dimension is a strong scam signal
func (d Dimension) HighSeverity() bool {
	return d == DimensionFraudReport || d == DimensionLegalMention || d == DimensionPresenceLiveness
}

// Label returns a short human-readable name
func (d Dimension) Label() string {
	switch d {
	case DimensionIdentityMatch:
		return "Identity Match"
	case DimensionOwnershipProof:
		return "Ownership Proof"
	case DimensionFraudReport:
		return "Fraud Reports"
	case DimensionLegalMention:
		return "Legal/News Mentions"
	case DimensionPresenceLiveness:
		return "Presence"
	default:
		return string(d)
	}
}

// Valid reports whether d is a known dimension
func (d Dimension) Valid() bool {
	return d.Severity() > 0
}

// Polarity is the direction of a claim
type Polarity string

const (
	PolaritySupports    Polarity = "supports"    // Corroborates the subject's legitimacy
	PolarityContradicts Polarity = "contradicts" // Evidence against the subject
	PolarityUnknown     Polarity = "unknown"     // No evidential weight
)

// ParsePolarity converts a model answer into a Polarity
func ParsePolarity(s string) (Polarity, error) {
	switch p := Polarity(strings.ToLower(strings.TrimSpace(s))); p {
	case PolaritySupports, PolarityContradicts, PolarityUnknown:
		return p, nil
	default:
		return PolarityUnknown, fmt.Errorf("invalid polarity %q: %w", s, ErrProviderSchema)
	}
}

// UnmarshalJSON rejects anything outside the fixed enumeration
func (p *Polarity) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("polarity: %w", ErrProviderSchema)
	}
	parsed, err := ParsePolarity(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Claim is a single dimension-scoped, source-attributed judgment about the subject
type Claim struct {
	Dimension Dimension `json:"dimension"`
	Polarity  Polarity  `json:"polarity"`
	Source    SearchHit `json:"source"`
	Note      string    `json:"note,omitempty"` // Why the claim is unknown (model failure, empty content)
}

// UnknownClaims returns one Unknown claim per dimension for the given source
func UnknownClaims(source SearchHit, note string) []Claim {
	claims := make([]Claim, 0, len(Dimensions))
	for _, d := range Dimensions {
		claims = append(claims, Claim{
			Dimension: d,
			Polarity:  PolarityUnknown,
			Source:    source,
			Note:      note,
		})
	}
	return claims
}
