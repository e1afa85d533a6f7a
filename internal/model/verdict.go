package model

import (
	"encoding/json"
	"fmt"
)

// ReasonTag marks a reason as evidence for or against the subject
type ReasonTag string

const (
	TagGood ReasonTag = "good"
	TagBad  ReasonTag = "bad"
)

// Reason is one tagged explanation line. It serializes as ["good"|"bad", text].
type Reason struct {
	Tag       ReasonTag `json:"-"`
	Text      string    `json:"-"`
	Dimension Dimension `json:"-"` // Empty for reconciliation and market reasons
}

func (r Reason) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{string(r.Tag), r.Text})
}

func (r *Reason) UnmarshalJSON(data []byte) error {
	var pair [2]string
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("reason: %w", err)
	}
	switch ReasonTag(pair[0]) {
	case TagGood, TagBad:
	default:
		return fmt.Errorf("reason: unknown tag %q", pair[0])
	}
	r.Tag = ReasonTag(pair[0])
	r.Text = pair[1]
	return nil
}

// DataPoint is one analyzed-data row. It serializes as [label, value].
type DataPoint struct {
	Label string
	Value string
}

func (d DataPoint) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{d.Label, d.Value})
}

func (d *DataPoint) UnmarshalJSON(data []byte) error {
	var pair [2]string
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("data point: %w", err)
	}
	d.Label, d.Value = pair[0], pair[1]
	return nil
}

// Verdict is the final, explainable risk assessment for one run
type Verdict struct {
	ClearOutcome        bool        `json:"clear_outcome"`
	ScamLikelihood      float64     `json:"scam_likelihood"` // 0.0 (safe) to 1.0 (scam)
	Address             string      `json:"address"`
	Reasons             []Reason    `json:"reasons"`
	AnalyzedData        []DataPoint `json:"analyzed_data"`
	AdditionalQuestions []string    `json:"additional_questions"`
}

// RiskLevel buckets the likelihood for display
func (v Verdict) RiskLevel() string {
	switch {
	case v.ScamLikelihood >= 0.7:
		return "high"
	case v.ScamLikelihood >= 0.4:
		return "medium"
	default:
		return "low"
	}
}

// MarketEstimate is the optional rent comparison context
type MarketEstimate struct {
	ListedRent  float64  `json:"listed_rent,omitempty"`  // From the listing, 0 when unknown
	MarketRent  float64  `json:"market_rent,omitempty"`  // Estimated monthly rent, 0 when unknown
	Sources     []string `json:"sources,omitempty"`      // Pages the estimate came from
	BelowMarket bool     `json:"below_market,omitempty"` // Listed rent is suspiciously low
}

// Known reports whether both rents are available for comparison
func (m *MarketEstimate) Known() bool {
	return m != nil && m.ListedRent > 0 && m.MarketRent > 0
}

// DiscountRatio returns how far below market the listing is (0.4 = 40% under)
func (m *MarketEstimate) DiscountRatio() float64 {
	if !m.Known() {
		return 0
	}
	return (m.MarketRent - m.ListedRent) / m.MarketRent
}
