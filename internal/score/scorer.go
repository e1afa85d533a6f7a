// Package score builds the explainable risk verdict from folded evidence.
package score

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/Ads97/Veritas/internal/model"
)

// AnalysisContext carries the run inputs that feed analyzed data but not the fold
type AnalysisContext struct {
	Subject         model.Subject
	SourcesAnalyzed int                   // Search hits processed in the run
	Market          *model.MarketEstimate // Nil when the market branch did not run
}

// Builder turns an evidence bundle and a reconciliation into a Verdict
type Builder struct {
	cfg model.ScoringConfig
}

// NewBuilder creates a Builder. Missing weights fall back to the defaults.
func NewBuilder(cfg model.ScoringConfig) *Builder {
	def := model.DefaultScoring()
	if cfg.Base == 0 {
		cfg.Base = def.Base
	}
	if len(cfg.RedWeights) == 0 {
		cfg.RedWeights = def.RedWeights
	}
	if len(cfg.GreenWeights) == 0 {
		cfg.GreenWeights = def.GreenWeights
	}
	if cfg.ReconcilePenalty == 0 {
		cfg.ReconcilePenalty = def.ReconcilePenalty
	}
	if cfg.BelowMarketThreshold == 0 {
		cfg.BelowMarketThreshold = def.BelowMarketThreshold
	}
	if cfg.BelowMarketPenalty == 0 {
		cfg.BelowMarketPenalty = def.BelowMarketPenalty
	}
	return &Builder{cfg: cfg}
}

// Build never fails. A nil analysis is treated as an empty one.
func (b *Builder) Build(bundle model.EvidenceBundle, rec model.Reconciliation, analysis *AnalysisContext) model.Verdict {
	if analysis == nil {
		analysis = &AnalysisContext{}
	}
	if bundle.GreenFlags == nil || bundle.RedFlags == nil {
		empty := model.NewEvidenceBundle()
		for d, hits := range bundle.GreenFlags {
			empty.GreenFlags[d] = hits
		}
		for d, hits := range bundle.RedFlags {
			empty.RedFlags[d] = hits
		}
		bundle = empty
	}

	market := b.marketSignal(analysis.Market, analysis.Subject)

	return model.Verdict{
		ClearOutcome:        !bundle.Empty() && rec.Matched,
		ScamLikelihood:      b.Likelihood(bundle, rec, market),
		Address:             analysis.Subject.Address,
		Reasons:             b.reasons(bundle, rec, analysis.Subject, market),
		AnalyzedData:        b.analyzedData(bundle, rec, analysis, market),
		AdditionalQuestions: b.questions(bundle, rec, analysis.Subject, market),
	}
}

// Likelihood is the clamped scam likelihood for the given inputs
func (b *Builder) Likelihood(bundle model.EvidenceBundle, rec model.Reconciliation, market *model.MarketEstimate) float64 {
	score := b.cfg.Base

	// Each dimension counts once per bucket, however many sources back it
	for _, d := range model.Dimensions {
		if bundle.HasRed(d) {
			score += b.cfg.RedWeights[d]
		}
		if bundle.HasGreen(d) {
			score -= b.cfg.GreenWeights[d]
		}
	}

	if !rec.Matched {
		score += b.cfg.ReconcilePenalty
	}
	if market != nil && market.BelowMarket {
		score += b.cfg.BelowMarketPenalty
	}

	score = math.Max(0, math.Min(1, score))
	return math.Round(score*1e4) / 1e4
}

// marketSignal fills ListedRent from the subject when missing and flags below-market rent
func (b *Builder) marketSignal(m *model.MarketEstimate, subject model.Subject) *model.MarketEstimate {
	if m == nil {
		listed := model.ParseRent(subject.ExtraValue(model.ExtraListedRent))
		if listed == 0 {
			return nil
		}
		return &model.MarketEstimate{ListedRent: listed}
	}

	out := *m
	if out.ListedRent == 0 {
		out.ListedRent = model.ParseRent(subject.ExtraValue(model.ExtraListedRent))
	}
	out.BelowMarket = out.Known() && out.DiscountRatio() > b.cfg.BelowMarketThreshold
	return &out
}

// bySeverity returns the dimensions, most severe first
func bySeverity() []model.Dimension {
	dims := append([]model.Dimension(nil), model.Dimensions...)
	sort.SliceStable(dims, func(i, j int) bool {
		return dims[i].Severity() > dims[j].Severity()
	})
	return dims
}

func (b *Builder) reasons(bundle model.EvidenceBundle, rec model.Reconciliation, subject model.Subject, market *model.MarketEstimate) []model.Reason {
	reasons := []model.Reason{reconcileReason(rec, subject)}

	for _, d := range bySeverity() {
		if hits := bundle.RedFlags[d]; len(hits) > 0 {
			reasons = append(reasons, model.Reason{Tag: model.TagBad, Text: redText(d, len(hits)), Dimension: d})
		}
		if hits := bundle.GreenFlags[d]; len(hits) > 0 {
			reasons = append(reasons, model.Reason{Tag: model.TagGood, Text: greenText(d, len(hits)), Dimension: d})
		}
	}

	if market.Known() {
		if market.BelowMarket {
			reasons = append(reasons, model.Reason{
				Tag:  model.TagBad,
				Text: fmt.Sprintf("Price significantly below market rate for the area (%.0f%% under)", market.DiscountRatio()*100),
			})
		} else {
			reasons = append(reasons, model.Reason{Tag: model.TagGood, Text: "Property price is within market range"})
		}
	}

	if bundle.Empty() {
		reasons = append(reasons, model.Reason{Tag: model.TagBad, Text: "Limited information available for analysis"})
	}
	return reasons
}

func reconcileReason(rec model.Reconciliation, subject model.Subject) model.Reason {
	switch {
	case rec.Matched:
		text := fmt.Sprintf("County records list %s as an owner of the property", rec.MatchedName)
		if rec.Parcel != nil {
			text = fmt.Sprintf("County records list %s as an owner of %s", rec.MatchedName, rec.Parcel)
		}
		return model.Reason{Tag: model.TagGood, Text: text}
	case rec.Attempted:
		name := strings.TrimSpace(subject.Name)
		if name == "" {
			name = "the landlord"
		}
		return model.Reason{Tag: model.TagBad, Text: fmt.Sprintf("County owner records do not match %s", name)}
	default:
		return model.Reason{Tag: model.TagBad, Text: "Ownership could not be verified against county records"}
	}
}

func (b *Builder) analyzedData(bundle model.EvidenceBundle, rec model.Reconciliation, analysis *AnalysisContext, market *model.MarketEstimate) []model.DataPoint {
	data := []model.DataPoint{
		{Label: "Sources Analyzed", Value: fmt.Sprintf("%d search results, %d with evidence", analysis.SourcesAnalyzed, bundle.SourceCount())},
	}

	parcel := "Not resolved"
	if rec.Parcel != nil {
		parcel = rec.Parcel.String()
	}
	data = append(data, model.DataPoint{Label: "Parcel", Value: parcel})

	owners := "Unavailable"
	if len(rec.Owners) > 0 {
		owners = strings.Join(rec.Owners, "; ")
	}
	data = append(data, model.DataPoint{Label: "County Owners", Value: owners})

	var match string
	switch {
	case rec.Matched:
		match = "Matched " + rec.MatchedName
	case rec.Attempted:
		match = "No match"
	case rec.Err != "":
		match = "Not checked: " + rec.Err
	default:
		match = "Not checked"
	}
	data = append(data, model.DataPoint{Label: "Record Match", Value: match})

	if market != nil && market.ListedRent > 0 {
		value := FormatRent(market.ListedRent)
		if market.Known() {
			ratio := market.DiscountRatio()
			switch {
			case market.BelowMarket:
				value += fmt.Sprintf(" (%.0f%% below market average)", ratio*100)
			case ratio < 0:
				value += fmt.Sprintf(" (%.0f%% above market average)", -ratio*100)
			default:
				value += " (within market range)"
			}
		}
		data = append(data, model.DataPoint{Label: "Rental Price", Value: value})
	}
	if market.Known() {
		value := FormatRent(market.MarketRent) + " for similar properties"
		if n := len(market.Sources); n > 0 {
			value += fmt.Sprintf(" (%d %s)", n, plural(n, "source", "sources"))
		}
		data = append(data, model.DataPoint{Label: "Market Average", Value: value})
	}

	data = append(data, model.DataPoint{Label: "Landlord Contact", Value: contactStatus(analysis.Subject)})

	if method := analysis.Subject.ExtraValue(model.ExtraPaymentMethod); method != "" {
		value := method
		if RiskyPayment(method) {
			value += " (high risk)"
		}
		data = append(data, model.DataPoint{Label: "Payment Method", Value: value})
	}

	for _, d := range bySeverity() {
		for _, h := range bundle.RedFlags[d] {
			data = append(data, model.DataPoint{Label: "Red Flag: " + d.Label(), Value: sourceLine(h)})
		}
		for _, h := range bundle.GreenFlags[d] {
			data = append(data, model.DataPoint{Label: "Green Flag: " + d.Label(), Value: sourceLine(h)})
		}
	}
	return data
}

func (b *Builder) questions(bundle model.EvidenceBundle, rec model.Reconciliation, subject model.Subject, market *model.MarketEstimate) []string {
	var qs []string
	if !rec.Matched {
		qs = append(qs, questionUnmatched)
	}
	for _, d := range bySeverity() {
		if bundle.HasRed(d) {
			qs = append(qs, redQuestions[d])
		}
	}
	if market != nil && market.BelowMarket {
		qs = append(qs, questionBelowMarket)
	}
	if method := subject.ExtraValue(model.ExtraPaymentMethod); method != "" && RiskyPayment(method) {
		qs = append(qs, fmt.Sprintf(questionPaymentFmt, method))
	}

	if len(qs) == 0 {
		return append([]string(nil), defaultQuestions...)
	}
	return qs
}

func contactStatus(s model.Subject) string {
	phone := s.ExtraValue(model.ExtraPhone) != ""
	email := s.ExtraValue(model.ExtraEmail) != ""
	switch {
	case phone && email:
		return "Phone and email provided"
	case email:
		return "Email only, no phone verification"
	case phone:
		return "Phone only, no email"
	default:
		return "No contact details provided"
	}
}

func sourceLine(h model.SearchHit) string {
	title := strings.TrimSpace(h.Title)
	if title == "" {
		return h.Link
	}
	return fmt.Sprintf("%s (%s)", title, h.Link)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
