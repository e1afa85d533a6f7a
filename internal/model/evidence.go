package model

// EvidenceBundle groups supporting and contradicting sources by dimension.
// Per dimension, sources keep processing order and are unique by link.
type EvidenceBundle struct {
	GreenFlags map[Dimension][]SearchHit `json:"green_flags"`
	RedFlags   map[Dimension][]SearchHit `json:"red_flags"`
}

// NewEvidenceBundle returns an empty bundle ready for folding
func NewEvidenceBundle() EvidenceBundle {
	return EvidenceBundle{
		GreenFlags: make(map[Dimension][]SearchHit),
		RedFlags:   make(map[Dimension][]SearchHit),
	}
}

// Empty reports whether no dimension carries any source
func (b EvidenceBundle) Empty() bool {
	for _, hits := range b.GreenFlags {
		if len(hits) > 0 {
			return false
		}
	}
	for _, hits := range b.RedFlags {
		if len(hits) > 0 {
			return false
		}
	}
	return true
}

// HasRed reports whether dimension d has at least one contradicting source
func (b EvidenceBundle) HasRed(d Dimension) bool {
	return len(b.RedFlags[d]) > 0
}

// HasGreen reports whether dimension d has at least one supporting source
func (b EvidenceBundle) HasGreen(d Dimension) bool {
	return len(b.GreenFlags[d]) > 0
}

// SourceCount returns the number of distinct links across both buckets
func (b EvidenceBundle) SourceCount() int {
	seen := make(map[string]struct{})
	for _, hits := range b.GreenFlags {
		for _, h := range hits {
			seen[h.Link] = struct{}{}
		}
	}
	for _, hits := range b.RedFlags {
		for _, h := range hits {
			seen[h.Link] = struct{}{}
		}
	}
	return len(seen)
}
