package extract

import (
	"net/url"
	"strings"
)

// SourceKind is a coarse classification of a search hit's site
type SourceKind string

const (
	SourceRecords      SourceKind = "property_records"
	SourceLegal        SourceKind = "legal"
	SourceScamReport   SourceKind = "scam_report"
	SourcePeopleSearch SourceKind = "people_search"
	SourceListing      SourceKind = "rental_listing"
	SourceSocial       SourceKind = "social"
	SourceNews         SourceKind = "news"
	SourceGeneric      SourceKind = "generic"
)

// hint tells the judge how much weight a page of this kind carries
func (k SourceKind) hint() string {
	switch k {
	case SourceRecords:
		return "official property or assessor records; strong evidence for ownership"
	case SourceLegal:
		return "court or legal records; evictions and lawsuits are legal mentions"
	case SourceScamReport:
		return "consumer complaint or scam report site; reports here are fraud reports"
	case SourcePeopleSearch:
		return "people-search aggregator; useful for identity and current address, often stale"
	case SourceListing:
		return "rental or real-estate listing; shows the property is marketed, not who owns it"
	case SourceSocial:
		return "social media profile or post"
	case SourceNews:
		return "news coverage"
	default:
		return "general web page"
	}
}

// sourceRule matches hosts (suffix match) or URL path fragments to a kind
type sourceRule struct {
	kind  SourceKind
	hosts []string
	paths []string
}

// Classifier maps links to source kinds. Rules are tried in order; the first match wins.
type Classifier struct {
	rules []sourceRule
}

// NewClassifier creates a classifier with the built-in rules
func NewClassifier() *Classifier {
	return &Classifier{rules: []sourceRule{
		{
			kind:  SourceRecords,
			hosts: []string{"recorder.sfgov.org", "sfassessor.org", "propertyshark.com", "blockshopper.com"},
			paths: []string{"/assessor", "/recorder", "/parcel"},
		},
		{
			kind:  SourceLegal,
			hosts: []string{"courtlistener.com", "unicourt.com", "justia.com", "casetext.com", "trellis.law", "sfsuperiorcourt.org"},
			paths: []string{"/court", "/lawsuit", "/case/", "/eviction"},
		},
		{
			kind:  SourceScamReport,
			hosts: []string{"ripoffreport.com", "scamwatch.gov.au", "reportfraud.ftc.gov", "bbb.org", "scamadviser.com"},
			paths: []string{"/r/scams", "/scam", "/fraud"},
		},
		{
			kind:  SourcePeopleSearch,
			hosts: []string{"whitepages.com", "spokeo.com", "truepeoplesearch.com", "fastpeoplesearch.com", "beenverified.com", "radaris.com"},
		},
		{
			kind:  SourceListing,
			hosts: []string{"zillow.com", "trulia.com", "redfin.com", "apartments.com", "craigslist.org", "hotpads.com", "realtor.com"},
		},
		{
			kind:  SourceSocial,
			hosts: []string{"facebook.com", "instagram.com", "x.com", "twitter.com", "linkedin.com", "tiktok.com", "nextdoor.com"},
		},
		{
			kind:  SourceNews,
			hosts: []string{"sfchronicle.com", "sfgate.com", "sfist.com", "nytimes.com", "latimes.com", "patch.com"},
			paths: []string{"/news/"},
		},
	}}
}

// Classify returns the kind of rawURL, SourceGeneric when nothing matches
func (c *Classifier) Classify(rawURL string) SourceKind {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return SourceGeneric
	}
	host := strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")
	path := strings.ToLower(parsed.Path)

	for _, rule := range c.rules {
		for _, h := range rule.hosts {
			if host == h || strings.HasSuffix(host, "."+h) {
				return rule.kind
			}
		}
		for _, p := range rule.paths {
			if strings.Contains(path, p) {
				return rule.kind
			}
		}
	}
	return SourceGeneric
}
