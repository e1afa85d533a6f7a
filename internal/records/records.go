// Package records resolves addresses to county parcels and looks up their owners.
package records

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/Ads97/Veritas/internal/llm"
	"github.com/Ads97/Veritas/internal/logger"
	"github.com/Ads97/Veritas/internal/model"
	"github.com/Ads97/Veritas/internal/worker"
)

// ParcelResolver maps a street address to a block/lot parcel
type ParcelResolver interface {
	// Resolve returns model.ErrAmbiguousAddress or model.ErrNotFound when no single parcel fits
	Resolve(ctx context.Context, address string) (model.Parcel, error)
}

// OwnerLookup returns the recorded owner names for a parcel
type OwnerLookup interface {
	// LookupOwners returns model.ErrNotFound when no record matches the parcel
	LookupOwners(ctx context.Context, parcel model.Parcel) ([]string, error)
}

// Covers "0268", "028A" and hyphenated forms such as "123-456-78"
var parcelPart = regexp.MustCompile(`^[0-9A-Za-z-]{1,16}$`)

// ValidParcel reports whether block and lot look like county identifiers
func ValidParcel(p model.Parcel) bool {
	return validPart(p.Block) && validPart(p.Lot)
}

func validPart(s string) bool {
	return parcelPart.MatchString(s) && strings.ContainsAny(s, "0123456789")
}

// noRecords is the owner lookup used when no recorder gateway is configured
type noRecords struct{}

func (noRecords) LookupOwners(ctx context.Context, parcel model.Parcel) ([]string, error) {
	return nil, fmt.Errorf("no recorder gateway configured: %w", model.ErrNotFound)
}

// normalizeAddress lowercases, drops punctuation and collapses whitespace
func normalizeAddress(address string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(address) {
		switch {
		case r == ',' || r == '.' || r == '#':
			b.WriteRune(' ')
		default:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// cleanOwners trims names and drops blanks and exact duplicates, keeping order
func cleanOwners(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.Join(strings.Fields(n), " ")
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

// New builds the resolver and lookup selected by cfg.Records. judge may be nil
// unless the llm resolver is selected.
func New(cfg model.Config, judge llm.Provider, client *http.Client, log *zap.Logger) (ParcelResolver, OwnerLookup, error) {
	var registry *Registry
	loadRegistry := func() (*Registry, error) {
		if registry != nil {
			return registry, nil
		}
		if cfg.Records.RegistryFile == "" {
			return nil, fmt.Errorf("records.registry_file is required for the static adapters")
		}
		r, err := LoadRegistry(cfg.Records.RegistryFile)
		if err != nil {
			return nil, err
		}
		registry = r
		return r, nil
	}

	var resolver ParcelResolver
	switch strings.ToLower(cfg.Records.Resolver) {
	case "llm", "":
		if judge == nil {
			return nil, nil, fmt.Errorf("llm parcel resolver needs a judge")
		}
		resolver = NewLLMResolver(judge, cfg.Records.County, log)
	case "static":
		r, err := loadRegistry()
		if err != nil {
			return nil, nil, err
		}
		resolver = r
	default:
		return nil, nil, fmt.Errorf("unknown parcel resolver: %s", cfg.Records.Resolver)
	}

	var lookup OwnerLookup
	switch strings.ToLower(cfg.Records.Lookup) {
	case "http", "":
		if cfg.Records.BaseURL == "" {
			logger.OrNop(log).Warn("records.base_url is not set; owner lookups will report no records and every run gets the reconciliation penalty")
			lookup = noRecords{}
			break
		}
		gw, err := NewGatewayLookup(cfg.Records.BaseURL, cfg.Records.County, client, worker.PolicyFromConfig(cfg.Concurrency))
		if err != nil {
			return nil, nil, err
		}
		lookup = gw
	case "static":
		r, err := loadRegistry()
		if err != nil {
			return nil, nil, err
		}
		lookup = r
	default:
		return nil, nil, fmt.Errorf("unknown owner lookup: %s", cfg.Records.Lookup)
	}

	return resolver, lookup, nil
}
