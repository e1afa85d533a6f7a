package records

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Ads97/Veritas/internal/model"
)

// RegistryEntry is one parcel in a static registry file
type RegistryEntry struct {
	Address string   `yaml:"address"`
	Block   string   `yaml:"block"`
	Lot     string   `yaml:"lot"`
	Owners  []string `yaml:"owners"`
}

// registryFile is the on-disk layout:
//
//	parcels:
//	  - address: "123 Main St, San Francisco, CA"
//	    block: "0268"
//	    lot: "028"
//	    owners: ["DOE JANE A"]
type registryFile struct {
	Parcels []RegistryEntry `yaml:"parcels"`
}

// Registry is a fixed address/parcel/owner table. It serves as both
// ParcelResolver and OwnerLookup for offline runs and tests.
type Registry struct {
	byAddress map[string][]model.Parcel
	byParcel  map[string][][]string
}

// NewRegistry indexes entries
func NewRegistry(entries []RegistryEntry) (*Registry, error) {
	r := &Registry{
		byAddress: make(map[string][]model.Parcel),
		byParcel:  make(map[string][][]string),
	}
	for i, e := range entries {
		p := model.Parcel{Block: e.Block, Lot: e.Lot}
		if !ValidParcel(p) {
			return nil, fmt.Errorf("entry %d: invalid parcel %q/%q", i, e.Block, e.Lot)
		}
		if addr := normalizeAddress(e.Address); addr != "" && !containsParcel(r.byAddress[addr], p) {
			r.byAddress[addr] = append(r.byAddress[addr], p)
		}
		if owners := cleanOwners(e.Owners); len(owners) > 0 {
			r.byParcel[p.Key()] = append(r.byParcel[p.Key()], owners)
		}
	}
	return r, nil
}

// LoadRegistry reads a YAML registry file
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read registry: %w", err)
	}
	var f registryFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse registry %s: %w", path, err)
	}
	return NewRegistry(f.Parcels)
}

// Resolve implements ParcelResolver
func (r *Registry) Resolve(ctx context.Context, address string) (model.Parcel, error) {
	parcels := r.byAddress[normalizeAddress(address)]
	switch len(parcels) {
	case 0:
		return model.Parcel{}, fmt.Errorf("no parcel for %q: %w", address, model.ErrNotFound)
	case 1:
		return parcels[0], nil
	default:
		return model.Parcel{}, fmt.Errorf("%q matches %d parcels: %w", address, len(parcels), model.ErrAmbiguousAddress)
	}
}

// LookupOwners implements OwnerLookup
func (r *Registry) LookupOwners(ctx context.Context, parcel model.Parcel) ([]string, error) {
	lists := r.byParcel[parcel.Key()]
	switch len(lists) {
	case 0:
		return nil, fmt.Errorf("%s: %w", parcel, model.ErrNotFound)
	case 1:
		return append([]string(nil), lists[0]...), nil
	default:
		return nil, fmt.Errorf("%s: %w", parcel, model.ErrAmbiguousParcel)
	}
}

func containsParcel(ps []model.Parcel, p model.Parcel) bool {
	for _, q := range ps {
		if q == p {
			return true
		}
	}
	return false
}
