// Package reconcile matches a declared landlord name against county owner names.
package reconcile

import (
	"fmt"
	"strings"
	"unicode"
)

// Policy decides when a declared name matches an owner name
type Policy string

const (
	// AnyToken matches when any declared token equals any owner token
	AnyToken Policy = "any_token"
	// AllTokens matches when every declared token appears in the owner name
	AllTokens Policy = "all_tokens"
)

// ParsePolicy converts a config value into a Policy. Empty means AnyToken.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return AnyToken, nil
	case AnyToken, AllTokens:
		return p, nil
	default:
		return "", fmt.Errorf("unknown reconcile policy %q", s)
	}
}

// Reconciler applies a matching policy
type Reconciler struct {
	policy Policy
}

// New creates a Reconciler
func New(policy Policy) *Reconciler {
	if policy == "" {
		policy = AnyToken
	}
	return &Reconciler{policy: policy}
}

// Reconcile reports whether declared matches one of owners and which one.
// Owners are tried in the order given; the first match wins.
func (r *Reconciler) Reconcile(declared string, owners []string) (bool, string) {
	want := tokens(declared)
	if len(want) == 0 {
		return false, ""
	}

	for _, owner := range owners {
		have := tokenSet(owner)
		if len(have) == 0 {
			continue
		}
		if r.matches(want, have) {
			return true, owner
		}
	}
	return false, ""
}

func (r *Reconciler) matches(want []string, have map[string]bool) bool {
	switch r.policy {
	case AllTokens:
		for _, t := range want {
			if !have[t] {
				return false
			}
		}
		return true
	default:
		for _, t := range want {
			if have[t] {
				return true
			}
		}
		return false
	}
}

// Reconcile uses the default AnyToken policy
func Reconcile(declared string, owners []string) (bool, string) {
	return New(AnyToken).Reconcile(declared, owners)
}

// tokens lowercases, splits on whitespace and strips surrounding punctuation
func tokens(name string) []string {
	fields := strings.Fields(strings.ToLower(name))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimFunc(f, func(r rune) bool {
			return unicode.IsPunct(r) || unicode.IsSymbol(r)
		})
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

func tokenSet(name string) map[string]bool {
	set := make(map[string]bool)
	for _, t := range tokens(name) {
		set[t] = true
	}
	return set
}
