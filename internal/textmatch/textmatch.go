// Package textmatch finds fixed substrings (title and sentence exclusion
// patterns) in a single pass over the input.
package textmatch

import (
	"github.com/cloudflare/ahocorasick"
)

// Matcher reports whether text contains any of a fixed set of patterns.
// Matching is case-sensitive.
// The zero value and a Matcher built from no patterns match nothing.
type Matcher struct {
	m        *ahocorasick.Matcher
	patterns []string
}

// New builds a matcher over the non-empty patterns.
func New(patterns []string) *Matcher {
	kept := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if p != "" {
			kept = append(kept, p)
		}
	}

	if len(kept) == 0 {
		return &Matcher{}
	}

	return &Matcher{
		m:        ahocorasick.NewStringMatcher(kept),
		patterns: kept,
	}
}

// Contains reports whether s contains any pattern.
func (m *Matcher) Contains(s string) bool {
	if m == nil || m.m == nil {
		return false
	}

	return len(m.m.MatchThreadSafe([]byte(s))) > 0
}

// Matches returns the patterns found in s, in pattern order.
func (m *Matcher) Matches(s string) []string {
	if m == nil || m.m == nil {
		return nil
	}

	hits := m.m.MatchThreadSafe([]byte(s))
	if len(hits) == 0 {
		return nil
	}

	found := make([]bool, len(m.patterns))
	for _, i := range hits {
		found[i] = true
	}

	out := make([]string, 0, len(hits))
	for i, ok := range found {
		if ok {
			out = append(out, m.patterns[i])
		}
	}

	return out
}
