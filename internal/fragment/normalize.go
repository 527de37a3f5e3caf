package fragment

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Normalizer canonicalizes identifiers so that schema names and query
// references compare equal when they spell the same name.
type Normalizer struct {
	// Fold applies Unicode case folding after NFC normalization.
	Fold bool
}

// Identifier returns the NFC form of s, case-folded when n.Fold is set.
func (n Normalizer) Identifier(s string) string {
	s = norm.NFC.String(s)
	if n.Fold {
		// A Caser is stateful; one per call keeps Normalizer safe for
		// concurrent use.
		s = cases.Fold().String(s)
	}
	return s
}

// Set normalizes every item into a new set.
func (n Normalizer) Set(items []string) Set {
	out := make(Set, len(items))
	for _, item := range items {
		out.Add(n.Identifier(item))
	}
	return out
}
