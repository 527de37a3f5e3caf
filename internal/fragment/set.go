package fragment

import (
	"encoding/json"
	"sort"
)

// Set is an unordered set of fragment strings.
type Set map[string]struct{}

// NewSet returns a set holding items.
func NewSet(items ...string) Set {
	s := make(Set, len(items))
	for _, item := range items {
		s[item] = struct{}{}
	}
	return s
}

// Add inserts v.
func (s Set) Add(v string) {
	s[v] = struct{}{}
}

// AddAll inserts every element of o.
func (s Set) AddAll(o Set) {
	for v := range o {
		s[v] = struct{}{}
	}
}

// Has reports whether v is in the set.
func (s Set) Has(v string) bool {
	_, ok := s[v]
	return ok
}

// Len returns the number of elements. A nil set has length 0.
func (s Set) Len() int {
	return len(s)
}

// Union returns a new set with the elements of both sets.
func (s Set) Union(o Set) Set {
	out := make(Set, len(s)+len(o))
	out.AddAll(s)
	out.AddAll(o)
	return out
}

// Intersect returns a new set with the elements present in both sets.
func (s Set) Intersect(o Set) Set {
	small, large := s, o
	if len(large) < len(small) {
		small, large = large, small
	}
	out := make(Set)
	for v := range small {
		if large.Has(v) {
			out.Add(v)
		}
	}
	return out
}

// Difference returns a new set with the elements of s that are not in o.
func (s Set) Difference(o Set) Set {
	out := make(Set)
	for v := range s {
		if !o.Has(v) {
			out.Add(v)
		}
	}
	return out
}

// Sorted returns the elements in ascending order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// MarshalJSON encodes the set as a sorted array.
func (s Set) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}
