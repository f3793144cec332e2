package discovery

import "sort"

// PathSet is a set of absolute file paths.
type PathSet map[string]struct{}

// NewPathSet builds a set from paths.
func NewPathSet(paths ...string) PathSet {
	s := make(PathSet, len(paths))
	for _, p := range paths {
		s[p] = struct{}{}
	}
	return s
}

// Add inserts paths.
func (s PathSet) Add(paths ...string) {
	for _, p := range paths {
		s[p] = struct{}{}
	}
}

// AddSet inserts every path of other.
func (s PathSet) AddSet(other PathSet) {
	for p := range other {
		s[p] = struct{}{}
	}
}

// Remove deletes paths.
func (s PathSet) Remove(paths ...string) {
	for _, p := range paths {
		delete(s, p)
	}
}

// Has reports membership.
func (s PathSet) Has(path string) bool {
	_, ok := s[path]
	return ok
}

// Len returns the number of paths.
func (s PathSet) Len() int {
	return len(s)
}

// Slice returns the paths sorted.
func (s PathSet) Slice() []string {
	out := make([]string, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Clone returns a copy.
func (s PathSet) Clone() PathSet {
	c := make(PathSet, len(s))
	for p := range s {
		c[p] = struct{}{}
	}
	return c
}

// Intersect returns paths present in both sets.
func (s PathSet) Intersect(other PathSet) PathSet {
	small, large := s, other
	if len(large) < len(small) {
		small, large = large, small
	}
	out := make(PathSet)
	for p := range small {
		if large.Has(p) {
			out[p] = struct{}{}
		}
	}
	return out
}

// Difference returns paths of s that are not in other.
func (s PathSet) Difference(other PathSet) PathSet {
	out := make(PathSet)
	for p := range s {
		if !other.Has(p) {
			out[p] = struct{}{}
		}
	}
	return out
}

// Equal reports whether both sets hold the same paths.
func (s PathSet) Equal(other PathSet) bool {
	if len(s) != len(other) {
		return false
	}
	for p := range s {
		if !other.Has(p) {
			return false
		}
	}
	return true
}
