package settings

import (
	"github.com/dshills/srcgroup/internal/configstore"
)

// Component is one independently stored piece of a source group's
// configuration. Load never fails: absent keys fall back to the component's
// default. Equal compares list values without regard to order.
type Component interface {
	// Kind identifies the component within a group. Two components of the
	// same kind are comparable.
	Kind() string
	Load(store *configstore.Store, prefix string)
	Save(store *configstore.Store, prefix string)
	Equal(other Component) bool
}

// Find returns the first component of type T.
func Find[T Component](components []Component) (T, bool) {
	for _, c := range components {
		if typed, ok := c.(T); ok {
			return typed, true
		}
	}
	var zero T
	return zero, false
}

// componentsEqual requires both lists to hold the same kinds, each pairwise
// equal. A component present on one side only makes the lists differ.
func componentsEqual(a, b []Component) bool {
	if len(a) != len(b) {
		return false
	}
	byKind := make(map[string]Component, len(b))
	for _, c := range b {
		byKind[c.Kind()] = c
	}
	for _, c := range a {
		other, ok := byKind[c.Kind()]
		if !ok || !c.Equal(other) {
			return false
		}
	}
	return true
}

// sameElements compares two lists as multisets.
func sameElements(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[string]int, len(a))
	for _, v := range a {
		counts[v]++
	}
	for _, v := range b {
		counts[v]--
		if counts[v] < 0 {
			return false
		}
	}
	return true
}

func copyStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

// loadList reads the repeated values of key, skipping empty entries.
func loadList(store *configstore.Store, key string) []string {
	var out []string
	for _, v := range store.Values(key) {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
