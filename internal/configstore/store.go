package configstore

import (
	"sort"
	"strconv"
	"strings"
)

// Separator joins key segments.
const Separator = "/"

// Store is an ordered key to values map. Keys are slash separated paths and
// every key may hold several values (repeated elements on disk).
type Store struct {
	keys   []string
	values map[string][]string
}

// New returns an empty store.
func New() *Store {
	return &Store{values: make(map[string][]string)}
}

// Keys returns all leaf keys in insertion order.
func (s *Store) Keys() []string {
	out := make([]string, len(s.keys))
	copy(out, s.keys)
	return out
}

// Len returns the number of leaf keys.
func (s *Store) Len() int {
	return len(s.keys)
}

// Has reports whether key holds a value or has any sub key.
func (s *Store) Has(key string) bool {
	if _, ok := s.values[key]; ok {
		return true
	}
	prefix := key + Separator
	for _, k := range s.keys {
		if strings.HasPrefix(k, prefix) {
			return true
		}
	}
	return false
}

// Values returns a copy of the values stored at key.
func (s *Store) Values(key string) []string {
	vals, ok := s.values[key]
	if !ok {
		return nil
	}
	out := make([]string, len(vals))
	copy(out, vals)
	return out
}

// String returns the first value at key or def.
func (s *Store) String(key, def string) string {
	vals := s.values[key]
	if len(vals) == 0 {
		return def
	}
	return vals[0]
}

// Strings returns all values at key or def when the key is absent.
func (s *Store) Strings(key string, def []string) []string {
	if _, ok := s.values[key]; !ok {
		return def
	}
	return s.Values(key)
}

// Bool returns the boolean at key or def when absent or malformed.
func (s *Store) Bool(key string, def bool) bool {
	vals := s.values[key]
	if len(vals) == 0 {
		return def
	}
	switch strings.ToLower(strings.TrimSpace(vals[0])) {
	case "1", "true", "yes":
		return true
	case "0", "false", "no":
		return false
	}
	return def
}

// Int returns the integer at key or def when absent or malformed.
func (s *Store) Int(key string, def int) int {
	vals := s.values[key]
	if len(vals) == 0 {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(vals[0]))
	if err != nil {
		return def
	}
	return n
}

// SetString replaces the values at key with value.
func (s *Store) SetString(key, value string) {
	s.SetStrings(key, []string{value})
}

// SetStrings replaces the values at key. An empty slice removes the key.
func (s *Store) SetStrings(key string, values []string) {
	if len(values) == 0 {
		s.removeExact(key)
		return
	}
	if _, ok := s.values[key]; !ok {
		s.keys = append(s.keys, key)
	}
	vals := make([]string, len(values))
	copy(vals, values)
	s.values[key] = vals
}

// AddString appends value to the values at key.
func (s *Store) AddString(key, value string) {
	if _, ok := s.values[key]; !ok {
		s.keys = append(s.keys, key)
	}
	s.values[key] = append(s.values[key], value)
}

// SetBool stores a boolean as "true" or "false".
func (s *Store) SetBool(key string, value bool) {
	s.SetString(key, strconv.FormatBool(value))
}

// SetInt stores an integer.
func (s *Store) SetInt(key string, value int) {
	s.SetString(key, strconv.Itoa(value))
}

// Remove deletes key and every key below it.
func (s *Store) Remove(key string) {
	prefix := key + Separator
	kept := s.keys[:0]
	for _, k := range s.keys {
		if k == key || strings.HasPrefix(k, prefix) {
			delete(s.values, k)
			continue
		}
		kept = append(kept, k)
	}
	s.keys = kept
}

func (s *Store) removeExact(key string) {
	if _, ok := s.values[key]; !ok {
		return
	}
	delete(s.values, key)
	for i, k := range s.keys {
		if k == key {
			s.keys = append(s.keys[:i], s.keys[i+1:]...)
			return
		}
	}
}

// SublevelKeys returns the full keys of the direct children of key, in the
// order they first appear. An empty key lists the top level.
func (s *Store) SublevelKeys(key string) []string {
	prefix := ""
	if key != "" {
		prefix = key + Separator
	}
	seen := make(map[string]bool)
	var out []string
	for _, k := range s.keys {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		rest := k[len(prefix):]
		if rest == "" {
			continue
		}
		child := rest
		if i := strings.Index(rest, Separator); i >= 0 {
			child = rest[:i]
		}
		full := prefix + child
		if !seen[full] {
			seen[full] = true
			out = append(out, full)
		}
	}
	return out
}

// KeysUnder returns key itself (if set) and every leaf key below it.
func (s *Store) KeysUnder(key string) []string {
	prefix := key + Separator
	var out []string
	for _, k := range s.keys {
		if k == key || strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	return out
}

// Clone returns a deep copy.
func (s *Store) Clone() *Store {
	c := New()
	for _, k := range s.keys {
		c.SetStrings(k, s.values[k])
	}
	return c
}

// Equal reports whether both stores hold the same keys and values. Key
// order is ignored; value order is not.
func (s *Store) Equal(other *Store) bool {
	if other == nil || len(s.keys) != len(other.keys) {
		return false
	}
	for k, vals := range s.values {
		ov, ok := other.values[k]
		if !ok || len(ov) != len(vals) {
			return false
		}
		for i := range vals {
			if vals[i] != ov[i] {
				return false
			}
		}
	}
	return true
}

// SortedKeys returns all leaf keys sorted lexically.
func (s *Store) SortedKeys() []string {
	out := s.Keys()
	sort.Strings(out)
	return out
}

// Join builds a key from segments, skipping empty ones.
func Join(segments ...string) string {
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		seg = strings.Trim(seg, Separator)
		if seg != "" {
			parts = append(parts, seg)
		}
	}
	return strings.Join(parts, Separator)
}
