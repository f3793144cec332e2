package configstore

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// tomlValueKey holds the value of a key that also has sub keys.
const tomlValueKey = "_"

// decodeTOML loads nested tables into the store. Table keys are visited in
// sorted order because TOML tables carry no order of their own.
func decodeTOML(r io.Reader, s *Store) error {
	var doc map[string]interface{}
	if err := toml.NewDecoder(r).Decode(&doc); err != nil {
		return fmt.Errorf("failed to parse toml settings: %w", err)
	}
	return flattenTOML(doc, "", s)
}

func flattenTOML(table map[string]interface{}, prefix string, s *Store) error {
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		key := prefix
		if name != tomlValueKey {
			key = Join(prefix, name)
		}
		switch v := table[name].(type) {
		case map[string]interface{}:
			if err := flattenTOML(v, key, s); err != nil {
				return err
			}
		case []interface{}:
			vals := make([]string, 0, len(v))
			for _, item := range v {
				if _, nested := item.(map[string]interface{}); nested {
					return fmt.Errorf("failed to parse toml settings: arrays of tables are not supported at %q", key)
				}
				vals = append(vals, fmt.Sprint(item))
			}
			s.SetStrings(key, vals)
		default:
			s.SetString(key, fmt.Sprint(v))
		}
	}
	return nil
}

// encodeTOML writes the store as nested tables. Multi-valued keys become
// arrays.
func encodeTOML(w io.Writer, s *Store) error {
	doc := make(map[string]interface{})
	for _, key := range s.keys {
		vals := s.values[key]
		parts := strings.Split(key, Separator)
		table := doc
		for _, part := range parts[:len(parts)-1] {
			table = childTable(table, part)
		}
		last := parts[len(parts)-1]
		var value interface{} = vals[0]
		if len(vals) > 1 {
			value = append([]string(nil), vals...)
		}
		if existing, ok := table[last].(map[string]interface{}); ok {
			existing[tomlValueKey] = value
			continue
		}
		table[last] = value
	}
	return toml.NewEncoder(w).SetIndentTables(true).Encode(doc)
}

func childTable(table map[string]interface{}, name string) map[string]interface{} {
	switch v := table[name].(type) {
	case map[string]interface{}:
		return v
	case nil:
		child := make(map[string]interface{})
		table[name] = child
		return child
	default:
		child := map[string]interface{}{tomlValueKey: v}
		table[name] = child
		return child
	}
}
