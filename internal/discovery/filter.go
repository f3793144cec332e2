package discovery

import (
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Filter matches paths against a set of wildcard patterns. A single "*"
// never crosses a path separator; "**" does, whether it stands alone as a
// path segment ("src/**/x.h") or is embedded in one ("src**x.h"). Every
// other character, including "?", "[" and "{", matches itself.
type Filter struct {
	raw      []string
	patterns []string
}

// NewFilter compiles patterns. Empty patterns are ignored; patterns that
// doublestar rejects never match.
func NewFilter(patterns ...string) *Filter {
	f := &Filter{}
	for _, p := range patterns {
		if p == "" {
			continue
		}
		f.raw = append(f.raw, p)
		for _, expanded := range expandDoubleStar(escapeMeta(filepath.ToSlash(p))) {
			if doublestar.ValidatePattern(expanded) {
				f.patterns = append(f.patterns, expanded)
			}
		}
	}
	return f
}

// Patterns returns the patterns the filter was built from.
func (f *Filter) Patterns() []string {
	if f == nil {
		return nil
	}
	return append([]string(nil), f.raw...)
}

// Empty reports whether the filter has no patterns.
func (f *Filter) Empty() bool {
	return f == nil || len(f.patterns) == 0
}

// Match reports whether path matches any pattern.
func (f *Filter) Match(path string) bool {
	if f == nil {
		return false
	}
	path = filepath.ToSlash(path)
	for _, pattern := range f.patterns {
		matched, err := doublestar.Match(pattern, path)
		if err != nil {
			continue
		}
		if matched {
			return true
		}
	}
	return false
}

// expandDoubleStar rewrites every "**" that is not a whole path segment into
// the two doublestar forms it stands for: a run inside one segment ("*") and
// a run spanning segments ("*/**/*").
func expandDoubleStar(p string) []string {
	for start := 0; ; {
		j := strings.Index(p[start:], "**")
		if j < 0 {
			return []string{p}
		}
		i := start + j
		end := i + 2
		for end < len(p) && p[end] == '*' {
			end++
		}
		segmentStart := i == 0 || p[i-1] == '/'
		segmentEnd := end == len(p) || p[end] == '/'
		if segmentStart && segmentEnd {
			start = end
			continue
		}

		left, right := p[:i], p[end:]
		var out []string
		for _, r := range expandDoubleStar(right) {
			out = append(out, left+"*"+r, left+"*/**/*"+r)
		}
		return out
	}
}

// escapeMeta quotes every doublestar metacharacter except "*".
func escapeMeta(p string) string {
	if !strings.ContainsAny(p, `\[]{}?`) {
		return p
	}
	var b strings.Builder
	for _, r := range p {
		switch r {
		case '\\', '[', ']', '{', '}', '?':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
