package project

import (
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/dshills/srcgroup/internal/configstore"
	"github.com/dshills/srcgroup/internal/indexer"
	"github.com/dshills/srcgroup/internal/settings"
)

// settingsDiff renders a unified diff from the settings the index was built
// with to the current ones.
func settingsDiff(stored, current string) string {
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(stored),
		B:        difflib.SplitLines(current),
		FromFile: "indexed",
		ToFile:   "current",
		Context:  3,
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return ""
	}
	return text
}

// groupSettingsHash fingerprints a group's settings. Values are sorted per
// key and the display name is skipped so the hash agrees with
// SourceGroupSettings.Equal.
func groupSettingsHash(g *settings.SourceGroupSettings) uint64 {
	store := configstore.New()
	g.Save(store)
	nameKey := g.Key() + "/name"

	var b strings.Builder
	for _, key := range store.SortedKeys() {
		if key == nameKey {
			continue
		}
		values := append([]string(nil), store.Values(key)...)
		sort.Strings(values)
		b.WriteString(key)
		for _, v := range values {
			b.WriteByte(0)
			b.WriteString(v)
		}
		b.WriteByte('\n')
	}
	return indexer.SettingsHash(b.String())
}
