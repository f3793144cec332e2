package settings

import (
	"strings"

	"github.com/dshills/srcgroup/internal/configstore"
	"github.com/dshills/srcgroup/internal/discovery"
)

// SourcePaths lists files and directories whose sources belong to the group.
type SourcePaths struct {
	Paths []string
}

func (c *SourcePaths) Kind() string { return "source_paths" }

func (c *SourcePaths) Load(store *configstore.Store, prefix string) {
	c.Paths = loadList(store, configstore.Join(prefix, "source_paths/source_path"))
}

func (c *SourcePaths) Save(store *configstore.Store, prefix string) {
	store.SetStrings(configstore.Join(prefix, "source_paths/source_path"), c.Paths)
}

func (c *SourcePaths) Equal(other Component) bool {
	o, ok := other.(*SourcePaths)
	return ok && sameElements(c.Paths, o.Paths)
}

// Expanded returns the paths expanded and made absolute.
func (c *SourcePaths) Expanded(projectDir string) []string {
	return discovery.ExpandPaths(c.Paths, projectDir)
}

// IndexedHeaderPaths lists directories whose headers are indexed along with
// the sources of build-description groups.
type IndexedHeaderPaths struct {
	Paths []string
}

func (c *IndexedHeaderPaths) Kind() string { return "indexed_header_paths" }

func (c *IndexedHeaderPaths) Load(store *configstore.Store, prefix string) {
	c.Paths = loadList(store, configstore.Join(prefix, "indexed_header_paths/indexed_header_path"))
}

func (c *IndexedHeaderPaths) Save(store *configstore.Store, prefix string) {
	store.SetStrings(configstore.Join(prefix, "indexed_header_paths/indexed_header_path"), c.Paths)
}

func (c *IndexedHeaderPaths) Equal(other Component) bool {
	o, ok := other.(*IndexedHeaderPaths)
	return ok && sameElements(c.Paths, o.Paths)
}

// Expanded returns the paths expanded and made absolute.
func (c *IndexedHeaderPaths) Expanded(projectDir string) []string {
	return discovery.ExpandPaths(c.Paths, projectDir)
}

// SourceExtensions lists the file extensions picked up below directory
// roots. Defaults apply while Extensions is empty.
type SourceExtensions struct {
	Extensions []string
	Defaults   []string
}

func (c *SourceExtensions) Kind() string { return "source_extensions" }

func (c *SourceExtensions) Load(store *configstore.Store, prefix string) {
	c.Extensions = loadList(store, configstore.Join(prefix, "source_extensions/source_extension"))
}

func (c *SourceExtensions) Save(store *configstore.Store, prefix string) {
	store.SetStrings(configstore.Join(prefix, "source_extensions/source_extension"), c.Extensions)
}

func (c *SourceExtensions) Equal(other Component) bool {
	o, ok := other.(*SourceExtensions)
	return ok && sameElements(c.Effective(), o.Effective())
}

// Effective returns the configured extensions or the defaults.
func (c *SourceExtensions) Effective() []string {
	if len(c.Extensions) > 0 {
		return copyStrings(c.Extensions)
	}
	return copyStrings(c.Defaults)
}

// ExcludeFilters holds wildcard patterns removing files from the group.
type ExcludeFilters struct {
	Filters []string
}

func (c *ExcludeFilters) Kind() string { return "exclude_filters" }

func (c *ExcludeFilters) Load(store *configstore.Store, prefix string) {
	c.Filters = loadList(store, configstore.Join(prefix, "exclude_filters/exclude_filter"))
}

func (c *ExcludeFilters) Save(store *configstore.Store, prefix string) {
	store.SetStrings(configstore.Join(prefix, "exclude_filters/exclude_filter"), c.Filters)
}

func (c *ExcludeFilters) Equal(other Component) bool {
	o, ok := other.(*ExcludeFilters)
	return ok && sameElements(c.Filters, o.Filters)
}

// Expanded returns the filter strings expanded and made absolute. Patterns
// starting with a wildcard are kept as they are so they match anywhere.
func (c *ExcludeFilters) Expanded(projectDir string) []string {
	out := make([]string, 0, len(c.Filters))
	for _, f := range c.Filters {
		if strings.HasPrefix(f, "*") {
			out = append(out, f)
			continue
		}
		trailing := strings.HasSuffix(f, "/")
		e := discovery.ExpandPath(f, projectDir)
		if trailing {
			e += "/**"
		}
		out = append(out, e)
	}
	return out
}

// Filter compiles the expanded patterns.
func (c *ExcludeFilters) Filter(projectDir string) *discovery.Filter {
	return discovery.NewFilter(c.Expanded(projectDir)...)
}

// PathsAndFlags holds header search paths, framework search paths and
// compiler flags added to every native command of the group.
type PathsAndFlags struct {
	HeaderSearchPaths    []string
	FrameworkSearchPaths []string
	CompilerFlags        []string
}

func (c *PathsAndFlags) Kind() string { return "paths_and_flags" }

func (c *PathsAndFlags) Load(store *configstore.Store, prefix string) {
	c.HeaderSearchPaths = loadList(store, configstore.Join(prefix, "header_search_paths/header_search_path"))
	c.FrameworkSearchPaths = loadList(store, configstore.Join(prefix, "framework_search_paths/framework_search_path"))
	c.CompilerFlags = loadList(store, configstore.Join(prefix, "compiler_flags/compiler_flag"))
}

func (c *PathsAndFlags) Save(store *configstore.Store, prefix string) {
	store.SetStrings(configstore.Join(prefix, "header_search_paths/header_search_path"), c.HeaderSearchPaths)
	store.SetStrings(configstore.Join(prefix, "framework_search_paths/framework_search_path"), c.FrameworkSearchPaths)
	store.SetStrings(configstore.Join(prefix, "compiler_flags/compiler_flag"), c.CompilerFlags)
}

func (c *PathsAndFlags) Equal(other Component) bool {
	o, ok := other.(*PathsAndFlags)
	return ok &&
		sameElements(c.HeaderSearchPaths, o.HeaderSearchPaths) &&
		sameElements(c.FrameworkSearchPaths, o.FrameworkSearchPaths) &&
		sameElements(c.CompilerFlags, o.CompilerFlags)
}

// ExpandedHeaderSearchPaths returns header search paths expanded and made
// absolute.
func (c *PathsAndFlags) ExpandedHeaderSearchPaths(projectDir string) []string {
	return discovery.ExpandPaths(c.HeaderSearchPaths, projectDir)
}

// ExpandedFrameworkSearchPaths returns framework search paths expanded and
// made absolute.
func (c *PathsAndFlags) ExpandedFrameworkSearchPaths(projectDir string) []string {
	return discovery.ExpandPaths(c.FrameworkSearchPaths, projectDir)
}
