package settings

import (
	"path/filepath"
	"strings"

	"github.com/dshills/srcgroup/internal/configstore"
)

// GroupKeyPrefix starts the key of every source group block.
const GroupKeyPrefix = "source_groups/source_group_"

// SourceGroupSettings is the stored configuration of one source group.
// Name is for display only and does not take part in Equal.
type SourceGroupSettings struct {
	ID     string
	Name   string
	Type   Type
	Status Status
	// Tag is the type string read from disk. It differs from Type only for
	// unloadable groups and is written back verbatim.
	Tag        string
	Components []Component
}

// NewSourceGroupSettings returns settings of type t with the component set
// of that type, each at its default.
func NewSourceGroupSettings(id string, t Type) *SourceGroupSettings {
	return &SourceGroupSettings{
		ID:         id,
		Name:       string(t),
		Type:       t,
		Status:     StatusEnabled,
		Tag:        string(t),
		Components: DefaultComponents(t),
	}
}

// DefaultExtensions returns the source extensions used when a group of type
// t configures none.
func DefaultExtensions(t Type) []string {
	switch t {
	case TypeCEmpty:
		return []string{".c"}
	case TypeCppEmpty:
		return []string{".cpp", ".cxx", ".cc"}
	case TypeCxxCodeblocks:
		return []string{".c", ".cpp", ".cxx", ".cc"}
	case TypeJavaEmpty, TypeJavaMaven, TypeJavaGradle:
		return []string{".java"}
	case TypePythonEmpty:
		return []string{".py"}
	default:
		return nil
	}
}

// DefaultComponents returns the components a group of type t is made of.
func DefaultComponents(t Type) []Component {
	ext := func() *SourceExtensions { return &SourceExtensions{Defaults: DefaultExtensions(t)} }

	switch t {
	case TypeCEmpty, TypeCppEmpty:
		return []Component{
			NewStandard(t.Language()),
			&SourcePaths{},
			ext(),
			&ExcludeFilters{},
			&PathsAndFlags{},
			&CrossCompilation{},
			&Pch{},
		}
	case TypeCxxCdb:
		return []Component{
			&BuildFile{Key: BuildFileKeyCompilationDB},
			&IndexedHeaderPaths{},
			&ExcludeFilters{},
			&PathsAndFlags{},
			&Pch{},
		}
	case TypeCxxCodeblocks:
		return []Component{
			NewStandard(LanguageC),
			NewStandard(LanguageCpp),
			&BuildFile{Key: BuildFileKeyCodeblocks},
			&IndexedHeaderPaths{},
			ext(),
			&ExcludeFilters{},
			&PathsAndFlags{},
		}
	case TypeCxxSonargraph:
		return []Component{
			NewStandard(LanguageCpp),
			&BuildFile{Key: BuildFileKeySonargraph},
			&IndexedHeaderPaths{},
			&ExcludeFilters{},
			&PathsAndFlags{},
		}
	case TypeJavaEmpty:
		return []Component{
			NewStandard(LanguageJava),
			&SourcePaths{},
			ext(),
			&ExcludeFilters{},
			NewClasspath(),
		}
	case TypeJavaMaven:
		return []Component{
			NewStandard(LanguageJava),
			&JvmBuild{Tool: ToolMaven},
			ext(),
			&ExcludeFilters{},
			NewClasspath(),
		}
	case TypeJavaGradle:
		return []Component{
			NewStandard(LanguageJava),
			&JvmBuild{Tool: ToolGradle},
			ext(),
			&ExcludeFilters{},
			NewClasspath(),
		}
	case TypePythonEmpty:
		return []Component{
			&SourcePaths{},
			ext(),
			&ExcludeFilters{},
			&PythonEnvironment{},
		}
	case TypeCustomCommand:
		return []Component{
			&SourcePaths{},
			ext(),
			&ExcludeFilters{},
			&CustomCommand{},
		}
	default:
		return []Component{&RawBag{}}
	}
}

// Key returns the key prefix of the group block.
func (s *SourceGroupSettings) Key() string {
	return GroupKeyPrefix + s.ID
}

// Enabled reports whether the group takes part in indexing.
func (s *SourceGroupSettings) Enabled() bool {
	return s.Status == StatusEnabled
}

// Load reads identity and components from store.
func (s *SourceGroupSettings) Load(store *configstore.Store) {
	key := s.Key()
	s.Tag = store.String(key+"/type", s.Tag)
	s.Name = store.String(key+"/name", s.Name)
	s.Status = ParseStatus(store.String(key+"/status", string(StatusEnabled)))
	for _, c := range s.Components {
		c.Load(store, key)
	}
}

// Save writes identity and components to store, replacing the previous
// block of this group. An unloadable group writes its tag and leaves name
// and status to its RawBag.
func (s *SourceGroupSettings) Save(store *configstore.Store) {
	key := s.Key()
	store.Remove(key)
	if s.Type == TypeUnloadable {
		if s.Tag != "" {
			store.SetString(key+"/type", s.Tag)
		}
	} else {
		store.SetString(key+"/type", string(s.Type))
		store.SetString(key+"/name", s.Name)
		store.SetString(key+"/status", string(s.Status))
	}
	for _, c := range s.Components {
		c.Save(store, key)
	}
}

// Equal compares id, type, status and every component. The name is
// ignored.
func (s *SourceGroupSettings) Equal(other *SourceGroupSettings) bool {
	if other == nil {
		return false
	}
	return s.ID == other.ID &&
		s.Type == other.Type &&
		s.Tag == other.Tag &&
		s.Status == other.Status &&
		componentsEqual(s.Components, other.Components)
}

// Clone returns a deep copy through a store round trip.
func (s *SourceGroupSettings) Clone() *SourceGroupSettings {
	store := configstore.New()
	s.Save(store)
	c := NewSourceGroupSettings(s.ID, s.Type)
	c.Tag = s.Tag
	if s.Type == TypeUnloadable {
		c.Components = []Component{&RawBag{}}
	}
	c.Load(store)
	return c
}

// Standard returns the standard component for lang.
func (s *SourceGroupSettings) Standard(lang Language) *Standard {
	for _, c := range s.Components {
		if std, ok := c.(*Standard); ok && std.Language == lang {
			return std
		}
	}
	return nil
}

// groupIDFromKey extracts the id from "source_groups/source_group_<id>".
func groupIDFromKey(key string) (string, bool) {
	if !strings.HasPrefix(key, GroupKeyPrefix) {
		return "", false
	}
	id := key[len(GroupKeyPrefix):]
	return id, id != ""
}

// SourceRoots returns the expanded source paths and the directory of the
// build file, if the group has either.
func (s *SourceGroupSettings) SourceRoots(projectDir string) []string {
	var roots []string
	if c, ok := Find[*SourcePaths](s.Components); ok {
		roots = append(roots, c.Expanded(projectDir)...)
	}
	if c, ok := Find[*BuildFile](s.Components); ok {
		if f := c.Expanded(projectDir); f != "" {
			roots = append(roots, filepath.Dir(f))
		}
	}
	return roots
}
