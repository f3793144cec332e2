package settings

import (
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/dshills/srcgroup/internal/configstore"
)

// ProjectVersion is the settings format version written by this build.
const ProjectVersion = 8

// Migration transforms a settings store in place. Applying a migration
// twice must leave the store as after the first application.
type Migration interface {
	Apply(store *configstore.Store) error
}

// MoveKey moves the values of From to To. A missing From is a no-op.
type MoveKey struct {
	From string
	To   string
}

func (m MoveKey) Apply(store *configstore.Store) error {
	vals := store.Values(m.From)
	if vals == nil {
		return nil
	}
	store.Remove(m.From)
	store.SetStrings(m.To, vals)
	return nil
}

// DeleteKey removes a key and everything below it.
type DeleteKey struct {
	Key string
}

func (m DeleteKey) Apply(store *configstore.Store) error {
	store.Remove(m.Key)
	return nil
}

// Lambda runs an arbitrary transformation.
type Lambda struct {
	Fn func(store *configstore.Store) error
}

func (m Lambda) Apply(store *configstore.Store) error {
	return m.Fn(store)
}

// ForEachGroup runs a per-group migration on every group present when the
// migration is applied, so groups created by earlier steps are included.
type ForEachGroup struct {
	Fn func(store *configstore.Store, key string, t Type) Migration
}

func (m ForEachGroup) Apply(store *configstore.Store) error {
	for _, key := range store.SublevelKeys("source_groups") {
		if _, ok := groupIDFromKey(key); !ok {
			continue
		}
		t, _ := ParseType(store.String(key+"/type", ""))
		mig := m.Fn(store, key, t)
		if mig == nil {
			continue
		}
		if err := mig.Apply(store); err != nil {
			return err
		}
	}
	return nil
}

type versionedMigration struct {
	version   int
	migration Migration
}

// Migrator applies migrations in ascending version order.
type Migrator struct {
	steps []versionedMigration
}

// Add registers a migration for version. Migrations of the same version run
// in the order they were added.
func (m *Migrator) Add(version int, migration Migration) {
	m.steps = append(m.steps, versionedMigration{version: version, migration: migration})
	sort.SliceStable(m.steps, func(i, j int) bool { return m.steps[i].version < m.steps[j].version })
}

// WillMigrate reports whether any migration lies between the stored version
// and target.
func (m *Migrator) WillMigrate(store *configstore.Store, target int) bool {
	current := store.Int("version", 0)
	for _, step := range m.steps {
		if step.version > current && step.version <= target {
			return true
		}
	}
	return false
}

// Migrate applies every migration with stored < version <= target and sets
// the version to target. It reports whether any migration ran.
func (m *Migrator) Migrate(store *configstore.Store, target int) (bool, error) {
	current := store.Int("version", 0)
	migrated := false
	for _, step := range m.steps {
		if step.version <= current || step.version > target {
			continue
		}
		if err := step.migration.Apply(store); err != nil {
			return migrated, err
		}
		migrated = true
	}
	if current < target {
		store.SetInt("version", target)
	}
	return migrated, nil
}

// legacyGroupMoves are the flat keys of version 1 files and their place in
// a source group block.
var legacyGroupMoves = [][2]string{
	{"language_settings/standard", "standard"},
	{"source/source_paths/source_path", "source_paths/source_path"},
	{"source/exclude_paths/exclude_path", "exclude_paths/exclude_path"},
	{"source/extensions/source_extensions", "source_extensions/source_extension"},
	{"source/header_search_paths/header_search_path", "header_search_paths/header_search_path"},
	{"source/use_source_paths_for_header_search", "use_source_paths_for_header_search"},
	{"source/framework_search_paths/framework_search_path", "framework_search_paths/framework_search_path"},
	{"source/compiler_flags/compiler_flag", "compiler_flags/compiler_flag"},
	{"source/build_file_path/compilation_db_path", "build_file_path/compilation_db_path"},
	{"source/class_paths/class_path", "class_paths/class_path"},
	{"source/maven/project_file_path", "maven/project_file_path"},
	{"source/maven/dependencies_directory", "maven/dependencies_directory"},
	{"source/maven/should_index_tests", "maven/should_index_tests"},
}

// ProjectMigrator returns the migrations of the project settings format.
// newID supplies the id of the group created from version 1 files; nil
// uses random UUIDs.
func ProjectMigrator(newID func() string) *Migrator {
	if newID == nil {
		newID = func() string { return uuid.NewString() }
	}
	m := &Migrator{}

	m.Add(1, Lambda{Fn: func(store *configstore.Store) error {
		language := store.String("language_settings/language", "")
		standard := store.String("language_settings/standard", "")
		switch {
		case language == "C" && !strings.HasPrefix(standard, "c"):
			store.SetString("language_settings/standard", "c"+standard)
		case language == "C++" && !strings.HasPrefix(standard, "c++"):
			store.SetString("language_settings/standard", "c++"+standard)
		}
		return nil
	}})

	// Version 2 introduces source groups. The legacy block becomes one group
	// whose type version 3 derives from the legacy language key.
	var legacyKey string
	m.Add(2, MoveKey{From: "info/description", To: "description"})
	m.Add(2, Lambda{Fn: func(store *configstore.Store) error {
		if !hasLegacyBlock(store) {
			return nil
		}
		legacyKey = GroupKeyPrefix + newID()
		for _, mv := range legacyGroupMoves {
			if err := (MoveKey{From: mv[0], To: legacyKey + "/" + mv[1]}).Apply(store); err != nil {
				return err
			}
		}
		return nil
	}})
	m.Add(3, Lambda{Fn: func(store *configstore.Store) error {
		language := store.String("language_settings/language", "")
		if language == "" {
			return nil
		}
		key := legacyKey
		if key == "" {
			key = untypedGroupKey(store)
		}
		if key == "" || store.Has(key+"/type") {
			return nil
		}
		store.SetString(key+"/type", string(legacyType(store, key, language)))
		return nil
	}})

	m.Add(4, DeleteKey{Key: "language_settings/language"})
	m.Add(4, DeleteKey{Key: "source/build_file_path/vs_solution_path"})
	m.Add(4, DeleteKey{Key: "source/extensions/header_extensions"})

	m.Add(5, ForEachGroup{Fn: func(_ *configstore.Store, key string, _ Type) Migration {
		return MoveKey{From: key + "/exclude_paths/exclude_path", To: key + "/exclude_filters/exclude_filter"}
	}})
	m.Add(6, ForEachGroup{Fn: func(_ *configstore.Store, key string, t Type) Migration {
		if t != TypeCxxCdb {
			return nil
		}
		return MoveKey{From: key + "/source_paths/source_path", To: key + "/indexed_header_paths/indexed_header_path"}
	}})
	m.Add(7, ForEachGroup{Fn: func(_ *configstore.Store, key string, t Type) Migration {
		lang := t.Language()
		if lang == LanguageUnknown || lang == LanguagePython {
			return nil
		}
		return MoveKey{From: key + "/standard", To: key + "/" + string(lang) + "_standard"}
	}})
	m.Add(8, ForEachGroup{Fn: func(_ *configstore.Store, key string, _ Type) Migration {
		return MoveKey{From: key + "/python_environment_directory_path", To: key + "/python_environment_path"}
	}})

	return m
}

func hasLegacyBlock(store *configstore.Store) bool {
	if len(store.SublevelKeys("source_groups")) > 0 {
		return false
	}
	return store.Has("source") || store.Has("language_settings")
}

func untypedGroupKey(store *configstore.Store) string {
	for _, key := range store.SublevelKeys("source_groups") {
		if !store.Has(key + "/type") {
			return key
		}
	}
	return ""
}

func legacyType(store *configstore.Store, key, language string) Type {
	switch language {
	case "C", "C++":
		if store.String(key+"/build_file_path/compilation_db_path", "") != "" {
			return TypeCxxCdb
		}
		if language == "C" {
			return TypeCEmpty
		}
		return TypeCppEmpty
	case "Java":
		if store.String(key+"/gradle/project_file_path", "") != "" {
			return TypeJavaGradle
		}
		if store.String(key+"/maven/project_file_path", "") != "" {
			return TypeJavaMaven
		}
		return TypeJavaEmpty
	default:
		return TypeUnloadable
	}
}
