package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dshills/srcgroup/internal/configstore"
	"github.com/dshills/srcgroup/pkg/types"
)

// File extensions of a project and its databases.
const (
	ProjectFileExtension = ".srctrlprj"
	DBFileExtension      = ".srctrldb"
	TempDBFileExtension  = ".srctrldb_tmp"
	DependenciesDirName  = "sourcetrail_dependencies"
)

// ErrUnknownType is reported for groups whose type tag is not recognized.
// Such groups load as TypeUnloadable.
var ErrUnknownType = errors.New("unknown source group type")

// ProjectSettings is the versioned top-level configuration of a project.
type ProjectSettings struct {
	// Path is the project file.
	Path        string
	Version     int
	Description string
	Groups      []*SourceGroupSettings

	store *configstore.Store
}

// NewProjectSettings returns empty settings for a project file at path.
func NewProjectSettings(path string) *ProjectSettings {
	return &ProjectSettings{
		Path:    path,
		Version: ProjectVersion,
		store:   configstore.New(),
	}
}

// LoadProjectSettings reads a project file. A file that cannot be parsed
// yields types.ErrSettingsCorrupt.
func LoadProjectSettings(path string) (*ProjectSettings, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	store, err := configstore.Load(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", types.ErrSettingsCorrupt, err)
	}
	return FromStore(store, abs), nil
}

// FromStore interprets a loaded store as project settings.
func FromStore(store *configstore.Store, path string) *ProjectSettings {
	p := &ProjectSettings{Path: path, store: store}
	p.readStore()
	return p
}

func (p *ProjectSettings) readStore() {
	p.Version = p.store.Int("version", 0)
	p.Description = p.store.String("description", "")
	p.Groups = nil
	for _, key := range p.store.SublevelKeys("source_groups") {
		id, ok := groupIDFromKey(key)
		if !ok {
			continue
		}
		tag := p.store.String(key+"/type", "")
		t, _ := ParseType(tag)
		g := NewSourceGroupSettings(id, t)
		g.Tag = tag
		g.Load(p.store)
		p.Groups = append(p.Groups, g)
	}
}

// Store returns the underlying store with the current groups written in.
func (p *ProjectSettings) Store() *configstore.Store {
	out := configstore.New()
	out.SetInt("version", p.Version)
	if p.Description != "" {
		out.SetString("description", p.Description)
	}
	if p.store != nil {
		for _, key := range p.store.Keys() {
			if key == "version" || key == "description" || isGroupKey(key) {
				continue
			}
			out.SetStrings(key, p.store.Values(key))
		}
	}
	for _, g := range p.Groups {
		g.Save(out)
	}
	return out
}

// isGroupKey reports whether key lies inside a source group block.
func isGroupKey(key string) bool {
	if !strings.HasPrefix(key, GroupKeyPrefix) {
		return false
	}
	block, _, _ := strings.Cut(key[len("source_groups/"):], configstore.Separator)
	_, ok := groupIDFromKey("source_groups/" + block)
	return ok
}

// Save writes the settings to Path.
func (p *ProjectSettings) Save() error {
	store := p.Store()
	if err := store.Save(p.Path); err != nil {
		return fmt.Errorf("failed to save project settings: %w", err)
	}
	p.store = store
	return nil
}

// Text returns the settings serialized as XML. Storage keeps this text to
// detect settings changes between runs.
func (p *ProjectSettings) Text() (string, error) {
	data, err := p.Store().Marshal(configstore.FormatXML)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ParseText reads settings previously returned by Text.
func ParseText(text, path string) (*ProjectSettings, error) {
	store, err := configstore.Parse(strings.NewReader(text), configstore.FormatXML)
	if err != nil {
		return nil, err
	}
	return FromStore(store, path), nil
}

// AddGroup appends a group. Ids must be unique within a project.
func (p *ProjectSettings) AddGroup(g *SourceGroupSettings) error {
	if p.Group(g.ID) != nil {
		return fmt.Errorf("%w: %s", types.ErrDuplicateGroupID, g.ID)
	}
	p.Groups = append(p.Groups, g)
	return nil
}

// RemoveGroup drops the group with id and reports whether it existed.
func (p *ProjectSettings) RemoveGroup(id string) bool {
	for i, g := range p.Groups {
		if g.ID == id {
			p.Groups = append(p.Groups[:i], p.Groups[i+1:]...)
			return true
		}
	}
	return false
}

// Group returns the group with id or nil.
func (p *ProjectSettings) Group(id string) *SourceGroupSettings {
	for _, g := range p.Groups {
		if g.ID == id {
			return g
		}
	}
	return nil
}

// EnabledGroups returns groups that take part in indexing.
func (p *ProjectSettings) EnabledGroups() []*SourceGroupSettings {
	var out []*SourceGroupSettings
	for _, g := range p.Groups {
		if g.Enabled() {
			out = append(out, g)
		}
	}
	return out
}

// EqualExceptNameAndLocation reports whether both projects hold the same
// groups in any order. Group names, the project file location and the
// description are not compared.
func (p *ProjectSettings) EqualExceptNameAndLocation(other *ProjectSettings) bool {
	if other == nil || len(p.Groups) != len(other.Groups) {
		return false
	}
	for _, mine := range p.Groups {
		matched := false
		for _, theirs := range other.Groups {
			if mine.Equal(theirs) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

// NeedsMigration reports whether the stored format is older than this
// build understands. Version 0 marks a new file and never migrates.
func (p *ProjectSettings) NeedsMigration() bool {
	if p.store == nil || p.store.Int("version", 0) == 0 {
		return false
	}
	return ProjectMigrator(nil).WillMigrate(p.store, ProjectVersion)
}

// Migrate upgrades the settings to ProjectVersion and saves them when a
// migration ran.
func (p *ProjectSettings) Migrate() (bool, error) {
	return p.MigrateWith(ProjectMigrator(nil))
}

// MigrateWith runs the given migrator instead of the default one.
func (p *ProjectSettings) MigrateWith(m *Migrator) (bool, error) {
	if p.store == nil {
		p.store = p.Store()
	}
	migrated, err := m.Migrate(p.store, ProjectVersion)
	if err != nil {
		return false, fmt.Errorf("failed to migrate project settings: %w", err)
	}
	p.readStore()
	if !migrated {
		return false, nil
	}
	if err := p.Save(); err != nil {
		return true, err
	}
	return true, nil
}

// ProjectName is the project file name without extension.
func (p *ProjectSettings) ProjectName() string {
	base := filepath.Base(p.Path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ProjectDir is the directory of the project file. Relative paths in group
// settings resolve against it.
func (p *ProjectSettings) ProjectDir() string {
	return filepath.Dir(p.Path)
}

// DBPath is the index database next to the project file.
func (p *ProjectSettings) DBPath() string {
	return replaceExt(p.Path, DBFileExtension)
}

// TempDBPath is the database indexers write to during a refresh.
func (p *ProjectSettings) TempDBPath() string {
	return replaceExt(p.Path, TempDBFileExtension)
}

// DependenciesDir holds materialized build dependencies, one subdirectory
// per group id.
func (p *ProjectSettings) DependenciesDir() string {
	return filepath.Join(p.ProjectDir(), DependenciesDirName)
}

// GroupDependenciesDir is the dependency directory of one group.
func (p *ProjectSettings) GroupDependenciesDir(id string) string {
	return filepath.Join(p.DependenciesDir(), id)
}

func replaceExt(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}
