package settings

import (
	"sort"
	"strings"

	"github.com/dshills/srcgroup/internal/configstore"
	"github.com/dshills/srcgroup/internal/discovery"
)

// JVM build tools.
const (
	ToolMaven  = "maven"
	ToolGradle = "gradle"
)

// JvmBuild points at a Maven or Gradle project.
type JvmBuild struct {
	Tool             string
	ProjectFilePath  string
	ShouldIndexTests bool
}

func (c *JvmBuild) Kind() string { return "jvm_build:" + c.Tool }

func (c *JvmBuild) Load(store *configstore.Store, prefix string) {
	c.ProjectFilePath = store.String(configstore.Join(prefix, c.Tool, "project_file_path"), "")
	c.ShouldIndexTests = store.Bool(configstore.Join(prefix, c.Tool, "should_index_tests"), false)
}

func (c *JvmBuild) Save(store *configstore.Store, prefix string) {
	store.SetString(configstore.Join(prefix, c.Tool, "project_file_path"), c.ProjectFilePath)
	store.SetBool(configstore.Join(prefix, c.Tool, "should_index_tests"), c.ShouldIndexTests)
}

func (c *JvmBuild) Equal(other Component) bool {
	o, ok := other.(*JvmBuild)
	return ok && *c == *o
}

// ExpandedProjectFilePath returns the build file path expanded and absolute.
func (c *JvmBuild) ExpandedProjectFilePath(projectDir string) string {
	return discovery.ExpandPath(c.ProjectFilePath, projectDir)
}

// Classpath lists extra jars and directories for JVM commands.
type Classpath struct {
	Paths               []string
	UseJreSystemLibrary bool
}

// NewClasspath returns a classpath that includes the JRE system library.
func NewClasspath() *Classpath {
	return &Classpath{UseJreSystemLibrary: true}
}

func (c *Classpath) Kind() string { return "classpath" }

func (c *Classpath) Load(store *configstore.Store, prefix string) {
	c.Paths = loadList(store, configstore.Join(prefix, "class_paths/class_path"))
	c.UseJreSystemLibrary = store.Bool(configstore.Join(prefix, "use_jre_system_library"), true)
}

func (c *Classpath) Save(store *configstore.Store, prefix string) {
	store.SetStrings(configstore.Join(prefix, "class_paths/class_path"), c.Paths)
	store.SetBool(configstore.Join(prefix, "use_jre_system_library"), c.UseJreSystemLibrary)
}

func (c *Classpath) Equal(other Component) bool {
	o, ok := other.(*Classpath)
	return ok && c.UseJreSystemLibrary == o.UseJreSystemLibrary && sameElements(c.Paths, o.Paths)
}

// Expanded returns the classpath entries expanded and absolute.
func (c *Classpath) Expanded(projectDir string) []string {
	return discovery.ExpandPaths(c.Paths, projectDir)
}

// PythonEnvironment is the interpreter environment used to resolve imports.
type PythonEnvironment struct {
	Path string
}

func (c *PythonEnvironment) Kind() string { return "python_environment" }

func (c *PythonEnvironment) Load(store *configstore.Store, prefix string) {
	c.Path = store.String(configstore.Join(prefix, "python_environment_path"), "")
}

func (c *PythonEnvironment) Save(store *configstore.Store, prefix string) {
	store.SetString(configstore.Join(prefix, "python_environment_path"), c.Path)
}

func (c *PythonEnvironment) Equal(other Component) bool {
	o, ok := other.(*PythonEnvironment)
	return ok && c.Path == o.Path
}

// Expanded returns the environment path expanded and absolute, or "".
func (c *PythonEnvironment) Expanded(projectDir string) string {
	return discovery.ExpandPath(c.Path, projectDir)
}

// Placeholders recognized in custom command templates.
const (
	PlaceholderSourceFilePath   = "%{SOURCE_FILE_PATH}"
	PlaceholderDatabaseFilePath = "%{DATABASE_FILE_PATH}"
	PlaceholderProjectFilePath  = "%{PROJECT_FILE_PATH}"
	PlaceholderStorageVersion   = "%{STORAGE_VERSION}"
)

// CustomCommand is a shell command template run once per source file.
type CustomCommand struct {
	Command       string
	RunInParallel bool
}

func (c *CustomCommand) Kind() string { return "custom_command" }

func (c *CustomCommand) Load(store *configstore.Store, prefix string) {
	c.Command = store.String(configstore.Join(prefix, "custom_command"), "")
	c.RunInParallel = store.Bool(configstore.Join(prefix, "run_in_parallel"), false)
}

func (c *CustomCommand) Save(store *configstore.Store, prefix string) {
	store.SetString(configstore.Join(prefix, "custom_command"), c.Command)
	store.SetBool(configstore.Join(prefix, "run_in_parallel"), c.RunInParallel)
}

func (c *CustomCommand) Equal(other Component) bool {
	o, ok := other.(*CustomCommand)
	return ok && *c == *o
}

// HasSourcePlaceholder reports whether the template can address a file.
func (c *CustomCommand) HasSourcePlaceholder() bool {
	return strings.Contains(c.Command, PlaceholderSourceFilePath)
}

// RawEntry is one key of a RawBag, relative to the group prefix.
type RawEntry struct {
	Key    string
	Values []string
}

// RawBag keeps every key of a group the running version cannot interpret
// so it is written back unchanged. Only the type tag is left to the group.
type RawBag struct {
	Entries []RawEntry
}

func (c *RawBag) Kind() string { return "raw" }

func (c *RawBag) Load(store *configstore.Store, prefix string) {
	c.Entries = nil
	for _, key := range store.KeysUnder(prefix) {
		rel := strings.TrimPrefix(strings.TrimPrefix(key, prefix), configstore.Separator)
		if rel == "" || rel == "type" {
			continue
		}
		c.Entries = append(c.Entries, RawEntry{Key: rel, Values: store.Values(key)})
	}
}

func (c *RawBag) Save(store *configstore.Store, prefix string) {
	for _, e := range c.Entries {
		store.SetStrings(configstore.Join(prefix, e.Key), e.Values)
	}
}

func (c *RawBag) Equal(other Component) bool {
	o, ok := other.(*RawBag)
	if !ok || len(c.Entries) != len(o.Entries) {
		return false
	}
	a, b := c.sorted(), o.sorted()
	for i := range a {
		if a[i].Key != b[i].Key || strings.Join(a[i].Values, "\x00") != strings.Join(b[i].Values, "\x00") {
			return false
		}
	}
	return true
}

func (c *RawBag) sorted() []RawEntry {
	out := append([]RawEntry(nil), c.Entries...)
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
