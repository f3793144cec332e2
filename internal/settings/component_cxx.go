package settings

import (
	"strings"

	"github.com/dshills/srcgroup/internal/configstore"
	"github.com/dshills/srcgroup/internal/discovery"
)

// Default language standards.
const (
	DefaultCStandard    = "c11"
	DefaultCppStandard  = "c++17"
	DefaultJavaStandard = "12"
)

// Standard is the language standard of one language. C and C++ groups built
// from Code::Blocks projects carry one Standard per language.
type Standard struct {
	Language Language
	Value    string
}

// NewStandard returns a standard component set to the language default.
func NewStandard(lang Language) *Standard {
	return &Standard{Language: lang, Value: DefaultStandard(lang)}
}

// DefaultStandard returns the default standard of lang.
func DefaultStandard(lang Language) string {
	switch lang {
	case LanguageC:
		return DefaultCStandard
	case LanguageCpp:
		return DefaultCppStandard
	case LanguageJava:
		return DefaultJavaStandard
	default:
		return ""
	}
}

func (c *Standard) Kind() string { return "standard_" + string(c.Language) }

func (c *Standard) key(prefix string) string {
	return configstore.Join(prefix, string(c.Language)+"_standard")
}

func (c *Standard) Load(store *configstore.Store, prefix string) {
	c.Value = store.String(c.key(prefix), DefaultStandard(c.Language))
	if c.Value == "" {
		c.Value = DefaultStandard(c.Language)
	}
}

func (c *Standard) Save(store *configstore.Store, prefix string) {
	store.SetString(c.key(prefix), c.Value)
}

func (c *Standard) Equal(other Component) bool {
	o, ok := other.(*Standard)
	return ok && c.Language == o.Language && c.Value == o.Value
}

// CrossCompilation selects a target triple for native commands.
type CrossCompilation struct {
	Enabled bool
	Arch    string
	Vendor  string
	Sys     string
	ABI     string
}

func (c *CrossCompilation) Kind() string { return "cross_compilation" }

func (c *CrossCompilation) Load(store *configstore.Store, prefix string) {
	base := configstore.Join(prefix, "cross_compilation")
	c.Enabled = store.Bool(base+"/target_options_enabled", false)
	c.Arch = store.String(base+"/target/arch", "")
	c.Vendor = store.String(base+"/target/vendor", "")
	c.Sys = store.String(base+"/target/sys", "")
	c.ABI = store.String(base+"/target/abi", "")
}

func (c *CrossCompilation) Save(store *configstore.Store, prefix string) {
	base := configstore.Join(prefix, "cross_compilation")
	store.SetBool(base+"/target_options_enabled", c.Enabled)
	store.SetString(base+"/target/arch", c.Arch)
	store.SetString(base+"/target/vendor", c.Vendor)
	store.SetString(base+"/target/sys", c.Sys)
	store.SetString(base+"/target/abi", c.ABI)
}

func (c *CrossCompilation) Equal(other Component) bool {
	o, ok := other.(*CrossCompilation)
	return ok && *c == *o
}

// TargetFlag returns "--target=<arch>-<vendor>-<sys>-<abi>" or "" when cross
// compilation is off or no architecture is set. Missing parts read
// "unknown".
func (c *CrossCompilation) TargetFlag() string {
	if !c.Enabled || c.Arch == "" {
		return ""
	}
	parts := []string{c.Arch, c.Vendor, c.Sys, c.ABI}
	for i, p := range parts {
		if p == "" {
			parts[i] = "unknown"
		}
	}
	return "--target=" + strings.Join(parts, "-")
}

// Pch configures a precompiled header built before indexing.
type Pch struct {
	InputFilePath    string
	Flags            []string
	UseCompilerFlags bool
}

func (c *Pch) Kind() string { return "pch" }

func (c *Pch) Load(store *configstore.Store, prefix string) {
	c.InputFilePath = store.String(configstore.Join(prefix, "pch_input_file_path"), "")
	c.Flags = loadList(store, configstore.Join(prefix, "pch_flags/pch_flag"))
	c.UseCompilerFlags = store.Bool(configstore.Join(prefix, "pch_use_compiler_flags"), false)
}

func (c *Pch) Save(store *configstore.Store, prefix string) {
	store.SetString(configstore.Join(prefix, "pch_input_file_path"), c.InputFilePath)
	store.SetStrings(configstore.Join(prefix, "pch_flags/pch_flag"), c.Flags)
	store.SetBool(configstore.Join(prefix, "pch_use_compiler_flags"), c.UseCompilerFlags)
}

func (c *Pch) Equal(other Component) bool {
	o, ok := other.(*Pch)
	return ok &&
		c.InputFilePath == o.InputFilePath &&
		c.UseCompilerFlags == o.UseCompilerFlags &&
		sameElements(c.Flags, o.Flags)
}

// ExpandedInputFilePath returns the pch input path expanded and absolute.
func (c *Pch) ExpandedInputFilePath(projectDir string) string {
	return discovery.ExpandPath(c.InputFilePath, projectDir)
}

// Build-file keys of the native build-description groups.
const (
	BuildFileKeyCompilationDB = "build_file_path/compilation_db_path"
	BuildFileKeyCodeblocks    = "build_file_path/codeblocks_project_path"
	BuildFileKeySonargraph    = "sonargraph/project_file_path"
)

// BuildFile is the path of the build description a group reads its sources
// from.
type BuildFile struct {
	Key  string
	Path string
}

func (c *BuildFile) Kind() string { return "build_file:" + c.Key }

func (c *BuildFile) Load(store *configstore.Store, prefix string) {
	c.Path = store.String(configstore.Join(prefix, c.Key), "")
}

func (c *BuildFile) Save(store *configstore.Store, prefix string) {
	store.SetString(configstore.Join(prefix, c.Key), c.Path)
}

func (c *BuildFile) Equal(other Component) bool {
	o, ok := other.(*BuildFile)
	return ok && c.Key == o.Key && c.Path == o.Path
}

// Expanded returns the build file path expanded and absolute, or "" when
// unset.
func (c *BuildFile) Expanded(projectDir string) string {
	return discovery.ExpandPath(c.Path, projectDir)
}
