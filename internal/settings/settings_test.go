package settings

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/srcgroup/internal/configstore"
	"github.com/dshills/srcgroup/pkg/types"
)

const testPrefix = "source_groups/source_group_test"

func populatedComponents() []Component {
	return []Component{
		&Standard{Language: LanguageCpp, Value: "c++20"},
		&SourcePaths{Paths: []string{"src", "/abs/lib"}},
		&IndexedHeaderPaths{Paths: []string{"include"}},
		&SourceExtensions{Extensions: []string{".cpp", ".h"}, Defaults: []string{".cpp"}},
		&ExcludeFilters{Filters: []string{"**/gen/**", "third_party/"}},
		&PathsAndFlags{
			HeaderSearchPaths:    []string{"inc", "/usr/local/include"},
			FrameworkSearchPaths: []string{"/Library/Frameworks"},
			CompilerFlags:        []string{"-DDEBUG", "-Wall"},
		},
		&CrossCompilation{Enabled: true, Arch: "armv7", Sys: "linux"},
		&Pch{InputFilePath: "pch.h", Flags: []string{"-O2"}, UseCompilerFlags: true},
		&BuildFile{Key: BuildFileKeyCompilationDB, Path: "build/compile_commands.json"},
		&JvmBuild{Tool: ToolMaven, ProjectFilePath: "pom.xml", ShouldIndexTests: true},
		&Classpath{Paths: []string{"lib/a.jar"}, UseJreSystemLibrary: false},
		&PythonEnvironment{Path: "venv"},
		&CustomCommand{Command: "ctags %{SOURCE_FILE_PATH}", RunInParallel: true},
	}
}

func emptyOf(c Component) Component {
	switch v := c.(type) {
	case *Standard:
		return &Standard{Language: v.Language}
	case *SourcePaths:
		return &SourcePaths{}
	case *IndexedHeaderPaths:
		return &IndexedHeaderPaths{}
	case *SourceExtensions:
		return &SourceExtensions{Defaults: v.Defaults}
	case *ExcludeFilters:
		return &ExcludeFilters{}
	case *PathsAndFlags:
		return &PathsAndFlags{}
	case *CrossCompilation:
		return &CrossCompilation{}
	case *Pch:
		return &Pch{}
	case *BuildFile:
		return &BuildFile{Key: v.Key}
	case *JvmBuild:
		return &JvmBuild{Tool: v.Tool}
	case *Classpath:
		return &Classpath{}
	case *PythonEnvironment:
		return &PythonEnvironment{}
	case *CustomCommand:
		return &CustomCommand{}
	default:
		return &RawBag{}
	}
}

func TestComponentRoundTrip(t *testing.T) {
	for _, c := range populatedComponents() {
		t.Run(c.Kind()+" populated", func(t *testing.T) {
			store := configstore.New()
			c.Save(store, testPrefix)

			loaded := emptyOf(c)
			loaded.Load(store, testPrefix)
			assert.True(t, c.Equal(loaded))
		})

		t.Run(c.Kind()+" empty", func(t *testing.T) {
			empty := emptyOf(c)
			store := configstore.New()
			empty.Save(store, testPrefix)

			loaded := emptyOf(c)
			loaded.Load(store, testPrefix)
			if std, ok := empty.(*Standard); ok {
				std.Value = DefaultStandard(std.Language)
			}
			assert.True(t, empty.Equal(loaded))
		})
	}
}

func TestComponentDefaultsOnMissingKeys(t *testing.T) {
	store := configstore.New()

	std := &Standard{Language: LanguageJava}
	std.Load(store, testPrefix)
	assert.Equal(t, DefaultJavaStandard, std.Value)

	cp := &Classpath{}
	cp.Load(store, testPrefix)
	assert.True(t, cp.UseJreSystemLibrary)

	ext := &SourceExtensions{Defaults: DefaultExtensions(TypeCppEmpty)}
	ext.Load(store, testPrefix)
	assert.Equal(t, []string{".cpp", ".cxx", ".cc"}, ext.Effective())
}

func TestComponentPermutationInvariance(t *testing.T) {
	a := &PathsAndFlags{
		HeaderSearchPaths: []string{"a", "b", "c"},
		CompilerFlags:     []string{"-DX", "-DY"},
	}
	b := &PathsAndFlags{
		HeaderSearchPaths: []string{"c", "a", "b"},
		CompilerFlags:     []string{"-DY", "-DX"},
	}
	assert.True(t, a.Equal(b))

	assert.True(t, (&ExcludeFilters{Filters: []string{"x", "y"}}).Equal(&ExcludeFilters{Filters: []string{"y", "x"}}))
	assert.False(t, (&ExcludeFilters{Filters: []string{"x", "x"}}).Equal(&ExcludeFilters{Filters: []string{"x", "y"}}))

	b.CompilerFlags = append(b.CompilerFlags, "-DZ")
	assert.False(t, a.Equal(b))

	assert.False(t, a.Equal(&SourcePaths{}))
}

func TestCrossCompilationTargetFlag(t *testing.T) {
	c := &CrossCompilation{Enabled: true, Arch: "x86_64", Vendor: "pc", Sys: "linux"}
	assert.Equal(t, "--target=x86_64-pc-linux-unknown", c.TargetFlag())

	c.Enabled = false
	assert.Empty(t, c.TargetFlag())

	assert.Empty(t, (&CrossCompilation{Enabled: true}).TargetFlag())
}

func TestExcludeFiltersExpanded(t *testing.T) {
	c := &ExcludeFilters{Filters: []string{"**/gen/**", "build/", "src/*.tmp"}}
	assert.Equal(t, []string{"**/gen/**", "/proj/build/**", "/proj/src/*.tmp"}, c.Expanded("/proj"))

	f := c.Filter("/proj")
	assert.True(t, f.Match("/proj/build/x/y.o"))
	assert.True(t, f.Match("/other/gen/a.cpp"))
	assert.False(t, f.Match("/proj/src/a.cpp"))
}

func TestSourceGroupSettingsEquality(t *testing.T) {
	a := NewSourceGroupSettings("g1", TypeCppEmpty)
	b := NewSourceGroupSettings("g1", TypeCppEmpty)
	b.Name = "renamed"
	assert.True(t, a.Equal(b), "name does not take part in equality")

	b.Status = StatusDisabled
	assert.False(t, a.Equal(b))
	b.Status = StatusEnabled

	pf, ok := Find[*PathsAndFlags](b.Components)
	require.True(t, ok)
	pf.CompilerFlags = []string{"-DNEW"}
	assert.False(t, a.Equal(b))

	c := NewSourceGroupSettings("g1", TypeCppEmpty)
	c.Components = c.Components[:len(c.Components)-1]
	assert.False(t, a.Equal(c), "missing component differs")

	assert.False(t, a.Equal(NewSourceGroupSettings("g2", TypeCppEmpty)))
	assert.False(t, a.Equal(NewSourceGroupSettings("g1", TypeCEmpty)))
}

func TestSourceGroupSettingsSaveLoad(t *testing.T) {
	for _, typ := range AllTypes {
		t.Run(string(typ), func(t *testing.T) {
			g := NewSourceGroupSettings("id-1", typ)
			g.Name = "group"
			g.Status = StatusDisabled
			if sp, ok := Find[*SourcePaths](g.Components); ok {
				sp.Paths = []string{"src"}
			}
			if ef, ok := Find[*ExcludeFilters](g.Components); ok {
				ef.Filters = []string{"**/skip/**"}
			}

			store := configstore.New()
			g.Save(store)

			loaded := NewSourceGroupSettings("id-1", typ)
			loaded.Load(store)
			assert.True(t, g.Equal(loaded))
			assert.Equal(t, "group", loaded.Name)
			assert.Equal(t, StatusDisabled, loaded.Status)
		})
	}
}

func TestCodeblocksHasBothStandards(t *testing.T) {
	g := NewSourceGroupSettings("cb", TypeCxxCodeblocks)
	require.NotNil(t, g.Standard(LanguageC))
	require.NotNil(t, g.Standard(LanguageCpp))
	assert.Equal(t, DefaultCStandard, g.Standard(LanguageC).Value)
	assert.Nil(t, g.Standard(LanguageJava))
}

const unknownTypeProject = `<?xml version="1.0" encoding="utf-8" ?>
<config>
	<version>8</version>
	<source_groups>
		<source_group_abc>
			<type>Rust from Cargo</type>
			<name>crate</name>
			<status>enabled</status>
			<cargo>
				<manifest_path>Cargo.toml</manifest_path>
				<features>a</features>
				<features>b</features>
			</cargo>
		</source_group_abc>
	</source_groups>
</config>
`

func TestUnloadableRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "p.srctrlprj")
	require.NoError(t, os.WriteFile(path, []byte(unknownTypeProject), 0o644))

	p, err := LoadProjectSettings(path)
	require.NoError(t, err)
	require.Len(t, p.Groups, 1)
	assert.Equal(t, TypeUnloadable, p.Groups[0].Type)
	assert.Equal(t, "Rust from Cargo", p.Groups[0].Tag)

	require.NoError(t, p.Save())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, unknownTypeProject, string(data))
}

const unloadableIdentityProject = `<?xml version="1.0" encoding="utf-8" ?>
<config>
	<version>8</version>
	<source_groups>
		<layout>columns</layout>
		<source_group_xyz>
			<type>Zig from build.zig</type>
			<status>paused</status>
			<build_file>build.zig</build_file>
		</source_group_xyz>
	</source_groups>
</config>
`

func TestUnloadableKeepsIdentityKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "p.srctrlprj")
	require.NoError(t, os.WriteFile(path, []byte(unloadableIdentityProject), 0o644))

	p, err := LoadProjectSettings(path)
	require.NoError(t, err)
	require.Len(t, p.Groups, 1)
	g := p.Groups[0]
	assert.Equal(t, TypeUnloadable, g.Type)

	clone := g.Clone()
	assert.True(t, g.Equal(clone))

	require.NoError(t, p.Save())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, unloadableIdentityProject, string(data))
	assert.NotContains(t, string(data), "<name>")
	assert.NotContains(t, string(data), "<status>enabled</status>")
}

func TestProjectSettingsPaths(t *testing.T) {
	p := NewProjectSettings("/work/demo/demo.srctrlprj")
	assert.Equal(t, "demo", p.ProjectName())
	assert.Equal(t, "/work/demo", p.ProjectDir())
	assert.Equal(t, "/work/demo/demo.srctrldb", p.DBPath())
	assert.Equal(t, "/work/demo/demo.srctrldb_tmp", p.TempDBPath())
	assert.Equal(t, "/work/demo/sourcetrail_dependencies/g1", p.GroupDependenciesDir("g1"))
}

func TestProjectSettingsGroups(t *testing.T) {
	p := NewProjectSettings("/p/x.srctrlprj")
	require.NoError(t, p.AddGroup(NewSourceGroupSettings("a", TypeCEmpty)))
	err := p.AddGroup(NewSourceGroupSettings("a", TypeJavaEmpty))
	assert.ErrorIs(t, err, types.ErrDuplicateGroupID)

	disabled := NewSourceGroupSettings("b", TypePythonEmpty)
	disabled.Status = StatusDisabled
	require.NoError(t, p.AddGroup(disabled))
	assert.Len(t, p.EnabledGroups(), 1)

	assert.True(t, p.RemoveGroup("b"))
	assert.False(t, p.RemoveGroup("b"))
}

func TestProjectSettingsEqualExceptNameAndLocation(t *testing.T) {
	a := NewProjectSettings("/a/one.srctrlprj")
	b := NewProjectSettings("/b/two.srctrlprj")
	require.NoError(t, a.AddGroup(NewSourceGroupSettings("1", TypeCEmpty)))
	require.NoError(t, a.AddGroup(NewSourceGroupSettings("2", TypeJavaEmpty)))
	require.NoError(t, b.AddGroup(NewSourceGroupSettings("2", TypeJavaEmpty)))
	require.NoError(t, b.AddGroup(NewSourceGroupSettings("1", TypeCEmpty)))
	b.Groups[0].Name = "other name"
	b.Description = "changed"

	assert.True(t, a.EqualExceptNameAndLocation(b))

	b.Groups[1].Status = StatusDisabled
	assert.False(t, a.EqualExceptNameAndLocation(b))
}

func TestProjectSettingsTextRoundTrip(t *testing.T) {
	p := NewProjectSettings("/p/x.srctrlprj")
	g := NewSourceGroupSettings("g", TypeCustomCommand)
	cmd, _ := Find[*CustomCommand](g.Components)
	cmd.Command = "echo %{SOURCE_FILE_PATH}"
	require.NoError(t, p.AddGroup(g))

	text, err := p.Text()
	require.NoError(t, err)
	assert.True(t, strings.Contains(text, "<custom_command>echo %{SOURCE_FILE_PATH}</custom_command>"))

	parsed, err := ParseText(text, p.Path)
	require.NoError(t, err)
	assert.True(t, p.EqualExceptNameAndLocation(parsed))
	assert.Equal(t, ProjectVersion, parsed.Version)
}

func TestLoadProjectSettingsCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.srctrlprj")
	require.NoError(t, os.WriteFile(path, []byte("<config><version>"), 0o644))

	_, err := LoadProjectSettings(path)
	assert.ErrorIs(t, err, types.ErrSettingsCorrupt)

	_, err = LoadProjectSettings(filepath.Join(t.TempDir(), "missing.srctrlprj"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
