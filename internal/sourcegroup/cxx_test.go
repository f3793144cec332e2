package sourcegroup

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/srcgroup/internal/command"
	"github.com/dshills/srcgroup/internal/discovery"
	"github.com/dshills/srcgroup/internal/settings"
	"github.com/dshills/srcgroup/pkg/types"
)

func TestCxxEmpty(t *testing.T) {
	dir := projectDir(t)
	a := writeFile(t, filepath.Join(dir, "src", "a.cpp"), "int a;")
	c := writeFile(t, filepath.Join(dir, "src", "sub", "c.cc"), "int c;")
	h := writeFile(t, filepath.Join(dir, "src", "b.h"), "")
	writeFile(t, filepath.Join(dir, "src", "skip", "d.cpp"), "")
	other := writeFile(t, filepath.Join(dir, "other", "e.cpp"), "")

	ctx, _ := testContext(dir)
	s := settings.NewSourceGroupSettings("g1", settings.TypeCppEmpty)
	component[*settings.SourcePaths](t, s).Paths = []string{"src"}
	component[*settings.ExcludeFilters](t, s).Filters = []string{"src/skip/"}
	pf := component[*settings.PathsAndFlags](t, s)
	pf.HeaderSearchPaths = []string{"inc"}
	pf.CompilerFlags = []string{"-DX"}
	s.Standard(settings.LanguageCpp).Value = "c++14"

	g := NewCxxEmpty(ctx, s)
	require.NoError(t, g.PrepareIndexing(context.Background()))

	t.Run("discovers sources", func(t *testing.T) {
		assert.Equal(t, []string{a, c}, g.AllSourceFilePaths().Slice())
	})

	t.Run("filters contained paths", func(t *testing.T) {
		got := g.FilterToContainedFilePaths(discovery.NewPathSet(h, other, filepath.Join(dir, "src", "skip", "y.h")))
		assert.Equal(t, []string{h}, got.Slice())
	})

	t.Run("builds commands for selected files", func(t *testing.T) {
		cmds, err := g.IndexerCommands(context.Background(), discovery.NewPathSet(a, other))
		require.NoError(t, err)
		require.Len(t, cmds, 1)

		cmd := cmds[0]
		assert.Equal(t, command.TypeCxx, cmd.Type)
		assert.Equal(t, "g1", cmd.GroupID)
		assert.Equal(t, a, cmd.SourceFilePath)
		assert.Equal(t, []string{filepath.Join(dir, "src")}, cmd.Cxx.IndexedPaths)
		assert.Equal(t, []string{filepath.Join(dir, "src", "skip") + "/**"}, cmd.Cxx.ExcludeFilters)
		assert.Equal(t, dir, cmd.Cxx.WorkingDirectory)
		assert.Equal(t, []string{
			"-std=c++14", "-x", "c++",
			"-isystem", filepath.Join(dir, "inc"),
			"-DX",
			a,
		}, cmd.Cxx.CompilerFlags)
	})
}

func TestCxxEmptyCrossCompilationAndPch(t *testing.T) {
	dir := projectDir(t)
	src := writeFile(t, filepath.Join(dir, "main.c"), "int main(void){return 0;}")
	writeFile(t, filepath.Join(dir, "pch.h"), "")

	ctx, log := testContext(dir)
	ctx.App.FrameworkSearchPaths = []string{"/Library/Frameworks"}
	s := settings.NewSourceGroupSettings("g2", settings.TypeCEmpty)
	component[*settings.SourcePaths](t, s).Paths = []string{"."}
	cc := component[*settings.CrossCompilation](t, s)
	cc.Enabled = true
	cc.Arch = "armv7"
	component[*settings.Pch](t, s).InputFilePath = "pch.h"

	g := NewCxxEmpty(ctx, s).(*CxxEmpty)
	require.NoError(t, g.PrepareIndexing(context.Background()))
	assert.Empty(t, log.Errors())

	pch := filepath.Join(dir, settings.DependenciesDirName, "g2", "pch.pch")
	assert.Equal(t, []string{
		"--target=armv7-unknown-unknown-unknown",
		"-std=c11",
		"-iframework", "/Library/Frameworks",
		"-fallow-pch-with-compiler-errors", "-include-pch", pch,
	}, g.CompilerFlags())

	cmds, err := g.IndexerCommands(context.Background(), discovery.NewPathSet(src))
	require.NoError(t, err)
	require.Len(t, cmds, 1)
	assert.Equal(t, src, cmds[0].Cxx.CompilerFlags[len(cmds[0].Cxx.CompilerFlags)-1])
}

func TestCxxEmptyReportsMissingPch(t *testing.T) {
	dir := projectDir(t)
	ctx, log := testContext(dir)
	s := settings.NewSourceGroupSettings("g3", settings.TypeCppEmpty)
	component[*settings.Pch](t, s).InputFilePath = "missing.h"

	require.NoError(t, NewCxxEmpty(ctx, s).PrepareIndexing(context.Background()))
	errs := log.Errors()
	require.Len(t, errs, 1)
	assert.Equal(t, "g3", errs[0].GroupID)
	assert.Contains(t, errs[0].Text, "missing.h")
}

const testCompilationDB = `[
  {"directory": "..", "file": "src/a.cpp", "command": "clang++ -DA -include-pch old.pch -c src/a.cpp"},
  {"directory": "%[1]s", "file": "%[1]s/src/b.cpp", "arguments": ["clang++", "-DB", "-c", "src/b.cpp"]},
  {"directory": "%[1]s", "file": "src/a.cpp", "arguments": ["duplicate"]},
  {"directory": "%[1]s", "file": "src/missing.cpp", "arguments": ["clang++"]}
]`

func TestCxxCdb(t *testing.T) {
	dir := projectDir(t)
	a := writeFile(t, filepath.Join(dir, "src", "a.cpp"), "")
	b := writeFile(t, filepath.Join(dir, "src", "b.cpp"), "")
	header := writeFile(t, filepath.Join(dir, "include", "x.h"), "")
	writeFile(t, filepath.Join(dir, "pch.h"), "")
	writeFile(t, filepath.Join(dir, "build", "compile_commands.json"), sprintf(testCompilationDB, dir))

	ctx, log := testContext(dir)
	s := settings.NewSourceGroupSettings("cdb", settings.TypeCxxCdb)
	component[*settings.BuildFile](t, s).Path = "build/compile_commands.json"
	component[*settings.IndexedHeaderPaths](t, s).Paths = []string{"include"}
	component[*settings.PathsAndFlags](t, s).CompilerFlags = []string{"-DEXTRA"}
	component[*settings.Pch](t, s).InputFilePath = "pch.h"

	g := NewCxxCdb(ctx, s)
	require.NoError(t, g.PrepareIndexing(context.Background()))
	assert.Empty(t, log.Errors())

	assert.Equal(t, []string{a, b}, g.AllSourceFilePaths().Slice())

	contained := g.FilterToContainedFilePaths(discovery.NewPathSet(header, a, filepath.Join(dir, "src", "c.cpp")))
	assert.Equal(t, []string{header, a}, contained.Slice())

	cmds, err := g.IndexerCommands(context.Background(), discovery.NewPathSet(a, b))
	require.NoError(t, err)
	require.Len(t, cmds, 2)

	pch := filepath.Join(dir, settings.DependenciesDirName, "cdb", "pch.pch")
	assert.Equal(t, a, cmds[0].SourceFilePath)
	assert.Equal(t, dir, cmds[0].Cxx.WorkingDirectory)
	assert.Equal(t, []string{filepath.Join(dir, "include"), a}, cmds[0].Cxx.IndexedPaths)
	assert.Equal(t, []string{
		"clang++", "-DA", "-c", "src/a.cpp",
		"-fallow-pch-with-compiler-errors", "-include-pch", pch,
		"-DEXTRA",
	}, cmds[0].Cxx.CompilerFlags)

	assert.Equal(t, b, cmds[1].SourceFilePath)
	assert.Equal(t, []string{"clang++", "-DB", "-c", "src/b.cpp", "-DEXTRA"}, cmds[1].Cxx.CompilerFlags)
}

func TestCxxCdbPrepareFailures(t *testing.T) {
	dir := projectDir(t)

	t.Run("no database configured", func(t *testing.T) {
		ctx, _ := testContext(dir)
		g := NewCxxCdb(ctx, settings.NewSourceGroupSettings("c0", settings.TypeCxxCdb))
		assert.NoError(t, g.PrepareIndexing(context.Background()))
		assert.Zero(t, g.AllSourceFilePaths().Len())
	})

	t.Run("missing database", func(t *testing.T) {
		ctx, log := testContext(dir)
		s := settings.NewSourceGroupSettings("c1", settings.TypeCxxCdb)
		component[*settings.BuildFile](t, s).Path = "gone.json"

		err := NewCxxCdb(ctx, s).PrepareIndexing(context.Background())
		require.Error(t, err)
		assert.True(t, types.IsGroupError(err, types.KindResource))
		assert.True(t, errors.Is(err, types.ErrBuildFileMissing))
		assert.Len(t, log.Errors(), 1)
	})

	t.Run("invalid database", func(t *testing.T) {
		writeFile(t, filepath.Join(dir, "bad.json"), "{not json")
		ctx, _ := testContext(dir)
		s := settings.NewSourceGroupSettings("c2", settings.TypeCxxCdb)
		component[*settings.BuildFile](t, s).Path = "bad.json"

		err := NewCxxCdb(ctx, s).PrepareIndexing(context.Background())
		require.Error(t, err)
		assert.True(t, errors.Is(err, types.ErrBuildFileInvalid))
	})
}

func TestLoadCompilationDatabaseRejectsEntriesWithoutFile(t *testing.T) {
	dir := projectDir(t)
	path := writeFile(t, filepath.Join(dir, "cdb.json"), `[{"directory": "/", "command": "cc"}]`)
	_, err := LoadCompilationDatabase(path)
	assert.ErrorIs(t, err, types.ErrBuildFileInvalid)
}

const testCodeblocksProject = `<?xml version="1.0" encoding="UTF-8" standalone="yes" ?>
<CodeBlocks_project_file>
	<FileVersion major="1" minor="6" />
	<Project>
		<Option title="demo" />
		<Build>
			<Target title="Debug">
				<Compiler>
					<Add option="-g" />
					<Add directory="include" />
				</Compiler>
			</Target>
		</Build>
		<Unit filename="src/main.cpp">
			<Option target="Debug" />
		</Unit>
		<Unit filename="src/util.c">
			<Option compilerVar="CC" />
			<Option target="Debug" />
		</Unit>
		<Unit filename="src/skip.cpp">
			<Option compile="0" />
			<Option target="Debug" />
		</Unit>
		<Unit filename="src/asm.cpp">
			<Option compilerVar="ASM" target="Debug" />
		</Unit>
		<Unit filename="src/notarget.cpp" />
		<Unit filename="src/header.h">
			<Option target="Debug" />
		</Unit>
	</Project>
</CodeBlocks_project_file>
`

func TestCxxCodeblocks(t *testing.T) {
	dir := projectDir(t)
	writeFile(t, filepath.Join(dir, "demo.cbp"), testCodeblocksProject)
	main := filepath.Join(dir, "src", "main.cpp")
	util := filepath.Join(dir, "src", "util.c")
	asm := filepath.Join(dir, "src", "asm.cpp")

	t.Run("parses project", func(t *testing.T) {
		p, err := LoadCodeblocksProject(filepath.Join(dir, "demo.cbp"))
		require.NoError(t, err)
		assert.Equal(t, "demo", p.Title)
		target, ok := p.Target("Debug")
		require.True(t, ok)
		assert.Equal(t, []string{filepath.Join(dir, "include")}, target.Directories)
		assert.Equal(t, []string{"-g"}, target.Options)

		units := p.CompiledUnits([]string{".CPP", ".c"})
		var paths []string
		for _, u := range units {
			paths = append(paths, u.Path)
		}
		assert.Equal(t, []string{main, util, asm}, paths)
		assert.Equal(t, settings.LanguageC, units[1].Language)
		assert.Equal(t, settings.LanguageUnknown, units[2].Language)
	})

	ctx, log := testContext(dir)
	s := settings.NewSourceGroupSettings("cb", settings.TypeCxxCodeblocks)
	component[*settings.BuildFile](t, s).Path = "demo.cbp"
	s.Standard(settings.LanguageC).Value = "c99"
	s.Standard(settings.LanguageCpp).Value = "c++20"

	g := NewCxxCodeblocks(ctx, s)
	require.NoError(t, g.PrepareIndexing(context.Background()))
	assert.Empty(t, log.Errors())
	assert.Equal(t, []string{asm, main, util}, g.AllSourceFilePaths().Slice())

	cmds, err := g.IndexerCommands(context.Background(), g.AllSourceFilePaths())
	require.NoError(t, err)
	require.Len(t, cmds, 2)

	assert.Equal(t, main, cmds[0].SourceFilePath)
	assert.Equal(t, dir, cmds[0].Cxx.WorkingDirectory)
	assert.Equal(t, []string{"-isystem", filepath.Join(dir, "include"), "-g", "-std=c++20", main}, cmds[0].Cxx.CompilerFlags)
	assert.Equal(t, util, cmds[1].SourceFilePath)
	assert.Equal(t, []string{"-isystem", filepath.Join(dir, "include"), "-g", "-std=c99", util}, cmds[1].Cxx.CompilerFlags)
}

func TestCxxCodeblocksRejectsForeignXML(t *testing.T) {
	dir := projectDir(t)
	path := writeFile(t, filepath.Join(dir, "x.cbp"), `<project><Unit filename="a.cpp"/></project>`)
	_, err := LoadCodeblocksProject(path)
	assert.ErrorIs(t, err, types.ErrBuildFileInvalid)

	ctx, log := testContext(dir)
	s := settings.NewSourceGroupSettings("cb", settings.TypeCxxCodeblocks)
	component[*settings.BuildFile](t, s).Path = "x.cbp"
	err = NewCxxCodeblocks(ctx, s).PrepareIndexing(context.Background())
	assert.True(t, types.IsGroupError(err, types.KindResource))
	assert.NotEmpty(t, log.Errors())
}

const testSonargraphSystem = `<?xml version="1.0" encoding="UTF-8"?>
<softwareSystem name="demo" version="1" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance">
  <module name="core" xsi:type="xsdCppManualModule">
    <rootPath name="core"/>
    <exclude>**/gen/**</exclude>
    <moduleCompilerOptions>-Iinclude -DCORE --sys_include=/usr/local/include</moduleCompilerOptions>
    <sourceFileExtensions>.cpp, .cc</sourceFileExtensions>
  </module>
  <module name="jvm" xsi:type="xsdJavaModule">
    <rootPath name="jvm"/>
  </module>
</softwareSystem>
`

func TestCxxSonargraph(t *testing.T) {
	dir := projectDir(t)
	writeFile(t, filepath.Join(dir, ".sonargraph", "system.sonargraph"), testSonargraphSystem)
	a := writeFile(t, filepath.Join(dir, "core", "a.cpp"), "")
	b := writeFile(t, filepath.Join(dir, "core", "b.cc"), "")
	writeFile(t, filepath.Join(dir, "core", "gen", "x.cpp"), "")
	writeFile(t, filepath.Join(dir, "jvm", "A.cpp"), "")

	t.Run("parses system", func(t *testing.T) {
		sys, err := LoadSonargraphSystem(filepath.Join(dir, ".sonargraph", "system.sonargraph"))
		require.NoError(t, err)
		assert.Equal(t, dir, sys.BaseDir)
		require.Len(t, sys.Modules, 1)
		m := sys.Modules[0]
		assert.Equal(t, "core", m.Name)
		assert.Equal(t, []string{filepath.Join(dir, "core")}, m.RootPaths)
		assert.Equal(t, []string{".cpp", ".cc"}, m.Extensions)
		assert.Equal(t, []string{
			"-isystem", filepath.Join(dir, "include"),
			"-DCORE",
			"-isystem", "/usr/local/include",
		}, m.CompilerFlags())
	})

	ctx, log := testContext(dir)
	s := settings.NewSourceGroupSettings("sg", settings.TypeCxxSonargraph)
	component[*settings.BuildFile](t, s).Path = ".sonargraph/system.sonargraph"
	component[*settings.IndexedHeaderPaths](t, s).Paths = []string{"headers"}

	g := NewCxxSonargraph(ctx, s)
	require.NoError(t, g.PrepareIndexing(context.Background()))
	assert.Empty(t, log.Errors())
	assert.Equal(t, []string{a, b}, g.AllSourceFilePaths().Slice())

	contained := g.FilterToContainedFilePaths(discovery.NewPathSet(
		filepath.Join(dir, "headers", "h.h"),
		filepath.Join(dir, "core", "c.h"),
		filepath.Join(dir, "jvm", "A.cpp"),
	))
	assert.Equal(t, []string{filepath.Join(dir, "core", "c.h"), filepath.Join(dir, "headers", "h.h")}, contained.Slice())

	cmds, err := g.IndexerCommands(context.Background(), discovery.NewPathSet(b))
	require.NoError(t, err)
	require.Len(t, cmds, 1)
	assert.Equal(t, b, cmds[0].SourceFilePath)
	assert.Equal(t, dir, cmds[0].Cxx.WorkingDirectory)
	assert.Equal(t, []string{"**/gen/**"}, cmds[0].Cxx.ExcludeFilters)
	assert.Equal(t, []string{
		"-isystem", filepath.Join(dir, "include"),
		"-DCORE",
		"-isystem", "/usr/local/include",
		"-std=c++17",
		b,
	}, cmds[0].Cxx.CompilerFlags)
}
