package sourcegroup

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/srcgroup/internal/discovery"
	"github.com/dshills/srcgroup/internal/settings"
)

func TestDefaultFactoryCreatesEveryType(t *testing.T) {
	ctx, _ := testContext(projectDir(t))
	f := DefaultFactory()

	tests := []struct {
		typ  settings.Type
		want any
	}{
		{settings.TypeCEmpty, &CxxEmpty{}},
		{settings.TypeCppEmpty, &CxxEmpty{}},
		{settings.TypeCxxCdb, &CxxCdb{}},
		{settings.TypeCxxCodeblocks, &CxxCodeblocks{}},
		{settings.TypeCxxSonargraph, &CxxSonargraph{}},
		{settings.TypeJavaEmpty, &JavaEmpty{}},
		{settings.TypeJavaMaven, &JavaBuild{}},
		{settings.TypeJavaGradle, &JavaBuild{}},
		{settings.TypePythonEmpty, &PythonEmpty{}},
		{settings.TypeCustomCommand, &CustomCommand{}},
		{settings.TypeUnloadable, &Unloadable{}},
	}
	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			assert.True(t, f.Registered(tt.typ))
			s := settings.NewSourceGroupSettings("id", tt.typ)
			g := f.Create(ctx, s)
			assert.IsType(t, tt.want, g)
			assert.Same(t, s, g.Settings())
		})
	}
}

func TestFactoryDegradesToUnloadable(t *testing.T) {
	ctx, _ := testContext(projectDir(t))

	s := settings.NewSourceGroupSettings("x", settings.TypeUnloadable)
	s.Tag = "Rust Source Group"
	g := DefaultFactory().Create(ctx, s)
	assert.IsType(t, &Unloadable{}, g)

	g = NewFactory().Create(ctx, settings.NewSourceGroupSettings("y", settings.TypeCppEmpty))
	assert.IsType(t, &Unloadable{}, g)
}

func TestFactoryRegisterReplaces(t *testing.T) {
	ctx, _ := testContext(projectDir(t))
	f := DefaultFactory()

	called := false
	f.Register(settings.TypePythonEmpty, func(ctx Context, s *settings.SourceGroupSettings) SourceGroup {
		called = true
		return NewUnloadable(ctx, s)
	})
	g := f.Create(ctx, settings.NewSourceGroupSettings("p", settings.TypePythonEmpty))
	assert.True(t, called)
	assert.IsType(t, &Unloadable{}, g)
}

func TestFactoryCreateAllKeepsOrder(t *testing.T) {
	dir := projectDir(t)
	ctx, _ := testContext(dir)
	p := settings.NewProjectSettings(ctx.ProjectFile)
	require.NoError(t, p.AddGroup(settings.NewSourceGroupSettings("b", settings.TypeJavaEmpty)))
	require.NoError(t, p.AddGroup(settings.NewSourceGroupSettings("a", settings.TypeCEmpty)))

	groups := DefaultFactory().CreateAll(ctx, p)
	require.Len(t, groups, 2)
	assert.Equal(t, "b", groups[0].Settings().ID)
	assert.Equal(t, "a", groups[1].Settings().ID)
}

func TestNewContextDerivesPaths(t *testing.T) {
	dir := projectDir(t)
	ctx, _ := testContext(dir)

	assert.Equal(t, dir, ctx.ProjectDir)
	assert.Equal(t, filepath.Join(dir, "demo.srctrldb_tmp"), ctx.DatabaseFile)
	assert.Equal(t, filepath.Join(dir, "sourcetrail_dependencies"), ctx.DependencyDir)
	assert.Equal(t, 25, ctx.StorageVersion)
	assert.Equal(t, "maven", ctx.Maven.Name())
	assert.Equal(t, "gradle", ctx.Gradle.Name())
}

func TestUnloadableOwnsNothing(t *testing.T) {
	ctx, _ := testContext(projectDir(t))
	g := NewUnloadable(ctx, settings.NewSourceGroupSettings("u", settings.TypeUnloadable))

	assert.NoError(t, g.Validate())
	assert.NoError(t, g.PrepareIndexing(context.Background()))
	assert.Zero(t, g.AllSourceFilePaths().Len())
	assert.Zero(t, g.FilterToContainedFilePaths(discovery.NewPathSet("/a")).Len())
	cmds, err := g.IndexerCommands(context.Background(), discovery.NewPathSet("/a"))
	assert.NoError(t, err)
	assert.Empty(t, cmds)
}

func TestFilterContained(t *testing.T) {
	candidates := discovery.NewPathSet("/p/src/a.h", "/p/gen/b.h", "/q/c.h", "/q/d.cpp", "/p/srcx/e.h")
	sources := discovery.NewPathSet("/q/d.cpp")
	excludes := discovery.NewFilter("/p/gen/**")

	got := filterContained(candidates, sources, []string{"/p/src", "/p/gen"}, excludes)
	assert.Equal(t, []string{"/p/src/a.h", "/q/d.cpp"}, got.Slice())
}

func TestSplitCommandLine(t *testing.T) {
	tests := []struct {
		line string
		want []string
	}{
		{"clang++ -c a.cpp", []string{"clang++", "-c", "a.cpp"}},
		{"  cc\t-DX=1   b.c ", []string{"cc", "-DX=1", "b.c"}},
		{`cc -DMSG="hello world" c.c`, []string{"cc", "-DMSG=hello world", "c.c"}},
		{`cc '-DA=$HOME' "x\"y" z\ w`, []string{"cc", "-DA=$HOME", `x"y`, "z w"}},
		{`cc "a\b"`, []string{"cc", `a\b`}},
		{`cc ""`, []string{"cc", ""}},
		{"", nil},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := splitCommandLine(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := splitCommandLine(`cc "open`)
	assert.Error(t, err)
	_, err = splitCommandLine(`cc trailing\`)
	assert.Error(t, err)
}
