package sourcegroup

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/srcgroup/internal/command"
	"github.com/dshills/srcgroup/internal/discovery"
	"github.com/dshills/srcgroup/internal/settings"
	"github.com/dshills/srcgroup/pkg/types"
)

func TestPythonEmpty(t *testing.T) {
	dir := projectDir(t)
	a := writeFile(t, filepath.Join(dir, "pkg", "a.py"), "")
	writeFile(t, filepath.Join(dir, "pkg", "notes.txt"), "")

	ctx, log := testContext(dir)
	s := settings.NewSourceGroupSettings("py", settings.TypePythonEmpty)
	component[*settings.SourcePaths](t, s).Paths = []string{"pkg"}
	component[*settings.PythonEnvironment](t, s).Path = "venv"

	g := NewPythonEmpty(ctx, s)
	require.NoError(t, g.PrepareIndexing(context.Background()))
	require.Len(t, log.Errors(), 1, "missing environment is reported")

	assert.Equal(t, []string{a}, g.AllSourceFilePaths().Slice())
	cmds, err := g.IndexerCommands(context.Background(), discovery.NewPathSet(a))
	require.NoError(t, err)
	require.Len(t, cmds, 1)
	assert.Equal(t, command.TypePython, cmds[0].Type)
	assert.Equal(t, filepath.Join(dir, "venv"), cmds[0].Python.EnvironmentPath)
}

func customGroup(t *testing.T, template string, parallel bool) *settings.SourceGroupSettings {
	t.Helper()
	s := settings.NewSourceGroupSettings("cc", settings.TypeCustomCommand)
	component[*settings.SourcePaths](t, s).Paths = []string{"data"}
	component[*settings.SourceExtensions](t, s).Extensions = []string{".txt"}
	cmd := component[*settings.CustomCommand](t, s)
	cmd.Command = template
	cmd.RunInParallel = parallel
	return s
}

func TestCustomCommandSubstitutes(t *testing.T) {
	dir := projectDir(t)
	a := writeFile(t, filepath.Join(dir, "data", "a.txt"), "")
	writeFile(t, filepath.Join(dir, "data", "b.md"), "")

	ctx, _ := testContext(dir)
	g := NewCustomCommand(ctx, customGroup(t,
		"lint %{SOURCE_FILE_PATH} --db %{DATABASE_FILE_PATH} --project %{PROJECT_FILE_PATH} -v %{STORAGE_VERSION}", false))
	require.NoError(t, g.Validate())
	require.NoError(t, g.PrepareIndexing(context.Background()))

	cmds, err := g.IndexerCommands(context.Background(), g.AllSourceFilePaths())
	require.NoError(t, err)
	require.Len(t, cmds, 1)
	assert.Equal(t, a, cmds[0].SourceFilePath)
	assert.Equal(t, fmt.Sprintf("lint %s --db %s --project %s -v 25",
		a, filepath.Join(dir, "demo.srctrldb_tmp"), filepath.Join(dir, "demo.srctrlprj")),
		cmds[0].Custom.Command)
	assert.False(t, cmds[0].Custom.RunInParallel)
}

func TestCustomCommandParallelKeepsOrder(t *testing.T) {
	dir := projectDir(t)
	var want []string
	for i := 0; i < 40; i++ {
		want = append(want, writeFile(t, filepath.Join(dir, "data", fmt.Sprintf("f%02d.txt", i)), ""))
	}

	ctx, _ := testContext(dir)
	g := NewCustomCommand(ctx, customGroup(t, "cat %{SOURCE_FILE_PATH}", true))
	cmds, err := g.IndexerCommands(context.Background(), g.AllSourceFilePaths())
	require.NoError(t, err)
	require.Len(t, cmds, len(want))
	for i, c := range cmds {
		assert.Equal(t, want[i], c.SourceFilePath)
		assert.Equal(t, "cat "+want[i], c.Custom.Command)
		assert.True(t, c.Custom.RunInParallel)
	}
}

func TestCustomCommandRequiresPlaceholder(t *testing.T) {
	dir := projectDir(t)
	writeFile(t, filepath.Join(dir, "data", "a.txt"), "")
	ctx, log := testContext(dir)
	g := NewCustomCommand(ctx, customGroup(t, "echo %{source_file_path}", false))

	err := g.Validate()
	assert.True(t, types.IsGroupError(err, types.KindConfiguration))
	assert.ErrorIs(t, err, types.ErrMissingPlaceholder)

	assert.Error(t, g.PrepareIndexing(context.Background()))
	assert.Len(t, log.Errors(), 1)

	_, err = g.IndexerCommands(context.Background(), g.AllSourceFilePaths())
	assert.ErrorIs(t, err, types.ErrMissingPlaceholder)
}

func TestCustomCommandHonorsCancellation(t *testing.T) {
	dir := projectDir(t)
	writeFile(t, filepath.Join(dir, "data", "a.txt"), "")
	ctx, _ := testContext(dir)
	g := NewCustomCommand(ctx, customGroup(t, "x %{SOURCE_FILE_PATH}", false))

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := g.IndexerCommands(cancelled, g.AllSourceFilePaths())
	assert.ErrorIs(t, err, context.Canceled)
}
