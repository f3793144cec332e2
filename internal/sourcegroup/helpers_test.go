package sourcegroup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dshills/srcgroup/internal/config"
	"github.com/dshills/srcgroup/internal/discovery"
	"github.com/dshills/srcgroup/internal/jvmdeps"
	"github.com/dshills/srcgroup/internal/settings"
	"github.com/dshills/srcgroup/pkg/types"
)

// projectDir returns a temp project directory with symlinks resolved.
func projectDir(t *testing.T) string {
	t.Helper()
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	return dir
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// testContext builds a Context for a project file inside dir with no
// global search paths.
func testContext(dir string) (Context, *types.StatusLog) {
	app := config.Default()
	app.HeaderSearchPaths = nil
	app.FrameworkSearchPaths = nil
	app.JreSystemLibraryPaths = nil

	log := &types.StatusLog{}
	p := settings.NewProjectSettings(filepath.Join(dir, "demo"+settings.ProjectFileExtension))
	return NewContext(&app, p, 25, log), log
}

func component[T settings.Component](t *testing.T, s *settings.SourceGroupSettings) T {
	t.Helper()
	c, ok := settings.Find[T](s.Components)
	require.True(t, ok, "group has no such component")
	return c
}

func commandsFor(t *testing.T, g SourceGroup, files discovery.PathSet) []string {
	t.Helper()
	cmds, err := g.IndexerCommands(context.Background(), files)
	require.NoError(t, err)
	var out []string
	for _, c := range cmds {
		require.NoError(t, c.Validate())
		out = append(out, c.SourceFilePath)
	}
	return out
}

// fakeTool stands in for Maven or Gradle.
type fakeTool struct {
	name     string
	result   *jvmdeps.Result
	err      error
	requests []jvmdeps.Request
}

func (f *fakeTool) Name() string { return f.name }

func (f *fakeTool) Resolve(_ context.Context, req jvmdeps.Request) (*jvmdeps.Result, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func sprintf(format string, args ...any) string {
	return fmt.Sprintf(format, args...)
}
