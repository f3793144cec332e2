package jvmdeps

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dshills/srcgroup/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	dir  string
	name string
	args []string
}

// fakeRunner answers invocations by the last argument.
type fakeRunner struct {
	mu      sync.Mutex
	calls   []call
	outputs map[string]string
	errs    map[string]error
	onRun   func(args []string)
}

func (f *fakeRunner) Run(ctx context.Context, dir string, env []string, name string, args ...string) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, call{dir: dir, name: name, args: args})
	f.mu.Unlock()
	if f.onRun != nil {
		f.onRun(args)
	}
	key := args[len(args)-1]
	if strings.HasPrefix(key, "-DoutputDirectory=") {
		key = "dependency:copy-dependencies"
	}
	return []byte(f.outputs[key]), f.errs[key]
}

// blockingRunner waits for cancellation like a hung process.
type blockingRunner struct{}

func (blockingRunner) Run(ctx context.Context, dir string, env []string, name string, args ...string) ([]byte, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func mkdirs(t *testing.T, paths ...string) {
	t.Helper()
	for _, p := range paths {
		require.NoError(t, os.MkdirAll(p, 0o755))
	}
}

func TestEffectivePomSourceDirs(t *testing.T) {
	output := `[INFO] Scanning for projects...
[INFO] --- maven-help-plugin:3.2.0:effective-pom (default-cli) @ app ---
<?xml version="1.0" encoding="UTF-8"?>
<projects>
  <project>
    <build>
      <sourceDirectory>/p/a/src/main/java</sourceDirectory>
      <testSourceDirectory>/p/a/src/test/java</testSourceDirectory>
      <directory>/p/a/target</directory>
    </build>
  </project>
  <project>
    <build>
      <sourceDirectory>/p/b/src/main/java</sourceDirectory>
    </build>
  </project>
</projects>
[INFO] BUILD SUCCESS`

	t.Run("main only", func(t *testing.T) {
		dirs, err := EffectivePomSourceDirs([]byte(output), false)
		require.NoError(t, err)
		assert.Equal(t, []string{
			"/p/a/src/main/java",
			"/p/a/target/generated-sources",
			"/p/b/src/main/java",
		}, dirs)
	})

	t.Run("with tests", func(t *testing.T) {
		dirs, err := EffectivePomSourceDirs([]byte(output), true)
		require.NoError(t, err)
		assert.Contains(t, dirs, "/p/a/src/test/java")
		assert.Contains(t, dirs, "/p/a/target/generated-test-sources")
	})

	t.Run("error output", func(t *testing.T) {
		_, err := EffectivePomSourceDirs([]byte("[ERROR] Failed to execute goal"), false)
		assert.ErrorIs(t, err, types.ErrBuildFileInvalid)
	})

	t.Run("no xml", func(t *testing.T) {
		_, err := EffectivePomSourceDirs([]byte("[INFO] nothing"), false)
		assert.ErrorIs(t, err, types.ErrBuildFileInvalid)
	})
}

func TestMavenResolve(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "src", "main", "java")
	mkdirs(t, src)
	out := filepath.Join(root, "deps", "g1", "maven")

	runner := &fakeRunner{
		outputs: map[string]string{
			"help:effective-pom": "<project><build><sourceDirectory>" + src +
				"</sourceDirectory><directory>" + filepath.Join(root, "target") + "</directory></build></project>",
		},
		onRun: func(args []string) {
			if strings.HasPrefix(args[len(args)-1], "-DoutputDirectory=") {
				require.NoError(t, os.WriteFile(filepath.Join(out, "lib.jar"), nil, 0o644))
			}
		},
	}

	m := NewMaven("/opt/mvn", Options{Runner: runner, Timeout: time.Minute})
	res, err := m.Resolve(context.Background(), Request{
		ProjectFile: filepath.Join(root, "pom.xml"),
		OutputDir:   out,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{src}, res.SourceDirs, "missing generated-sources dir is dropped")
	assert.Equal(t, []string{filepath.Join(out, "lib.jar")}, res.Jars)

	require.Len(t, runner.calls, 3)
	for _, c := range runner.calls {
		assert.Equal(t, root, c.dir)
		assert.Equal(t, "/opt/mvn", c.name)
	}
	assert.Equal(t, "generate-sources", runner.calls[0].args[len(runner.calls[0].args)-1])
	assert.Equal(t, "-DoutputDirectory="+out, runner.calls[1].args[len(runner.calls[1].args)-1])
}

func TestMavenFailure(t *testing.T) {
	root := t.TempDir()
	req := Request{ProjectFile: filepath.Join(root, "pom.xml"), OutputDir: filepath.Join(root, "out")}

	t.Run("tool missing", func(t *testing.T) {
		runner := &fakeRunner{errs: map[string]error{"generate-sources": exec.ErrNotFound}}
		_, err := NewMaven("", Options{Runner: runner}).Resolve(context.Background(), req)
		assert.ErrorIs(t, err, types.ErrToolUnavailable)
	})

	t.Run("build failure carries output", func(t *testing.T) {
		runner := &fakeRunner{
			outputs: map[string]string{"generate-sources": "[ERROR] cannot resolve plugin"},
			errs:    map[string]error{"generate-sources": errors.New("exit status 1")},
		}
		_, err := NewMaven("", Options{Runner: runner}).Resolve(context.Background(), req)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot resolve plugin")
	})

	t.Run("timeout", func(t *testing.T) {
		m := NewMaven("", Options{Runner: blockingRunner{}, Timeout: 20 * time.Millisecond})
		_, err := m.Resolve(context.Background(), req)
		assert.ErrorIs(t, err, types.ErrDependencyTimeout)
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		m := NewMaven("", Options{Runner: blockingRunner{}, Timeout: time.Minute})
		_, err := m.Resolve(ctx, req)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestGradleResolve(t *testing.T) {
	root := t.TempDir()
	main := filepath.Join(root, "src", "main", "java")
	test := filepath.Join(root, "src", "test", "java")
	mkdirs(t, main, test)

	runner := &fakeRunner{outputs: map[string]string{
		"srcgroupExport": gradleSourcePrefix + main + "\n" +
			gradleSourcePrefix + filepath.Join(root, "src", "main", "kotlin") + "\n" +
			gradleTestPrefix + test + "\n",
	}}

	g := NewGradle("", Options{Runner: runner})
	res, err := g.Resolve(context.Background(), Request{
		ProjectFile:  filepath.Join(root, "build.gradle"),
		OutputDir:    filepath.Join(root, "deps"),
		IncludeTests: true,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{main, test}, res.SourceDirs)

	require.Len(t, runner.calls, 1)
	assert.Equal(t, "gradle", runner.calls[0].name)
	assert.Contains(t, runner.calls[0].args, "-Dsrcgroup.includeTests=true")
	assert.NoFileExists(t, filepath.Join(root, "deps", "srcgroup-init.gradle"))
}

func TestGradleSourceDirs(t *testing.T) {
	out := []byte(gradleSourcePrefix + "/a\nnoise\n" + gradleTestPrefix + "/b\n")
	assert.Equal(t, []string{"/a"}, GradleSourceDirs(out, false))
	assert.Equal(t, []string{"/a", "/b"}, GradleSourceDirs(out, true))
}

func TestConventionalSourceDirs(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, filepath.Join(root, "src", "main", "java"))

	assert.Equal(t, []string{filepath.Join(root, "src", "main", "java")}, ConventionalSourceDirs(root, true))
}

func TestJars(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.jar", "a.JAR", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
	jars, err := Jars(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.JAR"), filepath.Join(dir, "b.jar")}, jars)

	jars, err = Jars(filepath.Join(dir, "missing"))
	require.NoError(t, err)
	assert.Empty(t, jars)
}

func TestSourceDirsCache(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "deps", "maven")
	gen := filepath.Join(dir, "gen")
	require.NoError(t, os.MkdirAll(gen, 0o755))

	_, ok, err := LoadSourceDirs(out)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, SaveSourceDirs(out, []string{gen, filepath.Join(dir, "gone")}))
	dirs, ok, err := LoadSourceDirs(out)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{gen}, dirs)

	jars, err := Jars(out)
	require.NoError(t, err)
	assert.Empty(t, jars)

	require.NoError(t, os.WriteFile(filepath.Join(out, SourceDirsFile), []byte("{"), 0o644))
	_, _, err = LoadSourceDirs(out)
	assert.Error(t, err)
}
