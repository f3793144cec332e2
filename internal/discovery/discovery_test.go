package discovery

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("// "+filepath.Base(path)+"\n"), 0o644))
}

func TestFilterGlobSyntax(t *testing.T) {
	tests := []struct {
		pattern string
		path    string
		want    bool
	}{
		{"src/*/test.h", "src/app/test.h", true},
		{"src/*/test.h", "src/app/widget/test.h", false},
		{"src/*/test.h", "src/test.h", false},
		{"src**test.h", "src/app/test.h", true},
		{"src**test.h", "src/app/widget/test.h", true},
		{"src**test.h", "src/test.h", true},
		{"/p/**/gen/*.cpp", "/p/a/b/gen/x.cpp", true},
		{"/p/**/gen/*.cpp", "/p/gen/x.cpp", true},
		{"/p/**/gen/*.cpp", "/p/gen/sub/x.cpp", false},
		{"/p/build**", "/p/build/a/b.o", true},
		{"*.h", "/p/a.h", false},
		{"/home/u/proj[1]/src/*/test.h", "/home/u/proj[1]/src/app/test.h", true},
		{"/home/u/proj[1]/src/*/test.h", "/home/u/proj1/src/app/test.h", false},
		{"/home/u/proj{a}/gen/**", "/home/u/proj{a}/gen/x.c", true},
		{"/home/u/proj{a,b}/gen/*.c", "/home/u/proj{a,b}/gen/x.c", true},
		{"/home/u/proj{a,b}/gen/*.c", "/home/u/proja/gen/x.c", false},
		{"/p/src/a?.c", "/p/src/ab.c", false},
		{"/p/src/a?.c", "/p/src/a?.c", true},
		{"/p/src/a\\b/*.c", "/p/src/a\\b/x.c", true},
		{"/p/[gen]**", "/p/[gen]/deep/x.c", true},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+" "+tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, NewFilter(tt.pattern).Match(tt.path))
		})
	}
}

func TestFilterEmpty(t *testing.T) {
	var nilFilter *Filter
	assert.False(t, nilFilter.Match("/a"))
	assert.True(t, NewFilter("", "").Empty())
	assert.Equal(t, []string{"a/*"}, NewFilter("a/*", "").Patterns())
}

func TestDiscover(t *testing.T) {
	root := t.TempDir()
	createTestFile(t, filepath.Join(root, "src", "main.cpp"))
	createTestFile(t, filepath.Join(root, "src", "util.cc"))
	createTestFile(t, filepath.Join(root, "src", "util.h"))
	createTestFile(t, filepath.Join(root, "src", "UPPER.CPP"))
	createTestFile(t, filepath.Join(root, "src", "gen", "gen.cpp"))
	createTestFile(t, filepath.Join(root, "extra", "script.txt"))

	t.Run("extensions are case sensitive", func(t *testing.T) {
		files := Files([]string{root}, nil, []string{".cpp", ".cc"})
		assert.Equal(t, []string{
			filepath.Join(root, "src", "gen", "gen.cpp"),
			filepath.Join(root, "src", "main.cpp"),
			filepath.Join(root, "src", "util.cc"),
		}, files.Slice())
	})

	t.Run("exclude filter on absolute path", func(t *testing.T) {
		files := Files([]string{root}, NewFilter(filepath.ToSlash(root)+"/**/gen/**"), []string{".cpp"})
		assert.False(t, files.Has(filepath.Join(root, "src", "gen", "gen.cpp")))
		assert.True(t, files.Has(filepath.Join(root, "src", "main.cpp")))
	})

	t.Run("file root is taken verbatim", func(t *testing.T) {
		script := filepath.Join(root, "extra", "script.txt")
		files := Files([]string{script}, nil, []string{".cpp"})
		assert.True(t, files.Has(script))
	})

	t.Run("exclude wins over explicit file root", func(t *testing.T) {
		script := filepath.Join(root, "extra", "script.txt")
		files := Files([]string{script}, NewFilter(filepath.ToSlash(root)+"/extra/*"), nil)
		assert.Zero(t, files.Len())
	})

	t.Run("no extensions means nothing below directories", func(t *testing.T) {
		assert.Zero(t, Files([]string{root}, nil, nil).Len())
	})

	t.Run("include filter overrides exclude", func(t *testing.T) {
		res := Discover(Options{
			Roots:      []string{root},
			Excludes:   NewFilter(filepath.ToSlash(root) + "/src/**"),
			Includes:   NewFilter(filepath.ToSlash(root) + "/src/main.cpp"),
			Extensions: []string{".cpp"},
		})
		assert.Equal(t, []string{filepath.Join(root, "src", "main.cpp")}, res.Files.Slice())
	})

	t.Run("missing root is a warning", func(t *testing.T) {
		res := Discover(Options{Roots: []string{filepath.Join(root, "nope")}, Extensions: []string{".cpp"}})
		assert.Zero(t, res.Files.Len())
		assert.Len(t, res.Warnings, 1)
	})
}

func TestDiscoverSymlinkCycle(t *testing.T) {
	root := t.TempDir()
	createTestFile(t, filepath.Join(root, "a", "x.c"))
	if err := os.Symlink(root, filepath.Join(root, "a", "loop")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	res := Discover(Options{Roots: []string{root}, Extensions: []string{".c"}})
	assert.True(t, res.Files.Has(filepath.Join(root, "a", "x.c")))
	require.NotEmpty(t, res.Warnings)
	assert.ErrorIs(t, res.Warnings[0].Err, ErrSymlinkCycle)
}

func TestExpandPath(t *testing.T) {
	t.Setenv("SRCGROUP_TEST_DIR", "/opt/lib")

	assert.Equal(t, "/proj/src", ExpandPath("src", "/proj"))
	assert.Equal(t, "/abs/x", ExpandPath("/abs/./x", "/proj"))
	assert.Equal(t, "/opt/lib/include", ExpandPath("$SRCGROUP_TEST_DIR/include", "/proj"))
	assert.Equal(t, "/opt/lib/include", ExpandPath("${SRCGROUP_TEST_DIR}/include", "/proj"))
	assert.Equal(t, "/opt/lib/include", ExpandPath("%SRCGROUP_TEST_DIR%/include", "/proj"))
	assert.Equal(t, "", ExpandPath("", "/proj"))

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "x"), ExpandPath("~/x", "/proj"))
}

func TestIsWithin(t *testing.T) {
	assert.True(t, IsWithin("/a/b/c", "/a/b"))
	assert.True(t, IsWithin("/a/b", "/a/b"))
	assert.False(t, IsWithin("/a/bc", "/a/b"))
	assert.False(t, IsWithin("/a", "/a/b"))
}

func TestPathSet(t *testing.T) {
	a := NewPathSet("/1", "/2", "/3")
	b := NewPathSet("/2", "/4")

	assert.Equal(t, []string{"/2"}, a.Intersect(b).Slice())
	assert.Equal(t, []string{"/1", "/3"}, a.Difference(b).Slice())
	c := a.Clone()
	c.AddSet(b)
	assert.Equal(t, 4, c.Len())
	assert.Equal(t, 3, a.Len())
	assert.True(t, NewPathSet("/x").Equal(NewPathSet("/x")))
}
