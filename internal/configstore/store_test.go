package configstore

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleStore() *Store {
	s := New()
	s.SetInt("version", 8)
	s.SetString("description", "demo <project> & more")
	s.SetString("source_groups/source_group_a/type", "C++ Source Group")
	s.SetStrings("source_groups/source_group_a/source_paths/source_path", []string{"src", "lib"})
	s.SetBool("source_groups/source_group_a/run_in_parallel", true)
	s.SetString("source_groups/source_group_b/type", "Java Source Group")
	return s
}

func TestStoreAccessors(t *testing.T) {
	s := sampleStore()

	t.Run("typed getters", func(t *testing.T) {
		assert.Equal(t, 8, s.Int("version", 0))
		assert.Equal(t, 3, s.Int("missing", 3))
		assert.True(t, s.Bool("source_groups/source_group_a/run_in_parallel", false))
		assert.Equal(t, "x", s.String("nope", "x"))
		assert.Equal(t, []string{"src", "lib"}, s.Strings("source_groups/source_group_a/source_paths/source_path", nil))
	})

	t.Run("malformed values fall back to default", func(t *testing.T) {
		c := s.Clone()
		c.SetString("version", "eight")
		c.SetString("flag", "maybe")
		assert.Equal(t, 1, c.Int("version", 1))
		assert.True(t, c.Bool("flag", true))
	})

	t.Run("sublevel keys keep first appearance order", func(t *testing.T) {
		assert.Equal(t, []string{"source_groups/source_group_a", "source_groups/source_group_b"}, s.SublevelKeys("source_groups"))
		assert.Equal(t, []string{"version", "description", "source_groups"}, s.SublevelKeys(""))
	})

	t.Run("remove prefix", func(t *testing.T) {
		c := s.Clone()
		c.Remove("source_groups/source_group_a")
		assert.False(t, c.Has("source_groups/source_group_a"))
		assert.True(t, c.Has("source_groups/source_group_b/type"))
		assert.True(t, c.Has("source_groups"))
	})

	t.Run("empty set removes key", func(t *testing.T) {
		c := s.Clone()
		c.SetStrings("description", nil)
		assert.False(t, c.Has("description"))
	})

	t.Run("equal ignores key order", func(t *testing.T) {
		a := New()
		a.SetString("x", "1")
		a.SetString("y", "2")
		b := New()
		b.SetString("y", "2")
		b.SetString("x", "1")
		assert.True(t, a.Equal(b))
		b.SetString("x", "3")
		assert.False(t, a.Equal(b))
	})
}

func TestXMLRoundTrip(t *testing.T) {
	s := sampleStore()
	data, err := s.Marshal(FormatXML)
	require.NoError(t, err)

	text := string(data)
	assert.True(t, strings.HasPrefix(text, xmlHeader))
	assert.Contains(t, text, "\t<version>8</version>\n")
	assert.Contains(t, text, "&lt;project&gt; &amp; more")
	assert.Equal(t, 2, strings.Count(text, "<source_path>"))

	loaded, err := Parse(bytes.NewReader(data), FormatXML)
	require.NoError(t, err)
	assert.True(t, s.Equal(loaded))
	assert.Equal(t, s.Keys(), loaded.Keys())
}

func TestXMLParse(t *testing.T) {
	doc := `<?xml version="1.0" encoding="utf-8" ?>
<config>
	<version>3</version>
	<source>
		<source_paths>
			<source_path>a</source_path>
			<source_path>b</source_path>
		</source_paths>
	</source>
</config>`

	s, err := Parse(strings.NewReader(doc), FormatXML)
	require.NoError(t, err)
	assert.Equal(t, 3, s.Int("version", 0))
	assert.Equal(t, []string{"a", "b"}, s.Values("source/source_paths/source_path"))

	_, err = Parse(strings.NewReader("<config><a></config>"), FormatXML)
	assert.Error(t, err)
}

func TestTOMLRoundTrip(t *testing.T) {
	s := sampleStore()
	data, err := s.Marshal(FormatTOML)
	require.NoError(t, err)

	loaded, err := Parse(bytes.NewReader(data), FormatTOML)
	require.NoError(t, err)
	assert.True(t, s.Equal(loaded))
}

func TestTOMLMixedValueAndChildren(t *testing.T) {
	s := New()
	s.SetString("a", "top")
	s.SetString("a/b", "child")

	data, err := s.Marshal(FormatTOML)
	require.NoError(t, err)

	loaded, err := Parse(bytes.NewReader(data), FormatTOML)
	require.NoError(t, err)
	assert.Equal(t, "top", loaded.String("a", ""))
	assert.Equal(t, "child", loaded.String("a/b", ""))
}

func TestSaveLoadByExtension(t *testing.T) {
	dir := t.TempDir()
	s := sampleStore()

	for _, name := range []string{"demo.srctrlprj", "demo.toml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, s.Save(path))
			loaded, err := Load(path)
			require.NoError(t, err)
			assert.True(t, s.Equal(loaded))
		})
	}

	_, err := Load(filepath.Join(dir, "missing.srctrlprj"))
	assert.Error(t, err)
}

func TestJoin(t *testing.T) {
	assert.Equal(t, "a/b/c", Join("a/", "", "/b", "c"))
	assert.Equal(t, "", Join())
}
