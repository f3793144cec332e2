package jvmdeps

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Request describes one dependency resolution.
type Request struct {
	// ProjectFile is the pom.xml or build.gradle(.kts) of the build. Its
	// directory is the directory the tool runs in.
	ProjectFile string
	// OutputDir receives the dependency jars. It is namespaced per source
	// group by the caller.
	OutputDir    string
	IncludeTests bool
}

// ProjectDir returns the directory of the project file.
func (r Request) ProjectDir() string {
	return filepath.Dir(r.ProjectFile)
}

// Result is what a build tool reports about a project.
type Result struct {
	// SourceDirs are the existing source directories, tests included when
	// requested.
	SourceDirs []string
	// Jars are the dependency archives found in OutputDir.
	Jars []string
}

// Tool resolves the dependencies and source layout of a JVM build.
type Tool interface {
	Name() string
	Resolve(ctx context.Context, req Request) (*Result, error)
}

// ConventionalSourceDirs returns the standard layout directories below
// projectDir that exist. It is used when the tool has not run yet.
func ConventionalSourceDirs(projectDir string, includeTests bool) []string {
	candidates := []string{filepath.Join(projectDir, "src", "main", "java")}
	if includeTests {
		candidates = append(candidates, filepath.Join(projectDir, "src", "test", "java"))
	}
	return existingDirs(candidates)
}

// SourceDirsFile names the file in an output directory that remembers the
// source directories of the last successful resolution.
const SourceDirsFile = "source_dirs.json"

type sourceDirsCache struct {
	SourceDirs []string `json:"source_dirs"`
}

// SaveSourceDirs records dirs in outputDir for later runs.
func SaveSourceDirs(outputDir string, dirs []string) error {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create dependency directory: %w", err)
	}
	data, err := json.Marshal(sourceDirsCache{SourceDirs: dirs})
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(outputDir, SourceDirsFile), data, 0o644); err != nil {
		return fmt.Errorf("failed to record source directories: %w", err)
	}
	return nil
}

// LoadSourceDirs returns the directories recorded by SaveSourceDirs that
// still exist. ok is false when nothing was recorded.
func LoadSourceDirs(outputDir string) (dirs []string, ok bool, err error) {
	data, err := os.ReadFile(filepath.Join(outputDir, SourceDirsFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var cache sourceDirsCache
	if err := json.Unmarshal(data, &cache); err != nil {
		return nil, false, fmt.Errorf("failed to read %s: %w", SourceDirsFile, err)
	}
	return existingDirs(cache.SourceDirs), true, nil
}

// Jars lists the .jar files directly inside dir, sorted.
func Jars(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list dependency directory: %w", err)
	}
	var jars []string
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".jar") {
			jars = append(jars, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(jars)
	return jars, nil
}

func existingDirs(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	var out []string
	for _, p := range paths {
		p = filepath.Clean(p)
		if seen[p] {
			continue
		}
		seen[p] = true
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			out = append(out, p)
		}
	}
	return out
}
