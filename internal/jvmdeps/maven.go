package jvmdeps

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dshills/srcgroup/pkg/types"
)

// Maven resolves Maven builds.
type Maven struct {
	Path         string
	SettingsPath string
	Options
}

// NewMaven returns a Maven tool running the executable at path.
func NewMaven(path string, opts Options) *Maven {
	if path == "" {
		path = "mvn"
	}
	return &Maven{Path: path, Options: opts}
}

func (m *Maven) Name() string { return "maven" }

// Resolve runs generate-sources, copies the dependencies to req.OutputDir
// and reads the source directories from the effective POM.
func (m *Maven) Resolve(ctx context.Context, req Request) (*Result, error) {
	dir := req.ProjectDir()
	if err := os.MkdirAll(req.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create dependency directory: %w", err)
	}

	if _, err := m.run(ctx, dir, m.Path, m.args("generate-sources")...); err != nil {
		return nil, err
	}
	if _, err := m.run(ctx, dir, m.Path, m.args("dependency:copy-dependencies", "-DoutputDirectory="+req.OutputDir)...); err != nil {
		return nil, err
	}
	out, err := m.run(ctx, dir, m.Path, m.args("help:effective-pom")...)
	if err != nil {
		return nil, err
	}

	dirs, err := EffectivePomSourceDirs(out, req.IncludeTests)
	if err != nil {
		return nil, err
	}
	jars, err := Jars(req.OutputDir)
	if err != nil {
		return nil, err
	}
	return &Result{SourceDirs: existingDirs(dirs), Jars: jars}, nil
}

func (m *Maven) args(goals ...string) []string {
	args := []string{"--batch-mode"}
	if m.SettingsPath != "" {
		args = append(args, "--settings", m.SettingsPath)
	}
	return append(args, goals...)
}

type pomProject struct {
	Build struct {
		SourceDirectory     string `xml:"sourceDirectory"`
		TestSourceDirectory string `xml:"testSourceDirectory"`
		Directory           string `xml:"directory"`
	} `xml:"build"`
}

// EffectivePomSourceDirs extracts the source directories of every project in
// the output of help:effective-pom. Log lines around the XML are ignored.
// Generated source directories below the build directory are included.
func EffectivePomSourceDirs(output []byte, includeTests bool) ([]string, error) {
	var doc bytes.Buffer
	for _, line := range strings.Split(string(output), "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "[ERROR]") || strings.HasPrefix(trimmed, "Error") {
			return nil, fmt.Errorf("maven reported: %s: %w", trimmed, types.ErrBuildFileInvalid)
		}
		if strings.HasPrefix(trimmed, "<") && !strings.HasPrefix(trimmed, "<?xml") {
			doc.WriteString(line)
			doc.WriteByte('\n')
		}
	}
	if doc.Len() == 0 {
		return nil, fmt.Errorf("effective pom is empty: %w", types.ErrBuildFileInvalid)
	}

	var dirs []string
	dec := xml.NewDecoder(&doc)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse effective pom: %v: %w", err, types.ErrBuildFileInvalid)
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "project" {
			continue
		}
		var p pomProject
		if err := dec.DecodeElement(&p, &start); err != nil {
			return nil, fmt.Errorf("failed to parse effective pom: %v: %w", err, types.ErrBuildFileInvalid)
		}
		b := p.Build
		dirs = appendNonEmpty(dirs, b.SourceDirectory)
		if b.Directory != "" {
			dirs = append(dirs, filepath.Join(b.Directory, "generated-sources"))
		}
		if includeTests {
			dirs = appendNonEmpty(dirs, b.TestSourceDirectory)
			if b.Directory != "" {
				dirs = append(dirs, filepath.Join(b.Directory, "generated-test-sources"))
			}
		}
	}
	return dirs, nil
}

func appendNonEmpty(list []string, v string) []string {
	if v = strings.TrimSpace(v); v != "" {
		return append(list, v)
	}
	return list
}
