package jvmdeps

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Output line prefixes printed by the init script.
const (
	gradleSourcePrefix = "SRCGROUP_SOURCE_DIR="
	gradleTestPrefix   = "SRCGROUP_TEST_DIR="
)

// gradleInitScript adds a task to every java project that copies the
// runtime classpath into the output directory and prints the source
// directories.
const gradleInitScript = `allprojects { p ->
    p.afterEvaluate {
        if (!p.plugins.hasPlugin('java')) {
            return
        }
        p.tasks.register('srcgroupExport') {
            doLast {
                def out = new File(System.getProperty('srcgroup.outputDir'))
                def tests = System.getProperty('srcgroup.includeTests') == 'true'
                out.mkdirs()
                p.sourceSets.main.java.srcDirs.each { println "` + gradleSourcePrefix + `" + it }
                p.copy { from p.configurations.runtimeClasspath; into out }
                if (tests) {
                    p.sourceSets.test.java.srcDirs.each { println "` + gradleTestPrefix + `" + it }
                    p.copy { from p.configurations.testRuntimeClasspath; into out }
                }
            }
        }
    }
}
`

// Gradle resolves Gradle builds through an init script.
type Gradle struct {
	Path string
	Options
}

// NewGradle returns a Gradle tool running the executable at path.
func NewGradle(path string, opts Options) *Gradle {
	if path == "" {
		path = "gradle"
	}
	return &Gradle{Path: path, Options: opts}
}

func (g *Gradle) Name() string { return "gradle" }

// Resolve copies the runtime classpath into req.OutputDir and collects the
// source directories of every java project of the build.
func (g *Gradle) Resolve(ctx context.Context, req Request) (*Result, error) {
	if err := os.MkdirAll(req.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create dependency directory: %w", err)
	}

	script := filepath.Join(req.OutputDir, "srcgroup-init.gradle")
	if err := os.WriteFile(script, []byte(gradleInitScript), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write gradle init script: %w", err)
	}
	defer func() { _ = os.Remove(script) }()

	dir := req.ProjectDir()
	out, err := g.run(ctx, dir, g.Path,
		"--quiet",
		"--init-script", script,
		"--project-dir", dir,
		"-Dsrcgroup.outputDir="+req.OutputDir,
		"-Dsrcgroup.includeTests="+strconv.FormatBool(req.IncludeTests),
		"srcgroupExport",
	)
	if err != nil {
		return nil, err
	}

	jars, err := Jars(req.OutputDir)
	if err != nil {
		return nil, err
	}
	return &Result{SourceDirs: existingDirs(GradleSourceDirs(out, req.IncludeTests)), Jars: jars}, nil
}

// GradleSourceDirs parses the directories printed by the init script.
func GradleSourceDirs(output []byte, includeTests bool) []string {
	var dirs []string
	sc := bufio.NewScanner(bytes.NewReader(output))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case strings.HasPrefix(line, gradleSourcePrefix):
			dirs = append(dirs, strings.TrimPrefix(line, gradleSourcePrefix))
		case includeTests && strings.HasPrefix(line, gradleTestPrefix):
			dirs = append(dirs, strings.TrimPrefix(line, gradleTestPrefix))
		}
	}
	return dirs
}
