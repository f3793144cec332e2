package sourcegroup

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/dshills/srcgroup/internal/command"
	"github.com/dshills/srcgroup/internal/discovery"
	"github.com/dshills/srcgroup/internal/jvmdeps"
	"github.com/dshills/srcgroup/internal/settings"
	"github.com/dshills/srcgroup/pkg/types"
)

// javaCommands builds one java command per selected file. The classpath is
// the configured entries that exist, the JRE system library when enabled,
// extra, and the package roots of all sources.
func javaCommands(ctx context.Context, b *base, sources, filesToIndex discovery.PathSet, extra []string) ([]command.Command, error) {
	files := selected(sources, filesToIndex)
	if len(files) == 0 {
		return nil, nil
	}

	var classpath []string
	if c := find[*settings.Classpath](b.settings); c != nil {
		for _, p := range c.Expanded(b.projectDir()) {
			if discovery.Exists(p) {
				classpath = append(classpath, p)
			}
		}
		if c.UseJreSystemLibrary {
			classpath = append(classpath, b.ctx.jreSystemLibraryPaths()...)
		}
	}
	classpath = append(classpath, extra...)
	classpath = append(classpath, JavaPackageRoots(sources.Slice())...)

	standard := settings.DefaultJavaStandard
	if s := b.settings.Standard(settings.LanguageJava); s != nil && s.Value != "" {
		standard = s.Value
	}

	cmds := make([]command.Command, 0, len(files))
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cmds = append(cmds, command.NewJava(b.settings.ID, path, command.JavaPayload{
			LanguageStandard: standard,
			ClassPath:        classpath,
		}))
	}
	return cmds, nil
}

// JavaEmpty indexes Java files found below the configured source paths.
type JavaEmpty struct {
	base
}

// NewJavaEmpty builds a Java file-list group.
func NewJavaEmpty(ctx Context, s *settings.SourceGroupSettings) SourceGroup {
	return &JavaEmpty{base{ctx: ctx, settings: s}}
}

func (g *JavaEmpty) AllSourceFilePaths() discovery.PathSet {
	return g.discover(discovery.Options{
		Roots:      g.sourcePaths(),
		Excludes:   g.excludeFilter(),
		Extensions: g.extensions(),
	})
}

func (g *JavaEmpty) FilterToContainedFilePaths(paths discovery.PathSet) discovery.PathSet {
	return filterContained(paths, nil, g.sourcePaths(), g.excludeFilter())
}

func (g *JavaEmpty) IndexerCommands(ctx context.Context, filesToIndex discovery.PathSet) ([]command.Command, error) {
	return javaCommands(ctx, &g.base, g.AllSourceFilePaths(), filesToIndex, nil)
}

// JavaBuild indexes a Maven or Gradle build. PrepareIndexing runs the build
// tool to copy the dependencies into the group's own dependency directory
// and to learn the source directories; until it succeeds the conventional
// src/main/java layout is assumed.
type JavaBuild struct {
	base

	mu       sync.Mutex
	resolved *jvmdeps.Result
}

// NewJavaBuild builds a Maven or Gradle group.
func NewJavaBuild(ctx Context, s *settings.SourceGroupSettings) SourceGroup {
	return &JavaBuild{base: base{ctx: ctx, settings: s}}
}

func (g *JavaBuild) build() *settings.JvmBuild {
	if c := find[*settings.JvmBuild](g.settings); c != nil {
		return c
	}
	return &settings.JvmBuild{}
}

func (g *JavaBuild) tool() jvmdeps.Tool {
	switch g.build().Tool {
	case settings.ToolMaven:
		return g.ctx.Maven
	case settings.ToolGradle:
		return g.ctx.Gradle
	}
	return nil
}

func (g *JavaBuild) projectFile() string {
	return g.build().ExpandedProjectFilePath(g.projectDir())
}

// outputDir is where this group's dependency jars are copied to.
func (g *JavaBuild) outputDir() string {
	return filepath.Join(g.dependencyDir(), g.build().Tool)
}

func (g *JavaBuild) Validate() error {
	if g.projectFile() == "" {
		return g.fail(types.KindConfiguration, "validate", fmt.Errorf("no %s project file configured", g.build().Tool))
	}
	return nil
}

func (g *JavaBuild) PrepareIndexing(ctx context.Context) error {
	path := g.projectFile()
	if !discovery.IsFile(path) {
		err := g.fail(types.KindResource, "prepare", types.ErrBuildFileMissing).WithPath(path)
		g.report(true, "%v", err)
		return err
	}
	tool := g.tool()
	if tool == nil {
		err := g.fail(types.KindResource, "prepare", fmt.Errorf("%s: %w", g.build().Tool, types.ErrToolUnavailable))
		g.report(true, "%v", err)
		return err
	}

	g.report(false, "resolving %s dependencies of %s", tool.Name(), path)
	res, err := tool.Resolve(ctx, jvmdeps.Request{
		ProjectFile:  path,
		OutputDir:    g.outputDir(),
		IncludeTests: g.build().ShouldIndexTests,
	})
	if err != nil {
		gerr := g.fail(types.KindExternalProcess, "resolve dependencies", err).WithPath(path)
		g.report(true, "%v", gerr)
		return gerr
	}

	if err := jvmdeps.SaveSourceDirs(g.outputDir(), res.SourceDirs); err != nil {
		g.report(true, "%v", err)
	}
	g.mu.Lock()
	g.resolved = res
	g.mu.Unlock()
	return nil
}

// sourceDirs prefers this run's resolution, then the one recorded by the
// last successful prepare, then the conventional layout.
func (g *JavaBuild) sourceDirs() []string {
	g.mu.Lock()
	res := g.resolved
	g.mu.Unlock()
	if res != nil {
		return res.SourceDirs
	}
	path := g.projectFile()
	if path == "" {
		return nil
	}
	dirs, ok, err := jvmdeps.LoadSourceDirs(g.outputDir())
	if err != nil {
		g.report(true, "%v", err)
	}
	if ok {
		return dirs
	}
	return jvmdeps.ConventionalSourceDirs(filepath.Dir(path), g.build().ShouldIndexTests)
}

func (g *JavaBuild) jars() []string {
	g.mu.Lock()
	res := g.resolved
	g.mu.Unlock()
	if res != nil {
		return res.Jars
	}
	jars, err := jvmdeps.Jars(g.outputDir())
	if err != nil {
		g.report(true, "%v", err)
	}
	return jars
}

func (g *JavaBuild) AllSourceFilePaths() discovery.PathSet {
	return g.discover(discovery.Options{
		Roots:      g.sourceDirs(),
		Excludes:   g.excludeFilter(),
		Extensions: g.extensions(),
	})
}

func (g *JavaBuild) FilterToContainedFilePaths(paths discovery.PathSet) discovery.PathSet {
	return filterContained(paths, nil, g.sourceDirs(), g.excludeFilter())
}

func (g *JavaBuild) IndexerCommands(ctx context.Context, filesToIndex discovery.PathSet) ([]command.Command, error) {
	return javaCommands(ctx, &g.base, g.AllSourceFilePaths(), filesToIndex, g.jars())
}
