package sourcegroup

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dshills/srcgroup/internal/command"
	"github.com/dshills/srcgroup/internal/config"
	"github.com/dshills/srcgroup/internal/discovery"
	"github.com/dshills/srcgroup/internal/jvmdeps"
	"github.com/dshills/srcgroup/internal/settings"
	"github.com/dshills/srcgroup/pkg/types"
)

// SourceGroup turns the settings of one source group into its source files
// and indexer commands. Groups are rebuilt from settings on every load and
// refresh and share no mutable state, so distinct groups may be used from
// different goroutines.
type SourceGroup interface {
	// Settings returns the settings the group was built from.
	Settings() *settings.SourceGroupSettings

	// Validate checks the configuration before anything is touched. An
	// error blocks only this group.
	Validate() error

	// PrepareIndexing checks preconditions such as the presence of build
	// files and resolves external dependencies. An error blocks only this
	// group for the current refresh.
	PrepareIndexing(ctx context.Context) error

	// AllSourceFilePaths returns the absolute paths of every source file the
	// group indexes.
	AllSourceFilePaths() discovery.PathSet

	// FilterToContainedFilePaths returns the subset of paths owned by this
	// group.
	FilterToContainedFilePaths(paths discovery.PathSet) discovery.PathSet

	// IndexerCommands returns one command per source file that is also in
	// filesToIndex, sorted by source path.
	IndexerCommands(ctx context.Context, filesToIndex discovery.PathSet) ([]command.Command, error)
}

// Context carries everything outside the group settings that a source group
// needs. It replaces process-wide settings and is built once per project.
type Context struct {
	App            *config.AppSettings
	ProjectFile    string
	ProjectDir     string
	DatabaseFile   string
	DependencyDir  string
	StorageVersion int
	Status         types.StatusSink
	Maven          jvmdeps.Tool
	Gradle         jvmdeps.Tool
}

// NewContext derives a Context for the project p. DatabaseFile is the
// temporary database written during a refresh.
func NewContext(app *config.AppSettings, p *settings.ProjectSettings, storageVersion int, status types.StatusSink) Context {
	if app == nil {
		d := config.Default()
		app = &d
	}
	if status == nil {
		status = types.DiscardStatus
	}
	opts := jvmdeps.Options{Timeout: app.DependencyTimeout, JavaHome: app.JavaHome}
	maven := jvmdeps.NewMaven(app.MavenPath, opts)
	maven.SettingsPath = app.MavenSettingsPath

	return Context{
		App:            app,
		ProjectFile:    p.Path,
		ProjectDir:     p.ProjectDir(),
		DatabaseFile:   p.TempDBPath(),
		DependencyDir:  p.DependenciesDir(),
		StorageVersion: storageVersion,
		Status:         status,
		Maven:          maven,
		Gradle:         jvmdeps.NewGradle(app.GradlePath, opts),
	}
}

func (c Context) globalHeaderSearchPaths() []string {
	if c.App == nil {
		return nil
	}
	return discovery.ExpandPaths(c.App.HeaderSearchPaths, "")
}

func (c Context) globalFrameworkSearchPaths() []string {
	if c.App == nil {
		return nil
	}
	return discovery.ExpandPaths(c.App.FrameworkSearchPaths, "")
}

func (c Context) jreSystemLibraryPaths() []string {
	if c.App == nil {
		return nil
	}
	return discovery.ExpandPaths(c.App.JreSystemLibraryPaths, "")
}

// base carries what every strategy shares.
type base struct {
	ctx      Context
	settings *settings.SourceGroupSettings
}

func (b *base) Settings() *settings.SourceGroupSettings { return b.settings }

func (b *base) Validate() error { return nil }

func (b *base) PrepareIndexing(context.Context) error { return nil }

func (b *base) projectDir() string { return b.ctx.ProjectDir }

// dependencyDir is the cache directory owned by this group alone.
func (b *base) dependencyDir() string {
	return filepath.Join(b.ctx.DependencyDir, b.settings.ID)
}

func (b *base) report(isError bool, format string, args ...any) {
	if b.ctx.Status == nil {
		return
	}
	b.ctx.Status.Status(types.StatusMessage{
		Time:    time.Now(),
		GroupID: b.settings.ID,
		Text:    fmt.Sprintf(format, args...),
		IsError: isError,
	})
}

func (b *base) fail(kind types.ErrorKind, op string, err error) *types.GroupError {
	return types.NewGroupError(kind, b.settings.ID, op, err).WithName(b.settings.Name)
}

func find[T settings.Component](s *settings.SourceGroupSettings) T {
	c, _ := settings.Find[T](s.Components)
	return c
}

func (b *base) sourcePaths() []string {
	if c := find[*settings.SourcePaths](b.settings); c != nil {
		return c.Expanded(b.projectDir())
	}
	return nil
}

func (b *base) indexedHeaderPaths() []string {
	if c := find[*settings.IndexedHeaderPaths](b.settings); c != nil {
		return c.Expanded(b.projectDir())
	}
	return nil
}

func (b *base) extensions() []string {
	if c := find[*settings.SourceExtensions](b.settings); c != nil {
		return c.Effective()
	}
	return settings.DefaultExtensions(b.settings.Type)
}

func (b *base) excludePatterns() []string {
	if c := find[*settings.ExcludeFilters](b.settings); c != nil {
		return c.Expanded(b.projectDir())
	}
	return nil
}

func (b *base) excludeFilter() *discovery.Filter {
	return discovery.NewFilter(b.excludePatterns()...)
}

func (b *base) pathsAndFlags() *settings.PathsAndFlags {
	if c := find[*settings.PathsAndFlags](b.settings); c != nil {
		return c
	}
	return &settings.PathsAndFlags{}
}

// buildFile returns the expanded build file path or "".
func (b *base) buildFile() string {
	if c := find[*settings.BuildFile](b.settings); c != nil {
		return c.Expanded(b.projectDir())
	}
	return ""
}

// discover runs file discovery and reports its warnings.
func (b *base) discover(opts discovery.Options) discovery.PathSet {
	res := discovery.Discover(opts)
	for _, w := range res.Warnings {
		b.report(false, "skipped %s", w)
	}
	return res.Files
}

// systemIncludeFlags returns -isystem flags for the group's header search
// paths followed by the global ones.
func (b *base) systemIncludeFlags() []string {
	return command.SystemIncludeFlags(
		b.pathsAndFlags().ExpandedHeaderSearchPaths(b.projectDir()),
		b.ctx.globalHeaderSearchPaths(),
	)
}

// frameworkFlags returns -iframework flags for the group's framework paths
// followed by the global ones.
func (b *base) frameworkFlags() []string {
	return command.FrameworkFlags(
		b.pathsAndFlags().ExpandedFrameworkSearchPaths(b.projectDir()),
		b.ctx.globalFrameworkSearchPaths(),
	)
}

// pchFile returns the precompiled header written for this group, or "" when
// none is configured.
func (b *base) pchFile() string {
	c := find[*settings.Pch](b.settings)
	if c == nil {
		return ""
	}
	input := c.ExpandedInputFilePath(b.projectDir())
	if input == "" {
		return ""
	}
	return command.PchFileName(b.dependencyDir(), input)
}

// checkPch reports a configured but missing precompiled header input.
func (b *base) checkPch() {
	c := find[*settings.Pch](b.settings)
	if c == nil {
		return
	}
	if input := c.ExpandedInputFilePath(b.projectDir()); input != "" && !discovery.Exists(input) {
		b.report(true, "precompiled header input %s does not exist", input)
	}
}

// filterContained keeps the candidates that are not excluded and either are
// one of sources or lie below one of roots.
func filterContained(candidates, sources discovery.PathSet, roots []string, excludes *discovery.Filter) discovery.PathSet {
	out := discovery.NewPathSet()
	for p := range candidates {
		if excludes.Match(p) {
			continue
		}
		if sources.Has(p) {
			out.Add(p)
			continue
		}
		for _, root := range roots {
			if discovery.IsWithin(p, root) {
				out.Add(p)
				break
			}
		}
	}
	return out
}

// selected returns the members of sources that are in filesToIndex, sorted.
func selected(sources, filesToIndex discovery.PathSet) []string {
	return sources.Intersect(filesToIndex).Slice()
}
