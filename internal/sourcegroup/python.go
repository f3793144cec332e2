package sourcegroup

import (
	"context"

	"github.com/dshills/srcgroup/internal/command"
	"github.com/dshills/srcgroup/internal/discovery"
	"github.com/dshills/srcgroup/internal/settings"
)

// PythonEmpty indexes Python files found below the configured source paths.
type PythonEmpty struct {
	base
}

// NewPythonEmpty builds a Python file-list group.
func NewPythonEmpty(ctx Context, s *settings.SourceGroupSettings) SourceGroup {
	return &PythonEmpty{base{ctx: ctx, settings: s}}
}

func (g *PythonEmpty) environment() string {
	if c := find[*settings.PythonEnvironment](g.settings); c != nil {
		return c.Expanded(g.projectDir())
	}
	return ""
}

func (g *PythonEmpty) PrepareIndexing(context.Context) error {
	if env := g.environment(); env != "" && !discovery.Exists(env) {
		g.report(true, "python environment %s does not exist", env)
	}
	return nil
}

func (g *PythonEmpty) AllSourceFilePaths() discovery.PathSet {
	return g.discover(discovery.Options{
		Roots:      g.sourcePaths(),
		Excludes:   g.excludeFilter(),
		Extensions: g.extensions(),
	})
}

func (g *PythonEmpty) FilterToContainedFilePaths(paths discovery.PathSet) discovery.PathSet {
	return filterContained(paths, nil, g.sourcePaths(), g.excludeFilter())
}

func (g *PythonEmpty) IndexerCommands(ctx context.Context, filesToIndex discovery.PathSet) ([]command.Command, error) {
	env := g.environment()
	verbose := g.ctx.App != nil && g.ctx.App.Verbose

	var cmds []command.Command
	for _, path := range selected(g.AllSourceFilePaths(), filesToIndex) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cmds = append(cmds, command.NewPython(g.settings.ID, path, command.PythonPayload{
			EnvironmentPath: env,
			Verbose:         verbose,
		}))
	}
	return cmds, nil
}
