package sourcegroup

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/srcgroup/internal/command"
	"github.com/dshills/srcgroup/internal/discovery"
	"github.com/dshills/srcgroup/internal/settings"
	"github.com/dshills/srcgroup/pkg/types"
)

// CustomCommand runs a user supplied shell command once per source file.
type CustomCommand struct {
	base
}

// NewCustomCommand builds a custom command group.
func NewCustomCommand(ctx Context, s *settings.SourceGroupSettings) SourceGroup {
	return &CustomCommand{base{ctx: ctx, settings: s}}
}

func (g *CustomCommand) template() *settings.CustomCommand {
	if c := find[*settings.CustomCommand](g.settings); c != nil {
		return c
	}
	return &settings.CustomCommand{}
}

// Validate fails when the template cannot address a source file.
func (g *CustomCommand) Validate() error {
	if !g.template().HasSourcePlaceholder() {
		return g.fail(types.KindConfiguration, "validate", types.ErrMissingPlaceholder)
	}
	return nil
}

func (g *CustomCommand) PrepareIndexing(context.Context) error {
	if err := g.Validate(); err != nil {
		g.report(true, "%v", err)
		return err
	}
	return nil
}

func (g *CustomCommand) AllSourceFilePaths() discovery.PathSet {
	return g.discover(discovery.Options{
		Roots:      g.sourcePaths(),
		Excludes:   g.excludeFilter(),
		Extensions: g.extensions(),
	})
}

func (g *CustomCommand) FilterToContainedFilePaths(paths discovery.PathSet) discovery.PathSet {
	return filterContained(paths, nil, g.sourcePaths(), g.excludeFilter())
}

// IndexerCommands substitutes the template for every selected file. With
// run_in_parallel set the files are expanded concurrently; the result order
// is the same either way.
func (g *CustomCommand) IndexerCommands(ctx context.Context, filesToIndex discovery.PathSet) ([]command.Command, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	tmpl := g.template()
	files := selected(g.AllSourceFilePaths(), filesToIndex)
	cmds := make([]command.Command, len(files))

	build := func(i int) {
		cmds[i] = command.NewCustom(g.settings.ID, files[i], command.CustomPayload{
			Command: command.Expand(tmpl.Command, command.TemplateVars{
				SourceFilePath:   files[i],
				DatabaseFilePath: g.ctx.DatabaseFile,
				ProjectFilePath:  g.ctx.ProjectFile,
				StorageVersion:   g.ctx.StorageVersion,
			}),
			RunInParallel: tmpl.RunInParallel,
		})
	}

	if !tmpl.RunInParallel {
		for i := range files {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			build(i)
		}
		return cmds, nil
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.NumCPU())
	for i := range files {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			build(i)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return cmds, nil
}
