package sourcegroup

import (
	"context"

	"github.com/dshills/srcgroup/internal/command"
	"github.com/dshills/srcgroup/internal/discovery"
	"github.com/dshills/srcgroup/internal/settings"
)

// CxxEmpty indexes C or C++ files found below the configured source paths.
type CxxEmpty struct {
	base
}

// NewCxxEmpty builds a C or C++ file-list group.
func NewCxxEmpty(ctx Context, s *settings.SourceGroupSettings) SourceGroup {
	return &CxxEmpty{base{ctx: ctx, settings: s}}
}

func (g *CxxEmpty) PrepareIndexing(context.Context) error {
	g.checkPch()
	return nil
}

func (g *CxxEmpty) AllSourceFilePaths() discovery.PathSet {
	return g.discover(discovery.Options{
		Roots:      g.sourcePaths(),
		Excludes:   g.excludeFilter(),
		Extensions: g.extensions(),
	})
}

func (g *CxxEmpty) FilterToContainedFilePaths(paths discovery.PathSet) discovery.PathSet {
	return filterContained(paths, nil, g.sourcePaths(), g.excludeFilter())
}

// CompilerFlags returns the flags shared by every file of the group, without
// the source path.
func (g *CxxEmpty) CompilerFlags() []string {
	var flags []string
	if c := find[*settings.CrossCompilation](g.settings); c != nil {
		flags = command.AppendNonEmpty(flags, c.TargetFlag())
	}
	lang := g.settings.Type.Language()
	standard := settings.DefaultStandard(lang)
	if s := g.settings.Standard(lang); s != nil && s.Value != "" {
		standard = s.Value
	}
	flags = command.AppendNonEmpty(flags, command.StandardFlag(standard))
	if lang == settings.LanguageCpp {
		flags = append(flags, "-x", "c++")
	}
	flags = append(flags, g.systemIncludeFlags()...)
	flags = append(flags, g.frameworkFlags()...)
	flags = append(flags, command.PchFlags(g.pchFile())...)
	return append(flags, g.pathsAndFlags().CompilerFlags...)
}

func (g *CxxEmpty) IndexerCommands(ctx context.Context, filesToIndex discovery.PathSet) ([]command.Command, error) {
	flags := g.CompilerFlags()
	indexed := g.sourcePaths()
	excludes := g.excludePatterns()

	var cmds []command.Command
	for _, path := range selected(g.AllSourceFilePaths(), filesToIndex) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cmds = append(cmds, command.NewCxx(g.settings.ID, path, command.CxxPayload{
			IndexedPaths:     indexed,
			ExcludeFilters:   excludes,
			WorkingDirectory: g.projectDir(),
			CompilerFlags:    append(append([]string(nil), flags...), path),
		}))
	}
	return cmds, nil
}
