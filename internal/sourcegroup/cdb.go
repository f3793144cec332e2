package sourcegroup

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dshills/srcgroup/internal/command"
	"github.com/dshills/srcgroup/internal/discovery"
	"github.com/dshills/srcgroup/internal/settings"
	"github.com/dshills/srcgroup/pkg/types"
)

// CompileCommand is one translation unit of a compilation database.
type CompileCommand struct {
	Directory string
	File      string
	Arguments []string
}

type cdbEntry struct {
	Directory string   `json:"directory"`
	File      string   `json:"file"`
	Command   string   `json:"command"`
	Arguments []string `json:"arguments"`
}

// LoadCompilationDatabase parses a JSON compilation database. File paths are
// made absolute: relative files resolve against the entry directory and
// relative directories against the directory of the database.
func LoadCompilationDatabase(path string) ([]CompileCommand, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", path, types.ErrBuildFileMissing)
		}
		return nil, err
	}

	var entries []cdbEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%s: %v: %w", path, err, types.ErrBuildFileInvalid)
	}

	base := filepath.Dir(path)
	cmds := make([]CompileCommand, 0, len(entries))
	for i, e := range entries {
		if e.File == "" {
			return nil, fmt.Errorf("%s: entry %d has no file: %w", path, i, types.ErrBuildFileInvalid)
		}
		args := e.Arguments
		if len(args) == 0 {
			args, err = splitCommandLine(e.Command)
			if err != nil {
				return nil, fmt.Errorf("%s: entry %d: %v: %w", path, i, err, types.ErrBuildFileInvalid)
			}
		}
		dir := e.Directory
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(base, dir)
		}
		file := e.File
		if !filepath.IsAbs(file) {
			file = filepath.Join(dir, file)
		}
		cmds = append(cmds, CompileCommand{
			Directory: filepath.Clean(dir),
			File:      filepath.Clean(file),
			Arguments: args,
		})
	}
	return cmds, nil
}

// CxxCdb indexes the translation units of a compilation database. The
// database is parsed on every call because it may change between refreshes.
type CxxCdb struct {
	base
}

// NewCxxCdb builds a compilation database group.
func NewCxxCdb(ctx Context, s *settings.SourceGroupSettings) SourceGroup {
	return &CxxCdb{base{ctx: ctx, settings: s}}
}

func (g *CxxCdb) PrepareIndexing(context.Context) error {
	path := g.buildFile()
	if path == "" {
		return nil
	}
	if !discovery.Exists(path) {
		err := g.fail(types.KindResource, "prepare", fmt.Errorf("compilation database does not exist anymore: %w", types.ErrBuildFileMissing)).WithPath(path)
		g.report(true, "%v", err)
		return err
	}
	if _, err := LoadCompilationDatabase(path); err != nil {
		gerr := g.fail(types.KindResource, "prepare", err).WithPath(path)
		g.report(true, "%v", gerr)
		return gerr
	}
	g.checkPch()
	return nil
}

// load parses the database, reporting failures on the status channel.
func (g *CxxCdb) load() []CompileCommand {
	path := g.buildFile()
	if path == "" {
		return nil
	}
	cmds, err := LoadCompilationDatabase(path)
	if err != nil {
		g.report(true, "%v", err)
		return nil
	}
	return cmds
}

func (g *CxxCdb) sourceFiles(cmds []CompileCommand) discovery.PathSet {
	excludes := g.excludeFilter()
	files := discovery.NewPathSet()
	for _, c := range cmds {
		if !excludes.Match(c.File) && discovery.Exists(c.File) {
			files.Add(c.File)
		}
	}
	return files
}

func (g *CxxCdb) AllSourceFilePaths() discovery.PathSet {
	return g.sourceFiles(g.load())
}

func (g *CxxCdb) FilterToContainedFilePaths(paths discovery.PathSet) discovery.PathSet {
	return filterContained(paths, g.AllSourceFilePaths(), g.indexedHeaderPaths(), g.excludeFilter())
}

func (g *CxxCdb) IndexerCommands(ctx context.Context, filesToIndex discovery.PathSet) ([]command.Command, error) {
	cmds := g.load()
	sources := g.sourceFiles(cmds)

	extra := append(g.systemIncludeFlags(), g.frameworkFlags()...)
	extra = append(extra, g.pathsAndFlags().CompilerFlags...)
	pch := command.PchFlags(g.pchFile())
	indexed := g.indexedHeaderPaths()
	excludes := g.excludePatterns()

	seen := discovery.NewPathSet()
	var out []command.Command
	for _, c := range cmds {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !filesToIndex.Has(c.File) || !sources.Has(c.File) || seen.Has(c.File) {
			continue
		}
		seen.Add(c.File)

		flags, hadPch := command.StripIncludePch(c.Arguments)
		if hadPch {
			flags = append(flags, pch...)
		}
		flags = append(flags, extra...)

		out = append(out, command.NewCxx(g.settings.ID, c.File, command.CxxPayload{
			IndexedPaths:     append(append([]string(nil), indexed...), c.File),
			ExcludeFilters:   excludes,
			WorkingDirectory: c.Directory,
			CompilerFlags:    flags,
		}))
	}
	command.SortBySource(out)
	return out, nil
}
