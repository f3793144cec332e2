package sourcegroup

import (
	"context"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dshills/srcgroup/internal/command"
	"github.com/dshills/srcgroup/internal/discovery"
	"github.com/dshills/srcgroup/internal/settings"
	"github.com/dshills/srcgroup/pkg/types"
)

// cppManualModuleType is the xsi:type of the native modules a C++ group
// indexes.
const cppManualModuleType = "xsdCppManualModule"

// includeOptionPrefixes are the compiler options that name an include
// directory. No prefix is a prefix of a later one.
var includeOptionPrefixes = []string{"-I", "--include_directory=", "--sys_include="}

type sgRootPath struct {
	Name string `xml:"name,attr"`
}

type sgModule struct {
	Name                  string       `xml:"name,attr"`
	Type                  string       `xml:"type,attr"`
	RootPaths             []sgRootPath `xml:"rootPath"`
	Excludes              []string     `xml:"exclude"`
	Includes              []string     `xml:"include"`
	BasePathForIncludes   *string      `xml:"basePathForIncludes"`
	SourceFileExtensions  *string      `xml:"sourceFileExtensions"`
	ModuleCompilerOptions []string     `xml:"moduleCompilerOptions"`
}

type sgSystem struct {
	XMLName     xml.Name   `xml:"softwareSystem"`
	Name        string     `xml:"name,attr"`
	Version     string     `xml:"version,attr"`
	Description string     `xml:"description"`
	Excludes    []string   `xml:"exclude"`
	Includes    []string   `xml:"include"`
	Modules     []sgModule `xml:"module"`
}

// SonargraphModule is a native module with manually configured compiler
// options.
type SonargraphModule struct {
	Name            string
	RootPaths       []string
	Extensions      []string
	Excludes        []string
	Includes        []string
	IncludeBaseDir  string
	CompilerOptions []string
}

// SonargraphSystem is the parsed content of a Sonargraph system file,
// reduced to its C++ manual modules.
type SonargraphSystem struct {
	Name    string
	BaseDir string
	Modules []SonargraphModule
}

// LoadSonargraphSystem parses a Sonargraph system file. Root paths resolve
// against the base directory: the directory holding the ".sonargraph"
// directory of the file, or the directory of the file otherwise.
func LoadSonargraphSystem(path string) (*SonargraphSystem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", path, types.ErrBuildFileMissing)
		}
		return nil, err
	}
	var doc sgSystem
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%s: %v: %w", path, err, types.ErrBuildFileInvalid)
	}

	baseDir := filepath.Dir(path)
	if strings.HasSuffix(baseDir, ".sonargraph") {
		baseDir = filepath.Dir(baseDir)
	}

	sys := &SonargraphSystem{Name: doc.Name, BaseDir: baseDir}
	for _, m := range doc.Modules {
		if m.Type != "" && !strings.HasSuffix(m.Type, cppManualModuleType) {
			continue
		}
		mod := SonargraphModule{
			Name:           m.Name,
			Extensions:     []string{".cpp"},
			Excludes:       append(trimAll(doc.Excludes), trimAll(m.Excludes)...),
			Includes:       append(trimAll(doc.Includes), trimAll(m.Includes)...),
			IncludeBaseDir: baseDir,
		}
		for _, r := range m.RootPaths {
			if r.Name != "" {
				mod.RootPaths = append(mod.RootPaths, resolveAgainst(baseDir, r.Name))
			}
		}
		if m.BasePathForIncludes != nil {
			mod.IncludeBaseDir = resolveAgainst(baseDir, strings.TrimSpace(*m.BasePathForIncludes))
		}
		if m.SourceFileExtensions != nil {
			mod.Extensions = nil
			for _, e := range strings.Split(*m.SourceFileExtensions, ",") {
				if e = strings.TrimSpace(e); e != "" {
					mod.Extensions = append(mod.Extensions, e)
				}
			}
		}
		for _, o := range m.ModuleCompilerOptions {
			mod.CompilerOptions = append(mod.CompilerOptions, strings.Fields(o)...)
		}
		sys.Modules = append(sys.Modules, mod)
	}
	return sys, nil
}

func resolveAgainst(dir, path string) string {
	path = filepath.FromSlash(path)
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(dir, path)
}

func trimAll(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// SourceFiles discovers the module files. Module and system exclude
// filters apply unless an include filter re-admits the file.
func (m SonargraphModule) SourceFiles() discovery.Result {
	return discovery.Discover(discovery.Options{
		Roots:      m.RootPaths,
		Excludes:   discovery.NewFilter(m.Excludes...),
		Includes:   discovery.NewFilter(m.Includes...),
		Extensions: m.Extensions,
	})
}

// CompilerFlags rewrites include options to "-isystem <abs>" and keeps the
// other options as they are.
func (m SonargraphModule) CompilerFlags() []string {
	var flags []string
	for _, opt := range m.CompilerOptions {
		dir, ok := includeOption(opt)
		if !ok {
			flags = append(flags, opt)
			continue
		}
		flags = append(flags, "-isystem", resolveAgainst(m.IncludeBaseDir, dir))
	}
	return flags
}

func includeOption(opt string) (string, bool) {
	for _, prefix := range includeOptionPrefixes {
		if strings.HasPrefix(opt, prefix) {
			return strings.TrimSpace(opt[len(prefix):]), true
		}
	}
	return "", false
}

// CxxSonargraph indexes the C++ manual modules of a Sonargraph system.
type CxxSonargraph struct {
	base
}

// NewCxxSonargraph builds a Sonargraph group.
func NewCxxSonargraph(ctx Context, s *settings.SourceGroupSettings) SourceGroup {
	return &CxxSonargraph{base{ctx: ctx, settings: s}}
}

func (g *CxxSonargraph) PrepareIndexing(context.Context) error {
	path := g.buildFile()
	if _, err := LoadSonargraphSystem(path); err != nil {
		gerr := g.fail(types.KindResource, "prepare", err).WithPath(path)
		g.report(true, "%v", gerr)
		return gerr
	}
	return nil
}

func (g *CxxSonargraph) load() *SonargraphSystem {
	path := g.buildFile()
	if path == "" {
		return nil
	}
	sys, err := LoadSonargraphSystem(path)
	if err != nil {
		g.report(true, "%v", err)
		return nil
	}
	return sys
}

// moduleFiles returns the files of every module, keyed by module index, with
// the group exclude filters applied.
func (g *CxxSonargraph) moduleFiles(sys *SonargraphSystem) []discovery.PathSet {
	if sys == nil {
		return nil
	}
	excludes := g.excludeFilter()
	out := make([]discovery.PathSet, len(sys.Modules))
	for i, m := range sys.Modules {
		res := m.SourceFiles()
		for _, w := range res.Warnings {
			g.report(false, "skipped %s", w)
		}
		files := discovery.NewPathSet()
		for p := range res.Files {
			if !excludes.Match(p) {
				files.Add(p)
			}
		}
		out[i] = files
	}
	return out
}

func (g *CxxSonargraph) AllSourceFilePaths() discovery.PathSet {
	all := discovery.NewPathSet()
	for _, files := range g.moduleFiles(g.load()) {
		all.AddSet(files)
	}
	return all
}

func (g *CxxSonargraph) FilterToContainedFilePaths(paths discovery.PathSet) discovery.PathSet {
	roots := g.indexedHeaderPaths()
	if sys := g.load(); sys != nil {
		for _, m := range sys.Modules {
			roots = append(roots, m.RootPaths...)
		}
	}
	return filterContained(paths, nil, roots, g.excludeFilter())
}

func (g *CxxSonargraph) IndexerCommands(ctx context.Context, filesToIndex discovery.PathSet) ([]command.Command, error) {
	sys := g.load()
	if sys == nil {
		return nil, nil
	}
	standard := settings.DefaultCppStandard
	if s := g.settings.Standard(settings.LanguageCpp); s != nil && s.Value != "" {
		standard = s.Value
	}
	shared := append(g.systemIncludeFlags(), g.frameworkFlags()...)
	shared = append(shared, g.pathsAndFlags().CompilerFlags...)
	indexed := g.indexedHeaderPaths()
	excludes := g.excludePatterns()

	seen := discovery.NewPathSet()
	var out []command.Command
	for i, files := range g.moduleFiles(sys) {
		m := sys.Modules[i]
		flags := command.AppendNonEmpty(m.CompilerFlags(), command.StandardFlag(standard))
		flags = append(flags, shared...)

		for _, path := range selected(files, filesToIndex) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if seen.Has(path) {
				continue
			}
			seen.Add(path)
			out = append(out, command.NewCxx(g.settings.ID, path, command.CxxPayload{
				IndexedPaths:     append(append([]string(nil), indexed...), path),
				ExcludeFilters:   append(append([]string(nil), excludes...), m.Excludes...),
				IncludeFilters:   m.Includes,
				WorkingDirectory: sys.BaseDir,
				CompilerFlags:    append(append([]string(nil), flags...), path),
			}))
		}
	}
	command.SortBySource(out)
	return out, nil
}
