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

type cbpOption struct {
	Title       string `xml:"title,attr"`
	CompilerVar string `xml:"compilerVar,attr"`
	Compile     string `xml:"compile,attr"`
	Target      string `xml:"target,attr"`
}

type cbpAdd struct {
	Option    string `xml:"option,attr"`
	Directory string `xml:"directory,attr"`
}

type cbpTarget struct {
	Title    string `xml:"title,attr"`
	Compiler struct {
		Adds []cbpAdd `xml:"Add"`
	} `xml:"Compiler"`
}

type cbpUnit struct {
	Filename string      `xml:"filename,attr"`
	Options  []cbpOption `xml:"Option"`
}

type cbpFile struct {
	XMLName     xml.Name
	FileVersion struct {
		Major int `xml:"major,attr"`
		Minor int `xml:"minor,attr"`
	} `xml:"FileVersion"`
	Project struct {
		Options []cbpOption `xml:"Option"`
		Build   struct {
			Targets []cbpTarget `xml:"Target"`
		} `xml:"Build"`
		Units []cbpUnit `xml:"Unit"`
	} `xml:"Project"`
}

// CodeblocksUnit is one file of a Code::Blocks project.
type CodeblocksUnit struct {
	Path    string
	Compile bool
	// Language is LanguageC for compilerVar CC, LanguageCpp for CPP or no
	// compilerVar, and LanguageUnknown otherwise.
	Language settings.Language
	Targets  []string
}

// CodeblocksTarget is one build target with its compiler settings.
type CodeblocksTarget struct {
	Title       string
	Directories []string
	Options     []string
}

// CodeblocksProject is the parsed content of a .cbp file.
type CodeblocksProject struct {
	Path    string
	Title   string
	Targets []CodeblocksTarget
	Units   []CodeblocksUnit
}

// LoadCodeblocksProject parses a Code::Blocks project file. Unit paths and
// relative compiler directories resolve against the project directory.
func LoadCodeblocksProject(path string) (*CodeblocksProject, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", path, types.ErrBuildFileMissing)
		}
		return nil, err
	}

	var doc cbpFile
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%s: %v: %w", path, err, types.ErrBuildFileInvalid)
	}
	root := doc.XMLName.Local
	if doc.XMLName.Space != "" {
		root = doc.XMLName.Space + ":" + root
	}
	if root != "CodeBlocks_project_file" && root != "Code::Blocks_project_file" {
		return nil, fmt.Errorf("%s: unexpected root element %q: %w", path, root, types.ErrBuildFileInvalid)
	}

	dir := filepath.Dir(path)
	p := &CodeblocksProject{Path: path}
	for _, o := range doc.Project.Options {
		if o.Title != "" {
			p.Title = o.Title
		}
	}
	for _, t := range doc.Project.Build.Targets {
		target := CodeblocksTarget{Title: t.Title}
		for _, a := range t.Compiler.Adds {
			if a.Directory != "" {
				d := a.Directory
				if !filepath.IsAbs(d) {
					d = filepath.Join(dir, d)
				}
				target.Directories = append(target.Directories, filepath.Clean(d))
			}
			if a.Option != "" {
				target.Options = append(target.Options, a.Option)
			}
		}
		p.Targets = append(p.Targets, target)
	}
	for _, u := range doc.Project.Units {
		if u.Filename == "" {
			continue
		}
		unit := CodeblocksUnit{
			Path:     filepath.Clean(filepath.Join(dir, filepath.FromSlash(u.Filename))),
			Compile:  true,
			Language: settings.LanguageCpp,
		}
		if filepath.IsAbs(u.Filename) {
			unit.Path = filepath.Clean(u.Filename)
		}
		for _, o := range u.Options {
			if o.Compile != "" {
				unit.Compile = o.Compile != "0"
			}
			if o.CompilerVar != "" {
				unit.Language = compilerVarLanguage(o.CompilerVar)
			}
			if o.Target != "" {
				unit.Targets = append(unit.Targets, o.Target)
			}
		}
		p.Units = append(p.Units, unit)
	}
	return p, nil
}

func compilerVarLanguage(v string) settings.Language {
	switch v {
	case "CC":
		return settings.LanguageC
	case "CPP":
		return settings.LanguageCpp
	default:
		return settings.LanguageUnknown
	}
}

// Target returns the target titled title.
func (p *CodeblocksProject) Target(title string) (CodeblocksTarget, bool) {
	for _, t := range p.Targets {
		if t.Title == title {
			return t, true
		}
	}
	return CodeblocksTarget{}, false
}

// CompiledUnits returns the compiled units whose extension is one of
// extensions, compared case-insensitively. Units assigned to a target win:
// units without targets are only used when no unit has one.
func (p *CodeblocksProject) CompiledUnits(extensions []string) []CodeblocksUnit {
	exts := make(map[string]bool, len(extensions))
	for _, e := range extensions {
		exts[strings.ToLower(e)] = true
	}
	var withTarget, withoutTarget []CodeblocksUnit
	for _, u := range p.Units {
		if !u.Compile || !exts[strings.ToLower(filepath.Ext(u.Path))] {
			continue
		}
		if len(u.Targets) > 0 {
			withTarget = append(withTarget, u)
		} else {
			withoutTarget = append(withoutTarget, u)
		}
	}
	if len(withTarget) > 0 {
		return withTarget
	}
	return withoutTarget
}

// CxxCodeblocks indexes the units of a Code::Blocks project.
type CxxCodeblocks struct {
	base
}

// NewCxxCodeblocks builds a Code::Blocks group.
func NewCxxCodeblocks(ctx Context, s *settings.SourceGroupSettings) SourceGroup {
	return &CxxCodeblocks{base{ctx: ctx, settings: s}}
}

func (g *CxxCodeblocks) PrepareIndexing(context.Context) error {
	path := g.buildFile()
	if _, err := LoadCodeblocksProject(path); err != nil {
		gerr := g.fail(types.KindResource, "prepare", err).WithPath(path)
		g.report(true, "%v", gerr)
		return gerr
	}
	return nil
}

func (g *CxxCodeblocks) load() *CodeblocksProject {
	path := g.buildFile()
	if path == "" {
		return nil
	}
	p, err := LoadCodeblocksProject(path)
	if err != nil {
		g.report(true, "%v", err)
		return nil
	}
	return p
}

func (g *CxxCodeblocks) units(p *CodeblocksProject) []CodeblocksUnit {
	if p == nil {
		return nil
	}
	excludes := g.excludeFilter()
	var out []CodeblocksUnit
	for _, u := range p.CompiledUnits(g.extensions()) {
		if !excludes.Match(u.Path) {
			out = append(out, u)
		}
	}
	return out
}

func (g *CxxCodeblocks) AllSourceFilePaths() discovery.PathSet {
	files := discovery.NewPathSet()
	for _, u := range g.units(g.load()) {
		files.Add(u.Path)
	}
	return files
}

func (g *CxxCodeblocks) FilterToContainedFilePaths(paths discovery.PathSet) discovery.PathSet {
	return filterContained(paths, g.AllSourceFilePaths(), g.indexedHeaderPaths(), g.excludeFilter())
}

// targetFlags returns the flags of a target followed by the group and
// global flags.
func (g *CxxCodeblocks) targetFlags(p *CodeblocksProject, title string) []string {
	var flags []string
	if t, ok := p.Target(title); ok {
		flags = append(flags, command.SystemIncludeFlags(t.Directories)...)
		flags = append(flags, t.Options...)
	}
	flags = append(flags, g.systemIncludeFlags()...)
	flags = append(flags, g.frameworkFlags()...)
	return append(flags, g.pathsAndFlags().CompilerFlags...)
}

func (g *CxxCodeblocks) standard(lang settings.Language) string {
	if s := g.settings.Standard(lang); s != nil && s.Value != "" {
		return s.Value
	}
	return settings.DefaultStandard(lang)
}

func (g *CxxCodeblocks) IndexerCommands(ctx context.Context, filesToIndex discovery.PathSet) ([]command.Command, error) {
	p := g.load()
	if p == nil {
		return nil, nil
	}
	indexed := g.indexedHeaderPaths()
	excludes := g.excludePatterns()
	workDir := filepath.Dir(p.Path)
	cache := make(map[string][]string)

	seen := discovery.NewPathSet()
	var out []command.Command
	for _, u := range g.units(p) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if u.Language == settings.LanguageUnknown || !filesToIndex.Has(u.Path) || seen.Has(u.Path) {
			continue
		}
		seen.Add(u.Path)

		target := ""
		if len(u.Targets) > 0 {
			target = u.Targets[0]
		}
		common, ok := cache[target]
		if !ok {
			common = g.targetFlags(p, target)
			cache[target] = common
		}
		flags := append([]string(nil), common...)
		flags = command.AppendNonEmpty(flags, command.StandardFlag(g.standard(u.Language)), u.Path)

		out = append(out, command.NewCxx(g.settings.ID, u.Path, command.CxxPayload{
			IndexedPaths:     append(append([]string(nil), indexed...), u.Path),
			ExcludeFilters:   excludes,
			WorkingDirectory: workDir,
			CompilerFlags:    flags,
		}))
	}
	command.SortBySource(out)
	return out, nil
}
