package discovery

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrSymlinkCycle is reported when a symlinked directory leads back to a
// directory that is already being walked.
var ErrSymlinkCycle = errors.New("symlink cycle")

// Warning is a non-fatal problem found while walking.
type Warning struct {
	Path string
	Err  error
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %v", w.Path, w.Err)
}

// Options configure a discovery run.
type Options struct {
	// Roots are directories or files. Relative roots are resolved against
	// the working directory.
	Roots []string
	// Excludes is matched against the absolute path of every candidate.
	Excludes *Filter
	// Includes re-admits paths that Excludes rejected.
	Includes *Filter
	// Extensions lists accepted extensions with a leading dot. Matching is
	// case-sensitive. An empty list accepts nothing below directory roots.
	Extensions []string
}

// Result holds the discovered files and any warnings.
type Result struct {
	Files    PathSet
	Warnings []Warning
}

type walkState struct {
	opts   Options
	exts   map[string]struct{}
	active map[string]bool
	result *Result
}

// Discover walks roots and returns every file that matches one of the
// extensions and no exclude filter. File roots are taken verbatim regardless
// of extension but still honor exclude filters. Symlinked directories are
// followed; cycles and unreadable directories become warnings.
func Discover(opts Options) Result {
	ws := &walkState{
		opts:   opts,
		exts:   make(map[string]struct{}, len(opts.Extensions)),
		active: make(map[string]bool),
		result: &Result{Files: make(PathSet)},
	}
	for _, ext := range opts.Extensions {
		ws.exts[ext] = struct{}{}
	}

	for _, root := range opts.Roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			ws.warn(root, err)
			continue
		}
		info, err := os.Stat(abs)
		if err != nil {
			ws.warn(abs, err)
			continue
		}
		if !info.IsDir() {
			ws.addFile(abs, true)
			continue
		}
		ws.walkDir(abs)
	}
	return *ws.result
}

// Files is a shortcut for Discover when warnings are not needed.
func Files(roots []string, excludes *Filter, extensions []string) PathSet {
	return Discover(Options{Roots: roots, Excludes: excludes, Extensions: extensions}).Files
}

func (ws *walkState) warn(path string, err error) {
	ws.result.Warnings = append(ws.result.Warnings, Warning{Path: path, Err: err})
}

func (ws *walkState) excluded(path string) bool {
	if !ws.opts.Excludes.Match(path) {
		return false
	}
	return !ws.opts.Includes.Match(path)
}

func (ws *walkState) addFile(path string, explicit bool) {
	if !explicit {
		if _, ok := ws.exts[filepath.Ext(path)]; !ok {
			return
		}
	}
	if ws.excluded(path) {
		return
	}
	ws.result.Files.Add(path)
}

func (ws *walkState) walkDir(dir string) {
	real, err := filepath.EvalSymlinks(dir)
	if err != nil {
		ws.warn(dir, err)
		return
	}
	if ws.active[real] {
		ws.warn(dir, ErrSymlinkCycle)
		return
	}
	ws.active[real] = true
	defer delete(ws.active, real)

	entries, err := os.ReadDir(dir)
	if err != nil {
		ws.warn(dir, err)
		return
	}
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		mode := entry.Type()
		if mode&os.ModeSymlink != 0 {
			info, err := os.Stat(path)
			if err != nil {
				ws.warn(path, err)
				continue
			}
			if info.IsDir() {
				ws.walkDir(path)
				continue
			}
			if info.Mode().IsRegular() {
				ws.addFile(path, false)
			}
			continue
		}
		if entry.IsDir() {
			ws.walkDir(path)
			continue
		}
		if mode.IsRegular() {
			ws.addFile(path, false)
		}
	}
}
