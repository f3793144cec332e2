package project

import (
	"context"
	"os"

	"github.com/dshills/srcgroup/internal/discovery"
	"github.com/dshills/srcgroup/internal/indexer"
	"github.com/dshills/srcgroup/internal/storage"
	"github.com/dshills/srcgroup/pkg/types"
)

// RefreshInfo is the work a refresh performs.
type RefreshInfo struct {
	Mode RefreshMode `json:"mode"`
	// FilesToIndex are the source files that get a command.
	FilesToIndex []string `json:"files_to_index"`
	// FilesToClear are indexed files removed from storage before indexing
	// starts: files no enabled group owns anymore and files of groups whose
	// settings changed.
	FilesToClear []string `json:"files_to_clear"`
	// NonIndexedFilesToClear are referenced files that vanished from disk
	// or that only cleared files referenced.
	NonIndexedFilesToClear []string            `json:"non_indexed_files_to_clear"`
	Failures               []*types.GroupError `json:"-"`
}

// Empty reports whether the refresh has nothing to do.
func (i *RefreshInfo) Empty() bool {
	return len(i.FilesToIndex) == 0 && len(i.FilesToClear) == 0 && len(i.NonIndexedFilesToClear) == 0
}

// AllFilesToClear returns indexed and non-indexed files to clear.
func (i *RefreshInfo) AllFilesToClear() []string {
	out := make([]string, 0, len(i.FilesToClear)+len(i.NonIndexedFilesToClear))
	out = append(out, i.FilesToClear...)
	return append(out, i.NonIndexedFilesToClear...)
}

// groupFiles is what the planner knows about one source group.
type groupFiles struct {
	id           string
	sources      discovery.PathSet
	settingsHash uint64
}

// planner decides which stored files are stale. Groups are listed in
// settings order; a file listed by several groups belongs to the first.
type planner struct {
	store storage.Storage
	mode  RefreshMode
	// clearAll drops every stored file in RefreshAllFiles mode. Without it
	// all current sources are indexed but only stale files are cleared.
	clearAll bool
	groups   []groupFiles
	// failed are groups that could not be prepared. Their files are left
	// alone unless a healthy group owns them.
	failed []groupFiles
}

func (p *planner) plan(ctx context.Context) (*RefreshInfo, error) {
	owner := make(map[string]*groupFiles)
	current := discovery.NewPathSet()
	for i := range p.groups {
		g := &p.groups[i]
		for path := range g.sources {
			if _, ok := owner[path]; !ok {
				owner[path] = g
			}
		}
		current.AddSet(g.sources)
	}

	failedIDs := make(map[string]bool)
	protected := discovery.NewPathSet()
	for _, g := range p.failed {
		failedIDs[g.id] = true
		protected.AddSet(g.sources.Difference(current))
	}

	stored, err := p.store.ListFiles(ctx)
	if err != nil {
		return nil, err
	}
	for _, f := range stored {
		if f.Indexed && failedIDs[f.GroupID] && !current.Has(f.Path) {
			protected.Add(f.Path)
		}
	}

	info := &RefreshInfo{Mode: p.mode}
	toClear := discovery.NewPathSet()
	nonIndexedClear := discovery.NewPathSet()

	if p.mode == RefreshAllFiles && p.clearAll {
		for _, f := range stored {
			if protected.Has(f.Path) {
				continue
			}
			if f.Indexed {
				toClear.Add(f.Path)
			} else {
				nonIndexedClear.Add(f.Path)
			}
		}
		info.FilesToIndex = current.Slice()
		info.FilesToClear = toClear.Slice()
		info.NonIndexedFilesToClear = nonIndexedClear.Slice()
		return info, nil
	}

	unchanged := discovery.NewPathSet()
	changed := discovery.NewPathSet()
	for _, f := range stored {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if protected.Has(f.Path) {
			continue
		}
		if !f.Indexed {
			if !discovery.Exists(f.Path) {
				nonIndexedClear.Add(f.Path)
				changed.Add(f.Path)
			} else if modifiedSince(f) {
				changed.Add(f.Path)
			}
			continue
		}

		g := owner[f.Path]
		switch {
		case g == nil:
			toClear.Add(f.Path)
		case g.id != f.GroupID || g.settingsHash != f.SettingsHash:
			toClear.Add(f.Path)
		case contentChanged(f):
			changed.Add(f.Path)
		case p.mode == RefreshUpdatedAndIncompleteFiles && !f.Complete:
			changed.Add(f.Path)
		default:
			unchanged.Add(f.Path)
		}
	}

	// Files that pulled in something stale are stale themselves.
	stale := changed.Clone()
	stale.AddSet(toClear)
	referencing, err := p.store.Referencing(ctx, stale.Slice())
	if err != nil {
		return nil, err
	}

	index := current.Difference(unchanged)
	if p.mode == RefreshAllFiles {
		index = current.Clone()
	}
	for _, path := range referencing {
		if current.Has(path) && !protected.Has(path) {
			index.Add(path)
		}
	}

	// Referenced files that only cleared files pulled in go with them.
	if toClear.Len() > 0 {
		referenced, err := p.store.Referenced(ctx, toClear.Slice())
		if err != nil {
			return nil, err
		}
		for _, ref := range referenced {
			if nonIndexedClear.Has(ref) || protected.Has(ref) {
				continue
			}
			indexed, err := p.store.HasFileBeenIndexed(ctx, ref)
			if err != nil {
				return nil, err
			}
			if indexed {
				continue
			}
			users, err := p.store.Referencing(ctx, []string{ref})
			if err != nil {
				return nil, err
			}
			if allIn(users, toClear) {
				nonIndexedClear.Add(ref)
			}
		}
	}

	info.FilesToIndex = index.Slice()
	info.FilesToClear = toClear.Slice()
	info.NonIndexedFilesToClear = nonIndexedClear.Slice()
	return info, nil
}

func allIn(paths []string, set discovery.PathSet) bool {
	for _, p := range paths {
		if !set.Has(p) {
			return false
		}
	}
	return true
}

// modifiedSince reports whether the file on disk is newer than recorded.
func modifiedSince(f *storage.File) bool {
	info, err := os.Stat(f.Path)
	if err != nil {
		return true
	}
	return info.ModTime().After(f.ModTime)
}

// contentChanged reports whether an indexed file was modified after it was
// indexed. A newer timestamp alone does not count when the content hash is
// unchanged.
func contentChanged(f *storage.File) bool {
	if !modifiedSince(f) {
		return false
	}
	hash, _, err := indexer.FileHash(f.Path)
	if err != nil {
		return true
	}
	return hash != f.ContentHash
}
