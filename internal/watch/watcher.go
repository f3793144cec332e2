package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dshills/srcgroup/internal/discovery"
	"github.com/dshills/srcgroup/internal/project"
	"github.com/dshills/srcgroup/internal/settings"
	"github.com/dshills/srcgroup/pkg/types"
)

// DefaultDebounce is the quiet period after the last event before a batch
// is processed.
const DefaultDebounce = 500 * time.Millisecond

// Project is the part of project.Project the watcher drives.
type Project interface {
	Path() string
	Load(ctx context.Context) error
	Refresh(ctx context.Context, opts project.RefreshOptions) (*project.RefreshResult, error)
	OwningGroups(paths []string) (map[string][]string, error)
	WatchDirs() ([]string, error)
}

// EventType is the kind of a file system event after folding.
type EventType int

const (
	EventCreate EventType = iota
	EventWrite
	EventRemove
	EventRename
)

func (e EventType) String() string {
	switch e {
	case EventCreate:
		return "create"
	case EventWrite:
		return "write"
	case EventRemove:
		return "remove"
	case EventRename:
		return "rename"
	default:
		return fmt.Sprintf("event(%d)", int(e))
	}
}

// Batch is one debounced set of changes.
type Batch struct {
	// Events holds the latest event per path.
	Events map[string]EventType
	// Owned maps the changed paths to the groups that contain them.
	Owned map[string][]string
	// SettingsChanged is set when the project file itself changed.
	SettingsChanged bool
}

// Paths returns the changed paths in order.
func (b *Batch) Paths() []string {
	out := make([]string, 0, len(b.Events))
	for p := range b.Events {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Config holds watcher configuration. A nil Config selects the defaults.
type Config struct {
	Debounce time.Duration
	Logger   *log.Logger
	// Refresh is passed to every triggered refresh. Force is always set.
	Refresh project.RefreshOptions
	// OnRefresh is called after each triggered refresh.
	OnRefresh func(batch *Batch, res *project.RefreshResult, err error)
}

// Stats summarizes what a watcher did so far.
type Stats struct {
	EventsProcessed int64
	Refreshes       int64
	ErrorCount      int64
	LastEventTime   time.Time
	WatchedDirs     int
	IsActive        bool
}

// Watcher observes the directories of a project and refreshes the index
// once changes to owned files settle.
type Watcher struct {
	project  Project
	debounce time.Duration
	logger   *log.Logger
	opts     project.RefreshOptions
	onResult func(*Batch, *project.RefreshResult, error)

	fsw     *fsnotify.Watcher
	watched map[string]bool
	pending map[string]EventType

	statsMu sync.RWMutex
	stats   Stats
}

// New returns a watcher for p. Nothing is observed before Run.
func New(p Project, cfg *Config) *Watcher {
	if cfg == nil {
		cfg = &Config{}
	}
	w := &Watcher{
		project:  p,
		debounce: cfg.Debounce,
		logger:   cfg.Logger,
		opts:     cfg.Refresh,
		onResult: cfg.OnRefresh,
		watched:  make(map[string]bool),
		pending:  make(map[string]EventType),
	}
	if w.debounce <= 0 {
		w.debounce = DefaultDebounce
	}
	if w.logger == nil {
		w.logger = log.New(io.Discard, "", 0)
	}
	w.opts.Force = true
	return w
}

// Run watches until ctx is cancelled. It returns nil on cancellation and an
// error only when watching cannot start.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	w.fsw = fsw
	defer func() {
		if err := fsw.Close(); err != nil {
			w.logger.Printf("Error closing file watcher: %v", err)
		}
		w.setActive(false)
	}()

	if err := w.syncWatches(); err != nil {
		return err
	}
	w.setActive(true)
	w.logger.Printf("Watching %d directories for %s", len(w.watched), w.project.Path())

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()
	var flush <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if w.handleEvent(event) {
				timer.Reset(w.debounce)
				flush = timer.C
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Printf("File watcher error: %v", err)
			w.countError()

		case <-flush:
			flush = nil
			if retry := w.flush(ctx); retry {
				timer.Reset(w.debounce)
				flush = timer.C
			}
		}
	}
}

// Stats returns a snapshot of the watcher statistics.
func (w *Watcher) Stats() Stats {
	w.statsMu.RLock()
	defer w.statsMu.RUnlock()
	return w.stats
}

// syncWatches makes the observed directories match the project.
func (w *Watcher) syncWatches() error {
	dirs, err := w.project.WatchDirs()
	if err != nil {
		return fmt.Errorf("failed to list watched directories: %w", err)
	}
	want := make(map[string]bool, len(dirs))
	for _, d := range dirs {
		want[d] = true
		if w.watched[d] {
			continue
		}
		if err := w.fsw.Add(d); err != nil {
			w.logger.Printf("Warning: failed to add watch for %s: %v", d, err)
			continue
		}
		w.watched[d] = true
	}
	for d := range w.watched {
		if want[d] {
			continue
		}
		_ = w.fsw.Remove(d)
		delete(w.watched, d)
	}

	w.statsMu.Lock()
	w.stats.WatchedDirs = len(w.watched)
	w.statsMu.Unlock()
	return nil
}

// handleEvent records one event and reports whether it is worth a batch.
func (w *Watcher) handleEvent(event fsnotify.Event) bool {
	path := filepath.Clean(event.Name)
	if w.ignored(path) {
		return false
	}

	var kind EventType
	switch {
	case event.Has(fsnotify.Create):
		kind = EventCreate
	case event.Has(fsnotify.Write):
		kind = EventWrite
	case event.Has(fsnotify.Remove):
		kind = EventRemove
	case event.Has(fsnotify.Rename):
		kind = EventRename
	default:
		return false
	}

	if kind == EventCreate {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if err := w.fsw.Add(path); err != nil {
				w.logger.Printf("Warning: failed to add watch for new directory %s: %v", path, err)
			} else {
				w.watched[path] = true
			}
			return false
		}
	}

	w.pending[path] = kind
	w.statsMu.Lock()
	w.stats.EventsProcessed++
	w.stats.LastEventTime = time.Now()
	w.statsMu.Unlock()
	return true
}

// ignored filters the files the project writes itself: its databases and
// the dependency cache.
func (w *Watcher) ignored(path string) bool {
	projectFile := w.project.Path()
	if path == projectFile {
		return false
	}
	dir := filepath.Dir(projectFile)
	if discovery.IsWithin(path, filepath.Join(dir, settings.DependenciesDirName)) {
		return true
	}
	stem := strings.TrimSuffix(filepath.Base(projectFile), filepath.Ext(projectFile))
	return filepath.Dir(path) == dir && strings.HasPrefix(filepath.Base(path), stem+".")
}

// flush processes the pending events. It reports whether the batch has to
// be retried because another refresh was running.
func (w *Watcher) flush(ctx context.Context) bool {
	if len(w.pending) == 0 {
		return false
	}
	batch := &Batch{Events: w.pending}
	w.pending = make(map[string]EventType)

	projectFile := w.project.Path()
	if _, ok := batch.Events[projectFile]; ok {
		batch.SettingsChanged = true
		if err := w.project.Load(ctx); err != nil {
			w.logger.Printf("Failed to reload %s: %v", projectFile, err)
			w.countError()
			return false
		}
	}

	owned, err := w.project.OwningGroups(batch.Paths())
	if err != nil {
		w.logger.Printf("Failed to map changed files to source groups: %v", err)
		w.countError()
		return false
	}
	batch.Owned = owned
	if !batch.SettingsChanged && len(owned) == 0 {
		return false
	}

	w.logger.Printf("Processing %d debounced file events", len(batch.Events))
	res, err := w.project.Refresh(ctx, w.opts)
	if errors.Is(err, types.ErrRefreshInProgress) {
		for p, k := range batch.Events {
			if _, ok := w.pending[p]; !ok {
				w.pending[p] = k
			}
		}
		return true
	}

	w.statsMu.Lock()
	w.stats.Refreshes++
	if err != nil {
		w.stats.ErrorCount++
	}
	w.statsMu.Unlock()
	if err != nil {
		w.logger.Printf("Refresh failed: %v", err)
	}
	if w.onResult != nil {
		w.onResult(batch, res, err)
	}

	if err == nil {
		if err := w.syncWatches(); err != nil {
			w.logger.Printf("Warning: %v", err)
		}
	}
	return false
}

func (w *Watcher) countError() {
	w.statsMu.Lock()
	w.stats.ErrorCount++
	w.statsMu.Unlock()
}

func (w *Watcher) setActive(active bool) {
	w.statsMu.Lock()
	w.stats.IsActive = active
	w.statsMu.Unlock()
}
