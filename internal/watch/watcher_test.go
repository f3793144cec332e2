package watch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/dshills/srcgroup/internal/project"
	"github.com/dshills/srcgroup/internal/settings"
	"github.com/dshills/srcgroup/pkg/types"
)

const waitFor = 5 * time.Second

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeProject owns every .c file below dir.
type fakeProject struct {
	dir string

	mu        sync.Mutex
	loads     int
	refreshes int
	busy      int
}

func newFakeProject(t *testing.T) *fakeProject {
	t.Helper()
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	return &fakeProject{dir: dir}
}

func (f *fakeProject) Path() string {
	return filepath.Join(f.dir, "demo"+settings.ProjectFileExtension)
}

func (f *fakeProject) Load(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads++
	return nil
}

func (f *fakeProject) Refresh(_ context.Context, opts project.RefreshOptions) (*project.RefreshResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !opts.Force {
		panic("watcher refresh must be forced")
	}
	if f.busy > 0 {
		f.busy--
		return nil, types.ErrRefreshInProgress
	}
	f.refreshes++
	return &project.RefreshResult{State: project.StateLoaded}, nil
}

func (f *fakeProject) OwningGroups(paths []string) (map[string][]string, error) {
	out := make(map[string][]string)
	for _, p := range paths {
		if strings.HasSuffix(p, ".c") {
			out[p] = []string{"g1"}
		}
	}
	return out, nil
}

func (f *fakeProject) WatchDirs() ([]string, error) {
	return []string{f.dir}, nil
}

func (f *fakeProject) counts() (loads, refreshes int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loads, f.refreshes
}

func (f *fakeProject) write(t *testing.T, name string) string {
	t.Helper()
	p := filepath.Join(f.dir, name)
	require.NoError(t, os.WriteFile(p, []byte(time.Now().String()), 0o644))
	return p
}

// start runs a watcher until the test ends and reports every batch that
// triggered a refresh.
func start(t *testing.T, p Project, cfg *Config) (*Watcher, <-chan *Batch) {
	t.Helper()
	batches := make(chan *Batch, 16)
	cfg.Debounce = 50 * time.Millisecond
	cfg.OnRefresh = func(b *Batch, _ *project.RefreshResult, err error) {
		assert.NoError(t, err)
		select {
		case batches <- b:
		default:
		}
	}
	w := New(p, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(waitFor):
			t.Error("watcher did not stop")
		}
	})

	require.Eventually(t, func() bool { return w.Stats().IsActive }, waitFor, 10*time.Millisecond)
	return w, batches
}

func next(t *testing.T, batches <-chan *Batch) *Batch {
	t.Helper()
	select {
	case b := <-batches:
		return b
	case <-time.After(waitFor):
		t.Fatal("no refresh triggered")
		return nil
	}
}

func TestWatcherRefreshesOwnedChanges(t *testing.T) {
	f := newFakeProject(t)
	w, batches := start(t, f, &Config{})
	path := f.write(t, "a.c")

	b := next(t, batches)
	assert.Contains(t, b.Events, path)
	assert.Equal(t, []string{"g1"}, b.Owned[path])
	assert.False(t, b.SettingsChanged)

	stats := w.Stats()
	assert.GreaterOrEqual(t, stats.EventsProcessed, int64(1))
	assert.GreaterOrEqual(t, stats.Refreshes, int64(1))
	assert.Equal(t, 1, stats.WatchedDirs)
}

func TestWatcherIgnoresUnownedFiles(t *testing.T) {
	f := newFakeProject(t)
	_, batches := start(t, f, &Config{})

	f.write(t, "notes.txt")
	db := f.write(t, "demo"+settings.DBFileExtension)
	f.write(t, "demo"+settings.TempDBFileExtension)

	select {
	case b := <-batches:
		t.Fatalf("unexpected refresh for %v", b.Paths())
	case <-time.After(300 * time.Millisecond):
	}
	_, refreshes := f.counts()
	assert.Zero(t, refreshes)

	src := f.write(t, "b.c")
	b := next(t, batches)
	assert.Contains(t, b.Events, src)
	assert.NotContains(t, b.Events, db)
}

func TestWatcherReloadsChangedSettings(t *testing.T) {
	f := newFakeProject(t)
	_, batches := start(t, f, &Config{})

	f.write(t, filepath.Base(f.Path()))
	b := next(t, batches)
	assert.True(t, b.SettingsChanged)

	loads, refreshes := f.counts()
	assert.GreaterOrEqual(t, loads, 1)
	assert.GreaterOrEqual(t, refreshes, 1)
}

func TestWatcherRetriesWhileRefreshRuns(t *testing.T) {
	f := newFakeProject(t)
	f.busy = 2
	_, batches := start(t, f, &Config{})

	path := f.write(t, "a.c")
	b := next(t, batches)
	assert.Contains(t, b.Events, path)

	f.mu.Lock()
	defer f.mu.Unlock()
	assert.Zero(t, f.busy)
	assert.GreaterOrEqual(t, f.refreshes, 1)
}

func TestWatcherWatchesNewDirectories(t *testing.T) {
	f := newFakeProject(t)
	_, batches := start(t, f, &Config{})

	sub := filepath.Join(f.dir, "sub")
	require.NoError(t, os.Mkdir(sub, 0o755))
	// The event loop adds the watch for sub.
	time.Sleep(200 * time.Millisecond)

	path := filepath.Join(sub, "c.c")
	require.NoError(t, os.WriteFile(path, []byte("int c;"), 0o644))
	b := next(t, batches)
	assert.Contains(t, b.Events, path)
}

func TestEventTypeString(t *testing.T) {
	assert.Equal(t, "create", EventCreate.String())
	assert.Equal(t, "write", EventWrite.String())
	assert.Equal(t, "remove", EventRemove.String())
	assert.Equal(t, "rename", EventRename.String())
	assert.Equal(t, "event(9)", EventType(9).String())
}

func TestIgnored(t *testing.T) {
	f := newFakeProject(t)
	w := New(f, nil)

	assert.False(t, w.ignored(f.Path()))
	assert.True(t, w.ignored(filepath.Join(f.dir, "demo"+settings.DBFileExtension)))
	assert.True(t, w.ignored(filepath.Join(f.dir, "demo"+settings.DBFileExtension+"-wal")))
	assert.True(t, w.ignored(filepath.Join(f.dir, settings.DependenciesDirName, "g1", "x.jar")))
	assert.False(t, w.ignored(filepath.Join(f.dir, "demo", "a.c")))
	assert.False(t, w.ignored(filepath.Join(f.dir, "other.c")))
}
