package project

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/srcgroup/internal/command"
	"github.com/dshills/srcgroup/internal/config"
	"github.com/dshills/srcgroup/internal/discovery"
	"github.com/dshills/srcgroup/internal/indexer"
	"github.com/dshills/srcgroup/internal/settings"
	"github.com/dshills/srcgroup/internal/sourcegroup"
	"github.com/dshills/srcgroup/internal/storage"
	"github.com/dshills/srcgroup/pkg/types"
)

// Options configure a Project. Zero values select the defaults.
type Options struct {
	Factory    *sourcegroup.Factory
	Dispatcher indexer.Dispatcher
	Status     types.StatusSink
	Logger     *log.Logger
	// OnFile reports indexing progress.
	OnFile func(done, total int, path string)
	// NewGroupID supplies ids for groups created by settings migration.
	NewGroupID func() string
}

// RefreshOptions select what a refresh does.
type RefreshOptions struct {
	Mode RefreshMode
	// Force refreshes a project that is already up to date.
	Force bool
	// DryRun computes the RefreshInfo without touching storage.
	DryRun bool
}

// RefreshResult describes a finished refresh.
type RefreshResult struct {
	Info  *RefreshInfo
	Stats *indexer.Statistics
	State State
}

// GroupInfo summarizes one source group.
type GroupInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Status      string `json:"status"`
	SourceFiles int    `json:"source_files"`
}

// Project is one open project: its settings, its index and the state
// between them.
type Project struct {
	path    string
	app     *config.AppSettings
	factory *sourcegroup.Factory
	status  types.StatusSink
	logger  *log.Logger
	newID   func() string

	dispatcher indexer.Dispatcher
	onFile     func(done, total int, path string)

	refreshing indexer.IndexLock

	mu       sync.Mutex
	state    State
	settings *settings.ProjectSettings
	store    *storage.SQLiteStorage
	diff     string
}

// New returns a project for the settings file at path. Nothing is read
// before Load.
func New(path string, app *config.AppSettings, opts Options) *Project {
	if app == nil {
		d := config.Default()
		app = &d
	}
	p := &Project{
		path:       path,
		app:        app,
		factory:    opts.Factory,
		status:     opts.Status,
		logger:     opts.Logger,
		newID:      opts.NewGroupID,
		dispatcher: opts.Dispatcher,
		onFile:     opts.OnFile,
	}
	if p.factory == nil {
		p.factory = sourcegroup.DefaultFactory()
	}
	if p.status == nil {
		p.status = types.DiscardStatus
	}
	if p.logger == nil {
		p.logger = log.New(io.Discard, "", 0)
	}
	if p.dispatcher == nil {
		p.dispatcher = &indexer.ExecDispatcher{IndexerPath: app.IndexerPath}
	}
	return p
}

// State returns the current state.
func (p *Project) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Settings returns the loaded settings or nil before Load.
func (p *Project) Settings() *settings.ProjectSettings {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.settings
}

// SettingsDiff returns the unified diff between the indexed and the current
// settings when the state is StateSettingsUpdated.
func (p *Project) SettingsDiff() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.diff
}

// Close releases the index database.
func (p *Project) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.store == nil {
		return nil
	}
	err := p.store.Close()
	p.store = nil
	return err
}

// Load reads the settings, opens the index and determines the state.
// Unreadable settings are fatal; everything else maps to a state.
func (p *Project) Load(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loadLocked(ctx)
}

func (p *Project) loadLocked(ctx context.Context) error {
	ps, err := settings.LoadProjectSettings(p.path)
	if err != nil {
		p.state = StateNotLoaded
		return fmt.Errorf("failed to load project %s: %w", p.path, err)
	}
	p.settings = ps
	p.diff = ""

	if ps.NeedsMigration() {
		p.state = StateNeedsMigration
		return nil
	}

	if p.store != nil {
		_ = p.store.Close()
		p.store = nil
	}
	_, statErr := os.Stat(ps.DBPath())
	existed := statErr == nil

	store, err := storage.NewSQLiteStorage(ps.DBPath())
	if errors.Is(err, storage.ErrIncompatibleSchema) {
		p.logger.Printf("index %s has an incompatible schema", ps.DBPath())
		p.state = StateOutVersioned
		return nil
	}
	if err != nil {
		return err
	}
	p.store = store

	status, err := store.GetStatus(ctx)
	if err != nil {
		return err
	}
	if !existed || (status.FilesCount == 0 && !status.HasSettings) {
		p.state = StateEmpty
		return nil
	}

	updated, err := p.settingsUpdated(ctx)
	if err != nil {
		return err
	}
	if updated {
		p.state = StateSettingsUpdated
		return nil
	}

	info, err := p.planLocked(ctx, RefreshUpdatedFiles, false, p.createGroups(), nil)
	if err != nil {
		return err
	}
	if info.Empty() {
		p.state = StateLoaded
	} else {
		p.state = StateOutdated
	}
	return nil
}

// settingsUpdated compares the stored settings with the loaded ones and
// keeps a diff when they differ.
func (p *Project) settingsUpdated(ctx context.Context) (bool, error) {
	text, err := p.store.GetProjectSettings(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	stored, err := settings.ParseText(text, p.path)
	if err != nil {
		p.logger.Printf("stored settings are unreadable: %v", err)
		return true, nil
	}
	if stored.EqualExceptNameAndLocation(p.settings) {
		return false, nil
	}
	current, err := p.settings.Text()
	if err != nil {
		return true, nil
	}
	p.diff = settingsDiff(text, current)
	return true, nil
}

func (p *Project) groupContext() sourcegroup.Context {
	return sourcegroup.NewContext(p.app, p.settings, storage.StorageVersion(), p.status)
}

// createGroups builds the enabled source groups.
func (p *Project) createGroups() []sourcegroup.SourceGroup {
	ctx := p.groupContext()
	var groups []sourcegroup.SourceGroup
	for _, s := range p.settings.EnabledGroups() {
		groups = append(groups, p.factory.Create(ctx, s))
	}
	return groups
}

// Groups summarizes every configured group, disabled ones included.
func (p *Project) Groups() ([]GroupInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.settings == nil {
		return nil, types.ErrProjectNotLoaded
	}
	groups := p.factory.CreateAll(p.groupContext(), p.settings)
	out := make([]GroupInfo, 0, len(groups))
	for _, g := range groups {
		s := g.Settings()
		info := GroupInfo{ID: s.ID, Name: s.Name, Type: s.Tag, Status: string(s.Status)}
		if info.Type == "" {
			info.Type = string(s.Type)
		}
		if s.Enabled() {
			info.SourceFiles = g.AllSourceFilePaths().Len()
		}
		out = append(out, info)
	}
	return out, nil
}

// prepared is the outcome of preparing the enabled groups.
type prepared struct {
	ok       []sourcegroup.SourceGroup
	failed   []sourcegroup.SourceGroup
	failures []*types.GroupError
}

// prepare validates and prepares every group concurrently. A failing group
// is recorded and never stops the others.
func (p *Project) prepare(ctx context.Context, groups []sourcegroup.SourceGroup) (*prepared, error) {
	errs := make([]error, len(groups))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(p.app.Workers, 1))
	for i, group := range groups {
		g.Go(func() error {
			if err := group.Validate(); err != nil {
				errs[i] = err
				return nil
			}
			errs[i] = group.PrepareIndexing(gctx)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &prepared{}
	for i, group := range groups {
		if errs[i] == nil {
			res.ok = append(res.ok, group)
			continue
		}
		res.failed = append(res.failed, group)
		res.failures = append(res.failures, p.groupFailure(group, "prepare", errs[i]))
	}
	return res, nil
}

func (p *Project) groupFailure(group sourcegroup.SourceGroup, op string, err error) *types.GroupError {
	s := group.Settings()
	var ge *types.GroupError
	if !errors.As(err, &ge) {
		ge = types.NewGroupError(types.KindResource, s.ID, op, err).WithName(s.Name)
	}
	p.logger.Printf("source group %s: %v", s.ID, ge)
	p.status.Status(types.StatusMessage{GroupID: s.ID, Text: ge.Error(), IsError: true})
	return ge
}

func describe(groups []sourcegroup.SourceGroup) []groupFiles {
	out := make([]groupFiles, 0, len(groups))
	for _, g := range groups {
		out = append(out, groupFiles{
			id:           g.Settings().ID,
			sources:      g.AllSourceFilePaths(),
			settingsHash: groupSettingsHash(g.Settings()),
		})
	}
	return out
}

func (p *Project) planLocked(ctx context.Context, mode RefreshMode, clearAll bool, ok, failed []sourcegroup.SourceGroup) (*RefreshInfo, error) {
	pl := &planner{
		store:    p.store,
		mode:     mode,
		clearAll: clearAll,
		groups:   describe(ok),
		failed:   describe(failed),
	}
	return pl.plan(ctx)
}

// Refresh brings the index up to date with the settings and the files on
// disk. It returns types.ErrNeedsMigration until Migrate ran and
// types.ErrRefreshInProgress while another refresh runs.
func (p *Project) Refresh(ctx context.Context, opts RefreshOptions) (*RefreshResult, error) {
	if !p.refreshing.TryAcquire() {
		return nil, types.ErrRefreshInProgress
	}
	defer p.refreshing.Release()

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == StateNotLoaded {
		if err := p.loadLocked(ctx); err != nil {
			return nil, err
		}
	}
	if p.state == StateNeedsMigration {
		return nil, types.ErrNeedsMigration
	}

	// An explicit full refresh starts from scratch. Changed settings index
	// everything but only clear files whose group changed or went away.
	mode := opts.Mode
	clearAll := mode == RefreshAllFiles || p.state.untrusted()
	if p.state.forcesFullRefresh() {
		mode = RefreshAllFiles
	}
	if p.state == StateLoaded && !opts.Force && mode == RefreshUpdatedFiles {
		return &RefreshResult{Info: &RefreshInfo{Mode: mode}, State: p.state}, nil
	}

	if p.state == StateOutVersioned && !opts.DryRun {
		if err := p.recreateStorage(); err != nil {
			return nil, err
		}
	}

	groups, err := p.prepare(ctx, p.createGroups())
	if err != nil {
		return nil, err
	}

	var info *RefreshInfo
	if p.store == nil {
		// Out of date schema during a dry run: everything is indexed anew.
		info = &RefreshInfo{Mode: RefreshAllFiles}
		current := discovery.NewPathSet()
		for _, g := range groups.ok {
			current.AddSet(g.AllSourceFilePaths())
		}
		info.FilesToIndex = current.Slice()
	} else {
		info, err = p.planLocked(ctx, mode, clearAll, groups.ok, groups.failed)
		if err != nil {
			return nil, err
		}
	}
	info.Failures = groups.failures

	if opts.DryRun {
		return &RefreshResult{Info: info, State: p.state}, nil
	}

	jobs, genFailures, err := p.jobs(ctx, groups.ok, info)
	if err != nil {
		return nil, err
	}
	info.Failures = append(info.Failures, genFailures...)

	idx := indexer.New(p.store, p.dispatcher, &indexer.Config{
		Workers: p.app.Workers,
		Logger:  p.logger,
		OnFile:  p.onFile,
	})
	p.logger.Printf("refresh %s: indexing %d files, clearing %d", info.Mode, len(info.FilesToIndex), len(info.FilesToClear))
	stats, err := idx.Run(ctx, info.AllFilesToClear(), jobs)
	result := &RefreshResult{Info: info, Stats: stats}
	if err != nil {
		p.state = StateOutdated
		result.State = p.state
		return result, err
	}

	text, err := p.settings.Text()
	if err != nil {
		return result, err
	}
	if err := p.store.SetProjectSettings(ctx, text); err != nil {
		return result, err
	}
	p.diff = ""
	p.state = StateLoaded
	if len(info.Failures) > 0 {
		p.state = StateOutdated
	}
	result.State = p.state
	return result, nil
}

// recreateStorage deletes an index of an incompatible schema and starts a
// fresh one.
func (p *Project) recreateStorage() error {
	path := p.settings.DBPath()
	p.logger.Printf("recreating index %s", path)
	if err := storage.Remove(path); err != nil {
		return err
	}
	store, err := storage.NewSQLiteStorage(path)
	if err != nil {
		return err
	}
	p.store = store
	return nil
}

// jobs generates the commands for info.FilesToIndex, one group per
// goroutine. Files of a group that fails here are dropped from info.
func (p *Project) jobs(ctx context.Context, groups []sourcegroup.SourceGroup, info *RefreshInfo) ([]indexer.Job, []*types.GroupError, error) {
	filesToIndex := discovery.NewPathSet(info.FilesToIndex...)
	cmds := make([][]command.Command, len(groups))
	errs := make([]error, len(groups))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(p.app.Workers, 1))
	for i, group := range groups {
		g.Go(func() error {
			cmds[i], errs[i] = group.IndexerCommands(gctx, filesToIndex)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	var (
		jobs     []indexer.Job
		failures []*types.GroupError
		seen     = discovery.NewPathSet()
		dropped  = discovery.NewPathSet()
	)
	for i, group := range groups {
		if errs[i] != nil {
			failures = append(failures, p.groupFailure(group, "commands", errs[i]))
			dropped.AddSet(group.AllSourceFilePaths())
			continue
		}
		hash := groupSettingsHash(group.Settings())
		for _, c := range cmds[i] {
			// First group listing a file owns it.
			if seen.Has(c.SourceFilePath) {
				continue
			}
			seen.Add(c.SourceFilePath)
			jobs = append(jobs, indexer.Job{Command: c, SettingsHash: hash})
		}
	}

	if dropped.Len() > 0 {
		dropped = dropped.Difference(seen)
		info.FilesToIndex = discovery.NewPathSet(info.FilesToIndex...).Difference(dropped).Slice()
		info.FilesToClear = discovery.NewPathSet(info.FilesToClear...).Difference(dropped).Slice()
	}
	return jobs, failures, nil
}

// Commands returns the indexer commands for every current source file
// without indexing anything. Groups that fail are reported in the
// returned failures.
func (p *Project) Commands(ctx context.Context) ([]command.Command, []*types.GroupError, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.settings == nil {
		return nil, nil, types.ErrProjectNotLoaded
	}

	groups, err := p.prepare(ctx, p.createGroups())
	if err != nil {
		return nil, nil, err
	}
	all := discovery.NewPathSet()
	for _, g := range groups.ok {
		all.AddSet(g.AllSourceFilePaths())
	}
	info := &RefreshInfo{FilesToIndex: all.Slice()}
	jobs, failures, err := p.jobs(ctx, groups.ok, info)
	if err != nil {
		return nil, nil, err
	}
	cmds := make([]command.Command, len(jobs))
	for i, j := range jobs {
		cmds[i] = j.Command
	}
	command.SortBySource(cmds)
	return cmds, append(groups.failures, failures...), nil
}

// IndexStatus returns counters of the index. It fails with
// types.ErrProjectNotLoaded when no index is open.
func (p *Project) IndexStatus(ctx context.Context) (*storage.Status, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.store == nil {
		return nil, types.ErrProjectNotLoaded
	}
	return p.store.GetStatus(ctx)
}

// IndexErrors lists the errors indexers reported.
func (p *Project) IndexErrors(ctx context.Context) ([]*storage.IndexError, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.store == nil {
		return nil, types.ErrProjectNotLoaded
	}
	return p.store.ListErrors(ctx)
}

// OwningGroups maps each path to the ids of the enabled groups that
// contain it. Paths no group contains are left out.
func (p *Project) OwningGroups(paths []string) (map[string][]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.settings == nil {
		return nil, types.ErrProjectNotLoaded
	}
	candidates := discovery.NewPathSet(paths...)
	out := make(map[string][]string)
	for _, g := range p.createGroups() {
		for _, path := range g.FilterToContainedFilePaths(candidates).Slice() {
			out[path] = append(out[path], g.Settings().ID)
		}
	}
	return out, nil
}

// Migrate upgrades an older settings file in place and reloads the
// project. It reports whether anything changed.
func (p *Project) Migrate(ctx context.Context) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.settings == nil {
		if err := p.loadLocked(ctx); err != nil {
			return false, err
		}
	}
	if p.state != StateNeedsMigration {
		return false, nil
	}
	migrated, err := p.settings.MigrateWith(settings.ProjectMigrator(p.newID))
	if err != nil {
		return migrated, err
	}
	p.logger.Printf("migrated %s to version %d", p.path, settings.ProjectVersion)
	return migrated, p.loadLocked(ctx)
}

// Path returns the settings file of the project.
func (p *Project) Path() string { return p.path }

// WatchDirs returns the directories a watcher has to observe: the one
// holding the settings file, every existing source root and the parent
// directory of every current source file.
func (p *Project) WatchDirs() ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.settings == nil {
		return nil, types.ErrProjectNotLoaded
	}
	dirs := discovery.NewPathSet(filepath.Dir(p.path))
	for _, g := range p.createGroups() {
		for _, root := range g.Settings().SourceRoots(p.settings.ProjectDir()) {
			if info, err := os.Stat(root); err == nil && info.IsDir() {
				dirs.Add(root)
			}
		}
		for _, path := range g.AllSourceFilePaths().Slice() {
			dirs.Add(filepath.Dir(path))
		}
	}
	return dirs.Slice(), nil
}
