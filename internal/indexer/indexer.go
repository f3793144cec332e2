package indexer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/srcgroup/internal/command"
	"github.com/dshills/srcgroup/internal/storage"
	"github.com/dshills/srcgroup/pkg/types"
)

// Indexer runs indexer commands on a bounded worker pool and commits every
// result to storage.
type Indexer struct {
	storage    storage.Storage
	dispatcher Dispatcher
	logger     *log.Logger
	onFile     func(done, total int, path string)
	lock       IndexLock

	// Worker pool configuration
	workers int
}

// Config contains configuration for the indexer
type Config struct {
	Workers int         // Number of concurrent commands (default: runtime.NumCPU())
	Logger  *log.Logger // Discards by default
	// OnFile is called after each command finished, from the worker that
	// ran it.
	OnFile func(done, total int, path string)
}

// Job is one command together with the settings fingerprint of the group
// that produced it.
type Job struct {
	Command      command.Command
	SettingsHash uint64
}

// Statistics contains statistics about the indexing operation
type Statistics struct {
	FilesCleared    int
	FilesIndexed    int
	FilesIncomplete int
	FilesFailed     int
	Duration        time.Duration
	ErrorMessages   []string
}

// New creates a new Indexer instance
func New(store storage.Storage, dispatcher Dispatcher, config *Config) *Indexer {
	if config == nil {
		config = &Config{}
	}
	idx := &Indexer{
		storage:    store,
		dispatcher: dispatcher,
		logger:     config.Logger,
		onFile:     config.OnFile,
		workers:    config.Workers,
	}
	if idx.workers <= 0 {
		idx.workers = runtime.NumCPU()
	}
	if idx.logger == nil {
		idx.logger = log.New(io.Discard, "", 0)
	}
	return idx
}

// Running reports whether a Run is in progress.
func (idx *Indexer) Running() bool {
	return idx.lock.Held()
}

// Run clears filesToClear in one transaction, then runs jobs. Custom
// commands that may not run in parallel share a single lane; everything
// else is spread over the worker pool. A file whose command fails is still
// committed, marked incomplete, so a later incomplete refresh retries it.
// Cancellation stops between files; results committed so far are kept.
func (idx *Indexer) Run(ctx context.Context, filesToClear []string, jobs []Job) (*Statistics, error) {
	if !idx.lock.TryAcquire() {
		return nil, types.ErrRefreshInProgress
	}
	defer idx.lock.Release()

	startTime := time.Now()
	stats := &Statistics{ErrorMessages: make([]string, 0)}

	if err := idx.clear(ctx, filesToClear); err != nil {
		return nil, err
	}
	stats.FilesCleared = len(filesToClear)

	var serial, parallel []Job
	for _, job := range jobs {
		if c := job.Command.Custom; c != nil && !c.RunInParallel {
			serial = append(serial, job)
		} else {
			parallel = append(parallel, job)
		}
	}

	var (
		indexed    int32
		incomplete int32
		failed     int32
		done       int32
		mu         sync.Mutex // Protect stats.ErrorMessages
	)
	total := len(jobs)

	run := func(ctx context.Context, job Job) error {
		complete, err := idx.indexFile(ctx, job)
		n := int(atomic.AddInt32(&done, 1))
		switch {
		case err != nil && ctx.Err() != nil:
			return ctx.Err()
		case err != nil:
			atomic.AddInt32(&failed, 1)
			mu.Lock()
			stats.ErrorMessages = append(stats.ErrorMessages, fmt.Sprintf("%s: %v", job.Command.SourceFilePath, err))
			mu.Unlock()
			idx.logger.Printf("indexing %s failed: %v", job.Command.SourceFilePath, err)
			var fatal *commitError
			if errors.As(err, &fatal) {
				return err
			}
		case complete:
			atomic.AddInt32(&indexed, 1)
		default:
			atomic.AddInt32(&indexed, 1)
			atomic.AddInt32(&incomplete, 1)
		}
		if idx.onFile != nil {
			idx.onFile(n, total, job.Command.SourceFilePath)
		}
		return nil
	}

	// Create worker pool with semaphore
	semaphore := make(chan struct{}, idx.workers)
	acquire := func(ctx context.Context) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case semaphore <- struct{}{}:
			return nil
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	if len(serial) > 0 {
		g.Go(func() error {
			for _, job := range serial {
				if err := acquire(gctx); err != nil {
					return err
				}
				err := run(gctx, job)
				<-semaphore
				if err != nil {
					return err
				}
			}
			return nil
		})
	}

	for _, job := range parallel {
		if err := acquire(gctx); err != nil {
			break
		}
		g.Go(func() error {
			defer func() { <-semaphore }()
			return run(gctx, job)
		})
	}

	err := g.Wait()
	stats.FilesIndexed = int(indexed)
	stats.FilesIncomplete = int(incomplete)
	stats.FilesFailed = int(failed)
	stats.Duration = time.Since(startTime)

	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		return stats, err
	}
	return stats, nil
}

// clear removes the files in one transaction so a crash never leaves a
// half cleared index.
func (idx *Indexer) clear(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	tx, err := idx.storage.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := tx.ClearFiles(ctx, paths); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	idx.logger.Printf("cleared %d files", len(paths))
	return nil
}

// commitError marks storage failures, which abort the whole run.
type commitError struct {
	err error
}

func (e *commitError) Error() string { return e.err.Error() }
func (e *commitError) Unwrap() error { return e.err }

// indexFile runs one job and commits its result. It reports whether the
// file was indexed completely.
func (idx *Indexer) indexFile(ctx context.Context, job Job) (bool, error) {
	cmd := job.Command
	if err := ctx.Err(); err != nil {
		return false, err
	}

	// Fingerprint before running so edits made while indexing show up as
	// changes on the next refresh.
	hash, modTime, err := FileHash(cmd.SourceFilePath)
	if err != nil {
		return false, err
	}

	outcome, err := idx.dispatcher.Dispatch(ctx, cmd)
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		outcome = &Outcome{
			Complete: false,
			Errors:   []storage.IndexError{{Path: cmd.SourceFilePath, Message: err.Error(), Fatal: true}},
		}
	}

	result := &storage.IndexResult{
		Path:         cmd.SourceFilePath,
		GroupID:      cmd.GroupID,
		ModTime:      modTime,
		ContentHash:  hash,
		SettingsHash: job.SettingsHash,
		Complete:     outcome.Complete,
		Errors:       outcome.Errors,
	}
	for _, ref := range outcome.References {
		r := storage.FileRef{Path: ref}
		if info, err := os.Stat(ref); err == nil {
			r.ModTime = info.ModTime()
		}
		result.References = append(result.References, r)
	}

	if err := idx.storage.CommitIndexResult(ctx, result); err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		return false, &commitError{err: err}
	}
	return outcome.Complete, nil
}
