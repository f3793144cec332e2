// Package indexer runs indexer commands and records their results.
//
// A refresh hands the indexer the files to clear and one Job per source
// file. Run clears first, in a single transaction, then executes the jobs
// on a bounded worker pool and commits each result as soon as it arrives:
//
//	idx := indexer.New(store, &indexer.ExecDispatcher{IndexerPath: app.IndexerPath}, &indexer.Config{
//	    Workers: app.Workers,
//	})
//
//	stats, err := idx.Run(ctx, info.FilesToClear, jobs)
//	fmt.Printf("Indexed %d files in %v\n", stats.FilesIndexed, stats.Duration)
//
// # Dispatching
//
// ExecDispatcher runs custom commands with "sh -c". Every other command is
// written as JSON to the stdin of the configured indexer executable, which
// answers on stdout:
//
//	{"references": ["/p/include/a.h"], "complete": true, "errors": []}
//
// Custom commands whose group does not allow parallel runs are executed one
// after another on a single lane of the pool.
//
// # Fingerprints
//
// Each committed file carries the xxhash64 of its content and of its
// group's settings. The project compares both on the next refresh to decide
// what changed.
//
// # Concurrency
//
// Only one Run per Indexer is allowed at a time; a second call returns
// types.ErrRefreshInProgress. Cancelling ctx kills running subprocesses and
// stops before the next file.
package indexer
