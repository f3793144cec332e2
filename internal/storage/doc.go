// Package storage provides SQLite-based persistence for the incremental
// index of a project.
//
// The storage layer records what a refresh needs from previous runs:
//   - Indexed files with their modification time and fingerprints
//   - Non-indexed files that indexed files referenced, e.g. headers
//   - References from indexed files to the files they pulled in
//   - Errors reported by indexers
//   - The project settings text the index was built with
//
// # Database Schema
//
// Tables:
//   - files: tracked files, indexed or only referenced
//   - file_references: source file to referenced file edges
//   - index_errors: indexer errors per file
//   - project_meta: key/value metadata such as the stored settings
//   - schema_version: applied migrations
//
// # Basic Usage
//
//	db, err := storage.NewSQLiteStorage(settings.DBPath())
//	if errors.Is(err, storage.ErrIncompatibleSchema) {
//	    _ = storage.Remove(settings.DBPath())
//	    db, err = storage.NewSQLiteStorage(settings.DBPath())
//	}
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	err = db.CommitIndexResult(ctx, &storage.IndexResult{
//	    Path:       "/p/src/a.cpp",
//	    GroupID:    groupID,
//	    References: []storage.FileRef{{Path: "/p/include/a.h"}},
//	    Complete:   true,
//	})
//
// Clearing a file removes its references and errors. Non-indexed files that
// are no longer referenced by anything are removed with it.
//
// # Build Tags
//
// The default build uses the pure Go modernc.org/sqlite driver. Building
// with the sqlite_cgo tag switches to github.com/mattn/go-sqlite3:
//
//	CGO_ENABLED=1 go build -tags "sqlite_cgo"
package storage
