package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when trying to create a duplicate entity
	ErrAlreadyExists = errors.New("already exists")
)

// batchSize bounds the number of bound parameters per IN clause.
const batchSize = 500

const settingsKey = "project_settings"

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db   *sql.DB
	path string
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite benefits from single writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage creates a new SQLite storage instance. A database of an
// incompatible schema yields an error wrapping ErrIncompatibleSchema; Remove
// it and open again to start over.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Apply migrations
	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db, path: dbPath}, nil
}

// Remove deletes a database file together with its WAL and shared memory
// files. Missing files are not an error.
func Remove(dbPath string) error {
	for _, p := range []string{dbPath, dbPath + "-wal", dbPath + "-shm"} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove database: %w", err)
		}
	}
	return nil
}

// Path returns the database file the storage was opened from.
func (s *SQLiteStorage) Path() string {
	return s.path
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// BeginTx starts a new transaction
func (s *SQLiteStorage) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx, storage: s}, nil
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// sqliteTx wraps a SQL transaction
type sqliteTx struct {
	tx      *sql.Tx
	storage *SQLiteStorage
}

func (t *sqliteTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback() error {
	return t.tx.Rollback()
}

// querier returns the transaction querier
func (t *sqliteTx) querier() querier {
	return t.tx
}

// querier returns the DB querier
func (s *SQLiteStorage) querier() querier {
	return s.db
}

// inTx runs fn in a new transaction and commits when it succeeds.
func (s *SQLiteStorage) inTx(ctx context.Context, fn func(q querier) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// inClause returns "?,?,..." and the matching arguments.
func inClause(values []string) (string, []interface{}) {
	placeholders := make([]string, len(values))
	args := make([]interface{}, len(values))
	for i, v := range values {
		placeholders[i] = "?"
		args[i] = v
	}
	return strings.Join(placeholders, ","), args
}

// batches splits values into slices of at most batchSize.
func batches(values []string) [][]string {
	var out [][]string
	for len(values) > batchSize {
		out = append(out, values[:batchSize])
		values = values[batchSize:]
	}
	if len(values) > 0 {
		out = append(out, values)
	}
	return out
}

// File operations

const fileColumns = `id, path, group_id, mod_time, content_hash, settings_hash,
	indexed, complete, last_indexed_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanFile(row rowScanner) (*File, error) {
	var file File
	var modTime, lastIndexedAt sql.NullTime
	var contentHash, settingsHash int64
	err := row.Scan(
		&file.ID, &file.Path, &file.GroupID, &modTime, &contentHash, &settingsHash,
		&file.Indexed, &file.Complete, &lastIndexedAt, &file.CreatedAt, &file.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	file.ContentHash = uint64(contentHash)
	file.SettingsHash = uint64(settingsHash)
	if modTime.Valid {
		file.ModTime = modTime.Time
	}
	if lastIndexedAt.Valid {
		file.LastIndexedAt = lastIndexedAt.Time
	}
	return &file, nil
}

// getFileWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) getFileWithQuerier(ctx context.Context, q querier, path string) (*File, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE path = ?`
	file, err := scanFile(q.QueryRowContext(ctx, query, path))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return file, nil
}

func (s *SQLiteStorage) GetFile(ctx context.Context, path string) (*File, error) {
	return s.getFileWithQuerier(ctx, s.querier(), path)
}

// listFilesWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) listFilesWithQuerier(ctx context.Context, q querier) ([]*File, error) {
	query := `SELECT ` + fileColumns + ` FROM files ORDER BY path`
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	files := make([]*File, 0)
	for rows.Next() {
		file, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}
	return files, rows.Err()
}

func (s *SQLiteStorage) ListFiles(ctx context.Context) ([]*File, error) {
	return s.listFilesWithQuerier(ctx, s.querier())
}

// hasFileBeenIndexedWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) hasFileBeenIndexedWithQuerier(ctx context.Context, q querier, path string) (bool, error) {
	var indexed bool
	err := q.QueryRowContext(ctx, `SELECT indexed FROM files WHERE path = ?`, path).Scan(&indexed)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return indexed, nil
}

func (s *SQLiteStorage) HasFileBeenIndexed(ctx context.Context, path string) (bool, error) {
	return s.hasFileBeenIndexedWithQuerier(ctx, s.querier(), path)
}

// clearFilesWithQuerier removes the files with everything recorded for
// them. Non-indexed files that nothing references anymore go too.
func (s *SQLiteStorage) clearFilesWithQuerier(ctx context.Context, q querier, paths []string) error {
	for _, batch := range batches(paths) {
		in, args := inClause(batch)
		if _, err := q.ExecContext(ctx, `DELETE FROM files WHERE path IN (`+in+`)`, args...); err != nil {
			return fmt.Errorf("failed to clear files: %w", err)
		}
	}
	return s.removeOrphansWithQuerier(ctx, q)
}

func (s *SQLiteStorage) removeOrphansWithQuerier(ctx context.Context, q querier) error {
	query := `
		DELETE FROM files
		WHERE indexed = 0
		  AND id NOT IN (SELECT target_id FROM file_references)
	`
	if _, err := q.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to remove unreferenced files: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) ClearFile(ctx context.Context, path string) error {
	return s.ClearFiles(ctx, []string{path})
}

func (s *SQLiteStorage) ClearFiles(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	return s.inTx(ctx, func(q querier) error {
		return s.clearFilesWithQuerier(ctx, q, paths)
	})
}

// clearAllWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) clearAllWithQuerier(ctx context.Context, q querier) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM files`); err != nil {
		return fmt.Errorf("failed to clear index: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) ClearAll(ctx context.Context) error {
	return s.clearAllWithQuerier(ctx, s.querier())
}

// Index results

// commitIndexResultWithQuerier replaces everything recorded for the source
// file of result.
func (s *SQLiteStorage) commitIndexResultWithQuerier(ctx context.Context, q querier, result *IndexResult) error {
	if result.Path == "" {
		return fmt.Errorf("index result has no path")
	}
	now := time.Now()

	query := `
		INSERT INTO files (path, group_id, mod_time, content_hash, settings_hash, indexed, complete, last_indexed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 1, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			group_id = excluded.group_id,
			mod_time = excluded.mod_time,
			content_hash = excluded.content_hash,
			settings_hash = excluded.settings_hash,
			indexed = 1,
			complete = excluded.complete,
			last_indexed_at = excluded.last_indexed_at,
			updated_at = excluded.updated_at
		RETURNING id
	`
	var fileID int64
	err := q.QueryRowContext(ctx, query,
		result.Path, result.GroupID, result.ModTime,
		int64(result.ContentHash), int64(result.SettingsHash),
		result.Complete, now, now, now).Scan(&fileID)
	if err != nil {
		return fmt.Errorf("failed to commit %s: %w", result.Path, err)
	}

	if _, err := q.ExecContext(ctx, `DELETE FROM file_references WHERE source_id = ?`, fileID); err != nil {
		return fmt.Errorf("failed to reset references of %s: %w", result.Path, err)
	}
	if _, err := q.ExecContext(ctx, `DELETE FROM index_errors WHERE file_id = ?`, fileID); err != nil {
		return fmt.Errorf("failed to reset errors of %s: %w", result.Path, err)
	}

	refQuery := `
		INSERT INTO files (path, mod_time, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			mod_time = CASE WHEN files.indexed THEN files.mod_time ELSE excluded.mod_time END
		RETURNING id
	`
	for _, ref := range result.References {
		if ref.Path == "" || ref.Path == result.Path {
			continue
		}
		var modTime interface{}
		if !ref.ModTime.IsZero() {
			modTime = ref.ModTime
		}
		var targetID int64
		if err := q.QueryRowContext(ctx, refQuery, ref.Path, modTime, now, now).Scan(&targetID); err != nil {
			return fmt.Errorf("failed to record referenced file %s: %w", ref.Path, err)
		}
		if _, err := q.ExecContext(ctx,
			`INSERT OR IGNORE INTO file_references (source_id, target_id) VALUES (?, ?)`,
			fileID, targetID); err != nil {
			return fmt.Errorf("failed to record reference to %s: %w", ref.Path, err)
		}
	}

	for _, e := range result.Errors {
		if _, err := q.ExecContext(ctx,
			`INSERT INTO index_errors (file_id, message, fatal, created_at) VALUES (?, ?, ?, ?)`,
			fileID, e.Message, e.Fatal, now); err != nil {
			return fmt.Errorf("failed to record error of %s: %w", result.Path, err)
		}
	}
	// Files only the previous result referenced are gone now.
	return s.removeOrphansWithQuerier(ctx, q)
}

func (s *SQLiteStorage) CommitIndexResult(ctx context.Context, result *IndexResult) error {
	return s.inTx(ctx, func(q querier) error {
		return s.commitIndexResultWithQuerier(ctx, q, result)
	})
}

// Reference operations

// relatedWithQuerier runs a reference query for every batch of paths and
// merges the sorted, unique result.
func (s *SQLiteStorage) relatedWithQuerier(ctx context.Context, q querier, paths []string, query string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	for _, batch := range batches(paths) {
		in, args := inClause(batch)
		rows, err := q.QueryContext(ctx, strings.Replace(query, "%IN%", in, 1), args...)
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			var p string
			if err := rows.Scan(&p); err != nil {
				_ = rows.Close()
				return nil, err
			}
			if !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
		}
		err = rows.Err()
		_ = rows.Close()
		if err != nil {
			return nil, err
		}
	}
	sort.Strings(out)
	return out, nil
}

const referencingQuery = `
	SELECT DISTINCT src.path
	FROM file_references r
	JOIN files src ON src.id = r.source_id
	JOIN files dst ON dst.id = r.target_id
	WHERE dst.path IN (%IN%)
`

const referencedQuery = `
	SELECT DISTINCT dst.path
	FROM file_references r
	JOIN files src ON src.id = r.source_id
	JOIN files dst ON dst.id = r.target_id
	WHERE src.path IN (%IN%)
`

// Referencing returns the files that reference any of paths.
func (s *SQLiteStorage) Referencing(ctx context.Context, paths []string) ([]string, error) {
	return s.relatedWithQuerier(ctx, s.querier(), paths, referencingQuery)
}

// Referenced returns the files referenced by any of paths.
func (s *SQLiteStorage) Referenced(ctx context.Context, paths []string) ([]string, error) {
	return s.relatedWithQuerier(ctx, s.querier(), paths, referencedQuery)
}

// incompleteFilesWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) incompleteFilesWithQuerier(ctx context.Context, q querier) ([]string, error) {
	rows, err := q.QueryContext(ctx, `SELECT path FROM files WHERE indexed = 1 AND complete = 0 ORDER BY path`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SQLiteStorage) IncompleteFiles(ctx context.Context) ([]string, error) {
	return s.incompleteFilesWithQuerier(ctx, s.querier())
}

// listErrorsWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) listErrorsWithQuerier(ctx context.Context, q querier) ([]*IndexError, error) {
	query := `
		SELECT f.path, e.message, e.fatal, e.created_at
		FROM index_errors e
		JOIN files f ON f.id = e.file_id
		ORDER BY f.path, e.id
	`
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	errs := make([]*IndexError, 0)
	for rows.Next() {
		var e IndexError
		if err := rows.Scan(&e.Path, &e.Message, &e.Fatal, &e.CreatedAt); err != nil {
			return nil, err
		}
		errs = append(errs, &e)
	}
	return errs, rows.Err()
}

func (s *SQLiteStorage) ListErrors(ctx context.Context) ([]*IndexError, error) {
	return s.listErrorsWithQuerier(ctx, s.querier())
}

// Project metadata

// getProjectSettingsWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) getProjectSettingsWithQuerier(ctx context.Context, q querier) (string, error) {
	var text string
	err := q.QueryRowContext(ctx, `SELECT value FROM project_meta WHERE key = ?`, settingsKey).Scan(&text)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return text, nil
}

// GetProjectSettings returns the settings text stored by the last
// successful refresh, or ErrNotFound.
func (s *SQLiteStorage) GetProjectSettings(ctx context.Context) (string, error) {
	return s.getProjectSettingsWithQuerier(ctx, s.querier())
}

// setProjectSettingsWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) setProjectSettingsWithQuerier(ctx context.Context, q querier, text string) error {
	query := `
		INSERT INTO project_meta (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	if _, err := q.ExecContext(ctx, query, settingsKey, text, time.Now()); err != nil {
		return fmt.Errorf("failed to store project settings: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) SetProjectSettings(ctx context.Context, text string) error {
	return s.setProjectSettingsWithQuerier(ctx, s.querier(), text)
}

// Status operations

// getStatusWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) getStatusWithQuerier(ctx context.Context, q querier) (*Status, error) {
	status := &Status{}

	counts := []struct {
		query string
		dest  *int
	}{
		{`SELECT COUNT(*) FROM files`, &status.FilesCount},
		{`SELECT COUNT(*) FROM files WHERE indexed = 1`, &status.IndexedCount},
		{`SELECT COUNT(*) FROM files WHERE indexed = 1 AND complete = 0`, &status.IncompleteCount},
		{`SELECT COUNT(*) FROM file_references`, &status.ReferencesCount},
		{`SELECT COUNT(*) FROM index_errors`, &status.ErrorsCount},
	}
	for _, c := range counts {
		if err := q.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return nil, err
		}
	}

	last, err := s.latestIndexedWithQuerier(ctx, q)
	switch {
	case err == nil:
		status.LastIndexedAt = last
	case err != sql.ErrNoRows:
		return nil, err
	}

	version, err := currentVersion(ctx, q)
	if err != nil {
		return nil, err
	}
	status.SchemaVersion = version.String()

	_, err = s.getProjectSettingsWithQuerier(ctx, q)
	switch {
	case err == nil:
		status.HasSettings = true
	case !errors.Is(err, ErrNotFound):
		return nil, err
	}
	return status, nil
}

// latestIndexedWithQuerier scans the newest last_indexed_at as a time so
// the driver's timestamp decoding applies.
func (s *SQLiteStorage) latestIndexedWithQuerier(ctx context.Context, q querier) (time.Time, error) {
	var t time.Time
	err := q.QueryRowContext(ctx,
		`SELECT last_indexed_at FROM files WHERE last_indexed_at IS NOT NULL ORDER BY last_indexed_at DESC LIMIT 1`).Scan(&t)
	return t, err
}

func (s *SQLiteStorage) GetStatus(ctx context.Context) (*Status, error) {
	return s.getStatusWithQuerier(ctx, s.querier())
}

// Transaction implementations

func (t *sqliteTx) GetFile(ctx context.Context, path string) (*File, error) {
	return t.storage.getFileWithQuerier(ctx, t.querier(), path)
}

func (t *sqliteTx) ListFiles(ctx context.Context) ([]*File, error) {
	return t.storage.listFilesWithQuerier(ctx, t.querier())
}

func (t *sqliteTx) HasFileBeenIndexed(ctx context.Context, path string) (bool, error) {
	return t.storage.hasFileBeenIndexedWithQuerier(ctx, t.querier(), path)
}

func (t *sqliteTx) ClearFile(ctx context.Context, path string) error {
	return t.storage.clearFilesWithQuerier(ctx, t.querier(), []string{path})
}

func (t *sqliteTx) ClearFiles(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	return t.storage.clearFilesWithQuerier(ctx, t.querier(), paths)
}

func (t *sqliteTx) ClearAll(ctx context.Context) error {
	return t.storage.clearAllWithQuerier(ctx, t.querier())
}

func (t *sqliteTx) CommitIndexResult(ctx context.Context, result *IndexResult) error {
	return t.storage.commitIndexResultWithQuerier(ctx, t.querier(), result)
}

func (t *sqliteTx) Referencing(ctx context.Context, paths []string) ([]string, error) {
	return t.storage.relatedWithQuerier(ctx, t.querier(), paths, referencingQuery)
}

func (t *sqliteTx) Referenced(ctx context.Context, paths []string) ([]string, error) {
	return t.storage.relatedWithQuerier(ctx, t.querier(), paths, referencedQuery)
}

func (t *sqliteTx) IncompleteFiles(ctx context.Context) ([]string, error) {
	return t.storage.incompleteFilesWithQuerier(ctx, t.querier())
}

func (t *sqliteTx) ListErrors(ctx context.Context) ([]*IndexError, error) {
	return t.storage.listErrorsWithQuerier(ctx, t.querier())
}

func (t *sqliteTx) GetProjectSettings(ctx context.Context) (string, error) {
	return t.storage.getProjectSettingsWithQuerier(ctx, t.querier())
}

func (t *sqliteTx) SetProjectSettings(ctx context.Context, text string) error {
	return t.storage.setProjectSettingsWithQuerier(ctx, t.querier(), text)
}

func (t *sqliteTx) GetStatus(ctx context.Context) (*Status, error) {
	return t.storage.getStatusWithQuerier(ctx, t.querier())
}

func (t *sqliteTx) Close() error {
	// Transactions don't close the underlying connection
	return nil
}

func (t *sqliteTx) BeginTx(ctx context.Context) (Tx, error) {
	// SQLite does not support true nested transactions
	return nil, errors.New("nested transactions not supported")
}
