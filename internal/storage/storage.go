package storage

import (
	"context"
	"time"
)

// Storage persists what a refresh needs to know about previous runs: the
// indexed files with their fingerprints, the references between files, the
// errors indexers reported and the settings the index was built with.
type Storage interface {
	// File operations
	GetFile(ctx context.Context, path string) (*File, error)
	ListFiles(ctx context.Context) ([]*File, error)
	HasFileBeenIndexed(ctx context.Context, path string) (bool, error)
	ClearFile(ctx context.Context, path string) error
	ClearFiles(ctx context.Context, paths []string) error
	ClearAll(ctx context.Context) error

	// Index results
	CommitIndexResult(ctx context.Context, result *IndexResult) error

	// Reference operations
	Referencing(ctx context.Context, paths []string) ([]string, error)
	Referenced(ctx context.Context, paths []string) ([]string, error)
	IncompleteFiles(ctx context.Context) ([]string, error)
	ListErrors(ctx context.Context) ([]*IndexError, error)

	// Project metadata
	GetProjectSettings(ctx context.Context) (string, error)
	SetProjectSettings(ctx context.Context, text string) error

	// Status operations
	GetStatus(ctx context.Context) (*Status, error)

	// Database operations
	Close() error
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx represents a database transaction
type Tx interface {
	Commit() error
	Rollback() error
	Storage // Embed Storage interface for transaction operations
}

// File is a tracked file. Indexed files were the source of an indexer
// command; non-indexed files are only known because an indexed file
// referenced them.
type File struct {
	ID      int64
	Path    string // Absolute
	GroupID string // Empty for non-indexed files
	ModTime time.Time
	// ContentHash and SettingsHash are xxhash64 fingerprints of the file
	// content and of the owning group's settings at index time.
	ContentHash   uint64
	SettingsHash  uint64
	Indexed       bool
	Complete      bool
	LastIndexedAt time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IndexResult is what an indexer reported for one source file.
type IndexResult struct {
	Path         string
	GroupID      string
	ModTime      time.Time
	ContentHash  uint64
	SettingsHash uint64
	// References are the files the source pulled in, e.g. included headers.
	References []FileRef
	Complete   bool
	Errors     []IndexError
}

// FileRef names a referenced file and its modification time when it was
// referenced.
type FileRef struct {
	Path    string
	ModTime time.Time
}

// IndexError is an error an indexer reported for a file.
type IndexError struct {
	Path      string
	Message   string
	Fatal     bool
	CreatedAt time.Time
}

// Status contains statistics about a stored index
type Status struct {
	FilesCount      int
	IndexedCount    int
	IncompleteCount int
	ReferencesCount int
	ErrorsCount     int
	SchemaVersion   string
	LastIndexedAt   time.Time
	HasSettings     bool
}
