package types

import (
	"errors"
	"fmt"
)

// Project-level errors
var (
	ErrNeedsMigration      = errors.New("project settings need migration")
	ErrProjectNotLoaded    = errors.New("project not loaded")
	ErrRefreshInProgress   = errors.New("refresh already in progress")
	ErrSettingsCorrupt     = errors.New("project settings file is corrupt")
	ErrMissingPlaceholder  = errors.New("custom command lacks the source file placeholder")
	ErrBuildFileMissing    = errors.New("build file does not exist")
	ErrBuildFileInvalid    = errors.New("build file could not be parsed")
	ErrToolUnavailable     = errors.New("external tool is not runnable")
	ErrDependencyTimeout   = errors.New("dependency resolution timed out")
	ErrDuplicateGroupID    = errors.New("duplicate source group id")
	ErrUnsupportedSettings = errors.New("unsupported settings format")
)

// ErrorKind classifies where a failure originated.
type ErrorKind string

const (
	KindConfiguration   ErrorKind = "configuration"
	KindResource        ErrorKind = "resource"
	KindVersion         ErrorKind = "version"
	KindUnknownType     ErrorKind = "unknown_type"
	KindExternalProcess ErrorKind = "external_process"
)

// GroupError is a failure scoped to a single source group. It never aborts
// sibling groups; the project records it and moves on.
type GroupError struct {
	Kind       ErrorKind
	GroupID    string
	GroupName  string
	Operation  string
	Path       string
	Underlying error
}

// NewGroupError creates a group-scoped error.
func NewGroupError(kind ErrorKind, groupID, op string, err error) *GroupError {
	return &GroupError{
		Kind:       kind,
		GroupID:    groupID,
		Operation:  op,
		Underlying: err,
	}
}

// WithPath attaches the file the failure refers to.
func (e *GroupError) WithPath(path string) *GroupError {
	e.Path = path
	return e
}

// WithName attaches the display name of the group.
func (e *GroupError) WithName(name string) *GroupError {
	e.GroupName = name
	return e
}

func (e *GroupError) Error() string {
	group := e.GroupID
	if e.GroupName != "" {
		group = fmt.Sprintf("%s (%s)", e.GroupName, e.GroupID)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s error in source group %s: %s %s: %v", e.Kind, group, e.Operation, e.Path, e.Underlying)
	}
	return fmt.Sprintf("%s error in source group %s: %s: %v", e.Kind, group, e.Operation, e.Underlying)
}

// Unwrap returns the underlying error for errors.Is/As
func (e *GroupError) Unwrap() error {
	return e.Underlying
}

// IsGroupError reports whether err carries a GroupError of the given kind.
func IsGroupError(err error, kind ErrorKind) bool {
	var ge *GroupError
	if errors.As(err, &ge) {
		return ge.Kind == kind
	}
	return false
}
