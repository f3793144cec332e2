package project

import "fmt"

// State is where a project stands relative to its stored index.
type State int

const (
	// StateNotLoaded is the state before Load ran.
	StateNotLoaded State = iota
	// StateEmpty means nothing was indexed yet.
	StateEmpty
	// StateLoaded means the index matches settings and files.
	StateLoaded
	// StateOutdated means source files changed since they were indexed.
	StateOutdated
	// StateOutVersioned means the index was written with an incompatible
	// storage schema and must be rebuilt.
	StateOutVersioned
	// StateSettingsUpdated means the settings differ from the ones the index
	// was built with.
	StateSettingsUpdated
	// StateNeedsMigration means the settings file is of an older format.
	// Refresh is blocked until Migrate ran.
	StateNeedsMigration
)

var stateNames = map[State]string{
	StateNotLoaded:       "not_loaded",
	StateEmpty:           "empty",
	StateLoaded:          "loaded",
	StateOutdated:        "outdated",
	StateOutVersioned:    "out_versioned",
	StateSettingsUpdated: "settings_updated",
	StateNeedsMigration:  "needs_migration",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// forcesFullRefresh reports whether every source file must be indexed.
func (s State) forcesFullRefresh() bool {
	return s == StateEmpty || s == StateOutVersioned || s == StateSettingsUpdated
}

// untrusted reports whether nothing stored can be kept.
func (s State) untrusted() bool {
	return s == StateEmpty || s == StateOutVersioned
}

// RefreshMode selects which files a refresh reconsiders.
type RefreshMode int

const (
	// RefreshUpdatedFiles indexes new and changed files.
	RefreshUpdatedFiles RefreshMode = iota
	// RefreshUpdatedAndIncompleteFiles also retries files whose last run
	// reported errors.
	RefreshUpdatedAndIncompleteFiles
	// RefreshAllFiles clears the index and indexes everything.
	RefreshAllFiles
)

func (m RefreshMode) String() string {
	switch m {
	case RefreshUpdatedFiles:
		return "updated"
	case RefreshUpdatedAndIncompleteFiles:
		return "incomplete"
	case RefreshAllFiles:
		return "all"
	}
	return "unknown"
}

// ParseRefreshMode accepts the names returned by RefreshMode.String.
func ParseRefreshMode(s string) (RefreshMode, bool) {
	for _, m := range []RefreshMode{RefreshUpdatedFiles, RefreshUpdatedAndIncompleteFiles, RefreshAllFiles} {
		if m.String() == s {
			return m, true
		}
	}
	return RefreshUpdatedFiles, false
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// MarshalText encodes the mode by name.
func (m RefreshMode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// UnmarshalText accepts the names returned by RefreshMode.String.
func (m *RefreshMode) UnmarshalText(text []byte) error {
	mode, ok := ParseRefreshMode(string(text))
	if !ok {
		return fmt.Errorf("unknown refresh mode %q", text)
	}
	*m = mode
	return nil
}
