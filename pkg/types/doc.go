// Package types provides shared definitions used across srcgroup packages.
//
// # Error Taxonomy
//
// Failures are kept local to the smallest unit that can fail. A source group
// that cannot be validated or prepared reports a GroupError and contributes no
// files for the current refresh; every other group proceeds:
//
//	if err := group.PrepareIndexing(ctx); err != nil {
//	    var ge *types.GroupError
//	    if errors.As(err, &ge) && ge.Kind == types.KindResource {
//	        // build file vanished, try again next refresh
//	    }
//	}
//
// Only ErrNeedsMigration and ErrSettingsCorrupt stop a whole project.
//
// # Status Messages
//
// Long-running steps (dependency resolution, refresh) report progress through
// a StatusSink. StatusLog collects messages for tests and for the MCP layer.
package types
