// Package settings models the project settings file.
//
// A ProjectSettings holds an ordered list of SourceGroupSettings. Each group
// is an identity (id, name, type, status) plus a list of Components. Every
// component reads and writes its own keys below
// "source_groups/source_group_<id>/" and decides equality on its own, with
// list values compared as multisets so reordering flags or paths never
// counts as a change.
//
// # Types
//
// Type is a closed set. DefaultComponents switches over it to build the
// component list of each type; tags the running build does not know load as
// TypeUnloadable with a RawBag that writes every key back verbatim.
//
// # Migration
//
// Files carry a format version. ProjectMigrator lists the steps from the
// first format to ProjectVersion; Migrator applies the steps between the
// stored version and the target in order and then stamps the new version:
//
//	p, err := settings.LoadProjectSettings(path)
//	if p.NeedsMigration() {
//	    migrated, err := p.Migrate()
//	}
package settings
