// Package sourcegroup resolves source group settings into source files and
// indexer commands.
//
// Every settings.Type has one strategy. File-list groups (C, C++, Java,
// Python, custom command) discover files below their source paths; build
// description groups read a compilation database, a Code::Blocks project, a
// Sonargraph system or a Maven/Gradle build. A Factory maps types to
// constructors; types without one degrade to Unloadable.
//
// Groups report problems in two ways: the returned *types.GroupError, which
// the project records per group, and user-facing messages on the
// Context.Status sink. A failing group never affects its siblings.
package sourcegroup
