// Package discovery finds source files below a set of roots.
//
// Files are selected by extension and rejected by wildcard exclude filters
// (see Filter). All returned paths are absolute and cleaned. The package also
// provides PathSet, the set type every source group uses for its file sets,
// and the path expansion rules used by settings ("~", environment variables,
// relative to the project directory).
package discovery
