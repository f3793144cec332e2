// Package cli implements the srcgroup command line: refreshing, watching
// and inspecting a project, migrating its settings and serving it over MCP.
package cli
