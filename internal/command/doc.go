// Package command defines the indexer command: the self-contained description
// of how to index one source file. Source groups produce commands; the
// indexer pool consumes them, either by running a custom shell command or by
// handing the JSON encoding to an external indexer process.
package command
