// Package config loads the application settings shared by all projects:
// global header and framework search paths, JVM tool locations, the
// dependency resolution timeout and the indexer worker count.
//
// Sources are layered with viper. Defaults come first, then the settings
// file (srcgroup.yaml, .toml or .json in the user config directory or the
// working directory, or the --config flag), then SRCGROUP_* environment
// variables, then command-line flags.
package config
