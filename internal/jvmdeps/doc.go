// Package jvmdeps runs Maven and Gradle to materialize the dependencies of a
// JVM build into a local directory and to learn its source directories.
//
// Every invocation runs under a hard timeout. A timeout surfaces as
// types.ErrDependencyTimeout and a missing executable as
// types.ErrToolUnavailable; neither is retried. The Runner interface lets
// tests replace the child process.
package jvmdeps
