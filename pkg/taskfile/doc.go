// Package taskfile implements tattle's build automation: a small task runner
// that reads target declarations from a Starlark script and executes their
// commands through an embedded POSIX shell (mvdan.cc/sh).
// It replaces the Makefile the project used before and behaves the same way:
// each target is a linear command sequence that halts on the first failure.
package taskfile
