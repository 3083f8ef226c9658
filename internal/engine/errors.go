// File: internal/engine/errors.go
// Brief: Terminal error taxonomy surfaced by Execute.

package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrRecipeNotFound: the target or a transitive dependency name is unknown.
	ErrRecipeNotFound = errors.New("recipe not found")
	// ErrCyclicDependency: the reachable graph contains a cycle; nothing ran.
	ErrCyclicDependency = errors.New("cyclic dependency")
	// ErrCommandFailed: a command exited non-zero, was signaled, or failed to spawn.
	ErrCommandFailed = errors.New("command failed")
	// ErrMissingRequiredCommand: a recipe-level @needs check failed.
	ErrMissingRequiredCommand = errors.New("missing required command")
	// ErrOutOfMemory is reserved for exit-code parity. The Go runtime aborts
	// the process on allocation failure, so the engine never constructs it.
	ErrOutOfMemory = errors.New("out of memory")
)

// ExitCode maps a terminal engine error to a process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrRecipeNotFound):
		return 2
	case errors.Is(err, ErrCyclicDependency):
		return 3
	case errors.Is(err, ErrMissingRequiredCommand):
		return 4
	case errors.Is(err, ErrOutOfMemory):
		return 5
	default:
		return 1
	}
}

// NeedsError carries the optional hint and remediation recipe from a failed
// @needs check.
type NeedsError struct {
	Recipe  string
	Command string
	Hint    string
	Remedy  string
}

func (e *NeedsError) Error() string {
	msg := fmt.Sprintf("recipe %s needs %q which is not available", e.Recipe, e.Command)
	if e.Hint != "" {
		msg += ": " + e.Hint
	}
	if e.Remedy != "" {
		msg += fmt.Sprintf(" (try: jake %s)", e.Remedy)
	}
	return msg
}

func (e *NeedsError) Unwrap() error { return ErrMissingRequiredCommand }

func notFoundErr(name string) error {
	return fmt.Errorf("%w: %q", ErrRecipeNotFound, name)
}
