/*
autorig infers a skeleton from the weighted vertex groups of a mesh: one
bone per group along its principal axis, optionally chained into a
hierarchy.
*/
package main

import (
	"errors"
	"os"

	"github.com/spaghettifunk/autorig/engine/core"
)

// CLI exit codes for standardized error reporting.
const (
	// ExitSuccess indicates the operation completed successfully.
	ExitSuccess = 0

	// ExitGeneralError indicates an unspecified error occurred.
	ExitGeneralError = 1

	// ExitInvalidInput indicates malformed weights, coordinates or arguments.
	ExitInvalidInput = 2

	// ExitUnknownRegion indicates a requested region is not on the mesh.
	ExitUnknownRegion = 3

	// ExitConfigError indicates the configuration could not be used.
	ExitConfigError = 4

	// ExitAssetError indicates a mesh or skeleton file could not be read or written.
	ExitAssetError = 5

	// ExitHierarchyError indicates the bone hierarchy failed its checks.
	ExitHierarchyError = 6
)

func main() {
	cmd := NewCommand()
	if err := cmd.Execute(); err != nil {
		os.Exit(exitCodeFromError(err))
	}
}

// exitCodeFromError maps error types to exit codes.
func exitCodeFromError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	switch {
	case errors.Is(err, core.ErrUnknownRegion):
		return ExitUnknownRegion
	case errors.Is(err, core.ErrDuplicateRegion):
		return ExitInvalidInput
	case errors.Is(err, core.ErrAssetLoad):
		return ExitAssetError
	case errors.Is(err, core.ErrMalformedInput):
		return ExitInvalidInput
	case errors.Is(err, core.ErrInvalidConfig):
		return ExitConfigError
	case errors.Is(err, core.ErrCyclicHierarchy):
		return ExitHierarchyError
	default:
		return ExitGeneralError
	}
}
