package core

import (
	"errors"
)

// Sentinel errors shared across the engine. Wrap them with fmt.Errorf and %w
// and test with errors.Is.
var (
	// ErrMalformedInput marks input that would produce a meaningless bone:
	// negative weights, non-finite coordinates, mismatched lengths, or
	// quantiles outside [0, 1].
	ErrMalformedInput = errors.New("malformed input")

	// ErrUnknownRegion is returned when a region name is not present on the source.
	ErrUnknownRegion = errors.New("unknown region")

	// ErrDuplicateRegion is returned when a region is requested twice in one build.
	ErrDuplicateRegion = errors.New("duplicate region")

	// ErrCyclicHierarchy signals a broken parent map post-condition.
	ErrCyclicHierarchy = errors.New("bone hierarchy contains a cycle")

	// ErrInvalidConfig marks unreadable or out-of-range configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrAssetLoad marks a mesh or skeleton file that could not be read or parsed.
	ErrAssetLoad = errors.New("asset load failed")

	ErrUnknown = errors.New("unknown")
)
