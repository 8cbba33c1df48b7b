package registry

import "errors"

// Registration and lifecycle errors.  Sentinel variables allow callers to
// detect conditions via errors.Is instead of string comparison.  All of them
// are local to the failing operation – none aborts the engine.

var (
	// ErrInvalidConfig indicates malformed registration parameters (cap
	// below base units, zero base units, or an initial release above cap).
	ErrInvalidConfig = errors.New("registry: invalid allocation config")

	// ErrDuplicateAllocation is returned when the id was already registered,
	// including ids of removed allocations – ids are never reusable.
	ErrDuplicateAllocation = errors.New("registry: duplicate allocation")

	// ErrAllocationNotFound is returned for unknown or removed ids.
	ErrAllocationNotFound = errors.New("registry: allocation not found")

	// ErrCapacityExceeded is returned when activating would exceed the
	// policy's max concurrent allocations.
	ErrCapacityExceeded = errors.New("registry: capacity exceeded")

	// ErrAlreadyCompleted is returned when activating an allocation that
	// already released its full cap.
	ErrAlreadyCompleted = errors.New("registry: allocation already completed")
)
