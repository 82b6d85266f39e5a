package scopestack

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

var (
	// ErrInvalidConfiguration indicates a zero, negative or unrepresentable capacity.
	ErrInvalidConfiguration = errors.New("scopestack: invalid configuration")

	// ErrBackingAllocationFailed indicates the backing block could not be reserved.
	ErrBackingAllocationFailed = errors.New("scopestack: backing allocation failed")

	// ErrOutOfMemory indicates the remaining capacity cannot hold a request.
	// The concrete error is an *OutOfMemoryError.
	ErrOutOfMemory = errors.New("scopestack: out of memory")

	// ErrInvalidAlignment indicates an alignment that is not a power of two
	// no larger than CacheLineSize.
	ErrInvalidAlignment = errors.New("scopestack: invalid alignment")

	// ErrPointerType indicates a type holding references the garbage collector
	// must see, which cannot live in the block.
	ErrPointerType = errors.New("scopestack: type contains pointers")

	// ErrScopeLocked indicates an allocation from a scope with an active child.
	// It is a contract violation and carries an assertion failure marker.
	ErrScopeLocked = errors.New("scopestack: tried to allocate from a scope that has an active child scope")

	// ErrScopeClosed indicates use of a scope that has already been closed.
	ErrScopeClosed = errors.New("scopestack: scope closed")

	// ErrReleased indicates the allocator was already released.
	ErrReleased = errors.New("scopestack: allocator released")
)

// OutOfMemoryError reports a request that did not fit.
type OutOfMemoryError struct {
	Size      int // requested bytes
	Align     int // requested alignment
	Remaining int // free bytes before alignment padding
}

func (e *OutOfMemoryError) Error() string {
	return fmt.Sprintf("scopestack: tried to allocate %d bytes aligned at %d with only %d remaining",
		e.Size, e.Align, e.Remaining)
}

func (e *OutOfMemoryError) Unwrap() error {
	return ErrOutOfMemory
}

// defect builds the panic value for a broken usage contract.
func defect(format string, args ...any) error {
	return errors.AssertionFailedf("scopestack: "+format, args...)
}
