// Package scopestack implements a fixed-capacity linear (bump) allocator and
// a scope-stack allocator built on top of it.
//
// # Overview
//
// A LinearAllocator reserves one cache-line aligned block up front and hands
// out consecutive, correctly aligned regions of it. It never grows and never
// frees individual allocations. A Scratch gives that block stack discipline:
// everything allocated through a scope is reclaimed when the scope is
// closed, and values whose type implements Destroyer have Destroy called
// first, most recent allocation first.
//
// This is useful for:
//
//   - Per-frame or per-request transient data
//   - Hot loops that must not touch the garbage collector
//   - Deterministic cleanup of resources referenced by plain data (ids,
//     descriptors, pool slots)
//
// # Basic Usage
//
//	a, err := scopestack.NewLinearAllocator(64 << 10)
//	if err != nil {
//		return err
//	}
//	defer a.Release()
//
//	frame := scopestack.NewScratch(a)
//	defer frame.Close()
//
//	pos, err := scopestack.New(frame, Vec3{X: 1})
//	if err != nil {
//		return err
//	}
//	pos.Get().Y = 2
//
// # Nested Scopes
//
// Child opens a nested scope sharing the same allocator. While the child is
// open the parent is locked: allocating from it fails with ErrScopeLocked.
// Closing the child runs its destructors, rewinds the allocator to where the
// child started and unlocks the parent.
//
//	pass := frame.Child()
//	tmp, _ := scopestack.NewSlice[float32](pass, 256)
//	// ... use tmp
//	pass.Close()
//
// # Memory Layout
//
// The block is mmap'd outside the Go heap on unix systems (see WithBacking),
// so it is never scanned by the garbage collector. Only pointer-free types
// may be placed in it; anything holding a pointer, string, slice, map,
// channel, func or interface is rejected with ErrPointerType. Cleanup that
// needs such references can be registered with Scratch.Defer.
//
// Destructor bookkeeping lives in the block as well: each destructible
// allocation is preceded by a small chain node, so a scope that allocates
// only plain data pays nothing for it.
//
// # Thread Safety
//
// None of the types in this package are safe for concurrent use.
//
// # Important Notes
//
//   - Pointers obtained from Ref.Get must not be used after the scope closes
//   - Ref.Get panics once its scope has closed
//   - Scopes must be closed innermost first; closing a parent closes its
//     open child
//   - Running out of capacity is reported as an *OutOfMemoryError and
//     leaves the allocator unchanged
package scopestack
