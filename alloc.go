package scopestack

import (
	"reflect"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/pavanmanishd/scopestack/internal/layout"
)

// Allocate copies v into the allocator and returns a pointer to the copy.
// The pointer is valid until the allocator is rewound below it or released.
// T must be pointer-free.
//
// Allocate never registers a destructor; use New on a Scratch for types
// implementing Destroyer.
func Allocate[T any](a *LinearAllocator, v T) (*T, error) {
	info, err := placeable[T]()
	if err != nil {
		return nil, err
	}
	p, err := a.place(info)
	if err != nil {
		return nil, err
	}
	t := (*T)(p)
	*t = v
	return t, nil
}

// placeable returns T's layout, or ErrPointerType if T cannot be stored in
// memory the garbage collector does not scan.
func placeable[T any]() (layout.Info, error) {
	info := layout.Of[T]()
	if !info.PointerFree {
		return info, errors.Wrapf(ErrPointerType, "%s", reflect.TypeOf((*T)(nil)).Elem())
	}
	return info, nil
}

// sliceInfo returns the layout of an n element array of T, or an
// *OutOfMemoryError if its size is not representable.
func sliceInfo(a *LinearAllocator, elem layout.Info, n int) (layout.Info, error) {
	if elem.Size != 0 && uintptr(n) > uintptr(MaxCapacity)/elem.Size {
		return layout.Info{}, a.outOfMemory(uintptr(MaxCapacity)+1, elem.Align)
	}
	return layout.Info{Size: elem.Size * uintptr(n), Align: elem.Align, PointerFree: true}, nil
}

// typedSlice views n elements of T at p, zeroing them.
func typedSlice[T any](p unsafe.Pointer, n int) []T {
	s := unsafe.Slice((*T)(p), n)
	clear(s)
	return s
}
