package scopestack

import "unsafe"

// Ref is a handle to a value allocated from a Scratch.
type Ref[T any] struct {
	scope *Scratch
	ptr   *T
}

// Get returns the value's address. It panics once the owning scope has
// closed; the returned pointer must not be kept past that point either.
func (r Ref[T]) Get() *T {
	if r.scope == nil {
		panic(defect("Get on a zero Ref"))
	}
	if r.scope.state == Exited {
		panic(defect("reference used after its scope was closed"))
	}
	return r.ptr
}

// Valid reports whether Get would succeed.
func (r Ref[T]) Valid() bool {
	return r.scope != nil && r.scope.state != Exited
}

// Scope returns the scope that owns the value.
func (r Ref[T]) Scope() *Scratch {
	return r.scope
}

// New copies v into s. If *T implements Destroyer, Destroy is called on the
// copy when s closes. T must be pointer-free.
func New[T any](s *Scratch, v T) (Ref[T], error) {
	if err := s.checkAlloc(); err != nil {
		return Ref[T]{}, err
	}
	info, err := placeable[T]()
	if err != nil {
		return Ref[T]{}, err
	}

	var p unsafe.Pointer
	if _, ok := any((*T)(nil)).(Destroyer); ok {
		p, err = s.push(info, true, destroyAt[T])
	} else {
		// Nothing to clean up, plain bump allocation.
		p, err = s.alloc.place(info)
	}
	if err != nil {
		return Ref[T]{}, err
	}

	ptr := (*T)(p)
	*ptr = v
	return Ref[T]{scope: s, ptr: ptr}, nil
}

// NewSlice allocates n zeroed elements of T from s. Returns nil if n <= 0.
// If *T implements Destroyer, every element is destroyed, last first, when
// s closes. The slice must not be used after s closes.
func NewSlice[T any](s *Scratch, n int) ([]T, error) {
	if err := s.checkAlloc(); err != nil {
		return nil, err
	}
	if n <= 0 {
		return nil, nil
	}
	elem, err := placeable[T]()
	if err != nil {
		return nil, err
	}
	info, err := sliceInfo(s.alloc, elem, n)
	if err != nil {
		return nil, err
	}

	var p unsafe.Pointer
	if _, ok := any((*T)(nil)).(Destroyer); ok {
		p, err = s.push(info, true, destroySlice[T](n))
	} else {
		p, err = s.alloc.place(info)
	}
	if err != nil {
		return nil, err
	}
	return typedSlice[T](p, n), nil
}

// Bytes allocates n zeroed bytes from s. Returns nil if n <= 0.
func (s *Scratch) Bytes(n int) ([]byte, error) {
	return NewSlice[byte](s, n)
}
