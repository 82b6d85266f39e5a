package scopestack

import (
	"fmt"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/pavanmanishd/scopestack/internal/layout"
	"golang.org/x/exp/slog"
)

// Scope stack allocation after Frostbite's "Scope Stack Allocation".
// Runtime checks keep every allocation in the innermost open scope.

// Destroyer is implemented by types that need cleanup before their memory
// is reclaimed. Destroy is called on the value inside the block when the
// owning scope closes.
type Destroyer interface {
	Destroy()
}

// State is the lifecycle state of a Scratch.
type State int

const (
	// Active scopes can allocate.
	Active State = iota
	// ChildActive scopes are locked until their child closes.
	ChildActive
	// Closing scopes are running their destructors.
	Closing
	// Exited scopes have been closed; nothing is valid afterwards.
	Exited
)

func (s State) String() string {
	switch s {
	case Active:
		return "active"
	case ChildActive:
		return "child-active"
	case Closing:
		return "closing"
	case Exited:
		return "exited"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// noNode terminates a destructor chain; noTarget marks callbacks that take
// no object.
const (
	noNode   = ^uintptr(0)
	noTarget = ^uintptr(0)
)

// node is one destructor chain entry. It is bump-allocated in the block
// right before the object it protects, so it must stay pointer-free.
type node struct {
	target uintptr // block offset of the object
	prev   uintptr // block offset of the previous node
	dtor   uintptr // index into LinearAllocator.dtors
}

var nodeInfo = layout.Of[node]()

// Scratch is one level of a scope stack over a LinearAllocator.
type Scratch struct {
	alloc    *LinearAllocator
	origin   Mark
	dtorBase int
	head     uintptr

	parent *Scratch
	child  *Scratch
	depth  int
	state  State
}

// NewScratch opens a root scope over a. The allocator must not already have
// an open scope; nested scopes come from Child.
func NewScratch(a *LinearAllocator) *Scratch {
	a.panicIfReleased()
	if a.innermost != nil {
		panic(defect("allocator already has an open scope at depth %d, use Child", a.innermost.depth))
	}
	s := &Scratch{
		alloc:    a,
		origin:   a.Peek(),
		dtorBase: len(a.dtors),
		head:     noNode,
	}
	a.innermost = s
	return s
}

// Child opens a nested scope sharing s's allocator and locks s until the
// child is closed. Opening a second child is a logic error and panics.
func (s *Scratch) Child() *Scratch {
	s.alloc.panicIfReleased()
	switch s.state {
	case ChildActive:
		panic(defect("scope at depth %d already has an active child scope", s.depth))
	case Closing, Exited:
		panic(defect("Child on a closed scope"))
	}
	c := &Scratch{
		alloc:    s.alloc,
		origin:   s.alloc.Peek(),
		dtorBase: len(s.alloc.dtors),
		head:     noNode,
		parent:   s,
		depth:    s.depth + 1,
	}
	s.child = c
	s.state = ChildActive
	s.alloc.innermost = c
	return c
}

// State reports where s is in its lifecycle.
func (s *Scratch) State() State {
	return s.state
}

// Depth is 0 for a root scope and grows by one per Child.
func (s *Scratch) Depth() int {
	return s.depth
}

// Allocator returns the allocator s draws from.
func (s *Scratch) Allocator() *LinearAllocator {
	return s.alloc
}

// Origin returns the mark the allocator is rewound to when s closes.
func (s *Scratch) Origin() Mark {
	return s.origin
}

// Defer registers fn to run when s closes, in reverse order together with
// the destructors of values allocated from s. fn may hold any references.
func (s *Scratch) Defer(fn func()) error {
	if fn == nil {
		return errors.New("scopestack: nil deferred function")
	}
	if err := s.checkAlloc(); err != nil {
		return err
	}
	_, err := s.push(layout.Info{}, false, func(unsafe.Pointer) { fn() })
	return err
}

// Close runs the scope's destructors in reverse allocation order, rewinds
// the allocator to the scope's origin and unlocks the parent. An open child
// is closed first. A panicking destructor does not stop the unwind; the
// first panic is re-raised once the scope has exited. Closing a scope from
// a destructor of one of its descendants is a logic error and panics.
func (s *Scratch) Close() error {
	if s.state == Closing || s.state == Exited {
		return ErrScopeClosed
	}
	a := s.alloc
	a.panicIfReleased()
	for c := s.child; c != nil; c = c.child {
		if c.state == Closing {
			panic(defect("close of scope at depth %d while its child at depth %d is closing", s.depth, c.depth))
		}
	}

	var panicked any
	if s.child != nil {
		a.logger.Debug("closing scope with an active child", slog.Int("depth", s.depth))
		panicked = s.child.closeRecover()
	}
	s.state = Closing

	for off := s.head; off != noNode; {
		n := (*node)(a.at(int(off), nodeInfo.Size))
		if r := a.destroy(n); r != nil && panicked == nil {
			panicked = r
		}
		off = n.prev
	}
	s.head = noNode

	clear(a.dtors[s.dtorBase:])
	a.dtors = a.dtors[:s.dtorBase]
	a.rewind(s.origin)

	s.state = Exited
	if s.parent != nil {
		s.parent.child = nil
		s.parent.state = Active
	}
	a.innermost = s.parent

	if panicked != nil {
		panic(panicked)
	}
	return nil
}

func (s *Scratch) closeRecover() (r any) {
	defer func() {
		r = recover()
	}()
	_ = s.Close()
	return nil
}

func (s *Scratch) checkAlloc() error {
	switch s.state {
	case ChildActive:
		return errors.WithAssertionFailure(ErrScopeLocked)
	case Closing, Exited:
		return ErrScopeClosed
	}
	return nil
}

// push allocates a chain node followed by an object described by info and
// links the node at the head of the chain. withTarget false registers fn
// with no object. On failure the cursor is left where it was.
func (s *Scratch) push(info layout.Info, withTarget bool, fn func(unsafe.Pointer)) (unsafe.Pointer, error) {
	a := s.alloc
	cursor, peak := a.cursor, a.peak

	nodeOff, err := a.bump(nodeInfo.Size, nodeInfo.Align)
	if err != nil {
		return nil, err
	}
	n := (*node)(a.at(nodeOff, nodeInfo.Size))
	n.prev = s.head
	n.target = noTarget
	n.dtor = uintptr(len(a.dtors))

	var obj unsafe.Pointer
	if withTarget {
		off, err := a.bump(info.Size, info.Align)
		if err != nil {
			// Do not leave the node behind as dead weight.
			a.cursor, a.peak = cursor, peak
			return nil, err
		}
		obj = a.at(off, info.Size)
		if info.Size != 0 {
			n.target = uintptr(off)
		}
	}

	a.dtors = append(a.dtors, fn)
	s.head = uintptr(nodeOff)
	return obj, nil
}

// destroy runs n's callback and returns whatever it panicked with.
func (a *LinearAllocator) destroy(n *node) (r any) {
	defer func() {
		r = recover()
	}()
	target := unsafe.Pointer(&zerobase)
	if n.target != noTarget {
		target = a.at(int(n.target), 1)
	}
	a.dtors[n.dtor](target)
	return nil
}

func destroyAt[T any](p unsafe.Pointer) {
	any((*T)(p)).(Destroyer).Destroy()
}

func destroySlice[T any](n int) func(unsafe.Pointer) {
	return func(p unsafe.Pointer) {
		s := unsafe.Slice((*T)(p), n)
		for i := n - 1; i >= 0; i-- {
			any(&s[i]).(Destroyer).Destroy()
		}
	}
}
