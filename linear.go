package scopestack

import (
	"math"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/pavanmanishd/scopestack/internal/block"
	"github.com/pavanmanishd/scopestack/internal/layout"
	"golang.org/x/exp/slog"
)

// CacheLineSize is the alignment of the allocator's block and the largest
// alignment AllocBytes accepts.
const CacheLineSize = block.Align

// MaxCapacity is the largest block an allocator may reserve. It leaves
// headroom so that cursor + padding + size never overflows an int.
const MaxCapacity = math.MaxInt >> 1

// LinearAllocator is a fixed-capacity bump allocator over a single block.
// Not goroutine-safe.
type LinearAllocator struct {
	blk      *block.Block
	buf      []byte         // blk.Bytes, nil once released
	base     unsafe.Pointer // &buf[0]
	capacity int
	cursor   int
	peak     int

	// dtors holds the callbacks referenced by chain nodes in the block.
	// The block is not scanned by the GC, so closures cannot live there.
	dtors []func(unsafe.Pointer)

	innermost *Scratch
	logger    *slog.Logger
}

// Mark is an opaque snapshot of an allocator's cursor.
type Mark struct {
	a   *LinearAllocator
	off int
}

// Offset returns the cursor offset the mark was taken at, for diagnostics.
func (m Mark) Offset() int {
	return m.off
}

// NewLinearAllocator reserves a block of capacity bytes aligned to
// CacheLineSize.
func NewLinearAllocator(capacity int, opts ...Option) (*LinearAllocator, error) {
	if capacity <= 0 || capacity > MaxCapacity {
		return nil, errors.Wrapf(ErrInvalidConfiguration, "capacity %d", capacity)
	}
	cfg := newConfig(opts)

	blk, err := block.Reserve(capacity, cfg.backing.kind())
	if err != nil {
		cfg.logger.Error("block reservation failed", slog.Int("capacity", capacity), slog.Any("err", err))
		return nil, errors.Mark(errors.Wrapf(err, "reserve %d bytes", capacity), ErrBackingAllocationFailed)
	}

	a := &LinearAllocator{
		blk:      blk,
		buf:      blk.Bytes,
		base:     unsafe.Pointer(unsafe.SliceData(blk.Bytes)),
		capacity: capacity,
		logger:   cfg.logger,
	}
	a.logger.Debug("linear allocator created",
		slog.Int("capacity", capacity), slog.String("backing", blk.Kind().String()))
	return a, nil
}

// AllocBytes returns size bytes starting at the next offset aligned to align.
// The contents are whatever was last written there. align must be a power
// of two no larger than CacheLineSize.
func (a *LinearAllocator) AllocBytes(size, align int) ([]byte, error) {
	if size < 0 {
		return nil, errors.Newf("scopestack: negative size %d", size)
	}
	if align <= 0 || align > CacheLineSize || align&(align-1) != 0 {
		return nil, errors.Wrapf(ErrInvalidAlignment, "align %d", align)
	}
	off, err := a.bump(uintptr(size), uintptr(align))
	if err != nil {
		return nil, err
	}
	return a.buf[off : off+size : off+size], nil
}

// Peek returns the current cursor. The mark is only useful as a rewind
// target for scopes and for diagnostics.
func (a *LinearAllocator) Peek() Mark {
	a.panicIfReleased()
	return Mark{a: a, off: a.cursor}
}

// rewind moves the cursor back to m. The caller must already have destroyed
// everything allocated after m and dropped every reference to it.
func (a *LinearAllocator) rewind(m Mark) {
	a.panicIfReleased()
	// Catch the obvious errors. A mark that is in range but was never
	// returned by Peek cannot be detected.
	if m.a != a || m.off < 0 || m.off > a.capacity {
		panic(defect("mark %d doesn't belong to this allocator", m.off))
	}
	if m.off > a.cursor {
		panic(defect("rewind to %d would move the cursor forward from %d", m.off, a.cursor))
	}
	a.cursor = m.off
}

// Release closes any live scopes, innermost first, and returns the block.
// Any subsequent use of the allocator panics.
func (a *LinearAllocator) Release() (err error) {
	if a.blk == nil {
		return ErrReleased
	}
	defer func() {
		blk := a.blk
		a.blk, a.buf, a.base = nil, nil, nil
		a.cursor, a.dtors, a.innermost = 0, nil, nil
		if rerr := blk.Release(); rerr != nil && err == nil {
			err = errors.Wrap(rerr, "scopestack: release block")
		}
		a.logger.Debug("linear allocator released", slog.Int("capacity", a.capacity), slog.Int("peak", a.peak))
	}()

	if a.innermost != nil {
		a.logger.Debug("closing live scopes before release", slog.Int("depth", a.Depth()))
		root := a.innermost
		for root.parent != nil {
			root = root.parent
		}
		return root.Close()
	}
	return nil
}

// bump reserves size bytes at the next offset aligned to align, which must
// be a power of two. The cursor is untouched on failure.
func (a *LinearAllocator) bump(size, align uintptr) (int, error) {
	a.panicIfReleased()

	// cursor <= capacity <= MaxCapacity, so neither sum can overflow.
	limit := uintptr(a.capacity)
	off := (uintptr(a.cursor) + align - 1) &^ (align - 1)
	if off > limit || size > limit-off {
		return 0, a.outOfMemory(size, align)
	}

	a.cursor = int(off + size)
	if a.cursor > a.peak {
		a.peak = a.cursor
	}
	return int(off), nil
}

// place bumps room for a value described by info and returns its address.
func (a *LinearAllocator) place(info layout.Info) (unsafe.Pointer, error) {
	off, err := a.bump(info.Size, info.Align)
	if err != nil {
		return nil, err
	}
	return a.at(off, info.Size), nil
}

func (a *LinearAllocator) outOfMemory(size, align uintptr) error {
	err := &OutOfMemoryError{
		Size:      int(min(size, uintptr(math.MaxInt))),
		Align:     int(align),
		Remaining: a.capacity - a.cursor,
	}
	a.logger.Warn("allocation does not fit",
		slog.Int("size", err.Size), slog.Int("align", err.Align), slog.Int("remaining", err.Remaining))
	return err
}

// zerobase is handed out for zero-sized values so that no pointer ever
// points one past the end of the block.
var zerobase uint64

// at returns the address of offset off in the block.
func (a *LinearAllocator) at(off int, size uintptr) unsafe.Pointer {
	if size == 0 {
		return unsafe.Pointer(&zerobase)
	}
	return unsafe.Add(a.base, off)
}

// panicIfReleased panics if the allocator has been released.
func (a *LinearAllocator) panicIfReleased() {
	if a.blk == nil {
		panic(defect("use after Release()"))
	}
}
