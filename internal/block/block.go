// Package block reserves the fixed, cache-line aligned memory region that
// backs a linear allocator.
package block

import (
	"fmt"
	"unsafe"

	"github.com/cockroachdb/errors"
)

// Align is the alignment of every reserved block (one L1 cache line on
// most x86, x64 and ARM parts).
const Align = 64

// Kind selects where a block's memory comes from.
type Kind int

const (
	// Mmap maps anonymous private memory outside the Go heap. Falls back to
	// Heap on platforms without mmap.
	Mmap Kind = iota
	// Heap over-allocates a Go byte slice and trims it to Align.
	Heap
)

func (k Kind) String() string {
	switch k {
	case Mmap:
		return "mmap"
	case Heap:
		return "heap"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Block is a reserved region of exactly len(Bytes) bytes whose first byte
// is Align-aligned.
type Block struct {
	Bytes []byte

	kind Kind
	raw  []byte
}

// Kind reports the backing actually used, which may differ from the one
// requested when mmap is unavailable.
func (b *Block) Kind() Kind {
	return b.kind
}

// Reserve acquires size bytes. size must be positive.
func Reserve(size int, kind Kind) (*Block, error) {
	if size <= 0 {
		return nil, errors.Newf("block: invalid size %d", size)
	}
	if kind == Mmap && mmapSupported {
		raw, err := mmap(size)
		if err != nil {
			return nil, errors.Wrapf(err, "block: mmap %d bytes", size)
		}
		// Mappings are page aligned, which is stricter than Align.
		return &Block{Bytes: raw[:size:size], kind: Mmap, raw: raw}, nil
	}
	return reserveHeap(size)
}

func reserveHeap(size int) (b *Block, err error) {
	if size > maxHeapSize {
		return nil, errors.Newf("block: %d bytes exceeds heap reservation limit", size)
	}
	defer func() {
		// makeslice panics instead of returning when len is out of range.
		if r := recover(); r != nil {
			b, err = nil, errors.Newf("block: heap reservation of %d bytes failed: %v", size, r)
		}
	}()
	raw := make([]byte, size+Align-1)
	base := uintptr(unsafe.Pointer(unsafe.SliceData(raw)))
	off := int(alignUp(base, Align) - base)
	return &Block{Bytes: raw[off : off+size : off+size], kind: Heap, raw: raw}, nil
}

// Release returns the memory. It must be called exactly once; the block's
// Bytes must not be touched afterwards.
func (b *Block) Release() error {
	raw := b.raw
	b.Bytes, b.raw = nil, nil
	if raw == nil {
		return errors.New("block: already released")
	}
	if b.kind == Mmap {
		return errors.Wrap(munmap(raw), "block: munmap")
	}
	return nil
}

const maxHeapSize = int(^uint(0)>>1) - Align

func alignUp(v, align uintptr) uintptr {
	return (v + align - 1) &^ (align - 1)
}
