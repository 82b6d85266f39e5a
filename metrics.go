package scopestack

// Used returns the cursor offset: bytes consumed by allocations, alignment
// padding and destructor chain nodes. Returns 0 once released.
func (a *LinearAllocator) Used() int {
	if a.blk == nil {
		return 0
	}
	return a.cursor
}

// Capacity returns the block size in bytes. Returns 0 once released.
func (a *LinearAllocator) Capacity() int {
	if a.blk == nil {
		return 0
	}
	return a.capacity
}

// Remaining returns the free bytes after the cursor, before any alignment
// padding the next allocation may need.
func (a *LinearAllocator) Remaining() int {
	return a.Capacity() - a.Used()
}

// Peak returns the highest cursor offset ever reached. Rewinds do not lower it.
func (a *LinearAllocator) Peak() int {
	return a.peak
}

// Utilization returns the ratio of used bytes to capacity (0.0 to 1.0).
// Returns 0.0 if the allocator has been released.
func (a *LinearAllocator) Utilization() float64 {
	capacity := a.Capacity()
	if capacity == 0 {
		return 0
	}
	return float64(a.Used()) / float64(capacity)
}

// Depth returns the number of open scopes over the allocator.
func (a *LinearAllocator) Depth() int {
	if a.innermost == nil {
		return 0
	}
	return a.innermost.depth + 1
}

// PendingDestructors returns the number of destructors that open scopes
// will run when they close.
func (a *LinearAllocator) PendingDestructors() int {
	return len(a.dtors)
}

// Backing returns the reservation strategy actually in use.
func (a *LinearAllocator) Backing() string {
	if a.blk == nil {
		return "released"
	}
	return a.blk.Kind().String()
}

// Metrics returns a snapshot of allocator statistics.
func (a *LinearAllocator) Metrics() AllocatorMetrics {
	return AllocatorMetrics{
		Used:               a.Used(),
		Capacity:           a.Capacity(),
		Remaining:          a.Remaining(),
		Peak:               a.Peak(),
		Utilization:        a.Utilization(),
		Depth:              a.Depth(),
		PendingDestructors: a.PendingDestructors(),
		Backing:            a.Backing(),
	}
}

// AllocatorMetrics contains statistical information about an allocator.
type AllocatorMetrics struct {
	Used               int     `json:"used"`                // Bytes consumed
	Capacity           int     `json:"capacity"`            // Block size in bytes
	Remaining          int     `json:"remaining"`           // Bytes left after the cursor
	Peak               int     `json:"peak"`                // High-water mark of Used
	Utilization        float64 `json:"utilization"`         // Used/Capacity (0.0-1.0)
	Depth              int     `json:"depth"`               // Open scopes
	PendingDestructors int     `json:"pending_destructors"` // Destructors not yet run
	Backing            string  `json:"backing"`             // "mmap", "heap" or "released"
}
