package api

import "errors"
import "unsafe"

// ErrorOutofmemory by page-provider when OS cannot satisfy a mapping
// request, propagated to applications as a failed allocation.
var ErrorOutofmemory = errors.New("gomalloc.outofmemory")

// ErrorAlreadyPresent by address-map when registering a page that is
// already owned by an extent. Always an internal bug, never surfaced
// to applications.
var ErrorAlreadyPresent = errors.New("gomalloc.alreadypresent")

// Mallocer interface for custom memory management.
type Mallocer interface {
	// Slabs allocatable slab of sizes.
	Slabs() (sizes []int64)

	// Alloc allocate a chunk of `n` bytes, aligned at `align`. Returns
	// nil if memory is exhausted, never panics for want of memory.
	Alloc(n, align int64) unsafe.Pointer

	// Free chunk back to arena. `ptr` must have been obtained from a
	// previous Alloc of same size and alignment, and not already freed.
	Free(ptr unsafe.Pointer, n, align int64)

	// Realloc chunk to a new size. If old-size and new-size fall on
	// the same slab, `ptr` is returned unchanged.
	Realloc(ptr unsafe.Pointer, oldn, newn, align int64) unsafe.Pointer

	// Info of memory accounting for this instance.
	Info() (capacity, heap, alloc, overhead int64)

	// Utilization map of slab-size and its utilization.
	Utilization() ([]int, []float64)
}
