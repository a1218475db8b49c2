package sys

import "os"
import "sync"
import "unsafe"

import "github.com/bnclabs/gomalloc/api"

var pgonce sync.Once
var pgsize int64

// Pagesize of the platform, queried once from the OS and cached,
// constant for the lifetime of the process.
func Pagesize() int64 {
	pgonce.Do(func() {
		pgsize = int64(os.Getpagesize())
	})
	return pgsize
}

// Pagerange is a page-aligned run of raw memory obtained from the OS.
type Pagerange struct {
	Base  uintptr
	Pages int64
}

// Size of the range in bytes.
func (r Pagerange) Size() int64 {
	return r.Pages * Pagesize()
}

// End address, one byte past the range.
func (r Pagerange) End() uintptr {
	return r.Base + uintptr(r.Size())
}

// Mappages maps `count` fresh pages from the OS. Returned range is
// page-aligned and zero filled. Returns api.ErrorOutofmemory if the
// OS cannot satisfy the request, never panics for want of memory.
func Mappages(count int64) (Pagerange, error) {
	if count < 1 {
		panic("sys.Mappages(): count should be >= 1")
	}
	base, err := mappages(count * Pagesize())
	if err != nil {
		return Pagerange{}, api.ErrorOutofmemory
	}
	return Pagerange{Base: base, Pages: count}, nil
}

// Unmappages return a range obtained from Mappages back to the OS.
// The range must not be touched after this call.
func Unmappages(r Pagerange) {
	if r.Base == 0 || r.Pages == 0 {
		return
	}
	unmappages(r.Base, r.Size())
}

// Asbytes alias the range as a byte slice. The slice must not outlive
// the mapping.
func Asbytes(r Pagerange) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(r.Base)), r.Size())
}
