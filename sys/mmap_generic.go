//go:build !unix

package sys

import "os"
import "sync"
import "unsafe"

// Last resort backend for platforms without anonymous mmap. Carves
// page-aligned ranges out of Go heap slabs and pins them in a registry
// so the garbage collector leaves them alone. Unmap forgets the slab,
// the memory itself goes back only when the process exits.

var slabmu sync.Mutex
var slabs = map[uintptr][]byte{}

func mappages(size int64) (uintptr, error) {
	pg := uintptr(Pagesize())
	buf := make([]byte, size+int64(pg))
	base := uintptr(unsafe.Pointer(&buf[0]))
	if off := base & (pg - 1); off != 0 {
		base += pg - off
	}
	slabmu.Lock()
	slabs[base] = buf
	slabmu.Unlock()
	return base, nil
}

func unmappages(base uintptr, size int64) {
	slabmu.Lock()
	delete(slabs, base)
	slabmu.Unlock()
}

// Stderr write diagnostics without any formatting machinery.
func Stderr(msg []byte) {
	os.Stderr.Write(msg)
}
