//go:build unix

package sys

import "unsafe"

import "golang.org/x/sys/unix"

// mappages via anonymous private mapping. The kernel guarantees the
// pages come back zero filled.
func mappages(size int64) (uintptr, error) {
	prot := unix.PROT_READ | unix.PROT_WRITE
	flags := unix.MAP_PRIVATE | unix.MAP_ANON
	data, err := unix.Mmap(-1, 0, int(size), prot, flags)
	if err != nil {
		return 0, err
	}
	return uintptr(unsafe.Pointer(&data[0])), nil
}

func unmappages(base uintptr, size int64) {
	data := unsafe.Slice((*byte)(unsafe.Pointer(base)), size)
	unix.Munmap(data)
}

// Stderr write diagnostics without touching the Go heap or any
// formatting machinery, safe to call while the allocator is failing.
func Stderr(msg []byte) {
	unix.Write(2, msg)
}
