package malloc

import "unsafe"

// pointerat treat a raw address as a pointer. Valid only for
// addresses inside mapped extents or metadata chunks, memory the Go
// runtime neither scans nor moves.
func pointerat(addr uintptr) unsafe.Pointer {
	return unsafe.Pointer(addr)
}

func memclr(ptr unsafe.Pointer, size int64) {
	buf := unsafe.Slice((*byte)(ptr), size)
	for i := range buf {
		buf[i] = 0
	}
}

func memcopy(dst, src unsafe.Pointer, size int64) {
	to := unsafe.Slice((*byte)(dst), size)
	from := unsafe.Slice((*byte)(src), size)
	copy(to, from)
}
