package lib

// Ispowerof2 check whether v is a non-zero power of two.
func Ispowerof2(v int64) bool {
	return v > 0 && (v&(v-1)) == 0
}

// Alignup round v up to the next multiple of align, align should be a
// power of two.
func Alignup(v, align int64) int64 {
	return (v + align - 1) &^ (align - 1)
}

// Aligndown round address down to the previous multiple of align,
// align should be a power of two.
func Aligndown(addr uintptr, align int64) uintptr {
	return addr &^ uintptr(align-1)
}
