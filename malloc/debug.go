//go:build debug

package malloc

import "unsafe"

// initblock scrub a block as it leaves the arena bin. Debug builds
// paint the block 0xff so that reads of uninitialized memory stand
// out.
func initblock(block uintptr, size int64) {
	buf := unsafe.Slice((*byte)(pointerat(block)), size)
	for i := range buf {
		buf[i] = 0xff
	}
}
