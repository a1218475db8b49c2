//go:build !debug

package malloc

// initblock scrub a block as it leaves the arena bin, stale free-list
// links included. Production builds hand out zeroed blocks.
func initblock(block uintptr, size int64) {
	memclr(pointerat(block), size)
}
