package malloc

import "github.com/bnclabs/gomalloc/lib"

type tier byte

const (
	tiersmall tier = iota + 1
	tierlarge
	tierhuge
)

// sizeclass immutable descriptor of one canonical block size. The
// table of all classes is built once at initialization and never
// mutated.
type sizeclass struct {
	id   int64
	size int64
	tier tier
}

// sizeclasses generate the ascending table of block sizes between
// minblock and maxblock. Small tier steps by Quantum, large tier
// grows by the utilization rule, huge tier doubles on page rounded
// sizes. Sizes are strictly increasing, which gives the monotonicity
// and idempotence properties of the class lookup for free.
func sizeclasses(minblock, maxblock, pgsize int64) []sizeclass {
	sizes := make([]int64, 0, 64)

	size := minblock
	for ; size <= maxblock && size <= Smallmax; size += Quantum {
		sizes = append(sizes, size)
	}
	for size = nextlarge(sizes[len(sizes)-1]); size <= maxblock && size <= Largemax; size = nextlarge(size) {
		sizes = append(sizes, size)
	}
	for size = lib.Alignup(sizes[len(sizes)-1]*2, pgsize); size < maxblock; size = lib.Alignup(size*2, pgsize) {
		sizes = append(sizes, size)
	}
	if last := sizes[len(sizes)-1]; last < maxblock {
		sizes = append(sizes, maxblock)
	}

	classes := make([]sizeclass, len(sizes))
	for i, sz := range sizes {
		t := tiersmall
		switch {
		case sz > Largemax:
			t = tierhuge
		case sz > Smallmax:
			t = tierlarge
		}
		classes[i] = sizeclass{id: int64(i), size: sz, tier: t}
	}
	return classes
}

// nextlarge pick the next large tier size so that the worst case
// utilization within the step stays near MEMUtilization.
func nextlarge(from int64) int64 {
	addby := int64(float64(from) * (1.0 - MEMUtilization))
	if addby <= 64 {
		addby = 64
	} else if addby&0x3f != 0 {
		addby = (addby >> 6) << 6
	}
	return from + addby
}

// suitableclass binary search for the smallest class whose size holds
// `size` bytes. Caller guarantees size does not exceed the last
// class.
func suitableclass(sizes []int64, size int64) int64 {
	off := int64(0)
	for {
		switch len(sizes) {
		case 1:
			return off

		case 2:
			if size <= sizes[0] {
				return off
			} else if size <= sizes[1] {
				return off + 1
			}
			panic("size greater than configured")

		default:
			pivot := len(sizes) / 2
			if sizes[pivot] < size {
				off += int64(pivot + 1)
				sizes = sizes[pivot+1:]
			} else {
				sizes = sizes[0 : pivot+1]
			}
		}
	}
}

// classforalign canonical class for a (size, alignment) request.
// Alignment requests wider than the natural class alignment round up
// to the next class whose size is a multiple of the alignment, blocks
// of such classes are packed at aligned offsets from a page aligned
// base. Returns false when no class can satisfy the request, the
// caller's no-memory answer.
func classforalign(classes []sizeclass, sizes []int64, size, align int64) (int64, bool) {
	if size <= 0 {
		panic("malloc: size should be positive")
	}
	if align == 0 {
		align = Alignment
	}
	if !lib.Ispowerof2(align) {
		panic("malloc: align should be a power of two")
	}
	if size > sizes[len(sizes)-1] {
		return 0, false
	}
	cid := suitableclass(sizes, size)
	if align <= Alignment {
		return cid, true
	}
	for ; cid < int64(len(classes)); cid++ {
		if classes[cid].size%align == 0 {
			return cid, true
		}
	}
	return 0, false
}
