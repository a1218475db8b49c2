package malloc

import "fmt"
import "sync"
import "unsafe"

import "github.com/bnclabs/gomalloc/lib"
import "github.com/bnclabs/gomalloc/sys"

// bin holds the free blocks of one size class, an intrusive list
// threaded through the freed memory itself.
type bin struct {
	blocks lib.List
}

// Arena is an independent allocation domain owning a set of extents
// organized into one bin per size class. A single mutex serializes
// access to bins and the extent set, contention is mitigated by
// running several arenas and by the thread cache front end, not by
// finer locks.
type Arena struct {
	id      int64
	mu      sync.Mutex
	classes []sizeclass
	sizes   []int64
	bins    []bin
	extents lib.List
	spares  []uintptr // per class fully-free spare extent, 0 if none
	pool    *nodepool // extent records
	emap    *extentmap
	pgsize  int64

	// policy
	extminblocks int64

	// statistics, all under mu
	heap      int64 // bytes mapped into payload extents
	allocated int64 // bytes handed out to callers
	ncarves   int64
	nreleases int64

	logprefix string
}

func newarena(
	id int64, classes []sizeclass, sizes []int64,
	emap *extentmap, extminblocks int64) *Arena {

	arena := &Arena{
		id: id, classes: classes, sizes: sizes,
		bins:   make([]bin, len(classes)),
		spares: make([]uintptr, len(classes)),
		pool:   newnodepool(extentsize),
		emap:   emap,
		pgsize: sys.Pagesize(),
		// policy
		extminblocks: extminblocks,
		logprefix:    fmt.Sprintf("ARNA [%d]", id),
	}
	return arena
}

//---- operations

// allocblock pop a free block of this class, carving a fresh extent
// when the bin is empty. Only error is api.ErrorOutofmemory.
func (arena *Arena) allocblock(cid int64) (unsafe.Pointer, error) {
	arena.mu.Lock()
	defer arena.mu.Unlock()
	return arena.popblock(cid)
}

// allocbatch pop up to len(ptrs) blocks in one locked operation,
// carving at most one extent. Returns the number popped, amortizes
// the lock cost for thread cache refills.
func (arena *Arena) allocbatch(cid int64, ptrs []uintptr) (int, error) {
	arena.mu.Lock()
	defer arena.mu.Unlock()

	n := 0
	for n < len(ptrs) {
		if arena.bins[cid].blocks.Len() == 0 && n > 0 {
			break // one carve per batch is plenty
		}
		ptr, err := arena.popblock(cid)
		if err != nil {
			if n > 0 {
				break
			}
			return 0, err
		}
		ptrs[n] = uintptr(ptr)
		n++
	}
	return n, nil
}

// freeblock push a block back onto its bin, LIFO to favour cache
// reuse of recently touched memory.
func (arena *Arena) freeblock(ptr unsafe.Pointer, cid int64, ext *extent) {
	arena.mu.Lock()
	defer arena.mu.Unlock()
	arena.pushblock(ptr, cid, ext)
}

// freebatch return a batch of blocks in one locked operation, the
// thread cache flush path. Every block must belong to this arena.
func (arena *Arena) freebatch(cid int64, ptrs []uintptr) {
	arena.mu.Lock()
	defer arena.mu.Unlock()

	for _, p := range ptrs {
		ext := arena.emap.lookup(p)
		if ext == nil {
			fatalinvalidfree(p)
			continue
		}
		arena.pushblock(pointerat(p), cid, ext)
	}
}

// purge release every fully free extent, spares included. Returns the
// number of extents released.
func (arena *Arena) purge() int64 {
	arena.mu.Lock()
	defer arena.mu.Unlock()

	victims := make([]*extent, 0, 8)
	next := arena.extents.Iterate()
	for n := next(); n != nil; n = next() {
		ext := extentat(n.Ptr())
		if ext.nfree == ext.nblocks {
			victims = append(victims, ext)
		}
	}
	for _, ext := range victims {
		arena.releaseextent(ext)
	}
	return int64(len(victims))
}

//---- local functions, caller holds mu.

func (arena *Arena) popblock(cid int64) (unsafe.Pointer, error) {
	bin := &arena.bins[cid]
	if bin.blocks.Len() == 0 {
		if err := arena.carveextent(cid); err != nil {
			return nil, err
		}
	}
	node := bin.blocks.Pop()
	ptr := node.Ptr()
	ext := arena.emap.lookup(uintptr(ptr))
	ext.nfree--
	if arena.spares[cid] == ext.addr() {
		arena.spares[cid] = 0
	}
	arena.allocated += arena.sizes[cid]
	initblock(uintptr(ptr), arena.sizes[cid])
	return ptr, nil
}

func (arena *Arena) pushblock(ptr unsafe.Pointer, cid int64, ext *extent) {
	arena.bins[cid].blocks.Pushhead(lib.Nodeat(ptr))
	ext.nfree++
	arena.allocated -= arena.sizes[cid]
	if ext.nfree == ext.nblocks {
		arena.mayberelease(ext)
	}
}

// carveextent map a fresh extent sized for at least extminblocks
// blocks of this class, register it, subdivide it into the bin.
func (arena *Arena) carveextent(cid int64) error {
	bsize := arena.sizes[cid]
	size := lib.Alignup(arena.extminblocks*bsize, arena.pgsize)
	nblocks := size / bsize // page rounding may fit a few more
	pages := size / arena.pgsize

	rng, err := sys.Mappages(pages)
	if err != nil {
		return err
	}
	nptr, err := arena.pool.allocnode()
	if err != nil {
		sys.Unmappages(rng)
		return err
	}
	ext := extentat(nptr)
	ext.base, ext.pages = rng.Base, pages
	ext.class, ext.bsize = cid, bsize
	ext.nblocks, ext.nfree = nblocks, nblocks
	ext.arenaid = arena.id

	if err := arena.emap.register(ext); err != nil {
		// overlapping registration, an internal bug. the map has
		// rolled this call back already.
		errorf("%v register extent %x: %v\n", arena.logprefix, rng.Base, err)
		arena.pool.freenode(nptr)
		sys.Unmappages(rng)
		return err
	}

	bin := &arena.bins[cid]
	for i := nblocks - 1; i >= 0; i-- {
		bin.blocks.Pushhead(lib.Nodeat(pointerat(ext.blockat(i))))
	}
	arena.extents.Pushhead(&ext.node)
	arena.heap += size
	arena.ncarves++
	debugf("%v carved extent %x pages %v class %v blocks %v\n",
		arena.logprefix, rng.Base, pages, cid, nblocks)
	return nil
}

// mayberelease deferred release policy, an arena keeps one fully free
// extent per class as a spare against alloc/free thrash, the second
// fully free extent goes back to the OS.
func (arena *Arena) mayberelease(ext *extent) {
	if arena.spares[ext.class] == 0 {
		arena.spares[ext.class] = ext.addr()
		return
	}
	arena.releaseextent(ext)
}

// releaseextent unlink every block of the extent from its bin,
// unregister the pages and unmap them.
func (arena *Arena) releaseextent(ext *extent) {
	if ext.nfree != ext.nblocks {
		panicerr("releasing extent %x with %v live blocks",
			ext.base, ext.nblocks-ext.nfree)
	}
	bin := &arena.bins[ext.class]
	for i := int64(0); i < ext.nblocks; i++ {
		bin.blocks.Remove(lib.Nodeat(pointerat(ext.blockat(i))))
	}
	arena.extents.Remove(&ext.node)
	arena.emap.unregister(ext)
	if arena.spares[ext.class] == ext.addr() {
		arena.spares[ext.class] = 0
	}
	// read everything needed from the record before freenode recycles it.
	rng, class := ext.pagerange(), ext.class
	arena.heap -= ext.size()
	arena.nreleases++
	arena.pool.freenode(unsafe.Pointer(ext))
	sys.Unmappages(rng)
	debugf("%v released extent %x pages %v class %v\n",
		arena.logprefix, rng.Base, rng.Pages, class)
}

//---- statistics and maintenance

// info memory accounting for this arena.
func (arena *Arena) info() (capacity, heap, alloc, overhead int64) {
	arena.mu.Lock()
	defer arena.mu.Unlock()
	return arena.heap, arena.heap, arena.allocated, arena.pool.overhead()
}

// utilization per class heap and allocated bytes.
func (arena *Arena) utilization(heaps, allocs []int64) {
	arena.mu.Lock()
	defer arena.mu.Unlock()

	next := arena.extents.Iterate()
	for n := next(); n != nil; n = next() {
		ext := extentat(n.Ptr())
		heaps[ext.class] += ext.nblocks * ext.bsize
		allocs[ext.class] += (ext.nblocks - ext.nfree) * ext.bsize
	}
}

// validate bin counts against extent bookkeeping, panics on mismatch.
func (arena *Arena) validate() {
	arena.mu.Lock()
	defer arena.mu.Unlock()

	nfrees := make([]int64, len(arena.classes))
	allocated := int64(0)
	next := arena.extents.Iterate()
	for n := next(); n != nil; n = next() {
		ext := extentat(n.Ptr())
		nfrees[ext.class] += ext.nfree
		allocated += (ext.nblocks - ext.nfree) * ext.bsize
	}
	for cid := range arena.bins {
		if x, y := arena.bins[cid].blocks.Len(), nfrees[cid]; x != y {
			panicerr("%v class %v bin %v blocks, extents say %v",
				arena.logprefix, cid, x, y)
		}
	}
	if allocated != arena.allocated {
		panicerr("%v allocated %v, extents say %v",
			arena.logprefix, arena.allocated, allocated)
	}
}

// release every extent and all metadata, the arena is dead after
// this. Outstanding pointers into the arena become invalid.
func (arena *Arena) release() {
	arena.mu.Lock()
	defer arena.mu.Unlock()

	next := arena.extents.Drain()
	for n := next(); n != nil; n = next() {
		ext := extentat(n.Ptr())
		arena.emap.unregister(ext)
		sys.Unmappages(ext.pagerange())
	}
	for cid := range arena.bins {
		arena.bins[cid].blocks.Init()
		arena.spares[cid] = 0
	}
	arena.pool.release()
	arena.heap, arena.allocated = 0, 0
}
