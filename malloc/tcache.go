package malloc

import "unsafe"

// TCache is the lock free front end of the allocator, a bounded per
// class stack of blocks on loan from an arena. A TCache must be used
// by exactly one goroutine, it does no locking of its own, the only
// serialization it ever touches is the arena lock during batched
// refills and flushes. Blocks held here are not free for reuse by the
// arena until flushed back.
type TCache struct {
	m       *Malloc
	arena   *Arena
	cap     int64
	bins    [][]uintptr // per class stacks
	scratch []uintptr   // refill buffer
	stats   *sizestats  // requested sizes
}

// Newtcache hand out a thread cache bound to one of the arenas,
// chosen round robin. The caller owns it exclusively.
func (m *Malloc) Newtcache() *TCache {
	tc := &TCache{m: m, arena: m.pickarena(), cap: m.tcachecap}
	tc.bins = make([][]uintptr, len(m.classes))
	for i := range tc.bins {
		// one extra slot, the stack exceeds cap transiently during
		// Free before the overflow is flushed.
		tc.bins[i] = make([]uintptr, 0, tc.cap+1)
	}
	tc.scratch = make([]uintptr, tc.cap/2)
	tc.stats = newsizestats(m.sizes)
	return tc
}

// Alloc like Malloc.Alloc but served from the cache when possible.
// On a miss a batch of up to cap/2 blocks is pulled from the arena in
// one locked operation. Returns nil when memory is exhausted. Blocks
// served from the cache retain whatever the caller left in them.
func (tc *TCache) Alloc(n, align int64) unsafe.Pointer {
	cid, ok := tc.m.class(n, align)
	if !ok {
		return nil
	}
	bin := tc.bins[cid]
	if len(bin) == 0 {
		cnt, err := tc.arena.allocbatch(cid, tc.scratch)
		if err != nil {
			return nil
		}
		bin = append(bin, tc.scratch[:cnt]...)
	}
	ptr := bin[len(bin)-1]
	tc.bins[cid] = bin[:len(bin)-1]
	tc.stats.add(n, cid)
	return pointerat(ptr)
}

// Free push the block onto the cache. When the stack exceeds its
// capacity the overflow is flushed back to the arena bin in one
// locked operation, the count never exceeds capacity once Free
// returns. Blocks owned by a different arena bypass the cache and go
// straight back to their owner.
func (tc *TCache) Free(ptr unsafe.Pointer, n, align int64) {
	cid, ok := tc.m.class(n, align)
	if !ok {
		panic("tcache.Free(): no class for size, not from this allocator")
	}
	ext := tc.m.emap.lookup(uintptr(ptr))
	if ext == nil {
		fatalinvalidfree(uintptr(ptr))
		return
	}
	if ext.class != cid {
		panic("gomalloc: free size does not match allocation class")
	}
	if ext.arenaid != tc.arena.id {
		tc.m.arenas[ext.arenaid].freeblock(ptr, cid, ext)
		return
	}
	bin := append(tc.bins[cid], uintptr(ptr))
	if excess := int64(len(bin)) - tc.cap; excess > 0 {
		tc.arena.freebatch(cid, bin[:excess]) // oldest blocks first
		bin = bin[:copy(bin, bin[excess:])]
	}
	tc.bins[cid] = bin
}

// Flush return every cached block to the arena, one locked operation
// per class. The obligation before the arena may treat these blocks
// as free for reuse elsewhere.
func (tc *TCache) Flush() {
	for cid, bin := range tc.bins {
		if len(bin) > 0 {
			tc.arena.freebatch(int64(cid), bin)
			tc.bins[cid] = bin[:0]
		}
	}
}

// Cached number of blocks currently held for a class, testing and
// instrumentation.
func (tc *TCache) Cached(cid int64) int64 {
	return int64(len(tc.bins[cid]))
}

// Statistics over requested sizes seen by this cache, min, max, mean,
// rounding wastage and a cumulative histogram bucketed by the size
// class table.
func (tc *TCache) Statistics() map[string]interface{} {
	return tc.stats.fullstats()
}
