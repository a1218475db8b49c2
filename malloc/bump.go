package malloc

import "unsafe"

import "github.com/bnclabs/gomalloc/lib"
import "github.com/bnclabs/gomalloc/sys"

// Minimum number of records a metadata chunk should hold before page
// rounding.
const nodesperchunk = int64(64)

// nodepool carves fixed sized metadata records, radix nodes and
// extent records, out of raw pages with a monotonic offset. Released
// records are recycled through an intrusive free list, pages go back
// to the OS only in bulk on release(). The pool never calls into the
// public allocation path, metadata growth cannot recurse into a
// failing allocator. Callers serialize access with the lock of the
// structure the pool serves.
type nodepool struct {
	recsize  int64 // fixed record size, Alignment rounded
	chunkpgs int64 // pages mapped per chunk
	cur      sys.Pagerange
	off      int64
	chunks   lib.List // chunk headers, living inside their own pages
	freelist lib.List // recycled records
	nrecs    int64    // records handed out, dead or alive
}

func newnodepool(recsize int64) *nodepool {
	if recsize < lib.Nodesize {
		panicerr("nodepool record size %v below %v", recsize, lib.Nodesize)
	}
	pool := &nodepool{recsize: lib.Alignup(recsize, Alignment)}
	chunksize := lib.Alignup(chunkheadsize()+nodesperchunk*pool.recsize, sys.Pagesize())
	pool.chunkpgs = chunksize / sys.Pagesize()
	return pool
}

// header reserved at the base of every chunk for the chunk list link.
func chunkheadsize() int64 {
	return lib.Alignup(lib.Nodesize, Alignment)
}

// allocnode return a zeroed record, recycling released slots first,
// carving from the current chunk otherwise. Only error is
// api.ErrorOutofmemory from the page provider.
func (pool *nodepool) allocnode() (unsafe.Pointer, error) {
	if n := pool.freelist.Pop(); n != nil {
		ptr := n.Ptr()
		memclr(ptr, pool.recsize)
		pool.nrecs++
		return ptr, nil
	}
	if pool.cur.Base == 0 || pool.off+pool.recsize > pool.cur.Size() {
		chunk, err := sys.Mappages(pool.chunkpgs)
		if err != nil {
			return nil, err
		}
		pool.chunks.Pushhead(lib.Nodeat(pointerat(chunk.Base)))
		pool.cur, pool.off = chunk, chunkheadsize()
	}
	ptr := pool.cur.Base + uintptr(pool.off)
	pool.off += pool.recsize
	pool.nrecs++
	// fresh pages come back zero filled from the provider.
	return pointerat(ptr), nil
}

// freenode recycle a record slot for a later allocnode. The backing
// page stays mapped.
func (pool *nodepool) freenode(ptr unsafe.Pointer) {
	pool.freelist.Pushhead(lib.Nodeat(ptr))
	pool.nrecs--
}

// overhead bytes of raw memory held by this pool.
func (pool *nodepool) overhead() int64 {
	return pool.chunks.Len() * pool.chunkpgs * sys.Pagesize()
}

// release unmap every chunk in bulk. All records carved from this
// pool die with it.
func (pool *nodepool) release() {
	next := pool.chunks.Drain()
	for n := next(); n != nil; n = next() {
		rng := sys.Pagerange{Base: uintptr(n.Ptr()), Pages: pool.chunkpgs}
		sys.Unmappages(rng)
	}
	pool.freelist.Init()
	pool.cur, pool.off, pool.nrecs = sys.Pagerange{}, 0, 0
}
