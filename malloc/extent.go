package malloc

import "unsafe"

import "github.com/bnclabs/gomalloc/lib"
import "github.com/bnclabs/gomalloc/sys"

// extent is a contiguous run of pages owned by exactly one arena and
// subdivided into blocks of exactly one size class for its entire
// lifetime. Records live in the owning arena's nodepool, the link
// header threads them into the arena's extent list and must stay the
// first field.
type extent struct {
	node    lib.Node
	base    uintptr
	pages   int64
	class   int64 // size class id, immutable once carved
	bsize   int64 // block size of that class
	nblocks int64
	nfree   int64 // blocks sitting in the arena bin
	arenaid int64
}

var extentsize = int64(unsafe.Sizeof(extent{}))

func extentat(ptr unsafe.Pointer) *extent {
	return (*extent)(ptr)
}

func (ext *extent) addr() uintptr {
	return uintptr(unsafe.Pointer(ext))
}

func (ext *extent) size() int64 {
	return ext.pages * sys.Pagesize()
}

func (ext *extent) pagerange() sys.Pagerange {
	return sys.Pagerange{Base: ext.base, Pages: ext.pages}
}

func (ext *extent) blockat(i int64) uintptr {
	return ext.base + uintptr(i*ext.bsize)
}
