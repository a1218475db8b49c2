package malloc

import "sync"

import "github.com/bnclabs/gomalloc/lib"

// extentmap is the process wide registry resolving any address inside
// a live extent back to that extent, and from there to the owning
// arena. Built entirely on the radix tree, one entry per page, never
// amortizing several pages into one entry so that registration needs
// zero auxiliary bookkeeping. The RWMutex guards the tree and the
// nodepool behind it, readers never observe a partially linked tree.
type extentmap struct {
	rw     sync.RWMutex
	tree   *radixtree
	pgsize int64
}

func newextentmap(pgsize int64) *extentmap {
	return &extentmap{tree: newradixtree(), pgsize: pgsize}
}

// register every page of the extent under its page aligned address.
// If a later page is already present, an overlapping extent and
// therefore an internal bug, pages registered by this call are rolled
// back before the error returns, the map stays consistent.
func (emap *extentmap) register(ext *extent) error {
	emap.rw.Lock()
	defer emap.rw.Unlock()

	pg := uintptr(emap.pgsize)
	for i := int64(0); i < ext.pages; i++ {
		addr := ext.base + uintptr(i)*pg
		if err := emap.tree.insert(addr, ext.addr()); err != nil {
			for j := int64(0); j < i; j++ {
				emap.tree.remove(ext.base + uintptr(j)*pg)
			}
			return err
		}
	}
	return nil
}

// unregister every page of the extent.
func (emap *extentmap) unregister(ext *extent) {
	emap.rw.Lock()
	defer emap.rw.Unlock()

	pg := uintptr(emap.pgsize)
	for i := int64(0); i < ext.pages; i++ {
		emap.tree.remove(ext.base + uintptr(i)*pg)
	}
}

// lookup the extent owning addr, nil for addresses outside any
// registered page. Insensitive to the low bits of addr within the
// page.
func (emap *extentmap) lookup(addr uintptr) *extent {
	emap.rw.RLock()
	defer emap.rw.RUnlock()

	value, ok := emap.tree.lookup(lib.Aligndown(addr, emap.pgsize))
	if !ok {
		return nil
	}
	return extentat(pointerat(value))
}

// registered number of pages currently in the map.
func (emap *extentmap) registered() int64 {
	emap.rw.RLock()
	defer emap.rw.RUnlock()
	return emap.tree.count
}

// overhead metadata bytes held by the map.
func (emap *extentmap) overhead() int64 {
	emap.rw.RLock()
	defer emap.rw.RUnlock()
	return emap.tree.pool.overhead()
}

// release the map's metadata in bulk.
func (emap *extentmap) release() {
	emap.rw.Lock()
	defer emap.rw.Unlock()
	emap.tree.release()
}
