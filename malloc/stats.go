package malloc

import humanize "github.com/dustin/go-humanize"

// Slabs allocatable block sizes, ascending. Implement api.Mallocer{}
// interface.
func (m *Malloc) Slabs() []int64 {
	sizes := make([]int64, len(m.sizes))
	copy(sizes, m.sizes)
	return sizes
}

// Info aggregate memory accounting across arenas. Implement
// api.Mallocer{} interface.
func (m *Malloc) Info() (capacity, heap, alloc, overhead int64) {
	overhead += m.emap.overhead()
	for _, arena := range m.arenas {
		c, h, a, o := arena.info()
		capacity, heap, alloc, overhead = capacity+c, heap+h, alloc+a, overhead+o
	}
	return
}

// Utilization per block size, percent of carved memory handed out.
// Implement api.Mallocer{} interface.
func (m *Malloc) Utilization() ([]int, []float64) {
	heaps := make([]int64, len(m.classes))
	allocs := make([]int64, len(m.classes))
	for _, arena := range m.arenas {
		arena.utilization(heaps, allocs)
	}
	ss, zs := make([]int, 0, len(m.classes)), make([]float64, 0, len(m.classes))
	for cid, heap := range heaps {
		if heap > 0 {
			ss = append(ss, int(m.sizes[cid]))
			zs = append(zs, (float64(allocs[cid])/float64(heap))*100)
		}
	}
	return ss, zs
}

// Validate arena bookkeeping, panics on a broken invariant. Meant for
// tests and debugging sessions, takes every arena lock.
func (m *Malloc) Validate() {
	for _, arena := range m.arenas {
		arena.validate()
	}
}

// Purge release every fully free extent across arenas, spares
// included. Returns the number of extents released.
func (m *Malloc) Purge() int64 {
	count := int64(0)
	for _, arena := range m.arenas {
		count += arena.purge()
	}
	return count
}

// Release every arena and the extent map metadata. Outstanding
// pointers become invalid, only test harnesses should call this,
// normal process lifetime needs no teardown.
func (m *Malloc) Release() {
	for _, arena := range m.arenas {
		arena.release()
	}
	m.emap.release()
	infof("%v released\n", m.logprefix)
}

func (m *Malloc) logsettings() {
	infof("%v settings minblock: %v maxblock: %v arenas: %v tcache: %v\n",
		m.logprefix, humanize.Bytes(uint64(m.minblock)),
		humanize.Bytes(uint64(m.maxblock)), m.narenas, m.tcachecap)
	_, heap, alloc, overhead := m.Info()
	infof("%v heap: %v alloc: %v overhead: %v\n",
		m.logprefix, humanize.Bytes(uint64(heap)),
		humanize.Bytes(uint64(alloc)), humanize.Bytes(uint64(overhead)))
}
