package malloc

import "fmt"
import "runtime"
import "sync"
import "sync/atomic"
import "unsafe"

import "github.com/bnclabs/gomalloc/api"
import "github.com/bnclabs/gomalloc/sys"
import s "github.com/bnclabs/gosettings"

// Malloc is the allocator facade, dispatching allocation requests
// through size class lookup to an arena, and free requests through
// the extent map back to the owning arena. Construct with New or
// Init, all methods are safe for concurrent use. For the lock free
// fast path hand each worker its own TCache via Newtcache.
type Malloc struct {
	name      string
	classes   []sizeclass
	sizes     []int64
	arenas    []*Arena
	emap      *extentmap
	rotor     int64
	setts     s.Settings
	logprefix string

	// settings
	minblock     int64
	maxblock     int64
	narenas      int64
	tcachecap    int64
	extminblocks int64
}

var _ api.Mallocer = &Malloc{}

var initonce sync.Once
var global *Malloc

// Init construct the process wide allocator instance, guarded by a
// once primitive. The first call performs the one-time setup required
// before any allocation, subsequent calls return the same instance
// and ignore their argument. There is no teardown.
func Init(setts s.Settings) *Malloc {
	initonce.Do(func() {
		global = New("global", setts)
	})
	return global
}

// Default the instance constructed by Init, nil before Init.
func Default() *Malloc {
	return global
}

// New construct an independent allocator instance.
func New(name string, setts s.Settings) *Malloc {
	m := &Malloc{name: name, logprefix: fmt.Sprintf("MALC [%s]", name)}
	setts = make(s.Settings).Mixin(Defaultsettings(), setts)
	m.readsettings(setts)
	m.setts = setts
	if procs := int64(runtime.GOMAXPROCS(0)); m.narenas > procs {
		warnf("%v %v arenas for %v procs\n", m.logprefix, m.narenas, procs)
	}

	pgsize := sys.Pagesize()
	m.classes = sizeclasses(m.minblock, m.maxblock, pgsize)
	m.sizes = make([]int64, len(m.classes))
	for i, class := range m.classes {
		m.sizes[i] = class.size
	}
	m.emap = newextentmap(pgsize)
	m.arenas = make([]*Arena, m.narenas)
	for i := int64(0); i < m.narenas; i++ {
		m.arenas[i] = newarena(i, m.classes, m.sizes, m.emap, m.extminblocks)
	}

	infof("%v started with %v arenas, %v classes, pagesize %v\n",
		m.logprefix, m.narenas, len(m.classes), pgsize)
	m.logsettings()
	return m
}

//---- operations

// Alloc a block of `n` bytes aligned at `align`, align 0 means the
// default Alignment. Requests rotate across the configured arenas so
// facade callers spread their lock traffic. Returns nil when memory is
// exhausted or the request exceeds maxblock, never panics for want of
// memory and never allocates to report the failure.
func (m *Malloc) Alloc(n, align int64) unsafe.Pointer {
	cid, ok := m.class(n, align)
	if !ok {
		return nil
	}
	ptr, err := m.pickarena().allocblock(cid)
	if err != nil {
		return nil
	}
	return ptr
}

// Free a block obtained from Alloc with the same size and alignment.
// Freeing an address this allocator does not own is a caller contract
// violation and fatal, the process aborts with statically preallocated
// diagnostics rather than risk silent heap corruption.
func (m *Malloc) Free(ptr unsafe.Pointer, n, align int64) {
	if ptr == nil {
		panic("malloc.Free(): nil pointer")
	}
	cid, ok := m.class(n, align)
	if !ok {
		panic("malloc.Free(): no class for size, not from this allocator")
	}
	ext := m.emap.lookup(uintptr(ptr))
	if ext == nil {
		fatalinvalidfree(uintptr(ptr))
		return
	}
	if ext.class != cid {
		panic("gomalloc: free size does not match allocation class")
	}
	m.arenas[ext.arenaid].freeblock(ptr, cid, ext)
}

// Realloc grow or shrink a block. When the new size maps to the same
// class the pointer comes back unchanged. Otherwise a new block is
// allocated, min(oldn, newn) bytes copied and the old block freed.
// Returns nil, leaving the old block valid, when memory is exhausted.
func (m *Malloc) Realloc(ptr unsafe.Pointer, oldn, newn, align int64) unsafe.Pointer {
	if ptr == nil {
		return m.Alloc(newn, align)
	}
	oldcid, ok := m.class(oldn, align)
	if !ok {
		panic("malloc.Realloc(): no class for old size")
	}
	newcid, ok := m.class(newn, align)
	if !ok {
		return nil
	}
	if oldcid == newcid {
		return ptr
	}
	newptr := m.Alloc(newn, align)
	if newptr == nil {
		return nil
	}
	copyn := oldn
	if newn < copyn {
		copyn = newn
	}
	memcopy(newptr, ptr, copyn)
	m.Free(ptr, oldn, align)
	return newptr
}

// Pagesize of the platform, stable for process lifetime, exposed for
// external callers.
func (m *Malloc) Pagesize() int64 {
	return sys.Pagesize()
}

//---- local functions

// class canonical class for a request, the pgsize guard keeps
// alignment promises honest, block bases are only page aligned.
func (m *Malloc) class(n, align int64) (int64, bool) {
	if align > sys.Pagesize() {
		return 0, false
	}
	return classforalign(m.classes, m.sizes, n, align)
}

// pickarena rotate across arenas, advanced per facade allocation and
// per new thread cache. Workers spread out while each thread cache
// stays put on the arena it was handed.
func (m *Malloc) pickarena() *Arena {
	n := atomic.AddInt64(&m.rotor, 1)
	return m.arenas[(n-1)%m.narenas]
}
