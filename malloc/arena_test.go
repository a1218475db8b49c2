package malloc

import "testing"
import "unsafe"

import s "github.com/bnclabs/gosettings"

func newtestmalloc(tb testing.TB, setts s.Settings) *Malloc {
	tb.Helper()
	base := s.Settings{"arenas": int64(1), "extent.minblocks": int64(32)}
	return New("test", make(s.Settings).Mixin(base, setts))
}

func TestArenaAllocfree(t *testing.T) {
	m := newtestmalloc(t, nil)
	defer m.Release()

	arena := m.arenas[0]
	cid, _ := m.class(64, 0)
	ptr, err := arena.allocblock(cid)
	if err != nil {
		t.Fatalf("unexpected %v", err)
	} else if ptr == nil {
		t.Fatalf("expected a block")
	} else if uintptr(ptr)%uintptr(Alignment) != 0 {
		t.Errorf("expected %v aligned block, got %p", Alignment, ptr)
	}
	ext := m.emap.lookup(uintptr(ptr))
	if ext == nil {
		t.Fatalf("expected registered extent for block")
	} else if ext.arenaid != arena.id {
		t.Errorf("expected arena %v, got %v", arena.id, ext.arenaid)
	} else if ext.class != cid {
		t.Errorf("expected class %v, got %v", cid, ext.class)
	}
	arena.freeblock(ptr, cid, ext)
	m.Validate()
}

func TestArenaLIFO(t *testing.T) {
	m := newtestmalloc(t, nil)
	defer m.Release()

	arena := m.arenas[0]
	cid, _ := m.class(64, 0)
	ptr, err := arena.allocblock(cid)
	if err != nil {
		t.Fatalf("unexpected %v", err)
	}
	arena.freeblock(ptr, cid, m.emap.lookup(uintptr(ptr)))
	again, err := arena.allocblock(cid)
	if err != nil {
		t.Fatalf("unexpected %v", err)
	} else if again != ptr {
		t.Errorf("expected LIFO reuse of %p, got %p", ptr, again)
	}
	arena.freeblock(again, cid, m.emap.lookup(uintptr(again)))
}

func TestArenaCarve(t *testing.T) {
	m := newtestmalloc(t, nil)
	defer m.Release()

	arena := m.arenas[0]
	cid, _ := m.class(64, 0)
	perext := arena.bins[cid].blocks.Len() // zero before first carve
	if perext != 0 {
		t.Fatalf("expected empty bin, got %v", perext)
	}
	ptrs := make([]unsafe.Pointer, 0, 128)
	ptr, _ := arena.allocblock(cid)
	ptrs = append(ptrs, ptr)
	perext = arena.bins[cid].blocks.Len() + 1
	if arena.ncarves != 1 {
		t.Errorf("expected %v, got %v", 1, arena.ncarves)
	}
	// drain the first extent and force a second carve.
	for i := int64(1); i <= perext; i++ {
		ptr, err := arena.allocblock(cid)
		if err != nil {
			t.Fatalf("unexpected %v", err)
		}
		ptrs = append(ptrs, ptr)
	}
	if arena.ncarves != 2 {
		t.Errorf("expected %v, got %v", 2, arena.ncarves)
	}
	for _, ptr := range ptrs {
		arena.freeblock(ptr, cid, m.emap.lookup(uintptr(ptr)))
	}
	m.Validate()
}

func TestArenaReleasepolicy(t *testing.T) {
	m := newtestmalloc(t, nil)
	defer m.Release()

	arena := m.arenas[0]
	cid, _ := m.class(64, 0)
	ptr, _ := arena.allocblock(cid)
	perext := arena.bins[cid].blocks.Len() + 1
	ptrs := []unsafe.Pointer{ptr}
	// three extents worth of live blocks.
	for i := int64(1); i < 3*perext; i++ {
		ptr, err := arena.allocblock(cid)
		if err != nil {
			t.Fatalf("unexpected %v", err)
		}
		ptrs = append(ptrs, ptr)
	}
	if arena.ncarves != 3 {
		t.Fatalf("expected %v, got %v", 3, arena.ncarves)
	}
	for _, ptr := range ptrs {
		arena.freeblock(ptr, cid, m.emap.lookup(uintptr(ptr)))
	}
	// one fully free extent stays behind as spare, the others went
	// back to the OS.
	if arena.nreleases != 2 {
		t.Errorf("expected %v, got %v", 2, arena.nreleases)
	} else if arena.extents.Len() != 1 {
		t.Errorf("expected %v, got %v", 1, arena.extents.Len())
	}
	m.Validate()
	if n := m.Purge(); n != 1 {
		t.Errorf("expected %v, got %v", 1, n)
	}
	if m.emap.registered() != 0 {
		t.Errorf("expected %v, got %v", 0, m.emap.registered())
	}
}

func TestArenaBatch(t *testing.T) {
	m := newtestmalloc(t, nil)
	defer m.Release()

	arena := m.arenas[0]
	cid, _ := m.class(128, 0)
	ptrs := make([]uintptr, 16)
	n, err := arena.allocbatch(cid, ptrs)
	if err != nil {
		t.Fatalf("unexpected %v", err)
	} else if n != 16 {
		t.Fatalf("expected %v, got %v", 16, n)
	}
	seen := map[uintptr]bool{}
	for _, p := range ptrs[:n] {
		if p == 0 || seen[p] {
			t.Fatalf("bad batch pointer %x", p)
		}
		seen[p] = true
	}
	arena.freebatch(cid, ptrs[:n])
	m.Validate()
	_, _, alloc, _ := arena.info()
	if alloc != 0 {
		t.Errorf("expected %v, got %v", 0, alloc)
	}
}
