package malloc

import "testing"
import "unsafe"

import "github.com/bnclabs/gomalloc/sys"
import s "github.com/bnclabs/gosettings"

func TestInit(t *testing.T) {
	m := Init(nil)
	if m == nil {
		t.Fatalf("expected an instance")
	}
	if again := Init(nil); again != m {
		t.Errorf("expected %p, got %p", m, again)
	}
	if Default() != m {
		t.Errorf("expected %p, got %p", m, Default())
	}
}

func TestMallocAllocfree(t *testing.T) {
	m := newtestmalloc(t, nil)
	defer m.Release()

	ptr := m.Alloc(100, 0)
	if ptr == nil {
		t.Fatalf("unexpected nil")
	}
	buf := unsafe.Slice((*byte)(ptr), 100)
	for i, b := range buf {
		if b != 0 {
			t.Fatalf("expected zeroed block at %v, got %x", i, b)
		}
	}
	for i := range buf {
		buf[i] = byte(i)
	}
	m.Free(ptr, 100, 0)
	// freed block comes back first, zeroed again.
	again := m.Alloc(100, 0)
	if again != ptr {
		t.Errorf("expected %p, got %p", ptr, again)
	}
	buf = unsafe.Slice((*byte)(again), 100)
	for i, b := range buf {
		if b != 0 {
			t.Fatalf("expected zeroed block at %v, got %x", i, b)
		}
	}
	m.Free(again, 100, 0)
	m.Validate()
}

func TestMallocScenario(t *testing.T) {
	m := newtestmalloc(t, nil)
	defer m.Release()

	// 24 and 30 land in the same 32 byte class, the second request
	// reuses the freed block.
	ptr := m.Alloc(24, 0)
	if ptr == nil {
		t.Fatalf("unexpected nil")
	}
	m.Free(ptr, 24, 0)
	if again := m.Alloc(30, 0); again != ptr {
		t.Errorf("expected %p, got %p", ptr, again)
	} else {
		m.Free(again, 30, 0)
	}
	m.Validate()
}

func TestMallocAlign(t *testing.T) {
	m := newtestmalloc(t, nil)
	defer m.Release()

	for _, align := range []int64{16, 32, 64, 256, sys.Pagesize()} {
		ptr := m.Alloc(100, align)
		if ptr == nil {
			t.Fatalf("unexpected nil for align %v", align)
		} else if uintptr(ptr)%uintptr(align) != 0 {
			t.Errorf("expected %v aligned block, got %p", align, ptr)
		}
		m.Free(ptr, 100, align)
	}
	if ptr := m.Alloc(100, 2*sys.Pagesize()); ptr != nil {
		t.Errorf("expected nil beyond page alignment, got %p", ptr)
	}
	m.Validate()
}

func TestMallocArenadispatch(t *testing.T) {
	setts := s.Settings{"arenas": int64(2)}
	m := newtestmalloc(t, setts)
	defer m.Release()

	// facade allocations rotate, both arenas end up owning extents.
	ptrs := make([]unsafe.Pointer, 4)
	owners := map[int64]bool{}
	for i := range ptrs {
		if ptrs[i] = m.Alloc(64, 0); ptrs[i] == nil {
			t.Fatalf("unexpected nil at %v", i)
		}
		ext := m.emap.lookup(uintptr(ptrs[i]))
		if ext == nil {
			t.Fatalf("expected registered extent at %v", i)
		}
		owners[ext.arenaid] = true
	}
	if len(owners) != 2 {
		t.Errorf("expected both arenas to serve, got %v", owners)
	}
	for _, ptr := range ptrs {
		m.Free(ptr, 64, 0)
	}
	m.Validate()
}

func TestMallocManyarenas(t *testing.T) {
	setts := s.Settings{"arenas": int64(64)}
	m := newtestmalloc(t, setts)
	defer m.Release()

	ptr := m.Alloc(64, 0)
	if ptr == nil {
		t.Fatalf("unexpected nil")
	}
	m.Free(ptr, 64, 0)
	m.Validate()
}

func TestMallocToobig(t *testing.T) {
	m := newtestmalloc(t, nil)
	defer m.Release()

	if ptr := m.Alloc(2*1024*1024, 0); ptr != nil {
		t.Errorf("expected nil beyond maxblock, got %p", ptr)
	}
}

func TestMallocRealloc(t *testing.T) {
	m := newtestmalloc(t, nil)
	defer m.Release()

	ptr := m.Realloc(nil, 0, 100, 0)
	if ptr == nil {
		t.Fatalf("unexpected nil")
	}
	buf := unsafe.Slice((*byte)(ptr), 100)
	for i := range buf {
		buf[i] = byte(i)
	}
	// same class, pointer unchanged.
	if again := m.Realloc(ptr, 100, 110, 0); again != ptr {
		t.Errorf("expected %p, got %p", ptr, again)
	}
	// growing across classes copies the payload.
	grown := m.Realloc(ptr, 110, 1000, 0)
	if grown == nil {
		t.Fatalf("unexpected nil")
	} else if grown == ptr {
		t.Errorf("expected a fresh block, got %p", grown)
	}
	buf = unsafe.Slice((*byte)(grown), 100)
	for i, b := range buf {
		if b != byte(i) {
			t.Fatalf("expected %x at %v, got %x", byte(i), i, b)
		}
	}
	// shrinking keeps the prefix.
	shrunk := m.Realloc(grown, 1000, 50, 0)
	if shrunk == nil {
		t.Fatalf("unexpected nil")
	}
	buf = unsafe.Slice((*byte)(shrunk), 50)
	for i, b := range buf {
		if b != byte(i) {
			t.Fatalf("expected %x at %v, got %x", byte(i), i, b)
		}
	}
	m.Free(shrunk, 50, 0)
	m.Validate()
}

func TestMallocInvalidfree(t *testing.T) {
	m := newtestmalloc(t, nil)
	defer m.Release()

	exited, saved := false, fatalexit
	fatalexit = func() { exited = true }
	defer func() { fatalexit = saved }()

	var local [64]byte
	m.Free(unsafe.Pointer(&local[0]), 64, 0)
	if !exited {
		t.Errorf("expected fatal exit for foreign address")
	}
}

func TestMallocStats(t *testing.T) {
	m := newtestmalloc(t, nil)
	defer m.Release()

	sizes := m.Slabs()
	for i := 1; i < len(sizes); i++ {
		if sizes[i] <= sizes[i-1] {
			t.Fatalf("expected ascending slabs, got %v after %v", sizes[i], sizes[i-1])
		}
	}
	ptr := m.Alloc(64, 0)
	capacity, heap, alloc, overhead := m.Info()
	if heap <= 0 || capacity < heap {
		t.Errorf("expected positive heap within capacity, got %v / %v", heap, capacity)
	} else if alloc != 64 {
		t.Errorf("expected %v, got %v", 64, alloc)
	} else if overhead <= 0 {
		t.Errorf("expected positive overhead, got %v", overhead)
	}
	ss, zs := m.Utilization()
	if len(ss) != 1 || len(zs) != 1 {
		t.Fatalf("expected one active class, got %v", ss)
	} else if ss[0] != 64 {
		t.Errorf("expected %v, got %v", 64, ss[0])
	} else if zs[0] <= 0 || zs[0] > 100 {
		t.Errorf("expected sane utilization, got %v", zs[0])
	}
	m.Free(ptr, 64, 0)
	m.Validate()
}

func BenchmarkMallocAlloc(b *testing.B) {
	m := newtestmalloc(b, nil)
	defer m.Release()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ptr := m.Alloc(96, 0)
		m.Free(ptr, 96, 0)
	}
}

func BenchmarkTcacheAlloc(b *testing.B) {
	m := newtestmalloc(b, nil)
	defer m.Release()
	tc := m.Newtcache()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ptr := tc.Alloc(96, 0)
		tc.Free(ptr, 96, 0)
	}
	b.StopTimer()
	tc.Flush()
}
