package malloc

import "math/rand"
import "sync"
import "testing"
import "unsafe"

import "github.com/stretchr/testify/require"
import s "github.com/bnclabs/gosettings"

func TestConcurrentchurn(t *testing.T) {
	nroutines, nops := 8, 100000
	if testing.Short() {
		nops = 10000
	}
	setts := s.Settings{"arenas": int64(4), "tcache.size": int64(64)}
	m := newtestmalloc(t, setts)
	defer m.Release()

	type block struct {
		ptr  unsafe.Pointer
		size int64
	}
	var wg sync.WaitGroup
	for g := 0; g < nroutines; g++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			tc, rnd := m.Newtcache(), rand.New(rand.NewSource(seed))
			live := make([]block, 0, 1024)
			for i := 0; i < nops; i++ {
				if len(live) > 0 && rnd.Intn(100) < 45 {
					idx := rnd.Intn(len(live))
					blk := live[idx]
					live[idx] = live[len(live)-1]
					live = live[:len(live)-1]
					tc.Free(blk.ptr, blk.size, 0)
					continue
				}
				size := int64(8 + rnd.Intn(4089))
				ptr := tc.Alloc(size, 0)
				require.NotNil(t, ptr, "alloc %v bytes", size)
				live = append(live, block{ptr, size})
			}
			for _, blk := range live {
				tc.Free(blk.ptr, blk.size, 0)
			}
			tc.Flush()
		}(int64(g) + 42)
	}
	wg.Wait()

	m.Validate()
	_, _, alloc, _ := m.Info()
	require.Equal(t, int64(0), alloc)
	m.Purge()
	require.Equal(t, int64(0), m.emap.registered())
	_, heap, _, _ := m.Info()
	require.Equal(t, int64(0), heap)
}

func TestConcurrentfacade(t *testing.T) {
	nroutines, nops := 8, 10000
	setts := s.Settings{"arenas": int64(2)}
	m := newtestmalloc(t, setts)
	defer m.Release()

	var wg sync.WaitGroup
	for g := 0; g < nroutines; g++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rnd := rand.New(rand.NewSource(seed))
			for i := 0; i < nops; i++ {
				size := int64(8 + rnd.Intn(1017))
				ptr := m.Alloc(size, 0)
				require.NotNil(t, ptr, "alloc %v bytes", size)
				m.Free(ptr, size, 0)
			}
		}(int64(g) + 7)
	}
	wg.Wait()

	// the rotor spread facade allocations over both arenas.
	for _, arena := range m.arenas {
		require.Greater(t, arena.ncarves, int64(0), "arena %v", arena.id)
	}
	m.Validate()
	_, _, alloc, _ := m.Info()
	require.Equal(t, int64(0), alloc)
	m.Purge()
	require.Equal(t, int64(0), m.emap.registered())
}
