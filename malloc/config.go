package malloc

import "fmt"
import "runtime"

import s "github.com/bnclabs/gosettings"

// Alignment allocated pointers are always aligned at this boundary,
// block sizes are multiples of it.
const Alignment = int64(16)

// Quantum spacing between small tier block sizes, minblock and
// maxblock should be multiples of Quantum.
const Quantum = int64(16)

// Smallmax largest small tier block size, linear Quantum spacing is
// used up to this size.
const Smallmax = int64(512)

// Largemax largest large tier block size, utilization driven spacing
// is used between Smallmax and this size, page rounded doubling after.
const Largemax = int64(16 * 1024)

// MEMUtilization is the worst case ratio between requested bytes and
// the block size the request is rounded to, for the large tier.
const MEMUtilization = float64(0.95)

// Defaultsettings for gomalloc instances.
//
// "minblock" (int64, default: 16)
//		Minimum block size, requests below are rounded up to it.
//		Should be a multiple of Quantum, at least 16 so that a freed
//		block can hold its own free-list links.
//
// "maxblock" (int64, default: 1048576)
//		Maximum block size, allocations beyond this fail with nil.
//		Should be a multiple of Quantum.
//
// "arenas" (int64, default: GOMAXPROCS)
//		Number of independent arenas, fixed for process lifetime.
//
// "tcache.size" (int64, default: 64)
//		Per size-class capacity of a thread cache.
//
// "extent.minblocks" (int64, default: 32)
//		Minimum number of blocks a freshly carved extent holds, the
//		extent size is rounded up to whole pages from here.
func Defaultsettings() s.Settings {
	return s.Settings{
		"minblock":         Quantum,
		"maxblock":         int64(1024 * 1024),
		"arenas":           int64(runtime.GOMAXPROCS(0)),
		"tcache.size":      int64(64),
		"extent.minblocks": int64(32),
	}
}

func (m *Malloc) readsettings(setts s.Settings) *Malloc {
	m.minblock = setts.Int64("minblock")
	m.maxblock = setts.Int64("maxblock")
	m.narenas = setts.Int64("arenas")
	m.tcachecap = setts.Int64("tcache.size")
	m.extminblocks = setts.Int64("extent.minblocks")

	if m.minblock < Alignment {
		panicerr("minblock %v below alignment %v", m.minblock, Alignment)
	} else if (m.minblock % Quantum) != 0 {
		panicerr("minblock %v is not multiple of %v", m.minblock, Quantum)
	} else if (m.maxblock % Quantum) != 0 {
		panicerr("maxblock %v is not multiple of %v", m.maxblock, Quantum)
	} else if m.maxblock < m.minblock {
		panicerr("maxblock %v below minblock %v", m.maxblock, m.minblock)
	} else if m.narenas < 1 {
		panicerr("arenas should be >= 1, got %v", m.narenas)
	} else if m.tcachecap < 2 {
		panicerr("tcache.size should be >= 2, got %v", m.tcachecap)
	} else if m.extminblocks < 1 {
		panicerr("extent.minblocks should be >= 1, got %v", m.extminblocks)
	}
	return m
}

func panicerr(fmsg string, args ...interface{}) {
	panic(fmt.Errorf(fmsg, args...))
}
