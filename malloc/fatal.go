package malloc

import "os"

import "github.com/bnclabs/gomalloc/sys"

// The invalid-free path must not allocate or format, the allocator
// may already be corrupt. Everything it writes is preallocated here.
var fatalprefix = []byte("gomalloc: invalid free, no owning arena for address 0x")
var fatalnl = []byte("\n")
var fatalhex [16]byte

const hexdigits = "0123456789abcdef"

// fatalexit overridable only from package tests, aborting the process
// is the production behaviour.
var fatalexit = func() {
	os.Exit(2)
}

func fatalinvalidfree(addr uintptr) {
	for i := 15; i >= 0; i-- {
		fatalhex[i] = hexdigits[addr&0xf]
		addr >>= 4
	}
	sys.Stderr(fatalprefix)
	sys.Stderr(fatalhex[:])
	sys.Stderr(fatalnl)
	fatalexit()
}
