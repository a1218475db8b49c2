package malloc

import "unsafe"

import "github.com/bnclabs/gomalloc/api"

// Radix tree fanout, fixed at compile time. Each level consumes
// log2(radixfanout) bits of the key, most significant bits first, so
// lookup depth is a small constant independent of tree population.
const radixfanout = 16
const radixbits = 4 // log2(radixfanout)
const radixmask = uintptr(radixfanout - 1)

// key width follows the platform pointer, 32-bit platforms get the
// shallower tree.
const uintptrbits = 32 << (^uintptr(0) >> 63)
const radixlevels = uintptrbits / radixbits

// radixnode interior nodes route through slots, the node reached
// after consuming every key digit carries the value. Nodes live in
// nodepool memory, slots hold raw addresses of child nodes.
type radixnode struct {
	slots [radixfanout]uintptr
	value uintptr // 0 means empty
}

var radixnodesize = int64(unsafe.Sizeof(radixnode{}))

// radixtree maps uintptr keys to non-zero uintptr values. Growth
// happens only on insert, lookup and remove never allocate. Callers
// serialize access, the tree shares its caller's lock with the
// nodepool backing it.
type radixtree struct {
	root   uintptr
	pool   *nodepool
	count  int64 // values stored
	nnodes int64 // nodes ever created, pruning is not done
}

func newradixtree() *radixtree {
	return &radixtree{pool: newnodepool(radixnodesize)}
}

func digitfor(key uintptr, level int) uintptr {
	shift := uint((radixlevels - 1 - level) * radixbits)
	return (key >> shift) & radixmask
}

func radixnodeat(addr uintptr) *radixnode {
	return (*radixnode)(pointerat(addr))
}

// insert value under key, creating intermediate nodes as needed.
// Fails with api.ErrorAlreadyPresent, without mutating the stored
// value, if the key already holds one. api.ErrorOutofmemory from
// metadata growth propagates as is.
func (t *radixtree) insert(key, value uintptr) error {
	if value == 0 {
		panic("radixtree.insert(): value should be non-zero")
	}
	if t.root == 0 {
		addr, err := t.newnode()
		if err != nil {
			return err
		}
		t.root = addr
	}
	node := radixnodeat(t.root)
	for level := 0; level < radixlevels; level++ {
		idx := digitfor(key, level)
		child := node.slots[idx]
		if child == 0 {
			addr, err := t.newnode()
			if err != nil {
				return err
			}
			node.slots[idx] = addr
			child = addr
		}
		node = radixnodeat(child)
	}
	if node.value != 0 {
		return api.ErrorAlreadyPresent
	}
	node.value = value
	t.count++
	return nil
}

// lookup walk existing nodes only, absent if any intermediate node is
// missing. Never allocates.
func (t *radixtree) lookup(key uintptr) (uintptr, bool) {
	node := t.leaf(key)
	if node == nil || node.value == 0 {
		return 0, false
	}
	return node.value, true
}

// remove clear the value slot for key and return the old value.
// Intermediate nodes are left in place, bounded waste traded against
// recursive teardown logic.
func (t *radixtree) remove(key uintptr) (uintptr, bool) {
	node := t.leaf(key)
	if node == nil || node.value == 0 {
		return 0, false
	}
	value := node.value
	node.value = 0
	t.count--
	return value, true
}

func (t *radixtree) leaf(key uintptr) *radixnode {
	if t.root == 0 {
		return nil
	}
	node := radixnodeat(t.root)
	for level := 0; level < radixlevels; level++ {
		child := node.slots[digitfor(key, level)]
		if child == 0 {
			return nil
		}
		node = radixnodeat(child)
	}
	return node
}

func (t *radixtree) newnode() (uintptr, error) {
	ptr, err := t.pool.allocnode()
	if err != nil {
		return 0, err
	}
	t.nnodes++
	return uintptr(ptr), nil
}

// release the tree's metadata pages in bulk.
func (t *radixtree) release() {
	t.pool.release()
	t.root, t.count, t.nnodes = 0, 0, 0
}
