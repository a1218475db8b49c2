package lib

import "unsafe"

// Nodesize number of bytes of link storage a record must reserve at
// its head to be linkable. Blocks smaller than this cannot go on a
// free list.
const Nodesize = int64(unsafe.Sizeof(Node{}))

// Node is the link header embedded inside every linkable record. The
// record provides the storage, the list only threads through it.
// Records live in raw mapped memory, links are plain addresses and
// invisible to the garbage collector.
type Node struct {
	next uintptr
	prev uintptr
}

// Nodeat treat the memory at ptr as a link header.
func Nodeat(ptr unsafe.Pointer) *Node {
	return (*Node)(ptr)
}

// Ptr back to the record's memory.
func (n *Node) Ptr() unsafe.Pointer {
	return unsafe.Pointer(n)
}

func (n *Node) addr() uintptr {
	return uintptr(unsafe.Pointer(n))
}

func nodeat(p uintptr) *Node {
	return (*Node)(unsafe.Pointer(p))
}

// Reset clear the link fields, after this the record is safe to
// reinsert elsewhere or reuse as raw memory.
func (n *Node) Reset() {
	n.next, n.prev = 0, 0
}

// List of records linked through their embedded Node headers. The
// zero value is ready to use. A List must not be copied after first
// use, the sentinel links point into itself.
type List struct {
	root  Node
	count int64
}

// Init reset the list to empty, dropping all linked records.
func (l *List) Init() *List {
	p := l.root.addr()
	l.root.next, l.root.prev = p, p
	l.count = 0
	return l
}

func (l *List) lazyinit() {
	if l.root.next == 0 {
		l.Init()
	}
}

// Len number of records in the list.
func (l *List) Len() int64 {
	return l.count
}

// Insertafter link `item` right after `at`, O(1). `at` can be a
// record already in this list.
func (l *List) Insertafter(item, at *Node) {
	l.lazyinit()
	item.prev, item.next = at.addr(), at.next
	nodeat(at.next).prev = item.addr()
	at.next = item.addr()
	l.count++
}

// Insertbefore link `item` right before `at`, O(1).
func (l *List) Insertbefore(item, at *Node) {
	l.lazyinit()
	item.next, item.prev = at.addr(), at.prev
	nodeat(at.prev).next = item.addr()
	at.prev = item.addr()
	l.count++
}

// Remove unlink `item` from this list, O(1). Link fields are reset so
// the record is immediately reusable.
func (l *List) Remove(item *Node) {
	nodeat(item.prev).next = item.next
	nodeat(item.next).prev = item.prev
	item.Reset()
	l.count--
}

// Pushhead link `item` at the head of the list.
func (l *List) Pushhead(item *Node) {
	l.lazyinit()
	l.Insertafter(item, &l.root)
}

// Pushtail link `item` at the tail of the list.
func (l *List) Pushtail(item *Node) {
	l.lazyinit()
	l.Insertbefore(item, &l.root)
}

// Head peek at the first record without removing it, nil if empty.
func (l *List) Head() *Node {
	if l.count == 0 {
		return nil
	}
	return nodeat(l.root.next)
}

// Pop remove and return the head record, nil if empty.
func (l *List) Pop() *Node {
	n := l.Head()
	if n != nil {
		l.Remove(n)
	}
	return n
}

// Iterate records from head to tail without removing them. The
// returned closure yields nil once exhausted and cannot be restarted,
// call Iterate again for a fresh pass.
func (l *List) Iterate() func() *Node {
	l.lazyinit()
	cur := l.root.next
	return func() *Node {
		if cur == l.root.addr() {
			return nil
		}
		n := nodeat(cur)
		cur = n.next
		return n
	}
}

// Drain like Iterate but removes each record as it is yielded.
func (l *List) Drain() func() *Node {
	return func() *Node {
		return l.Pop()
	}
}
