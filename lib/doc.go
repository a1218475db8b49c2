// Package lib supplies primitives shared by gomalloc packages, most
// importantly the intrusive doubly-linked list that free blocks and
// extent records link themselves into. Link storage lives inside the
// linked record, the list never allocates node objects of its own.
package lib
