// Package malloc implements a general purpose memory allocator that
// does not depend on the Go heap for the memory it hands out. Raw
// pages come straight from the operating system, get organized into
// extents owned by arenas, and are carved into fixed sized blocks
// organized by size class:
//
//   * Arenas are independent allocation domains, each serializing
//     access to its own bins with one mutex. Contention is kept low
//     by configuring several arenas and by the thread cache front end.
//   * Extents are contiguous page runs owned by exactly one arena and
//     subdivided into blocks of exactly one size class for their
//     entire lifetime.
//   * Freed blocks link themselves into their bin's free list, link
//     storage lives inside the freed memory itself.
//   * A process wide extent map, built on a fixed fanout radix tree,
//     resolves any allocated address back to its owning extent and
//     arena in bounded depth.
//   * TCache is a per-owner cache of recently freed blocks, meant to
//     be used by exactly one goroutine and therefore entirely free of
//     locks. Refills and flushes move batches of blocks in a single
//     locked arena operation.
//
// Internal metadata, radix nodes and extent records, is carved by a
// bump allocator straight from raw pages and never goes through the
// public allocation path, so metadata growth cannot recurse into a
// failing allocator.
//
// One-time initialization via Init(), or New() for an independent
// instance, must complete before the first allocation. There is no
// teardown during normal process lifetime.
package malloc

// TODO: extent release is deferred with a one-spare-per-class policy.
// Batching the unmap calls behind a background tick would cut syscall
// traffic further under alternating alloc/free load.
