package malloc

import "strconv"

// sizestats per owner accounting of allocation requests, bucketed by
// the owner's size class table rather than a fixed width grid, so the
// histogram answers the question the table poses: how well do the
// configured classes fit the traffic, and how many bytes does class
// rounding throw away. Not safe for concurrent use, every owner keeps
// its own instance.
type sizestats struct {
	sizes    []int64 // class sizes, shared with the owner, never mutated
	requests []int64 // requests served per class
	n        int64
	minval   int64
	maxval   int64
	reqsum   int64 // bytes requested
	blksum   int64 // bytes handed out after rounding up to the class
}

func newsizestats(sizes []int64) *sizestats {
	return &sizestats{sizes: sizes, requests: make([]int64, len(sizes))}
}

// add one request of n bytes served by class cid.
func (h *sizestats) add(n, cid int64) {
	h.requests[cid]++
	h.n++
	h.reqsum += n
	h.blksum += h.sizes[cid]
	if h.n == 1 || n < h.minval {
		h.minval = n
	}
	if h.maxval < n {
		h.maxval = n
	}
}

func (h *sizestats) samples() int64 {
	return h.n
}

func (h *sizestats) min() int64 {
	return h.minval
}

func (h *sizestats) max() int64 {
	return h.maxval
}

func (h *sizestats) mean() int64 {
	if h.n == 0 {
		return 0
	}
	return h.reqsum / h.n
}

// wastage percent of handed out bytes that were never requested, the
// price of rounding requests up to their class.
func (h *sizestats) wastage() float64 {
	if h.blksum == 0 {
		return 0
	}
	return (float64(h.blksum-h.reqsum) / float64(h.blksum)) * 100
}

// buckets cumulative request counts keyed by class size, classes past
// the largest one used are dropped.
func (h *sizestats) buckets() map[string]int64 {
	last := -1
	for cid, count := range h.requests {
		if count > 0 {
			last = cid
		}
	}
	m := make(map[string]int64)
	cumm := int64(0)
	for cid := 0; cid <= last; cid++ {
		cumm += h.requests[cid]
		m[strconv.Itoa(int(h.sizes[cid]))] = cumm
	}
	return m
}

func (h *sizestats) fullstats() map[string]interface{} {
	hmap := make(map[string]interface{})
	for k, v := range h.buckets() {
		hmap[k] = v
	}
	return map[string]interface{}{
		"samples":   h.samples(),
		"min":       h.min(),
		"max":       h.max(),
		"mean":      h.mean(),
		"wastage":   h.wastage(),
		"histogram": hmap,
	}
}
