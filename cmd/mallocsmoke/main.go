package main

import "flag"
import "fmt"
import "math/rand"
import "os"
import "sync"
import "time"
import "unsafe"

import "github.com/bnclabs/gomalloc/malloc"
import s "github.com/bnclabs/gosettings"
import sigar "github.com/cloudfoundry/gosigar"
import hm "github.com/dustin/go-humanize"

var options struct {
	routines int
	ops      int
	minsize  int
	maxsize  int
	arenas   int
	tcache   int
	log      string
}

func argParse() {
	flag.IntVar(&options.routines, "routines", 8,
		"number of concurrent workers, one thread cache each")
	flag.IntVar(&options.ops, "ops", 1000000,
		"number of alloc/free operations per worker")
	flag.IntVar(&options.minsize, "minsize", 8,
		"minimum allocation size in bytes")
	flag.IntVar(&options.maxsize, "maxsize", 4096,
		"maximum allocation size in bytes")
	flag.IntVar(&options.arenas, "arenas", 0,
		"number of arenas, 0 means one per CPU")
	flag.IntVar(&options.tcache, "tcache", 64,
		"thread cache capacity per size class")
	flag.StringVar(&options.log, "log", "", "log level")
	flag.Parse()
}

func main() {
	argParse()
	if options.log != "" {
		malloc.LogComponents("all")
	}

	setts := s.Settings{
		"tcache.size": int64(options.tcache),
	}
	if options.arenas > 0 {
		setts["arenas"] = int64(options.arenas)
	}
	m := malloc.New("smoke", setts)
	fmt.Printf("pagesize: %v\n", m.Pagesize())

	now := time.Now()
	churn(m)
	took := time.Since(now)
	total := options.routines * options.ops
	fmt.Printf("Took %v for %v ops, %v ops/sec\n",
		took, total, int(float64(total)/took.Seconds()))

	printutilization(m)
	printrss()
}

func churn(m *malloc.Malloc) {
	var wg sync.WaitGroup
	stats := make([]map[string]interface{}, options.routines)
	for g := 0; g < options.routines; g++ {
		wg.Add(1)
		go func(g int, seed int64) {
			defer wg.Done()
			stats[g] = worker(m, seed)
		}(g, int64(g)+1)
	}
	wg.Wait()
	for g, st := range stats {
		fmt.Printf("worker %v requests{n:%v min:%v max:%v mean:%v wastage:%.2f%%}\n",
			g, st["samples"], st["min"], st["max"], st["mean"], st["wastage"])
	}
}

func worker(m *malloc.Malloc, seed int64) map[string]interface{} {
	type block struct {
		ptr  unsafe.Pointer
		size int64
	}
	tc, rnd := m.Newtcache(), rand.New(rand.NewSource(seed))
	spread := options.maxsize - options.minsize + 1
	live := make([]block, 0, 1024)
	for i := 0; i < options.ops; i++ {
		if len(live) > 0 && rnd.Intn(100) < 45 {
			idx := rnd.Intn(len(live))
			blk := live[idx]
			live[idx] = live[len(live)-1]
			live = live[:len(live)-1]
			tc.Free(blk.ptr, blk.size, 0)
			continue
		}
		size := int64(options.minsize + rnd.Intn(spread))
		ptr := tc.Alloc(size, 0)
		if ptr == nil {
			fmt.Fprintf(os.Stderr, "out of memory after %v ops\n", i)
			os.Exit(1)
		}
		live = append(live, block{ptr, size})
	}
	for _, blk := range live {
		tc.Free(blk.ptr, blk.size, 0)
	}
	tc.Flush()
	return tc.Statistics()
}

func printutilization(m *malloc.Malloc) {
	capacity, heap, alloc, overhead := m.Info()
	fmsg := "Heap{cap:%v heap:%v alloc:%v overhead:%v}\n"
	fmt.Printf(fmsg, hm.Bytes(uint64(capacity)), hm.Bytes(uint64(heap)),
		hm.Bytes(uint64(alloc)), hm.Bytes(uint64(overhead)))
	sizes, utilz := m.Utilization()
	for i, size := range sizes {
		fmt.Printf("size %6v, util %6.2f%%\n", size, utilz[i])
	}
	released := m.Purge()
	fmt.Printf("purged %v extents\n", released)
}

func printrss() {
	mem := sigar.ProcMem{}
	if err := mem.Get(os.Getpid()); err != nil {
		fmt.Fprintf(os.Stderr, "procmem: %v\n", err)
		return
	}
	fmt.Printf("process rss: %v\n", hm.Bytes(mem.Resident))
}
