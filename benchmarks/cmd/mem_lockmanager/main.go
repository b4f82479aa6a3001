package main

import (
	"flag"
	"fmt"
	"runtime"
	"runtime/debug"
	"strconv"
	"sync"
	"time"

	"github.com/codeGROOVE-dev/coldswap/lock"
	"github.com/codeGROOVE-dev/coldswap/benchmarks/pkg/workload"
)

var keepAlive interface{}

// mem_lockmanager drives lock.Manager with a Zipfian key-contention trace
// across many concurrent txids and reports memory footprint and achieved
// throughput -- the swap subsystem's analogue of the teacher's
// map-fill-and-measure harness, here exercising the hierarchical lock
// table instead of a plain cache.
func main() {
	ops := flag.Int("ops", 200_000, "number of lockLock/Unlock round trips")
	keySpace := flag.Int("keySpace", 50_000, "distinct keys contended over")
	concurrency := flag.Int("concurrency", 64, "concurrent goroutines")
	theta := flag.Float64("theta", 1.1, "zipf skew (higher = more contention)")
	flag.Parse()

	runtime.GC()
	debug.FreeOSMemory()

	mgr := lock.NewManager()
	keys := workload.GenerateZipfInt(*ops, *keySpace, *theta, 42)

	start := time.Now()
	var wg sync.WaitGroup
	perGoroutine := *ops / *concurrency
	for g := 0; g < *concurrency; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				idx := g*perGoroutine + i
				if idx >= len(keys) {
					return
				}
				key := "key-" + strconv.Itoa(keys[idx])
				txid := uint64(g)<<32 | uint64(i)
				done := make(chan *lock.Lock, 1)
				l := mgr.LockLock(lock.Request{
					TxID:  txid,
					DB:    0,
					Key:   key,
					Level: lock.LevelKey,
					Proceed: func(l *lock.Lock) {
						done <- l
					},
				})
				if l == nil {
					l = <-done
				}
				l.Unlock()
			}
		}(g)
	}
	wg.Wait()
	elapsed := time.Since(start)

	keepAlive = mgr

	runtime.GC()
	time.Sleep(100 * time.Millisecond)
	runtime.GC()
	debug.FreeOSMemory()

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	fmt.Printf(`{"name":"lockmanager", "ops":%d, "keySpace":%d, "concurrency":%d, "elapsed_ms":%d, "bytes":%d}`,
		*ops, *keySpace, *concurrency, elapsed.Milliseconds(), mem.Alloc)
}
