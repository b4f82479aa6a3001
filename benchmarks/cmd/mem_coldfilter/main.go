package main

import (
	"flag"
	"fmt"
	"runtime"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/codeGROOVE-dev/coldswap/filter"
	"github.com/codeGROOVE-dev/coldswap/benchmarks/pkg/workload"
)

var keepAlive interface{}

// mem_coldfilter measures the memory footprint of filter.Cold (cuckoo
// filter + absent LRU) under a Zipfian cold-key access trace, the swap
// subsystem's analogue of the teacher's cache-memory-footprint harness.
func main() {
	keys := flag.Int("keys", 1_000_000, "estimated key count")
	absentCap := flag.Int("absentCap", 1<<16, "absent cache capacity")
	bits := flag.String("bits", "16", "cuckoo bits per tag: 8, 16, or 32")
	theta := flag.Float64("theta", 0.99, "zipf skew")
	flag.Parse()

	runtime.GC()
	debug.FreeOSMemory()

	bitType := filter.BitType16
	switch *bits {
	case "8":
		bitType = filter.BitType8
	case "32":
		bitType = filter.BitType32
	}

	cold := filter.NewCold(bitType, *keys, *absentCap)
	for i := range *keys {
		cold.AddKey([]byte("key-" + strconv.Itoa(i)))
	}

	// simulate a Zipfian miss trace driving the absent cache
	trace := workload.GenerateZipfInt(200_000, *keys*2, *theta, 1)
	for _, v := range trace {
		if v >= *keys {
			cold.KeyNotFound([]byte("key-"+strconv.Itoa(v)), true)
		}
	}

	keepAlive = cold

	runtime.GC()
	time.Sleep(100 * time.Millisecond)
	runtime.GC()
	debug.FreeOSMemory()

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	stat := cold.Stats()
	fmt.Printf(`{"name":"coldfilter", "keys":%d, "cuckoo_tables":%d, "cuckoo_tags":%d, "cuckoo_bytes":%d, "false_positives":%d, "bytes":%d}`,
		*keys, stat.Tables, stat.Tags, stat.UsedMemory, cold.FalsePositives(), mem.Alloc)
}
