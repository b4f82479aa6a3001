package coldswap

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/dustin/go-humanize"
)

// Stats holds the glue counters enumerated across §4.5-§4.8 ("Glue
// (registration, stats)" in §2's component table): swap outcomes, lock
// waits, eviction results and RIO byte counts, aggregated across every
// Database a Server owns.
type Stats struct {
	SwapIns     atomic.Int64
	SwapOuts    atomic.Int64
	SwapDels    atomic.Int64
	NOPs        atomic.Int64
	LockWaits   atomic.Int64
	EvictSucc   atomic.Int64
	EvictFail   atomic.Int64
	RioBytesIn  atomic.Int64
	RioBytesOut atomic.Int64
}

// NewStats returns a zeroed Stats block.
func NewStats() *Stats { return &Stats{} }

// RecordSwapIn/Out/Del/NOP are the four outcomes the finish step
// (request/pipeline.go) can produce per swap.
func (s *Stats) RecordSwapIn()  { s.SwapIns.Add(1) }
func (s *Stats) RecordSwapOut(bytesOut int64) {
	s.SwapOuts.Add(1)
	s.RioBytesOut.Add(bytesOut)
}
func (s *Stats) RecordSwapDel() { s.SwapDels.Add(1) }
func (s *Stats) RecordNOP()     { s.NOPs.Add(1) }

// RecordLockWait counts a lockLock call that had to queue rather than
// grant immediately.
func (s *Stats) RecordLockWait() { s.LockWaits.Add(1) }

// RecordEviction counts one tryEvictKey outcome per §4.6's accounting.
func (s *Stats) RecordEviction(succeeded bool) {
	if succeeded {
		s.EvictSucc.Add(1)
		return
	}
	s.EvictFail.Add(1)
}

// Info renders an INFO-style block of human-readable stat lines, the Go
// analogue of the source's "coldswap" INFO section, using go-humanize
// the way the teacher's benchmarks format throughput and counts for
// terminal output.
func (s *Stats) Info() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Coldswap\r\n")
	fmt.Fprintf(&b, "swap_in_count:%s\r\n", humanize.Comma(s.SwapIns.Load()))
	fmt.Fprintf(&b, "swap_out_count:%s\r\n", humanize.Comma(s.SwapOuts.Load()))
	fmt.Fprintf(&b, "swap_del_count:%s\r\n", humanize.Comma(s.SwapDels.Load()))
	fmt.Fprintf(&b, "swap_nop_count:%s\r\n", humanize.Comma(s.NOPs.Load()))
	fmt.Fprintf(&b, "lock_wait_count:%s\r\n", humanize.Comma(s.LockWaits.Load()))
	fmt.Fprintf(&b, "evict_success_count:%s\r\n", humanize.Comma(s.EvictSucc.Load()))
	fmt.Fprintf(&b, "evict_fail_count:%s\r\n", humanize.Comma(s.EvictFail.Load()))
	fmt.Fprintf(&b, "rio_bytes_in:%s\r\n", humanize.Bytes(uint64(s.RioBytesIn.Load())))
	fmt.Fprintf(&b, "rio_bytes_out:%s\r\n", humanize.Bytes(uint64(s.RioBytesOut.Load())))
	return b.String()
}

// FilterStats renders one Database's cold-filter stats line, mirroring
// §4.1's reported per-table stats (tags, memory, load factor).
func FilterStats(dbid int, tags int, usedMemory int, loadFactors []float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "db%d_cuckoo_tables:%d\r\n", dbid, len(loadFactors))
	fmt.Fprintf(&b, "db%d_cuckoo_tags:%s\r\n", dbid, humanize.Comma(int64(tags)))
	fmt.Fprintf(&b, "db%d_cuckoo_memory:%s\r\n", dbid, humanize.Bytes(uint64(usedMemory)))
	for i, lf := range loadFactors {
		fmt.Fprintf(&b, "db%d_cuckoo_table%d_load:%.2f%%\r\n", dbid, i, lf*100)
	}
	return b.String()
}
