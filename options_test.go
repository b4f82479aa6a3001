package coldswap

import (
	"log/slog"
	"testing"

	"github.com/codeGROOVE-dev/coldswap/evict"
	"github.com/codeGROOVE-dev/coldswap/filter"
)

func TestDefaultOptions(t *testing.T) {
	o := defaultOptions()

	if !o.cuckooEnabled {
		t.Error("cuckooEnabled default = false; want true")
	}
	if o.cuckooBitType != filter.BitType16 {
		t.Errorf("cuckooBitType default = %v; want BitType16", o.cuckooBitType)
	}
	if o.ratelimitPolicy != evict.RatelimitPause {
		t.Errorf("ratelimitPolicy default = %v; want RatelimitPause", o.ratelimitPolicy)
	}
	if o.rioWorkers != 4 {
		t.Errorf("rioWorkers default = %d; want 4", o.rioWorkers)
	}
	if o.replWorkers != 256 {
		t.Errorf("replWorkers default = %d; want 256 (spec.md §6 repl.workers)", o.replWorkers)
	}
}

func TestWithLogger(t *testing.T) {
	o := defaultOptions()
	l := slog.Default()
	WithLogger(l)(o)
	if o.logger != l {
		t.Error("WithLogger did not set logger")
	}
}

func TestWithCuckooFilter(t *testing.T) {
	o := defaultOptions()
	WithCuckooFilter(false, filter.BitType32, 1<<10)(o)
	if o.cuckooEnabled {
		t.Error("cuckooEnabled = true; want false")
	}
	if o.cuckooBitType != filter.BitType32 {
		t.Errorf("cuckooBitType = %v; want BitType32", o.cuckooBitType)
	}
	if o.cuckooEstimatedKeys != 1<<10 {
		t.Errorf("cuckooEstimatedKeys = %d; want %d", o.cuckooEstimatedKeys, 1<<10)
	}
}

func TestWithAbsentCache(t *testing.T) {
	o := defaultOptions()
	WithAbsentCache(0)(o)
	if o.absentCacheCapacity != 0 {
		t.Errorf("absentCacheCapacity = %d; want 0 (disabled)", o.absentCacheCapacity)
	}
}

func TestWithPersistence(t *testing.T) {
	o := defaultOptions()
	WithPersistence(false, 2000, 20)(o)
	if o.persistEnabled {
		t.Error("persistEnabled = true; want false")
	}
	if o.persistLagMillis != 2000 {
		t.Errorf("persistLagMillis = %d; want 2000", o.persistLagMillis)
	}
	if o.persistInprogressGrowth != 20 {
		t.Errorf("persistInprogressGrowth = %d; want 20", o.persistInprogressGrowth)
	}
}

func TestWithEviction(t *testing.T) {
	o := defaultOptions()
	WithEviction(32, 5, 10)(o)
	if o.evictionInprogressLimit != 32 {
		t.Errorf("evictionInprogressLimit = %d; want 32", o.evictionInprogressLimit)
	}
	if o.evictionInprogressGrowthRate != 5 {
		t.Errorf("evictionInprogressGrowthRate = %d; want 5", o.evictionInprogressGrowthRate)
	}
	if o.maxmemoryScaledownRate != 10 {
		t.Errorf("maxmemoryScaledownRate = %d; want 10", o.maxmemoryScaledownRate)
	}
}

func TestWithRatelimit(t *testing.T) {
	o := defaultOptions()
	WithRatelimit(evict.RatelimitRejectOOM, 90, 50, 3000)(o)
	if o.ratelimitPolicy != evict.RatelimitRejectOOM {
		t.Errorf("ratelimitPolicy = %v; want RatelimitRejectOOM", o.ratelimitPolicy)
	}
	if o.ratelimitMaxmemoryPct != 90 {
		t.Errorf("ratelimitMaxmemoryPct = %d; want 90", o.ratelimitMaxmemoryPct)
	}
	if o.ratelimitPauseGrowthRate != 50 {
		t.Errorf("ratelimitPauseGrowthRate = %d; want 50", o.ratelimitPauseGrowthRate)
	}
	if o.ratelimitPersistLag != 3000 {
		t.Errorf("ratelimitPersistLag = %d; want 3000", o.ratelimitPersistLag)
	}
}

func TestWithBatchSizes(t *testing.T) {
	o := defaultOptions()
	WithBatchSizes(8, 2048)(o)
	if o.batchDefaultSize != 8 {
		t.Errorf("batchDefaultSize = %d; want 8", o.batchDefaultSize)
	}
	if o.batchLinearSize != 2048 {
		t.Errorf("batchLinearSize = %d; want 2048", o.batchLinearSize)
	}
}

func TestWithReplicationWorkers(t *testing.T) {
	o := defaultOptions()
	WithReplicationWorkers(64)(o)
	if o.replWorkers != 64 {
		t.Errorf("replWorkers = %d; want 64", o.replWorkers)
	}
}

func TestWithScanSessionBits(t *testing.T) {
	o := defaultOptions()
	WithScanSessionBits(12)(o)
	if o.scanSessionBits != 12 {
		t.Errorf("scanSessionBits = %d; want 12", o.scanSessionBits)
	}
}

func TestWithRioWorkers(t *testing.T) {
	o := defaultOptions()
	WithRioWorkers(16)(o)
	if o.rioWorkers != 16 {
		t.Errorf("rioWorkers = %d; want 16", o.rioWorkers)
	}
}
