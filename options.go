package coldswap

import (
	"log/slog"

	"github.com/codeGROOVE-dev/coldswap/evict"
	"github.com/codeGROOVE-dev/coldswap/filter"
)

// Options configures a Server instance. Mirrors the teacher's functional
// options pattern (the original package's Options/Option/WithX), one field
// per tunable enumerated in spec.md §6 "Environment".
type Options struct {
	logger *slog.Logger

	cuckooEnabled       bool
	cuckooBitType       filter.BitType
	cuckooEstimatedKeys int

	absentCacheCapacity int // <=0 disables the absent cache

	persistEnabled          bool
	persistLagMillis        int64
	persistInprogressGrowth int

	evictionInprogressLimit      int
	evictionInprogressGrowthRate int
	maxmemoryScaledownRate       int

	ratelimitPolicy          evict.RatelimitPolicy
	ratelimitMaxmemoryPct    int
	ratelimitPauseGrowthRate int
	ratelimitPersistLag      int64

	batchDefaultSize int
	batchLinearSize  int

	replWorkers     int
	scanSessionBits int

	rioWorkers int
}

// Option configures a Server.
type Option func(*Options)

func defaultOptions() *Options {
	return &Options{
		cuckooEnabled:       true,
		cuckooBitType:       filter.BitType16,
		cuckooEstimatedKeys: 1 << 20,

		absentCacheCapacity: 1 << 16,

		persistEnabled:          true,
		persistLagMillis:        1000,
		persistInprogressGrowth: 10,

		evictionInprogressLimit:      16,
		evictionInprogressGrowthRate: 10,
		maxmemoryScaledownRate:       0,

		ratelimitPolicy:          evict.RatelimitPause,
		ratelimitMaxmemoryPct:    95,
		ratelimitPauseGrowthRate: 100,
		ratelimitPersistLag:      5000,

		batchDefaultSize: 16,
		batchLinearSize:  4096,

		replWorkers:     256,
		scanSessionBits: 8,

		rioWorkers: 4,
	}
}

// WithLogger sets the structured logger the Server stores and returns
// from Logger().
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) { o.logger = l }
}

// WithCuckooFilter enables or disables the cuckoo half of the cold filter
// (§6 "cuckoo_filter.enabled") and selects its bits-per-tag
// parameterisation and estimated key count.
func WithCuckooFilter(enabled bool, bitType filter.BitType, estimatedKeys int) Option {
	return func(o *Options) {
		o.cuckooEnabled = enabled
		o.cuckooBitType = bitType
		o.cuckooEstimatedKeys = estimatedKeys
	}
}

// WithAbsentCache sets the absent-subkey LRU capacity (§6 "absent_cache.*");
// capacity<=0 disables it.
func WithAbsentCache(capacity int) Option {
	return func(o *Options) { o.absentCacheCapacity = capacity }
}

// WithPersistence configures the persistence engine's lag threshold and
// in-progress growth rate (§6 "persist.*").
func WithPersistence(enabled bool, lagMillis int64, inprogressGrowthRate int) Option {
	return func(o *Options) {
		o.persistEnabled = enabled
		o.persistLagMillis = lagMillis
		o.persistInprogressGrowth = inprogressGrowthRate
	}
}

// WithEviction configures the memory-pressure eviction driver (§6
// "eviction.*", "maxmemory_scaledown_rate").
func WithEviction(inprogressLimit, inprogressGrowthRate, maxmemoryScaledownPct int) Option {
	return func(o *Options) {
		o.evictionInprogressLimit = inprogressLimit
		o.evictionInprogressGrowthRate = inprogressGrowthRate
		o.maxmemoryScaledownRate = maxmemoryScaledownPct
	}
}

// WithRatelimit configures the rate-limit policy (§6 "ratelimit.*").
func WithRatelimit(policy evict.RatelimitPolicy, maxmemoryPct, pauseGrowthRate int, persistLagMillis int64) Option {
	return func(o *Options) {
		o.ratelimitPolicy = policy
		o.ratelimitMaxmemoryPct = maxmemoryPct
		o.ratelimitPauseGrowthRate = pauseGrowthRate
		o.ratelimitPersistLag = persistLagMillis
	}
}

// WithBatchSizes configures the batch feeder's flush thresholds (§6
// "batch.*").
func WithBatchSizes(defaultSize, linearSize int) Option {
	return func(o *Options) {
		o.batchDefaultSize = defaultSize
		o.batchLinearSize = linearSize
	}
}

// WithReplicationWorkers sets the replication worker-client pool size (§6
// "repl.workers").
func WithReplicationWorkers(n int) Option {
	return func(o *Options) { o.replWorkers = n }
}

// WithScanSessionBits sets the number of bits reserved for the metascan
// cursor's session id/seq split (§6 "scan_session.bits").
func WithScanSessionBits(bits int) Option {
	return func(o *Options) { o.scanSessionBits = bits }
}

// WithRioWorkers sets the disk-I/O worker pool size (§5 "a fixed pool of
// N worker threads (default 4, cap 64)"); rio.NewPool clamps to that
// range regardless of what is passed here.
func WithRioWorkers(n int) Option {
	return func(o *Options) { o.rioWorkers = n }
}
