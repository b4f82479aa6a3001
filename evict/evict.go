// Package evict implements the §4.6 eviction engine: memory-pressure and
// persistence-driven eviction sharing one work-item pool, plus the
// rate-limit policy that protects clients during overshoot.
package evict

import "math"

// Outcome classifies the result of one tryEvictKey call (§4.6 accounting).
type Outcome int

const (
	OutcomeSuccSwapped Outcome = iota
	OutcomeSuccFreed
	OutcomeFailAbsent
	OutcomeFailEvicted
	OutcomeFailSwapping
	OutcomeFailUnsupported
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccSwapped:
		return "swapped"
	case OutcomeSuccFreed:
		return "freed"
	case OutcomeFailAbsent:
		return "absent"
	case OutcomeFailEvicted:
		return "evicted"
	case OutcomeFailSwapping:
		return "swapping"
	case OutcomeFailUnsupported:
		return "unsupported"
	default:
		return "unknown"
	}
}

// failInRowBreak is the consecutive-fail counter ceiling from §8's
// boundary behavior: "failed_inrow > 16 breaks the current loop".
const failInRowBreak = 16

// Config holds the tunables enumerated in spec.md §6 ("Environment") that
// drive both eviction drivers.
type Config struct {
	InprogressLimit       int
	InprogressGrowthRate  int
	MaxmemoryScaledownPct int // maxmemory_scaledown_rate, 0 = disabled

	RatelimitPolicy       RatelimitPolicy
	RatelimitMaxmemoryPct int
	RatelimitPauseGrowth  int
	RatelimitPersistLag   int64 // millis
}

// Engine drives memory-pressure eviction and exposes the rate limiter.
// InprogressLimit is a standalone function; nothing in this module calls
// it.
type Engine struct {
	cfg     Config
	limiter *RateLimiter
}

// NewEngine builds an eviction engine from cfg.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg, limiter: NewRateLimiter(cfg)}
}

// Limiter returns the shared rate limiter.
func (e *Engine) Limiter() *RateLimiter {
	return e.limiter
}

// InprogressLimit computes the deferred-request concurrency ceiling for
// the current overshoot, per §4.6: "`inprogress_limit = 1 +
// max(0, lag_ms - lag_threshold) / growth_rate`" -- the same formula
// serves both the memory-pressure driver (overshoot measured in bytes
// scaled to a synthetic "lag") and the persistence driver (overshoot
// measured in actual lag millis). This is the resolution of the open
// question in spec.md §9: `swapEvictInprogressLimit` and
// `swapEvictGetInprogressLimit` are one function.
func InprogressLimit(overshoot int64, growthRate int) int {
	if growthRate <= 0 {
		growthRate = 1
	}
	extra := overshoot
	if extra < 0 {
		extra = 0
	}
	return 1 + int(extra)/growthRate
}

// MemToFree computes how many bytes must be evicted to bring usedMemory
// back under the effective maxmemory, applying MaxmemoryScaledownPct to
// simulate `maxmemory_scale_from` (§4.6).
func (e *Engine) MemToFree(usedMemory, maxmemory int64) int64 {
	effective := maxmemory
	if e.cfg.MaxmemoryScaledownPct > 0 {
		effective = maxmemory * int64(100-e.cfg.MaxmemoryScaledownPct) / 100
	}
	if usedMemory <= effective {
		return 0
	}
	return usedMemory - effective
}

// Candidate is one key nominated for eviction by the host's key-selection
// policy (LFU/LRU), passed in by the caller since key selection itself
// belongs to the embedding key-value server (spec.md §1 out-of-scope
// collaborator).
type Candidate struct {
	DBID int
	Key  []byte
}

// TryEvictFunc attempts one eviction of a candidate and returns its
// Outcome for stats/accounting purposes.
type TryEvictFunc func(Candidate) Outcome

// RunMemoryPressureLoop drives §4.6's memory-pressure eviction loop: pick
// candidates (supplied by nextCandidate, which encapsulates the host's
// LFU/LRU policy), call tryEvict, and accumulate freed bytes until either
// memToFree bytes have been freed or the consecutive-fail streak exceeds
// failInRowBreak.
//
// estimatedBytesFreed lets the caller report, per successfully-evicted
// candidate, how many bytes it believes were reclaimed -- RunMemoryPressureLoop
// has no visibility into the embedding server's object sizes.
func (e *Engine) RunMemoryPressureLoop(
	memToFree int64,
	nextCandidate func() (Candidate, bool),
	tryEvict TryEvictFunc,
	estimatedBytesFreed func(Candidate) int64,
) (freed int64, attempted int) {
	failedInRow := 0
	for freed < memToFree {
		cand, ok := nextCandidate()
		if !ok {
			break
		}
		attempted++

		outcome := tryEvict(cand)
		switch outcome {
		case OutcomeSuccSwapped, OutcomeSuccFreed:
			failedInRow = 0
			freed += estimatedBytesFreed(cand)
		default:
			failedInRow++
			if failedInRow > failInRowBreak {
				return freed, attempted
			}
		}
	}
	return freed, attempted
}

// KeepDataForBand decides whether a persistence-driven swap-out should
// keep the in-memory copy (KEEP_DATA), per §4.6: "used-memory band (>=80%
// of maxmemory => don't keep)".
func KeepDataForBand(usedMemory, maxmemory int64) bool {
	if maxmemory <= 0 {
		return true
	}
	ratio := float64(usedMemory) / float64(maxmemory)
	return ratio < 0.80
}

// clampRatio is a small helper used by the rate limiter to keep percentage
// math in [0, +Inf).
func clampRatio(r float64) float64 {
	if math.IsNaN(r) || r < 0 {
		return 0
	}
	return r
}
