package evict

import "time"

// RatelimitPolicy selects how clients are treated during memory/persist-lag
// overshoot (§4.6, §6 "ratelimit.policy").
type RatelimitPolicy int

const (
	RatelimitPause RatelimitPolicy = iota
	RatelimitRejectOOM
	RatelimitRejectAll
	RatelimitDisabled
)

func (p RatelimitPolicy) String() string {
	switch p {
	case RatelimitPause:
		return "PAUSE"
	case RatelimitRejectOOM:
		return "REJECT_OOM"
	case RatelimitRejectAll:
		return "REJECT_ALL"
	case RatelimitDisabled:
		return "DISABLED"
	default:
		return "UNKNOWN"
	}
}

// pauseCeiling is the 200ms bound from §4.6/§5: "the current client is
// protected for min(computed_ms, 200) ms".
const pauseCeiling = 200 * time.Millisecond

// RateLimiter implements §4.6's rate-limit policy: PAUSE briefly protects
// the current client, REJECT_OOM/REJECT_ALL reject denyoom/write commands
// with an OOM error, DISABLED never intervenes.
type RateLimiter struct {
	cfg Config
}

// NewRateLimiter builds a limiter from cfg.
func NewRateLimiter(cfg Config) *RateLimiter {
	return &RateLimiter{cfg: cfg}
}

// Decision is what the limiter decided for one command evaluation.
type Decision struct {
	Reject bool
	Pause  time.Duration
}

// Evaluate decides what to do given the current memory overshoot (bytes
// above maxmemory*ratelimit_pct/100) and persistence lag (millis above
// persist_lag_threshold). isDenyOOMOrWrite tells the limiter whether the
// command under evaluation is one REJECT_OOM/REJECT_ALL would reject.
func (r *RateLimiter) Evaluate(maxmemory, usedMemory int64, persistLagMillis int64, isDenyOOMOrWrite bool) Decision {
	if r.cfg.RatelimitPolicy == RatelimitDisabled {
		return Decision{}
	}

	memOvershoot := r.memoryOvershoot(maxmemory, usedMemory)
	lagOvershoot := persistLagMillis - r.cfg.RatelimitPersistLag
	if lagOvershoot < 0 {
		lagOvershoot = 0
	}

	if memOvershoot <= 0 && lagOvershoot <= 0 {
		return Decision{}
	}

	switch r.cfg.RatelimitPolicy {
	case RatelimitPause:
		ms := r.computePauseMillis(memOvershoot, lagOvershoot)
		d := time.Duration(ms) * time.Millisecond
		if d > pauseCeiling {
			d = pauseCeiling
		}
		return Decision{Pause: d}
	case RatelimitRejectOOM, RatelimitRejectAll:
		return Decision{Reject: isDenyOOMOrWrite}
	default:
		return Decision{}
	}
}

func (r *RateLimiter) memoryOvershoot(maxmemory, usedMemory int64) int64 {
	if maxmemory <= 0 || r.cfg.RatelimitMaxmemoryPct <= 0 {
		return 0
	}
	threshold := maxmemory * int64(r.cfg.RatelimitMaxmemoryPct) / 100
	if usedMemory <= threshold {
		return 0
	}
	return usedMemory - threshold
}

// computePauseMillis scales the pause length with overshoot above either
// threshold, using the growth rate the same way InprogressLimit uses one
// for request concurrency: more overshoot, more (bounded) pause.
func (r *RateLimiter) computePauseMillis(memOvershoot, lagOvershoot int64) int64 {
	growth := int64(r.cfg.RatelimitPauseGrowth)
	if growth <= 0 {
		growth = 1
	}
	overshoot := memOvershoot
	if lagOvershoot > overshoot {
		overshoot = lagOvershoot
	}
	return overshoot / growth
}
