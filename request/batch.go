package request

import (
	"github.com/codeGROOVE-dev/coldswap/swapdata"
)

// FlushReason records why a batch was flushed, for stats/diagnostics
// (§4.5 step 4: "force, size-limit, utility-type, thread-switch,
// intent-switch, before-sleep").
type FlushReason int

const (
	FlushForce FlushReason = iota
	FlushSizeLimit
	FlushUtilityType
	FlushThreadSwitch
	FlushIntentSwitch
	FlushBeforeSleep
)

// Batch accumulates swaps destined for one worker thread until a flush
// condition is met, implementing §4.5 step 4's dispatch rule.
type Batch struct {
	threadIdx   int
	defaultSize int
	linearSize  int

	items        []*Swap
	lastIntent   swapdata.Intention
	hasLastIntent bool
}

// NewBatch creates a batch targeting threadIdx with the given flush
// thresholds (§6 "batch.default_size", "batch.linear_size").
func NewBatch(threadIdx, defaultSize, linearSize int) *Batch {
	return &Batch{threadIdx: threadIdx, defaultSize: defaultSize, linearSize: linearSize}
}

// ThreadIdx reports which worker thread this batch targets.
func (b *Batch) ThreadIdx() int { return b.threadIdx }

// Add appends s to the batch, returning the flush reason if a threshold
// was crossed (0, false otherwise). isUtility marks a swap whose
// intention requires the batch to flush immediately regardless of size
// (§4.5: "utility-type" flush trigger, e.g. a FLUSH/MUTEXOP-style
// request that must not be reordered against a data swap already queued).
func (b *Batch) Add(s *Swap, isUtility bool) (FlushReason, bool) {
	if isUtility {
		b.items = append(b.items, s)
		b.lastIntent = s.Intention
		b.hasLastIntent = true
		return FlushUtilityType, true
	}

	if b.hasLastIntent && b.lastIntent != s.Intention && len(b.items) > 0 {
		b.items = append(b.items, s)
		b.lastIntent = s.Intention
		return FlushIntentSwitch, true
	}

	b.items = append(b.items, s)
	b.lastIntent = s.Intention
	b.hasLastIntent = true

	limit := b.defaultSize
	if len(b.items) > b.linearSize {
		// Past the linear threshold, flush eagerly every item to bound
		// worst-case per-batch memory instead of growing the default
		// threshold further.
		limit = 1
	}
	if len(b.items) >= limit {
		return FlushSizeLimit, true
	}
	return 0, false
}

// Drain empties and returns the batch's items.
func (b *Batch) Drain() []*Swap {
	out := b.items
	b.items = nil
	b.hasLastIntent = false
	return out
}

// Len reports the number of swaps currently queued.
func (b *Batch) Len() int { return len(b.items) }
