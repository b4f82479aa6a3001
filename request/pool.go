package request

import (
	"github.com/codeGROOVE-dev/coldswap/rio"
)

// Pool fans batches out across a fixed set of Batch accumulators, one per
// worker thread, mirroring §5 "a fixed pool of N worker threads (default
// 4, cap 64)". The actual disk execution is rio.Pool's job; Pool here
// only owns batch assignment and thread-index round-robin, matching
// §4.5 step 4's "target worker-thread index" concept.
type Pool struct {
	batches []*Batch
	next    int
}

// NewPool creates n per-thread batches with the given flush thresholds.
func NewPool(n, defaultSize, linearSize int) *Pool {
	if n < 1 {
		n = 1
	}
	batches := make([]*Batch, n)
	for i := range batches {
		batches[i] = NewBatch(i, defaultSize, linearSize)
	}
	return &Pool{batches: batches}
}

// Assign picks a target thread index for s, round-robin across the pool
// -- the embedding server may instead hash by key for better cache
// locality; both are valid choices for "target worker-thread index" and
// round-robin is the simpler default.
func (p *Pool) Assign() int {
	idx := p.next
	p.next = (p.next + 1) % len(p.batches)
	return idx
}

// Batch returns the accumulator for threadIdx.
func (p *Pool) Batch(threadIdx int) *Batch {
	return p.batches[threadIdx%len(p.batches)]
}

// FlushAll drains every batch, for the "before-sleep" flush trigger
// (§4.5 step 4) when the main loop is about to block waiting for I/O.
func (p *Pool) FlushAll() [][]*Swap {
	out := make([][]*Swap, 0, len(p.batches))
	for _, b := range p.batches {
		if b.Len() > 0 {
			out = append(out, b.Drain())
		}
	}
	return out
}

// NumThreads reports the configured worker-thread count.
func (p *Pool) NumThreads() int { return len(p.batches) }

// executor names the Submit method of rio.Pool. Pipeline itself holds a
// *rio.Pool directly and does not go through this interface.
type executor interface {
	Submit(r *rio.RIO) <-chan *rio.RIO
}
