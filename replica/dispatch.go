// Package replica implements the §4.8 replication dispatch: a pool of
// worker clients that parallelizes swap I/O for the master->replica
// stream while committing effects in strict receive order.
package replica

import (
	"crypto/rand"
	"encoding/hex"
	"sync"

	"github.com/codeGROOVE-dev/coldswap/objmeta"
)

// Command is one parsed replication-stream command, opaque to this
// package beyond what ordering and dispatch need.
type Command struct {
	Argv    [][]byte
	DB      int
	ByteLen int64 // length in the replication stream, for offset advance
}

// Worker is one reserved replication worker-client (§6 "repl.workers",
// default 256). Exactly one Command is in flight on a Worker at a time.
type Worker struct {
	id       int
	busy     bool
	cmd      *Command
	selected int // the db this worker has SELECTed, replayed from the repl client's accumulated state
	done     bool
}

// Dispatcher owns the worker pool, the pending-repl-client queue, and
// the drain routine that calls() commands in receive order (§4.8 steps
// 2 and 4).
type Dispatcher struct {
	mu sync.Mutex

	workers     []*Worker
	used        []*Worker // repl_worker_clients_used, head = oldest dispatched
	swappingQ   []*Command // repl_swapping_clients: commands waiting for a free worker

	// Call is invoked once a worker's swap has finished, in strict
	// receive order, to apply the command's effects -- the embedding
	// server's command execution, out of scope for this package.
	Call func(cmd *Command)

	// OnAssign is invoked whenever Drain hands a freshly freed worker the
	// next queued command (§4.8 step 2's queue draining into a worker
	// that just became free). The caller uses this to kick off
	// worker.RunSwap for w -- this package cannot do so itself since
	// RunSwap needs the embedding server's request.Pipeline and
	// argv-to-KeyRequests conversion, neither of which Dispatcher holds.
	OnAssign func(w *Worker)

	// applyOffset tracks how many replication-stream bytes have had
	// their commands called(), advanced per §4.8 step 4.
	applyOffset int64

	versions *objmeta.Counter
}

// NewDispatcher creates a pool of n reserved worker clients.
func NewDispatcher(n int, versions *objmeta.Counter) *Dispatcher {
	workers := make([]*Worker, n)
	for i := range workers {
		workers[i] = &Worker{id: i}
	}
	return &Dispatcher{workers: workers, versions: versions}
}

// Dispatch implements §4.8 step 2: move cmd to a free worker if one
// exists (updating the worker's selected db by replaying SELECTs), else
// append to the swapping queue and signal the caller to stop reading
// from the master stream.
func (d *Dispatcher) Dispatch(cmd *Command) (assigned bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, w := range d.workers {
		if !w.busy {
			w.busy = true
			w.cmd = cmd
			w.selected = cmd.DB
			w.done = false
			d.used = append(d.used, w)
			return true
		}
	}
	d.swappingQ = append(d.swappingQ, cmd)
	return false
}

// WorkerFinished marks w's swap as complete (§4.8 step 3: "completion
// sets CLIENT_REPL_SWAPPING=0 on that worker"). w stays in d.used --
// still occupied, not eligible for reassignment -- until Drain actually
// pops and call()s its command in receive order; reusing it any earlier
// would let Drain later call() whatever command got assigned to the slot
// in the meantime instead of the one that actually finished, silently
// dropping it and breaking the §4.8 ordered-commit invariant.
func (d *Dispatcher) WorkerFinished(w *Worker) {
	d.mu.Lock()
	defer d.mu.Unlock()
	w.done = true
}

// Drain implements §4.8 step 4: walk repl_worker_clients_used from the
// head, calling() each finished worker's command in order and advancing
// applyOffset, stopping at the first not-yet-finished worker so that
// ordering is preserved even though dispatch itself ran out of order. A
// worker freed this way is only now eligible for reuse: if the swapping
// queue has a waiting command, it is handed to the freed worker
// immediately (mirroring Dispatch's own free-worker search), and OnAssign
// is invoked -- after the lock is released, so the caller is free to
// synchronously drive that command to completion and call back into
// WorkerFinished/Drain without deadlocking.
func (d *Dispatcher) Drain() {
	d.mu.Lock()
	var assigned []*Worker

	for len(d.used) > 0 {
		w := d.used[0]
		if !w.done {
			break
		}
		cmd := w.cmd
		d.used = d.used[1:]
		w.busy = false
		w.cmd = nil
		w.done = false

		if d.Call != nil {
			d.Call(cmd)
		}
		d.applyOffset += cmd.ByteLen

		if len(d.swappingQ) > 0 {
			next := d.swappingQ[0]
			d.swappingQ = d.swappingQ[1:]
			w.busy = true
			w.cmd = next
			w.selected = next.DB
			d.used = append(d.used, w)
			assigned = append(assigned, w)
		}
	}
	d.mu.Unlock()

	if d.OnAssign != nil {
		for _, w := range assigned {
			d.OnAssign(w)
		}
	}
}

// AppliedOffset reports how many replication-stream bytes have had their
// commands called().
func (d *Dispatcher) AppliedOffset() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.applyOffset
}

// RoleChange applies §4.8's final paragraph: on slave<->master transition
// the secondary replication id is set to the previous primary's id
// (prevPrimaryReplID), and a fresh random primary replication id (40 hex
// characters) is generated. No replication offset is taken or returned.
// The version counter is bumped past all previously observed versions via
// Shift, matching shiftVersion() (§4.3) being invoked at the same
// transition point.
func (d *Dispatcher) RoleChange(prevPrimaryReplID string, observedMaxVersion uint64) RoleChangeResult {
	d.versions.Shift(observedMaxVersion)
	var id [20]byte
	_, _ = rand.Read(id[:])
	return RoleChangeResult{
		SecondaryReplID: prevPrimaryReplID,
		PrimaryReplID:   hex.EncodeToString(id[:]),
	}
}

// RoleChangeResult is the pair of replication IDs resulting from a role
// change, for the caller to install on its replication state.
type RoleChangeResult struct {
	SecondaryReplID string
	PrimaryReplID   string
}
