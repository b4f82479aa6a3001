package replica

import (
	"github.com/codeGROOVE-dev/coldswap/request"
)

// RunSwap drives w's command through the normal swap pipeline (§4.8 step
// 3: "the worker follows the normal swap pipeline (4.5)"), then reports
// completion to d. toRequests converts a replication Command's argv into
// the one or more KeyRequests the pipeline expects -- that conversion
// depends on the embedding server's command table, so it is supplied by
// the caller rather than hardcoded here.
func RunSwap(d *Dispatcher, p *request.Pipeline, w *Worker, toRequests func(cmd *Command) []request.KeyRequest) {
	reqs := toRequests(w.cmd)
	pending := len(reqs)
	if pending == 0 {
		d.WorkerFinished(w)
		return
	}

	remaining := pending
	for _, r := range reqs {
		s := p.Admit(r)
		s.OnFinish(func(*request.Swap) {
			remaining--
			if remaining == 0 {
				d.WorkerFinished(w)
			}
		})
	}
}

// Transaction queues MULTI...EXEC commands on the repl client, dispatched
// only at EXEC time (§4.8 "Transactions (MULTI...EXEC) are queued on the
// repl client and only dispatched at EXEC time, preserving atomicity").
type Transaction struct {
	queued []*Command
	active bool
}

// Begin starts queuing for a MULTI.
func (t *Transaction) Begin() { t.active = true; t.queued = nil }

// Queue appends cmd while a transaction is active; returns false if no
// transaction is open (caller should dispatch cmd directly instead).
func (t *Transaction) Queue(cmd *Command) bool {
	if !t.active {
		return false
	}
	t.queued = append(t.queued, cmd)
	return true
}

// Exec ends the transaction and returns the queued commands for dispatch
// as one atomic unit.
func (t *Transaction) Exec() []*Command {
	cmds := t.queued
	t.active = false
	t.queued = nil
	return cmds
}

// Active reports whether a transaction is currently being queued.
func (t *Transaction) Active() bool { return t.active }
