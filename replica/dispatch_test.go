package replica

import (
	"testing"

	"github.com/codeGROOVE-dev/coldswap/objmeta"
)

func TestDispatcher_AssignsFreeWorker(t *testing.T) {
	d := NewDispatcher(2, objmeta.NewCounter(0))
	assigned := d.Dispatch(&Command{ByteLen: 10})
	if !assigned {
		t.Fatalf("expected immediate assignment with free workers available")
	}
}

func TestDispatcher_QueuesWhenAllBusy(t *testing.T) {
	d := NewDispatcher(1, objmeta.NewCounter(0))
	d.Dispatch(&Command{ByteLen: 1})
	assigned := d.Dispatch(&Command{ByteLen: 1})
	if assigned {
		t.Fatalf("expected the second command to queue with no free workers")
	}
}

func TestDispatcher_DrainPreservesOrder(t *testing.T) {
	d := NewDispatcher(3, objmeta.NewCounter(0))
	var called []int64
	d.Call = func(cmd *Command) { called = append(called, cmd.ByteLen) }

	d.Dispatch(&Command{ByteLen: 1})
	d.Dispatch(&Command{ByteLen: 2})
	d.Dispatch(&Command{ByteLen: 3})

	// Finish out of order: worker for cmd 2 first.
	d.WorkerFinished(d.used[1])
	d.Drain()
	if len(called) != 0 {
		t.Fatalf("expected no calls until the head-of-line command finishes, got %v", called)
	}

	d.WorkerFinished(d.used[0])
	d.Drain()
	if len(called) != 2 || called[0] != 1 || called[1] != 2 {
		t.Fatalf("expected [1 2] called once both finished in order, got %v", called)
	}

	d.WorkerFinished(d.used[0])
	d.Drain()
	if len(called) != 3 || called[2] != 3 {
		t.Fatalf("expected the third command to be called last, got %v", called)
	}
	if d.AppliedOffset() != 6 {
		t.Fatalf("expected applied offset to sum byte lengths, got %d", d.AppliedOffset())
	}
}

func TestTransaction_QueuesUntilExec(t *testing.T) {
	var tx Transaction
	if tx.Queue(&Command{}) {
		t.Fatalf("Queue should fail with no transaction open")
	}
	tx.Begin()
	tx.Queue(&Command{ByteLen: 1})
	tx.Queue(&Command{ByteLen: 2})
	cmds := tx.Exec()
	if len(cmds) != 2 {
		t.Fatalf("expected 2 queued commands at EXEC, got %d", len(cmds))
	}
	if tx.Active() {
		t.Fatalf("transaction should be closed after Exec")
	}
}

func TestDispatcher_RoleChangeShiftsVersion(t *testing.T) {
	counter := objmeta.NewCounter(5)
	d := NewDispatcher(1, counter)
	d.RoleChange("new-replid", 1000)
	if counter.Peek() <= 1000 {
		t.Fatalf("expected the version counter to shift past the observed max, got %d", counter.Peek())
	}
}
