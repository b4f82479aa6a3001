package lock

import (
	"sync"
	"testing"
	"time"
)

func TestManager_ExclusiveGrant(t *testing.T) {
	m := NewManager()
	var unlocked bool
	var l *Lock
	got := m.LockLock(Request{TxID: 1, DB: 0, Key: "k", Level: LevelKey, Proceed: func(gl *Lock) {
		l = gl
	}})
	if got == nil || l == nil {
		t.Fatalf("expected immediate grant on an uncontended key")
	}
	if m.OutstandingServerLocks() != 1 {
		t.Fatalf("expected 1 outstanding server lock, got %d", m.OutstandingServerLocks())
	}
	l.Unlock()
	unlocked = true
	if !unlocked || m.OutstandingServerLocks() != 0 {
		t.Fatalf("expected outstanding locks to drop to 0 after Unlock")
	}
}

func TestManager_ReentrantSameTxid(t *testing.T) {
	m := NewManager()
	var l1 *Lock
	m.LockLock(Request{TxID: 7, DB: 0, Key: "k", Level: LevelKey, Proceed: func(gl *Lock) { l1 = gl }})

	proceeded := false
	m.LockLock(Request{TxID: 7, DB: 0, Key: "k", Level: LevelKey, Proceed: func(gl *Lock) { proceeded = true }})
	if !proceeded {
		t.Fatalf("expected second lock from the same txid to proceed immediately")
	}
	l1.Unlock()
}

func TestManager_SecondTxidWaitsThenGranted(t *testing.T) {
	m := NewManager()
	var l1 *Lock
	var mu sync.Mutex
	granted2 := false

	m.LockLock(Request{TxID: 1, DB: 0, Key: "k", Level: LevelKey, Proceed: func(gl *Lock) { l1 = gl }})

	done := m.LockLock(Request{TxID: 2, DB: 0, Key: "k", Level: LevelKey, Proceed: func(gl *Lock) {
		mu.Lock()
		granted2 = true
		mu.Unlock()
		gl.Unlock()
	}})
	if done != nil {
		t.Fatalf("expected the second txid's request to queue, not grant immediately")
	}

	mu.Lock()
	g := granted2
	mu.Unlock()
	if g {
		t.Fatalf("txid 2 should not be granted while txid 1 holds the key")
	}

	l1.Unlock()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		g = granted2
		mu.Unlock()
		if g {
			break
		}
		time.Sleep(time.Millisecond)
	}
	if !g {
		t.Fatalf("expected txid 2 to be granted after txid 1 unlocked")
	}
}

func TestManager_LockWouldBlock(t *testing.T) {
	m := NewManager()
	if m.LockWouldBlock(1, 0, "k") {
		t.Fatalf("an unheld key should never block")
	}
	var l *Lock
	m.LockLock(Request{TxID: 1, DB: 0, Key: "k", Level: LevelKey, Proceed: func(gl *Lock) { l = gl }})
	if m.LockWouldBlock(1, 0, "k") {
		t.Fatalf("the holding txid should not block on its own key")
	}
	if !m.LockWouldBlock(2, 0, "k") {
		t.Fatalf("a different txid should block on a held key")
	}
	l.Unlock()
}

func TestManager_TxidOrderingAcrossWaiters(t *testing.T) {
	m := NewManager()
	var l1 *Lock
	var mu sync.Mutex
	var order []uint64

	m.LockLock(Request{TxID: 1, DB: 0, Key: "k", Level: LevelKey, Proceed: func(gl *Lock) { l1 = gl }})

	record := func(txid uint64) OnProceed {
		return func(gl *Lock) {
			mu.Lock()
			order = append(order, txid)
			mu.Unlock()
			gl.Unlock()
		}
	}
	// Enqueue txid 5 before txid 3; txid ordering must still release 3 first.
	m.LockLock(Request{TxID: 5, DB: 0, Key: "k", Level: LevelKey, Proceed: record(5)})
	m.LockLock(Request{TxID: 3, DB: 0, Key: "k", Level: LevelKey, Proceed: record(3)})

	l1.Unlock()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(order)
		mu.Unlock()
		if n == 2 {
			break
		}
		time.Sleep(time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 2 || order[0] != 3 || order[1] != 5 {
		t.Fatalf("expected release order [3 5], got %v", order)
	}
}
