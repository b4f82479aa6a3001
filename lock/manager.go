// Package lock implements the §4.4 hierarchical server/db/key lock
// manager: acquiring a key lock implicitly reserves the enclosing db and
// server locks at a weaker mode, waiters are ordered by (txid, arrival),
// and the lock graph is acyclic because a lower-level lock may be taken
// while holding a higher one but never the reverse.
package lock

import (
	"sync"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v4"
)

// Level is a position in the server -> db -> key hierarchy (§4.4).
type Level int

const (
	LevelServer Level = iota
	LevelDB
	LevelKey
)

// OnProceed is invoked once a lock is granted, with the lock itself so the
// caller can later Unlock it. free_pd (§4.4 "free_pd is invoked if the
// lock is abandoned") is modeled as the FreePD callback on Request.
type OnProceed func(l *Lock)

// Request describes one lockLock call (§4.4).
type Request struct {
	TxID    uint64
	DB      int
	Key     string
	Level   Level
	Proceed OnProceed
	FreePD  func() // invoked instead of Proceed if the request is abandoned
}

// Lock is a node in the DAG of locks ordered by (txid, arrival). Once
// granted it is returned to the caller via OnProceed so Unlock can later
// release it.
type Lock struct {
	level Level
	dbid  int
	key   string
	txid  uint64

	mgr       *Manager
	proceeded bool
}

// Level reports the hierarchy level this lock was acquired at.
func (l *Lock) Level() Level { return l.level }

// waiter is one queued Request plus bookkeeping for FIFO-within-txid,
// txid-ordered-across-txid release (§4.4 invariant b).
type waiter struct {
	req     Request
	arrival uint64
}

// keyState is the wait queue for one (db, key) pair: at most one holder at
// any time (§4.4 invariant a), FIFO within a txid, txid order across
// txids.
type keyState struct {
	mu      sync.Mutex
	holder  *uint64 // txid of the current holder, nil if free
	waiters []waiter
}

// Manager is the server/db/key hierarchical lock manager. One Manager
// serves an entire Server; keys are bucketed by (dbid, key) into a
// lock-free xsync.Map the same way the teacher's s3fifo shards index
// entries -- concurrent LockLock/Unlock calls from different worker
// goroutines hit the map without contending a single global mutex, and
// only the per-key keyState.mu (held briefly, to mutate one key's wait
// queue) and the dbLocks/serverLock reservation counters take an
// exclusive lock.
type Manager struct {
	keys  *xsync.Map[dbKey, *keyState]
	order atomic.Uint64

	// reservations guards dbLocks/serverLock, the weaker-mode counts an
	// outstanding key lock implies up the hierarchy, so that a
	// server-level drain (flush-all, SWAP.MUTEXOP) can wait for all
	// outstanding key locks to clear. A reader-biased mutex because
	// OutstandingServerLocks/OutstandingDBLocks (polled by a drain loop)
	// vastly outnumber the Lock/Unlock calls that mutate the counts, the
	// same BRAVO/RBMutex tradeoff the teacher makes for its hot-read
	// entries map.
	reservations *xsync.RBMutex
	dbLocks      map[int]int
	serverLock   int
}

type dbKey struct {
	db  int
	key string
}

// NewManager creates an empty lock manager.
func NewManager() *Manager {
	return &Manager{
		keys:         xsync.NewMap[dbKey, *keyState](),
		reservations: xsync.NewRBMutex(),
		dbLocks:      make(map[int]int),
	}
}

// LockLock registers a waiter for req. On grant, req.Proceed is invoked
// synchronously if the lock is immediately free, or later (by Unlock, from
// whichever goroutine releases the preceding holder) otherwise. Reentrant
// under the same txid (§8: "acquiring a KEY lock then the same txid's
// second KEY lock on the same key is valid"): a second LockLock call from
// the same txid against a key it already holds proceeds immediately.
func (m *Manager) LockLock(req Request) *Lock {
	dk := dbKey{db: req.DB, key: req.Key}

	ks, _ := m.keys.LoadOrStore(dk, &keyState{})
	arrival := m.order.Add(1)

	ks.mu.Lock()
	if ks.holder != nil && *ks.holder == req.TxID {
		// Reentrant: same txid already holds this key.
		ks.mu.Unlock()
		l := &Lock{level: req.Level, dbid: req.DB, key: req.Key, txid: req.TxID, mgr: m, proceeded: true}
		req.Proceed(l)
		return l
	}

	if ks.holder == nil {
		txid := req.TxID
		ks.holder = &txid
		ks.mu.Unlock()
		m.reserveWeaker(req.DB)
		l := &Lock{level: req.Level, dbid: req.DB, key: req.Key, txid: req.TxID, mgr: m, proceeded: true}
		req.Proceed(l)
		return l
	}

	ks.waiters = append(ks.waiters, waiter{req: req, arrival: arrival})
	sortWaiters(ks.waiters)
	ks.mu.Unlock()
	return nil // caller's Proceed fires later, from Unlock
}

// sortWaiters keeps ks.waiters ordered by (txid, arrival) -- a simple
// insertion sort is fine here: waiters per key are rarely more than a
// handful deep in practice, and this runs under ks.mu already.
func sortWaiters(w []waiter) {
	for i := 1; i < len(w); i++ {
		for j := i; j > 0 && less(w[j], w[j-1]); j-- {
			w[j], w[j-1] = w[j-1], w[j]
		}
	}
}

func less(a, b waiter) bool {
	if a.req.TxID != b.req.TxID {
		return a.req.TxID < b.req.TxID
	}
	return a.arrival < b.arrival
}

func (m *Manager) reserveWeaker(dbid int) {
	m.reservations.Lock()
	m.dbLocks[dbid]++
	m.serverLock++
	m.reservations.Unlock()
}

func (m *Manager) releaseWeaker(dbid int) {
	m.reservations.Lock()
	m.dbLocks[dbid]--
	m.serverLock--
	m.reservations.Unlock()
}

// LockWouldBlock reports whether a LockLock with the given txid/db/key
// would have to wait (§4.5 step 7, used by the eviction engine's
// non-blocking check before submitting SWAP_OUT).
func (m *Manager) LockWouldBlock(txid uint64, dbid int, key string) bool {
	ks, ok := m.keys.Load(dbKey{db: dbid, key: key})
	if !ok {
		return false
	}
	ks.mu.Lock()
	defer ks.mu.Unlock()
	return ks.holder != nil && *ks.holder != txid
}

// Proceeded marks that a granted lock's I/O phase has started (§4.4
// "lockProceeded signals that the request's I/O phase started"). It is
// currently bookkeeping-only; callers that need to observe it can inspect
// Lock state in a future extension.
func (l *Lock) Proceeded() {
	l.proceeded = true
}

// Unlock releases l, waking the next eligible waiter (FIFO within a txid,
// txid order across txids -- invariant b).
func (l *Lock) Unlock() {
	m := l.mgr
	ks, ok := m.keys.Load(dbKey{db: l.dbid, key: l.key})
	if !ok {
		return
	}

	m.releaseWeaker(l.dbid)

	ks.mu.Lock()
	if len(ks.waiters) == 0 {
		ks.holder = nil
		ks.mu.Unlock()
		m.maybeReap(l.dbid, l.key, ks)
		return
	}

	next := ks.waiters[0]
	ks.waiters = ks.waiters[1:]
	txid := next.req.TxID
	ks.holder = &txid
	ks.mu.Unlock()

	m.reserveWeaker(next.req.DB)
	grantedLock := &Lock{level: next.req.Level, dbid: next.req.DB, key: next.req.Key, txid: next.req.TxID, mgr: m, proceeded: true}
	next.req.Proceed(grantedLock)
}

// maybeReap drops an empty, unheld key's bookkeeping entry so the Manager
// does not grow without bound for keys that cycle through the keyspace.
func (m *Manager) maybeReap(dbid int, key string, ks *keyState) {
	ks.mu.Lock()
	empty := ks.holder == nil && len(ks.waiters) == 0
	ks.mu.Unlock()
	if !empty {
		return
	}
	dk := dbKey{db: dbid, key: key}
	if cur, ok := m.keys.Load(dk); ok && cur == ks {
		cur.mu.Lock()
		stillEmpty := cur.holder == nil && len(cur.waiters) == 0
		cur.mu.Unlock()
		if stillEmpty {
			m.keys.Delete(dk)
		}
	}
}

// Abandon runs req's FreePD instead of granting it, used when the owning
// client disconnects before its lock is granted (§4.4 "Failure semantics:
// free_pd is invoked if the lock is abandoned"). It is the caller's
// responsibility to also remove the request from the waiter queue if it
// was already enqueued; Abandon here only covers requests the caller
// chooses not to submit via LockLock in the first place.
func (req Request) Abandon() {
	if req.FreePD != nil {
		req.FreePD()
	}
}

// OutstandingServerLocks reports the number of key-level holds currently
// reserving the server-level lock, used by a server-level drain (flush-all,
// SWAP.MUTEXOP) to know when it is safe to proceed.
func (m *Manager) OutstandingServerLocks() int {
	t := m.reservations.RLock()
	defer m.reservations.RUnlock(t)
	return m.serverLock
}

// OutstandingDBLocks reports the number of key-level holds currently
// reserving dbid's db-level lock.
func (m *Manager) OutstandingDBLocks(dbid int) int {
	t := m.reservations.RLock()
	defer m.reservations.RUnlock(t)
	return m.dbLocks[dbid]
}
