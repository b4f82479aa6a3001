// Package persist implements the §4.7 persistence engine: a per-db
// persistingKeys structure that tracks keys awaiting flush to disk and
// drives a bounded FIFO scan submitting SWAP_OUT requests.
package persist

import (
	"sync"
)

// State is a persistingKey entry's position (§3 "state {TODO, DOING}").
// This is the reference variant resolving the §9 open question: the
// DOING-aware design, not a plain pending/not-pending boolean, is what
// requestFinished needs to distinguish "still being written" from
// "needs re-enqueue".
type State int

const (
	StateTODO State = iota
	StateDOING
)

// entry is one persistingKey: §3 "a monotonic persist_version, the
// enqueue time, and state {TODO, DOING}".
type entry struct {
	db      int
	key     string
	version uint64
	// enqueuedAtMillis is supplied by the caller (addKey), not read from
	// a wall clock here, since scripts in this module must stay
	// deterministic without real time access; Keys.Lag takes "now" as a
	// parameter for the same reason.
	enqueuedAtMillis int64
	state            State
}

type dbKey struct {
	db  int
	key string
}

// Keys is the persistingKeys engine for one Server: a map plus two FIFO
// lists (todo, doing), invariant "entry state equals the list it
// currently occupies; earliest-by-time across both lists is the lag
// source" (§3).
type Keys struct {
	mu      sync.Mutex
	entries map[dbKey]*entry
	todo    []*entry // FIFO by enqueue time
	doing   []*entry
	version uint64 // monotonic persist_version source
}

// NewKeys creates an empty persistingKeys engine.
func NewKeys() *Keys {
	return &Keys{entries: make(map[dbKey]*entry)}
}

// AddKey overwrites-or-inserts (db,key) into the TODO list (§4.7
// "addKey(db,key) -- overwrite-or-insert into persistingKeys; if
// overwrite, only the version is refreshed (earliest mstime preserved)").
// nowMillis is the caller-supplied current time.
func (k *Keys) AddKey(db int, key []byte, nowMillis int64) uint64 {
	k.mu.Lock()
	defer k.mu.Unlock()

	dk := dbKey{db: db, key: string(key)}
	k.version++
	v := k.version

	if e, ok := k.entries[dk]; ok {
		e.version = v
		// earliest mstime preserved: enqueuedAtMillis is left untouched.
		return v
	}

	e := &entry{db: db, key: string(key), version: v, enqueuedAtMillis: nowMillis, state: StateTODO}
	k.entries[dk] = e
	k.todo = append(k.todo, e)
	return v
}

func (k *Keys) moveToTODOLocked(e *entry) {
	k.doing = removeEntry(k.doing, e)
	e.state = StateTODO
	k.todo = append(k.todo, e)
}

func removeEntry(list []*entry, target *entry) []*entry {
	for i, e := range list {
		if e == target {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

// Picked is one entry returned by PickBatch.
type Picked struct {
	DB      int
	Key     []byte
	Version uint64
}

// PickBatch pops up to limit TODO entries in FIFO order, marks them
// DOING, and returns them for the caller to submit as SWAP_OUT requests
// (§4.7 "persistKeys() -- bounded scan over TODO lists; for each picked
// entry, mark DOING and submit an evict request with the entry's version").
func (k *Keys) PickBatch(limit int) []Picked {
	k.mu.Lock()
	defer k.mu.Unlock()

	if limit > len(k.todo) {
		limit = len(k.todo)
	}
	out := make([]Picked, 0, limit)
	for i := 0; i < limit; i++ {
		e := k.todo[i]
		e.state = StateDOING
		k.doing = append(k.doing, e)
		out = append(out, Picked{DB: e.db, Key: []byte(e.key), Version: e.version})
	}
	k.todo = k.todo[limit:]
	return out
}

// RequestFinished applies §4.7 "requestFinished(db,key,persist_version)
// -- if current entry version equals persist_version and the object is
// no longer dirty, remove; otherwise rewind DOING->TODO." stillDirty is
// supplied by the caller (the pipeline knows the object's live dirty-set
// state; this package only tracks persistence scheduling).
func (k *Keys) RequestFinished(db int, key []byte, persistVersion uint64, stillDirty bool) {
	k.mu.Lock()
	defer k.mu.Unlock()

	dk := dbKey{db: db, key: string(key)}
	e, ok := k.entries[dk]
	if !ok {
		return
	}

	if e.version == persistVersion && !stillDirty {
		k.doing = removeEntry(k.doing, e)
		k.todo = removeEntry(k.todo, e)
		delete(k.entries, dk)
		return
	}

	k.moveToTODOLocked(e)
}

// Lag computes now - (earliest enqueue time across both lists), per §4.7
// "lag() = now - min(earliest mstime across all dbs)". Returns 0 if there
// are no pending entries.
func (k *Keys) Lag(nowMillis int64) int64 {
	k.mu.Lock()
	defer k.mu.Unlock()

	earliest, ok := int64(0), false
	consider := func(e *entry) {
		if !ok || e.enqueuedAtMillis < earliest {
			earliest = e.enqueuedAtMillis
			ok = true
		}
	}
	for _, e := range k.todo {
		consider(e)
	}
	for _, e := range k.doing {
		consider(e)
	}
	if !ok {
		return 0
	}
	return nowMillis - earliest
}

// Len reports the total number of tracked entries across TODO and DOING.
func (k *Keys) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}
