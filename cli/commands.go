// Package cli implements the §6 CLI surface: SWAP.EVICT, SWAP.LOAD,
// SWAP.EXPIRED, SWAP.SCANEXPIRE, SWAP.MUTEXOP, and DEBUG SWAPOUT.
package cli

import (
	"fmt"

	"github.com/codeGROOVE-dev/coldswap/evict"
)

// Evictor is the subset of evict.Engine/request.Pipeline the CLI needs to
// force an eviction -- kept as an interface so this package doesn't
// import request, which would create an import cycle with a Server that
// wires both together.
type Evictor interface {
	ForceEvict(db int, key []byte) evict.Outcome
}

// EvictResult is one key's outcome for SWAP.EVICT / DEBUG SWAPOUT.
type EvictResult struct {
	Key     []byte
	Outcome evict.Outcome
}

// SwapEvict implements `SWAP.EVICT key [key ...]`: force evict the
// listed keys; reply = number actually submitted for eviction (§6).
func SwapEvict(e Evictor, db int, keys [][]byte) (submitted int, results []EvictResult) {
	results = make([]EvictResult, 0, len(keys))
	for _, k := range keys {
		outcome := e.ForceEvict(db, k)
		results = append(results, EvictResult{Key: k, Outcome: outcome})
		if outcome == evict.OutcomeSuccSwapped || outcome == evict.OutcomeSuccFreed {
			submitted++
		}
	}
	return submitted, results
}

// Loader is the subset of the pipeline needed to force-load keys.
type Loader interface {
	ForceLoad(db int, key []byte) error
}

// SwapLoad implements `SWAP.LOAD key [key ...]`: force load the listed
// keys into memory.
func SwapLoad(l Loader, db int, keys [][]byte) (loaded int, errs []error) {
	for _, k := range keys {
		if err := l.ForceLoad(db, k); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", k, err))
			continue
		}
		loaded++
	}
	return loaded, errs
}

// ExpireScanner is the subset needed by the cold-key TTL enforcement
// commands.
type ExpireScanner interface {
	NextExpiredCandidate(db int) (key []byte, expire int64, ok bool)
}

// SwapExpired implements the internal `SWAP.EXPIRED` command used by
// expire clients to pull the next cold key past its TTL.
func SwapExpired(s ExpireScanner, db int) (key []byte, expire int64, ok bool) {
	return s.NextExpiredCandidate(db)
}

// ScanExpireCursor is the paging state for `SWAP.SCANEXPIRE`.
type ScanExpireCursor struct {
	DB     int
	Cursor uint64
}

// SwapScanExpire implements `SWAP.SCANEXPIRE`: page through cold keys
// looking for TTL-expired ones, returning the next cursor.
func SwapScanExpire(s ExpireScanner, cur ScanExpireCursor, limit int) (found [][]byte, next ScanExpireCursor) {
	for i := 0; i < limit; i++ {
		key, _, ok := s.NextExpiredCandidate(cur.DB)
		if !ok {
			break
		}
		found = append(found, key)
	}
	return found, ScanExpireCursor{DB: cur.DB, Cursor: cur.Cursor + uint64(len(found))}
}

// Drainer is the subset of lock.Manager a server-level sync point needs
// to know whether it is safe to proceed.
type Drainer interface {
	OutstandingServerLocks() int
}

// SwapMutexOp implements `SWAP.MUTEXOP`: a server-level sync point used
// by lockGlobalAndExec. It blocks (via the caller's polling loop -- this
// function itself is non-blocking and reports readiness) until every
// outstanding key lock has drained.
func SwapMutexOp(d Drainer) (ready bool) {
	return d.OutstandingServerLocks() == 0
}

// DebugSwapout implements `DEBUG SWAPOUT [key ...]`: diagnostic evict
// with a per-key result, identical in shape to SwapEvict but intended
// for ad-hoc debugging rather than scripted use.
func DebugSwapout(e Evictor, db int, keys [][]byte) []EvictResult {
	_, results := SwapEvict(e, db, keys)
	return results
}
