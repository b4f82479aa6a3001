package rio

import (
	"context"
	"iter"
)

// Store is the persistence backend interface RIO executes against: a
// single column family keyed by the raw encoded bytes from encode.go,
// generalizing the teacher's Store[K, V] (store.go) from a typed
// key/value/expiry cache entry to the raw byte keyspace the swap engine
// owns the encoding for.
type Store interface {
	// Get returns the value for key, or ok=false if absent.
	Get(ctx context.Context, key []byte) (value []byte, ok bool, err error)
	// Put writes key=value, overwriting any existing value.
	Put(ctx context.Context, key, value []byte) error
	// Delete removes key; deleting an absent key is not an error.
	Delete(ctx context.Context, key []byte) error
	// DeleteRange removes every key in [start, end), as produced by
	// RangeKeys -- used to drop a whole object's subkeys in one disk op.
	DeleteRange(ctx context.Context, start, end []byte) error
	// Iterate yields (key, value) pairs in [start, end). The order is the
	// backend's own; valkeystore yields them in SCAN order, not key order.
	Iterate(ctx context.Context, start, end []byte) iter.Seq2[[]byte, []byte]
	// Flush persists any buffered writes (§4.5 "flush" action).
	Flush(ctx context.Context) error
	Close() error
}

// BatchStore is the optional interface a Store implements when it can
// apply a set of puts/deletes as one atomic unit, avoiding one round trip
// per key. No package in this module implements or calls it.
type BatchStore interface {
	Store
	ApplyBatch(ctx context.Context, puts map[string][]byte, deletes [][]byte) error
}
