// Package ds9store adapts codeGROOVE-dev/ds9, a thin Google Cloud
// Datastore wrapper, into a rio.Store -- the cloud-backed cold tier a
// coldswapd deployment reaches for when the embedded disk engine isn't
// an option (§6 "rio.backend").
package ds9store

import (
	"context"
	"iter"

	"github.com/codeGROOVE-dev/ds9"

	"github.com/codeGROOVE-dev/coldswap/rio"
)

// entityKind is the single Datastore kind all swap rows live under; the
// namespace/dbid/key/version encoding from rio/encode.go becomes the
// entity's key name, keeping one Datastore index in sync with one RocksDB
// column family's worth of keys.
const entityKind = "ColdSwapEntry"

// entry is the Datastore entity shape: the raw encoded key plus its
// value, stored together so a Get is a single-entity lookup.
type entry struct {
	Key   []byte `datastore:",noindex"`
	Value []byte `datastore:",noindex"`
}

// Store implements rio.Store against a ds9 client.
type Store struct {
	client *ds9.Client
}

// New wraps an already-constructed ds9 client.
func New(client *ds9.Client) *Store {
	return &Store{client: client}
}

var _ rio.Store = (*Store)(nil)

func (s *Store) entityKey(key []byte) *ds9.Key {
	return ds9.NameKey(entityKind, string(key), nil)
}

func (s *Store) Get(ctx context.Context, key []byte) ([]byte, bool, error) {
	var e entry
	err := s.client.Get(ctx, s.entityKey(key), &e)
	if err == ds9.ErrNoSuchEntity {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return e.Value, true, nil
}

func (s *Store) Put(ctx context.Context, key, value []byte) error {
	_, err := s.client.Put(ctx, s.entityKey(key), &entry{Key: key, Value: value})
	return err
}

func (s *Store) Delete(ctx context.Context, key []byte) error {
	return s.client.Delete(ctx, s.entityKey(key))
}

// DeleteRange queries [start, end) and deletes every matching entity;
// Datastore keys sort lexically by name, so a >= / < filter on the
// entity's Key field reproduces the RangeKeys contract.
func (s *Store) DeleteRange(ctx context.Context, start, end []byte) error {
	keys, err := s.rangeKeys(ctx, start, end)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return s.client.DeleteMulti(ctx, keys)
}

func (s *Store) rangeKeys(ctx context.Context, start, end []byte) ([]*ds9.Key, error) {
	q := ds9.NewQuery(entityKind).
		FilterField("Key", ">=", start).
		KeysOnly()
	if len(end) > 0 {
		q = q.FilterField("Key", "<", end)
	}
	return s.client.GetAll(ctx, q, nil)
}

func (s *Store) Iterate(ctx context.Context, start, end []byte) iter.Seq2[[]byte, []byte] {
	return func(yield func([]byte, []byte) bool) {
		q := ds9.NewQuery(entityKind).FilterField("Key", ">=", start)
		if len(end) > 0 {
			q = q.FilterField("Key", "<", end)
		}
		it := s.client.Run(ctx, q)
		for {
			var e entry
			_, err := it.Next(&e)
			if err == ds9.ErrDone {
				return
			}
			if err != nil {
				return
			}
			if !yield(e.Key, e.Value) {
				return
			}
		}
	}
}

func (s *Store) Flush(context.Context) error { return nil }

func (s *Store) Close() error { return s.client.Close() }
