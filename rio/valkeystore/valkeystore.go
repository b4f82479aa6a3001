// Package valkeystore adapts a valkey-go client into a rio.Store, so the
// swap engine can target a Valkey/Redis-protocol cluster as its cold
// tier instead of (or fronting) an embedded on-disk engine.
package valkeystore

import (
	"bytes"
	"context"
	"errors"
	"iter"

	"github.com/valkey-io/valkey-go"

	"github.com/codeGROOVE-dev/coldswap/rio"
)

// Store implements rio.Store against a Valkey client. Keys and values
// are opaque bytes; the column-family split (meta/data/score) lives
// entirely in the encoding of the key, so one Store/one logical
// Valkey keyspace serves all three namespaces from rio/encode.go.
type Store struct {
	client valkey.Client
}

// New wraps an already-constructed valkey.Client.
func New(client valkey.Client) *Store {
	return &Store{client: client}
}

var _ rio.Store = (*Store)(nil)

func (s *Store) Get(ctx context.Context, key []byte) ([]byte, bool, error) {
	resp := s.client.Do(ctx, s.client.B().Get().Key(string(key)).Build())
	if resp.Error() != nil {
		if errors.Is(resp.Error(), valkey.Nil) {
			return nil, false, nil
		}
		return nil, false, resp.Error()
	}
	v, err := resp.AsBytes()
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (s *Store) Put(ctx context.Context, key, value []byte) error {
	cmd := s.client.B().Set().Key(string(key)).Value(valkey.BinaryString(value)).Build()
	return s.client.Do(ctx, cmd).Error()
}

func (s *Store) Delete(ctx context.Context, key []byte) error {
	return s.client.Do(ctx, s.client.B().Del().Key(string(key)).Build()).Error()
}

// DeleteRange scans [start, end) and deletes every key found, since
// Valkey has no native range-delete over an arbitrary byte prefix.
func (s *Store) DeleteRange(ctx context.Context, start, end []byte) error {
	for k := range s.Iterate(ctx, start, end) {
		if err := s.Delete(ctx, k); err != nil {
			return err
		}
	}
	return nil
}

// Iterate uses SCAN with a MATCH prefix derived from start, then filters
// client-side to [start, end) -- Valkey SCAN is not range-ordered, so
// this trades some extra filtering for staying within the plain key/value
// command surface.
func (s *Store) Iterate(ctx context.Context, start, end []byte) iter.Seq2[[]byte, []byte] {
	return func(yield func([]byte, []byte) bool) {
		var cursor uint64
		for {
			cmd := s.client.B().Scan().Cursor(cursor).Match(string(start) + "*").Count(256).Build()
			resp := s.client.Do(ctx, cmd)
			if resp.Error() != nil {
				return
			}
			entry, err := resp.AsScanEntry()
			if err != nil {
				return
			}
			for _, k := range entry.Elements {
				kb := []byte(k)
				if bytes.Compare(kb, start) < 0 {
					continue
				}
				if len(end) > 0 && bytes.Compare(kb, end) >= 0 {
					continue
				}
				v, ok, err := s.Get(ctx, kb)
				if err != nil || !ok {
					continue
				}
				if !yield(kb, v) {
					return
				}
			}
			cursor = entry.Cursor
			if cursor == 0 {
				return
			}
		}
	}
}

func (s *Store) Flush(context.Context) error { return nil }

func (s *Store) Close() error {
	s.client.Close()
	return nil
}
