package persist

import (
	"context"
	"log/slog"

	pkgerrors "github.com/pkg/errors"

	"github.com/codeGROOVE-dev/coldswap/objmeta"
	"github.com/codeGROOVE-dev/coldswap/rio"
)

// RebuildFeed accumulates the per-type "seen" meta that recovery rebuilds
// by feeding each DATA row under a key's prefix (§4.7 "rebuild a 'seen'
// meta by feeding each subkey to the per-type rebuild feed"). FeedErr
// counts malformed rows encountered along the way.
type RebuildFeed struct {
	Type     objmeta.ObjectType
	Version  uint64
	RowCount int64
	FeedErr  int
}

// Outcome is the §4.7 recovery-comparison table's action for one key.
type Outcome int

const (
	OutcomeDeleteMeta Outcome = iota
	OutcomeKeep
	OutcomeUpdateMeta
)

// Decide implements the §4.7 recovery table comparing a decoded meta
// row against the rebuilt feed from its DATA rows:
//
//	No subkeys for a non-string  -> DELETE meta
//	feed_err > 0                 -> DELETE meta
//	String with != 1 data row    -> DELETE meta
//	Meta type/version mismatch   -> DELETE meta
//	Equal                        -> KEEP; register key as cold
//	Unequal rebuild               -> UPDATE meta with rebuild; register cold
func Decide(stored *objmeta.Meta, feed RebuildFeed) Outcome {
	if feed.FeedErr > 0 {
		return OutcomeDeleteMeta
	}
	if stored.Type != feed.Type || stored.Version != feed.Version {
		return OutcomeDeleteMeta
	}
	if stored.Type == objmeta.TypeString {
		if feed.RowCount != 1 {
			return OutcomeDeleteMeta
		}
		return OutcomeKeep
	}
	if feed.RowCount == 0 {
		return OutcomeDeleteMeta
	}
	if stored.Len() == feed.RowCount {
		return OutcomeKeep
	}
	return OutcomeUpdateMeta
}

// ColdRegistrar is the subset of filter.Cold this package needs, kept as
// an interface here to avoid persist depending on the filter package
// directly for anything beyond "mark this key cold".
type ColdRegistrar interface {
	AddKey(key []byte)
}

// Recover scans the META column family in the store's iteration order
// (key order only where the backend provides it), rebuilds each key's
// meta from its DATA rows, and applies the §4.7 decision table. A
// recovery-phase error on one row never stops the scan (§7 "Recovery-phase
// errors ... never stop startup"); it is logged and that key's meta row
// is deleted.
func Recover(ctx context.Context, store rio.Store, cold ColdRegistrar, log *slog.Logger, rebuild func(dbid int, key []byte, storedVersion uint64) (RebuildFeed, error)) (maxVersion uint64, err error) {
	start, end := []byte{byte(rio.NamespaceMeta)}, []byte{byte(rio.NamespaceMeta) + 1}
	for k, v := range store.Iterate(ctx, start, end) {
		dbid, key, ok := rio.DecodeMetaKey(k)
		if !ok {
			continue
		}
		meta, decErr := rio.DecodeMetaValue(v)
		if decErr != nil {
			decErr = pkgerrors.Wrapf(decErr, "decode meta row db=%d key=%q", dbid, key)
			log.Warn("recovery: failed to decode meta row, deleting", "db", dbid, "key", string(key), "error", decErr)
			_ = store.Delete(ctx, k)
			continue
		}

		feed, feedErr := rebuild(dbid, key, meta.Version)
		if feedErr != nil {
			feedErr = pkgerrors.Wrapf(feedErr, "rebuild feed db=%d key=%q", dbid, key)
			log.Warn("recovery: rebuild feed failed, deleting meta", "db", dbid, "key", string(key), "error", feedErr)
			_ = store.Delete(ctx, k)
			continue
		}

		if meta.Version > maxVersion {
			maxVersion = meta.Version
		}

		switch Decide(meta, feed) {
		case OutcomeDeleteMeta:
			log.Warn("recovery: rebuilt meta rejected, deleting", "db", dbid, "key", string(key))
			_ = store.Delete(ctx, k)
		case OutcomeKeep:
			cold.AddKey(key)
		case OutcomeUpdateMeta:
			meta.Extend.Len = feed.RowCount
			_ = store.Put(ctx, k, rio.EncodeMetaValue(meta))
			cold.AddKey(key)
		}
	}
	return maxVersion, nil
}
