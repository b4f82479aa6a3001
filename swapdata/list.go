package swapdata

import (
	"fmt"

	"github.com/codeGROOVE-dev/coldswap/objmeta"
	"github.com/codeGROOVE-dev/coldswap/rio"
)

// listVariant implements Variant for lists: subkeys are segmented
// indexes rather than arbitrary field names (§3 objectMeta "segment list
// for list"), so index-based commands (LINDEX/LRANGE/LSET) touching a
// partially-swapped list need their logical index rewritten against
// Meta.Extend.Segments before they can be turned into subkey requests.
type listVariant struct{}

func init() { register(listVariant{}) }

func (listVariant) Type() objmeta.ObjectType { return objmeta.TypeList }

func (listVariant) Analyze(d *Data, touched [][]byte, flags Flag) (Intention, Flag) {
	if d.PropagateExpire {
		return IntentionDEL, 0
	}
	switch d.Presence {
	case PresenceHOT:
		if len(touched) == 0 {
			return IntentionOUT, FlagMETA
		}
		return IntentionOUT, 0
	case PresenceCOLD:
		return IntentionIN, FlagMETA
	case PresenceWARM:
		if len(touched) == 0 {
			return IntentionNOP, 0
		}
		return IntentionIN, 0
	default:
		return IntentionNOP, 0
	}
}

func (listVariant) DirtySubkeysAdd(dirty map[string]struct{}, subkeys [][]byte) (map[string]struct{}, int) {
	return dirtySubkeysAddGeneric(dirty, subkeys)
}

func (listVariant) DirtySubkeysRemove(dirty map[string]struct{}, subkeys [][]byte) (map[string]struct{}, int) {
	return dirtySubkeysRemoveGeneric(dirty, subkeys)
}

func (listVariant) EncodeKeys(dbid int, key []byte, version uint64) (dataKey, scoreStart, scoreEnd []byte) {
	return rio.EncodeDataKey(dbid, key, version, nil), nil, nil
}

func (listVariant) EncodeRange(dbid int, key []byte, version uint64) (dataStart, dataEnd, scoreStart, scoreEnd []byte) {
	dataStart, dataEnd = rio.RangeKeys(rio.NamespaceData, dbid, key, version)
	return dataStart, dataEnd, nil, nil
}

// EncodeData serializes the element slice into the Data row and reports
// the whole list as one contiguous on-disk segment (§3 "segment list for
// list"): whole-object swap never fragments a list, so ArgRewrites has
// exactly one segment to resolve a logical index against.
func (listVariant) EncodeData(d *Data, _ int, _ []byte, _ uint64) ([]byte, map[string][]byte, objmeta.Extend, error) {
	items, ok := listValue(d.Value)
	if !ok {
		return nil, nil, objmeta.Extend{}, fmt.Errorf("swapdata: list swap-out needs [][]byte, got %T", d.Value)
	}
	extend := objmeta.Extend{Len: int64(len(items))}
	if len(items) > 0 {
		extend.Segments = []objmeta.ListSegment{{Index: 0, Len: int64(len(items))}}
	}
	return encodeByteList(items), nil, extend, nil
}

func (listVariant) Decode(dataValue []byte, _ objmeta.Extend) (any, error) {
	return decodeByteList(dataValue)
}

func (listVariant) SwapIn(d *Data, value any, touched [][]byte) {
	decoded, ok := value.([][]byte)
	if !ok {
		return
	}
	d.Value = decoded
	d.Hot = true
	if (listVariant{}).MergedIsHot(d, touched) {
		d.TransitionTo(PresenceHOT)
	} else {
		d.TransitionTo(PresenceWARM)
	}
}

func (listVariant) SwapOut(d *Data, flags Flag) {
	if flags.Has(FlagKEEPDATA) {
		d.TransitionTo(PresenceHOT)
		return
	}
	d.Value = nil
	d.Hot = false
	d.TransitionTo(PresenceCOLD)
}

func (listVariant) SwapDel(d *Data) {
	d.Value = nil
	d.Hot = false
	d.Meta = nil
	d.TransitionTo(PresenceDELETED)
}

func (listVariant) CleanObject(value any) bool {
	items, ok := listValue(value)
	return ok && len(items) == 0
}

func (listVariant) MergedIsHot(_ *Data, touched [][]byte) bool { return len(touched) == 0 }

func listValue(v any) ([][]byte, bool) {
	if v == nil {
		return [][]byte{}, true
	}
	items, ok := v.([][]byte)
	return items, ok
}

// ArgRewrite is one rewritten index argument: Pos is the position of the
// original logical index within the logicalIndices slice passed to
// ArgRewrites, NewIndex is the index to substitute before handing the
// command to the embedding server.
type ArgRewrite struct {
	Pos      int
	NewIndex int64
}

// ArgRewrites rewrites the logical list indices in logicalIndices (the
// values of integer index arguments, e.g. LINDEX's single index or
// LRANGE's start/stop pair) against the list's current segment layout, so
// a partially-swapped list can still answer index-addressed commands
// without first loading every segment into memory.
//
// A segmented list's logical index space is partitioned by
// Meta.Extend.Segments in order; ArgRewrites locates which segment a
// logical index falls in and returns that segment's Index plus the
// index's offset within the segment. An index that falls in no segment,
// or a list with no segments, is returned unchanged.
func ArgRewrites(meta *objmeta.Meta, logicalIndices []int64) []ArgRewrite {
	if meta == nil || len(meta.Extend.Segments) == 0 {
		out := make([]ArgRewrite, len(logicalIndices))
		for i, idx := range logicalIndices {
			out[i] = ArgRewrite{Pos: i, NewIndex: idx}
		}
		return out
	}

	out := make([]ArgRewrite, 0, len(logicalIndices))
	for i, idx := range logicalIndices {
		seg, rel := locateSegment(meta.Extend.Segments, idx)
		if seg == nil {
			out = append(out, ArgRewrite{Pos: i, NewIndex: idx})
			continue
		}
		out = append(out, ArgRewrite{Pos: i, NewIndex: rel})
	}
	return out
}

func locateSegment(segments []objmeta.ListSegment, logicalIndex int64) (*objmeta.ListSegment, int64) {
	var cursor int64
	for i := range segments {
		seg := segments[i]
		if logicalIndex < cursor+seg.Len {
			return &segments[i], logicalIndex - cursor + seg.Index
		}
		cursor += seg.Len
	}
	return nil, 0
}
