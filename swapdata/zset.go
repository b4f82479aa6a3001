package swapdata

import (
	"fmt"

	"github.com/codeGROOVE-dev/coldswap/objmeta"
	"github.com/codeGROOVE-dev/coldswap/rio"
)

// zsetVariant implements Variant for sorted sets: subkeys are members,
// but each write also touches the SCORE column family (rio/encode.go's
// EncodeScoreKey) to keep the secondary score ordering in sync; EncodeData
// below builds those score rows alongside the member rows.
type zsetVariant struct{}

func init() { register(zsetVariant{}) }

func (zsetVariant) Type() objmeta.ObjectType { return objmeta.TypeZSet }

func (zsetVariant) Analyze(d *Data, touched [][]byte, flags Flag) (Intention, Flag) {
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

func (zsetVariant) DirtySubkeysAdd(dirty map[string]struct{}, subkeys [][]byte) (map[string]struct{}, int) {
	return dirtySubkeysAddGeneric(dirty, subkeys)
}

func (zsetVariant) DirtySubkeysRemove(dirty map[string]struct{}, subkeys [][]byte) (map[string]struct{}, int) {
	return dirtySubkeysRemoveGeneric(dirty, subkeys)
}

func (zsetVariant) EncodeKeys(dbid int, key []byte, version uint64) (dataKey, scoreStart, scoreEnd []byte) {
	dataKey = rio.EncodeDataKey(dbid, key, version, nil)
	scoreStart, scoreEnd = rio.RangeKeys(rio.NamespaceScore, dbid, key, version)
	return dataKey, scoreStart, scoreEnd
}

func (zsetVariant) EncodeRange(dbid int, key []byte, version uint64) (dataStart, dataEnd, scoreStart, scoreEnd []byte) {
	dataStart, dataEnd = rio.RangeKeys(rio.NamespaceData, dbid, key, version)
	scoreStart, scoreEnd = rio.RangeKeys(rio.NamespaceScore, dbid, key, version)
	return dataStart, dataEnd, scoreStart, scoreEnd
}

// EncodeData serializes the member->score map into the Data row and also
// builds one Score row per member (rio.EncodeScoreKey), keeping the
// secondary score ordering described by §6 in sync with the canonical
// value written to the Data row.
func (zsetVariant) EncodeData(d *Data, dbid int, key []byte, version uint64) ([]byte, map[string][]byte, objmeta.Extend, error) {
	zs, ok := zsetValue(d.Value)
	if !ok {
		return nil, nil, objmeta.Extend{}, fmt.Errorf("swapdata: zset swap-out needs map[string]float64, got %T", d.Value)
	}
	scoreRows := make(map[string][]byte, len(zs))
	for member, score := range zs {
		scoreKey := rio.EncodeScoreKey(dbid, key, version, score, []byte(member))
		scoreRows[string(scoreKey)] = []byte(member)
	}
	return encodeMemberScores(zs), scoreRows, objmeta.Extend{Len: int64(len(zs))}, nil
}

func (zsetVariant) Decode(dataValue []byte, _ objmeta.Extend) (any, error) {
	return decodeMemberScores(dataValue)
}

func (zsetVariant) SwapIn(d *Data, value any, touched [][]byte) {
	decoded, ok := value.(map[string]float64)
	if !ok {
		return
	}
	existing, ok := d.Value.(map[string]float64)
	if !ok || existing == nil {
		existing = make(map[string]float64, len(decoded))
	}
	for member, score := range decoded {
		existing[member] = score
	}
	d.Value = existing
	d.Hot = true
	if (zsetVariant{}).MergedIsHot(d, touched) {
		d.TransitionTo(PresenceHOT)
	} else {
		d.TransitionTo(PresenceWARM)
	}
}

func (zsetVariant) SwapOut(d *Data, flags Flag) {
	if flags.Has(FlagKEEPDATA) {
		d.TransitionTo(PresenceHOT)
		return
	}
	d.Value = nil
	d.Hot = false
	d.TransitionTo(PresenceCOLD)
}

func (zsetVariant) SwapDel(d *Data) {
	d.Value = nil
	d.Hot = false
	d.Meta = nil
	d.TransitionTo(PresenceDELETED)
}

func (zsetVariant) CleanObject(value any) bool {
	m, ok := zsetValue(value)
	return ok && len(m) == 0
}

func (zsetVariant) MergedIsHot(_ *Data, touched [][]byte) bool { return len(touched) == 0 }

func zsetValue(v any) (map[string]float64, bool) {
	if v == nil {
		return map[string]float64{}, true
	}
	m, ok := v.(map[string]float64)
	return m, ok
}
