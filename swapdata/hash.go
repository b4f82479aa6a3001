package swapdata

import (
	"fmt"

	"github.com/codeGROOVE-dev/coldswap/objmeta"
	"github.com/codeGROOVE-dev/coldswap/rio"
)

// hashVariant implements Variant for hashes: subkeys are field names,
// meta carries a length (Meta.Extend.Len) but no segment list.
type hashVariant struct{}

func init() { register(hashVariant{}) }

func (hashVariant) Type() objmeta.ObjectType { return objmeta.TypeHash }

func (hashVariant) Analyze(d *Data, touched [][]byte, flags Flag) (Intention, Flag) {
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

func (hashVariant) DirtySubkeysAdd(dirty map[string]struct{}, subkeys [][]byte) (map[string]struct{}, int) {
	return dirtySubkeysAddGeneric(dirty, subkeys)
}

func (hashVariant) DirtySubkeysRemove(dirty map[string]struct{}, subkeys [][]byte) (map[string]struct{}, int) {
	return dirtySubkeysRemoveGeneric(dirty, subkeys)
}

func (hashVariant) EncodeKeys(dbid int, key []byte, version uint64) (dataKey, scoreStart, scoreEnd []byte) {
	return rio.EncodeDataKey(dbid, key, version, nil), nil, nil
}

func (hashVariant) EncodeRange(dbid int, key []byte, version uint64) (dataStart, dataEnd, scoreStart, scoreEnd []byte) {
	dataStart, dataEnd = rio.RangeKeys(rio.NamespaceData, dbid, key, version)
	return dataStart, dataEnd, nil, nil
}

func (hashVariant) EncodeData(d *Data, _ int, _ []byte, _ uint64) ([]byte, map[string][]byte, objmeta.Extend, error) {
	m, ok := hashValue(d.Value)
	if !ok {
		return nil, nil, objmeta.Extend{}, fmt.Errorf("swapdata: hash swap-out needs map[string][]byte, got %T", d.Value)
	}
	return encodeFieldMap(m), nil, objmeta.Extend{Len: int64(len(m))}, nil
}

func (hashVariant) Decode(dataValue []byte, _ objmeta.Extend) (any, error) {
	return decodeFieldMap(dataValue)
}

func (hashVariant) SwapIn(d *Data, value any, touched [][]byte) {
	decoded, ok := value.(map[string][]byte)
	if !ok {
		return
	}
	existing, ok := d.Value.(map[string][]byte)
	if !ok || existing == nil {
		existing = make(map[string][]byte, len(decoded))
	}
	for field, v := range decoded {
		existing[field] = v
	}
	d.Value = existing
	d.Hot = true
	if (hashVariant{}).MergedIsHot(d, touched) {
		d.TransitionTo(PresenceHOT)
	} else {
		d.TransitionTo(PresenceWARM)
	}
}

func (hashVariant) SwapOut(d *Data, flags Flag) {
	if flags.Has(FlagKEEPDATA) {
		d.TransitionTo(PresenceHOT)
		return
	}
	d.Value = nil
	d.Hot = false
	d.TransitionTo(PresenceCOLD)
}

func (hashVariant) SwapDel(d *Data) {
	d.Value = nil
	d.Hot = false
	d.Meta = nil
	d.TransitionTo(PresenceDELETED)
}

func (hashVariant) CleanObject(value any) bool {
	m, ok := hashValue(value)
	return ok && len(m) == 0
}

func (hashVariant) MergedIsHot(_ *Data, touched [][]byte) bool { return len(touched) == 0 }

func hashValue(v any) (map[string][]byte, bool) {
	if v == nil {
		return map[string][]byte{}, true
	}
	m, ok := v.(map[string][]byte)
	return m, ok
}
