package swapdata

import (
	"fmt"

	"github.com/codeGROOVE-dev/coldswap/objmeta"
	"github.com/codeGROOVE-dev/coldswap/rio"
)

// setVariant implements Variant for sets: subkeys are members, no
// ordering concerns (unlike zset), so its analyze rules mirror hash's.
type setVariant struct{}

func init() { register(setVariant{}) }

func (setVariant) Type() objmeta.ObjectType { return objmeta.TypeSet }

func (setVariant) Analyze(d *Data, touched [][]byte, flags Flag) (Intention, Flag) {
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

func (setVariant) DirtySubkeysAdd(dirty map[string]struct{}, subkeys [][]byte) (map[string]struct{}, int) {
	return dirtySubkeysAddGeneric(dirty, subkeys)
}

func (setVariant) DirtySubkeysRemove(dirty map[string]struct{}, subkeys [][]byte) (map[string]struct{}, int) {
	return dirtySubkeysRemoveGeneric(dirty, subkeys)
}

func (setVariant) EncodeKeys(dbid int, key []byte, version uint64) (dataKey, scoreStart, scoreEnd []byte) {
	return rio.EncodeDataKey(dbid, key, version, nil), nil, nil
}

func (setVariant) EncodeRange(dbid int, key []byte, version uint64) (dataStart, dataEnd, scoreStart, scoreEnd []byte) {
	dataStart, dataEnd = rio.RangeKeys(rio.NamespaceData, dbid, key, version)
	return dataStart, dataEnd, nil, nil
}

func (setVariant) EncodeData(d *Data, _ int, _ []byte, _ uint64) ([]byte, map[string][]byte, objmeta.Extend, error) {
	m, ok := setValue(d.Value)
	if !ok {
		return nil, nil, objmeta.Extend{}, fmt.Errorf("swapdata: set swap-out needs map[string]struct{}, got %T", d.Value)
	}
	return encodeMemberSet(m), nil, objmeta.Extend{Len: int64(len(m))}, nil
}

func (setVariant) Decode(dataValue []byte, _ objmeta.Extend) (any, error) {
	return decodeMemberSet(dataValue)
}

func (setVariant) SwapIn(d *Data, value any, touched [][]byte) {
	decoded, ok := value.(map[string]struct{})
	if !ok {
		return
	}
	existing, ok := d.Value.(map[string]struct{})
	if !ok || existing == nil {
		existing = make(map[string]struct{}, len(decoded))
	}
	for member := range decoded {
		existing[member] = struct{}{}
	}
	d.Value = existing
	d.Hot = true
	if (setVariant{}).MergedIsHot(d, touched) {
		d.TransitionTo(PresenceHOT)
	} else {
		d.TransitionTo(PresenceWARM)
	}
}

func (setVariant) SwapOut(d *Data, flags Flag) {
	if flags.Has(FlagKEEPDATA) {
		d.TransitionTo(PresenceHOT)
		return
	}
	d.Value = nil
	d.Hot = false
	d.TransitionTo(PresenceCOLD)
}

func (setVariant) SwapDel(d *Data) {
	d.Value = nil
	d.Hot = false
	d.Meta = nil
	d.TransitionTo(PresenceDELETED)
}

func (setVariant) CleanObject(value any) bool {
	m, ok := setValue(value)
	return ok && len(m) == 0
}

func (setVariant) MergedIsHot(_ *Data, touched [][]byte) bool { return len(touched) == 0 }

func setValue(v any) (map[string]struct{}, bool) {
	if v == nil {
		return map[string]struct{}{}, true
	}
	m, ok := v.(map[string]struct{})
	return m, ok
}
