package swapdata

import (
	"fmt"

	"github.com/codeGROOVE-dev/coldswap/objmeta"
	"github.com/codeGROOVE-dev/coldswap/rio"
)

// stringVariant implements Variant for strings: always a single data row
// with an empty subkey, keyed under the key's meta version (not version
// 0), so the analyze rules are whole-key only, never subkey-scoped.
type stringVariant struct{}

func init() { register(stringVariant{}) }

func (stringVariant) Type() objmeta.ObjectType { return objmeta.TypeString }

func (stringVariant) Analyze(d *Data, _ [][]byte, flags Flag) (Intention, Flag) {
	if d.PropagateExpire {
		return IntentionDEL, 0
	}
	switch d.Presence {
	case PresenceHOT:
		if flags.Has(FlagOOMCheck) {
			return IntentionNOP, 0
		}
		// FlagKEEPDATA here governs the persistence-driven path (§4.6:
		// flush a dirty key to disk without evicting it from memory) --
		// every command-triggered or persistence-timer OUT goes through
		// this Analyze call and should keep the hot copy by default. A
		// genuine eviction (memory pressure or SWAP.EVICT/DEBUG SWAPOUT,
		// §6) must submit its OUT with KEEP_DATA explicitly cleared
		// rather than rely on this default; the caller decides which
		// case applies before admitting the request.
		return IntentionOUT, FlagKEEPDATA
	case PresenceCOLD, PresenceWARM:
		return IntentionIN, FlagOVERWRITE
	default:
		return IntentionNOP, 0
	}
}

func (stringVariant) DirtySubkeysAdd(dirty map[string]struct{}, subkeys [][]byte) (map[string]struct{}, int) {
	return dirtySubkeysAddGeneric(dirty, subkeys)
}

func (stringVariant) DirtySubkeysRemove(dirty map[string]struct{}, subkeys [][]byte) (map[string]struct{}, int) {
	return dirtySubkeysRemoveGeneric(dirty, subkeys)
}

func (stringVariant) EncodeKeys(dbid int, key []byte, version uint64) (dataKey, scoreStart, scoreEnd []byte) {
	return rio.EncodeDataKey(dbid, key, version, nil), nil, nil
}

func (stringVariant) EncodeRange(dbid int, key []byte, version uint64) (dataStart, dataEnd, scoreStart, scoreEnd []byte) {
	dataStart, dataEnd = rio.RangeKeys(rio.NamespaceData, dbid, key, version)
	return dataStart, dataEnd, nil, nil
}

func (stringVariant) EncodeData(d *Data, _ int, _ []byte, _ uint64) ([]byte, map[string][]byte, objmeta.Extend, error) {
	b, ok := d.Value.([]byte)
	if !ok {
		return nil, nil, objmeta.Extend{}, fmt.Errorf("swapdata: string swap-out needs []byte, got %T", d.Value)
	}
	return b, nil, objmeta.Extend{}, nil
}

func (stringVariant) Decode(dataValue []byte, _ objmeta.Extend) (any, error) {
	return append([]byte(nil), dataValue...), nil
}

func (stringVariant) SwapIn(d *Data, value any, _ [][]byte) {
	d.Value = value
	d.Hot = true
	d.TransitionTo(PresenceHOT)
}

func (stringVariant) SwapOut(d *Data, flags Flag) {
	if flags.Has(FlagKEEPDATA) {
		d.TransitionTo(PresenceHOT)
		return
	}
	d.Value = nil
	d.Hot = false
	d.TransitionTo(PresenceCOLD)
}

func (stringVariant) SwapDel(d *Data) {
	d.Value = nil
	d.Hot = false
	d.Meta = nil
	d.TransitionTo(PresenceDELETED)
}

func (stringVariant) CleanObject(any) bool { return false }

func (stringVariant) MergedIsHot(*Data, [][]byte) bool { return true }
