// Package swapdata implements the §3/§4.5 swapData snapshot, the
// per-type analyze/encode/decode/merge rules (swapAna), and the
// metascan cursor session used by SWAP.SCANEXPIRE-style scans.
package swapdata

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/codeGROOVE-dev/coldswap/objmeta"
)

// Intention is the outcome of analyzing a keyRequest against in-memory
// state (§4.5 step 3): NOP/IN/OUT/DEL.
type Intention int

const (
	IntentionNOP Intention = iota
	IntentionIN
	IntentionOUT
	IntentionDEL
)

func (i Intention) String() string {
	switch i {
	case IntentionNOP:
		return "NOP"
	case IntentionIN:
		return "IN"
	case IntentionOUT:
		return "OUT"
	case IntentionDEL:
		return "DEL"
	default:
		return "UNKNOWN"
	}
}

// Flag is a bitset of intention modifiers (§4.5 step 3).
type Flag uint32

const (
	FlagDEL Flag = 1 << iota
	FlagMOCK
	FlagOVERWRITE
	FlagFORCEHOT
	FlagMETA
	FlagPERSIST
	FlagKEEPDATA
	FlagOOMCheck
)

func (f Flag) Has(bit Flag) bool { return f&bit != 0 }

// Presence is the §4.5 state machine for a swapData object.
type Presence int

const (
	PresenceHOT Presence = iota
	PresenceWARM
	PresenceCOLD
	PresenceDELETED
)

func (p Presence) String() string {
	switch p {
	case PresenceHOT:
		return "HOT"
	case PresenceWARM:
		return "WARM"
	case PresenceCOLD:
		return "COLD"
	case PresenceDELETED:
		return "DELETED"
	default:
		return "UNKNOWN"
	}
}

// Variant is the set of per-type rules a swapData's object type selects:
// analyze (decide intention/flags), encode (build RIOs for a chosen
// intention), decode (turn RIO results back into rebuilt subkey state),
// and merge (fold decoded subkeys into the in-memory value). Each
// concrete type in string.go/hash.go/set.go/zset.go/list.go implements
// this the way the per-type swapAna/swapEncode/swapDecode functions do
// in the original design, generalized into one Go interface so the
// pipeline dispatches on objmeta.ObjectType without a type switch at
// every call site.
type Variant interface {
	Type() objmeta.ObjectType

	// Analyze decides the swap intention for the current request given
	// the snapshot's presence and the touched subkeys (empty for a
	// whole-key request).
	Analyze(d *Data, touchedSubkeys [][]byte, flags Flag) (Intention, Flag)

	// DirtySubkeysAdd records that subkeys were modified in memory,
	// returning the updated dirty set -- this always preserves and
	// returns the new sublen (resolving the "more informative" variant
	// from the dirty-subkey bookkeeping question: callers that only
	// need the boolean can check len(result) > 0, but every caller gets
	// the count for free).
	DirtySubkeysAdd(dirty map[string]struct{}, subkeys [][]byte) (updated map[string]struct{}, sublen int)

	// DirtySubkeysRemove is the inverse of DirtySubkeysAdd, called once
	// a subkey's dirty write has been durably persisted.
	DirtySubkeysRemove(dirty map[string]struct{}, subkeys [][]byte) (updated map[string]struct{}, sublen int)

	// EncodeKeys returns the Data key (and, for zset, the Score key
	// range) one whole-object swap touches for (dbid, key, version) --
	// the rows EncodeData writes and Decode reads back.
	EncodeKeys(dbid int, key []byte, version uint64) (dataKey []byte, scoreStart, scoreEnd []byte)

	// EncodeRange returns the [start, end) ranges covering every Data
	// (and, for zset, Score) row belonging to (dbid, key, version), used
	// by a whole-object SWAP_DEL to drop every row in one bulk delete.
	EncodeRange(dbid int, key []byte, version uint64) (dataStart, dataEnd, scoreStart, scoreEnd []byte)

	// EncodeData serializes d.Value into the Data row value (and, for
	// zset, one Score row per member) this swap-out writes, returning
	// the Extend payload the new Meta row should carry.
	EncodeData(d *Data, dbid int, key []byte, version uint64) (dataValue []byte, scoreRows map[string][]byte, extend objmeta.Extend, err error)

	// Decode is the inverse of EncodeData: it rebuilds an in-memory value
	// from a Data row's raw bytes, given the Extend payload already known
	// from the key's Meta.
	Decode(dataValue []byte, extend objmeta.Extend) (value any, err error)

	// SwapIn installs a freshly decoded value into d, merging it with any
	// value already present and driving d's presence transition. touched
	// is the set of subkeys this particular request asked for (empty for
	// a whole-key request).
	SwapIn(d *Data, value any, touched [][]byte)

	// SwapOut clears the in-memory value this swap persisted unless
	// flags carries FlagKEEPDATA, and drives d's presence transition.
	SwapOut(d *Data, flags Flag)

	// SwapDel clears d's in-memory value and meta for a deleted key.
	SwapDel(d *Data)

	// CleanObject reports whether value is an empty collection (a hash,
	// set, zset or list with no members left) that should be deleted
	// outright rather than persisted as an empty hot shell. Strings are
	// never "clean" this way.
	CleanObject(value any) bool

	// MergedIsHot reports whether, after SwapIn merges newly decoded data
	// into d, the object is now fully resident in memory (no cold portion
	// left) given touched, the subkeys this request asked for -- a
	// whole-key request (touched empty) always fully hydrates; a
	// subkey-scoped request leaves the rest of a collection cold.
	MergedIsHot(d *Data, touched [][]byte) bool
}

// registry maps an ObjectType to its Variant, populated by each type
// file's init().
var registry = map[objmeta.ObjectType]Variant{}

func register(v Variant) { registry[v.Type()] = v }

// VariantFor returns the registered Variant for t, or (nil, false) if t
// is unsupported -- the latter is a SetupError (§7 "type not supported").
func VariantFor(t objmeta.ObjectType) (Variant, bool) {
	v, ok := registry[t]
	return v, ok
}

// dirtySubkeysAddGeneric/RemoveGeneric are the shared subkey dirty-set
// bookkeeping every Variant's DirtySubkeysAdd/Remove delegates to: the
// per-type rules differ only in what counts as "a subkey" (none, for
// string), not in how the dirty set itself is maintained.
func dirtySubkeysAddGeneric(dirty map[string]struct{}, subkeys [][]byte) (map[string]struct{}, int) {
	if dirty == nil {
		dirty = make(map[string]struct{}, len(subkeys))
	}
	for _, sk := range subkeys {
		dirty[string(sk)] = struct{}{}
	}
	return dirty, len(dirty)
}

func dirtySubkeysRemoveGeneric(dirty map[string]struct{}, subkeys [][]byte) (map[string]struct{}, int) {
	for _, sk := range subkeys {
		delete(dirty, string(sk))
	}
	return dirty, len(dirty)
}

// The functions below are the shared Data-row wire codec every collection
// Variant's EncodeData/Decode builds on: a varint entry count followed by
// varint-length-prefixed byte strings (§6 describes the Meta row's format
// precisely but leaves the Data row's collection payload to the type; this
// mirrors rio/encode.go's own varint use for Extend so the two codecs read
// the same way).

func encodeByteList(items [][]byte) []byte {
	buf := make([]byte, 0, 16*(len(items)+1))
	var v [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(v[:], uint64(len(items)))
	buf = append(buf, v[:n]...)
	for _, it := range items {
		n = binary.PutUvarint(v[:], uint64(len(it)))
		buf = append(buf, v[:n]...)
		buf = append(buf, it...)
	}
	return buf
}

func decodeByteList(b []byte) ([][]byte, error) {
	count, n := binary.Uvarint(b)
	if n <= 0 {
		return nil, fmt.Errorf("swapdata: truncated entry count")
	}
	b = b[n:]
	out := make([][]byte, 0, count)
	for i := uint64(0); i < count; i++ {
		l, n := binary.Uvarint(b)
		if n <= 0 || uint64(len(b)-n) < l {
			return nil, fmt.Errorf("swapdata: truncated entry %d", i)
		}
		b = b[n:]
		out = append(out, append([]byte(nil), b[:l]...))
		b = b[l:]
	}
	return out, nil
}

// encodeFieldMap/decodeFieldMap round-trip a hash's field->value map as a
// flattened field,value,field,value... byte list.
func encodeFieldMap(m map[string][]byte) []byte {
	flat := make([][]byte, 0, 2*len(m))
	for _, field := range sortedKeys(m) {
		flat = append(flat, []byte(field), m[field])
	}
	return encodeByteList(flat)
}

func decodeFieldMap(b []byte) (map[string][]byte, error) {
	flat, err := decodeByteList(b)
	if err != nil {
		return nil, err
	}
	if len(flat)%2 != 0 {
		return nil, fmt.Errorf("swapdata: odd field/value count decoding hash")
	}
	m := make(map[string][]byte, len(flat)/2)
	for i := 0; i+1 < len(flat); i += 2 {
		m[string(flat[i])] = flat[i+1]
	}
	return m, nil
}

// encodeMemberSet/decodeMemberSet round-trip a set's member set.
func encodeMemberSet(m map[string]struct{}) []byte {
	members := make([][]byte, 0, len(m))
	for _, member := range sortedSetKeys(m) {
		members = append(members, []byte(member))
	}
	return encodeByteList(members)
}

func decodeMemberSet(b []byte) (map[string]struct{}, error) {
	members, err := decodeByteList(b)
	if err != nil {
		return nil, err
	}
	m := make(map[string]struct{}, len(members))
	for _, member := range members {
		m[string(member)] = struct{}{}
	}
	return m, nil
}

// encodeMemberScores/decodeMemberScores round-trip a zset's member->score
// map: each entry is a varint-length-prefixed member followed by its score
// as an 8-byte big-endian IEEE-754 bit pattern.
func encodeMemberScores(m map[string]float64) []byte {
	buf := make([]byte, 0, 24*(len(m)+1))
	var v [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(v[:], uint64(len(m)))
	buf = append(buf, v[:n]...)
	for _, member := range sortedScoreKeys(m) {
		n = binary.PutUvarint(v[:], uint64(len(member)))
		buf = append(buf, v[:n]...)
		buf = append(buf, member...)
		var sc [8]byte
		binary.BigEndian.PutUint64(sc[:], floatBits(m[member]))
		buf = append(buf, sc[:]...)
	}
	return buf
}

func decodeMemberScores(b []byte) (map[string]float64, error) {
	count, n := binary.Uvarint(b)
	if n <= 0 {
		return nil, fmt.Errorf("swapdata: truncated zset entry count")
	}
	b = b[n:]
	m := make(map[string]float64, count)
	for i := uint64(0); i < count; i++ {
		l, n := binary.Uvarint(b)
		if n <= 0 || uint64(len(b)-n) < l+8 {
			return nil, fmt.Errorf("swapdata: truncated zset entry %d", i)
		}
		b = b[n:]
		member := string(b[:l])
		b = b[l:]
		m[member] = bitsToFloat(binary.BigEndian.Uint64(b[:8]))
		b = b[8:]
	}
	return m, nil
}

func floatBits(f float64) uint64   { return math.Float64bits(f) }
func bitsToFloat(b uint64) float64 { return math.Float64frombits(b) }

func sortedKeys(m map[string][]byte) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortedSetKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortedScoreKeys(m map[string]float64) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
