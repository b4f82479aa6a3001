// Package rio implements the §6 on-disk key encodings and the disk-op
// execution layer (RIO) that the swap request pipeline submits work to.
package rio

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/codeGROOVE-dev/coldswap/objmeta"
)

// Namespace is the single-byte prefix distinguishing the three keyspaces
// sharing one column family (§6: meta keys, data keys, score keys).
type Namespace byte

const (
	NamespaceMeta  Namespace = 'm'
	NamespaceData  Namespace = 'd'
	NamespaceScore Namespace = 's'
)

// EncodeMetaKey builds the Meta key for (dbid, key): namespace byte, big
// endian dbid, the raw key bytes (§6 "Meta key = meta-ns | dbid | key").
func EncodeMetaKey(dbid int, key []byte) []byte {
	buf := make([]byte, 1+4+len(key))
	buf[0] = byte(NamespaceMeta)
	binary.BigEndian.PutUint32(buf[1:5], uint32(uint(dbid)))
	copy(buf[5:], key)
	return buf
}

// DecodeMetaKey is the inverse of EncodeMetaKey.
func DecodeMetaKey(b []byte) (dbid int, key []byte, ok bool) {
	if len(b) < 5 || Namespace(b[0]) != NamespaceMeta {
		return 0, nil, false
	}
	return int(binary.BigEndian.Uint32(b[1:5])), b[5:], true
}

// carriesExtend reports whether t's Meta value carries an Extend payload
// on disk -- the collection types (length or segment list), not plain
// strings or the stream bookkeeping types.
func carriesExtend(t objmeta.ObjectType) bool {
	switch t {
	case objmeta.TypeHash, objmeta.TypeSet, objmeta.TypeZSet, objmeta.TypeList:
		return true
	default:
		return false
	}
}

// EncodeMetaValue builds the Meta row's value (§6 "Meta value: type_abbrev
// || expire_i64 || version_u64 || optional extend_bytes"): the fixed
// type/expire/version header followed by a varint-encoded Extend payload
// for the types that carry one -- a length for hash/set/zset, a segment
// count plus (index, len) pairs for list.
func EncodeMetaValue(m *objmeta.Meta) []byte {
	buf := make([]byte, 17, 17+2*binary.MaxVarintLen64)
	buf[0] = byte(m.Type)
	binary.BigEndian.PutUint64(buf[1:9], uint64(m.Expire))
	binary.BigEndian.PutUint64(buf[9:17], m.Version)
	if !carriesExtend(m.Type) {
		return buf
	}

	var v [binary.MaxVarintLen64]byte
	n := binary.PutVarint(v[:], m.Extend.Len)
	buf = append(buf, v[:n]...)
	if m.Type != objmeta.TypeList {
		return buf
	}

	n = binary.PutVarint(v[:], int64(len(m.Extend.Segments)))
	buf = append(buf, v[:n]...)
	for _, seg := range m.Extend.Segments {
		n = binary.PutVarint(v[:], seg.Index)
		buf = append(buf, v[:n]...)
		n = binary.PutVarint(v[:], seg.Len)
		buf = append(buf, v[:n]...)
	}
	return buf
}

// DecodeMetaValue is the inverse of EncodeMetaValue.
func DecodeMetaValue(b []byte) (*objmeta.Meta, error) {
	if len(b) < 17 {
		return nil, fmt.Errorf("rio: meta value truncated (%d bytes, want at least 17)", len(b))
	}
	m := &objmeta.Meta{
		Type:    objmeta.ObjectType(b[0]),
		Expire:  int64(binary.BigEndian.Uint64(b[1:9])),
		Version: binary.BigEndian.Uint64(b[9:17]),
	}
	rest := b[17:]
	if !carriesExtend(m.Type) {
		return m, nil
	}

	length, n := binary.Varint(rest)
	if n <= 0 {
		return nil, fmt.Errorf("rio: meta value extend length truncated")
	}
	m.Extend.Len = length
	rest = rest[n:]
	if m.Type != objmeta.TypeList {
		return m, nil
	}

	segCount, n := binary.Varint(rest)
	if n <= 0 {
		return nil, fmt.Errorf("rio: meta value segment count truncated")
	}
	rest = rest[n:]
	if segCount < 0 || segCount > int64(len(rest)) {
		return nil, fmt.Errorf("rio: meta value segment count implausible (%d)", segCount)
	}
	segs := make([]objmeta.ListSegment, 0, segCount)
	for i := int64(0); i < segCount; i++ {
		idx, n := binary.Varint(rest)
		if n <= 0 {
			return nil, fmt.Errorf("rio: meta value segment %d index truncated", i)
		}
		rest = rest[n:]
		ln, n := binary.Varint(rest)
		if n <= 0 {
			return nil, fmt.Errorf("rio: meta value segment %d len truncated", i)
		}
		rest = rest[n:]
		segs = append(segs, objmeta.ListSegment{Index: idx, Len: ln})
	}
	m.Extend.Segments = segs
	return m, nil
}

// EncodeDataKey builds the Data key for (dbid, key, version, subkey): the
// same prefix as the Meta key plus the 64-bit version and subkey, so that
// a stale version's data keys sort separately from the current version's
// (§6 "Data key = data-ns | dbid | key | version | subkey").
func EncodeDataKey(dbid int, key []byte, version uint64, subkey []byte) []byte {
	buf := make([]byte, 1+4+len(key)+1+8+len(subkey))
	off := 0
	buf[off] = byte(NamespaceData)
	off++
	binary.BigEndian.PutUint32(buf[off:off+4], uint32(uint(dbid)))
	off += 4
	copy(buf[off:], key)
	off += len(key)
	buf[off] = 0 // NUL separator between key and version, so keys may contain any byte
	off++
	binary.BigEndian.PutUint64(buf[off:off+8], version)
	off += 8
	copy(buf[off:], subkey)
	return buf
}

// DecodeDataKey is the inverse of EncodeDataKey. It requires keyLen, the
// length of the original key, because the key may contain arbitrary bytes
// including the NUL separator.
func DecodeDataKey(b []byte, keyLen int) (dbid int, key []byte, version uint64, subkey []byte, ok bool) {
	if len(b) < 1+4+keyLen+1+8 || Namespace(b[0]) != NamespaceData {
		return 0, nil, 0, nil, false
	}
	off := 1
	dbid = int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	key = b[off : off+keyLen]
	off += keyLen + 1 // skip NUL separator
	version = binary.BigEndian.Uint64(b[off : off+8])
	off += 8
	subkey = b[off:]
	return dbid, key, version, subkey, true
}

// EncodeScoreKey builds the Score key used for sorted-set secondary
// ordering: the Data key prefix followed by the member's score re-encoded
// so that IEEE-754 byte order matches numeric order (§6 "Score key =
// score-ns | dbid | key | version | encoded-score | member").
//
// encodeScoreBits flips the sign bit for positive doubles and inverts all
// bits for negative ones, which is the standard trick for making a
// big-endian float64 bit pattern sort the same as the float itself.
func EncodeScoreKey(dbid int, key []byte, version uint64, score float64, member []byte) []byte {
	buf := make([]byte, 1+4+len(key)+1+8+8+len(member))
	off := 0
	buf[off] = byte(NamespaceScore)
	off++
	binary.BigEndian.PutUint32(buf[off:off+4], uint32(uint(dbid)))
	off += 4
	copy(buf[off:], key)
	off += len(key)
	buf[off] = 0
	off++
	binary.BigEndian.PutUint64(buf[off:off+8], version)
	off += 8
	binary.BigEndian.PutUint64(buf[off:off+8], encodeScoreBits(score))
	off += 8
	copy(buf[off:], member)
	return buf
}

func encodeScoreBits(score float64) uint64 {
	bits := math.Float64bits(score)
	if bits&(1<<63) != 0 {
		return ^bits
	}
	return bits | (1 << 63)
}

func decodeScoreBits(bits uint64) float64 {
	if bits&(1<<63) != 0 {
		return math.Float64frombits(bits &^ (1 << 63))
	}
	return math.Float64frombits(^bits)
}

// DecodeScoreKey is the inverse of EncodeScoreKey.
func DecodeScoreKey(b []byte, keyLen int) (dbid int, key []byte, version uint64, score float64, member []byte, ok bool) {
	if len(b) < 1+4+keyLen+1+8+8 || Namespace(b[0]) != NamespaceScore {
		return 0, nil, 0, 0, nil, false
	}
	off := 1
	dbid = int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	key = b[off : off+keyLen]
	off += keyLen + 1
	version = binary.BigEndian.Uint64(b[off : off+8])
	off += 8
	score = decodeScoreBits(binary.BigEndian.Uint64(b[off : off+8]))
	off += 8
	member = b[off:]
	return dbid, key, version, score, member, true
}

// RangeKeys returns the [start, end) byte range covering every Data or
// Score key for (dbid, key, version), used to bulk-delete or bulk-iterate
// one object's subkeys (§6 "range delete covers one version's subkeys").
func RangeKeys(ns Namespace, dbid int, key []byte, version uint64) (start, end []byte) {
	prefix := make([]byte, 1+4+len(key)+1+8)
	off := 0
	prefix[off] = byte(ns)
	off++
	binary.BigEndian.PutUint32(prefix[off:off+4], uint32(uint(dbid)))
	off += 4
	copy(prefix[off:], key)
	off += len(key)
	prefix[off] = 0
	off++
	binary.BigEndian.PutUint64(prefix[off:off+8], version)

	start = prefix
	end = make([]byte, len(prefix))
	copy(end, prefix)
	end = incrementBytes(end)
	return start, end
}

// incrementBytes returns the lexicographically next byte string after b,
// used to turn a prefix into an exclusive range end.
func incrementBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	for i := len(out) - 1; i >= 0; i-- {
		out[i]++
		if out[i] != 0 {
			return out
		}
	}
	// All 0xff: no byte string larger than b that stays the same length;
	// append a 0x00 so the range remains well-ordered and exclusive.
	return append(append([]byte(nil), b...), 0x00)
}

// ScanCursor is the metascan cursor format (§4.7/§6): bit 0 is the
// hot/cold phase flag, the remaining 63 bits split into a session id
// bound to the scanning client and a monotonic sequence number within
// that session, packed into the 64-bit cursor clients pass back.
type ScanCursor struct {
	// Cold is true once the scan has moved past the in-memory keyspace
	// and is iterating on-disk meta rows (§6 "cursor bit 0 is the
	// hot/cold flag").
	Cold      bool
	SessionID uint32
	Seq       uint32
}

// Encode packs the cursor: bit 0 the hot/cold flag, sessionBits bits for
// the session id at the top, and the remaining 63-sessionBits bits for
// the sequence, per §6 "scan_session.bits".
func (c ScanCursor) Encode(sessionBits uint) uint64 {
	var flag uint64
	if c.Cold {
		flag = 1
	}
	return uint64(c.SessionID)<<(64-sessionBits) | uint64(c.Seq)<<1 | flag
}

// DecodeScanCursor is the inverse of ScanCursor.Encode.
func DecodeScanCursor(cursor uint64, sessionBits uint) ScanCursor {
	seqBits := 63 - sessionBits
	return ScanCursor{
		Cold:      cursor&1 == 1,
		SessionID: uint32(cursor >> (64 - sessionBits)),
		Seq:       uint32((cursor >> 1) & (1<<seqBits - 1)),
	}
}
