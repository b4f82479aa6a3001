package objmeta

import "fmt"

// ObjectType is the one-byte type tag stored in a META row (§6: "type_abbrev
// (1 byte, one of K L H S Z M X)"). The letters map onto the six supported
// value types plus a seventh tag for stream internal bookkeeping rows,
// since a stream's consumer-group state does not fit the plain
// length/segment-list payload the other collection types share.
type ObjectType byte

const (
	TypeString ObjectType = 'K'
	TypeList   ObjectType = 'L'
	TypeHash   ObjectType = 'H'
	TypeSet    ObjectType = 'S'
	TypeZSet   ObjectType = 'Z'
	TypeStreamMeta ObjectType = 'M' // consumer groups / last-id bookkeeping
	TypeStream ObjectType = 'X'
)

func (t ObjectType) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeList:
		return "list"
	case TypeHash:
		return "hash"
	case TypeSet:
		return "set"
	case TypeZSet:
		return "zset"
	case TypeStreamMeta:
		return "stream-meta"
	case TypeStream:
		return "stream"
	default:
		return fmt.Sprintf("objmeta.ObjectType(%q)", byte(t))
	}
}

// ListSegment is one contiguous run of a list's on-disk representation,
// identified by its index bounds (§3 "segment list for list").
type ListSegment struct {
	Index int64 // logical index of the segment's first element
	Len   int64
}

// Extend carries the type-specific payload of an ObjectMeta: a length for
// hash/set/zset, a segment list for list, and nothing for string/stream.
type Extend struct {
	Len      int64         // valid for TypeHash, TypeSet, TypeZSet
	Segments []ListSegment // valid for TypeList
}

// Meta is the §3 "objectMeta" descriptor: attached to any key with data on
// disk. The Version must match the version tag of every still-live subkey
// row written under this key (§3 invariant); rows with a different version
// are obsolete and ignored on read, collected on compaction.
type Meta struct {
	Type    ObjectType
	Expire  int64 // unix millis, 0 = no expire
	Version uint64
	Extend  Extend
}

// New creates a Meta for a fresh key, drawing its version from c.
func New(c *Counter, t ObjectType, expire int64) *Meta {
	return &Meta{Type: t, Expire: expire, Version: c.Next()}
}

// Len returns the Extend.Len payload, or 0 for types that don't carry one.
func (m *Meta) Len() int64 {
	return m.Extend.Len
}

// Equal reports whether two Meta values describe the same logical state
// (used by persist.Recover to compare a rebuilt meta against the stored
// one, §4.7).
func (m *Meta) Equal(o *Meta) bool {
	if m == nil || o == nil {
		return m == o
	}
	if m.Type != o.Type || m.Expire != o.Expire || m.Version != o.Version {
		return false
	}
	if m.Type == TypeList {
		return segmentsEqual(m.Extend.Segments, o.Extend.Segments)
	}
	return m.Extend.Len == o.Extend.Len
}

func segmentsEqual(a, b []ListSegment) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
