package swapdata

import (
	"github.com/codeGROOVE-dev/coldswap/objmeta"
)

// Data is the §3 swapData: the immutable snapshot of a key's pre-swap
// state captured at lock time. It is created when a keyRequest is
// admitted, mutated only on the worker thread during its swap, and freed
// after the main-thread completion callback (§4.5 step 7).
type Data struct {
	DB  int
	Key []byte

	// Value is the current in-memory value, nil if the key is not hot.
	// Its concrete shape belongs to the embedding key-value server
	// (spec.md §1 out-of-scope collaborator); swapdata only needs to
	// know whether it is present.
	Value any
	Hot   bool

	Expire int64 // unix millis, 0 = no TTL

	Presence Presence

	// Meta is the existing on-disk descriptor, if any was loaded or is
	// already known; MetaIsNew marks a meta built fresh by this swap
	// rather than loaded from disk.
	Meta      *objmeta.Meta
	MetaIsNew bool

	// DirtySubkeys is the set of subkeys modified in memory since the
	// last persist, nil/empty for a clean key.
	DirtySubkeys map[string]struct{}

	PropagateExpire bool
	SetDirty        bool
	SetDirtyMeta    bool
}

// NewData builds a swapData snapshot for a freshly admitted request.
func NewData(db int, key []byte) *Data {
	return &Data{DB: db, Key: key, Presence: PresenceHOT}
}

// WithMeta attaches an existing (or freshly decoded) meta to the
// snapshot.
func (d *Data) WithMeta(m *objmeta.Meta, isNew bool) *Data {
	d.Meta = m
	d.MetaIsNew = isNew
	return d
}

// MarkExpiredNoReplica applies the §4.5 step 2 special path: "expired key
// with no replica -> mark propagate-expire and coerce intention to DEL".
func (d *Data) MarkExpiredNoReplica() {
	d.PropagateExpire = true
}

// TransitionTo validates and applies a presence transition per the §4.5
// state machine (HOT->WARM, HOT->COLD, WARM->HOT, COLD->WARM, COLD->HOT,
// staying in the same state, and *->DELETED; WARM->COLD is refused). It
// does not itself
// decide which transition applies -- that is Variant.Analyze's job --
// it only enforces that the transition is one the state machine allows.
func (d *Data) TransitionTo(next Presence) bool {
	if next == PresenceDELETED {
		d.Presence = PresenceDELETED
		return true
	}
	switch d.Presence {
	case PresenceHOT:
		if next == PresenceCOLD || next == PresenceWARM || next == PresenceHOT {
			d.Presence = next
			return true
		}
	case PresenceWARM:
		if next == PresenceHOT || next == PresenceWARM {
			d.Presence = next
			return true
		}
	case PresenceCOLD:
		if next == PresenceWARM || next == PresenceHOT || next == PresenceCOLD {
			d.Presence = next
			return true
		}
	}
	return false
}
