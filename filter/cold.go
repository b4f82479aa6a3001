package filter

import "sync/atomic"

// Reason identifies which half of the composite filter answered
// mayContainKey/mayContainSubkey (§4.2 "filt-reason").
type Reason int

const (
	ReasonCuckoo Reason = iota
	ReasonAbsent
)

func (r Reason) String() string {
	if r == ReasonAbsent {
		return "ABSENT"
	}
	return "CUCKOO"
}

// subkeyAbsentKey joins a key and subkey into one absent-cache entry. NUL
// is not a legal byte in either a Redis key or a hash/set/zset member once
// encoded through the wire protocol, so it is a safe separator here.
func subkeyAbsentKey(key, subkey []byte) string {
	buf := make([]byte, 0, len(key)+1+len(subkey))
	buf = append(buf, key...)
	buf = append(buf, 0)
	buf = append(buf, subkey...)
	return string(buf)
}

// Cold wraps a lazily constructed cuckoo filter and an optional absent LRU,
// implementing §4.2's composite "can this key/subkey be absent from disk?"
// oracle for one database. Touched only on the main thread (§5): it is not
// safe for concurrent use, matching the teacher's own single-goroutine
// ghost-bloom bookkeeping in s3fifo shards.
type Cold struct {
	bitType       BitType
	estimatedKeys int
	cuckoo        *Cuckoo // lazily constructed on first AddKey

	absentEnabled  bool
	absent         *LRU // keys and "key\x00subkey" pairs known absent from disk
	falsePositives uint64

	// disabled is the cuckoo-disable signal. NewCold gives each Cold its
	// own; NewColdShared lets several Cold instances (one per database)
	// share one, so that one db's permanent insert failure disables
	// cuckoo lookups everywhere (§4.2/§7).
	disabled *atomic.Bool
}

// NewCold creates a cold filter with its own private disable signal. Pass
// absentCapacity<=0 to disable the absent cache (§6 "absent_cache.enabled").
func NewCold(bitType BitType, estimatedKeys, absentCapacity int) *Cold {
	return newCold(bitType, estimatedKeys, absentCapacity, new(atomic.Bool))
}

// NewColdShared is NewCold but wires disabled as the cuckoo-disable signal
// instead of a private one. The original's coldFilterDisableCuckooFilters
// loops every database and disables each one's cuckoo filter the moment
// any single insert permanently fails; passing the same *atomic.Bool to
// every database's Cold reproduces that server-wide behavior without a
// central registry of Cold instances.
func NewColdShared(bitType BitType, estimatedKeys, absentCapacity int, disabled *atomic.Bool) *Cold {
	return newCold(bitType, estimatedKeys, absentCapacity, disabled)
}

func newCold(bitType BitType, estimatedKeys, absentCapacity int, disabled *atomic.Bool) *Cold {
	c := &Cold{bitType: bitType, estimatedKeys: estimatedKeys, disabled: disabled}
	if absentCapacity > 0 {
		c.absentEnabled = true
		c.absent = NewLRU(absentCapacity)
	}
	return c
}

func (c *Cold) ensureCuckoo() *Cuckoo {
	if c.cuckoo == nil {
		c.cuckoo = NewCuckoo(c.bitType, c.estimatedKeys)
	}
	return c.cuckoo
}

// AddKey registers key as cold: cuckoo gains it, the absent cache drops it.
// Invariant (§3): a key inserted here is never deleted from disk without
// also being removed via DeleteKey.
func (c *Cold) AddKey(key []byte) {
	if c.absentEnabled {
		c.absent.Delete(string(key))
	}
	if c.disabled.Load() {
		return
	}
	cf := c.ensureCuckoo()
	if !cf.Insert(key) && cf.Disqualified() {
		c.disabled.Store(true)
	}
}

// DeleteKey removes key from the cuckoo filter only -- the absent cache is
// not touched, since a just-deleted key is not "known absent", it's simply
// no longer tracked (§8 scenario 3: mayContain may still return true right
// after a delete; only a subsequent keyNotFound moves it to absent).
func (c *Cold) DeleteKey(key []byte) {
	if c.cuckoo != nil {
		c.cuckoo.Delete(key)
	}
}

// KeyNotFound is called after a disk GET for key returns nothing. It
// records the absence and, if the cuckoo filter was consulted for this
// lookup, counts a false positive.
func (c *Cold) KeyNotFound(key []byte, cuckooWasQueried bool) {
	if c.absentEnabled {
		c.absent.Put(string(key))
	}
	if cuckooWasQueried {
		c.falsePositives++
	}
}

// SubkeyNotFound mirrors KeyNotFound for a (key, subkey) pair; subkey
// variants only ever touch the absent cache (§4.2).
func (c *Cold) SubkeyNotFound(key, subkey []byte) {
	if c.absentEnabled {
		c.absent.Put(subkeyAbsentKey(key, subkey))
	}
}

// MayContainKey answers "might key actually be on disk?" without touching
// disk -- callers use false to skip a disk round-trip entirely. Returns
// false (known absent, filtered) when the absent cache already proved the
// key missing, or when the cuckoo filter has data and does not hold the
// key; returns true (must check disk) whenever the cuckoo filter holds
// the key, has no data yet, or is disabled. Invariant
// (§4.2): a false negative -- answering false for a key that is actually
// on disk -- is impossible as long as AddKey is called on every
// successful disk write.
func (c *Cold) MayContainKey(key []byte) (bool, Reason) {
	if c.absentEnabled && c.absent.Get(string(key)) {
		return false, ReasonAbsent
	}
	if c.cuckoo == nil || c.disabled.Load() {
		// No cuckoo data yet, or disabled: cannot rule the key out, so a
		// disk round-trip is still required -- never a false negative.
		return true, ReasonCuckoo
	}
	if !c.cuckoo.Contains(key) {
		return false, ReasonCuckoo
	}
	return true, ReasonCuckoo
}

// MayContainSubkey mirrors MayContainKey for one (key, subkey) pair,
// consulting only the absent cache (subkeys are never in the cuckoo
// filter, which tracks whole keys). Returns false only once
// SubkeyNotFound has recorded the pair as known-absent.
func (c *Cold) MayContainSubkey(key, subkey []byte) bool {
	if !c.absentEnabled {
		return true
	}
	return !c.absent.Get(subkeyAbsentKey(key, subkey))
}

// AddSubkey mirrors AddKey for a single subkey: it is no longer "known
// absent" once written to disk.
func (c *Cold) AddSubkey(key, subkey []byte) {
	if c.absentEnabled {
		c.absent.Delete(subkeyAbsentKey(key, subkey))
	}
}

// CuckooDisabled reports whether a prior insert failure disabled the
// cuckoo half of this filter. When constructed via NewColdShared this
// reflects every database sharing the same signal, not just this one
// (§4.2, §7).
func (c *Cold) CuckooDisabled() bool {
	return c.disabled.Load()
}

// FalsePositives returns the running false-positive counter.
func (c *Cold) FalsePositives() uint64 {
	return c.falsePositives
}

// Stats reports the underlying cuckoo filter's stats, or the zero Stat if
// no cuckoo table has been constructed yet.
func (c *Cold) Stats() Stat {
	if c.cuckoo == nil {
		return Stat{}
	}
	return c.cuckoo.Stats()
}
