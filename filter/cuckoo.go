package filter

import (
	"math/rand"

	"github.com/cespare/xxhash/v2"
)

// rng drives cuckoo kick-out slot selection. A package-level source is fine:
// the cuckoo filter is mutated only on the main thread (§5), so there is no
// concurrent access to guard against.
var rng = rand.New(rand.NewSource(0xc0ffee))

// Cuckoo filter tuning, mirroring the four bits-per-tag parameterisations a
// ctrip-swap-style filter supports. Index into bitsPerTagTable with BitType.
const (
	TagsPerBucket   = 4
	bucketExpansion = 4 // each overflow table is 4x the buckets of the last
	maxIteration    = 500
	maxTables       = 8
	tagNull         = 0 // 0 is reserved to mean "empty slot"
	minBuckets      = 16
)

// BitType selects the fingerprint width, trading memory for false-positive
// rate. BitType8 disables Contains (see its doc comment).
type BitType int

const (
	BitType8 BitType = iota
	BitType12
	BitType16
	BitType32
)

var bitsPerTagTable = [4]int{8, 12, 16, 32}

// TargetFPR returns the filter's designed false-positive rate for bt.
func TargetFPR(bt BitType) float64 {
	switch bt {
	case BitType8:
		return 0.03
	case BitType12:
		return 0.003
	case BitType16:
		return 0.0003
	case BitType32:
		return 0.0001
	default:
		return 0.03
	}
}

// victim holds a single tag that a failed kick-out chain could not place.
type victim struct {
	used  bool
	tag   uint32
	index int
}

// cuckooTable is one generation of buckets. Tags are stored as uint32 even
// for narrower bit types; bitsPerTag only bounds the mask/value range and
// therefore the FPR, not the physical packing. This trades a little memory
// density for a much simpler, allocation-free Go implementation than a
// bit-packed byte layout.
type cuckooTable struct {
	bitsPerTag int
	nbuckets   int
	buckets    [][TagsPerBucket]uint32
	victim     victim
	ntags      int
}

func newCuckooTable(bitsPerTag, nbuckets int) *cuckooTable {
	return &cuckooTable{
		bitsPerTag: bitsPerTag,
		nbuckets:   nbuckets,
		buckets:    make([][TagsPerBucket]uint32, nbuckets),
	}
}

func (t *cuckooTable) tagMask() uint32 {
	return uint32(1<<uint(t.bitsPerTag)) - 1
}

func (t *cuckooTable) bytesPerBucket() int {
	return (t.bitsPerTag*TagsPerBucket + 7) / 8
}

func (t *cuckooTable) usedMemory() int {
	return t.bytesPerBucket() * t.nbuckets
}

func (t *cuckooTable) loadFactor() float64 {
	return float64(t.ntags) / float64(t.nbuckets*TagsPerBucket)
}

func (t *cuckooTable) indexAndTag(hv uint64) (i1 int, tag uint32) {
	i1 = int((hv >> 32) & uint64(t.nbuckets-1))
	tag = uint32(hv&0xFFFFFFFF) & t.tagMask()
	if tag == tagNull {
		tag = 1
	}
	return i1, tag
}

func (t *cuckooTable) altIndex(i1 int, tag uint32) int {
	return (i1 ^ int(uint64(tag)*0x5bd1e995)) & (t.nbuckets - 1)
}

// tryInsert attempts to place tag starting at bucket i, kicking out an
// existing tag up to maxIteration times. Returns false (parking the
// displaced tag in t.victim) if it never finds a free slot.
func (t *cuckooTable) tryInsert(i int, tag uint32) bool {
	for iter := 0; iter < maxIteration; iter++ {
		b := &t.buckets[i]
		for j := range b {
			if b[j] == tagNull {
				b[j] = tag
				t.ntags++
				return true
			}
		}
		// Kick out a pseudo-random slot and continue the walk from its alt index.
		j := rng.Intn(TagsPerBucket)
		tag, b[j] = b[j], tag
		i = t.altIndex(i, tag)
	}
	t.victim = victim{used: true, tag: tag, index: i}
	return false
}

func (t *cuckooTable) containsAt(i int, tag uint32) bool {
	b := &t.buckets[i]
	for _, v := range b {
		if v == tag {
			return true
		}
	}
	return t.victim.used && t.victim.tag == tag && (t.victim.index == i)
}

func (t *cuckooTable) deleteAt(i int, tag uint32) bool {
	b := &t.buckets[i]
	for j, v := range b {
		if v == tag {
			b[j] = tagNull
			t.ntags--
			t.reinsertVictim()
			return true
		}
	}
	if t.victim.used && t.victim.tag == tag && t.victim.index == i {
		t.victim.used = false
		return true
	}
	return false
}

// reinsertVictim retries placing a parked victim now that deleteAt may have
// freed a slot.
func (t *cuckooTable) reinsertVictim() {
	if !t.victim.used {
		return
	}
	v := t.victim
	t.victim.used = false
	if !t.tryInsert(v.index, v.tag) {
		// still doesn't fit; victim already re-armed by tryInsert
	}
}

// Stat reports per-table filter statistics (§4.1 "Reported stats").
type Stat struct {
	Tags        int
	UsedMemory  int
	Tables      int
	LoadFactors []float64
}

// Cuckoo is an approximate-membership filter over fingerprints, with a
// victim slot per table and table-doubling-by-4 growth. Mutated only on
// the main thread per §5 ("Cuckoo filter: mutated only on the main
// thread; workers never touch it").
type Cuckoo struct {
	bitType BitType
	tables  []*cuckooTable // oldest first; Contains/Delete scan newest-to-oldest
	disqualified bool
}

// NewCuckoo creates a filter sized for estimatedKeys with the given
// bits-per-tag parameterisation.
func NewCuckoo(bitType BitType, estimatedKeys int) *Cuckoo {
	nbuckets := minBuckets
	want := estimatedKeys / TagsPerBucket
	for nbuckets < want {
		nbuckets <<= 1
	}
	bpt := bitsPerTagTable[bitType]
	return &Cuckoo{
		bitType: bitType,
		tables:  []*cuckooTable{newCuckooTable(bpt, nbuckets)},
	}
}

func hash(key []byte) uint64 {
	return xxhash.Sum64(key)
}

// Insert adds key to the filter. On a permanent failure to place the tag
// in any existing table, a new table with bucketExpansion times the
// buckets of the newest table is appended and the insert retried there. If
// that also fails (e.g. maxTables exceeded) the filter is disqualified:
// callers (Cold) are expected to disable cuckoo lookups server-wide
// per §4.2.
func (c *Cuckoo) Insert(key []byte) bool {
	if c.disqualified {
		return false
	}
	h := hash(key)
	newest := c.tables[len(c.tables)-1]
	i1, tag := newest.indexAndTag(h)
	i2 := newest.altIndex(i1, tag)

	if tryPlaceNoKick(newest, i1, tag) || tryPlaceNoKick(newest, i2, tag) {
		return true
	}
	if newest.tryInsert(i1, tag) {
		return true
	}

	if len(c.tables) >= maxTables {
		c.disqualified = true
		return false
	}

	grown := newCuckooTable(newest.bitsPerTag, newest.nbuckets*bucketExpansion)
	c.tables = append(c.tables, grown)
	gi1, gtag := grown.indexAndTag(h)
	if grown.tryInsert(gi1, gtag) {
		return true
	}
	c.disqualified = true
	return false
}

func tryPlaceNoKick(t *cuckooTable, i int, tag uint32) bool {
	b := &t.buckets[i]
	for j := range b {
		if b[j] == tagNull {
			b[j] = tag
			t.ntags++
			return true
		}
	}
	return false
}

// Contains reports whether key may have been inserted. Per §4.1, the
// 8-bit variant disables Contains by contract: callers must not rely on
// presence, only on absence, so this always returns true for BitType8
// (a maximally conservative answer that forces a disk round-trip).
func (c *Cuckoo) Contains(key []byte) bool {
	if c.bitType == BitType8 {
		return true
	}
	h := hash(key)
	for i := len(c.tables) - 1; i >= 0; i-- {
		t := c.tables[i]
		i1, tag := t.indexAndTag(h)
		i2 := t.altIndex(i1, tag)
		if t.containsAt(i1, tag) || t.containsAt(i2, tag) {
			return true
		}
	}
	return false
}

// Delete removes key (which must have been inserted previously; deleting a
// key that was never inserted may remove an unrelated colliding tag).
func (c *Cuckoo) Delete(key []byte) bool {
	h := hash(key)
	for i := len(c.tables) - 1; i >= 0; i-- {
		t := c.tables[i]
		i1, tag := t.indexAndTag(h)
		i2 := t.altIndex(i1, tag)
		if t.deleteAt(i1, tag) || t.deleteAt(i2, tag) {
			return true
		}
	}
	return false
}

// Disqualified reports whether a prior insert failure permanently disabled
// this filter (§4.2: "the whole cuckoo is disabled server-wide").
func (c *Cuckoo) Disqualified() bool {
	return c.disqualified
}

// Stats reports per-table statistics.
func (c *Cuckoo) Stats() Stat {
	s := Stat{Tables: len(c.tables)}
	for _, t := range c.tables {
		s.Tags += t.ntags
		s.UsedMemory += t.usedMemory()
		s.LoadFactors = append(s.LoadFactors, t.loadFactor())
	}
	return s
}
