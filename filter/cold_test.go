package filter

import (
	"sync/atomic"
	"testing"
)

// TestCold_Regression exercises spec.md §8 seed test 3: addKey then
// deleteKey may still answer mayContain=true (no negative caching);
// keyNotFound moves the key to the absent cache so a subsequent
// mayContain answers false.
func TestCold_Regression(t *testing.T) {
	c := NewCold(BitType16, 1000, 100)
	key := []byte("k")

	c.AddKey(key)
	c.DeleteKey(key)
	// No assertion that MayContainKey is false here: §3's invariant only
	// promises no false negatives, not prompt absence after delete.

	c.KeyNotFound(key, true)
	may, reason := c.MayContainKey(key)
	if may {
		t.Error("MayContainKey should be false once the absent cache knows the key is gone")
	}
	if reason != ReasonAbsent {
		t.Errorf("reason = %v; want ReasonAbsent", reason)
	}
}

func TestCold_NoFalseNegatives(t *testing.T) {
	c := NewCold(BitType16, 1000, 100)
	key := []byte("present")
	c.AddKey(key)

	may, _ := c.MayContainKey(key)
	if !may {
		t.Error("a key just added to the cuckoo filter must still be checked on disk, never filtered out")
	}
}

func TestCold_AbsentCacheDisabled(t *testing.T) {
	c := NewCold(BitType16, 1000, 0) // absentCapacity<=0 disables it
	key := []byte("k")
	c.KeyNotFound(key, false) // must be a no-op, not a panic

	may, _ := c.MayContainKey(key)
	if !may {
		t.Error("with the absent cache disabled and no cuckoo data, MayContainKey must default to true")
	}
}

func TestCold_SubkeyLifecycle(t *testing.T) {
	c := NewCold(BitType16, 1000, 100)
	key, subkey := []byte("h"), []byte("field1")

	if !c.MayContainSubkey(key, subkey) {
		t.Error("an unknown subkey should be reported as possibly on disk")
	}

	c.SubkeyNotFound(key, subkey)
	if c.MayContainSubkey(key, subkey) {
		t.Error("after SubkeyNotFound, the subkey should be known-absent")
	}

	c.AddSubkey(key, subkey)
	if !c.MayContainSubkey(key, subkey) {
		t.Error("after AddSubkey, the subkey should no longer be known-absent")
	}
}

func TestCold_CuckooDisabledStillNoFalseNegative(t *testing.T) {
	c := NewCold(BitType16, 1000, 100)
	c.disabled.Store(true) // simulate a permanent insert failure (§4.2)

	may, _ := c.MayContainKey([]byte("brand-new-key"))
	if !may {
		t.Error("with cuckoo disabled, mayContainKey must still return true for new keys (no false negatives)")
	}
}

func TestCold_SharedDisableIsServerWide(t *testing.T) {
	var disabled atomic.Bool
	a := NewColdShared(BitType16, 1000, 100, &disabled)
	b := NewColdShared(BitType16, 1000, 100, &disabled)

	disabled.Store(true) // simulate db a's cuckoo permanently disqualifying itself

	if !a.CuckooDisabled() || !b.CuckooDisabled() {
		t.Fatal("a shared disable signal must disable cuckoo lookups on every Cold using it")
	}
}
