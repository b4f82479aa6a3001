// Package objmeta implements the key-level descriptor (§3 "objectMeta")
// attached to any key that has a portion of its data on disk, plus the
// process-wide object-version counter (§4.3).
package objmeta

import "sync/atomic"

// Counter is the process-wide 64-bit monotonically increasing version
// source described in §4.3. It is initialized from the maximum version
// observed during recovery (see persist.Recover) and bumped past all
// previously observed versions on a replication role change.
type Counter struct {
	next atomic.Uint64
}

// NewCounter creates a counter that will hand out start as its first
// value.
func NewCounter(start uint64) *Counter {
	c := &Counter{}
	c.next.Store(start)
	return c
}

// Next draws the next version and advances the counter.
func (c *Counter) Next() uint64 {
	return c.next.Add(1) - 1
}

// Peek returns the version that Next would hand out, without consuming
// it.
func (c *Counter) Peek() uint64 {
	return c.next.Load()
}

// Shift bumps the counter past observedMax, preserving the invariant that
// every subkey written after a replication role change carries a version
// strictly greater than anything seen before the change (§4.3
// "shiftVersion()"). It is a no-op if the counter is already past
// observedMax.
func (c *Counter) Shift(observedMax uint64) {
	for {
		cur := c.next.Load()
		if cur > observedMax {
			return
		}
		if c.next.CompareAndSwap(cur, observedMax+1) {
			return
		}
	}
}

const (
	// VersionZero marks a string's subkey, which carries no real version.
	VersionZero uint64 = 0
	// VersionMax is reserved for sentinel comparisons (e.g. "never expire
	// this row during compaction").
	VersionMax uint64 = ^uint64(0)
)
