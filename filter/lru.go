// Package filter implements the cold-key membership primitives: a
// fixed-capacity LRU used as an absent-key/absent-subkey cache, a cuckoo
// filter for approximate membership of cold keys, and the composite
// "cold filter" that answers "can this key be absent from disk?" without
// touching disk.
package filter

import "container/list"

// LRU is a fixed-capacity mapping from a byte-string key to a position in a
// doubly linked recency list. It never touches disk and is safe only for
// single-goroutine use; it takes no lock of its own, and neither does the
// absent cache embedded in Cold, which is itself single-goroutine.
type LRU struct {
	capacity int
	items    map[string]*list.Element
	order    *list.List // front = most recently used
}

// NewLRU creates an LRU with the given capacity. A non-positive capacity
// means unbounded (set_capacity can still shrink it later).
func NewLRU(capacity int) *LRU {
	return &LRU{
		capacity: capacity,
		items:    make(map[string]*list.Element),
		order:    list.New(),
	}
}

// Put inserts k at the head, or promotes it if already present. Returns
// true if this was a new insertion (false if it only promoted an existing
// entry). Evicts from the tail until back within capacity.
func (l *LRU) Put(k string) bool {
	if el, ok := l.items[k]; ok {
		l.order.MoveToFront(el)
		return false
	}

	el := l.order.PushFront(k)
	l.items[k] = el

	if l.capacity > 0 {
		for l.order.Len() > l.capacity {
			l.evictTail()
		}
	}
	return true
}

// Get promotes k to the head and reports whether it was present.
func (l *LRU) Get(k string) bool {
	el, ok := l.items[k]
	if !ok {
		return false
	}
	l.order.MoveToFront(el)
	return true
}

// Contains reports presence without promoting (peek).
func (l *LRU) Contains(k string) bool {
	_, ok := l.items[k]
	return ok
}

// Delete removes k if present.
func (l *LRU) Delete(k string) bool {
	el, ok := l.items[k]
	if !ok {
		return false
	}
	l.order.Remove(el)
	delete(l.items, k)
	return true
}

// Len returns the number of entries currently cached.
func (l *LRU) Len() int {
	return l.order.Len()
}

// SetCapacity changes the capacity, trimming from the tail if it shrank.
func (l *LRU) SetCapacity(capacity int) {
	l.capacity = capacity
	if capacity <= 0 {
		return
	}
	for l.order.Len() > capacity {
		l.evictTail()
	}
}

func (l *LRU) evictTail() {
	tail := l.order.Back()
	if tail == nil {
		return
	}
	l.order.Remove(tail)
	delete(l.items, tail.Value.(string))
}
