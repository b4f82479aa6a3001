package objmeta

import "testing"

func TestCounter_MonotonicAndShift(t *testing.T) {
	c := NewCounter(5)
	if v := c.Next(); v != 5 {
		t.Fatalf("Next() = %d; want 5", v)
	}
	if v := c.Next(); v != 6 {
		t.Fatalf("Next() = %d; want 6", v)
	}

	c.Shift(100)
	if v := c.Next(); v != 101 {
		t.Fatalf("Next() after Shift(100) = %d; want 101", v)
	}

	// Shift below the current value must be a no-op.
	c.Shift(50)
	if v := c.Next(); v != 102 {
		t.Fatalf("Next() after a no-op Shift = %d; want 102", v)
	}
}

func TestMeta_Equal(t *testing.T) {
	a := &Meta{Type: TypeHash, Expire: 10, Version: 1, Extend: Extend{Len: 3}}
	b := &Meta{Type: TypeHash, Expire: 10, Version: 1, Extend: Extend{Len: 3}}
	if !a.Equal(b) {
		t.Error("identical hash metas should be Equal")
	}

	c := &Meta{Type: TypeHash, Expire: 10, Version: 1, Extend: Extend{Len: 4}}
	if a.Equal(c) {
		t.Error("metas with differing Len should not be Equal")
	}

	listA := &Meta{Type: TypeList, Version: 1, Extend: Extend{Segments: []ListSegment{{Index: 0, Len: 5}}}}
	listB := &Meta{Type: TypeList, Version: 1, Extend: Extend{Segments: []ListSegment{{Index: 0, Len: 5}}}}
	if !listA.Equal(listB) {
		t.Error("identical list metas should be Equal")
	}
	listC := &Meta{Type: TypeList, Version: 1, Extend: Extend{Segments: []ListSegment{{Index: 0, Len: 6}}}}
	if listA.Equal(listC) {
		t.Error("list metas with differing segments should not be Equal")
	}
}

func TestMeta_EqualNil(t *testing.T) {
	var a, b *Meta
	if !a.Equal(b) {
		t.Error("two nil metas should be Equal")
	}
	c := &Meta{Type: TypeString, Version: 1}
	if a.Equal(c) || c.Equal(a) {
		t.Error("a nil meta should not equal a non-nil one")
	}
}
