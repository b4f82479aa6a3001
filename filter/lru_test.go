package filter

import "testing"

// TestLRU_RoundTrip exercises spec.md §8 seed test 1: capacity=3; put
// 1,2,3,4 -> get(1)=miss, get(2..4)=hit; put 1 -> 1 and 4,3 present, 2
// evicted.
func TestLRU_RoundTrip(t *testing.T) {
	l := NewLRU(3)

	for _, k := range []string{"1", "2", "3", "4"} {
		l.Put(k)
	}

	if l.Get("1") {
		t.Error("get(1) = true; want false (evicted)")
	}
	for _, k := range []string{"2", "3", "4"} {
		if !l.Get(k) {
			t.Errorf("get(%s) = false; want true", k)
		}
	}

	l.Put("1")
	if !l.Contains("1") {
		t.Error("1 should be present after re-insert")
	}
	if !l.Contains("4") || !l.Contains("3") {
		t.Error("4 and 3 should survive the re-insert of 1")
	}
	if l.Contains("2") {
		t.Error("2 should have been evicted to make room for 1")
	}
	if l.Len() != 3 {
		t.Errorf("Len() = %d; want 3", l.Len())
	}
}

func TestLRU_PutPromotes(t *testing.T) {
	l := NewLRU(2)
	l.Put("a")
	l.Put("b")
	l.Put("a") // promote a to head; b is now LRU
	l.Put("c") // should evict b, not a

	if l.Contains("b") {
		t.Error("b should have been evicted")
	}
	if !l.Contains("a") || !l.Contains("c") {
		t.Error("a and c should remain")
	}
}

func TestLRU_InsertedFlag(t *testing.T) {
	l := NewLRU(4)
	if inserted := l.Put("x"); !inserted {
		t.Error("first put should report inserted=true")
	}
	if inserted := l.Put("x"); inserted {
		t.Error("second put of same key should report inserted=false")
	}
}

func TestLRU_Delete(t *testing.T) {
	l := NewLRU(4)
	l.Put("x")
	if !l.Delete("x") {
		t.Fatal("Delete(x) = false; want true")
	}
	if l.Contains("x") {
		t.Error("x should be gone after Delete")
	}
	if l.Delete("x") {
		t.Error("second Delete(x) should report false")
	}
}

func TestLRU_SetCapacityTrims(t *testing.T) {
	l := NewLRU(10)
	for _, k := range []string{"1", "2", "3", "4"} {
		l.Put(k)
	}
	l.SetCapacity(2)
	if l.Len() != 2 {
		t.Fatalf("Len() = %d; want 2 after shrinking capacity", l.Len())
	}
	if !l.Contains("3") || !l.Contains("4") {
		t.Error("the two most recently used keys should survive a shrink")
	}
}

func TestLRU_NeverExceedsCapacity(t *testing.T) {
	l := NewLRU(5)
	for i := 0; i < 100; i++ {
		l.Put(string(rune('a' + i%26)))
		if l.Len() > 5 {
			t.Fatalf("Len() = %d exceeds capacity 5", l.Len())
		}
	}
}
