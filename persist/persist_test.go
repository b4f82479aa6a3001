package persist

import (
	"testing"

	"github.com/codeGROOVE-dev/coldswap/objmeta"
)

func TestKeys_AddAndPickBatch(t *testing.T) {
	k := NewKeys()
	k.AddKey(0, []byte("a"), 1000)
	k.AddKey(0, []byte("b"), 1001)

	picked := k.PickBatch(10)
	if len(picked) != 2 {
		t.Fatalf("expected 2 picked entries, got %d", len(picked))
	}
	if k.Len() != 2 {
		t.Fatalf("entries should still be tracked while DOING")
	}
}

func TestKeys_RequestFinishedRemovesWhenClean(t *testing.T) {
	k := NewKeys()
	v := k.AddKey(0, []byte("a"), 1000)
	k.PickBatch(1)
	k.RequestFinished(0, []byte("a"), v, false)
	if k.Len() != 0 {
		t.Fatalf("expected entry to be removed once clean and matching version")
	}
}

func TestKeys_RequestFinishedRewindsWhenDirty(t *testing.T) {
	k := NewKeys()
	v := k.AddKey(0, []byte("a"), 1000)
	k.PickBatch(1)
	k.RequestFinished(0, []byte("a"), v, true)
	if k.Len() != 1 {
		t.Fatalf("expected entry to remain tracked")
	}
	picked := k.PickBatch(1)
	if len(picked) != 1 {
		t.Fatalf("expected the rewound entry to be pickable again")
	}
}

func TestKeys_AddKeyOverwritePreservesEarliestTime(t *testing.T) {
	k := NewKeys()
	k.AddKey(0, []byte("a"), 1000)
	k.AddKey(0, []byte("a"), 5000)
	if lag := k.Lag(6000); lag != 5000 {
		t.Fatalf("expected lag measured from the earliest enqueue time 1000, got lag=%d", lag)
	}
}

func TestKeys_LagZeroWhenEmpty(t *testing.T) {
	k := NewKeys()
	if k.Lag(1000) != 0 {
		t.Fatalf("expected zero lag with no pending entries")
	}
}

func TestDecide_StringWrongRowCount(t *testing.T) {
	stored := &objmeta.Meta{Type: objmeta.TypeString, Version: 3}
	got := Decide(stored, RebuildFeed{Type: objmeta.TypeString, Version: 3, RowCount: 2})
	if got != OutcomeDeleteMeta {
		t.Fatalf("expected DELETE meta for a string with != 1 data row, got %v", got)
	}
}

func TestDecide_EqualKeepsAndRegistersCold(t *testing.T) {
	stored := &objmeta.Meta{Type: objmeta.TypeHash, Version: 5, Extend: objmeta.Extend{Len: 3}}
	got := Decide(stored, RebuildFeed{Type: objmeta.TypeHash, Version: 5, RowCount: 3})
	if got != OutcomeKeep {
		t.Fatalf("expected KEEP when rebuild matches stored meta, got %v", got)
	}
}

func TestDecide_UnequalRebuildUpdatesMeta(t *testing.T) {
	stored := &objmeta.Meta{Type: objmeta.TypeHash, Version: 5, Extend: objmeta.Extend{Len: 3}}
	got := Decide(stored, RebuildFeed{Type: objmeta.TypeHash, Version: 5, RowCount: 4})
	if got != OutcomeUpdateMeta {
		t.Fatalf("expected UPDATE meta when rebuild row count differs, got %v", got)
	}
}

func TestDecide_FeedErrDeletesMeta(t *testing.T) {
	stored := &objmeta.Meta{Type: objmeta.TypeHash, Version: 5, Extend: objmeta.Extend{Len: 3}}
	got := Decide(stored, RebuildFeed{Type: objmeta.TypeHash, Version: 5, RowCount: 3, FeedErr: 1})
	if got != OutcomeDeleteMeta {
		t.Fatalf("expected DELETE meta when feed_err > 0, got %v", got)
	}
}
