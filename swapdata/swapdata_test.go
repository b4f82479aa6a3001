package swapdata

import (
	"testing"

	"github.com/codeGROOVE-dev/coldswap/objmeta"
)

func TestVariantRegistry(t *testing.T) {
	for _, typ := range []objmeta.ObjectType{
		objmeta.TypeString, objmeta.TypeHash, objmeta.TypeSet,
		objmeta.TypeZSet, objmeta.TypeList,
	} {
		if _, ok := VariantFor(typ); !ok {
			t.Fatalf("expected a registered variant for %v", typ)
		}
	}
	if _, ok := VariantFor(objmeta.TypeStream); ok {
		t.Fatalf("stream should not have a registered variant (unsupported type, §7 SetupError)")
	}
}

func TestStringVariant_HotOutsKeepData(t *testing.T) {
	v, _ := VariantFor(objmeta.TypeString)
	d := NewData(0, []byte("k"))
	d.Hot = true
	intention, flags := v.Analyze(d, nil, 0)
	if intention != IntentionOUT || !flags.Has(FlagKEEPDATA) {
		t.Fatalf("expected OUT|KEEPDATA, got %v %v", intention, flags)
	}
}

func TestStringVariant_ExpiredCoercesToDel(t *testing.T) {
	v, _ := VariantFor(objmeta.TypeString)
	d := NewData(0, []byte("k"))
	d.MarkExpiredNoReplica()
	intention, _ := v.Analyze(d, nil, 0)
	if intention != IntentionDEL {
		t.Fatalf("expected DEL for an expired key, got %v", intention)
	}
}

func TestData_TransitionTo(t *testing.T) {
	d := NewData(0, []byte("k"))
	if !d.TransitionTo(PresenceWARM) || d.Presence != PresenceWARM {
		t.Fatalf("HOT->WARM should be allowed")
	}
	if !d.TransitionTo(PresenceDELETED) || d.Presence != PresenceDELETED {
		t.Fatalf("*->DELETED should always be allowed")
	}
}

func TestArgRewrites_NoSegments(t *testing.T) {
	out := ArgRewrites(nil, []int64{0, 5})
	if len(out) != 2 || out[0].NewIndex != 0 || out[1].NewIndex != 5 {
		t.Fatalf("expected identity rewrite with no segments, got %+v", out)
	}
}

func TestArgRewrites_LocatesSegment(t *testing.T) {
	meta := &objmeta.Meta{Extend: objmeta.Extend{Segments: []objmeta.ListSegment{
		{Index: 100, Len: 10},
		{Index: 200, Len: 10},
	}}}
	out := ArgRewrites(meta, []int64{0, 12})
	if out[0].NewIndex != 100 {
		t.Fatalf("logical 0 should map to segment 0 start 100, got %d", out[0].NewIndex)
	}
	if out[1].NewIndex != 202 {
		t.Fatalf("logical 12 should map into segment 1 at 202, got %d", out[1].NewIndex)
	}
}

func TestMetascanSession_StartTwiceFails(t *testing.T) {
	s := NewMetascanSession(1, 8)
	if err := s.Start(); err != nil {
		t.Fatalf("first Start should succeed: %v", err)
	}
	if err := s.Start(); err == nil {
		t.Fatalf("second Start should fail while a scan is in progress")
	}
}

func TestMetascanSession_AdvanceWrongSessionRejected(t *testing.T) {
	s := NewMetascanSession(1, 8)
	_ = s.Start()
	other := NewMetascanSession(2, 8).Cursor()
	if err := s.Advance(other, nil); err == nil {
		t.Fatalf("expected a cursor from a different session to be rejected")
	}
}

func TestMetascanSession_AdvanceRoundTrip(t *testing.T) {
	s := NewMetascanSession(3, 8)
	_ = s.Start()
	cur := s.Cursor()
	if err := s.Advance(cur, []byte("next")); err != nil {
		t.Fatalf("Advance with the session's own cursor should succeed: %v", err)
	}
	if string(s.SeekKey()) != "next" {
		t.Fatalf("expected seek key to be updated")
	}
}
