package swapdata

import (
	"bytes"
	"testing"

	"github.com/codeGROOVE-dev/coldswap/objmeta"
)

func TestStringVariant_EncodeDecodeRoundTrip(t *testing.T) {
	v, _ := VariantFor(objmeta.TypeString)
	d := NewData(0, []byte("k"))
	d.Value = []byte("hello")

	dataValue, scoreRows, extend, err := v.EncodeData(d, 0, d.Key, 1)
	if err != nil {
		t.Fatalf("EncodeData: %v", err)
	}
	if len(scoreRows) != 0 {
		t.Fatalf("string EncodeData should not produce score rows, got %d", len(scoreRows))
	}

	decoded, err := v.Decode(dataValue, extend)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !bytes.Equal(decoded.([]byte), []byte("hello")) {
		t.Fatalf("round trip mismatch: got %q", decoded)
	}
}

func TestHashVariant_EncodeDecodeRoundTrip(t *testing.T) {
	v, _ := VariantFor(objmeta.TypeHash)
	d := NewData(0, []byte("k"))
	d.Value = map[string][]byte{"f1": []byte("v1"), "f2": []byte("v2")}

	dataValue, _, extend, err := v.EncodeData(d, 0, d.Key, 1)
	if err != nil {
		t.Fatalf("EncodeData: %v", err)
	}
	if extend.Len != 2 {
		t.Fatalf("expected extend.Len=2, got %d", extend.Len)
	}

	decoded, err := v.Decode(dataValue, extend)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	m := decoded.(map[string][]byte)
	if string(m["f1"]) != "v1" || string(m["f2"]) != "v2" {
		t.Fatalf("round trip mismatch: got %+v", m)
	}
}

func TestSetVariant_EncodeDecodeRoundTrip(t *testing.T) {
	v, _ := VariantFor(objmeta.TypeSet)
	d := NewData(0, []byte("k"))
	d.Value = map[string]struct{}{"a": {}, "b": {}}

	dataValue, _, extend, err := v.EncodeData(d, 0, d.Key, 1)
	if err != nil {
		t.Fatalf("EncodeData: %v", err)
	}
	decoded, err := v.Decode(dataValue, extend)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	m := decoded.(map[string]struct{})
	if _, ok := m["a"]; !ok {
		t.Fatalf("expected member a, got %+v", m)
	}
	if _, ok := m["b"]; !ok {
		t.Fatalf("expected member b, got %+v", m)
	}
}

func TestZSetVariant_EncodeDataProducesScoreRows(t *testing.T) {
	v, _ := VariantFor(objmeta.TypeZSet)
	d := NewData(0, []byte("k"))
	d.Value = map[string]float64{"a": 1.5, "b": -2.5}

	dataValue, scoreRows, extend, err := v.EncodeData(d, 0, d.Key, 1)
	if err != nil {
		t.Fatalf("EncodeData: %v", err)
	}
	if len(scoreRows) != 2 {
		t.Fatalf("expected one score row per member, got %d", len(scoreRows))
	}

	decoded, err := v.Decode(dataValue, extend)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	m := decoded.(map[string]float64)
	if m["a"] != 1.5 || m["b"] != -2.5 {
		t.Fatalf("round trip mismatch: got %+v", m)
	}
}

func TestListVariant_EncodeDecodeRoundTrip(t *testing.T) {
	v, _ := VariantFor(objmeta.TypeList)
	d := NewData(0, []byte("k"))
	d.Value = [][]byte{[]byte("one"), []byte("two"), []byte("three")}

	dataValue, _, extend, err := v.EncodeData(d, 0, d.Key, 1)
	if err != nil {
		t.Fatalf("EncodeData: %v", err)
	}
	if len(extend.Segments) != 1 || extend.Segments[0].Len != 3 {
		t.Fatalf("expected one segment of len 3, got %+v", extend.Segments)
	}

	decoded, err := v.Decode(dataValue, extend)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	items := decoded.([][]byte)
	if len(items) != 3 || string(items[1]) != "two" {
		t.Fatalf("round trip mismatch: got %+v", items)
	}
}

func TestHashVariant_SwapInMergesAndHydrates(t *testing.T) {
	v, _ := VariantFor(objmeta.TypeHash)
	d := NewData(0, []byte("k"))
	d.TransitionTo(PresenceCOLD)

	v.SwapIn(d, map[string][]byte{"f1": []byte("v1")}, nil)

	if d.Presence != PresenceHOT {
		t.Fatalf("whole-key swap-in should fully hydrate to HOT, got %v", d.Presence)
	}
	m := d.Value.(map[string][]byte)
	if string(m["f1"]) != "v1" {
		t.Fatalf("expected merged field f1, got %+v", m)
	}
}

func TestHashVariant_CleanObjectDetectsEmpty(t *testing.T) {
	v, _ := VariantFor(objmeta.TypeHash)
	if !v.CleanObject(map[string][]byte{}) {
		t.Fatalf("empty hash should be clean")
	}
	if v.CleanObject(map[string][]byte{"f": []byte("v")}) {
		t.Fatalf("non-empty hash should not be clean")
	}
}

func TestStringVariant_EncodeDataRejectsWrongType(t *testing.T) {
	v, _ := VariantFor(objmeta.TypeString)
	d := NewData(0, []byte("k"))
	d.Value = 42 // not []byte

	if _, _, _, err := v.EncodeData(d, 0, d.Key, 1); err == nil {
		t.Fatalf("expected an error encoding a non-[]byte string value")
	}
}
