package rio

import "testing"

// TestScanCursor_RoundTrip exercises §6's cursor format: bit 0 the
// hot/cold phase flag, the rest split into (session_id, session_seq).
func TestScanCursor_RoundTrip(t *testing.T) {
	cases := []ScanCursor{
		{Cold: false, SessionID: 1, Seq: 0},
		{Cold: true, SessionID: 1, Seq: 0},
		{Cold: false, SessionID: 200, Seq: 12345},
		{Cold: true, SessionID: 200, Seq: 12345},
	}
	for _, c := range cases {
		encoded := c.Encode(8)
		got := DecodeScanCursor(encoded, 8)
		if got != c {
			t.Errorf("DecodeScanCursor(Encode(%+v)) = %+v; want %+v", c, got, c)
		}
	}
}

// TestScanCursor_ColdBitIsLSB pins down the exact bit position §6
// specifies: "cursor bit 0 is the hot/cold flag".
func TestScanCursor_ColdBitIsLSB(t *testing.T) {
	hot := ScanCursor{Cold: false, SessionID: 1, Seq: 1}.Encode(8)
	cold := ScanCursor{Cold: true, SessionID: 1, Seq: 1}.Encode(8)
	if hot&1 != 0 {
		t.Errorf("hot cursor bit 0 = %d; want 0", hot&1)
	}
	if cold&1 != 1 {
		t.Errorf("cold cursor bit 0 = %d; want 1", cold&1)
	}
	if hot^cold != 1 {
		t.Errorf("hot and cold cursors should differ only in bit 0, got hot=%x cold=%x", hot, cold)
	}
}
