package cli

import (
	"errors"
	"testing"

	"github.com/codeGROOVE-dev/coldswap/evict"
)

type fakeEvictor struct {
	outcomes map[string]evict.Outcome
}

func (f fakeEvictor) ForceEvict(db int, key []byte) evict.Outcome {
	return f.outcomes[string(key)]
}

func TestSwapEvict_CountsOnlySuccesses(t *testing.T) {
	e := fakeEvictor{outcomes: map[string]evict.Outcome{
		"a": evict.OutcomeSuccSwapped,
		"b": evict.OutcomeFailAbsent,
		"c": evict.OutcomeSuccFreed,
	}}
	submitted, results := SwapEvict(e, 0, [][]byte{[]byte("a"), []byte("b"), []byte("c")})
	if submitted != 2 {
		t.Fatalf("expected 2 submitted, got %d", submitted)
	}
	if len(results) != 3 {
		t.Fatalf("expected a result per key, got %d", len(results))
	}
}

type fakeLoader struct{ fail map[string]bool }

func (f fakeLoader) ForceLoad(db int, key []byte) error {
	if f.fail[string(key)] {
		return errors.New("boom")
	}
	return nil
}

func TestSwapLoad_ReportsErrorsSeparately(t *testing.T) {
	l := fakeLoader{fail: map[string]bool{"bad": true}}
	loaded, errs := SwapLoad(l, 0, [][]byte{[]byte("good"), []byte("bad")})
	if loaded != 1 {
		t.Fatalf("expected 1 loaded, got %d", loaded)
	}
	if len(errs) != 1 {
		t.Fatalf("expected 1 error, got %d", len(errs))
	}
}

type fakeDrainer struct{ outstanding int }

func (f fakeDrainer) OutstandingServerLocks() int { return f.outstanding }

func TestSwapMutexOp_ReadyWhenDrained(t *testing.T) {
	if !SwapMutexOp(fakeDrainer{outstanding: 0}) {
		t.Fatalf("expected ready when no outstanding locks")
	}
	if SwapMutexOp(fakeDrainer{outstanding: 1}) {
		t.Fatalf("expected not ready with outstanding locks")
	}
}
