package request

import (
	"context"
	"iter"
	"sync"
	"testing"

	"github.com/codeGROOVE-dev/coldswap/filter"
	"github.com/codeGROOVE-dev/coldswap/lock"
	"github.com/codeGROOVE-dev/coldswap/objmeta"
	"github.com/codeGROOVE-dev/coldswap/rio"
	"github.com/codeGROOVE-dev/coldswap/swapdata"
)

// discardStore is a minimal rio.Store that succeeds every op with empty
// results, enough to drive the pipeline's execute/decode steps in tests
// without a real disk engine.
type discardStore struct{}

func (discardStore) Get(context.Context, []byte) ([]byte, bool, error) { return nil, false, nil }
func (discardStore) Put(context.Context, []byte, []byte) error          { return nil }
func (discardStore) Delete(context.Context, []byte) error                { return nil }
func (discardStore) DeleteRange(context.Context, []byte, []byte) error   { return nil }
func (discardStore) Iterate(context.Context, []byte, []byte) iter.Seq2[[]byte, []byte] {
	return func(func([]byte, []byte) bool) {}
}
func (discardStore) Flush(context.Context) error { return nil }
func (discardStore) Close() error                { return nil }

var _ rio.Store = discardStore{}

// mapStore is a real, in-memory rio.Store backed by a map, used to exercise
// the pipeline's actual encode/decode round trip end to end rather than
// just confirming every op returns successfully against discardStore.
type mapStore struct {
	mu   sync.Mutex
	rows map[string][]byte
}

func newMapStore() *mapStore { return &mapStore{rows: make(map[string][]byte)} }

func (s *mapStore) Get(_ context.Context, key []byte) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.rows[string(key)]
	return v, ok, nil
}

func (s *mapStore) Put(_ context.Context, key, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[string(key)] = append([]byte(nil), value...)
	return nil
}

func (s *mapStore) Delete(_ context.Context, key []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, string(key))
	return nil
}

func (s *mapStore) DeleteRange(_ context.Context, start, end []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.rows {
		if k >= string(start) && k < string(end) {
			delete(s.rows, k)
		}
	}
	return nil
}

func (s *mapStore) Iterate(_ context.Context, start, end []byte) iter.Seq2[[]byte, []byte] {
	return func(yield func([]byte, []byte) bool) {
		s.mu.Lock()
		defer s.mu.Unlock()
		for k, v := range s.rows {
			if k >= string(start) && k < string(end) {
				if !yield([]byte(k), v) {
					return
				}
			}
		}
	}
}

func (s *mapStore) Flush(context.Context) error { return nil }
func (s *mapStore) Close() error                { return nil }

var _ rio.Store = (*mapStore)(nil)

type hostStub struct {
	mu          sync.Mutex
	inCalls     int
	outCalls    int
	delCalls    int
	expireCalls int
	hot         bool
	value       any
	expire      int64
	meta        *objmeta.Meta
}

func (h *hostStub) Lookup(db int, key []byte) (any, bool, int64, *objmeta.Meta) {
	h.mu.Lock()
	defer h.mu.Unlock()
	v := h.value
	if h.hot && v == nil {
		v = []byte("v")
	}
	return v, h.hot, h.expire, h.meta
}

func (h *hostStub) SwapIn(db int, key []byte, value any, meta *objmeta.Meta) {
	h.mu.Lock()
	h.inCalls++
	h.mu.Unlock()
}

func (h *hostStub) SwapOut(db int, key []byte, meta *objmeta.Meta, keepData bool) {
	h.mu.Lock()
	h.outCalls++
	h.mu.Unlock()
}

func (h *hostStub) SwapDel(db int, key []byte) {
	h.mu.Lock()
	h.delCalls++
	h.mu.Unlock()
}

func (h *hostStub) PropagateExpire(db int, key []byte) {
	h.mu.Lock()
	h.expireCalls++
	h.mu.Unlock()
}

func (h *hostStub) HasReplica(db int) bool { return false }

func TestPipeline_HotKeyOutsAndFinishes(t *testing.T) {
	host := &hostStub{hot: true}
	p := newTestPipeline(t, host, nil)

	s := p.Admit(KeyRequest{DB: 0, Key: []byte("k"), Level: ReqLevelKEY, Type: ReqTypeKEY, TxID: 1})
	p.FlushPending()

	if !s.Finished {
		t.Fatalf("expected the swap to finish synchronously")
	}
	if host.outCalls != 1 {
		t.Fatalf("expected exactly one SwapOut call, got %d", host.outCalls)
	}
}

func TestPipeline_ColdMissKeyShortCircuitsNOP(t *testing.T) {
	host := &hostStub{hot: false}
	cold := filter.NewCold(filter.BitType16, 1024, 1024)
	// An empty filter cannot rule any key out; registering an unrelated
	// key gives the cuckoo filter data that excludes "nope".
	cold.AddKey([]byte("other"))
	p := newTestPipeline(t, host, map[int]*filter.Cold{0: cold})

	s := p.Admit(KeyRequest{DB: 0, Key: []byte("nope"), Level: ReqLevelKEY, Type: ReqTypeKEY, TxID: 1})

	if s.Intention != 0 {
		t.Fatalf("expected NOP intention for a key absent from the cold filter, got %v", s.Intention)
	}
	if !s.Finished {
		t.Fatalf("expected NOP short-circuit to finish immediately")
	}
	if host.inCalls+host.outCalls+host.delCalls != 0 {
		t.Fatalf("NOP should not call any host swap method")
	}
}

func TestPipeline_SequentialTxidsDoNotDeadlock(t *testing.T) {
	host := &hostStub{hot: true}
	p := newTestPipeline(t, host, nil)

	for i := uint64(1); i <= 5; i++ {
		s := p.Admit(KeyRequest{DB: 0, Key: []byte("k"), Level: ReqLevelKEY, Type: ReqTypeKEY, TxID: i})
		p.FlushPending()
		if !s.Finished {
			t.Fatalf("txid %d should finish before the next is admitted", i)
		}
	}
}

// swapHost is a realistic request.Host over a map: unlike hostStub it
// actually applies SwapIn/SwapOut/SwapDel, letting a test drive a whole
// OUT-then-IN cycle against a real mapStore and check the value that comes
// back out the other side.
type swapHost struct {
	mu   sync.Mutex
	data map[string]any
	hot  map[string]bool
	meta map[string]*objmeta.Meta
}

func newSwapHost() *swapHost {
	return &swapHost{data: map[string]any{}, hot: map[string]bool{}, meta: map[string]*objmeta.Meta{}}
}

func (h *swapHost) Lookup(_ int, key []byte) (any, bool, int64, *objmeta.Meta) {
	h.mu.Lock()
	defer h.mu.Unlock()
	k := string(key)
	return h.data[k], h.hot[k], 0, h.meta[k]
}

func (h *swapHost) SwapIn(_ int, key []byte, value any, meta *objmeta.Meta) {
	h.mu.Lock()
	defer h.mu.Unlock()
	k := string(key)
	h.data[k] = value
	h.hot[k] = true
	h.meta[k] = meta
}

func (h *swapHost) SwapOut(_ int, key []byte, meta *objmeta.Meta, keepData bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	k := string(key)
	h.meta[k] = meta
	if !keepData {
		h.hot[k] = false
	}
}

func (h *swapHost) SwapDel(_ int, key []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	k := string(key)
	delete(h.data, k)
	delete(h.hot, k)
	delete(h.meta, k)
}

func (h *swapHost) PropagateExpire(int, []byte) {}
func (h *swapHost) HasReplica(int) bool         { return false }

var _ Host = (*swapHost)(nil)

func newRoundTripPipeline(t *testing.T, host Host, store *mapStore) *Pipeline {
	t.Helper()
	pool := rio.NewPool(store, 2)
	t.Cleanup(pool.Close)
	return New(Config{
		Locks:        lock.NewManager(),
		Colds:        map[int]*filter.Cold{},
		Host:         host,
		Version:      objmeta.NewCounter(1),
		BatchThreads: 2,
		BatchDefault: 1,
		BatchLinear:  64,
		Rio:          pool,
		SessionBits:  8,
	})
}

func TestPipeline_StringOutThenInRoundTrips(t *testing.T) {
	host := newSwapHost()
	host.data["k"] = []byte("hello")
	host.hot["k"] = true

	p := newRoundTripPipeline(t, host, newMapStore())

	out := p.Admit(KeyRequest{DB: 0, Key: []byte("k"), Level: ReqLevelKEY, Type: ReqTypeKEY, TxID: 1})
	p.FlushPending()
	if out.Intention != swapdata.IntentionOUT {
		t.Fatalf("expected OUT, got %v (err=%v)", out.Intention, out.Err)
	}
	if out.Err != nil {
		t.Fatalf("unexpected swap-out error: %v", out.Err)
	}

	// A string's swap-out persists without evicting the in-memory copy
	// (FlagKEEPDATA); simulate the separate LRU eviction that would later
	// drop it, to exercise the disk read path on the next admit.
	host.hot["k"] = false

	in := p.Admit(KeyRequest{DB: 0, Key: []byte("k"), Level: ReqLevelKEY, Type: ReqTypeKEY, TxID: 2})
	p.FlushPending()
	if in.Intention != swapdata.IntentionIN {
		t.Fatalf("expected IN, got %v (err=%v)", in.Intention, in.Err)
	}
	if in.Err != nil {
		t.Fatalf("unexpected swap-in error: %v", in.Err)
	}
	got, ok := host.data["k"].([]byte)
	if !ok || string(got) != "hello" {
		t.Fatalf("expected the original value restored from disk, got %q", host.data["k"])
	}
}

func TestPipeline_HashOutThenInRoundTrips(t *testing.T) {
	host := newSwapHost()
	host.data["k"] = map[string][]byte{"f1": []byte("v1"), "f2": []byte("v2")}
	host.hot["k"] = true
	host.meta["k"] = &objmeta.Meta{Type: objmeta.TypeHash}

	p := newRoundTripPipeline(t, host, newMapStore())

	out := p.Admit(KeyRequest{DB: 0, Key: []byte("k"), Level: ReqLevelKEY, Type: ReqTypeKEY, TxID: 1})
	p.FlushPending()
	if out.Intention != swapdata.IntentionOUT || out.Err != nil {
		t.Fatalf("expected OUT with no error, got %v err=%v", out.Intention, out.Err)
	}

	in := p.Admit(KeyRequest{DB: 0, Key: []byte("k"), Level: ReqLevelKEY, Type: ReqTypeKEY, TxID: 2})
	p.FlushPending()
	if in.Intention != swapdata.IntentionIN || in.Err != nil {
		t.Fatalf("expected IN with no error, got %v err=%v", in.Intention, in.Err)
	}
	got, ok := host.data["k"].(map[string][]byte)
	if !ok || string(got["f1"]) != "v1" || string(got["f2"]) != "v2" {
		t.Fatalf("expected the original hash fields restored from disk, got %+v", host.data["k"])
	}
}

func newTestPipeline(t *testing.T, host Host, colds map[int]*filter.Cold) *Pipeline {
	t.Helper()
	pool := rio.NewPool(discardStore{}, 2)
	t.Cleanup(pool.Close)
	if colds == nil {
		colds = map[int]*filter.Cold{}
	}
	return New(Config{
		Locks:        lock.NewManager(),
		Colds:        colds,
		Host:         host,
		Version:      objmeta.NewCounter(1),
		BatchThreads: 2,
		BatchDefault: 1,
		BatchLinear:  64,
		Rio:          pool,
		SessionBits:  8,
	})
}
