// Package request implements the §4.5 swap request pipeline: keyRequest
// parsing, the batch feeder, and the admit->proceed->analyze->dispatch->
// execute->notify->finish chain driving one client command's swap I/O.
package request

import (
	"github.com/codeGROOVE-dev/coldswap/lock"
	"github.com/codeGROOVE-dev/coldswap/swapdata"
)

// ReqLevel is the hierarchy level a keyRequest targets (§4.5: "level =
// SVR / DB / KEY").
type ReqLevel int

const (
	ReqLevelSVR ReqLevel = iota
	ReqLevelDB
	ReqLevelKEY
)

// ReqType is the shape of data a keyRequest addresses (§4.5: "type = KEY
// / SUBKEY / RANGE / SCORE").
type ReqType int

const (
	ReqTypeKEY ReqType = iota
	ReqTypeSUBKEY
	ReqTypeRANGE
	ReqTypeSCORE
)

// KeyRequest is one of the N key requests a client command's parser
// emits (§4.5). Subkeys is non-empty only for ReqTypeSUBKEY/RANGE/SCORE
// requests that target specific fields/members/indices.
type KeyRequest struct {
	DB      int
	Key     []byte
	Level   ReqLevel
	Type    ReqType
	Subkeys [][]byte
	TxID    uint64

	// OOMCheck mirrors the SWAP_OOM_CHECK intention flag input: "abort
	// IN if the RIO would exceed memory."
	OOMCheck bool
}

// Swap is the live state of one KeyRequest moving through the pipeline:
// its swapData snapshot, decided intention/flags, and completion state.
// It is the Go analogue of the §3 swapRequest, minus the C trace
// metadata (not meaningful without the embedding server's tracing hooks).
type Swap struct {
	Req       KeyRequest
	Data      *swapdata.Data
	Intention swapdata.Intention
	Flags     swapdata.Flag
	Lock      *lock.Lock

	Err      error
	Finished bool

	onFinish func(*Swap)
}

// NewSwap wraps req for admission into the pipeline.
func NewSwap(req KeyRequest) *Swap {
	return &Swap{Req: req}
}

// OnFinish registers the callback invoked once the swap completes
// (§4.5 step 7 "Finish (main thread)").
func (s *Swap) OnFinish(f func(*Swap)) {
	s.onFinish = f
}

func (s *Swap) finish() {
	s.Finished = true
	if s.onFinish != nil {
		s.onFinish(s)
	}
}
