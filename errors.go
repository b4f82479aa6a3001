package coldswap

import (
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// Code is the error taxonomy of spec.md §7: a kind, not a Go type, so a
// single SwapError can carry it through fmt.Errorf/%w chains the way the
// teacher wraps persistence errors in persistent.go.
type Code int

const (
	// SetupError: type not supported; hash/setup failed.
	ErrSetupFail Code = -100
	ErrSetupUnsupported Code = -101

	// DataError: decode failed, analyze failed, wrong type.
	ErrDataFail Code = -200
	ErrDataAnaFail Code = -201
	ErrDataDecodeFail Code = -202
	ErrDataFinFail Code = -203
	ErrDataUnexpectedIntention Code = -204
	ErrDataDecodeMetaFail Code = -205
	ErrDataWrongType Code = -206

	// ExecError: disk engine returned an error; unexpected action/intent.
	ErrExecFail Code = -300
	ErrExecUnexpectedAction Code = -302
	ErrExecFlushFail Code = -303
	ErrExecUnexpectedUtil Code = -304

	// MetascanError: scan unsupported in a transaction, session absent,
	// session already in progress, cursor sequence mismatch.
	ErrMetascanFail Code = -400
	ErrMetascanUnsupportedInMulti Code = -401
	ErrMetascanSessionUnassigned Code = -402
	ErrMetascanSessionInProgress Code = -403
	ErrMetascanSessionSeqUnmatch Code = -404

	// RioError: GET/PUT/DEL/ITERATE engine failure; OOM during a RIO.
	ErrRioFail Code = -500
	ErrRioGetFail Code = -501
	ErrRioPutFail Code = -502
	ErrRioDelFail Code = -503
	ErrRioIterFail Code = -504
	ErrRioOOM Code = -505
)

var codeNames = map[Code]string{
	ErrSetupFail:                  "setup failed",
	ErrSetupUnsupported:           "type not supported",
	ErrDataFail:                   "data error",
	ErrDataAnaFail:                "analyze failed",
	ErrDataDecodeFail:             "decode failed",
	ErrDataFinFail:                "finish failed",
	ErrDataUnexpectedIntention:    "unexpected intention",
	ErrDataDecodeMetaFail:         "meta decode failed",
	ErrDataWrongType:              "WRONGTYPE",
	ErrExecFail:                   "exec failed",
	ErrExecUnexpectedAction:       "unexpected action",
	ErrExecFlushFail:              "flush failed",
	ErrExecUnexpectedUtil:         "unexpected util request",
	ErrMetascanFail:               "metascan failed",
	ErrMetascanUnsupportedInMulti: "metascan unsupported in a transaction",
	ErrMetascanSessionUnassigned:  "metascan session absent",
	ErrMetascanSessionInProgress:  "metascan session already in progress",
	ErrMetascanSessionSeqUnmatch:  "metascan cursor sequence mismatch",
	ErrRioFail:                    "rio failed",
	ErrRioGetFail:                 "rio GET failed",
	ErrRioPutFail:                 "rio PUT failed",
	ErrRioDelFail:                 "rio DEL failed",
	ErrRioIterFail:                "rio ITERATE failed",
	ErrRioOOM:                     "rio OOM",
}

func (c Code) String() string {
	if n, ok := codeNames[c]; ok {
		return n
	}
	return fmt.Sprintf("Code(%d)", int(c))
}

// SwapError attaches a §7 error Code to an operation and an optional
// wrapped cause. Worker-detected errors attach to the request and
// propagate to the command layer via this type (§7 propagation policy).
type SwapError struct {
	Code Code
	Op   string
	Err  error
}

func (e *SwapError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (code=%d): %v", e.Op, e.Code, int(e.Code), e.Err)
	}
	return fmt.Sprintf("%s: %s (code=%d)", e.Op, e.Code, int(e.Code))
}

func (e *SwapError) Unwrap() error { return e.Err }

// NewSwapError builds a SwapError, wrapping err if non-nil.
func NewSwapError(op string, code Code, err error) *SwapError {
	return &SwapError{Op: op, Code: code, Err: err}
}

// ClientMessage renders the error the way §7 describes: an exact WRONGTYPE
// message for DATA_WRONG_TYPE_ERROR, a category message for metascan
// errors, and a generic "Swap failed (code=N)" otherwise.
func (e *SwapError) ClientMessage() string {
	switch e.Code {
	case ErrDataWrongType:
		return "WRONGTYPE Operation against a key holding the wrong kind of value"
	case ErrMetascanUnsupportedInMulti:
		return "ERR SCAN not allowed inside a transaction"
	case ErrMetascanSessionUnassigned:
		return "ERR no scan session assigned"
	case ErrMetascanSessionInProgress:
		return "ERR scan session already in progress"
	case ErrMetascanSessionSeqUnmatch:
		return "ERR scan cursor does not belong to this session"
	default:
		return fmt.Sprintf("ERR Swap failed (code=%d)", int(e.Code))
	}
}

// wrapRecoveryError attaches stack context to a per-row recovery failure
// (§4.7/§7: "recovery-phase errors ... never stop startup") so the one
// warning log line carries enough detail to locate the row, without
// aborting the scan.
func wrapRecoveryError(op string, err error) error {
	return pkgerrors.Wrapf(err, "recovery: %s", op)
}
