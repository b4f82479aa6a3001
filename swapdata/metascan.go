package swapdata

import (
	"sync"

	"github.com/codeGROOVE-dev/coldswap/rio"
)

// MetascanSession tracks one client's in-progress metascan (§4.5 "metascan
// requests take a dedicated setup path"; §6 cursor format; §7
// MetascanError kinds). Exactly one session may be in progress per client
// at a time; a cursor presented against the wrong session is rejected
// (ErrMetascanSessionSeqUnmatch in the root package's error taxonomy).
type MetascanSession struct {
	mu sync.Mutex

	id          uint32
	sessionBits uint
	seq         uint32
	inProgress  bool
	cold        bool // §6 cursor bit 0: false while scanning the hot keyspace, true once scanning on-disk meta rows
	seekKey     []byte
}

// NewMetascanSession creates a session bound to sessionID, using
// sessionBits bits of the cursor for the session id (§6 "scan_session.bits").
func NewMetascanSession(sessionID uint32, sessionBits uint) *MetascanSession {
	return &MetascanSession{id: sessionID, sessionBits: sessionBits}
}

// Start begins a new scan, returning an error if one is already running
// (ErrMetascanSessionInProgress maps to this in errors.go).
func (s *MetascanSession) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inProgress {
		return errSessionInProgress
	}
	s.inProgress = true
	s.seq = 0
	s.cold = false
	s.seekKey = nil
	return nil
}

// EnterCold switches the session from scanning the in-memory keyspace to
// scanning on-disk meta rows (§6 cursor bit 0), resetting the sequence
// and seek position for the new phase.
func (s *MetascanSession) EnterCold() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cold = true
	s.seq = 0
	s.seekKey = nil
}

// Cold reports whether the session has moved into the on-disk scan phase.
func (s *MetascanSession) Cold() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cold
}

// metascanError is the type of the metascan sentinels below
// (errSessionInProgress, errSessionSeqUnmatch, errSessionUnassigned),
// which the root package maps onto its metascan SwapErrors; kept local to
// avoid an import cycle between swapdata and the root package.
type metascanError string

func (e metascanError) Error() string { return string(e) }

const errSessionInProgress = metascanError("metascan session already in progress")
const errSessionSeqUnmatch = metascanError("metascan cursor does not belong to this session")
const errSessionUnassigned = metascanError("no metascan session assigned")

// Cursor returns the current cursor value to hand back to the client.
func (s *MetascanSession) Cursor() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return rio.ScanCursor{Cold: s.cold, SessionID: s.id, Seq: s.seq}.Encode(s.sessionBits)
}

// Advance validates that cursor belongs to this session, bumps the
// sequence, and records the new seek position for the next page.
func (s *MetascanSession) Advance(cursor uint64, nextSeek []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.inProgress {
		return errSessionUnassigned
	}
	decoded := rio.DecodeScanCursor(cursor, s.sessionBits)
	if decoded.SessionID != s.id || decoded.Seq != s.seq || decoded.Cold != s.cold {
		return errSessionSeqUnmatch
	}
	s.seq++
	s.seekKey = nextSeek
	return nil
}

// SeekKey returns the byte position the next page should resume from.
func (s *MetascanSession) SeekKey() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seekKey
}

// Finish ends the scan, allowing a new one to Start.
func (s *MetascanSession) Finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inProgress = false
}

// InProgress reports whether a scan is currently running.
func (s *MetascanSession) InProgress() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inProgress
}
