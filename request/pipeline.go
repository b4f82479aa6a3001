package request

import (
	"time"

	"github.com/codeGROOVE-dev/coldswap/filter"
	"github.com/codeGROOVE-dev/coldswap/lock"
	"github.com/codeGROOVE-dev/coldswap/objmeta"
	"github.com/codeGROOVE-dev/coldswap/rio"
	"github.com/codeGROOVE-dev/coldswap/swapdata"
)

// Host is the set of callbacks the embedding key-value server supplies so
// Pipeline can materialize a swapData snapshot and apply swap-in/out/del
// results without this package knowing the server's in-memory value
// representation (spec.md §1: "the embedded key-value data model ... are
// referenced only at their interfaces").
type Host interface {
	// Lookup returns the current in-memory value (if hot), its expire,
	// and any already-known meta for (db, key).
	Lookup(db int, key []byte) (value any, hot bool, expire int64, meta *objmeta.Meta)

	// SwapIn installs a decoded/merged value, turning the key warm/hot.
	SwapIn(db int, key []byte, value any, meta *objmeta.Meta)
	// SwapOut persists value and, unless keepData, removes the
	// in-memory copy, setting the key cold when no warm portion remains.
	SwapOut(db int, key []byte, meta *objmeta.Meta, keepData bool)
	// SwapDel removes all on-disk rows and purges meta/cold filter.
	SwapDel(db int, key []byte)
	// PropagateExpire emits an expiration event for a key that expired
	// with no replica (§4.5 step 2).
	PropagateExpire(db int, key []byte)
	// HasReplica reports whether db has an attached replica; an expired
	// key on a db with no replica is coerced straight to DEL rather than
	// waiting for a replica-driven expire (§4.5 step 2).
	HasReplica(db int) bool
}

// Pipeline drives the §4.5 admit->proceed->analyze->dispatch->execute->
// notify->finish chain for one Server. One Pipeline serves every db; the
// per-db cold filter is looked up by db id from colds.
type Pipeline struct {
	locks   *lock.Manager
	colds   map[int]*filter.Cold
	host    Host
	pool    *Pool
	rio     *rio.Pool
	version *objmeta.Counter

	sessionBits uint
}

// Config configures Pipeline construction.
type Config struct {
	Locks                                    *lock.Manager
	Colds                                    map[int]*filter.Cold
	Host                                     Host
	Version                                  *objmeta.Counter
	BatchThreads, BatchDefault, BatchLinear  int
	Rio                                      *rio.Pool
	SessionBits                              uint
}

// New builds a Pipeline from cfg.
func New(cfg Config) *Pipeline {
	return &Pipeline{
		locks:       cfg.Locks,
		colds:       cfg.Colds,
		host:        cfg.Host,
		pool:        NewPool(cfg.BatchThreads, cfg.BatchDefault, cfg.BatchLinear),
		rio:         cfg.Rio,
		version:     cfg.Version,
		sessionBits: cfg.SessionBits,
	}
}

// Admit is §4.5 step 1: create a swap context and call lockLock with the
// caller's rolling txid. The returned Swap's Lock field is nil until
// proceed fires (possibly asynchronously, if the key is contended).
func (p *Pipeline) Admit(req KeyRequest) *Swap {
	s := NewSwap(req)
	lvl := lock.LevelKey
	switch req.Level {
	case ReqLevelSVR:
		lvl = lock.LevelServer
	case ReqLevelDB:
		lvl = lock.LevelDB
	}

	p.locks.LockLock(lock.Request{
		TxID:  req.TxID,
		DB:    req.DB,
		Key:   string(req.Key),
		Level: lvl,
		Proceed: func(l *lock.Lock) {
			s.Lock = l
			p.proceed(s)
		},
	})
	return s
}

// proceed is §4.5 step 2, run under the lock once granted.
func (p *Pipeline) proceed(s *Swap) {
	value, hot, expire, meta := p.host.Lookup(s.Req.DB, s.Req.Key)

	d := swapdata.NewData(s.Req.DB, s.Req.Key)
	d.Value = value
	d.Hot = hot
	d.Expire = expire
	d.WithMeta(meta, meta == nil)
	if hot {
		d.TransitionTo(swapdata.PresenceHOT)
	} else if meta != nil {
		d.TransitionTo(swapdata.PresenceCOLD)
	}

	if expire != 0 && expire <= time.Now().UnixMilli() && !p.host.HasReplica(s.Req.DB) {
		// §4.5 step 2: an expired key with no replica is coerced to DEL
		// rather than left to a replica-driven expire.
		d.MarkExpiredNoReplica()
	}

	if len(s.Req.Subkeys) > 0 && hot {
		if variant, ok := swapdata.VariantFor(metaType(d)); ok {
			d.DirtySubkeys, _ = variant.DirtySubkeysAdd(d.DirtySubkeys, s.Req.Subkeys)
		}
	}

	if !hot && meta == nil {
		cold := p.colds[s.Req.DB]
		mayContain := cold == nil
		if cold != nil {
			mayContain, _ = cold.MayContainKey(s.Req.Key)
		}
		if !mayContain {
			// §4.5 step 2: "a missing in-memory key ... otherwise the
			// request is short-circuited as NOP."
			s.Data = d
			s.Intention = swapdata.IntentionNOP
			p.finishSwap(s)
			return
		}
	}

	s.Data = d
	p.analyze(s)
}

// analyze is §4.5 step 3.
func (p *Pipeline) analyze(s *Swap) {
	variant, ok := swapdata.VariantFor(metaType(s.Data))
	if !ok {
		s.Err = errUnsupportedType
		p.finishSwap(s)
		return
	}

	var flags swapdata.Flag
	if s.Req.OOMCheck {
		flags |= swapdata.FlagOOMCheck
	}

	intention, swapFlags := variant.Analyze(s.Data, s.Req.Subkeys, flags)

	if intention == swapdata.IntentionOUT {
		if s.Data.Meta == nil {
			s.Data.Meta = objmeta.New(p.version, variant.Type(), s.Data.Expire)
			s.Data.MetaIsNew = true
		}
		// A whole-key OUT of an emptied collection deletes the key outright
		// rather than persisting an empty hot shell (§4.5 step 3).
		if swapFlags.Has(swapdata.FlagMETA) && variant.CleanObject(s.Data.Value) {
			intention = swapdata.IntentionDEL
		}
	}

	s.Intention = intention
	s.Flags = swapFlags

	if intention == swapdata.IntentionNOP {
		p.finishSwap(s)
		return
	}
	p.dispatch(s)
}

func metaType(d *swapdata.Data) objmeta.ObjectType {
	if d.Meta != nil {
		return d.Meta.Type
	}
	return objmeta.TypeString
}

// dispatch is §4.5 step 4: feed s into the batch feeder for its assigned
// worker thread.
func (p *Pipeline) dispatch(s *Swap) {
	idx := p.pool.Assign()
	batch := p.pool.Batch(idx)
	isUtility := s.Req.Level != ReqLevelKEY
	if _, flush := batch.Add(s, isUtility); flush {
		p.execute(batch.Drain())
		return
	}
	// Not yet flushed: the caller's event loop is expected to call
	// FlushPending (e.g. on before-sleep) to drain partially-filled
	// batches.
}

// FlushPending drains and executes every batch with pending items,
// implementing the "before-sleep" flush trigger (§4.5 step 4).
func (p *Pipeline) FlushPending() {
	for _, items := range p.pool.FlushAll() {
		p.execute(items)
	}
}

// execute is §4.5 step 5, run per the teacher's synchronous worker
// dispatch style: each swap in the batch becomes one or more RIOs
// submitted to the rio.Pool, and this call blocks until the whole batch
// completes so Finish can run with a consistent view of the batch.
func (p *Pipeline) execute(batch []*Swap) {
	for _, s := range batch {
		ops, err := p.encode(s)
		if err != nil {
			s.Err = err
			p.notify(s)
			continue
		}
		results := make([]*rio.RIO, len(ops))
		for i, op := range ops {
			results[i] = p.rio.SubmitSync(op)
		}
		p.decode(s, results)
		p.notify(s)
	}
}

// encode is §4.5 step 5's encode half: it turns the swap's chosen
// intention into the concrete Data/Meta/Score-row RIOs that carry it out,
// dispatching to the object's Variant for the type-specific wire format
// (swapdata.Variant.EncodeKeys/EncodeRange/EncodeData).
func (p *Pipeline) encode(s *Swap) ([]*rio.RIO, error) {
	variant, ok := swapdata.VariantFor(metaType(s.Data))
	if !ok {
		return nil, errUnsupportedType
	}
	dbid, key := s.Req.DB, s.Req.Key
	version := uint64(0)
	if s.Data.Meta != nil {
		version = s.Data.Meta.Version
	}

	switch s.Intention {
	case swapdata.IntentionIN:
		dataKey, _, _ := variant.EncodeKeys(dbid, key, version)
		return []*rio.RIO{{Action: rio.ActionGet, Key: dataKey}}, nil

	case swapdata.IntentionOUT:
		dataValue, scoreRows, extend, err := variant.EncodeData(s.Data, dbid, key, version)
		if err != nil {
			return nil, err
		}
		s.Data.Meta.Extend = extend
		dataKey, _, _ := variant.EncodeKeys(dbid, key, version)
		ops := make([]*rio.RIO, 0, 2+len(scoreRows))
		ops = append(ops,
			&rio.RIO{Action: rio.ActionPut, Key: dataKey, Value: dataValue},
			&rio.RIO{Action: rio.ActionPut, Key: rio.EncodeMetaKey(dbid, key), Value: rio.EncodeMetaValue(s.Data.Meta)},
		)
		for scoreKey, member := range scoreRows {
			ops = append(ops, &rio.RIO{Action: rio.ActionPut, Key: []byte(scoreKey), Value: member})
		}
		return ops, nil

	case swapdata.IntentionDEL:
		dataStart, dataEnd, scoreStart, scoreEnd := variant.EncodeRange(dbid, key, version)
		ops := []*rio.RIO{
			{Action: rio.ActionDel, Start: dataStart, End: dataEnd},
			{Action: rio.ActionDel, Key: rio.EncodeMetaKey(dbid, key)},
		}
		if scoreStart != nil {
			ops = append(ops, &rio.RIO{Action: rio.ActionDel, Start: scoreStart, End: scoreEnd})
		}
		return ops, nil

	default:
		return nil, nil
	}
}

// decode is §4.5 step 5's decode half: for a SWAP_IN it rebuilds the
// in-memory value from the Data row's raw bytes and merges it into the
// snapshot via Variant.SwapIn; for SWAP_OUT/SWAP_DEL it only needs to
// surface any disk error, since the disk rows already carry the final
// state.
func (p *Pipeline) decode(s *Swap, results []*rio.RIO) {
	for _, res := range results {
		if res.Result.Err != nil {
			s.Err = res.Result.Err
			return
		}
	}
	if s.Intention != swapdata.IntentionIN {
		return
	}
	variant, ok := swapdata.VariantFor(metaType(s.Data))
	if !ok {
		s.Err = errUnsupportedType
		return
	}

	res := results[0]
	if !res.Result.Found {
		cold := p.colds[s.Req.DB]
		if cold != nil {
			cold.KeyNotFound(s.Req.Key, true)
		}
		s.Intention = swapdata.IntentionNOP
		return
	}

	extend := objmeta.Extend{}
	if s.Data.Meta != nil {
		extend = s.Data.Meta.Extend
	}
	value, err := variant.Decode(res.Result.Value, extend)
	if err != nil {
		s.Err = err
		return
	}
	variant.SwapIn(s.Data, value, s.Req.Subkeys)
}

// notify is §4.5 step 6: in this synchronous-execute model notify and
// finish collapse into one step, since execute already ran on (what
// would be) the worker side before returning control here; async
// completion-queue delivery is the rio.Pool.Submit path used directly by
// callers that want overlap between batches instead of SubmitSync's
// blocking behavior.
func (p *Pipeline) notify(s *Swap) {
	p.finishSwap(s)
}

// finishSwap is §4.5 step 7: it applies the variant's in-memory presence
// transition for a successful disk operation, then hands the final state
// to the host.
func (p *Pipeline) finishSwap(s *Swap) {
	variant, ok := swapdata.VariantFor(metaType(s.Data))
	cold := p.colds[s.Req.DB]

	switch s.Intention {
	case swapdata.IntentionIN:
		p.host.SwapIn(s.Req.DB, s.Req.Key, s.Data.Value, s.Data.Meta)

	case swapdata.IntentionOUT:
		if ok && s.Err == nil {
			variant.SwapOut(s.Data, s.Flags)
			if cold != nil {
				cold.AddKey(s.Req.Key)
			}
			if len(s.Data.DirtySubkeys) > 0 {
				cleared := make([][]byte, 0, len(s.Data.DirtySubkeys))
				for sk := range s.Data.DirtySubkeys {
					cleared = append(cleared, []byte(sk))
				}
				s.Data.DirtySubkeys, _ = variant.DirtySubkeysRemove(s.Data.DirtySubkeys, cleared)
			}
		}
		p.host.SwapOut(s.Req.DB, s.Req.Key, s.Data.Meta, s.Flags.Has(swapdata.FlagKEEPDATA))

	case swapdata.IntentionDEL:
		if ok && s.Err == nil {
			variant.SwapDel(s.Data)
			if cold != nil {
				cold.DeleteKey(s.Req.Key)
			}
		}
		p.host.SwapDel(s.Req.DB, s.Req.Key)
	}
	if s.Data != nil && s.Data.PropagateExpire {
		p.host.PropagateExpire(s.Req.DB, s.Req.Key)
	}
	if s.Lock != nil {
		s.Lock.Unlock()
	}
	s.finish()
}

type pipelineError string

func (e pipelineError) Error() string { return string(e) }

const errUnsupportedType = pipelineError("swap: object type not supported")
