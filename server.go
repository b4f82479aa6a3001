package coldswap

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/codeGROOVE-dev/coldswap/evict"
	"github.com/codeGROOVE-dev/coldswap/filter"
	"github.com/codeGROOVE-dev/coldswap/lock"
	"github.com/codeGROOVE-dev/coldswap/objmeta"
	"github.com/codeGROOVE-dev/coldswap/persist"
	"github.com/codeGROOVE-dev/coldswap/replica"
	"github.com/codeGROOVE-dev/coldswap/request"
	"github.com/codeGROOVE-dev/coldswap/rio"
)

// Database is one numbered keyspace (§3 "Database"). It owns the cold
// filter and persistence bookkeeping for its keys; the hot key->value map
// itself belongs to the embedding key-value server and is reached only
// through the request.Host implementation passed into Server -- the data
// model and command implementations are explicitly out of scope
// (spec.md §1).
type Database struct {
	ID      int
	Cold    *filter.Cold
	Persist *persist.Keys
}

// Server is the explicit context struct threaded through the public API,
// replacing the source's global `server` singleton (per the "Global
// mutable state" design note): one Server per embedding process, owning
// the lock manager, the RIO worker pool, the eviction engine, the
// replication dispatcher, and one Database per numbered db.
type Server struct {
	opts *Options

	DBs     []*Database
	Locks   *lock.Manager
	Evictor *evict.Engine
	Store   rio.Store
	Version *objmeta.Counter
	RioPool *rio.Pool
	Repl    *replica.Dispatcher
	Stats   *Stats

	pipeline *request.Pipeline
	log      *slog.Logger
}

// New constructs a Server with numDBs databases, wired against store for
// on-disk I/O. host implements the embedding server's keyspace semantics
// (lookup/swap-in/swap-out/swap-del) that request.Pipeline needs but
// cannot own itself (spec.md §1: the data model is an external
// collaborator).
func New(numDBs int, store rio.Store, host request.Host, opts ...Option) (*Server, error) {
	if numDBs <= 0 {
		return nil, fmt.Errorf("coldswap: numDBs must be positive, got %d", numDBs)
	}
	if store == nil {
		return nil, fmt.Errorf("coldswap: store cannot be nil")
	}
	if host == nil {
		return nil, fmt.Errorf("coldswap: host cannot be nil")
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	log := o.logger
	if log == nil {
		log = slog.Default()
	}

	s := &Server{
		opts:    o,
		DBs:     make([]*Database, numDBs),
		Locks:   lock.NewManager(),
		Store:   store,
		Version: objmeta.NewCounter(1),
		Stats:   NewStats(),
		log:     log,
	}

	// cuckooDisabled is shared by every database's Cold so that one db's
	// permanent cuckoo insert failure disables cuckoo lookups server-wide
	// (§4.2/§7), matching the original's coldFilterDisableCuckooFilters
	// looping server.dbnum rather than disabling one db in isolation. It
	// starts set when WithCuckooFilter turned the cuckoo filter off.
	cuckooDisabled := new(atomic.Bool)
	if !o.cuckooEnabled {
		cuckooDisabled.Store(true)
	}
	colds := make(map[int]*filter.Cold, numDBs)
	for i := range s.DBs {
		var cold *filter.Cold
		if o.cuckooEnabled {
			cold = filter.NewColdShared(o.cuckooBitType, o.cuckooEstimatedKeys, o.absentCacheCapacity, cuckooDisabled)
		} else {
			cold = filter.NewColdShared(o.cuckooBitType, 0, o.absentCacheCapacity, cuckooDisabled)
		}
		s.DBs[i] = &Database{
			ID:      i,
			Cold:    cold,
			Persist: persist.NewKeys(),
		}
		colds[i] = cold
	}

	s.Evictor = evict.NewEngine(evict.Config{
		InprogressLimit:       o.evictionInprogressLimit,
		InprogressGrowthRate:  o.evictionInprogressGrowthRate,
		MaxmemoryScaledownPct: o.maxmemoryScaledownRate,
		RatelimitPolicy:       o.ratelimitPolicy,
		RatelimitMaxmemoryPct: o.ratelimitMaxmemoryPct,
		RatelimitPauseGrowth:  o.ratelimitPauseGrowthRate,
		RatelimitPersistLag:   o.ratelimitPersistLag,
	})

	s.RioPool = rio.NewPool(store, o.rioWorkers)
	s.pipeline = request.New(request.Config{
		Locks:        s.Locks,
		Colds:        colds,
		Host:         host,
		Version:      s.Version,
		BatchThreads: o.rioWorkers,
		BatchDefault: o.batchDefaultSize,
		BatchLinear:  o.batchLinearSize,
		Rio:          s.RioPool,
		SessionBits:  uint(o.scanSessionBits),
	})
	s.Repl = replica.NewDispatcher(o.replWorkers, s.Version)

	return s, nil
}

// DB returns the database numbered dbid, or nil if out of range.
func (s *Server) DB(dbid int) *Database {
	if dbid < 0 || dbid >= len(s.DBs) {
		return nil
	}
	return s.DBs[dbid]
}

// Pipeline returns the swap request pipeline client commands are driven
// through (§4.5).
func (s *Server) Pipeline() *request.Pipeline {
	return s.pipeline
}

// Logger returns the Server's structured logger.
func (s *Server) Logger() *slog.Logger {
	return s.log
}

// Close stops the RIO worker pool, waiting for in-flight operations to
// finish.
func (s *Server) Close() {
	s.RioPool.Close()
}

// Info renders the server's INFO-style stats block (§4.5-§4.8 glue
// counters) plus one cuckoo-filter stats section per database.
func (s *Server) Info() string {
	out := s.Stats.Info()
	for _, db := range s.DBs {
		stat := db.Cold.Stats()
		out += FilterStats(db.ID, stat.Tags, stat.UsedMemory, stat.LoadFactors)
	}
	return out
}
