// Package coldswap implements the core of a disk-tiered key-value store: a
// "swap" subsystem that extends an in-memory keyspace with a persistent
// on-disk column-family store, so that the working set lives in RAM while
// cold keys are brought back from disk on demand.
//
// The package ties together five subsystems, each in its own sub-package:
// the request pipeline (request), the cold-key membership filter (filter),
// the eviction engine (evict), the hierarchical lock manager (lock), the
// persistence-driven flush scheduler (persist), and replication command
// dispatch (replica). Server is the explicit context struct that threads
// them together, replacing the teacher's C-derived process-wide singleton
// with a value callers construct and own.
//
// A typical embedder constructs one Server per process against a chosen
// rio.Store backend (rio/valkeystore or rio/ds9store, or any Store the
// embedder supplies), registers a request.Host implementing its own
// keyspace semantics, and drives the pipeline from its client command
// loop via Server.Pipeline().Admit.
package coldswap
