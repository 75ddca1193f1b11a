// Package store provides the SQLite-backed relational store used by the
// allocation engine.
//
// The store holds the slot table loaded at startup plus the transient tables
// each allocation pass rebuilds:
//   - slot: one row per allocatable slot, including pure_* allocation state
//   - config: per (visit_id, config_id) aggregates
//   - visit: per visit_id aggregates
//   - subset: joint (visit_id, config_id, slot_id) triples for the pass
//   - sequence_numbers: staged sequence assignments for the pass
//
// # Critical Patterns
//
// Single Connection:
//   - SetMaxOpenConns(1) so an in-memory database is one shared database
//   - The engine is the only writer; no locking layer exists above SQLite
//
// Atomic Passes:
//   - InTx runs a callback in one transaction; any error rolls back every
//     statement, including CREATE TABLE, since SQLite DDL is transactional
//
// Deterministic Results:
//   - Callers that export rows order them explicitly (ORDER BY slot_id)
//   - TEXT cells are always returned as Go strings, never []byte
//
// # Database Configuration
//
// File-backed databases use WAL mode with synchronous=NORMAL. Every database
// gets busy_timeout=5000. An empty path or ":memory:" opens an in-memory
// database, which is the normal mode: results are exported, not persisted.
package store
