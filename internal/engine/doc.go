// Package engine implements the pure-parallel slot allocation engine.
//
// The engine owns a relational store holding the slot inventory and carves
// successive, non-overlapping subsets out of it. Each call to Allocate is one
// pass: it filters slots, aggregates them into configs and visits, applies
// the same constraint at every level, and claims the surviving slots with
// dense sequence numbers.
//
// ARCHITECTURE:
//
// Single Writer:
// One Engine drives one store. Allocate serializes on a mutex, and the store
// runs over a single SQLite connection, so every statement of a pass sees the
// same database.
//
// Pass Flow:
//  1. Compile the constraint three times (slot scope, config scope, unscoped)
//  2. Build the config table from available matching slots
//  3. Build the visit table from matching configs
//  4. Join slot, config and visit into the subset table
//  5. Number the subset in slot_id order (AssignSequenceNumbers)
//  6. Stage the numbers in sequence_numbers and write them back into slot
//
// All steps run in one transaction. A failed pass leaves the store as it was
// and does not consume a subset index.
//
// CRITICAL PATTERNS:
//
// Monotonic Claiming:
// Every clause that reads slot rows carries slot.pure_subset = 0, so a
// claimed slot is never seen again. Truncated slots keep pure_subset = 0 and
// are reconsidered by later passes.
//
// Deterministic Numbering:
// Subset rows are numbered in ORDER BY slot_id order. Subset indices come
// from Clock and advance only when a pass commits.
package engine
