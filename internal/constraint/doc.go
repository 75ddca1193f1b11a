// Package constraint provides the predicate tree used to express allocation
// constraints over the slot, config and visit tables.
//
// ARCHITECTURE:
//
// Constraint Layer:
// The predicate tree sits between callers (CLI plans, tests, library users)
// and the SQL compiler:
//
//	[builders / CUE plan] → [Predicate tree] → [constraintsql] → WHERE clause
//
// Trees are built bottom-up from column handles and are immutable once
// constructed. Composition (And, Or, Not) always returns a new node.
//
// SEALED INTERFACE:
//
// Predicate is sealed with the marker method pattern. Only types in this
// package implement it, which lets the compiler use exhaustive type switches:
//
//	switch p := pred.(type) {
//	case Comparison:
//	case Range:
//	case Membership:
//	case NullCheck:
//	case Logical:
//	}
//
// TABLE SCOPING:
//
// Every leaf carries a qualified column name ("slot.inst"), so each leaf is
// owned by exactly one table. The compiler uses the owning table to drop
// leaves that are out of scope when building per-table filters.
//
// Example:
//
//	slot, config, visit := constraint.Parameters()
//	c := constraint.All(
//	    slot.Col("inst").Ne(ir.String("NIRCam")),
//	    slot.Col("slotdur").Between(ir.Int(300), ir.Int(900)),
//	    config.Col("nslot").Ge(ir.Int(3)),
//	    visit.Col("nconfig").Ge(ir.Int(3)),
//	)
package constraint
