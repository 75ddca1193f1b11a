// Package plan loads allocation plans written in CUE.
//
// A plan is an ordered list of passes. Each pass names its caps and a
// constraint tree; running a plan means calling engine.Allocate once per
// pass, in order.
//
// Plans are validated against an embedded #Plan schema (schema.cue) before
// their constraint trees are decoded. Errors carry the CUE source position
// of the offending value.
//
// NODE GRAMMAR:
//
// A node is exactly one of
//
//	all: [node, ...]          AND of every child (empty list matches all)
//	any: [node, ...]          OR of every child (at least one)
//	not: node                 negation
//	column: "table.column"    a leaf, with exactly one of
//	    op: "<op>", value: v  comparison (=, ==, !=, <>, <, <=, >, >=)
//	    between: [lo, hi]     inclusive range
//	    in: [v, ...]          membership
//	    is_null: bool         IS NULL (true) or IS NOT NULL (false)
//
// Literals are strings, numbers, booleans or null.
package plan
