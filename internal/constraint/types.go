package constraint

import (
	"strings"

	"github.com/roach88/jwpure/internal/ir"
)

// Predicate represents a node in a constraint tree.
//
// This is a sealed interface - only types in this package implement it.
//
// Predicate types:
//   - Comparison: column <op> literal
//   - Range: column BETWEEN low AND high
//   - Membership: column IN (v1, v2, ...)
//   - NullCheck: column IS [NOT] NULL
//   - Logical: AND / OR / NOT over child predicates
type Predicate interface {
	predicateNode() // Marker method - seals interface to this package
}

// Op is a comparison operator.
type Op string

// The six recognized comparison operators.
const (
	OpEq Op = "="
	OpNe Op = "!="
	OpLt Op = "<"
	OpLe Op = "<="
	OpGt Op = ">"
	OpGe Op = ">="
)

// Valid reports whether op is one of the six recognized operators.
func (op Op) Valid() bool {
	switch op {
	case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe:
		return true
	}
	return false
}

// ParseOp maps an operator symbol to an Op. "==" and "<>" are accepted
// as aliases for "=" and "!=".
func ParseOp(s string) (Op, bool) {
	switch s {
	case "==":
		return OpEq, true
	case "<>":
		return OpNe, true
	}
	op := Op(s)
	return op, op.Valid()
}

// LogicalOp is a Boolean composition operator.
type LogicalOp string

const (
	OpAnd LogicalOp = "AND"
	OpOr  LogicalOp = "OR"
	OpNot LogicalOp = "NOT"
)

// Comparison represents a column compared to a literal.
//
// Semantics:
//
//	<column> <op> <value>
type Comparison struct {
	Column string   // Qualified column name (e.g., "slot.inst")
	Op     Op       // One of the six comparison operators
	Value  ir.Value // Literal value
}

func (Comparison) predicateNode() {}

// Range represents an inclusive range test.
//
// Semantics:
//
//	<column> BETWEEN <low> AND <high>
type Range struct {
	Column string
	Low    ir.Value
	High   ir.Value
}

func (Range) predicateNode() {}

// Membership represents a set-membership test. Values keep caller order.
//
// Semantics:
//
//	<column> IN (<v1>, <v2>, ...)
type Membership struct {
	Column string
	Values []ir.Value
}

func (Membership) predicateNode() {}

// NullCheck holds a raw qualified null test such as "slot.glat IS NULL".
// The compiler emits SQL unchanged.
type NullCheck struct {
	SQL string
}

func (NullCheck) predicateNode() {}

// Column returns the qualified column the null test applies to.
func (n NullCheck) Column() string {
	name, _, _ := strings.Cut(n.SQL, " ")
	return name
}

// Logical represents Boolean composition of child predicates.
// NOT has exactly one child; AND and OR have exactly two.
type Logical struct {
	Op   LogicalOp
	Args []Predicate
}

func (Logical) predicateNode() {}

// And returns a new node requiring both a and b.
func And(a, b Predicate) Predicate {
	return Logical{Op: OpAnd, Args: []Predicate{a, b}}
}

// Or returns a new node requiring a or b.
func Or(a, b Predicate) Predicate {
	return Logical{Op: OpOr, Args: []Predicate{a, b}}
}

// Not returns a new node negating p.
func Not(p Predicate) Predicate {
	return Logical{Op: OpNot, Args: []Predicate{p}}
}

// All folds predicates left to right with And, so All(a, b, c) is
// And(And(a, b), c). All() is nil (no constraint) and All(a) is a.
func All(preds ...Predicate) Predicate {
	return fold(And, preds)
}

// Any folds predicates left to right with Or.
func Any(preds ...Predicate) Predicate {
	return fold(Or, preds)
}

func fold(combine func(a, b Predicate) Predicate, preds []Predicate) Predicate {
	if len(preds) == 0 {
		return nil
	}
	acc := preds[0]
	for _, p := range preds[1:] {
		acc = combine(acc, p)
	}
	return acc
}

// TableOf returns the owning table of a qualified column name,
// or "" for an unqualified name.
func TableOf(qualified string) string {
	table, _, ok := strings.Cut(qualified, ".")
	if !ok {
		return ""
	}
	return table
}

// Columns lists the qualified column names referenced by p,
// in first-seen order without duplicates.
func Columns(p Predicate) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	Walk(p, func(node Predicate) {
		switch n := node.(type) {
		case Comparison:
			add(n.Column)
		case Range:
			add(n.Column)
		case Membership:
			add(n.Column)
		case NullCheck:
			add(n.Column())
		}
	})
	return out
}

// Walk visits p and its descendants depth-first, parents before children.
// Nil nodes are skipped.
func Walk(p Predicate, visit func(Predicate)) {
	if p == nil {
		return
	}
	visit(p)
	if l, ok := p.(Logical); ok {
		for _, child := range l.Args {
			Walk(child, visit)
		}
	}
}
