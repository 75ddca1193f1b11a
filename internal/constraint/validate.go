package constraint

import (
	"fmt"
	"strings"
)

// ValidationResult reports problems found in a constraint tree.
//
// A tree with issues still compiles: unknown columns only fail once the
// store executes the clause. Validation surfaces them before allocation.
type ValidationResult struct {
	// Valid is true when Issues is empty.
	Valid bool

	// Issues lists each problem in traversal order.
	Issues []string
}

// Validate checks that every leaf of p references a column of one of the
// given tables, that comparison operators are recognized, that logical
// nodes have the right arity and that null checks are well formed.
//
// With no tables, only structural checks run. Validate is a pure function.
func Validate(p Predicate, tables ...*Table) ValidationResult {
	v := &validator{tables: make(map[string]*Table, len(tables))}
	for _, t := range tables {
		v.tables[t.Name()] = t
	}
	v.validatePredicate(p)

	return ValidationResult{
		Valid:  len(v.issues) == 0,
		Issues: v.issues,
	}
}

// validator accumulates issues during traversal.
type validator struct {
	tables map[string]*Table
	issues []string
}

func (v *validator) addIssue(format string, args ...any) {
	v.issues = append(v.issues, fmt.Sprintf(format, args...))
}

// validatePredicate recursively validates a predicate node.
func (v *validator) validatePredicate(p Predicate) {
	if p == nil {
		return // nil means no constraint
	}

	switch pred := p.(type) {
	case Comparison:
		v.validateColumn(pred.Column)
		if !pred.Op.Valid() {
			v.addIssue("%s: unrecognized comparison operator %q", pred.Column, pred.Op)
		}
		if pred.Value == nil {
			v.addIssue("%s: comparison has no value", pred.Column)
		}
	case Range:
		v.validateColumn(pred.Column)
		if pred.Low == nil || pred.High == nil {
			v.addIssue("%s: range requires low and high values", pred.Column)
		}
	case Membership:
		v.validateColumn(pred.Column)
		if len(pred.Values) == 0 {
			v.addIssue("%s: membership list is empty and matches nothing", pred.Column)
		}
	case NullCheck:
		if !strings.HasSuffix(pred.SQL, " IS NULL") && !strings.HasSuffix(pred.SQL, " IS NOT NULL") {
			v.addIssue("malformed null check %q", pred.SQL)
		}
		v.validateColumn(pred.Column())
	case Logical:
		v.validateLogical(pred)
	default:
		v.addIssue("unknown predicate type %T", p)
	}
}

func (v *validator) validateLogical(l Logical) {
	switch l.Op {
	case OpNot:
		if len(l.Args) != 1 {
			v.addIssue("NOT requires 1 operand, got %d", len(l.Args))
		}
	case OpAnd, OpOr:
		if len(l.Args) != 2 {
			v.addIssue("%s requires 2 operands, got %d", l.Op, len(l.Args))
		}
	default:
		v.addIssue("unknown logical operator %q", l.Op)
	}
	for _, child := range l.Args {
		v.validatePredicate(child)
	}
}

func (v *validator) validateColumn(qualified string) {
	table := TableOf(qualified)
	if table == "" {
		v.addIssue("column %q is not qualified with a table name", qualified)
		return
	}
	if len(v.tables) == 0 {
		return
	}
	desc, ok := v.tables[table]
	if !ok {
		v.addIssue("column %q references unknown table %q", qualified, table)
		return
	}
	name := strings.TrimPrefix(qualified, table+".")
	if _, ok := desc.Lookup(name); !ok {
		v.addIssue("table %q has no column %q", table, name)
	}
}
