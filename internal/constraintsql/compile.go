// Package constraintsql compiles constraint trees into SQL filter clauses.
//
// Compilation can be scoped to one table: leaves owned by other tables are
// dropped, and AND/OR nodes collapse to whichever side remains. This is how
// the engine derives per-table filters for the config and visit aggregates
// from a single constraint that spans all three tables.
package constraintsql

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/jwpure/internal/constraint"
	"github.com/roach88/jwpure/internal/ir"
)

var (
	// ErrUnknownPredicateType is matched by *UnknownPredicateTypeError.
	ErrUnknownPredicateType = errors.New("unknown predicate type")

	// ErrInvalidLiteral is returned when a literal has no SQL form.
	ErrInvalidLiteral = errors.New("invalid literal")
)

// UnknownPredicateTypeError reports a node outside the closed predicate set.
// It indicates a programming defect in the caller and is never recoverable.
type UnknownPredicateTypeError struct {
	Node any
}

func (e *UnknownPredicateTypeError) Error() string {
	return fmt.Sprintf("%s: %T", ErrUnknownPredicateType, e.Node)
}

func (e *UnknownPredicateTypeError) Is(target error) bool {
	return target == ErrUnknownPredicateType
}

// WhereClause returns "WHERE <clause>" for p, or "" when p compiles to
// nothing under the given scope (the table is then taken unfiltered).
func WhereClause(p constraint.Predicate, onlyTable string) (string, error) {
	sql, err := Compile(p, onlyTable)
	if err != nil {
		return "", err
	}
	if sql == "" {
		return "", nil
	}
	return "WHERE " + sql, nil
}

// Compile converts a constraint tree to a SQL boolean expression.
//
// With onlyTable set, leaves whose qualified column does not belong to that
// table compile to "". NOT of "" is "", and an AND/OR with one empty side
// reduces to the other side. A nil tree compiles to "".
func Compile(p constraint.Predicate, onlyTable string) (string, error) {
	if p == nil {
		return "", nil
	}

	switch pred := p.(type) {
	case constraint.Comparison:
		return compileComparison(pred, onlyTable)
	case constraint.Range:
		return compileRange(pred, onlyTable)
	case constraint.Membership:
		return compileMembership(pred, onlyTable)
	case constraint.NullCheck:
		if !inScope(pred.SQL, onlyTable) {
			return "", nil
		}
		return pred.SQL, nil
	case constraint.Logical:
		return compileLogical(pred, onlyTable)
	default:
		return "", &UnknownPredicateTypeError{Node: p}
	}
}

// inScope reports whether a qualified name (or raw predicate starting with
// one) belongs to onlyTable. Every name is in scope when onlyTable is "".
func inScope(qualified, onlyTable string) bool {
	return onlyTable == "" || strings.HasPrefix(qualified, onlyTable+".")
}

func compileComparison(c constraint.Comparison, onlyTable string) (string, error) {
	if !inScope(c.Column, onlyTable) {
		return "", nil
	}
	lit, err := literal(c.Column, c.Value)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s %s %s", c.Column, c.Op, lit), nil
}

func compileRange(r constraint.Range, onlyTable string) (string, error) {
	if !inScope(r.Column, onlyTable) {
		return "", nil
	}
	low, err := literal(r.Column, r.Low)
	if err != nil {
		return "", err
	}
	high, err := literal(r.Column, r.High)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s BETWEEN %s AND %s", r.Column, low, high), nil
}

func compileMembership(m constraint.Membership, onlyTable string) (string, error) {
	if !inScope(m.Column, onlyTable) {
		return "", nil
	}
	list, err := ir.SQLList(m.Values)
	if err != nil {
		return "", fmt.Errorf("%w for %s: %v", ErrInvalidLiteral, m.Column, err)
	}
	return fmt.Sprintf("%s IN %s", m.Column, list), nil
}

func compileLogical(l constraint.Logical, onlyTable string) (string, error) {
	if l.Op == constraint.OpNot {
		var child constraint.Predicate
		if len(l.Args) > 0 {
			child = l.Args[0]
		}
		sql, err := Compile(child, onlyTable)
		if err != nil || sql == "" {
			return "", err
		}
		return "(NOT " + sql + ")", nil
	}

	var left, right constraint.Predicate
	if len(l.Args) > 0 {
		left = l.Args[0]
	}
	if len(l.Args) > 1 {
		right = l.Args[1]
	}
	leftSQL, err := Compile(left, onlyTable)
	if err != nil {
		return "", err
	}
	rightSQL, err := Compile(right, onlyTable)
	if err != nil {
		return "", err
	}

	switch {
	case leftSQL != "" && rightSQL != "":
		return fmt.Sprintf("(%s %s %s)", leftSQL, l.Op, rightSQL), nil
	case leftSQL != "":
		return leftSQL, nil
	default:
		return rightSQL, nil
	}
}

func literal(column string, v ir.Value) (string, error) {
	s, err := ir.SQL(v)
	if err != nil {
		return "", fmt.Errorf("%w for %s: %v", ErrInvalidLiteral, column, err)
	}
	return s, nil
}
