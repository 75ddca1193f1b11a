package plan

import (
	"fmt"
	"sort"
	"strings"

	"cuelang.org/go/cue"

	"github.com/roach88/jwpure/internal/constraint"
	"github.com/roach88/jwpure/internal/ir"
)

var (
	groupKeys = map[string]bool{"all": true, "any": true, "not": true, "column": true}
	leafKeys  = map[string]bool{"op": true, "value": true, "between": true, "in": true, "is_null": true}
)

// decodeNode converts a CUE node into a constraint tree. path names the
// node in error messages (e.g. "where.all[1]").
func decodeNode(v cue.Value, path string) (constraint.Predicate, error) {
	fields, err := nodeFields(v, path)
	if err != nil {
		return nil, err
	}

	var groups []string
	for name := range fields {
		if groupKeys[name] {
			groups = append(groups, name)
		}
	}
	sort.Strings(groups)
	if len(groups) != 1 {
		return nil, &CompileError{
			Field:   path,
			Message: fmt.Sprintf("node must have exactly one of all, any, not or column; got %s", describeKeys(groups)),
			Pos:     v.Pos(),
		}
	}

	kind := groups[0]
	if kind != "column" {
		for name := range fields {
			if name != kind {
				return nil, &CompileError{
					Field:   path,
					Message: fmt.Sprintf("%q is not allowed next to %q", name, kind),
					Pos:     fields[name].Pos(),
				}
			}
		}
	}

	switch kind {
	case "all":
		children, err := decodeChildren(fields[kind], path+".all")
		if err != nil {
			return nil, err
		}
		return constraint.All(children...), nil

	case "any":
		children, err := decodeChildren(fields[kind], path+".any")
		if err != nil {
			return nil, err
		}
		if len(children) == 0 {
			return nil, &CompileError{Field: path + ".any", Message: "any requires at least one node", Pos: fields[kind].Pos()}
		}
		return constraint.Any(children...), nil

	case "not":
		child, err := decodeNode(fields[kind], path+".not")
		if err != nil {
			return nil, err
		}
		if child == nil {
			return nil, &CompileError{Field: path + ".not", Message: "cannot negate an empty node", Pos: fields[kind].Pos()}
		}
		return constraint.Not(child), nil

	default:
		return decodeLeaf(v, fields, path)
	}
}

// nodeFields collects the regular fields of a node struct.
func nodeFields(v cue.Value, path string) (map[string]cue.Value, error) {
	if v.Kind() != cue.StructKind {
		return nil, &CompileError{Field: path, Message: "node must be a struct", Pos: v.Pos()}
	}

	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	fields := make(map[string]cue.Value)
	for iter.Next() {
		name := iter.Selector().Unquoted()
		if !groupKeys[name] && !leafKeys[name] {
			return nil, &CompileError{
				Field:   path,
				Message: fmt.Sprintf("unknown node field %q", name),
				Pos:     iter.Value().Pos(),
			}
		}
		fields[name] = iter.Value()
	}
	return fields, nil
}

func decodeChildren(v cue.Value, path string) ([]constraint.Predicate, error) {
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var children []constraint.Predicate
	for i := 0; iter.Next(); i++ {
		child, err := decodeNode(iter.Value(), fmt.Sprintf("%s[%d]", path, i))
		if err != nil {
			return nil, err
		}
		// An empty all: [] child matches everything and drops out.
		if child != nil {
			children = append(children, child)
		}
	}
	return children, nil
}

func decodeLeaf(v cue.Value, fields map[string]cue.Value, path string) (constraint.Predicate, error) {
	qualified, err := fields["column"].String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	table, name, ok := strings.Cut(qualified, ".")
	if !ok {
		return nil, &CompileError{Field: path + ".column", Message: fmt.Sprintf("column %q must be table.column", qualified), Pos: fields["column"].Pos()}
	}
	col := constraint.NewColumn(table, name)

	var tests []string
	for _, k := range []string{"op", "between", "in", "is_null"} {
		if _, ok := fields[k]; ok {
			tests = append(tests, k)
		}
	}
	if len(tests) != 1 {
		return nil, &CompileError{
			Field:   path,
			Message: fmt.Sprintf("leaf %s must have exactly one of op, between, in or is_null; got %s", qualified, describeKeys(tests)),
			Pos:     v.Pos(),
		}
	}
	if _, hasValue := fields["value"]; hasValue && tests[0] != "op" {
		return nil, &CompileError{Field: path + ".value", Message: "value is only allowed with op", Pos: fields["value"].Pos()}
	}

	switch tests[0] {
	case "op":
		return decodeComparison(col, fields, path)

	case "between":
		bounds, err := decodeLiterals(fields["between"], path+".between")
		if err != nil {
			return nil, err
		}
		if len(bounds) != 2 {
			return nil, &CompileError{Field: path + ".between", Message: "between requires [low, high]", Pos: fields["between"].Pos()}
		}
		return col.Between(bounds[0], bounds[1]), nil

	case "in":
		values, err := decodeLiterals(fields["in"], path+".in")
		if err != nil {
			return nil, err
		}
		return col.In(values...), nil

	default:
		isNull, err := fields["is_null"].Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		if isNull {
			return col.IsNull(), nil
		}
		return col.IsNotNull(), nil
	}
}

func decodeComparison(col constraint.Column, fields map[string]cue.Value, path string) (constraint.Predicate, error) {
	symbol, err := fields["op"].String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	op, ok := constraint.ParseOp(symbol)
	if !ok {
		return nil, &CompileError{Field: path + ".op", Message: fmt.Sprintf("unrecognized comparison operator %q", symbol), Pos: fields["op"].Pos()}
	}

	valueVal, ok := fields["value"]
	if !ok {
		return nil, &CompileError{Field: path, Message: fmt.Sprintf("op %q requires a value", symbol), Pos: fields["op"].Pos()}
	}
	value, err := decodeLiteral(valueVal, path+".value")
	if err != nil {
		return nil, err
	}

	return constraint.Comparison{Column: col.Qualified(), Op: op, Value: value}, nil
}

func decodeLiterals(v cue.Value, path string) ([]ir.Value, error) {
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []ir.Value
	for i := 0; iter.Next(); i++ {
		lit, err := decodeLiteral(iter.Value(), fmt.Sprintf("%s[%d]", path, i))
		if err != nil {
			return nil, err
		}
		out = append(out, lit)
	}
	return out, nil
}

// decodeLiteral converts a concrete CUE scalar to an ir.Value.
func decodeLiteral(v cue.Value, path string) (ir.Value, error) {
	switch v.Kind() {
	case cue.NullKind:
		return ir.Null{}, nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.Bool(b), nil
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return nil, &CompileError{Field: path, Message: fmt.Sprintf("integer out of range: %v", err), Pos: v.Pos()}
		}
		return ir.Int(n), nil
	case cue.FloatKind:
		f, err := v.Float64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.Float(f), nil
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.String(s), nil
	default:
		return nil, &CompileError{Field: path, Message: fmt.Sprintf("unsupported literal kind %v", v.Kind()), Pos: v.Pos()}
	}
}

func describeKeys(keys []string) string {
	if len(keys) == 0 {
		return "none"
	}
	return strings.Join(keys, ", ")
}
