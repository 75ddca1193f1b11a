package store

import (
	"errors"
	"fmt"
)

// ErrUnrecognizedColumnType is matched by *ColumnTypeError.
var ErrUnrecognizedColumnType = errors.New("unrecognized column type")

// ColumnTypeError reports a column whose values cannot be mapped to a
// storage type. It is raised at load time, before any allocation.
type ColumnTypeError struct {
	Column string
	Reason string
}

func (e *ColumnTypeError) Error() string {
	return fmt.Sprintf("%s: column %q: %s", ErrUnrecognizedColumnType, e.Column, e.Reason)
}

func (e *ColumnTypeError) Is(target error) bool {
	return target == ErrUnrecognizedColumnType
}

// ColumnType is a SQLite storage type.
type ColumnType string

const (
	TypeInteger ColumnType = "INTEGER"
	TypeReal    ColumnType = "REAL"
	TypeText    ColumnType = "TEXT"
)

// Table is an in-memory tabular value: column names plus rows.
// It is both the input to CreateTable and the result of Query.
// Cells hold nil, int64, float64 or string.
type Table struct {
	Columns []string
	Rows    [][]any
}

// NewTable creates an empty table with the given columns.
func NewTable(columns ...string) *Table {
	return &Table{Columns: columns}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Index returns the position of a column, or -1.
func (t *Table) Index(column string) int {
	for i, c := range t.Columns {
		if c == column {
			return i
		}
	}
	return -1
}

// Column returns the values of a column, or nil if it does not exist.
func (t *Table) Column(column string) []any {
	idx := t.Index(column)
	if idx < 0 {
		return nil
	}
	out := make([]any, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row[idx]
	}
	return out
}

// AddColumn appends a column with the same value in every row.
func (t *Table) AddColumn(column string, fill any) error {
	if t.Index(column) >= 0 {
		return fmt.Errorf("column %q already exists", column)
	}
	t.Columns = append(t.Columns, column)
	for i := range t.Rows {
		t.Rows[i] = append(t.Rows[i], fill)
	}
	return nil
}

// Append adds a row. The row must have one cell per column.
func (t *Table) Append(row ...any) error {
	if len(row) != len(t.Columns) {
		return fmt.Errorf("row has %d cells, table has %d columns", len(row), len(t.Columns))
	}
	t.Rows = append(t.Rows, row)
	return nil
}

// Schema infers the storage type of every column.
func (t *Table) Schema() ([]ColumnType, error) {
	types := make([]ColumnType, len(t.Columns))
	for i, name := range t.Columns {
		values := make([]any, len(t.Rows))
		for r, row := range t.Rows {
			if len(row) != len(t.Columns) {
				return nil, fmt.Errorf("row %d has %d cells, table has %d columns", r, len(row), len(t.Columns))
			}
			values[r] = row[i]
		}
		ct, err := InferColumnType(name, values)
		if err != nil {
			return nil, err
		}
		types[i] = ct
	}
	return types, nil
}

// InferColumnType maps a column's Go values to a storage type.
//
// nil cells are ignored. Integers map to INTEGER, floats to REAL (a mix of
// integers and floats is REAL) and strings to TEXT. A column of only nil
// cells is TEXT. Any other Go type, or strings mixed with numbers, fails
// with ErrUnrecognizedColumnType.
func InferColumnType(column string, values []any) (ColumnType, error) {
	var sawInt, sawFloat, sawText bool
	for _, v := range values {
		switch v.(type) {
		case nil:
		case int, int8, int16, int32, int64, uint8, uint16, uint32:
			sawInt = true
		case float32, float64:
			sawFloat = true
		case string:
			sawText = true
		default:
			return "", &ColumnTypeError{Column: column, Reason: fmt.Sprintf("no storage type for Go type %T", v)}
		}
	}

	switch {
	case sawText && (sawInt || sawFloat):
		return "", &ColumnTypeError{Column: column, Reason: "mixes text and numeric values"}
	case sawFloat:
		return TypeReal, nil
	case sawInt:
		return TypeInteger, nil
	default:
		return TypeText, nil
	}
}
