package constraint

import (
	"fmt"

	"github.com/roach88/jwpure/internal/ir"
)

// Table names used by the allocation engine.
const (
	TableSlot   = "slot"
	TableConfig = "config"
	TableVisit  = "visit"
)

// Column identifies a column of a named table.
// Comparison builders return predicate nodes rather than booleans.
type Column struct {
	Table string
	Name  string
}

// NewColumn creates a column handle. An empty table yields an
// unqualified column, which no table scope will claim.
func NewColumn(table, name string) Column {
	return Column{Table: table, Name: name}
}

// Qualified returns "table.name", or just the name when the table is empty.
func (c Column) Qualified() string {
	if c.Table == "" {
		return c.Name
	}
	return c.Table + "." + c.Name
}

func (c Column) String() string {
	return c.Qualified()
}

func (c Column) compare(op Op, v ir.Value) Predicate {
	return Comparison{Column: c.Qualified(), Op: op, Value: v}
}

// Eq builds "column = v".
func (c Column) Eq(v ir.Value) Predicate { return c.compare(OpEq, v) }

// Ne builds "column != v".
func (c Column) Ne(v ir.Value) Predicate { return c.compare(OpNe, v) }

// Lt builds "column < v".
func (c Column) Lt(v ir.Value) Predicate { return c.compare(OpLt, v) }

// Le builds "column <= v".
func (c Column) Le(v ir.Value) Predicate { return c.compare(OpLe, v) }

// Gt builds "column > v".
func (c Column) Gt(v ir.Value) Predicate { return c.compare(OpGt, v) }

// Ge builds "column >= v".
func (c Column) Ge(v ir.Value) Predicate { return c.compare(OpGe, v) }

// Between builds the inclusive range test "column BETWEEN low AND high".
func (c Column) Between(low, high ir.Value) Predicate {
	return Range{Column: c.Qualified(), Low: low, High: high}
}

// In builds "column IN (values...)". The values slice is copied.
func (c Column) In(values ...ir.Value) Predicate {
	vals := make([]ir.Value, len(values))
	copy(vals, values)
	return Membership{Column: c.Qualified(), Values: vals}
}

// IsNull builds "column IS NULL".
func (c Column) IsNull() Predicate {
	return NullCheck{SQL: c.Qualified() + " IS NULL"}
}

// IsNotNull builds "column IS NOT NULL".
func (c Column) IsNotNull() Predicate {
	return NullCheck{SQL: c.Qualified() + " IS NOT NULL"}
}

// Table describes a constrainable table: its name and an explicit
// mapping from column name to column handle.
type Table struct {
	name    string
	order   []string
	columns map[string]Column
}

// NewTable creates a table descriptor with the given column names.
// Duplicate names are ignored.
func NewTable(name string, columns ...string) *Table {
	t := &Table{name: name, columns: make(map[string]Column, len(columns))}
	for _, col := range columns {
		if _, dup := t.columns[col]; dup {
			continue
		}
		t.columns[col] = NewColumn(name, col)
		t.order = append(t.order, col)
	}
	return t
}

// Name returns the table name.
func (t *Table) Name() string {
	return t.name
}

// Col returns the named column handle.
// Panics if the column is not part of the descriptor; that is a
// programming error in code that builds constraints.
func (t *Table) Col(name string) Column {
	col, ok := t.columns[name]
	if !ok {
		panic(fmt.Sprintf("constraint: table %q has no column %q", t.name, name))
	}
	return col
}

// Lookup returns the named column handle and whether it exists.
func (t *Table) Lookup(name string) (Column, bool) {
	col, ok := t.columns[name]
	return col, ok
}

// Columns returns the column names in declaration order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// Standard constrainable columns of each table.
var (
	SlotColumns   = []string{"inst", "slotdur", "ra", "dec", "elat", "glat", "pure_subset"}
	ConfigColumns = []string{"nslot", "configdur"}
	VisitColumns  = []string{"nconfig"}
)

// Parameters returns descriptors for the slot, config and visit tables
// with their standard constrainable columns.
func Parameters() (slot, config, visit *Table) {
	return NewTable(TableSlot, SlotColumns...),
		NewTable(TableConfig, ConfigColumns...),
		NewTable(TableVisit, VisitColumns...)
}

// SlotTable returns a slot descriptor for an arbitrary loaded column set.
// The pure_subset column is always present since the engine constrains it.
func SlotTable(columns ...string) *Table {
	cols := append([]string{}, columns...)
	return NewTable(TableSlot, append(cols, "pure_subset")...)
}

// Available is the predicate selecting slots not yet claimed by a subset.
func Available() Predicate {
	return NewColumn(TableSlot, "pure_subset").Eq(ir.Int(0))
}
