package constraint

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/jwpure/internal/ir"
)

func TestValidate_Valid(t *testing.T) {
	slot, config, visit := Parameters()
	p := All(
		slot.Col("inst").Ne(ir.String("NIRCam")),
		slot.Col("slotdur").Between(ir.Int(300), ir.Int(900)),
		config.Col("nslot").Ge(ir.Int(3)),
		Not(visit.Col("nconfig").In(ir.Int(1))),
		slot.Col("glat").IsNotNull(),
	)

	result := Validate(p, slot, config, visit)
	assert.True(t, result.Valid)
	assert.Empty(t, result.Issues)
}

func TestValidate_Nil(t *testing.T) {
	result := Validate(nil)
	assert.True(t, result.Valid)
}

func TestValidate_Issues(t *testing.T) {
	slot, config, visit := Parameters()

	tests := []struct {
		name  string
		pred  Predicate
		issue string
	}{
		{
			name:  "unknown column",
			pred:  NewColumn("slot", "bogus").Eq(ir.Int(1)),
			issue: `table "slot" has no column "bogus"`,
		},
		{
			name:  "unknown table",
			pred:  NewColumn("program", "id").Eq(ir.Int(1)),
			issue: `column "program.id" references unknown table "program"`,
		},
		{
			name:  "unqualified column",
			pred:  NewColumn("", "inst").Eq(ir.String("MIRI")),
			issue: `column "inst" is not qualified with a table name`,
		},
		{
			name:  "bad operator",
			pred:  Comparison{Column: "slot.inst", Op: "LIKE", Value: ir.String("N%")},
			issue: `slot.inst: unrecognized comparison operator "LIKE"`,
		},
		{
			name:  "missing value",
			pred:  Comparison{Column: "slot.inst", Op: OpEq},
			issue: "slot.inst: comparison has no value",
		},
		{
			name:  "open range",
			pred:  Range{Column: "slot.ra", Low: ir.Int(1)},
			issue: "slot.ra: range requires low and high values",
		},
		{
			name:  "empty membership",
			pred:  NewColumn("slot", "inst").In(),
			issue: "slot.inst: membership list is empty and matches nothing",
		},
		{
			name:  "malformed null check",
			pred:  NullCheck{SQL: "slot.inst = NULL"},
			issue: `malformed null check "slot.inst = NULL"`,
		},
		{
			name:  "not arity",
			pred:  Logical{Op: OpNot},
			issue: "NOT requires 1 operand, got 0",
		},
		{
			name:  "and arity",
			pred:  Logical{Op: OpAnd, Args: []Predicate{slot.Col("ra").Eq(ir.Int(1))}},
			issue: "AND requires 2 operands, got 1",
		},
		{
			name:  "unknown logical",
			pred:  Logical{Op: "XOR", Args: []Predicate{nil, nil}},
			issue: `unknown logical operator "XOR"`,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := Validate(tc.pred, slot, config, visit)
			assert.False(t, result.Valid)
			assert.Contains(t, result.Issues, tc.issue)
		})
	}
}

func TestValidate_StructuralOnlyWithoutTables(t *testing.T) {
	result := Validate(NewColumn("anything", "goes").Eq(ir.Int(1)))
	assert.True(t, result.Valid)
}

func TestValidate_CollectsAllIssues(t *testing.T) {
	slot, _, _ := Parameters()
	p := And(
		NewColumn("slot", "x").Eq(ir.Int(1)),
		NewColumn("slot", "y").Eq(ir.Int(2)),
	)

	result := Validate(p, slot)
	assert.Equal(t, []string{
		`table "slot" has no column "x"`,
		`table "slot" has no column "y"`,
	}, result.Issues)
}
