package constraint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/jwpure/internal/ir"
)

func TestParameters(t *testing.T) {
	slot, config, visit := Parameters()

	assert.Equal(t, "slot", slot.Name())
	assert.Equal(t, SlotColumns, slot.Columns())
	assert.Equal(t, "config", config.Name())
	assert.Equal(t, []string{"nslot", "configdur"}, config.Columns())
	assert.Equal(t, "visit", visit.Name())
	assert.Equal(t, []string{"nconfig"}, visit.Columns())

	assert.Equal(t, Column{Table: "slot", Name: "slotdur"}, slot.Col("slotdur"))
}

func TestTable_ColPanicsOnUnknown(t *testing.T) {
	_, config, _ := Parameters()
	assert.PanicsWithValue(t, `constraint: table "config" has no column "bogus"`, func() {
		config.Col("bogus")
	})
}

func TestTable_Lookup(t *testing.T) {
	_, _, visit := Parameters()

	col, ok := visit.Lookup("nconfig")
	require.True(t, ok)
	assert.Equal(t, "visit.nconfig", col.Qualified())

	_, ok = visit.Lookup("nslot")
	assert.False(t, ok)
}

func TestNewTable_IgnoresDuplicates(t *testing.T) {
	tbl := NewTable("slot", "ra", "dec", "ra")
	assert.Equal(t, []string{"ra", "dec"}, tbl.Columns())
}

func TestTable_ColumnsIsACopy(t *testing.T) {
	tbl := NewTable("slot", "ra")
	cols := tbl.Columns()
	cols[0] = "changed"
	assert.Equal(t, []string{"ra"}, tbl.Columns())
}

func TestSlotTable(t *testing.T) {
	loaded := []string{"slot_id", "visit_id", "cycle"}
	tbl := SlotTable(loaded...)

	assert.Equal(t, []string{"slot_id", "visit_id", "cycle", "pure_subset"}, tbl.Columns())
	assert.Equal(t, []string{"slot_id", "visit_id", "cycle"}, loaded)
}

func TestAvailable(t *testing.T) {
	assert.Equal(t,
		Comparison{Column: "slot.pure_subset", Op: OpEq, Value: ir.Int(0)},
		Available())
}
