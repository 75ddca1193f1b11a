package testutil

import (
	"github.com/roach88/jwpure/internal/constraint"
	"github.com/roach88/jwpure/internal/ir"
	"github.com/roach88/jwpure/internal/store"
)

// SlotColumns are the columns of every fixture slot table.
var SlotColumns = []string{"slot_id", "visit_id", "config_id", "inst", "slotdur", "cycle"}

// SlotRow is one fixture slot.
type SlotRow struct {
	SlotID   int64
	VisitID  string
	ConfigID int64
	Inst     string
	SlotDur  float64
	Cycle    int64
}

// SlotTable builds a slot table from rows, in the given order.
func SlotTable(rows ...SlotRow) *store.Table {
	t := store.NewTable(SlotColumns...)
	t.Rows = make([][]any, len(rows))
	for i, r := range rows {
		t.Rows[i] = []any{r.SlotID, r.VisitID, r.ConfigID, r.Inst, r.SlotDur, r.Cycle}
	}
	return t
}

// config appends n slots of one config to rows, numbering slot ids from
// the current length of rows.
func config(rows []SlotRow, visitID string, configID int64, n int, inst string, dur float64, cycle int64) []SlotRow {
	for i := 0; i < n; i++ {
		rows = append(rows, SlotRow{
			SlotID:   int64(len(rows) + 1),
			VisitID:  visitID,
			ConfigID: configID,
			Inst:     inst,
			SlotDur:  dur,
			Cycle:    cycle,
		})
	}
	return rows
}

// RoundTripVisit is the single visit of RoundTripSlots.
const RoundTripVisit = "00000000001"

// RoundTripSlots returns six slots S1..S6 of one visit: config 1 holds
// slots 1-3 and config 2 holds slots 4-6.
//
// With MaxSlotsPerConfig 2 and no constraint, pass 1 claims 1,2,4,5 and
// truncates 3 and 6; pass 2 claims 3 and 6.
func RoundTripSlots() *store.Table {
	var rows []SlotRow
	rows = config(rows, RoundTripVisit, 1, 3, "MIRI", 300, 4)
	rows = config(rows, RoundTripVisit, 2, 3, "MIRI", 300, 4)
	return SlotTable(rows...)
}

// Scenario visit ids.
const (
	ScenarioVisitA = "00000000001"
	ScenarioVisitB = "00000000002"
	ScenarioVisitC = "00000000003"
)

// ScenarioSlots returns the three-visit inventory used by the multi-pass
// scenario (see ScenarioConstraint):
//
//	visit A (cycle 4): configs 1-6, 3 MIRI slots of 600s each (slots 1-18)
//	visit B (cycle 4): configs 1-2, 3 NIRISS slots of 450s (19-24);
//	                   config 3, 3 NIRCam slots of 450s (25-27)
//	visit C (cycle 5): config 1, 4 MIRI slots of 300s (28-31);
//	                   config 2, 2 MIRI slots of 300s (32-33);
//	                   config 3, 3 MIRI slots of 1200s (34-36)
//
// Passes with nconfig 3, 3, 2 claim A configs 1-3 (subset 1), A configs 4-6
// (subset 2) and B configs 1-2 (subset 3). Slots 25-36 stay unclaimed.
func ScenarioSlots() *store.Table {
	var rows []SlotRow
	for c := int64(1); c <= 6; c++ {
		rows = config(rows, ScenarioVisitA, c, 3, "MIRI", 600, 4)
	}
	rows = config(rows, ScenarioVisitB, 1, 3, "NIRISS", 450, 4)
	rows = config(rows, ScenarioVisitB, 2, 3, "NIRISS", 450, 4)
	rows = config(rows, ScenarioVisitB, 3, 3, "NIRCam", 450, 4)
	rows = config(rows, ScenarioVisitC, 1, 4, "MIRI", 300, 5)
	rows = config(rows, ScenarioVisitC, 2, 2, "MIRI", 300, 5)
	rows = config(rows, ScenarioVisitC, 3, 3, "MIRI", 1200, 5)
	return SlotTable(rows...)
}

// ScenarioNConfig is the per-pass minimum configs per visit of the
// multi-pass scenario. It doubles as MaxConfigsPerVisit.
var ScenarioNConfig = []int64{3, 3, 2}

// ScenarioMaxSlots is MaxSlotsPerConfig for every scenario pass.
const ScenarioMaxSlots = 3

// ScenarioConstraint returns
//
//	slot.inst != 'NIRCam' AND slot.slotdur BETWEEN 300 AND 900
//	AND config.nslot >= 3 AND visit.nconfig >= nconfig
func ScenarioConstraint(nconfig int64) constraint.Predicate {
	slot, cfg, visit := constraint.Parameters()
	return constraint.All(
		slot.Col("inst").Ne(ir.String("NIRCam")),
		slot.Col("slotdur").Between(ir.Int(300), ir.Int(900)),
		cfg.Col("nslot").Ge(ir.Int(3)),
		visit.Col("nconfig").Ge(ir.Int(nconfig)),
	)
}
