package engine

import "fmt"

// Triple identifies one slot of a pass's subset by its place in the
// hierarchy. Identifiers are store cells (string, int64 or float64).
type Triple struct {
	VisitID  any
	ConfigID any
	SlotID   any
}

// Assignment is the sequence numbering of one subset row.
//
// A claimed row has Subset, Visit, Config and Slot all positive. A truncated
// row has all four zero.
type Assignment struct {
	VisitID  any
	ConfigID any
	SlotID   any

	Subset int64
	Visit  int64
	Config int64
	Slot   int64
}

// Truncated reports whether the row fell past a cap. Only meaningful for
// assignments made by AssignSequenceNumbers, which never claims under
// subset 0.
func (a Assignment) Truncated() bool {
	return a.Subset == 0
}

// AssignSequenceNumbers numbers ordered subset rows.
//
// Rows are walked in the order given. A change of visit starts a new visit
// with config and slot back at 1. A change of config within a visit starts
// a new config with slot back at 1. Otherwise the slot counter advances.
// Counters advance on every row, truncated or not, so a truncated config
// still occupies its config number.
//
// A row whose config number exceeds MaxConfigsPerVisit or whose slot number
// exceeds MaxSlotsPerConfig is truncated: all four numbers are zero.
//
// Identifiers are compared with ==, so rows for one visit or config must
// carry identical cell values.
//
// subset must be at least 1, since a zero Subset marks a truncated row.
// AssignSequenceNumbers panics otherwise.
func AssignSequenceNumbers(triples []Triple, subset int64, limits Limits) []Assignment {
	if subset < 1 {
		panic(fmt.Sprintf("engine: subset index must be at least 1, got %d", subset))
	}

	out := make([]Assignment, len(triples))
	configs := newQuota(limits.MaxConfigsPerVisit)
	slots := newQuota(limits.MaxSlotsPerConfig)

	var prevVisit, prevConfig any
	var visit int64
	var configOK bool
	for i, t := range triples {
		switch {
		case i == 0 || t.VisitID != prevVisit:
			visit++
			configs.reset()
			configOK = configs.next()
			slots.reset()
		case t.ConfigID != prevConfig:
			configOK = configs.next()
			slots.reset()
		}
		slotOK := slots.next()

		a := Assignment{VisitID: t.VisitID, ConfigID: t.ConfigID, SlotID: t.SlotID}
		if configOK && slotOK {
			a.Subset, a.Visit, a.Config, a.Slot = subset, visit, configs.current, slots.current
		}
		out[i] = a

		prevVisit, prevConfig = t.VisitID, t.ConfigID
	}
	return out
}
