package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func triples(rows ...[3]any) []Triple {
	out := make([]Triple, len(rows))
	for i, r := range rows {
		out[i] = Triple{VisitID: r[0], ConfigID: r[1], SlotID: r[2]}
	}
	return out
}

// numbers extracts (subset, visit, config, slot) per assignment.
func numbers(as []Assignment) [][4]int64 {
	out := make([][4]int64, len(as))
	for i, a := range as {
		out[i] = [4]int64{a.Subset, a.Visit, a.Config, a.Slot}
	}
	return out
}

func TestAssignSequenceNumbers_Counters(t *testing.T) {
	in := triples(
		[3]any{"V1", int64(1), int64(1)},
		[3]any{"V1", int64(1), int64(2)},
		[3]any{"V1", int64(2), int64(3)},
		[3]any{"V2", int64(1), int64(4)},
		[3]any{"V2", int64(1), int64(5)},
		[3]any{"V2", int64(7), int64(6)},
	)

	got := AssignSequenceNumbers(in, 4, DefaultLimits())

	assert.Equal(t, [][4]int64{
		{4, 1, 1, 1},
		{4, 1, 1, 2},
		{4, 1, 2, 1},
		{4, 2, 1, 1},
		{4, 2, 1, 2},
		{4, 2, 2, 1},
	}, numbers(got))

	for i, a := range got {
		assert.Equal(t, in[i].SlotID, a.SlotID)
		assert.Equal(t, in[i].VisitID, a.VisitID)
		assert.Equal(t, in[i].ConfigID, a.ConfigID)
	}
}

func TestAssignSequenceNumbers_SlotCapTruncates(t *testing.T) {
	in := triples(
		[3]any{"V1", "C1", "S1"},
		[3]any{"V1", "C1", "S2"},
		[3]any{"V1", "C1", "S3"},
		[3]any{"V1", "C2", "S4"},
		[3]any{"V1", "C2", "S5"},
		[3]any{"V1", "C2", "S6"},
	)

	got := AssignSequenceNumbers(in, 1, Limits{MaxSlotsPerConfig: 2, MaxConfigsPerVisit: 999})

	assert.Equal(t, [][4]int64{
		{1, 1, 1, 1},
		{1, 1, 1, 2},
		{0, 0, 0, 0},
		{1, 1, 2, 1},
		{1, 1, 2, 2},
		{0, 0, 0, 0},
	}, numbers(got))
	assert.True(t, got[2].Truncated())
	assert.False(t, got[3].Truncated())
}

func TestAssignSequenceNumbers_ConfigCapTruncatesWholeConfig(t *testing.T) {
	in := triples(
		[3]any{"V1", "C1", "S1"},
		[3]any{"V1", "C2", "S2"},
		[3]any{"V1", "C3", "S3"},
		[3]any{"V1", "C3", "S4"},
		[3]any{"V2", "C9", "S5"},
	)

	got := AssignSequenceNumbers(in, 2, Limits{MaxSlotsPerConfig: 999, MaxConfigsPerVisit: 2})

	assert.Equal(t, [][4]int64{
		{2, 1, 1, 1},
		{2, 1, 2, 1},
		{0, 0, 0, 0},
		{0, 0, 0, 0},
		{2, 2, 1, 1}, // a new visit restarts the config counter
	}, numbers(got))
}

func TestAssignSequenceNumbers_CountersAdvancePastTruncation(t *testing.T) {
	// Config C2 is truncated, but C3 still gets config number 3.
	in := triples(
		[3]any{"V1", "C1", "S1"},
		[3]any{"V1", "C2", "S2"},
		[3]any{"V1", "C3", "S3"},
	)

	got := AssignSequenceNumbers(in, 1, Limits{MaxSlotsPerConfig: 1, MaxConfigsPerVisit: 3})
	assert.Equal(t, int64(3), got[2].Config)
}

func TestAssignSequenceNumbers_Empty(t *testing.T) {
	got := AssignSequenceNumbers(nil, 1, DefaultLimits())
	assert.Empty(t, got)
}

func TestAssignSequenceNumbers_RejectsSubsetZero(t *testing.T) {
	in := triples([3]any{"V1", "C1", "S1"})

	assert.Panics(t, func() { AssignSequenceNumbers(in, 0, DefaultLimits()) })
	assert.Panics(t, func() { AssignSequenceNumbers(nil, -1, DefaultLimits()) })
	assert.NotPanics(t, func() { AssignSequenceNumbers(in, 1, DefaultLimits()) })
}

func TestAssignSequenceNumbers_NilFirstVisit(t *testing.T) {
	got := AssignSequenceNumbers(triples([3]any{nil, nil, int64(1)}), 1, DefaultLimits())
	require.Len(t, got, 1)
	assert.Equal(t, [4]int64{1, 1, 1, 1}, numbers(got)[0])
}

// Claimed rows of one subset never share (visit, config, slot) numbers.
func TestAssignSequenceNumbers_DenseAndUnique(t *testing.T) {
	var in []Triple
	id := int64(0)
	for v := 0; v < 4; v++ {
		for c := 0; c < 5; c++ {
			for s := 0; s < 4; s++ {
				id++
				in = append(in, Triple{VisitID: v, ConfigID: c, SlotID: id})
			}
		}
	}

	limits := Limits{MaxSlotsPerConfig: 3, MaxConfigsPerVisit: 4}
	got := AssignSequenceNumbers(in, 1, limits)

	seen := map[[3]int64]bool{}
	claimed := 0
	for _, a := range got {
		if a.Truncated() {
			assert.Equal(t, Assignment{VisitID: a.VisitID, ConfigID: a.ConfigID, SlotID: a.SlotID}, a)
			continue
		}
		claimed++
		key := [3]int64{a.Visit, a.Config, a.Slot}
		assert.False(t, seen[key], "duplicate numbering %v", key)
		seen[key] = true
		assert.LessOrEqual(t, a.Config, int64(limits.MaxConfigsPerVisit))
		assert.LessOrEqual(t, a.Slot, int64(limits.MaxSlotsPerConfig))
	}
	assert.Equal(t, 4*4*3, claimed)
}

func TestLimits_Validate(t *testing.T) {
	assert.NoError(t, DefaultLimits().Validate())
	assert.NoError(t, Limits{MaxSlotsPerConfig: 1, MaxConfigsPerVisit: 1}.Validate())

	err := Limits{MaxSlotsPerConfig: 0, MaxConfigsPerVisit: 5}.Validate()
	assert.ErrorIs(t, err, ErrInvalidLimits)
	assert.Contains(t, err.Error(), "max slots per config")

	err = Limits{MaxSlotsPerConfig: 5, MaxConfigsPerVisit: -1}.Validate()
	assert.ErrorIs(t, err, ErrInvalidLimits)
	assert.Contains(t, err.Error(), "max configs per visit")
}

func TestDefaultLimits(t *testing.T) {
	assert.Equal(t, Limits{MaxSlotsPerConfig: 999, MaxConfigsPerVisit: 999}, DefaultLimits())
}
