package engine

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/jwpure/internal/constraint"
	"github.com/roach88/jwpure/internal/constraintsql"
	"github.com/roach88/jwpure/internal/ir"
	"github.com/roach88/jwpure/internal/testutil"
)

// fakePredicate satisfies constraint.Predicate by embedding a real node but
// is not one of the compiler's known types.
type fakePredicate struct {
	constraint.Comparison
}

func TestAllocate_NotLoaded(t *testing.T) {
	e := New(setupTestStore(t), WithLogger(testutil.DiscardLogger()))
	_, err := e.Allocate(context.Background(), nil, DefaultLimits())
	assert.ErrorIs(t, err, ErrNotLoaded)
}

func TestAllocate_InvalidLimits(t *testing.T) {
	e := newLoadedEngine(t, testutil.RoundTripSlots())

	for _, l := range []Limits{
		{MaxSlotsPerConfig: 0, MaxConfigsPerVisit: 1},
		{MaxSlotsPerConfig: 1, MaxConfigsPerVisit: 0},
		{MaxSlotsPerConfig: -3, MaxConfigsPerVisit: -3},
	} {
		_, err := e.Allocate(context.Background(), nil, l)
		assert.ErrorIs(t, err, ErrInvalidLimits)
	}

	assert.Equal(t, int64(0), e.Subset())
	assert.False(t, hasTable(t, e, TableConfig), "invalid limits must not touch the store")
}

func TestAllocate_RoundTrip(t *testing.T) {
	ctx := context.Background()
	e := newLoadedEngine(t, testutil.RoundTripSlots())
	limits := Limits{MaxSlotsPerConfig: 2, MaxConfigsPerVisit: 999}

	// Pass 1: S3 and S6 exceed the slot cap.
	r1, err := e.Allocate(ctx, nil, limits)
	require.NoError(t, err)
	assert.Equal(t, int64(1), r1.Subset)
	assert.Equal(t, 6, r1.Matched)
	assert.Equal(t, 4, r1.Claimed)
	assert.Equal(t, 2, r1.Truncated)
	assert.Equal(t, 2, r1.Configs)
	assert.Equal(t, 1, r1.Visits)

	assert.Equal(t, map[int64][4]int64{
		1: {1, 1, 1, 1},
		2: {1, 1, 1, 2},
		3: {0, 0, 0, 0},
		4: {1, 1, 2, 1},
		5: {1, 1, 2, 2},
		6: {0, 0, 0, 0},
	}, slotState(t, e))

	// Pass 2: the truncated slots are available again and numbering
	// restarts within the new subset.
	r2, err := e.Allocate(ctx, nil, limits)
	require.NoError(t, err)
	assert.Equal(t, int64(2), r2.Subset)
	assert.Equal(t, 2, r2.Matched)
	assert.Equal(t, 2, r2.Claimed)
	assert.Equal(t, 0, r2.Truncated)

	assert.Equal(t, map[int64][4]int64{
		1: {1, 1, 1, 1},
		2: {1, 1, 1, 2},
		3: {2, 1, 1, 1},
		4: {1, 1, 2, 1},
		5: {1, 1, 2, 2},
		6: {2, 1, 2, 1},
	}, slotState(t, e))

	// Pass 3: nothing left. Still a pass.
	r3, err := e.Allocate(ctx, nil, limits)
	require.NoError(t, err)
	assert.Equal(t, int64(3), r3.Subset)
	assert.Equal(t, 0, r3.Matched)
	assert.Empty(t, r3.Assignments)
	assert.Equal(t, int64(3), e.Subset())
}

func TestAllocate_Scenario(t *testing.T) {
	ctx := context.Background()
	e := newLoadedEngine(t, testutil.ScenarioSlots())

	type counts struct{ configs, visits, matched, claimed, truncated int }
	want := []counts{
		{configs: 10, visits: 3, matched: 18, claimed: 9, truncated: 9},
		{configs: 7, visits: 3, matched: 9, claimed: 9, truncated: 0},
		{configs: 4, visits: 2, matched: 6, claimed: 6, truncated: 0},
	}

	var before map[int64][4]int64
	for i, nconfig := range testutil.ScenarioNConfig {
		limits := Limits{MaxSlotsPerConfig: testutil.ScenarioMaxSlots, MaxConfigsPerVisit: int(nconfig)}
		r, err := e.Allocate(ctx, testutil.ScenarioConstraint(nconfig), limits)
		require.NoError(t, err, "pass %d", i+1)

		assert.Equal(t, int64(i+1), r.Subset)
		assert.Equal(t, want[i], counts{r.Configs, r.Visits, r.Matched, r.Claimed, r.Truncated}, "pass %d", i+1)

		// Slots claimed by earlier passes never change.
		after := slotState(t, e)
		for id, nums := range before {
			if nums[0] > 0 {
				assert.Equal(t, nums, after[id], "slot %d changed after being claimed", id)
			}
		}
		before = after
	}

	state := slotState(t, e)
	// Visit A configs 1-3 in subset 1.
	assert.Equal(t, [4]int64{1, 1, 1, 1}, state[1])
	assert.Equal(t, [4]int64{1, 1, 3, 3}, state[9])
	// Visit A configs 4-6, truncated in pass 1, renumbered 1-3 in subset 2.
	assert.Equal(t, [4]int64{2, 1, 1, 1}, state[10])
	assert.Equal(t, [4]int64{2, 1, 3, 3}, state[18])
	// Visit B configs 1-2 in subset 3.
	assert.Equal(t, [4]int64{3, 1, 1, 1}, state[19])
	assert.Equal(t, [4]int64{3, 1, 2, 3}, state[24])
	// Everything else untouched.
	for id := int64(25); id <= 36; id++ {
		assert.Equal(t, [4]int64{}, state[id], "slot %d", id)
	}
}

func TestAllocate_EmptyMatchConsumesIndex(t *testing.T) {
	ctx := context.Background()
	e := newLoadedEngine(t, testutil.RoundTripSlots())
	slot, _, _ := constraint.Parameters()

	r, err := e.Allocate(ctx, slot.Col("inst").Eq(ir.String("NONE")), DefaultLimits())
	require.NoError(t, err)
	assert.Equal(t, int64(1), r.Subset)
	assert.Equal(t, 0, r.Matched)
	assert.Equal(t, 0, r.Configs)
	assert.Equal(t, 0, r.Visits)

	r, err = e.Allocate(ctx, nil, DefaultLimits())
	require.NoError(t, err)
	assert.Equal(t, int64(2), r.Subset)
	assert.Equal(t, 6, r.Claimed)
}

func TestAllocate_UnknownPredicateType(t *testing.T) {
	e := newLoadedEngine(t, testutil.RoundTripSlots())

	_, err := e.Allocate(context.Background(), fakePredicate{}, DefaultLimits())
	require.Error(t, err)
	assert.ErrorIs(t, err, constraintsql.ErrUnknownPredicateType)

	stage, ok := FailedStage(err)
	require.True(t, ok)
	assert.Equal(t, StageCompile, stage)

	assert.Equal(t, int64(0), e.Subset())
	assert.False(t, hasTable(t, e, TableConfig))
}

func TestAllocate_FailureRollsBack(t *testing.T) {
	bogus := func(table string) constraint.Predicate {
		return constraint.NewColumn(table, "bogus").Ge(ir.Int(1))
	}

	tests := []struct {
		name  string
		pred  constraint.Predicate
		stage Stage
	}{
		{"slot column", bogus(constraint.TableSlot), StageConfig},
		{"config column", bogus(constraint.TableConfig), StageVisit},
		{"visit column", bogus(constraint.TableVisit), StageSubset},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			e := newLoadedEngine(t, testutil.RoundTripSlots())
			limits := Limits{MaxSlotsPerConfig: 2, MaxConfigsPerVisit: 999}

			_, err := e.Allocate(ctx, nil, limits)
			require.NoError(t, err)
			before := slotState(t, e)
			configs, err := e.RawQuery(ctx, "SELECT * FROM config ORDER BY config_id")
			require.NoError(t, err)

			_, err = e.Allocate(ctx, tc.pred, limits)
			require.Error(t, err)

			var pe *PassError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tc.stage, pe.Stage)
			assert.Equal(t, int64(2), pe.Subset)
			assert.Contains(t, err.Error(), "subset 2: "+string(tc.stage))

			// Nothing from the failed pass is visible.
			assert.Equal(t, before, slotState(t, e))
			after, err := e.RawQuery(ctx, "SELECT * FROM config ORDER BY config_id")
			require.NoError(t, err)
			assert.Equal(t, configs, after)
			assert.Equal(t, int64(1), e.Subset())

			// The index was not consumed.
			r, err := e.Allocate(ctx, nil, limits)
			require.NoError(t, err)
			assert.Equal(t, int64(2), r.Subset)
			assert.Equal(t, 2, r.Claimed)
		})
	}
}

func TestAllocate_CancelledContext(t *testing.T) {
	e := newLoadedEngine(t, testutil.RoundTripSlots())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Allocate(ctx, nil, DefaultLimits())
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, int64(0), e.Subset())
}

func TestAllocate_Trace(t *testing.T) {
	var buf bytes.Buffer
	e := New(setupTestStore(t),
		WithLogger(testutil.BufferLogger(&buf)),
		WithTrace(testutil.RoundTripVisit),
	)
	require.NoError(t, e.Load(context.Background(), testutil.RoundTripSlots()))

	r, err := e.Allocate(context.Background(), nil, Limits{MaxSlotsPerConfig: 2, MaxConfigsPerVisit: 999})
	require.NoError(t, err)

	require.Len(t, r.Trace, 4)
	titles := make([]string, len(r.Trace))
	for i, s := range r.Trace {
		titles[i] = s.Title
	}
	assert.Equal(t, []string{
		"Subset 1, config table",
		"Subset 1, visit table",
		"Subset 1, subset table",
		"Subset 1, sequence numbers",
	}, titles)

	assert.Equal(t, TableConfig, r.Trace[0].Table)
	assert.Equal(t, 2, r.Trace[0].Rows.Len())
	assert.Equal(t, 1, r.Trace[1].Rows.Len())
	assert.Equal(t, 6, r.Trace[2].Rows.Len())
	assert.Equal(t, 6, r.Trace[3].Rows.Len())

	assert.Contains(t, buf.String(), "trace row")
	assert.Contains(t, buf.String(), "nslot=3")
}

func TestAllocate_TraceOtherVisit(t *testing.T) {
	e := newLoadedEngine(t, testutil.RoundTripSlots(), WithTrace("99999999999"))

	r, err := e.Allocate(context.Background(), nil, DefaultLimits())
	require.NoError(t, err)
	require.Len(t, r.Trace, 4)
	for _, s := range r.Trace {
		assert.Equal(t, 0, s.Rows.Len(), s.Title)
	}
}

func TestAllocate_NoTraceByDefault(t *testing.T) {
	e := newLoadedEngine(t, testutil.RoundTripSlots())
	r, err := e.Allocate(context.Background(), nil, DefaultLimits())
	require.NoError(t, err)
	assert.Empty(t, r.Trace)
}

func TestAllocate_LogsPass(t *testing.T) {
	var buf bytes.Buffer
	e := New(setupTestStore(t), WithLogger(testutil.BufferLogger(&buf)))
	require.NoError(t, e.Load(context.Background(), testutil.RoundTripSlots()))

	_, err := e.Allocate(context.Background(), nil, Limits{MaxSlotsPerConfig: 2, MaxConfigsPerVisit: 999})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "compiled constraint")
	assert.Contains(t, out, "pass committed")
	assert.Contains(t, out, "subset=1")
	assert.Contains(t, out, "claimed=4")
	assert.Contains(t, out, "truncated=2")
}

func TestAllocate_LastWhere(t *testing.T) {
	e := newLoadedEngine(t, testutil.ScenarioSlots())

	r, err := e.Allocate(context.Background(), testutil.ScenarioConstraint(3), Limits{MaxSlotsPerConfig: 3, MaxConfigsPerVisit: 3})
	require.NoError(t, err)
	assert.Equal(t, r.Where.Joint, e.LastWhere())
	assert.Equal(t,
		"WHERE ((((slot.inst != 'NIRCam' AND slot.slotdur BETWEEN 300 AND 900) AND config.nslot >= 3) AND visit.nconfig >= 3) AND slot.pure_subset = 0)",
		e.LastWhere())
}

func TestCompileClauses(t *testing.T) {
	c, err := CompileClauses(nil)
	require.NoError(t, err)
	assert.Equal(t, Clauses{
		Slot:   "WHERE slot.pure_subset = 0",
		Config: "",
		Joint:  "WHERE slot.pure_subset = 0",
	}, c)

	c, err = CompileClauses(testutil.ScenarioConstraint(2))
	require.NoError(t, err)
	assert.Equal(t, "WHERE ((slot.inst != 'NIRCam' AND slot.slotdur BETWEEN 300 AND 900) AND slot.pure_subset = 0)", c.Slot)
	assert.Equal(t, "WHERE config.nslot >= 3", c.Config)
}
