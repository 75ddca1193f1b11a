package harness

import (
	"context"
	"fmt"

	"github.com/roach88/jwpure/internal/engine"
	"github.com/roach88/jwpure/internal/plan"
	"github.com/roach88/jwpure/internal/slotdata"
	"github.com/roach88/jwpure/internal/store"
	"github.com/roach88/jwpure/internal/testutil"
)

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
// 1. Create fresh in-memory database
// 2. Read the slot CSV and load it into the engine
// 3. Compile the plan and run every pass in order
// 4. Export the claimed slots
// 5. Evaluate assertions
//
// A returned error means the scenario could not be executed at all; failed
// assertions are reported in Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(store.MemoryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	opts := []engine.Option{
		engine.WithLogger(testutil.DiscardLogger()),
	}
	if scenario.TraceVisit != "" {
		opts = append(opts, engine.WithTrace(scenario.TraceVisit))
	}
	eng := engine.New(st, opts...)

	ctx := context.Background()

	slots, err := slotdata.ReadFile(scenario.Slots)
	if err != nil {
		return nil, fmt.Errorf("failed to read slots: %w", err)
	}
	if err := eng.Load(ctx, slots); err != nil {
		return nil, fmt.Errorf("failed to load slots: %w", err)
	}

	p, err := plan.LoadFile(scenario.Plan)
	if err != nil {
		return nil, fmt.Errorf("failed to load plan: %w", err)
	}

	result := NewResult()
	for _, pass := range p.Passes {
		r, err := eng.Allocate(ctx, pass.Where, pass.Limits)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", pass.Name, err)
		}
		result.Passes = append(result.Passes, newPassRecord(pass.Name, r))
	}

	result.Claimed, err = eng.Export(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to export claimed slots: %w", err)
	}

	actx := &AssertionContext{
		Store: st,
		Ctx:   ctx,
	}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	return result, nil
}
