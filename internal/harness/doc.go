// Package harness runs allocation scenarios as executable contract tests.
//
// A scenario names a slot inventory, an allocation plan and a list of
// assertions. The harness loads the inventory into a fresh in-memory store,
// runs every pass of the plan through the engine and then checks the
// assertions against the pass results and the final tables.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	slots: slots.csv          # relative to the scenario file
//	plan: plan.cue            # relative to the scenario file
//	trace_visit: "00000000001" # optional
//	assertions:
//	  - type: pass_result
//	    pass: 1
//	    expect: { matched: 18, claimed: 9, truncated: 9 }
//	  - type: final_state
//	    where: { slot_id: 10 }
//	    expect: { pure_subset: 2, pure_config: 1 }
//	  - type: row_count
//	    table: slot
//	    where: { pure_subset: 0 }
//	    count: 12
//
// # Assertion Types
//
//   - pass_result: Compares the counters of one pass (subset, matched,
//     claimed, truncated, configs, visits)
//   - final_state: Queries exactly one row and verifies expected values
//   - row_count: Counts the rows matching a filter
//
// final_state and row_count default to the slot table.
//
// # Golden Files
//
// RunWithGolden snapshots the pass history as JSON and the claimed slots as
// CSV. Both are deterministic for a given scenario: subset indices start at
// 1 in every run and exports are ordered by slot_id.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/multi_pass.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, err := range result.Errors {
//	        log.Println(err)
//	    }
//	}
package harness
