package harness

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/jwpure/internal/slotdata"
)

// PassSnapshot captures the pass history of a scenario run.
type PassSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	Passes       []PassRecord `json:"passes"`
}

// Snapshot renders the pass history of result as indented JSON.
// HTML escaping is off so comparison operators stay readable.
func Snapshot(scenarioName string, result *Result) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(PassSnapshot{ScenarioName: scenarioName, Passes: result.Passes}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ClaimedCSV renders the claimed slots of result as CSV.
func ClaimedCSV(result *Result) ([]byte, error) {
	var buf bytes.Buffer
	if result.Claimed != nil {
		if err := slotdata.WriteCSV(&buf, result.Claimed); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// RunWithGolden executes a scenario and compares its output against golden
// files in testdata/golden:
//
//	{scenario.Name}.golden          pass history (JSON)
//	{scenario.Name}_claimed.golden  claimed slots (CSV)
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if output doesn't match a golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an existing result against the golden files for
// scenarioName without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot, err := Snapshot(scenarioName, result)
	if err != nil {
		return err
	}
	claimed, err := ClaimedCSV(result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, snapshot)
	g.Assert(t, scenarioName+"_claimed", claimed)

	return nil
}
