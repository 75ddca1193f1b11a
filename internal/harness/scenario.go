package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario is an allocation test case: a slot inventory, a plan of passes
// and assertions on the outcome.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden files.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Slots is the path of the slot inventory CSV.
	// Relative paths are resolved against the scenario file's directory.
	Slots string `yaml:"slots"`

	// Plan is the path of the CUE allocation plan.
	// Relative paths are resolved against the scenario file's directory.
	Plan string `yaml:"plan"`

	// TraceVisit, when set, follows one visit through every pass.
	TraceVisit string `yaml:"trace_visit,omitempty"`

	// Assertions validate pass results and the final slot table.
	// Supported types: pass_result, final_state, row_count
	Assertions []Assertion `yaml:"assertions"`
}

// Assertion validates a pass result or the final store state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "pass_result": Compare a pass's counters
	// - "final_state": Query one row and verify expected values
	// - "row_count": Count rows matching a filter
	Type string `yaml:"type"`

	// Pass is the 1-based pass number (used by pass_result).
	Pass int `yaml:"pass,omitempty"`

	// Table is the table to query (used by final_state and row_count).
	// Defaults to the slot table.
	Table string `yaml:"table,omitempty"`

	// Where specifies equality filters (used by final_state and row_count).
	Where map[string]interface{} `yaml:"where,omitempty"`

	// Expect contains expected values. For pass_result the keys are
	// counter names (subset, matched, claimed, truncated, configs, visits);
	// for final_state they are column names. Subset match.
	Expect map[string]interface{} `yaml:"expect,omitempty"`

	// Count is the expected number of rows (used by row_count).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertPassResult = "pass_result"
	AssertFinalState = "final_state"
	AssertRowCount   = "row_count"
)

// passCounters are the keys a pass_result assertion may check.
var passCounters = map[string]bool{
	"subset":    true,
	"matched":   true,
	"claimed":   true,
	"truncated": true,
	"configs":   true,
	"visits":    true,
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict decoding catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Resolve input paths BEFORE validation
	base := filepath.Dir(path)
	scenario.Slots = resolvePath(base, scenario.Slots)
	scenario.Plan = resolvePath(base, scenario.Plan)

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// LoadScenarioDir loads every *.yaml file directly under dir, in name order.
func LoadScenarioDir(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("list scenarios: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no scenario files in %s", dir)
	}

	scenarios := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

func resolvePath(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Slots == "" {
		return fmt.Errorf("slots is required")
	}

	if s.Plan == "" {
		return fmt.Errorf("plan is required")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	if _, err := os.Stat(s.Slots); os.IsNotExist(err) {
		return fmt.Errorf("slots file not found: %s", s.Slots)
	}
	if _, err := os.Stat(s.Plan); os.IsNotExist(err) {
		return fmt.Errorf("plan file not found: %s", s.Plan)
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertPassResult:
		if a.Pass < 1 {
			return fmt.Errorf("assertions[%d]: pass must be at least 1 for pass_result", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for pass_result", index)
		}
		for key := range a.Expect {
			if !passCounters[key] {
				return fmt.Errorf("assertions[%d]: unknown pass counter %q", index, key)
			}
		}
	case AssertFinalState:
		if len(a.Where) == 0 {
			return fmt.Errorf("assertions[%d]: where is required for final_state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	case AssertRowCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for row_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
