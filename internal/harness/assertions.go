package harness

import (
	"context"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/roach88/jwpure/internal/engine"
	"github.com/roach88/jwpure/internal/store"
)

// validIdentifier matches valid SQL identifiers (table/column names).
// Only allows alphanumeric and underscore, must start with letter or underscore.
// This prevents SQL injection via identifier interpolation.
var validIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Passes   []PassRecord // Pass history for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Passes) > 0 {
		fmt.Fprintf(&buf, "\nPasses:\n")
		for _, p := range e.Passes {
			fmt.Fprintf(&buf, "  [%d] %s: matched=%d claimed=%d truncated=%d\n",
				p.Subset, p.Name, p.Matched, p.Claimed, p.Truncated)
		}
	}

	return buf.String()
}

// assertPassResult compares the counters of one pass (subset match).
func assertPassResult(passes []PassRecord, assertion Assertion) error {
	if assertion.Pass < 1 || assertion.Pass > len(passes) {
		return &AssertionError{
			Type:     AssertPassResult,
			Expected: fmt.Sprintf("pass %d to have run", assertion.Pass),
			Actual:   fmt.Sprintf("%d passes ran", len(passes)),
			Passes:   passes,
		}
	}

	rec := passes[assertion.Pass-1]
	actual := map[string]int64{
		"subset":    rec.Subset,
		"matched":   int64(rec.Matched),
		"claimed":   int64(rec.Claimed),
		"truncated": int64(rec.Truncated),
		"configs":   int64(rec.Configs),
		"visits":    int64(rec.Visits),
	}

	keys := make([]string, 0, len(assertion.Expect))
	for k := range assertion.Expect {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		got, ok := actual[key]
		if !ok {
			return fmt.Errorf("pass_result: unknown counter %q", key)
		}
		if !stateValuesEqual(assertion.Expect[key], got) {
			return &AssertionError{
				Type:     AssertPassResult,
				Expected: fmt.Sprintf("pass %d %s = %v", assertion.Pass, key, assertion.Expect[key]),
				Actual:   fmt.Sprintf("pass %d %s = %d", assertion.Pass, key, got),
				Passes:   passes,
			}
		}
	}
	return nil
}

// assertFinalState checks that exactly one row of the table matches Where
// and that it holds the expected values (subset semantics).
//
// Security: Table and column names are validated against a whitelist pattern
// to prevent SQL injection via identifier interpolation.
func assertFinalState(ctx context.Context, st *store.Store, assertion Assertion) error {
	table := assertionTable(assertion)
	rows, err := queryRows(ctx, st, table, "*", assertion.Where)
	if err != nil {
		return err
	}

	whereDesc := formatWhereClause(assertion.Where)
	switch rows.Len() {
	case 0:
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("row in %s where %s", table, whereDesc),
			Actual:   "row not found",
		}
	case 1:
	default:
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("exactly one row in %s where %s", table, whereDesc),
			Actual:   "multiple rows matched (assertion is ambiguous)",
		}
	}

	actualRow := make(map[string]interface{}, len(rows.Columns))
	for i, col := range rows.Columns {
		actualRow[col] = rows.Rows[0][i]
	}

	keys := make([]string, 0, len(assertion.Expect))
	for k := range assertion.Expect {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		expectedValue := assertion.Expect[key]
		actualValue, exists := actualRow[key]
		if !exists {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q to exist", key),
				Actual:   fmt.Sprintf("field %q not present in result columns: %v", key, rows.Columns),
			}
		}

		if !stateValuesEqual(expectedValue, actualValue) {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q = %v (type %T)", key, expectedValue, expectedValue),
				Actual:   fmt.Sprintf("field %q = %v (type %T)", key, actualValue, actualValue),
			}
		}
	}

	return nil
}

// assertRowCount checks the number of rows matching Where.
func assertRowCount(ctx context.Context, st *store.Store, assertion Assertion) error {
	table := assertionTable(assertion)
	rows, err := queryRows(ctx, st, table, "COUNT(*)", assertion.Where)
	if err != nil {
		return err
	}

	n, _ := rows.Rows[0][0].(int64)
	if int(n) != assertion.Count {
		return &AssertionError{
			Type:     AssertRowCount,
			Expected: fmt.Sprintf("%d rows in %s where %s", assertion.Count, table, formatWhereClause(assertion.Where)),
			Actual:   fmt.Sprintf("%d rows", n),
		}
	}
	return nil
}

func assertionTable(a Assertion) string {
	if a.Table == "" {
		return engine.TableSlot
	}
	return a.Table
}

// queryRows selects from table with a parameterized filter.
func queryRows(ctx context.Context, st *store.Store, table, selection string, where map[string]interface{}) (*store.Table, error) {
	// Identifiers can't be parameterized
	if !validIdentifier.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q: must match pattern %s", table, validIdentifier.String())
	}

	whereSQL, whereArgs, err := buildWhereClause(where)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT %s FROM %s", selection, table)
	if whereSQL != "" {
		query += " WHERE " + whereSQL
	}

	rows, err := st.Query(ctx, query, whereArgs...)
	if err != nil {
		return nil, &AssertionError{
			Type:     "query",
			Expected: fmt.Sprintf("query table %s", table),
			Actual:   fmt.Sprintf("query error: %v", err),
		}
	}
	return rows, nil
}

// buildWhereClause constructs parameterized WHERE clause from assertion.Where.
// Returns SQL fragment, arguments slice, and error. Keys are sorted for determinism.
//
// Security: Column names are validated against a whitelist pattern to prevent
// SQL injection via identifier interpolation.
func buildWhereClause(where map[string]interface{}) (string, []interface{}, error) {
	if len(where) == 0 {
		return "", nil, nil
	}

	keys := make([]string, 0, len(where))
	for k := range where {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	clauses := make([]string, 0, len(keys))
	args := make([]interface{}, 0, len(keys))

	for _, key := range keys {
		if !validIdentifier.MatchString(key) {
			return "", nil, fmt.Errorf("invalid column name %q in where clause: must match pattern %s", key, validIdentifier.String())
		}
		if where[key] == nil {
			clauses = append(clauses, fmt.Sprintf("%s IS NULL", key))
			continue
		}
		clauses = append(clauses, fmt.Sprintf("%s = ?", key))
		args = append(args, toSQLValue(where[key]))
	}

	return strings.Join(clauses, " AND "), args, nil
}

// toSQLValue converts a YAML-decoded value to a SQL-compatible value.
func toSQLValue(v interface{}) interface{} {
	switch val := v.(type) {
	case int:
		return int64(val)
	case string, int64, float64:
		return val
	case bool:
		if val {
			return int64(1)
		}
		return int64(0)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// formatWhereClause creates a human-readable description of WHERE conditions.
func formatWhereClause(where map[string]interface{}) string {
	if len(where) == 0 {
		return "(no conditions)"
	}

	keys := make([]string, 0, len(where))
	for k := range where {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, where[k]))
	}
	return strings.Join(parts, " AND ")
}

// stateValuesEqual compares an expected YAML value with a stored value.
// SQLite returns INTEGER as int64 and REAL as float64; YAML decodes
// integers as int. Numbers compare by value across the two.
func stateValuesEqual(expected, actual interface{}) bool {
	if expected == nil && actual == nil {
		return true
	}
	if expected == nil || actual == nil {
		return false
	}

	switch exp := expected.(type) {
	case string:
		if actualStr, ok := actual.(string); ok {
			return exp == actualStr
		}
		return false
	case bool:
		if actualBool, ok := actual.(bool); ok {
			return exp == actualBool
		}
		// SQLite stores booleans as integers
		if actualInt, ok := actual.(int64); ok {
			return exp == (actualInt != 0)
		}
		return false
	case int, int64, float64:
		e, _ := toFloat(exp)
		a, ok := toFloat(actual)
		return ok && e == a
	}

	return reflect.DeepEqual(expected, actual)
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// AssertionContext provides context for evaluating assertions.
type AssertionContext struct {
	Store *store.Store
	Ctx   context.Context
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// The actx parameter provides database access for state assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertPassResult:
			err = assertPassResult(result.Passes, assertion)
		case AssertFinalState, AssertRowCount:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: %s requires database context", i, assertion.Type)
			} else if assertion.Type == AssertFinalState {
				err = assertFinalState(actx.Ctx, actx.Store, assertion)
			} else {
				err = assertRowCount(actx.Ctx, actx.Store, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
