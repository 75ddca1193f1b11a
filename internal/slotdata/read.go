package slotdata

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/roach88/jwpure/internal/ir"
	"github.com/roach88/jwpure/internal/store"
)

// VisitIDWidth is the zero-padded width of numeric visit identifiers.
const VisitIDWidth = 11

// VisitIDColumn is the column rewritten by PadVisitID on load.
const VisitIDColumn = "visit_id"

// ErrEmptyInput is returned when the CSV has no header row.
var ErrEmptyInput = errors.New("slot data has no header row")

// ReadFile parses the slot CSV at path. Open failures wrap the os error, so
// errors.Is(err, fs.ErrNotExist) holds for a missing file.
func ReadFile(path string) (*store.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open slots file: %w", err)
	}
	defer f.Close()

	t, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return t, nil
}

// ReadCSV parses slot data from r.
func ReadCSV(r io.Reader) (*store.Table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = false

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrEmptyInput
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	columns := make([]string, len(header))
	seen := make(map[string]bool, len(header))
	for i, h := range header {
		name := strings.TrimSpace(ir.Normalize(h))
		if name == "" {
			return nil, fmt.Errorf("header column %d is empty", i+1)
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate column %q", name)
		}
		seen[name] = true
		columns[i] = name
	}

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}

	t := store.NewTable(columns...)
	t.Rows = make([][]any, len(records))
	for r := range records {
		t.Rows[r] = make([]any, len(columns))
	}

	for c, name := range columns {
		cells := make([]string, len(records))
		for r, rec := range records {
			cells[r] = rec[c]
		}
		values := parseColumn(cells)
		if name == VisitIDColumn {
			values = PadVisitID(values)
		}
		for r, v := range values {
			t.Rows[r][c] = v
		}
	}

	return t, nil
}

// parseColumn converts one column of raw cells to int64, float64 or string
// values, choosing the narrowest type every non-empty cell satisfies.
func parseColumn(cells []string) []any {
	allInt, allFloat := true, true
	for _, s := range cells {
		if s == "" {
			continue
		}
		if _, err := strconv.ParseInt(s, 10, 64); err != nil {
			allInt = false
		}
		if _, err := strconv.ParseFloat(s, 64); err != nil {
			allFloat = false
		}
	}

	out := make([]any, len(cells))
	for i, s := range cells {
		if s == "" {
			continue
		}
		switch {
		case allInt:
			n, _ := strconv.ParseInt(s, 10, 64)
			out[i] = n
		case allFloat:
			f, _ := strconv.ParseFloat(s, 64)
			out[i] = f
		default:
			out[i] = ir.Normalize(s)
		}
	}
	return out
}

// PadVisitID renders integer visit identifiers as zero-padded strings.
// Text and NULL cells are left unchanged.
func PadVisitID(values []any) []any {
	out := make([]any, len(values))
	for i, v := range values {
		if n, ok := v.(int64); ok && n >= 0 {
			out[i] = fmt.Sprintf("%0*d", VisitIDWidth, n)
			continue
		}
		out[i] = v
	}
	return out
}
