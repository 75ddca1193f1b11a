package harness

import (
	"fmt"

	"github.com/roach88/jwpure/internal/engine"
	"github.com/roach88/jwpure/internal/store"
)

// PassRecord summarizes one committed pass of a scenario run.
type PassRecord struct {
	Name      string `json:"name"`
	Subset    int64  `json:"subset"`
	Where     string `json:"where"`
	Matched   int    `json:"matched"`
	Claimed   int    `json:"claimed"`
	Truncated int    `json:"truncated"`
	Configs   int    `json:"configs"`
	Visits    int    `json:"visits"`

	// Trace lists the traced visit's intermediate tables as
	// "<title>: <n> rows". Empty unless the scenario sets trace_visit.
	Trace []string `json:"trace,omitempty"`
}

// newPassRecord converts an engine result for the pass named name.
func newPassRecord(name string, r *engine.PassResult) PassRecord {
	rec := PassRecord{
		Name:      name,
		Subset:    r.Subset,
		Where:     r.Where.Joint,
		Matched:   r.Matched,
		Claimed:   r.Claimed,
		Truncated: r.Truncated,
		Configs:   r.Configs,
		Visits:    r.Visits,
	}
	for _, step := range r.Trace {
		rec.Trace = append(rec.Trace, fmt.Sprintf("%s: %d rows", step.Title, step.Rows.Len()))
	}
	return rec
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool `json:"pass"`

	// Passes holds one record per plan pass, in order.
	Passes []PassRecord `json:"passes"`

	// Errors contains assertion failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Claimed is the exported slot table (pure_subset > 0) after the last
	// pass, ordered by slot_id.
	Claimed *store.Table `json:"-"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Passes: []PassRecord{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
