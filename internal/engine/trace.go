package engine

import (
	"context"
	"fmt"

	"github.com/roach88/jwpure/internal/store"
)

// TraceStep is the traced visit's rows in one intermediate table.
type TraceStep struct {
	Title string
	Table string
	Rows  *store.Table
}

// trace records the traced visit's rows in table. No-op unless the engine
// was built WithTrace.
func (e *Engine) trace(ctx context.Context, tx *store.Tx, r *PassResult, table, title string) error {
	if e.traceVisit == "" {
		return nil
	}

	rows, err := tx.Query(ctx, "SELECT * FROM "+store.QuoteIdent(table)+" WHERE visit_id = ?", e.traceVisit)
	if err != nil {
		return fmt.Errorf("trace %s: %w", table, err)
	}

	step := TraceStep{
		Title: fmt.Sprintf("Subset %d, %s", r.Subset, title),
		Table: table,
		Rows:  rows,
	}
	r.Trace = append(r.Trace, step)

	e.logger.Debug(step.Title, "visit_id", e.traceVisit, "rows", rows.Len())
	for _, row := range rows.Rows {
		attrs := make([]any, 0, 2*len(rows.Columns))
		for i, col := range rows.Columns {
			attrs = append(attrs, col, row[i])
		}
		e.logger.Debug("trace row", attrs...)
	}
	return nil
}
