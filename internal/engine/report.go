package engine

import (
	"context"
	"fmt"
	"regexp"

	"github.com/roach88/jwpure/internal/store"
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Export returns every claimed slot (pure_subset > 0) ordered by slot_id,
// with all slot columns.
func (e *Engine) Export(ctx context.Context) (*store.Table, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.loaded {
		return nil, ErrNotLoaded
	}
	t, err := e.store.Query(ctx, "SELECT * FROM slot WHERE pure_subset > 0 ORDER BY slot_id")
	if err != nil {
		return nil, fmt.Errorf("export claimed slots: %w", err)
	}
	return t, nil
}

// Summarize aggregates the slot table per (groupBy, pure_subset).
//
// Each row carries nslot, nconfig and nvisit (distinct counts; a config is
// identified by its visit and config ids) and hours, the summed slotdur in
// hours. Unclaimed slots appear under pure_subset 0. An empty groupBy groups
// by pure_subset alone. groupBy must be a bare column name.
func (e *Engine) Summarize(ctx context.Context, groupBy string) (*store.Table, error) {
	if groupBy != "" && !identPattern.MatchString(groupBy) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidGroupBy, groupBy)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.loaded {
		return nil, ErrNotLoaded
	}

	keys := ColumnPureSubset
	if groupBy != "" {
		keys = groupBy + ", " + ColumnPureSubset
	}
	q := statement(
		"SELECT", keys+",",
		"COUNT(DISTINCT slot_id) AS nslot,",
		"COUNT(DISTINCT visit_id || '/' || config_id) AS nconfig,",
		"COUNT(DISTINCT visit_id) AS nvisit,",
		"SUM(slotdur) / 3600.0 AS hours",
		"FROM slot",
		"GROUP BY", keys,
		"ORDER BY", keys,
	)
	t, err := e.store.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("summarize by %q: %w", groupBy, err)
	}
	return t, nil
}

// RawQuery runs an arbitrary statement against the store and returns its
// rows. Intended for inspection; it bypasses the engine's bookkeeping.
func (e *Engine) RawQuery(ctx context.Context, query string, args ...any) (*store.Table, error) {
	t, err := e.store.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("raw query: %w", err)
	}
	return t, nil
}
