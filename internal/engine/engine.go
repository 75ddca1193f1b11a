package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/jwpure/internal/ir"
	"github.com/roach88/jwpure/internal/store"
)

// Table names owned by the engine.
const (
	TableSlot            = "slot"
	TableConfig          = "config"
	TableVisit           = "visit"
	TableSubset          = "subset"
	TableSequenceNumbers = "sequence_numbers"
)

// Allocation columns added to the slot table on load.
const (
	ColumnPureSubset = "pure_subset"
	ColumnPureVisit  = "pure_visit"
	ColumnPureConfig = "pure_config"
	ColumnPureSlot   = "pure_slot"
)

// RequiredColumns must be present in loaded slot data.
var RequiredColumns = []string{"slot_id", "visit_id", "config_id", "slotdur"}

var allocationColumns = []string{ColumnPureSubset, ColumnPureVisit, ColumnPureConfig, ColumnPureSlot}

// Engine allocates slots from a loaded inventory in successive passes.
//
// Thread-safety model:
//   - Allocate, Load, Export and Summarize serialize on an internal mutex
//   - RawQuery goes straight to the store
//
// INVARIANTS:
//   - a slot with pure_subset > 0 is never modified again
//   - subset indices are dense: 1, 2, 3, ... per committed pass
type Engine struct {
	mu     sync.Mutex
	store  *store.Store
	clock  *Clock
	logger *slog.Logger

	traceVisit string
	loaded     bool
	lastWhere  string
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithTrace follows one visit through every intermediate table of each
// pass. Traced rows are logged at debug level and returned in
// PassResult.Trace.
func WithTrace(visitID string) Option {
	return func(e *Engine) {
		e.traceVisit = visitID
	}
}

// New creates an Engine over s. The engine takes ownership of s for
// allocation; call Load before Allocate.
func New(s *store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:  s,
		clock:  NewClock(),
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Load creates the slot table from t.
//
// The four allocation columns (pure_subset, pure_visit, pure_config,
// pure_slot) are added with value 0. Text cells are stored in Unicode NFC,
// the form string literals are rendered in. t itself is not modified. Fails
// with store.ErrUnrecognizedColumnType when a column cannot be stored, with
// ErrMissingColumn when a required column is absent, and with
// ErrAlreadyLoaded when the store already holds a slot table.
func (e *Engine) Load(ctx context.Context, t *store.Table) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.loaded {
		return ErrAlreadyLoaded
	}
	if t == nil {
		return fmt.Errorf("%w: no slot table", ErrMissingColumn)
	}
	for _, col := range RequiredColumns {
		if t.Index(col) < 0 {
			return fmt.Errorf("%w: %s", ErrMissingColumn, col)
		}
	}

	slots := &store.Table{
		Columns: append([]string(nil), t.Columns...),
		Rows:    make([][]any, len(t.Rows)),
	}
	for i, row := range t.Rows {
		cells := make([]any, len(row), len(row)+len(allocationColumns))
		for j, v := range row {
			if s, ok := v.(string); ok {
				v = ir.Normalize(s)
			}
			cells[j] = v
		}
		slots.Rows[i] = cells
	}
	for _, col := range allocationColumns {
		if err := slots.AddColumn(col, int64(0)); err != nil {
			return fmt.Errorf("add allocation column: %w", err)
		}
	}

	exists, err := e.store.HasTable(ctx, TableSlot)
	if err != nil {
		return fmt.Errorf("load slots: %w", err)
	}
	if exists {
		return fmt.Errorf("%w: database already has a %s table", ErrAlreadyLoaded, TableSlot)
	}

	if err := e.store.CreateTable(ctx, TableSlot, slots); err != nil {
		return fmt.Errorf("load slots: %w", err)
	}

	e.loaded = true
	e.logger.Info("slots loaded", "slots", slots.Len(), "columns", len(slots.Columns))
	return nil
}

// Resume attaches the engine to a slot table left in the store by an
// earlier run. The subset clock continues after the highest committed
// pure_subset, so later passes never reuse an index. Fails with ErrNotLoaded
// when the store has no slot table and with ErrMissingColumn when the table
// lacks a required or allocation column.
func (e *Engine) Resume(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.loaded {
		return ErrAlreadyLoaded
	}

	exists, err := e.store.HasTable(ctx, TableSlot)
	if err != nil {
		return fmt.Errorf("resume: %w", err)
	}
	if !exists {
		return fmt.Errorf("%w: database has no %s table", ErrNotLoaded, TableSlot)
	}

	cols, err := e.store.Query(ctx, "SELECT * FROM slot LIMIT 0")
	if err != nil {
		return fmt.Errorf("resume: %w", err)
	}
	for _, col := range append(append([]string(nil), RequiredColumns...), allocationColumns...) {
		if cols.Index(col) < 0 {
			return fmt.Errorf("%w: %s", ErrMissingColumn, col)
		}
	}

	last, err := e.store.Query(ctx, "SELECT COALESCE(MAX(pure_subset), 0) FROM slot")
	if err != nil {
		return fmt.Errorf("resume: %w", err)
	}
	subset, _ := last.Rows[0][0].(int64)
	e.clock.Reset(subset)

	e.loaded = true
	e.logger.Info("slots resumed", "subset", subset)
	return nil
}

// Subset returns the index of the last committed pass, or 0.
func (e *Engine) Subset() int64 {
	return e.clock.Current()
}

// LastWhere returns the joint WHERE clause of the last committed pass.
func (e *Engine) LastWhere() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastWhere
}
