package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/jwpure/internal/constraint"
	"github.com/roach88/jwpure/internal/constraintsql"
	"github.com/roach88/jwpure/internal/store"
)

// Clauses holds the three compilations of a pass's constraint.
type Clauses struct {
	// Slot filters the slot table (slot-scoped, includes availability).
	Slot string
	// Config filters the config table (config-scoped).
	Config string
	// Joint filters the slot/config/visit join (unscoped, includes
	// availability).
	Joint string
}

// PassResult describes a committed pass.
type PassResult struct {
	Subset      int64
	Where       Clauses
	Assignments []Assignment

	Matched   int // rows in the subset table
	Claimed   int // rows written with pure_subset = Subset
	Truncated int // rows past a cap, left available
	Configs   int // rows in the config table
	Visits    int // rows in the visit table

	// Trace holds the traced visit's rows per intermediate table, in pass
	// order. Empty unless the engine was built WithTrace.
	Trace []TraceStep
}

// CompileClauses compiles pred the way Allocate does. A nil pred matches
// every available slot.
func CompileClauses(pred constraint.Predicate) (Clauses, error) {
	scoped := constraint.Available()
	if pred != nil {
		scoped = constraint.And(pred, scoped)
	}

	var c Clauses
	var err error
	if c.Slot, err = constraintsql.WhereClause(scoped, constraint.TableSlot); err != nil {
		return Clauses{}, fmt.Errorf("slot clause: %w", err)
	}
	if c.Config, err = constraintsql.WhereClause(pred, constraint.TableConfig); err != nil {
		return Clauses{}, fmt.Errorf("config clause: %w", err)
	}
	if c.Joint, err = constraintsql.WhereClause(scoped, ""); err != nil {
		return Clauses{}, fmt.Errorf("joint clause: %w", err)
	}
	return c, nil
}

// Allocate runs one pass with pred and limits.
//
// Rows matching pred at every level are claimed under the next subset
// index, subject to limits. An empty match is a valid pass: it commits,
// claims nothing and consumes an index. Any failure is a *PassError and
// rolls the pass back completely.
func (e *Engine) Allocate(ctx context.Context, pred constraint.Predicate, limits Limits) (*PassResult, error) {
	if err := limits.Validate(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.loaded {
		return nil, ErrNotLoaded
	}

	subset := e.clock.Current() + 1

	where, err := CompileClauses(pred)
	if err != nil {
		return nil, &PassError{Subset: subset, Stage: StageCompile, Err: err}
	}
	e.logger.Debug("compiled constraint",
		"subset", subset,
		"slot", where.Slot,
		"config", where.Config,
		"joint", where.Joint,
	)

	result := &PassResult{Subset: subset, Where: where}
	began := false
	err = e.store.InTx(ctx, func(tx *store.Tx) error {
		began = true
		return e.runPass(ctx, tx, result, limits)
	})
	if err != nil {
		var pe *PassError
		switch {
		case errors.As(err, &pe):
			return nil, err
		case !began:
			return nil, &PassError{Subset: subset, Stage: StageBegin, Err: err}
		default:
			return nil, &PassError{Subset: subset, Stage: StageCommit, Err: err}
		}
	}

	e.clock.Next()
	e.lastWhere = where.Joint

	e.logger.Info("pass committed",
		"subset", subset,
		"matched", result.Matched,
		"claimed", result.Claimed,
		"truncated", result.Truncated,
		"configs", result.Configs,
		"visits", result.Visits,
	)
	return result, nil
}

// runPass executes every step of a pass inside tx.
func (e *Engine) runPass(ctx context.Context, tx *store.Tx, r *PassResult, limits Limits) error {
	fail := func(stage Stage, err error) error {
		return &PassError{Subset: r.Subset, Stage: stage, Err: err}
	}

	if err := e.buildConfig(ctx, tx, r); err != nil {
		return fail(StageConfig, err)
	}
	if err := e.buildVisit(ctx, tx, r); err != nil {
		return fail(StageVisit, err)
	}
	if err := e.buildSubset(ctx, tx, r); err != nil {
		return fail(StageSubset, err)
	}
	if err := e.writeSequence(ctx, tx, r, limits); err != nil {
		return fail(StageSequence, err)
	}
	return nil
}

func (e *Engine) buildConfig(ctx context.Context, tx *store.Tx, r *PassResult) error {
	if err := tx.DropTable(ctx, TableConfig); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, statement(
		"CREATE TABLE config AS",
		"SELECT visit_id, config_id, COUNT(*) AS nslot, SUM(slotdur) AS configdur",
		"FROM slot", r.Where.Slot,
		"GROUP BY visit_id, config_id",
	)); err != nil {
		return fmt.Errorf("create config table: %w", err)
	}

	n, err := countRows(ctx, tx, TableConfig)
	if err != nil {
		return err
	}
	r.Configs = n
	return e.trace(ctx, tx, r, TableConfig, "config table")
}

func (e *Engine) buildVisit(ctx context.Context, tx *store.Tx, r *PassResult) error {
	if err := tx.DropTable(ctx, TableVisit); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, statement(
		"CREATE TABLE visit AS",
		"SELECT visit_id, COUNT(*) AS nconfig",
		"FROM config", r.Where.Config,
		"GROUP BY visit_id",
	)); err != nil {
		return fmt.Errorf("create visit table: %w", err)
	}

	n, err := countRows(ctx, tx, TableVisit)
	if err != nil {
		return err
	}
	r.Visits = n
	return e.trace(ctx, tx, r, TableVisit, "visit table")
}

func (e *Engine) buildSubset(ctx context.Context, tx *store.Tx, r *PassResult) error {
	if err := tx.DropTable(ctx, TableSubset); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, statement(
		"CREATE TABLE subset AS",
		"SELECT visit.visit_id AS visit_id, config.config_id AS config_id, slot.slot_id AS slot_id",
		"FROM slot",
		"JOIN config ON config.visit_id = slot.visit_id AND config.config_id = slot.config_id",
		"JOIN visit ON visit.visit_id = slot.visit_id",
		r.Where.Joint,
	)); err != nil {
		return fmt.Errorf("create subset table: %w", err)
	}
	return e.trace(ctx, tx, r, TableSubset, "subset table")
}

func (e *Engine) writeSequence(ctx context.Context, tx *store.Tx, r *PassResult, limits Limits) error {
	rows, err := tx.Query(ctx, "SELECT visit_id, config_id, slot_id FROM subset ORDER BY slot_id")
	if err != nil {
		return fmt.Errorf("read subset: %w", err)
	}

	triples := make([]Triple, rows.Len())
	for i, row := range rows.Rows {
		triples[i] = Triple{VisitID: row[0], ConfigID: row[1], SlotID: row[2]}
	}

	r.Assignments = AssignSequenceNumbers(triples, r.Subset, limits)
	r.Matched = len(r.Assignments)
	for _, a := range r.Assignments {
		if a.Truncated() {
			r.Truncated++
		} else {
			r.Claimed++
		}
	}

	if err := tx.DropTable(ctx, TableSequenceNumbers); err != nil {
		return err
	}
	// Identifier columns carry no declared type so staged values keep the
	// storage class they had in slot.
	if _, err := tx.Exec(ctx, statement(
		"CREATE TABLE sequence_numbers (",
		"visit_id, config_id, slot_id,",
		"pure_subset INTEGER, pure_visit INTEGER,",
		"pure_config INTEGER, pure_slot INTEGER)",
	)); err != nil {
		return fmt.Errorf("create sequence_numbers table: %w", err)
	}
	if err := tx.Insert(ctx, TableSequenceNumbers, assignmentTable(r.Assignments)); err != nil {
		return err
	}
	if err := e.trace(ctx, tx, r, TableSequenceNumbers, "sequence numbers"); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, statement(
		"UPDATE slot SET",
		"pure_subset = (SELECT pure_subset FROM sequence_numbers sn WHERE sn.slot_id = slot.slot_id),",
		"pure_visit = (SELECT pure_visit FROM sequence_numbers sn WHERE sn.slot_id = slot.slot_id),",
		"pure_config = (SELECT pure_config FROM sequence_numbers sn WHERE sn.slot_id = slot.slot_id),",
		"pure_slot = (SELECT pure_slot FROM sequence_numbers sn WHERE sn.slot_id = slot.slot_id)",
		"WHERE slot_id IN (SELECT slot_id FROM subset)",
	)); err != nil {
		return fmt.Errorf("update slot: %w", err)
	}
	return nil
}

// assignmentTable converts assignments to sequence_numbers rows.
func assignmentTable(as []Assignment) *store.Table {
	t := store.NewTable(
		"visit_id", "config_id", "slot_id",
		ColumnPureSubset, ColumnPureVisit, ColumnPureConfig, ColumnPureSlot,
	)
	t.Rows = make([][]any, len(as))
	for i, a := range as {
		t.Rows[i] = []any{a.VisitID, a.ConfigID, a.SlotID, a.Subset, a.Visit, a.Config, a.Slot}
	}
	return t
}

func countRows(ctx context.Context, tx *store.Tx, table string) (int, error) {
	t, err := tx.Query(ctx, "SELECT COUNT(*) FROM "+store.QuoteIdent(table))
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	n, _ := t.Rows[0][0].(int64)
	return int(n), nil
}

// statement joins the non-empty parts of a SQL statement with spaces.
func statement(parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}
