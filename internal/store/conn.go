package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// conn holds the statement helpers shared by Store and Tx.
type conn struct {
	q querier
}

// Exec executes a statement and returns the number of affected rows.
func (c conn) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := c.q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil // DDL statements may not report affected rows
	}
	return n, nil
}

// Query runs a query and returns the result rows with their column names.
// TEXT values are returned as string.
func (c conn) Query(ctx context.Context, query string, args ...any) (*Table, error) {
	rows, err := c.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}

	t := &Table{Columns: columns}
	for rows.Next() {
		cells := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range cells {
			ptrs[i] = &cells[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		for i, v := range cells {
			if b, ok := v.([]byte); ok {
				cells[i] = string(b)
			}
		}
		t.Rows = append(t.Rows, cells)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return t, nil
}

// DropTable drops name if it exists.
func (c conn) DropTable(ctx context.Context, name string) error {
	if _, err := c.q.ExecContext(ctx, "DROP TABLE IF EXISTS "+QuoteIdent(name)); err != nil {
		return fmt.Errorf("drop table %s: %w", name, err)
	}
	return nil
}

// HasTable reports whether a table named name exists.
func (c conn) HasTable(ctx context.Context, name string) (bool, error) {
	t, err := c.Query(ctx, "SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", name)
	if err != nil {
		return false, fmt.Errorf("look up table %s: %w", name, err)
	}
	return t.Len() > 0, nil
}

// CreateTable creates name with a schema inferred from t and inserts
// t's rows. The schema is checked before any statement runs.
func (c conn) CreateTable(ctx context.Context, name string, t *Table) error {
	types, err := t.Schema()
	if err != nil {
		return err
	}

	defs := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		defs[i] = QuoteIdent(col) + " " + string(types[i])
	}
	stmt := fmt.Sprintf("CREATE TABLE %s (%s)", QuoteIdent(name), strings.Join(defs, ", "))
	if _, err := c.q.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("create table %s: %w", name, err)
	}

	return c.Insert(ctx, name, t)
}

// Insert appends t's rows to an existing table, matching columns by name.
func (c conn) Insert(ctx context.Context, name string, t *Table) error {
	if t.Len() == 0 {
		return nil
	}

	cols := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		cols[i] = QuoteIdent(col)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		QuoteIdent(name), strings.Join(cols, ", "), placeholders)

	for i, row := range t.Rows {
		if _, err := c.q.ExecContext(ctx, stmt, row...); err != nil {
			return fmt.Errorf("insert into %s row %d: %w", name, i, err)
		}
	}
	return nil
}

// QuoteIdent quotes a SQL identifier with double quotes.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
