package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_InMemory(t *testing.T) {
	for _, path := range []string{"", MemoryPath} {
		s, err := Open(path)
		require.NoError(t, err)
		require.NoError(t, s.verifyPragma("busy_timeout", "5000"))
		require.NoError(t, s.Close())
	}
}

func TestOpen_FileDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "slots.db")

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(path)
	require.NoError(t, err, "database file was not created")

	assert.NoError(t, s.verifyPragma("journal_mode", "wal"))
	assert.NoError(t, s.verifyPragma("synchronous", "1")) // NORMAL
}

func TestOpen_SharesOneInMemoryDatabase(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateTable(ctx, "slot", createTestSlots()))

	// Statements on the pool must all see the same in-memory database.
	for i := 0; i < 5; i++ {
		ok, err := s.HasTable(ctx, "slot")
		require.NoError(t, err)
		assert.True(t, ok)
	}
}

func TestClose_NilDB(t *testing.T) {
	s := &Store{}
	assert.NoError(t, s.Close())
}

func TestCreateTable_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateTable(ctx, "slot", createTestSlots()))

	got, err := s.Query(ctx, "SELECT slot_id, visit_id, config_id, inst, slotdur FROM slot ORDER BY slot_id")
	require.NoError(t, err)

	assert.Equal(t, []string{"slot_id", "visit_id", "config_id", "inst", "slotdur"}, got.Columns)
	assert.Equal(t, [][]any{
		{int64(1), "00000000001", int64(1), "MIRI", 300.0},
		{int64(2), "00000000001", int64(1), "NIRISS", 450.5},
		{int64(3), "00000000002", int64(2), nil, 600.0},
	}, got.Rows)
}

func TestCreateTable_DeclaredTypes(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateTable(ctx, "slot", createTestSlots()))

	info, err := s.Query(ctx, "SELECT name, type FROM pragma_table_info('slot') ORDER BY cid")
	require.NoError(t, err)
	assert.Equal(t, [][]any{
		{"slot_id", "INTEGER"},
		{"visit_id", "TEXT"},
		{"config_id", "INTEGER"},
		{"inst", "TEXT"},
		{"slotdur", "REAL"},
	}, info.Rows)
}

func TestCreateTable_UnrecognizedColumnType(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	tbl := &Table{
		Columns: []string{"slot_id", "flag"},
		Rows:    [][]any{{int64(1), true}},
	}
	err := s.CreateTable(ctx, "slot", tbl)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnrecognizedColumnType))

	var cte *ColumnTypeError
	require.ErrorAs(t, err, &cte)
	assert.Equal(t, "flag", cte.Column)

	// Nothing was created.
	ok, err := s.HasTable(ctx, "slot")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCreateTable_DuplicateFails(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateTable(ctx, "slot", createTestSlots()))
	err := s.CreateTable(ctx, "slot", createTestSlots())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create table slot")
}

func TestInTx_RollsBackOnError(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateTable(ctx, "slot", createTestSlots()))

	boom := errors.New("boom")
	err := s.InTx(ctx, func(tx *Tx) error {
		if _, err := tx.Exec(ctx, "UPDATE slot SET inst = 'FGS'"); err != nil {
			return err
		}
		if err := tx.CreateTable(ctx, "config", NewTable("visit_id")); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := s.Query(ctx, "SELECT COUNT(*) FROM slot WHERE inst = 'FGS'")
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.Rows[0][0])

	ok, err := s.HasTable(ctx, "config")
	require.NoError(t, err)
	assert.False(t, ok, "DDL inside a failed transaction must roll back")
}

func TestInTx_Commits(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateTable(ctx, "slot", createTestSlots()))

	err := s.InTx(ctx, func(tx *Tx) error {
		n, err := tx.Exec(ctx, "UPDATE slot SET inst = 'FGS' WHERE slot_id <= 2")
		if err != nil {
			return err
		}
		assert.Equal(t, int64(2), n)
		return tx.DropTable(ctx, "missing")
	})
	require.NoError(t, err)

	got, err := s.Query(ctx, "SELECT COUNT(*) FROM slot WHERE inst = 'FGS'")
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Rows[0][0])
}

func TestInsert_AppendsRows(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateTable(ctx, "slot", createTestSlots()))

	extra := &Table{
		Columns: []string{"slot_id", "inst"},
		Rows:    [][]any{{int64(4), "FGS"}},
	}
	require.NoError(t, s.Insert(ctx, "slot", extra))
	require.NoError(t, s.Insert(ctx, "slot", NewTable("slot_id")))

	got, err := s.Query(ctx, "SELECT COUNT(*) FROM slot")
	require.NoError(t, err)
	assert.Equal(t, int64(4), got.Rows[0][0])
}

func TestQuery_Error(t *testing.T) {
	s := createTestStore(t)
	_, err := s.Query(context.Background(), "SELECT * FROM nowhere")
	assert.Error(t, err)
}

func TestQuery_EmptyResultKeepsColumns(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateTable(ctx, "slot", createTestSlots()))

	got, err := s.Query(ctx, "SELECT slot_id, inst FROM slot WHERE slot_id > 100")
	require.NoError(t, err)
	assert.Equal(t, []string{"slot_id", "inst"}, got.Columns)
	assert.Equal(t, 0, got.Len())
}

func TestQuoteIdent(t *testing.T) {
	assert.Equal(t, `"slot"`, QuoteIdent("slot"))
	assert.Equal(t, `"we""ird"`, QuoteIdent(`we"ird`))
}
