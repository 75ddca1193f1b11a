package store

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db), mock
}

func TestInTx_BeginFailure(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectBegin().WillReturnError(errors.New("database is locked"))

	called := false
	err := s.InTx(context.Background(), func(tx *Tx) error {
		called = true
		return nil
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "begin transaction")
	assert.False(t, called)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInTx_CommitFailure(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE slot SET pure_subset = 1")).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit().WillReturnError(errors.New("disk I/O error"))

	err := s.InTx(context.Background(), func(tx *Tx) error {
		_, err := tx.Exec(context.Background(), "UPDATE slot SET pure_subset = 1")
		return err
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "commit transaction")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInTx_RollbackFailureIsReported(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectRollback().WillReturnError(errors.New("connection reset"))

	boom := errors.New("boom")
	err := s.InTx(context.Background(), func(tx *Tx) error { return boom })
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "rollback failed: connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateTable_InsertFailureRollsBack(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE "slot" ("slot_id" INTEGER, "inst" TEXT)`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "slot" ("slot_id", "inst") VALUES (?, ?)`)).
		WithArgs(int64(1), "MIRI").
		WillReturnError(errors.New("constraint failed"))
	mock.ExpectRollback()

	tbl := &Table{Columns: []string{"slot_id", "inst"}, Rows: [][]any{{int64(1), "MIRI"}}}
	err := s.CreateTable(context.Background(), "slot", tbl)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert into slot row 0")
	assert.NoError(t, mock.ExpectationsWereMet())
}
