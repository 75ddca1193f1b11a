package store

import (
	"testing"
)

// createTestStore creates a new in-memory store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(MemoryPath)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestSlots builds a small slot-shaped table.
func createTestSlots() *Table {
	return &Table{
		Columns: []string{"slot_id", "visit_id", "config_id", "inst", "slotdur"},
		Rows: [][]any{
			{int64(1), "00000000001", int64(1), "MIRI", 300.0},
			{int64(2), "00000000001", int64(1), "NIRISS", 450.5},
			{int64(3), "00000000002", int64(2), nil, int64(600)},
		},
	}
}
