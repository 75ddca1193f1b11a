// Package slotdata reads and writes slot inventories as CSV.
//
// ReadCSV turns a CSV file with a header row into a store.Table ready for
// engine.Load. Column types are inferred from the cells: a column whose
// non-empty cells all parse as integers is INTEGER, one whose cells all parse
// as numbers is REAL, anything else is TEXT. Empty cells load as NULL.
//
// Numeric visit identifiers are zero-padded to VisitIDWidth digits and stored
// as text so that visits sort and compare the same way regardless of how the
// source file formatted them.
//
// WriteCSV is the inverse for query results. Output is byte-reproducible for
// a given table.
package slotdata
