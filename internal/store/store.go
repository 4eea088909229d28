// Package store provides the in-memory key-row-cell structure the reconciler
// writes into: named tables of rows, each row a flat mapping from cell name
// to a primitive value (string, number, or boolean).
//
// Every method is individually atomic, but a sequence of calls is not wrapped
// in any transaction: a reader interleaving with a running reconciliation may
// observe intermediate states. Ordering between concurrent reconciliations is
// arrival order, last write wins per cell.
package store

import (
	"sort"
	"sync"
)

// Row is a flat cell map. Values are expected to be primitives; the
// reconciler filters out nested structures before calling SetPartialRow.
type Row = map[string]any

// Store holds tables of rows guarded by a single lock.
type Store struct {
	mu     sync.RWMutex
	tables map[string]map[string]Row
}

func New() *Store {
	return &Store{tables: make(map[string]map[string]Row)}
}

// SetPartialRow merges cells into the row identified by (table, id), creating
// the table and the row as needed. Cells absent from the argument are
// retained; cells present overwrite.
func (s *Store) SetPartialRow(table, id string, cells map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.tables[table]
	if rows == nil {
		rows = make(map[string]Row)
		s.tables[table] = rows
	}
	row := rows[id]
	if row == nil {
		row = make(Row, len(cells))
		rows[id] = row
	}
	for k, v := range cells {
		row[k] = v
	}
}

// DelRow removes the entire row. Removing an absent row is a no-op. A table
// left empty is pruned so Tables reports only populated tables.
func (s *Store) DelRow(table, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.tables[table]
	if rows == nil {
		return
	}
	delete(rows, id)
	if len(rows) == 0 {
		delete(s.tables, table)
	}
}

// HasRow reports whether the row exists.
func (s *Store) HasRow(table, id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.tables[table][id]
	return ok
}

// Row returns a copy of the row's cells and whether it exists.
func (s *Store) Row(table, id string) (Row, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.tables[table][id]
	if !ok {
		return nil, false
	}
	return copyRow(row), true
}

// Table returns a copy of all rows in the table, keyed by row id. An unknown
// table yields an empty map.
func (s *Store) Table(name string) map[string]Row {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]Row, len(s.tables[name]))
	for id, row := range s.tables[name] {
		out[id] = copyRow(row)
	}
	return out
}

// Tables returns the populated table names in sorted order.
func (s *Store) Tables() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.tables))
	for name := range s.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RowCount returns the number of rows in the table.
func (s *Store) RowCount(table string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tables[table])
}

// Snapshot deep-copies the whole store, for printing and for test assertions.
func (s *Store) Snapshot() map[string]map[string]Row {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]map[string]Row, len(s.tables))
	for name, rows := range s.tables {
		t := make(map[string]Row, len(rows))
		for id, row := range rows {
			t[id] = copyRow(row)
		}
		out[name] = t
	}
	return out
}

func copyRow(row Row) Row {
	cp := make(Row, len(row))
	for k, v := range row {
		cp[k] = v
	}
	return cp
}
