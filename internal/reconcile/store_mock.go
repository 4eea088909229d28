package reconcile

import (
	"sync"
)

// MutationKind identifies whether a recorded mutation was a merge or a delete.
const (
	MutationKindMerge  = "merge"
	MutationKindDelete = "delete"
)

// Mutation is a single recorded store call.
type Mutation struct {
	Kind  string
	Table string
	ID    string
	Cells map[string]any // nil for deletes
}

// MockStore implements RowStore with a single ordered mutation log.
type MockStore struct {
	mu   sync.Mutex
	muts []Mutation
}

func NewMockStore() *MockStore { return &MockStore{} }

// SetPartialRow implements RowStore by recording the call. The cell map is
// copied so later caller mutation cannot corrupt the log.
func (m *MockStore) SetPartialRow(table, id string, cells map[string]any) {
	cp := make(map[string]any, len(cells))
	for k, v := range cells {
		cp[k] = v
	}
	m.mu.Lock()
	m.muts = append(m.muts, Mutation{Kind: MutationKindMerge, Table: table, ID: id, Cells: cp})
	m.mu.Unlock()
}

// DelRow implements RowStore by recording the call.
func (m *MockStore) DelRow(table, id string) {
	m.mu.Lock()
	m.muts = append(m.muts, Mutation{Kind: MutationKindDelete, Table: table, ID: id})
	m.mu.Unlock()
}

// Mutations returns a copy of the recorded mutations in order.
func (m *MockStore) Mutations() []Mutation {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Mutation, len(m.muts))
	copy(out, m.muts)
	return out
}

// Reset clears the recorded mutations.
func (m *MockStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.muts = nil
}
