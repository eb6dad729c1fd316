package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/aretw0/solsim/pkg/ports"
	"github.com/aretw0/solsim/pkg/results"
)

// Store implements ports.ResultStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*results.Table
	mu   sync.RWMutex
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{data: make(map[string]*results.Table)}
}

// Save keeps a copy of the table so later changes by the caller are not seen.
func (s *Store) Save(ctx context.Context, executionID string, table *results.Table) error {
	copied := results.New(table.Records())

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[executionID] = copied
	return nil
}

// Load returns a copy of the stored table.
func (s *Store) Load(ctx context.Context, executionID string) (*results.Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	table, ok := s.data[executionID]
	if !ok {
		return nil, ports.ErrResultsNotFound
	}
	return results.New(table.Records()), nil
}

// Delete removes a table.
func (s *Store) Delete(ctx context.Context, executionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, executionID)
	return nil
}

// List returns the stored execution IDs in lexical order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.data)), nil
}
