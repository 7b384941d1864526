package store

import (
	"context"
	"sort"
	"sync"
)

// MemStore is an in-memory Store.
//
// Designed for testing and short-lived single-process runs; records are
// lost when the process exits and memory grows with run history.
type MemStore struct {
	mu   sync.RWMutex
	runs map[string][]Record // runID -> records in save order
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{runs: make(map[string][]Record)}
}

// SaveOutcome appends the record to its run's history.
func (m *MemStore) SaveOutcome(_ context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[rec.RunID] = append(m.runs[rec.RunID], rec)
	return nil
}

// LoadRun returns a copy of the run's records ordered by Seq.
func (m *MemStore) LoadRun(_ context.Context, runID string) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	records, ok := m.runs[runID]
	if !ok || len(records) == 0 {
		return nil, ErrNotFound
	}

	out := make([]Record, len(records))
	copy(out, records)
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

// Runs returns all recorded run IDs in lexical order.
func (m *MemStore) Runs(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]string, 0, len(m.runs))
	for id := range m.runs {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

// DeleteRun removes all records for runID.
func (m *MemStore) DeleteRun(_ context.Context, runID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.runs, runID)
	return nil
}

// Close is a no-op for the in-memory store.
func (m *MemStore) Close() error { return nil }
