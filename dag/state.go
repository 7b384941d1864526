package dag

import (
	"fmt"
	"sync"
)

// State is a thread-safe key-value store shared by every node in a run.
//
// The executor passes the same State to all concurrently running nodes and
// performs no coordination over the values beyond State's own lock; nodes
// that read and modify shared structures stored inside a value must provide
// their own synchronization.
type State struct {
	mu   sync.RWMutex
	data map[string]any
}

// NewState creates a new empty State.
func NewState() *State {
	return &State{data: make(map[string]any)}
}

// Get returns the value stored under key and whether it was present.
func (s *State) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok
}

// Set stores value under key, replacing any previous value.
func (s *State) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
}

// Delete removes key and its value. Deleting an absent key is a no-op.
func (s *State) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
}

// Len reports how many keys are currently stored.
func (s *State) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Port names a State key together with the type stored under it. Nodes
// that share a Port value agree on the type at compile time instead of
// re-asserting it at every read site.
//
//	var orderPort = dag.Port[Order]{Key: "order"}
type Port[T any] struct {
	Key string
}

// Read returns the value behind port. The error distinguishes a missing
// key from a value of the wrong type, since both mean a wiring mistake
// between nodes.
func Read[T any](state *State, port Port[T]) (T, error) {
	var zero T
	raw, ok := state.Get(port.Key)
	if !ok {
		return zero, fmt.Errorf("dag: state key %q not found", port.Key)
	}
	val, ok := raw.(T)
	if !ok {
		return zero, fmt.Errorf("dag: state key %q: expected %T, got %T", port.Key, zero, raw)
	}
	return val, nil
}

// Write stores value behind port.
func Write[T any](state *State, port Port[T], value T) {
	state.Set(port.Key, value)
}
