package emit

import "sync"

// BufferedEmitter implements Emitter by storing events in memory.
//
// Events are organized by run ID for retrieval and filtering. Intended for
// tests, debugging, and post-run analysis; everything stays in memory, so
// long-lived processes should Clear finished runs.
//
// Example:
//
//	emitter := emit.NewBufferedEmitter()
//	ex, _ := dag.NewExecutor(g, dag.WithEmitter(emitter))
//	res := ex.Execute(ctx, nil)
//
//	failures := emitter.HistoryWithFilter(res.RunID, emit.HistoryFilter{Type: emit.NodeFailure})
type BufferedEmitter struct {
	mu     sync.RWMutex
	events map[string][]Event // runID -> events in emission order
}

// HistoryFilter selects events from a run's history. Fields are optional
// and combine with AND logic.
type HistoryFilter struct {
	// NodeID filters by node identity (empty = no filter).
	NodeID string

	// Type filters by event type (empty = no filter).
	Type Type
}

// NewBufferedEmitter creates an empty BufferedEmitter. Safe for concurrent
// use.
func NewBufferedEmitter() *BufferedEmitter {
	return &BufferedEmitter{events: make(map[string][]Event)}
}

// Emit appends the event to its run's history.
func (b *BufferedEmitter) Emit(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events[event.RunID] = append(b.events[event.RunID], event)
}

// History returns a copy of all events for runID in emission order.
func (b *BufferedEmitter) History(runID string) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()
	events := b.events[runID]
	out := make([]Event, len(events))
	copy(out, events)
	return out
}

// HistoryWithFilter returns the events for runID matching filter.
func (b *BufferedEmitter) HistoryWithFilter(runID string, filter HistoryFilter) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var out []Event
	for _, ev := range b.events[runID] {
		if filter.NodeID != "" && ev.NodeID != filter.NodeID {
			continue
		}
		if filter.Type != "" && ev.Type != filter.Type {
			continue
		}
		out = append(out, ev)
	}
	return out
}

// Runs returns the run IDs with buffered history.
func (b *BufferedEmitter) Runs() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]string, 0, len(b.events))
	for id := range b.events {
		out = append(out, id)
	}
	return out
}

// Clear drops the history for runID.
func (b *BufferedEmitter) Clear(runID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.events, runID)
}

// ClearAll drops all buffered history.
func (b *BufferedEmitter) ClearAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = make(map[string][]Event)
}
