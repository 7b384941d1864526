// Package emit provides pluggable observability event sinks for the
// scheduler. Emitters observe run and node lifecycle transitions; they can
// never affect outcomes or control flow.
package emit

import "time"

// Type classifies a scheduler lifecycle event.
type Type string

// Lifecycle event types emitted by the executor.
const (
	// RunStart is emitted once per run before any node launches.
	RunStart Type = "run_start"

	// NodeStart is emitted when a node's execution body is invoked.
	NodeStart Type = "node_start"

	// NodeSuccess is emitted when a node returns without error.
	NodeSuccess Type = "node_success"

	// NodeFailure is emitted when a node returns an error or exceeds its
	// time budget.
	NodeFailure Type = "node_failure"

	// NodeError is emitted when a node panics; the panic is converted into
	// a failure outcome.
	NodeError Type = "node_error"

	// NodeSkipped is emitted when a node is resolved without executing.
	NodeSkipped Type = "node_skipped"

	// RunEnd is emitted once per run after every node has resolved.
	RunEnd Type = "run_end"

	// RecorderError is emitted when persisting an outcome to the attached
	// recorder fails. The run itself is unaffected.
	RecorderError Type = "recorder_error"
)

// Event is a single observability record from a run.
type Event struct {
	// RunID identifies the run that emitted this event.
	RunID string

	// NodeID identifies the node, empty for run-level events.
	NodeID string

	// Type classifies the event.
	Type Type

	// Err carries error text for failure events, empty otherwise.
	Err string

	// At is the emission timestamp.
	At time.Time

	// Meta contains additional structured data. Common keys:
	//   - "duration_ms": execution duration in milliseconds
	//   - "skip_reason": why a node was skipped
	//   - "nodes": node count on run-level events
	Meta map[string]any
}

// Emitter receives observability events from the executor.
//
// Implementations should be:
//   - Non-blocking: avoid slowing down the scheduling loop
//   - Thread-safe: nodes in a wave finish concurrently
//   - Resilient: a panicking emitter is contained by the executor, but
//     well-behaved emitters log failures internally instead
type Emitter interface {
	// Emit delivers one event. It must not block on slow backends; buffer,
	// drop, or hand off asynchronously instead.
	Emit(event Event)
}
