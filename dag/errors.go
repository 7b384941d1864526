package dag

import "errors"

// ErrNodeTimeout marks a node failure caused by the node exceeding its time
// budget. Outcome errors wrap it, so callers can test with errors.Is.
var ErrNodeTimeout = errors.New("node execution timed out")

// ErrRunCancelled marks outcomes of nodes that were still pending when the
// whole-run deadline or the caller's cancellation tripped.
var ErrRunCancelled = errors.New("run cancelled")

// Configuration error codes. These surface only from graph construction and
// NewExecutor, never mid-run.
const (
	CodeEmptyNodeID       = "EMPTY_NODE_ID"
	CodeNilNode           = "NIL_NODE"
	CodeNilGraph          = "NIL_GRAPH"
	CodeDuplicateNode     = "DUPLICATE_NODE"
	CodeUnknownDependency = "UNKNOWN_DEPENDENCY"
	CodeCycleDetected     = "CYCLE_DETECTED"
)

// ConfigError represents a graph or executor configuration problem: a
// duplicate node identity, a dependency on a node that is not registered,
// or a dependency cycle.
type ConfigError struct {
	Message string
	Code    string
}

func (e *ConfigError) Error() string {
	if e.Code != "" {
		return e.Code + ": " + e.Message
	}
	return e.Message
}

// NodeError represents an error produced while executing a single node.
// It is recorded in the node's outcome and never escapes Execute.
type NodeError struct {
	// Message is the human-readable error description.
	Message string

	// Code is a machine-readable error code for programmatic handling.
	Code string

	// NodeID identifies which node produced this error.
	NodeID string

	// Cause is the underlying error that caused this NodeError.
	Cause error
}

// Error implements the error interface.
func (e *NodeError) Error() string {
	if e.NodeID != "" {
		return "node " + e.NodeID + ": " + e.Message
	}
	return e.Message
}

// Unwrap returns the underlying cause error for error wrapping support.
func (e *NodeError) Unwrap() error {
	return e.Cause
}

// Skip reasons recorded on skipped node outcomes.
const (
	// SkipUpstreamFailure marks nodes skipped because a dependency, direct
	// or transitive, failed or was itself skipped.
	SkipUpstreamFailure = "upstream dependency failed"

	// SkipRunAborted marks nodes skipped by the stop-on-first-failure
	// policy even though none of their dependencies failed.
	SkipRunAborted = "run aborted on first failure"

	// SkipRunCancelled marks nodes still pending when the run deadline or
	// caller cancellation tripped.
	SkipRunCancelled = "run cancelled"

	// SkipUnresolvable marks nodes that could never become ready because a
	// declared dependency is not present in the graph. This can only happen
	// when validation was disabled at construction.
	SkipUnresolvable = "unresolvable dependencies"
)
