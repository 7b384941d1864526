package dag

import (
	"sort"
	"time"
)

// NodeOutcome holds the outcome of a single node for one run.
type NodeOutcome struct {
	// NodeID is the node's identity.
	NodeID string

	// Success reports whether the node ran and returned without error.
	Success bool

	// Value is the value produced by a successful node.
	Value any

	// Err describes the failure for failed nodes. Timeouts wrap
	// ErrNodeTimeout; panics are normalized into a NodeError.
	Err error

	// Skipped reports that the node never executed.
	Skipped bool

	// SkipReason is one of the Skip* constants when Skipped is true.
	SkipReason string

	// StartedAt and FinishedAt bound the execution. Zero for skipped nodes.
	StartedAt  time.Time
	FinishedAt time.Time

	// Duration is FinishedAt minus StartedAt.
	Duration time.Duration
}

// Result is the aggregated record of one Execute call. It is created fresh
// per run and owned by the caller; the executor does not retain it.
type Result struct {
	// RunID identifies the run across events and recorded outcomes.
	RunID string

	// Success is true iff no node failed.
	Success bool

	// Cancelled is true when the whole-run deadline or the caller's
	// cancellation tripped before every node resolved.
	Cancelled bool

	// State is the shared state after execution.
	State *State

	// Outcomes maps node identity to its outcome. Every registered node has
	// an entry by run end.
	Outcomes map[string]*NodeOutcome

	// Completed, Failed and Skipped are the disjoint identity sets, each in
	// lexical order.
	Completed []string
	Failed    []string
	Skipped   []string

	// Order is the realized completion order. Skipped nodes do not appear.
	Order []string

	// Duration is the wall-clock time of the whole run.
	Duration time.Duration
}

// Outcome returns the outcome recorded for id.
func (r *Result) Outcome(id string) (*NodeOutcome, bool) {
	oc, ok := r.Outcomes[id]
	return oc, ok
}

// setToSorted flattens a set of identities into a lexically ordered slice.
func setToSorted(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
