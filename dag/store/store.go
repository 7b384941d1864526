// Package store provides persistence backends for recorded node outcomes.
//
// A Store is an optional executor collaborator: when attached, every node
// outcome is saved as it lands, giving an inspectable record of partial
// progress. The executor only ever calls a Store; store errors are surfaced
// as observability events and never change run semantics.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested run ID has no recorded outcomes.
var ErrNotFound = errors.New("not found")

// Status is a node's terminal state as recorded.
type Status string

// Terminal states.
const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// Record is one persisted node outcome.
type Record struct {
	// RunID identifies the run.
	RunID string

	// Seq is the record's position in the run's completion order,
	// starting at 1.
	Seq int

	// NodeID is the node's identity.
	NodeID string

	// Status is the node's terminal state.
	Status Status

	// Value is the produced value for completed nodes. SQL-backed stores
	// round-trip it through JSON, so it must be JSON-serializable there.
	Value any

	// Error is the failure text for failed nodes.
	Error string

	// SkipReason explains skipped nodes.
	SkipReason string

	// StartedAt and FinishedAt bound execution; zero for skipped nodes.
	StartedAt  time.Time
	FinishedAt time.Time

	// Duration is the execution wall-clock time.
	Duration time.Duration
}

// Store persists node outcomes per run.
//
// Implementations must be safe for concurrent use; outcomes from one run
// arrive sequentially, but multiple executors may share a store.
type Store interface {
	// SaveOutcome persists one outcome record.
	SaveOutcome(ctx context.Context, rec Record) error

	// LoadRun returns all records for runID ordered by Seq.
	// Returns ErrNotFound if the run has no records.
	LoadRun(ctx context.Context, runID string) ([]Record, error)

	// Runs returns the IDs of all recorded runs.
	Runs(ctx context.Context) ([]string, error)

	// DeleteRun removes all records for runID.
	DeleteRun(ctx context.Context, runID string) error

	// Close releases underlying resources.
	Close() error
}
