package dag

import (
	"time"

	"github.com/dshills/taskdag-go/dag/emit"
	"github.com/dshills/taskdag-go/dag/store"
)

// Options configures Executor behavior.
//
// The zero value is not the default configuration; NewExecutor starts from
// DefaultOptions and applies functional options on top. Use WithOptions to
// supply a fully specified struct instead.
type Options struct {
	// MaxParallel caps the number of concurrently running nodes.
	// 0 means unbounded.
	MaxParallel int

	// StopOnFirstFailure, when true (the default), skips every still
	// pending node the moment any node fails, even nodes with no
	// dependency relation to the failure, and ends the run early. When
	// false, only dependents of failed nodes are skipped and independent
	// branches run to completion.
	StopOnFirstFailure bool

	// ExecutionTimeout is the whole-run wall-clock budget. 0 means none.
	ExecutionTimeout time.Duration

	// NodeTimeout is the per-node wall-clock budget. Each node runs under
	// min(NodeTimeout, remaining ExecutionTimeout). 0 means none.
	NodeTimeout time.Duration

	// ValidateCycles, when true (the default), validates the graph at
	// NewExecutor: every dependency identity must resolve and the
	// dependency relation must be acyclic.
	ValidateCycles bool

	// RunID labels the run in events and recorded outcomes. A fresh UUID
	// is generated per Execute call when empty.
	RunID string
}

// DefaultOptions returns the executor defaults: unbounded parallelism, stop
// on first failure, no time budgets, eager cycle validation.
func DefaultOptions() Options {
	return Options{
		StopOnFirstFailure: true,
		ValidateCycles:     true,
	}
}

// Option is a functional option for configuring an Executor.
//
// Example:
//
//	ex, err := dag.NewExecutor(g,
//	    dag.WithMaxParallel(4),
//	    dag.WithNodeTimeout(10*time.Second),
//	    dag.WithEmitter(emit.NewLogEmitter(os.Stdout, false)),
//	)
type Option func(*Executor) error

// WithOptions replaces the entire Options struct. Later functional options
// still apply on top.
func WithOptions(opts Options) Option {
	return func(ex *Executor) error {
		ex.opts = opts
		return nil
	}
}

// WithMaxParallel caps the number of concurrently running nodes.
// n <= 0 means unbounded.
func WithMaxParallel(n int) Option {
	return func(ex *Executor) error {
		if n < 0 {
			n = 0
		}
		ex.opts.MaxParallel = n
		return nil
	}
}

// WithStopOnFirstFailure toggles the abort-everything-on-failure policy.
// Dependents of a failed node are skipped regardless of this setting.
func WithStopOnFirstFailure(stop bool) Option {
	return func(ex *Executor) error {
		ex.opts.StopOnFirstFailure = stop
		return nil
	}
}

// WithExecutionTimeout sets the whole-run wall-clock budget.
func WithExecutionTimeout(d time.Duration) Option {
	return func(ex *Executor) error {
		ex.opts.ExecutionTimeout = d
		return nil
	}
}

// WithNodeTimeout sets the per-node wall-clock budget.
func WithNodeTimeout(d time.Duration) Option {
	return func(ex *Executor) error {
		ex.opts.NodeTimeout = d
		return nil
	}
}

// WithCycleValidation toggles eager graph validation at construction.
// Disabling it is only sensible for graphs already validated elsewhere;
// unresolved dependencies then surface as skipped nodes at run time.
func WithCycleValidation(validate bool) Option {
	return func(ex *Executor) error {
		ex.opts.ValidateCycles = validate
		return nil
	}
}

// WithRunID fixes the run identity used in events and recorded outcomes.
func WithRunID(id string) Option {
	return func(ex *Executor) error {
		ex.opts.RunID = id
		return nil
	}
}

// WithEmitter sets the observability event sink. Emitters are invoked
// synchronously but panics are contained and emitters can never affect
// outcomes.
func WithEmitter(e emit.Emitter) Option {
	return func(ex *Executor) error {
		ex.emitter = e
		return nil
	}
}

// WithMetrics attaches Prometheus metrics collection.
func WithMetrics(m *Metrics) Option {
	return func(ex *Executor) error {
		ex.metrics = m
		return nil
	}
}

// WithRecorder attaches an outcome recorder. Each node outcome is persisted
// as it lands; recorder errors are reported as events and never alter run
// semantics.
func WithRecorder(s store.Store) Option {
	return func(ex *Executor) error {
		ex.recorder = s
		return nil
	}
}
