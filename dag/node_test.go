package dag

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestTask(t *testing.T) {
	t.Run("name defaults to id", func(t *testing.T) {
		task := NewTask(TaskConfig{ID: "extract"})
		if task.Name() != "extract" {
			t.Errorf("Name = %q, want extract", task.Name())
		}

		named := NewTask(TaskConfig{ID: "extract", Name: "Extract batch"})
		if named.Name() != "Extract batch" {
			t.Errorf("Name = %q", named.Name())
		}
	})

	t.Run("missing run function", func(t *testing.T) {
		task := NewTask(TaskConfig{ID: "hollow"})
		_, err := task.Run(context.Background(), NewState(), nil)

		var nodeErr *NodeError
		if !errors.As(err, &nodeErr) || nodeErr.Code != "NO_RUN_FUNC" {
			t.Errorf("error = %v, want NodeError NO_RUN_FUNC", err)
		}
		if nodeErr.NodeID != "hollow" {
			t.Errorf("NodeID = %q", nodeErr.NodeID)
		}
	})

	t.Run("config passthrough", func(t *testing.T) {
		task := NewTask(TaskConfig{
			ID:        "load",
			DependsOn: []string{"extract", "transform"},
			Priority:  3,
			Run: func(ctx context.Context, state *State, deps map[string]any) (any, error) {
				return "done", nil
			},
		})

		if task.ID() != "load" || task.Priority() != 3 {
			t.Errorf("identity = %q priority = %d", task.ID(), task.Priority())
		}
		if deps := task.Dependencies(); len(deps) != 2 || deps[0] != "extract" {
			t.Errorf("Dependencies = %v", deps)
		}
		v, err := task.Run(context.Background(), NewState(), nil)
		if err != nil || v != "done" {
			t.Errorf("Run = %v, %v", v, err)
		}
	})
}

func TestErrors(t *testing.T) {
	t.Run("node error formatting", func(t *testing.T) {
		err := &NodeError{Message: "boom", Code: "X", NodeID: "payment"}
		if err.Error() != "node payment: boom" {
			t.Errorf("Error = %q", err.Error())
		}

		bare := &NodeError{Message: "boom"}
		if bare.Error() != "boom" {
			t.Errorf("Error = %q", bare.Error())
		}
	})

	t.Run("node error unwraps its cause", func(t *testing.T) {
		cause := errors.New("underlying")
		err := &NodeError{Message: "wrapped", Cause: cause}
		if !errors.Is(err, cause) {
			t.Error("errors.Is does not reach the cause")
		}
	})

	t.Run("config error formatting", func(t *testing.T) {
		err := &ConfigError{Message: "duplicate node id: x", Code: CodeDuplicateNode}
		if err.Error() != "DUPLICATE_NODE: duplicate node id: x" {
			t.Errorf("Error = %q", err.Error())
		}
	})
}

func TestOptions(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		opts := DefaultOptions()
		if !opts.StopOnFirstFailure || !opts.ValidateCycles {
			t.Errorf("DefaultOptions = %+v", opts)
		}
		if opts.MaxParallel != 0 || opts.ExecutionTimeout != 0 || opts.NodeTimeout != 0 {
			t.Errorf("DefaultOptions = %+v, want zero limits", opts)
		}
	})

	t.Run("with options replaces the struct", func(t *testing.T) {
		ex := mustExecutor(t, NewGraph(),
			WithOptions(Options{MaxParallel: 3, ValidateCycles: true}),
			WithNodeTimeout(time.Second),
		)
		if ex.opts.MaxParallel != 3 || ex.opts.StopOnFirstFailure {
			t.Errorf("opts = %+v", ex.opts)
		}
		if ex.opts.NodeTimeout != time.Second {
			t.Error("later option did not apply on top")
		}
	})

	t.Run("negative max parallel means unbounded", func(t *testing.T) {
		ex := mustExecutor(t, NewGraph(), WithMaxParallel(-4))
		if ex.opts.MaxParallel != 0 {
			t.Errorf("MaxParallel = %d, want 0", ex.opts.MaxParallel)
		}
	})
}
