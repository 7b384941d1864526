package dag

import "context"

// Node is the unit of work scheduled by an Executor.
//
// A node declares its identity, the identities of the nodes it depends on,
// and a priority used to break ties among simultaneously ready nodes
// (higher runs first). The executor guarantees Run is invoked at most once
// per Execute call.
type Node interface {
	// ID returns the node's identity, unique within a Graph.
	ID() string

	// Name returns a human-readable display name for logs and events.
	Name() string

	// Dependencies returns the identities of the nodes that must complete
	// before this node may start.
	Dependencies() []string

	// Priority orders simultaneously ready nodes; higher values launch
	// first when competing for limited concurrency slots.
	Priority() int

	// Run executes the node's logic. The context carries the linked
	// whole-run and per-node deadlines. deps maps each declared dependency
	// identity to the value that dependency produced (nil if it produced
	// none). Expected failures should be returned as errors, not panics;
	// a panic is still caught by the executor and converted into a
	// failure outcome.
	Run(ctx context.Context, state *State, deps map[string]any) (any, error)
}

// RunFunc is the signature of a node execution body.
type RunFunc func(ctx context.Context, state *State, deps map[string]any) (any, error)

// TaskConfig configures a closure-backed node.
type TaskConfig struct {
	// ID is the unique node identity in the graph. Required.
	ID string

	// Name is the display name. Defaults to ID.
	Name string

	// DependsOn lists the identities this node depends on.
	DependsOn []string

	// Priority breaks ties among simultaneously ready nodes.
	Priority int

	// Run is the execution body. Required.
	Run RunFunc
}

// Task adapts an arbitrary function into a Node so callers can register
// ad-hoc logic without defining a dedicated type per node.
//
// Example:
//
//	g.AddNode(dag.NewTask(dag.TaskConfig{
//	    ID:        "tax",
//	    DependsOn: []string{"validate"},
//	    Run: func(ctx context.Context, state *dag.State, deps map[string]any) (any, error) {
//	        order := deps["validate"].(Order)
//	        return computeTax(order), nil
//	    },
//	}))
type Task struct {
	cfg TaskConfig
}

// NewTask creates a closure-backed Node from cfg.
func NewTask(cfg TaskConfig) *Task {
	if cfg.Name == "" {
		cfg.Name = cfg.ID
	}
	return &Task{cfg: cfg}
}

// ID implements Node.
func (t *Task) ID() string { return t.cfg.ID }

// Name implements Node.
func (t *Task) Name() string { return t.cfg.Name }

// Dependencies implements Node.
func (t *Task) Dependencies() []string { return t.cfg.DependsOn }

// Priority implements Node.
func (t *Task) Priority() int { return t.cfg.Priority }

// Run implements Node.
func (t *Task) Run(ctx context.Context, state *State, deps map[string]any) (any, error) {
	if t.cfg.Run == nil {
		return nil, &NodeError{
			Message: "task has no run function",
			Code:    "NO_RUN_FUNC",
			NodeID:  t.cfg.ID,
		}
	}
	return t.cfg.Run(ctx, state, deps)
}
