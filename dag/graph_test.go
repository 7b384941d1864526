package dag

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"
)

// noopTask builds a minimal node for graph-shape tests.
func noopTask(id string, deps ...string) *Task {
	return NewTask(TaskConfig{
		ID:        id,
		DependsOn: deps,
		Run: func(ctx context.Context, state *State, d map[string]any) (any, error) {
			return nil, nil
		},
	})
}

func prioTask(id string, priority int, deps ...string) *Task {
	return NewTask(TaskConfig{
		ID:        id,
		Priority:  priority,
		DependsOn: deps,
		Run: func(ctx context.Context, state *State, d map[string]any) (any, error) {
			return nil, nil
		},
	})
}

func TestGraph_AddNode(t *testing.T) {
	t.Run("registers nodes", func(t *testing.T) {
		g := NewGraph()
		if err := g.AddNode(noopTask("a")); err != nil {
			t.Fatalf("AddNode failed: %v", err)
		}
		if g.Len() != 1 {
			t.Errorf("Len = %d, want 1", g.Len())
		}
		if _, ok := g.GetNode("a"); !ok {
			t.Error("GetNode did not find registered node")
		}
	})

	t.Run("rejects duplicate identity", func(t *testing.T) {
		g := NewGraph()
		if err := g.AddNode(noopTask("a")); err != nil {
			t.Fatalf("first AddNode failed: %v", err)
		}

		err := g.AddNode(noopTask("a"))
		if err == nil {
			t.Fatal("duplicate AddNode succeeded")
		}
		var cfgErr *ConfigError
		if !errors.As(err, &cfgErr) || cfgErr.Code != CodeDuplicateNode {
			t.Errorf("error = %v, want ConfigError %s", err, CodeDuplicateNode)
		}
	})

	t.Run("rejects empty identity", func(t *testing.T) {
		g := NewGraph()
		err := g.AddNode(noopTask(""))
		var cfgErr *ConfigError
		if !errors.As(err, &cfgErr) || cfgErr.Code != CodeEmptyNodeID {
			t.Errorf("error = %v, want ConfigError %s", err, CodeEmptyNodeID)
		}
	})

	t.Run("rejects nil node", func(t *testing.T) {
		g := NewGraph()
		err := g.AddNode(nil)
		var cfgErr *ConfigError
		if !errors.As(err, &cfgErr) || cfgErr.Code != CodeNilNode {
			t.Errorf("error = %v, want ConfigError %s", err, CodeNilNode)
		}
	})
}

func TestGraph_RemoveNode(t *testing.T) {
	g := NewGraph()
	if err := g.AddNode(noopTask("a")); err != nil {
		t.Fatalf("AddNode failed: %v", err)
	}
	g.RemoveNode("a")
	if _, ok := g.GetNode("a"); ok {
		t.Error("GetNode found removed node")
	}

	// Removal leaves dangling references in other nodes; Validate reports
	// them instead.
	if err := g.AddNode(noopTask("b", "a")); err != nil {
		t.Fatalf("AddNode failed: %v", err)
	}
	err := g.Validate()
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Code != CodeUnknownDependency {
		t.Errorf("Validate = %v, want ConfigError %s", err, CodeUnknownDependency)
	}
}

func TestGraph_TopologicalOrder(t *testing.T) {
	t.Run("every node after its dependencies", func(t *testing.T) {
		g := NewGraph()
		for _, n := range []*Task{
			noopTask("validate"),
			noopTask("inventory", "validate"),
			noopTask("tax", "validate"),
			noopTask("payment", "inventory", "tax"),
			noopTask("fulfill", "payment"),
		} {
			if err := g.AddNode(n); err != nil {
				t.Fatalf("AddNode(%s) failed: %v", n.ID(), err)
			}
		}

		order, err := g.TopologicalOrder()
		if err != nil {
			t.Fatalf("TopologicalOrder failed: %v", err)
		}
		if len(order) != 5 {
			t.Fatalf("order has %d nodes, want 5", len(order))
		}

		pos := indexOf(order)
		for node, deps := range map[string][]string{
			"inventory": {"validate"},
			"tax":       {"validate"},
			"payment":   {"inventory", "tax"},
			"fulfill":   {"payment"},
		} {
			for _, dep := range deps {
				if pos[node] < pos[dep] {
					t.Errorf("%s at %d precedes dependency %s at %d", node, pos[node], dep, pos[dep])
				}
			}
		}
	})

	t.Run("higher priority listed first among unconstrained nodes", func(t *testing.T) {
		g := NewGraph()
		for _, n := range []*Task{
			prioTask("low", 1),
			prioTask("high", 10),
			prioTask("mid", 5),
		} {
			if err := g.AddNode(n); err != nil {
				t.Fatalf("AddNode failed: %v", err)
			}
		}

		order, err := g.TopologicalOrder()
		if err != nil {
			t.Fatalf("TopologicalOrder failed: %v", err)
		}
		want := []string{"high", "mid", "low"}
		for i, id := range want {
			if order[i] != id {
				t.Fatalf("order = %v, want %v", order, want)
			}
		}
	})

	t.Run("equal priority ties break by identity", func(t *testing.T) {
		g := NewGraph()
		for _, id := range []string{"c", "a", "b"} {
			if err := g.AddNode(noopTask(id)); err != nil {
				t.Fatalf("AddNode failed: %v", err)
			}
		}

		order, err := g.TopologicalOrder()
		if err != nil {
			t.Fatalf("TopologicalOrder failed: %v", err)
		}
		want := []string{"a", "b", "c"}
		for i, id := range want {
			if order[i] != id {
				t.Fatalf("order = %v, want %v", order, want)
			}
		}
	})

	t.Run("names the cycle", func(t *testing.T) {
		g := NewGraph()
		if err := g.AddNode(noopTask("a", "b")); err != nil {
			t.Fatalf("AddNode failed: %v", err)
		}
		if err := g.AddNode(noopTask("b", "a")); err != nil {
			t.Fatalf("AddNode failed: %v", err)
		}

		_, err := g.TopologicalOrder()
		var cfgErr *ConfigError
		if !errors.As(err, &cfgErr) || cfgErr.Code != CodeCycleDetected {
			t.Fatalf("error = %v, want ConfigError %s", err, CodeCycleDetected)
		}
		if !strings.Contains(cfgErr.Message, "->") {
			t.Errorf("cycle error %q does not name the cycle", cfgErr.Message)
		}
	})
}

func TestGraph_Validate(t *testing.T) {
	t.Run("accepts acyclic resolved graph", func(t *testing.T) {
		g := NewGraph()
		if err := g.AddNode(noopTask("a")); err != nil {
			t.Fatal(err)
		}
		if err := g.AddNode(noopTask("b", "a")); err != nil {
			t.Fatal(err)
		}
		if err := g.Validate(); err != nil {
			t.Errorf("Validate failed: %v", err)
		}
	})

	t.Run("detects self cycle", func(t *testing.T) {
		g := NewGraph()
		if err := g.AddNode(noopTask("a", "a")); err != nil {
			t.Fatal(err)
		}
		err := g.Validate()
		var cfgErr *ConfigError
		if !errors.As(err, &cfgErr) || cfgErr.Code != CodeCycleDetected {
			t.Errorf("error = %v, want ConfigError %s", err, CodeCycleDetected)
		}
	})

	t.Run("detects deep cycle without recursion", func(t *testing.T) {
		// A long chain closing back on itself; the iterative DFS must not
		// blow the stack regardless of depth.
		g := NewGraph()
		const depth = 20000
		for i := 0; i < depth; i++ {
			id := chainID(i)
			dep := chainID((i + 1) % depth)
			if err := g.AddNode(noopTask(id, dep)); err != nil {
				t.Fatal(err)
			}
		}
		err := g.Validate()
		var cfgErr *ConfigError
		if !errors.As(err, &cfgErr) || cfgErr.Code != CodeCycleDetected {
			t.Errorf("error = %v, want ConfigError %s", err, CodeCycleDetected)
		}
	})
}

func chainID(i int) string {
	return "n" + strconv.Itoa(i)
}

func indexOf(order []string) map[string]int {
	pos := make(map[string]int, len(order))
	for i, id := range order {
		pos[id] = i
	}
	return pos
}
