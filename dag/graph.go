package dag

import (
	"container/heap"
	"sort"
	"strings"
	"sync"
)

// Graph is a registry of nodes and their dependency relationships.
//
// A Graph is built once and may be executed any number of times; it holds no
// per-run mutable state. All methods are safe for concurrent use, though a
// graph is typically assembled before the first Execute and left alone.
type Graph struct {
	mu    sync.RWMutex
	nodes map[string]Node
}

// NewGraph creates an empty Graph.
func NewGraph() *Graph {
	return &Graph{nodes: make(map[string]Node)}
}

// AddNode registers a node.
//
// Returns a ConfigError if the node is nil, has an empty identity, or a node
// with the same identity is already registered.
func (g *Graph) AddNode(n Node) error {
	if n == nil {
		return &ConfigError{Message: "node cannot be nil", Code: CodeNilNode}
	}
	if n.ID() == "" {
		return &ConfigError{Message: "node ID cannot be empty", Code: CodeEmptyNodeID}
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.nodes[n.ID()]; exists {
		return &ConfigError{
			Message: "duplicate node ID: " + n.ID(),
			Code:    CodeDuplicateNode,
		}
	}

	g.nodes[n.ID()] = n
	return nil
}

// GetNode returns the node registered under id.
func (g *Graph) GetNode(id string) (Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.nodes[id]
	return n, ok
}

// RemoveNode unregisters id. Removal does not fix dangling dependency
// references in other nodes; those surface as unknown-dependency errors at
// validation time.
func (g *Graph) RemoveNode(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.nodes, id)
}

// Len returns the number of registered nodes.
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// IDs returns all registered node identities in lexical order.
func (g *Graph) IDs() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Validate checks that every declared dependency identity resolves to a
// registered node and that the dependency relation is acyclic.
//
// NewExecutor calls Validate eagerly (unless disabled) so a malformed graph
// never begins executing nodes.
func (g *Graph) Validate() error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	for _, id := range sortedIDs(g.nodes) {
		for _, dep := range g.nodes[id].Dependencies() {
			if _, ok := g.nodes[dep]; !ok {
				return &ConfigError{
					Message: "node " + id + " depends on unknown node " + dep,
					Code:    CodeUnknownDependency,
				}
			}
		}
	}

	return detectCycle(g.nodes)
}

// TopologicalOrder returns a linear ordering in which every node appears
// after all of its dependencies. Among nodes with no ordering constraint
// between them, higher-priority nodes are listed first, with a stable
// tie-break by identity. Returns a ConfigError naming a cycle if one exists.
func (g *Graph) TopologicalOrder() ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	// Kahn's algorithm with a priority queue so that, at every step, the
	// highest-priority unblocked node is emitted next.
	indegree := make(map[string]int, len(g.nodes))
	dependents := make(map[string][]string)

	for id, n := range g.nodes {
		if _, ok := indegree[id]; !ok {
			indegree[id] = 0
		}
		for _, dep := range n.Dependencies() {
			if _, ok := g.nodes[dep]; !ok {
				// Dependencies outside the graph impose no ordering here;
				// Validate reports them as configuration errors.
				continue
			}
			indegree[id]++
			dependents[dep] = append(dependents[dep], id)
		}
	}

	ready := &nodeHeap{}
	heap.Init(ready)
	for _, id := range sortedIDs(g.nodes) {
		if indegree[id] == 0 {
			heap.Push(ready, heapEntry{id: id, priority: g.nodes[id].Priority()})
		}
	}

	order := make([]string, 0, len(g.nodes))
	for ready.Len() > 0 {
		id := heap.Pop(ready).(heapEntry).id
		order = append(order, id)
		for _, next := range dependents[id] {
			indegree[next]--
			if indegree[next] == 0 {
				heap.Push(ready, heapEntry{id: next, priority: g.nodes[next].Priority()})
			}
		}
	}

	if len(order) != len(g.nodes) {
		if err := detectCycle(g.nodes); err != nil {
			return nil, err
		}
		// Unreachable unless the maps were mutated mid-walk.
		return nil, &ConfigError{Message: "cycle detected", Code: CodeCycleDetected}
	}
	return order, nil
}

// heapEntry is a node reference ordered by descending priority with a
// stable tie-break by identity.
type heapEntry struct {
	id       string
	priority int
}

type nodeHeap []heapEntry

func (h nodeHeap) Len() int { return len(h) }

func (h nodeHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority > h[j].priority
	}
	return h[i].id < h[j].id
}

func (h nodeHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
}

func (h *nodeHeap) Push(x any) {
	*h = append(*h, x.(heapEntry))
}

func (h *nodeHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[0 : n-1]
	return item
}

// Cycle detection: iterative depth-first traversal with three-state
// coloring. An explicit frame stack is used instead of recursion so
// arbitrarily deep graphs cannot overflow the call stack. A back-edge to an
// in-progress (gray) node signals a cycle.
const (
	colorWhite = iota // unvisited
	colorGray         // in progress
	colorBlack        // done
)

type dfsFrame struct {
	id   string
	deps []string
	next int
}

func detectCycle(nodes map[string]Node) error {
	colors := make(map[string]int, len(nodes))

	for _, start := range sortedIDs(nodes) {
		if colors[start] != colorWhite {
			continue
		}

		stack := []dfsFrame{{id: start, deps: presentDeps(nodes, start)}}
		colors[start] = colorGray

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if top.next >= len(top.deps) {
				colors[top.id] = colorBlack
				stack = stack[:len(stack)-1]
				continue
			}

			dep := top.deps[top.next]
			top.next++

			switch colors[dep] {
			case colorWhite:
				colors[dep] = colorGray
				stack = append(stack, dfsFrame{id: dep, deps: presentDeps(nodes, dep)})
			case colorGray:
				return &ConfigError{
					Message: "dependency cycle: " + cyclePath(stack, dep),
					Code:    CodeCycleDetected,
				}
			}
		}
	}
	return nil
}

// presentDeps returns the dependencies of id that resolve to registered
// nodes, in declaration order.
func presentDeps(nodes map[string]Node, id string) []string {
	declared := nodes[id].Dependencies()
	deps := make([]string, 0, len(declared))
	for _, dep := range declared {
		if _, ok := nodes[dep]; ok {
			deps = append(deps, dep)
		}
	}
	return deps
}

// cyclePath renders the cycle closed by the back-edge to repeated, walking
// the DFS stack from the first occurrence of repeated to the top.
func cyclePath(stack []dfsFrame, repeated string) string {
	start := 0
	for i, f := range stack {
		if f.id == repeated {
			start = i
			break
		}
	}

	var b strings.Builder
	for i := start; i < len(stack); i++ {
		b.WriteString(stack[i].id)
		b.WriteString(" -> ")
	}
	b.WriteString(repeated)
	return b.String()
}

func sortedIDs(nodes map[string]Node) []string {
	ids := make([]string, 0, len(nodes))
	for id := range nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
