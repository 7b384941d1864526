package dag

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/dshills/taskdag-go/dag/emit"
	"github.com/dshills/taskdag-go/dag/store"
)

// Executor runs every node of a Graph exactly once, in dependency order,
// with independent nodes running in parallel.
//
// Execution proceeds in waves: each iteration computes the ready set
// (pending nodes whose dependencies have all completed), launches it
// concurrently under the configured limiter with higher-priority nodes
// acquiring slots first, and collects outcomes before deciding the next
// wave. A failed node's dependents are always skipped; when
// StopOnFirstFailure is enabled (the default) a single failure also skips
// every unrelated pending node and ends the run.
//
// An Executor is safe for concurrent use and may execute its graph any
// number of times; all per-run bookkeeping lives in the Execute call.
//
// Example:
//
//	g := dag.NewGraph()
//	g.AddNode(dag.NewTask(dag.TaskConfig{ID: "fetch", Run: fetch}))
//	g.AddNode(dag.NewTask(dag.TaskConfig{ID: "parse", DependsOn: []string{"fetch"}, Run: parse}))
//
//	ex, err := dag.NewExecutor(g, dag.WithMaxParallel(4))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	res := ex.Execute(ctx, nil)
type Executor struct {
	graph    *Graph
	opts     Options
	emitter  emit.Emitter
	metrics  *Metrics
	recorder store.Store
}

// NewExecutor creates an Executor over g.
//
// Unless disabled with WithCycleValidation(false), the graph is validated
// eagerly: every dependency identity must resolve to a registered node and
// the dependency relation must be acyclic. A malformed graph is reported
// here as a ConfigError and never begins executing nodes. This is the only
// place the scheduler surfaces errors; Execute always returns a Result.
func NewExecutor(g *Graph, opts ...Option) (*Executor, error) {
	if g == nil {
		return nil, &ConfigError{Message: "graph cannot be nil", Code: CodeNilGraph}
	}

	ex := &Executor{
		graph:   g,
		opts:    DefaultOptions(),
		emitter: emit.NewNullEmitter(),
	}
	for _, opt := range opts {
		if err := opt(ex); err != nil {
			return nil, err
		}
	}
	if ex.emitter == nil {
		ex.emitter = emit.NewNullEmitter()
	}

	if ex.opts.ValidateCycles {
		if err := g.Validate(); err != nil {
			return nil, err
		}
	}
	return ex, nil
}

// Execute runs the graph to completion and returns the aggregated result.
//
// state is shared by reference with every node; nil means a fresh State.
// The run observes ctx for cancellation, narrowed by ExecutionTimeout when
// set. When the deadline or cancellation trips, no new waves launch,
// in-flight nodes are asked to cancel cooperatively, still-pending nodes
// are skipped, and the result reports Cancelled with whatever outcomes had
// been recorded.
//
// Execute never returns an error: node failures, panics, and timeouts are
// normalized into failure outcomes inside the Result.
func (ex *Executor) Execute(ctx context.Context, state *State) *Result {
	start := time.Now()
	if ctx == nil {
		ctx = context.Background()
	}
	if state == nil {
		state = NewState()
	}

	runID := ex.opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	runCtx := ctx
	if ex.opts.ExecutionTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, ex.opts.ExecutionTimeout)
		defer cancel()
	}

	r := ex.newRun(runID, state)
	r.ctx = runCtx
	ex.safeEmit(emit.Event{
		RunID: runID,
		Type:  emit.RunStart,
		At:    time.Now(),
		Meta:  map[string]any{"nodes": len(r.pending)},
	})
	ex.metrics.setPending(len(r.pending))

	var sem *semaphore.Weighted
	if ex.opts.MaxParallel > 0 {
		sem = semaphore.NewWeighted(int64(ex.opts.MaxParallel))
	}

	for len(r.pending) > 0 {
		if runCtx.Err() != nil {
			r.skipAll(SkipRunCancelled)
			r.cancelled = true
			break
		}

		ready := r.readySet()
		if len(ready) == 0 {
			stuck := r.stuckSet()
			if len(stuck) == 0 {
				// Only reachable with dangling dependency identities and
				// validation disabled.
				r.skipAll(SkipUnresolvable)
				break
			}
			for _, id := range stuck {
				r.skip(id, SkipUpstreamFailure)
			}
			ex.metrics.setPending(len(r.pending))
			continue
		}

		// Higher priority first, stable tie-break by identity. Slots are
		// acquired in this order, so priority decides who runs when the
		// limiter is saturated.
		sort.Slice(ready, func(i, j int) bool {
			if ready[i].Priority() != ready[j].Priority() {
				return ready[i].Priority() > ready[j].Priority()
			}
			return ready[i].ID() < ready[j].ID()
		})

		outcomes := make(chan *NodeOutcome, len(ready))
		launched := 0
		for _, n := range ready {
			if sem != nil {
				if err := sem.Acquire(runCtx, 1); err != nil {
					break
				}
			}
			delete(r.pending, n.ID())
			launched++
			go ex.runNode(runCtx, runID, n, r.depValues(n), state, sem, outcomes)
		}

		for i := 0; i < launched; i++ {
			r.record(<-outcomes)
		}
		ex.metrics.setPending(len(r.pending))

		if runCtx.Err() != nil {
			r.skipAll(SkipRunCancelled)
			r.cancelled = true
			break
		}

		// Stop-on-first-failure is applied between waves: members of the
		// failing wave run to natural completion, then everything still
		// pending is abandoned.
		if ex.opts.StopOnFirstFailure && len(r.failed) > 0 && len(r.pending) > 0 {
			r.skipAll(SkipRunAborted)
			break
		}
	}
	ex.metrics.setPending(0)

	result := r.buildResult(time.Since(start))
	ex.safeEmit(emit.Event{
		RunID: runID,
		Type:  emit.RunEnd,
		At:    time.Now(),
		Meta: map[string]any{
			"duration_ms": result.Duration.Milliseconds(),
			"completed":   len(result.Completed),
			"failed":      len(result.Failed),
			"skipped":     len(result.Skipped),
			"cancelled":   result.Cancelled,
		},
	})
	ex.metrics.runFinished(runVerdict(result), result.Duration)
	return result
}

// ExecuteAsync runs Execute in a goroutine and delivers the result on the
// returned channel, which is closed after the single send.
func (ex *Executor) ExecuteAsync(ctx context.Context, state *State) <-chan *Result {
	ch := make(chan *Result, 1)
	go func() {
		defer close(ch)
		ch <- ex.Execute(ctx, state)
	}()
	return ch
}

// runNode executes one node in its own goroutine and reports the outcome on
// out. The semaphore slot, when limited, is held for the node's entire
// execution.
func (ex *Executor) runNode(runCtx context.Context, runID string, n Node, deps map[string]any, state *State, sem *semaphore.Weighted, out chan<- *NodeOutcome) {
	if sem != nil {
		defer sem.Release(1)
	}

	ex.metrics.nodeStarted()
	ex.safeEmit(emit.Event{
		RunID:  runID,
		NodeID: n.ID(),
		Type:   emit.NodeStart,
		At:     time.Now(),
		Meta:   map[string]any{"name": n.Name(), "priority": n.Priority()},
	})

	nodeCtx, cancel := nodeContext(runCtx, ex.opts.NodeTimeout)
	defer cancel()

	oc := &NodeOutcome{NodeID: n.ID(), StartedAt: time.Now()}
	value, err := ex.invoke(nodeCtx, n, state, deps)
	oc.FinishedAt = time.Now()
	oc.Duration = oc.FinishedAt.Sub(oc.StartedAt)

	eventType := emit.NodeFailure
	switch {
	// A result that lands after the node deadline is a timeout even when
	// the body ignored its context and returned cleanly.
	case err == nil && nodeCtx.Err() != context.DeadlineExceeded:
		oc.Success = true
		oc.Value = value
		eventType = emit.NodeSuccess
	case runCtx.Err() != nil:
		// The run itself was cancelled while this node was in flight.
		oc.Err = &NodeError{
			Message: "cancelled before completion",
			Code:    "RUN_CANCELLED",
			NodeID:  n.ID(),
			Cause:   ErrRunCancelled,
		}
	case isDeadline(nodeCtx, err):
		oc.Err = timeoutError(n.ID(), ex.opts.NodeTimeout)
	default:
		oc.Err = err
		var nodeErr *NodeError
		if errors.As(err, &nodeErr) && nodeErr.Code == "NODE_PANIC" {
			eventType = emit.NodeError
		}
	}

	ev := emit.Event{
		RunID:  runID,
		NodeID: n.ID(),
		Type:   eventType,
		At:     time.Now(),
		Meta:   map[string]any{"duration_ms": oc.Duration.Milliseconds()},
	}
	status := store.StatusCompleted
	if oc.Err != nil {
		ev.Err = oc.Err.Error()
		status = store.StatusFailed
	}
	ex.safeEmit(ev)
	ex.metrics.nodeFinished(n.ID(), string(status), oc.Duration)

	out <- oc
}

// invoke calls the node's execution body, converting a panic into a failure
// error so a single misbehaving node never aborts the run.
func (ex *Executor) invoke(ctx context.Context, n Node, state *State, deps map[string]any) (value any, err error) {
	defer func() {
		if p := recover(); p != nil {
			value = nil
			err = &NodeError{
				Message: fmt.Sprintf("panic: %v", p),
				Code:    "NODE_PANIC",
				NodeID:  n.ID(),
			}
		}
	}()
	return n.Run(ctx, state, deps)
}

// safeEmit delivers an event with panics contained; emitters can never
// affect run outcomes.
func (ex *Executor) safeEmit(event emit.Event) {
	defer func() {
		_ = recover()
	}()
	ex.emitter.Emit(event)
}

func runVerdict(res *Result) string {
	switch {
	case res.Cancelled:
		return "cancelled"
	case !res.Success:
		return "failure"
	default:
		return "success"
	}
}

// run holds the bookkeeping for one Execute call. All maps are owned by the
// scheduling goroutine; workers hand outcomes over a channel (fan-in), so
// no two goroutines ever write them concurrently.
type run struct {
	ex    *Executor
	id    string
	ctx   context.Context
	state *State

	pending   map[string]Node
	completed map[string]struct{}
	failed    map[string]struct{}
	skipped   map[string]struct{}
	outcomes  map[string]*NodeOutcome
	order     []string
	seq       int
	cancelled bool
}

func (ex *Executor) newRun(runID string, state *State) *run {
	ex.graph.mu.RLock()
	pending := make(map[string]Node, len(ex.graph.nodes))
	for id, n := range ex.graph.nodes {
		pending[id] = n
	}
	ex.graph.mu.RUnlock()

	return &run{
		ex:        ex,
		id:        runID,
		state:     state,
		pending:   pending,
		completed: make(map[string]struct{}),
		failed:    make(map[string]struct{}),
		skipped:   make(map[string]struct{}),
		outcomes:  make(map[string]*NodeOutcome, len(pending)),
	}
}

// readySet returns the pending nodes whose every dependency has completed.
func (r *run) readySet() []Node {
	var ready []Node
	for _, n := range r.pending {
		ok := true
		for _, dep := range n.Dependencies() {
			if _, done := r.completed[dep]; !done {
				ok = false
				break
			}
		}
		if ok {
			ready = append(ready, n)
		}
	}
	return ready
}

// stuckSet returns the pending nodes that can never run because at least
// one dependency failed or was itself skipped, in lexical order. Treating
// skipped dependencies like failed ones is what lets the skip cascade
// propagate across waves.
func (r *run) stuckSet() []string {
	var stuck []string
	for id, n := range r.pending {
		for _, dep := range n.Dependencies() {
			_, depFailed := r.failed[dep]
			_, depSkipped := r.skipped[dep]
			if depFailed || depSkipped {
				stuck = append(stuck, id)
				break
			}
		}
	}
	sort.Strings(stuck)
	return stuck
}

// depValues maps each of n's dependencies to the value it produced.
func (r *run) depValues(n Node) map[string]any {
	deps := make(map[string]any, len(n.Dependencies()))
	for _, dep := range n.Dependencies() {
		if oc, ok := r.outcomes[dep]; ok {
			deps[dep] = oc.Value
		} else {
			deps[dep] = nil
		}
	}
	return deps
}

// record moves a finished node into completed or failed and appends it to
// the completion order.
func (r *run) record(oc *NodeOutcome) {
	r.outcomes[oc.NodeID] = oc
	r.order = append(r.order, oc.NodeID)
	if oc.Success {
		r.completed[oc.NodeID] = struct{}{}
	} else {
		r.failed[oc.NodeID] = struct{}{}
	}
	r.persist(oc)
}

// skip resolves a pending node without executing it.
func (r *run) skip(id, reason string) {
	delete(r.pending, id)
	oc := &NodeOutcome{NodeID: id, Skipped: true, SkipReason: reason}
	r.outcomes[id] = oc
	r.skipped[id] = struct{}{}

	r.ex.safeEmit(emit.Event{
		RunID:  r.id,
		NodeID: id,
		Type:   emit.NodeSkipped,
		At:     time.Now(),
		Meta:   map[string]any{"skip_reason": reason},
	})
	r.ex.metrics.nodeSkipped()
	r.persist(oc)
}

// skipAll resolves every still-pending node as skipped, in lexical order.
func (r *run) skipAll(reason string) {
	for _, id := range setToSortedNodes(r.pending) {
		r.skip(id, reason)
	}
}

// persist hands the outcome to the attached recorder, if any. Recorder
// errors become events; they never alter the run.
func (r *run) persist(oc *NodeOutcome) {
	if r.ex.recorder == nil {
		return
	}
	r.seq++

	rec := store.Record{
		RunID:      r.id,
		Seq:        r.seq,
		NodeID:     oc.NodeID,
		Value:      oc.Value,
		SkipReason: oc.SkipReason,
		StartedAt:  oc.StartedAt,
		FinishedAt: oc.FinishedAt,
		Duration:   oc.Duration,
	}
	switch {
	case oc.Skipped:
		rec.Status = store.StatusSkipped
	case oc.Success:
		rec.Status = store.StatusCompleted
	default:
		rec.Status = store.StatusFailed
		rec.Error = oc.Err.Error()
	}

	// Outcomes recorded during teardown should still land, so the save is
	// detached from run cancellation.
	if err := r.ex.recorder.SaveOutcome(context.WithoutCancel(r.ctx), rec); err != nil {
		r.ex.safeEmit(emit.Event{
			RunID:  r.id,
			NodeID: oc.NodeID,
			Type:   emit.RecorderError,
			Err:    err.Error(),
			At:     time.Now(),
		})
	}
}

func (r *run) buildResult(elapsed time.Duration) *Result {
	return &Result{
		RunID:     r.id,
		Success:   len(r.failed) == 0,
		Cancelled: r.cancelled,
		State:     r.state,
		Outcomes:  r.outcomes,
		Completed: setToSorted(r.completed),
		Failed:    setToSorted(r.failed),
		Skipped:   setToSorted(r.skipped),
		Order:     r.order,
		Duration:  elapsed,
	}
}

func setToSortedNodes(nodes map[string]Node) []string {
	out := make([]string, 0, len(nodes))
	for id := range nodes {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
