// Package dag provides a concurrent, dependency-aware task scheduler.
//
// Callers register uniquely identified nodes in a Graph, each declaring the
// identities of the nodes it depends on and an integer priority. An Executor
// then runs every node exactly once, never starting a node before all of its
// dependencies have completed, while running independent nodes in parallel
// up to a configurable cap.
//
// The executor enforces whole-run and per-node time budgets, uses priority
// to break ties among simultaneously ready nodes, and defines precise
// partial-failure semantics: a failed node's dependents are skipped and,
// optionally, the entire run aborts on the first failure.
//
// Cancellation is cooperative. The deadline signal is threaded into every
// node invocation, but a node that ignores its context may keep running in
// the background after the executor has already recorded it as timed out.
package dag
