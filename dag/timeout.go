package dag

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// nodeContext derives the context for one node invocation. The parent is the
// run context, which already carries the whole-run deadline when one is
// configured; narrowing it with the per-node budget yields an effective
// deadline of min(remaining run budget, node timeout). The linked contexts
// mean cancelling the run cancels every in-flight node.
func nodeContext(parent context.Context, nodeTimeout time.Duration) (context.Context, context.CancelFunc) {
	if nodeTimeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, nodeTimeout)
}

// timeoutError normalizes a deadline overrun into the failure recorded on
// the node's outcome. It wraps ErrNodeTimeout for errors.Is checks.
func timeoutError(nodeID string, budget time.Duration) error {
	msg := "exceeded time budget"
	if budget > 0 {
		msg = fmt.Sprintf("exceeded time budget of %v", budget)
	}
	return &NodeError{
		Message: msg,
		Code:    "NODE_TIMEOUT",
		NodeID:  nodeID,
		Cause:   ErrNodeTimeout,
	}
}

// isDeadline reports whether a node invocation ended because its context
// deadline expired, either via the returned error or the context itself.
func isDeadline(ctx context.Context, err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded
}
