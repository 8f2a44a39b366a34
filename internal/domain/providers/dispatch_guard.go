package providers

import (
	"context"
	"time"
)

// DispatchGuard is the fast duplicate-suppression layer in front of the
// notification store. Acquire is first-writer-wins; losing callers must
// treat the dispatch as already handled.
type DispatchGuard interface {
	// Acquire claims the dispatch slot for a routing decision. It returns
	// true when this caller won the slot, false when another dispatch
	// already holds it.
	Acquire(ctx context.Context, routingDecisionID string, ttl time.Duration) (bool, error)

	// Release frees a claimed slot so a failed dispatch can be retried.
	Release(ctx context.Context, routingDecisionID string) error
}
