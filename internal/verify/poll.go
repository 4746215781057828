package verify

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrBudgetExceeded is returned when a polled condition never became
// true within the poll budget.
var ErrBudgetExceeded = errors.New("condition not met within poll budget")

// WaitFor polls cond at the given interval until it reports done, the
// budget is spent, or the context is cancelled. Cancellation is
// observed within one interval. A non-nil error from cond aborts the
// wait; conditions that want to ride out transient errors must swallow
// them and return (false, nil).
func WaitFor(ctx context.Context, interval, budget time.Duration, cond func(context.Context) (bool, error)) error {
	deadline := time.Now().Add(budget)

	for {
		done, err := cond(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w (budget %s)", ErrBudgetExceeded, budget)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}
