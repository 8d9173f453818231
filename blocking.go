package repoql

import (
	"context"
	"fmt"
	"time"

	"github.com/zoobzio/repoql/internal/types"
)

// NoTimeout passed to Blocking waits indefinitely whatever the engine
// default is. Any negative duration means the same.
const NoTimeout time.Duration = -1

// Blocking runs fn away from the caller and waits for it up to timeout.
// A zero timeout uses the engine default, and a zero default waits
// indefinitely, as does a negative timeout (see NoTimeout). Past the
// deadline it returns *TimeoutError.
//
// The wait is abandoned, not the work: fn runs with a context that is
// never cancelled by the timeout, and may still be running when Blocking
// returns. Cancelling ctx ends the wait early with ctx.Err().
func Blocking[T any](ctx context.Context, e *Engine, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if timeout == 0 {
		timeout = e.timeout
	}

	type outcome struct {
		value T
		err   error
	}
	done := make(chan outcome, 1)
	work := context.WithoutCancel(ctx)
	if err := e.submit(func() {
		v, err := fn(work)
		done <- outcome{value: v, err: err}
	}); err != nil {
		return zero, fmt.Errorf("submit blocking execution: %w", err)
	}

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case out := <-done:
		return out.value, out.err
	case <-expired:
		e.logger.WarnContext(ctx, "blocking execution timed out", "timeout", timeout)
		return zero, &types.TimeoutError{Timeout: timeout}
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
