package xiaohongshu

import (
	"context"
	"errors"
	"fmt"
	"time"

	"xhsmcp/browser"
)

// waitUntil polls cond every interval until it reports true, the timeout
// passes, or ctx is done. An expired timeout wraps browser.ErrTimeout.
func waitUntil(ctx context.Context, what string, timeout, interval time.Duration, cond func(context.Context) (bool, error)) error {
	deadline := time.Now().Add(timeout)
	for {
		ok, err := cond(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}

		left := time.Until(deadline)
		if left <= 0 {
			return fmt.Errorf("%w: %s", browser.ErrTimeout, what)
		}
		if left > interval {
			left = interval
		}

		timer := time.NewTimer(left)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// pageFailure turns a page-level error into the message placed in a result.
// Cancellation of ctx is not a page failure and is returned as an error.
func pageFailure(ctx context.Context, err error, timeoutMsg string) (string, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", ctxErr
	}
	if errors.Is(err, context.Canceled) {
		return "", err
	}
	if errors.Is(err, browser.ErrTimeout) {
		return timeoutMsg, nil
	}
	return err.Error(), nil
}
