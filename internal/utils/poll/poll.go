package poll

import (
	"context"
	"time"
)

// Until calls fn immediately and then every interval until it reports done, returns an error,
// or ctx ends. Callers that want to tolerate flaky reads swallow the error inside fn.
func Until(ctx context.Context, interval time.Duration, fn func(ctx context.Context) (bool, error)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		done, err := fn(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Within is Until bounded by timeout.
func Within(ctx context.Context, timeout, interval time.Duration, fn func(ctx context.Context) (bool, error)) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return Until(ctx, interval, fn)
}
