package retry

import (
	"context"
	"time"

	"github.com/wallet-insights/internal/logging"
	"github.com/wallet-insights/internal/metrics"
)

// Policy configures retry behavior. Each integration keeps its own value,
// so attempt budgets never interfere with each other.
type Policy struct {
	Name         string        // Operation label for logs and metrics
	MaxRetries   int           // Retries after the first attempt
	InitialDelay time.Duration // Delay before the first retry; doubles after each retry

	// Sleep waits for d or until ctx is done. Tests replace it.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultPolicy returns the default policy: 3 retries, waiting 1s, 2s, 4s.
func DefaultPolicy(name string) Policy {
	return Policy{
		Name:         name,
		MaxRetries:   3,
		InitialDelay: 1 * time.Second,
	}
}

// Op is an operation that can be retried
type Op[T any] func(ctx context.Context) (T, error)

// Do runs op, retrying failures with exponential backoff. Once retries are
// exhausted the last error is returned as-is. A context cancelled during a
// backoff wait aborts with ctx.Err().
func Do[T any](ctx context.Context, policy Policy, op Op[T]) (T, error) {
	logger := logging.FromContext(ctx)

	sleep := policy.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	retriesLeft := policy.MaxRetries
	delay := policy.InitialDelay

	for {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}

		if retriesLeft <= 0 {
			return result, err
		}

		logger.WithFields(map[string]interface{}{
			"operation":   policy.Name,
			"retriesLeft": retriesLeft,
			"delay":       delay.String(),
		}).WithError(err).Warn("Operation failed, retrying with exponential backoff")
		metrics.RetryAttempts.WithLabelValues(policy.Name).Inc()

		if sleepErr := sleep(ctx, delay); sleepErr != nil {
			var zero T
			return zero, sleepErr
		}

		retriesLeft--
		delay *= 2
	}
}

// DoErr is Do for operations without a result value.
func DoErr(ctx context.Context, policy Policy, op func(ctx context.Context) error) error {
	_, err := Do(ctx, policy, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
