package ai

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/interview-agent/internal/faults"
)

const (
	defaultBaseDelay = time.Second
	defaultMaxDelay  = 16 * time.Second
)

var sleep = time.Sleep

// RetryPolicy bounds how often a transient collaborator failure is retried.
type RetryPolicy struct {
	// MaxAttempts counts the first call. Values below 1 mean a single attempt.
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// Delay returns the backoff before the given retry (1-based).
func (p RetryPolicy) Delay(retry int) time.Duration {
	base := p.BaseDelay
	if base <= 0 {
		base = defaultBaseDelay
	}
	limit := p.MaxDelay
	if limit <= 0 {
		limit = defaultMaxDelay
	}

	d := base
	for i := 1; i < retry; i++ {
		d *= 2
		if d >= limit {
			return limit
		}
	}
	return d
}

// Retry calls fn until it succeeds, fails with a non-retryable error or the
// policy runs out of attempts. Exhausted retries surface as
// faults.ErrCollaboratorTimeout wrapping the last cause.
func Retry(ctx context.Context, policy RetryPolicy, logger *zap.Logger, fn func(ctx context.Context) (string, error)) (string, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	attempts := policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		out, err := fn(ctx)
		if err == nil {
			return out, nil
		}
		lastErr = err

		if !faults.Retryable(err) {
			return "", err
		}

		if attempt == attempts {
			break
		}

		delay := policy.Delay(attempt)
		logger.Warn("retrying collaborator call",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", attempts),
			zap.Duration("backoff", delay),
			zap.Error(err),
		)

		if err := waitFor(ctx, delay); err != nil {
			return "", fmt.Errorf("%w: %w", faults.ErrCollaboratorTimeout, err)
		}
	}

	return "", fmt.Errorf("%w after %d attempts: %w", faults.ErrCollaboratorTimeout, attempts, lastErr)
}

func waitFor(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	sleep(d)
	return ctx.Err()
}
