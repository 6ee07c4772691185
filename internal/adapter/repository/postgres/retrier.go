package postgres

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
)

// RetryPolicy bounds how often a connection-level failure is retried.
type RetryPolicy struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryPolicy is used by NewTxManager.
var DefaultRetryPolicy = RetryPolicy{
	MaxRetries:      3,
	InitialInterval: 50 * time.Millisecond,
	MaxInterval:     time.Second,
}

// Retrier re-runs an operation that failed before reaching the server, such as acquiring
// a pooled connection. Conflicts inside a scope are not retried here: the scope is rolled
// back and the whole business transaction is attempted again by the processor.
type Retrier struct {
	policy RetryPolicy
	logger zerolog.Logger
}

// NewRetrier creates a Retrier.
func NewRetrier(policy RetryPolicy, logger zerolog.Logger) *Retrier {
	return &Retrier{
		policy: policy,
		logger: logger.With().Str("component", "pg_retrier").Logger(),
	}
}

// Retry runs fn until it succeeds, fails with an error that is unsafe to repeat, or the
// policy is spent.
func (r *Retrier) Retry(ctx context.Context, op string, fn func() error) error {
	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = r.policy.InitialInterval
	expo.MaxInterval = r.policy.MaxInterval
	expo.MaxElapsedTime = 0

	attempt := 0
	return backoff.RetryNotify(func() error {
		attempt++
		err := fn()
		if err != nil && !pgconn.SafeToRetry(err) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(expo, r.policy.MaxRetries), ctx), func(err error, wait time.Duration) {
		r.logger.Warn().Err(err).Str("op", op).Int("attempt", attempt).Dur("wait", wait).Msg("database operation failed before reaching the server, retrying")
	})
}
