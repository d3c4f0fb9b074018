package scores

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/ZBugge/nfl-playoff-predictor/internal/logger"
)

const (
	defaultRetries         = 3
	defaultInitialInterval = 200 * time.Millisecond
)

// retryingProvider retries temporary feed failures with exponential backoff
type retryingProvider struct {
	inner    Provider
	retries  uint64
	interval time.Duration
}

// NewRetryingProvider wraps inner with retries. Non-positive arguments use defaults.
func NewRetryingProvider(inner Provider, retries int, initial time.Duration) Provider {
	if retries <= 0 {
		retries = defaultRetries
	}
	if initial <= 0 {
		initial = defaultInitialInterval
	}
	return &retryingProvider{inner: inner, retries: uint64(retries), interval: initial}
}

func (r *retryingProvider) FetchFinals(ctx context.Context, season int) ([]Final, error) {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = r.interval
	eb.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, r.retries), ctx)

	var finals []Final
	op := func() error {
		out, err := r.inner.FetchFinals(ctx, season)
		if err != nil {
			var se *StatusError
			if errors.As(err, &se) && !se.Temporary() {
				return backoff.Permanent(err)
			}
			return err
		}
		finals = out
		return nil
	}
	notify := func(err error, wait time.Duration) {
		logger.Warn("Score feed fetch failed, retrying", "error", err, "wait", wait, "season", season)
	}

	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		return nil, err
	}
	return finals, nil
}
