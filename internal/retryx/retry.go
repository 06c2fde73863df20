// Package retryx wraps every Durable Store call in a bounded, fixed-delay
// retry. Locks and transient unreachability of the network mount are routine,
// so each operation is attempted a configured number of times before its
// error is surfaced to the caller.
package retryx

import (
	"context"
	"errors"
	"time"

	"github.com/DustanBaker/The-Uplink/internal/common"
	"github.com/sethvargo/go-retry"
)

// Config controls the retry wrapper. Attempts counts the total number of
// tries, not the number of retries; zero means one try.
type Config struct {
	Attempts uint64
	Delay    time.Duration
}

// Do runs fn until it succeeds or the attempt budget is exhausted, waiting
// Delay between tries. Storage errors are treated as retryable: on a shared
// network drive there is no reliable way to tell a fatal fault from a
// transient one. Domain outcomes (duplicate key, row not found) are not
// faults and return immediately. Context cancellation stops the wait early.
func Do(ctx context.Context, c Config, fn func(ctx context.Context) error) error {
	attempts := c.Attempts
	if attempts == 0 {
		attempts = 1
	}
	delay := c.Delay
	if delay <= 0 {
		delay = time.Millisecond
	}

	b := retry.WithMaxRetries(attempts-1, retry.NewConstant(delay))

	return retry.Do(ctx, b, func(ctx context.Context) error {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if errors.Is(err, common.ErrDuplicate) || errors.Is(err, common.ErrNotFound) ||
			errors.Is(err, common.ErrUnknownProject) {
			return err
		}
		return retry.RetryableError(err)
	})
}
