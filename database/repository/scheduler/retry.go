package schedulerRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// DefaultMaxAttempts bounds optimistic transaction attempts when configuration does not.
const DefaultMaxAttempts = 10

func newTxnBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 10 * time.Millisecond
	b.MaxInterval = 500 * time.Millisecond
	b.MaxElapsedTime = 0
	return b
}

// retryTransaction reruns attempt while it fails with ErrConflict, up to maxAttempts
// runs in total. Any other error stops immediately.
func retryTransaction(ctx context.Context, maxAttempts int, onConflict func(), attempt func() error) error {
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(newTxnBackOff(), uint64(maxAttempts-1)), ctx)

	err := backoff.Retry(func() error {
		err := attempt()
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrConflict) {
			if onConflict != nil {
				onConflict()
			}
			return err
		}
		return backoff.Permanent(err)
	}, policy)

	if errors.Is(err, ErrConflict) {
		return fmt.Errorf("%w after %d attempts: %v", ErrTransactionConflict, maxAttempts, err)
	}
	return err
}
