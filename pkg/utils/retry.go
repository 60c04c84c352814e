package utils

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryOptions contains configuration for retry behavior.
type RetryOptions struct {
	MaxElapsedTime  time.Duration
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxRetries      uint64
}

// GetBootRetryOptions returns retry options for calls that must succeed before startup.
func GetBootRetryOptions() RetryOptions {
	return RetryOptions{
		MaxElapsedTime:  2 * time.Minute,
		InitialInterval: 2 * time.Second,
		MaxInterval:     30 * time.Second,
		MaxRetries:      6,
	}
}

// WithRetry executes the given operation with exponential backoff using provided options.
// Errors wrapped with backoff.Permanent stop retrying immediately.
func WithRetry[T any](ctx context.Context, operation func() (T, error), opts RetryOptions) (T, error) {
	var result T

	b := backoff.WithMaxRetries(backoff.NewExponentialBackOff(
		backoff.WithMaxElapsedTime(opts.MaxElapsedTime),
		backoff.WithInitialInterval(opts.InitialInterval),
		backoff.WithMaxInterval(opts.MaxInterval),
	), opts.MaxRetries)

	err := backoff.Retry(func() error {
		var err error
		result, err = operation()

		return err
	}, backoff.WithContext(b, ctx))

	return result, err
}
