package utils

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// ContextSleep sleeps for the specified duration while respecting context cancellation.
// Returns false if the context was cancelled first.
func ContextSleep(ctx context.Context, duration time.Duration) bool {
	if duration <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(duration)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// ContextSleepWithLog is ContextSleep that logs cancelMessage when the context is cancelled.
func ContextSleepWithLog(ctx context.Context, duration time.Duration, logger *zap.Logger, cancelMessage string) bool {
	if ContextSleep(ctx, duration) {
		return true
	}

	if logger != nil && cancelMessage != "" {
		logger.Info(cancelMessage)
	}

	return false
}

// ContextGuardWithLog checks if the context is cancelled and logs a message if so.
// Returns true if context is cancelled, false otherwise.
func ContextGuardWithLog(ctx context.Context, logger *zap.Logger, cancelMessage string) bool {
	select {
	case <-ctx.Done():
		if logger != nil && cancelMessage != "" {
			logger.Info(cancelMessage)
		}

		return true
	default:
		return false
	}
}
