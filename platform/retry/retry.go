// Package retry runs startup operations that depend on services which may
// still be booting, such as the database.
package retry

import (
	"context"
	"fmt"
	"time"

	"wchic_backend/platform/logger"
)

// Do calls fn up to attempts times with quadratic backoff from baseDelay.
func Do(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", lastErr)

		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt*attempt) * baseDelay):
		}
	}

	return fmt.Errorf("%s: %w", name, lastErr)
}
