package services

import (
	"context"
	"fmt"
	"time"

	"mlops-monitoring-service/internal/core/domain"
)

// withBackoff runs op up to attempts times with exponential backoff. When
// every attempt fails the last error is folded into
// domain.ErrStorageUnavailable so callers can classify it.
func withBackoff(ctx context.Context, attempts int, base time.Duration, op func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	delay := base
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, ctx.Err())
			case <-time.After(delay):
			}
			delay *= 2
		}
		if lastErr = op(); lastErr == nil {
			return nil
		}
	}
	return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, lastErr)
}
