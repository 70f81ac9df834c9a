package classifier

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/spherical/hs-classifier/internal/domain"
)

// DefaultRetryBase is the first backoff interval for IdentifyWithRetry.
const DefaultRetryBase = 2 * time.Second

// Classifier is the part of Service that IdentifyWithRetry drives.
type Classifier interface {
	Classify(ctx context.Context, req domain.ClassificationRequest) (*Report, error)
}

// IdentifyWithRetry calls Classify up to retries+1 times with exponential
// backoff. Only terminal classification failures are retried; cancellation
// of ctx and validation errors stop immediately.
func IdentifyWithRetry(ctx context.Context, c Classifier, req domain.ClassificationRequest, retries uint64, base time.Duration) (*Report, error) {
	if base <= 0 {
		base = DefaultRetryBase
	}
	b := retry.WithMaxRetries(retries, retry.NewExponential(base))

	var rep *Report
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		r, err := c.Classify(ctx, req)
		if err != nil {
			if ShouldRetry(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		rep = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rep, nil
}

// ShouldRetry reports whether a Classify error is worth another attempt.
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if domain.IsType(err, domain.ErrorTypeValidation) {
		return false
	}
	var ce *domain.ClassificationError
	return errors.As(err, &ce)
}
