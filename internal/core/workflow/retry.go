package workflow

import (
	"errors"

	"github.com/rl1809/inventory/internal/core/domain"
)

const DefaultMaxRetries = 5

// RetryOnConflict calls fn until it returns anything other than a concurrent
// modification, making at most maxAttempts calls. onRetry, if set, runs
// before every call after the first.
func RetryOnConflict(maxAttempts int, onRetry func(attempt int, err error), fn func(attempt int) error) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = fn(attempt)
		if !errors.Is(err, domain.ErrConcurrentModification) {
			return err
		}
		if attempt < maxAttempts && onRetry != nil {
			onRetry(attempt+1, err)
		}
	}
	return err
}
