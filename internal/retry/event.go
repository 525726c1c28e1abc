package retry

import "time"

// Event describes a failed attempt that is about to be retried.
type Event struct {
	// Attempt is the failed attempt number (1-indexed).
	Attempt int

	// MaxAttempts is the total number of attempts allowed.
	MaxAttempts int

	// Err is the error from the failed attempt.
	Err error

	// Delay is the wait before the next attempt.
	Delay time.Duration
}

func (c Config) notify(e Event) {
	if c.OnRetry != nil {
		c.OnRetry(e)
	}
}
