package util

import "time"

// BackoffPolicy computes exponential retry delays with a ceiling. The same
// policy type serves both the delivery pipeline (minute-scale delays) and the
// job queue (second-scale delays); call sites parameterize base, cap and
// budget instead of duplicating the arithmetic.
type BackoffPolicy struct {
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	MaxRetries int
}

// Delay returns the wait before the next attempt given the number of failures
// observed so far. The sequence is base*2^1, base*2^2, ... capped at MaxDelay.
func (p BackoffPolicy) Delay(failures int) time.Duration {
	if failures < 0 {
		failures = 0
	}
	delay := p.BaseDelay
	for i := 0; i < failures; i++ {
		delay *= 2
		if delay >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}

// Exhausted reports whether the retry budget is spent after the given number
// of failures.
func (p BackoffPolicy) Exhausted(failures int) bool {
	return failures > p.MaxRetries
}
