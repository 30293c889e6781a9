package engine

import "time"

const (
	// DefaultRetryBase is the first retry delay; each subsequent retry
	// doubles it.
	DefaultRetryBase = 1 * time.Second
	// DefaultRetryCap bounds the backoff growth.
	DefaultRetryCap = 5 * time.Minute
)

// RetryPolicy decides whether a failed step is re-attempted and after
// what delay. It is a pure value: the same step state always yields the
// same decision.
type RetryPolicy struct {
	Base time.Duration
	Cap  time.Duration
}

// Decision is the outcome of a retry evaluation. Retry false means the
// workflow terminates as failed; this is the only path from a step
// failure to workflow failure.
type Decision struct {
	Retry bool
	Delay time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Base: DefaultRetryBase, Cap: DefaultRetryCap}
}

// Decide grants a retry while retryCount < maxRetries, with an
// exponential backoff delay of base * 2^retryCount capped at Cap.
func (p RetryPolicy) Decide(retryCount, maxRetries int) Decision {
	if retryCount >= maxRetries {
		return Decision{}
	}
	base := p.Base
	if base <= 0 {
		base = DefaultRetryBase
	}
	maxDelay := p.Cap
	if maxDelay <= 0 {
		maxDelay = DefaultRetryCap
	}
	delay := base
	for i := 0; i < retryCount; i++ {
		delay *= 2
		if delay >= maxDelay {
			delay = maxDelay
			break
		}
	}
	if delay > maxDelay {
		delay = maxDelay
	}
	return Decision{Retry: true, Delay: delay}
}
