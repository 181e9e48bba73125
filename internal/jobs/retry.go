package jobs

import "time"

// RetryPolicy is an explicit, swappable retry description so the policy can
// be tested without a live queue.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     func(attempt int) time.Duration
}

// Delay returns the wait before the next attempt. Attempts are 1-based:
// Delay(1) is the wait after the first failure.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if p.Backoff == nil {
		return 0
	}
	if attempt < 1 {
		attempt = 1
	}
	return p.Backoff(attempt)
}

// DefaultRetryPolicy doubles a 30 second base delay per attempt, capped at
// 15 minutes.
func DefaultRetryPolicy(maxAttempts int) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: maxAttempts,
		Backoff:     ExponentialBackoff(30*time.Second, 15*time.Minute),
	}
}

// ExponentialBackoff returns a backoff function doubling base per attempt
// up to cap.
func ExponentialBackoff(base, cap time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		d := base
		for i := 1; i < attempt; i++ {
			d *= 2
			if d >= cap {
				return cap
			}
		}
		if d > cap {
			return cap
		}
		return d
	}
}
