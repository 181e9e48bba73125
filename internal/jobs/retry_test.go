package jobs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExponentialBackoffDoublesAndCaps(t *testing.T) {
	backoff := ExponentialBackoff(30*time.Second, 15*time.Minute)

	assert.Equal(t, 30*time.Second, backoff(1))
	assert.Equal(t, time.Minute, backoff(2))
	assert.Equal(t, 2*time.Minute, backoff(3))
	assert.Equal(t, 8*time.Minute, backoff(5))
	assert.Equal(t, 15*time.Minute, backoff(6))
	assert.Equal(t, 15*time.Minute, backoff(20))
}

func TestRetryPolicyDelayClampsAttempt(t *testing.T) {
	p := DefaultRetryPolicy(5)
	assert.Equal(t, p.Delay(1), p.Delay(0))
	assert.Equal(t, p.Delay(1), p.Delay(-3))
}

func TestRetryPolicyNoBackoffFunc(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 1}
	assert.Equal(t, time.Duration(0), p.Delay(3))
}
