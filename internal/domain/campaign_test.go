package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeDerivedFillsDelivered(t *testing.T) {
	m := Metrics{Sent: 1000, Bounces: 40, Opens: 300, Clicks: 50}
	m.ComputeDerived()

	assert.Equal(t, 960, m.Delivered)
	assert.InDelta(t, 0.3, m.OpenRate, 1e-9)
	assert.InDelta(t, 0.05, m.ClickRate, 1e-9)
	assert.InDelta(t, 0.04, m.BounceRate, 1e-9)
}

func TestComputeDerivedKeepsVendorDelivered(t *testing.T) {
	m := Metrics{Sent: 1000, Delivered: 950, Bounces: 40}
	m.ComputeDerived()
	assert.Equal(t, 950, m.Delivered)
}

func TestComputeDerivedZeroSent(t *testing.T) {
	m := Metrics{Sent: 0, Opens: 5, Bounces: 2}
	m.ComputeDerived()

	for _, rate := range []float64{m.OpenRate, m.ClickRate, m.BounceRate, m.UnsubscribeRate, m.ComplaintRate} {
		assert.Equal(t, 0.0, rate)
		assert.False(t, math.IsNaN(rate))
		assert.False(t, math.IsInf(rate, 0))
	}
}

func TestComputeDerivedBouncesExceedSent(t *testing.T) {
	m := Metrics{Sent: 10, Bounces: 15}
	m.ComputeDerived()
	assert.Equal(t, 0, m.Delivered)
}

func TestJobRunTerminal(t *testing.T) {
	assert.False(t, (&JobRun{Status: JobRunRunning}).Terminal())
	assert.True(t, (&JobRun{Status: JobRunCompleted}).Terminal())
	assert.True(t, (&JobRun{Status: JobRunFailed}).Terminal())
}
