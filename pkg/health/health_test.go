package health_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/corepilot/core/pkg/health"
)

func TestRecordResetsStreakOnRecovery(t *testing.T) {
	m := health.New(3, 50, nil)
	m.Record(10)
	m.Record(10)
	assert.Equal(t, 2, m.ConsecutiveFailures())

	m.Record(90)
	assert.Equal(t, 0, m.ConsecutiveFailures())
}

func TestRecordTriggersRecoveryOnceAtThreshold(t *testing.T) {
	calls := 0
	m := health.New(3, 50, func() { calls++ })

	m.Record(10)
	m.Record(10)
	assert.False(t, m.ShouldTriggerRecovery())
	assert.Equal(t, 0, calls)

	m.Record(10)
	assert.True(t, m.ShouldTriggerRecovery())
	assert.Equal(t, 1, calls)

	m.Record(5) // already triggered, must not fire again
	assert.Equal(t, 1, calls)
}

func TestHistoryCapsAt100(t *testing.T) {
	m := health.New(3, 50, nil)
	for i := 0; i < 150; i++ {
		m.Record(float64(i))
	}
	assert.Len(t, m.History(), 100)
	assert.Equal(t, float64(149), m.History()[len(m.History())-1])
}

func TestAverageOfEmptyHistoryIsZero(t *testing.T) {
	m := health.New(3, 50, nil)
	assert.Equal(t, float64(0), m.Average())
}
