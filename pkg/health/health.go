// Package health implements the Health Monitor: a rolling history of
// health scores, a consecutive-failure counter, and a recovery trigger
// once the failure streak crosses a threshold.
package health

import (
	"sync"
)

const historyCap = 100

// RecoveryAction is invoked once ShouldTriggerRecovery fires; the caller
// supplies whatever recovery behavior applies (circuit reset, backend
// failover, alert).
type RecoveryAction func()

// Monitor tracks a rolling health-score history and consecutive-failure
// streak, triggering recovery once the streak crosses a threshold.
type Monitor struct {
	mu                  sync.Mutex
	history             []float64
	consecutiveFailures int
	threshold           int
	failureScore        float64
	action              RecoveryAction
	triggered           bool
}

// New returns a Monitor that calls action once consecutiveFailures reaches
// threshold; a score below failureScore counts as a failure.
func New(threshold int, failureScore float64, action RecoveryAction) *Monitor {
	if threshold <= 0 {
		threshold = 3
	}
	return &Monitor{threshold: threshold, failureScore: failureScore, action: action}
}

// Record appends score to the rolling history (dropping the oldest entry
// past historyCap) and updates the consecutive-failure streak, firing
// RecoveryAction the first time the streak reaches the threshold.
func (m *Monitor) Record(score float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.history = append(m.history, score)
	if len(m.history) > historyCap {
		m.history = m.history[len(m.history)-historyCap:]
	}

	if score < m.failureScore {
		m.consecutiveFailures++
	} else {
		m.consecutiveFailures = 0
		m.triggered = false
	}

	if m.consecutiveFailures >= m.threshold && !m.triggered {
		m.triggered = true
		if m.action != nil {
			m.action()
		}
	}
}

// ShouldTriggerRecovery reports whether the consecutive-failure streak has
// reached the configured threshold.
func (m *Monitor) ShouldTriggerRecovery() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.consecutiveFailures >= m.threshold
}

// ConsecutiveFailures returns the current failure streak length.
func (m *Monitor) ConsecutiveFailures() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.consecutiveFailures
}

// History returns a copy of the rolling score history, oldest first.
func (m *Monitor) History() []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]float64, len(m.history))
	copy(out, m.history)
	return out
}

// Average returns the mean of the current history, or 0 if empty.
func (m *Monitor) Average() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.history) == 0 {
		return 0
	}
	var sum float64
	for _, v := range m.history {
		sum += v
	}
	return sum / float64(len(m.history))
}
