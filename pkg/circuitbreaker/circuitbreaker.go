// Package circuitbreaker protects each outbound backend target from
// cascading failure via a per-target CLOSED/OPEN/HALF_OPEN state machine.
// Consecutive-failure/success counting is delegated to sony/gobreaker,
// whose default ReadyToTrip predicate is itself a consecutive-failure
// threshold and whose generation counters reset exactly the way HALF_OPEN
// resets the success counter; the registry adds structured logging per
// transition and a metrics-collector seam.
package circuitbreaker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/corepilot/core/internal/apperrors"
	"github.com/corepilot/core/internal/logging"
	"github.com/corepilot/core/pkg/types"
)

// MetricsCollector receives circuit-breaker observability events. A nil
// collector is a valid no-op.
type MetricsCollector interface {
	RecordStateChange(target string, from, to types.CircuitStateTag)
	RecordRejection(target string)
}

// Config holds the breaker's three tunables.
type Config struct {
	FailureThreshold uint32
	SuccessThreshold uint32
	OpenTimeout      time.Duration
}

// DefaultConfig returns sensible defaults for the three tunables.
func DefaultConfig() Config {
	return Config{FailureThreshold: 5, SuccessThreshold: 2, OpenTimeout: 30 * time.Second}
}

// Registry holds one breaker per outbound target, created lazily on first
// use and reused for the life of the process as a shared singleton,
// serialized internally by gobreaker's own locking.
type Registry struct {
	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
	cfg      Config
	logger   logging.Logger
	metrics  MetricsCollector
}

// NewRegistry creates an empty breaker registry.
func NewRegistry(cfg Config, logger logging.Logger, metrics MetricsCollector) *Registry {
	if logger == nil {
		logger = logging.NoOp{}
	}
	return &Registry{
		breakers: make(map[string]*gobreaker.CircuitBreaker),
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics,
	}
}

func toTag(s gobreaker.State) types.CircuitStateTag {
	switch s {
	case gobreaker.StateClosed:
		return types.CircuitClosed
	case gobreaker.StateHalfOpen:
		return types.CircuitHalfOpen
	default:
		return types.CircuitOpen
	}
}

func (r *Registry) breakerFor(target string) *gobreaker.CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cb, ok := r.breakers[target]; ok {
		return cb
	}

	settings := gobreaker.Settings{
		Name:        target,
		MaxRequests: r.cfg.SuccessThreshold,
		Timeout:     r.cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= r.cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			r.logger.Info("circuit breaker state change", map[string]interface{}{
				"target": name,
				"from":   string(toTag(from)),
				"to":     string(toTag(to)),
			})
			if r.metrics != nil {
				r.metrics.RecordStateChange(name, toTag(from), toTag(to))
			}
		},
	}
	cb := gobreaker.NewCircuitBreaker(settings)
	r.breakers[target] = cb
	return cb
}

// Call executes fn under target's breaker. A fast rejection while OPEN
// surfaces apperrors.ErrCircuitOpen; fn's own error propagates otherwise
// after being recorded as a failure.
func (r *Registry) Call(ctx context.Context, target string, fn func(ctx context.Context) (interface{}, error)) (interface{}, error) {
	cb := r.breakerFor(target)
	result, err := cb.Execute(func() (interface{}, error) {
		return fn(ctx)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			if r.metrics != nil {
				r.metrics.RecordRejection(target)
			}
			return nil, fmt.Errorf("%s: %w", target, apperrors.ErrCircuitOpen)
		}
		return nil, err
	}
	return result, nil
}

// State reports target's current CircuitStateTag for observability.
func (r *Registry) State(target string) types.CircuitStateTag {
	r.mu.Lock()
	cb, ok := r.breakers[target]
	r.mu.Unlock()
	if !ok {
		return types.CircuitClosed
	}
	return toTag(cb.State())
}

// Counts reports target's current gobreaker counts, for admin/metrics
// endpoints.
func (r *Registry) Counts(target string) gobreaker.Counts {
	r.mu.Lock()
	cb, ok := r.breakers[target]
	r.mu.Unlock()
	if !ok {
		return gobreaker.Counts{}
	}
	return cb.Counts()
}

// Targets lists every target a breaker has been created for.
func (r *Registry) Targets() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.breakers))
	for t := range r.breakers {
		out = append(out, t)
	}
	return out
}

// Reset forces target's breaker back to a fresh CLOSED state, supporting
// a manual reset from an admin surface.
func (r *Registry) Reset(target string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.breakers, target)
}
