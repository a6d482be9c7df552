package circuitbreaker_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corepilot/core/internal/apperrors"
	"github.com/corepilot/core/pkg/circuitbreaker"
	"github.com/corepilot/core/pkg/types"
)

func TestCircuitOpensAfterFailureThreshold(t *testing.T) {
	cfg := circuitbreaker.Config{FailureThreshold: 3, SuccessThreshold: 2, OpenTimeout: 50 * time.Millisecond}
	reg := circuitbreaker.NewRegistry(cfg, nil, nil)

	boom := errors.New("boom")
	fail := func(ctx context.Context) (interface{}, error) { return nil, boom }

	// failure_threshold-1 failures keep the breaker CLOSED.
	for i := 0; i < 2; i++ {
		_, err := reg.Call(context.Background(), "svc", fail)
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, types.CircuitClosed, reg.State("svc"))
	}

	// the next failure opens it.
	_, err := reg.Call(context.Background(), "svc", fail)
	assert.ErrorIs(t, err, boom)
	require.Equal(t, types.CircuitOpen, reg.State("svc"))

	// while OPEN, calls fail fast without invoking fn.
	called := false
	_, err = reg.Call(context.Background(), "svc", func(ctx context.Context) (interface{}, error) {
		called = true
		return nil, nil
	})
	assert.False(t, called)
	assert.ErrorIs(t, err, apperrors.ErrCircuitOpen)
}

func TestCircuitHalfOpenClosesAfterSuccessThreshold(t *testing.T) {
	cfg := circuitbreaker.Config{FailureThreshold: 1, SuccessThreshold: 2, OpenTimeout: 20 * time.Millisecond}
	reg := circuitbreaker.NewRegistry(cfg, nil, nil)

	_, _ = reg.Call(context.Background(), "svc", func(ctx context.Context) (interface{}, error) {
		return nil, errors.New("fail")
	})
	require.Equal(t, types.CircuitOpen, reg.State("svc"))

	time.Sleep(30 * time.Millisecond)

	ok := func(ctx context.Context) (interface{}, error) { return "ok", nil }
	_, err := reg.Call(context.Background(), "svc", ok)
	require.NoError(t, err)
	assert.Equal(t, types.CircuitHalfOpen, reg.State("svc"))

	_, err = reg.Call(context.Background(), "svc", ok)
	require.NoError(t, err)
	assert.Equal(t, types.CircuitClosed, reg.State("svc"))
}

func TestCircuitHalfOpenFailureReopens(t *testing.T) {
	cfg := circuitbreaker.Config{FailureThreshold: 1, SuccessThreshold: 2, OpenTimeout: 20 * time.Millisecond}
	reg := circuitbreaker.NewRegistry(cfg, nil, nil)

	_, _ = reg.Call(context.Background(), "svc", func(ctx context.Context) (interface{}, error) {
		return nil, errors.New("fail")
	})
	time.Sleep(30 * time.Millisecond)

	_, err := reg.Call(context.Background(), "svc", func(ctx context.Context) (interface{}, error) {
		return nil, errors.New("still failing")
	})
	require.Error(t, err)
	assert.Equal(t, types.CircuitOpen, reg.State("svc"))
}

func TestResetClearsBreakerState(t *testing.T) {
	cfg := circuitbreaker.DefaultConfig()
	reg := circuitbreaker.NewRegistry(cfg, nil, nil)
	_, _ = reg.Call(context.Background(), "svc", func(ctx context.Context) (interface{}, error) { return "ok", nil })
	reg.Reset("svc")
	assert.Equal(t, types.CircuitClosed, reg.State("svc"))
}
