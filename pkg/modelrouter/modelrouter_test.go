package modelrouter_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corepilot/core/pkg/modelrouter"
)

type fakeBackend struct {
	calls int
	resp  string
	err   error
}

func (f *fakeBackend) Generate(_ context.Context, _ string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.resp, nil
}

func TestGenerateRoutesByPromptLength(t *testing.T) {
	small := &fakeBackend{resp: "small-backend"}
	large := &fakeBackend{resp: "large-backend"}

	router := modelrouter.New(map[modelrouter.Priority][]modelrouter.Route{
		modelrouter.PriorityBalanced: {
			{Name: "small", Backend: small, MaxPromptN: 10},
			{Name: "large", Backend: large, MaxPromptN: 0},
		},
	}, 10)

	out, err := router.Generate(context.Background(), modelrouter.PriorityBalanced, "short")
	require.NoError(t, err)
	assert.Equal(t, "small-backend", out)

	out, err = router.Generate(context.Background(), modelrouter.PriorityBalanced, "this prompt is much longer than ten characters")
	require.NoError(t, err)
	assert.Equal(t, "large-backend", out)
}

func TestGenerateCachesRepeatedPrompts(t *testing.T) {
	backend := &fakeBackend{resp: "cached"}
	router := modelrouter.New(map[modelrouter.Priority][]modelrouter.Route{
		modelrouter.PriorityBalanced: {{Name: "only", Backend: backend}},
	}, 10)

	ctx := context.Background()
	_, err := router.Generate(ctx, modelrouter.PriorityBalanced, "repeat me")
	require.NoError(t, err)
	_, err = router.Generate(ctx, modelrouter.PriorityBalanced, "repeat me")
	require.NoError(t, err)

	assert.Equal(t, 1, backend.calls)
}

func TestGenerateRecordsUsageIncludingErrors(t *testing.T) {
	backend := &fakeBackend{err: errors.New("boom")}
	router := modelrouter.New(map[modelrouter.Priority][]modelrouter.Route{
		modelrouter.PriorityBalanced: {{Name: "flaky", Backend: backend}},
	}, 10)

	_, err := router.Generate(context.Background(), modelrouter.PriorityBalanced, "x")
	require.Error(t, err)

	stats := router.Stats()
	assert.Equal(t, 1, stats["flaky"].Calls)
	assert.Equal(t, 1, stats["flaky"].Errors)
}

func TestGenerateFallsBackToBalancedForUnknownPriority(t *testing.T) {
	backend := &fakeBackend{resp: "fallback"}
	router := modelrouter.New(map[modelrouter.Priority][]modelrouter.Route{
		modelrouter.PriorityBalanced: {{Name: "only", Backend: backend}},
	}, 10)

	out, err := router.Generate(context.Background(), modelrouter.PriorityQuality, "x")
	require.NoError(t, err)
	assert.Equal(t, "fallback", out)
}
