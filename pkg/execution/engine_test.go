package execution_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corepilot/core/pkg/execution"
	"github.com/corepilot/core/pkg/types"
)

type fakeInference struct{ code string }

func (f fakeInference) Generate(ctx context.Context, prompt string) (string, error) {
	return f.code, nil
}

type fakeArchitecture struct{ changeID string }

func (f fakeArchitecture) ProposeConfig(ctx context.Context, target string) (string, error) {
	return f.changeID, nil
}

func (f fakeArchitecture) Apply(ctx context.Context, changeID string) error {
	return nil
}

type fakeHealth struct{ healthy bool }

func (f fakeHealth) Check(ctx context.Context, service string) (bool, error) {
	return f.healthy, nil
}

type failingHealth struct{}

func (failingHealth) Check(ctx context.Context, service string) (bool, error) {
	return false, errors.New("connection timeout")
}

// retryThenSucceedInference fails with a transient error on its first two
// calls and succeeds on the third, exercising the retry-then-succeed path.
type retryThenSucceedInference struct {
	code  string
	calls int
}

func (f *retryThenSucceedInference) Generate(ctx context.Context, prompt string) (string, error) {
	f.calls++
	if f.calls < 3 {
		return "", errors.New("inference request timeout")
	}
	return f.code, nil
}

type permanentFailingInference struct{ calls int }

func (f *permanentFailingInference) Generate(ctx context.Context, prompt string) (string, error) {
	f.calls++
	return "", errors.New("model not found")
}

func TestExecuteTaskRefusesOverMaxSteps(t *testing.T) {
	e := execution.New(nil, nil, nil)
	steps := make([]string, 51)
	for i := range steps {
		steps[i] = "Analyze request"
	}
	_, err := e.ExecuteTask(context.Background(), "t1", steps, types.StepData{})
	require.Error(t, err)
}

func TestExecuteTaskThreadsChangeIDForward(t *testing.T) {
	e := execution.New(nil, nil, nil)
	e.Architecture = fakeArchitecture{changeID: "chg-1"}
	steps := []string{"Apply service configuration", "Validate proposed changes"}
	results, err := e.ExecuteTask(context.Background(), "t2", steps, types.StepData{})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, types.StepCompleted, results[0].Status)
	assert.Equal(t, "chg-1", results[0].Data.ChangeID)
	assert.Equal(t, types.StepCompleted, results[1].Status)
}

func TestExecuteTaskHaltsOnCriticalFailure(t *testing.T) {
	e := execution.New(nil, nil, nil)
	e.Health = failingHealth{}
	steps := []string{"Check critical service health", "Analyze request"}
	results, err := e.ExecuteTask(context.Background(), "t3", steps, types.StepData{})
	require.NoError(t, err)
	assert.Len(t, results, 1)
	assert.Equal(t, types.StepFailed, results[0].Status)
}

func TestExecuteStepCodeGenerationPopulatesGeneratedCode(t *testing.T) {
	e := execution.New(nil, nil, nil)
	e.Inference = fakeInference{code: "package main"}
	threadCtx := types.StepData{}
	result := e.ExecuteStep(context.Background(), "Generate service configuration", &threadCtx)
	assert.Equal(t, types.StepCompleted, result.Status)
	assert.Equal(t, "package main", result.Data.GeneratedCode)
	assert.Equal(t, "package main", threadCtx.GeneratedCode)
}

func TestExecuteStepSafetyValidationRequiresChangeID(t *testing.T) {
	e := execution.New(nil, nil, nil)
	threadCtx := types.StepData{}
	result := e.ExecuteStep(context.Background(), "Validate proposed changes", &threadCtx)
	assert.Equal(t, types.StepFailed, result.Status)

	threadCtx.ChangeID = "chg-9"
	result = e.ExecuteStep(context.Background(), "Validate proposed changes", &threadCtx)
	assert.Equal(t, types.StepCompleted, result.Status)
}

func TestExecuteStepRetriesTransientFailureThenSucceeds(t *testing.T) {
	e := execution.New(nil, nil, nil)
	backend := &retryThenSucceedInference{code: "package main"}
	e.Inference = backend
	threadCtx := types.StepData{}
	result := e.ExecuteStep(context.Background(), "Generate service configuration", &threadCtx)
	assert.Equal(t, types.StepCompleted, result.Status)
	assert.Equal(t, "package main", result.Data.GeneratedCode)
	assert.Equal(t, 3, backend.calls)
	assert.Equal(t, 3, result.Attempts)
}

func TestExecuteStepNeverRetriesPermanentFailure(t *testing.T) {
	e := execution.New(nil, nil, nil)
	backend := &permanentFailingInference{}
	e.Inference = backend
	threadCtx := types.StepData{}
	result := e.ExecuteStep(context.Background(), "Generate service configuration", &threadCtx)
	assert.Equal(t, types.StepFailed, result.Status)
	assert.Equal(t, 1, backend.calls)
	assert.Equal(t, 1, result.Attempts)
}

func TestExecuteStepBackupCreationSetsRollbackID(t *testing.T) {
	e := execution.New(nil, nil, nil)
	threadCtx := types.StepData{}
	result := e.ExecuteStep(context.Background(), "Create backup point", &threadCtx)
	assert.Equal(t, types.StepCompleted, result.Status)
	assert.True(t, result.Data.BackupCreated)
	assert.NotEmpty(t, result.Data.RollbackID)
	assert.True(t, threadCtx.BackupCreated)
}
