package decompose_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corepilot/core/pkg/decompose"
	"github.com/corepilot/core/pkg/types"
)

func TestDecomposeHealthCheckHappyPath(t *testing.T) {
	steps := decompose.Decompose("Check system health status")
	assert.Len(t, steps, 5)
	for _, s := range steps {
		assert.NotEmpty(t, s)
	}
}

func TestDecomposeGenericFallback(t *testing.T) {
	steps := decompose.Decompose("banana")
	assert.Len(t, steps, 3)
}

func TestDecomposeCodeCreationProducesGenerateValidateCreateVerify(t *testing.T) {
	steps := decompose.Decompose("Create a simple hello world program. Save to playground/hello.py")
	require.NotEmpty(t, steps)
	joined := strings.ToLower(strings.Join(steps, " | "))
	assert.Contains(t, joined, "generate")
	assert.Contains(t, joined, "validat")
	assert.Contains(t, joined, "create file")
	assert.Contains(t, joined, "verify")
}

func TestClassifyStepTypes(t *testing.T) {
	assert.Equal(t, types.StepBackup, decompose.Classify("Create backup point"))
	assert.Equal(t, types.StepValidation, decompose.Classify("Validate proposed changes"))
	assert.Equal(t, types.StepGeneration, decompose.Classify("Generate service configuration"))
	assert.Equal(t, types.StepApplication, decompose.Classify("Apply optimization"))
	assert.Equal(t, types.StepHealthCheck, decompose.Classify("Verify new service health"))
	assert.Equal(t, types.StepGeneric, decompose.Classify("Determine applicable action"))
}
