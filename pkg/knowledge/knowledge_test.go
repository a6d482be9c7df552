package knowledge_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corepilot/core/pkg/knowledge"
	"github.com/corepilot/core/pkg/types"
)

type fakeAdder struct {
	content  string
	metadata map[string]interface{}
}

func (f *fakeAdder) Add(_ context.Context, content string, metadata map[string]interface{}) error {
	f.content = content
	f.metadata = metadata
	return nil
}

func TestRecordExecutionRendersMarkersAndMetadata(t *testing.T) {
	adder := &fakeAdder{}
	store := knowledge.New(adder)

	results := []types.StepResult{
		{Step: "fetch data", Status: types.StepSuccess},
		{Step: "delete record", Status: types.StepFailed, Error: "permission denied"},
	}
	summary := types.Summarize(results)

	err := store.RecordExecution(context.Background(), "task-1", "database_operation", results, summary)
	require.NoError(t, err)

	assert.Contains(t, adder.content, "✅ fetch data")
	assert.Contains(t, adder.content, "❌ delete record: permission denied")
	assert.Equal(t, "execution_result", adder.metadata["type"])
	assert.Equal(t, "task-1", adder.metadata["task_id"])
	assert.Equal(t, "database_operation", adder.metadata["intent"])
}
