package intent_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/corepilot/core/pkg/intent"
)

func TestClassifyPriority(t *testing.T) {
	cases := []struct {
		text string
		want intent.IntentTag
	}{
		{"Check system health status", intent.IntentExecute},
		{"Create a simple hello world program. Save to playground/hello.py", intent.IntentCreate},
		{"Delete all production files", intent.IntentModify},
		{"Analyze the recent errors", intent.IntentAnalyze},
		{"What is the current latency?", intent.IntentQuery},
		{"Tell me something", intent.IntentQuery},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, intent.Classify(c.text), c.text)
	}
}

func TestExtractEntities(t *testing.T) {
	e := intent.Extract("Restart the redis service and check latency on docker-compose")
	assert.True(t, e.Has(intent.EntityActions, "restart"))
	assert.True(t, e.Has(intent.EntityTechnologies, "redis"))
	assert.True(t, e.Has(intent.EntityTechnologies, "docker-compose"))
	assert.True(t, e.Has(intent.EntityMetrics, "latency"))
}

func TestDerivePatternDeterministic(t *testing.T) {
	assert.Equal(t, intent.PatternHealthCheck, intent.DerivePattern("Check system health status"))
	assert.Equal(t, intent.PatternAddCache, intent.DerivePattern("Add a cache layer"))
	assert.Equal(t, intent.PatternOptimization, intent.DerivePattern("Optimize the pipeline"))
	assert.Equal(t, intent.PatternGeneric, intent.DerivePattern("banana"))
}
