package selfimprove_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/corepilot/core/pkg/selfimprove"
)

func TestBucketForImmediate(t *testing.T) {
	o := selfimprove.Opportunity{Impact: selfimprove.ImpactHigh, Confidence: 0.9}
	assert.Equal(t, selfimprove.BucketImmediate, selfimprove.BucketFor(o))
}

func TestBucketForScheduled(t *testing.T) {
	high := selfimprove.Opportunity{Impact: selfimprove.ImpactHigh, Confidence: 0.65}
	assert.Equal(t, selfimprove.BucketScheduled, selfimprove.BucketFor(high))

	medium := selfimprove.Opportunity{Impact: selfimprove.ImpactMedium, Confidence: 0.6}
	assert.Equal(t, selfimprove.BucketScheduled, selfimprove.BucketFor(medium))
}

func TestBucketForBacklog(t *testing.T) {
	o := selfimprove.Opportunity{Impact: selfimprove.ImpactLow, Confidence: 0.95}
	assert.Equal(t, selfimprove.BucketBacklog, selfimprove.BucketFor(o))
}

func TestScoreWeightsImpact(t *testing.T) {
	low := selfimprove.Opportunity{Impact: selfimprove.ImpactLow, Confidence: 0.5}
	high := selfimprove.Opportunity{Impact: selfimprove.ImpactHigh, Confidence: 0.5}
	assert.Less(t, low.Score(), high.Score())
}

func TestAnalyzeAndPrioritize(t *testing.T) {
	opportunities := selfimprove.Analyze(selfimprove.Signals{
		MetricHealthScore: 40,
		MetricIssues:      []string{"service checkout p95 latency elevated"},
		FlaggedStrategies: []string{"aggressive_retry"},
	})
	assert.NotEmpty(t, opportunities)

	plan := selfimprove.Prioritize(opportunities)
	assert.NotEmpty(t, plan.Immediate)
}
