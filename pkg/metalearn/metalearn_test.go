package metalearn_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/corepilot/core/pkg/metalearn"
)

func TestRecommendStrategyPriorityOrder(t *testing.T) {
	m := metalearn.New()
	assert.Equal(t, metalearn.StrategyErrorAnalysis, m.RecommendStrategy(metalearn.Context{HasErrors: true}))
	assert.Equal(t, metalearn.StrategyContextAdaptation, m.RecommendStrategy(metalearn.Context{RetrievalContextPresent: true}))
	assert.Equal(t, metalearn.StrategyPatternRecognition, m.RecommendStrategy(metalearn.Context{IsHealthCheckOrAnalysis: true}))
}

func TestRecommendStrategyFallsBackToHighestEffectiveness(t *testing.T) {
	m := metalearn.New()
	m.RecordLearningEvent(metalearn.StrategyFeedbackIntegration, true)
	m.RecordLearningEvent(metalearn.StrategyFeedbackIntegration, true)
	m.RecordLearningEvent(metalearn.StrategyPerformanceOptimization, false)
	best := m.RecommendStrategy(metalearn.Context{})
	assert.Equal(t, metalearn.StrategyFeedbackIntegration, best)
}

func TestFlaggedForImprovementRequiresFiveUses(t *testing.T) {
	m := metalearn.New()
	for i := 0; i < 4; i++ {
		m.RecordLearningEvent(metalearn.StrategyErrorAnalysis, false)
	}
	assert.Empty(t, m.FlaggedForImprovement())
	m.RecordLearningEvent(metalearn.StrategyErrorAnalysis, false)
	assert.Contains(t, m.FlaggedForImprovement(), metalearn.StrategyErrorAnalysis)
}

func TestFlaggedForActivationListsUnusedStrategies(t *testing.T) {
	m := metalearn.New()
	m.RecordLearningEvent(metalearn.StrategyErrorAnalysis, true)
	unused := m.FlaggedForActivation()
	assert.NotContains(t, unused, metalearn.StrategyErrorAnalysis)
	assert.Contains(t, unused, metalearn.StrategyContextAdaptation)
}

func TestVelocityDefaultsToSlowWithInsufficientHistory(t *testing.T) {
	m := metalearn.New()
	assert.Equal(t, "slow", m.Velocity())
}
