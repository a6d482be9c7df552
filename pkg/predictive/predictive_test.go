package predictive_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/corepilot/core/pkg/predictive"
)

func TestPredictCriticalPerformance(t *testing.T) {
	preds := predictive.Predict(predictive.Inputs{SuccessRate: 85})
	found := false
	for _, p := range preds {
		if p.Type == "critical_performance" {
			found = true
			assert.Equal(t, predictive.HorizonImmediate, p.Horizon)
			assert.Equal(t, 0.9, p.Probability)
		}
	}
	assert.True(t, found)
}

func TestPredictErrorSpike(t *testing.T) {
	preds := predictive.Predict(predictive.Inputs{SuccessRate: 100, TotalErrors: 11})
	found := false
	for _, p := range preds {
		found = found || p.Type == "error_spike"
	}
	assert.True(t, found)
}

func TestPredictFailurePointsRisksDeleteHighest(t *testing.T) {
	points := predictive.PredictFailurePoints([]string{"Delete production database", "Analyze request"})
	assert.Greater(t, points[0].Probability, points[1].Probability)
	assert.LessOrEqual(t, points[0].Probability, 1.0)
}
