// Package predictive produces rule-based forward-looking predictions from
// current metrics and adaptive-planner insights, plus per-step failure-point
// risk scoring for a plan. All rules are closed-form and deterministic; there
// is no LLM fallback tier.
package predictive

import (
	"strings"

	"github.com/corepilot/core/pkg/types"
)

// Horizon is how soon a Prediction is expected to materialize.
type Horizon string

const (
	HorizonImmediate  Horizon = "immediate"
	HorizonShortTerm  Horizon = "short_term"
	HorizonLongTerm   Horizon = "long_term"
)

// Prediction is one emitted forward-looking signal.
type Prediction struct {
	Type               string  `json:"type"`
	Description        string  `json:"description"`
	Probability        float64 `json:"probability"`
	Horizon            Horizon `json:"horizon"`
	RecommendedAction  string  `json:"recommended_action"`
}

// Inputs bundles the signals the prediction rules scan.
type Inputs struct {
	SuccessRate       float64 // adaptive planner / execution summary success rate, 0-100
	TotalErrors       int     // metrics store total error count
	MaxServiceLatency float64 // highest per-service average latency, ms
	PatternsLearned   int     // distinct patterns with recorded history
	TotalQueries      int     // metrics store total query count
}

// Predict evaluates the prediction rule table; every matching rule fires
// independently (they are not mutually exclusive).
func Predict(in Inputs) []Prediction {
	var out []Prediction

	switch {
	case in.SuccessRate > 90 && in.SuccessRate <= 100:
		out = append(out, Prediction{
			Type: "performance_degradation", Description: "success rate is high but trending toward a plateau",
			Probability: 0.6, Horizon: HorizonShortTerm, RecommendedAction: "monitor recent step failure types",
		})
	case in.SuccessRate <= 90:
		out = append(out, Prediction{
			Type: "critical_performance", Description: "success rate has dropped to a critical level",
			Probability: 0.9, Horizon: HorizonImmediate, RecommendedAction: "require approval for new executions until resolved",
		})
	}

	if in.TotalErrors > 10 {
		out = append(out, Prediction{
			Type: "error_spike", Description: "total recorded errors exceed 10",
			Probability: 0.75, Horizon: HorizonImmediate, RecommendedAction: "inspect recent failing steps and consider a circuit reset",
		})
	}
	if in.MaxServiceLatency > 1500 {
		out = append(out, Prediction{
			Type: "latency_increase", Description: "a service's average latency exceeds 1500ms",
			Probability: 0.7, Horizon: HorizonShortTerm, RecommendedAction: "check auto-heal opportunities for the affected service",
		})
	}
	if in.PatternsLearned < 3 {
		out = append(out, Prediction{
			Type: "insufficient_learning", Description: "fewer than 3 patterns have recorded execution history",
			Probability: 0.8, Horizon: HorizonLongTerm, RecommendedAction: "diversify requests to build broader pattern history",
		})
	}
	if in.TotalQueries > 100 {
		out = append(out, Prediction{
			Type: "resource_pressure", Description: "total queries have exceeded 100",
			Probability: 0.5, Horizon: HorizonLongTerm, RecommendedAction: "review backend connection pool sizing",
		})
	}
	return out
}

// PredictFailurePoints scores each step's failure risk from risk keywords,
// plus a 0.2 boost for a production/database token, on a 0.1 base.
func PredictFailurePoints(steps []string) []types.FailurePoint {
	out := make([]types.FailurePoint, 0, len(steps))
	for i, step := range steps {
		lower := strings.ToLower(step)
		prob := 0.1
		switch {
		case strings.Contains(lower, "delete") || strings.Contains(lower, "drop"):
			prob = 0.8
		case strings.Contains(lower, "modify") || strings.Contains(lower, "update"):
			prob = 0.5
		case strings.Contains(lower, "generate") || strings.Contains(lower, "create"):
			prob = 0.3
		}
		if strings.Contains(lower, "production") || strings.Contains(lower, "database") {
			prob += 0.2
		}
		if prob > 1.0 {
			prob = 1.0
		}
		out = append(out, types.FailurePoint{
			StepIndex:   i,
			Step:        step,
			Probability: prob,
			Mitigation:  mitigationFor(prob),
		})
	}
	return out
}

func mitigationFor(prob float64) string {
	switch {
	case prob >= 0.8:
		return "require a backup and human approval before this step"
	case prob >= 0.5:
		return "validate proposed changes before applying"
	case prob >= 0.3:
		return "review generated output before use"
	default:
		return "no additional mitigation needed"
	}
}
