package decision_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/corepilot/core/pkg/decision"
	"github.com/corepilot/core/pkg/types"
)

func TestDecideQueryRespondsWithoutExecution(t *testing.T) {
	v := decision.Decide(decision.Context{Intent: types.IntentQuery, Pattern: types.PatternGeneric})
	assert.Equal(t, types.ActionRespond, v.Action)
}

func TestDecideHighRiskKeywordRequiresApproval(t *testing.T) {
	v := decision.Decide(decision.Context{
		Intent:  types.IntentExecute,
		Message: "delete the production database",
		Pattern: types.PatternGeneric,
	})
	assert.Equal(t, types.ActionRequireApproval, v.Action)
	level := decision.SafetyLevelFor(v, "delete the production database")
	assert.Equal(t, types.SafetyLevel("high"), level)
}

func TestDecideLowRiskPatternAutoExecutes(t *testing.T) {
	v := decision.Decide(decision.Context{
		Intent:  types.IntentExecute,
		Message: "check service health",
		Pattern: types.PatternHealthCheck,
	})
	assert.Equal(t, types.ActionAutoExecute, v.Action)
}

func TestDecideHistoricalSuccessRateBands(t *testing.T) {
	high := decision.Decide(decision.Context{
		Intent: types.IntentModify, Message: "modify the cache layer", Pattern: types.PatternGeneric,
		HasHistory: true, HistoricalSuccessRate: 95,
	})
	assert.Equal(t, types.ActionAutoExecute, high.Action)

	mid := decision.Decide(decision.Context{
		Intent: types.IntentModify, Message: "modify the cache layer", Pattern: types.PatternGeneric,
		HasHistory: true, HistoricalSuccessRate: 75,
	})
	assert.Equal(t, types.ActionSuggestExecute, mid.Action)

	low := decision.Decide(decision.Context{
		Intent: types.IntentModify, Message: "modify the cache layer", Pattern: types.PatternGeneric,
		HasHistory: true, HistoricalSuccessRate: 40,
	})
	assert.Equal(t, types.ActionRequireApproval, low.Action)
}

func TestDecideRetrievalContextBoostsConfidence(t *testing.T) {
	without := decision.Decide(decision.Context{Intent: types.IntentAnalyze, Pattern: types.PatternAnalysis})
	with := decision.Decide(decision.Context{Intent: types.IntentAnalyze, Pattern: types.PatternAnalysis, RetrievalContextPresent: true})
	assert.Greater(t, with.Confidence, without.Confidence)
}

func TestSafetyStepsForAddService(t *testing.T) {
	v := decision.Decide(decision.Context{Intent: types.IntentExecute, Message: "add a new caching service", Pattern: types.PatternAddService})
	assert.Contains(t, v.SafetySteps, types.SafetyStepBackup)
}

func TestDecideCreateCodeInSafeZoneAutoExecutes(t *testing.T) {
	v := decision.Decide(decision.Context{
		Intent: types.IntentCreate, Message: "Create a simple hello world program. Save to playground/hello.py",
		Pattern: types.PatternCreateResource,
	})
	assert.Equal(t, types.ActionAutoExecute, v.Action)
	assert.Equal(t, 0.95, v.Confidence)
}

func TestDecideCreateCodeOutsideSafeZoneStillAutoExecutesWithoutDangerousTarget(t *testing.T) {
	v := decision.Decide(decision.Context{
		Intent: types.IntentCreate, Message: "write a script to greet the user",
		Pattern: types.PatternCreateResource,
	})
	assert.Equal(t, types.ActionAutoExecute, v.Action)
}

func TestDecideCreateNonCodeResourceFallsThroughToHistoryBands(t *testing.T) {
	v := decision.Decide(decision.Context{
		Intent: types.IntentCreate, Message: "create a new customer record",
		Pattern: types.PatternCreateResource,
	})
	assert.Equal(t, types.ActionRequireApproval, v.Action)
}

func TestDecideCreateDangerousTargetIsNotAutoApprovedByCodeCreation(t *testing.T) {
	v := decision.Decide(decision.Context{
		Intent: types.IntentCreate, Message: "create a script that modifies production config",
		Pattern: types.PatternCreateResource,
	})
	assert.NotEqual(t, types.ActionAutoExecute, v.Action)
}

func TestRetryPolicyTransientVsPermanent(t *testing.T) {
	assert.True(t, decision.RetryPolicy("connection timeout", 0, 3))
	assert.False(t, decision.RetryPolicy("connection timeout", 3, 3))
	assert.False(t, decision.RetryPolicy("resource not found", 0, 3))
}
