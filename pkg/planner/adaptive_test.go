package planner_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/corepilot/core/pkg/planner"
	"github.com/corepilot/core/pkg/types"
)

func TestOptimizeStepsIsIdempotent(t *testing.T) {
	steps := []string{
		"Apply optimization",
		"Create backup point",
		"Generate service configuration",
		"Create backup point", // duplicate backup, should be dropped
		"Validate proposed changes",
	}
	once := planner.OptimizeSteps(steps)
	twice := planner.OptimizeSteps(once)
	assert.Equal(t, once, twice)

	// exactly one backup step survives.
	backups := 0
	for _, s := range once {
		if s == "Create backup point" {
			backups++
		}
	}
	assert.Equal(t, 1, backups)
}

func TestOptimizeStepsStableWithinBand(t *testing.T) {
	steps := []string{"Analyze root cause", "Analyze trends and patterns", "Apply fix"}
	out := planner.OptimizeSteps(steps)
	// application band precedes analysis band; within analysis band, order preserved.
	assert.Equal(t, []string{"Apply fix", "Analyze root cause", "Analyze trends and patterns"}, out)
}

func TestRecordExecutionCommutative(t *testing.T) {
	mk := func(order []bool) *planner.Planner {
		p := planner.New()
		for _, completed := range order {
			status := types.SummaryFailed
			if completed {
				status = types.SummaryCompleted
			}
			p.RecordExecution("t", types.PatternHealthCheck, nil, nil, types.ExecutionSummary{Status: status})
		}
		return p
	}

	p1 := mk([]bool{true, false, true})
	p2 := mk([]bool{false, true, true})

	r1, ok1 := p1.SuccessRate(types.PatternHealthCheck)
	r2, ok2 := p2.SuccessRate(types.PatternHealthCheck)
	assert.True(t, ok1)
	assert.True(t, ok2)
	assert.Equal(t, r1, r2)
}

func TestSuggestImprovementsMissingBackup(t *testing.T) {
	p := planner.New()
	_, _, suggestions := p.SuggestImprovements("add service for billing", []string{"Generate service configuration", "Apply service configuration"})
	found := false
	for _, s := range suggestions {
		if s.Kind == "missing_step" && s.Step == "Create backup point" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestSuggestImprovementsPatternWarning(t *testing.T) {
	p := planner.New()
	for i := 0; i < 10; i++ {
		status := types.SummaryFailed
		if i < 5 {
			status = types.SummaryCompleted
		}
		p.RecordExecution("t", types.PatternDebugging, nil, nil, types.ExecutionSummary{Status: status})
	}
	_, rate, suggestions := p.SuggestImprovements("fix the broken service", nil)
	assert.Equal(t, 50.0, rate)
	found := false
	for _, s := range suggestions {
		if s.Kind == "pattern_warning" {
			found = true
		}
	}
	assert.True(t, found)
}
