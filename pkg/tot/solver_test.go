package tot_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corepilot/core/pkg/execution"
	"github.com/corepilot/core/pkg/tot"
)

func TestSolveProducesASuccessfulPath(t *testing.T) {
	engine := execution.New(nil, nil, nil)
	solver := tot.New(engine, nil)

	tree := solver.Solve(context.Background(), "task-1", "Create folder in playground/demo")
	require.NotEmpty(t, tree.SuccessfulPath)
	assert.NotEmpty(t, tree.Branches)
}

func TestGetSuccessfulContextOnlyRendersChosenSteps(t *testing.T) {
	engine := execution.New(nil, nil, nil)
	solver := tot.New(engine, nil)

	tree := solver.Solve(context.Background(), "task-2", "Analyze request")
	ctxString := tot.GetSuccessfulContext(tree)
	for _, id := range tree.SuccessfulPath {
		branch := tree.Branches[id]
		assert.Contains(t, ctxString, branch.Step)
	}
}

func TestExplorationEfficiencyIsWithinUnitRange(t *testing.T) {
	engine := execution.New(nil, nil, nil)
	solver := tot.New(engine, nil)
	tree := solver.Solve(context.Background(), "task-3", "Analyze request")
	eff := tot.ExplorationEfficiency(tree)
	assert.GreaterOrEqual(t, eff, 0.0)
	assert.LessOrEqual(t, eff, 1.0)
}
