package goal_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corepilot/core/pkg/goal"
)

func TestCreateGoalStartsActive(t *testing.T) {
	store := goal.New()
	g := store.CreateGoal("migrate billing to new schema")
	assert.Equal(t, goal.StatusActive, g.Status)
	assert.NotEmpty(t, g.ID)
}

func TestAdvanceAppendsStepsInOrder(t *testing.T) {
	store := goal.New()
	g := store.CreateGoal("roll out feature flag")

	require.True(t, store.Advance(g.ID, goal.Step{TaskID: "t1", Summary: "enabled for 10%", Success: true}))
	require.True(t, store.Advance(g.ID, goal.Step{TaskID: "t2", Summary: "enabled for 50%", Success: true}))

	got, ok := store.Get(g.ID)
	require.True(t, ok)
	require.Len(t, got.Steps, 2)
	assert.Equal(t, "t1", got.Steps[0].TaskID)
	assert.Equal(t, "t2", got.Steps[1].TaskID)
}

func TestAdvanceOnCompletedGoalIsNoOp(t *testing.T) {
	store := goal.New()
	g := store.CreateGoal("one-off task")
	require.True(t, store.Complete(g.ID, false))

	assert.False(t, store.Advance(g.ID, goal.Step{TaskID: "late", Success: true}))
}

func TestListFiltersByStatus(t *testing.T) {
	store := goal.New()
	active := store.CreateGoal("active goal")
	done := store.CreateGoal("done goal")
	store.Complete(done.ID, false)

	actives := store.List(goal.StatusActive)
	require.Len(t, actives, 1)
	assert.Equal(t, active.ID, actives[0].ID)
}
