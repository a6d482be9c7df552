// Package tot is an alternative execution path that explores K candidate
// next steps per depth across three strategies, evaluates them in parallel,
// and exposes only the chosen successful trajectory downstream — failed
// branches are recorded in the tree but never surfaced to the caller.
// Depths execute strictly in sequence; only the candidates within one
// depth run concurrently.
package tot

import (
	"context"
	"fmt"
	"sync"

	"github.com/corepilot/core/pkg/execution"
	"github.com/corepilot/core/pkg/types"
)

const (
	branchWidth = 3
	maxDepth    = 5
)

// strategy names one of the three candidate-generation strategies, each
// with a distinct base confidence reflecting how speculative it is.
type strategy struct {
	name           string
	baseConfidence float64
}

var strategies = [branchWidth]strategy{
	{name: "direct", baseConfidence: 0.8},
	{name: "analytical", baseConfidence: 0.65},
	{name: "creative", baseConfidence: 0.45},
}

// Generator produces the next candidate step text for a strategy, given the
// task and the step history taken so far on the chosen path. Swapped in by
// the caller (typically backed by the inference backend); kept as an
// interface so the solver itself stays a pure control-flow component.
type Generator interface {
	NextStep(ctx context.Context, task string, strategyName string, history []string) (string, error)
}

// Solver runs the tree-of-thought exploration on top of an execution.Engine.
type Solver struct {
	Engine    *execution.Engine
	Generator Generator
}

// New returns a Solver wired to engine and generator.
func New(engine *execution.Engine, generator Generator) *Solver {
	return &Solver{Engine: engine, Generator: generator}
}

// Solve runs the tree-of-thought algorithm: at each depth, generate K
// candidates from the three strategies, evaluate them all in parallel via
// the execution engine, keep the single best successful branch, and stop
// early on task completion, max depth, or a depth with no successful
// branch.
func (s *Solver) Solve(ctx context.Context, taskID, task string) *types.ThoughtTree {
	tree := &types.ThoughtTree{
		TaskID:   taskID,
		Branches: make(map[string]*types.ThoughtBranch),
	}

	threadCtx := types.StepData{}
	var history []string

	for depth := 0; depth < maxDepth; depth++ {
		candidates := s.generateCandidates(ctx, task, history, depth)
		evaluated := s.evaluateParallel(ctx, candidates, threadCtx)

		for _, b := range evaluated {
			tree.Branches[b.ID] = b
		}

		best := bestSuccessful(evaluated)
		if best == nil {
			break
		}

		tree.SuccessfulPath = append(tree.SuccessfulPath, best.ID)
		history = append(history, best.Step)
		if best.Result != nil {
			threadCtx.Merge(best.Result.Data)
			if best.Result.Status == types.StepCompleted && isTerminal(best.Result) {
				break
			}
		}
	}

	return tree
}

func (s *Solver) generateCandidates(ctx context.Context, task string, history []string, depth int) []*types.ThoughtBranch {
	candidates := make([]*types.ThoughtBranch, 0, branchWidth)
	for _, strat := range strategies {
		id := fmt.Sprintf("branch-d%d-%s", depth, strat.name)
		step := task
		if s.Generator != nil {
			if generated, err := s.Generator.NextStep(ctx, task, strat.name, history); err == nil && generated != "" {
				step = generated
			}
		}
		candidates = append(candidates, &types.ThoughtBranch{
			ID:         id,
			Step:       step,
			Strategy:   strat.name,
			Confidence: strat.baseConfidence,
			Status:     types.ThoughtPending,
		})
	}
	return candidates
}

// evaluateParallel runs each candidate through the execution engine
// concurrently, one goroutine per candidate, bounded by the solver's
// fixed branch width.
func (s *Solver) evaluateParallel(ctx context.Context, candidates []*types.ThoughtBranch, baseCtx types.StepData) []*types.ThoughtBranch {
	var wg sync.WaitGroup
	for _, c := range candidates {
		wg.Add(1)
		go func(branch *types.ThoughtBranch) {
			defer wg.Done()
			localCtx := baseCtx
			result := s.Engine.ExecuteStep(ctx, branch.Step, &localCtx)
			branch.Result = &result
			if result.Status == types.StepFailed {
				branch.Status = types.ThoughtFailed
			} else {
				branch.Status = types.ThoughtSuccess
			}
		}(c)
	}
	wg.Wait()
	return candidates
}

// bestSuccessful returns the successful candidate with the highest
// confidence, or nil if none succeeded.
func bestSuccessful(candidates []*types.ThoughtBranch) *types.ThoughtBranch {
	var best *types.ThoughtBranch
	for _, c := range candidates {
		if c.Status != types.ThoughtSuccess {
			continue
		}
		if best == nil || c.Confidence > best.Confidence {
			best = c
		}
	}
	return best
}

// isTerminal reports whether a step result signals the task is complete.
// There is no dedicated "done" flag in StepResult, so completion is
// inferred from a non-empty target path or generated code having been
// produced — the two fields the code-generation/file-creation dispatch
// branches populate on their terminal step.
func isTerminal(result *types.StepResult) bool {
	return result.Data.TargetPath != "" || result.Data.GeneratedCode != ""
}

// ExplorationEfficiency reports successful/total branches explored, a
// self-measured metric; the downstream caller only ever sees the
// successful trajectory.
func ExplorationEfficiency(tree *types.ThoughtTree) float64 {
	if len(tree.Branches) == 0 {
		return 0
	}
	successful := 0
	for _, b := range tree.Branches {
		if b.Status == types.ThoughtSuccess {
			successful++
		}
	}
	return float64(successful) / float64(len(tree.Branches))
}

// GetSuccessfulContext renders a string containing only the chosen
// steps, each annotated "success" — failed branches are never rendered
// here.
func GetSuccessfulContext(tree *types.ThoughtTree) string {
	out := ""
	for _, id := range tree.SuccessfulPath {
		branch, ok := tree.Branches[id]
		if !ok {
			continue
		}
		out += branch.Step + ": success\n"
	}
	return out
}
