// Package planner implements the Adaptive Planner: records executions by
// pattern, reports historical success, reorders/deduplicates steps, and
// suggests missing safety steps. It is an owned-per-process value store
// mutated under a single mutex, not a back-pointer object graph.
package planner

import (
	"sort"
	"sync"

	"github.com/corepilot/core/pkg/decompose"
	"github.com/corepilot/core/pkg/intent"
	"github.com/corepilot/core/pkg/types"
)

// stepPerf is one recorded outcome for a StepType.
type stepPerf struct {
	success bool
	latency float64
}

// patternStats tracks successes/total for one Pattern.
type patternStats struct {
	successes int
	total     int
}

// SuccessRate returns the pattern's historical success percentage in [0,100].
func (s patternStats) SuccessRate() float64 {
	if s.total == 0 {
		return 0
	}
	return 100 * float64(s.successes) / float64(s.total)
}

// Suggestion is one record returned by SuggestImprovements.
type Suggestion struct {
	Kind    string // "pattern_warning", "step_warning", "missing_step"
	Message string
	Step    string // populated for missing_step suggestions
}

// ExecutionRecord is one bounded execution-history log entry.
type ExecutionRecord struct {
	TaskID  string
	Pattern types.Pattern
	Steps   []string
	Results []types.StepResult
	Summary types.ExecutionSummary
}

const maxHistory = 500

// Planner is the process-wide Adaptive Planner singleton.
type Planner struct {
	mu               sync.Mutex
	patternSuccess   map[types.Pattern]*patternStats
	stepPerformance  map[types.StepType][]stepPerf
	executionHistory []ExecutionRecord
}

// New returns an empty Planner.
func New() *Planner {
	return &Planner{
		patternSuccess:  make(map[types.Pattern]*patternStats),
		stepPerformance: make(map[types.StepType][]stepPerf),
	}
}

// SuccessRate returns pattern's historical success rate and whether any
// execution has been recorded for it yet.
func (p *Planner) SuccessRate(pattern types.Pattern) (rate float64, hasHistory bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	stats, ok := p.patternSuccess[pattern]
	if !ok || stats.total == 0 {
		return 0, false
	}
	return stats.SuccessRate(), true
}

// stepFailureRate returns the fraction of recorded outcomes for stepType
// that failed.
func (p *Planner) stepFailureRate(stepType types.StepType) float64 {
	perf := p.stepPerformance[stepType]
	if len(perf) == 0 {
		return 0
	}
	failures := 0
	for _, r := range perf {
		if !r.success {
			failures++
		}
	}
	return float64(failures) / float64(len(perf))
}

// SuggestImprovements returns the pattern, its historical success rate,
// and suggestion records for a low-performing pattern, high-failure step
// types, and missing safety steps.
func (p *Planner) SuggestImprovements(task string, proposedSteps []string) (types.Pattern, float64, []Suggestion) {
	pattern := derivePatternFromTask(task)

	p.mu.Lock()
	rate, hasHistory := 0.0, false
	if stats, ok := p.patternSuccess[pattern]; ok && stats.total > 0 {
		rate = stats.SuccessRate()
		hasHistory = true
	}

	var suggestions []Suggestion
	if hasHistory && rate < 80 {
		suggestions = append(suggestions, Suggestion{
			Kind:    "pattern_warning",
			Message: "pattern has a historical success rate below 80%",
		})
	}

	seenTypes := map[types.StepType]bool{}
	for _, step := range proposedSteps {
		st := decompose.Classify(step)
		seenTypes[st] = true
		if failRate := p.stepFailureRate(st); failRate > 0.2 {
			suggestions = append(suggestions, Suggestion{
				Kind:    "step_warning",
				Message: "step type has a failure rate above 20%",
				Step:    step,
			})
		}
	}
	p.mu.Unlock()

	if pattern == types.PatternAddService && !seenTypes[types.StepBackup] {
		suggestions = append(suggestions, Suggestion{
			Kind:    "missing_step",
			Message: "add_service pattern has no backup step",
			Step:    "Create backup point",
		})
	}
	if pattern == types.PatternOptimization && !seenTypes[types.StepAnalysis] {
		suggestions = append(suggestions, Suggestion{
			Kind:    "missing_step",
			Message: "optimization pattern has no measurement step",
			Step:    "Measure current performance baseline",
		})
	}

	return pattern, rate, suggestions
}

// stepPriority is the fixed band order optimize_steps sorts by.
// Verification has no band of its own here — it is folded into
// health_check — see decompose.Classify's own note.
var stepPriority = map[types.StepType]int{
	types.StepBackup:      0,
	types.StepValidation:  1,
	types.StepGeneration:  2,
	types.StepApplication: 3,
	types.StepHealthCheck: 4,
	types.StepMetrics:     5,
	types.StepAnalysis:    6,
	types.StepGeneric:     7,
}

// OptimizeSteps drops a second backup step if one already exists, then
// stably reorders by the fixed StepType priority band, preserving relative
// order within a band.
func OptimizeSteps(steps []string) []string {
	deduped := make([]string, 0, len(steps))
	seenBackup := false
	for _, s := range steps {
		if decompose.Classify(s) == types.StepBackup {
			if seenBackup {
				continue
			}
			seenBackup = true
		}
		deduped = append(deduped, s)
	}

	type indexed struct {
		step string
		band int
		pos  int
	}
	tagged := make([]indexed, len(deduped))
	for i, s := range deduped {
		tagged[i] = indexed{step: s, band: stepPriority[decompose.Classify(s)], pos: i}
	}
	sort.SliceStable(tagged, func(i, j int) bool {
		return tagged[i].band < tagged[j].band
	})

	out := make([]string, len(tagged))
	for i, t := range tagged {
		out[i] = t.step
	}
	return out
}

// RecordExecution updates pattern success rates, step performance, and the
// bounded execution history. A summary with status "completed" counts as a
// success for the pattern.
func (p *Planner) RecordExecution(taskID string, pattern types.Pattern, steps []string, results []types.StepResult, summary types.ExecutionSummary) {
	p.mu.Lock()
	defer p.mu.Unlock()

	stats, ok := p.patternSuccess[pattern]
	if !ok {
		stats = &patternStats{}
		p.patternSuccess[pattern] = stats
	}
	stats.total++
	if summary.Status == types.SummaryCompleted {
		stats.successes++
	}

	for _, r := range results {
		st := decompose.Classify(r.Step)
		p.stepPerformance[st] = append(p.stepPerformance[st], stepPerf{
			success: r.Status == types.StepSuccess || r.Status == types.StepCompleted,
		})
	}

	p.executionHistory = append(p.executionHistory, ExecutionRecord{
		TaskID:  taskID,
		Pattern: pattern,
		Steps:   steps,
		Results: results,
		Summary: summary,
	})
	if len(p.executionHistory) > maxHistory {
		p.executionHistory = p.executionHistory[len(p.executionHistory)-maxHistory:]
	}
}

// History returns a copy of the bounded execution log, most-recent-last.
func (p *Planner) History() []ExecutionRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]ExecutionRecord, len(p.executionHistory))
	copy(out, p.executionHistory)
	return out
}

// PatternsLearned reports the number of distinct patterns with at least one
// recorded execution, used by the Predictive Engine's insufficient_learning
// rule.
func (p *Planner) PatternsLearned() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.patternSuccess)
}

func derivePatternFromTask(task string) types.Pattern {
	return intent.DerivePattern(task)
}
