// Package metalearn implements the Meta-Learner: tracks effectiveness of
// five named learning strategies, recommends one for a given context, and
// classifies the system's current learning velocity.
package metalearn

import "sync"

// Strategy names one of the five fixed learning strategies.
type Strategy string

const (
	StrategyPatternRecognition    Strategy = "pattern_recognition"
	StrategyErrorAnalysis         Strategy = "error_analysis"
	StrategyContextAdaptation     Strategy = "context_adaptation"
	StrategyFeedbackIntegration   Strategy = "feedback_integration"
	StrategyPerformanceOptimization Strategy = "performance_optimization"
)

var allStrategies = []Strategy{
	StrategyPatternRecognition,
	StrategyErrorAnalysis,
	StrategyContextAdaptation,
	StrategyFeedbackIntegration,
	StrategyPerformanceOptimization,
}

// Context is the input to RecommendStrategy.
type Context struct {
	HasErrors               bool
	RetrievalContextPresent bool
	IsHealthCheckOrAnalysis bool
}

type stats struct {
	successes int
	uses      int
}

func (s stats) effectiveness() float64 {
	if s.uses == 0 {
		return 0
	}
	return float64(s.successes) / float64(s.uses)
}

// event is one recorded outcome, retained for the recent-20-vs-prior-20
// learning-velocity comparison.
type event struct {
	success bool
}

// MetaLearner is the process-wide registry.
type MetaLearner struct {
	mu      sync.Mutex
	stats   map[Strategy]*stats
	history []event
}

// New returns a MetaLearner with all five strategies registered at zero
// uses, so an "unused" flag is meaningful from the start.
func New() *MetaLearner {
	m := &MetaLearner{stats: make(map[Strategy]*stats)}
	for _, s := range allStrategies {
		m.stats[s] = &stats{}
	}
	return m
}

// RecommendStrategy selects a strategy in priority order: error_analysis
// when there are errors, context_adaptation when retrieval context is
// present, pattern_recognition for health_check/analysis tasks, else the
// highest-effectiveness strategy.
func (m *MetaLearner) RecommendStrategy(ctx Context) Strategy {
	switch {
	case ctx.HasErrors:
		return StrategyErrorAnalysis
	case ctx.RetrievalContextPresent:
		return StrategyContextAdaptation
	case ctx.IsHealthCheckOrAnalysis:
		return StrategyPatternRecognition
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	var best Strategy
	bestEff := -1.0
	for _, s := range allStrategies {
		eff := m.stats[s].effectiveness()
		if eff > bestEff {
			bestEff = eff
			best = s
		}
	}
	return best
}

// RecordLearningEvent updates the chosen strategy's running effectiveness
// and appends to the velocity history.
func (m *MetaLearner) RecordLearningEvent(strategy Strategy, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.stats[strategy]
	if !ok {
		s = &stats{}
		m.stats[strategy] = s
	}
	s.uses++
	if success {
		s.successes++
	}
	m.history = append(m.history, event{success: success})
}

// Effectiveness returns strategy's current successes/uses ratio and
// whether it has ever been used.
func (m *MetaLearner) Effectiveness(strategy Strategy) (rate float64, used bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.stats[strategy]
	if !ok || s.uses == 0 {
		return 0, false
	}
	return s.effectiveness(), true
}

// Velocity classifies learning velocity: "fast" if the most recent 20
// events' success rate exceeds the prior 20's by more than 10 percentage
// points, "moderate" if positive but not fast, else "slow".
func (m *MetaLearner) Velocity() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.history) < 40 {
		return "slow"
	}
	recent := m.history[len(m.history)-20:]
	prior := m.history[len(m.history)-40 : len(m.history)-20]
	recentRate := rateOf(recent)
	priorRate := rateOf(prior)
	delta := recentRate - priorRate
	switch {
	case delta > 10:
		return "fast"
	case delta > 0:
		return "moderate"
	default:
		return "slow"
	}
}

func rateOf(events []event) float64 {
	if len(events) == 0 {
		return 0
	}
	successes := 0
	for _, e := range events {
		if e.success {
			successes++
		}
	}
	return 100 * float64(successes) / float64(len(events))
}

// FlaggedForImprovement lists strategies with >=5 uses and effectiveness
// below 0.6.
func (m *MetaLearner) FlaggedForImprovement() []Strategy {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Strategy
	for _, s := range allStrategies {
		st := m.stats[s]
		if st.uses >= 5 && st.effectiveness() < 0.6 {
			out = append(out, s)
		}
	}
	return out
}

// FlaggedForActivation lists strategies that have never been used.
func (m *MetaLearner) FlaggedForActivation() []Strategy {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Strategy
	for _, s := range allStrategies {
		if m.stats[s].uses == 0 {
			out = append(out, s)
		}
	}
	return out
}
