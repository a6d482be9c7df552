// Package metrics implements the Metrics Store: rolling per-service
// statistics, a memoized health analysis, trend prediction, and auto-heal
// opportunity detection. Prometheus instrumentation is layered on top of
// the rolling in-memory windows rather than replacing them, since the
// analysis/trend/auto-heal outputs need direct access to the raw samples.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/corepilot/core/pkg/types"
)

const windowSize = 100

// serviceWindow holds the last windowSize latency samples and running error
// count for one service.
type serviceWindow struct {
	latencies []float64 // ring buffer, oldest overwritten first
	next      int
	filled    int
	errors    int
	queries   int
}

func (w *serviceWindow) record(latencyMS float64, success bool) {
	if len(w.latencies) < windowSize {
		w.latencies = append(w.latencies, latencyMS)
	} else {
		w.latencies[w.next] = latencyMS
		w.next = (w.next + 1) % windowSize
	}
	if w.filled < windowSize {
		w.filled++
	}
	w.queries++
	if !success {
		w.errors++
	}
}

func (w *serviceWindow) avgLatency() float64 {
	if w.filled == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < w.filled; i++ {
		sum += w.latencies[i]
	}
	return sum / float64(w.filled)
}

// recentErrorRatio reports errors over queries for the service, used by
// trend prediction's degradation check. Both are lifetime counts, not
// limited to the in-window latency samples.
func (w *serviceWindow) recentErrorRatio() float64 {
	if w.queries == 0 {
		return 0
	}
	return float64(w.errors) / float64(w.queries)
}

// Analysis is the Metrics Store's analyze() output.
type Analysis struct {
	HealthScore float64  `json:"health_score"`
	Issues      []string `json:"issues"`
	Suggestions []string `json:"suggestions"`
	computedAt  time.Time
}

// Prediction is one trend-prediction finding.
type Prediction struct {
	Service string `json:"service"`
	Issue   string `json:"issue"`
}

// AutoHealAction is one auto-heal candidate.
type AutoHealAction struct {
	Service string `json:"service"`
	Action  string `json:"action"` // "restart_service" or "increase_memory"
	Reason  string `json:"reason"`
}

// preference tracks whether a suggestion kind was previously applied or
// dismissed, for the learning-bias adjustment.
type preference struct {
	applied   bool
	dismissed bool
}

// Store is the process-wide Metrics Store singleton.
type Store struct {
	mu          sync.Mutex
	services    map[string]*serviceWindow
	totalQuery  int
	keywords    map[string]int
	preferences map[string]*preference

	lastAnalysis   *Analysis
	analysisMaxAge time.Duration

	now func() time.Time

	queryCounter   *prometheus.CounterVec
	errorCounter   *prometheus.CounterVec
	latencyHist    *prometheus.HistogramVec
	healthScoreGauge prometheus.Gauge
}

// NewStore builds a Store registered against reg. analysisMaxAge should be
// a few seconds, the memoization window; nowFn defaults to time.Now.
func NewStore(reg prometheus.Registerer, analysisMaxAge time.Duration, nowFn func() time.Time) *Store {
	if nowFn == nil {
		nowFn = time.Now
	}
	s := &Store{
		services:       make(map[string]*serviceWindow),
		keywords:       make(map[string]int),
		preferences:    make(map[string]*preference),
		analysisMaxAge: analysisMaxAge,
		now:            nowFn,
		queryCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "core_metrics_store_queries_total",
			Help: "Total queries recorded per service.",
		}, []string{"service"}),
		errorCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "core_metrics_store_errors_total",
			Help: "Total query errors recorded per service.",
		}, []string{"service"}),
		latencyHist: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "core_metrics_store_query_latency_ms",
			Help:    "Per-service query latency in milliseconds.",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10),
		}, []string{"service"}),
		healthScoreGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "core_metrics_store_health_score",
			Help: "Last computed system health score in [0,100].",
		}),
	}
	if reg != nil {
		reg.MustRegister(s.queryCounter, s.errorCounter, s.latencyHist, s.healthScoreGauge)
	}
	return s
}

// RecordQuery records one query observation for service.
func (s *Store) RecordQuery(service, query string, latencyMS float64, success bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.services[service]
	if !ok {
		w = &serviceWindow{}
		s.services[service] = w
	}
	w.record(latencyMS, success)
	s.totalQuery++
	for _, kw := range keywordsOf(query) {
		s.keywords[kw]++
	}

	s.queryCounter.WithLabelValues(service).Inc()
	s.latencyHist.WithLabelValues(service).Observe(latencyMS)
	if !success {
		s.errorCounter.WithLabelValues(service).Inc()
	}
}

func keywordsOf(query string) []string {
	var out []string
	word := make([]rune, 0, 16)
	flush := func() {
		if len(word) >= 3 {
			out = append(out, string(word))
		}
		word = word[:0]
	}
	for _, r := range query {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			word = append(word, r)
			continue
		}
		flush()
	}
	flush()
	return out
}

// TopKeywords returns the n most frequent query keywords, most-frequent
// first. Keywords with equal counts come out in no defined order.
func (s *Store) TopKeywords(n int) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	type kv struct {
		word  string
		count int
	}
	all := make([]kv, 0, len(s.keywords))
	for w, c := range s.keywords {
		all = append(all, kv{w, c})
	}
	for i := 1; i < len(all); i++ {
		j := i
		for j > 0 && all[j].count > all[j-1].count {
			all[j], all[j-1] = all[j-1], all[j]
			j--
		}
	}
	if n > len(all) {
		n = len(all)
	}
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = all[i].word
	}
	return out
}

// Analyze computes the health score and issue/suggestion analysis,
// memoized for s.analysisMaxAge.
func (s *Store) Analyze() Analysis {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.lastAnalysis != nil && now.Sub(s.lastAnalysis.computedAt) < s.analysisMaxAge {
		return *s.lastAnalysis
	}

	score := 100.0
	var issues, suggestions []string

	for name, w := range s.services {
		avg := w.avgLatency()
		switch {
		case avg > 500:
			score -= 10
			issues = append(issues, "service "+name+" average latency exceeds 500ms")
			if sugg := s.adjustedSuggestion("increase_memory", name); sugg != "" {
				suggestions = append(suggestions, sugg)
			}
		case avg > 300:
			score -= 5
			issues = append(issues, "service "+name+" average latency exceeds 300ms")
		}
		switch {
		case w.errors > 10:
			score -= 20
			issues = append(issues, "service "+name+" has more than 10 recorded errors")
			if sugg := s.adjustedSuggestion("restart_service", name); sugg != "" {
				suggestions = append(suggestions, sugg)
			}
		case w.errors > 5:
			score -= 10
			issues = append(issues, "service "+name+" has more than 5 recorded errors")
		}
	}
	if score < 0 {
		score = 0
	}

	a := Analysis{HealthScore: score, Issues: issues, Suggestions: suggestions, computedAt: now}
	s.lastAnalysis = &a
	s.healthScoreGauge.Set(score)
	return a
}

// adjustedSuggestion formats a suggestion string, suppressed or demoted if
// the user previously dismissed it, promoted if previously applied. A
// dismissed suggestion returns "" and is filtered by the caller's append.
func (s *Store) adjustedSuggestion(action, service string) string {
	key := action + ":" + service
	pref := s.preferences[key]
	base := action + " for " + service
	if pref == nil {
		return base
	}
	if pref.dismissed {
		return ""
	}
	if pref.applied {
		return "[preferred] " + base
	}
	return base
}

// RecordPreference implements the learning-bias feedback loop: applied
// marks the action as one the user has taken before; dismissed marks it as
// suppressed going forward.
func (s *Store) RecordPreference(action, service string, applied, dismissed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := action + ":" + service
	s.preferences[key] = &preference{applied: applied, dismissed: dismissed}
}

// PredictTrends scans per-service latency windows and lifetime error ratios
// for degradation signals.
func (s *Store) PredictTrends() []Prediction {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Prediction
	for name, w := range s.services {
		if w.filled < 2 {
			continue
		}
		firstHalf, secondHalf := splitAvg(w)
		if secondHalf > firstHalf*1.2 && secondHalf > 200 {
			out = append(out, Prediction{Service: name, Issue: "latency trending upward"})
		}
		if w.recentErrorRatio() > 0.1 {
			out = append(out, Prediction{Service: name, Issue: "elevated recent error ratio"})
		}
	}
	return out
}

func splitAvg(w *serviceWindow) (first, second float64) {
	mid := w.filled / 2
	if mid == 0 {
		return 0, 0
	}
	var sumFirst, sumSecond float64
	for i := 0; i < mid; i++ {
		sumFirst += w.latencies[i]
	}
	for i := mid; i < w.filled; i++ {
		sumSecond += w.latencies[i]
	}
	return sumFirst / float64(mid), sumSecond / float64(w.filled-mid)
}

// AutoHealOpportunities lists auto-heal candidates: services past the
// error or degradation thresholds used by Analyze.
func (s *Store) AutoHealOpportunities() []AutoHealAction {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []AutoHealAction
	for name, w := range s.services {
		if w.errors > 10 {
			out = append(out, AutoHealAction{Service: name, Action: "restart_service", Reason: "error count exceeds 10"})
		}
		if w.avgLatency() > 500 {
			out = append(out, AutoHealAction{Service: name, Action: "increase_memory", Reason: "average latency exceeds 500ms"})
		}
	}
	return out
}

// TotalQueries returns the all-time query count across all services.
func (s *Store) TotalQueries() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalQuery
}

// TotalErrors returns the all-time error count across all services, for
// the Predictive Engine's error_spike rule.
func (s *Store) TotalErrors() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total int
	for _, w := range s.services {
		total += w.errors
	}
	return total
}

// MaxServiceLatency returns the highest current per-service average
// latency, for the Predictive Engine's latency_increase rule.
func (s *Store) MaxServiceLatency() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var max float64
	for _, w := range s.services {
		if avg := w.avgLatency(); avg > max {
			max = avg
		}
	}
	return max
}

// Sample is exported for callers that want to persist an observation as a
// types.MetricSample.
func Sample(service, query string, latencyMS float64, success bool, at time.Time) types.MetricSample {
	return types.MetricSample{Service: service, Query: query, LatencyMS: latencyMS, Success: success, Timestamp: at}
}
