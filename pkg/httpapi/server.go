// Package httpapi exposes the orchestration core over HTTP: the
// representative endpoint list, a per-client rate limiter, and CORS,
// routed through go-chi/chi/v5 and go-chi/cors.
package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"

	"github.com/corepilot/core/internal/logging"
	"github.com/corepilot/core/pkg/circuitbreaker"
	"github.com/corepilot/core/pkg/decision"
	"github.com/corepilot/core/pkg/decompose"
	"github.com/corepilot/core/pkg/execution"
	"github.com/corepilot/core/pkg/goal"
	"github.com/corepilot/core/pkg/health"
	"github.com/corepilot/core/pkg/intent"
	"github.com/corepilot/core/pkg/metalearn"
	"github.com/corepilot/core/pkg/metrics"
	"github.com/corepilot/core/pkg/orchestrator"
	"github.com/corepilot/core/pkg/planner"
	"github.com/corepilot/core/pkg/predictive"
	"github.com/corepilot/core/pkg/selfimprove"
	"github.com/corepilot/core/pkg/selfmod"
	"github.com/corepilot/core/pkg/session"
	"github.com/corepilot/core/pkg/tot"
	"github.com/corepilot/core/pkg/types"
)

// Server composes every component behind the HTTP surface.
type Server struct {
	Orchestrator *orchestrator.Orchestrator
	Sessions     *session.Store
	Planner      *planner.Planner
	MetaLearner  *metalearn.MetaLearner
	Metrics      *metrics.Store
	Breaker      *circuitbreaker.Registry
	Execution    *execution.Engine
	Solver       *tot.Solver
	SelfMod      *selfmod.Gate
	Goals        *goal.Store
	Health       *health.Monitor
	Logger       logging.Logger

	mu         sync.Mutex
	trees      map[string]*types.ThoughtTree
	recentMu   sync.Mutex
	recent     []orchestrator.Response
}

// New wires a Server and returns its chi router.
func New(s *Server) http.Handler {
	if s.Logger == nil {
		s.Logger = logging.NoOp{}
	}
	s.trees = make(map[string]*types.ThoughtTree)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Content-Type"},
	}))
	r.Use(rateLimitMiddleware(100, time.Minute))

	r.Post("/api/autonomous", s.handleAutonomous)
	r.Post("/api/execute", s.handleExecute)
	r.Post("/api/chat", s.handleChat)
	r.Get("/api/status", s.handleStatus)

	r.Get("/api/metrics/stats", s.handleMetricsStats)
	r.Get("/api/metrics/analysis", s.handleMetricsAnalysis)
	r.Get("/api/metrics/health", s.handleMetricsHealth)
	r.Get("/api/metrics/insights", s.handleMetricsInsights)

	r.Get("/api/planning/predictions", s.handlePlanningPredictions)
	r.Get("/api/planning/action-plan", s.handlePlanningActionPlan)
	r.Post("/api/planning/execute-plan", s.handlePlanningExecutePlan)

	r.Get("/api/resilience/circuit-breakers", s.handleResilienceCircuitBreakers)
	r.Post("/api/resilience/reset-circuit", s.handleResilienceResetCircuit)

	r.Get("/api/tree-of-thought/status", s.handleToTStatus)
	r.Post("/api/tree-of-thought/solve", s.handleToTSolve)
	r.Get("/api/tree-of-thought/context/{tree_id}", s.handleToTContext)

	r.Get("/api/self-modification/status", s.handleSelfModStatus)
	r.Post("/api/self-modification/propose", s.handleSelfModPropose)
	r.Post("/api/self-modification/autonomous", s.handleSelfModAutonomous)

	r.Get("/api/learning/insights", s.handleLearningInsights)
	r.Get("/api/learning/adaptive", s.handleLearningAdaptive)
	r.Get("/api/decisions/insights", s.handleDecisionsInsights)
	r.Get("/api/meta-learning/insights", s.handleMetaLearningInsights)
	r.Get("/api/predictive/analyze", s.handlePredictiveAnalyze)
	r.Get("/api/predictive/insights", s.handlePredictiveInsights)
	r.Get("/api/self-improvement/analyze", s.handleSelfImprovementAnalyze)
	r.Get("/api/self-improvement/plan", s.handleSelfImprovementPlan)
	r.Get("/api/self-improvement/insights", s.handleSelfImprovementInsights)

	return r
}

// rateLimitMiddleware gives each client, keyed by RemoteAddr, its own
// golang.org/x/time/rate token bucket: a burst of up to requests, refilled
// at requests per window. It is not a strict sliding window; a client that
// starts with a full bucket can get more than requests through in one window.
func rateLimitMiddleware(requests int, window time.Duration) func(http.Handler) http.Handler {
	var mu sync.Mutex
	limiters := make(map[string]*rate.Limiter)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			mu.Lock()
			lim, ok := limiters[req.RemoteAddr]
			if !ok {
				lim = rate.NewLimiter(rate.Every(window/time.Duration(requests)), requests)
				limiters[req.RemoteAddr] = lim
			}
			mu.Unlock()

			if !lim.Allow() {
				writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "too many requests"})
				return
			}
			next.ServeHTTP(w, req)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string, err error) {
	fields := map[string]interface{}{"error": err.Error()}
	s.Logger.Error(msg, fields)
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) recordRecent(resp orchestrator.Response) {
	s.recentMu.Lock()
	defer s.recentMu.Unlock()
	s.recent = append(s.recent, resp)
	if len(s.recent) > 50 {
		s.recent = s.recent[len(s.recent)-50:]
	}
}

func (s *Server) recentSnapshot() []orchestrator.Response {
	s.recentMu.Lock()
	defer s.recentMu.Unlock()
	out := make([]orchestrator.Response, len(s.recent))
	copy(out, s.recent)
	return out
}

// -- primary endpoints --

// handleAutonomous is the primary orchestrator endpoint, which takes form
// fields (message, session_id?, auto_execute) rather than a JSON body,
// unlike every other endpoint in this surface.
func (s *Server) handleAutonomous(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.writeError(w, http.StatusBadRequest, "failed to parse form", err)
		return
	}
	message := r.FormValue("message")
	sessionID := r.FormValue("session_id")
	autoExecute, _ := strconv.ParseBool(r.FormValue("auto_execute"))

	resp, err := s.Orchestrator.ProcessRequest(r.Context(), sessionID, message, autoExecute)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to process request", err)
		return
	}
	s.recordRecent(resp)
	writeJSON(w, http.StatusOK, resp)
}

type executeRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

// handleExecute is the legacy non-planning executor: it decomposes and runs
// a plan directly, skipping the decision-engine gate, kept for
// compatibility with callers that predate the autonomous pipeline.
func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if err := decodeRequest(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "failed to parse request", err)
		return
	}
	steps := decompose.Decompose(req.Message)
	results, err := s.Execution.ExecuteTask(r.Context(), req.SessionID, steps, types.StepData{})
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "execution failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"steps": steps, "results": results, "summary": types.Summarize(results),
	})
}

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

// handleChat is conversational-only: it classifies intent and replies, but
// never decomposes or executes a plan.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeRequest(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "failed to parse request", err)
		return
	}
	sess := s.Sessions.GetOrCreate(req.SessionID)
	s.Sessions.Append(sess.ID, types.Message{Role: types.RoleUser, Text: req.Message})

	tag := intent.Classify(req.Message)
	reply := "I can discuss this, but this endpoint does not execute plans."
	s.Sessions.Append(sess.ID, types.Message{Role: types.RoleAssistant, Text: reply})

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session_id": sess.ID, "intent": tag, "reply": reply,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{"sessions": s.Sessions.Count()}
	if s.Breaker != nil {
		targets := s.Breaker.Targets()
		states := make(map[string]types.CircuitStateTag, len(targets))
		for _, t := range targets {
			states[t] = s.Breaker.State(t)
		}
		status["circuit_breakers"] = states
	}
	writeJSON(w, http.StatusOK, status)
}

// -- metrics --

func (s *Server) handleMetricsStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"total_queries": s.Metrics.TotalQueries(),
		"top_keywords":  s.Metrics.TopKeywords(10),
	})
}

func (s *Server) handleMetricsAnalysis(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Metrics.Analyze())
}

func (s *Server) handleMetricsHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]float64{"health_score": s.Metrics.Analyze().HealthScore})
}

func (s *Server) handleMetricsInsights(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"trends":    s.Metrics.PredictTrends(),
		"auto_heal": s.Metrics.AutoHealOpportunities(),
	})
}

// -- planning --

func (s *Server) predictiveInputs() predictive.Inputs {
	rate := 100.0
	if recent := s.recentSnapshot(); len(recent) > 0 {
		rate = recent[len(recent)-1].Summary.SuccessRate
	}
	return predictive.Inputs{
		SuccessRate:       rate,
		TotalErrors:       s.Metrics.TotalErrors(),
		MaxServiceLatency: s.Metrics.MaxServiceLatency(),
		PatternsLearned:   s.Planner.PatternsLearned(),
		TotalQueries:      s.Metrics.TotalQueries(),
	}
}

func (s *Server) handlePlanningPredictions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, predictive.Predict(s.predictiveInputs()))
}

func (s *Server) handlePlanningActionPlan(w http.ResponseWriter, r *http.Request) {
	message := r.URL.Query().Get("message")
	steps := decompose.Decompose(message)
	optimized := planner.OptimizeSteps(steps)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"steps": optimized, "failure_points": predictive.PredictFailurePoints(optimized),
	})
}

type executePlanRequest struct {
	TaskID string   `json:"task_id"`
	Steps  []string `json:"steps"`
}

func (s *Server) handlePlanningExecutePlan(w http.ResponseWriter, r *http.Request) {
	var req executePlanRequest
	if err := decodeRequest(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "failed to parse request", err)
		return
	}
	results, err := s.Execution.ExecuteTask(r.Context(), req.TaskID, req.Steps, types.StepData{})
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "execution failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"results": results, "summary": types.Summarize(results)})
}

// -- resilience --

func (s *Server) handleResilienceCircuitBreakers(w http.ResponseWriter, r *http.Request) {
	targets := s.Breaker.Targets()
	out := make(map[string]interface{}, len(targets))
	for _, t := range targets {
		out[t] = map[string]interface{}{"state": s.Breaker.State(t), "counts": s.Breaker.Counts(t)}
	}
	writeJSON(w, http.StatusOK, out)
}

type resetCircuitRequest struct {
	Target string `json:"target"`
}

func (s *Server) handleResilienceResetCircuit(w http.ResponseWriter, r *http.Request) {
	var req resetCircuitRequest
	if err := decodeRequest(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "failed to parse request", err)
		return
	}
	s.Breaker.Reset(req.Target)
	writeJSON(w, http.StatusOK, map[string]string{"target": req.Target, "status": "reset"})
}

// -- tree-of-thought --

func (s *Server) handleToTStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]interface{}{"trees_tracked": len(s.trees)})
}

type totSolveRequest struct {
	TaskID string `json:"task_id"`
	Task   string `json:"task"`
}

func (s *Server) handleToTSolve(w http.ResponseWriter, r *http.Request) {
	var req totSolveRequest
	if err := decodeRequest(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "failed to parse request", err)
		return
	}
	tree := s.Solver.Solve(r.Context(), req.TaskID, req.Task)

	s.mu.Lock()
	s.trees[tree.TaskID] = tree
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tree_id":     tree.TaskID,
		"efficiency":  tot.ExplorationEfficiency(tree),
		"branches":    len(tree.Branches),
	})
}

func (s *Server) handleToTContext(w http.ResponseWriter, r *http.Request) {
	treeID := chi.URLParam(r, "tree_id")
	s.mu.Lock()
	tree, ok := s.trees[treeID]
	s.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "tree not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tree_id": treeID,
		"context": tot.GetSuccessfulContext(tree),
		"efficiency": tot.ExplorationEfficiency(tree),
	})
}

// -- self-modification --

func (s *Server) handleSelfModStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type selfModProposeRequest struct {
	Path        string `json:"path"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

func (s *Server) handleSelfModPropose(w http.ResponseWriter, r *http.Request) {
	var req selfModProposeRequest
	if err := decodeRequest(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "failed to parse request", err)
		return
	}
	proposal, err := s.SelfMod.ProposeModification(req.Path, selfmod.ModType(req.Type), req.Description)
	if err != nil {
		s.writeError(w, http.StatusForbidden, "modification rejected", err)
		return
	}
	writeJSON(w, http.StatusOK, proposal)
}

// handleSelfModAutonomous surfaces the self-improvement plan's immediate
// bucket as candidate autonomous modifications, without applying any of
// them — applying still goes through /propose + explicit approval.
func (s *Server) handleSelfModAutonomous(w http.ResponseWriter, r *http.Request) {
	plan := selfimprove.Prioritize(s.selfImprovementOpportunities())
	writeJSON(w, http.StatusOK, map[string]interface{}{"candidates": plan.Immediate})
}

// -- learning / decisions / meta-learning / predictive / self-improvement --

func (s *Server) handleLearningInsights(w http.ResponseWriter, r *http.Request) {
	out := map[string]interface{}{"velocity": s.MetaLearner.Velocity()}
	for _, strat := range []metalearn.Strategy{
		metalearn.StrategyPatternRecognition, metalearn.StrategyErrorAnalysis,
		metalearn.StrategyContextAdaptation, metalearn.StrategyFeedbackIntegration,
		metalearn.StrategyPerformanceOptimization,
	} {
		if rate, used := s.MetaLearner.Effectiveness(strat); used {
			out[string(strat)] = rate
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleLearningAdaptive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"history":          s.Planner.History(),
		"patterns_learned": s.Planner.PatternsLearned(),
	})
}

func (s *Server) handleDecisionsInsights(w http.ResponseWriter, r *http.Request) {
	message := r.URL.Query().Get("message")
	if message == "" {
		writeJSON(w, http.StatusOK, map[string]interface{}{"recent": s.recentSnapshot()})
		return
	}
	tag := intent.Classify(message)
	pattern := intent.DerivePattern(message)
	rate, hasHistory := s.Planner.SuccessRate(pattern)
	verdict := decision.Decide(decision.Context{
		Intent: tag, Message: message, Pattern: pattern,
		HistoricalSuccessRate: rate, HasHistory: hasHistory,
	})
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"verdict":      verdict,
		"safe_zone":    decision.IsInSafeZone(message),
		"safety_level": decision.SafetyLevelFor(verdict, message),
	})
}

func (s *Server) handleMetaLearningInsights(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"velocity":             s.MetaLearner.Velocity(),
		"flagged_improvement":  s.MetaLearner.FlaggedForImprovement(),
		"flagged_activation":   s.MetaLearner.FlaggedForActivation(),
	})
}

func (s *Server) handlePredictiveAnalyze(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, predictive.Predict(s.predictiveInputs()))
}

func (s *Server) handlePredictiveInsights(w http.ResponseWriter, r *http.Request) {
	recent := s.recentSnapshot()
	if len(recent) == 0 {
		writeJSON(w, http.StatusOK, []types.FailurePoint{})
		return
	}
	last := recent[len(recent)-1]
	writeJSON(w, http.StatusOK, predictive.PredictFailurePoints(last.Steps))
}

func (s *Server) selfImprovementOpportunities() []selfimprove.Opportunity {
	analysis := s.Metrics.Analyze()
	return selfimprove.Analyze(selfimprove.Signals{
		MetricIssues:      analysis.Issues,
		MetricHealthScore: analysis.HealthScore,
		FlaggedStrategies: stringsOf(s.MetaLearner.FlaggedForImprovement()),
	})
}

func stringsOf(strategies []metalearn.Strategy) []string {
	out := make([]string, len(strategies))
	for i, s := range strategies {
		out[i] = string(s)
	}
	return out
}

func (s *Server) handleSelfImprovementAnalyze(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.selfImprovementOpportunities())
}

func (s *Server) handleSelfImprovementPlan(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, selfimprove.Prioritize(s.selfImprovementOpportunities()))
}

func (s *Server) handleSelfImprovementInsights(w http.ResponseWriter, r *http.Request) {
	plan := selfimprove.Prioritize(s.selfImprovementOpportunities())
	writeJSON(w, http.StatusOK, map[string]int{
		"immediate": len(plan.Immediate), "scheduled": len(plan.Scheduled), "backlog": len(plan.Backlog),
	})
}

func decodeRequest(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
