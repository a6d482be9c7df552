// Package types holds the shared data model for the orchestration core:
// requests, sessions, intents, plans, verdicts, and the tagged StepResult
// variant that threads execution context between steps.
package types

import (
	"sort"
	"time"
)

// Role identifies the speaker of a Message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn in a Session's conversation history.
type Message struct {
	Role      Role                   `json:"role"`
	Text      string                 `json:"text"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Session is an ordered conversation history. Sessions are append-only:
// Messages are never edited once appended.
type Session struct {
	ID           string                 `json:"id"`
	CreatedAt    time.Time              `json:"created_at"`
	LastActivity time.Time              `json:"last_activity"`
	Messages     []Message              `json:"messages"`
	Context      map[string]interface{} `json:"context"`
}

// IntentTag classifies a request into a coarse action category.
type IntentTag string

const (
	IntentQuery   IntentTag = "query"
	IntentExecute IntentTag = "execute"
	IntentModify  IntentTag = "modify"
	IntentAnalyze IntentTag = "analyze"
	IntentCreate  IntentTag = "create"
)

// EntityCategory names one of the four disjoint entity buckets.
type EntityCategory string

const (
	EntityServices     EntityCategory = "services"
	EntityActions      EntityCategory = "actions"
	EntityMetrics      EntityCategory = "metrics"
	EntityTechnologies EntityCategory = "technologies"
)

// Entities maps each category to the set of recognized tokens found in a
// request. A set is represented as a map to nil-struct for O(1) membership
// and deterministic iteration when sorted by caller.
type Entities map[EntityCategory]map[string]struct{}

// NewEntities returns an Entities value with all four buckets initialized
// empty, so callers never have to nil-check a category.
func NewEntities() Entities {
	return Entities{
		EntityServices:     {},
		EntityActions:      {},
		EntityMetrics:      {},
		EntityTechnologies: {},
	}
}

// Add records token under category.
func (e Entities) Add(category EntityCategory, token string) {
	bucket, ok := e[category]
	if !ok {
		bucket = map[string]struct{}{}
		e[category] = bucket
	}
	bucket[token] = struct{}{}
}

// Has reports whether token was recognized under category.
func (e Entities) Has(category EntityCategory, token string) bool {
	_, ok := e[category][token]
	return ok
}

// Sorted returns the tokens of category in ascending order, for stable
// rendering and testing.
func (e Entities) Sorted(category EntityCategory) []string {
	bucket := e[category]
	out := make([]string, 0, len(bucket))
	for token := range bucket {
		out = append(out, token)
	}
	sort.Strings(out)
	return out
}

// Pattern is a stable short identifier derived deterministically from
// request text; it is the key used throughout the learning loops.
type Pattern string

const (
	PatternHealthCheck     Pattern = "health_check"
	PatternAddCache        Pattern = "add_cache"
	PatternAddService      Pattern = "add_service"
	PatternCreateResource  Pattern = "create_resource"
	PatternOptimization    Pattern = "optimization"
	PatternAnalysis        Pattern = "analysis"
	PatternDebugging       Pattern = "debugging"
	PatternGeneric         Pattern = "generic"
)

// StepType classifies a single step string for ordering and deduplication.
type StepType string

const (
	StepHealthCheck StepType = "health_check"
	StepMetrics     StepType = "metrics"
	StepAnalysis    StepType = "analysis"
	StepGeneration  StepType = "generation"
	StepValidation  StepType = "validation"
	StepApplication StepType = "application"
	StepBackup      StepType = "backup"
	StepGeneric     StepType = "generic"
)

// SafetyLevel is the risk grade a Plan carries.
type SafetyLevel string

const (
	SafetyLow    SafetyLevel = "low"
	SafetyMedium SafetyLevel = "medium"
	SafetyHigh   SafetyLevel = "high"
)

// Action is the verdict the decision engine hands back to the orchestrator.
type Action string

const (
	ActionRespond         Action = "respond"
	ActionAutoExecute     Action = "auto_execute"
	ActionSuggestExecute  Action = "suggest_execute"
	ActionRequireApproval Action = "require_approval"
)

// SafetyStep names one of the two safety steps the decision engine may
// append to a plan.
type SafetyStep string

const (
	SafetyStepBackup     SafetyStep = "backup"
	SafetyStepValidation SafetyStep = "validation"
)

// FailurePoint is a predicted risk for one step of a Plan, produced by the
// Predictive Engine's predict_failure_points rule.
type FailurePoint struct {
	StepIndex   int     `json:"step_index"`
	Step        string  `json:"step"`
	Probability float64 `json:"probability"`
	Mitigation  string  `json:"mitigation"`
}

// Plan is an ordered sequence of step strings annotated with the metadata
// the decision pipeline attaches before execution.
type Plan struct {
	TaskID             string         `json:"task_id"`
	Steps              []string       `json:"steps"`
	PredictedFailures  []FailurePoint `json:"predicted_failures,omitempty"`
	SafetyLevel        SafetyLevel    `json:"safety_level"`
	Verdict            Verdict        `json:"verdict"`
	RequiresApproval   bool           `json:"requires_approval"`
	EstimatedDuration  time.Duration  `json:"estimated_duration"`
}

// Verdict is the decision engine's structured action-confidence-reasoning
// output.
type Verdict struct {
	Action                 Action       `json:"action"`
	Confidence             float64      `json:"confidence"`
	Reasoning              []string     `json:"reasoning"`
	SafetySteps            []SafetyStep `json:"safety_steps,omitempty"`
	OptimizationRecommended bool        `json:"optimization_recommended"`
}

// StepStatus is the tag of the StepResult sum type.
type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepSuccess   StepStatus = "success"
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "failed"
)

// StepData is the typed payload a successful step may carry forward. Only
// these fields are eligible for context threading; this is a struct rather
// than an untyped map so threading is checkable at compile time.
type StepData struct {
	ChangeID       string `json:"change_id,omitempty"`
	RollbackID     string `json:"rollback_id,omitempty"`
	GeneratedCode  string `json:"generated_code,omitempty"`
	TargetPath     string `json:"target_path,omitempty"`
	BackupCreated  bool   `json:"backup_created,omitempty"`
}

// Merge copies every non-zero field of other into s, accumulating the
// union of all previous success data carried by a step chain.
func (s *StepData) Merge(other StepData) {
	if other.ChangeID != "" {
		s.ChangeID = other.ChangeID
	}
	if other.RollbackID != "" {
		s.RollbackID = other.RollbackID
	}
	if other.GeneratedCode != "" {
		s.GeneratedCode = other.GeneratedCode
	}
	if other.TargetPath != "" {
		s.TargetPath = other.TargetPath
	}
	if other.BackupCreated {
		s.BackupCreated = true
	}
}

// StepResult is the tagged variant produced for one executed step.
type StepResult struct {
	Step      string     `json:"step"`
	Status    StepStatus `json:"status"`
	Data      StepData   `json:"data,omitempty"`
	Error     string     `json:"error,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
	Attempts  int        `json:"attempts,omitempty"`
}

// ExecutionSummaryStatus is the aggregate status over a plan's StepResults.
type ExecutionSummaryStatus string

const (
	SummaryCompleted ExecutionSummaryStatus = "completed"
	SummaryPartial   ExecutionSummaryStatus = "partial"
	SummaryFailed    ExecutionSummaryStatus = "failed"
)

// ExecutionSummary aggregates a plan's StepResults.
type ExecutionSummary struct {
	Total       int                    `json:"total"`
	Successful  int                    `json:"successful"`
	Failed      int                    `json:"failed"`
	SuccessRate float64                `json:"success_rate"`
	Status      ExecutionSummaryStatus `json:"status"`
}

// Summarize computes an ExecutionSummary from a completed plan's results:
// success_rate = 100 * (successful+completed) / total rounded to one
// decimal; status completed if failed==0, else partial if any success,
// else failed.
func Summarize(results []StepResult) ExecutionSummary {
	summary := ExecutionSummary{Total: len(results)}
	if summary.Total == 0 {
		summary.Status = SummaryCompleted
		return summary
	}
	for _, r := range results {
		switch r.Status {
		case StepSuccess, StepCompleted:
			summary.Successful++
		case StepFailed:
			summary.Failed++
		}
	}
	rate := 100 * float64(summary.Successful) / float64(summary.Total)
	summary.SuccessRate = roundTo1(rate)
	switch {
	case summary.Failed == 0:
		summary.Status = SummaryCompleted
	case summary.Successful > 0:
		summary.Status = SummaryPartial
	default:
		summary.Status = SummaryFailed
	}
	return summary
}

func roundTo1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}

// MetricSample is one outbound-call observation.
type MetricSample struct {
	Service   string    `json:"service"`
	Query     string    `json:"query"`
	LatencyMS float64   `json:"latency_ms"`
	Success   bool      `json:"success"`
	Timestamp time.Time `json:"timestamp"`
}

// CircuitStateTag is a per-target circuit breaker state.
type CircuitStateTag string

const (
	CircuitClosed   CircuitStateTag = "CLOSED"
	CircuitOpen     CircuitStateTag = "OPEN"
	CircuitHalfOpen CircuitStateTag = "HALF_OPEN"
)

// ThoughtStatus is the status of one ThoughtBranch.
type ThoughtStatus string

const (
	ThoughtPending ThoughtStatus = "pending"
	ThoughtSuccess ThoughtStatus = "success"
	ThoughtFailed  ThoughtStatus = "failed"
)

// ThoughtBranch is one candidate step explored by the Tree-of-Thought solver.
type ThoughtBranch struct {
	ID         string        `json:"id"`
	ParentID   string        `json:"parent_id,omitempty"`
	Step       string        `json:"step"`
	Strategy   string        `json:"strategy"`
	Reasoning  string        `json:"reasoning"`
	Confidence float64       `json:"confidence"`
	Status     ThoughtStatus `json:"status"`
	Result     *StepResult   `json:"result,omitempty"`
	ChildIDs   []string      `json:"child_ids,omitempty"`
}

// ThoughtTree is the full exploration record for one Tree-of-Thought task.
type ThoughtTree struct {
	TaskID         string                    `json:"task_id"`
	Branches       map[string]*ThoughtBranch `json:"branches"`
	SuccessfulPath []string                  `json:"successful_path"`
}

// GoalStatus is the status machine for a tracked Goal.
type GoalStatus string

const (
	GoalPending    GoalStatus = "pending"
	GoalInProgress GoalStatus = "in_progress"
	GoalCompleted  GoalStatus = "completed"
	GoalFailed     GoalStatus = "failed"
	GoalCancelled  GoalStatus = "cancelled"
)

// Goal is a longer-lived unit of work tracked across multiple orchestrator
// invocations.
type Goal struct {
	ID          string     `json:"id"`
	Description string     `json:"description"`
	Priority    string     `json:"priority"`
	Status      GoalStatus `json:"status"`
	Progress    float64    `json:"progress"`
	Steps       []string   `json:"steps"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Result      string     `json:"result,omitempty"`
}
