// Package orchestrator is the top-level composition wiring session, intent,
// retrieval, decompose, decide, optimize, execute and record into one
// ProcessRequest pipeline.
package orchestrator

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/corepilot/core/internal/logging"
	"github.com/corepilot/core/pkg/decision"
	"github.com/corepilot/core/pkg/decompose"
	"github.com/corepilot/core/pkg/execution"
	"github.com/corepilot/core/pkg/intent"
	"github.com/corepilot/core/pkg/knowledge"
	"github.com/corepilot/core/pkg/metalearn"
	"github.com/corepilot/core/pkg/planner"
	"github.com/corepilot/core/pkg/session"
	"github.com/corepilot/core/pkg/types"
)

// Recorder persists a completed execution; satisfied by *knowledge.Store.
type Recorder interface {
	RecordExecution(ctx context.Context, taskID, intent string, results []types.StepResult, summary types.ExecutionSummary) error
}

// Orchestrator composes every pipeline stage behind one ProcessRequest
// entry point.
type Orchestrator struct {
	Sessions    *session.Store
	Planner     *planner.Planner
	MetaLearner *metalearn.MetaLearner
	Execution   *execution.Engine
	Retrieval   execution.RetrievalBackend
	Knowledge   Recorder
	Logger      logging.Logger
}

// New wires an Orchestrator from its component stores/engines. retrieval
// and knowledge may be nil, in which case their stages are skipped.
func New(sessions *session.Store, p *planner.Planner, meta *metalearn.MetaLearner, exec *execution.Engine, retrieval execution.RetrievalBackend, kn Recorder, logger logging.Logger) *Orchestrator {
	if logger == nil {
		logger = logging.NoOp{}
	}
	return &Orchestrator{
		Sessions: sessions, Planner: p, MetaLearner: meta,
		Execution: exec, Retrieval: retrieval, Knowledge: kn, Logger: logger,
	}
}

// Response is ProcessRequest's terminal output.
type Response struct {
	TaskID  string                `json:"task_id"`
	Session string                `json:"session_id"`
	Intent  types.IntentTag       `json:"intent"`
	Pattern types.Pattern         `json:"pattern"`
	Verdict types.Verdict         `json:"verdict"`
	Steps   []string              `json:"steps"`
	Results []types.StepResult    `json:"results,omitempty"`
	Summary types.ExecutionSummary `json:"summary,omitempty"`
	Reply   string                `json:"reply"`
}

// ProcessRequest runs the 8-stage autonomous pipeline: session -> intent ->
// retrieval -> decompose -> decide -> optimize -> execute-gate -> execute ->
// record -> respond. autoExecute is the caller's explicit go-ahead: the
// effective-execution gate only runs steps when it is true AND the verdict
// didn't land on require_approval.
func (o *Orchestrator) ProcessRequest(ctx context.Context, sessionID, message string, autoExecute bool) (Response, error) {
	// 1. session
	sess := o.Sessions.GetOrCreate(sessionID)
	o.Sessions.Append(sess.ID, types.Message{Role: types.RoleUser, Text: message})

	// 2. intent
	tag := intent.Classify(message)
	entities := intent.Extract(message)
	pattern := intent.DerivePattern(message)

	// 3. retrieval (best-effort; a retrieval failure does not block the
	// pipeline, it only withholds context from the decision engine)
	var retrievalContext string
	retrievalPresent := false
	if o.Retrieval != nil {
		if found, err := o.Retrieval.Search(ctx, message); err == nil && found != "" {
			retrievalContext = found
			retrievalPresent = true
		} else if err != nil {
			o.Logger.Warn("orchestrator: retrieval stage failed", map[string]interface{}{"error": err.Error()})
		}
	}

	// 4. decompose
	steps := decompose.Decompose(message)

	// 5. decide
	rate, hasHistory := o.Planner.SuccessRate(pattern)
	verdict := decision.Decide(decision.Context{
		Intent:                  tag,
		Message:                 message,
		Pattern:                 pattern,
		HistoricalSuccessRate:   rate,
		HasHistory:              hasHistory,
		Entities:                entities,
		RetrievalContextPresent: retrievalPresent,
	})

	// 6. optimize
	optimized := planner.OptimizeSteps(steps)
	if _, _, suggestions := o.Planner.SuggestImprovements(message, optimized); len(suggestions) > 0 {
		verdict.OptimizationRecommended = true
	}

	taskID := uuid.NewString()
	resp := Response{
		TaskID: taskID, Session: sess.ID, Intent: tag, Pattern: pattern,
		Verdict: verdict, Steps: optimized,
	}

	// 7. execute-gate: respond and require_approval verdicts never execute;
	// an actionable verdict still only runs when the caller set
	// auto_execute — otherwise it returns a plan preview inviting it.
	if verdict.Action == types.ActionRespond || verdict.Action == types.ActionRequireApproval {
		resp.Reply = replyFor(verdict, retrievalContext)
		o.Sessions.Append(sess.ID, types.Message{Role: types.RoleAssistant, Text: resp.Reply})
		return resp, nil
	}
	if !autoExecute {
		resp.Reply = planPreview(optimized)
		o.Sessions.Append(sess.ID, types.Message{Role: types.RoleAssistant, Text: resp.Reply})
		return resp, nil
	}

	// 8. execute
	results, err := o.Execution.ExecuteTask(ctx, taskID, optimized, types.StepData{})
	if err != nil {
		return resp, fmt.Errorf("orchestrator: execute task %s: %w", taskID, err)
	}
	summary := types.Summarize(results)
	resp.Results = results
	resp.Summary = summary

	// record
	o.Planner.RecordExecution(taskID, pattern, optimized, results, summary)
	o.MetaLearner.RecordLearningEvent(metalearn.StrategyPatternRecognition, summary.Status == types.SummaryCompleted)
	if o.Knowledge != nil {
		if err := o.Knowledge.RecordExecution(ctx, taskID, string(tag), results, summary); err != nil {
			o.Logger.Warn("orchestrator: knowledge record failed", map[string]interface{}{"error": err.Error()})
		}
	}

	resp.Reply = fmt.Sprintf("completed %d/%d steps (%.1f%% success rate)", summary.Successful, summary.Total, summary.SuccessRate)
	o.Sessions.Append(sess.ID, types.Message{Role: types.RoleAssistant, Text: resp.Reply})
	return resp, nil
}

func replyFor(verdict types.Verdict, retrievalContext string) string {
	switch verdict.Action {
	case types.ActionRequireApproval:
		return "this request needs human approval before execution: " + joinReasoning(verdict.Reasoning)
	default:
		if retrievalContext != "" {
			return retrievalContext
		}
		return "no execution required for this request"
	}
}

// planPreview renders the optimized plan without running it, for the case
// where the verdict would permit execution but the caller didn't set
// auto_execute.
func planPreview(steps []string) string {
	out := "plan ready, send auto_execute=true to run it:"
	for i, s := range steps {
		out += fmt.Sprintf(" %d) %s", i+1, s)
	}
	return out
}

func joinReasoning(reasons []string) string {
	if len(reasons) == 0 {
		return "risk threshold exceeded"
	}
	out := reasons[0]
	for _, r := range reasons[1:] {
		out += "; " + r
	}
	return out
}
