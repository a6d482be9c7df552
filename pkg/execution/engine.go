// Package execution implements the Execution Engine: runs an ordered step
// list under anti-loop guards, routes each step through a
// fixed-precedence dispatch table, and threads a typed context between
// steps. Outbound calls are wrapped by the circuit breaker registry.
package execution

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/corepilot/core/internal/apperrors"
	"github.com/corepilot/core/internal/logging"
	"github.com/corepilot/core/pkg/circuitbreaker"
	"github.com/corepilot/core/pkg/decision"
	"github.com/corepilot/core/pkg/metrics"
	"github.com/corepilot/core/pkg/types"
)

const (
	maxSteps       = 50
	stepTimeout    = 30 * time.Second
	criticalToken  = "critical"
)

// InferenceBackend generates code for the code-generation workflow step.
type InferenceBackend interface {
	Generate(ctx context.Context, prompt string) (code string, err error)
}

// ArchitectureBackend proposes and applies configuration changes.
type ArchitectureBackend interface {
	ProposeConfig(ctx context.Context, target string) (changeID string, err error)
	Apply(ctx context.Context, changeID string) error
}

// RetrievalBackend performs a knowledge search.
type RetrievalBackend interface {
	Search(ctx context.Context, query string) (string, error)
}

// HealthChecker checks one service's health.
type HealthChecker interface {
	Check(ctx context.Context, service string) (healthy bool, err error)
}

// Engine is the Execution Engine. All backend fields are optional; a nil
// backend makes its dispatch branch fall through to a synthetic result
// rather than panicking, so the engine remains usable in tests that only
// exercise a subset of step kinds.
type Engine struct {
	Breaker      *circuitbreaker.Registry
	Metrics      *metrics.Store
	Inference    InferenceBackend
	Architecture ArchitectureBackend
	Retrieval    RetrievalBackend
	Health       HealthChecker
	Logger       logging.Logger

	mu          sync.Mutex
	taskCounter map[string]int
}

// New returns an Engine with the given backends wired in.
func New(breaker *circuitbreaker.Registry, store *metrics.Store, logger logging.Logger) *Engine {
	return &Engine{
		Breaker:     breaker,
		Metrics:     store,
		Logger:      logger,
		taskCounter: make(map[string]int),
	}
}

// ExecuteTask runs steps in order under the anti-loop caps, returning every
// StepResult produced (including any synthetic LOOP_PROTECTION result
// appended at the point execution stopped). A failed step whose text
// contains "critical" ends the run after its own result.
func (e *Engine) ExecuteTask(ctx context.Context, taskID string, steps []string, initial types.StepData) ([]types.StepResult, error) {
	if len(steps) > maxSteps {
		return nil, apperrors.New("ExecuteTask", "loop_guard", apperrors.ErrLoopGuard)
	}

	threadCtx := initial
	results := make([]types.StepResult, 0, len(steps))

	for _, step := range steps {
		count := e.incrementCounter(taskID)
		if count > maxSteps {
			results = append(results, types.StepResult{
				Step:      step,
				Status:    types.StepFailed,
				Error:     "LOOP_PROTECTION",
				Timestamp: time.Now(),
			})
			break
		}

		result := e.ExecuteStep(ctx, step, &threadCtx)
		results = append(results, result)

		if result.Status == types.StepFailed && strings.Contains(strings.ToLower(step), criticalToken) {
			break
		}
	}

	return results, nil
}

func (e *Engine) incrementCounter(taskID string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.taskCounter[taskID]++
	return e.taskCounter[taskID]
}

// stepKind is the dispatch-table bucket a step routes to.
type stepKind int

const (
	kindFolderCreate stepKind = iota
	kindCodeGeneration
	kindHealthCheck
	kindMetricsAnalysis
	kindConfigApply
	kindSafetyValidation
	kindBackupCreate
	kindVerification
	kindOptimizationList
	kindRetrievalSearch
	kindFallback
)

// route implements the fixed step-routing precedence. Distinguishing
// "check" (health check) from "verify" (verification, which re-runs a
// health check) keeps the two bands disjoint even though both ultimately
// touch health.
func route(step string) stepKind {
	lower := strings.ToLower(step)
	switch {
	case (strings.Contains(lower, "create folder") || strings.Contains(lower, "create directory") || strings.Contains(lower, "make directory") ||
		strings.Contains(lower, "create file") || strings.Contains(lower, "write file") || strings.Contains(lower, "safe zone")):
		return kindFolderCreate
	case strings.Contains(lower, "generate") || strings.Contains(lower, "design"):
		return kindCodeGeneration
	case strings.Contains(lower, "check") && strings.Contains(lower, "health"):
		return kindHealthCheck
	case strings.Contains(lower, "metric") || strings.Contains(lower, "analy") || strings.Contains(lower, "measure") || strings.Contains(lower, "summar"):
		return kindMetricsAnalysis
	case strings.Contains(lower, "apply"):
		return kindConfigApply
	case strings.Contains(lower, "validat"):
		return kindSafetyValidation
	case strings.Contains(lower, "backup"):
		return kindBackupCreate
	case strings.Contains(lower, "verify") || strings.Contains(lower, "verif"):
		return kindVerification
	case strings.Contains(lower, "optimization opportunit"):
		return kindOptimizationList
	case strings.Contains(lower, "search") || strings.Contains(lower, "retriev"):
		return kindRetrievalSearch
	default:
		return kindFallback
	}
}

// ExecuteStep runs one step, mutating threadCtx when success yields a
// transferable field.
func (e *Engine) ExecuteStep(ctx context.Context, step string, threadCtx *types.StepData) types.StepResult {
	stepCtx, cancel := context.WithTimeout(ctx, stepTimeout)
	defer cancel()

	switch route(step) {
	case kindFolderCreate:
		return e.completeWith(step, types.StepData{TargetPath: step})
	case kindCodeGeneration:
		return e.runCodeGeneration(stepCtx, step, threadCtx)
	case kindHealthCheck:
		return e.runHealthCheck(stepCtx, step)
	case kindMetricsAnalysis:
		return e.runMetricsAnalysis(step)
	case kindConfigApply:
		return e.runConfigApply(stepCtx, step, threadCtx)
	case kindSafetyValidation:
		return e.runSafetyValidation(step, threadCtx)
	case kindBackupCreate:
		return e.runBackupCreate(step, threadCtx)
	case kindVerification:
		return e.runHealthCheck(stepCtx, step)
	case kindOptimizationList:
		return e.completeWith(step, types.StepData{})
	case kindRetrievalSearch:
		return e.runRetrievalSearch(stepCtx, step)
	default:
		return e.completeWith(step, types.StepData{})
	}
}

// callBreaker runs fn under e.Breaker when one is configured, or runs it
// directly otherwise — Engine is usable in tests that wire backends without
// a circuit breaker registry.
func (e *Engine) callBreaker(ctx context.Context, target string, fn func(ctx context.Context) (interface{}, error)) (interface{}, error) {
	if e.Breaker == nil {
		return fn(ctx)
	}
	return e.Breaker.Call(ctx, target, fn)
}

// maxRetries bounds the decision engine's retry policy: up to 3 retries
// on a transient error, none on a permanent one.
const maxRetries = 3

// callWithRetry runs fn under the circuit breaker, retrying per
// decision.RetryPolicy while the error text is transient. It returns the
// result (or final error) together with the total number of attempts made,
// so callers can record it on the StepResult.
func (e *Engine) callWithRetry(ctx context.Context, target string, fn func(ctx context.Context) (interface{}, error)) (interface{}, error, int) {
	attempts := 0
	retries := 0
	for {
		result, err := e.callBreaker(ctx, target, fn)
		attempts++
		if err == nil {
			return result, nil, attempts
		}
		if !decision.RetryPolicy(err.Error(), retries, maxRetries) {
			return nil, err, attempts
		}
		retries++
	}
}

func (e *Engine) completeWith(step string, data types.StepData) types.StepResult {
	return types.StepResult{Step: step, Status: types.StepCompleted, Data: data, Timestamp: time.Now()}
}

func (e *Engine) completeWithAttempts(step string, data types.StepData, attempts int) types.StepResult {
	return types.StepResult{Step: step, Status: types.StepCompleted, Data: data, Timestamp: time.Now(), Attempts: attempts}
}

func (e *Engine) failWith(step string, err error) types.StepResult {
	return types.StepResult{Step: step, Status: types.StepFailed, Error: err.Error(), Timestamp: time.Now()}
}

func (e *Engine) failWithAttempts(step string, err error, attempts int) types.StepResult {
	return types.StepResult{Step: step, Status: types.StepFailed, Error: err.Error(), Timestamp: time.Now(), Attempts: attempts}
}

func (e *Engine) runCodeGeneration(ctx context.Context, step string, threadCtx *types.StepData) types.StepResult {
	if e.Inference == nil {
		return e.completeWith(step, types.StepData{})
	}
	result, err, attempts := e.callWithRetry(ctx, "inference", func(ctx context.Context) (interface{}, error) {
		return e.Inference.Generate(ctx, step)
	})
	if err != nil {
		return e.failWithAttempts(step, err, attempts)
	}
	code, _ := result.(string)
	data := types.StepData{GeneratedCode: code}
	threadCtx.Merge(data)
	return e.completeWithAttempts(step, data, attempts)
}

func (e *Engine) runHealthCheck(ctx context.Context, step string) types.StepResult {
	if e.Health == nil {
		return e.completeWith(step, types.StepData{})
	}
	service := serviceNameFromStep(step)
	result, err, attempts := e.callWithRetry(ctx, service, func(ctx context.Context) (interface{}, error) {
		return e.Health.Check(ctx, service)
	})
	if err != nil {
		return e.failWithAttempts(step, err, attempts)
	}
	healthy, _ := result.(bool)
	if !healthy {
		return e.failWithAttempts(step, apperrors.New("HealthCheck", "unhealthy", apperrors.ErrValidationFailed), attempts)
	}
	return e.completeWithAttempts(step, types.StepData{}, attempts)
}

func serviceNameFromStep(step string) string {
	lower := strings.ToLower(step)
	switch {
	case strings.Contains(lower, "retrieval"):
		return "retrieval"
	case strings.Contains(lower, "inference"):
		return "inference"
	case strings.Contains(lower, "architecture"):
		return "architecture"
	case strings.Contains(lower, "cache"):
		return "cache"
	case strings.Contains(lower, "deployment"):
		return "deployment"
	default:
		return "service"
	}
}

func (e *Engine) runMetricsAnalysis(step string) types.StepResult {
	if e.Metrics == nil {
		return e.completeWith(step, types.StepData{})
	}
	e.Metrics.Analyze()
	return e.completeWith(step, types.StepData{})
}

func (e *Engine) runConfigApply(ctx context.Context, step string, threadCtx *types.StepData) types.StepResult {
	if e.Architecture == nil {
		return e.completeWith(step, types.StepData{})
	}
	totalAttempts := 0
	changeID := threadCtx.ChangeID
	if changeID == "" {
		result, err, attempts := e.callWithRetry(ctx, "architecture", func(ctx context.Context) (interface{}, error) {
			return e.Architecture.ProposeConfig(ctx, step)
		})
		totalAttempts += attempts
		if err != nil {
			return e.failWithAttempts(step, err, totalAttempts)
		}
		changeID, _ = result.(string)
	}
	_, err, attempts := e.callWithRetry(ctx, "architecture", func(ctx context.Context) (interface{}, error) {
		return nil, e.Architecture.Apply(ctx, changeID)
	})
	totalAttempts += attempts
	if err != nil {
		return e.failWithAttempts(step, err, totalAttempts)
	}
	data := types.StepData{ChangeID: changeID}
	threadCtx.Merge(data)
	return e.completeWithAttempts(step, data, totalAttempts)
}

// runSafetyValidation backs both the config-apply workflow's safety
// validation (passes only once a prior step supplied a change id) and the
// code-generation workflow's validate-generated-code step (passes once a
// prior step supplied generated code): validation fails only when neither
// is present, i.e. there is nothing yet to validate.
func (e *Engine) runSafetyValidation(step string, threadCtx *types.StepData) types.StepResult {
	if threadCtx.ChangeID == "" && threadCtx.GeneratedCode == "" {
		return e.failWith(step, apperrors.ErrValidationFailed)
	}
	return e.completeWith(step, types.StepData{})
}

func (e *Engine) runBackupCreate(step string, threadCtx *types.StepData) types.StepResult {
	data := types.StepData{RollbackID: "backup-" + syntheticID(step), BackupCreated: true}
	threadCtx.Merge(data)
	return e.completeWith(step, data)
}

func (e *Engine) runRetrievalSearch(ctx context.Context, step string) types.StepResult {
	if e.Retrieval == nil {
		return e.completeWith(step, types.StepData{})
	}
	_, err, attempts := e.callWithRetry(ctx, "retrieval", func(ctx context.Context) (interface{}, error) {
		return e.Retrieval.Search(ctx, step)
	})
	if err != nil {
		return e.failWithAttempts(step, err, attempts)
	}
	return e.completeWithAttempts(step, types.StepData{}, attempts)
}

// syntheticID derives a short, deterministic id from step text, used for
// backup/rollback ids that need no external source of randomness.
func syntheticID(step string) string {
	var sum uint32
	for i, r := range step {
		sum += uint32(r) * uint32(i+1)
	}
	const digits = "0123456789abcdef"
	out := make([]byte, 8)
	for i := range out {
		out[i] = digits[(sum>>(uint(i)*4))&0xf]
	}
	return string(out)
}
