// Package apperrors provides the sentinel errors and the structured
// CoreError type shared across the orchestration core.
package apperrors

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for comparison with errors.Is().
var (
	ErrCircuitOpen      = errors.New("circuit breaker open")
	ErrLoopGuard        = errors.New("loop protection triggered")
	ErrProtectedPath    = errors.New("path is protected from modification")
	ErrNotInSafeZone    = errors.New("path is not in an allowed safe zone")
	ErrDangerousPattern = errors.New("content contains a disallowed pattern")
	ErrValidationFailed = errors.New("validation failed")
	ErrSyntaxInvalid    = errors.New("modified content failed syntax validation")
	ErrMaxStepsExceeded = errors.New("plan exceeds maximum step count")
	ErrStepTimeout      = errors.New("step execution timed out")
	ErrRateLimited      = errors.New("rate limit exceeded")

	// ErrRequireApproval is a signal, not a failure: the plan is returned
	// without being executed. Callers test for it with errors.Is and must
	// never log it at Error level.
	ErrRequireApproval = errors.New("plan requires human approval")
)

// CoreError carries structured context for a failure: which operation,
// what kind of error, which entity, and the wrapped cause.
type CoreError struct {
	Op      string
	Kind    string
	ID      string
	Message string
	Err     error
}

func (e *CoreError) Error() string {
	if e.Op != "" && e.Err != nil {
		if e.ID != "" {
			return fmt.Sprintf("%s [%s]: %v", e.Op, e.ID, e.Err)
		}
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s error", e.Kind)
}

func (e *CoreError) Unwrap() error {
	return e.Err
}

// New builds a CoreError for op failing because of err, tagged with kind.
func New(op, kind string, err error) *CoreError {
	return &CoreError{Op: op, Kind: kind, Err: err}
}

// transientPatterns and permanentPatterns back the decision engine's retry
// policy: retry on transient-looking failure text, never on permanent.
var transientPatterns = []string{"timeout", "connection", "temporary", "unavailable"}
var permanentPatterns = []string{"not found", "invalid", "forbidden", "unauthorized"}

// IsTransient reports whether errText matches a transient failure pattern.
func IsTransient(errText string) bool {
	return containsAny(errText, transientPatterns)
}

// IsPermanent reports whether errText matches a permanent failure pattern.
func IsPermanent(errText string) bool {
	return containsAny(errText, permanentPatterns)
}

func containsAny(haystack string, needles []string) bool {
	lower := strings.ToLower(haystack)
	for _, n := range needles {
		if strings.Contains(lower, n) {
			return true
		}
	}
	return false
}
