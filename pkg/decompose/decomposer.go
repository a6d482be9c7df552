// Package decompose is a pure pattern matcher producing a fixed ordered
// step list for a request. It never consults outside state.
package decompose

import (
	"strings"

	"github.com/corepilot/core/pkg/types"
)

// rule pairs a trigger predicate with its fixed step list. Rules are tried
// in order; the first whose predicate matches the lowercased request text
// wins. This mirrors the numbered-precedence dispatch-table discipline used
// elsewhere in the system. match takes precedence over keywords when both
// are set; keywords is the common case of "any of these substrings".
type rule struct {
	keywords []string
	match    func(lower string) bool
	steps    []string
}

func (r rule) matches(lower string) bool {
	if r.match != nil {
		return r.match(lower)
	}
	for _, kw := range r.keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

var codeCreationVerbs = []string{"create", "write", "build", "generate", "scaffold", "make"}
var codeCreationNouns = []string{"script", "code", "program", "game", "app", "function"}

func isCodeCreationRequest(lower string) bool {
	hasVerb := false
	for _, v := range codeCreationVerbs {
		if strings.Contains(lower, v) {
			hasVerb = true
			break
		}
	}
	if !hasVerb {
		return false
	}
	for _, n := range codeCreationNouns {
		if strings.Contains(lower, n) {
			return true
		}
	}
	return false
}

var rules = []rule{
	{
		keywords: []string{"health", "status"},
		steps: []string{
			"Check retrieval service health",
			"Check inference service health",
			"Check architecture service health",
			"Aggregate health results",
			"Report system health status",
		},
	},
	{
		keywords: []string{"optimize", "improve", "performance", "speed up"},
		steps: []string{
			"Measure current performance baseline",
			"Analyze performance bottlenecks",
			"Propose optimization changes",
			"Validate proposed changes",
			"Apply optimization",
		},
	},
	{
		keywords: []string{"add cache", "create cache", "caching"},
		steps: []string{
			"Analyze current architecture",
			"Design cache layer",
			"Generate cache configuration",
			"Create backup point",
			"Apply cache configuration",
			"Verify cache service health",
		},
	},
	{
		keywords: []string{"add service", "new service", "create service"},
		steps: []string{
			"Analyze current architecture",
			"Design new service",
			"Generate service configuration",
			"Create backup point",
			"Apply service configuration",
			"Verify new service health",
		},
	},
	{
		match: isCodeCreationRequest,
		steps: []string{
			"Analyze requested code",
			"Design implementation",
			"Generate code",
			"Validate generated code",
			"Create file in safe zone",
			"Verify file exists",
		},
	},
	{
		keywords: []string{"fix", "debug", "broken", "failing", "error"},
		steps: []string{
			"Gather recent error metrics",
			"Analyze root cause",
			"Propose fix",
			"Apply fix",
			"Verify fix resolved the issue",
		},
	},
	{
		keywords: []string{"analyze", "analyse", "review", "inspect"},
		steps: []string{
			"Gather current metrics",
			"Analyze trends and patterns",
			"Summarize findings",
		},
	},
	{
		keywords: []string{"deploy", "rollout", "release"},
		steps: []string{
			"Validate deployment target",
			"Create backup point",
			"Apply deployment",
			"Verify deployment health",
		},
	},
}

var genericSteps = []string{
	"Analyze request",
	"Determine applicable action",
	"Execute request",
}

// Decompose returns the fixed step list for the first matching pattern
// rule, or a generic three-step fallback. Every returned element is a
// non-empty string, and the count never exceeds maxSteps callers configure
// elsewhere (the fixed lists here are all well under any reasonable cap).
func Decompose(text string) []string {
	lower := strings.ToLower(text)
	for _, r := range rules {
		if r.matches(lower) {
			return append([]string(nil), r.steps...)
		}
	}
	return append([]string(nil), genericSteps...)
}

// Classify assigns a StepType to a single step string by keyword matching,
// used by the adaptive planner for ordering and deduplication.
func Classify(step string) types.StepType {
	lower := strings.ToLower(step)
	switch {
	case strings.Contains(lower, "backup"):
		return types.StepBackup
	case strings.Contains(lower, "validat"):
		return types.StepValidation
	case strings.Contains(lower, "generat") || strings.Contains(lower, "design"):
		return types.StepGeneration
	case strings.Contains(lower, "apply"):
		return types.StepApplication
	case strings.Contains(lower, "health") || strings.Contains(lower, "verify") || strings.Contains(lower, "verif"):
		// "verify"/"verification" steps re-run a health check and are
		// classified as health_check rather than a distinct type, since
		// StepType's enum has no separate "verification" tag.
		return types.StepHealthCheck
	case strings.Contains(lower, "metric"):
		return types.StepMetrics
	case strings.Contains(lower, "analy") || strings.Contains(lower, "review") || strings.Contains(lower, "inspect") || strings.Contains(lower, "summar"):
		return types.StepAnalysis
	default:
		return types.StepGeneric
	}
}
