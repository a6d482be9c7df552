// Package intent classifies a request into an IntentTag and extracts
// recognized Entities, by fixed keyword-priority matching. Both operations
// are pure functions of the input string: no side effects, fully
// deterministic, with no ecosystem NLP library in the loop.
package intent

import (
	"strings"

	"github.com/corepilot/core/pkg/types"
)

type (
	IntentTag      = types.IntentTag
	EntityCategory = types.EntityCategory
	Entities       = types.Entities
	Pattern        = types.Pattern
)

const (
	IntentQuery   = types.IntentQuery
	IntentExecute = types.IntentExecute
	IntentModify  = types.IntentModify
	IntentAnalyze = types.IntentAnalyze
	IntentCreate  = types.IntentCreate

	EntityServices     = types.EntityServices
	EntityActions      = types.EntityActions
	EntityMetrics      = types.EntityMetrics
	EntityTechnologies = types.EntityTechnologies

	PatternHealthCheck    = types.PatternHealthCheck
	PatternAddCache       = types.PatternAddCache
	PatternAddService     = types.PatternAddService
	PatternCreateResource = types.PatternCreateResource
	PatternOptimization   = types.PatternOptimization
	PatternAnalysis       = types.PatternAnalysis
	PatternDebugging      = types.PatternDebugging
	PatternGeneric        = types.PatternGeneric
)

// priority-ordered verb classes; first match wins. The creation verbs are
// split in two here: a narrow pure-creation vocabulary
// (create/build/generate/scaffold) maps to IntentCreate, the remainder maps
// to IntentModify — the decision engine branches explicitly on
// "intent == create" for the safe-zone code-creation path, so this split
// keeps that branch reachable for genuine creation requests.
var (
	actionVerbs    = []string{"check", "test", "run", "execute", "restart", "deploy", "rollback", "apply", "fix", "debug"}
	pureCreation   = []string{"create", "build", "generate", "scaffold"}
	otherCreation  = []string{"add", "setup", "configure", "install", "update", "modify", "change", "remove", "delete"}
	analysisVerbs  = []string{"analyze", "analyse", "review", "inspect", "evaluate", "assess"}
	interrogatives = []string{"what", "why", "how", "when", "where", "who", "which", "?"}
)

// Classify assigns an IntentTag by the first matching priority class:
// action verbs -> execute, pure-creation verbs -> create, other creation
// verbs -> modify, analysis verbs -> analyze, interrogatives -> query,
// default -> query.
func Classify(text string) IntentTag {
	lower := strings.ToLower(text)

	if containsAny(lower, actionVerbs) {
		return IntentExecute
	}
	if containsAny(lower, pureCreation) {
		return IntentCreate
	}
	if containsAny(lower, otherCreation) {
		return IntentModify
	}
	if containsAny(lower, analysisVerbs) {
		return IntentAnalyze
	}
	if containsAny(lower, interrogatives) {
		return IntentQuery
	}
	return IntentQuery
}

func containsAny(lower string, vocabulary []string) bool {
	for _, word := range vocabulary {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}

// entity vocabulary: fixed tokens recognized per category, matched as
// lowercase substrings of the request text.
var entityVocabulary = map[EntityCategory][]string{
	EntityServices:     {"rag-api", "web-ui", "ollama", "redis", "postgres", "nginx", "arch-engine", "retrieval"},
	EntityActions:      {"restart", "deploy", "rollback", "scale", "backup", "rollout", "migrate"},
	EntityMetrics:      {"latency", "error rate", "throughput", "memory", "cpu", "health score", "success rate"},
	EntityTechnologies: {"docker", "docker-compose", "kubernetes", "redis", "postgres", "nginx", "python", "go"},
}

// Extract returns the Entities recognized in text across all four buckets.
func Extract(text string) Entities {
	lower := strings.ToLower(text)
	out := NewEntities()
	for category, vocabulary := range entityVocabulary {
		for _, token := range vocabulary {
			if strings.Contains(lower, token) {
				out.Add(category, token)
			}
		}
	}
	return out
}

// patternRules classify request text into a stable Pattern by the same
// keyword-priority discipline as Classify, producing the canonical names
// used everywhere downstream (adaptive planner, decision engine safety
// steps).
var patternRules = []struct {
	pattern  Pattern
	keywords []string
}{
	{PatternHealthCheck, []string{"health", "status", "check system"}},
	{PatternAddCache, []string{"cache", "caching"}},
	{PatternAddService, []string{"add service", "new service", "create service"}},
	{PatternCreateResource, []string{"create", "generate", "build", "scaffold"}},
	{PatternOptimization, []string{"optimize", "improve", "performance", "speed up"}},
	{PatternAnalysis, []string{"analyze", "analyse", "review", "inspect"}},
	{PatternDebugging, []string{"debug", "fix", "error", "broken", "failing"}},
}

// DerivePattern returns the stable Pattern tag for text, falling back to
// PatternGeneric when no rule matches.
func DerivePattern(text string) Pattern {
	lower := strings.ToLower(text)
	for _, rule := range patternRules {
		if containsAny(lower, rule.keywords) {
			return rule.pattern
		}
	}
	return PatternGeneric
}

// NewEntities returns an Entities value with all four buckets initialized.
func NewEntities() Entities { return types.NewEntities() }
