// Package selfimprove scans metrics/adaptive/decision insights and
// produces prioritized improvement opportunities, bucketed into
// immediate/scheduled/backlog by impact and confidence thresholds.
package selfimprove

import "github.com/corepilot/core/pkg/types"

// Impact is the magnitude bucket an ImprovementOpportunity carries.
type Impact string

const (
	ImpactLow    Impact = "low"
	ImpactMedium Impact = "medium"
	ImpactHigh   Impact = "high"
)

var impactWeight = map[Impact]float64{ImpactLow: 1, ImpactMedium: 2, ImpactHigh: 3}

// Opportunity is one proposed improvement.
type Opportunity struct {
	Area       string  `json:"area"`
	Issue      string  `json:"issue"`
	Suggestion string  `json:"suggestion"`
	Impact     Impact  `json:"impact"`
	Confidence float64 `json:"confidence"`
}

// Score returns impact_weight * confidence, the prioritization score.
func (o Opportunity) Score() float64 {
	return impactWeight[o.Impact] * o.Confidence
}

// Bucket is the prioritization tier an Opportunity falls into.
type Bucket string

const (
	BucketImmediate Bucket = "immediate"
	BucketScheduled Bucket = "scheduled"
	BucketBacklog   Bucket = "backlog"
)

// BucketFor assigns a tier: immediate = high impact with confidence
// >= 0.8; scheduled = (high or medium) with confidence >= 0.6; backlog
// otherwise.
func BucketFor(o Opportunity) Bucket {
	switch {
	case o.Impact == ImpactHigh && o.Confidence >= 0.8:
		return BucketImmediate
	case (o.Impact == ImpactHigh || o.Impact == ImpactMedium) && o.Confidence >= 0.6:
		return BucketScheduled
	default:
		return BucketBacklog
	}
}

// Signals bundles the upstream analyses the engine scans.
type Signals struct {
	MetricIssues       []string
	MetricHealthScore  float64
	FlaggedStrategies  []string // meta-learner strategies flagged for improvement
	LowPerformPatterns []types.Pattern
}

// Analyze converts raw upstream issues into Opportunity records;
// Prioritize buckets them.
func Analyze(signals Signals) []Opportunity {
	var out []Opportunity

	if signals.MetricHealthScore < 50 {
		out = append(out, Opportunity{
			Area: "metrics", Issue: "overall health score below 50",
			Suggestion: "investigate the services named in current issues before accepting new work",
			Impact: ImpactHigh, Confidence: 0.85,
		})
	} else if signals.MetricHealthScore < 80 {
		out = append(out, Opportunity{
			Area: "metrics", Issue: "overall health score below 80",
			Suggestion: "review auto-heal opportunities for degraded services",
			Impact: ImpactMedium, Confidence: 0.65,
		})
	}

	for _, issue := range signals.MetricIssues {
		out = append(out, Opportunity{
			Area: "metrics", Issue: issue,
			Suggestion: "address the specific degraded-service issue before it compounds",
			Impact: ImpactMedium, Confidence: 0.6,
		})
	}

	for _, strategy := range signals.FlaggedStrategies {
		out = append(out, Opportunity{
			Area: "meta_learning", Issue: "learning strategy " + strategy + " has low effectiveness",
			Suggestion: "reduce reliance on " + strategy + " until its effectiveness recovers",
			Impact: ImpactMedium, Confidence: 0.7,
		})
	}

	for _, pattern := range signals.LowPerformPatterns {
		out = append(out, Opportunity{
			Area: "planner", Issue: "pattern " + string(pattern) + " has a low historical success rate",
			Suggestion: "insert additional safety steps for this pattern",
			Impact: ImpactHigh, Confidence: 0.8,
		})
	}
	return out
}

// Plan groups Analyze's output into prioritization buckets.
type Plan struct {
	Immediate []Opportunity
	Scheduled []Opportunity
	Backlog   []Opportunity
}

// Prioritize buckets opportunities by BucketFor.
func Prioritize(opportunities []Opportunity) Plan {
	var plan Plan
	for _, o := range opportunities {
		switch BucketFor(o) {
		case BucketImmediate:
			plan.Immediate = append(plan.Immediate, o)
		case BucketScheduled:
			plan.Scheduled = append(plan.Scheduled, o)
		default:
			plan.Backlog = append(plan.Backlog, o)
		}
	}
	return plan
}
