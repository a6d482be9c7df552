package metrics_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"

	"github.com/corepilot/core/pkg/metrics"
)

func TestAnalyzeDeductsForHighLatencyAndErrors(t *testing.T) {
	reg := prometheus.NewRegistry()
	store := metrics.NewStore(reg, time.Second, nil)

	for i := 0; i < 6; i++ {
		store.RecordQuery("retrieval", "find docs", 600, true)
	}
	for i := 0; i < 11; i++ {
		store.RecordQuery("retrieval", "find docs", 100, false)
	}

	a := store.Analyze()
	assert.Less(t, a.HealthScore, 100.0)
	assert.NotEmpty(t, a.Issues)
}

func TestAnalyzeIsMemoized(t *testing.T) {
	reg := prometheus.NewRegistry()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store := metrics.NewStore(reg, 5*time.Second, func() time.Time { return now })

	store.RecordQuery("inference", "q", 50, true)
	first := store.Analyze()

	store.RecordQuery("inference", "q", 900, false)
	second := store.Analyze()
	assert.Equal(t, first.HealthScore, second.HealthScore)
}

func TestAutoHealOpportunitiesFlagsDegradedService(t *testing.T) {
	reg := prometheus.NewRegistry()
	store := metrics.NewStore(reg, time.Second, nil)
	for i := 0; i < 12; i++ {
		store.RecordQuery("arch", "q", 50, false)
	}
	opportunities := store.AutoHealOpportunities()
	assert.NotEmpty(t, opportunities)
	found := false
	for _, o := range opportunities {
		if o.Service == "arch" && o.Action == "restart_service" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestRecordPreferenceSuppressesDismissedSuggestion(t *testing.T) {
	reg := prometheus.NewRegistry()
	store := metrics.NewStore(reg, time.Second, nil)
	store.RecordPreference("increase_memory", "retrieval", false, true)
	for i := 0; i < 6; i++ {
		store.RecordQuery("retrieval", "q", 600, true)
	}
	a := store.Analyze()
	for _, s := range a.Suggestions {
		assert.NotContains(t, s, "increase_memory for retrieval")
	}
}

func TestTotalQueriesCountsAcrossServices(t *testing.T) {
	reg := prometheus.NewRegistry()
	store := metrics.NewStore(reg, time.Second, nil)
	store.RecordQuery("a", "q", 10, true)
	store.RecordQuery("b", "q", 10, true)
	assert.Equal(t, 2, store.TotalQueries())
}

func TestTotalErrorsAndMaxServiceLatency(t *testing.T) {
	reg := prometheus.NewRegistry()
	store := metrics.NewStore(reg, time.Second, nil)
	store.RecordQuery("a", "q", 100, false)
	store.RecordQuery("a", "q", 2000, true)
	store.RecordQuery("b", "q", 50, false)

	assert.Equal(t, 2, store.TotalErrors())
	assert.Equal(t, 1050.0, store.MaxServiceLatency())
}
