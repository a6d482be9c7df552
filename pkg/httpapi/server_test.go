package httpapi_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corepilot/core/pkg/circuitbreaker"
	"github.com/corepilot/core/pkg/execution"
	"github.com/corepilot/core/pkg/httpapi"
	"github.com/corepilot/core/pkg/metalearn"
	"github.com/corepilot/core/pkg/metrics"
	"github.com/corepilot/core/pkg/orchestrator"
	"github.com/corepilot/core/pkg/planner"
	"github.com/corepilot/core/pkg/session"
)

func newTestServer() http.Handler {
	breaker := circuitbreaker.NewRegistry(circuitbreaker.DefaultConfig(), nil, nil)
	store := metrics.NewStore(prometheus.NewRegistry(), time.Second, nil)
	execEngine := execution.New(breaker, store, nil)
	p := planner.New()
	meta := metalearn.New()
	sessions := session.New()
	orch := orchestrator.New(sessions, p, meta, execEngine, nil, nil, nil)

	return httpapi.New(&httpapi.Server{
		Orchestrator: orch,
		Sessions:     sessions,
		Planner:      p,
		MetaLearner:  meta,
		Metrics:      store,
		Breaker:      breaker,
		Execution:    execEngine,
	})
}

func TestHandleAutonomousQuery(t *testing.T) {
	srv := newTestServer()
	form := url.Values{"message": {"What is the current status?"}}
	req := httptest.NewRequest(http.MethodPost, "/api/autonomous", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp orchestrator.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "respond", string(resp.Verdict.Action))
}

func TestHandleMetricsStats(t *testing.T) {
	srv := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/api/metrics/stats", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandleResilienceCircuitBreakers(t *testing.T) {
	srv := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/api/resilience/circuit-breakers", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandleSelfImprovementInsights(t *testing.T) {
	srv := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/api/self-improvement/insights", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var counts map[string]int
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &counts))
	assert.Contains(t, counts, "immediate")
}
