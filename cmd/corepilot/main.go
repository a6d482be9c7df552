// Command corepilot starts the autonomous task orchestration core: it
// wires every package into an Orchestrator, exposes it over HTTP, and runs
// the background learning loops until signaled to stop.
package main

import (
	"context"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/corepilot/core/internal/config"
	"github.com/corepilot/core/internal/logging"
	"github.com/corepilot/core/pkg/backends"
	"github.com/corepilot/core/pkg/circuitbreaker"
	"github.com/corepilot/core/pkg/execution"
	"github.com/corepilot/core/pkg/goal"
	"github.com/corepilot/core/pkg/health"
	"github.com/corepilot/core/pkg/httpapi"
	"github.com/corepilot/core/pkg/knowledge"
	"github.com/corepilot/core/pkg/metalearn"
	"github.com/corepilot/core/pkg/metrics"
	"github.com/corepilot/core/pkg/orchestrator"
	"github.com/corepilot/core/pkg/planner"
	"github.com/corepilot/core/pkg/selfmod"
	"github.com/corepilot/core/pkg/session"
	"github.com/corepilot/core/pkg/tot"
)

func main() {
	cfg, err := config.New()
	if err != nil {
		panic(err)
	}
	logger := logging.New(cfg.ServiceName)

	httpClient := &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        cfg.Backends.MaxIdleConns,
			MaxConnsPerHost:     cfg.Backends.MaxConnsPerHost,
			MaxIdleConnsPerHost: cfg.Backends.MaxIdleConns,
		},
	}

	retrieval := backends.NewRetrievalClient(cfg.Backends.RetrievalURL, httpClient, logger)
	inference := backends.NewInferenceClient(cfg.Backends.InferenceURL, "llama3", httpClient, logger)
	architecture := backends.NewArchitectureClient(cfg.Backends.ArchitectureURL, httpClient, logger)

	breaker := circuitbreaker.NewRegistry(circuitbreaker.Config{
		FailureThreshold: cfg.Breaker.FailureThreshold,
		SuccessThreshold: cfg.Breaker.SuccessThreshold,
		OpenTimeout:      cfg.Breaker.OpenTimeout,
	}, logger, nil)

	metricsStore := metrics.NewStore(prometheus.DefaultRegisterer, 3*time.Second, nil)

	execEngine := execution.New(breaker, metricsStore, logger)
	execEngine.Inference = inference
	execEngine.Architecture = architecture
	execEngine.Retrieval = retrieval
	execEngine.Health = retrieval

	p := planner.New()
	meta := metalearn.New()
	sessions := session.New()
	knowledgeStore := knowledge.New(retrieval)
	solver := tot.New(execEngine, inference)
	gate := selfmod.New(nil, nil, cfg.SelfMod.BackupDir, logger)
	goals := goal.New()
	healthMonitor := health.New(3, 50, nil)

	orch := orchestrator.New(sessions, p, meta, execEngine, retrieval, knowledgeStore, logger)

	server := httpapi.New(&httpapi.Server{
		Orchestrator: orch,
		Sessions:     sessions,
		Planner:      p,
		MetaLearner:  meta,
		Metrics:      metricsStore,
		Breaker:      breaker,
		Execution:    execEngine,
		Solver:       solver,
		SelfMod:      gate,
		Goals:        goals,
		Health:       healthMonitor,
		Logger:       logger,
	})

	mux := http.NewServeMux()
	mux.Handle("/", server)
	mux.Handle("/metrics", promhttp.Handler())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runBackgroundLoops(ctx, cfg, p, metricsStore, logger)

	httpServer := &http.Server{Addr: ":" + strconv.Itoa(cfg.Port), Handler: mux}
	go func() {
		logger.Info("starting http server", map[string]interface{}{"port": cfg.Port})
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server stopped unexpectedly", map[string]interface{}{"error": err.Error()})
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)
}

// runBackgroundLoops starts the two learning-loop cadences as context-scoped
// goroutines: the adaptive optimizer (OptimizeSteps recomputation is cheap
// and stateless, so this loop's real job is surfacing stale patterns) and
// the proactive/predictive engine.
func runBackgroundLoops(ctx context.Context, cfg *config.Config, p *planner.Planner, m *metrics.Store, logger logging.Logger) {
	go func() {
		ticker := time.NewTicker(cfg.Background.OptimizerInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				logger.Debug("adaptive optimizer tick", map[string]interface{}{"patterns_learned": p.PatternsLearned()})
			}
		}
	}()

	go func() {
		ticker := time.NewTicker(cfg.Background.ProactiveInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				analysis := m.Analyze()
				logger.Debug("proactive predictive tick", map[string]interface{}{"health_score": analysis.HealthScore})
			}
		}
	}()
}

