// Package backends implements hand-built net/http JSON clients for the
// external collaborator services (retrieval, inference, architecture
// mutation): no vendor SDK, an OTel span per data call (the diagnostic
// Tags, History and Inspect listings open none), structured
// request/response logging. Each service speaks a bespoke HTTP/JSON
// contract rather than a provider's native API, so a hand-rolled client is
// the idiomatic shape here.
package backends

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/corepilot/core/internal/logging"
)

var tracer = otel.Tracer("github.com/corepilot/core/pkg/backends")

// Document is one retrieved knowledge-store document (a /query response entry).
type Document struct {
	Content  string                 `json:"content"`
	Metadata map[string]interface{} `json:"metadata"`
	Score    float64                `json:"score"`
}

// QueryResult is the retrieval service's /query response body.
type QueryResult struct {
	Documents        []Document `json:"documents"`
	TotalResults      int       `json:"total_results"`
	ProcessingTimeMS  int64     `json:"processing_time_ms"`
}

// RetrievalClient is the retrieval-service adapter.
type RetrievalClient struct {
	BaseURL string
	HTTP    *http.Client
	Logger  logging.Logger
}

// NewRetrievalClient builds a client sharing httpClient's connection pool,
// a single pool created at process start.
func NewRetrievalClient(baseURL string, httpClient *http.Client, logger logging.Logger) *RetrievalClient {
	if logger == nil {
		logger = logging.NoOp{}
	}
	return &RetrievalClient{BaseURL: baseURL, HTTP: httpClient, Logger: logger}
}

// Query implements POST /query {query, top_k} -> {documents, total_results,
// processing_time_ms}.
func (c *RetrievalClient) Query(ctx context.Context, query string, topK int) (QueryResult, error) {
	ctx, span := tracer.Start(ctx, "retrieval.query")
	defer span.End()
	span.SetAttributes(attribute.String("retrieval.query", query), attribute.Int("retrieval.top_k", topK))

	var result QueryResult
	body := map[string]interface{}{"query": query, "top_k": topK}
	err := c.post(ctx, "/query", body, &result)
	if err != nil {
		span.RecordError(err)
	}
	return result, err
}

// Add implements POST /add {content, metadata} — used by the Knowledge
// Store to persist execution transcripts.
func (c *RetrievalClient) Add(ctx context.Context, content string, metadata map[string]interface{}) error {
	ctx, span := tracer.Start(ctx, "retrieval.add")
	defer span.End()
	body := map[string]interface{}{"content": content, "metadata": metadata}
	err := c.post(ctx, "/add", body, nil)
	if err != nil {
		span.RecordError(err)
	}
	return err
}

// Health implements GET /health.
func (c *RetrievalClient) Health(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "retrieval.health")
	defer span.End()
	err := c.get(ctx, "/health", nil)
	if err != nil {
		span.RecordError(err)
	}
	return err
}

// Inspect implements GET /inspect, returning the raw body for diagnostic
// surfaces — its shape is not specified beyond "inspect", so it is passed
// through uninterpreted.
func (c *RetrievalClient) Inspect(ctx context.Context) (map[string]interface{}, error) {
	var out map[string]interface{}
	err := c.get(ctx, "/inspect", &out)
	return out, err
}

// Search implements the execution.RetrievalBackend interface, adapting
// Query's structured result into the single string the Execution Engine's
// retrieval-search dispatch branch threads forward.
func (c *RetrievalClient) Search(ctx context.Context, query string) (string, error) {
	result, err := c.Query(ctx, query, 3)
	if err != nil {
		return "", err
	}
	out := ""
	for _, d := range result.Documents {
		out += d.Content + "\n"
	}
	return out, nil
}

// Check implements execution.HealthChecker for the "retrieval" target.
func (c *RetrievalClient) Check(ctx context.Context, service string) (bool, error) {
	if err := c.Health(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func (c *RetrievalClient) post(ctx context.Context, path string, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("retrieval: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("retrieval: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *RetrievalClient) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("retrieval: build request: %w", err)
	}
	return c.do(req, out)
}

func (c *RetrievalClient) do(req *http.Request, out interface{}) error {
	start := time.Now()
	resp, err := c.HTTP.Do(req)
	if err != nil {
		c.Logger.Error("retrieval call failed", map[string]interface{}{"path": req.URL.Path, "error": err.Error()})
		return fmt.Errorf("retrieval: %w", err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	c.Logger.Debug("retrieval call completed", map[string]interface{}{
		"path": req.URL.Path, "status": resp.StatusCode, "latency_ms": time.Since(start).Milliseconds(),
	})

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("retrieval: not found")
	}
	if resp.StatusCode >= 500 {
		return fmt.Errorf("retrieval: service unavailable (status %d)", resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("retrieval: invalid request (status %d)", resp.StatusCode)
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("retrieval: decode response: %w", err)
	}
	return nil
}
