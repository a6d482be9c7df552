package backends

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/corepilot/core/internal/logging"
)

// GenerateOptions mirrors the inference service's POST /api/generate options object.
type GenerateOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict"`
}

// InferenceClient is the inference-service adapter: POST /api/generate
// {model, prompt, stream:false, options} -> {response}; GET /api/tags.
type InferenceClient struct {
	BaseURL      string
	DefaultModel string
	HTTP         *http.Client
	Logger       logging.Logger

	// APIKey, when set, is sent as a Bearer token — used for the optional
	// external model fallback rather than the local Ollama-style endpoint,
	// which needs none.
	APIKey string
}

// NewInferenceClient builds an inference client sharing httpClient's pool.
func NewInferenceClient(baseURL, defaultModel string, httpClient *http.Client, logger logging.Logger) *InferenceClient {
	if logger == nil {
		logger = logging.NoOp{}
	}
	if defaultModel == "" {
		defaultModel = "llama3"
	}
	return &InferenceClient{BaseURL: baseURL, DefaultModel: defaultModel, HTTP: httpClient, Logger: logger}
}

// GenerateResponse calls POST /api/generate and returns the raw response
// text.
func (c *InferenceClient) GenerateResponse(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	ctx, span := tracer.Start(ctx, "inference.generate")
	defer span.End()
	span.SetAttributes(attribute.String("inference.model", c.DefaultModel), attribute.Int("inference.prompt_length", len(prompt)))

	body := map[string]interface{}{
		"model":   c.DefaultModel,
		"prompt":  prompt,
		"stream":  false,
		"options": opts,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("inference: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("inference: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	var out struct {
		Response string `json:"response"`
	}
	if err := c.do(req, &out); err != nil {
		span.RecordError(err)
		return "", err
	}
	return out.Response, nil
}

// Generate implements the execution.InferenceBackend interface with the
// service's default sampling options.
func (c *InferenceClient) Generate(ctx context.Context, prompt string) (string, error) {
	return c.GenerateResponse(ctx, prompt, GenerateOptions{Temperature: 0.7, NumPredict: 512})
}

// NextStep implements tot.Generator: it composes a strategy-flavored
// prompt from the task and history taken so far, then asks the inference
// backend for the next candidate step.
func (c *InferenceClient) NextStep(ctx context.Context, task, strategyName string, history []string) (string, error) {
	prompt := fmt.Sprintf("Task: %s\nStrategy: %s\nSteps so far: %v\nPropose the single next step.", task, strategyName, history)
	return c.GenerateResponse(ctx, prompt, GenerateOptions{Temperature: 0.7, NumPredict: 128})
}

// Tags implements GET /api/tags, listing available local models.
func (c *InferenceClient) Tags(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("inference: build request: %w", err)
	}
	var out struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	names := make([]string, len(out.Models))
	for i, m := range out.Models {
		names[i] = m.Name
	}
	return names, nil
}

// Check implements execution.HealthChecker for the "inference" target via
// a cheap tags listing.
func (c *InferenceClient) Check(ctx context.Context, service string) (bool, error) {
	_, err := c.Tags(ctx)
	return err == nil, err
}

func (c *InferenceClient) do(req *http.Request, out interface{}) error {
	start := time.Now()
	resp, err := c.HTTP.Do(req)
	if err != nil {
		c.Logger.Error("inference call failed", map[string]interface{}{"path": req.URL.Path, "error": err.Error()})
		return fmt.Errorf("inference: %w", err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	c.Logger.Debug("inference call completed", map[string]interface{}{
		"path": req.URL.Path, "status": resp.StatusCode, "latency_ms": time.Since(start).Milliseconds(),
	})

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("inference: not found")
	}
	if resp.StatusCode >= 500 {
		return fmt.Errorf("inference: service unavailable (status %d)", resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("inference: invalid request (status %d)", resp.StatusCode)
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("inference: decode response: %w", err)
	}
	return nil
}
