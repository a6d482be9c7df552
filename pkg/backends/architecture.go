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

// ProposeResult is the architecture service's POST /arch/propose response.
type ProposeResult struct {
	ChangeID      string   `json:"change_id"`
	Diff          string   `json:"diff"`
	Preview       string   `json:"preview"`
	Safe          bool     `json:"safe"`
	SafetyChecks  []string `json:"safety_checks"`
}

// ApplyResult is the architecture service's POST /arch/apply response.
type ApplyResult struct {
	RollbackID string   `json:"rollback_id"`
	NextSteps  []string `json:"next_steps"`
}

// ArchitectureClient is the architecture-mutation-service adapter: a
// separate Git-versioned compose-file editor, treated as an external
// collaborator — this client only speaks its HTTP contract.
type ArchitectureClient struct {
	BaseURL string
	HTTP    *http.Client
	Logger  logging.Logger
}

// NewArchitectureClient builds an architecture client sharing httpClient's
// pool.
func NewArchitectureClient(baseURL string, httpClient *http.Client, logger logging.Logger) *ArchitectureClient {
	if logger == nil {
		logger = logging.NoOp{}
	}
	return &ArchitectureClient{BaseURL: baseURL, HTTP: httpClient, Logger: logger}
}

// Propose implements POST /arch/propose {prompt, auto_apply}.
func (c *ArchitectureClient) Propose(ctx context.Context, prompt string, autoApply bool) (ProposeResult, error) {
	ctx, span := tracer.Start(ctx, "architecture.propose")
	defer span.End()
	span.SetAttributes(attribute.Bool("architecture.auto_apply", autoApply))

	var out ProposeResult
	body := map[string]interface{}{"prompt": prompt, "auto_apply": autoApply}
	err := c.post(ctx, "/arch/propose", body, &out)
	if err != nil {
		span.RecordError(err)
	}
	return out, err
}

// ApplyChange implements POST /arch/apply {change_id, confirm:true},
// returning the rollback id and next steps.
func (c *ArchitectureClient) ApplyChange(ctx context.Context, changeID string) (ApplyResult, error) {
	ctx, span := tracer.Start(ctx, "architecture.apply")
	defer span.End()
	span.SetAttributes(attribute.String("architecture.change_id", changeID))

	var out ApplyResult
	body := map[string]interface{}{"change_id": changeID, "confirm": true}
	err := c.post(ctx, "/arch/apply", body, &out)
	if err != nil {
		span.RecordError(err)
	}
	return out, err
}

// Rollback implements POST /arch/rollback {rollback_id}.
func (c *ArchitectureClient) Rollback(ctx context.Context, rollbackID string) error {
	ctx, span := tracer.Start(ctx, "architecture.rollback")
	defer span.End()
	body := map[string]interface{}{"rollback_id": rollbackID}
	err := c.post(ctx, "/arch/rollback", body, nil)
	if err != nil {
		span.RecordError(err)
	}
	return err
}

// History implements GET /arch/history.
func (c *ArchitectureClient) History(ctx context.Context) ([]map[string]interface{}, error) {
	var out []map[string]interface{}
	err := c.get(ctx, "/arch/history", &out)
	return out, err
}

// ProposeConfig implements the execution.ArchitectureBackend interface,
// wrapping Propose with auto_apply=false; the Execution Engine's
// config-apply dispatch branch calls Apply separately.
func (c *ArchitectureClient) ProposeConfig(ctx context.Context, target string) (string, error) {
	result, err := c.Propose(ctx, target, false)
	if err != nil {
		return "", err
	}
	return result.ChangeID, nil
}

// Apply implements the execution.ArchitectureBackend interface's
// Apply(ctx, changeID) error contract by discarding ApplyChange's rollback
// metadata — the Execution Engine's config-apply dispatch branch only
// needs success/failure here; the rollback id surfaces separately through
// the architecture service's own /arch/history.
func (c *ArchitectureClient) Apply(ctx context.Context, changeID string) error {
	_, err := c.ApplyChange(ctx, changeID)
	return err
}

// Check implements execution.HealthChecker for the "architecture" target
// via a cheap history listing.
func (c *ArchitectureClient) Check(ctx context.Context, service string) (bool, error) {
	_, err := c.History(ctx)
	return err == nil, err
}

func (c *ArchitectureClient) post(ctx context.Context, path string, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("architecture: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("architecture: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *ArchitectureClient) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("architecture: build request: %w", err)
	}
	return c.do(req, out)
}

func (c *ArchitectureClient) do(req *http.Request, out interface{}) error {
	start := time.Now()
	resp, err := c.HTTP.Do(req)
	if err != nil {
		c.Logger.Error("architecture call failed", map[string]interface{}{"path": req.URL.Path, "error": err.Error()})
		return fmt.Errorf("architecture: %w", err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	c.Logger.Debug("architecture call completed", map[string]interface{}{
		"path": req.URL.Path, "status": resp.StatusCode, "latency_ms": time.Since(start).Milliseconds(),
	})

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("architecture: not found")
	}
	if resp.StatusCode >= 500 {
		return fmt.Errorf("architecture: service unavailable (status %d)", resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("architecture: invalid request (status %d)", resp.StatusCode)
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("architecture: decode response: %w", err)
	}
	return nil
}
