// Package knowledge implements the Knowledge Store: persists execution
// summaries to the retrieval service so future planning/retrieval passes
// can learn from past runs.
package knowledge

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/corepilot/core/pkg/types"
)

// Adder is the subset of pkg/backends.RetrievalClient the store needs;
// narrowed so tests can supply a fake without importing the HTTP client.
type Adder interface {
	Add(ctx context.Context, content string, metadata map[string]interface{}) error
}

// Store records execution results into a retrieval backend.
type Store struct {
	retrieval Adder
	now       func() time.Time
}

// New returns a Store writing through retrieval.
func New(retrieval Adder) *Store {
	return &Store{retrieval: retrieval, now: time.Now}
}

// RecordExecution renders an execution's steps and summary into a human-
// readable document with a ✅/❌ marker per step, then persists it with
// metadata {type: "execution_result", task_id, success_rate, timestamp,
// intent}.
func (s *Store) RecordExecution(ctx context.Context, taskID, intent string, results []types.StepResult, summary types.ExecutionSummary) error {
	doc := render(taskID, intent, results, summary)
	metadata := map[string]interface{}{
		"type":         "execution_result",
		"task_id":      taskID,
		"success_rate": summary.SuccessRate,
		"timestamp":    s.now().Format(time.RFC3339),
		"intent":       intent,
	}
	if err := s.retrieval.Add(ctx, doc, metadata); err != nil {
		return fmt.Errorf("knowledge: record execution %s: %w", taskID, err)
	}
	return nil
}

func render(taskID, intent string, results []types.StepResult, summary types.ExecutionSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task %s (%s): %s, %.1f%% success rate (%d/%d steps)\n",
		taskID, intent, summary.Status, summary.SuccessRate, summary.Successful, summary.Total)
	for _, r := range results {
		marker := "❌"
		switch r.Status {
		case types.StepSuccess, types.StepCompleted:
			marker = "✅"
		}
		b.WriteString(marker)
		b.WriteByte(' ')
		b.WriteString(r.Step)
		if r.Error != "" {
			b.WriteString(": ")
			b.WriteString(r.Error)
		}
		b.WriteByte('\n')
	}
	return b.String()
}
