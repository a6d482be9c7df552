// Package goal implements the Goal Manager: tracks a goal's lifecycle
// across multiple orchestrator invocations, since a single autonomous
// request is often one step toward a longer-running objective.
package goal

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status is a Goal's lifecycle stage.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusAbandoned Status = "abandoned"
)

// Step records one orchestrator invocation taken toward a Goal.
type Step struct {
	TaskID    string    `json:"task_id"`
	Summary   string    `json:"summary"`
	Success   bool      `json:"success"`
	Timestamp time.Time `json:"timestamp"`
}

// Goal is a multi-step objective the orchestrator works toward over time.
type Goal struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	Status      Status    `json:"status"`
	Steps       []Step    `json:"steps"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Store holds the active set of goals for the current process.
type Store struct {
	mu    sync.Mutex
	goals map[string]*Goal
	now   func() time.Time
}

// New returns an empty goal Store.
func New() *Store {
	return &Store{goals: make(map[string]*Goal), now: time.Now}
}

// CreateGoal starts tracking a new goal and returns it.
func (s *Store) CreateGoal(description string) *Goal {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	g := &Goal{
		ID:          uuid.NewString(),
		Description: description,
		Status:      StatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.goals[g.ID] = g
	return g
}

// Advance appends a Step to a goal's history and updates its timestamp.
// Advancing a goal that is not active is a no-op; it returns false.
func (s *Store) Advance(id string, step Step) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.goals[id]
	if !ok || g.Status != StatusActive {
		return false
	}
	g.Steps = append(g.Steps, step)
	g.UpdatedAt = s.now()
	return true
}

// Complete marks a goal completed or abandoned, and is idempotent once set.
func (s *Store) Complete(id string, abandoned bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.goals[id]
	if !ok {
		return false
	}
	if abandoned {
		g.Status = StatusAbandoned
	} else {
		g.Status = StatusCompleted
	}
	g.UpdatedAt = s.now()
	return true
}

// Get returns the goal with id, if tracked.
func (s *Store) Get(id string) (Goal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.goals[id]
	if !ok {
		return Goal{}, false
	}
	return *g, true
}

// List returns all tracked goals, optionally filtered by status.
func (s *Store) List(status Status) []Goal {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Goal, 0, len(s.goals))
	for _, g := range s.goals {
		if status != "" && g.Status != status {
			continue
		}
		out = append(out, *g)
	}
	return out
}
