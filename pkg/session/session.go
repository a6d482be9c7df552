// Package session holds an append-only, per-session conversation history,
// created on first unidentified reference and mutated only by its owning
// orchestrator invocation. State is process-local; there is no
// cross-restart persistence layer.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/corepilot/core/pkg/types"
)

// Store is the process-wide Session store singleton.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*types.Session
}

// New returns an empty Store.
func New() *Store {
	return &Store{sessions: make(map[string]*types.Session)}
}

// GetOrCreate returns the session for id, creating one (with a generated
// id when id is empty) on first unidentified reference.
func (s *Store) GetOrCreate(id string) *types.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id != "" {
		if sess, ok := s.sessions[id]; ok {
			return sess
		}
	}
	if id == "" {
		id = uuid.NewString()
	}
	now := time.Now()
	sess := &types.Session{
		ID:           id,
		CreatedAt:    now,
		LastActivity: now,
		Context:      make(map[string]interface{}),
	}
	s.sessions[id] = sess
	return sess
}

// Append appends msg to the session's history and bumps LastActivity. The
// append is atomic relative to other Append calls on the same session;
// callers on different sessions never block each other for long, since
// each session is looked up, then mutated, under the store's single mutex
// for the duration of one append — short critical sections keep
// concurrent sessions from serializing on one another in practice.
func (s *Store) Append(id string, msg types.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return
	}
	sess.Messages = append(sess.Messages, msg)
	sess.LastActivity = time.Now()
}

// Get returns the session for id, or nil if it does not exist.
func (s *Store) Get(id string) *types.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[id]
}

// Count returns the number of sessions currently tracked, for admin/status
// surfaces.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
