package agent

import (
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/soyeahso/certagent/internal/domain"
	"github.com/soyeahso/certagent/internal/llm"
)

// SessionStore keeps agent conversations between runs.
type SessionStore interface {
	// GetOrCreate finds the live session for key or starts a new one.
	GetOrCreate(key domain.SessionKey, agentID string) *domain.Session

	// Get returns a session by ID, or nil if not found.
	Get(id string) *domain.Session

	// Append adds a message to a session. Unknown IDs are ignored.
	Append(sessionID string, msg domain.Message)

	// History returns the session's messages in the form sent to the model.
	History(sessionID string) []llm.Message

	// List returns all session IDs, sorted.
	List() []string

	// Reset forgets the session for key, so the next GetOrCreate starts fresh.
	Reset(key domain.SessionKey)
}

// MemorySessionStore is a process-local SessionStore. Nothing survives exit.
type MemorySessionStore struct {
	// MaxHistory caps how many trailing messages History returns. Zero keeps all.
	MaxHistory int

	mu    sync.RWMutex
	byID  map[string]*domain.Session
	byKey map[domain.SessionKey]*domain.Session
}

// NewMemorySessionStore creates an empty in-memory store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		byID:  make(map[string]*domain.Session),
		byKey: make(map[domain.SessionKey]*domain.Session),
	}
}

func (s *MemorySessionStore) GetOrCreate(key domain.SessionKey, agentID string) *domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.byKey[key]; ok {
		return sess
	}

	now := time.Now()
	sess := &domain.Session{
		ID:        uuid.NewString(),
		Key:       key,
		AgentID:   agentID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.byID[sess.ID] = sess
	s.byKey[key] = sess
	return sess
}

func (s *MemorySessionStore) Get(id string) *domain.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byID[id]
}

func (s *MemorySessionStore) Append(sessionID string, msg domain.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.byID[sessionID]
	if !ok {
		return
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	sess.Messages = append(sess.Messages, msg)
	sess.UpdatedAt = msg.Timestamp
}

func (s *MemorySessionStore) History(sessionID string) []llm.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.byID[sessionID]
	if !ok {
		return nil
	}

	msgs := sess.Messages
	if s.MaxHistory > 0 && len(msgs) > s.MaxHistory {
		msgs = msgs[len(msgs)-s.MaxHistory:]
	}
	out := make([]llm.Message, len(msgs))
	for i, m := range msgs {
		out[i] = llm.Message{Role: m.Role, Content: m.Content}
	}
	return out
}

func (s *MemorySessionStore) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.byID))
	for id := range s.byID {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (s *MemorySessionStore) Reset(key domain.SessionKey) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.byKey[key]; ok {
		delete(s.byID, sess.ID)
		delete(s.byKey, key)
	}
}
