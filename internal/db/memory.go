package db

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"healthscribe/pkg"
)

type memSession struct {
	session  pkg.Session
	messages []pkg.Message
}

// MemoryRepository keeps sessions in process memory.  It is used when no
// database is configured and in tests.
type MemoryRepository struct {
	mu       sync.RWMutex
	sessions map[string]*memSession
	nextID   int64
	now      func() time.Time
}

// NewMemoryRepository returns an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{sessions: make(map[string]*memSession), now: time.Now}
}

// CreateSession stores a new session with a fresh conversation context.
func (r *MemoryRepository) CreateSession(_ context.Context) (*pkg.Session, error) {
	now := r.now()
	s := pkg.Session{
		ID:        uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
		Context:   pkg.NewConversationContext(),
	}

	r.mu.Lock()
	r.sessions[s.ID] = &memSession{session: s}
	r.mu.Unlock()

	out := s
	out.Context = s.Context.Clone()
	return &out, nil
}

// GetSession returns a copy of the session or ErrSessionNotFound.
func (r *MemoryRepository) GetSession(_ context.Context, sessionID string) (*pkg.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ms, ok := r.sessions[sessionID]
	if !ok {
		return nil, pkg.ErrSessionNotFound
	}
	out := ms.session
	out.Context = ms.session.Context.Clone()
	return &out, nil
}

// AppendMessage assigns the next message id and adds m to the transcript.
func (r *MemoryRepository) AppendMessage(_ context.Context, sessionID string, m pkg.Message) (*pkg.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ms, ok := r.sessions[sessionID]
	if !ok {
		return nil, pkg.ErrSessionNotFound
	}
	r.nextID++
	m.ID = r.nextID
	m.SessionID = sessionID
	if m.Kind == "" {
		m.Kind = pkg.KindText
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = r.now()
	}
	ms.messages = append(ms.messages, m)
	ms.session.UpdatedAt = m.CreatedAt
	return &m, nil
}

// GetTranscript returns a copy of the session's messages in posting order.
func (r *MemoryRepository) GetTranscript(_ context.Context, sessionID string) ([]pkg.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ms, ok := r.sessions[sessionID]
	if !ok {
		return nil, pkg.ErrSessionNotFound
	}
	return append([]pkg.Message(nil), ms.messages...), nil
}

// CountUserMessages counts the patient messages in the transcript.
func (r *MemoryRepository) CountUserMessages(_ context.Context, sessionID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ms, ok := r.sessions[sessionID]
	if !ok {
		return 0, pkg.ErrSessionNotFound
	}
	n := 0
	for _, m := range ms.messages {
		if m.Sender == pkg.SenderUser {
			n++
		}
	}
	return n, nil
}

// SaveContext replaces the session's conversation context.
func (r *MemoryRepository) SaveContext(_ context.Context, sessionID string, c pkg.ConversationContext) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ms, ok := r.sessions[sessionID]
	if !ok {
		return pkg.ErrSessionNotFound
	}
	ms.session.Context = c.Clone()
	ms.session.UpdatedAt = r.now()
	return nil
}

// ResetSession drops the transcript and restores the initial context.
func (r *MemoryRepository) ResetSession(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ms, ok := r.sessions[sessionID]
	if !ok {
		return pkg.ErrSessionNotFound
	}
	ms.messages = nil
	ms.session.Context = pkg.NewConversationContext()
	ms.session.UpdatedAt = r.now()
	return nil
}
