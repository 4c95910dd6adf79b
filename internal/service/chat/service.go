// Package chat manages the ordered collection of conversation sessions and
// its persistence.
package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/khanlabs/neurachat/backend/internal/model/chat"
	"github.com/khanlabs/neurachat/backend/internal/store"
)

// ErrSessionNotFound is returned when an operation names an unknown session.
var ErrSessionNotFound = errors.New("session not found")

// Service owns the session collection: most-recently-created first, at most
// one session active. Every mutation is written through to the key-value
// store; the active id is in-memory only.
type Service struct {
	mu       sync.RWMutex
	sessions []*chat.Session
	activeID string

	kv store.KV

	// onCreate runs for every new session, establishing a fresh backend
	// generation context.
	onCreate func(ctx context.Context)
}

// NewService hydrates the collection from the store and enforces the
// auto-creation invariant: an empty collection gets exactly one fresh,
// active session.
func NewService(ctx context.Context, kv store.KV, onCreate func(ctx context.Context)) *Service {
	s := &Service{kv: kv, onCreate: onCreate}

	restored := store.Load(ctx, kv, store.KeySessions, []*chat.Session{})
	for _, sess := range restored {
		if sess != nil {
			s.sessions = append(s.sessions, sess)
		}
	}

	if len(s.sessions) == 0 {
		s.createLocked(ctx)
		s.persist(ctx)
	}
	return s
}

// CreateSession inserts a fresh empty session at the front of the
// collection and makes it active.
func (s *Service) CreateSession(ctx context.Context) chat.Session {
	s.mu.Lock()
	created := s.createLocked(ctx)
	s.persist(ctx)
	s.mu.Unlock()
	return created
}

func (s *Service) createLocked(ctx context.Context) chat.Session {
	session := &chat.Session{
		ID:        uuid.NewString(),
		Title:     chat.DefaultTitle,
		Messages:  []chat.Message{},
		CreatedAt: time.Now().UTC(),
	}
	s.sessions = append([]*chat.Session{session}, s.sessions...)
	s.activeID = session.ID

	if s.onCreate != nil {
		s.onCreate(ctx)
	}
	return *session
}

// Select makes id the active session. The id is not validated here; pass
// the empty string to deselect.
func (s *Service) Select(id string) {
	s.mu.Lock()
	s.activeID = id
	s.mu.Unlock()
}

// Delete removes the named session. Deleting the active session leaves no
// session active; deleting the last session triggers auto-creation of a
// fresh active one.
func (s *Service) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return ErrSessionNotFound
	}

	s.sessions = append(s.sessions[:idx], s.sessions[idx+1:]...)
	if s.activeID == id {
		s.activeID = ""
	}
	if len(s.sessions) == 0 {
		s.createLocked(ctx)
	}
	s.persist(ctx)
	return nil
}

// ClearAll empties the collection, then auto-creates a single fresh active
// session. Confirmation gating belongs to the caller.
func (s *Service) ClearAll(ctx context.Context) chat.Session {
	s.mu.Lock()
	s.sessions = nil
	s.activeID = ""
	created := s.createLocked(ctx)
	s.persist(ctx)
	s.mu.Unlock()
	return created
}

// AppendMessage appends to the named session's log. The first message of a
// session rewrites the placeholder title, once.
func (s *Service) AppendMessage(ctx context.Context, sessionID string, msg chat.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(sessionID)
	if idx < 0 {
		return ErrSessionNotFound
	}

	session := s.sessions[idx]
	if len(session.Messages) == 0 {
		session.Title = chat.DeriveTitle(msg.Content)
	}
	session.Messages = append(session.Messages, msg)
	s.persist(ctx)
	return nil
}

// List returns the sessions newest-created first.
func (s *Service) List() []chat.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]chat.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, *sess)
	}
	return out
}

// Get retrieves one session by id.
func (s *Service) Get(id string) (chat.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return chat.Session{}, ErrSessionNotFound
	}
	return *s.sessions[idx], nil
}

// ActiveID returns the active session id, or the empty string when no
// session is selected.
func (s *Service) ActiveID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeID
}

// indexLocked finds a session position. Caller holds at least a read lock.
func (s *Service) indexLocked(id string) int {
	for i, sess := range s.sessions {
		if sess.ID == id {
			return i
		}
	}
	return -1
}

// persist writes the whole collection through to the store. Caller holds
// the write lock.
func (s *Service) persist(ctx context.Context) {
	store.Save(ctx, s.kv, store.KeySessions, s.sessions)
}
