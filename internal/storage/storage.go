package storage

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/neuropathx/neuropathx/internal/diagnosis"
	"github.com/neuropathx/neuropathx/internal/session"
)

type entry struct {
	sess *session.Session
	// unix nanoseconds of the last lookup
	lastSeen atomic.Int64
}

func (e *entry) touch(now time.Time) {
	e.lastSeen.Store(now.UnixNano())
}

// SessionStore holds the live sessions of the HTTP adapter, keyed by ID
type SessionStore struct {
	sessions map[string]*entry
	mu       sync.RWMutex

	now func() time.Time
}

func New() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*entry),
		now:      time.Now,
	}
}

// Get returns the session for sessionID and marks it as seen.
func (s *SessionStore) Get(sessionID string) (*session.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, exists := s.sessions[sessionID]
	if !exists {
		return nil, false
	}
	e.touch(s.now())
	return e.sess, true
}

// GetOrCreate returns the session for sessionID, building it with create
// the first time the ID is seen.
func (s *SessionStore) GetOrCreate(sessionID string, create func(id string) *session.Session) *session.Session {
	if sess, ok := s.Get(sessionID); ok {
		return sess
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.sessions[sessionID]; ok {
		e.touch(s.now())
		return e.sess
	}
	e := &entry{sess: create(sessionID)}
	e.touch(s.now())
	s.sessions[sessionID] = e
	return e.sess
}

func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// EvictIdle removes sessions not seen since cutoff and closes them, releasing
// their images. Sessions with a diagnosis in flight are kept.
func (s *SessionStore) EvictIdle(cutoff time.Time) int {
	var evicted []*session.Session

	s.mu.Lock()
	for id, e := range s.sessions {
		if e.lastSeen.Load() >= cutoff.UnixNano() || e.sess.RequestState() == diagnosis.Pending {
			continue
		}
		delete(s.sessions, id)
		evicted = append(evicted, e.sess)
	}
	s.mu.Unlock()

	for _, sess := range evicted {
		sess.Close()
	}
	return len(evicted)
}
