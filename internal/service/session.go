package service

import (
	"sync"

	"github.com/cloo-solutions/ragchat/internal/domain"
)

type threadSession struct {
	mu      sync.Mutex
	session *domain.Session
	seeded  bool
}

// SessionStore keeps one in-memory session per thread id for the life of
// the process. Turns on the same thread are serialized by a per-thread lock;
// distinct threads never contend beyond the map lookup.
type SessionStore struct {
	mu          sync.Mutex
	maxMessages int
	threads     map[string]*threadSession
}

// NewSessionStore creates a store whose sessions hold at most maxMessages.
func NewSessionStore(maxMessages int) *SessionStore {
	if maxMessages <= 0 {
		maxMessages = domain.DefaultMaxMessages
	}
	return &SessionStore{
		maxMessages: maxMessages,
		threads:     make(map[string]*threadSession),
	}
}

// MaxMessages returns the per-session capacity.
func (s *SessionStore) MaxMessages() int {
	return s.maxMessages
}

// Lease is exclusive access to one thread's session for the length of a
// turn.
type Lease struct {
	Session *domain.Session
	ts      *threadSession
}

// Seeded reports whether the session has already been merged with the
// thread's durable checkpoint.
func (l *Lease) Seeded() bool {
	return l.ts.seeded
}

// MarkSeeded records that the checkpoint has been merged in.
func (l *Lease) MarkSeeded() {
	l.ts.seeded = true
}

// Release unlocks the thread.
func (l *Lease) Release() {
	l.ts.mu.Unlock()
}

// Acquire locks threadID and returns its session, creating it if needed.
// The caller must Release the lease when the turn is over.
func (s *SessionStore) Acquire(threadID string) *Lease {
	s.mu.Lock()
	ts, ok := s.threads[threadID]
	if !ok {
		ts = &threadSession{session: domain.NewSession(s.maxMessages)}
		s.threads[threadID] = ts
	}
	s.mu.Unlock()

	ts.mu.Lock()
	return &Lease{Session: ts.session, ts: ts}
}
