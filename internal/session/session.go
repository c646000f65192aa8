// Package session keeps per-visitor form state in memory.
package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/garnizeh/crackedclub/internal/application"
	"github.com/garnizeh/crackedclub/internal/toast"
	"github.com/garnizeh/crackedclub/internal/waitlist"
)

// Session is one visitor: a join dialog, a waitlist form and their pending
// notifications.
type Session struct {
	ID       string
	Join     *application.Controller
	Waitlist *waitlist.Controller
	Toasts   *toast.Queue

	mu       sync.Mutex
	lastSeen time.Time
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Factory builds the controllers of a new session around its toast queue.
type Factory func(q *toast.Queue) (*application.Controller, *waitlist.Controller)

// DefaultMaxSessions bounds the store when no limit is configured.
const DefaultMaxSessions = 10000

// Store maps session ids to sessions and expires idle ones.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	factory  Factory
	ttl      time.Duration
	max      int
	logger   *slog.Logger
	now      func() time.Time

	life   sync.Mutex
	stop   chan struct{}
	done   chan struct{}
	halted bool
}

type StoreOption func(*Store)

// WithMaxSessions caps the number of live sessions. When the cap is reached
// the least recently seen idle session is evicted to make room.
func WithMaxSessions(n int) StoreOption {
	return func(s *Store) {
		if n > 0 {
			s.max = n
		}
	}
}

func NewStore(factory Factory, ttl time.Duration, logger *slog.Logger, opts ...StoreOption) *Store {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		sessions: make(map[string]*Session),
		factory:  factory,
		ttl:      ttl,
		max:      DefaultMaxSessions,
		logger:   logger,
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Get returns the live session for id, or a fresh one when id is unknown or
// expired. The bool reports whether a new session was created.
func (s *Store) Get(id string) (*Session, bool) {
	now := s.now()
	if id != "" {
		s.mu.RLock()
		sess, ok := s.sessions[id]
		s.mu.RUnlock()
		if ok && now.Sub(sess.idleSince()) < s.ttl {
			sess.touch(now)
			return sess, false
		}
	}

	q := toast.NewQueue(toast.DefaultLimit)
	join, wl := s.factory(q)
	sess := &Session{
		ID:       uuid.NewString(),
		Join:     join,
		Waitlist: wl,
		Toasts:   q,
		lastSeen: now,
	}
	s.mu.Lock()
	if len(s.sessions) >= s.max {
		s.evictLocked(now)
	}
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	return sess, true
}

// evictLocked drops expired sessions, or the least recently seen idle one
// when none has expired. Callers hold s.mu.
func (s *Store) evictLocked(now time.Time) {
	var (
		oldestID string
		oldest   time.Time
	)
	expired := 0
	for id, sess := range s.sessions {
		if busy(sess) {
			continue
		}
		seen := sess.idleSince()
		if now.Sub(seen) >= s.ttl {
			delete(s.sessions, id)
			expired++
			continue
		}
		if oldestID == "" || seen.Before(oldest) {
			oldestID, oldest = id, seen
		}
	}
	if expired == 0 && oldestID != "" {
		delete(s.sessions, oldestID)
		s.logger.Warn("session limit reached, evicted oldest", "limit", s.max)
	}
}

func busy(sess *Session) bool {
	return sess.Join.State() != application.StateIdle || sess.Waitlist.Submitting()
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep drops sessions idle for longer than the ttl and returns how many
// were removed. Sessions with a submit in flight are kept.
func (s *Store) Sweep() int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, sess := range s.sessions {
		if now.Sub(sess.idleSince()) < s.ttl {
			continue
		}
		if busy(sess) {
			continue
		}
		delete(s.sessions, id)
		removed++
	}
	return removed
}

// Start runs the janitor until Stop is called. It is a no-op when the
// janitor is already running or the store was stopped.
func (s *Store) Start(interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	s.life.Lock()
	defer s.life.Unlock()
	if s.halted || s.stop != nil {
		return
	}
	stop, done := make(chan struct{}), make(chan struct{})
	s.stop, s.done = stop, done
	go func() {
		defer close(done)
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-t.C:
				if n := s.Sweep(); n > 0 {
					s.logger.Info("expired sessions swept", "removed", n, "live", s.Len())
				}
			}
		}
	}()
}

// Stop halts the janitor and waits for it. Safe to call more than once;
// after Stop the store never starts a janitor again.
func (s *Store) Stop() {
	s.life.Lock()
	if s.halted {
		s.life.Unlock()
		return
	}
	s.halted = true
	stop, done := s.stop, s.done
	s.life.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
}
