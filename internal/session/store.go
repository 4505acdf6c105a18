package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vbonduro/shotcoach/internal/flow"
	"github.com/vbonduro/shotcoach/internal/vision"
)

type Session struct {
	ID           string
	Controller   *flow.Controller
	LastActivity time.Time
}

// DefaultMaxSessions bounds the store when Options.MaxSessions is unset.
const DefaultMaxSessions = 1000

type Options struct {
	TTL         time.Duration
	MaxSessions int
	Logger      *slog.Logger
	Now         func() time.Time
}

// Store keeps one flow.Controller per browser session in memory.
type Store struct {
	analyzer    vision.VisionAnalyzer
	ttl         time.Duration
	maxSessions int
	logger      *slog.Logger
	now         func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewStore(analyzer vision.VisionAnalyzer, opts Options) *Store {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	maxSessions := opts.MaxSessions
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}

	return &Store{
		analyzer:    analyzer,
		ttl:         ttl,
		maxSessions: maxSessions,
		logger:      logger,
		now:         now,
		sessions:    make(map[string]*Session),
	}
}

// Lookup returns the existing session for id without creating one.
func (s *Store) Lookup(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok || id == "" {
		return nil, false
	}
	sess.LastActivity = s.now()
	return sess, true
}

// Get returns the session for id, creating a fresh one with a new ID when
// id is empty or unknown. When the store is full the least recently active
// session is reset and evicted to make room.
func (s *Store) Get(id string) *Session {
	s.mu.Lock()

	if sess, ok := s.sessions[id]; ok && id != "" {
		sess.LastActivity = s.now()
		s.mu.Unlock()
		return sess
	}

	var evicted *Session
	if len(s.sessions) >= s.maxSessions {
		evicted = s.oldestLocked()
		delete(s.sessions, evicted.ID)
	}

	sess := &Session{
		ID:           uuid.NewString(),
		LastActivity: s.now(),
	}
	sess.Controller = flow.NewController(s.analyzer, s.logger.With("session_id", sess.ID))
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	if evicted != nil {
		evicted.Controller.Reset()
		s.logger.Warn("session limit reached, evicted least recently active session",
			"session_id", evicted.ID, "max_sessions", s.maxSessions)
	}
	s.logger.Debug("session created", "session_id", sess.ID)
	return sess
}

func (s *Store) oldestLocked() *Session {
	var oldest *Session
	for _, sess := range s.sessions {
		if oldest == nil || sess.LastActivity.Before(oldest.LastActivity) {
			oldest = sess
		}
	}
	return oldest
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep resets and removes sessions idle for longer than the TTL and
// returns how many were removed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	var expired []*Session
	cutoff := s.now().Add(-s.ttl)
	for id, sess := range s.sessions {
		if sess.LastActivity.Before(cutoff) {
			expired = append(expired, sess)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, sess := range expired {
		sess.Controller.Reset()
	}
	if len(expired) > 0 {
		s.logger.Info("expired sessions removed", "count", len(expired))
	}
	return len(expired)
}

// Run sweeps every interval until ctx is done, then resets every remaining
// session and waits for their analyses to return.
func (s *Store) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.closeAll()
			return nil
		case <-ticker.C:
			s.Sweep()
		}
	}
}

func (s *Store) closeAll() {
	s.mu.Lock()
	all := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		all = append(all, sess)
	}
	s.sessions = make(map[string]*Session)
	s.mu.Unlock()

	for _, sess := range all {
		sess.Controller.Reset()
		sess.Controller.Wait()
	}
}
