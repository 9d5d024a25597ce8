package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/ktc/internal/domain/matchup"
	"github.com/okian/ktc/internal/domain/model"
	"github.com/okian/ktc/pkg/logger"
	"github.com/okian/ktc/pkg/metrics"
)

const (
	defaultSessionTTL    = 30 * time.Minute
	minimumSweepInterval = time.Second
)

// session is one voter's matchup state. Its mutex guards history and offered.
type session struct {
	mu       sync.Mutex
	id       string
	history  *matchup.History
	offered  *model.Triplet
	lastSeen time.Time
}

type sessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*session
}

func newSessionRegistry() *sessionRegistry {
	return &sessionRegistry{sessions: make(map[string]*session)}
}

func (r *sessionRegistry) create(historySize int, now time.Time) *session {
	sess := &session{
		id:       uuid.NewString(),
		history:  matchup.NewHistory(historySize),
		lastSeen: now,
	}
	r.mu.Lock()
	r.sessions[sess.id] = sess
	n := len(r.sessions)
	r.mu.Unlock()
	metrics.UpdateActiveSessions(n)
	return sess
}

func (r *sessionRegistry) get(id string) (*session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, ok := r.sessions[id]
	return sess, ok
}

func (r *sessionRegistry) len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// reap drops sessions idle since before cutoff and returns how many went.
func (r *sessionRegistry) reap(cutoff time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, sess := range r.sessions {
		sess.mu.Lock()
		idle := sess.lastSeen.Before(cutoff)
		sess.mu.Unlock()
		if idle {
			delete(r.sessions, id)
			n++
		}
	}
	metrics.UpdateActiveSessions(len(r.sessions))
	return n
}

// ReapSessions removes sessions idle longer than the session TTL.
func (s *Service) ReapSessions() int {
	return s.sessions.reap(s.now().Add(-s.sessionTTL))
}

func (s *Service) sessionCleanupLoop(ctx context.Context) {
	interval := s.sessionTTL / 2
	if interval < minimumSweepInterval {
		interval = minimumSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			if n := s.ReapSessions(); n > 0 {
				s.logger.Debug(ctx, "reaped idle sessions", logger.Int("count", n))
			}
		}
	}
}
