// Package service implements the keep/trade/cut rating service used by the
// HTTP API and the maintenance CLI.
package service

import (
	"context"
	"math/rand"
	"runtime"
	"sync"
	"time"

	"github.com/okian/ktc/internal/adapters/mq/queue"
	"github.com/okian/ktc/internal/adapters/mq/worker"
	"github.com/okian/ktc/internal/adapters/repository"
	"github.com/okian/ktc/internal/domain/dedupe"
	"github.com/okian/ktc/internal/domain/matchup"
	"github.com/okian/ktc/internal/domain/rating"
	"github.com/okian/ktc/pkg/logger"
	"github.com/okian/ktc/pkg/metrics"
)

const (
	defaultQueueSize   = 10000
	defaultDedupeSize  = 50000
	defaultMaxRankings = 100
	stopTimeout        = 30 * time.Second
)

// Service owns the store, the rating engine, voting sessions and the
// asynchronous recompute pipeline.
type Service struct {
	mu sync.RWMutex

	// Core components
	store    repository.Store
	engine   *rating.Engine
	deduper  dedupe.Deduper
	locks    *stripedLocks
	sessions *sessionRegistry
	queue    queue.Queue
	pool     *worker.Pool

	// The selector's random source is not safe for concurrent use.
	selMu    sync.Mutex
	selector *matchup.Selector

	// Configuration
	workerCount int
	queueSize   int
	dedupeSize  int
	lockStripes int
	historySize int
	sessionTTL  time.Duration
	maxRankings int
	seed        int64
	seedItems   []SeedItem
	synchronous bool
	now         func() time.Time

	// State
	started bool
	stopCh  chan struct{}

	logger logger.Logger
}

// New constructs a Service. Without WithStore it uses an in-memory store.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: runtime.NumCPU(),
		queueSize:   defaultQueueSize,
		dedupeSize:  defaultDedupeSize,
		lockStripes: defaultLockStripes,
		historySize: matchup.DefaultHistorySize,
		sessionTTL:  defaultSessionTTL,
		maxRankings: defaultMaxRankings,
		now:         func() time.Time { return time.Now().UTC() },
		stopCh:      make(chan struct{}),
		logger:      logger.Nop(),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.store == nil {
		s.store = repository.NewMemoryStore()
	}
	if s.engine == nil {
		s.engine = rating.Default()
	}
	seed := s.seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	s.selector = matchup.NewSelector(rand.New(rand.NewSource(seed)), s.engine.BaseRating()) //nolint:gosec // matchup sampling is not security sensitive
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.locks = newStripedLocks(s.lockStripes)
	s.sessions = newSessionRegistry()

	return s
}

// Start seeds the store if needed and launches the recompute workers and the
// session cleanup loop. Recomputes run inline until Start is called.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.logger.Info(ctx, "starting rating service...")

	if err := s.seedStore(ctx); err != nil {
		return err
	}

	if !s.synchronous {
		q := queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
		s.queue = q
		s.pool = worker.NewPool(s.workerCount, q, s, worker.WithPoolLogger(s.logger))
		s.pool.Start(ctx)
	}

	go s.sessionCleanupLoop(ctx)

	s.started = true
	s.logger.Info(ctx, "rating service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Bool("synchronous", s.synchronous),
	)
	return nil
}

// Stop drains pending recomputes, stops background loops and closes the store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	s.logger.Info(ctx, "stopping rating service...")

	if s.pool != nil {
		if err := s.pool.Shutdown(ctx); err != nil {
			s.logger.Error(ctx, "worker pool shutdown failed", logger.Error(err))
		}
		s.pool = nil
		s.queue = nil
	}

	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}

	if err := s.store.Close(); err != nil {
		s.logger.Error(ctx, "store close failed", logger.Error(err))
	}

	s.started = false
	s.logger.Info(ctx, "rating service stopped")
}

// Engine returns the rating engine in use.
func (s *Service) Engine() *rating.Engine { return s.engine }

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]any{
		"started":        s.started,
		"synchronous":    s.synchronous,
		"workerCount":    s.workerCount,
		"queueSize":      s.queueSize,
		"dedupeSize":     s.dedupeSize,
		"dedupeEntries":  s.deduper.Size(),
		"activeSessions": s.sessions.len(),
	}

	if n, err := s.store.Count(ctx); err == nil {
		stats["totalItems"] = n
		metrics.UpdateTotalItems(n)
	} else {
		s.logger.Warn(ctx, "count items failed", logger.Error(err))
	}

	if s.queue != nil {
		queueLen := s.queue.Len()
		stats["queueLength"] = queueLen
		metrics.UpdateQueueSize(queueLen)
	}
	if s.pool != nil {
		stats["activeWorkers"] = s.pool.Active()
		stats["processedJobs"] = s.pool.Processed()
		metrics.UpdateWorkerCount(s.pool.Size())
	}

	return stats
}
