package service

import (
	"time"

	"github.com/okian/ktc/internal/adapters/repository"
	"github.com/okian/ktc/internal/domain/rating"
	"github.com/okian/ktc/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// SeedItem is an item created on start when the store is empty.
type SeedItem struct {
	Name  string
	Color string
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStore sets the item and ballot store. The service closes it on Stop.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithEngine sets the rating engine.
func WithEngine(e *rating.Engine) Option {
	return func(s *Service) {
		if e != nil {
			s.engine = e
		}
	}
}

// WithWorkerCount sets the number of recompute workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the recompute queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the vote id cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithLockStripes sets the number of per-item lock stripes.
func WithLockStripes(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.lockStripes = n
		}
	}
}

// WithHistorySize sets how many recent triplets a session remembers.
func WithHistorySize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.historySize = n
		}
	}
}

// WithSessionTTL sets how long an idle session is kept.
func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.sessionTTL = ttl
		}
	}
}

// WithMaxRankingsLimit caps the number of ranking rows returned at once.
func WithMaxRankingsLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxRankings = n
		}
	}
}

// WithRandomSeed fixes the matchup random source. Zero seeds from the clock.
func WithRandomSeed(seed int64) Option {
	return func(s *Service) {
		s.seed = seed
	}
}

// WithSeedItems sets the items created on start when the store is empty.
func WithSeedItems(items []SeedItem) Option {
	return func(s *Service) {
		s.seedItems = items
	}
}

// WithSynchronousRecompute runs every recompute on the caller's goroutine.
func WithSynchronousRecompute(sync bool) Option {
	return func(s *Service) {
		s.synchronous = sync
	}
}

// WithClock overrides the time source used to stamp ballots and sessions.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}
