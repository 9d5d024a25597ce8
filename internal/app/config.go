package service

import (
	"fmt"

	"github.com/okian/ktc/internal/adapters/repository"
	"github.com/okian/ktc/internal/config"
	"github.com/okian/ktc/internal/domain/rating"
)

// OptionsFromConfig translates loaded configuration into service options.
// Options passed in extra are applied after the configured ones.
func OptionsFromConfig(cfg *config.Config, store repository.Store, extra ...Option) ([]Option, error) {
	engine, err := rating.NewEngine(rating.WithParams(cfg.Rating))
	if err != nil {
		return nil, fmt.Errorf("rating engine: %w", err)
	}

	seeds := make([]SeedItem, 0, len(cfg.SeedItems))
	for _, it := range cfg.SeedItems {
		seeds = append(seeds, SeedItem{Name: it.Name, Color: it.Color})
	}

	opts := []Option{
		WithStore(store),
		WithEngine(engine),
		WithWorkerCount(cfg.WorkerCount),
		WithQueueSize(cfg.QueueSize),
		WithDedupeSize(cfg.DedupeSize),
		WithLockStripes(cfg.LockStripes),
		WithHistorySize(cfg.HistorySize),
		WithSessionTTL(cfg.SessionTTL()),
		WithMaxRankingsLimit(cfg.MaxRankingsLimit),
		WithRandomSeed(cfg.RandomSeed),
		WithSeedItems(seeds),
	}
	return append(opts, extra...), nil
}
