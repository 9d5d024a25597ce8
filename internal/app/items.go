package service

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/okian/ktc/internal/domain/model"
	"github.com/okian/ktc/internal/domain/types"
	"github.com/okian/ktc/pkg/logger"
	"github.com/okian/ktc/pkg/metrics"
)

var hexColor = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// CreateItem adds a new item at the base rating with no votes.
func (s *Service) CreateItem(ctx context.Context, name, color string) (types.Entry, error) {
	name = strings.TrimSpace(name)
	color = strings.TrimSpace(color)
	if color != "" && !hexColor.MatchString(color) {
		return types.Entry{}, fmt.Errorf("%w: %q", ErrInvalidColor, color)
	}

	base := s.engine.BaseRating()
	it := model.Item{
		ID:        uuid.NewString(),
		Name:      name,
		Color:     strings.ToUpper(color),
		Rating:    &base,
		CreatedAt: s.now(),
	}
	if err := s.store.CreateItem(ctx, it); err != nil {
		return types.Entry{}, fmt.Errorf("create item: %w", err)
	}
	if n, err := s.store.Count(ctx); err == nil {
		metrics.UpdateTotalItems(n)
	}
	s.logger.Debug(ctx, "item created", logger.String("item_id", it.ID), logger.String("name", it.Name))
	return s.entry(it), nil
}

// Rankings returns items ordered by rating. A limit of 0 means the
// configured maximum; larger limits are capped to it.
func (s *Service) Rankings(ctx context.Context, limit int) ([]types.Entry, error) {
	if limit < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}
	if limit == 0 || limit > s.maxRankings {
		limit = s.maxRankings
	}
	ranked, err := s.ranked(ctx)
	if err != nil {
		return nil, err
	}
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

// Item returns the detail view of one item including its ballot breakdown.
func (s *Service) Item(ctx context.Context, id string) (types.ItemDetail, error) {
	ranked, err := s.ranked(ctx)
	if err != nil {
		return types.ItemDetail{}, err
	}
	ballots, err := s.store.BallotsForItem(ctx, id)
	if err != nil {
		return types.ItemDetail{}, fmt.Errorf("item %s: %w", id, err)
	}
	var entry types.Entry
	for _, e := range ranked {
		if e.ItemID == id {
			entry = e
			break
		}
	}
	stats := s.engine.Tally(ballots)
	return types.ItemDetail{
		Entry:      entry,
		KeepVotes:  stats.Keep,
		TradeVotes: stats.Trade,
		CutVotes:   stats.Cut,
	}, nil
}

// ranked lists every item by rating desc, then votes desc, then name and id.
func (s *Service) ranked(ctx context.Context) ([]types.Entry, error) {
	items, err := s.store.Items(ctx)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	entries := make([]types.Entry, len(items))
	for i, it := range items {
		entries[i] = s.entry(it)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		switch {
		case a.Rating != b.Rating:
			return a.Rating > b.Rating
		case a.TotalVotes != b.TotalVotes:
			return a.TotalVotes > b.TotalVotes
		case a.Name != b.Name:
			return a.Name < b.Name
		default:
			return a.ItemID < b.ItemID
		}
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}

func (s *Service) entry(it model.Item) types.Entry {
	return types.Entry{
		ItemID:     it.ID,
		Name:       it.Name,
		Color:      it.Color,
		Rating:     it.EffectiveRating(s.engine.BaseRating()),
		Confidence: s.engine.Confidence(it.TotalVotes),
		TotalVotes: it.TotalVotes,
	}
}

// seedStore creates the configured seed items when the store is empty.
func (s *Service) seedStore(ctx context.Context) error {
	if len(s.seedItems) == 0 {
		return nil
	}
	n, err := s.store.Count(ctx)
	if err != nil {
		return fmt.Errorf("seed items: %w", err)
	}
	if n > 0 {
		return nil
	}
	for _, si := range s.seedItems {
		if _, err := s.CreateItem(ctx, si.Name, si.Color); err != nil {
			return fmt.Errorf("seed item %q: %w", si.Name, err)
		}
	}
	s.logger.Info(ctx, "seeded items", logger.Int("count", len(s.seedItems)))
	return nil
}
