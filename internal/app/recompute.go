package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/okian/ktc/internal/domain/ballot"
	"github.com/okian/ktc/internal/domain/model"
	"github.com/okian/ktc/pkg/logger"
	"github.com/okian/ktc/pkg/metrics"
)

// Drift is an item whose stored projection differs from a fresh replay.
type Drift struct {
	ItemID       string
	Name         string
	StoredRating *float64
	StoredVotes  int
	ReplayRating float64
	ReplayVotes  int
}

// RebuildReport summarizes a full replay.
type RebuildReport struct {
	Items    int
	Ballots  int
	Duration time.Duration
}

// Recompute replays one item's ballot log and persists the result. Calls for
// the same item are serialised.
func (s *Service) Recompute(ctx context.Context, itemID string) error {
	_, err := s.recompute(ctx, itemID)
	return err
}

func (s *Service) recompute(ctx context.Context, itemID string) (int, error) {
	unlock := s.locks.lock(itemID)
	defer unlock()

	start := time.Now()
	ballots, err := s.store.BallotsForItem(ctx, itemID)
	if err != nil {
		metrics.RecordRecomputeError()
		return 0, fmt.Errorf("load ballots for %s: %w", itemID, err)
	}
	res, err := s.engine.Recompute(ballots)
	if err != nil {
		metrics.RecordRecomputeError()
		return 0, fmt.Errorf("replay %s: %w", itemID, err)
	}
	if err := s.store.PersistRating(ctx, itemID, res.Rating, res.Votes); err != nil {
		metrics.RecordRecomputeError()
		return 0, fmt.Errorf("persist %s: %w", itemID, err)
	}
	metrics.RecordRecompute(float64(time.Since(start).Microseconds()) / 1000)
	return len(ballots), nil
}

// Rebuild replays every item's log from the base rating.
func (s *Service) Rebuild(ctx context.Context) (RebuildReport, error) {
	start := time.Now()
	items, err := s.store.Items(ctx)
	if err != nil {
		return RebuildReport{}, fmt.Errorf("list items: %w", err)
	}
	var report RebuildReport
	for _, it := range items {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("rebuild interrupted: %w", err)
		}
		n, err := s.recompute(ctx, it.ID)
		if err != nil {
			return report, err
		}
		report.Items++
		report.Ballots += n
	}
	report.Duration = time.Since(start)
	s.logger.Info(ctx, "rebuild complete",
		logger.Int("items", report.Items),
		logger.Int("ballots", report.Ballots),
		logger.Duration("duration", report.Duration),
	)
	return report, nil
}

// Audit replays every item without persisting and reports items whose stored
// rating or vote count differ from the replay. Ratings compare exactly.
func (s *Service) Audit(ctx context.Context) ([]Drift, error) {
	items, err := s.store.Items(ctx)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	var drift []Drift
	for _, it := range items {
		ballots, err := s.store.BallotsForItem(ctx, it.ID)
		if err != nil {
			return nil, fmt.Errorf("load ballots for %s: %w", it.ID, err)
		}
		res, err := s.engine.Recompute(ballots)
		if err != nil {
			return nil, fmt.Errorf("replay %s: %w", it.ID, err)
		}
		stored := it.EffectiveRating(s.engine.BaseRating())
		if stored == res.Rating && it.TotalVotes == res.Votes {
			continue
		}
		drift = append(drift, Drift{
			ItemID:       it.ID,
			Name:         it.Name,
			StoredRating: it.Rating,
			StoredVotes:  it.TotalVotes,
			ReplayRating: res.Rating,
			ReplayVotes:  res.Votes,
		})
	}
	metrics.RecordRatingDrift(len(drift))
	return drift, nil
}

// ImportLegacy expands legacy vote rows into ballots, appends them and
// recomputes every item they touch. It returns the number of ballots added.
func (s *Service) ImportLegacy(ctx context.Context, votes []model.LegacyVote) (int, error) {
	ballots := ballot.FromLegacy(votes)
	if len(ballots) == 0 {
		return 0, nil
	}
	if err := s.store.AppendBallots(ctx, ballots); err != nil {
		return 0, fmt.Errorf("append legacy ballots: %w", err)
	}
	metrics.RecordBallotsAppended(len(ballots))

	touched := make(map[string]struct{})
	for _, b := range ballots {
		touched[b.ItemID] = struct{}{}
	}
	ids := make([]string, 0, len(touched))
	for id := range touched {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if err := s.Recompute(ctx, id); err != nil {
			return len(ballots), err
		}
	}
	s.logger.Info(ctx, "legacy votes imported",
		logger.Int("votes", len(votes)),
		logger.Int("ballots", len(ballots)),
		logger.Int("items", len(ids)),
	)
	return len(ballots), nil
}
