// Package ballot gates vote submissions and turns them into log entries.
package ballot

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/okian/ktc/internal/domain/model"
)

// Sentinel errors for malformed submissions.
var (
	ErrDuplicateSelection = errors.New("duplicate selection")
	ErrOutOfSet           = errors.New("selection not in offered matchup")
)

// Spacing used when expanding legacy votes into individual ballots.
const (
	legacyVoteSpacing    = 3 * time.Second
	legacyOutcomeSpacing = time.Second
)

// Validate checks a proposed vote against the offered triplet and returns
// the three ballots to append, in keep, trade, cut order.
func Validate(v model.Vote, offered model.Triplet, voteID string, at time.Time) ([]model.Ballot, error) {
	ids := v.IDs()
	if ids[0] == ids[1] || ids[0] == ids[2] || ids[1] == ids[2] {
		return nil, fmt.Errorf("%w: keep=%q trade=%q cut=%q", ErrDuplicateSelection, v.Keep, v.Trade, v.Cut)
	}
	for _, id := range ids {
		if !offered.Contains(id) {
			return nil, fmt.Errorf("%w: %q", ErrOutOfSet, id)
		}
	}

	out := make([]model.Ballot, 0, len(ids))
	for i, id := range ids {
		out = append(out, model.Ballot{
			ID:        uuid.NewString(),
			VoteID:    voteID,
			ItemID:    id,
			Outcome:   model.Outcomes[i],
			CreatedAt: at,
		})
	}
	return out, nil
}

// FromLegacy expands legacy vote rows into individual ballots. Votes are
// ordered by creation time; vote i lands at created+i*3s with keep, trade
// and cut one second apart, which preserves a strict chronological order
// for the replay. Empty slots produce no ballot.
func FromLegacy(votes []model.LegacyVote) []model.Ballot {
	ordered := make([]model.LegacyVote, len(votes))
	copy(ordered, votes)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
	})

	out := make([]model.Ballot, 0, len(ordered)*3)
	for i, v := range ordered {
		voteID := uuid.NewString()
		base := v.CreatedAt.Add(time.Duration(i) * legacyVoteSpacing)
		for j, id := range [3]string{v.Keep, v.Trade, v.Cut} {
			if id == "" {
				continue
			}
			out = append(out, model.Ballot{
				ID:        uuid.NewString(),
				VoteID:    voteID,
				ItemID:    id,
				Outcome:   model.Outcomes[j],
				CreatedAt: base.Add(time.Duration(j) * legacyOutcomeSpacing),
			})
		}
	}
	return out
}
