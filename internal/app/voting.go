package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/okian/ktc/internal/adapters/mq/queue"
	"github.com/okian/ktc/internal/domain/ballot"
	"github.com/okian/ktc/internal/domain/matchup"
	"github.com/okian/ktc/internal/domain/model"
	"github.com/okian/ktc/internal/domain/types"
	"github.com/okian/ktc/pkg/logger"
	"github.com/okian/ktc/pkg/metrics"
)

// Receipt statuses.
const (
	StatusAccepted  = "accepted"
	StatusDuplicate = "duplicate"
)

// NewSession opens a voting session with an empty matchup history.
func (s *Service) NewSession(ctx context.Context) string {
	sess := s.sessions.create(s.historySize, s.now())
	s.logger.Debug(ctx, "session opened", logger.String("session_id", sess.id))
	return sess.id
}

// NextMatchup selects the next triplet for a session and remembers it as
// the offer the session's next vote must match.
func (s *Service) NextMatchup(ctx context.Context, sessionID string) (types.Matchup, error) {
	sess, ok := s.sessions.get(sessionID)
	if !ok {
		return types.Matchup{}, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}

	items, err := s.store.Items(ctx)
	if err != nil {
		return types.Matchup{}, fmt.Errorf("list items: %w", err)
	}
	byID := make(map[string]model.Item, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.lastSeen = s.now()

	s.selMu.Lock()
	sel, err := s.selector.Select(items, sess.history)
	s.selMu.Unlock()
	if err != nil {
		return types.Matchup{}, fmt.Errorf("select matchup: %w", err)
	}

	metrics.RecordMatchup(string(sel.Path))
	if sel.Reset {
		metrics.RecordHistoryReset()
	}
	triplet := sel.Triplet
	sess.offered = &triplet

	out := types.Matchup{SessionID: sess.id, Items: make([]types.MatchupItem, 0, len(triplet))}
	for _, id := range triplet {
		it := byID[id]
		out.Items = append(out.Items, types.MatchupItem{
			ItemID:     it.ID,
			Name:       it.Name,
			Color:      it.Color,
			Rating:     it.EffectiveRating(s.engine.BaseRating()),
			Confidence: s.engine.Confidence(it.TotalVotes),
		})
	}
	s.logger.Debug(ctx, "matchup offered",
		logger.String("session_id", sess.id),
		logger.String("path", string(sel.Path)),
		logger.Bool("reset", sel.Reset),
	)
	return out, nil
}

// SubmitVote validates a vote against the session's offered triplet, appends
// its three ballots and schedules a recompute of the three items. A vote id
// repeated within the same session is acknowledged as a duplicate without
// touching the log. An empty voteID gets a fresh one.
func (s *Service) SubmitVote(ctx context.Context, sessionID, voteID string, v model.Vote) (types.VoteReceipt, error) {
	sess, ok := s.sessions.get(sessionID)
	if !ok {
		return types.VoteReceipt{}, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	if voteID == "" {
		voteID = uuid.NewString()
	}

	ballots, dup, err := s.appendVote(ctx, sess, voteID, v)
	if err != nil {
		metrics.RecordVoteRejected(rejectReason(err))
		return types.VoteReceipt{}, err
	}
	if dup {
		metrics.RecordVoteDuplicate()
		return types.VoteReceipt{VoteID: voteID, Status: StatusDuplicate, Duplicate: true}, nil
	}

	metrics.RecordVoteAccepted()
	metrics.RecordBallotsAppended(len(ballots))
	for _, b := range ballots {
		s.schedule(ctx, b.ItemID, voteID)
	}
	return types.VoteReceipt{VoteID: voteID, Status: StatusAccepted}, nil
}

// appendVote runs under the session mutex so a retry of the same vote id
// observes the outcome of the first attempt. The id stays recorded only when
// the ballots were appended.
func (s *Service) appendVote(ctx context.Context, sess *session, voteID string, v model.Vote) ([]model.Ballot, bool, error) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.lastSeen = s.now()

	key := dedupeKey(sess.id, voteID)
	if s.deduper.SeenAndRecord(ctx, key) {
		return nil, true, nil
	}

	ballots, err := s.validateAndAppend(ctx, sess, voteID, v)
	if err != nil {
		s.deduper.Unrecord(ctx, key)
		return nil, false, err
	}
	sess.offered = nil
	return ballots, false, nil
}

func (s *Service) validateAndAppend(ctx context.Context, sess *session, voteID string, v model.Vote) ([]model.Ballot, error) {
	if sess.offered == nil {
		return nil, fmt.Errorf("%w: session %s", ErrNoMatchup, sess.id)
	}
	ballots, err := ballot.Validate(v, *sess.offered, voteID, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.store.AppendBallots(ctx, ballots); err != nil {
		return nil, fmt.Errorf("append ballots: %w", err)
	}
	return ballots, nil
}

// dedupeKey scopes vote ids to the session that submitted them.
func dedupeKey(sessionID, voteID string) string {
	return sessionID + "/" + voteID
}

// schedule queues a recompute, running it inline when there is no worker
// pool or the queue refuses the job. The ballots are already appended, so the
// request's cancellation does not apply. Failures are logged; Rebuild repairs
// any projection left stale.
func (s *Service) schedule(ctx context.Context, itemID, voteID string) {
	ctx = context.WithoutCancel(ctx)
	s.mu.RLock()
	q := s.queue
	s.mu.RUnlock()

	if q != nil && !s.synchronous {
		err := q.Enqueue(ctx, queue.Job{ItemID: itemID, VoteID: voteID})
		if err == nil {
			return
		}
		metrics.RecordRecomputeInline()
		s.logger.Warn(ctx, "recompute queue refused job; running inline",
			logger.String("item_id", itemID), logger.Error(err))
	}
	if err := s.Recompute(ctx, itemID); err != nil {
		s.logger.Error(ctx, "inline recompute failed",
			logger.String("item_id", itemID),
			logger.String("vote_id", voteID),
			logger.Error(err),
		)
	}
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, ballot.ErrDuplicateSelection):
		return "duplicate_selection"
	case errors.Is(err, ballot.ErrOutOfSet):
		return "out_of_set"
	case errors.Is(err, model.ErrInvalidOutcome):
		return "invalid_outcome"
	case errors.Is(err, ErrNoMatchup):
		return "no_matchup"
	case errors.Is(err, matchup.ErrInsufficientItems):
		return "insufficient_items"
	default:
		return "store_error"
	}
}
