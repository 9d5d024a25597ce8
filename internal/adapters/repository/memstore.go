package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/okian/ktc/internal/domain/model"
)

// MemoryStore keeps items and ballots in maps guarded by an RWMutex.
type MemoryStore struct {
	mu        sync.RWMutex
	items     map[string]model.Item
	ballots   map[string][]model.Ballot // per item, ordered by (CreatedAt, ID)
	ballotIDs map[string]struct{}
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items:     make(map[string]model.Item),
		ballots:   make(map[string][]model.Ballot),
		ballotIDs: make(map[string]struct{}),
	}
}

func (s *MemoryStore) Items(ctx context.Context) ([]model.Item, error) {
	defer observe("items", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Item, 0, len(s.items))
	for _, it := range s.items {
		out = append(out, copyItem(it))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) Item(ctx context.Context, id string) (model.Item, error) {
	defer observe("item", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()

	it, ok := s.items[id]
	if !ok {
		return model.Item{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return copyItem(it), nil
}

func (s *MemoryStore) CreateItem(ctx context.Context, item model.Item) error {
	defer observe("create_item", time.Now())
	if err := validateItem(item); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[item.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateItem, item.ID)
	}
	s.items[item.ID] = copyItem(item)
	return nil
}

func (s *MemoryStore) BallotsForItem(ctx context.Context, itemID string) ([]model.Ballot, error) {
	defer observe("ballots_for_item", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.items[itemID]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, itemID)
	}
	log := s.ballots[itemID]
	out := make([]model.Ballot, len(log))
	copy(out, log)
	return out, nil
}

func (s *MemoryStore) AppendBallots(ctx context.Context, ballots []model.Ballot) error {
	defer observe("append_ballots", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{}, len(ballots))
	for _, b := range ballots {
		if err := validateBallot(b); err != nil {
			return err
		}
		if _, ok := s.items[b.ItemID]; !ok {
			return fmt.Errorf("%w: %s", ErrNotFound, b.ItemID)
		}
		if _, ok := s.ballotIDs[b.ID]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateBallot, b.ID)
		}
		if _, ok := seen[b.ID]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateBallot, b.ID)
		}
		seen[b.ID] = struct{}{}
	}

	for _, b := range ballots {
		log := s.ballots[b.ItemID]
		i := sort.Search(len(log), func(i int) bool { return ballotLess(b, log[i]) })
		log = append(log, model.Ballot{})
		copy(log[i+1:], log[i:])
		log[i] = b
		s.ballots[b.ItemID] = log
		s.ballotIDs[b.ID] = struct{}{}
	}
	return nil
}

func (s *MemoryStore) PersistRating(ctx context.Context, itemID string, rating float64, votes int) error {
	defer observe("persist_rating", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()

	it, ok := s.items[itemID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, itemID)
	}
	r := rating
	it.Rating = &r
	it.TotalVotes = votes
	s.items[itemID] = it
	return nil
}

func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items), nil
}

func (s *MemoryStore) Close() error { return nil }

// ballotLess orders ballots by (CreatedAt, ID).
func ballotLess(a, b model.Ballot) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

func copyItem(it model.Item) model.Item {
	if it.Rating != nil {
		r := *it.Rating
		it.Rating = &r
	}
	return it
}

func validateItem(it model.Item) error {
	if it.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidItem)
	}
	if it.Name == "" {
		return fmt.Errorf("%w: empty name for %s", ErrInvalidItem, it.ID)
	}
	if it.TotalVotes < 0 {
		return fmt.Errorf("%w: negative vote count for %s", ErrInvalidItem, it.ID)
	}
	return nil
}

func validateBallot(b model.Ballot) error {
	if b.ID == "" || b.ItemID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidBallot)
	}
	if !b.Outcome.Valid() {
		return fmt.Errorf("%w: %w", ErrInvalidBallot, model.ErrInvalidOutcome)
	}
	return nil
}
