// Package repository persists items and their append-only ballot logs.
package repository

import (
	"context"
	"time"

	"github.com/okian/ktc/internal/domain/model"
	"github.com/okian/ktc/pkg/metrics"
)

// Store provides read/write access to items and ballots.
//
// Ballots are never updated or deleted. Item ratings are projections that
// may be overwritten at any time by PersistRating.
type Store interface {
	// Items returns every item ordered by creation time, then id.
	Items(ctx context.Context) ([]model.Item, error)
	// Item returns one item or ErrNotFound.
	Item(ctx context.Context, id string) (model.Item, error)
	// CreateItem inserts a new item. Returns ErrDuplicateItem if the id exists.
	CreateItem(ctx context.Context, item model.Item) error

	// BallotsForItem returns the item's log ordered by (created_at, id).
	BallotsForItem(ctx context.Context, itemID string) ([]model.Ballot, error)
	// AppendBallots appends all ballots or none. Every referenced item must exist.
	AppendBallots(ctx context.Context, ballots []model.Ballot) error

	// PersistRating overwrites the derived rating and vote count of an item.
	// Writing the same values twice is harmless.
	PersistRating(ctx context.Context, itemID string, rating float64, votes int) error

	// Count returns the number of items.
	Count(ctx context.Context) (int, error)

	Close() error
}

func observe(op string, start time.Time) {
	metrics.RecordStoreLatency(op, float64(time.Since(start).Microseconds())/1000)
}
