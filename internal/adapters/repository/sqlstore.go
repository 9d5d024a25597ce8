package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/okian/ktc/internal/domain/model"
)

// Supported database/sql drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// SQLStore implements Store on database/sql for SQLite and PostgreSQL.
type SQLStore struct {
	db              *sql.DB
	driver          string
	maxOpenConns    int
	connMaxLifetime time.Duration
}

// OpenSQL connects, verifies the connection and creates the schema.
func OpenSQL(ctx context.Context, driver, dsn string, opts ...Option) (*SQLStore, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	s := &SQLStore{db: db, driver: driver}
	if driver == DriverSQLite {
		s.maxOpenConns = 1
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.maxOpenConns > 0 {
		db.SetMaxOpenConns(s.maxOpenConns)
	}
	if s.connMaxLifetime > 0 {
		db.SetConnMaxLifetime(s.connMaxLifetime)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	if err := s.createSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) q(query string) string { return rebind(s.driver, query) }

func (s *SQLStore) Items(ctx context.Context) ([]model.Item, error) {
	defer observe("items", time.Now())
	rows, err := s.db.QueryContext(ctx, s.q(
		`SELECT id, name, color, rating, total_votes, created_at_ns FROM items ORDER BY created_at_ns, id`))
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	var out []model.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}
	return out, nil
}

func (s *SQLStore) Item(ctx context.Context, id string) (model.Item, error) {
	defer observe("item", time.Now())
	row := s.db.QueryRowContext(ctx, s.q(
		`SELECT id, name, color, rating, total_votes, created_at_ns FROM items WHERE id = $1`), id)
	it, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Item{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return it, err
}

func (s *SQLStore) CreateItem(ctx context.Context, item model.Item) error {
	defer observe("create_item", time.Now())
	if err := validateItem(item); err != nil {
		return err
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		exists, err := s.itemExists(ctx, tx, item.ID)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: %s", ErrDuplicateItem, item.ID)
		}
		var rating sql.NullFloat64
		if item.Rating != nil {
			rating = sql.NullFloat64{Float64: *item.Rating, Valid: true}
		}
		_, err = tx.ExecContext(ctx, s.q(
			`INSERT INTO items (id, name, color, rating, total_votes, created_at_ns) VALUES ($1, $2, $3, $4, $5, $6)`),
			item.ID, item.Name, item.Color, rating, item.TotalVotes, item.CreatedAt.UnixNano())
		if err != nil {
			return fmt.Errorf("insert item: %w", err)
		}
		return nil
	})
}

func (s *SQLStore) BallotsForItem(ctx context.Context, itemID string) ([]model.Ballot, error) {
	defer observe("ballots_for_item", time.Now())
	var out []model.Ballot
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		exists, err := s.itemExists(ctx, tx, itemID)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%w: %s", ErrNotFound, itemID)
		}
		rows, err := tx.QueryContext(ctx, s.q(
			`SELECT id, vote_id, item_id, outcome, created_at_ns FROM ballots WHERE item_id = $1 ORDER BY created_at_ns, id`), itemID)
		if err != nil {
			return fmt.Errorf("query ballots: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var (
				b       model.Ballot
				outcome string
				ns      int64
			)
			if err := rows.Scan(&b.ID, &b.VoteID, &b.ItemID, &outcome, &ns); err != nil {
				return fmt.Errorf("scan ballot: %w", err)
			}
			if b.Outcome, err = model.ParseOutcome(outcome); err != nil {
				return err
			}
			b.CreatedAt = time.Unix(0, ns).UTC()
			out = append(out, b)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SQLStore) AppendBallots(ctx context.Context, ballots []model.Ballot) error {
	defer observe("append_ballots", time.Now())
	for _, b := range ballots {
		if err := validateBallot(b); err != nil {
			return err
		}
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		checked := make(map[string]struct{}, len(ballots))
		for _, b := range ballots {
			if _, ok := checked[b.ItemID]; ok {
				continue
			}
			exists, err := s.itemExists(ctx, tx, b.ItemID)
			if err != nil {
				return err
			}
			if !exists {
				return fmt.Errorf("%w: %s", ErrNotFound, b.ItemID)
			}
			checked[b.ItemID] = struct{}{}
		}
		for _, b := range ballots {
			var n int
			if err := tx.QueryRowContext(ctx, s.q(`SELECT COUNT(*) FROM ballots WHERE id = $1`), b.ID).Scan(&n); err != nil {
				return fmt.Errorf("check ballot: %w", err)
			}
			if n > 0 {
				return fmt.Errorf("%w: %s", ErrDuplicateBallot, b.ID)
			}
			_, err := tx.ExecContext(ctx, s.q(
				`INSERT INTO ballots (id, vote_id, item_id, outcome, created_at_ns) VALUES ($1, $2, $3, $4, $5)`),
				b.ID, b.VoteID, b.ItemID, string(b.Outcome), b.CreatedAt.UnixNano())
			if err != nil {
				return fmt.Errorf("insert ballot: %w", err)
			}
		}
		return nil
	})
}

func (s *SQLStore) PersistRating(ctx context.Context, itemID string, rating float64, votes int) error {
	defer observe("persist_rating", time.Now())
	res, err := s.db.ExecContext(ctx, s.q(
		`UPDATE items SET rating = $1, total_votes = $2 WHERE id = $3`), rating, votes, itemID)
	if err != nil {
		return fmt.Errorf("update rating: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update rating: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, itemID)
	}
	return nil
}

func (s *SQLStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM items`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count items: %w", err)
	}
	return n, nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *SQLStore) itemExists(ctx context.Context, tx *sql.Tx, id string) (bool, error) {
	var n int
	if err := tx.QueryRowContext(ctx, s.q(`SELECT COUNT(*) FROM items WHERE id = $1`), id).Scan(&n); err != nil {
		return false, fmt.Errorf("check item: %w", err)
	}
	return n > 0, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(sc scanner) (model.Item, error) {
	var (
		it     model.Item
		rating sql.NullFloat64
		ns     int64
	)
	if err := sc.Scan(&it.ID, &it.Name, &it.Color, &rating, &it.TotalVotes, &ns); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Item{}, err
		}
		return model.Item{}, fmt.Errorf("scan item: %w", err)
	}
	if rating.Valid {
		r := rating.Float64
		it.Rating = &r
	}
	it.CreatedAt = time.Unix(0, ns).UTC()
	return it, nil
}
