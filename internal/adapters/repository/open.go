package repository

import (
	"context"
	"fmt"
	"strings"
)

// DriverMemory selects the in-memory store.
const DriverMemory = "memory"

// Open returns the Store for driver. An empty driver means memory.
func Open(ctx context.Context, driver, dsn string, opts ...Option) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", DriverMemory:
		return NewMemoryStore(), nil
	case DriverSQLite:
		if dsn == "" {
			dsn = ":memory:"
		}
		// One connection keeps a :memory: database alive and serialises writers.
		opts = append(append([]Option{}, opts...), WithMaxOpenConns(1))
		if isMemoryDSN(dsn) {
			// Recycling the only connection would drop the database.
			opts = append(opts, keepConnection())
		}
		return OpenSQL(ctx, DriverSQLite, dsn, opts...)
	case DriverPostgres:
		if dsn == "" {
			return nil, fmt.Errorf("%w: %s", ErrMissingDSN, DriverPostgres)
		}
		return OpenSQL(ctx, DriverPostgres, dsn, opts...)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, driver)
	}
}

func isMemoryDSN(dsn string) bool {
	return strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}
