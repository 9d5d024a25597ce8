package repository

import "time"

// Option applies a configuration option to a SQLStore.
type Option func(*SQLStore)

// WithMaxOpenConns caps the connection pool. SQLite defaults to one
// connection so that ":memory:" databases are shared.
func WithMaxOpenConns(n int) Option {
	return func(s *SQLStore) {
		if n > 0 {
			s.maxOpenConns = n
		}
	}
}

// WithConnMaxLifetime bounds how long a pooled connection is reused.
func WithConnMaxLifetime(d time.Duration) Option {
	return func(s *SQLStore) {
		if d > 0 {
			s.connMaxLifetime = d
		}
	}
}

// keepConnection disables connection recycling.
func keepConnection() Option {
	return func(s *SQLStore) {
		s.connMaxLifetime = 0
	}
}
