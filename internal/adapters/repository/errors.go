package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound        = errors.New("item not found")
	ErrDuplicateItem   = errors.New("item already exists")
	ErrDuplicateBallot = errors.New("ballot already exists")
	ErrInvalidItem     = errors.New("invalid item")
	ErrInvalidBallot   = errors.New("invalid ballot")
	ErrUnknownDriver   = errors.New("unknown store driver")
	ErrMissingDSN      = errors.New("missing store dsn")
)
