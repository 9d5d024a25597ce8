package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrNoMatchup       = errors.New("no matchup offered")
	ErrInvalidLimit    = errors.New("invalid rankings limit")
	ErrInvalidColor    = errors.New("invalid color")
)
