package rating

import (
	"errors"

	"github.com/okian/ktc/internal/domain/model"
)

// Sentinel errors for the rating engine.
var (
	// ErrInvalidOutcome aliases the model error so callers can match either.
	ErrInvalidOutcome = model.ErrInvalidOutcome
	ErrInvalidParams  = errors.New("invalid rating parameters")
)
