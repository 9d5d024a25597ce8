package matchup

import "errors"

// ErrInsufficientItems is returned when fewer than three items exist.
var ErrInsufficientItems = errors.New("insufficient items for a matchup")
