package matchup

import "github.com/okian/ktc/internal/domain/model"

// DefaultHistorySize is the number of recent triplets remembered per session.
const DefaultHistorySize = 10

// History is a bounded window of recently shown triplets, most recent last.
// It belongs to a single session and is not safe for concurrent use.
type History struct {
	size     int
	triplets []model.Triplet
	resets   int
}

// NewHistory creates a window holding up to size triplets.
// Non-positive sizes fall back to DefaultHistorySize.
func NewHistory(size int) *History {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &History{size: size, triplets: make([]model.Triplet, 0, size)}
}

// Push records t as the most recent triplet, dropping the oldest on overflow.
func (h *History) Push(t model.Triplet) {
	h.triplets = append(h.triplets, t)
	if over := len(h.triplets) - h.size; over > 0 {
		h.triplets = append(h.triplets[:0], h.triplets[over:]...)
	}
}

// Last returns the most recent triplet.
func (h *History) Last() (model.Triplet, bool) {
	if len(h.triplets) == 0 {
		return model.Triplet{}, false
	}
	return h.triplets[len(h.triplets)-1], true
}

// Triplets returns a copy of the window, oldest first.
func (h *History) Triplets() []model.Triplet {
	out := make([]model.Triplet, len(h.triplets))
	copy(out, h.triplets)
	return out
}

// Len returns the number of triplets in the window.
func (h *History) Len() int { return len(h.triplets) }

// Resets returns how many times the window was cleared to free up items.
func (h *History) Resets() int { return h.resets }

// excluded returns the set of item ids present in the window.
func (h *History) excluded() map[string]struct{} {
	ids := make(map[string]struct{}, len(h.triplets)*3)
	for _, t := range h.triplets {
		for _, id := range t {
			ids[id] = struct{}{}
		}
	}
	return ids
}

// reset clears the window, keeping only keep when non-nil.
func (h *History) reset(keep *model.Triplet) {
	h.triplets = h.triplets[:0]
	if keep != nil {
		h.triplets = append(h.triplets, *keep)
	}
	h.resets++
}
