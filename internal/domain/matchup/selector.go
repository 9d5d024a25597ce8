// Package matchup picks the next three items to present together.
//
// Selection prefers items of similar rating, biased toward the middle of the
// rating distribution, and avoids items shown in the session's recent history.
package matchup

import (
	"math"
	"math/rand"
	"sort"

	"github.com/okian/ktc/internal/domain/model"
)

const (
	matchupSize = 3
	tierWidth   = 10.0
	// tierWindow is how many ranked tiers around the middle are eligible.
	tierWindow = 3
)

// Path tells which branch of the algorithm produced a triplet.
type Path string

// Selection paths.
const (
	PathTier     Path = "tier"
	PathFallback Path = "fallback"
)

// Selection is a chosen triplet plus how it was reached.
type Selection struct {
	Triplet model.Triplet
	Path    Path
	TierKey float64 // lower bound of the chosen tier, PathTier only
	Reset   bool    // history was reset to free up items
}

// Selector chooses triplets. The random source is injected so that runs are
// reproducible; a Selector is not safe for concurrent use.
type Selector struct {
	rng  *rand.Rand
	base float64
}

// NewSelector returns a Selector drawing from rng. Items without a stored
// rating are treated as having baseRating.
func NewSelector(rng *rand.Rand, baseRating float64) *Selector {
	return &Selector{rng: rng, base: baseRating}
}

type candidate struct {
	id     string
	rating float64
}

type tier struct {
	key     float64
	members []candidate
	avg     float64
}

// Select picks the next triplet from items and records it in h.
func (s *Selector) Select(items []model.Item, h *History) (Selection, error) {
	if len(items) < matchupSize {
		return Selection{}, ErrInsufficientItems
	}

	all := make([]candidate, len(items))
	for i, it := range items {
		all[i] = candidate{id: it.ID, rating: it.EffectiveRating(s.base)}
	}

	var sel Selection
	pool := available(all, h)
	if len(pool) < matchupSize {
		// One reset only. The last shown triplet stays excluded when the rest
		// of the pool can still fill a matchup, so two consecutive matchups
		// never share an item.
		var keep *model.Triplet
		if last, ok := h.Last(); ok && len(all)-matchupSize >= matchupSize {
			keep = &last
		}
		h.reset(keep)
		sel.Reset = true
		pool = available(all, h)
		if len(pool) < matchupSize {
			return Selection{}, ErrInsufficientItems
		}
	}

	tiers := buildTiers(pool)
	var picked []candidate
	if len(tiers) == 0 {
		picked = s.sample(pool)
		sel.Path = PathFallback
	} else {
		t := s.chooseTier(tiers)
		picked = s.sample(t.members)
		sel.Path = PathTier
		sel.TierKey = t.key
	}

	for i, c := range picked {
		sel.Triplet[i] = c.id
	}
	h.Push(sel.Triplet)
	return sel, nil
}

func available(all []candidate, h *History) []candidate {
	excluded := h.excluded()
	out := make([]candidate, 0, len(all))
	for _, c := range all {
		if _, ok := excluded[c.id]; !ok {
			out = append(out, c)
		}
	}
	return out
}

// TierKey returns the lower bound of the 10-point tier containing r.
func TierKey(r float64) float64 {
	return math.Floor(r/tierWidth) * tierWidth
}

// buildTiers groups the pool into rating tiers with at least three members,
// ranked by descending average rating. Members keep pool order.
func buildTiers(pool []candidate) []tier {
	byKey := make(map[float64]*tier)
	keys := make([]float64, 0)
	for _, c := range pool {
		k := TierKey(c.rating)
		t, ok := byKey[k]
		if !ok {
			t = &tier{key: k}
			byKey[k] = t
			keys = append(keys, k)
		}
		t.members = append(t.members, c)
	}

	tiers := make([]tier, 0, len(keys))
	for _, k := range keys {
		t := byKey[k]
		if len(t.members) < matchupSize {
			continue
		}
		sum := 0.0
		for _, m := range t.members {
			sum += m.rating
		}
		t.avg = sum / float64(len(t.members))
		tiers = append(tiers, *t)
	}

	sort.Slice(tiers, func(i, j int) bool {
		if tiers[i].avg != tiers[j].avg {
			return tiers[i].avg > tiers[j].avg
		}
		return tiers[i].key > tiers[j].key
	})
	return tiers
}

// chooseTier picks uniformly among up to three tiers around the middle of
// the ranked list, clamped to its ends.
func (s *Selector) chooseTier(ranked []tier) tier {
	mid := len(ranked) / 2
	start := max(0, mid-1)
	end := min(len(ranked), mid+tierWindow-1)
	return ranked[start+s.rng.Intn(end-start)]
}

// sample draws three candidates uniformly without replacement.
func (s *Selector) sample(from []candidate) []candidate {
	idx := s.rng.Perm(len(from))[:matchupSize]
	out := make([]candidate, matchupSize)
	for i, j := range idx {
		out[i] = from[j]
	}
	return out
}
