// Package rating turns an item's ballot log into a bounded numeric rating.
//
// The rating is a projection: it is always obtained by replaying the item's
// full ballot history from the base rating in chronological order. Every
// function here is pure and safe for concurrent use.
package rating

import (
	"fmt"
	"math"
	"sort"

	"github.com/okian/ktc/internal/domain/model"
)

// Default engine parameters.
const (
	DefaultBaseRating          = 50.0
	DefaultMinRating           = 0.0
	DefaultMaxRating           = 100.0
	DefaultKeepImpact          = 1.0
	DefaultTradeImpact         = -0.3
	DefaultCutImpact           = -1.0
	DefaultKFactor             = 2.0
	DefaultFullConfidenceVotes = 20
	DefaultHighThreshold       = 70.0
	DefaultLowThreshold        = 30.0
	DefaultDiminishingFactor   = 0.5
)

// Params holds the tunable constants of the engine.
type Params struct {
	BaseRating          float64 `koanf:"base_rating"`
	MinRating           float64 `koanf:"min_rating"`
	MaxRating           float64 `koanf:"max_rating"`
	KeepImpact          float64 `koanf:"keep_impact"`
	TradeImpact         float64 `koanf:"trade_impact"`
	CutImpact           float64 `koanf:"cut_impact"`
	KFactor             float64 `koanf:"k_factor"`
	FullConfidenceVotes int     `koanf:"full_confidence_votes"`
	HighThreshold       float64 `koanf:"high_threshold"`
	LowThreshold        float64 `koanf:"low_threshold"`
	DiminishingFactor   float64 `koanf:"diminishing_factor"`
}

// DefaultParams returns the stock parameter set.
func DefaultParams() Params {
	return Params{
		BaseRating:          DefaultBaseRating,
		MinRating:           DefaultMinRating,
		MaxRating:           DefaultMaxRating,
		KeepImpact:          DefaultKeepImpact,
		TradeImpact:         DefaultTradeImpact,
		CutImpact:           DefaultCutImpact,
		KFactor:             DefaultKFactor,
		FullConfidenceVotes: DefaultFullConfidenceVotes,
		HighThreshold:       DefaultHighThreshold,
		LowThreshold:        DefaultLowThreshold,
		DiminishingFactor:   DefaultDiminishingFactor,
	}
}

// Validate checks that the parameters describe a usable engine.
func (p Params) Validate() error {
	switch {
	case p.MinRating >= p.MaxRating:
		return fmt.Errorf("%w: min rating %v must be below max rating %v", ErrInvalidParams, p.MinRating, p.MaxRating)
	case p.BaseRating < p.MinRating || p.BaseRating > p.MaxRating:
		return fmt.Errorf("%w: base rating %v outside [%v, %v]", ErrInvalidParams, p.BaseRating, p.MinRating, p.MaxRating)
	case p.KFactor <= 0:
		return fmt.Errorf("%w: k-factor must be positive", ErrInvalidParams)
	case p.FullConfidenceVotes <= 0:
		return fmt.Errorf("%w: full confidence votes must be positive", ErrInvalidParams)
	case p.DiminishingFactor < 0 || p.DiminishingFactor > 1:
		return fmt.Errorf("%w: diminishing factor must be within [0, 1]", ErrInvalidParams)
	case p.LowThreshold > p.HighThreshold:
		return fmt.Errorf("%w: low threshold above high threshold", ErrInvalidParams)
	}
	return nil
}

// Result is the outcome of replaying an item's log.
type Result struct {
	Rating float64
	Votes  int
}

// Stats summarizes an item's ballots by outcome.
type Stats struct {
	Keep       int
	Trade      int
	Cut        int
	Total      int
	Confidence float64
}

// Engine computes ratings. It is immutable after construction.
type Engine struct {
	p Params
}

// NewEngine creates an engine from the default parameters and options.
func NewEngine(opts ...Option) (*Engine, error) {
	p := DefaultParams()
	for _, opt := range opts {
		opt(&p)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Engine{p: p}, nil
}

// Default returns an engine with the stock parameters.
func Default() *Engine {
	return &Engine{p: DefaultParams()}
}

// Params returns a copy of the engine parameters.
func (e *Engine) Params() Params { return e.p }

// BaseRating returns the rating of an item with no ballots.
func (e *Engine) BaseRating() float64 { return e.p.BaseRating }

// Confidence is a linear ramp min(1, n/FullConfidenceVotes).
func (e *Engine) Confidence(voteCount int) float64 {
	if voteCount <= 0 {
		return 0
	}
	return math.Min(1, float64(voteCount)/float64(e.p.FullConfidenceVotes))
}

// Diminish damps positive impact near the ceiling and negative impact near
// the floor. Only the current rating matters, never the vote count.
func (e *Engine) Diminish(current, impact float64) float64 {
	if current >= e.p.HighThreshold && impact > 0 {
		return impact * e.p.DiminishingFactor
	}
	if current <= e.p.LowThreshold && impact < 0 {
		return impact * e.p.DiminishingFactor
	}
	return impact
}

// Impact returns the raw impact of an outcome.
func (e *Engine) Impact(o model.Outcome) (float64, error) {
	switch o {
	case model.Keep:
		return e.p.KeepImpact, nil
	case model.Trade:
		return e.p.TradeImpact, nil
	case model.Cut:
		return e.p.CutImpact, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidOutcome, string(o))
}

// NextRating applies a single ballot outcome. observedBefore is the number of
// ballots the item had before this one.
func (e *Engine) NextRating(current float64, o model.Outcome, observedBefore int) (float64, error) {
	impact, err := e.Impact(o)
	if err != nil {
		return current, err
	}
	impact = e.Diminish(current, impact)
	delta := e.p.KFactor * e.Confidence(observedBefore) * impact
	return e.clamp(current + delta), nil
}

// Recompute replays ballots from the base rating in ascending timestamp
// order. Ballots with equal timestamps keep their input order. The input
// slice is not modified.
func (e *Engine) Recompute(ballots []model.Ballot) (Result, error) {
	ordered := make([]model.Ballot, len(ballots))
	copy(ordered, ballots)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
	})

	r := e.p.BaseRating
	for i, b := range ordered {
		next, err := e.NextRating(r, b.Outcome, i)
		if err != nil {
			return Result{}, fmt.Errorf("ballot %s at position %d: %w", b.ID, i, err)
		}
		r = next
	}
	return Result{Rating: r, Votes: len(ordered)}, nil
}

// Progression returns the rating after each outcome, starting from start.
// The first element is start itself. Positions follow the same zero-based
// convention as Recompute, so Progression(outcomes, base) ends on the value
// Recompute would produce for the same ordered log.
// This deliberately differs from the legacy one-based rating simulator: here
// the first outcome carries zero confidence and leaves start unchanged.
func (e *Engine) Progression(outcomes []model.Outcome, start float64) ([]float64, error) {
	out := make([]float64, 0, len(outcomes)+1)
	r := e.clamp(start)
	out = append(out, r)
	for i, o := range outcomes {
		next, err := e.NextRating(r, o, i)
		if err != nil {
			return out, err
		}
		r = next
		out = append(out, r)
	}
	return out, nil
}

// Tally counts ballots by outcome. Unknown outcomes are counted in Total only.
func (e *Engine) Tally(ballots []model.Ballot) Stats {
	s := Stats{Total: len(ballots)}
	for _, b := range ballots {
		switch b.Outcome {
		case model.Keep:
			s.Keep++
		case model.Trade:
			s.Trade++
		case model.Cut:
			s.Cut++
		}
	}
	s.Confidence = e.Confidence(s.Total)
	return s
}

func (e *Engine) clamp(r float64) float64 {
	return math.Max(e.p.MinRating, math.Min(e.p.MaxRating, r))
}
