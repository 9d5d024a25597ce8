package rating

// Option applies a configuration option to the Engine.
type Option func(*Params)

// WithParams replaces the whole parameter set.
func WithParams(p Params) Option {
	return func(dst *Params) {
		*dst = p
	}
}

// WithBaseRating sets the rating assigned to items with no ballots.
func WithBaseRating(base float64) Option {
	return func(p *Params) {
		p.BaseRating = base
	}
}

// WithBounds sets the inclusive rating bounds.
func WithBounds(lo, hi float64) Option {
	return func(p *Params) {
		p.MinRating = lo
		p.MaxRating = hi
	}
}

// WithImpacts sets the raw impact of each outcome.
func WithImpacts(keep, trade, cut float64) Option {
	return func(p *Params) {
		p.KeepImpact = keep
		p.TradeImpact = trade
		p.CutImpact = cut
	}
}

// WithKFactor sets the update scale.
func WithKFactor(k float64) Option {
	return func(p *Params) {
		p.KFactor = k
	}
}

// WithFullConfidenceVotes sets the ballot count at which confidence saturates.
func WithFullConfidenceVotes(n int) Option {
	return func(p *Params) {
		p.FullConfidenceVotes = n
	}
}

// WithDiminishing sets the ceiling/floor thresholds and the damping factor.
func WithDiminishing(high, low, factor float64) Option {
	return func(p *Params) {
		p.HighThreshold = high
		p.LowThreshold = low
		p.DiminishingFactor = factor
	}
}
